// Command expflow runs experiment pipelines, either directly from a
// definition file or as an HTTP service.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/skillsenselab/expflow/config"
	"github.com/skillsenselab/expflow/engine"
	"github.com/skillsenselab/expflow/logger"
	"github.com/skillsenselab/expflow/observability"
	"github.com/skillsenselab/expflow/pipeline"
	"github.com/skillsenselab/expflow/server"
	"github.com/skillsenselab/expflow/storage"
	"github.com/skillsenselab/expflow/storage/local"
	"github.com/skillsenselab/expflow/util"
	"github.com/skillsenselab/expflow/version"
)

const serviceName = "expflow"

type appConfig struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
	Server               server.Config `yaml:"server" mapstructure:"server"`
	Observability        obsConfig     `yaml:"observability" mapstructure:"observability"`
}

type obsConfig struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
}

func (c *appConfig) applyDefaults() {
	if c.Name == "" {
		c.Name = serviceName
	}
	c.ServiceConfig.ApplyDefaults()
	c.Server.ApplyDefaults()
}

func (c *appConfig) validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	return c.Server.Validate()
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "run":
		err = runCmd(os.Args[2:])
	case "serve":
		err = serveCmd(os.Args[2:])
	case "version":
		fmt.Println(version.Short())
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `usage: %s <command> [flags]

commands:
  run      execute a pipeline and print its report
  serve    start the HTTP API server
  version  print the build version
`, serviceName)
}

func loadConfig(path string) (*appConfig, error) {
	var cfg appConfig
	var opts []config.LoaderOption
	if path != "" {
		opts = append(opts, config.WithConfigFile(path))
	}
	if err := config.Load(serviceName, &cfg, opts...); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	logger.Init(cfg.Logging)
	return &cfg, nil
}

func runCmd(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	file := fs.String("f", "", "pipeline definition file (yaml or json)")
	name := fs.String("p", "", "pipeline name, resolved against engine.pipeline_dirs")
	experiment := fs.String("experiment", "", "experiment id for this run")
	configPath := fs.String("config", "", "config file path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	var p *pipeline.Pipeline
	switch {
	case *file != "":
		p, err = pipeline.LoadFile(*file)
	case *name != "":
		p, err = pipeline.NewFileLoader(cfg.Engine.PipelineDirs...).Load(*name)
	default:
		return fmt.Errorf("either -f or -p is required")
	}
	if err != nil {
		return err
	}

	registry := builtinRegistry(logger.WithComponent("tasks"), nil)
	tasks, err := engine.BuildTaskSet(p, registry)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	exec := engine.NewExecutor(cfg.Engine.MaxParallel)
	events := exec.EnableProgress(cfg.Engine.ProgressBuffer)
	go logProgress(events)

	tc := engine.TaskContext{ExperimentID: *experiment}
	if tc.ExperimentID == "" {
		tc.ExperimentID = p.ID
	}

	report, runErr := engine.NewRunner(exec).Run(ctx, p, tasks, tc)

	if store, err := local.NewStore(cfg.Storage.Dir); err == nil {
		if err := storage.NewReportStore(store).Save(context.Background(), report); err != nil {
			logger.Warn("could not persist run report", logger.ErrorFields("save", err))
		}
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	if runErr != nil {
		return runErr
	}
	if report.Status != engine.StatusCompleted {
		return fmt.Errorf("run finished with status %s", report.Status)
	}
	return nil
}

func logProgress(events <-chan engine.TaskProgress) {
	for p := range events {
		logger.Info("task progress", map[string]interface{}{
			logger.FieldTaskID: p.TaskID,
			"task":             p.TaskName,
			logger.FieldStatus: p.Status,
		})
	}
}

func serveCmd(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "config file path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metrics *observability.Metrics
	if cfg.Observability.Enabled {
		shutdown, err := initObservability(ctx, cfg)
		if err != nil {
			return err
		}
		defer shutdown()

		metrics, err = observability.NewMetrics(observability.Meter(cfg.Name))
		if err != nil {
			return err
		}
	}

	store, err := local.NewStore(cfg.Storage.Dir)
	if err != nil {
		return err
	}

	registry := builtinRegistry(logger.WithComponent("tasks"), metrics)
	runs := server.NewRunService(registry, storage.NewReportStore(store),
		cfg.Engine.MaxParallel, cfg.Engine.ProgressBuffer)
	runs.SetMetrics(metrics)
	loader := pipeline.NewFileLoader(cfg.Engine.PipelineDirs...)

	srv := server.New(cfg.Server)
	srv.ApplyMiddleware()
	server.NewHandler(runs, loader).Register(srv.GinEngine())

	if cfg.Server.Auth.Enabled {
		logger.Info("authentication enabled", map[string]interface{}{
			"jwt_secret": util.MaskSecret(cfg.Server.Auth.JWTSecret, 4),
		})
	}

	if err := srv.Start(ctx); err != nil {
		return err
	}
	logger.Info("expflow ready", map[string]interface{}{
		"addr":    srv.Addr(),
		"version": version.Short(),
	})

	<-ctx.Done()
	return srv.Stop(context.Background())
}

func initObservability(ctx context.Context, cfg *appConfig) (func(), error) {
	tracerCfg := observability.DefaultTracerConfig(cfg.Name)
	tracerCfg.ServiceVersion = version.Get().Version
	tracerCfg.Environment = cfg.Environment
	if cfg.Observability.Endpoint != "" {
		tracerCfg.Endpoint = cfg.Observability.Endpoint
	}
	tp, err := observability.InitTracer(ctx, tracerCfg)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	meterCfg := observability.DefaultMeterConfig(cfg.Name)
	meterCfg.ServiceVersion = version.Get().Version
	meterCfg.Environment = cfg.Environment
	if cfg.Observability.Endpoint != "" {
		meterCfg.Endpoint = cfg.Observability.Endpoint
	}
	mp, err := observability.InitMeter(ctx, &meterCfg)
	if err != nil {
		return nil, fmt.Errorf("init meter: %w", err)
	}

	return func() {
		shutdownCtx := context.Background()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Warn("tracer shutdown failed", logger.ErrorFields("shutdown", err))
		}
		if err := mp.Shutdown(shutdownCtx); err != nil {
			logger.Warn("meter shutdown failed", logger.ErrorFields("shutdown", err))
		}
	}, nil
}
