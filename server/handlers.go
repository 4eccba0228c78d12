package server

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/skillsenselab/expflow/engine"
	apperrors "github.com/skillsenselab/expflow/errors"
	"github.com/skillsenselab/expflow/pipeline"
	"github.com/skillsenselab/expflow/validation"
	"github.com/skillsenselab/expflow/version"
)

// Handler wires the pipeline API onto a Gin engine.
type Handler struct {
	runs   *RunService
	loader pipeline.Loader
}

// NewHandler creates the API handler.
func NewHandler(runs *RunService, loader pipeline.Loader) *Handler {
	return &Handler{runs: runs, loader: loader}
}

// Register mounts all API routes.
func (h *Handler) Register(r *gin.Engine) {
	r.GET("/health", h.health)
	r.GET("/info", h.info)

	api := r.Group("/api/v1")
	api.POST("/pipelines/run", h.startRun)
	api.GET("/runs", h.listRuns)
	api.GET("/runs/:id", h.getRun)
	api.DELETE("/runs/:id", h.deleteRun)
	api.POST("/runs/:id/cancel", h.cancelRun)
	api.GET("/runs/:id/events", h.streamEvents)
}

func (h *Handler) health(c *gin.Context) {
	RespondOK(c, gin.H{"status": "ok"})
}

func (h *Handler) info(c *gin.Context) {
	RespondOK(c, version.Get())
}

type runRequest struct {
	// Name selects a pipeline definition from the configured directories.
	Name string `json:"name"`
	// Pipeline is an inline pipeline definition; takes precedence over Name.
	Pipeline *pipeline.Pipeline `json:"pipeline"`
	// ExperimentID tags the run; defaults to the pipeline id.
	ExperimentID string `json:"experiment_id"`
	// Config is the run-scoped payload handed to every task.
	Config map[string]any `json:"config"`
}

func (h *Handler) startRun(c *gin.Context) {
	var req runRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, apperrors.InvalidInput("body", err.Error()))
		return
	}

	var (
		p   *pipeline.Pipeline
		err error
	)
	switch {
	case req.Pipeline != nil:
		p = req.Pipeline
		err = validation.Validate(p)
	case req.Name != "":
		p, err = h.loader.Load(req.Name)
	default:
		err = apperrors.MissingField("pipeline or name")
	}
	if err != nil {
		RespondWithError(c, err)
		return
	}

	tc := engine.TaskContext{ExperimentID: req.ExperimentID, Config: req.Config}
	if tc.ExperimentID == "" {
		tc.ExperimentID = p.ID
	}

	runID, err := h.runs.Start(p, tc)
	if err != nil {
		RespondWithError(c, err)
		return
	}
	RespondAccepted(c, RunView{RunID: runID, PipelineID: p.ID, Status: StatusRunning})
}

func (h *Handler) listRuns(c *gin.Context) {
	ids, err := h.runs.List(c.Request.Context())
	if err != nil {
		RespondWithError(c, err)
		return
	}
	RespondOK(c, gin.H{"runs": ids})
}

func (h *Handler) getRun(c *gin.Context) {
	run, err := h.runs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondWithError(c, err)
		return
	}
	RespondOK(c, run)
}

func (h *Handler) deleteRun(c *gin.Context) {
	if err := h.runs.Delete(c.Request.Context(), c.Param("id")); err != nil {
		RespondWithError(c, err)
		return
	}
	RespondNoContent(c)
}

func (h *Handler) cancelRun(c *gin.Context) {
	if err := h.runs.Cancel(c.Param("id")); err != nil {
		RespondWithError(c, err)
		return
	}
	RespondAccepted(c, gin.H{"run_id": c.Param("id"), "status": "cancelling"})
}

// streamEvents serves task progress as Server-Sent Events until the run
// finishes or the client disconnects. Runs that already finished get an
// immediate end-of-stream event.
func (h *Handler) streamEvents(c *gin.Context) {
	runID := c.Param("id")
	events, done, ok := h.runs.Events(runID)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	if !ok {
		c.SSEvent("end", gin.H{"run_id": runID})
		return
	}

	clientGone := c.Request.Context().Done()
	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case p, open := <-events:
			if !open {
				c.SSEvent("end", gin.H{"run_id": runID})
				return false
			}
			c.SSEvent("progress", p)
			return true
		case <-done:
			c.SSEvent("end", gin.H{"run_id": runID})
			return false
		case <-heartbeat.C:
			c.SSEvent("heartbeat", time.Now().Unix())
			return true
		case <-clientGone:
			return false
		}
	})
}
