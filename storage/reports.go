package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/skillsenselab/expflow/engine"
	"github.com/skillsenselab/expflow/errors"
)

const reportPrefix = "runs/"

// ReportStore persists run reports as JSON objects in a Store, keyed by run id.
type ReportStore struct {
	store Store
}

// NewReportStore creates a report store on top of the given object store.
func NewReportStore(store Store) *ReportStore {
	return &ReportStore{store: store}
}

// Save writes the report, replacing any previous report for the same run id.
func (rs *ReportStore) Save(ctx context.Context, report *engine.RunReport) error {
	if report.RunID == "" {
		return errors.MissingField("run_id")
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: encoding report %s: %w", report.RunID, err)
	}
	return rs.store.Put(ctx, reportPath(report.RunID), bytes.NewReader(data))
}

// Load reads the report for a run id.
func (rs *ReportStore) Load(ctx context.Context, runID string) (*engine.RunReport, error) {
	exists, err := rs.store.Exists(ctx, reportPath(runID))
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.NotFound("run", runID)
	}

	r, err := rs.store.Get(ctx, reportPath(runID))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var report engine.RunReport
	if err := json.NewDecoder(r).Decode(&report); err != nil {
		return nil, fmt.Errorf("storage: decoding report %s: %w", runID, err)
	}
	return &report, nil
}

// Delete removes the report for a run id. Missing reports are not an error.
func (rs *ReportStore) Delete(ctx context.Context, runID string) error {
	return rs.store.Delete(ctx, reportPath(runID))
}

// List returns the run ids of all persisted reports, sorted.
func (rs *ReportStore) List(ctx context.Context) ([]string, error) {
	infos, err := rs.store.List(ctx, reportPrefix)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(infos))
	for _, info := range infos {
		name := path.Base(info.Path)
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	return ids, nil
}

func reportPath(runID string) string {
	return reportPrefix + runID + ".json"
}
