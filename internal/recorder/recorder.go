package recorder

import (
	"time"

	"github.com/google/uuid"

	"RandomWalkLab/internal/model"
)

// RunInfo describes the settings of one analysis run.
type RunInfo struct {
	ID          string
	StartedAt   time.Time
	Inputs      []string
	DateRange   string
	DecisionLag int
	Alpha       float64
	ZCritical   float64
	Tests       []string
}

// NewRunInfo returns a RunInfo with a fresh ID stamped now.
func NewRunInfo() RunInfo {
	return RunInfo{ID: uuid.NewString(), StartedAt: time.Now()}
}

// RunRecord is one analysis run with its results.
type RunRecord struct {
	Info    RunInfo
	Results *model.CategoryResultSet
}

// Recorder persists historical runs for analysis.
type Recorder interface {
	RecordRun(run *RunRecord) error
	Close() error
}
