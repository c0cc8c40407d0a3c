package state

import (
	"time"

	"github.com/danielpatrickdp/horizon/go-controller/internal/inventory"
)

// #region episode-record
// EpisodeRecord is one evaluation attempt of one task.
type EpisodeRecord struct {
	EpisodeID    string
	Task         string
	Attempt      int
	Outcome      string // "running" until finished
	Steps        int
	ReplanRounds int
	Deaths       int
	TracePath    string
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Succeeded reports whether the attempt reached the task target.
func (r EpisodeRecord) Succeeded() bool {
	return r.Outcome == "success"
}
// #endregion episode-record

// #region step-record
// StepRecord is the inventory observed after one loop step.
type StepRecord struct {
	EpisodeID string
	Step      int
	GoalName  string
	Inventory inventory.Snapshot
}
// #endregion step-record

// #region task-stats
// TaskStats aggregates finished attempts of one task.
type TaskStats struct {
	Task        string
	Attempts    int
	Successes   int
	SuccessRate float32
	AvgLength   float32 // mean steps over successful attempts
}
// #endregion task-stats
