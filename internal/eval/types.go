package eval

import (
	"context"

	"github.com/danielpatrickdp/horizon/go-controller/internal/episode"
	"github.com/danielpatrickdp/horizon/go-controller/internal/state"
	"github.com/danielpatrickdp/horizon/go-controller/internal/trace"
)

// #region eval-config
// EvalConfig controls where attempts leave their traces.
type EvalConfig struct {
	TraceDir string // JSON trace documents; empty disables the file sink
	Workers  int    // RunParallel worker count, at least 1
}

// DefaultEvalConfig returns the stock settings.
func DefaultEvalConfig() EvalConfig {
	return EvalConfig{TraceDir: "logs", Workers: 1}
}

// #endregion eval-config

// #region attempt
// Attempt is what a factory needs to build the driver for one attempt.
type Attempt struct {
	Iteration int
	EpisodeID string
	Recorder  *trace.Recorder
}

// DriverFactory builds a fresh driver for each attempt. Under RunParallel it is
// called from several goroutines and must give each one its own environment,
// policy and planner.
type DriverFactory func(ctx context.Context, a Attempt) (*episode.Driver, error)

// Store is the persistence the evaluator writes attempt results to.
type Store interface {
	BeginEpisode(task string, attempt int) (state.EpisodeRecord, error)
	FinishEpisode(rec state.EpisodeRecord) error
	RecordStep(rec state.StepRecord) error
}

// #endregion attempt

// #region eval-result
// AttemptResult is the outcome of one attempt.
type AttemptResult struct {
	Iteration int
	EpisodeID string
	Success   bool
	Length    int // zero when the attempt errored
	Result    episode.Result
	Err       error
}

// Summary aggregates every attempt of one task.
type Summary struct {
	Task             string
	Attempts         int
	Successes        int
	SuccessRate      float64
	AvgEpisodeLength float64 // mean length over successful attempts
	Results          []AttemptResult
}

// #endregion eval-result
