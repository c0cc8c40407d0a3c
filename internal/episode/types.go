package episode

// #region imports
import (
	"context"
	"errors"

	"github.com/danielpatrickdp/horizon/go-controller/internal/env"
	"github.com/danielpatrickdp/horizon/go-controller/internal/goal"
	"github.com/danielpatrickdp/horizon/go-controller/internal/inventory"
	"github.com/danielpatrickdp/horizon/go-controller/internal/monitor"
	"github.com/danielpatrickdp/horizon/go-controller/internal/orchestrator"
	"github.com/danielpatrickdp/horizon/go-controller/internal/window"
)

// #endregion

// #region errors

// ErrEpisodeAborted marks an episode that could not continue, as opposed to
// one that simply failed to reach its target.
var ErrEpisodeAborted = errors.New("episode aborted")

// #endregion

// #region interfaces

// Environment is the simulator the driver steps.
type Environment interface {
	Reset(ctx context.Context) (env.Observation, error)
	Step(ctx context.Context, action env.Action) (env.StepResult, error)
	NoOp() env.Action
}

// Planner produces plans and keeps the narrated dialogue of an episode.
type Planner interface {
	Reset()
	InitialPlanning(ctx context.Context, group, question string) (string, error)
	GenerateGoalList(plan string) []goal.Subgoal
	Replan(ctx context.Context, question string) (string, error)
	SuccessDescription(ranking int)
	FailureDescription(ranking int)
	InventoryDescription(inv inventory.Snapshot)
	Explanation(ctx context.Context) error
	Dialogue() []string
}

// Dispatcher picks this step's action for the current goal.
type Dispatcher interface {
	Dispatch(ctx context.Context, g goal.Subgoal, states window.Slice, inv inventory.Snapshot) (orchestrator.Decision, error)
	ResetGoal()
}

// OutcomeRecorder stores how each goal left the queue.
type OutcomeRecorder interface {
	RecordOutcome(rec orchestrator.GoalOutcome) error
}

// Observer is notified after every loop step.
type Observer interface {
	OnStep(ev Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ev Event)

// OnStep calls f(ev).
func (f ObserverFunc) OnStep(ev Event) { f(ev) }

// #endregion

// #region task

// Task is what one episode tries to achieve.
type Task struct {
	Name     string
	Object   string // item whose presence in the inventory ends the episode
	MaxSteps int
	Question string
	Group    string
}

// Options are the per-driver settings.
type Options struct {
	EpisodeID string
	WindowLen int
	SkipFrame int
	FPS       int // loop iterations per second; 0 disables the delay
}

// #endregion

// #region event

// Event describes one completed loop step.
type Event struct {
	EpisodeID    string
	Step         int
	GoalEps      int
	Goal         goal.Subgoal
	Strategy     orchestrator.StrategyID
	Verdict      monitor.Verdict
	Inventory    inventory.Snapshot
	ReplanRounds int
	Deaths       int
}

// #endregion

// #region result

// Result is the outcome of one episode.
type Result struct {
	Final        monitor.Phase // success, aborted, or running when the step budget ran out
	Success      bool
	Aborted      bool // ended by ErrEpisodeAborted
	Steps        int
	ReplanRounds int
	Deaths       int
	Reason       string
}

// Outcome names the result for persistence.
func (r Result) Outcome() string {
	switch {
	case r.Success:
		return "success"
	case r.Aborted, r.Final == monitor.PhaseAborted:
		return "aborted"
	}
	return "failure"
}

// #endregion
