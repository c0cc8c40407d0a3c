package orchestrator

// #region imports
import (
	"context"
	"errors"
	"time"

	"github.com/danielpatrickdp/horizon/go-controller/internal/env"
	"github.com/danielpatrickdp/horizon/go-controller/internal/goal"
	"github.com/danielpatrickdp/horizon/go-controller/internal/window"
)

// #endregion

// #region errors

var (
	// ErrUnsupportedGoalType is returned for a goal type outside mine/craft/smelt.
	ErrUnsupportedGoalType = errors.New("unsupported goal type")
	// ErrUnknownGoalLabel is returned when a mine target has no goal label or embedding.
	ErrUnknownGoalLabel = errors.New("unknown goal label")
)

// #endregion

// #region strategy-id

// StrategyID identifies a control strategy.
type StrategyID string

const (
	StrategyWindowedPolicy StrategyID = "windowed_policy"
	StrategyScriptedCraft  StrategyID = "scripted_craft"
)

// #endregion

// #region decision

// Decision is what the dispatcher wants the driver to do this step.
type Decision struct {
	Strategy StrategyID
	Action   env.Action
	DoneHint bool         // informational; completion is always re-checked against inventory
	Ranking  float32      // policy ranking score, zero for scripted crafting
	Label    string       // goal label used for mine goals
	Equip    []env.Action // stepped before Action, observations discarded
}

// #endregion

// #region outcome

// Outcome is how a goal left the queue.
type Outcome string

const (
	OutcomeCompleted  Outcome = "completed"
	OutcomeReplanned  Outcome = "replanned"
	OutcomeUnfinished Outcome = "unfinished"
)

// GoalOutcome is a single row for goal_outcomes.
type GoalOutcome struct {
	EpisodeID string
	Task      string
	GoalName  string
	GoalType  goal.Type
	Strategy  StrategyID
	Outcome   Outcome
	Steps     int
	CreatedAt time.Time
}

// GoalRate is the decay-weighted completion rate of one goal name.
type GoalRate struct {
	GoalName string
	GoalType goal.Type
	Samples  int
	Rate     float32
}

// #endregion

// #region interfaces

// Policy is the goal-conditioned perception policy used for mine goals.
type Policy interface {
	GetAction(ctx context.Context, label string, embeddings [][]float32, states window.Slice) (float32, env.Action, error)
}

// CraftController is the scripted controller used for craft and smelt goals.
type CraftController interface {
	GetAction(preconditions []string, t goal.Type, target string) (env.Action, bool)
	Reset()
}

// ActionSpace supplies the identity action equip actions are derived from.
type ActionSpace interface {
	NoOp() env.Action
}

// #endregion
