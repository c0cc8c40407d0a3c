package goal

// #region imports
import (
	"errors"
	"fmt"

	"github.com/danielpatrickdp/horizon/go-controller/internal/inventory"
)

// #endregion

// #region errors
var (
	// ErrPlanExhausted is returned when advancing would leave the queue empty.
	ErrPlanExhausted = errors.New("plan exhausted")
	// ErrEmptyQueue is returned when reading the head of a queue with no goals.
	ErrEmptyQueue = errors.New("empty goal queue")
)

// #endregion

// #region type

// Type is the closed set of subgoal kinds.
type Type string

const (
	Mine  Type = "mine"
	Craft Type = "craft"
	Smelt Type = "smelt"
)

// Valid reports whether t is one of Mine, Craft or Smelt.
func (t Type) Valid() bool {
	switch t {
	case Mine, Craft, Smelt:
		return true
	}
	return false
}

// #endregion

// #region subgoal

// Subgoal is one checkable unit of a plan.
type Subgoal struct {
	Name         string                 `json:"name" yaml:"name"`
	Type         Type                   `json:"type" yaml:"type"`
	Object       inventory.Requirements `json:"object" yaml:"object"`
	Precondition inventory.Requirements `json:"precondition" yaml:"precondition"`
	Ranking      int                    `json:"ranking" yaml:"ranking"`
}

// Target returns the first object key in sorted order, the item this goal produces.
func (g Subgoal) Target() string {
	keys := g.Object.Keys()
	if len(keys) == 0 {
		return ""
	}
	return keys[0]
}

// String renders the goal for log lines.
func (g Subgoal) String() string {
	return fmt.Sprintf("%s(%s %v pre=%v)", g.Name, g.Type, map[string]int(g.Object), map[string]int(g.Precondition))
}

func (g Subgoal) clone() Subgoal {
	g.Object = g.Object.Clone()
	g.Precondition = g.Precondition.Clone()
	return g
}

// FallbackGoal returns a fresh copy of the goal used when planning yields nothing.
func FallbackGoal() Subgoal {
	return Subgoal{
		Name:         "mine_log",
		Type:         Mine,
		Object:       inventory.Requirements{"log": 1},
		Precondition: inventory.Requirements{},
		Ranking:      1,
	}
}

// #endregion
