package orchestrator

// #region imports
import (
	"context"
	"fmt"
	"log"

	"github.com/danielpatrickdp/horizon/go-controller/internal/env"
	"github.com/danielpatrickdp/horizon/go-controller/internal/goal"
	"github.com/danielpatrickdp/horizon/go-controller/internal/inventory"
	"github.com/danielpatrickdp/horizon/go-controller/internal/window"
)

// #endregion

// #region dispatcher-struct

// Dispatcher routes the current goal to its control strategy and assembles the
// inputs that strategy needs.
type Dispatcher struct {
	policy     Policy
	craft      CraftController
	space      ActionSpace
	labels     map[string]string    // item → natural-language goal label
	embeddings map[string][]float32 // goal label → embedding
}

// #endregion

// #region constructor

// NewDispatcher creates a dispatcher. labels and embeddings are read-only and
// shared; callers must not mutate them afterwards.
func NewDispatcher(policy Policy, craft CraftController, space ActionSpace, labels map[string]string, embeddings map[string][]float32) *Dispatcher {
	return &Dispatcher{
		policy:     policy,
		craft:      craft,
		space:      space,
		labels:     labels,
		embeddings: embeddings,
	}
}

// #endregion

// #region dispatch

// Dispatch computes this step's action for g.
// states is the current observation window, inv the inventory before the step.
func (d *Dispatcher) Dispatch(ctx context.Context, g goal.Subgoal, states window.Slice, inv inventory.Snapshot) (Decision, error) {
	sid, err := SelectStrategy(g.Type)
	if err != nil {
		log.Printf("[DISPATCH] goal=%s: %v", g.Name, err)
		return Decision{}, err
	}

	var dec Decision
	switch g.Type {
	case goal.Craft, goal.Smelt:
		action, done := d.craft.GetAction(g.Precondition.Keys(), g.Type, g.Target())
		dec = Decision{Strategy: sid, Action: action, DoneHint: done}

	case goal.Mine:
		target := g.Target()
		label, ok := d.labels[target]
		if !ok {
			return Decision{}, fmt.Errorf("%w: no label for item %q", ErrUnknownGoalLabel, target)
		}
		emb, ok := d.embeddings[label]
		if !ok {
			return Decision{}, fmt.Errorf("%w: no embedding for %q", ErrUnknownGoalLabel, label)
		}
		goals := make([][]float32, states.Len())
		for i := range goals {
			goals[i] = emb
		}
		ranking, action, err := d.policy.GetAction(ctx, label, goals, states)
		if err != nil {
			return Decision{}, fmt.Errorf("policy get action: %w", err)
		}
		dec = Decision{Strategy: sid, Action: action, DoneHint: true, Ranking: ranking, Label: label}

	default:
		return Decision{}, fmt.Errorf("%w: %q", ErrUnsupportedGoalType, g.Type)
	}

	dec.Equip = d.equipActions(g, inv)
	return dec, nil
}

// ResetGoal drops per-goal controller state. The driver calls it whenever the
// current goal changes.
func (d *Dispatcher) ResetGoal() {
	d.craft.Reset()
}

// #endregion

// #region equip

// equipActions selects each tool named in g's precondition that is not already
// the active item. Each returned action is stepped on its own before the main one.
func (d *Dispatcher) equipActions(g goal.Subgoal, inv inventory.Snapshot) []env.Action {
	var out []env.Action
	held := inventory.Held(inv)
	for _, name := range g.Precondition.Keys() {
		if !inventory.IsTool(name) || held == name {
			continue
		}
		slot, ok := inventory.FindSlot(inv, name)
		if !ok {
			continue
		}
		log.Printf("[DISPATCH] equip %s from slot %d", name, slot.Index)
		out = append(out, env.Equip(d.space.NoOp(), slot.Index))
	}
	return out
}

// #endregion
