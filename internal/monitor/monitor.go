package monitor

import (
	"fmt"
	"log"

	"github.com/danielpatrickdp/horizon/go-controller/internal/goal"
	"github.com/danielpatrickdp/horizon/go-controller/internal/inventory"
)

// #region monitor
// Monitor decides, once per step, whether the episode keeps running, moves to the
// next goal, replans, or ends. It holds no episode state; callers pass it in and
// receive the updated copy.
type Monitor struct {
	thresholds Thresholds
}

// NewMonitor creates a monitor with the given thresholds.
func NewMonitor(thresholds Thresholds) *Monitor {
	return &Monitor{thresholds: thresholds}
}

// Thresholds returns the active budgets.
func (m *Monitor) Thresholds() Thresholds {
	return m.thresholds
}

// #endregion monitor

// #region evaluate
// Evaluate applies the transition rules in priority order: task success, goal
// advance, replan, running. target is the task's final item.
func (m *Monitor) Evaluate(st EpisodeState, g goal.Subgoal, target string, inv inventory.Snapshot) Verdict {
	// 1. Task complete
	if target != "" && inventory.Contains(inv, target) {
		return Verdict{Phase: PhaseSuccess, Reason: fmt.Sprintf("inventory contains %s", target)}
	}

	// 2. Goal satisfied past the debounce window
	if inventory.Holds(inv, g.Object) && st.GoalEps > m.thresholds.AdvanceDebounce {
		return Verdict{Phase: PhaseAdvance, Reason: fmt.Sprintf("goal %s satisfied after %d steps", g.Name, st.GoalEps)}
	}

	// 3. Stalled or broken goal
	switch g.Type {
	case goal.Mine:
		if !inventory.Holds(inv, g.Precondition) {
			return Verdict{Phase: PhaseReplan, Reason: fmt.Sprintf("mine goal %s lost precondition", g.Name)}
		}
	case goal.Craft:
		if st.GoalEps > m.thresholds.CraftPatience {
			return Verdict{Phase: PhaseReplan, Reason: fmt.Sprintf("craft goal %s exceeded %d steps", g.Name, m.thresholds.CraftPatience)}
		}
	case goal.Smelt:
		if st.GoalEps > m.thresholds.SmeltPatience {
			return Verdict{Phase: PhaseReplan, Reason: fmt.Sprintf("smelt goal %s exceeded %d steps", g.Name, m.thresholds.SmeltPatience)}
		}
	}

	return Verdict{Phase: PhaseRunning}
}

// #endregion evaluate

// #region transitions
// Advance pops the current goal and resets goal_eps.
// The queue's ErrPlanExhausted is returned unchanged when no goal would remain.
func (m *Monitor) Advance(st EpisodeState, q goal.Queue) (EpisodeState, goal.Queue, error) {
	next, err := q.Advance()
	if err != nil {
		return st, q, err
	}
	st.GoalEps = 0
	return st, next, nil
}

// Replan replaces the queue with plan, resets goal_eps and counts the round.
// It returns PhaseAborted once the round count exceeds MaxReplanRounds.
func (m *Monitor) Replan(st EpisodeState, q goal.Queue, plan []goal.Subgoal) (EpisodeState, goal.Queue, Phase) {
	next := q.Replace(plan)
	st.GoalEps = 0
	st.ReplanRounds++
	if st.ReplanRounds > m.thresholds.MaxReplanRounds {
		log.Printf("[MONITOR] replan rounds %d exceed budget %d", st.ReplanRounds, m.thresholds.MaxReplanRounds)
		return st, next, PhaseAborted
	}
	return st, next, PhaseRunning
}

// #endregion transitions
