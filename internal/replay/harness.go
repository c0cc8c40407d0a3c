package replay

import (
	"fmt"
	"log"

	"github.com/danielpatrickdp/horizon/go-controller/internal/goal"
	"github.com/danielpatrickdp/horizon/go-controller/internal/inventory"
	"github.com/danielpatrickdp/horizon/go-controller/internal/monitor"
	"github.com/danielpatrickdp/horizon/go-controller/internal/trace"
)

// #region types
// Step is the inventory observed after one recorded loop step.
type Step struct {
	Step      int
	Inventory inventory.Snapshot
}

// ReplayConfig holds the monitor budgets and task target for a replay run.
type ReplayConfig struct {
	Thresholds monitor.Thresholds
	Target     string // task's final item
}

// DefaultReplayConfig returns the stock monitor budgets with no target.
func DefaultReplayConfig() ReplayConfig {
	return ReplayConfig{Thresholds: monitor.DefaultThresholds()}
}

// ReplayResult captures the monitor's handling of one recorded step.
type ReplayResult struct {
	Step    int
	Goal    goal.Subgoal // goal the step was evaluated against
	GoalEps int
	Verdict monitor.Verdict
	Phase   monitor.Phase // phase after the verdict was applied
	Reason  string

	ReplanRounds int
}

// ReplaySummary provides aggregate stats from a replay run.
type ReplaySummary struct {
	TotalSteps   int
	Advances     int
	Replans      int
	ReplanRounds int
	Final        monitor.Phase // running when the steps ran out first
	Reason       string
}

// #endregion types

// #region replay
// Replay feeds recorded inventories through the monitor the way the live
// driver does: tick, evaluate, then advance or replan. plan seeds the queue
// and replans[i] is the plan returned by the i-th replan; once they run out a
// replan yields the fallback goal. Transitions are written to rec. Operates
// entirely in-memory and stops at the first terminal phase.
func Replay(plan []goal.Subgoal, replans [][]goal.Subgoal, steps []Step, config ReplayConfig, rec *trace.Recorder) []ReplayResult {
	m := monitor.NewMonitor(config.Thresholds)
	q := goal.NewQueue(plan)
	var st monitor.EpisodeState
	nextPlan := 0

	rec.Record(0, trace.KindStart, q, nil)
	results := make([]ReplayResult, 0, len(steps))

	for _, s := range steps {
		g, err := q.Current()
		if err != nil {
			break
		}
		st = st.Tick()
		v := m.Evaluate(st, g, config.Target, s.Inventory)
		r := ReplayResult{Step: s.Step, Goal: g, GoalEps: st.GoalEps, Verdict: v, Phase: v.Phase, Reason: v.Reason}

		switch v.Phase {
		case monitor.PhaseSuccess:
			rec.Record(st.Step, trace.KindSuccess, q, nil)

		case monitor.PhaseAdvance:
			nst, nq, err := m.Advance(st, q)
			if err != nil {
				r.Phase = monitor.PhaseAborted
				r.Reason = err.Error()
				break
			}
			st, q = nst, nq
			rec.Record(st.Step, trace.KindAdvance, q, nil)

		case monitor.PhaseReplan:
			var next []goal.Subgoal
			if nextPlan < len(replans) {
				next = replans[nextPlan]
			}
			nextPlan++
			var phase monitor.Phase
			st, q, phase = m.Replan(st, q, next)
			rec.Record(st.Step, trace.KindReplan, q, nil)
			if phase == monitor.PhaseAborted {
				r.Phase = monitor.PhaseAborted
				r.Reason = fmt.Sprintf("replan rounds %d exceed budget %d", st.ReplanRounds, config.Thresholds.MaxReplanRounds)
			}
		}

		r.ReplanRounds = st.ReplanRounds
		results = append(results, r)
		if r.Phase.Terminal() {
			break
		}
	}

	log.Printf("[REPLAY] replayed %d/%d steps, %d transitions", len(results), len(steps), len(rec.Entries()))
	return results
}

// #endregion replay

// #region summarize
// Summarize computes aggregate stats from replay results. An advance that
// exhausted the plan is not counted; a replan that exceeded the budget is,
// since its transition was recorded.
func Summarize(results []ReplayResult) ReplaySummary {
	s := ReplaySummary{TotalSteps: len(results), Final: monitor.PhaseRunning, Reason: "steps exhausted"}
	for _, r := range results {
		switch {
		case r.Phase == monitor.PhaseAdvance:
			s.Advances++
		case r.Verdict.Phase == monitor.PhaseReplan:
			s.Replans++
		}
		s.ReplanRounds = r.ReplanRounds
	}
	if n := len(results); n > 0 && results[n-1].Phase.Terminal() {
		s.Final = results[n-1].Phase
		s.Reason = results[n-1].Reason
	}
	return s
}

// #endregion summarize
