package replay

import (
	"strings"
	"testing"

	"github.com/danielpatrickdp/horizon/go-controller/internal/goal"
	"github.com/danielpatrickdp/horizon/go-controller/internal/inventory"
	"github.com/danielpatrickdp/horizon/go-controller/internal/monitor"
	"github.com/danielpatrickdp/horizon/go-controller/internal/trace"
)

// helper: a mine goal for item with an optional precondition.
func mineGoal(item string, pre inventory.Requirements) goal.Subgoal {
	return goal.Subgoal{Name: "mine_" + item, Type: goal.Mine, Object: inventory.Requirements{item: 1}, Precondition: pre}
}

// helper: n steps all holding inv.
func repeatSteps(n int, inv inventory.Snapshot) []Step {
	out := make([]Step, n)
	for i := range out {
		out[i] = Step{Step: i + 1, Inventory: inv}
	}
	return out
}

func testConfig(target string) ReplayConfig {
	c := DefaultReplayConfig()
	c.Thresholds.CraftPatience = 3
	c.Thresholds.MaxReplanRounds = 1
	c.Target = target
	return c
}

var oneLog = inventory.Snapshot{{Name: "log", Quantity: 1}}

// 1. Target in inventory ends the replay on the first step.
func TestReplay_SuccessStopsEarly(t *testing.T) {
	rec := trace.NewRecorder()
	results := Replay([]goal.Subgoal{mineGoal("log", nil)}, nil, repeatSteps(5, oneLog), testConfig("log"), rec)

	if len(results) != 1 {
		t.Fatalf("expected replay to stop after 1 step, got %d", len(results))
	}
	if results[0].Phase != monitor.PhaseSuccess {
		t.Errorf("expected success, got %s", results[0].Phase)
	}
	if rec.Count(trace.KindSuccess) != 1 {
		t.Errorf("expected one success entry, got %d", rec.Count(trace.KindSuccess))
	}
}

// 2. Advancing past the last goal aborts with the plan exhausted.
func TestReplay_PlanExhausted(t *testing.T) {
	rec := trace.NewRecorder()
	results := Replay([]goal.Subgoal{mineGoal("log", nil)}, nil, repeatSteps(5, oneLog), testConfig("stone_pickaxe"), rec)

	s := Summarize(results)
	if s.Final != monitor.PhaseAborted || s.TotalSteps != 2 {
		t.Fatalf("expected abort at step 2, got %+v", s)
	}
	if !strings.Contains(s.Reason, goal.ErrPlanExhausted.Error()) {
		t.Errorf("expected plan exhausted reason, got %q", s.Reason)
	}
	if rec.Count(trace.KindAdvance) != 0 {
		t.Errorf("no advance entry should be recorded, got %d", rec.Count(trace.KindAdvance))
	}
	if s.Advances != 0 {
		t.Errorf("an advance that exhausts the plan should not be counted, got %d", s.Advances)
	}
}

// 3. Each replan takes the next scripted plan.
func TestReplay_ScriptedReplans(t *testing.T) {
	craft := goal.Subgoal{Name: "craft_planks", Type: goal.Craft, Object: inventory.Requirements{"planks": 4}}
	scripted := mineGoal("stone", nil)
	rec := trace.NewRecorder()

	results := Replay([]goal.Subgoal{craft}, [][]goal.Subgoal{{scripted}}, repeatSteps(6, oneLog), testConfig("iron_ingot"), rec)

	if results[3].Verdict.Phase != monitor.PhaseReplan {
		t.Fatalf("expected replan on step 4 after craft patience 3, got %s", results[3].Verdict.Phase)
	}
	if results[4].Goal.Name != "mine_stone" {
		t.Errorf("expected scripted plan after replan, got %s", results[4].Goal.Name)
	}
	if results[4].GoalEps != 1 {
		t.Errorf("expected goal_eps reset after replan, got %d", results[4].GoalEps)
	}
	s := Summarize(results)
	if s.Replans != 1 || s.ReplanRounds != 1 || s.Final != monitor.PhaseRunning {
		t.Errorf("unexpected summary %+v", s)
	}
}

// 4. Replans beyond the scripted list fall back and count toward the budget.
func TestReplay_ReplanBudget(t *testing.T) {
	pick := mineGoal("cobblestone", inventory.Requirements{"wooden_pickaxe": 1})
	rec := trace.NewRecorder()

	results := Replay([]goal.Subgoal{pick}, [][]goal.Subgoal{{pick}}, repeatSteps(4, oneLog), testConfig("cobblestone"), rec)

	s := Summarize(results)
	if s.Final != monitor.PhaseAborted || s.TotalSteps != 2 || s.ReplanRounds != 2 {
		t.Fatalf("expected abort after 2 replans, got %+v", s)
	}
	entries := rec.Entries()
	if last := entries[len(entries)-1]; last.Kind != trace.KindReplan || last.Goal.Name != goal.FallbackGoal().Name {
		t.Errorf("expected final replan to the fallback goal, got %s %s", last.Kind, last.Goal.Name)
	}
}

// 5. Steps running out leaves the replay running.
func TestSummarize_StepsExhausted(t *testing.T) {
	rec := trace.NewRecorder()
	results := Replay([]goal.Subgoal{mineGoal("diamond", nil)}, nil, repeatSteps(3, nil), testConfig("diamond"), rec)

	s := Summarize(results)
	if s.Final != monitor.PhaseRunning || s.TotalSteps != 3 || s.Reason != "steps exhausted" {
		t.Errorf("unexpected summary %+v", s)
	}
	if len(rec.Entries()) != 1 {
		t.Errorf("expected only the start entry, got %d", len(rec.Entries()))
	}
}
