package monitor

import (
	"errors"
	"testing"

	"github.com/danielpatrickdp/horizon/go-controller/internal/goal"
	"github.com/danielpatrickdp/horizon/go-controller/internal/inventory"
)

func craftGoal() goal.Subgoal {
	return goal.Subgoal{
		Name:         "craft_planks",
		Type:         goal.Craft,
		Object:       inventory.Requirements{"planks": 4},
		Precondition: inventory.Requirements{"log": 1},
		Ranking:      2,
	}
}

func TestEvaluate_SuccessTakesPriority(t *testing.T) {
	m := NewMonitor(DefaultThresholds())
	inv := inventory.Snapshot{{Name: "planks", Quantity: 4, Index: 1}, {Name: "crafting_table", Quantity: 1, Index: 2}}

	v := m.Evaluate(EpisodeState{GoalEps: 500}, craftGoal(), "crafting_table", inv)
	if v.Phase != PhaseSuccess {
		t.Errorf("expected success, got %s (%s)", v.Phase, v.Reason)
	}
}

func TestEvaluate_AdvanceDebounce(t *testing.T) {
	m := NewMonitor(DefaultThresholds())
	inv := inventory.Snapshot{{Name: "planks", Quantity: 4, Index: 1}}

	for _, eps := range []int{0, 1} {
		if v := m.Evaluate(EpisodeState{GoalEps: eps}, craftGoal(), "stick", inv); v.Phase == PhaseAdvance {
			t.Errorf("advanced at goal_eps=%d", eps)
		}
	}
	if v := m.Evaluate(EpisodeState{GoalEps: 2}, craftGoal(), "stick", inv); v.Phase != PhaseAdvance {
		t.Errorf("expected advance at goal_eps=2, got %s", v.Phase)
	}
}

func TestEvaluate_CraftPatienceBoundary(t *testing.T) {
	m := NewMonitor(DefaultThresholds())
	var inv inventory.Snapshot

	if v := m.Evaluate(EpisodeState{GoalEps: 150}, craftGoal(), "stick", inv); v.Phase != PhaseRunning {
		t.Errorf("craft at 150: got %s, want running", v.Phase)
	}
	if v := m.Evaluate(EpisodeState{GoalEps: 151}, craftGoal(), "stick", inv); v.Phase != PhaseReplan {
		t.Errorf("craft at 151: got %s, want replan", v.Phase)
	}
}

func TestEvaluate_SmeltPatienceBoundary(t *testing.T) {
	m := NewMonitor(DefaultThresholds())
	g := goal.Subgoal{Name: "smelt_iron_ingot", Type: goal.Smelt, Object: inventory.Requirements{"iron_ingot": 1}}

	if v := m.Evaluate(EpisodeState{GoalEps: 200}, g, "iron_pickaxe", nil); v.Phase != PhaseRunning {
		t.Errorf("smelt at 200: got %s, want running", v.Phase)
	}
	if v := m.Evaluate(EpisodeState{GoalEps: 201}, g, "iron_pickaxe", nil); v.Phase != PhaseReplan {
		t.Errorf("smelt at 201: got %s, want replan", v.Phase)
	}
}

func TestEvaluate_MinePreconditionLostReplansImmediately(t *testing.T) {
	m := NewMonitor(DefaultThresholds())
	g := goal.Subgoal{
		Name:         "mine_cobblestone",
		Type:         goal.Mine,
		Object:       inventory.Requirements{"cobblestone": 3},
		Precondition: inventory.Requirements{"wooden_pickaxe": 1},
	}

	for _, eps := range []int{0, 1, 7} {
		v := m.Evaluate(EpisodeState{GoalEps: eps}, g, "stone_pickaxe", inventory.Snapshot{{Name: "log", Quantity: 1}})
		if v.Phase != PhaseReplan {
			t.Errorf("goal_eps=%d: got %s, want replan", eps, v.Phase)
		}
	}

	held := inventory.Snapshot{{Name: "wooden_pickaxe", Quantity: 1}}
	if v := m.Evaluate(EpisodeState{GoalEps: 1000}, g, "stone_pickaxe", held); v.Phase != PhaseRunning {
		t.Errorf("mine goal with precondition held should keep running, got %s", v.Phase)
	}
}

func TestEvaluate_UnknownTypeRuns(t *testing.T) {
	m := NewMonitor(DefaultThresholds())
	g := goal.Subgoal{Name: "build_house", Type: goal.Type("build"), Object: inventory.Requirements{"house": 1}}
	if v := m.Evaluate(EpisodeState{GoalEps: 10000}, g, "house_key", nil); v.Phase != PhaseRunning {
		t.Errorf("got %s, want running", v.Phase)
	}
}

func TestTick(t *testing.T) {
	st := EpisodeState{Step: 3, GoalEps: 1, ReplanRounds: 2}.Tick()
	if st.Step != 4 || st.GoalEps != 2 || st.ReplanRounds != 2 {
		t.Errorf("unexpected state after tick: %+v", st)
	}
}

func TestAdvance_ResetsGoalEps(t *testing.T) {
	m := NewMonitor(DefaultThresholds())
	q := goal.NewQueue([]goal.Subgoal{goal.FallbackGoal(), craftGoal()})

	st, next, err := m.Advance(EpisodeState{Step: 9, GoalEps: 5}, q)
	if err != nil {
		t.Fatal(err)
	}
	if st.GoalEps != 0 || st.Step != 9 {
		t.Errorf("unexpected state %+v", st)
	}
	if cur, _ := next.Current(); cur.Name != "craft_planks" {
		t.Errorf("head = %s", cur.Name)
	}

	_, _, err = m.Advance(st, next)
	if !errors.Is(err, goal.ErrPlanExhausted) {
		t.Errorf("expected ErrPlanExhausted, got %v", err)
	}
}

func TestReplan_CountsRoundsAndAbortsPastBudget(t *testing.T) {
	m := NewMonitor(DefaultThresholds())
	st := EpisodeState{}
	q := goal.NewQueue([]goal.Subgoal{craftGoal()})

	for round := 1; round <= 13; round++ {
		st.GoalEps = 151
		prevVersion := q.Version()

		var phase Phase
		st, q, phase = m.Replan(st, q, []goal.Subgoal{craftGoal()})

		if st.ReplanRounds != round {
			t.Fatalf("round %d: replan_rounds = %d", round, st.ReplanRounds)
		}
		if st.GoalEps != 0 {
			t.Fatalf("round %d: goal_eps not reset", round)
		}
		if q.Version() == prevVersion {
			t.Fatalf("round %d: queue version unchanged", round)
		}
		wantAbort := round > 12
		if (phase == PhaseAborted) != wantAbort {
			t.Fatalf("round %d: phase = %s", round, phase)
		}
	}
}

func TestReplan_EmptyPlanFallsBack(t *testing.T) {
	m := NewMonitor(DefaultThresholds())
	_, q, _ := m.Replan(EpisodeState{}, goal.NewQueue([]goal.Subgoal{craftGoal()}), nil)
	if cur, _ := q.Current(); cur.Name != "mine_log" {
		t.Errorf("expected fallback goal, got %s", cur.Name)
	}
}
