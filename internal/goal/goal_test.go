package goal

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/horizon/go-controller/internal/inventory"
)

func twoGoalPlan() []Subgoal {
	return []Subgoal{
		{Name: "mine_log", Type: Mine, Object: inventory.Requirements{"log": 3}, Ranking: 1},
		{Name: "craft_planks", Type: Craft, Object: inventory.Requirements{"planks": 4}, Precondition: inventory.Requirements{"log": 1}, Ranking: 2},
	}
}

func TestNewQueue_EmptyPlanSeedsFallback(t *testing.T) {
	for _, plan := range [][]Subgoal{nil, {}} {
		q := NewQueue(plan)
		if q.Len() != 1 {
			t.Fatalf("Len = %d, want 1", q.Len())
		}
		cur, err := q.Current()
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(cur, FallbackGoal()) {
			t.Errorf("Current = %+v, want fallback", cur)
		}
	}
}

func TestReplace_EmptyPlanSeedsFallback(t *testing.T) {
	q := NewQueue(twoGoalPlan()).Replace(nil)
	if q.Len() != 1 {
		t.Fatalf("Len = %d, want 1", q.Len())
	}
	cur, _ := q.Current()
	if cur.Name != "mine_log" || cur.Object["log"] != 1 {
		t.Errorf("unexpected fallback %+v", cur)
	}
}

func TestAdvance(t *testing.T) {
	q := NewQueue(twoGoalPlan())
	next, err := q.Advance()
	if err != nil {
		t.Fatal(err)
	}
	cur, _ := next.Current()
	if cur.Name != "craft_planks" {
		t.Errorf("head after advance = %s", cur.Name)
	}
	if next.Version() == q.Version() {
		t.Error("version must change on advance")
	}
	// Original queue is unchanged.
	if head, _ := q.Current(); head.Name != "mine_log" {
		t.Errorf("advance mutated receiver, head = %s", head.Name)
	}

	_, err = next.Advance()
	if !errors.Is(err, ErrPlanExhausted) {
		t.Errorf("expected ErrPlanExhausted, got %v", err)
	}
}

func TestReplaceBumpsVersionEvenForEqualPlan(t *testing.T) {
	q := NewQueue(nil)
	r := q.Replace(nil)
	if r.Version() == q.Version() {
		t.Error("replace with a value-equal plan must still change the version")
	}
}

func TestCurrent_ZeroQueue(t *testing.T) {
	var q Queue
	if _, err := q.Current(); !errors.Is(err, ErrEmptyQueue) {
		t.Errorf("expected ErrEmptyQueue, got %v", err)
	}
}

func TestQueueDeepCopiesPlan(t *testing.T) {
	plan := twoGoalPlan()
	q := NewQueue(plan)
	plan[0].Object["log"] = 99

	cur, _ := q.Current()
	if cur.Object["log"] != 3 {
		t.Errorf("queue shares maps with the plan: log = %d", cur.Object["log"])
	}
	cur.Object["log"] = 42
	again, _ := q.Current()
	if again.Object["log"] != 3 {
		t.Error("Current leaks internal maps")
	}
}

func TestTypeValid(t *testing.T) {
	for _, ty := range []Type{Mine, Craft, Smelt} {
		if !ty.Valid() {
			t.Errorf("%s should be valid", ty)
		}
	}
	if Type("build").Valid() {
		t.Error("build should be invalid")
	}
}

func TestTarget(t *testing.T) {
	g := Subgoal{Object: inventory.Requirements{"stick": 4, "planks": 1}}
	if got := g.Target(); got != "planks" {
		t.Errorf("Target = %q, want planks", got)
	}
	if got := (Subgoal{}).Target(); got != "" {
		t.Errorf("Target of empty goal = %q", got)
	}
}

func TestSubgoalDecoding(t *testing.T) {
	raw := `{"name":"smelt_iron","type":"smelt","object":{"iron_ingot":1},"precondition":{"furnace":1,"iron_ore":1},"ranking":5}`
	var fromJSON Subgoal
	if err := json.Unmarshal([]byte(raw), &fromJSON); err != nil {
		t.Fatal(err)
	}
	var fromYAML Subgoal
	if err := yaml.Unmarshal([]byte(raw), &fromYAML); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(fromJSON, fromYAML) {
		t.Errorf("json %+v != yaml %+v", fromJSON, fromYAML)
	}
	if fromJSON.Type != Smelt || fromJSON.Precondition["furnace"] != 1 || fromJSON.Ranking != 5 {
		t.Errorf("unexpected decode %+v", fromJSON)
	}
}
