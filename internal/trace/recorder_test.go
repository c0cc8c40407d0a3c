package trace

import (
	"errors"
	"os"
	"testing"

	"github.com/danielpatrickdp/horizon/go-controller/internal/goal"
	"github.com/danielpatrickdp/horizon/go-controller/internal/inventory"
)

type memorySink struct {
	flushes [][]Entry
	err     error
}

func (m *memorySink) Flush(_ Entry, all []Entry) error {
	m.flushes = append(m.flushes, append([]Entry(nil), all...))
	return m.err
}

func planQueue() goal.Queue {
	return goal.NewQueue([]goal.Subgoal{
		goal.FallbackGoal(),
		{Name: "craft_planks", Type: goal.Craft, Object: inventory.Requirements{"planks": 4}},
	})
}

func TestRecord_AppendsAndFlushes(t *testing.T) {
	sink := &memorySink{}
	r := NewRecorder(sink)
	q := planQueue()

	r.Record(0, KindStart, q, []string{"plan: mine_log, craft_planks"})
	next, _ := q.Advance()
	e := r.Record(12, KindAdvance, next, []string{"plan", "done"})

	if len(r.Entries()) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(r.Entries()))
	}
	if len(sink.flushes) != 2 || len(sink.flushes[1]) != 2 {
		t.Fatalf("expected a full flush per mutation, got %v", sink.flushes)
	}
	if e.Goal.Name != "craft_planks" || len(e.Plan) != 1 {
		t.Errorf("unexpected entry %+v", e)
	}
	if e.Result != nil {
		t.Error("advance entries carry no result")
	}
}

func TestRecord_SuccessCarriesResult(t *testing.T) {
	r := NewRecorder()
	e := r.Record(40, KindSuccess, planQueue(), nil)
	if e.Result == nil || !*e.Result {
		t.Fatal("success entry must carry result=true")
	}
	if r.Count(KindSuccess) != 1 || r.Count(KindReplan) != 0 {
		t.Errorf("unexpected counts")
	}
}

func TestRecord_SnapshotsDialogue(t *testing.T) {
	r := NewRecorder()
	dialogue := []string{"a"}
	r.Record(0, KindStart, planQueue(), dialogue)
	dialogue[0] = "changed"
	if got := r.Entries()[0].Dialogue[0]; got != "a" {
		t.Errorf("dialogue not copied, got %q", got)
	}
}

func TestRecord_SinkErrorIsNotFatal(t *testing.T) {
	bad := &memorySink{err: errors.New("disk full")}
	good := &memorySink{}
	r := NewRecorder(bad, good)
	r.Record(0, KindStart, planQueue(), nil)
	if len(good.flushes) != 1 {
		t.Fatal("a failing sink must not stop later sinks")
	}
}

func TestJSONFileSink_RewritesDocument(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewJSONFileSink(dir, "obtain_planks", "")
	if err != nil {
		t.Fatal(err)
	}
	r := NewRecorder(sink)
	q := planQueue()
	r.Record(0, KindStart, q, []string{"hello"})
	r.Record(7, KindReplan, q.Replace(nil), []string{"hello", "failed"})

	if _, err := os.Stat(sink.Path()); err != nil {
		t.Fatalf("trace file missing: %v", err)
	}
	doc, err := LoadDocument(sink.Path())
	if err != nil {
		t.Fatal(err)
	}
	if len(doc) != 2 {
		t.Fatalf("expected 2 timesteps, got %d", len(doc))
	}
	replan := doc[7]
	if replan.Kind != KindReplan || replan.Timestep != 7 {
		t.Errorf("unexpected entry %+v", replan)
	}
	if replan.Goal.Name != "mine_log" || len(replan.Dialogue) != 2 {
		t.Errorf("unexpected replan snapshot %+v", replan)
	}
}
