package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/danielpatrickdp/horizon/go-controller/internal/episode"
	"github.com/danielpatrickdp/horizon/go-controller/internal/eval"
	"github.com/danielpatrickdp/horizon/go-controller/internal/goal"
	"github.com/danielpatrickdp/horizon/go-controller/internal/inventory"
	"github.com/danielpatrickdp/horizon/go-controller/internal/monitor"
)

func step(n int, name string) episode.Event {
	return episode.Event{
		Step:      n,
		GoalEps:   n,
		Goal:      goal.Subgoal{Name: name},
		Verdict:   monitor.Verdict{Phase: monitor.PhaseRunning},
		Inventory: inventory.Snapshot{{Name: "log", Quantity: 2}},
	}
}

func TestFeed_DropsStepsWhenFull(t *testing.T) {
	f := NewFeed(1)
	f.OnStep(step(1, "mine_log"))
	f.OnStep(step(2, "mine_log"))

	u := <-f.Updates()
	if u.Step == nil || u.Step.Step != 1 {
		t.Fatalf("expected the first step to be kept, got %+v", u)
	}
	select {
	case u := <-f.Updates():
		t.Errorf("expected the second step to be dropped, got %+v", u)
	default:
	}
}

func TestFeed_AttemptMakesRoom(t *testing.T) {
	f := NewFeed(1)
	f.OnStep(step(1, "mine_log"))
	f.Attempt(eval.AttemptResult{Iteration: 0, Success: true})

	u := <-f.Updates()
	if u.Attempt == nil {
		t.Fatalf("expected the attempt to replace the buffered step, got %+v", u)
	}
}

func TestFeed_FinishCloses(t *testing.T) {
	f := NewFeed(4)
	f.Finish(eval.Summary{Attempts: 1})
	f.OnStep(step(1, "mine_log"))
	f.Close()

	u, ok := <-f.Updates()
	if !ok || u.Summary == nil {
		t.Fatalf("expected the summary before close, got %+v ok=%v", u, ok)
	}
	if _, ok := <-f.Updates(); ok {
		t.Error("expected the feed to be closed")
	}
}

func TestModel_StepAndAttempts(t *testing.T) {
	m := New("obtain_log", 4, 100, NewFeed(1))

	next, cmd := m.Update(updateMsg{Step: ptr(step(7, "mine_log"))})
	m = next.(Model)
	if cmd == nil {
		t.Error("expected the model to keep listening")
	}
	view := m.View()
	if !strings.Contains(view, "mine_log") || !strings.Contains(view, "7/100") {
		t.Errorf("step not rendered:\n%s", view)
	}

	next, _ = m.Update(updateMsg{Attempt: &eval.AttemptResult{Iteration: 0, Success: true, Length: 7}})
	m = next.(Model)
	next, _ = m.Update(updateMsg{Attempt: &eval.AttemptResult{Iteration: 1, Err: errors.New("bridge down")}})
	m = next.(Model)

	view = m.View()
	if !strings.Contains(view, "2/4") || !strings.Contains(view, "#1") || !strings.Contains(view, "error") {
		t.Errorf("attempts not rendered:\n%s", view)
	}
	if m.successes != 1 || m.step != nil {
		t.Errorf("unexpected model state successes=%d step=%v", m.successes, m.step)
	}
}

func TestModel_SummaryQuits(t *testing.T) {
	m := New("obtain_log", 1, 100, NewFeed(1))
	next, cmd := m.Update(updateMsg{Summary: &eval.Summary{Attempts: 1, SuccessRate: 1, AvgEpisodeLength: 12}})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
	if !strings.Contains(next.(Model).View(), "average episode length: 12") {
		t.Errorf("summary not rendered:\n%s", next.(Model).View())
	}
}

func ptr[T any](v T) *T { return &v }
