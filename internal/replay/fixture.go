package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/danielpatrickdp/horizon/go-controller/internal/goal"
	"github.com/danielpatrickdp/horizon/go-controller/internal/inventory"
	"github.com/danielpatrickdp/horizon/go-controller/internal/logging"
	"github.com/danielpatrickdp/horizon/go-controller/internal/monitor"
	"github.com/danielpatrickdp/horizon/go-controller/internal/state"
	"github.com/danielpatrickdp/horizon/go-controller/internal/trace"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description   string              `json:"description"`
	Task          FixtureTask         `json:"task"`
	Thresholds    *monitor.Thresholds `json:"thresholds,omitempty"`
	Plan          []goal.Subgoal      `json:"plan"`
	Replans       [][]goal.Subgoal    `json:"replans"`
	Steps         []FixtureStep       `json:"steps"`
	Expected      []FixtureTransition `json:"expected_transitions"`
	ExpectedFinal monitor.Phase       `json:"expected_final"`
}

// FixtureTask names the task the steps were recorded under.
type FixtureTask struct {
	Name   string `json:"name"`
	Object string `json:"object"`
}

// FixtureStep is one recorded step's inventory.
type FixtureStep struct {
	Step      int                `json:"step"`
	Goal      string             `json:"goal,omitempty"`
	Inventory inventory.Snapshot `json:"inventory"`
}

// FixtureTransition is an expected goal transition.
type FixtureTransition struct {
	Step int        `json:"step"`
	Kind trace.Kind `json:"kind"`
	Goal string     `json:"goal"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("fixture %s: %w", path, err)
	}
	return &f, nil
}

// Validate checks that steps are numbered 1..N in order.
func (f *Fixture) Validate() error {
	for i, s := range f.Steps {
		if s.Step != i+1 {
			return fmt.Errorf("step %d at position %d, want %d", s.Step, i, i+1)
		}
	}
	return nil
}

// ToReplayConfig converts the fixture's task and thresholds to a ReplayConfig.
// Missing thresholds fall back to the stock budgets.
func (f *Fixture) ToReplayConfig() ReplayConfig {
	c := DefaultReplayConfig()
	if f.Thresholds != nil {
		c.Thresholds = *f.Thresholds
	}
	c.Target = f.Task.Object
	return c
}

// ToSteps converts the fixture steps to replay steps.
func (f *Fixture) ToSteps() []Step {
	out := make([]Step, len(f.Steps))
	for i, s := range f.Steps {
		out[i] = Step{Step: s.Step, Inventory: s.Inventory}
	}
	return out
}

// Run replays the fixture and returns the per-step results and transitions.
func (f *Fixture) Run() ([]ReplayResult, []trace.Entry) {
	rec := trace.NewRecorder()
	results := Replay(f.Plan, f.Replans, f.ToSteps(), f.ToReplayConfig(), rec)
	return results, rec.Entries()
}

// #endregion fixture-loader

// #region fixture-check

// Check compares replayed transitions and final phase with the expectations
// and returns one line per mismatch.
func (f *Fixture) Check(results []ReplayResult, entries []trace.Entry) []string {
	var diffs []string
	if len(entries) != len(f.Expected) {
		diffs = append(diffs, fmt.Sprintf("expected %d transitions, got %d", len(f.Expected), len(entries)))
	}
	for i, want := range f.Expected {
		if i >= len(entries) {
			break
		}
		got := entries[i]
		if got.Timestep != want.Step || got.Kind != want.Kind || got.Goal.Name != want.Goal {
			diffs = append(diffs, fmt.Sprintf("transition %d: expected %s@%d goal=%s, got %s@%d goal=%s",
				i, want.Kind, want.Step, want.Goal, got.Kind, got.Timestep, got.Goal.Name))
		}
	}
	if f.ExpectedFinal != "" {
		if final := Summarize(results).Final; final != f.ExpectedFinal {
			diffs = append(diffs, fmt.Sprintf("expected final %s, got %s", f.ExpectedFinal, final))
		}
	}
	return diffs
}

// #endregion fixture-check

// #region fixture-build

// BuildFixture assembles a fixture from a recorded episode: its per-step
// inventories and its transition log. The start entry's plan seeds the
// fixture and every replan entry's plan becomes the next scripted replan.
func BuildFixture(rec state.EpisodeRecord, object string, steps []state.StepRecord, entries []trace.Entry, th monitor.Thresholds) Fixture {
	f := Fixture{
		Description: fmt.Sprintf("exported from episode %s (%s attempt %d)", rec.EpisodeID, rec.Task, rec.Attempt),
		Task:        FixtureTask{Name: rec.Task, Object: object},
		Thresholds:  &th,
	}
	for _, s := range steps {
		f.Steps = append(f.Steps, FixtureStep{Step: s.Step, Goal: s.GoalName, Inventory: s.Inventory})
	}
	for _, e := range entries {
		switch e.Kind {
		case trace.KindStart:
			f.Plan = e.Plan
		case trace.KindReplan:
			f.Replans = append(f.Replans, e.Plan)
		}
		f.Expected = append(f.Expected, FixtureTransition{Step: e.Timestep, Kind: e.Kind, Goal: e.Goal.Name})
	}

	switch rec.Outcome {
	case "success":
		f.ExpectedFinal = monitor.PhaseSuccess
	case "aborted":
		f.ExpectedFinal = monitor.PhaseAborted
	default:
		f.ExpectedFinal = monitor.PhaseRunning
	}
	return f
}

// #endregion fixture-build

// #region fixture-store

// FromStore builds a fixture from an episode recorded in store. object is the
// task's final item, which the episode row does not carry.
func FromStore(store *state.Store, episodeID, object string, th monitor.Thresholds) (Fixture, error) {
	ep, err := store.GetEpisode(episodeID)
	if err != nil {
		return Fixture{}, err
	}
	steps, err := store.ListSteps(episodeID)
	if err != nil {
		return Fixture{}, err
	}
	rows, err := logging.ListTransitions(store.DB(), episodeID)
	if err != nil {
		return Fixture{}, err
	}
	if len(rows) == 0 {
		return Fixture{}, fmt.Errorf("episode %s has no transitions", episodeID)
	}
	entries := make([]trace.Entry, 0, len(rows))
	for _, row := range rows {
		e, err := row.ToTraceEntry()
		if err != nil {
			return Fixture{}, fmt.Errorf("transition at t=%d: %w", row.Timestep, err)
		}
		entries = append(entries, e)
	}
	return BuildFixture(ep, object, steps, entries, th), nil
}

// #endregion fixture-store
