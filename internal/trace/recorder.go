package trace

import (
	"log"

	"github.com/danielpatrickdp/horizon/go-controller/internal/goal"
)

// #region types
// Kind names the goal transition an entry records.
type Kind string

const (
	KindStart   Kind = "start"
	KindAdvance Kind = "advance"
	KindReplan  Kind = "replan"
	KindSuccess Kind = "success"
)

// Entry is one transition record. Timestep is the document key, not a field.
type Entry struct {
	Timestep int            `json:"-"`
	Kind     Kind           `json:"kind"`
	Plan     []goal.Subgoal `json:"curr_plan"`
	Goal     goal.Subgoal   `json:"curr_goal"`
	Dialogue []string       `json:"curr_dialogue"`
	Result   *bool          `json:"result,omitempty"`
}

// Sink receives the trace after every mutation. latest is the entry just
// appended; all is the full trace including it.
type Sink interface {
	Flush(latest Entry, all []Entry) error
}
// #endregion types

// #region recorder
// Recorder is the append-only transition log of one episode attempt.
type Recorder struct {
	entries []Entry
	sinks   []Sink
}

// NewRecorder creates an empty recorder that flushes to sinks.
func NewRecorder(sinks ...Sink) *Recorder {
	return &Recorder{sinks: sinks}
}

// Record appends a transition at timestep t with a snapshot of q and the
// dialogue so far, then flushes every sink. Success entries carry result=true.
// Sink errors are logged and never returned.
func (r *Recorder) Record(t int, kind Kind, q goal.Queue, dialogue []string) Entry {
	e := Entry{
		Timestep: t,
		Kind:     kind,
		Plan:     q.Goals(),
		Dialogue: append([]string(nil), dialogue...),
	}
	if cur, err := q.Current(); err == nil {
		e.Goal = cur
	}
	if kind == KindSuccess {
		ok := true
		e.Result = &ok
	}
	r.entries = append(r.entries, e)

	for _, s := range r.sinks {
		if err := s.Flush(e, r.entries); err != nil {
			log.Printf("[TRACE] sink flush at t=%d failed: %v", t, err)
		}
	}
	return e
}

// Entries returns a copy of the recorded entries in order.
func (r *Recorder) Entries() []Entry {
	return append([]Entry(nil), r.entries...)
}

// Count returns how many entries of kind have been recorded.
func (r *Recorder) Count(kind Kind) int {
	n := 0
	for _, e := range r.entries {
		if e.Kind == kind {
			n++
		}
	}
	return n
}
// #endregion recorder
