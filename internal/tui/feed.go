package tui

import (
	"sync"

	"github.com/danielpatrickdp/horizon/go-controller/internal/episode"
	"github.com/danielpatrickdp/horizon/go-controller/internal/eval"
)

// Update is one message from the evaluation to the view. Exactly one field is set.
type Update struct {
	Step    *episode.Event
	Attempt *eval.AttemptResult
	Summary *eval.Summary
}

// Feed carries evaluation progress to the model. It is an episode.Observer and
// safe for use from several goroutines.
type Feed struct {
	mu      sync.Mutex
	closed  bool
	updates chan Update
}

// NewFeed creates a feed buffering up to size updates.
func NewFeed(size int) *Feed {
	return &Feed{updates: make(chan Update, size)}
}

// OnStep forwards a step event. Steps are dropped while the buffer is full so
// a slow terminal never stalls the episode.
func (f *Feed) OnStep(ev episode.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	select {
	case f.updates <- Update{Step: &ev}:
	default:
	}
}

// Attempt forwards a finished attempt.
func (f *Feed) Attempt(r eval.AttemptResult) {
	f.send(Update{Attempt: &r})
}

// Finish forwards the final summary and closes the feed.
func (f *Feed) Finish(s eval.Summary) {
	f.send(Update{Summary: &s})
	f.Close()
}

// Close ends the feed. Later sends are ignored.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.updates)
	}
}

// Updates returns the receive side of the feed.
func (f *Feed) Updates() <-chan Update {
	return f.updates
}

func (f *Feed) send(u Update) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	// never block a worker on a stopped view; drop the oldest update to make room
	for {
		select {
		case f.updates <- u:
			return
		default:
		}
		select {
		case <-f.updates:
		default:
		}
	}
}
