package ingestion

import (
	"sync"
	"time"

	"github.com/poiesic/vocald/core"
)

// EventType identifies what happened during a run.
type EventType int

const (
	// EventScanStarted is sent when a batch run starts scanning the folder.
	EventScanStarted EventType = iota
	// EventUpToDate is sent when a scan finds nothing new.
	EventUpToDate
	// EventFileStarted is sent before a file is analysed.
	EventFileStarted
	// EventStep is sent for each analysis step of the current file.
	EventStep
	// EventFileDone is sent when a file was analysed successfully.
	EventFileDone
	// EventFileFailed is sent when a file's analysis failed.
	EventFileFailed
	// EventFileSkipped is sent when a file was already analysed under the same content.
	EventFileSkipped
	// EventCancelled is sent when a run stops early because it was cancelled.
	EventCancelled
	// EventFinished is the last event of every run.
	EventFinished
)

func (t EventType) String() string {
	switch t {
	case EventScanStarted:
		return "scan-started"
	case EventUpToDate:
		return "up-to-date"
	case EventFileStarted:
		return "file-started"
	case EventStep:
		return "step"
	case EventFileDone:
		return "file-done"
	case EventFileFailed:
		return "file-failed"
	case EventFileSkipped:
		return "file-skipped"
	case EventCancelled:
		return "cancelled"
	case EventFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Event reports progress of a run. Index is 0-based; Percent never decreases
// within a run and reaches 100 only with EventFinished.
type Event struct {
	Type        EventType
	RunID       string
	Filename    string
	Index       int
	Total       int
	Percent     int
	Step        string
	RecordingID core.ID
	Speakers    []core.MatchDecision
	Err         error
}

// Summary is the outcome of a finished run.
type Summary struct {
	RunID     string
	Total     int
	Succeeded int
	Failed    int
	Skipped   int
	Cancelled bool
	Started   time.Time
	Finished  time.Time
}

// Processed returns how many files were handled, whatever the outcome.
func (s Summary) Processed() int {
	return s.Succeeded + s.Failed + s.Skipped
}

// Elapsed returns the run duration.
func (s Summary) Elapsed() time.Duration {
	return s.Finished.Sub(s.Started)
}

// Run is a handle on an analysis run started by a Pipeline.
type Run struct {
	// ID uniquely identifies the run.
	ID string

	events chan Event
	done   chan struct{}

	mu      sync.Mutex
	closed  bool
	dropped int
	summary Summary
	err     error
}

func newRun(id string, buffer int) *Run {
	return &Run{
		ID:     id,
		events: make(chan Event, buffer),
		done:   make(chan struct{}),
	}
}

// Events returns the run's event stream. The channel is closed after
// EventFinished. Events are dropped rather than block the worker when the
// buffer is full.
func (r *Run) Events() <-chan Event {
	return r.events
}

// Wait blocks until the run finishes and returns its summary. The error is
// non-nil only when the run aborted, and then wraps ErrPersistence.
func (r *Run) Wait() (Summary, error) {
	<-r.done
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.summary, r.err
}

// Done is closed when the run finishes.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Dropped returns how many events were discarded because the buffer was full.
func (r *Run) Dropped() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// emit sends ev without blocking.
func (r *Run) emit(ev Event) {
	ev.RunID = r.ID
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	select {
	case r.events <- ev:
	default:
		r.dropped++
	}
}

func (r *Run) complete(summary Summary, err error) {
	r.mu.Lock()
	r.summary = summary
	r.err = err
	r.closed = true
	close(r.events)
	r.mu.Unlock()
	close(r.done)
}
