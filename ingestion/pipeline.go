package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/vocald/core"
	"github.com/poiesic/vocald/storage"
)

// DefaultEventBuffer is the default capacity of a run's event channel.
const DefaultEventBuffer = 64

// Registry tracks which filenames have been ingested.
type Registry interface {
	IsProcessed(filename string) bool
	MarkProcessed(ctx context.Context, filename string, modifiedMs int64) error
}

// Scanner lists files that still need ingesting.
type Scanner interface {
	Scan(ctx context.Context, folder string, isProcessed func(string) bool) []core.FileInfo
}

// Analyser detects the distinct voices in a recording.
type Analyser interface {
	Analyse(ctx context.Context, path string, onStep func(string)) ([]core.SpeakerResult, error)
}

// Pipeline ingests recordings on a single background worker.
type Pipeline struct {
	scanner     Scanner
	registry    Registry
	proc        *processor
	pool        *ants.Pool
	eventBuffer int
	now         func() time.Time
	logger      *slog.Logger

	state atomic.Int32

	mu       sync.Mutex
	cancel   context.CancelFunc
	released bool
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithEventBuffer sets the capacity of each run's event channel.
// Default is DefaultEventBuffer.
func WithEventBuffer(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		p.eventBuffer = size
		return nil
	}
}

// WithClock sets the time source used to date manually analysed files.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) error {
		if now != nil {
			p.now = now
		}
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	recordings storage.RecordingRepository,
	registry Registry,
	scanner Scanner,
	analyser Analyser,
	opts ...Option,
) (*Pipeline, error) {
	if recordings == nil {
		return nil, ErrRecordingRepositoryRequired
	}
	if registry == nil {
		return nil, ErrRegistryRequired
	}
	if scanner == nil {
		return nil, ErrScannerRequired
	}
	if analyser == nil {
		return nil, ErrAnalyserRequired
	}

	p := &Pipeline{
		scanner:     scanner,
		registry:    registry,
		eventBuffer: DefaultEventBuffer,
		now:         time.Now,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	proc, err := newProcessor(recordings, registry, analyser, p.logger)
	if err != nil {
		return nil, err
	}
	p.logger = p.logger.With("component", "pipeline")
	p.proc = proc

	// A single non-blocking worker: the state guard rejects overlapping runs
	// before they ever reach the pool.
	pool, err := ants.NewPool(1, ants.WithNonblocking(true))
	if err != nil {
		return nil, err
	}
	p.pool = pool
	return p, nil
}

// State returns the current pipeline state.
func (p *Pipeline) State() State {
	return State(p.state.Load())
}

// IsAnalysing reports whether a run is active.
func (p *Pipeline) IsAnalysing() bool {
	return p.State() != StateIdle
}

// RunBatch scans folder and analyses every new file in call order on the
// background worker. It returns ErrAlreadyAnalysing if a run is active.
// Cancelling ctx stops the run before the next file.
func (p *Pipeline) RunBatch(ctx context.Context, folder string) (*Run, error) {
	runCtx, run, err := p.start(ctx, StateScanning)
	if err != nil {
		return nil, err
	}
	p.logger.Info("batch started", "run", run.ID, "folder", folder)

	err = p.submit(run, func() (Summary, error) {
		run.emit(Event{Type: EventScanStarted})
		files := p.scanner.Scan(runCtx, folder, p.registry.IsProcessed)
		if len(files) == 0 {
			run.emit(Event{Type: EventUpToDate})
			return Summary{}, nil
		}
		p.transition(StateScanning, StateProcessing)
		return p.processFiles(runCtx, run, files, true)
	})
	if err != nil {
		return nil, err
	}
	return run, nil
}

// AnalyseSingleFile analyses one file outside the scanned folder flow. The
// call date is the time of analysis. The file is marked processed under
// its base name like any scanned file.
func (p *Pipeline) AnalyseSingleFile(ctx context.Context, path string) (*Run, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	runCtx, run, err := p.start(ctx, StateProcessing)
	if err != nil {
		return nil, err
	}
	file := core.FileInfo{
		Filename:          filepath.Base(path),
		Filepath:          path,
		ModifiedMs:        info.ModTime().UnixMilli(),
		EstimatedCallTime: p.now(),
	}
	p.logger.Info("single file analysis started", "run", run.ID, "file", file.Filename)

	err = p.submit(run, func() (Summary, error) {
		return p.processFiles(runCtx, run, []core.FileInfo{file}, false)
	})
	if err != nil {
		return nil, err
	}
	return run, nil
}

// Cancel asks the active run to stop before its next file. The file being
// analysed is always finished. Returns false if no run is active.
func (p *Pipeline) Cancel() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel == nil {
		return false
	}
	p.state.Store(int32(StateCancelling))
	p.cancel()
	p.logger.Info("cancellation requested")
	return true
}

// Release stops the worker pool. An active run is cancelled and Release
// waits for it to finish its current file.
func (p *Pipeline) Release() {
	p.mu.Lock()
	p.released = true
	if p.cancel != nil {
		p.cancel()
	}
	p.mu.Unlock()

	if p.pool != nil {
		if err := p.pool.ReleaseTimeout(time.Minute); err != nil {
			p.logger.Warn("worker did not stop in time", "err", err)
		}
	}
}

// Exclusive runs fn on the calling goroutine while holding the pipeline, so
// no run can start until fn returns. It returns ErrAlreadyAnalysing if a run
// is active.
func (p *Pipeline) Exclusive(ctx context.Context, fn func(ctx context.Context) error) error {
	exCtx, err := p.claim(ctx, StateExclusive)
	if err != nil {
		return err
	}
	defer p.idle()
	return fn(exCtx)
}

// start claims the pipeline for a new run.
func (p *Pipeline) start(ctx context.Context, initial State) (context.Context, *Run, error) {
	runCtx, err := p.claim(ctx, initial)
	if err != nil {
		return nil, nil, err
	}
	return runCtx, newRun(uuid.NewString(), p.eventBuffer), nil
}

// claim moves an idle pipeline into state.
func (p *Pipeline) claim(ctx context.Context, state State) (context.Context, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.released {
		return nil, ErrPipelineReleased
	}
	if p.State() != StateIdle {
		return nil, ErrAlreadyAnalysing
	}

	claimCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.state.Store(int32(state))
	return claimCtx, nil
}

// idle releases the pipeline.
func (p *Pipeline) idle() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.state.Store(int32(StateIdle))
}

// transition moves from one state to another unless a cancel intervened.
func (p *Pipeline) transition(from, to State) {
	p.state.CompareAndSwap(int32(from), int32(to))
}

// submit runs work on the worker and completes run with its outcome.
func (p *Pipeline) submit(run *Run, work func() (Summary, error)) error {
	started := time.Now()
	task := func() {
		var (
			summary Summary
			err     error
		)
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%w: worker panic: %v", ErrPersistence, r)
				p.logger.Error("worker panic", "run", run.ID, "panic", r)
			}
			summary.RunID = run.ID
			summary.Started = started
			summary.Finished = time.Now()
			p.finish(run, summary, err)
		}()
		summary, err = work()
	}

	if err := p.pool.Submit(task); err != nil {
		p.idle()
		run.complete(Summary{RunID: run.ID, Started: started, Finished: time.Now()}, err)
		return err
	}
	return nil
}

// finish returns the pipeline to Idle before run waiters are released.
func (p *Pipeline) finish(run *Run, summary Summary, err error) {
	p.idle()

	ev := Event{Type: EventFinished, Total: summary.Total, Percent: 100, Err: err}
	run.emit(ev)
	run.complete(summary, err)

	if err != nil {
		p.logger.Error("run aborted", "run", run.ID, "err", err)
		return
	}
	p.logger.Info("run finished", "run", run.ID,
		"total", summary.Total,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
		"cancelled", summary.Cancelled,
		"elapsed", summary.Elapsed())
}

// processFiles ingests files in order. Cancellation is only observed
// between files; each file runs to completion. resume enables recovery of
// recordings left by an interrupted batch.
func (p *Pipeline) processFiles(ctx context.Context, run *Run, files []core.FileInfo, resume bool) (Summary, error) {
	summary := Summary{Total: len(files)}
	total := len(files)
	fileCtx := context.WithoutCancel(ctx)

	for idx, file := range files {
		if ctx.Err() != nil {
			summary.Cancelled = true
			run.emit(Event{Type: EventCancelled, Index: idx, Total: total, Percent: percent(idx, total)})
			p.logger.Info("run cancelled", "run", run.ID, "remaining", total-idx)
			break
		}

		run.emit(Event{Type: EventFileStarted, Filename: file.Filename, Index: idx, Total: total, Percent: percent(idx, total)})
		onStep := func(step string) {
			run.emit(Event{Type: EventStep, Filename: file.Filename, Index: idx, Total: total, Percent: percent(idx, total), Step: step})
		}

		res, err := p.proc.process(fileCtx, file, onStep, resume)
		if err != nil {
			return summary, err
		}

		ev := Event{Filename: file.Filename, Index: idx, Total: total, Percent: percent(idx+1, total), RecordingID: res.recordingID}
		switch res.outcome {
		case outcomeDone:
			summary.Succeeded++
			ev.Type = EventFileDone
			ev.Speakers = res.decisions
		case outcomeFailed:
			summary.Failed++
			ev.Type = EventFileFailed
			ev.Err = res.analysisErr
		case outcomeSkipped:
			summary.Skipped++
			ev.Type = EventFileSkipped
		}
		run.emit(ev)
	}
	return summary, nil
}

// percent maps progress through a batch onto 0-90; the last 10 percent
// is reserved for finishing the run.
func percent(done, total int) int {
	if total <= 0 {
		return 0
	}
	return done * 90 / total
}
