package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/poiesic/vocald/ingestion"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// ProgressTracker prints single-line progress for a run.
type ProgressTracker struct {
	writer    io.Writer
	total     int
	current   int
	startTime time.Time
	started   bool
	mu        sync.Mutex
}

// NewProgressTracker creates a new progress tracker.
func NewProgressTracker(writer io.Writer) *ProgressTracker {
	return &ProgressTracker{writer: writer}
}

// Start begins tracking a run of total files.
func (p *ProgressTracker) Start(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.startTime = time.Now()
	p.started = true
	p.total = total
	p.current = 0
	p.report()
}

// Increment increases the current progress by the specified amount.
func (p *ProgressTracker) Increment(delta int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	p.current += delta
	if p.current > p.total {
		p.current = p.total
	}
	p.report()
}

// Finish prints the final progress line.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	p.report()
	fmt.Fprintln(p.writer)
	p.started = false
}

// Elapsed returns the time elapsed since Start was called.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return 0
	}

	return time.Since(p.startTime)
}

// report prints the current progress. Must be called with lock held.
func (p *ProgressTracker) report() {
	elapsed := time.Since(p.startTime)
	rate := 0.0
	if elapsed > 0 {
		rate = float64(p.current) / elapsed.Seconds()
	}

	percentage := 0.0
	if p.total > 0 {
		percentage = float64(p.current) / float64(p.total) * 100.0
	}

	fmt.Fprintf(p.writer, "\rProgress: %d/%d (%.1f%%) - %.2f files/s",
		p.current, p.total, percentage, rate)
}

// progressView renders run events.
type progressView interface {
	start(total int)
	fileDone()
	stop()
}

type plainView struct {
	tracker *ProgressTracker
}

func (v *plainView) start(total int) { v.tracker.Start(total) }
func (v *plainView) fileDone()       { v.tracker.Increment(1) }
func (v *plainView) stop()           { v.tracker.Finish() }

// barView draws an mpb progress bar.
type barView struct {
	out      io.Writer
	progress *mpb.Progress
	bar      *mpb.Bar
	last     time.Time
}

func (v *barView) start(total int) {
	v.progress = mpb.New(mpb.WithOutput(v.out), mpb.WithWidth(64))
	v.bar = v.progress.AddBar(int64(total),
		mpb.PrependDecorators(
			decor.Name("Analysing: "),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.AppendDecorators(
			decor.Percentage(),
			decor.EwmaETA(decor.ET_STYLE_GO, 30),
		),
	)
	v.last = time.Now()
}

func (v *barView) fileDone() {
	if v.bar == nil {
		return
	}
	now := time.Now()
	v.bar.EwmaIncrement(now.Sub(v.last))
	v.last = now
}

func (v *barView) stop() {
	if v.progress == nil {
		return
	}
	if !v.bar.Completed() {
		// Cancelled or aborted runs leave the bar short; keep it on screen.
		v.bar.Abort(false)
	}
	v.progress.Wait()
}

// followRun renders a run's events until it finishes and returns its outcome.
func followRun(out io.Writer, run *ingestion.Run, plain bool) (ingestion.Summary, error) {
	var view progressView = &barView{out: out}
	if plain {
		view = &plainView{tracker: NewProgressTracker(out)}
	}

	var failures []ingestion.Event
	started := false
	for ev := range run.Events() {
		switch ev.Type {
		case ingestion.EventUpToDate:
			fmt.Fprintln(out, okStyle.Render("Everything is up to date."))
		case ingestion.EventFileStarted:
			if !started {
				view.start(ev.Total)
				started = true
			}
		case ingestion.EventFileDone, ingestion.EventFileSkipped:
			view.fileDone()
		case ingestion.EventFileFailed:
			view.fileDone()
			failures = append(failures, ev)
		}
	}
	if started {
		view.stop()
	}

	summary, err := run.Wait()
	for _, ev := range failures {
		fmt.Fprintf(out, "%s %s: %v\n", errorStyle.Render("failed"), ev.Filename, ev.Err)
	}
	return summary, err
}
