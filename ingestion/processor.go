// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/poiesic/vocald/core"
	"github.com/poiesic/vocald/storage"
)

// outcome is the result of processing one file.
type outcome int

const (
	outcomeDone outcome = iota
	outcomeFailed
	outcomeSkipped
)

// fileResult carries what the worker reports for one file.
type fileResult struct {
	outcome     outcome
	recordingID core.ID
	decisions   []core.MatchDecision
	analysisErr error
}

// processor ingests a single file. Any returned error is a persistence
// failure; analysis failures are recorded on the recording instead.
type processor struct {
	recordings storage.RecordingRepository
	registry   Registry
	analyser   Analyser
	logger     *slog.Logger
}

func newProcessor(recordings storage.RecordingRepository, registry Registry, analyser Analyser, logger *slog.Logger) (*processor, error) {
	if recordings == nil {
		return nil, ErrRecordingRepositoryRequired
	}
	if registry == nil {
		return nil, ErrRegistryRequired
	}
	if analyser == nil {
		return nil, ErrAnalyserRequired
	}
	return &processor{
		recordings: recordings,
		registry:   registry,
		analyser:   analyser,
		logger:     logger.With("component", "processor"),
	}, nil
}

// process ingests file. ctx must not be cancellable: once started a file is
// always finished. With resume set, recordings left behind by an
// interrupted run are reused; without it the file always gets a fresh
// recording and a full analysis.
func (p *processor) process(ctx context.Context, file core.FileInfo, onStep func(string), resume bool) (fileResult, error) {
	key := p.contentKey(file)

	var (
		id       core.ID
		existing *core.Recording
		err      error
	)
	if resume {
		id, existing, err = p.recover(ctx, file.Filename, key)
		if err != nil {
			return fileResult{}, err
		}
	}
	if existing != nil {
		p.logger.Info("file already analysed, marking processed",
			"file", file.Filename, "recording", existing.Id, "status", existing.Status)
		if err := p.markProcessed(ctx, file); err != nil {
			return fileResult{}, err
		}
		return fileResult{outcome: outcomeSkipped, recordingID: existing.Id}, nil
	}

	if id == 0 {
		entry := &core.RecordingEntry{
			Filename:   file.Filename,
			Filepath:   file.Filepath,
			CallDate:   file.EstimatedCallTime,
			ContentKey: key,
		}
		if file.Call != nil {
			entry.PhoneNumber = file.Call.PhoneNumber
			entry.CallDuration = file.Call.Duration
		}
		id, err = p.recordings.CreateRecordingEntry(ctx, entry)
		if err != nil {
			return fileResult{}, fmt.Errorf("%w: create recording for %s: %w", ErrPersistence, file.Filename, err)
		}
	}

	results, analysisErr := p.analyse(ctx, file, onStep)
	var decisions []core.MatchDecision
	if analysisErr == nil {
		decisions, err = p.recordings.UpdateRecordingAfterAnalysis(ctx, id, results)
		if errors.Is(err, core.ErrInvalidSpeakerResult) || errors.Is(err, core.ErrInvalidEmbedding) {
			analysisErr = err
		} else if err != nil {
			return fileResult{}, fmt.Errorf("%w: update recording %d: %w", ErrPersistence, id, err)
		}
	}

	if analysisErr != nil {
		p.logger.Warn("analysis failed", "file", file.Filename, "recording", id, "err", analysisErr)
		if err := p.recordings.MarkRecordingFailed(ctx, id, analysisErr.Error()); err != nil {
			return fileResult{}, fmt.Errorf("%w: mark recording %d failed: %w", ErrPersistence, id, err)
		}
		if err := p.markProcessed(ctx, file); err != nil {
			return fileResult{}, err
		}
		return fileResult{outcome: outcomeFailed, recordingID: id, analysisErr: analysisErr}, nil
	}

	if err := p.markProcessed(ctx, file); err != nil {
		return fileResult{}, err
	}
	p.logger.Debug("file analysed", "file", file.Filename, "recording", id, "speakers", len(decisions))
	return fileResult{outcome: outcomeDone, recordingID: id, decisions: decisions}, nil
}

// analyse runs the analyser, turning a panic into an analysis failure so
// one bad file cannot stall the batch.
func (p *processor) analyse(ctx context.Context, file core.FileInfo, onStep func(string)) (results []core.SpeakerResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("analyser panic", "file", file.Filename, "panic", r)
			results = nil
			err = fmt.Errorf("%w: %v", ErrAnalyserPanic, r)
		}
	}()
	return p.analyser.Analyse(ctx, file.Filepath, onStep)
}

// contentKey hashes the file. Zero means the file could not be read, in
// which case analysis will fail and be recorded.
func (p *processor) contentKey(file core.FileInfo) uint64 {
	f, err := os.Open(file.Filepath)
	if err != nil {
		p.logger.Warn("unable to hash file", "file", file.Filename, "err", err)
		return 0
	}
	defer f.Close()

	key, err := core.ContentKey(f)
	if err != nil {
		p.logger.Warn("unable to hash file", "file", file.Filename, "err", err)
		return 0
	}
	return key
}

// recover inspects recordings left for filename by an earlier run that
// stopped before marking the file processed. It returns a finalized
// recording with the same content when one exists, or the ID of a Pending
// one to reuse.
func (p *processor) recover(ctx context.Context, filename string, key uint64) (core.ID, *core.Recording, error) {
	if key == 0 {
		return 0, nil, nil
	}
	prior, err := p.recordings.FindRecordingsByFilename(ctx, filename)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: find recordings for %s: %w", ErrPersistence, filename, err)
	}

	var pending core.ID
	for _, r := range prior {
		if r.ContentKey != key {
			continue
		}
		if r.Status != core.StatusPending {
			return 0, r, nil
		}
		pending = r.Id
	}
	if pending != 0 {
		p.logger.Info("resuming pending recording", "file", filename, "recording", pending)
	}
	return pending, nil, nil
}

func (p *processor) markProcessed(ctx context.Context, file core.FileInfo) error {
	if err := p.registry.MarkProcessed(ctx, file.Filename, file.ModifiedMs); err != nil {
		return fmt.Errorf("%w: mark %s processed: %w", ErrPersistence, file.Filename, err)
	}
	return nil
}
