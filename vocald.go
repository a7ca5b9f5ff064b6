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

// Package vocald wires the voice identification engine together: storage,
// the processed-file registry, the folder scanner, the diarizer and the
// ingestion pipeline.
package vocald

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/vocald/ai"
	"github.com/poiesic/vocald/ai/spectral"
	"github.com/poiesic/vocald/audio"
	"github.com/poiesic/vocald/calllog"
	"github.com/poiesic/vocald/config"
	"github.com/poiesic/vocald/diarize"
	"github.com/poiesic/vocald/ingestion"
	"github.com/poiesic/vocald/registry"
	"github.com/poiesic/vocald/scanner"
	"github.com/poiesic/vocald/storage"
	"github.com/poiesic/vocald/storage/badger"
	"github.com/poiesic/vocald/voice"
	"github.com/poiesic/vocald/watch"
)

// ErrNoRecordingsFolder is returned when an operation needs the recordings
// folder and none is configured.
var ErrNoRecordingsFolder = errors.New("recordings folder not configured")

// Engine owns every component and their lifecycle.
type Engine struct {
	cfg        *config.Config
	backend    *badger.Backend
	recordings *badger.RecordingRepository
	registry   *registry.Registry
	scanner    *scanner.Scanner
	callLog    *calllog.SQLiteLog
	pipeline   *ingestion.Pipeline
	logger     *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	logger    *slog.Logger
	extractor ai.EmbeddingExtractor
	inMemory  bool
	pipeline  []ingestion.Option
}

// WithLogger sets the logger shared by every component.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(o *engineOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithExtractor replaces the built-in spectral embedding extractor.
func WithExtractor(extractor ai.EmbeddingExtractor) EngineOption {
	return func(o *engineOptions) {
		o.extractor = extractor
	}
}

// WithInMemory keeps all data in memory. Intended for tests.
func WithInMemory() EngineOption {
	return func(o *engineOptions) {
		o.inMemory = true
	}
}

// WithPipelineOptions passes extra options to the ingestion pipeline.
func WithPipelineOptions(opts ...ingestion.Option) EngineOption {
	return func(o *engineOptions) {
		o.pipeline = append(o.pipeline, opts...)
	}
}

// Open builds an Engine from cfg. A nil cfg uses config.DefaultConfig.
func Open(ctx context.Context, cfg *config.Config, opts ...EngineOption) (*Engine, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	options := &engineOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}
	logger := options.logger

	dbPath := ""
	if !options.inMemory {
		path, err := cfg.ResolveDatabasePath()
		if err != nil {
			return nil, err
		}
		dbPath = path
	}
	backend, err := badger.OpenBackendWithLogger(dbPath, options.inMemory, logger)
	if err != nil {
		return nil, err
	}

	e := &Engine{cfg: cfg, backend: backend, logger: logger.With("component", "engine")}
	if err := e.build(ctx, options); err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}

func (e *Engine) build(ctx context.Context, options *engineOptions) error {
	cfg, logger := e.cfg, options.logger

	matcher, err := voice.NewMatcher(voice.WithThreshold(cfg.Voice.MatchThreshold))
	if err != nil {
		return err
	}
	e.recordings, err = badger.NewRecordingRepository(e.backend, matcher)
	if err != nil {
		return err
	}

	e.registry, err = registry.Load(ctx, badger.NewProcessedFileRepository(e.backend), logger)
	if err != nil {
		return err
	}

	scanOpts := []scanner.Option{
		scanner.WithExtensions(cfg.Scan.Extensions...),
		scanner.WithQuiescence(cfg.Scan.Quiescence),
		scanner.WithTolerance(cfg.Scan.CallTolerance),
		scanner.WithLogger(logger),
	}
	if cfg.CallLogPath != "" {
		calls, err := calllog.Open(cfg.CallLogPath, calllog.WithLogger(logger))
		if err != nil {
			// Recordings are still dated by modification time.
			e.logger.Warn("call log unavailable", "path", cfg.CallLogPath, "err", err)
		} else {
			e.callLog = calls
			scanOpts = append(scanOpts, scanner.WithCallLog(calls))
		}
	}
	e.scanner, err = scanner.New(scanOpts...)
	if err != nil {
		return err
	}

	extractor := options.extractor
	if extractor == nil {
		extractor, err = spectral.NewExtractor(ai.NewConfig(
			ai.WithDimension(cfg.Extractor.Dimension),
			ai.WithWindow(cfg.Extractor.Window, cfg.Extractor.Hop),
			ai.WithMinRMS(cfg.Extractor.MinRMS),
		))
		if err != nil {
			return err
		}
	}
	decoder, err := audio.NewDecoder(audio.WithFFmpeg(cfg.FFmpegPath))
	if err != nil {
		return err
	}
	diarizer, err := diarize.New(extractor,
		diarize.WithDecoder(decoder),
		diarize.WithClusterThreshold(cfg.Diarize.ClusterThreshold),
		diarize.WithMaxSpeakers(cfg.Diarize.MaxSpeakers),
		diarize.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	pipelineOpts := append([]ingestion.Option{ingestion.WithLogger(logger)}, options.pipeline...)
	e.pipeline, err = ingestion.NewPipeline(e.recordings, e.registry, e.scanner, diarizer, pipelineOpts...)
	return err
}

// Close releases the pipeline, the call log and storage.
func (e *Engine) Close() error {
	if e.pipeline != nil {
		e.pipeline.Release()
	}
	if e.callLog != nil {
		if err := e.callLog.Close(); err != nil {
			e.logger.Error("error closing call log", "err", err)
		}
	}
	if e.recordings != nil {
		if err := e.recordings.Close(); err != nil {
			e.logger.Error("error closing recording repository", "err", err)
			return err
		}
	}
	if err := e.backend.Close(); err != nil {
		e.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

// Config returns the configuration the engine was opened with.
func (e *Engine) Config() *config.Config {
	return e.cfg
}

// Recordings returns the recording store.
func (e *Engine) Recordings() storage.RecordingRepository {
	return e.recordings
}

// Profiles returns the voice profile store.
func (e *Engine) Profiles() storage.VoiceProfileRepository {
	return e.recordings
}

// Registry returns the processed-file registry.
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

// Scanner returns the folder scanner.
func (e *Engine) Scanner() *scanner.Scanner {
	return e.scanner
}

// Pipeline returns the ingestion pipeline.
func (e *Engine) Pipeline() *ingestion.Pipeline {
	return e.pipeline
}

// Scan starts a batch run over the recordings folder.
func (e *Engine) Scan(ctx context.Context) (*ingestion.Run, error) {
	if e.cfg.RecordingsFolder == "" {
		return nil, ErrNoRecordingsFolder
	}
	return e.pipeline.RunBatch(ctx, e.cfg.RecordingsFolder)
}

// Analyse starts a run for a single file anywhere on disk.
func (e *Engine) Analyse(ctx context.Context, path string) (*ingestion.Run, error) {
	return e.pipeline.AnalyseSingleFile(ctx, path)
}

// Cancel stops the active run before its next file.
func (e *Engine) Cancel() bool {
	return e.pipeline.Cancel()
}

// Onboard counts the audio files already in the recordings folder and
// marks them all as seen so only later recordings are analysed. It returns
// the number of files found and the number marked.
func (e *Engine) Onboard(ctx context.Context) (found, marked int, err error) {
	if e.cfg.RecordingsFolder == "" {
		return 0, 0, ErrNoRecordingsFolder
	}
	err = e.pipeline.Exclusive(ctx, func(ctx context.Context) error {
		found = e.scanner.CountAllAudioFiles(e.cfg.RecordingsFolder)
		var markErr error
		marked, markErr = e.scanner.MarkAllExistingAsSeen(ctx, e.cfg.RecordingsFolder, e.registry.MarkProcessed)
		return markErr
	})
	return found, marked, err
}

// ClearAll wipes every recording, voice profile and processed-file record.
// It is rejected while a run is active.
func (e *Engine) ClearAll(ctx context.Context) error {
	return e.pipeline.Exclusive(ctx, func(ctx context.Context) error {
		if err := e.recordings.ClearAll(ctx); err != nil {
			return err
		}
		e.registry.Reset()
		e.logger.Info("all data cleared")
		return nil
	})
}

// Watch scans whenever audio files appear in the recordings folder until
// ctx is done. onRun receives every started run and must drain its events;
// when nil, runs are logged.
func (e *Engine) Watch(ctx context.Context, onRun func(*ingestion.Run)) error {
	if e.cfg.RecordingsFolder == "" {
		return ErrNoRecordingsFolder
	}
	if onRun == nil {
		onRun = e.logRun
	}

	w, err := watch.New(e.cfg.RecordingsFolder,
		func(ctx context.Context) error {
			run, err := e.Scan(ctx)
			if errors.Is(err, ingestion.ErrAlreadyAnalysing) {
				return fmt.Errorf("%w: %w", watch.ErrBusy, err)
			}
			if err != nil {
				return err
			}
			go onRun(run)
			return nil
		},
		watch.WithDebounce(e.cfg.Watch.Debounce),
		watch.WithSettle(e.cfg.Watch.Debounce+e.cfg.Scan.Quiescence),
		watch.WithFilter(e.scanner.IsAudioFile),
		watch.WithInitialRun(true),
		watch.WithLogger(e.logger),
	)
	if err != nil {
		return err
	}
	return w.Run(ctx)
}

func (e *Engine) logRun(run *ingestion.Run) {
	for ev := range run.Events() {
		switch ev.Type {
		case ingestion.EventFileDone:
			e.logger.Info("recording analysed", "file", ev.Filename, "speakers", len(ev.Speakers))
		case ingestion.EventFileFailed:
			e.logger.Warn("recording failed", "file", ev.Filename, "err", ev.Err)
		}
	}
	if _, err := run.Wait(); err != nil {
		e.logger.Error("scan aborted", "run", run.ID, "err", err)
	}
}
