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

// Package registry tracks which recordings have already been ingested.
//
// The Registry keeps every processed filename in memory for fast lookups
// during scans and writes each new entry through to a
// storage.ProcessedFileRepository before it becomes visible, so a crash can
// never leave a file marked in memory but not on disk.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/poiesic/vocald/core"
	"github.com/poiesic/vocald/storage"
)

// ErrRepositoryRequired is returned when Load is called without a repository.
var ErrRepositoryRequired = errors.New("processed file repository required")

// Registry is the set of filenames that have been fully ingested.
type Registry struct {
	repo   storage.ProcessedFileRepository
	logger *slog.Logger

	mu    sync.RWMutex
	files map[string]int64
}

// Load builds a Registry from every record in repo. When the records cannot
// be read the registry starts empty and a warning is logged.
func Load(ctx context.Context, repo storage.ProcessedFileRepository, logger *slog.Logger) (*Registry, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := &Registry{
		repo:   repo,
		logger: logger.With("component", "registry"),
		files:  make(map[string]int64),
	}

	files, err := repo.LoadProcessedFiles(ctx)
	if err != nil {
		r.logger.Warn("processed file records unreadable, starting empty", "err", err)
		return r, nil
	}
	for _, f := range files {
		r.files[f.Filename] = f.ModifiedMs
	}
	r.logger.Debug("loaded processed files", "count", len(r.files))
	return r, nil
}

// IsProcessed reports whether filename has been ingested.
func (r *Registry) IsProcessed(filename string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.files[filename]
	return ok
}

// ModifiedMs returns the modification time recorded for filename.
func (r *Registry) ModifiedMs(filename string) (int64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ms, ok := r.files[filename]
	return ms, ok
}

// MarkProcessed records filename as ingested. The record is durable before
// the in-memory set is updated. Marking an already processed file is a no-op.
func (r *Registry) MarkProcessed(ctx context.Context, filename string, modifiedMs int64) error {
	if filename == "" {
		return core.ErrEmptyFilename
	}
	if r.IsProcessed(filename) {
		return nil
	}

	if err := r.repo.SaveProcessedFile(ctx, &core.ProcessedFile{Filename: filename, ModifiedMs: modifiedMs}); err != nil {
		return fmt.Errorf("failed to save processed file %q: %w", filename, err)
	}

	r.mu.Lock()
	r.files[filename] = modifiedMs
	r.mu.Unlock()
	return nil
}

// Clear removes every processed-file record, durably and in memory.
func (r *Registry) Clear(ctx context.Context) error {
	if err := r.repo.ClearProcessedFiles(ctx); err != nil {
		return fmt.Errorf("failed to clear processed files: %w", err)
	}
	r.Reset()
	return nil
}

// Reset drops the in-memory set without touching storage. Use it after the
// underlying records were wiped by other means.
func (r *Registry) Reset() {
	r.mu.Lock()
	r.files = make(map[string]int64)
	r.mu.Unlock()
}

// Len returns the number of processed files.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.files)
}
