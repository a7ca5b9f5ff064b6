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

package badger

import (
	"context"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/vocald/core"
	"github.com/poiesic/vocald/storage"
)

// ProcessedFileRepository implements storage.ProcessedFileRepository for BadgerDB.
type ProcessedFileRepository struct {
	backend *Backend
}

var _ storage.ProcessedFileRepository = (*ProcessedFileRepository)(nil)

// NewProcessedFileRepository creates a new ProcessedFileRepository.
func NewProcessedFileRepository(backend *Backend) *ProcessedFileRepository {
	return &ProcessedFileRepository{
		backend: backend,
	}
}

// SaveProcessedFile persists a processed-file record.
func (r *ProcessedFileRepository) SaveProcessedFile(ctx context.Context, file *core.ProcessedFile) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeProcessedFileKey(file.Filename)
		value := storage.MarshalProcessedFile(file)
		if err := tx.Set(key, value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// LoadProcessedFiles reads every processed-file record.
func (r *ProcessedFileRepository) LoadProcessedFiles(ctx context.Context) ([]*core.ProcessedFile, error) {
	var files []*core.ProcessedFile
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return iteratePrefix(tx, []byte(processedFilePrefix), false, func(item *badger.Item) error {
			return item.Value(func(val []byte) error {
				file, err := storage.UnmarshalProcessedFile(val)
				if err != nil {
					return err
				}
				files = append(files, file)
				return nil
			})
		})
	}, false)
	return files, err
}

// ClearProcessedFiles removes every processed-file record.
func (r *ProcessedFileRepository) ClearProcessedFiles(ctx context.Context) error {
	return r.backend.DropPrefix(processedFilePrefix)
}
