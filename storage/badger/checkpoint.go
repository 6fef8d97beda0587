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
	"errors"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/evidex/core"
	"github.com/poiesic/evidex/storage"
)

// CheckpointRepository keeps the fingerprint each snapshot import recorded
// for its source file, so unchanged files can be skipped on the next run.
type CheckpointRepository struct {
	backend *Backend
}

var _ storage.CheckpointRepository = (*CheckpointRepository)(nil)

func NewCheckpointRepository(backend *Backend) *CheckpointRepository {
	return &CheckpointRepository{
		backend: backend,
	}
}

func (r *CheckpointRepository) ready(ctx context.Context) error {
	if r.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return ctx.Err()
}

// SaveCheckpoint stamps checkpoint with the current time and stores it,
// replacing the fingerprint previously recorded for the same source.
func (r *CheckpointRepository) SaveCheckpoint(ctx context.Context, checkpoint *core.Checkpoint) error {
	if checkpoint == nil || strings.TrimSpace(checkpoint.Name) == "" {
		return storage.ErrInvalidCheckpoint
	}
	if err := r.ready(ctx); err != nil {
		return err
	}
	checkpoint.UpdatedAt = time.Now().UTC()
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeCheckpointKey(checkpoint.Name), storage.MarshalCheckpoint(checkpoint)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// LoadCheckpoint returns the checkpoint of the named source, or nil if the
// source was never imported.
func (r *CheckpointRepository) LoadCheckpoint(ctx context.Context, name string) (*core.Checkpoint, error) {
	if err := r.ready(ctx); err != nil {
		return nil, err
	}
	var checkpoint *core.Checkpoint
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeCheckpointKey(name))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		checkpoint, err = decodeCheckpoint(item)
		return err
	}, false)
	return checkpoint, err
}

// Checkpoints lists the checkpoints whose names start with prefix, in name order.
func (r *CheckpointRepository) Checkpoints(ctx context.Context, prefix string) ([]*core.Checkpoint, error) {
	if err := r.ready(ctx); err != nil {
		return nil, err
	}
	var out []*core.Checkpoint
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeCheckpointKey(prefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			checkpoint, err := decodeCheckpoint(iter.Item())
			if err != nil {
				return err
			}
			out = append(out, checkpoint)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func decodeCheckpoint(item *badger.Item) (*core.Checkpoint, error) {
	var checkpoint *core.Checkpoint
	err := item.Value(func(val []byte) error {
		var err error
		checkpoint, err = storage.UnmarshalCheckpoint(val)
		return err
	})
	return checkpoint, err
}
