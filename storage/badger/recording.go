package badger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/vocald/core"
	"github.com/poiesic/vocald/storage"
)

// ErrMatcherRequired is returned when a repository is created without a voice matcher.
var ErrMatcherRequired = errors.New("voice matcher required")

// RecordingRepository implements storage.RecordingRepository and
// storage.VoiceProfileRepository for BadgerDB. Recordings, attributions and
// profiles share one repository so a recording can be finalized in a single
// transaction.
type RecordingRepository struct {
	backend *Backend
	matcher storage.VoiceMatcher
	now     func() time.Time

	// mu guards the sequences, which are swapped out by ClearAll.
	mu       sync.RWMutex
	recSeq   *badger.Sequence
	voiceSeq *badger.Sequence
}

var (
	_ storage.RecordingRepository    = (*RecordingRepository)(nil)
	_ storage.VoiceProfileRepository = (*RecordingRepository)(nil)
)

// NewRecordingRepository creates a new RecordingRepository.
func NewRecordingRepository(backend *Backend, matcher storage.VoiceMatcher) (*RecordingRepository, error) {
	if matcher == nil {
		return nil, ErrMatcherRequired
	}
	r := &RecordingRepository{
		backend: backend,
		matcher: matcher,
		now:     func() time.Time { return time.Now().UTC() },
	}
	if err := r.acquireSequences(); err != nil {
		return nil, err
	}
	return r, nil
}

// Close releases the ID sequences.
func (r *RecordingRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.releaseSequences()
}

func (r *RecordingRepository) acquireSequences() error {
	recSeq, err := r.backend.GetSequence(recordingIDSeq)
	if err != nil {
		return err
	}
	voiceSeq, err := r.backend.GetSequence(voiceProfileIDSeq)
	if err != nil {
		recSeq.Release()
		return err
	}
	r.recSeq = recSeq
	r.voiceSeq = voiceSeq
	return nil
}

func (r *RecordingRepository) releaseSequences() error {
	var errs []error
	if r.recSeq != nil {
		errs = append(errs, r.recSeq.Release())
		r.recSeq = nil
	}
	if r.voiceSeq != nil {
		errs = append(errs, r.voiceSeq.Release())
		r.voiceSeq = nil
	}
	return errors.Join(errs...)
}

// CreateRecordingEntry inserts a Pending recording.
func (r *RecordingRepository) CreateRecordingEntry(ctx context.Context, entry *core.RecordingEntry) (core.ID, error) {
	if err := core.ValidateRecordingEntry(entry); err != nil {
		return 0, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.recSeq == nil {
		return 0, storage.ErrStorageClosed
	}

	var id core.ID
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		next, err := nextID(r.recSeq)
		if err != nil {
			return err
		}
		now := r.now()
		record := &core.Recording{
			Id:           core.ID(next),
			Filename:     entry.Filename,
			Filepath:     entry.Filepath,
			CallDate:     entry.CallDate,
			CallDuration: entry.CallDuration,
			PhoneNumber:  entry.PhoneNumber,
			Status:       core.StatusPending,
			ContentKey:   entry.ContentKey,
			InsertedAt:   now,
			UpdatedAt:    now,
		}

		if err := tx.Set(makeRecordingKey(record.Id), storage.MarshalRecording(record)); err != nil {
			return err
		}

		// Update date index
		dateKey := makeRecordingDateKey(record.CallDate, record.Id)
		if err := tx.Set(dateKey, storage.MarshalID(record.Id)); err != nil {
			return err
		}

		// Update filename index
		fileKey := makeRecordingFileKey(record.Filename, record.Id)
		if err := tx.Set(fileKey, storage.MarshalID(record.Id)); err != nil {
			return err
		}

		id = record.Id
		return tx.Commit()
	}, true)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// UpdateRecordingAfterAnalysis resolves speakers and marks the recording Done in one transaction.
func (r *RecordingRepository) UpdateRecordingAfterAnalysis(ctx context.Context, id core.ID, results []core.SpeakerResult) ([]core.MatchDecision, error) {
	for i := range results {
		if err := core.ValidateSpeakerResult(&results[i], 0); err != nil {
			return nil, fmt.Errorf("speaker %d: %w", i, err)
		}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.voiceSeq == nil {
		return nil, storage.ErrStorageClosed
	}

	var decisions []core.MatchDecision
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		record, err := readRecording(tx, id)
		if err != nil {
			return err
		}
		if record == nil {
			return storage.ErrNotFound
		}
		if record.Status != core.StatusPending {
			return fmt.Errorf("%w: recording %d is %s", storage.ErrNotPending, id, record.Status)
		}

		now := r.now()
		session := r.matcher.Begin(&profileTx{tx: tx, seq: r.voiceSeq}, now)
		decisions = make([]core.MatchDecision, 0, len(results))
		for i, result := range results {
			decision, err := session.Resolve(result.Embedding)
			if err != nil {
				return fmt.Errorf("speaker %d: %w", i, err)
			}
			attr := &core.SpeakerAttribution{
				RecordingId:    id,
				SpeakerIndex:   i,
				Name:           decision.Name,
				Confidence:     decision.Confidence,
				VoiceProfileId: decision.ProfileId,
			}
			if err := writeAttribution(tx, attr); err != nil {
				return err
			}
			decisions = append(decisions, decision)
		}

		record.Status = core.StatusDone
		record.Error = ""
		record.TotalSpeakers = len(results)
		record.UpdatedAt = now
		if err := tx.Set(makeRecordingKey(id), storage.MarshalRecording(record)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return decisions, nil
}

// MarkRecordingFailed marks a Pending recording as Failed.
func (r *RecordingRepository) MarkRecordingFailed(ctx context.Context, id core.ID, errText string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		record, err := readRecording(tx, id)
		if err != nil {
			return err
		}
		if record == nil {
			return storage.ErrNotFound
		}
		if record.Status != core.StatusPending {
			return fmt.Errorf("%w: recording %d is %s", storage.ErrNotPending, id, record.Status)
		}

		record.Status = core.StatusFailed
		record.Error = errText
		record.TotalSpeakers = 0
		record.UpdatedAt = r.now()
		if err := tx.Set(makeRecordingKey(id), storage.MarshalRecording(record)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetRecording retrieves a single recording by ID.
func (r *RecordingRepository) GetRecording(ctx context.Context, id core.ID) (*core.Recording, error) {
	var result *core.Recording
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readRecording(tx, id)
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetAllRecordings returns every recording, most recent call first.
func (r *RecordingRepository) GetAllRecordings(ctx context.Context) ([]*core.Recording, error) {
	return r.SearchRecordings(ctx, "")
}

// SearchRecordings filters recordings by filename or phone number substring.
func (r *RecordingRepository) SearchRecordings(ctx context.Context, query string) ([]*core.Recording, error) {
	needle := strings.ToLower(strings.TrimSpace(query))

	var results []*core.Recording
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		// Use reverse iterator to get most recent calls first
		prefix := []byte(recordingDatePrefix)
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		// Seek past the last possible key with this prefix
		seekKey := append(append([]byte{}, prefix...), 0xFF)
		for iter.Seek(seekKey); iter.Valid(); iter.Next() {
			var recordID core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				recordID, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}

			record, err := readRecording(tx, recordID)
			if err != nil {
				return err
			}
			if record == nil {
				continue
			}
			if needle != "" && !matchesQuery(record, needle) {
				continue
			}
			results = append(results, record)
		}
		return nil
	}, false)

	return results, err
}

func matchesQuery(record *core.Recording, needle string) bool {
	return strings.Contains(strings.ToLower(record.Filename), needle) ||
		strings.Contains(strings.ToLower(record.PhoneNumber), needle)
}

// FindRecordingsByFilename returns recordings created for filename, ordered by ID.
func (r *RecordingRepository) FindRecordingsByFilename(ctx context.Context, filename string) ([]*core.Recording, error) {
	var results []*core.Recording
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return iteratePrefix(tx, makeFilenamePrefix(filename), false, func(item *badger.Item) error {
			var recordID core.ID
			if err := item.Value(func(val []byte) error {
				var err error
				recordID, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}
			record, err := readRecording(tx, recordID)
			if err != nil {
				return err
			}
			if record != nil {
				results = append(results, record)
			}
			return nil
		})
	}, false)
	return results, err
}

// GetRecordingDetail returns a recording with its speaker attributions.
func (r *RecordingRepository) GetRecordingDetail(ctx context.Context, id core.ID) (*core.RecordingDetail, error) {
	var detail *core.RecordingDetail
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		record, err := readRecording(tx, id)
		if err != nil {
			return err
		}
		if record == nil {
			return storage.ErrNotFound
		}
		detail = &core.RecordingDetail{Recording: record}
		return iteratePrefix(tx, makePartialSpeakerKey(id), false, func(item *badger.Item) error {
			return item.Value(func(val []byte) error {
				attr, err := storage.UnmarshalSpeakerAttribution(val)
				if err != nil {
					return err
				}
				detail.Speakers = append(detail.Speakers, attr)
				return nil
			})
		})
	}, false)
	if err != nil {
		return nil, err
	}
	return detail, nil
}

// UpdateSpeakerName renames an attribution and, when linked, its voice profile
// and every other attribution of that profile.
func (r *RecordingRepository) UpdateSpeakerName(ctx context.Context, recordingID core.ID, speakerIndex int, name string) error {
	name, err := core.ValidateSpeakerName(name)
	if err != nil {
		return err
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		attr, err := readAttribution(tx, recordingID, speakerIndex)
		if err != nil {
			return err
		}
		if attr == nil {
			return fmt.Errorf("%w: speaker %d of recording %d", storage.ErrNotFound, speakerIndex, recordingID)
		}

		if attr.VoiceProfileId == 0 {
			attr.Name = name
			if err := writeAttribution(tx, attr); err != nil {
				return err
			}
			return tx.Commit()
		}

		profile, err := readVoiceProfile(tx, attr.VoiceProfileId)
		if err != nil {
			return err
		}
		if profile != nil {
			profile.Name = name
			if err := tx.Set(makeVoiceProfileKey(profile.Id), storage.MarshalVoiceProfile(profile)); err != nil {
				return err
			}
		}

		// Collect links first; the iterator must be closed before writing.
		type link struct {
			recordingID core.ID
			index       int
		}
		var links []link
		err = iteratePrefix(tx, makePartialSpeakerProfileKey(attr.VoiceProfileId), true, func(item *badger.Item) error {
			recID, idx, ok := parseSpeakerProfileKey(item.KeyCopy(nil))
			if ok {
				links = append(links, link{recID, idx})
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, l := range links {
			linked, err := readAttribution(tx, l.recordingID, l.index)
			if err != nil {
				return err
			}
			if linked == nil {
				continue
			}
			linked.Name = name
			if err := writeAttribution(tx, linked); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetDBStats returns record counts.
func (r *RecordingRepository) GetDBStats(ctx context.Context) (*core.DBStats, error) {
	stats := &core.DBStats{}
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		err := iteratePrefix(tx, []byte(recordingPrefix), false, func(item *badger.Item) error {
			return item.Value(func(val []byte) error {
				record, err := storage.UnmarshalRecording(val)
				if err != nil {
					return err
				}
				stats.Recordings++
				switch record.Status {
				case core.StatusPending:
					stats.Pending++
				case core.StatusDone:
					stats.Done++
				case core.StatusFailed:
					stats.Failed++
				}
				return nil
			})
		})
		if err != nil {
			return err
		}

		if stats.Speakers, err = countPrefix(tx, []byte(speakerPrefix)); err != nil {
			return err
		}
		if stats.VoiceProfiles, err = countPrefix(tx, []byte(voiceProfilePrefix)); err != nil {
			return err
		}
		stats.ProcessedFiles, err = countPrefix(tx, []byte(processedFilePrefix))
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// ClearAll wipes the whole database, processed-file records included.
// ID sequences restart afterwards.
func (r *RecordingRepository) ClearAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.releaseSequences(); err != nil {
		return err
	}
	if err := r.backend.DropAll(); err != nil {
		return err
	}
	return r.acquireSequences()
}

// Helper methods

// readRecording reads a recording from the transaction.
// Returns nil, nil when the recording doesn't exist.
func readRecording(tx *badger.Txn, id core.ID) (*core.Recording, error) {
	item, err := tx.Get(makeRecordingKey(id))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var record *core.Recording
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		record, unmarshalErr = storage.UnmarshalRecording(val)
		return unmarshalErr
	})
	return record, err
}

// readAttribution reads a speaker attribution from the transaction.
// Returns nil, nil when it doesn't exist.
func readAttribution(tx *badger.Txn, recordingID core.ID, index int) (*core.SpeakerAttribution, error) {
	item, err := tx.Get(makeSpeakerKey(recordingID, index))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var attr *core.SpeakerAttribution
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		attr, unmarshalErr = storage.UnmarshalSpeakerAttribution(val)
		return unmarshalErr
	})
	return attr, err
}

// writeAttribution stores an attribution and its profile link.
func writeAttribution(tx *badger.Txn, attr *core.SpeakerAttribution) error {
	key := makeSpeakerKey(attr.RecordingId, attr.SpeakerIndex)
	if err := tx.Set(key, storage.MarshalSpeakerAttribution(attr)); err != nil {
		return err
	}
	if attr.VoiceProfileId == 0 {
		return nil
	}
	link := makeSpeakerProfileKey(attr.VoiceProfileId, attr.RecordingId, attr.SpeakerIndex)
	return tx.Set(link, []byte{})
}
