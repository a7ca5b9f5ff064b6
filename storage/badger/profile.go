package badger

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/vocald/core"
	"github.com/poiesic/vocald/storage"
)

// GetVoiceProfiles returns every voice profile ordered by ID.
func (r *RecordingRepository) GetVoiceProfiles(ctx context.Context) ([]*core.VoiceProfile, error) {
	var profiles []*core.VoiceProfile
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		profiles, err = readVoiceProfiles(tx)
		return err
	}, false)
	return profiles, err
}

// GetVoiceProfile retrieves a single profile by ID.
func (r *RecordingRepository) GetVoiceProfile(ctx context.Context, id core.ID) (*core.VoiceProfile, error) {
	var profile *core.VoiceProfile
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		profile, err = readVoiceProfile(tx, id)
		if err != nil {
			return err
		}
		if profile == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return profile, err
}

// MatchVoice resolves one embedding in a read-only transaction.
func (r *RecordingRepository) MatchVoice(ctx context.Context, embedding []float32) (core.MatchDecision, error) {
	if err := core.ValidateEmbedding(embedding, 0); err != nil {
		return core.MatchDecision{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.voiceSeq == nil {
		return core.MatchDecision{}, storage.ErrStorageClosed
	}

	var decision core.MatchDecision
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		session := r.matcher.Begin(&readOnlyProfileTx{tx: tx}, r.now())
		var err error
		decision, err = session.Resolve(embedding)
		return err
	}, false)
	return decision, err
}

// readOnlyProfileTx serves profiles from a read transaction and discards
// writes, so a match session can run without side effects.
type readOnlyProfileTx struct {
	tx *badger.Txn
}

var _ storage.ProfileTx = (*readOnlyProfileTx)(nil)

func (p *readOnlyProfileTx) Profiles() ([]*core.VoiceProfile, error) {
	return readVoiceProfiles(p.tx)
}

func (p *readOnlyProfileTx) CreateProfile(*core.VoiceProfile) error { return nil }

func (p *readOnlyProfileTx) SaveProfile(*core.VoiceProfile) error { return nil }

// profileTx implements storage.ProfileTx on an open write transaction.
type profileTx struct {
	tx  *badger.Txn
	seq *badger.Sequence
}

var _ storage.ProfileTx = (*profileTx)(nil)

func (p *profileTx) Profiles() ([]*core.VoiceProfile, error) {
	return readVoiceProfiles(p.tx)
}

func (p *profileTx) CreateProfile(profile *core.VoiceProfile) error {
	next, err := nextID(p.seq)
	if err != nil {
		return err
	}
	profile.Id = core.ID(next)
	if profile.Name == "" {
		profile.Name = fmt.Sprintf("Speaker %d", profile.Id)
	}
	return p.tx.Set(makeVoiceProfileKey(profile.Id), storage.MarshalVoiceProfile(profile))
}

func (p *profileTx) SaveProfile(profile *core.VoiceProfile) error {
	if profile.Id == 0 {
		return fmt.Errorf("%w: voice profile without ID", storage.ErrNotFound)
	}
	return p.tx.Set(makeVoiceProfileKey(profile.Id), storage.MarshalVoiceProfile(profile))
}

// readVoiceProfiles reads every profile in key (ID) order.
func readVoiceProfiles(tx *badger.Txn) ([]*core.VoiceProfile, error) {
	var profiles []*core.VoiceProfile
	err := iteratePrefix(tx, []byte(voiceProfilePrefix), false, func(item *badger.Item) error {
		return item.Value(func(val []byte) error {
			profile, err := storage.UnmarshalVoiceProfile(val)
			if err != nil {
				return err
			}
			profiles = append(profiles, profile)
			return nil
		})
	})
	return profiles, err
}

// readVoiceProfile reads a profile from the transaction.
// Returns nil, nil when it doesn't exist.
func readVoiceProfile(tx *badger.Txn, id core.ID) (*core.VoiceProfile, error) {
	item, err := tx.Get(makeVoiceProfileKey(id))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var profile *core.VoiceProfile
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		profile, unmarshalErr = storage.UnmarshalVoiceProfile(val)
		return unmarshalErr
	})
	return profile, err
}
