package storage

import (
	"context"
	"time"

	"github.com/poiesic/vocald/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// Close releases resources held by the repository.
	// The underlying backend is closed separately.
	Close() error
}

// RecordingRepository provides operations for managing recordings and their
// speaker attributions.
type RecordingRepository interface {
	Repository

	// CreateRecordingEntry inserts a Pending recording with zero speakers.
	// Returns the new non-zero recording ID.
	CreateRecordingEntry(ctx context.Context, entry *core.RecordingEntry) (core.ID, error)

	// UpdateRecordingAfterAnalysis resolves every speaker result to a voice
	// profile, inserts one attribution per result (indices from 0) and marks
	// the recording Done. All writes commit atomically or not at all.
	// Returns ErrNotFound if the recording doesn't exist and ErrNotPending
	// if it was already finalized.
	UpdateRecordingAfterAnalysis(ctx context.Context, id core.ID, results []core.SpeakerResult) ([]core.MatchDecision, error)

	// MarkRecordingFailed marks a Pending recording Failed with the given message.
	MarkRecordingFailed(ctx context.Context, id core.ID, errText string) error

	// GetRecording retrieves a single recording by ID.
	// Returns ErrNotFound if the recording doesn't exist.
	GetRecording(ctx context.Context, id core.ID) (*core.Recording, error)

	// GetAllRecordings returns every recording ordered by call date descending.
	GetAllRecordings(ctx context.Context) ([]*core.Recording, error)

	// SearchRecordings returns recordings whose filename or phone number
	// contains query, case-insensitively, ordered by call date descending.
	// An empty query returns every recording.
	SearchRecordings(ctx context.Context, query string) ([]*core.Recording, error)

	// FindRecordingsByFilename returns recordings created for filename, ordered by ID.
	FindRecordingsByFilename(ctx context.Context, filename string) ([]*core.Recording, error)

	// GetRecordingDetail returns a recording with its attributions ordered by speaker index.
	// Returns ErrNotFound if the recording doesn't exist.
	GetRecordingDetail(ctx context.Context, id core.ID) (*core.RecordingDetail, error)

	// UpdateSpeakerName renames a speaker attribution. When the attribution is
	// linked to a voice profile the profile is renamed too, along with every
	// other attribution linked to it.
	UpdateSpeakerName(ctx context.Context, recordingID core.ID, speakerIndex int, name string) error

	// GetDBStats returns record counts.
	GetDBStats(ctx context.Context) (*core.DBStats, error)

	// ClearAll wipes recordings, attributions, voice profiles and processed-file records.
	ClearAll(ctx context.Context) error
}

// VoiceProfileRepository provides operations for managing voice profiles.
type VoiceProfileRepository interface {
	Repository

	// GetVoiceProfiles returns every voice profile ordered by ID.
	GetVoiceProfiles(ctx context.Context) ([]*core.VoiceProfile, error)

	// GetVoiceProfile retrieves a single profile by ID.
	// Returns ErrNotFound if the profile doesn't exist.
	GetVoiceProfile(ctx context.Context, id core.ID) (*core.VoiceProfile, error)

	// MatchVoice reports how a single embedding would resolve against the
	// stored profiles. Nothing is written: a decision with IsNew set carries
	// ProfileId 0 because no profile was created.
	MatchVoice(ctx context.Context, embedding []float32) (core.MatchDecision, error)
}

// ProcessedFileRepository persists the set of ingested filenames.
type ProcessedFileRepository interface {
	// LoadProcessedFiles returns every persisted record.
	LoadProcessedFiles(ctx context.Context) ([]*core.ProcessedFile, error)

	// SaveProcessedFile durably records a filename as processed.
	// Saving an existing filename overwrites its modification time.
	SaveProcessedFile(ctx context.Context, file *core.ProcessedFile) error

	// ClearProcessedFiles removes every record.
	ClearProcessedFiles(ctx context.Context) error
}

// ProfileTx exposes voice profiles inside an open write transaction.
// It is only valid for the lifetime of that transaction.
type ProfileTx interface {
	// Profiles returns every profile ordered by ID.
	Profiles() ([]*core.VoiceProfile, error)

	// CreateProfile assigns an ID to p, names it "Speaker <id>" when Name is
	// empty, and writes it.
	CreateProfile(p *core.VoiceProfile) error

	// SaveProfile overwrites an existing profile.
	SaveProfile(p *core.VoiceProfile) error
}

// VoiceMatcher resolves embeddings to voice profiles.
type VoiceMatcher interface {
	// Begin starts a match session for one recording within tx.
	Begin(tx ProfileTx, now time.Time) MatchSession
}

// MatchSession resolves the voices of a single recording. A profile's
// TotalRecordings is incremented at most once per session.
type MatchSession interface {
	Resolve(embedding []float32) (core.MatchDecision, error)
}
