package core

//go:generate go run ../cmd/musgen

import (
	"encoding/binary"
	"io"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// Recording and voice profile IDs come from database sequences and are never 0;
// 0 means "no reference".
type ID uint64

// ContentKey hashes the bytes read from r into a 64-bit BLAKE2b key.
// Identical audio files always produce identical keys.
func ContentKey(r io.Reader) (uint64, error) {
	h, err := blake2b.New(8, nil) // 8 bytes = 64 bits
	if err != nil {
		return 0, err
	}
	if _, err := io.Copy(h, r); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(h.Sum(nil)), nil
}

// Status is the analysis state of a Recording.
type Status int

const (
	// StatusPending marks a recording whose analysis has not finished.
	StatusPending Status = iota
	// StatusDone marks a successfully analysed recording.
	StatusDone
	// StatusFailed marks a recording whose analysis failed.
	StatusFailed
)

// String returns the lower-case name of the status.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusDone:
		return "done"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ProcessedFile records that a filename has been fully ingested once.
type ProcessedFile struct {
	Filename   string
	ModifiedMs int64
}

// CallEntry is a call-log row matched to a recording.
type CallEntry struct {
	PhoneNumber string
	Start       time.Time
	Duration    time.Duration
}

// FileInfo describes an audio file offered by the scanner.
type FileInfo struct {
	Filename          string
	Filepath          string
	ModifiedMs        int64
	EstimatedCallTime time.Time
	Call              *CallEntry // nil when no call-log entry matched
}

// RecordingEntry carries the fields needed to create a Pending recording.
type RecordingEntry struct {
	Filename     string
	Filepath     string
	CallDate     time.Time
	PhoneNumber  string
	CallDuration time.Duration
	ContentKey   uint64
}

// Recording is one analysed (or pending) audio file.
type Recording struct {
	Id            ID
	Filename      string
	Filepath      string
	CallDate      time.Time
	CallDuration  time.Duration
	PhoneNumber   string // empty when unknown
	Status        Status
	Error         string // set only when Status is StatusFailed
	TotalSpeakers int
	ContentKey    uint64
	InsertedAt    time.Time
	UpdatedAt     time.Time
}

// SpeakerAttribution links a voice within a recording to a voice profile.
type SpeakerAttribution struct {
	RecordingId    ID
	SpeakerIndex   int
	Name           string
	Confidence     float32 // percent, 0-100
	VoiceProfileId ID      // 0 when not linked to a profile
}

// VoiceProfile is a persisted voice identity.
type VoiceProfile struct {
	Id              ID
	Name            string
	Centroid        []float32
	TotalRecordings int
	FirstSeen       time.Time
	LastSeen        time.Time
}

// SpeakerResult is one distinct voice detected in a recording.
type SpeakerResult struct {
	Embedding  []float32
	Confidence float32 // cluster cohesion, 0-1
}

// MatchDecision is the outcome of resolving an embedding to a voice profile.
type MatchDecision struct {
	ProfileId  ID
	Name       string  // display name of the matched or created profile
	Confidence float32 // percent, 0-100
	Similarity float32
	IsNew      bool
}

// RecordingDetail is a recording with its speaker attributions ordered by index.
type RecordingDetail struct {
	Recording *Recording
	Speakers  []*SpeakerAttribution
}

// DBStats summarizes the contents of the store.
type DBStats struct {
	Recordings     int
	Pending        int
	Done           int
	Failed         int
	Speakers       int
	VoiceProfiles  int
	ProcessedFiles int
}
