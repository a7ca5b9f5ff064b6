package storage

import (
	"testing"
	"time"

	"github.com/poiesic/vocald/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalID(t *testing.T) {
	tests := []struct {
		name string
		id   core.ID
	}{
		{"zero ID", core.ID(0)},
		{"small ID", core.ID(42)},
		{"large ID", core.ID(18446744073709551615)}, // max uint64
		{"content key", core.ID(0x9e3779b97f4a7c15)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalID(tt.id)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalID(data)
			require.NoError(t, err)
			assert.Equal(t, tt.id, decoded)
		})
	}
}

func TestUnmarshalID_Invalid(t *testing.T) {
	_, err := UnmarshalID([]byte{})
	assert.Error(t, err)
}

func TestMarshalUnmarshalRecording(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)

	tests := []struct {
		name      string
		recording *core.Recording
	}{
		{
			name: "pending recording",
			recording: &core.Recording{
				Id:         1,
				Filename:   "call_20250101.m4a",
				Filepath:   "/sdcard/Recordings/call_20250101.m4a",
				CallDate:   now.Add(-time.Hour),
				Status:     core.StatusPending,
				ContentKey: 0xdeadbeefcafe,
				InsertedAt: now,
				UpdatedAt:  now,
			},
		},
		{
			name: "done recording with call log data",
			recording: &core.Recording{
				Id:            99,
				Filename:      "Call with Bob.amr",
				Filepath:      "/rec/Call with Bob.amr",
				CallDate:      now.Add(-48 * time.Hour),
				CallDuration:  95 * time.Second,
				PhoneNumber:   "+441632960961",
				Status:        core.StatusDone,
				TotalSpeakers: 2,
				InsertedAt:    now,
				UpdatedAt:     now,
			},
		},
		{
			name: "failed recording with unicode error",
			recording: &core.Recording{
				Id:       7,
				Filename: "broken.wav",
				CallDate: now,
				Status:   core.StatusFailed,
				Error:    "décodage impossible: ✗",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalRecording(tt.recording)
			decoded, err := UnmarshalRecording(data)
			require.NoError(t, err)

			assert.Equal(t, tt.recording.Id, decoded.Id)
			assert.Equal(t, tt.recording.Filename, decoded.Filename)
			assert.Equal(t, tt.recording.Filepath, decoded.Filepath)
			assert.True(t, tt.recording.CallDate.Equal(decoded.CallDate))
			assert.Equal(t, tt.recording.CallDuration, decoded.CallDuration)
			assert.Equal(t, tt.recording.PhoneNumber, decoded.PhoneNumber)
			assert.Equal(t, tt.recording.Status, decoded.Status)
			assert.Equal(t, tt.recording.Error, decoded.Error)
			assert.Equal(t, tt.recording.TotalSpeakers, decoded.TotalSpeakers)
			assert.Equal(t, tt.recording.ContentKey, decoded.ContentKey)
			assert.True(t, tt.recording.InsertedAt.Equal(decoded.InsertedAt))
			assert.True(t, tt.recording.UpdatedAt.Equal(decoded.UpdatedAt))
		})
	}
}

func TestUnmarshalRecording_ZeroTimes(t *testing.T) {
	decoded, err := UnmarshalRecording(MarshalRecording(&core.Recording{Id: 3, Filename: "x.wav"}))
	require.NoError(t, err)
	assert.True(t, decoded.InsertedAt.IsZero())
	assert.True(t, decoded.CallDate.IsZero())
}

func TestMarshalUnmarshalSpeakerAttribution(t *testing.T) {
	tests := []struct {
		name string
		attr *core.SpeakerAttribution
	}{
		{"linked", &core.SpeakerAttribution{RecordingId: 5, SpeakerIndex: 0, Name: "Speaker 3", Confidence: 87.5, VoiceProfileId: 3}},
		{"unlinked", &core.SpeakerAttribution{RecordingId: 5, SpeakerIndex: 4, Name: "Alice", Confidence: 100}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded, err := UnmarshalSpeakerAttribution(MarshalSpeakerAttribution(tt.attr))
			require.NoError(t, err)
			assert.Equal(t, tt.attr, decoded)
		})
	}
}

func TestMarshalUnmarshalVoiceProfile(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)

	tests := []struct {
		name    string
		profile *core.VoiceProfile
	}{
		{
			name: "profile with centroid",
			profile: &core.VoiceProfile{
				Id:              12,
				Name:            "Mum",
				Centroid:        []float32{0.5, -0.25, 0.125, 1e-7},
				TotalRecordings: 14,
				FirstSeen:       now.Add(-720 * time.Hour),
				LastSeen:        now,
			},
		},
		{
			name: "profile with large centroid",
			profile: &core.VoiceProfile{
				Id:              1,
				Name:            "Speaker 1",
				Centroid:        make([]float32, 256),
				TotalRecordings: 1,
				FirstSeen:       now,
				LastSeen:        now,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded, err := UnmarshalVoiceProfile(MarshalVoiceProfile(tt.profile))
			require.NoError(t, err)
			assert.Equal(t, tt.profile.Id, decoded.Id)
			assert.Equal(t, tt.profile.Name, decoded.Name)
			assert.Equal(t, tt.profile.Centroid, decoded.Centroid)
			assert.Equal(t, tt.profile.TotalRecordings, decoded.TotalRecordings)
			assert.True(t, tt.profile.FirstSeen.Equal(decoded.FirstSeen))
			assert.True(t, tt.profile.LastSeen.Equal(decoded.LastSeen))
		})
	}
}

func TestMarshalUnmarshalProcessedFile(t *testing.T) {
	f := &core.ProcessedFile{Filename: "call.ogg", ModifiedMs: 1735689600123}
	decoded, err := UnmarshalProcessedFile(MarshalProcessedFile(f))
	require.NoError(t, err)
	assert.Equal(t, f, decoded)
}

func TestUnmarshal_Truncated(t *testing.T) {
	profile := MarshalVoiceProfile(&core.VoiceProfile{
		Id:       1,
		Name:     "Speaker 1",
		Centroid: []float32{1, 2, 3, 4},
	})
	recording := MarshalRecording(&core.Recording{Id: 1, Filename: "a.wav"})

	tests := []struct {
		name      string
		unmarshal func() error
	}{
		{"empty recording", func() error { _, err := UnmarshalRecording(nil); return err }},
		{"half recording", func() error { _, err := UnmarshalRecording(recording[:len(recording)/2]); return err }},
		{"profile cut inside centroid", func() error { _, err := UnmarshalVoiceProfile(profile[:14]); return err }},
		{"empty attribution", func() error { _, err := UnmarshalSpeakerAttribution([]byte{}); return err }},
		{"empty processed file", func() error { _, err := UnmarshalProcessedFile([]byte{}); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.unmarshal()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrSerializationFailed)
		})
	}
}
