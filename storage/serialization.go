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

package storage

import (
	"fmt"

	"github.com/poiesic/vocald/core"
)

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, core.IDMUS.Size(id))
	core.IDMUS.Marshal(id, buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	id, _, err := core.IDMUS.Unmarshal(data)
	if err != nil {
		return 0, fmt.Errorf("%w: id: %w", ErrSerializationFailed, err)
	}
	return id, nil
}

// MarshalRecording serializes a Recording to bytes.
func MarshalRecording(r *core.Recording) []byte {
	buf := make([]byte, core.RecordingMUS.Size(*r))
	core.RecordingMUS.Marshal(*r, buf)
	return buf
}

// UnmarshalRecording deserializes a Recording from bytes.
func UnmarshalRecording(data []byte) (*core.Recording, error) {
	r, _, err := core.RecordingMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: recording: %w", ErrSerializationFailed, err)
	}
	return &r, nil
}

// MarshalSpeakerAttribution serializes a SpeakerAttribution to bytes.
func MarshalSpeakerAttribution(a *core.SpeakerAttribution) []byte {
	buf := make([]byte, core.SpeakerAttributionMUS.Size(*a))
	core.SpeakerAttributionMUS.Marshal(*a, buf)
	return buf
}

// UnmarshalSpeakerAttribution deserializes a SpeakerAttribution from bytes.
func UnmarshalSpeakerAttribution(data []byte) (*core.SpeakerAttribution, error) {
	a, _, err := core.SpeakerAttributionMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: speaker attribution: %w", ErrSerializationFailed, err)
	}
	return &a, nil
}

// MarshalVoiceProfile serializes a VoiceProfile to bytes.
func MarshalVoiceProfile(p *core.VoiceProfile) []byte {
	buf := make([]byte, core.VoiceProfileMUS.Size(*p))
	core.VoiceProfileMUS.Marshal(*p, buf)
	return buf
}

// UnmarshalVoiceProfile deserializes a VoiceProfile from bytes.
func UnmarshalVoiceProfile(data []byte) (*core.VoiceProfile, error) {
	p, _, err := core.VoiceProfileMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: voice profile: %w", ErrSerializationFailed, err)
	}
	return &p, nil
}

// MarshalProcessedFile serializes a ProcessedFile to bytes.
func MarshalProcessedFile(f *core.ProcessedFile) []byte {
	buf := make([]byte, core.ProcessedFileMUS.Size(*f))
	core.ProcessedFileMUS.Marshal(*f, buf)
	return buf
}

// UnmarshalProcessedFile deserializes a ProcessedFile from bytes.
func UnmarshalProcessedFile(data []byte) (*core.ProcessedFile, error) {
	f, _, err := core.ProcessedFileMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: processed file: %w", ErrSerializationFailed, err)
	}
	return &f, nil
}
