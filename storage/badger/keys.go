package badger

import (
	"encoding/binary"
	"time"

	"github.com/poiesic/vocald/core"
)

// Key prefixes for different data types
const (
	recordingPrefix        = "rec:"
	recordingDatePrefix    = "recd:"
	recordingFilePrefix    = "recf:"
	speakerPrefix          = "spk:"
	speakerProfilePrefix   = "spkp:"
	voiceProfilePrefix     = "vp:"
	processedFilePrefix    = "pf:"
	recordingIDSeq         = "seq:rec"
	voiceProfileIDSeq      = "seq:vp"
	filenameIndexSeparator = 0x00
)

// keyBuilder appends fixed-width big-endian fields so keys sort by their numeric parts.
type keyBuilder []byte

func newKey(prefix string, capacity int) keyBuilder {
	buf := make([]byte, 0, len(prefix)+capacity)
	return append(buf, prefix...)
}

func (k keyBuilder) id(id core.ID) keyBuilder {
	return binary.BigEndian.AppendUint64(k, uint64(id))
}

func (k keyBuilder) index(i int) keyBuilder {
	return binary.BigEndian.AppendUint32(k, uint32(i))
}

// timestamp flips the sign bit so pre-epoch times still sort before later ones.
func (k keyBuilder) timestamp(t time.Time) keyBuilder {
	return binary.BigEndian.AppendUint64(k, uint64(t.UnixMicro())^(1<<63))
}

// makeRecordingKey generates a key for a recording by ID.
func makeRecordingKey(id core.ID) []byte {
	return newKey(recordingPrefix, 8).id(id)
}

// makeRecordingDateKey generates a composite key for the call date index.
// Format: prefix:calldate:id
func makeRecordingDateKey(callDate time.Time, id core.ID) []byte {
	return newKey(recordingDatePrefix, 16).timestamp(callDate).id(id)
}

// makeFilenamePrefix generates the partial key for filename index lookups.
// Format: prefix:filename\x00
func makeFilenamePrefix(filename string) []byte {
	k := newKey(recordingFilePrefix, len(filename)+9)
	k = append(k, filename...)
	return append(k, filenameIndexSeparator)
}

// makeRecordingFileKey generates a composite key for the filename index.
// Format: prefix:filename\x00id
func makeRecordingFileKey(filename string, id core.ID) []byte {
	return keyBuilder(makeFilenamePrefix(filename)).id(id)
}

// makeSpeakerKey generates a key for a speaker attribution.
// Format: prefix:recordingID:index
func makeSpeakerKey(recordingID core.ID, index int) []byte {
	return newKey(speakerPrefix, 12).id(recordingID).index(index)
}

// makePartialSpeakerKey generates the partial key for all attributions of a recording.
func makePartialSpeakerKey(recordingID core.ID) []byte {
	return newKey(speakerPrefix, 8).id(recordingID)
}

// makeSpeakerProfileKey generates a composite key linking a profile to an attribution.
// Format: prefix:profileID:recordingID:index
func makeSpeakerProfileKey(profileID, recordingID core.ID, index int) []byte {
	return newKey(speakerProfilePrefix, 20).id(profileID).id(recordingID).index(index)
}

// makePartialSpeakerProfileKey generates the partial key for all attributions of a profile.
func makePartialSpeakerProfileKey(profileID core.ID) []byte {
	return newKey(speakerProfilePrefix, 8).id(profileID)
}

// parseSpeakerProfileKey extracts the recording ID and speaker index from a profile link key.
func parseSpeakerProfileKey(key []byte) (core.ID, int, bool) {
	offset := len(speakerProfilePrefix) + 8
	if len(key) != offset+12 {
		return 0, 0, false
	}
	recordingID := core.ID(binary.BigEndian.Uint64(key[offset:]))
	index := int(binary.BigEndian.Uint32(key[offset+8:]))
	return recordingID, index, true
}

// makeVoiceProfileKey generates a key for a voice profile by ID.
func makeVoiceProfileKey(id core.ID) []byte {
	return newKey(voiceProfilePrefix, 8).id(id)
}

// makeProcessedFileKey generates a key for a processed-file record.
func makeProcessedFileKey(filename string) []byte {
	k := newKey(processedFilePrefix, len(filename))
	return append(k, filename...)
}
