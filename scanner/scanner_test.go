package scanner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/poiesic/vocald/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// writeFile creates name in dir with the given modification time.
func writeFile(t *testing.T, dir, name string, modTime time.Time) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("audio"), 0644))
	require.NoError(t, os.Chtimes(path, modTime, modTime))
}

func newTestScanner(t *testing.T, opts ...Option) *Scanner {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	s, err := New(opts...)
	require.NoError(t, err)
	return s
}

func filenames(files []core.FileInfo) []string {
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Filename)
	}
	return names
}

type fakeCallLog struct {
	calls []core.CallEntry
	err   error
}

func (f *fakeCallLog) Lookup(ctx context.Context, at time.Time, tolerance time.Duration) (*core.CallEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.calls {
		d := f.calls[i].Start.Sub(at)
		if d < 0 {
			d = -d
		}
		if d <= tolerance {
			return &f.calls[i], nil
		}
	}
	return nil, nil
}

func TestScan_FiltersAndOrders(t *testing.T) {
	dir := t.TempDir()
	old := testNow.Add(-time.Hour)

	writeFile(t, dir, "b.m4a", old)
	writeFile(t, dir, "a.WAV", old)
	writeFile(t, dir, "oldest.mp3", old.Add(-time.Hour))
	writeFile(t, dir, "notes.txt", old)
	writeFile(t, dir, ".hidden.wav", old)
	writeFile(t, dir, "done.amr", old)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "folder.wav"), 0755))

	s := newTestScanner(t)
	files := s.Scan(context.Background(), dir, func(name string) bool { return name == "done.amr" })

	assert.Equal(t, []string{"oldest.mp3", "a.WAV", "b.m4a"}, filenames(files))
	assert.Equal(t, filepath.Join(dir, "oldest.mp3"), files[0].Filepath)
	assert.Equal(t, old.Add(-time.Hour).UnixMilli(), files[0].ModifiedMs)
	assert.Nil(t, files[0].Call)
}

func TestScan_Quiescence(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "settled.wav", testNow.Add(-DefaultQuiescence))
	writeFile(t, dir, "writing.wav", testNow.Add(-time.Second))

	files := newTestScanner(t).Scan(context.Background(), dir, nil)
	assert.Equal(t, []string{"settled.wav"}, filenames(files))

	files = newTestScanner(t, WithQuiescence(0)).Scan(context.Background(), dir, nil)
	assert.Len(t, files, 2)
}

func TestScan_UsesCallLog(t *testing.T) {
	dir := t.TempDir()
	callStart := testNow.Add(-2*time.Hour - 30*time.Second)
	writeFile(t, dir, "late.wav", testNow.Add(-90*time.Minute))
	writeFile(t, dir, "called.wav", testNow.Add(-2*time.Hour))

	log := &fakeCallLog{calls: []core.CallEntry{{PhoneNumber: "+15551234", Start: callStart, Duration: 30 * time.Second}}}
	files := newTestScanner(t, WithCallLog(log)).Scan(context.Background(), dir, nil)

	require.Len(t, files, 2)
	assert.Equal(t, "called.wav", files[0].Filename)
	require.NotNil(t, files[0].Call)
	assert.Equal(t, "+15551234", files[0].Call.PhoneNumber)
	assert.True(t, callStart.Equal(files[0].EstimatedCallTime))
	assert.Nil(t, files[1].Call)
}

func TestScan_CallLogErrorFallsBack(t *testing.T) {
	dir := t.TempDir()
	mod := testNow.Add(-time.Hour)
	writeFile(t, dir, "a.wav", mod)

	log := &fakeCallLog{err: errors.New("locked")}
	files := newTestScanner(t, WithCallLog(log)).Scan(context.Background(), dir, nil)

	require.Len(t, files, 1)
	assert.Nil(t, files[0].Call)
	assert.True(t, mod.Equal(files[0].EstimatedCallTime))
}

func TestScan_TiesBrokenByFilename(t *testing.T) {
	dir := t.TempDir()
	mod := testNow.Add(-time.Hour)
	for _, name := range []string{"c.wav", "a.wav", "b.wav"} {
		writeFile(t, dir, name, mod)
	}

	files := newTestScanner(t).Scan(context.Background(), dir, nil)
	assert.Equal(t, []string{"a.wav", "b.wav", "c.wav"}, filenames(files))
}

func TestScan_UnreadableFolder(t *testing.T) {
	files := newTestScanner(t).Scan(context.Background(), filepath.Join(t.TempDir(), "missing"), nil)
	assert.NotNil(t, files)
	assert.Empty(t, files)
}

func TestScan_IsSideEffectFree(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.wav", testNow.Add(-time.Hour))

	s := newTestScanner(t)
	first := s.Scan(context.Background(), dir, nil)
	second := s.Scan(context.Background(), dir, nil)
	assert.Equal(t, first, second)
}

func TestWithExtensions(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.wav", testNow.Add(-time.Hour))
	writeFile(t, dir, "b.caf", testNow.Add(-time.Hour))

	files := newTestScanner(t, WithExtensions("CAF")).Scan(context.Background(), dir, nil)
	assert.Equal(t, []string{"b.caf"}, filenames(files))

	_, err := New(WithExtensions())
	assert.ErrorIs(t, err, ErrNoExtensions)
}

func TestIsAudioFile(t *testing.T) {
	s := newTestScanner(t)
	tests := []struct {
		name string
		want bool
	}{
		{"call.wav", true},
		{"CALL.M4A", true},
		{"voice.opus", true},
		{"record.awb", true},
		{"image.png", false},
		{"noext", false},
		{".trashed-call.wav", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.IsAudioFile(tt.name))
		})
	}
}

func TestCountAllAudioFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.wav", testNow)
	writeFile(t, dir, "b.mp3", testNow.Add(-time.Hour))
	writeFile(t, dir, "c.txt", testNow)

	s := newTestScanner(t)
	assert.Equal(t, 2, s.CountAllAudioFiles(dir))
	assert.Equal(t, 0, s.CountAllAudioFiles(filepath.Join(dir, "missing")))
}

func TestMarkAllExistingAsSeen(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.wav", testNow)
	writeFile(t, dir, "b.mp3", testNow.Add(-time.Hour))
	writeFile(t, dir, "c.txt", testNow)

	s := newTestScanner(t)
	seen := map[string]int64{}
	n, err := s.MarkAllExistingAsSeen(context.Background(), dir, func(ctx context.Context, name string, ms int64) error {
		seen[name] = ms
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, map[string]int64{
		"a.wav": testNow.UnixMilli(),
		"b.mp3": testNow.Add(-time.Hour).UnixMilli(),
	}, seen)

	// Everything marked is excluded from the next scan.
	files := s.Scan(context.Background(), dir, func(name string) bool { _, ok := seen[name]; return ok })
	assert.Empty(t, files)
}

func TestMarkAllExistingAsSeen_StopsOnError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.wav", testNow)
	writeFile(t, dir, "b.wav", testNow)

	boom := errors.New("disk full")
	n, err := newTestScanner(t).MarkAllExistingAsSeen(context.Background(), dir, func(ctx context.Context, name string, ms int64) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, n)
}
