// Package scanner discovers recordings in a folder that have not been
// ingested yet.
//
// Scanning has no side effects. A file is offered when its extension is on
// the allow-list, it is not already processed and it has not been modified
// for at least the quiescence window, so recordings that are still being
// written are picked up by a later scan.
package scanner

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/poiesic/vocald/calllog"
	"github.com/poiesic/vocald/core"
)

const (
	// DefaultQuiescence is how long a file must stay unmodified before it is offered.
	DefaultQuiescence = 15 * time.Second

	// DefaultTolerance is the maximum distance between a file's modification
	// time and a call-log entry for the two to be matched.
	DefaultTolerance = 2 * time.Minute
)

// DefaultExtensions are the audio extensions offered by default.
var DefaultExtensions = []string{
	".wav", ".mp3", ".m4a", ".aac", ".amr", ".3gp",
	".ogg", ".opus", ".flac", ".awb", ".wma",
}

// ErrNoExtensions is returned when an empty extension allow-list is configured.
var ErrNoExtensions = errors.New("at least one extension required")

// Scanner lists unprocessed audio files in a folder.
type Scanner struct {
	extensions map[string]struct{}
	quiescence time.Duration
	tolerance  time.Duration
	calls      calllog.Log
	now        func() time.Time
	logger     *slog.Logger
}

// Option configures a Scanner.
type Option func(*Scanner) error

// WithExtensions replaces the extension allow-list. Matching ignores case
// and a missing leading dot.
func WithExtensions(exts ...string) Option {
	return func(s *Scanner) error {
		if len(exts) == 0 {
			return ErrNoExtensions
		}
		s.extensions = extensionSet(exts)
		return nil
	}
}

// WithQuiescence sets how long a file must be left unmodified. Zero offers
// files immediately.
func WithQuiescence(d time.Duration) Option {
	return func(s *Scanner) error {
		if d < 0 {
			d = 0
		}
		s.quiescence = d
		return nil
	}
}

// WithCallLog sets the call log used to date recordings.
func WithCallLog(log calllog.Log) Option {
	return func(s *Scanner) error {
		if log != nil {
			s.calls = log
		}
		return nil
	}
}

// WithTolerance sets the call-log matching window.
func WithTolerance(d time.Duration) Option {
	return func(s *Scanner) error {
		if d < 0 {
			d = -d
		}
		s.tolerance = d
		return nil
	}
}

// WithClock sets the time source used for the quiescence check.
func WithClock(now func() time.Time) Option {
	return func(s *Scanner) error {
		if now != nil {
			s.now = now
		}
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scanner) error {
		if logger != nil {
			s.logger = logger
		}
		return nil
	}
}

// New creates a Scanner.
func New(opts ...Option) (*Scanner, error) {
	s := &Scanner{
		extensions: extensionSet(DefaultExtensions),
		quiescence: DefaultQuiescence,
		tolerance:  DefaultTolerance,
		calls:      calllog.Noop{},
		now:        time.Now,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "scanner")
	return s, nil
}

func extensionSet(exts []string) map[string]struct{} {
	set := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = struct{}{}
	}
	return set
}

// IsAudioFile reports whether name has an allowed extension.
func (s *Scanner) IsAudioFile(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	_, ok := s.extensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

type audioFile struct {
	name    string
	path    string
	modTime time.Time
}

// listAudioFiles returns the regular audio files directly inside folder.
func (s *Scanner) listAudioFiles(folder string) ([]audioFile, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, err
	}

	files := make([]audioFile, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !s.IsAudioFile(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// Removed between ReadDir and Info
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}
		files = append(files, audioFile{
			name:    entry.Name(),
			path:    filepath.Join(folder, entry.Name()),
			modTime: info.ModTime(),
		})
	}
	return files, nil
}

// Scan returns the unprocessed audio files in folder, oldest estimated call
// time first and ties broken by filename. isProcessed may be nil. An
// unreadable folder yields an empty result and a warning.
func (s *Scanner) Scan(ctx context.Context, folder string, isProcessed func(string) bool) []core.FileInfo {
	files, err := s.listAudioFiles(folder)
	if err != nil {
		s.logger.Warn("folder unreadable", "folder", folder, "err", err)
		return []core.FileInfo{}
	}

	now := s.now()
	result := make([]core.FileInfo, 0, len(files))
	for _, f := range files {
		if isProcessed != nil && isProcessed(f.name) {
			continue
		}
		if age := now.Sub(f.modTime); age < s.quiescence {
			s.logger.Debug("file still settling, skipping", "file", f.name, "age", age)
			continue
		}

		info := core.FileInfo{
			Filename:          f.name,
			Filepath:          f.path,
			ModifiedMs:        f.modTime.UnixMilli(),
			EstimatedCallTime: f.modTime,
		}
		if call := s.lookupCall(ctx, f); call != nil {
			info.Call = call
			info.EstimatedCallTime = call.Start
		}
		result = append(result, info)
	}

	sort.SliceStable(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if !a.EstimatedCallTime.Equal(b.EstimatedCallTime) {
			return a.EstimatedCallTime.Before(b.EstimatedCallTime)
		}
		return a.Filename < b.Filename
	})

	s.logger.Debug("scan complete", "folder", folder, "candidates", len(files), "new", len(result))
	return result
}

func (s *Scanner) lookupCall(ctx context.Context, f audioFile) *core.CallEntry {
	call, err := s.calls.Lookup(ctx, f.modTime, s.tolerance)
	if err != nil {
		s.logger.Warn("call log lookup failed, using modification time", "file", f.name, "err", err)
		return nil
	}
	return call
}

// CountAllAudioFiles returns how many audio files folder holds, processed or not.
func (s *Scanner) CountAllAudioFiles(folder string) int {
	files, err := s.listAudioFiles(folder)
	if err != nil {
		s.logger.Warn("folder unreadable", "folder", folder, "err", err)
		return 0
	}
	return len(files)
}

// MarkAllExistingAsSeen calls mark for every audio file in folder,
// regardless of age, and returns how many were marked. It stops at the first
// error.
func (s *Scanner) MarkAllExistingAsSeen(ctx context.Context, folder string, mark func(ctx context.Context, filename string, modifiedMs int64) error) (int, error) {
	files, err := s.listAudioFiles(folder)
	if err != nil {
		s.logger.Warn("folder unreadable", "folder", folder, "err", err)
		return 0, nil
	}

	marked := 0
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return marked, err
		}
		if err := mark(ctx, f.name, f.modTime.UnixMilli()); err != nil {
			return marked, err
		}
		marked++
	}
	s.logger.Info("marked existing files as seen", "folder", folder, "count", marked)
	return marked, nil
}
