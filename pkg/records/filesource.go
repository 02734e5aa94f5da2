// Package records reads conversion log records written by the backend
// module as JSON lines.
package records

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/modoterra/adminlog/pkg/core"
)

// maxLine bounds a single record line.
const maxLine = 1 << 20

// FileSource serves snapshots from a JSON-lines file. The file is re-read
// on every snapshot so appends by the writer are picked up.
type FileSource struct {
	path      string
	retention time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// Option configures a FileSource.
type Option func(*FileSource)

// WithRetention omits records older than d. Zero disables the window.
func WithRetention(d time.Duration) Option {
	return func(s *FileSource) { s.retention = d }
}

// WithClock overrides the time source used for retention.
func WithClock(now func() time.Time) Option {
	return func(s *FileSource) { s.now = now }
}

// NewFileSource creates a source for the file at path.
func NewFileSource(path string, logger *slog.Logger, opts ...Option) *FileSource {
	if logger == nil {
		logger = slog.Default()
	}
	s := &FileSource{
		path:   path,
		now:    time.Now,
		logger: logger,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Path returns the record file path.
func (s *FileSource) Path() string { return s.path }

// Snapshot returns every record inside the retention window in file order.
// A missing file is an empty log.
func (s *FileSource) Snapshot(ctx context.Context) ([]core.LogRecord, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []core.LogRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}
	defer f.Close()

	var cutoff time.Time
	if s.retention > 0 {
		cutoff = s.now().Add(-s.retention)
	}

	out := []core.LogRecord{}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)
	lineNo := 0
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		lineNo++
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec core.LogRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			s.logger.Warn("skipping malformed record", "path", s.path, "line", lineNo, "err", err)
			continue
		}
		if !cutoff.IsZero() {
			if ts, ok := rec.Time(); ok && ts.Before(cutoff) {
				continue
			}
		}
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	return out, nil
}

// Watch polls the file and calls onChange whenever its size or
// modification time changes, until ctx is cancelled. Truncation from log
// rotation counts as a change.
func (s *FileSource) Watch(ctx context.Context, interval time.Duration, onChange func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := s.stat()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		cur := s.stat()
		if cur != last {
			last = cur
			s.logger.Debug("records changed", "path", s.path, "size", cur.size)
			onChange()
		}
	}
}

type fileState struct {
	size  int64
	mtime time.Time
}

func (s *FileSource) stat() fileState {
	info, err := os.Stat(s.path)
	if err != nil {
		return fileState{}
	}
	return fileState{size: info.Size(), mtime: info.ModTime()}
}

// Append writes rec as one line to the file at path, creating it if needed.
func Append(path string, rec core.LogRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

var _ core.RecordSource = (*FileSource)(nil)
