package records

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modoterra/adminlog/pkg/core"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "records.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func fileNames(recs []core.LogRecord) []string {
	names := make([]string, len(recs))
	for i, r := range recs {
		names[i] = r.FileName
	}
	return names
}

func TestSnapshotReadsAllLines(t *testing.T) {
	path := writeFile(t, `{"id":1,"status":1,"timestamp":"2024-01-01 00:00:00","source_ip":"1.2.3.4","file_name":"a","file_ext":"ods","to_pdf":0}
{"status":false,"timestamp":"2024-01-02T10:00:00Z","source_ip":"5.6.7.8","file_name":"b","file_ext":"odt","to_pdf":true}
`)
	recs, err := NewFileSource(path, nil).Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, int64(1), recs[0].ID)
	assert.True(t, bool(recs[0].Status))
	assert.False(t, bool(recs[0].ToPDF))
	assert.Equal(t, "b", recs[1].FileName)
	assert.True(t, bool(recs[1].ToPDF))
}

func TestSnapshotSkipsMalformedLines(t *testing.T) {
	path := writeFile(t, `{"status":true,"timestamp":"2024-01-01","file_name":"ok"}
not json

{"status":true,"file_name":42}
{"status":"maybe","timestamp":"2024-01-02","file_name":"odd flag"}
{"status":false,"timestamp":"2024-01-02","file_name":"ok2"}
`)
	recs, err := NewFileSource(path, nil).Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"ok", "odd flag", "ok2"}, fileNames(recs))
	assert.True(t, bool(recs[1].Status))
}

func TestSnapshotMissingFileIsEmpty(t *testing.T) {
	src := NewFileSource(filepath.Join(t.TempDir(), "none.jsonl"), nil)
	recs, err := src.Snapshot(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)
}

func TestSnapshotRetention(t *testing.T) {
	path := writeFile(t, `{"timestamp":"2023-01-01 00:00:00","file_name":"old"}
{"timestamp":"2024-05-01 00:00:00","file_name":"recent"}
{"timestamp":"garbage","file_name":"undated"}
`)
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	src := NewFileSource(path, nil,
		WithRetention(365*24*time.Hour),
		WithClock(func() time.Time { return now }),
	)
	recs, err := src.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"recent", "undated"}, fileNames(recs))
}

func TestSnapshotCancelledContext(t *testing.T) {
	path := writeFile(t, `{"file_name":"a"}
`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewFileSource(path, nil).Snapshot(ctx)
	assert.Error(t, err)
}

func TestAppendThenSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.jsonl")
	for _, name := range []string{"one", "two"} {
		require.NoError(t, Append(path, core.LogRecord{Status: true, Timestamp: "2024-01-01 00:00:00", FileName: name}))
	}
	recs, err := NewFileSource(path, nil).Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, fileNames(recs))
}

func TestWatchReportsChanges(t *testing.T) {
	path := writeFile(t, "")
	src := NewFileSource(path, nil)

	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		src.Watch(ctx, 10*time.Millisecond, func() { calls.Add(1) })
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	require.NoError(t, Append(path, core.LogRecord{FileName: "x"}))

	assert.Eventually(t, func() bool { return calls.Load() > 0 }, 2*time.Second, 10*time.Millisecond,
		"expected onChange after append")
	cancel()
	<-done
}
