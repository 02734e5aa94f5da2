package core

import "context"

// RecordSource is implemented by anything that can produce the current log
// snapshot for the admin protocol.
type RecordSource interface {
	// Snapshot returns every record that should be displayed right now.
	Snapshot(ctx context.Context) ([]LogRecord, error)
}
