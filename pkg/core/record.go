package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Flag is a boolean column. The backend stores flags as INTEGER, so 0/1
// numbers decode as well as JSON booleans.
type Flag bool

// UnmarshalJSON accepts true/false, null, and numbers (non-zero is true).
// Any other non-empty value, such as "ok", is true.
func (f *Flag) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	switch s {
	case "true":
		*f = true
	case "false", "null", "":
		*f = false
	default:
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*f = true
			return nil
		}
		*f = n != 0
	}
	return nil
}

// MarshalJSON always writes a JSON boolean.
func (f Flag) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatBool(bool(f))), nil
}

// LogRecord is one row of the module's conversion log.
type LogRecord struct {
	ID        int64  `json:"id,omitempty"`
	Status    Flag   `json:"status"`
	Timestamp string `json:"timestamp"`
	SourceIP  string `json:"source_ip"`
	FileName  string `json:"file_name"`
	FileExt   string `json:"file_ext"`
	ToPDF     Flag   `json:"to_pdf"`
}

// Timestamps come either as RFC 3339 or as SQLite CURRENT_TIMESTAMP (UTC).
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.000",
	"2006-01-02",
}

// ParseTimestamp parses a record timestamp in any of the accepted layouts.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}

// Time returns the parsed timestamp, or false when it cannot be parsed.
func (r LogRecord) Time() (time.Time, bool) {
	t, err := ParseTimestamp(r.Timestamp)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ModuleInfo identifies the admin module's service paths. The backend sends
// more fields than these; unknown ones are ignored.
type ModuleInfo struct {
	Name            string `json:"name,omitempty"`
	Version         string `json:"version,omitempty"`
	Summary         string `json:"summary,omitempty"`
	ServiceURI      string `json:"serviceURI"`
	AdminServiceURI string `json:"adminServiceURI"`
}
