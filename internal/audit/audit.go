package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/PolarWolf314/rakau/internal/utils"
)

// TimestampFormat is the layout of Entry.Timestamp.
const TimestampFormat = "2006-01-02T15:04:05.000000Z"

// Entry represents a single audit log entry.
type Entry struct {
	Timestamp string `json:"ts"`   // RFC3339 with microseconds.
	User      string `json:"user"` // Login name of the user performing the action.
	Host      string `json:"host,omitempty"`
	Operation string `json:"op"` // Operation name.
	Store     string `json:"store"`

	// Optional fields depending on operation.
	Paths      []string `json:"paths,omitempty"`      // Entry names touched.
	Recipients []string `json:"recipients,omitempty"` // For init and recipient changes.
	Count      int      `json:"count,omitempty"`      // For reencrypt and recursive removal.
	TxID       string   `json:"tx,omitempty"`         // Transaction that applied the change.
	Version    string   `json:"version,omitempty"`    // Version record id, when recorded.
	Error      string   `json:"error,omitempty"`      // Set when the operation failed part way.
}

// Trail appends entries to one JSON Lines file.
type Trail struct {
	path string
}

// New returns a trail writing to path. An empty path disables it.
func New(path string) *Trail {
	return &Trail{path: path}
}

// Path returns the log location, or "" when disabled.
func (t *Trail) Path() string {
	if t == nil {
		return ""
	}
	return t.path
}

// Enabled reports whether entries are written.
func (t *Trail) Enabled() bool { return t.Path() != "" }

// NewEntry returns an entry for op with user fields populated.
func NewEntry(op, store string) Entry {
	entry := Entry{Operation: op, Store: store, User: utils.CurrentUser()}
	if host, err := utils.GetHostname(); err == nil {
		entry.Host = host
	}
	return entry
}

// Log appends an entry to the audit log.
// If logging fails it is silently skipped. Operations should not fail just
// because audit logging failed.
func (t *Trail) Log(entry Entry) {
	if !t.Enabled() {
		return
	}
	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format(TimestampFormat)
	}

	if err := os.MkdirAll(filepath.Dir(t.path), 0700); err != nil {
		return
	}
	f, err := os.OpenFile(t.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return
	}
	defer f.Close()

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	_, _ = f.Write(append(data, '\n'))
}

// ReadEntries reads all entries from the audit log.
// Returns an empty slice if the log doesn't exist.
func (t *Trail) ReadEntries() ([]Entry, error) {
	if !t.Enabled() {
		return nil, nil
	}
	data, err := os.ReadFile(t.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return ParseEntries(data)
}

// ParseEntries parses JSON Lines data into audit entries.
// Malformed lines are silently skipped.
func ParseEntries(data []byte) ([]Entry, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var entries []Entry
	start := 0

	for i := 0; i <= len(data); i++ {
		if i == len(data) || data[i] == '\n' {
			line := data[start:i]
			start = i + 1

			if len(line) == 0 {
				continue
			}

			var entry Entry
			if err := json.Unmarshal(line, &entry); err != nil {
				// Skip malformed entries.
				continue
			}
			entries = append(entries, entry)
		}
	}

	return entries, nil
}

// ParseTimestamp reads an entry timestamp in either supported layout.
func ParseTimestamp(ts string) (time.Time, error) {
	t, err := time.Parse(TimestampFormat, ts)
	if err != nil {
		t, err = time.Parse(time.RFC3339, ts)
	}
	return t, err
}
