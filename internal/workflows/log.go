package workflows

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PolarWolf314/rakau/internal/audit"
	kerrors "github.com/PolarWolf314/rakau/internal/errors"
)

// AuditLogOptions configures the audit log workflow.
type AuditLogOptions struct {
	// Limit is the maximum number of entries to return. 0 means no limit.
	Limit int

	// Reverse orders entries from most recent to oldest when true.
	Reverse bool

	// User filters entries by login name.
	User string

	// Operations filters entries by operation types (comma-separated).
	Operations string

	// Path keeps entries touching this entry or directory.
	Path string

	// Since filters entries after this date (YYYY-MM-DD format).
	Since string

	// Until filters entries before this date (YYYY-MM-DD format).
	Until string
}

// AuditLogResult contains the outcome of an audit log query.
type AuditLogResult struct {
	// Path is the audit log file, or "" when auditing is disabled.
	Path string

	// Entries are the filtered audit log entries.
	Entries []audit.Entry

	// TotalEntriesBeforeFilter is the count of entries before filtering.
	TotalEntriesBeforeFilter int
}

// AuditLog reads and filters the audit trail.
//
// Returns ErrInvalidConfig if a date is not in YYYY-MM-DD format.
func AuditLog(ctx context.Context, w *Wire, opts AuditLogOptions) (*AuditLogResult, error) {
	q := audit.Query{
		User:    opts.User,
		Path:    strings.Trim(opts.Path, "/"),
		Limit:   opts.Limit,
		Reverse: opts.Reverse,
	}
	if opts.Operations != "" {
		q.Operations = strings.Split(opts.Operations, ",")
	}

	var err error
	if opts.Since != "" {
		if q.Since, err = time.Parse(time.DateOnly, opts.Since); err != nil {
			return nil, fmt.Errorf("%w: --since date format invalid, use YYYY-MM-DD", kerrors.ErrInvalidConfig)
		}
	}
	if opts.Until != "" {
		if q.Until, err = time.Parse(time.DateOnly, opts.Until); err != nil {
			return nil, fmt.Errorf("%w: --until date format invalid, use YYYY-MM-DD", kerrors.ErrInvalidConfig)
		}
		// Include the entire day.
		q.Until = q.Until.Add(24*time.Hour - time.Nanosecond)
	}

	result := &AuditLogResult{Path: w.Audit.Path()}
	if !w.Audit.Enabled() {
		return result, nil
	}
	entries, err := w.Audit.ReadEntries()
	if err != nil {
		return nil, fmt.Errorf("reading audit log: %w", err)
	}
	result.TotalEntriesBeforeFilter = len(entries)
	result.Entries = audit.Filter(entries, q)
	return result, nil
}

// FormatDateTime formats a timestamp string to YYYY-MM-DD HH:MM:SS format.
func FormatDateTime(ts string) string {
	t, err := audit.ParseTimestamp(ts)
	if err != nil {
		if len(ts) >= 19 {
			return ts[:19]
		}
		return ts
	}
	return t.Local().Format(time.DateTime)
}

// FormatDetails summarises what an audit entry touched.
func FormatDetails(e audit.Entry) string {
	var parts []string
	switch {
	case len(e.Paths) > 3:
		parts = append(parts, fmt.Sprintf("%d entries", len(e.Paths)))
	case len(e.Paths) > 0:
		parts = append(parts, strings.Join(e.Paths, ", "))
	}
	if len(e.Recipients) > 0 {
		parts = append(parts, "for "+strings.Join(e.Recipients, ", "))
	}
	if e.Count > 0 {
		parts = append(parts, fmt.Sprintf("%d converted", e.Count))
	}
	if e.Version != "" {
		v := e.Version
		if len(v) > 12 {
			v = v[:12]
		}
		parts = append(parts, "@"+v)
	}
	if e.Error != "" {
		parts = append(parts, "failed: "+e.Error)
	}
	return strings.Join(parts, " ")
}
