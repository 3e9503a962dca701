package audit

import (
	"strings"
	"time"
)

// Query selects audit entries. Zero fields match everything.
type Query struct {
	User       string
	Operations []string
	// Path keeps entries touching this entry name or anything below it.
	Path  string
	Since time.Time
	Until time.Time
	// Limit keeps the most recent entries. 0 means no limit.
	Limit int
	// Reverse orders entries from most recent to oldest.
	Reverse bool
}

// Filter applies q to entries, which are expected oldest first.
func Filter(entries []Entry, q Query) []Entry {
	ops := make(map[string]bool, len(q.Operations))
	for _, op := range q.Operations {
		if op = strings.ToLower(strings.TrimSpace(op)); op != "" {
			ops[op] = true
		}
	}

	var out []Entry
	for _, e := range entries {
		if q.User != "" && !strings.EqualFold(e.User, q.User) {
			continue
		}
		if len(ops) > 0 && !ops[strings.ToLower(e.Operation)] {
			continue
		}
		if q.Path != "" && !touches(e, q.Path) {
			continue
		}
		if !q.Since.IsZero() || !q.Until.IsZero() {
			t, err := ParseTimestamp(e.Timestamp)
			if err != nil {
				continue
			}
			if !q.Since.IsZero() && t.Before(q.Since) {
				continue
			}
			if !q.Until.IsZero() && t.After(q.Until) {
				continue
			}
		}
		out = append(out, e)
	}

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[len(out)-q.Limit:]
	}
	if q.Reverse {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}

func touches(e Entry, path string) bool {
	path = strings.Trim(path, "/")
	for _, p := range e.Paths {
		if p == path || strings.HasPrefix(p, path+"/") {
			return true
		}
	}
	return false
}
