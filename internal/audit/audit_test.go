package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTrail(t *testing.T) *Trail {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "nested", "audit.jsonl"))
}

func TestLog_CreatesFile(t *testing.T) {
	trail := newTrail(t)
	trail.Log(Entry{User: "alice", Operation: "insert", Paths: []string{"bank"}})

	info, err := os.Stat(trail.Path())
	if err != nil {
		t.Fatalf("Audit log file was not created: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected mode 0600, got %v", info.Mode().Perm())
	}
}

func TestLog_AppendsEntries(t *testing.T) {
	trail := newTrail(t)
	trail.Log(Entry{User: "alice", Operation: "insert"})
	trail.Log(Entry{User: "bob", Operation: "show"})
	trail.Log(Entry{User: "carol", Operation: "rm"})

	data, err := os.ReadFile(trail.Path())
	if err != nil {
		t.Fatalf("Failed to read audit log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Errorf("Expected 3 lines, got %d", len(lines))
	}
}

func TestLog_TimestampFormat(t *testing.T) {
	trail := newTrail(t)
	trail.Log(Entry{User: "alice", Operation: "insert"})

	entries, err := trail.ReadEntries()
	if err != nil {
		t.Fatalf("ReadEntries failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	ts := entries[0].Timestamp
	if !strings.HasSuffix(ts, "Z") || !strings.Contains(ts, ".") {
		t.Errorf("Timestamp should be UTC with microseconds, got %s", ts)
	}
	if _, err := ParseTimestamp(ts); err != nil {
		t.Errorf("ParseTimestamp(%q) failed: %v", ts, err)
	}
}

func TestLog_Disabled(t *testing.T) {
	trail := New("")
	trail.Log(Entry{Operation: "insert"})
	entries, err := trail.ReadEntries()
	if err != nil || entries != nil {
		t.Errorf("disabled trail returned %v, %v", entries, err)
	}
	var nilTrail *Trail
	if nilTrail.Enabled() {
		t.Errorf("nil trail should be disabled")
	}
}

func TestLog_UnwritableIsIgnored(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	// The parent is a regular file, so the log cannot be created.
	New(filepath.Join(blocker, "audit.jsonl")).Log(Entry{Operation: "insert"})
}

func TestNewEntry(t *testing.T) {
	e := NewEntry("insert", "/store")
	if e.Operation != "insert" || e.Store != "/store" {
		t.Errorf("unexpected entry %+v", e)
	}
	if e.User == "" {
		t.Errorf("User should be populated")
	}
}

func TestParseEntries_SkipsMalformed(t *testing.T) {
	good, _ := json.Marshal(Entry{User: "alice", Operation: "insert"})
	data := append(append([]byte{}, good...), []byte("\n{not json\n\n")...)
	data = append(data, good...)

	entries, err := ParseEntries(data)
	if err != nil {
		t.Fatalf("ParseEntries failed: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("Expected 2 entries, got %d", len(entries))
	}
}

func TestParseEntries_Empty(t *testing.T) {
	entries, err := ParseEntries(nil)
	if err != nil || entries != nil {
		t.Errorf("Expected nil, nil; got %v, %v", entries, err)
	}
}

func TestFilter(t *testing.T) {
	entries := []Entry{
		{Timestamp: "2024-01-01T10:00:00.000000Z", User: "alice", Operation: "insert", Paths: []string{"email/gmail"}},
		{Timestamp: "2024-01-02T10:00:00.000000Z", User: "bob", Operation: "show", Paths: []string{"bank"}},
		{Timestamp: "2024-01-03T10:00:00.000000Z", User: "Alice", Operation: "rm", Paths: []string{"emailold"}},
		{Timestamp: "2024-01-04T10:00:00.000000Z", User: "alice", Operation: "mv", Paths: []string{"email/a", "email/b"}},
		{Timestamp: "garbage", User: "alice", Operation: "insert"},
	}
	day := func(s string) time.Time {
		d, err := time.Parse("2006-01-02", s)
		if err != nil {
			t.Fatalf("bad date %s", s)
		}
		return d
	}

	tests := []struct {
		name  string
		query Query
		want  []string
	}{
		{"All", Query{}, []string{"insert", "show", "rm", "mv", "insert"}},
		{"UserIgnoresCase", Query{User: "ALICE"}, []string{"insert", "rm", "mv", "insert"}},
		{"Operations", Query{Operations: []string{" RM", "mv"}}, []string{"rm", "mv"}},
		{"PathIsSegmentAware", Query{Path: "email"}, []string{"insert", "mv"}},
		{"Since", Query{Since: day("2024-01-03")}, []string{"rm", "mv"}},
		{"Until", Query{Until: day("2024-01-02")}, []string{"insert"}},
		{"LimitKeepsNewest", Query{Limit: 2}, []string{"mv", "insert"}},
		{"Reverse", Query{Limit: 2, Reverse: true}, []string{"insert", "mv"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Filter(entries, tc.query)
			var ops []string
			for _, e := range got {
				ops = append(ops, e.Operation)
			}
			if strings.Join(ops, ",") != strings.Join(tc.want, ",") {
				t.Errorf("Filter = %v, want %v", ops, tc.want)
			}
		})
	}
}
