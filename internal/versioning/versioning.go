package versioning

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Change is one batch of touched files to record.
type Change struct {
	Message string
	// Paths are slash separated and relative to the store root. An empty
	// list records every pending difference.
	Paths  []string
	Author string
	TxID   string
}

// Record is a stored version.
type Record struct {
	ID      string    `json:"id"`
	Message string    `json:"message"`
	Author  string    `json:"author"`
	Time    time.Time `json:"time"`
	Paths   []string  `json:"paths,omitempty"`
}

// IsZero reports whether r describes no recorded version.
func (r Record) IsZero() bool { return r.ID == "" }

// Versioner is the versioning service contract.
type Versioner interface {
	// Name identifies the backend in messages and configuration.
	Name() string
	// Enabled reports whether changes are recorded for the store.
	Enabled(ctx context.Context) bool
	// Init prepares the backend for the store root. It is idempotent.
	Init(ctx context.Context) error
	RecordChange(ctx context.Context, c Change) (Record, error)
	// History returns up to limit records, newest first. A limit of zero
	// or less returns everything.
	History(ctx context.Context, limit int) ([]Record, error)
}

// Backend names accepted by New.
const (
	BackendGit     = "git"
	BackendJournal = "journal"
	BackendNone    = "none"
)

// Options configures New.
type Options struct {
	Backend     string
	Root        string
	AuthorName  string
	AuthorEmail string
}

// New builds the Versioner named by opts.Backend. An empty backend selects
// git.
func New(opts Options) (Versioner, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case "", BackendGit:
		return NewGit(opts.Root, opts.AuthorName, opts.AuthorEmail), nil
	case BackendJournal:
		return NewJournal(opts.Root, ""), nil
	case BackendNone:
		return None{}, nil
	default:
		return nil, fmt.Errorf("unknown versioning backend %q", opts.Backend)
	}
}

// None disables versioning.
type None struct{}

func (None) Name() string { return BackendNone }

func (None) Enabled(context.Context) bool { return false }

func (None) Init(context.Context) error { return nil }

func (None) RecordChange(context.Context, Change) (Record, error) { return Record{}, nil }

func (None) History(context.Context, int) ([]Record, error) { return nil, nil }

func dedupePaths(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
