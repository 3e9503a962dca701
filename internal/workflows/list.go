package workflows

import (
	"context"
	"iter"
	"slices"
	"strings"

	"github.com/PolarWolf314/rakau/internal/entrypath"
)

// ListOptions configures the list workflow.
type ListOptions struct {
	// Prefix restricts the listing to a directory or a single entry.
	Prefix string
}

// ListResult contains the sorted entry names found.
type ListResult struct {
	Prefix  entrypath.Path
	Entries []entrypath.Path
}

// Names returns the entry names as strings.
func (r *ListResult) Names() []string {
	return pathStrings(r.Entries)
}

// List enumerates the entries under a prefix.
//
// Returns ErrInvalidEntryPath if the prefix is not a valid name.
// Returns ErrStoreNotInitialized if the store does not exist.
func List(ctx context.Context, w *Wire, opts ListOptions) (*ListResult, error) {
	prefix, err := entrypath.ParsePrefix(opts.Prefix)
	if err != nil {
		return nil, err
	}
	s, err := w.Store()
	if err != nil {
		return nil, err
	}
	seq, err := s.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	return &ListResult{Prefix: prefix, Entries: slices.Collect(seq)}, nil
}

// FindOptions configures the find workflow.
type FindOptions struct {
	// Terms are matched against entry names. A single term holding glob
	// meta characters is a pattern over full names; otherwise an entry
	// matches when its name contains any term, ignoring case.
	Terms []string
}

// Find searches entry names.
//
// Returns ErrInvalidPattern if a pattern does not compile.
func Find(ctx context.Context, w *Wire, opts FindOptions) (*ListResult, error) {
	s, err := w.Store()
	if err != nil {
		return nil, err
	}

	var seq iter.Seq[entrypath.Path]
	if len(opts.Terms) == 1 {
		seq, err = s.Search(ctx, strings.TrimSpace(opts.Terms[0]))
	} else {
		seq, err = s.Find(ctx, opts.Terms...)
	}
	if err != nil {
		return nil, err
	}
	return &ListResult{Prefix: entrypath.Root, Entries: slices.Collect(seq)}, nil
}
