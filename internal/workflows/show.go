package workflows

import (
	"context"
	"fmt"
	"slices"

	"github.com/PolarWolf314/rakau/internal/entrypath"
	kerrors "github.com/PolarWolf314/rakau/internal/errors"
	"github.com/PolarWolf314/rakau/internal/secrets"
	"github.com/PolarWolf314/rakau/internal/versioning"
)

// ShowOptions configures the show workflow.
type ShowOptions struct {
	// Name is an entry or a directory. Empty means the whole store.
	Name string

	// Field selects a named field from the entry body.
	Field string

	// Line selects a 1-based line. Line 1 is the password.
	Line int
}

// ShowResult contains the outcome of a show operation. Exactly one of
// Tree and Entry is populated.
type ShowResult struct {
	Path entrypath.Path

	// Tree holds the entries below Path, relative to it, when Path is a
	// directory.
	Tree []string

	Entry     *secrets.Entry
	Plaintext []byte

	// Value is the selected field or line, or the whole plaintext.
	Value string

	// Stale is set when the entry is sealed for recipients that no longer
	// govern it.
	Stale bool
}

// IsTree reports whether the result is a directory listing.
func (r *ShowResult) IsTree() bool { return r.Entry == nil }

// Show decrypts an entry, or lists a directory.
//
// Returns ErrEntryNotFound if nothing exists at the name.
// Returns ErrFieldNotFound if the requested field or line is absent.
// Returns ErrDecryptionFailed if no usable key is available.
func Show(ctx context.Context, w *Wire, opts ShowOptions) (*ShowResult, error) {
	p, err := entrypath.ParsePrefix(opts.Name)
	if err != nil {
		return nil, err
	}
	s, err := w.Store()
	if err != nil {
		return nil, err
	}

	if p.IsRoot() || (!s.Exists(p) && s.IsDir(p)) {
		entries, err := s.Entries(ctx, p)
		if err != nil {
			return nil, err
		}
		tree := make([]string, 0, len(entries))
		for _, e := range entries {
			tree = append(tree, e.Rel(p).String())
		}
		return &ShowResult{Path: p, Tree: tree}, nil
	}

	read, err := s.Read(ctx, p)
	if err != nil {
		w.logAudit("show", []string{p.String()}, nil, versioning.Record{}, err)
		return nil, err
	}
	w.logAudit("show", []string{p.String()}, nil, versioning.Record{}, nil)
	if read.Stale {
		w.Log.Warnf("%s is encrypted for stale recipients; run reencrypt", p)
	}

	entry := secrets.Parse(read.Plaintext)
	result := &ShowResult{
		Path:      p,
		Entry:     &entry,
		Plaintext: read.Plaintext,
		Value:     string(read.Plaintext),
		Stale:     read.Stale,
	}

	switch {
	case opts.Field != "":
		v, ok := entry.Field(opts.Field)
		if !ok {
			return nil, fmt.Errorf("%w: %s has no field %q (fields: %v)", kerrors.ErrFieldNotFound, p, opts.Field, slices.Sorted(slices.Values(entry.Keys())))
		}
		result.Value = v
	case opts.Line > 0:
		v, ok := entry.Line(opts.Line)
		if !ok {
			return nil, fmt.Errorf("%w: %s has %d line(s)", kerrors.ErrFieldNotFound, p, entry.Lines())
		}
		result.Value = v
	}
	return result, nil
}
