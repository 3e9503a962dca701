package workflows

import (
	"context"
	"fmt"

	"github.com/PolarWolf314/rakau/internal/entrypath"
	kerrors "github.com/PolarWolf314/rakau/internal/errors"
	"github.com/PolarWolf314/rakau/internal/store"
	"github.com/PolarWolf314/rakau/internal/txn"
	"github.com/PolarWolf314/rakau/internal/versioning"
)

// InsertOptions configures the insert workflow.
type InsertOptions struct {
	// Name is the entry to write.
	Name string

	// Secret is the plaintext to store.
	Secret []byte

	// Force replaces an existing entry.
	Force bool
}

// InsertResult contains the outcome of an insert operation.
type InsertResult struct {
	Path       entrypath.Path
	Recipients []string

	// Replaced is set when an existing entry was overwritten.
	Replaced bool

	Files   []string
	Version versioning.Record
}

// Insert encrypts a secret into the store.
//
// Returns ErrInvalidEntryPath if the name is not a valid entry name.
// Returns ErrEntryExists if the entry exists and Force is not set.
// Returns ErrIsDirectory if the name is a directory.
// Returns ErrNoRecipientsConfigured if no declaration governs the entry.
// Returns ErrVersioningFailed if the entry was written but not recorded.
func Insert(ctx context.Context, w *Wire, opts InsertOptions) (*InsertResult, error) {
	p, err := entrypath.Parse(opts.Name)
	if err != nil {
		return nil, err
	}
	s, m, err := w.open()
	if err != nil {
		return nil, err
	}

	exists := s.Exists(p)
	switch {
	case exists && !opts.Force:
		return nil, fmt.Errorf("%w: %s", kerrors.ErrEntryExists, p)
	case !exists && s.IsDir(p):
		return nil, fmt.Errorf("%w: %s", kerrors.ErrIsDirectory, p)
	}

	tx := m.Begin()
	out, err := m.Stage(ctx, tx, txn.Write{Path: p, Plaintext: opts.Secret})
	if err != nil {
		_, _ = m.Abort(tx)
		w.logAudit("insert", []string{p.String()}, tx, versioning.Record{}, err)
		return nil, err
	}

	result := &InsertResult{Path: p, Replaced: exists, Files: out.Files}
	if res, ok := out.Detail.(*store.WriteResult); ok {
		result.Recipients = res.Declaration.Recipients
	}
	result.Version, err = w.commit(ctx, m, tx, fmt.Sprintf("Add given password for %s to store.", p))
	w.logAudit("insert", []string{p.String()}, tx, result.Version, err)
	return result, err
}
