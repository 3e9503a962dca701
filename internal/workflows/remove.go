package workflows

import (
	"context"
	"errors"
	"fmt"

	"github.com/PolarWolf314/rakau/internal/entrypath"
	kerrors "github.com/PolarWolf314/rakau/internal/errors"
	"github.com/PolarWolf314/rakau/internal/txn"
	"github.com/PolarWolf314/rakau/internal/versioning"
)

// RemoveOptions configures the remove workflow.
type RemoveOptions struct {
	Name string

	// Recursive removes every entry below a directory.
	Recursive bool
}

// RemoveResult contains the outcome of a remove operation.
type RemoveResult struct {
	Removed []entrypath.Path
	Files   []string
	Version versioning.Record
}

// Remove deletes an entry, or a directory of entries when Recursive is set.
//
// Returns ErrEntryNotFound if nothing exists at the name.
// Returns ErrIsDirectory if the name is a directory and Recursive is not set.
// Returns ErrVersioningFailed if the removal was applied but not recorded.
func Remove(ctx context.Context, w *Wire, opts RemoveOptions) (*RemoveResult, error) {
	p, err := entrypath.Parse(opts.Name)
	if err != nil {
		return nil, err
	}
	s, m, err := w.open()
	if err != nil {
		return nil, err
	}
	if !opts.Recursive && !s.Exists(p) && s.IsDir(p) {
		return nil, fmt.Errorf("%w: %s; remove it recursively", kerrors.ErrIsDirectory, p)
	}

	tx := m.Begin()
	out, stageErr := m.Stage(ctx, tx, txn.Remove{Path: p, Recursive: opts.Recursive})
	if stageErr != nil && len(out.Files) == 0 {
		_, _ = m.Abort(tx)
		return nil, stageErr
	}

	result := &RemoveResult{Removed: out.Entries, Files: out.Files}
	rec, err := w.commit(ctx, m, tx, fmt.Sprintf("Remove %s from store.", p))
	result.Version = rec
	err = errors.Join(stageErr, err)

	w.logAudit("remove", pathStrings(result.Removed), tx, rec, err)
	return result, err
}

func pathStrings(paths []entrypath.Path) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		out = append(out, p.String())
	}
	return out
}
