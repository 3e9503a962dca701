package workflows

import (
	"context"
	"errors"
	"fmt"

	"github.com/PolarWolf314/rakau/internal/entrypath"
	kerrors "github.com/PolarWolf314/rakau/internal/errors"
	"github.com/PolarWolf314/rakau/internal/store"
	"github.com/PolarWolf314/rakau/internal/txn"
	"github.com/PolarWolf314/rakau/internal/versioning"
)

// MoveOptions configures the move workflow.
type MoveOptions struct {
	From string
	To   string

	// Force replaces existing entries at the destination.
	Force bool
}

// Moved is one entry that changed name.
type Moved struct {
	From, To entrypath.Path

	// Reencrypted is set when the destination has other recipients.
	Reencrypted bool
}

// MoveResult contains the outcome of a move operation.
type MoveResult struct {
	Moved   []Moved
	Files   []string
	Version versioning.Record
}

// Move renames an entry or a directory of entries. When To is an existing
// directory the source keeps its base name inside it.
//
// Returns ErrEntryNotFound if nothing exists at From.
// Returns ErrEntryExists if a destination exists and Force is not set.
// Returns ErrVersioningFailed if the move was applied but not recorded.
func Move(ctx context.Context, w *Wire, opts MoveOptions) (*MoveResult, error) {
	from, err := entrypath.Parse(opts.From)
	if err != nil {
		return nil, err
	}
	to, err := entrypath.ParsePrefix(opts.To)
	if err != nil {
		return nil, err
	}
	s, m, err := w.open()
	if err != nil {
		return nil, err
	}

	plan, err := planMove(ctx, s, from, to)
	if err != nil {
		return nil, err
	}
	if !opts.Force {
		for _, mv := range plan {
			if s.Exists(mv.To) && mv.To != mv.From {
				return nil, fmt.Errorf("%w: %s", kerrors.ErrEntryExists, mv.To)
			}
		}
	}

	tx := m.Begin()
	result := &MoveResult{}
	var stageErr error
	for _, mv := range plan {
		out, err := m.Stage(ctx, tx, txn.Move{From: mv.From, To: mv.To})
		result.Files = append(result.Files, out.Files...)
		if err != nil {
			stageErr = err
			break
		}
		if res, ok := out.Detail.(*store.MoveResult); ok {
			mv.Reencrypted = res.Reencrypted
		}
		result.Moved = append(result.Moved, mv)
	}
	if stageErr != nil && len(result.Files) == 0 {
		_, _ = m.Abort(tx)
		return nil, stageErr
	}

	rec, err := w.commit(ctx, m, tx, fmt.Sprintf("Rename %s to %s.", from, to))
	result.Version = rec
	err = errors.Join(stageErr, err)

	paths := make([]string, 0, 2*len(result.Moved))
	for _, mv := range result.Moved {
		paths = append(paths, mv.From.String(), mv.To.String())
	}
	w.logAudit("move", paths, tx, rec, err)
	return result, err
}

// planMove expands a move into single entry renames.
func planMove(ctx context.Context, s *store.Store, from, to entrypath.Path) ([]Moved, error) {
	if s.Exists(from) {
		if to.IsRoot() || (!s.Exists(to) && s.IsDir(to)) {
			to = to.Join(entrypath.MustParse(from.Base()))
		}
		return []Moved{{From: from, To: to}}, nil
	}
	if !s.IsDir(from) {
		return nil, fmt.Errorf("%w: %s", kerrors.ErrEntryNotFound, from)
	}

	// A directory lands inside an existing directory, or takes its name.
	if s.IsDir(to) {
		to = to.Join(entrypath.MustParse(from.Base()))
	}
	if to.HasPrefix(from) {
		return nil, fmt.Errorf("%w: cannot move %s into itself", kerrors.ErrInvalidEntryPath, from)
	}
	entries, err := s.Entries(ctx, from)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: nothing under %s", kerrors.ErrEntryNotFound, from)
	}
	plan := make([]Moved, 0, len(entries))
	for _, e := range entries {
		plan = append(plan, Moved{From: e, To: to.Join(e.Rel(from))})
	}
	return plan, nil
}
