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

// ReencryptOptions configures the reencrypt workflow.
type ReencryptOptions struct {
	// Path is an entry or the directory of a scope. Empty means the root
	// scope.
	Path string

	// OnlyStale skips entries already sealed for their recipients.
	OnlyStale bool
}

// ReencryptResult contains the outcome of a reencrypt operation.
type ReencryptResult struct {
	Scope     entrypath.Path
	Converted []entrypath.Path
	Skipped   []entrypath.Path
	Files     []string
	Version   versioning.Record
}

// Reencrypt re-encrypts a scope for the recipients that govern it now.
// Entries converted before a failure are committed so that a second run
// with OnlyStale finishes the job.
//
// Returns a *ReencryptError if the run stopped part way.
// Returns ErrVersioningFailed if entries were converted but not recorded.
func Reencrypt(ctx context.Context, w *Wire, opts ReencryptOptions) (*ReencryptResult, error) {
	scope, err := entrypath.ParsePrefix(opts.Path)
	if err != nil {
		return nil, err
	}
	_, m, err := w.open()
	if err != nil {
		return nil, err
	}

	tx := m.Begin()
	out, stageErr := m.Stage(ctx, tx, txn.Reencrypt{Path: scope, OnlyStale: opts.OnlyStale})
	res, _ := out.Detail.(*store.ReencryptResult)
	if res == nil {
		_, _ = m.Abort(tx)
		return nil, stageErr
	}

	result := &ReencryptResult{
		Scope:     scope,
		Converted: res.Converted,
		Skipped:   res.Skipped,
		Files:     res.Files,
	}
	target := scope.String()
	if scope.IsRoot() {
		target = "password store"
	}
	msg := fmt.Sprintf("Reencrypt %s using new GPG id.", target)
	var rerr *kerrors.ReencryptError
	if errors.As(stageErr, &rerr) {
		msg = fmt.Sprintf("Reencrypt %s partially; stopped at %s.", target, rerr.Path)
	}

	rec, err := w.commit(ctx, m, tx, msg)
	result.Version = rec
	err = errors.Join(stageErr, err)

	w.logRecipients("reencrypt", scope, nil, len(result.Converted), tx, rec, err)
	return result, err
}
