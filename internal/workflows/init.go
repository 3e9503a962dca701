package workflows

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PolarWolf314/rakau/internal/entrypath"
	kerrors "github.com/PolarWolf314/rakau/internal/errors"
	"github.com/PolarWolf314/rakau/internal/store"
	"github.com/PolarWolf314/rakau/internal/txn"
	"github.com/PolarWolf314/rakau/internal/versioning"
)

// InitOptions configures the init workflow.
type InitOptions struct {
	// Recipients are the key ids the scope is encrypted for. An empty list
	// with a Subfolder removes that subfolder's declaration.
	Recipients []string

	// Subfolder declares recipients for a directory inside the store
	// instead of the store root.
	Subfolder string

	// Reinitialize replaces the root declaration of an existing store and
	// re-encrypts everything it governs.
	Reinitialize bool
}

// InitResult contains the outcome of an init operation.
type InitResult struct {
	Root       string
	Scope      entrypath.Path
	Recipients []string

	// Created is set when a new store was bootstrapped.
	Created bool

	// Reencrypted lists entries converted for the new recipients.
	Reencrypted []entrypath.Path

	// Files are the root-relative files that changed.
	Files   []string
	Version versioning.Record
}

// Init bootstraps a store, or changes the recipients of an existing scope.
//
// Returns ErrAlreadyInitialized if the store root already has recipients
// and neither Subfolder nor Reinitialize is set.
// Returns ErrNoRecipientsConfigured if no recipients are given for the root.
// Returns ErrStoreNotInitialized if Subfolder is set on a store without a
// root declaration.
// Returns ErrVersioningFailed if the change was applied but not recorded.
func Init(ctx context.Context, w *Wire, opts InitOptions) (*InitResult, error) {
	scope, err := entrypath.ParsePrefix(opts.Subfolder)
	if err != nil {
		return nil, err
	}
	if !scope.IsRoot() || opts.Reinitialize {
		return setRecipients(ctx, w, scope, opts.Recipients)
	}

	w.Log.Infof("Initializing store at %s", w.Root())
	created, err := store.Init(ctx, w.Root(), opts.Recipients, w.Codec)
	if err != nil {
		return nil, err
	}
	result := &InitResult{
		Root:       created.Root,
		Scope:      entrypath.Root,
		Recipients: created.Recipients,
		Created:    true,
		Files:      created.Files,
	}
	if err := w.Versioner.Init(ctx); err != nil {
		err = fmt.Errorf("%w: %w", kerrors.ErrVersioningFailed, err)
		w.logRecipients("init", entrypath.Root, result.Recipients, 0, nil, versioning.Record{}, err)
		return result, err
	}
	if w.Versioner.Name() == versioning.BackendGit {
		result.Files = append(result.Files, ".gitattributes")
	}

	_, m, err := w.open()
	if err != nil {
		return nil, err
	}
	tx := m.Begin()
	if err := m.Touch(tx, result.Files...); err != nil {
		return nil, err
	}
	msg := fmt.Sprintf("Set GPG id to %s.", strings.Join(created.Recipients, ", "))
	result.Version, err = w.commit(ctx, m, tx, msg)
	w.logRecipients("init", entrypath.Root, result.Recipients, 0, tx, result.Version, err)
	return result, err
}

// setRecipients stages a declaration change for scope.
func setRecipients(ctx context.Context, w *Wire, scope entrypath.Path, ids []string) (*InitResult, error) {
	s, m, err := w.open()
	if err != nil {
		return nil, err
	}
	tx := m.Begin()
	out, stageErr := m.Stage(ctx, tx, txn.SetRecipients{Dir: scope, Recipients: ids})

	result := &InitResult{Root: s.Root(), Scope: scope, Files: out.Files, Reencrypted: out.Entries}
	if res, ok := out.Detail.(*store.SetRecipientsResult); ok {
		result.Recipients = res.Recipients
	}
	if stageErr != nil && len(out.Files) == 0 {
		_, _ = m.Abort(tx)
		return nil, stageErr
	}

	var msg string
	switch {
	case len(result.Recipients) == 0:
		msg = fmt.Sprintf("Deinitialize %s.", scope)
	case scope.IsRoot():
		msg = fmt.Sprintf("Set GPG id to %s.", strings.Join(result.Recipients, ", "))
	default:
		msg = fmt.Sprintf("Set GPG id to %s (%s).", strings.Join(result.Recipients, ", "), scope)
	}
	if stageErr != nil {
		msg = fmt.Sprintf("%s Re-encryption stopped at an error.", msg)
	}

	rec, err := w.commit(ctx, m, tx, msg)
	result.Version = rec
	err = errors.Join(stageErr, err)
	w.logRecipients("init", scope, result.Recipients, len(result.Reencrypted), tx, rec, err)
	return result, err
}
