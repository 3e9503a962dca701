package workflows

import (
	"context"

	"github.com/PolarWolf314/rakau/internal/versioning"
)

// DefaultCommitMessage records whatever changed since the last version.
const DefaultCommitMessage = "Add current contents of password store."

// CommitOptions configures the commit workflow.
type CommitOptions struct {
	Message string
}

// CommitResult contains the outcome of a commit operation.
type CommitResult struct {
	Backend string
	// Version is zero when there was nothing to record or versioning is
	// disabled.
	Version versioning.Record
}

// Commit records changes that were applied but never versioned, such as
// those left behind by a failed record.
//
// Returns ErrVersioningFailed if the backend could not record the change.
func Commit(ctx context.Context, w *Wire, opts CommitOptions) (*CommitResult, error) {
	msg := opts.Message
	if msg == "" {
		msg = DefaultCommitMessage
	}
	_, m, err := w.open()
	if err != nil {
		return nil, err
	}
	rec, err := m.CommitPending(ctx, msg)
	w.logAudit("commit", rec.Paths, nil, rec, err)
	if err != nil {
		return nil, err
	}
	return &CommitResult{Backend: w.Versioner.Name(), Version: rec}, nil
}

// HistoryOptions configures the history workflow.
type HistoryOptions struct {
	// Limit is the maximum number of records. 0 means no limit.
	Limit int
}

// HistoryResult lists version records, newest first.
type HistoryResult struct {
	Backend string
	Enabled bool
	Records []versioning.Record
}

// History lists the version records of the store.
func History(ctx context.Context, w *Wire, opts HistoryOptions) (*HistoryResult, error) {
	if _, err := w.Store(); err != nil {
		return nil, err
	}
	result := &HistoryResult{Backend: w.Versioner.Name(), Enabled: w.Versioner.Enabled(ctx)}
	if !result.Enabled {
		return result, nil
	}
	records, err := w.Versioner.History(ctx, opts.Limit)
	if err != nil {
		return nil, err
	}
	result.Records = records
	return result, nil
}
