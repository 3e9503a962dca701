package txn

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	kerrors "github.com/PolarWolf314/rakau/internal/errors"
	logger "github.com/PolarWolf314/rakau/internal/logging"
	"github.com/PolarWolf314/rakau/internal/store"
	"github.com/PolarWolf314/rakau/internal/versioning"
	"github.com/google/uuid"
)

// Transaction collects the files touched by staged mutations.
type Transaction struct {
	ID      string
	Started time.Time

	mu        sync.Mutex
	closed    bool
	files     []string
	seen      map[string]bool
	mutations []string
}

// Files returns the touched root-relative files in first-touch order.
func (t *Transaction) Files() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.files)
}

// Mutations returns descriptions of the staged mutations.
func (t *Transaction) Mutations() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.mutations)
}

// Closed reports whether the transaction was committed or aborted.
func (t *Transaction) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func (t *Transaction) touch(files []string) {
	for _, f := range files {
		if f == "" || t.seen[f] {
			continue
		}
		t.seen[f] = true
		t.files = append(t.files, f)
	}
}

// Options configures a Manager.
type Options struct {
	Store     *store.Store
	Versioner versioning.Versioner
	Log       logger.Logger
	// Author is recorded with every change. Backends fall back to their
	// own notion of identity when it is empty.
	Author string
}

// Manager runs transactions against one store.
type Manager struct {
	store     *store.Store
	versioner versioning.Versioner
	log       logger.Logger
	author    string
	now       func() time.Time
}

// NewManager returns a Manager. A nil Versioner disables versioning.
func NewManager(opts Options) *Manager {
	v := opts.Versioner
	if v == nil {
		v = versioning.None{}
	}
	return &Manager{
		store:     opts.Store,
		versioner: v,
		log:       opts.Log,
		author:    opts.Author,
		now:       time.Now,
	}
}

// Versioner returns the versioning backend.
func (m *Manager) Versioner() versioning.Versioner { return m.versioner }

// Begin opens a transaction.
func (m *Manager) Begin() *Transaction {
	tx := &Transaction{
		ID:      uuid.NewString(),
		Started: m.now(),
		seen:    map[string]bool{},
	}
	m.log.Debugf("Began transaction %s", tx.ID)
	return tx
}

// Stage applies mut to the store and records the files it touched. Files
// touched before a partial failure are recorded too.
//
// Returns ErrTransactionClosed if tx was committed or aborted.
func (m *Manager) Stage(ctx context.Context, tx *Transaction, mut Mutation) (Outcome, error) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.closed {
		return Outcome{}, fmt.Errorf("%w: %s", kerrors.ErrTransactionClosed, tx.ID)
	}

	out, err := mut.apply(ctx, m.store)
	tx.touch(out.Files)
	if len(out.Files) > 0 {
		tx.mutations = append(tx.mutations, mut.Describe())
	}
	if err != nil {
		return out, err
	}
	m.log.Debugf("Staged %s in transaction %s", mut.Describe(), tx.ID)
	return out, nil
}

// Touch adds files changed outside the store, such as backend
// configuration, to tx.
func (m *Manager) Touch(tx *Transaction, files ...string) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.closed {
		return fmt.Errorf("%w: %s", kerrors.ErrTransactionClosed, tx.ID)
	}
	tx.touch(files)
	return nil
}

// Commit records the files touched by tx as one version and closes it. An
// empty transaction, or one against a store that is not versioned, closes
// without a record.
//
// Returns ErrVersioningFailed if the backend could not record the change;
// tx then stays open and Commit may be retried.
func (m *Manager) Commit(ctx context.Context, tx *Transaction, message string) (versioning.Record, error) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.closed {
		return versioning.Record{}, fmt.Errorf("%w: %s", kerrors.ErrTransactionClosed, tx.ID)
	}
	if len(tx.files) == 0 {
		tx.closed = true
		m.log.Debugf("Transaction %s touched nothing", tx.ID)
		return versioning.Record{}, nil
	}
	if !m.versioner.Enabled(ctx) {
		tx.closed = true
		m.log.Debugf("Versioning is disabled; transaction %s closed without a record", tx.ID)
		return versioning.Record{}, nil
	}

	rec, err := m.versioner.RecordChange(ctx, versioning.Change{
		Message: message,
		Paths:   slices.Clone(tx.files),
		Author:  m.author,
		TxID:    tx.ID,
	})
	if err != nil {
		m.log.Errorf("Recording transaction %s failed: %v", tx.ID, err)
		return versioning.Record{}, fmt.Errorf("%w: %w", kerrors.ErrVersioningFailed, err)
	}
	tx.closed = true
	m.log.Infof("Recorded %s version %s", m.versioner.Name(), rec.ID)
	return rec, nil
}

// Abort closes tx without recording anything. The returned files were
// already changed on disk.
func (m *Manager) Abort(tx *Transaction) ([]string, error) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.closed {
		return nil, fmt.Errorf("%w: %s", kerrors.ErrTransactionClosed, tx.ID)
	}
	tx.closed = true
	if len(tx.files) > 0 {
		m.log.Warnf("Aborted transaction %s after changing %d file(s)", tx.ID, len(tx.files))
	}
	return slices.Clone(tx.files), nil
}

// CommitPending records every change not yet versioned, for recovery after
// a failed Commit whose transaction was lost.
//
// Returns ErrVersioningFailed if the backend could not record the change.
func (m *Manager) CommitPending(ctx context.Context, message string) (versioning.Record, error) {
	if !m.versioner.Enabled(ctx) {
		return versioning.Record{}, nil
	}
	rec, err := m.versioner.RecordChange(ctx, versioning.Change{Message: message, Author: m.author})
	if err != nil {
		return versioning.Record{}, fmt.Errorf("%w: %w", kerrors.ErrVersioningFailed, err)
	}
	return rec, nil
}
