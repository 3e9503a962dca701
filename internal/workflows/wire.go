package workflows

import (
	"context"
	"fmt"
	"io"

	"github.com/PolarWolf314/rakau/internal/audit"
	"github.com/PolarWolf314/rakau/internal/cipher/gpg"
	"github.com/PolarWolf314/rakau/internal/cipher/native"
	"github.com/PolarWolf314/rakau/internal/codec"
	"github.com/PolarWolf314/rakau/internal/configs"
	"github.com/PolarWolf314/rakau/internal/entrypath"
	logger "github.com/PolarWolf314/rakau/internal/logging"
	"github.com/PolarWolf314/rakau/internal/store"
	"github.com/PolarWolf314/rakau/internal/txn"
	"github.com/PolarWolf314/rakau/internal/utils"
	"github.com/PolarWolf314/rakau/internal/versioning"
)

// CipherService is a cipher that can also sign.
type CipherService interface {
	codec.Cipher
	codec.Signer
}

// WireOptions configures NewWire.
type WireOptions struct {
	Settings *configs.Settings
	Log      logger.Logger
	// Cipher replaces the backend named in Settings.
	Cipher CipherService
	// Passphrase unlocks sealed native keys. Nil prompts on the terminal.
	Passphrase native.PassphraseFunc
}

// Wire holds the services every workflow needs.
type Wire struct {
	Settings *configs.Settings
	Log      logger.Logger
	Cipher   CipherService

	// CipherBackend names the backend behind Cipher, or "custom" when one
	// was supplied through WireOptions.
	CipherBackend string

	Codec     *codec.Adapter
	Versioner versioning.Versioner
	Audit     *audit.Trail
}

// NewWire builds the services described by opts.Settings. Nothing touches
// the store until a workflow runs.
func NewWire(opts WireOptions) (*Wire, error) {
	s := opts.Settings
	if s == nil {
		return nil, opts.Log.ErrorfAndReturn("workflows: settings are required")
	}

	c, backend := opts.Cipher, "custom"
	if c == nil {
		backend = s.CipherBackend
		switch s.CipherBackend {
		case configs.CipherNative:
			passphrase := opts.Passphrase
			if passphrase == nil {
				passphrase = func(id string) ([]byte, error) {
					prompt := fmt.Sprintf("Passphrase for key %s: ", id)
					if !utils.IsTerminal() {
						// stdin carries the secret for insert --multiline.
						return utils.ReadPassphraseFromTTY(prompt)
					}
					return utils.ReadPassphrase(prompt)
				}
			}
			c = native.New(s.KeyringDir, passphrase)
		default:
			backend = configs.CipherGPG
			c = gpg.New(s.GPGExecutable, s.GPGOpts)
		}
	}

	var codecOpts []codec.Option
	if s.SigningKey != "" {
		codecOpts = append(codecOpts, codec.WithSigning(c, s.SigningKey))
	}

	v, err := versioning.New(versioning.Options{
		Backend:     s.VersioningBackend,
		Root:        s.StoreDir,
		AuthorName:  s.AuthorName,
		AuthorEmail: s.AuthorEmail,
	})
	if err != nil {
		return nil, err
	}

	opts.Log.Debugf("Wired store %s with %s cipher and %s versioning", s.StoreDir, backend, v.Name())
	return &Wire{
		Settings:      s,
		Log:           opts.Log,
		Cipher:        c,
		CipherBackend: backend,
		Codec:         codec.New(c, codecOpts...),
		Versioner:     v,
		Audit:         audit.New(s.AuditPath),
	}, nil
}

// Root returns the configured store root.
func (w *Wire) Root() string { return w.Settings.StoreDir }

// Store opens the configured store.
//
// Returns ErrStoreNotInitialized if it has not been initialised.
func (w *Wire) Store() (*store.Store, error) {
	return store.New(store.Options{
		Root:          w.Settings.StoreDir,
		Codec:         w.Codec,
		Log:           w.Log,
		KeepEmptyDirs: w.Settings.KeepEmptyDirs,
	})
}

// Manager returns a transaction manager for s.
func (w *Wire) Manager(s *store.Store) *txn.Manager {
	return txn.NewManager(txn.Options{
		Store:     s,
		Versioner: w.Versioner,
		Log:       w.Log,
		Author:    w.author(),
	})
}

func (w *Wire) author() string {
	if w.Settings.AuthorName == "" {
		return utils.CurrentUser()
	}
	if w.Settings.AuthorEmail == "" {
		return w.Settings.AuthorName
	}
	return fmt.Sprintf("%s <%s>", w.Settings.AuthorName, w.Settings.AuthorEmail)
}

// Close releases backend resources.
func (w *Wire) Close() error {
	if c, ok := w.Versioner.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// open returns the store and a transaction manager for it.
func (w *Wire) open() (*store.Store, *txn.Manager, error) {
	s, err := w.Store()
	if err != nil {
		return nil, nil, err
	}
	return s, w.Manager(s), nil
}

// logAudit records op with the outcome of a committed transaction.
func (w *Wire) logAudit(op string, paths []string, tx *txn.Transaction, rec versioning.Record, opErr error) {
	entry := audit.NewEntry(op, w.Root())
	entry.Paths = paths
	if tx != nil {
		entry.TxID = tx.ID
	}
	entry.Version = rec.ID
	if opErr != nil {
		entry.Error = opErr.Error()
	}
	w.Audit.Log(entry)
}

// logRecipients records a declaration change.
func (w *Wire) logRecipients(op string, scope entrypath.Path, ids []string, count int, tx *txn.Transaction, rec versioning.Record, opErr error) {
	entry := audit.NewEntry(op, w.Root())
	entry.Paths = []string{scope.String()}
	entry.Recipients = ids
	entry.Count = count
	if tx != nil {
		entry.TxID = tx.ID
	}
	entry.Version = rec.ID
	if opErr != nil {
		entry.Error = opErr.Error()
	}
	w.Audit.Log(entry)
}

// commit records tx with msg. A failed record leaves the change on disk
// and is reported as ErrVersioningFailed.
func (w *Wire) commit(ctx context.Context, m *txn.Manager, tx *txn.Transaction, msg string) (versioning.Record, error) {
	rec, err := m.Commit(ctx, tx, msg)
	if err != nil {
		w.Log.Warnf("Transaction %s was applied but not versioned: %v", tx.ID, err)
		return versioning.Record{}, err
	}
	return rec, nil
}
