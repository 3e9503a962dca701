package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/PolarWolf314/rakau/internal/codec"
	"github.com/PolarWolf314/rakau/internal/entrypath"
	kerrors "github.com/PolarWolf314/rakau/internal/errors"
	"github.com/PolarWolf314/rakau/internal/recipients"
)

// ReadResult is a decrypted entry.
type ReadResult struct {
	Path      entrypath.Path
	Plaintext []byte
	// Declaration governs the entry now; it may differ from the recipients
	// the entry was sealed for.
	Declaration recipients.Declaration
	Meta        *codec.Metadata
	// Stale is set when the entry was not sealed for Declaration.
	Stale bool
}

// Read decrypts the entry at p.
//
// Returns ErrEntryNotFound if no entry exists at p, ErrDecryptionFailed or
// ErrDecryptionUnavailable if the cipher service cannot open it.
func (s *Store) Read(ctx context.Context, p entrypath.Path) (*ReadResult, error) {
	env, err := s.loadEnvelope(p)
	if err != nil {
		return nil, err
	}
	pt, err := s.codec.Open(ctx, env)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", p, err)
	}

	res := &ReadResult{Path: p, Plaintext: pt, Meta: env.Meta, Stale: true}
	decl, err := s.resolver.Resolve(p)
	switch {
	case err == nil:
		res.Declaration = decl
		res.Stale = env.Stale(decl)
	case errors.Is(err, kerrors.ErrNoRecipientsConfigured):
		s.log.Warnf("No recipients govern %s", p)
	default:
		return nil, err
	}
	return res, nil
}

// WriteResult describes a stored entry.
type WriteResult struct {
	Path        entrypath.Path
	Declaration recipients.Declaration
	// Files are the root-relative files that changed.
	Files []string
}

// Write encrypts plaintext for the recipients governing p and stores it,
// replacing any existing entry. Intermediate directories are created.
//
// Returns ErrNoRecipientsConfigured if no declaration governs p and
// ErrEncryptionFailed if the cipher service rejects the recipients. On any
// error the previous entry, if there was one, is left unchanged.
func (s *Store) Write(ctx context.Context, p entrypath.Path, plaintext []byte) (*WriteResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer s.lockPaths(p)()
	return s.write(ctx, p, plaintext)
}

func (s *Store) write(ctx context.Context, p entrypath.Path, plaintext []byte) (*WriteResult, error) {
	if _, _, err := s.files(p); err != nil {
		return nil, err
	}
	decl, err := s.resolver.Resolve(p)
	if err != nil {
		return nil, err
	}
	env, err := s.codec.Seal(ctx, plaintext, decl)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt %s: %w", p, err)
	}
	files, err := s.storeEnvelope(p, env)
	if err != nil {
		return nil, err
	}
	s.log.Debugf("Wrote %s for %d recipient(s)", p, len(decl.Recipients))
	return &WriteResult{Path: p, Declaration: decl, Files: files}, nil
}

// RemoveResult lists what a removal deleted.
type RemoveResult struct {
	Removed []entrypath.Path
	Files   []string
}

// Remove deletes the entry at p and its metadata, then prunes directories
// left empty.
//
// Returns ErrEntryNotFound if no entry exists at p.
func (s *Store) Remove(ctx context.Context, p entrypath.Path) (*RemoveResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer s.lockPaths(p)()
	files, err := s.remove(p)
	if err != nil {
		return nil, err
	}
	return &RemoveResult{Removed: []entrypath.Path{p}, Files: files}, nil
}

func (s *Store) remove(p entrypath.Path) ([]string, error) {
	file, metaFile, err := s.files(p)
	if err != nil {
		return nil, err
	}
	if err := os.Remove(file); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", kerrors.ErrEntryNotFound, p)
		}
		return nil, fmt.Errorf("failed to remove %s: %w", p, err)
	}
	if err := os.Remove(metaFile); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to remove metadata for %s: %w", p, err)
	}
	if err := s.prune(filepath.Dir(file)); err != nil {
		s.log.Warnf("Failed to prune empty directories above %s: %v", p, err)
	}
	s.log.Debugf("Removed %s", p)
	return []string{s.rel(file), s.rel(metaFile)}, nil
}

// RemoveTree deletes every entry at or below prefix.
//
// Returns ErrEntryNotFound if nothing matched.
func (s *Store) RemoveTree(ctx context.Context, prefix entrypath.Path) (*RemoveResult, error) {
	seq, err := s.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	res := &RemoveResult{}
	for p := range seq {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		unlock := s.lockPaths(p)
		files, err := s.remove(p)
		unlock()
		if err != nil {
			return res, err
		}
		res.Removed = append(res.Removed, p)
		res.Files = append(res.Files, files...)
	}
	if len(res.Removed) == 0 {
		return nil, fmt.Errorf("%w: nothing under %q", kerrors.ErrEntryNotFound, prefix.String())
	}
	return res, nil
}

// MoveResult describes a move.
type MoveResult struct {
	From, To entrypath.Path
	// Reencrypted is set when the destination needed other recipients.
	Reencrypted bool
	Files       []string
}

// Move renames the entry at from to to, replacing any entry at to. When
// to is governed by the recipients from was sealed for, the files are
// renamed as they are; otherwise the entry is decrypted and re-encrypted
// for to before from is removed.
//
// Returns ErrEntryNotFound if from does not exist.
func (s *Store) Move(ctx context.Context, from, to entrypath.Path) (*MoveResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if from == to {
		if !s.Exists(from) {
			return nil, fmt.Errorf("%w: %s", kerrors.ErrEntryNotFound, from)
		}
		return &MoveResult{From: from, To: to}, nil
	}
	defer s.lockPaths(from, to)()

	env, err := s.loadEnvelope(from)
	if err != nil {
		return nil, err
	}
	toDecl, err := s.resolver.Resolve(to)
	if err != nil {
		return nil, err
	}

	res := &MoveResult{From: from, To: to}
	if !env.Stale(toDecl) {
		files, err := s.renameEntry(from, to)
		if err != nil {
			return nil, err
		}
		res.Files = files
		s.log.Debugf("Renamed %s to %s", from, to)
		return res, nil
	}

	pt, err := s.codec.Open(ctx, env)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", from, err)
	}
	w, err := s.write(ctx, to, pt)
	if err != nil {
		return nil, err
	}
	removed, err := s.remove(from)
	if err != nil {
		return nil, err
	}
	res.Reencrypted = true
	res.Files = append(w.Files, removed...)
	s.log.Debugf("Moved %s to %s with re-encryption", from, to)
	return res, nil
}

func (s *Store) renameEntry(from, to entrypath.Path) ([]string, error) {
	fromFile, fromMeta, err := s.files(from)
	if err != nil {
		return nil, err
	}
	toFile, toMeta, err := s.files(to)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(toFile), dirMode); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", to, err)
	}
	if err := s.rename(fromFile, toFile); err != nil {
		return nil, fmt.Errorf("failed to move %s: %w", from, err)
	}
	if err := s.rename(fromMeta, toMeta); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to move metadata for %s: %w", from, err)
	}
	if err := s.prune(filepath.Dir(fromFile)); err != nil {
		s.log.Warnf("Failed to prune empty directories above %s: %v", from, err)
	}
	return []string{s.rel(fromFile), s.rel(fromMeta), s.rel(toFile), s.rel(toMeta)}, nil
}
