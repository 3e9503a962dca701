package store

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/PolarWolf314/rakau/internal/entrypath"
	kerrors "github.com/PolarWolf314/rakau/internal/errors"
	"github.com/PolarWolf314/rakau/internal/recipients"
)

// ReencryptOptions tunes a re-encryption run.
type ReencryptOptions struct {
	// OnlyStale skips entries already sealed for their governing
	// recipients, which makes an interrupted run cheap to resume.
	OnlyStale bool
}

// ReencryptResult reports a re-encryption run.
type ReencryptResult struct {
	Converted []entrypath.Path
	Skipped   []entrypath.Path
	Files     []string
}

// Reencrypt re-encrypts every entry in the scope rooted at p for the
// recipients that govern it now. p may name a directory, a single entry or
// both, in which case the entry and the directory are covered.
// Subdirectories holding their own declaration are separate scopes and are
// left alone.
//
// Each entry is replaced atomically. The run stops at the first failure or
// cancellation and returns a *ReencryptError listing the entries already
// converted; running it again finishes the job.
func (s *Store) Reencrypt(ctx context.Context, p entrypath.Path, opts ReencryptOptions) (*ReencryptResult, error) {
	targets, err := s.scopeEntries(ctx, p)
	if err != nil {
		return nil, err
	}
	return s.reencryptTargets(ctx, p, targets, opts)
}

func (s *Store) reencryptTargets(ctx context.Context, p entrypath.Path, targets []entrypath.Path, opts ReencryptOptions) (*ReencryptResult, error) {
	res := &ReencryptResult{}
	for _, e := range targets {
		if err := ctx.Err(); err != nil {
			return res, s.reencryptError(e, res, err)
		}
		converted, files, err := s.reencryptOne(ctx, e, opts)
		if err != nil {
			return res, s.reencryptError(e, res, err)
		}
		if converted {
			res.Converted = append(res.Converted, e)
			res.Files = append(res.Files, files...)
		} else {
			res.Skipped = append(res.Skipped, e)
		}
	}
	s.log.Infof("Re-encrypted %d entries under %q, skipped %d", len(res.Converted), p.String(), len(res.Skipped))
	return res, nil
}

func (s *Store) reencryptError(at entrypath.Path, res *ReencryptResult, err error) error {
	converted := make([]string, 0, len(res.Converted))
	for _, c := range res.Converted {
		converted = append(converted, c.String())
	}
	return &kerrors.ReencryptError{Path: at.String(), Converted: converted, Err: err}
}

// scopeEntries lists the entries governed through p: the entry p, if any,
// and everything below the directory p that no deeper declaration claims.
func (s *Store) scopeEntries(ctx context.Context, p entrypath.Path) ([]entrypath.Path, error) {
	below, err := s.walk(ctx, p, s.resolver.Declares)
	if err != nil {
		return nil, err
	}
	if p.IsRoot() || !s.Exists(p) {
		return below, nil
	}
	return append([]entrypath.Path{p}, below...), nil
}

func (s *Store) reencryptOne(ctx context.Context, p entrypath.Path, opts ReencryptOptions) (bool, []string, error) {
	defer s.lockPaths(p)()

	env, err := s.loadEnvelope(p)
	if err != nil {
		return false, nil, err
	}
	decl, err := s.resolver.Resolve(p)
	if err != nil {
		return false, nil, err
	}
	if opts.OnlyStale && !env.Stale(decl) {
		return false, nil, nil
	}

	pt, err := s.codec.Open(ctx, env)
	if err != nil {
		return false, nil, fmt.Errorf("failed to open %s: %w", p, err)
	}
	sealed, err := s.codec.Seal(ctx, pt, decl)
	if err != nil {
		return false, nil, fmt.Errorf("failed to encrypt %s: %w", p, err)
	}
	files, err := s.storeEnvelope(p, sealed)
	if err != nil {
		return false, nil, err
	}
	return true, files, nil
}

// SetRecipientsResult reports a recipient change.
type SetRecipientsResult struct {
	Scope entrypath.Path
	// Recipients is empty when the declaration was removed.
	Recipients []string
	Reencrypt  *ReencryptResult
	Files      []string
}

// SetRecipients replaces the declaration of the directory dir and
// re-encrypts its scope. An empty list removes a subdirectory's
// declaration so it inherits from its parent again; the root declaration
// can only be replaced.
//
// A failed re-encryption leaves the new declaration in place; the returned
// *ReencryptError tells which entries were converted.
func (s *Store) SetRecipients(ctx context.Context, dir entrypath.Path, ids []string) (*SetRecipientsResult, error) {
	if s.Exists(dir) && !s.IsDir(dir) {
		return nil, fmt.Errorf("%w: %s is an entry, not a directory", kerrors.ErrInvalidEntryPath, dir)
	}
	ids, err := recipients.Normalize(ids)
	if err != nil {
		return nil, err
	}

	physical := dir.Directory(s.root)
	res := &SetRecipientsResult{Scope: dir, Recipients: ids}
	if len(ids) == 0 {
		if dir.IsRoot() {
			return nil, fmt.Errorf("%w: the root declaration cannot be emptied", kerrors.ErrNoRecipientsConfigured)
		}
		if err := recipients.Remove(physical); err != nil {
			return nil, err
		}
		s.log.Infof("Removed recipients of %q", dir.String())
	} else {
		if err := recipients.Write(ctx, physical, ids, s.codec.DeclarationOptions()); err != nil {
			return nil, err
		}
		s.log.Infof("Set %d recipient(s) for %q", len(ids), dir.String())
	}
	res.Files = s.declarationFiles(physical)

	// A same-named entry belongs to the parent scope, so only the
	// directory is walked.
	targets, err := s.walk(ctx, dir, s.resolver.Declares)
	if err != nil {
		return res, err
	}
	rr, err := s.reencryptTargets(ctx, dir, targets, ReencryptOptions{})
	res.Reencrypt = rr
	if rr != nil {
		res.Files = append(res.Files, rr.Files...)
	}
	if err != nil {
		return res, err
	}
	return res, nil
}

// declarationFiles names the declaration files of a directory for version
// records, whether they exist now or were just removed.
func (s *Store) declarationFiles(dir string) []string {
	return []string{
		s.rel(filepath.Join(dir, recipients.DeclarationFile)),
		s.rel(filepath.Join(dir, recipients.SignatureFile)),
	}
}
