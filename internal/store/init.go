package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/PolarWolf314/rakau/internal/codec"
	"github.com/PolarWolf314/rakau/internal/entrypath"
	kerrors "github.com/PolarWolf314/rakau/internal/errors"
	"github.com/PolarWolf314/rakau/internal/recipients"
	"github.com/PolarWolf314/rakau/internal/utils"
)

// InitResult reports a bootstrapped store.
type InitResult struct {
	Root       string
	Recipients []string
	Files      []string
}

// Init creates the store root and writes its root declaration. The
// declaration is signed when the codec has a signing key.
//
// Returns ErrAlreadyInitialized if the root already has a declaration and
// ErrNoRecipientsConfigured if ids is empty.
func Init(ctx context.Context, root string, ids []string, c *codec.Adapter) (*InitResult, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve store root: %w", err)
	}
	if utils.FileExists(filepath.Join(root, recipients.DeclarationFile)) {
		return nil, fmt.Errorf("%w: %s", kerrors.ErrAlreadyInitialized, root)
	}
	ids, err = recipients.Normalize(ids)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: at least one recipient is required", kerrors.ErrNoRecipientsConfigured)
	}

	if err := os.MkdirAll(root, dirMode); err != nil {
		return nil, fmt.Errorf("failed to create store root %s: %w", root, err)
	}
	var opts recipients.WriteOptions
	if c != nil {
		opts = c.DeclarationOptions()
	}
	if err := recipients.Write(ctx, root, ids, opts); err != nil {
		return nil, err
	}

	files := []string{recipients.DeclarationFile}
	if opts.SigningKey != "" {
		files = append(files, recipients.SignatureFile)
	}
	return &InitResult{Root: root, Recipients: ids, Files: files}, nil
}

// IssueKind classifies a Validate finding.
type IssueKind string

const (
	IssueMissingDeclaration IssueKind = "missing-declaration"
	IssueEmptyDeclaration   IssueKind = "empty-declaration"
	IssueBadSignature       IssueKind = "bad-signature"
	IssueStaleEntry         IssueKind = "stale-entry"
	IssueMissingMetadata    IssueKind = "missing-metadata"
	IssueOrphanMetadata     IssueKind = "orphan-metadata"
	IssueStrayTempFile      IssueKind = "stray-temp-file"
)

// Issue is one integrity finding. Path is root-relative.
type Issue struct {
	Kind   IssueKind
	Path   string
	Detail string
	Err    error
}

// Validate inspects the store without decrypting anything and reports
// what needs attention. Findings never make it fail; only an unreadable
// tree does.
func (s *Store) Validate(ctx context.Context) ([]Issue, error) {
	var issues []Issue

	decls, err := s.resolver.Declarations()
	if err != nil {
		return nil, err
	}
	if len(decls) == 0 || !decls[0].Scope.IsRoot() {
		issues = append(issues, Issue{
			Kind:   IssueMissingDeclaration,
			Path:   recipients.DeclarationFile,
			Detail: "the store root has no recipients",
			Err:    kerrors.ErrNoRecipientsConfigured,
		})
	}
	for _, d := range decls {
		rel := s.rel(d.File())
		if len(d.Recipients) == 0 {
			issues = append(issues, Issue{Kind: IssueEmptyDeclaration, Path: rel, Detail: "lists no recipients", Err: kerrors.ErrNoRecipientsConfigured})
		}
		if signer := s.codec.Signer(); signer != nil {
			if err := recipients.VerifySignature(ctx, signer, d.Dir, s.codec.SigningKey()); err != nil {
				issues = append(issues, Issue{Kind: IssueBadSignature, Path: rel, Detail: err.Error(), Err: err})
			}
		}
	}

	err = filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != s.root && strings.HasPrefix(name, ".") {
				return fs.SkipDir
			}
			return nil
		}
		rel := s.rel(path)
		switch {
		case utils.IsTempFile(name):
			issues = append(issues, Issue{Kind: IssueStrayTempFile, Path: rel, Detail: "left behind by an interrupted write"})
		case strings.HasPrefix(name, "."):
			if cipherFile, ok := codec.CipherPathForMeta(path); ok && !utils.FileExists(cipherFile) {
				issues = append(issues, Issue{Kind: IssueOrphanMetadata, Path: rel, Detail: "metadata without ciphertext"})
			}
		default:
			if p, ok := entrypath.FromPhysical(s.root, path, Suffix); ok {
				issues = append(issues, s.checkEntry(p, rel)...)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to validate store: %w", err)
	}

	sort.SliceStable(issues, func(i, j int) bool { return issues[i].Path < issues[j].Path })
	return issues, nil
}

func (s *Store) checkEntry(p entrypath.Path, rel string) []Issue {
	env, err := s.loadEnvelope(p)
	if err != nil {
		return []Issue{{Kind: IssueMissingMetadata, Path: rel, Detail: err.Error(), Err: err}}
	}
	if env.Meta == nil {
		return []Issue{{Kind: IssueMissingMetadata, Path: rel, Detail: "no readable metadata; re-encrypt to restore it", Err: kerrors.ErrIntegrityStale}}
	}
	decl, err := s.resolver.Resolve(p)
	if err != nil {
		if errors.Is(err, kerrors.ErrNoRecipientsConfigured) {
			return nil // reported with the declarations
		}
		return []Issue{{Kind: IssueStaleEntry, Path: rel, Detail: err.Error(), Err: err}}
	}
	if env.Stale(decl) {
		return []Issue{{
			Kind:   IssueStaleEntry,
			Path:   rel,
			Detail: fmt.Sprintf("sealed for %v, governed by %v", env.Meta.Recipients, decl.Recipients),
			Err:    kerrors.ErrIntegrityStale,
		}}
	}
	return nil
}
