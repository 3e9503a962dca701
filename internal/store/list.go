package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"path/filepath"
	"slices"
	"strings"

	"github.com/PolarWolf314/rakau/internal/entrypath"
	kerrors "github.com/PolarWolf314/rakau/internal/errors"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/gobwas/glob"
)

// List returns the entries at or below prefix, sorted segment by segment.
// The sequence is a snapshot taken when List is called and may be ranged
// over any number of times. A prefix naming an entry yields that entry,
// followed by the entries below a directory of the same name if there is
// one; a prefix that does not exist yields nothing.
func (s *Store) List(ctx context.Context, prefix entrypath.Path) (iter.Seq[entrypath.Path], error) {
	paths, err := s.collect(ctx, prefix)
	if err != nil {
		return nil, err
	}
	return slices.Values(paths), nil
}

// Entries is List collected into a slice.
func (s *Store) Entries(ctx context.Context, prefix entrypath.Path) ([]entrypath.Path, error) {
	return s.collect(ctx, prefix)
}

func (s *Store) collect(ctx context.Context, prefix entrypath.Path) ([]entrypath.Path, error) {
	below, err := s.walk(ctx, prefix, nil)
	if err != nil {
		return nil, err
	}
	if prefix.IsRoot() || !s.Exists(prefix) {
		return below, nil
	}
	return append([]entrypath.Path{prefix}, below...), nil
}

// walk gathers the entries below the directory prefix. skipDir, when set,
// is consulted for every directory below prefix.
func (s *Store) walk(ctx context.Context, prefix entrypath.Path, skipDir func(dir entrypath.Path) bool) ([]entrypath.Path, error) {
	start := prefix.Directory(s.root)
	var out []entrypath.Path
	err := filepath.WalkDir(start, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == start {
				return fs.SkipAll
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path == start {
				return nil
			}
			if strings.HasPrefix(name, ".") {
				return fs.SkipDir
			}
			if skipDir != nil {
				rel, err := entrypath.ParsePrefix(s.rel(path))
				if err != nil || skipDir(rel) {
					return fs.SkipDir
				}
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || !d.Type().IsRegular() {
			return nil
		}
		if p, ok := entrypath.FromPhysical(s.root, path, Suffix); ok {
			out = append(out, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %q: %w", prefix.String(), err)
	}
	slices.SortFunc(out, entrypath.Compare)
	return slices.CompactFunc(out, func(a, b entrypath.Path) bool { return a == b }), nil
}

// Search filters the whole store by pattern. A pattern containing glob
// meta characters is matched against full entry names with ** support;
// anything else is a case-insensitive substring match.
//
// Returns ErrInvalidPattern if the glob does not compile.
func (s *Store) Search(ctx context.Context, pattern string) (iter.Seq[entrypath.Path], error) {
	match, err := searchMatcher(pattern)
	if err != nil {
		return nil, err
	}
	return s.filter(ctx, match)
}

// Find yields entries whose name contains any of terms, ignoring case.
func (s *Store) Find(ctx context.Context, terms ...string) (iter.Seq[entrypath.Path], error) {
	match, err := findMatcher(terms)
	if err != nil {
		return nil, err
	}
	return s.filter(ctx, match)
}

func (s *Store) filter(ctx context.Context, match func(string) bool) (iter.Seq[entrypath.Path], error) {
	all, err := s.collect(ctx, entrypath.Root)
	if err != nil {
		return nil, err
	}
	var out []entrypath.Path
	for _, p := range all {
		if match(p.String()) {
			out = append(out, p)
		}
	}
	return slices.Values(out), nil
}

func hasGlobMeta(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}

func searchMatcher(pattern string) (func(string) bool, error) {
	if pattern == "" {
		return func(string) bool { return true }, nil
	}
	if !hasGlobMeta(pattern) {
		needle := strings.ToLower(pattern)
		return func(name string) bool {
			return strings.Contains(strings.ToLower(name), needle)
		}, nil
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("%w: %q", kerrors.ErrInvalidPattern, pattern)
	}
	return func(name string) bool {
		ok, err := doublestar.Match(pattern, name)
		return err == nil && ok
	}, nil
}

func findMatcher(terms []string) (func(string) bool, error) {
	var alts []string
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		quoted := strings.ReplaceAll(glob.QuoteMeta(strings.ToLower(t)), ",", `\,`)
		alts = append(alts, "*"+quoted+"*")
	}
	if len(alts) == 0 {
		return nil, fmt.Errorf("%w: no search terms", kerrors.ErrInvalidPattern)
	}
	g, err := glob.Compile("{" + strings.Join(alts, ",") + "}")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrInvalidPattern, err)
	}
	return func(name string) bool {
		return g.Match(strings.ToLower(name))
	}, nil
}
