package recipients

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/PolarWolf314/rakau/internal/entrypath"
	kerrors "github.com/PolarWolf314/rakau/internal/errors"
)

// Resolver finds the declaration governing a path below Root.
type Resolver struct {
	Root string
}

// Resolve returns the declaration governing entry p: the nearest one found
// walking from p's directory up to the root.
func (r Resolver) Resolve(p entrypath.Path) (Declaration, error) {
	return r.ResolveDir(p.Dir())
}

// ResolveDir returns the declaration governing the logical directory dir,
// which may hold the declaration itself.
func (r Resolver) ResolveDir(dir entrypath.Path) (Declaration, error) {
	for d := dir; ; d = d.Dir() {
		decl, ok, err := Read(d, d.Directory(r.Root))
		if err != nil {
			return Declaration{}, err
		}
		if ok {
			if len(decl.Recipients) == 0 {
				return Declaration{}, fmt.Errorf("%w: %s lists no recipients", kerrors.ErrNoRecipientsConfigured, decl.File())
			}
			return decl, nil
		}
		if d.IsRoot() {
			return Declaration{}, fmt.Errorf("%w: %q", kerrors.ErrNoRecipientsConfigured, dir.String())
		}
	}
}

// Declares reports whether the logical directory dir holds its own declaration.
func (r Resolver) Declares(dir entrypath.Path) bool {
	_, ok, err := Read(dir, dir.Directory(r.Root))
	return err == nil && ok
}

// Declarations lists every declaration in the store, root first, then by
// scope.
func (r Resolver) Declarations() ([]Declaration, error) {
	var out []Declaration
	err := filepath.WalkDir(r.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == r.Root {
				return fs.SkipAll
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != r.Root && d.Name()[0] == '.' {
			return fs.SkipDir
		}
		rel, err := filepath.Rel(r.Root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			rel = ""
		}
		scope, err := entrypath.ParsePrefix(filepath.ToSlash(rel))
		if err != nil {
			return fs.SkipDir
		}
		decl, ok, err := Read(scope, path)
		if err != nil {
			return err
		}
		if ok {
			out = append(out, decl)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan declarations: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return entrypath.Compare(out[i].Scope, out[j].Scope) < 0 })
	return out, nil
}
