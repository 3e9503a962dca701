package entrypath

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	kerrors "github.com/PolarWolf314/rakau/internal/errors"
	"golang.org/x/text/unicode/norm"
)

// Path is a validated, normalised entry name. The zero value is the store
// root and is only valid as a prefix.
type Path struct {
	name string
}

// Root is the empty prefix that covers the whole store.
var Root = Path{}

// Parse validates an entry name. The result is never the root.
func Parse(name string) (Path, error) {
	p, err := ParsePrefix(name)
	if err != nil {
		return Path{}, err
	}
	if p.IsRoot() {
		return Path{}, fmt.Errorf("%w: name is empty", kerrors.ErrInvalidEntryPath)
	}
	return p, nil
}

// ParsePrefix is like Parse but accepts "" (and "/") as the store root.
func ParsePrefix(name string) (Path, error) {
	name = norm.NFC.String(strings.Trim(name, "/"))
	if name == "" {
		return Root, nil
	}
	if strings.ContainsAny(name, "\\\x00") {
		return Path{}, fmt.Errorf("%w: %q contains a forbidden character", kerrors.ErrInvalidEntryPath, name)
	}
	for _, seg := range strings.Split(name, "/") {
		switch {
		case seg == "":
			return Path{}, fmt.Errorf("%w: %q has an empty segment", kerrors.ErrInvalidEntryPath, name)
		case seg == "." || seg == "..":
			return Path{}, fmt.Errorf("%w: %q must not contain %q", kerrors.ErrInvalidEntryPath, name, seg)
		case strings.HasPrefix(seg, "."):
			return Path{}, fmt.Errorf("%w: segment %q is reserved", kerrors.ErrInvalidEntryPath, seg)
		}
	}
	return Path{name: name}, nil
}

// MustParse is Parse for constants and tests. It panics on invalid input.
func MustParse(name string) Path {
	p, err := Parse(name)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Path) String() string { return p.name }

// IsRoot reports whether p is the store root prefix.
func (p Path) IsRoot() bool { return p.name == "" }

// Segments returns the slash separated components of p.
func (p Path) Segments() []string {
	if p.IsRoot() {
		return nil
	}
	return strings.Split(p.name, "/")
}

// Base returns the last segment.
func (p Path) Base() string {
	if i := strings.LastIndexByte(p.name, '/'); i >= 0 {
		return p.name[i+1:]
	}
	return p.name
}

// Dir returns the parent of p; the parent of a top level entry is Root.
func (p Path) Dir() Path {
	if i := strings.LastIndexByte(p.name, '/'); i >= 0 {
		return Path{name: p.name[:i]}
	}
	return Root
}

// Join appends a relative, already valid name to p.
func (p Path) Join(rel Path) Path {
	switch {
	case p.IsRoot():
		return rel
	case rel.IsRoot():
		return p
	}
	return Path{name: p.name + "/" + rel.name}
}

// HasPrefix reports whether prefix equals p or is one of its ancestors.
func (p Path) HasPrefix(prefix Path) bool {
	if prefix.IsRoot() || p.name == prefix.name {
		return true
	}
	return strings.HasPrefix(p.name, prefix.name+"/")
}

// Rel returns p relative to prefix. It panics when prefix does not cover p.
func (p Path) Rel(prefix Path) Path {
	if !p.HasPrefix(prefix) {
		panic(fmt.Sprintf("entrypath: %q is not under %q", p.name, prefix.name))
	}
	if prefix.IsRoot() {
		return p
	}
	return Path{name: strings.TrimPrefix(strings.TrimPrefix(p.name, prefix.name), "/")}
}

// Dirname is the directory holding the entry's file under root.
func (p Path) Dirname(root string) string {
	return filepath.Join(root, filepath.FromSlash(p.Dir().name))
}

// Directory maps p, taken as a folder, to its location under root.
func (p Path) Directory(root string) string {
	return filepath.Join(root, filepath.FromSlash(p.name))
}

// Physical maps p to its ciphertext file under root. The result is checked
// to stay inside root.
func (p Path) Physical(root, suffix string) (string, error) {
	if p.IsRoot() {
		return "", fmt.Errorf("%w: the store root is not an entry", kerrors.ErrInvalidEntryPath)
	}
	full := filepath.Join(root, filepath.FromSlash(p.name)+suffix)
	rel, err := filepath.Rel(filepath.Clean(root), full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %q escapes the store", kerrors.ErrInvalidEntryPath, p.name)
	}
	return full, nil
}

// FromPhysical converts a ciphertext file path below root back into an
// entry name. ok is false for files that are not entries.
func FromPhysical(root, file, suffix string) (Path, bool) {
	rel, err := filepath.Rel(root, file)
	if err != nil || !strings.HasSuffix(rel, suffix) {
		return Path{}, false
	}
	p, err := Parse(filepath.ToSlash(strings.TrimSuffix(rel, suffix)))
	if err != nil {
		return Path{}, false
	}
	return p, true
}

// Compare orders paths segment by segment, so "a/b" sorts before "a-b"
// ("a" < "a-b" on the first segment).
func Compare(a, b Path) int {
	as, bs := a.Segments(), b.Segments()
	for i := 0; i < len(as) && i < len(bs); i++ {
		if c := strings.Compare(as[i], bs[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(as) < len(bs):
		return -1
	case len(as) > len(bs):
		return 1
	}
	return 0
}
