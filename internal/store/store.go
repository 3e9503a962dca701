package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/PolarWolf314/rakau/internal/codec"
	"github.com/PolarWolf314/rakau/internal/entrypath"
	kerrors "github.com/PolarWolf314/rakau/internal/errors"
	logger "github.com/PolarWolf314/rakau/internal/logging"
	"github.com/PolarWolf314/rakau/internal/recipients"
	"github.com/PolarWolf314/rakau/internal/utils"
)

// Suffix is appended to entry names to form ciphertext file names.
const Suffix = ".gpg"

const (
	dirMode  = 0700
	fileMode = 0600
)

// Options configures a Store.
type Options struct {
	Root  string
	Codec *codec.Adapter
	Log   logger.Logger
	// KeepEmptyDirs disables pruning of directories emptied by removals.
	KeepEmptyDirs bool
}

// Store is the tree manager for one store root.
type Store struct {
	root          string
	resolver      recipients.Resolver
	codec         *codec.Adapter
	log           logger.Logger
	keepEmptyDirs bool
	locks         pathLocks

	// rename is swapped in tests to simulate crashes.
	rename func(oldpath, newpath string) error
}

// New opens the store at opts.Root. The root must exist and carry a
// recipient declaration.
func New(opts Options) (*Store, error) {
	if opts.Codec == nil {
		return nil, errors.New("store: a codec is required")
	}
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve store root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s does not exist", kerrors.ErrStoreNotInitialized, root)
		}
		return nil, fmt.Errorf("failed to stat store root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", kerrors.ErrStoreNotInitialized, root)
	}
	if !utils.FileExists(filepath.Join(root, recipients.DeclarationFile)) {
		return nil, fmt.Errorf("%w: %s has no %s", kerrors.ErrStoreNotInitialized, root, recipients.DeclarationFile)
	}

	return &Store{
		root:          root,
		resolver:      recipients.Resolver{Root: root},
		codec:         opts.Codec,
		log:           opts.Log,
		keepEmptyDirs: opts.KeepEmptyDirs,
		locks:         pathLocks{held: map[string]*pathLock{}},
		rename:        os.Rename,
	}, nil
}

// Root returns the absolute store root.
func (s *Store) Root() string { return s.root }

// Resolver returns the store's recipient resolver.
func (s *Store) Resolver() recipients.Resolver { return s.resolver }

// Codec returns the codec adapter.
func (s *Store) Codec() *codec.Adapter { return s.codec }

// Exists reports whether an entry exists at p.
func (s *Store) Exists(p entrypath.Path) bool {
	file, err := p.Physical(s.root, Suffix)
	return err == nil && utils.FileExists(file)
}

// IsDir reports whether p names a directory of the store.
func (s *Store) IsDir(p entrypath.Path) bool {
	info, err := os.Stat(p.Directory(s.root))
	return err == nil && info.IsDir()
}

// files returns the ciphertext and sidecar paths for p.
func (s *Store) files(p entrypath.Path) (string, string, error) {
	file, err := p.Physical(s.root, Suffix)
	if err != nil {
		return "", "", err
	}
	return file, codec.MetaPath(file), nil
}

// rel converts a physical path below the root to a slash separated
// root-relative name for version records.
func (s *Store) rel(path string) string {
	r, err := filepath.Rel(s.root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(r)
}

func (s *Store) writeFile(path string, data []byte) error {
	return utils.WriteFileAtomicWith(path, data, fileMode, s.rename)
}

// loadEnvelope reads the ciphertext and, when present and well formed, its
// metadata.
func (s *Store) loadEnvelope(p entrypath.Path) (codec.Envelope, error) {
	file, metaFile, err := s.files(p)
	if err != nil {
		return codec.Envelope{}, err
	}
	ct, err := utils.ReadFileIfExists(file)
	if err != nil {
		return codec.Envelope{}, fmt.Errorf("failed to read %s: %w", p, err)
	}
	if ct == nil {
		return codec.Envelope{}, fmt.Errorf("%w: %s", kerrors.ErrEntryNotFound, p)
	}
	env := codec.Envelope{Ciphertext: ct}

	raw, err := utils.ReadFileIfExists(metaFile)
	if err != nil {
		return codec.Envelope{}, fmt.Errorf("failed to read metadata for %s: %w", p, err)
	}
	if raw != nil {
		meta, err := codec.DecodeMetadata(raw)
		if err != nil {
			s.log.Warnf("Ignoring metadata for %s: %v", p, err)
		} else {
			env.Meta = meta
		}
	}
	return env, nil
}

// storeEnvelope writes env for p, ciphertext first.
func (s *Store) storeEnvelope(p entrypath.Path, env codec.Envelope) ([]string, error) {
	file, metaFile, err := s.files(p)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(file), dirMode); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", p, err)
	}
	if err := s.writeFile(file, env.Ciphertext); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", p, err)
	}
	meta, err := codec.EncodeMetadata(env.Meta)
	if err != nil {
		return nil, err
	}
	if err := s.writeFile(metaFile, meta); err != nil {
		return nil, fmt.Errorf("failed to write metadata for %s: %w", p, err)
	}
	return []string{s.rel(file), s.rel(metaFile)}, nil
}

// prune removes directories emptied below the root, keeping any that hold a
// declaration.
func (s *Store) prune(dir string) error {
	if s.keepEmptyDirs {
		return nil
	}
	keep := func(d string) bool {
		return utils.FileExists(filepath.Join(d, recipients.DeclarationFile))
	}
	return utils.RemoveEmptyParents(dir, s.root, keep)
}

type pathLock struct {
	mu   sync.Mutex
	refs int
}

// pathLocks hands out one mutex per physical path and forgets it once no
// goroutine holds or waits for it.
type pathLocks struct {
	mu   sync.Mutex
	held map[string]*pathLock
}

func (l *pathLocks) lock(key string) func() {
	l.mu.Lock()
	pl, ok := l.held[key]
	if !ok {
		pl = &pathLock{}
		l.held[key] = pl
	}
	pl.refs++
	l.mu.Unlock()

	pl.mu.Lock()
	return func() {
		pl.mu.Unlock()
		l.mu.Lock()
		pl.refs--
		if pl.refs == 0 {
			delete(l.held, key)
		}
		l.mu.Unlock()
	}
}

// lockPaths locks several entries in a fixed order.
func (s *Store) lockPaths(paths ...entrypath.Path) func() {
	keys := make([]string, 0, len(paths))
	seen := map[string]bool{}
	for _, p := range paths {
		if !seen[p.String()] {
			seen[p.String()] = true
			keys = append(keys, p.String())
		}
	}
	sort.Strings(keys)
	unlocks := make([]func(), 0, len(keys))
	for _, k := range keys {
		unlocks = append(unlocks, s.locks.lock(k))
	}
	return func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
}
