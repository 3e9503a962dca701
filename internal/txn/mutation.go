package txn

import (
	"context"
	"fmt"

	"github.com/PolarWolf314/rakau/internal/entrypath"
	"github.com/PolarWolf314/rakau/internal/store"
)

// Mutation is one change applied through the store.
type Mutation interface {
	// Describe summarises the mutation for logs and the audit trail.
	Describe() string
	apply(ctx context.Context, s *store.Store) (Outcome, error)
}

// Outcome is what a staged mutation did. Files are root-relative.
type Outcome struct {
	Files   []string
	Entries []entrypath.Path
	// Detail is the store result, such as *store.WriteResult.
	Detail any
}

// Write stores Plaintext at Path.
type Write struct {
	Path      entrypath.Path
	Plaintext []byte
}

func (m Write) Describe() string { return "write " + m.Path.String() }

func (m Write) apply(ctx context.Context, s *store.Store) (Outcome, error) {
	res, err := s.Write(ctx, m.Path, m.Plaintext)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Files: res.Files, Entries: []entrypath.Path{res.Path}, Detail: res}, nil
}

// Remove deletes Path, or everything below it when Recursive is set.
type Remove struct {
	Path      entrypath.Path
	Recursive bool
}

func (m Remove) Describe() string {
	if m.Recursive {
		return "remove -r " + m.Path.String()
	}
	return "remove " + m.Path.String()
}

func (m Remove) apply(ctx context.Context, s *store.Store) (Outcome, error) {
	var (
		res *store.RemoveResult
		err error
	)
	if m.Recursive && !s.Exists(m.Path) {
		res, err = s.RemoveTree(ctx, m.Path)
	} else {
		res, err = s.Remove(ctx, m.Path)
	}
	if res == nil {
		return Outcome{}, err
	}
	return Outcome{Files: res.Files, Entries: res.Removed, Detail: res}, err
}

// Move renames From to To.
type Move struct {
	From, To entrypath.Path
}

func (m Move) Describe() string { return fmt.Sprintf("move %s to %s", m.From, m.To) }

func (m Move) apply(ctx context.Context, s *store.Store) (Outcome, error) {
	res, err := s.Move(ctx, m.From, m.To)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Files: res.Files, Entries: []entrypath.Path{res.From, res.To}, Detail: res}, nil
}

// Reencrypt re-encrypts the scope rooted at Path.
type Reencrypt struct {
	Path      entrypath.Path
	OnlyStale bool
}

func (m Reencrypt) Describe() string { return fmt.Sprintf("reencrypt %q", m.Path.String()) }

func (m Reencrypt) apply(ctx context.Context, s *store.Store) (Outcome, error) {
	res, err := s.Reencrypt(ctx, m.Path, store.ReencryptOptions{OnlyStale: m.OnlyStale})
	if res == nil {
		return Outcome{}, err
	}
	return Outcome{Files: res.Files, Entries: res.Converted, Detail: res}, err
}

// SetRecipients replaces the declaration of Dir and re-encrypts its scope.
type SetRecipients struct {
	Dir        entrypath.Path
	Recipients []string
}

func (m SetRecipients) Describe() string {
	return fmt.Sprintf("set %d recipient(s) for %q", len(m.Recipients), m.Dir.String())
}

func (m SetRecipients) apply(ctx context.Context, s *store.Store) (Outcome, error) {
	res, err := s.SetRecipients(ctx, m.Dir, m.Recipients)
	if res == nil {
		return Outcome{}, err
	}
	out := Outcome{Files: res.Files, Detail: res}
	if res.Reencrypt != nil {
		out.Entries = res.Reencrypt.Converted
	}
	return out, err
}
