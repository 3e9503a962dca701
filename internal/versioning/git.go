package versioning

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/PolarWolf314/rakau/internal/utils"
)

const (
	gitTimeout      = 30 * time.Second
	gitAttributes   = ".gitattributes"
	gpgDiffLine     = "*.gpg diff=gpg"
	gpgDiffTextconv = "gpg -d --quiet --yes --compress-algo=none --no-encrypt-to --batch --use-agent"
	txTrailer       = "Rakau-Transaction"
)

// Git records changes as commits in the repository holding Dir.
type Git struct {
	Dir         string
	Executable  string
	AuthorName  string
	AuthorEmail string
	Timeout     time.Duration
	now         func() time.Time
}

// NewGit returns a git backend for the store rooted at dir. An empty
// author leaves identity to the user's git configuration.
func NewGit(dir, authorName, authorEmail string) *Git {
	return &Git{
		Dir:         dir,
		Executable:  "git",
		AuthorName:  authorName,
		AuthorEmail: authorEmail,
		Timeout:     gitTimeout,
		now:         time.Now,
	}
}

func (g *Git) Name() string { return BackendGit }

// Enabled reports whether Dir is inside a git work tree.
func (g *Git) Enabled(ctx context.Context) bool {
	out, err := g.execGit(ctx, "rev-parse", "--is-inside-work-tree")
	return err == nil && strings.TrimSpace(out) == "true"
}

// Init creates the repository when needed and configures gpg diffs.
func (g *Git) Init(ctx context.Context) error {
	if !g.Enabled(ctx) {
		if _, err := g.execGit(ctx, "init"); err != nil {
			return fmt.Errorf("failed to initialise git repository: %w", err)
		}
	}

	attrsPath := filepath.Join(g.Dir, gitAttributes)
	attrs, err := utils.ReadFileIfExists(attrsPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", gitAttributes, err)
	}
	if !hasLine(attrs, gpgDiffLine) {
		if len(attrs) > 0 && !bytes.HasSuffix(attrs, []byte("\n")) {
			attrs = append(attrs, '\n')
		}
		attrs = append(attrs, gpgDiffLine+"\n"...)
		if err := utils.WriteFileAtomic(attrsPath, attrs, 0600); err != nil {
			return fmt.Errorf("failed to write %s: %w", gitAttributes, err)
		}
	}

	if _, err := g.execGit(ctx, "config", "--local", "diff.gpg.binary", "true"); err != nil {
		return fmt.Errorf("failed to configure gpg diff: %w", err)
	}
	if _, err := g.execGit(ctx, "config", "--local", "diff.gpg.textconv", gpgDiffTextconv); err != nil {
		return fmt.Errorf("failed to configure gpg diff: %w", err)
	}
	return nil
}

// RecordChange stages c.Paths and commits them. Paths that no longer exist
// are removed from the index.
func (g *Git) RecordChange(ctx context.Context, c Change) (Record, error) {
	paths := dedupePaths(c.Paths)
	if len(paths) == 0 {
		if _, err := g.execGit(ctx, "add", "-A", "--", "."); err != nil {
			return Record{}, fmt.Errorf("failed to stage changes: %w", err)
		}
	} else {
		var present, gone []string
		for _, p := range paths {
			if utils.FileExists(filepath.Join(g.Dir, filepath.FromSlash(p))) {
				present = append(present, p)
			} else {
				gone = append(gone, p)
			}
		}
		if len(present) > 0 {
			if _, err := g.execGit(ctx, append([]string{"add", "--"}, present...)...); err != nil {
				return Record{}, fmt.Errorf("failed to stage changes: %w", err)
			}
		}
		if len(gone) > 0 {
			args := append([]string{"rm", "--cached", "--quiet", "--ignore-unmatch", "--"}, gone...)
			if _, err := g.execGit(ctx, args...); err != nil {
				return Record{}, fmt.Errorf("failed to stage removals: %w", err)
			}
		}
	}

	if _, err := g.execGit(ctx, "diff", "--cached", "--quiet"); err == nil {
		return Record{}, nil
	}

	message := c.Message
	if c.TxID != "" {
		message += "\n\n" + txTrailer + ": " + c.TxID
	}
	if _, err := g.execGit(ctx, "commit", "--quiet", "-m", message); err != nil {
		return Record{}, fmt.Errorf("failed to create commit: %w", err)
	}
	head, err := g.execGit(ctx, "rev-parse", "HEAD")
	if err != nil {
		return Record{}, fmt.Errorf("failed to read new commit: %w", err)
	}
	return Record{
		ID:      strings.TrimSpace(head),
		Message: c.Message,
		Author:  g.author(c.Author),
		Time:    g.now(),
		Paths:   paths,
	}, nil
}

// History reads commits touching Dir, newest first.
func (g *Git) History(ctx context.Context, limit int) ([]Record, error) {
	if _, err := g.execGit(ctx, "rev-parse", "--verify", "--quiet", "HEAD"); err != nil {
		return nil, nil
	}
	args := []string{"log", "--name-only", "--format=%x1e%H%x1f%an <%ae>%x1f%aI%x1f%s"}
	if limit > 0 {
		args = append(args, fmt.Sprintf("-n%d", limit))
	}
	args = append(args, "--", ".")
	out, err := g.execGit(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read git history: %w", err)
	}
	return parseGitLog(out), nil
}

func parseGitLog(out string) []Record {
	var records []Record
	for _, chunk := range strings.Split(out, "\x1e") {
		lines := strings.Split(strings.TrimSpace(chunk), "\n")
		fields := strings.Split(lines[0], "\x1f")
		if len(fields) != 4 {
			continue
		}
		r := Record{ID: fields[0], Author: fields[1], Message: fields[3]}
		if t, err := time.Parse(time.RFC3339, fields[2]); err == nil {
			r.Time = t
		}
		for _, l := range lines[1:] {
			if l = strings.TrimSpace(l); l != "" {
				r.Paths = append(r.Paths, l)
			}
		}
		records = append(records, r)
	}
	return records
}

func (g *Git) author(fallback string) string {
	if g.AuthorName != "" {
		return fmt.Sprintf("%s <%s>", g.AuthorName, g.AuthorEmail)
	}
	return fallback
}

// execGit runs git in Dir with the configured identity and a timeout.
func (g *Git) execGit(ctx context.Context, args ...string) (string, error) {
	execCtx, cancel := context.WithTimeout(ctx, g.Timeout)
	defer cancel()

	var full []string
	if g.AuthorName != "" {
		full = append(full, "-c", "user.name="+g.AuthorName)
	}
	if g.AuthorEmail != "" {
		full = append(full, "-c", "user.email="+g.AuthorEmail)
	}
	full = append(full, args...)

	cmd := exec.CommandContext(execCtx, g.Executable, full...)
	cmd.Dir = g.Dir
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git command failed: %w\nOutput: %s", err, string(output))
	}
	return string(output), nil
}

func hasLine(data []byte, line string) bool {
	for _, l := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(l) == line {
			return true
		}
	}
	return false
}
