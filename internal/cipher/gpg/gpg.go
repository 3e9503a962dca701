// Package gpg is a cipher service that shells out to GnuPG, keeping stores
// readable by pass and its relatives.
package gpg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	kerrors "github.com/PolarWolf314/rakau/internal/errors"
)

// DefaultTimeout bounds a single gpg invocation.
const DefaultTimeout = 2 * time.Minute

// Runner executes a command with stdin and returns its stdout and stderr.
type Runner func(ctx context.Context, stdin []byte, name string, args ...string) (stdout, stderr []byte, err error)

// Cipher runs the gpg executable.
type Cipher struct {
	Executable string
	// Opts are extra arguments placed before every command, as in GPG_OPTS.
	Opts    []string
	Timeout time.Duration
	Run     Runner
}

// New returns a Cipher for executable (default "gpg") with extra options.
func New(executable string, opts []string) *Cipher {
	if executable == "" {
		executable = "gpg"
	}
	return &Cipher{Executable: executable, Opts: opts, Timeout: DefaultTimeout, Run: execRunner}
}

func execRunner(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = bytes.NewReader(stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

func (c *Cipher) run(ctx context.Context, stdin []byte, args ...string) ([]byte, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	full := append(append([]string{}, c.Opts...), args...)
	stdout, stderr, err := c.Run(execCtx, stdin, c.Executable, full...)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s not found: %v", kerrors.ErrDecryptionUnavailable, c.Executable, err)
		}
		if agentUnavailable(stderr) {
			return nil, fmt.Errorf("%w: %s", kerrors.ErrDecryptionUnavailable, strings.TrimSpace(string(stderr)))
		}
		return nil, fmt.Errorf("gpg command failed: %w\nOutput: %s", err, strings.TrimSpace(string(stderr)))
	}
	return stdout, nil
}

func agentUnavailable(stderr []byte) bool {
	s := string(stderr)
	return strings.Contains(s, "can't connect to the agent") ||
		strings.Contains(s, "No pinentry") ||
		strings.Contains(s, "Inappropriate ioctl for device")
}

// EncryptArgs builds the arguments for encrypting to recipients.
func EncryptArgs(recipients []string) []string {
	args := []string{"--encrypt", "--batch", "--yes", "--quiet", "--compress-algo=none", "--no-encrypt-to"}
	for _, r := range recipients {
		args = append(args, "--recipient", r)
	}
	return append(args, "--output", "-")
}

func (c *Cipher) EncryptFor(ctx context.Context, recipients []string, plaintext []byte) ([]byte, error) {
	if len(recipients) == 0 {
		return nil, fmt.Errorf("%w: no recipients", kerrors.ErrEncryptionFailed)
	}
	return c.run(ctx, plaintext, EncryptArgs(recipients)...)
}

func (c *Cipher) Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error) {
	return c.run(ctx, ciphertext, "--decrypt", "--batch", "--quiet", "--yes", "--output", "-")
}

func (c *Cipher) Sign(ctx context.Context, keyID string, data []byte) ([]byte, error) {
	return c.run(ctx, data, "--batch", "--yes", "--default-key", keyID, "--detach-sign", "--output", "-")
}

// Verify checks sig over data. gpg needs both on disk, so they go through a
// private temp directory.
func (c *Cipher) Verify(ctx context.Context, keyID string, data, sig []byte) error {
	dir, err := os.MkdirTemp("", "rakau-verify-")
	if err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	dataPath := filepath.Join(dir, "data")
	sigPath := filepath.Join(dir, "data.sig")
	if err := os.WriteFile(dataPath, data, 0600); err != nil {
		return err
	}
	if err := os.WriteFile(sigPath, sig, 0600); err != nil {
		return err
	}

	out, err := c.run(ctx, nil, "--batch", "--status-fd", "1", "--verify", sigPath, dataPath)
	if err != nil {
		return err
	}
	if keyID != "" && !signedBy(out, keyID) {
		return fmt.Errorf("signature is not from %s", keyID)
	}
	return nil
}

// signedBy scans gpg --status-fd output for a good signature whose key id
// or fingerprint ends with keyID.
func signedBy(status []byte, keyID string) bool {
	want := strings.ToUpper(strings.TrimPrefix(keyID, "0x"))
	for _, line := range strings.Split(string(status), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 || fields[0] != "[GNUPG:]" {
			continue
		}
		switch fields[1] {
		case "GOODSIG", "VALIDSIG":
			if strings.HasSuffix(strings.ToUpper(fields[2]), want) {
				return true
			}
		}
	}
	return false
}
