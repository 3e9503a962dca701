package recipients

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/PolarWolf314/rakau/internal/entrypath"
	kerrors "github.com/PolarWolf314/rakau/internal/errors"
	"github.com/PolarWolf314/rakau/internal/utils"
)

const (
	// DeclarationFile names the per-directory recipient list.
	DeclarationFile = ".gpg-id"

	// SignatureFile names the detached signature of DeclarationFile.
	SignatureFile = DeclarationFile + ".sig"

	fingerprintBytes = 10
)

// Declaration is the recipient list governing a scope.
type Declaration struct {
	// Scope is the logical directory holding the declaration.
	Scope entrypath.Path
	// Dir is the physical directory holding the declaration.
	Dir        string
	Recipients []string
}

// Fingerprint identifies the declaration's recipient set.
func (d Declaration) Fingerprint() string {
	return Fingerprint(d.Recipients)
}

// File returns the physical path of the declaration file.
func (d Declaration) File() string {
	return filepath.Join(d.Dir, DeclarationFile)
}

// Fingerprint hashes a recipient set independent of order and repeats.
// Truncated SHA-256, hex encoded.
func Fingerprint(recipients []string) string {
	set := utils.Dedupe(recipients)
	sort.Strings(set)
	sum := sha256.Sum256([]byte(strings.Join(set, "\n")))
	return hex.EncodeToString(sum[:fingerprintBytes])
}

// Parse reads a declaration body: one id per line, surrounding whitespace
// trimmed, blank lines and # comments skipped, repeats dropped.
func Parse(data []byte) []string {
	var out []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return utils.Dedupe(out)
}

// Format renders recipients as a declaration body.
func Format(recipients []string) []byte {
	var b bytes.Buffer
	for _, r := range recipients {
		b.WriteString(r)
		b.WriteByte('\n')
	}
	return b.Bytes()
}

// Normalize trims and dedupes recipient ids, rejecting ones that would not
// survive a round trip through a declaration file.
func Normalize(recipients []string) ([]string, error) {
	out := make([]string, 0, len(recipients))
	for _, r := range recipients {
		r = strings.TrimSpace(r)
		switch {
		case r == "":
			continue
		case strings.ContainsAny(r, "\r\n"), strings.HasPrefix(r, "#"):
			return nil, fmt.Errorf("%w: %q", kerrors.ErrInvalidRecipient, r)
		}
		out = append(out, r)
	}
	return utils.Dedupe(out), nil
}

// Signer produces detached signatures.
type Signer interface {
	Sign(ctx context.Context, keyID string, data []byte) ([]byte, error)
}

// Verifier checks detached signatures.
type Verifier interface {
	Verify(ctx context.Context, keyID string, data, sig []byte) error
}

// Read loads the declaration in dir. ok is false when none exists.
func Read(scope entrypath.Path, dir string) (Declaration, bool, error) {
	data, err := utils.ReadFileIfExists(filepath.Join(dir, DeclarationFile))
	if err != nil {
		return Declaration{}, false, fmt.Errorf("failed to read recipients in %s: %w", dir, err)
	}
	if data == nil && !utils.FileExists(filepath.Join(dir, DeclarationFile)) {
		return Declaration{}, false, nil
	}
	return Declaration{Scope: scope, Dir: dir, Recipients: Parse(data)}, true, nil
}

// WriteOptions controls signing of a written declaration.
type WriteOptions struct {
	Signer     Signer
	SigningKey string
}

// Write atomically replaces the declaration in dir, creating dir if needed.
// A detached signature is written when a signing key is set; otherwise a
// stale signature is removed.
func Write(ctx context.Context, dir string, recipients []string, opts WriteOptions) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	body := Format(recipients)
	if err := utils.WriteFileAtomic(filepath.Join(dir, DeclarationFile), body, 0600); err != nil {
		return err
	}

	sigPath := filepath.Join(dir, SignatureFile)
	if opts.SigningKey == "" || opts.Signer == nil {
		if err := os.Remove(sigPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove stale signature: %w", err)
		}
		return nil
	}

	sig, err := opts.Signer.Sign(ctx, opts.SigningKey, body)
	if err != nil {
		return fmt.Errorf("%w: recipients in %s: %v", kerrors.ErrSigningFailed, dir, err)
	}
	return utils.WriteFileAtomic(sigPath, sig, 0600)
}

// Remove deletes the declaration in dir together with its signature.
func Remove(dir string) error {
	for _, name := range []string{DeclarationFile, SignatureFile} {
		if err := os.Remove(filepath.Join(dir, name)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", name, err)
		}
	}
	return nil
}

// VerifySignature checks the declaration in dir against its detached
// signature. A declaration without signature fails with ErrSignatureInvalid.
func VerifySignature(ctx context.Context, v Verifier, dir, keyID string) error {
	body, err := os.ReadFile(filepath.Join(dir, DeclarationFile))
	if err != nil {
		return fmt.Errorf("failed to read recipients in %s: %w", dir, err)
	}
	sig, err := utils.ReadFileIfExists(filepath.Join(dir, SignatureFile))
	if err != nil {
		return fmt.Errorf("failed to read signature in %s: %w", dir, err)
	}
	if sig == nil {
		return fmt.Errorf("%w: %s has no signature", kerrors.ErrSignatureInvalid, dir)
	}
	if err := v.Verify(ctx, keyID, body, sig); err != nil {
		return fmt.Errorf("%w: recipients in %s: %v", kerrors.ErrSignatureInvalid, dir, err)
	}
	return nil
}
