// Package codectest provides a reversible, inspectable cipher for tests.
//
// TagCipher does no cryptography. Its ciphertext spells out the recipients
// it was produced for, and Decrypt succeeds only when one of them is in the
// held key set, which is enough to exercise recipient resolution,
// re-encryption and error mapping without a real key service.
package codectest

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"

	kerrors "github.com/PolarWolf314/rakau/internal/errors"
)

const prefix = "TAG1:"

// ErrInjected is returned by encrypt failures configured through FailAfter
// or FailEncrypt.
var ErrInjected = errors.New("injected failure")

// TagCipher is a fake codec.Cipher and codec.Signer.
type TagCipher struct {
	mu          sync.Mutex
	held        map[string]bool
	holdAll     bool
	unavailable bool
	failEncrypt bool
	limited     bool
	remaining   int
	encrypts    int
	decrypts    int
}

// New returns a cipher that holds the given keys. With no keys it can
// decrypt anything.
func New(held ...string) *TagCipher {
	c := &TagCipher{}
	c.Hold(held...)
	return c
}

// Hold replaces the held key set.
func (c *TagCipher) Hold(keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.held = map[string]bool{}
	for _, k := range keys {
		c.held[k] = true
	}
	c.holdAll = len(keys) == 0
}

// SetUnavailable makes every call fail as if the backend were missing.
func (c *TagCipher) SetUnavailable(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unavailable = v
}

// FailEncrypt makes every EncryptFor call fail.
func (c *TagCipher) FailEncrypt(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failEncrypt = v
}

// FailAfter lets n more EncryptFor calls succeed, then fails the rest.
// A negative n disables the limit.
func (c *TagCipher) FailAfter(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.limited = n >= 0
	c.remaining = n
}

// Encrypts returns the number of successful EncryptFor calls.
func (c *TagCipher) Encrypts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.encrypts
}

// Decrypts returns the number of successful Decrypt calls.
func (c *TagCipher) Decrypts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.decrypts
}

func (c *TagCipher) EncryptFor(_ context.Context, recipients []string, plaintext []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unavailable {
		return nil, fmt.Errorf("%w: tag cipher offline", kerrors.ErrDecryptionUnavailable)
	}
	if c.failEncrypt || (c.limited && c.remaining <= 0) {
		return nil, ErrInjected
	}
	if len(recipients) == 0 {
		return nil, errors.New("no recipients")
	}
	if c.limited {
		c.remaining--
	}
	c.encrypts++
	return []byte(prefix + strings.Join(recipients, ",") + ":" + base64.StdEncoding.EncodeToString(plaintext)), nil
}

func (c *TagCipher) Decrypt(_ context.Context, ciphertext []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unavailable {
		return nil, fmt.Errorf("%w: tag cipher offline", kerrors.ErrDecryptionUnavailable)
	}
	recips, body, err := split(ciphertext)
	if err != nil {
		return nil, err
	}
	ok := c.holdAll
	for _, r := range recips {
		ok = ok || c.held[r]
	}
	if !ok {
		return nil, fmt.Errorf("no secret key for any of %v", recips)
	}
	pt, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		return nil, fmt.Errorf("corrupt body: %w", err)
	}
	c.decrypts++
	return pt, nil
}

func (c *TagCipher) Sign(_ context.Context, keyID string, data []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unavailable {
		return nil, fmt.Errorf("%w: tag cipher offline", kerrors.ErrDecryptionUnavailable)
	}
	if !c.holdAll && !c.held[keyID] {
		return nil, fmt.Errorf("no secret key %s", keyID)
	}
	return tagSignature(keyID, data), nil
}

func (c *TagCipher) Verify(_ context.Context, keyID string, data, sig []byte) error {
	if string(sig) != string(tagSignature(keyID, data)) {
		return errors.New("signature mismatch")
	}
	return nil
}

func tagSignature(keyID string, data []byte) []byte {
	sum := sha256.Sum256(data)
	return []byte("SIG:" + keyID + ":" + hex.EncodeToString(sum[:]))
}

// Recipients extracts the recipient list a ciphertext was produced for.
func Recipients(ciphertext []byte) []string {
	recips, _, err := split(ciphertext)
	if err != nil {
		return nil
	}
	return recips
}

func split(ciphertext []byte) ([]string, string, error) {
	s := string(ciphertext)
	if !strings.HasPrefix(s, prefix) {
		return nil, "", errors.New("not a tag ciphertext")
	}
	rest := strings.TrimPrefix(s, prefix)
	i := strings.LastIndexByte(rest, ':')
	if i < 0 {
		return nil, "", errors.New("truncated tag ciphertext")
	}
	return strings.Split(rest[:i], ","), rest[i+1:], nil
}
