package native

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"io"

	"filippo.io/age"
	kerrors "github.com/PolarWolf314/rakau/internal/errors"
)

// ageHeader opens every binary age file.
const ageHeader = "age-encryption.org/v1\n"

// Cipher implements the store's cipher and signer contracts on a Keyring.
type Cipher struct {
	Keyring *Keyring
}

// New returns a Cipher reading keys from dir.
func New(dir string, passphrase PassphraseFunc) *Cipher {
	return &Cipher{Keyring: &Keyring{Dir: dir, Passphrase: passphrase}}
}

func (c *Cipher) EncryptFor(ctx context.Context, recipients []string, plaintext []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(recipients) == 0 {
		return nil, fmt.Errorf("%w: no recipients", kerrors.ErrEncryptionFailed)
	}

	var rs []age.Recipient
	seen := map[string]bool{}
	for _, r := range recipients {
		pub, err := c.Keyring.Lookup(r)
		if err != nil {
			return nil, err
		}
		if seen[pub.ID] {
			continue
		}
		seen[pub.ID] = true
		ar, err := age.ParseX25519Recipient(pub.Recipient)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", kerrors.ErrInvalidRecipient, r, err)
		}
		rs = append(rs, ar)
	}

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, rs...)
	if err != nil {
		return nil, fmt.Errorf("failed to start encryption: %w", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return nil, fmt.Errorf("failed to encrypt: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to encrypt: %w", err)
	}
	return buf.Bytes(), nil
}

func (c *Cipher) Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(ciphertext, []byte(ageHeader)) {
		return nil, fmt.Errorf("%w: not an age file", kerrors.ErrInvalidEnvelope)
	}

	ids, err := c.Keyring.PrivateIDs()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no identity in %s can open this entry", c.Keyring.Dir)
	}
	identities := make([]age.Identity, 0, len(ids))
	for _, id := range ids {
		identities = append(identities, &keyringIdentity{keyring: c.Keyring, id: id})
	}

	r, err := age.Decrypt(bytes.NewReader(ciphertext), identities...)
	if err != nil {
		var noMatch *age.NoIdentityMatchError
		if errors.As(err, &noMatch) {
			return nil, fmt.Errorf("no identity in %s can open this entry", c.Keyring.Dir)
		}
		return nil, err
	}
	pt, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("message body failed authentication: %w", err)
	}
	return pt, nil
}

func (c *Cipher) Sign(ctx context.Context, keyID string, data []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pub, err := c.Keyring.Lookup(keyID)
	if err != nil {
		return nil, err
	}
	id, err := c.Keyring.Identity(pub.ID)
	if err != nil {
		return nil, err
	}
	return ed25519.Sign(id.signing, data), nil
}

func (c *Cipher) Verify(ctx context.Context, keyID string, data, sig []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	pub, err := c.Keyring.Lookup(keyID)
	if err != nil {
		return err
	}
	if len(pub.Ed25519) != ed25519.PublicKeySize || !ed25519.Verify(ed25519.PublicKey(pub.Ed25519), data, sig) {
		return fmt.Errorf("signature by %s does not verify", keyID)
	}
	return nil
}

// keyringIdentity loads a private key the first time age offers it a
// header, so sealed keys are only unlocked when tried.
type keyringIdentity struct {
	keyring *Keyring
	id      string
	loaded  *Identity
}

func (k *keyringIdentity) Unwrap(stanzas []*age.Stanza) ([]byte, error) {
	if k.loaded == nil {
		id, err := k.keyring.Identity(k.id)
		if err != nil {
			return nil, err
		}
		k.loaded = id
	}
	return k.loaded.decryption.Unwrap(stanzas)
}
