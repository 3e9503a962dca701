package codec

import (
	"context"
	"errors"
	"fmt"
	"time"

	kerrors "github.com/PolarWolf314/rakau/internal/errors"
	"github.com/PolarWolf314/rakau/internal/recipients"
)

// Cipher is the cryptographic capability the store depends on.
type Cipher interface {
	EncryptFor(ctx context.Context, recipients []string, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
}

// Signer produces and checks detached signatures.
type Signer interface {
	Sign(ctx context.Context, keyID string, data []byte) ([]byte, error)
	Verify(ctx context.Context, keyID string, data, sig []byte) error
}

// Adapter seals and opens envelopes through an injected Cipher.
type Adapter struct {
	cipher     Cipher
	signer     Signer
	signingKey string
	now        func() time.Time
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithSigning signs every sealed ciphertext and declaration with keyID.
// An empty keyID disables signing.
func WithSigning(s Signer, keyID string) Option {
	return func(a *Adapter) {
		a.signer = s
		a.signingKey = keyID
	}
}

// WithClock overrides the time source used for metadata.
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) { a.now = now }
}

// New wraps c.
func New(c Cipher, opts ...Option) *Adapter {
	a := &Adapter{cipher: c, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SigningKey returns the configured signing key id, if any.
func (a *Adapter) SigningKey() string { return a.signingKey }

// Signer returns the configured signer, or nil.
func (a *Adapter) Signer() Signer {
	if a.signingKey == "" {
		return nil
	}
	return a.signer
}

// DeclarationOptions returns the options for writing a signed declaration.
func (a *Adapter) DeclarationOptions() recipients.WriteOptions {
	return recipients.WriteOptions{Signer: a.Signer(), SigningKey: a.signingKey}
}

// Seal encrypts plaintext for decl's recipients.
func (a *Adapter) Seal(ctx context.Context, plaintext []byte, decl recipients.Declaration) (Envelope, error) {
	if len(decl.Recipients) == 0 {
		return Envelope{}, fmt.Errorf("%w: %s", kerrors.ErrNoRecipientsConfigured, decl.Dir)
	}
	ct, err := a.cipher.EncryptFor(ctx, decl.Recipients, plaintext)
	if err != nil {
		if errors.Is(err, kerrors.ErrEncryptionFailed) {
			return Envelope{}, err
		}
		return Envelope{}, fmt.Errorf("%w: %w", kerrors.ErrEncryptionFailed, err)
	}

	meta := &Metadata{
		V:           MetadataVersion,
		Fingerprint: decl.Fingerprint(),
		Recipients:  append([]string(nil), decl.Recipients...),
		WrittenAt:   a.now().UTC(),
	}
	if s := a.Signer(); s != nil {
		sig, err := s.Sign(ctx, a.signingKey, ct)
		if err != nil {
			return Envelope{}, fmt.Errorf("%w: %w", kerrors.ErrSigningFailed, err)
		}
		meta.SignedBy = a.signingKey
		meta.Signature = sig
	}
	return Envelope{Ciphertext: ct, Meta: meta}, nil
}

// Open verifies the envelope's signature, when it has one and a signer is
// configured, and decrypts it.
func (a *Adapter) Open(ctx context.Context, env Envelope) ([]byte, error) {
	if err := a.VerifyEnvelope(ctx, env); err != nil {
		return nil, err
	}
	pt, err := a.cipher.Decrypt(ctx, env.Ciphertext)
	if err != nil {
		switch {
		case errors.Is(err, kerrors.ErrDecryptionUnavailable), errors.Is(err, kerrors.ErrDecryptionFailed):
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", kerrors.ErrDecryptionFailed, err)
	}
	return pt, nil
}

// VerifyEnvelope checks the ciphertext signature recorded in the metadata.
// Unsigned envelopes and adapters without a signer pass.
func (a *Adapter) VerifyEnvelope(ctx context.Context, env Envelope) error {
	if env.Meta == nil || len(env.Meta.Signature) == 0 || a.signer == nil {
		return nil
	}
	if err := a.signer.Verify(ctx, env.Meta.SignedBy, env.Ciphertext, env.Meta.Signature); err != nil {
		if errors.Is(err, kerrors.ErrDecryptionUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %w", kerrors.ErrSignatureInvalid, err)
	}
	return nil
}
