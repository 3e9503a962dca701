// Package codec adapts a pluggable cipher service to the store.
//
// The store never touches key material. It hands plaintext and a recipient
// declaration to an Adapter, which calls the injected Cipher (and, when a
// signing key is configured, the Signer) and normalises whatever the
// backend returns onto the store's error taxonomy:
//
//   - encryption problems become ErrEncryptionFailed
//   - a missing or unreachable backend becomes ErrDecryptionUnavailable
//   - any other decryption problem becomes ErrDecryptionFailed
//   - signature problems become ErrSigningFailed or ErrSignatureInvalid
//
// # Envelope
//
// An encrypted entry is the raw backend ciphertext, kept byte compatible
// with pass-style stores, plus a metadata sidecar written next to it. The
// sidecar records the recipient fingerprint the entry was sealed for, the
// recipients themselves and an optional detached signature over the
// ciphertext. A sidecar that is missing or names another fingerprint marks
// the entry as stale; it never makes the entry unreadable.
package codec
