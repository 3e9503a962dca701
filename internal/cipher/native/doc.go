// Package native is a self-contained cipher service backed by a local
// keyring directory.
//
// Each identity has an age X25519 key for decryption and an Ed25519 key for
// signing, stored as "<id>.pub" and "<id>.key" in the keyring. The id is a
// truncated SHA-256 fingerprint of the age recipient string; identities may
// also carry a human name usable as a recipient.
//
// # Ciphertext format
//
// Entries are standard binary age files with one X25519 stanza per
// recipient, so any age implementation holding the identity can open them.
//
// Private key files may be sealed with a passphrase (scrypt +
// ChaCha20-Poly1305).
package native
