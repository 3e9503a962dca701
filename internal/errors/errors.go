package errors

import (
	"errors"
	"fmt"
)

// Store state errors indicate issues with store setup.
var (
	// ErrStoreNotInitialized indicates the store root or its root recipient declaration is missing.
	ErrStoreNotInitialized = errors.New("password store has not been initialized")

	// ErrAlreadyInitialized indicates the store root already carries a recipient declaration.
	ErrAlreadyInitialized = errors.New("password store has already been initialized")

	// ErrInvalidConfig indicates the configuration file is malformed or holds an unknown value.
	ErrInvalidConfig = errors.New("configuration is invalid")
)

// Entry errors indicate issues with entry names or their presence.
var (
	// ErrInvalidEntryPath indicates an entry name is empty, escapes the store or uses a reserved segment.
	ErrInvalidEntryPath = errors.New("invalid entry path")

	// ErrEntryNotFound indicates no entry exists at the given path.
	ErrEntryNotFound = errors.New("entry not found")

	// ErrEntryExists indicates an entry already exists and overwriting was not requested.
	ErrEntryExists = errors.New("entry already exists")

	// ErrIsDirectory indicates a directory was named where an entry was expected.
	ErrIsDirectory = errors.New("path is a directory")

	// ErrFieldNotFound indicates an entry body has no such field or line.
	ErrFieldNotFound = errors.New("field not found")

	// ErrInvalidPattern indicates a search pattern could not be compiled.
	ErrInvalidPattern = errors.New("invalid search pattern")
)

// Recipient errors indicate issues with recipient declarations.
var (
	// ErrNoRecipientsConfigured indicates no declaration governs the requested path.
	ErrNoRecipientsConfigured = errors.New("no recipients configured for path")

	// ErrInvalidRecipient indicates a recipient identifier is malformed.
	ErrInvalidRecipient = errors.New("invalid recipient")
)

// Cryptographic errors indicate failures reported by the cipher service.
var (
	// ErrEncryptionFailed indicates the cipher service could not encrypt for the recipients.
	ErrEncryptionFailed = errors.New("encryption failed")

	// ErrDecryptionFailed indicates no usable key was available to decrypt an entry.
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrDecryptionUnavailable indicates the cipher service could not be reached.
	ErrDecryptionUnavailable = errors.New("cipher service unavailable")

	// ErrSigningFailed indicates a detached signature could not be produced.
	ErrSigningFailed = errors.New("signing failed")

	// ErrSignatureInvalid indicates a detached signature did not verify.
	ErrSignatureInvalid = errors.New("signature is invalid")

	// ErrInvalidEnvelope indicates stored ciphertext or metadata is malformed.
	ErrInvalidEnvelope = errors.New("invalid entry envelope")

	// ErrKeyNotFound indicates a key for a recipient or signer could not be located.
	ErrKeyNotFound = errors.New("key not found")
)

// Integrity and versioning errors.
var (
	// ErrIntegrityStale indicates an entry was encrypted for a recipient set that no longer governs it.
	ErrIntegrityStale = errors.New("entry is encrypted for stale recipients")

	// ErrVersioningFailed indicates a change was applied but could not be recorded.
	ErrVersioningFailed = errors.New("your change is saved but not yet versioned; re-run commit")

	// ErrTransactionClosed indicates a transaction was used after commit or abort.
	ErrTransactionClosed = errors.New("transaction is closed")
)

// ReencryptError reports a re-encryption run that stopped part way.
// Converted lists the entries already re-encrypted before the failure.
type ReencryptError struct {
	Path      string
	Converted []string
	Err       error
}

func (e *ReencryptError) Error() string {
	return fmt.Sprintf("re-encrypting %s failed after %d entries: %v", e.Path, len(e.Converted), e.Err)
}

func (e *ReencryptError) Unwrap() error {
	return e.Err
}
