// Package errors provides typed error values for the rakau secret store.
//
// Using sentinel errors allows callers to handle specific error conditions
// programmatically with errors.Is() rather than string matching. This makes
// error handling more robust and refactoring-safe.
//
// # Error Categories
//
// Errors are grouped by category:
//
//   - Store errors: Store state issues (ErrStoreNotInitialized, ErrAlreadyInitialized)
//   - Entry errors: Naming and existence (ErrInvalidEntryPath, ErrEntryNotFound)
//   - Recipient errors: Missing or malformed declarations (ErrNoRecipientsConfigured)
//   - Crypto errors: Cipher service failures (ErrEncryptionFailed, ErrDecryptionFailed)
//   - Versioning errors: Change tracking failures (ErrVersioningFailed, ErrTransactionClosed)
//
// # Usage
//
// Return errors from internal packages:
//
//	if _, err := os.Stat(root); os.IsNotExist(err) {
//	    return nil, errors.ErrStoreNotInitialized
//	}
//
// Handle errors in the CLI layer:
//
//	result, err := workflows.Show(ctx, wire, opts)
//	if errors.Is(err, kerrors.ErrEntryNotFound) {
//	    // Show user-friendly message
//	}
//
// Wrap errors with additional context:
//
//	return fmt.Errorf("%w: %s", errors.ErrInvalidEntryPath, name)
package errors
