// Package workflows provides high-level orchestration for rakau commands.
//
// Workflows coordinate the store, the transaction manager, the versioning
// backend and the audit trail to implement complete user-facing features.
// Each workflow handles a single command's business logic, independent of
// CLI concerns like flag parsing, spinners, and output formatting.
//
// # Design Philosophy
//
// The cmd/ package should be a thin layer that:
//   - Parses command-line flags and arguments
//   - Builds a Wire from the resolved settings
//   - Calls the appropriate workflow function
//   - Formats the result for display
//
// Workflows handle everything else:
//   - Validating entry names and prerequisites
//   - Staging store mutations in one transaction
//   - Committing the transaction as one version
//   - Recording audit trail entries
//
// # Available Workflows
//
//   - Init: Bootstraps a store or changes the recipients of a scope
//   - Insert: Encrypts a secret into the store
//   - Show: Decrypts an entry or lists a directory
//   - List, Find: Enumerate and search entry names
//   - Remove, Move: Delete and rename entries
//   - Reencrypt: Reseals a scope for its current recipients
//   - Validate: Runs health and integrity checks
//   - Commit, History: Record pending changes and list versions
//   - AuditLog: Reads the audit trail
//
// # Error Handling
//
// Workflows return typed errors from the internal/errors package, allowing
// the CLI layer to provide appropriate user-facing messages without string
// matching. Use errors.Is() to check for specific error conditions:
//
//	result, err := workflows.Insert(ctx, w, opts)
//	if errors.Is(err, kerrors.ErrVersioningFailed) {
//	    // The entry is on disk; tell the user to run commit
//	}
//
// A workflow that applied its change but could not version it returns both
// a result and ErrVersioningFailed.
//
// # Context Usage
//
// All workflow functions accept a context.Context as their first parameter.
// It bounds cipher and versioning backend calls and stops re-encryption
// between entries.
package workflows
