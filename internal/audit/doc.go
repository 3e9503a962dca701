// Package audit provides audit trail logging for rakau operations.
//
// Every store mutation (insert, remove, move, reencrypt, recipient changes)
// and every decryption is recorded in a per-user audit log. Entries name
// the store, the touched entry names and the transaction that applied the
// change, never secret content.
//
// # Log Format
//
// The audit log is stored as JSON Lines (one JSON object per line), by
// default at:
//
//	$XDG_DATA_HOME/rakau/audit.jsonl
//
// # Usage
//
//	entry := audit.NewEntry("insert", store.Root())
//	entry.Paths = []string{"email/gmail.com"}
//	trail.Log(entry)
//
// # Failure Handling
//
// Audit logging is best-effort. If logging fails (permissions, disk full,
// etc.), the operation continues without error.
//
// # Reading Logs
//
// Use ReadEntries to load the log and Filter to narrow it down. Malformed
// entries are silently skipped to handle partial writes.
package audit
