// Package recipients reads, writes and resolves recipient declarations.
//
// A declaration is a ".gpg-id" file listing one recipient id per line. The
// nearest declaration walking up from an entry's directory to the store
// root governs the entry; deeper declarations replace their ancestors
// rather than merging with them. Resolution is a pure function of the
// filesystem and is never cached.
//
// When a signing key is configured, declarations carry a detached signature
// in ".gpg-id.sig" next to them.
package recipients
