// Package utils provides shared utility functions for rakau.
//
// # Filesystem Utilities
//
//   - WriteFileAtomic: temp file, fsync, chmod, rename into place
//   - RemoveEmptyParents: prunes directories emptied by a removal
//   - ReadFileIfExists, FileExists, ExpandHome
//
// # System Utilities
//
//   - GetUsername, GetHostname, CurrentUser
//
// # String Utilities
//
//   - FormatPaths: formats file paths for human-readable output
//   - SplitFields, Dedupe
//
// # I/O Utilities
//
//   - ReadAll: reads piped input to EOF and rejects empty input
//
// # Terminal Utilities
//
//   - ReadPassphrase, ReadPassphraseFromTTY, ReadSecretConfirmed: hidden prompts via golang.org/x/term
//   - ReadLine, IsTerminal
//   - Confirm: yes/no questions before destructive actions
package utils
