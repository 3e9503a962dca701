// Package entrypath validates and normalises logical entry names and maps
// them to files inside a store root.
//
// An entry name is a slash separated path such as "email/gmail.com". Leading
// and trailing slashes are dropped and the name is normalised to Unicode NFC
// so that visually identical names address one file. Segments may not be
// empty, "." or "..", nor start with a dot: dot names are reserved for store
// metadata (".gpg-id", ".git", metadata sidecars).
//
// Prefixes match whole segments: "a" covers "a" and "a/b" but not "ab".
package entrypath
