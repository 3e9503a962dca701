// Package store manages the tree of encrypted entries below a store root.
//
// Each entry lives in "<root>/<name>.gpg" with a metadata sidecar next to
// it (see package codec). Recipients come from the nearest ".gpg-id"
// declaration (see package recipients).
//
// # Durability
//
// Every file is replaced by writing a temp file in the same directory,
// syncing it and renaming it into place, so a failure at any step leaves
// the previous content readable. The ciphertext is always renamed before
// its sidecar; a crash in between leaves an entry whose metadata lags
// behind, which Validate reports as stale and Reencrypt repairs.
//
// # Concurrency
//
// A Store serialises writers of the same physical path with per-path
// locks. Distinct stores, or processes, coordinate only through the
// atomic renames.
//
// # Listing
//
// List and Search return sorted snapshots taken at call time. Dot files
// and dot directories (declarations, sidecars, temp files, .git) are never
// entries.
package store
