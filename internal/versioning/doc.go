// Package versioning records store changes so they can be reviewed and
// undone outside rakau.
//
// # Backends
//
// Three Versioner implementations exist:
//
//   - Git commits each change in the repository that contains the store
//     root. A root outside any work tree disables it.
//   - Journal appends each change to a SQLite database kept inside the
//     store root, with a content digest per touched file.
//   - None records nothing.
//
// # Records
//
// A Change names the root-relative files that were touched. Files that
// still exist are recorded with their new content, files that are gone are
// recorded as removals. When nothing differs from the last record,
// RecordChange returns a zero Record and no error.
package versioning
