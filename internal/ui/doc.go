// Package ui provides semantic text formatting and tree rendering for CLI
// output.
//
// Formatters render content (commands, paths, entry names, errors) according
// to terminal capabilities. When colors are available, content is colorized.
// When NO_COLOR is set or the terminal doesn't support colors, text-based
// decorations (backticks, quotes) are used instead.
//
// # Semantic Formatters
//
//	ui.Code.Sprint("rakau init KEYID")        // Commands
//	ui.Path.Sprint("~/.password-store")       // File paths
//	ui.Entry.Sprint("email/gmail.com")        // Entry names
//	ui.Success.Sprint("✓")                    // Success indicators
//	ui.Error.Sprint("✗")                      // Error indicators
//	ui.Warning.Sprint("stale")                // Warnings
//	ui.Info.Sprint("→")                       // Informational hints
//	ui.Highlight.Sprint("alice@example.com")  // Recipient ids
//	ui.Muted.Sprint("3 entries")              // De-emphasized text
//
// # Trees
//
// RenderTree draws a sorted list of entry names as the box-drawing tree
// printed by `rakau show` without an entry name.
package ui
