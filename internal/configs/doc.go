// Package configs loads rakau's configuration.
//
// Configuration is stored in TOML format, by default at
// $XDG_CONFIG_HOME/rakau/config.toml (override with RAKAU_CONFIG):
//
//	[store]
//	dir = "~/.password-store"
//	signing_key = "0xDEADBEEF"
//	keep_empty_dirs = false
//
//	[cipher]
//	backend = "gpg"          # or "native"
//	gpg_executable = "gpg2"
//	gpg_opts = ["--pinentry-mode", "loopback"]
//	keyring_dir = "~/.local/share/rakau/keys"
//
//	[versioning]
//	backend = "git"          # "journal" or "none"
//	author_name = "Alice"
//	author_email = "alice@example.com"
//
//	[audit]
//	path = "~/.local/share/rakau/audit.jsonl"
//	disabled = false
//
// # Precedence
//
// Defaults are overridden by the file, the file by environment variables
// and the environment by command-line flags. The environment variables
// keep the names pass users know: PASSWORD_STORE_DIR,
// PASSWORD_STORE_SIGNING_KEY, PASSWORD_STORE_GPG or GPG and
// PASSWORD_STORE_GPG_OPTS or GPG_OPTS. RAKAU_CIPHER, RAKAU_VERSIONING and
// RAKAU_KEYRING_DIR select backends.
//
// Unknown keys in the file are rejected with ErrInvalidConfig so typos do
// not silently fall back to defaults.
package configs
