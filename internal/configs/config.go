package configs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	kerrors "github.com/PolarWolf314/rakau/internal/errors"
)

// Config mirrors the configuration file.
type Config struct {
	Store      StoreConfig      `toml:"store"`
	Cipher     CipherConfig     `toml:"cipher"`
	Versioning VersioningConfig `toml:"versioning"`
	Audit      AuditConfig      `toml:"audit"`
}

type StoreConfig struct {
	Dir           string `toml:"dir,omitempty"`
	SigningKey    string `toml:"signing_key,omitempty"`
	KeepEmptyDirs bool   `toml:"keep_empty_dirs,omitempty"`
}

type CipherConfig struct {
	Backend       string   `toml:"backend,omitempty"`
	GPGExecutable string   `toml:"gpg_executable,omitempty"`
	GPGOpts       []string `toml:"gpg_opts,omitempty"`
	KeyringDir    string   `toml:"keyring_dir,omitempty"`
}

type VersioningConfig struct {
	Backend     string `toml:"backend,omitempty"`
	AuthorName  string `toml:"author_name,omitempty"`
	AuthorEmail string `toml:"author_email,omitempty"`
}

type AuditConfig struct {
	Path     string `toml:"path,omitempty"`
	Disabled bool   `toml:"disabled,omitempty"`
}

// DefaultConfigPath returns $RAKAU_CONFIG or config.toml in the user's
// configuration directory.
func DefaultConfigPath() (string, error) {
	if p := os.Getenv(EnvConfig); p != "" {
		return p, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("error getting config directory: %w", err)
	}
	return filepath.Join(dir, "rakau", "config.toml"), nil
}

// LoadConfig reads the configuration file at path. A missing file yields an
// empty Config.
//
// Returns ErrInvalidConfig if the file is malformed or has unknown keys.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}

	md, err := LoadTOML(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", kerrors.ErrInvalidConfig, path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, fmt.Errorf("%w: %s: unknown keys %s", kerrors.ErrInvalidConfig, path, strings.Join(keys, ", "))
	}
	return cfg, nil
}

// SaveConfig writes cfg to path.
func SaveConfig(path string, cfg *Config) error {
	if err := SaveTOML(path, cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}
