package configs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	kerrors "github.com/PolarWolf314/rakau/internal/errors"
	"github.com/PolarWolf314/rakau/internal/utils"
)

// Environment variables read by Resolve.
const (
	EnvStoreDir     = "PASSWORD_STORE_DIR"
	EnvSigningKey   = "PASSWORD_STORE_SIGNING_KEY"
	EnvStoreGPG     = "PASSWORD_STORE_GPG"
	EnvGPG          = "GPG"
	EnvStoreGPGOpts = "PASSWORD_STORE_GPG_OPTS"
	EnvGPGOpts      = "GPG_OPTS"
	EnvCipher       = "RAKAU_CIPHER"
	EnvVersioning   = "RAKAU_VERSIONING"
	EnvKeyringDir   = "RAKAU_KEYRING_DIR"
	EnvConfig       = "RAKAU_CONFIG"
	EnvXDGDataHome  = "XDG_DATA_HOME"
)

// Cipher and versioning backends.
const (
	CipherGPG    = "gpg"
	CipherNative = "native"

	VersioningGit     = "git"
	VersioningJournal = "journal"
	VersioningNone    = "none"
)

// Settings is the effective configuration after defaults, the file, the
// environment and flags are applied, in that order.
type Settings struct {
	ConfigPath string

	StoreDir      string
	SigningKey    string
	KeepEmptyDirs bool

	CipherBackend string
	GPGExecutable string
	GPGOpts       []string
	KeyringDir    string

	VersioningBackend string
	AuthorName        string
	AuthorEmail       string

	// AuditPath is empty when auditing is disabled.
	AuditPath string
}

// Overrides are command-line values. Empty fields leave the setting alone.
type Overrides struct {
	ConfigPath string
	StoreDir   string
	Cipher     string
	Versioning string
}

// Load reads the configuration file and resolves settings against the
// process environment.
func Load(flags Overrides) (*Settings, error) {
	path := flags.ConfigPath
	if path == "" {
		var err error
		if path, err = DefaultConfigPath(); err != nil {
			return nil, err
		}
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	s, err := Resolve(cfg, os.Getenv, flags)
	if err != nil {
		return nil, err
	}
	s.ConfigPath = path
	return s, nil
}

// Resolve computes Settings from cfg, env and flags.
//
// Returns ErrInvalidConfig for unknown backends or unusable paths.
func Resolve(cfg *Config, env func(string) string, flags Overrides) (*Settings, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("error getting home directory: %w", err)
	}
	dataDir := env(EnvXDGDataHome)
	if dataDir == "" {
		dataDir = filepath.Join(home, ".local", "share")
	}

	s := &Settings{
		StoreDir:          filepath.Join(home, ".password-store"),
		CipherBackend:     CipherGPG,
		GPGExecutable:     "gpg",
		KeyringDir:        filepath.Join(dataDir, "rakau", "keys"),
		VersioningBackend: VersioningGit,
		AuditPath:         filepath.Join(dataDir, "rakau", "audit.jsonl"),
	}

	// File.
	setString(&s.StoreDir, cfg.Store.Dir)
	setString(&s.SigningKey, cfg.Store.SigningKey)
	s.KeepEmptyDirs = cfg.Store.KeepEmptyDirs
	setString(&s.CipherBackend, cfg.Cipher.Backend)
	setString(&s.GPGExecutable, cfg.Cipher.GPGExecutable)
	if len(cfg.Cipher.GPGOpts) > 0 {
		s.GPGOpts = cfg.Cipher.GPGOpts
	}
	setString(&s.KeyringDir, cfg.Cipher.KeyringDir)
	setString(&s.VersioningBackend, cfg.Versioning.Backend)
	setString(&s.AuthorName, cfg.Versioning.AuthorName)
	setString(&s.AuthorEmail, cfg.Versioning.AuthorEmail)
	setString(&s.AuditPath, cfg.Audit.Path)

	// Environment.
	setString(&s.StoreDir, env(EnvStoreDir))
	if keys := utils.SplitFields(env(EnvSigningKey)); len(keys) > 0 {
		s.SigningKey = keys[0]
	}
	setString(&s.GPGExecutable, firstNonEmpty(env(EnvStoreGPG), env(EnvGPG)))
	if opts := utils.SplitFields(firstNonEmpty(env(EnvStoreGPGOpts), env(EnvGPGOpts))); len(opts) > 0 {
		s.GPGOpts = opts
	}
	setString(&s.CipherBackend, env(EnvCipher))
	setString(&s.VersioningBackend, env(EnvVersioning))
	setString(&s.KeyringDir, env(EnvKeyringDir))

	// Flags.
	setString(&s.StoreDir, flags.StoreDir)
	setString(&s.CipherBackend, flags.Cipher)
	setString(&s.VersioningBackend, flags.Versioning)

	if cfg.Audit.Disabled {
		s.AuditPath = ""
	}

	s.CipherBackend = strings.ToLower(s.CipherBackend)
	switch s.CipherBackend {
	case CipherGPG, CipherNative:
	default:
		return nil, fmt.Errorf("%w: unknown cipher backend %q", kerrors.ErrInvalidConfig, s.CipherBackend)
	}
	s.VersioningBackend = strings.ToLower(s.VersioningBackend)
	switch s.VersioningBackend {
	case VersioningGit, VersioningJournal, VersioningNone:
	default:
		return nil, fmt.Errorf("%w: unknown versioning backend %q", kerrors.ErrInvalidConfig, s.VersioningBackend)
	}

	for _, p := range []*string{&s.StoreDir, &s.KeyringDir, &s.AuditPath} {
		if *p == "" {
			continue
		}
		expanded, err := utils.ExpandHome(*p)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", kerrors.ErrInvalidConfig, err)
		}
		*p = expanded
	}
	return s, nil
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
