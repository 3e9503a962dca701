package configs

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	kerrors "github.com/PolarWolf314/rakau/internal/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

func envFrom(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadConfigNonExistent(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Store.Dir != "" || cfg.Cipher.Backend != "" {
		t.Errorf("Expected empty config, got %+v", cfg)
	}
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
[store]
dir = "/srv/pass"
signing_key = "ABC"
keep_empty_dirs = true

[cipher]
backend = "native"
gpg_opts = ["--batch", "--yes"]

[versioning]
backend = "journal"
author_name = "Alice"

[audit]
disabled = true
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Store.Dir != "/srv/pass" || !cfg.Store.KeepEmptyDirs || cfg.Store.SigningKey != "ABC" {
		t.Errorf("Unexpected store section %+v", cfg.Store)
	}
	if !slices.Equal(cfg.Cipher.GPGOpts, []string{"--batch", "--yes"}) {
		t.Errorf("Unexpected gpg_opts %v", cfg.Cipher.GPGOpts)
	}
	if cfg.Versioning.Backend != "journal" || !cfg.Audit.Disabled {
		t.Errorf("Unexpected config %+v", cfg)
	}
}

func TestLoadConfigRejectsBadFiles(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"Malformed", "[store\ndir = 1"},
		{"UnknownKey", "[store]\ndirectory = \"/x\""},
		{"WrongType", "[store]\nkeep_empty_dirs = \"yes\""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tc.content))
			if !errors.Is(err, kerrors.ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rakau", "config.toml")
	want := &Config{
		Store:      StoreConfig{Dir: "/srv/pass"},
		Versioning: VersioningConfig{Backend: "none"},
	}
	if err := SaveConfig(path, want); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}
	got, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if got.Store.Dir != want.Store.Dir || got.Versioning.Backend != want.Versioning.Backend {
		t.Errorf("Round trip mismatch: %+v", got)
	}
}

func TestResolveDefaults(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	s, err := Resolve(nil, envFrom(map[string]string{EnvXDGDataHome: "/data"}), Overrides{})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if s.StoreDir != filepath.Join(home, ".password-store") {
		t.Errorf("StoreDir = %q", s.StoreDir)
	}
	if s.CipherBackend != CipherGPG || s.VersioningBackend != VersioningGit || s.GPGExecutable != "gpg" {
		t.Errorf("Unexpected defaults %+v", s)
	}
	if s.AuditPath != "/data/rakau/audit.jsonl" || s.KeyringDir != "/data/rakau/keys" {
		t.Errorf("Unexpected data paths %q %q", s.AuditPath, s.KeyringDir)
	}
}

func TestResolvePrecedence(t *testing.T) {
	cfg := &Config{
		Store:      StoreConfig{Dir: "/from/file", SigningKey: "FILEKEY"},
		Cipher:     CipherConfig{Backend: "native", GPGExecutable: "gpg-file", GPGOpts: []string{"--file"}},
		Versioning: VersioningConfig{Backend: "journal"},
	}

	t.Run("FileOverDefaults", func(t *testing.T) {
		s, err := Resolve(cfg, envFrom(nil), Overrides{})
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if s.StoreDir != "/from/file" || s.CipherBackend != CipherNative || s.GPGExecutable != "gpg-file" || s.SigningKey != "FILEKEY" {
			t.Errorf("Unexpected settings %+v", s)
		}
	})

	t.Run("EnvOverFile", func(t *testing.T) {
		env := envFrom(map[string]string{
			EnvStoreDir:   "/from/env",
			EnvSigningKey: "  K1 K2 ",
			EnvGPG:        "gpg-plain",
			EnvStoreGPG:   "gpg-store",
			EnvGPGOpts:    "--a --b",
			EnvVersioning: "NONE",
		})
		s, err := Resolve(cfg, env, Overrides{})
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if s.StoreDir != "/from/env" || s.SigningKey != "K1" {
			t.Errorf("Unexpected store settings %+v", s)
		}
		if s.GPGExecutable != "gpg-store" {
			t.Errorf("PASSWORD_STORE_GPG should win over GPG, got %q", s.GPGExecutable)
		}
		if !slices.Equal(s.GPGOpts, []string{"--a", "--b"}) {
			t.Errorf("GPGOpts = %v", s.GPGOpts)
		}
		if s.VersioningBackend != VersioningNone {
			t.Errorf("VersioningBackend = %q", s.VersioningBackend)
		}
	})

	t.Run("FlagsOverEnv", func(t *testing.T) {
		env := envFrom(map[string]string{EnvStoreDir: "/from/env", EnvCipher: "native"})
		s, err := Resolve(cfg, env, Overrides{StoreDir: "/from/flag", Cipher: "gpg"})
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if s.StoreDir != "/from/flag" || s.CipherBackend != CipherGPG {
			t.Errorf("Unexpected settings %+v", s)
		}
	})
}

func TestResolveAuditDisabled(t *testing.T) {
	s, err := Resolve(&Config{Audit: AuditConfig{Path: "/x", Disabled: true}}, envFrom(nil), Overrides{})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if s.AuditPath != "" {
		t.Errorf("AuditPath = %q, want empty", s.AuditPath)
	}
}

func TestResolveExpandsHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	s, err := Resolve(&Config{Store: StoreConfig{Dir: "~/secrets"}}, envFrom(nil), Overrides{})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if s.StoreDir != filepath.Join(home, "secrets") {
		t.Errorf("StoreDir = %q", s.StoreDir)
	}
}

func TestResolveRejectsUnknownBackends(t *testing.T) {
	for _, o := range []Overrides{{Cipher: "rot13"}, {Versioning: "svn"}} {
		if _, err := Resolve(nil, envFrom(nil), o); !errors.Is(err, kerrors.ErrInvalidConfig) {
			t.Errorf("Resolve(%+v) = %v, want ErrInvalidConfig", o, err)
		}
	}
}

func TestLoadUsesConfigPathOverride(t *testing.T) {
	path := writeConfig(t, "[versioning]\nbackend = \"none\"\n")
	t.Setenv(EnvVersioning, "")
	s, err := Load(Overrides{ConfigPath: path})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.ConfigPath != path || s.VersioningBackend != VersioningNone {
		t.Errorf("Unexpected settings %+v", s)
	}
}
