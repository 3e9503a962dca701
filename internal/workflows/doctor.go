package workflows

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/PolarWolf314/rakau/internal/configs"
	"github.com/PolarWolf314/rakau/internal/recipients"
	"github.com/PolarWolf314/rakau/internal/store"
	"github.com/PolarWolf314/rakau/internal/utils"
)

// CheckStatus represents the result status of a health check.
type CheckStatus int

const (
	// CheckPass means the check passed.
	CheckPass CheckStatus = iota
	// CheckWarning means the check found a non-critical issue.
	CheckWarning
	// CheckError means the check found a critical issue.
	CheckError
)

// String returns a string representation of CheckStatus.
func (s CheckStatus) String() string {
	switch s {
	case CheckPass:
		return "pass"
	case CheckWarning:
		return "warning"
	case CheckError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalJSON implements json.Marshaler for CheckStatus.
func (s CheckStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// CheckResult holds the result of a single health check.
type CheckResult struct {
	Name       string      `json:"name"`
	Status     CheckStatus `json:"status"`
	Message    string      `json:"message"`
	Suggestion string      `json:"suggestion,omitempty"`
}

// Finding is a store integrity issue in reportable form.
type Finding struct {
	Kind   store.IssueKind `json:"kind"`
	Path   string          `json:"path"`
	Detail string          `json:"detail"`
	Status CheckStatus     `json:"status"`
}

// ValidateResult holds the complete result of the validate workflow.
type ValidateResult struct {
	Checks      []CheckResult   `json:"checks"`
	Findings    []Finding       `json:"findings,omitempty"`
	Summary     ValidateSummary `json:"summary"`
	Suggestions []string        `json:"suggestions,omitempty"`
}

// Healthy reports whether no check or finding is an error.
func (r *ValidateResult) Healthy() bool { return r.Summary.Errors == 0 }

// ValidateSummary holds counts of checks by status.
type ValidateSummary struct {
	Passed   int `json:"passed"`
	Warnings int `json:"warnings"`
	Errors   int `json:"errors"`
}

// ValidateOptions configures the validate workflow.
type ValidateOptions struct {
	// SkipIntegrity leaves out the scan of entries and declarations.
	SkipIntegrity bool
}

// Validate runs health checks on the store and its backends. Problems are
// reported in the result; only a store that cannot be read fails.
//
// The validate workflow checks:
//   - Configuration file validity
//   - Store root existence and permissions
//   - Cipher backend availability
//   - Versioning backend state
//   - Audit trail location
//   - Integrity of declarations, entries and metadata sidecars
func Validate(ctx context.Context, w *Wire, opts ValidateOptions) (*ValidateResult, error) {
	checks := []func(context.Context, *Wire) CheckResult{
		checkConfigFile,
		checkStoreRoot,
		checkStorePermissions,
		checkCipherBackend,
		checkVersioning,
		checkAuditTrail,
	}

	var results []CheckResult
	for _, check := range checks {
		results = append(results, check(ctx, w))
	}

	var findings []Finding
	if !opts.SkipIntegrity {
		if s, err := w.Store(); err == nil {
			issues, err := s.Validate(ctx)
			if err != nil {
				return nil, err
			}
			for _, is := range issues {
				findings = append(findings, Finding{
					Kind:   is.Kind,
					Path:   is.Path,
					Detail: is.Detail,
					Status: issueStatus(is.Kind),
				})
			}
			results = append(results, integrityCheck(findings))
		}
	}

	summary := calculateValidateSummary(results)

	// Collect suggestions (deduplicated).
	var suggestions []string
	seen := make(map[string]bool)
	for _, result := range results {
		if result.Suggestion != "" && result.Status != CheckPass && !seen[result.Suggestion] {
			suggestions = append(suggestions, result.Suggestion)
			seen[result.Suggestion] = true
		}
	}

	return &ValidateResult{
		Checks:      results,
		Findings:    findings,
		Summary:     summary,
		Suggestions: suggestions,
	}, nil
}

// checkConfigFile checks that the configuration file, if any, parses.
func checkConfigFile(_ context.Context, w *Wire) CheckResult {
	path := w.Settings.ConfigPath
	if path == "" || !utils.FileExists(path) {
		return CheckResult{
			Name:    "Configuration",
			Status:  CheckPass,
			Message: "No configuration file; using defaults and environment",
		}
	}
	if _, err := configs.LoadConfig(path); err != nil {
		return CheckResult{
			Name:       "Configuration",
			Status:     CheckError,
			Message:    fmt.Sprintf("Failed to parse %s: %v", path, err),
			Suggestion: fmt.Sprintf("Check %s for syntax errors or unknown keys", path),
		}
	}
	return CheckResult{
		Name:    "Configuration",
		Status:  CheckPass,
		Message: fmt.Sprintf("Configuration %s is valid", path),
	}
}

// checkStoreRoot checks that the store exists and has a root declaration.
func checkStoreRoot(_ context.Context, w *Wire) CheckResult {
	root := w.Root()
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return CheckResult{
			Name:       "Store root",
			Status:     CheckError,
			Message:    fmt.Sprintf("Store not found at %s", root),
			Suggestion: "Run 'rakau init <key-id>' to initialize the store",
		}
	}
	if !utils.FileExists(filepath.Join(root, recipients.DeclarationFile)) {
		return CheckResult{
			Name:       "Store root",
			Status:     CheckError,
			Message:    fmt.Sprintf("%s has no %s", root, recipients.DeclarationFile),
			Suggestion: "Run 'rakau init <key-id>' to declare the store recipients",
		}
	}
	return CheckResult{
		Name:    "Store root",
		Status:  CheckPass,
		Message: fmt.Sprintf("Store initialized at %s", root),
	}
}

// checkStorePermissions checks that the store root is private to its owner.
func checkStorePermissions(_ context.Context, w *Wire) CheckResult {
	root := w.Root()
	info, err := os.Stat(root)
	if os.IsNotExist(err) {
		return CheckResult{
			Name:    "Store permissions",
			Status:  CheckWarning,
			Message: "Store not found (skipping permissions check)",
		}
	}
	if err != nil {
		return CheckResult{
			Name:       "Store permissions",
			Status:     CheckError,
			Message:    fmt.Sprintf("Failed to stat store root: %v", err),
			Suggestion: "Check that the store root is accessible",
		}
	}

	mode := info.Mode().Perm()
	if mode&0o077 != 0 {
		return CheckResult{
			Name:       "Store permissions",
			Status:     CheckWarning,
			Message:    fmt.Sprintf("Store root is accessible to other users (%04o)", mode),
			Suggestion: fmt.Sprintf("Run 'chmod 700 %s' to fix permissions", root),
		}
	}
	return CheckResult{
		Name:    "Store permissions",
		Status:  CheckPass,
		Message: fmt.Sprintf("Store root has private permissions (%04o)", mode),
	}
}

// checkCipherBackend checks that the configured cipher can be used.
func checkCipherBackend(_ context.Context, w *Wire) CheckResult {
	switch w.CipherBackend {
	case configs.CipherGPG:
		exe := w.Settings.GPGExecutable
		if exe == "" {
			exe = "gpg"
		}
		if _, err := exec.LookPath(exe); err != nil {
			return CheckResult{
				Name:       "Cipher backend",
				Status:     CheckError,
				Message:    fmt.Sprintf("%s not found in PATH", exe),
				Suggestion: "Install GnuPG or set PASSWORD_STORE_GPG",
			}
		}
		return CheckResult{Name: "Cipher backend", Status: CheckPass, Message: fmt.Sprintf("Using %s", exe)}
	case configs.CipherNative:
		dir := w.Settings.KeyringDir
		if _, err := os.Stat(dir); err != nil {
			return CheckResult{
				Name:       "Cipher backend",
				Status:     CheckWarning,
				Message:    fmt.Sprintf("Native keyring %s not found", dir),
				Suggestion: "Generate a key pair into the keyring directory before encrypting",
			}
		}
		return CheckResult{Name: "Cipher backend", Status: CheckPass, Message: fmt.Sprintf("Using native keyring %s", dir)}
	default:
		return CheckResult{Name: "Cipher backend", Status: CheckPass, Message: fmt.Sprintf("Using %s cipher", w.CipherBackend)}
	}
}

// checkVersioning reports whether changes are being recorded.
func checkVersioning(ctx context.Context, w *Wire) CheckResult {
	name := w.Versioner.Name()
	if name == configs.VersioningNone {
		return CheckResult{Name: "Versioning", Status: CheckPass, Message: "Versioning is disabled"}
	}
	if !w.Versioner.Enabled(ctx) {
		return CheckResult{
			Name:       "Versioning",
			Status:     CheckWarning,
			Message:    fmt.Sprintf("The %s backend is not initialized; changes are not versioned", name),
			Suggestion: "Re-run 'rakau init' or set versioning backend to none",
		}
	}
	return CheckResult{Name: "Versioning", Status: CheckPass, Message: fmt.Sprintf("Recording changes with %s", name)}
}

// checkAuditTrail checks that the audit trail location is usable.
func checkAuditTrail(_ context.Context, w *Wire) CheckResult {
	if !w.Audit.Enabled() {
		return CheckResult{Name: "Audit trail", Status: CheckPass, Message: "Audit trail is disabled"}
	}
	dir := filepath.Dir(w.Audit.Path())
	if info, err := os.Stat(dir); err == nil && !info.IsDir() {
		return CheckResult{
			Name:       "Audit trail",
			Status:     CheckWarning,
			Message:    fmt.Sprintf("%s is not a directory; operations are not audited", dir),
			Suggestion: "Point the audit path at a writable location",
		}
	}
	return CheckResult{Name: "Audit trail", Status: CheckPass, Message: fmt.Sprintf("Auditing to %s", w.Audit.Path())}
}

// integrityCheck summarises the store findings as one check.
func integrityCheck(findings []Finding) CheckResult {
	worst := CheckPass
	for _, f := range findings {
		worst = max(worst, f.Status)
	}
	switch worst {
	case CheckPass:
		return CheckResult{Name: "Store integrity", Status: CheckPass, Message: "All entries match their recipients"}
	case CheckWarning:
		return CheckResult{
			Name:       "Store integrity",
			Status:     CheckWarning,
			Message:    fmt.Sprintf("%d finding(s) need attention", len(findings)),
			Suggestion: "Run 'rakau reencrypt --only-stale' to reseal stale entries",
		}
	default:
		return CheckResult{
			Name:       "Store integrity",
			Status:     CheckError,
			Message:    fmt.Sprintf("%d finding(s), some critical", len(findings)),
			Suggestion: "Check the recipient declarations listed above",
		}
	}
}

// issueStatus grades a store finding.
func issueStatus(kind store.IssueKind) CheckStatus {
	switch kind {
	case store.IssueMissingDeclaration, store.IssueBadSignature:
		return CheckError
	default:
		return CheckWarning
	}
}

// calculateValidateSummary calculates the counts of checks by status.
func calculateValidateSummary(results []CheckResult) ValidateSummary {
	var summary ValidateSummary
	for _, result := range results {
		switch result.Status {
		case CheckPass:
			summary.Passed++
		case CheckWarning:
			summary.Warnings++
		case CheckError:
			summary.Errors++
		}
	}
	return summary
}
