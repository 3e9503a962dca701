package cmd

import (
	"encoding/json"
	"slices"
	"strings"
	"testing"

	"github.com/PolarWolf314/rakau/internal/audit"
	"github.com/PolarWolf314/rakau/internal/versioning"
)

func TestLogCommand(t *testing.T) {
	setupTestStore(t)
	initializeStore(t, "K1")
	seedEntries(t, "a")
	mustRunCLI(t, "", "mv", "a", "b")

	output := mustRunCLI(t, "", "log", "--json")
	var records []versioning.Record
	if err := json.Unmarshal([]byte(output), &records); err != nil {
		t.Fatalf("log --json printed invalid JSON: %v\n%s", err, output)
	}
	var messages []string
	for _, r := range records {
		messages = append(messages, r.Message)
	}
	want := []string{
		"Rename a to b.",
		"Add given password for a to store.",
		"Set GPG id to K1.",
	}
	if !slices.Equal(messages, want) {
		t.Errorf("messages = %q, want %q", messages, want)
	}
	if records[0].Author != "Test User <test@example.com>" {
		t.Errorf("author = %q", records[0].Author)
	}

	output = mustRunCLI(t, "", "log", "-n", "1")
	if !strings.Contains(output, "Rename a to b.") || strings.Contains(output, "Set GPG id") {
		t.Errorf("log -n 1 output: %s", output)
	}
}

func TestCommitCommandNothingPending(t *testing.T) {
	setupTestStore(t)
	initializeStore(t, "K1")

	output := mustRunCLI(t, "", "commit")
	if !strings.Contains(output, "Nothing to record") {
		t.Errorf("Expected nothing-to-record in output: %s", output)
	}
}

func TestAuditCommand(t *testing.T) {
	setupTestStore(t)
	initializeStore(t, "K1")
	seedEntries(t, "mail/work", "bank")
	mustRunCLI(t, "", "show", "bank")
	mustRunCLI(t, "", "rm", "mail/work")

	output := mustRunCLI(t, "", "audit", "--json")
	var entries []audit.Entry
	if err := json.Unmarshal([]byte(output), &entries); err != nil {
		t.Fatalf("audit --json printed invalid JSON: %v\n%s", err, output)
	}
	var ops []string
	for _, e := range entries {
		ops = append(ops, e.Operation)
	}
	want := []string{"init", "insert", "insert", "show", "remove"}
	if !slices.Equal(ops, want) {
		t.Errorf("operations = %q, want %q", ops, want)
	}

	output = mustRunCLI(t, "", "audit", "--operation", "insert", "--path", "mail", "--oneline")
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) != 1 || !strings.Contains(lines[0], "insert mail/work") {
		t.Errorf("filtered audit output:\n%s", output)
	}

	output = mustRunCLI(t, "", "audit", "--user", "nobody-at-all")
	if !strings.Contains(output, "matching the filters") {
		t.Errorf("Expected no-match message in output: %s", output)
	}

	output, err := runCLI(t, "", "audit", "--since", "yesterday")
	if err == nil {
		t.Errorf("audit with a bad date should fail, output: %s", output)
	}
}
