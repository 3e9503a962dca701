package cmd

import (
	"strings"
	"testing"
)

func TestInsertAndShow(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		stdin string
		show  []string
		want  string
	}{
		{
			name: "SecretArgument",
			args: []string{"insert", "email/work", "hunter2"},
			show: []string{"show", "email/work"},
			want: "hunter2\n",
		},
		{
			name:  "PipedFirstLine",
			args:  []string{"insert", "wifi"},
			stdin: "s3cret\nignored\n",
			show:  []string{"show", "wifi"},
			want:  "s3cret\n",
		},
		{
			name:  "MultilineField",
			args:  []string{"insert", "-m", "bank"},
			stdin: "pw\nuser: alice\nurl: https://bank.example\n",
			show:  []string{"show", "--field", "user", "bank"},
			want:  "alice\n",
		},
		{
			name:  "MultilineLine",
			args:  []string{"insert", "--multiline", "bank"},
			stdin: "pw\nuser: alice\n",
			show:  []string{"show", "-l", "1", "bank"},
			want:  "pw\n",
		},
		{
			name:  "MultilineWhole",
			args:  []string{"insert", "-m", "notes/ssh"},
			stdin: "line one\nline two\n",
			show:  []string{"show", "notes/ssh"},
			want:  "line one\nline two\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupTestStore(t)
			initializeStore(t, "K1")

			output := mustRunCLI(t, tt.stdin, tt.args...)
			if !strings.Contains(output, "✓ Added") {
				t.Errorf("Expected success message not found in output: %s", output)
			}

			output = mustRunCLI(t, "", tt.show...)
			if output != tt.want {
				t.Errorf("rakau %s = %q, want %q", strings.Join(tt.show, " "), output, tt.want)
			}
		})
	}
}

func TestInsertExistingEntry(t *testing.T) {
	setupTestStore(t)
	initializeStore(t, "K1")
	mustRunCLI(t, "", "insert", "a", "one")

	output, err := runCLI(t, "", "insert", "a", "two")
	if err != nil {
		t.Errorf("Declined overwrite should not fail the process: %v", err)
	}
	if !strings.Contains(output, "--force") {
		t.Errorf("Expected --force hint in output: %s", output)
	}
	if got := mustRunCLI(t, "", "show", "a"); got != "one\n" {
		t.Errorf("entry changed without --force: %q", got)
	}

	output = mustRunCLI(t, "", "insert", "--force", "a", "two")
	if !strings.Contains(output, "✓ Replaced") {
		t.Errorf("Expected replace message in output: %s", output)
	}
	if got := mustRunCLI(t, "", "show", "a"); got != "two\n" {
		t.Errorf("show after --force = %q", got)
	}
}

func TestInsertConfirmsOverwriteOnTerminal(t *testing.T) {
	setupTestStore(t)
	initializeStore(t, "K1")
	mustRunCLI(t, "", "insert", "a", "one")

	isTerminal = func() bool { return true }
	output := mustRunCLI(t, "y\n", "insert", "a", "two")
	if !strings.Contains(output, "Overwrite it?") || !strings.Contains(output, "✓ Replaced") {
		t.Errorf("Expected confirmation and replace in output: %s", output)
	}

	isTerminal = func() bool { return false }
	if got := mustRunCLI(t, "", "show", "a"); got != "two\n" {
		t.Errorf("show after confirmed overwrite = %q", got)
	}
}

func TestInsertRejectsBadNames(t *testing.T) {
	setupTestStore(t)
	initializeStore(t, "K1")
	mustRunCLI(t, "", "insert", "dir/entry", "x")

	for _, name := range []string{"../escape", "dir", "a//b"} {
		output, err := runCLI(t, "", "insert", name, "x")
		if err == nil {
			t.Errorf("insert %q should fail, output: %s", name, output)
		}
	}
}

func TestShowErrors(t *testing.T) {
	setupTestStore(t)
	initializeStore(t, "K1")
	mustRunCLI(t, "", "insert", "a", "x")

	output, err := runCLI(t, "", "show", "missing")
	if err == nil {
		t.Errorf("show of a missing entry should fail, output: %s", output)
	}
	if !strings.Contains(output, "rakau ls") {
		t.Errorf("Expected ls hint in output: %s", output)
	}

	output, err = runCLI(t, "", "show", "--field", "user", "a")
	if err == nil {
		t.Errorf("show of a missing field should fail, output: %s", output)
	}
	if !strings.Contains(output, "field not found") {
		t.Errorf("Expected field error in output: %s", output)
	}
}

func TestShowTree(t *testing.T) {
	setupTestStore(t)
	initializeStore(t, "K1")
	mustRunCLI(t, "", "insert", "email/work", "x")
	mustRunCLI(t, "", "insert", "email/home", "x")
	mustRunCLI(t, "", "insert", "wifi", "x")

	output := mustRunCLI(t, "", "show")
	for _, want := range []string{"Password Store", "email", "├── home", "└── work", "wifi"} {
		if !strings.Contains(output, want) {
			t.Errorf("tree missing %q:\n%s", want, output)
		}
	}

	output = mustRunCLI(t, "", "show", "email")
	if strings.Contains(output, "wifi") || !strings.Contains(output, "work") {
		t.Errorf("folder tree should only hold email entries:\n%s", output)
	}
}
