// Package cmd contains testing utilities shared between command tests.
// This file provides common functions for setting up a temporary store,
// running commands against it, and capturing their output.
package cmd

import (
	"bytes"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PolarWolf314/rakau/internal/codec/codectest"
	"github.com/PolarWolf314/rakau/internal/configs"
	logger "github.com/PolarWolf314/rakau/internal/logging"
	"github.com/PolarWolf314/rakau/internal/workflows"
)

// testStore describes the temporary store commands run against.
type testStore struct {
	Root      string
	AuditPath string
	Cipher    *codectest.TagCipher

	// ExitCodes records calls to the validate exit function.
	ExitCodes []int
}

// setupTestStore points every command at a fresh store under a temporary
// directory, encrypted with a tag cipher and versioned with the journal.
func setupTestStore(t *testing.T) *testStore {
	t.Helper()
	dir := t.TempDir()
	ts := &testStore{
		Root:      filepath.Join(dir, "store"),
		AuditPath: filepath.Join(dir, "audit.jsonl"),
		Cipher:    codectest.New(),
	}

	ResetGlobalState()
	t.Cleanup(ResetGlobalState)

	SetLogger(logger.Logger{})
	isTerminal = func() bool { return false }
	SetValidateExitFunc(func(code int) { ts.ExitCodes = append(ts.ExitCodes, code) })
	SetWireFactory(func() (*workflows.Wire, error) {
		return workflows.NewWire(workflows.WireOptions{
			Settings: &configs.Settings{
				StoreDir:          ts.Root,
				VersioningBackend: configs.VersioningJournal,
				AuthorName:        "Test User",
				AuthorEmail:       "test@example.com",
				AuditPath:         ts.AuditPath,
			},
			Log:    Logger,
			Cipher: ts.Cipher,
		})
	})
	return ts
}

// captureOutput captures both stdout and stderr during function execution.
func captureOutput(fn func() error) (string, error) {
	// Save original stdout and stderr
	originalStdout := os.Stdout
	originalStderr := os.Stderr

	// Create pipes to capture output
	stdoutReader, stdoutWriter, _ := os.Pipe()
	stderrReader, stderrWriter, _ := os.Pipe()

	// Replace stdout and stderr
	os.Stdout = stdoutWriter
	os.Stderr = stderrWriter

	// Channel to collect output
	stdoutChan := make(chan string, 1)
	stderrChan := make(chan string, 1)

	// Start goroutines to read from pipes
	go func() {
		var buf bytes.Buffer
		_, err := io.Copy(&buf, stdoutReader)
		if err != nil {
			log.Fatalf("Failed to run copy command: %s", err)
		}
		stdoutChan <- buf.String()
	}()

	go func() {
		var buf bytes.Buffer
		_, err := io.Copy(&buf, stderrReader)
		if err != nil {
			log.Fatalf("Failed to run copy command: %s", err)
		}
		stderrChan <- buf.String()
	}()

	// Execute the function
	err := fn()

	// Close writers to signal EOF
	stdoutWriter.Close()
	stderrWriter.Close()

	// Restore original stdout and stderr
	os.Stdout = originalStdout
	os.Stderr = originalStderr

	return <-stdoutChan + <-stderrChan, err
}

// runCLI executes the root command with args, feeding stdin to it. Flags
// from earlier runs are reset first.
func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	for _, c := range RootCmd.Commands() {
		resetFlags(c.Flags())
	}
	resetFlags(RootCmd.PersistentFlags())

	RootCmd.SetArgs(args)
	RootCmd.SetIn(strings.NewReader(stdin))
	defer RootCmd.SetIn(nil)

	return captureOutput(RootCmd.Execute)
}

// mustRunCLI is runCLI for steps that have to succeed.
func mustRunCLI(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	output, err := runCLI(t, stdin, args...)
	if err != nil {
		t.Fatalf("rakau %s failed: %v\nOutput: %s", strings.Join(args, " "), err, output)
	}
	return output
}

// initializeStore initializes the test store for the given keys.
func initializeStore(t *testing.T, keys ...string) {
	t.Helper()
	mustRunCLI(t, "", append([]string{"init"}, keys...)...)
}
