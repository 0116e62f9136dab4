package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/instancegraph/internal/cli"
	"github.com/stretchr/testify/require"
)

func TestRun_Help(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	args := []string{"--help"}
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(context.Background(), out, &bytes.Buffer{}, args)

	// --- Assert ---
	require.NoError(t, err, "run() should return a nil error when help is requested")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	args := []string{"instances", "--this-is-not-a-valid-flag"}

	// --- Act ---
	err := run(context.Background(), &bytes.Buffer{}, &bytes.Buffer{}, args)

	// --- Assert ---
	var exitErr *cli.ExitError
	require.True(t, errors.As(err, &exitErr), "argument errors should carry an exit code")
	require.Equal(t, 2, exitErr.Code)
	require.Contains(t, exitErr.Message, "unknown flag: --this-is-not-a-valid-flag")
}

func TestRun_InvalidSnapshot(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	tempDir := t.TempDir()
	filePath := filepath.Join(tempDir, "main.hcl")
	require.NoError(t, os.WriteFile(filePath, []byte("node \"a\" {\n"), 0o600))

	// --- Act ---
	err := run(context.Background(), &bytes.Buffer{}, &bytes.Buffer{}, []string{"instances", "-s", filePath})

	// --- Assert ---
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to parse")
}

func TestRun_Instances(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	tempDir := t.TempDir()
	snapshot := "node \"web\" {}\n\ninstance \"web_1\" {\n  node  = \"web\"\n  state = \"started\"\n}\n"
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "main.hcl"), []byte(snapshot), 0o600))
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(context.Background(), out, &bytes.Buffer{}, []string{"instances", "-s", tempDir})

	// --- Assert ---
	require.NoError(t, err)
	require.Equal(t, "web_1\tweb\tstarted\n", out.String())
}
