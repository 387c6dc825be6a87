package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/valuegraph/internal/cli"
)

const config = `
catalogue {
  market_data {
    values = ["MarketPrice"]
  }
}

target "SECURITY" "SEC~EQ1" {}

view "Prices" {
  calc_config "Default" {
    requirement "MarketPrice" {
      target = "SECURITY:SEC~EQ1"
    }
    requirement "Volatility" {
      target = "SECURITY:SEC~EQ1"
    }
  }
}
`

func writeConfig(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "main.hcl")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o600), "failed to set up test file")
	return path
}

func TestRun_BuildsAndPrints(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, config)
	var out, logs bytes.Buffer

	err := run(context.Background(), &out, &logs, []string{"-log-level", "warn", path})

	require.NoError(t, err)
	assert.Contains(t, out.String(), "view Prices / calc config Default")
	assert.Contains(t, out.String(), "1 nodes, 1 satisfied, 1 unsatisfied")
}

func TestRun_StrictExitCode(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, config)

	err := run(context.Background(), &bytes.Buffer{}, &bytes.Buffer{}, []string{"-strict", path})

	var exitErr *cli.ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, cli.ExitUnsatisfied, exitErr.Code)
}

func TestRun_StartupError(t *testing.T) {
	t.Parallel()
	// Missing closing brace.
	path := writeConfig(t, `function "X" {`)

	err := run(context.Background(), &bytes.Buffer{}, &bytes.Buffer{}, []string{path})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "application startup failed")
}

func TestRun_ShouldExit(t *testing.T) {
	t.Parallel()
	var logs bytes.Buffer

	err := run(context.Background(), &bytes.Buffer{}, &logs, []string{"-h"})

	require.NoError(t, err, "run() should return a nil error when shouldExit is true")
	assert.Contains(t, logs.String(), "Usage:", "Expected help text to be printed")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	err := run(context.Background(), &bytes.Buffer{}, &bytes.Buffer{}, []string{"--this-is-not-a-valid-flag"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "flag provided but not defined: -this-is-not-a-valid-flag")
}
