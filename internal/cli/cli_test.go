package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/valuegraph/internal/app"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name string
		args []string
		want *app.Config
	}{
		{
			name: "positional path with defaults",
			args: []string{"catalogue.hcl"},
			want: &app.Config{
				ConfigPaths:      []string{"catalogue.hcl"},
				Output:           "text",
				PublishNamespace: "/",
				LogFormat:        "json",
				LogLevel:         "info",
			},
		},
		{
			name: "every option",
			args: []string{
				"-c", "catalogue.hcl",
				"-config", "universe/",
				"-view", "Risk",
				"-calc-config", "Default, Forward",
				"-calc-config", "Stress",
				"-default-properties", "Curve=Discount",
				"-strict",
				"-output", "JSON",
				"-healthcheck-port", "8080",
				"-publish-url", "http://localhost:3000/socket.io/",
				"-publish-namespace", "/graphs",
				"-log-format", "TEXT",
				"-log-level", "DEBUG",
				"-workers", "8",
				"views.hcl",
			},
			want: &app.Config{
				ConfigPaths:       []string{"catalogue.hcl", "universe/", "views.hcl"},
				View:              "Risk",
				CalcConfigs:       []string{"Default", "Forward", "Stress"},
				DefaultProperties: "Curve=Discount",
				Strict:            true,
				Output:            "json",
				PublishURL:        "http://localhost:3000/socket.io/",
				PublishNamespace:  "/graphs",
				HealthcheckPort:   8080,
				LogFormat:         "text",
				LogLevel:          "debug",
				WorkerCount:       8,
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, exit, err := Parse(tc.args, &bytes.Buffer{})
			require.NoError(t, err)
			assert.False(t, exit)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParse_ExitsCleanly(t *testing.T) {
	for _, args := range [][]string{{"-h"}, {}} {
		var out bytes.Buffer
		cfg, exit, err := Parse(args, &out)
		require.NoError(t, err)
		assert.True(t, exit)
		assert.Nil(t, cfg)
		assert.Contains(t, out.String(), "Usage:")
	}
}

func TestParse_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		args    []string
		wantMsg string
	}{
		{name: "unknown flag", args: []string{"-nope"}, wantMsg: "flag provided but not defined"},
		{name: "log format", args: []string{"-log-format", "xml", "x"}, wantMsg: "invalid log-format"},
		{name: "log level", args: []string{"-log-level", "trace", "x"}, wantMsg: "invalid log-level"},
		{name: "output", args: []string{"-output", "yaml", "x"}, wantMsg: "unknown output format"},
		{name: "default properties", args: []string{"-default-properties", "Curve=[a,b]", "x"}, wantMsg: "invalid default properties"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := Parse(tc.args, &bytes.Buffer{})
			var exitErr *ExitError
			require.True(t, errors.As(err, &exitErr), "expected ExitError, got %v", err)
			assert.Equal(t, ExitUsage, exitErr.Code)
			assert.Contains(t, exitErr.Message, tc.wantMsg)
		})
	}
}
