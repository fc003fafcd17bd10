// Package main tests for the chatflow CLI application
package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/flowgraph/chatflow/internal/cli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_Version(t *testing.T) {
	tests := []struct {
		name      string
		version   string
		commit    string
		buildTime string
		want      string
	}{
		{
			name:      "version with dev defaults",
			version:   "dev",
			commit:    "unknown",
			buildTime: "unknown",
			want:      "chatflow dev (commit: unknown, built: unknown)\n",
		},
		{
			name:      "version with custom values",
			version:   "v1.0.0",
			commit:    "abc123",
			buildTime: "2024-01-01",
			want:      "chatflow v1.0.0 (commit: abc123, built: 2024-01-01)\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldVersion, oldCommit, oldBuildTime := Version, Commit, BuildTime
			t.Cleanup(func() { Version, Commit, BuildTime = oldVersion, oldCommit, oldBuildTime })
			Version, Commit, BuildTime = tt.version, tt.commit, tt.buildTime

			var stdout, stderr bytes.Buffer
			code := run([]string{"version"}, &stdout, &stderr)

			assert.Zero(t, code)
			assert.Equal(t, tt.want, stdout.String())
			assert.Empty(t, stderr.String())
		})
	}
}

func TestRun_Demo(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"demo", "--log-level", "error"}, &stdout, &stderr)
	require.Zero(t, code, stderr.String())

	var result cli.DemoResult
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &result))
	assert.Len(t, result.Flow.Nodes, 3)
	assert.Len(t, result.Flow.Edges, 2)
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "unknown command", args: []string{"launch"}, want: "unknown command"},
		{name: "invalid config", args: []string{"demo", "--log-level", "loud"}, want: "failed to load config"},
		{name: "unexpected argument", args: []string{"version", "extra"}, want: "Error:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := run(tt.args, &stdout, &stderr)

			assert.Equal(t, 1, code)
			assert.Contains(t, stderr.String(), tt.want)
		})
	}
}
