package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultConfigFilename)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
inputs:
  - type: tcp
    listen: "127.0.0.1:5140"
outputs:
  - type: file
    path: "/var/log/{source}.log"
    format: "[{level}] {message}"
  - type: elasticsearch
    url: "http://localhost:9200"
    index: app-logs
    flush_count: 250
    flush_interval: 5s
  - type: "null"
buffer: 4096
require_field: msg
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	require.Len(t, cfg.Inputs, 1)
	require.Equal(t, "tcp", cfg.Inputs[0].Type)
	require.Equal(t, "127.0.0.1:5140", cfg.Inputs[0].Listen)

	require.Len(t, cfg.Outputs, 3)
	require.Equal(t, "/var/log/{source}.log", cfg.Outputs[0].Path)
	require.Equal(t, 250, cfg.Outputs[1].FlushCount)
	require.Equal(t, 5*time.Second, cfg.Outputs[1].FlushIntervalDuration())
	require.Equal(t, 4096, cfg.Buffer)
	require.Equal(t, "msg", cfg.RequireField)
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tcp := Input{Type: "tcp", Listen: "127.0.0.1:5140"}
	null := Output{Type: "null"}

	cases := []struct {
		name    string
		cfg     File
		wantErr string
	}{
		{
			name:    "no inputs",
			cfg:     File{Outputs: []Output{null}},
			wantErr: "at least one input",
		},
		{
			name:    "no outputs",
			cfg:     File{Inputs: []Input{tcp}},
			wantErr: "at least one output",
		},
		{
			name:    "tcp without listen",
			cfg:     File{Inputs: []Input{{Type: "tcp"}}, Outputs: []Output{null}},
			wantErr: "listen address",
		},
		{
			name:    "unknown input type",
			cfg:     File{Inputs: []Input{{Type: "udp", Listen: ":1"}}, Outputs: []Output{null}},
			wantErr: `unknown input type "udp"`,
		},
		{
			name:    "file without path",
			cfg:     File{Inputs: []Input{tcp}, Outputs: []Output{{Type: "file", Format: "{message}"}}},
			wantErr: "needs a path",
		},
		{
			name:    "file without format",
			cfg:     File{Inputs: []Input{tcp}, Outputs: []Output{{Type: "file", Path: "/tmp/x.log"}}},
			wantErr: "needs a message format",
		},
		{
			name:    "elasticsearch without url",
			cfg:     File{Inputs: []Input{tcp}, Outputs: []Output{{Type: "elasticsearch"}}},
			wantErr: "needs a url",
		},
		{
			name: "elasticsearch bad flush_interval",
			cfg: File{
				Inputs:  []Input{tcp},
				Outputs: []Output{{Type: "elasticsearch", URL: "http://x", FlushInterval: "soon"}},
			},
			wantErr: "invalid flush_interval",
		},
		{
			name:    "unknown output type",
			cfg:     File{Inputs: []Input{tcp}, Outputs: []Output{{Type: "stdout"}}},
			wantErr: `unknown output type "stdout"`,
		},
		{
			name: "valid",
			cfg:  File{Inputs: []Input{tcp}, Outputs: []Output{null}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestFlushIntervalDuration(t *testing.T) {
	require.Equal(t, time.Duration(0), Output{}.FlushIntervalDuration())
	require.Equal(t, 90*time.Second, Output{FlushInterval: "1m30s"}.FlushIntervalDuration())
}
