package cmds

import (
	"path/filepath"
	"testing"

	"github.com/go-go-golems/logship/pkg/config"
	"github.com/stretchr/testify/require"
)

func TestBuildPipeline(t *testing.T) {
	cfg := &config.File{
		Inputs: []config.Input{{Type: "tcp", Listen: "127.0.0.1:5140"}},
		Outputs: []config.Output{
			{Type: "file", Path: filepath.Join(t.TempDir(), "{source}.log"), Format: "{message}"},
			{Type: "null"},
		},
		Buffer:       32,
		RequireField: "msg",
	}

	p, err := buildPipeline(cfg)
	require.NoError(t, err)
	require.Len(t, p.Inputs, 1)
	require.Len(t, p.Outputs, 2)
	require.Equal(t, 32, p.Buffer)
	require.Equal(t, "msg", p.RequiredField)
}

func TestBuildPipelineRejectsBrokenTemplate(t *testing.T) {
	cfg := &config.File{
		Inputs:  []config.Input{{Type: "tcp", Listen: "127.0.0.1:5140"}},
		Outputs: []config.Output{{Type: "file", Path: "/tmp/{broken", Format: "{message}"}},
	}

	_, err := buildPipeline(cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "outputs[0]")
}

func TestBuildPipelineRejectsUnknownCodec(t *testing.T) {
	cfg := &config.File{
		Inputs:  []config.Input{{Type: "tcp", Listen: "127.0.0.1:5140", Codec: "msgpack"}},
		Outputs: []config.Output{{Type: "null"}},
	}

	_, err := buildPipeline(cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "inputs[0]")
}
