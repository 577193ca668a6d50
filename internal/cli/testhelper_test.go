package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hejijunhao/authbayes/internal/model"
)

// workspace is a throwaway data tree with three input chunks.
type workspace struct {
	root, input, intermediate, summary string
}

func newWorkspace(t *testing.T) workspace {
	t.Helper()

	root := t.TempDir()
	w := workspace{
		root:         root,
		input:        filepath.Join(root, "input_data"),
		intermediate: filepath.Join(root, "intermediate_data"),
		summary:      filepath.Join(root, "summary_data"),
	}
	require.NoError(t, os.MkdirAll(w.input, 0755))

	chunks := []string{
		"100,u1,p,S\n101,u1,p,F\n102,u2,p,S\n103,u3,p,F\n",
		"200,u1,p,S\n201,u3,p,F\n202,u4,p,S\n",
		"300,u2,p,F\n",
	}
	for n, body := range chunks {
		require.NoError(t, os.WriteFile(filepath.Join(w.input, model.ChunkName(n)), []byte(body), 0644))
	}
	return w
}

// execute runs the root command with the workspace directories and
// returns what it printed.
func (w workspace) execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(append([]string{
		"--config", filepath.Join(w.root, "authbayes.toml"),
		"-i", w.input,
		"-I", w.intermediate,
		"-S", w.summary,
		"--log-level", "error",
	}, args...))

	err := cmd.Execute()
	return buf.String(), err
}
