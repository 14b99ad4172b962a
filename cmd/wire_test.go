package cmd_test

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"

	"github.com/strangelove-ventures/oapp-wirer/cmd"
	"github.com/strangelove-ventures/oapp-wirer/types"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := cmd.NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(append(args, "--log-level", "error"))
	err := root.Execute()
	return out.String(), err
}

func TestResolveCommand(t *testing.T) {
	out, err := execute(t, "resolve", "--topology", "../config/sample-topology.yaml", "--json")
	require.NoError(t, err)

	var resolved map[string]types.ResolvedPathwayConfig
	require.NoError(t, json.Unmarshal([]byte(out), &resolved))
	require.Len(t, resolved, 4)

	// connection override on top of the defaults
	cfg := resolved["40102->40161"]
	require.NotNil(t, cfg.SendUln)
	require.Equal(t, uint64(5), cfg.SendUln.Confirmations)
	require.Len(t, cfg.SendUln.RequiredDVNs, 1)
	require.Equal(t, uint64(15), cfg.ReceiveUln.Confirmations)
	require.Nil(t, cfg.SendExecutor)

	// contract-level config applies to every pathway leaving it
	for _, key := range []string{"40161->40102", "40161->40231", "40161->40168"} {
		require.NotNil(t, resolved[key].SendExecutor, key)
		require.Equal(t, uint32(10000), resolved[key].SendExecutor.MaxMessageSize, key)
	}

	require.NotNil(t, resolved["40161->40168"].ReceiveLibrary)
	require.Nil(t, resolved["40161->40102"].ReceiveLibrary)
}

func TestResolveCommandYAML(t *testing.T) {
	out, err := execute(t, "resolve", "--topology", "../config/sample-topology.yaml")
	require.NoError(t, err)

	var resolved map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &resolved))
	require.Contains(t, resolved, "40161->40168")
}

func TestResolveCommandInvalidTopology(t *testing.T) {
	_, err := execute(t, "resolve", "--topology", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestWireRequiresConfig(t *testing.T) {
	_, err := execute(t, "wire", "--config", filepath.Join(t.TempDir(), "missing.yaml"), "--dry-run")
	require.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version", "--json")
	require.NoError(t, err)
	require.Contains(t, out, `"go":`)
}
