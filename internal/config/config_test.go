package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, uint64(9900), c.Engine.MaxInputBps)
	assert.Equal(t, uint32(50), c.Engine.Search.MaxIterations)
	assert.Equal(t, int64(1), c.ChainID)
}

func TestLoad_YAMLAndEnv(t *testing.T) {
	path := writeFile(t, `
rpc_url: http://localhost:8545
chain_id: 31337
engine:
  max_input_bps: 5000
  slippage_bps: 100
  search:
    max_iterations: 20
    min_delta_percent: 2
    min_step_size: 10
    min_amount: 100
execution:
  gas_limit: 300000
`)
	t.Setenv("ARB_DB_PATH", "/tmp/arb.db")
	t.Setenv("RPC_URL", "http://node:8545")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://node:8545", c.RPCURL)
	assert.Equal(t, "/tmp/arb.db", c.DBPath)
	assert.Equal(t, int64(31337), c.ChainID)
	assert.Equal(t, uint64(5000), c.Engine.MaxInputBps)
	assert.Equal(t, uint64(100), c.Engine.SlippageBps)
	assert.Equal(t, uint32(20), c.Engine.Search.MaxIterations)
	assert.Equal(t, uint64(100), c.Engine.Search.MinAmount)
	assert.Equal(t, uint64(300000), c.Execution.GasLimit)
	// untouched keys keep their defaults
	assert.Equal(t, uint64(30), c.Execution.GasPriceGwei)
}

func TestLoad_Invalid(t *testing.T) {
	path := writeFile(t, "engine:\n  max_input_bps: 20000\n")
	_, err := Load(path)
	assert.Error(t, err)

	t.Setenv("CHAIN_ID", "mainnet")
	_, err = Load("")
	assert.Error(t, err)
}
