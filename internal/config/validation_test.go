package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate_AllDefaults_Pass(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.Validate()
	assert.NoError(t, err)
}

func TestValidate_Provider(t *testing.T) {
	t.Run("Empty Model Fails", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Provider.Model = ""
		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "provider.model")
	})

	t.Run("Temperature Out Of Range Fails", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Provider.Temperature = 3
		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "provider.temperature")
	})
}

func TestValidate_Controller(t *testing.T) {
	t.Run("Zero Parallelism Fails", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Controller.MaxParallelTools = 0
		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "max_parallel_tools")
	})

	t.Run("Tool Timeout Above Turn Timeout Fails", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Controller.ToolTimeoutMs = cfg.Controller.TurnTimeoutMs + 1
		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "tool_timeout_ms must be <=")
	})

	t.Run("Turn Timeout Not Below Write Timeout Fails", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Controller.TurnTimeoutMs = cfg.Server.WriteTimeoutMs
		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "turn_timeout_ms must be < server.write_timeout_ms")
	})

	t.Run("Too Few Transitions Fails", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Controller.MaxTransitions = 2
		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "max_transitions")
	})
}

func TestValidate_Knowledge(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Knowledge.TopK = 0
	cfg.Knowledge.Index = ""
	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "knowledge.top_k")
	assert.Contains(t, err.Error(), "knowledge.index")
}

func TestValidate_Chain(t *testing.T) {
	t.Run("Malformed Stake Token Fails", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Chain.StakeTokenAddress = "WMOD"
		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "stake_token_address")
	})

	t.Run("Gas Limit Below Intrinsic Fails", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Chain.StakeGasLimit = 100
		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "stake_gas_limit")
	})

	t.Run("Negative Decimals Fails", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Chain.Decimals = -1
		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "chain.decimals")
	})
}

func TestValidate_Logging(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Level = "loud"
	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "logging.level")
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Addr = ""
	cfg.Server.MaxConnections = 0
	cfg.Chain.RPCURL = ""
	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.addr")
	assert.Contains(t, err.Error(), "server.max_connections")
	assert.Contains(t, err.Error(), "chain.rpc_url")
}
