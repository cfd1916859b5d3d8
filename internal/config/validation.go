package config

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap/zapcore"
)

// Validate checks config values for correctness.
// Returns an error listing every invalid value.
func (c *Config) Validate() error {
	var errs []string

	// Server
	if c.Server.Addr == "" {
		errs = append(errs, "server.addr must not be empty")
	}
	if c.Server.ReadTimeoutMs < 1 {
		errs = append(errs, "server.read_timeout_ms must be >= 1")
	}
	if c.Server.WriteTimeoutMs < 1 {
		errs = append(errs, "server.write_timeout_ms must be >= 1")
	}
	if c.Server.MaxConnections < 1 {
		errs = append(errs, "server.max_connections must be >= 1")
	}

	// Provider
	if c.Provider.Model == "" {
		errs = append(errs, "provider.model must not be empty")
	}
	if c.Provider.Temperature < 0 || c.Provider.Temperature > 2 {
		errs = append(errs, "provider.temperature must be between 0 and 2")
	}
	if c.Provider.TimeoutMs < 1 {
		errs = append(errs, "provider.timeout_ms must be >= 1")
	}

	// Controller
	if c.Controller.MaxParallelTools < 1 {
		errs = append(errs, "controller.max_parallel_tools must be >= 1")
	}
	if c.Controller.ToolTimeoutMs < 1 {
		errs = append(errs, "controller.tool_timeout_ms must be >= 1")
	}
	if c.Controller.TurnTimeoutMs < 1 {
		errs = append(errs, "controller.turn_timeout_ms must be >= 1")
	}
	if c.Controller.MaxTransitions < 3 {
		errs = append(errs, "controller.max_transitions must be >= 3")
	}
	if c.Controller.ToolTimeoutMs > c.Controller.TurnTimeoutMs {
		errs = append(errs, "controller.tool_timeout_ms must be <= controller.turn_timeout_ms")
	}
	// the turn must end before the server drops the response
	if c.Controller.TurnTimeoutMs >= c.Server.WriteTimeoutMs {
		errs = append(errs, "controller.turn_timeout_ms must be < server.write_timeout_ms")
	}

	// Knowledge
	if c.Knowledge.EmbeddingModel == "" {
		errs = append(errs, "knowledge.embedding_model must not be empty")
	}
	if c.Knowledge.Index == "" {
		errs = append(errs, "knowledge.index must not be empty")
	}
	if c.Knowledge.TopK < 1 {
		errs = append(errs, "knowledge.top_k must be >= 1")
	}

	// Chain
	if c.Chain.RPCURL == "" {
		errs = append(errs, "chain.rpc_url must not be empty")
	}
	if c.Chain.ChainID < 0 {
		errs = append(errs, "chain.chain_id must be >= 0")
	}
	if !common.IsHexAddress(c.Chain.AggregatorAddress) {
		errs = append(errs, "chain.aggregator_address must be a hex address")
	}
	if !common.IsHexAddress(c.Chain.StakeTokenAddress) {
		errs = append(errs, "chain.stake_token_address must be a hex address")
	}
	if c.Chain.Decimals < 0 || c.Chain.Decimals > 36 {
		errs = append(errs, "chain.decimals must be between 0 and 36")
	}
	if c.Chain.ApproveGasLimit < 21000 {
		errs = append(errs, "chain.approve_gas_limit must be >= 21000")
	}
	if c.Chain.StakeGasLimit < 21000 {
		errs = append(errs, "chain.stake_gas_limit must be >= 21000")
	}
	if c.Chain.ReceiptPollMs < 1 {
		errs = append(errs, "chain.receipt_poll_ms must be >= 1")
	}
	if c.Chain.CallTimeoutMs < 1 {
		errs = append(errs, "chain.call_timeout_ms must be >= 1")
	}

	// Logging
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Sprintf("logging.level %q is not a valid level", c.Logging.Level))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %v", errs)
	}

	return nil
}
