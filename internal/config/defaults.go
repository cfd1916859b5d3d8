package config

// Config holds all application configuration values.
// Defaults are set in DefaultConfig() and can be overridden via dotfile
// or BUTTERFI_* environment variables (e.g. BUTTERFI_PROVIDER_MODEL).
// NOTE: Values in config files override defaults, including explicit zero values.
// Missing keys are left at their default values.
type Config struct {
	Server     ServerConfig     `json:"server" mapstructure:"server"`
	Provider   ProviderConfig   `json:"provider" mapstructure:"provider"`
	Controller ControllerConfig `json:"controller" mapstructure:"controller"`
	Knowledge  KnowledgeConfig  `json:"knowledge" mapstructure:"knowledge"`
	Chain      ChainConfig      `json:"chain" mapstructure:"chain"`
	Logging    LoggingConfig    `json:"logging" mapstructure:"logging"`
}

type ServerConfig struct {
	Addr           string   `json:"addr" mapstructure:"addr"`                         // Default: ":8000"
	ReadTimeoutMs  int      `json:"read_timeout_ms" mapstructure:"read_timeout_ms"`   // Default: 10000
	WriteTimeoutMs int      `json:"write_timeout_ms" mapstructure:"write_timeout_ms"` // Default: 180000
	AllowedOrigins []string `json:"allowed_origins" mapstructure:"allowed_origins"`   // Default: empty, any origin
	MaxConnections int      `json:"max_connections" mapstructure:"max_connections"`   // Default: 256
}

type ProviderConfig struct {
	Model       string  `json:"model" mapstructure:"model"`             // Default: "gemini-2.5-flash"
	Temperature float32 `json:"temperature" mapstructure:"temperature"` // Default: 0
	TimeoutMs   int     `json:"timeout_ms" mapstructure:"timeout_ms"`   // Default: 60000
}

type ControllerConfig struct {
	MaxParallelTools int `json:"max_parallel_tools" mapstructure:"max_parallel_tools"` // Default: 4
	ToolTimeoutMs    int `json:"tool_timeout_ms" mapstructure:"tool_timeout_ms"`       // Default: 30000
	TurnTimeoutMs    int `json:"turn_timeout_ms" mapstructure:"turn_timeout_ms"`       // Default: 150000
	MaxTransitions   int `json:"max_transitions" mapstructure:"max_transitions"`       // Default: 8
}

type KnowledgeConfig struct {
	// DBPath empty resolves to ~/.config/butterfi/knowledge.db
	DBPath         string `json:"db_path" mapstructure:"db_path"`
	EmbeddingModel string `json:"embedding_model" mapstructure:"embedding_model"` // Default: "gemini-embedding-001"
	Index          string `json:"index" mapstructure:"index"`                     // Default: "butter-fi"
	TopK           int    `json:"top_k" mapstructure:"top_k"`                     // Default: 10
}

type ChainConfig struct {
	RPCURL            string `json:"rpc_url" mapstructure:"rpc_url"`                       // Default: "http://127.0.0.1:8545"
	ChainID           int64  `json:"chain_id" mapstructure:"chain_id"`                     // Default: 0 (ask the node)
	AggregatorAddress string `json:"aggregator_address" mapstructure:"aggregator_address"` // Default: 0x12C6...556C
	StakeTokenAddress string `json:"stake_token_address" mapstructure:"stake_token_address"`
	Decimals          int32  `json:"decimals" mapstructure:"decimals"`                   // Default: 18
	ApproveGasLimit   uint64 `json:"approve_gas_limit" mapstructure:"approve_gas_limit"` // Default: 100000
	StakeGasLimit     uint64 `json:"stake_gas_limit" mapstructure:"stake_gas_limit"`     // Default: 200000
	ReceiptPollMs     int    `json:"receipt_poll_ms" mapstructure:"receipt_poll_ms"`     // Default: 1000
	CallTimeoutMs     int    `json:"call_timeout_ms" mapstructure:"call_timeout_ms"`     // Default: 10000
	StrategiesFile    string `json:"strategies_file" mapstructure:"strategies_file"`     // Optional YAML override
}

type LoggingConfig struct {
	Level       string `json:"level" mapstructure:"level"`             // Default: "info"
	Development bool   `json:"development" mapstructure:"development"` // Default: false
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           ":8000",
			ReadTimeoutMs:  10000,
			WriteTimeoutMs: 180000,
			MaxConnections: 256,
		},
		Provider: ProviderConfig{
			Model:       "gemini-2.5-flash",
			Temperature: 0,
			TimeoutMs:   60000,
		},
		Controller: ControllerConfig{
			MaxParallelTools: 4,
			ToolTimeoutMs:    30000,
			TurnTimeoutMs:    150000,
			MaxTransitions:   8,
		},
		Knowledge: KnowledgeConfig{
			EmbeddingModel: "gemini-embedding-001",
			Index:          "butter-fi",
			TopK:           10,
		},
		Chain: ChainConfig{
			RPCURL:            "http://127.0.0.1:8545",
			AggregatorAddress: "0x12C61b22b397a6D72AD85f699fAf2D75f50D556C",
			StakeTokenAddress: "0x5FbDB2315678afecb367f032d93F642f64180aa3",
			Decimals:          18,
			ApproveGasLimit:   100000,
			StakeGasLimit:     200000,
			ReceiptPollMs:     1000,
			CallTimeoutMs:     10000,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
