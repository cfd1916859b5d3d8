package main

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/Cyclone1070/butterfi/internal/assistant"
	"github.com/Cyclone1070/butterfi/internal/chain"
	"github.com/Cyclone1070/butterfi/internal/config"
	"github.com/Cyclone1070/butterfi/internal/knowledge"
	"github.com/Cyclone1070/butterfi/internal/provider/gemini"
	"github.com/Cyclone1070/butterfi/internal/reply"
	"github.com/Cyclone1070/butterfi/internal/strategy"
	"github.com/Cyclone1070/butterfi/internal/tool/position"
	"github.com/Cyclone1070/butterfi/internal/tool/retrieval"
	"github.com/Cyclone1070/butterfi/internal/workflow/controller"
	"github.com/Cyclone1070/butterfi/internal/workflow/toolmanager"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// Dependencies holds the components the server is assembled from.
type Dependencies struct {
	Config  *config.Config
	Logger  *zap.Logger
	Service *assistant.Service

	closers []func() error
}

// Close releases the index database and the RPC client.
func (d *Dependencies) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		errs = append(errs, d.closers[i]())
	}
	return errors.Join(errs...)
}

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}

func dialGemini(ctx context.Context) (*gemini.RealGeminiClient, error) {
	apiKey := os.Getenv(config.EnvGeminiAPIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("%s environment variable is required", config.EnvGeminiAPIKey)
	}
	client, err := gemini.Dial(ctx, apiKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return client, nil
}

func openIndex(cfg *config.Config, client gemini.GeminiClient, logger *zap.Logger) (*knowledge.Index, error) {
	if cfg.Knowledge.DBPath == "" {
		return nil, errors.New("knowledge.db_path is not set and no home directory was found")
	}
	embedder := gemini.NewEmbedder(client, cfg.Knowledge.EmbeddingModel)
	index, err := knowledge.Open(cfg.Knowledge.DBPath, embedder,
		knowledge.WithNamespace(cfg.Knowledge.Index),
		knowledge.WithDefaultK(cfg.Knowledge.TopK),
		knowledge.WithLogger(logger.Named("knowledge")),
	)
	if err != nil {
		return nil, fmt.Errorf("open knowledge index: %w", err)
	}
	return index, nil
}

// buildDependencies wires the assistant service from configuration.
func buildDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{Config: cfg, Logger: logger}
	ok := false
	defer func() {
		if !ok {
			_ = deps.Close()
		}
	}()

	catalog, err := strategy.Load(cfg.Chain.StrategiesFile, cfg.Chain.StakeTokenAddress)
	if err != nil {
		return nil, err
	}

	geminiClient, err := dialGemini(ctx)
	if err != nil {
		return nil, err
	}
	temperature := cfg.Provider.Temperature
	llm := gemini.NewGeminiProvider(geminiClient, cfg.Provider.Model, &temperature).
		WithTimeout(ms(cfg.Provider.TimeoutMs))

	index, err := openIndex(cfg, geminiClient, logger)
	if err != nil {
		return nil, err
	}
	deps.closers = append(deps.closers, index.Close)

	rpc, err := ethclient.DialContext(ctx, cfg.Chain.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial chain rpc: %w", err)
	}
	deps.closers = append(deps.closers, func() error { rpc.Close(); return nil })

	aggregator := common.HexToAddress(cfg.Chain.AggregatorAddress)
	reader := chain.NewPositionReader(rpc, catalog, chain.ReaderConfig{
		Aggregator:  aggregator,
		Decimals:    cfg.Chain.Decimals,
		CallTimeout: ms(cfg.Chain.CallTimeoutMs),
	}, logger.Named("positions"))

	key, err := chain.LoadKey(os.Getenv(config.EnvChainPrivateKey))
	switch {
	case errors.Is(err, chain.ErrNoSigner):
		logger.Warn("no signing key configured; /stake and /withdraw are disabled",
			zap.String("env", config.EnvChainPrivateKey))
	case err != nil:
		return nil, err
	}
	var chainID *big.Int
	if cfg.Chain.ChainID != 0 {
		chainID = big.NewInt(cfg.Chain.ChainID)
	}
	executor := chain.NewExecutor(rpc, key, catalog, chain.ExecutorConfig{
		Aggregator:      aggregator,
		ChainID:         chainID,
		Decimals:        cfg.Chain.Decimals,
		ApproveGasLimit: cfg.Chain.ApproveGasLimit,
		StakeGasLimit:   cfg.Chain.StakeGasLimit,
		ReceiptPoll:     ms(cfg.Chain.ReceiptPollMs),
	}, logger.Named("executor"))
	if key != nil {
		logger.Info("signer loaded", zap.String("from", executor.From().Hex()))
	}

	tools := toolmanager.NewToolManager(
		toolmanager.WithTimeout(ms(cfg.Controller.ToolTimeoutMs)),
		toolmanager.WithLogger(logger.Named("tools")),
	)
	for _, t := range []toolmanager.Tool{
		retrieval.NewSearchTool(index, cfg.Knowledge.TopK),
		position.NewCheckTool(reader),
	} {
		if err := tools.Register(t); err != nil {
			return nil, err
		}
	}
	tools.Seal()

	ctrl := controller.New(llm, tools, catalog, controller.Config{
		MaxParallelTools: cfg.Controller.MaxParallelTools,
		MaxTransitions:   cfg.Controller.MaxTransitions,
	}, logger.Named("controller"))

	deps.Service = assistant.New(assistant.Deps{
		Controller: ctrl,
		Normalizer: reply.NewNormalizer(catalog),
		Executor:   executor,
		Positions:  reader,
	},
		assistant.WithTurnTimeout(ms(cfg.Controller.TurnTimeoutMs)),
		assistant.WithLogger(logger.Named("assistant")),
	)

	ok = true
	return deps, nil
}
