package main

import (
	"github.com/Cyclone1070/butterfi/internal/config"
	"github.com/Cyclone1070/butterfi/internal/gateway"
	"github.com/Cyclone1070/butterfi/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const defaultServerURL = "http://localhost:8000"

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	serverURL  string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	rootCmd := &cobra.Command{
		Use:           "butterfi",
		Short:         "DeFi staking assistant for Monad",
		Long:          "butterfi answers staking questions, recommends strategies, and stakes or withdraws through the strategy aggregator.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default ~/.config/butterfi/config.json)")
	rootCmd.PersistentFlags().StringVar(&flags.serverURL, "server", defaultServerURL, "gateway URL used by client commands")

	rootCmd.AddCommand(
		newServeCmd(flags),
		newIngestCmd(flags),
		newAskCmd(flags),
		newChatCmd(flags),
		newPositionsCmd(flags),
		newTxCmd(flags, "stake"),
		newTxCmd(flags, "withdraw"),
	)
	return rootCmd
}

func (f *globalFlags) loadConfig() (*config.Config, *zap.Logger, error) {
	loader := config.NewLoader()
	if f.configPath != "" {
		loader = loader.WithPath(f.configPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func (f *globalFlags) client() *gateway.Client {
	return gateway.NewClient(f.serverURL, nil)
}
