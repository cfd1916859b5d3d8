package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/Cyclone1070/butterfi/internal/gateway"
	"github.com/Cyclone1070/butterfi/internal/reply"
	"github.com/Cyclone1070/butterfi/internal/ui"
	"github.com/Cyclone1070/butterfi/internal/ui/services"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/spf13/cobra"
)

func newAskCmd(flags *globalFlags) *cobra.Command {
	var (
		address  string
		threadID string
		legacy   bool
	)
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Send one query and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := flags.client()
			question := strings.Join(args, " ")

			if legacy {
				res, thread, err := client.Query(cmd.Context(), gateway.LegacyQueryRequest{
					Query: question, UserAddress: address, ThreadID: threadID,
				})
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.ErrOrStderr(), "thread:", thread)
				return writeJSON(cmd, res)
			}

			r, thread, err := client.UserQuery(cmd.Context(), gateway.UserQueryRequest{
				UserInput: question, UserAddress: address, ThreadID: threadID,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "thread:", thread)
			body, err := reply.Encode(r)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), body)
			return err
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "wallet address the question is about")
	cmd.Flags().StringVar(&threadID, "thread", "", "continue an existing thread")
	cmd.Flags().BoolVar(&legacy, "legacy", false, "use the legacy /query endpoint")
	return cmd
}

func newChatCmd(flags *globalFlags) *cobra.Command {
	var (
		address string
		style   string
	)
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Open the interactive terminal chat",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			spinnerFactory := func() spinner.Model {
				return spinner.New(spinner.WithSpinner(spinner.Dot))
			}
			chat := ui.NewUI(
				flags.client(),
				ui.Session{UserAddress: address},
				services.NewGlamourRenderer(style),
				spinnerFactory,
			)
			return chat.Start(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "wallet address used for position questions")
	cmd.Flags().StringVar(&style, "style", "", "glamour style (dark, light, notty); detected when empty")
	return cmd
}

func newPositionsCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "positions <address>",
		Short: "Show staked balances and pending rewards of an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			positions, err := flags.client().Positions(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd, positions)
		},
	}
}

// newTxCmd builds "stake" or "withdraw".
func newTxCmd(flags *globalFlags, action string) *cobra.Command {
	short := "Approve and stake tokens in a strategy"
	if action == "withdraw" {
		short = "Withdraw staked tokens from a strategy"
	}
	return &cobra.Command{
		Use:   action + " <strategyId> <amount>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil || id <= 0 {
				return fmt.Errorf("strategy id must be a positive integer, got %q", args[0])
			}

			client := flags.client()
			send := client.Stake
			if action == "withdraw" {
				send = client.Withdraw
			}
			hash, err := send(cmd.Context(), id, args[1])
			if err != nil {
				return err
			}
			return writeJSON(cmd, gateway.TxResponse{TxHash: hash})
		},
	}
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
