// Package services holds the formatting helpers of the terminal chat.
package services

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Cyclone1070/butterfi/internal/chain"
	"github.com/Cyclone1070/butterfi/internal/reply"
)

// ErrUsage is returned for malformed slash command arguments.
var ErrUsage = errors.New("usage")

// ParseTxCommand parses the arguments of /stake and /withdraw:
// "<strategyId> <amount>".
func ParseTxCommand(args []string) (int, string, error) {
	if len(args) != 2 {
		return 0, "", fmt.Errorf("%w: <strategyId> <amount>", ErrUsage)
	}
	id, err := strconv.Atoi(args[0])
	if err != nil || id <= 0 {
		return 0, "", fmt.Errorf("%w: strategy id must be a positive integer, got %q", ErrUsage, args[0])
	}
	return id, args[1], nil
}

// FormatStrategies renders recommended strategies as a numbered markdown list.
func FormatStrategies(strategies []reply.Strategy) string {
	var sb strings.Builder
	sb.WriteString("**Strategies**\n\n")
	for i, s := range strategies {
		fmt.Fprintf(&sb, "%d. **%s** (id %d): %s\n", i+1, s.Label, s.StrategyID, s.Description)
	}
	return sb.String()
}

// FormatPositions renders positions as a markdown table.
func FormatPositions(address string, positions []chain.Position) string {
	if len(positions) == 0 {
		return fmt.Sprintf("No strategies configured for `%s`.", address)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Positions of `%s`\n\n", address)
	sb.WriteString("| Protocol | Id | Staked | Pending rewards |\n")
	sb.WriteString("|---|---|---|---|\n")
	for _, p := range positions {
		fmt.Fprintf(&sb, "| %s | %d | %s %s | %s %s |\n",
			p.Protocol, p.StrategyID,
			formatAmount(p.AmountStaked), p.StakingToken,
			formatAmount(p.PendingRewards), p.RewardToken)
	}
	return sb.String()
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ShortAddress abbreviates a hex address for the status bar.
func ShortAddress(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}
