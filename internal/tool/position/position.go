// Package position exposes the on-chain position reader to the model as the
// check_user_positions tool.
package position

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Cyclone1070/butterfi/internal/chain"
	"github.com/Cyclone1070/butterfi/internal/tool"
	"github.com/Cyclone1070/butterfi/internal/workflow"
	"github.com/Cyclone1070/butterfi/internal/workflow/toolmanager"
	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrAddressRequired is returned when neither the arguments nor the
	// request context carry a wallet address.
	ErrAddressRequired = errors.New("wallet address is required")
	// ErrInvalidAddress is returned for malformed addresses.
	ErrInvalidAddress = errors.New("invalid wallet address")
)

// positionLister is the consumer-side view of the position reader.
type positionLister interface {
	ListPositions(ctx context.Context, address string) []chain.Position
}

// CheckRequest is the decoded tool input.
type CheckRequest struct {
	Address string `json:"address,omitempty"`
}

func (r *CheckRequest) Validate() error {
	r.Address = strings.TrimSpace(r.Address)
	if r.Address != "" && !common.IsHexAddress(r.Address) {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, r.Address)
	}
	return nil
}

func (r *CheckRequest) String() string { return r.Address }

type checkResult struct {
	content   string
	positions []chain.Position
}

func (r *checkResult) LLMContent() string { return r.content }
func (r *checkResult) Artifact() any      { return r.positions }

// CheckTool reports the user's staked amounts and pending rewards.
type CheckTool struct {
	reader positionLister
}

func NewCheckTool(reader positionLister) *CheckTool {
	return &CheckTool{reader: reader}
}

func (t *CheckTool) Name() string { return tool.NameCheckPositions }

func (t *CheckTool) Declaration() tool.Declaration {
	return tool.Declaration{
		Name: tool.NameCheckPositions,
		Description: "Read the user's current staking positions and pending rewards for every strategy. " +
			"The connected wallet is used when no address is given.",
		Parameters: &tool.Schema{
			Type: tool.TypeObject,
			Properties: map[string]*tool.Schema{
				"address": {
					Type:        tool.TypeString,
					Description: "0x-prefixed wallet address. Optional.",
				},
			},
		},
	}
}

func (t *CheckTool) Input() any { return &CheckRequest{} }

// Execute lists positions for the requested address, falling back to the
// address attached to ctx.
func (t *CheckTool) Execute(ctx context.Context, input any) (toolmanager.Result, error) {
	req, ok := input.(*CheckRequest)
	if !ok {
		return nil, errors.New("unexpected input type")
	}

	address := req.Address
	if address == "" {
		address = workflow.UserAddress(ctx)
	}
	if address == "" {
		return nil, ErrAddressRequired
	}
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}

	positions := t.reader.ListPositions(ctx, address)
	content, err := json.MarshalIndent(positions, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("encode positions: %w", err)
	}
	return &checkResult{content: string(content), positions: positions}, nil
}
