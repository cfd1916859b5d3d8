package chain

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/Cyclone1070/butterfi/internal/logging"
	"github.com/Cyclone1070/butterfi/internal/strategy"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Position is a user's stake in one strategy.
type Position struct {
	Protocol       string  `json:"protocol"`
	StrategyID     int     `json:"strategyId"`
	StakingToken   string  `json:"staking_token"`
	RewardToken    string  `json:"reward_token"`
	AmountStaked   float64 `json:"amount_staked"`
	PendingRewards float64 `json:"pending_rewards"`
}

// PositionReader reads staked balances and pending rewards from the
// aggregator for every catalog strategy.
type PositionReader struct {
	backend     Backend
	aggregator  common.Address
	catalog     *strategy.Catalog
	decimals    int32
	callTimeout time.Duration
	logger      *zap.Logger
}

// ReaderConfig configures a PositionReader.
type ReaderConfig struct {
	Aggregator  common.Address
	Decimals    int32
	CallTimeout time.Duration
}

func NewPositionReader(backend Backend, catalog *strategy.Catalog, cfg ReaderConfig, logger *zap.Logger) *PositionReader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PositionReader{
		backend:     backend,
		aggregator:  cfg.Aggregator,
		catalog:     catalog,
		decimals:    cfg.Decimals,
		callTimeout: cfg.CallTimeout,
		logger:      logger,
	}
}

// ListPositions returns one entry per strategy in catalog order. It never
// fails: unreadable values are reported as zero.
func (r *PositionReader) ListPositions(ctx context.Context, address string) []Position {
	strategies := r.catalog.All()
	positions := make([]Position, len(strategies))

	valid := common.IsHexAddress(address)
	if !valid {
		r.logger.Warn("position lookup for malformed address", zap.String("address", address))
	}
	user := common.HexToAddress(address)

	for i, s := range strategies {
		positions[i] = Position{
			Protocol:     s.Name,
			StrategyID:   s.ID,
			StakingToken: s.StakingToken,
			RewardToken:  s.RewardToken,
		}
		if !valid {
			continue
		}
		positions[i].AmountStaked = r.read(ctx, "getStakedBalance", s.ID, user)
		positions[i].PendingRewards = r.read(ctx, "getPendingRewards", s.ID, user)
	}
	return positions
}

func (r *PositionReader) read(ctx context.Context, method string, strategyID int, user common.Address) float64 {
	v, err := r.call(ctx, method, strategyID, user)
	if err != nil {
		r.logger.Warn("position read failed",
			zap.String("method", method),
			zap.Int(logging.FieldStrategyID, strategyID),
			zap.Error(err))
		return 0
	}
	return FromBaseUnits(v, r.decimals)
}

func (r *PositionReader) call(ctx context.Context, method string, strategyID int, user common.Address) (*big.Int, error) {
	data, err := aggregatorABI.Pack(method, big.NewInt(int64(strategyID)), user)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	if r.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.callTimeout)
		defer cancel()
	}

	out, err := r.backend.CallContract(ctx, ethereum.CallMsg{To: &r.aggregator, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}

	values, err := aggregatorABI.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("unpack %s: expected 1 value, got %d", method, len(values))
	}
	v, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unpack %s: unexpected type %T", method, values[0])
	}
	return v, nil
}
