package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/Cyclone1070/butterfi/internal/logging"
	"github.com/Cyclone1070/butterfi/internal/strategy"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

// ExecutorConfig configures an Executor.
type ExecutorConfig struct {
	Aggregator common.Address
	// ChainID is fetched from the backend on first use when nil.
	ChainID         *big.Int
	Decimals        int32
	ApproveGasLimit uint64
	StakeGasLimit   uint64
	ReceiptPoll     time.Duration
}

// Executor signs and sends aggregator transactions from a single account.
// Sends are serialized so nonces never collide.
type Executor struct {
	backend Backend
	key     *ecdsa.PrivateKey
	from    common.Address
	catalog *strategy.Catalog
	cfg     ExecutorConfig
	logger  *zap.Logger

	sem chan struct{}

	chainMu sync.Mutex
	chainID *big.Int
}

// LoadKey parses a hex private key, with or without 0x prefix.
func LoadKey(hexKey string) (*ecdsa.PrivateKey, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	if hexKey == "" {
		return nil, ErrNoSigner
	}
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return key, nil
}

func NewExecutor(backend Backend, key *ecdsa.PrivateKey, catalog *strategy.Catalog, cfg ExecutorConfig, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ReceiptPoll <= 0 {
		cfg.ReceiptPoll = time.Second
	}
	e := &Executor{
		backend: backend,
		key:     key,
		catalog: catalog,
		cfg:     cfg,
		logger:  logger,
		sem:     make(chan struct{}, 1),
		chainID: cfg.ChainID,
	}
	if key != nil {
		e.from = crypto.PubkeyToAddress(key.PublicKey)
	}
	return e
}

// From returns the sending account.
func (e *Executor) From() common.Address { return e.from }

// Stake approves the aggregator to pull amount of the strategy's stake token,
// then stakes it. The returned hash is the stake transaction's.
func (e *Executor) Stake(ctx context.Context, strategyID int, amount string) (string, error) {
	s, wei, err := e.prepare(strategyID, amount)
	if err != nil {
		return "", err
	}
	if err := e.lock(ctx); err != nil {
		return "", err
	}
	defer e.unlock()

	log := e.logger.With(zap.Int(logging.FieldStrategyID, strategyID), zap.String("amount", amount))

	approveData, err := erc20ABI.Pack("approve", e.cfg.Aggregator, wei)
	if err != nil {
		return "", &ApprovalError{StrategyID: strategyID, Err: err}
	}
	token := common.HexToAddress(s.StakeToken)
	approveHash, err := e.transact(ctx, token, approveData, e.cfg.ApproveGasLimit)
	if err != nil {
		log.Warn("approve failed", zap.Error(err))
		return "", &ApprovalError{StrategyID: strategyID, Err: err}
	}
	log.Info("approve confirmed", zap.String(logging.FieldTxHash, approveHash.Hex()))

	stakeData, err := aggregatorABI.Pack("stake", big.NewInt(int64(strategyID)), wei)
	if err != nil {
		return "", &StakeError{StrategyID: strategyID, Err: err}
	}
	stakeHash, err := e.transact(ctx, e.cfg.Aggregator, stakeData, e.cfg.StakeGasLimit)
	if err != nil {
		log.Warn("stake failed", zap.Error(err))
		return "", &StakeError{StrategyID: strategyID, Err: err}
	}
	log.Info("stake confirmed", zap.String(logging.FieldTxHash, stakeHash.Hex()))
	return stakeHash.Hex(), nil
}

// Withdraw pulls amount out of a strategy back to the sending account.
func (e *Executor) Withdraw(ctx context.Context, strategyID int, amount string) (string, error) {
	_, wei, err := e.prepare(strategyID, amount)
	if err != nil {
		return "", err
	}
	if err := e.lock(ctx); err != nil {
		return "", err
	}
	defer e.unlock()

	data, err := aggregatorABI.Pack("withdraw", big.NewInt(int64(strategyID)), wei)
	if err != nil {
		return "", &WithdrawError{StrategyID: strategyID, Err: err}
	}
	hash, err := e.transact(ctx, e.cfg.Aggregator, data, e.cfg.StakeGasLimit)
	if err != nil {
		e.logger.Warn("withdraw failed", zap.Int(logging.FieldStrategyID, strategyID), zap.Error(err))
		return "", &WithdrawError{StrategyID: strategyID, Err: err}
	}
	e.logger.Info("withdraw confirmed",
		zap.Int(logging.FieldStrategyID, strategyID),
		zap.String(logging.FieldTxHash, hash.Hex()))
	return hash.Hex(), nil
}

func (e *Executor) prepare(strategyID int, amount string) (strategy.Strategy, *big.Int, error) {
	if e.key == nil {
		return strategy.Strategy{}, nil, ErrNoSigner
	}
	s, ok := e.catalog.Lookup(strategyID)
	if !ok {
		return strategy.Strategy{}, nil, fmt.Errorf("%w: %d", ErrUnknownStrategy, strategyID)
	}
	wei, err := ToBaseUnits(amount, e.cfg.Decimals)
	if err != nil {
		return strategy.Strategy{}, nil, err
	}
	return s, wei, nil
}

func (e *Executor) lock(ctx context.Context) error {
	select {
	case e.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Executor) unlock() { <-e.sem }

func (e *Executor) resolveChainID(ctx context.Context) (*big.Int, error) {
	e.chainMu.Lock()
	defer e.chainMu.Unlock()
	if e.chainID != nil && e.chainID.Sign() > 0 {
		return e.chainID, nil
	}
	id, err := e.backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("chain id: %w", err)
	}
	e.chainID = id
	return id, nil
}

// transact signs, sends and waits for one transaction to be mined
// successfully.
func (e *Executor) transact(ctx context.Context, to common.Address, data []byte, gasLimit uint64) (common.Hash, error) {
	chainID, err := e.resolveChainID(ctx)
	if err != nil {
		return common.Hash{}, err
	}
	nonce, err := e.backend.PendingNonceAt(ctx, e.from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("nonce: %w", err)
	}
	gasPrice, err := e.backend.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("gas price: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gasLimit,
		To:       &to,
		Value:    big.NewInt(0),
		Data:     data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), e.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign: %w", err)
	}
	if err := e.backend.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("send: %w", err)
	}

	receipt, err := e.waitMined(ctx, signed.Hash())
	if err != nil {
		return common.Hash{}, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return common.Hash{}, fmt.Errorf("%w: %s", ErrReverted, signed.Hash().Hex())
	}
	return signed.Hash(), nil
}

func (e *Executor) waitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(e.cfg.ReceiptPoll)
	defer ticker.Stop()

	for {
		receipt, err := e.backend.TransactionReceipt(ctx, hash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("receipt %s: %w", hash.Hex(), err)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for %s: %w", hash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}
