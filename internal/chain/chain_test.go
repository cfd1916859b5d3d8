package chain

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Cyclone1070/butterfi/internal/strategy"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAggregator = "0x12C61b22b397a6D72AD85f699fAf2D75f50D556C"
	testStakeToken = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
	testUser       = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
)

// fakeBackend is an in-memory chain. Calls answer from the staked and rewards
// maps keyed by strategy id; sends are recorded and mined immediately unless
// told otherwise.
type fakeBackend struct {
	mu sync.Mutex

	staked  map[int64]*big.Int
	rewards map[int64]*big.Int
	callErr map[int64]error
	calls   int

	chainID      *big.Int
	chainIDCalls int
	nonce        uint64

	sent         []*types.Transaction
	sendAttempts int
	sendErr      map[int]error // by send attempt
	reverted     map[int]bool  // by mined index
	pendingPolls int
	neverMined   bool
	receipts     map[common.Hash]*types.Receipt
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		staked:   map[int64]*big.Int{},
		rewards:  map[int64]*big.Int{},
		callErr:  map[int64]error{},
		chainID:  big.NewInt(31337),
		sendErr:  map[int]error{},
		reverted: map[int]bool{},
		receipts: map[common.Hash]*types.Receipt{},
	}
}

func (f *fakeBackend) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	method, err := aggregatorABI.MethodById(call.Data[:4])
	if err != nil {
		return nil, err
	}
	args, err := method.Inputs.Unpack(call.Data[4:])
	if err != nil {
		return nil, err
	}
	id := args[0].(*big.Int).Int64()
	if err := f.callErr[id]; err != nil {
		return nil, err
	}

	src := f.staked
	if method.Name == "getPendingRewards" {
		src = f.rewards
	}
	v, ok := src[id]
	if !ok {
		v = big.NewInt(0)
	}
	return method.Outputs.Pack(v)
}

func (f *fakeBackend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nonce, nil
}

func (f *fakeBackend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (f *fakeBackend) ChainID(ctx context.Context) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chainIDCalls++
	return f.chainID, nil
}

func (f *fakeBackend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	attempt := f.sendAttempts
	f.sendAttempts++
	if err, ok := f.sendErr[attempt]; ok {
		return err
	}
	status := types.ReceiptStatusSuccessful
	if f.reverted[len(f.sent)] {
		status = types.ReceiptStatusFailed
	}
	f.sent = append(f.sent, tx)
	f.nonce++
	f.receipts[tx.Hash()] = &types.Receipt{Status: status, TxHash: tx.Hash()}
	return nil
}

func (f *fakeBackend) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.neverMined {
		return nil, ethereum.NotFound
	}
	if f.pendingPolls > 0 {
		f.pendingPolls--
		return nil, ethereum.NotFound
	}
	r, ok := f.receipts[hash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return r, nil
}

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

func newTestExecutor(t *testing.T, backend Backend) (*Executor, *ecdsa.PrivateKey) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	exec := NewExecutor(backend, key, strategy.Default(testStakeToken), ExecutorConfig{
		Aggregator:      common.HexToAddress(testAggregator),
		Decimals:        18,
		ApproveGasLimit: 100000,
		StakeGasLimit:   200000,
		ReceiptPoll:     time.Millisecond,
	}, nil)
	return exec, key
}

func decodeCall(t *testing.T, tx *types.Transaction) (string, []any) {
	t.Helper()
	data := tx.Data()
	if m, err := aggregatorABI.MethodById(data[:4]); err == nil {
		args, err := m.Inputs.Unpack(data[4:])
		require.NoError(t, err)
		return m.Name, args
	}
	m, err := erc20ABI.MethodById(data[:4])
	require.NoError(t, err)
	args, err := m.Inputs.Unpack(data[4:])
	require.NoError(t, err)
	return m.Name, args
}

// --- amounts ---

func TestToBaseUnits(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		decimals int32
		want     string
		wantErr  bool
	}{
		{"whole", "1", 18, "1000000000000000000", false},
		{"fraction", "1.5", 18, "1500000000000000000", false},
		{"smallest unit", "0.000000000000000001", 18, "1", false},
		{"six decimals", "2.5", 6, "2500000", false},
		{"surrounding space", " 3 ", 0, "3", false},
		{"zero", "0", 18, "", true},
		{"negative", "-1", 18, "", true},
		{"not a number", "ten", 18, "", true},
		{"too precise", "0.0000000000000000001", 18, "", true},
		{"too precise for six", "1.0000001", 6, "", true},
		{"uint256 max", "115792089237316195423570985008687907853269984665640564039457584007913129639935", 0, "115792089237316195423570985008687907853269984665640564039457584007913129639935", false},
		{"uint256 overflow", "115792089237316195423570985008687907853269984665640564039457584007913129639936", 0, "", true},
		{"overflow after scaling", "115792089237316195423570985008687907853269984665640564039457.584007913129639941", 18, "", true},
		{"huge exponent", "1e20000000", 18, "", true},
		{"tiny exponent", "1e-20000000", 18, "", true},
		{"too long", "1." + strings.Repeat("0", 200), 18, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToBaseUnits(tt.amount, tt.decimals)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidAmount)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestFromBaseUnits(t *testing.T) {
	assert.InDelta(t, 1.5, FromBaseUnits(big.NewInt(1_500_000_000_000_000_000), 18), 1e-12)
	assert.InDelta(t, 2.5, FromBaseUnits(big.NewInt(2_500_000), 6), 1e-12)
	assert.Equal(t, 0.0, FromBaseUnits(nil, 18))
}

// --- positions ---

func newTestReader(backend Backend) *PositionReader {
	return NewPositionReader(backend, strategy.Default(testStakeToken), ReaderConfig{
		Aggregator:  common.HexToAddress(testAggregator),
		Decimals:    18,
		CallTimeout: time.Second,
	}, nil)
}

func TestListPositions_ReadsEveryStrategyInOrder(t *testing.T) {
	backend := newFakeBackend()
	backend.staked[1] = ether(5)
	backend.rewards[1] = big.NewInt(250_000_000_000_000_000)
	backend.staked[3] = ether(2)

	positions := newTestReader(backend).ListPositions(context.Background(), testUser)

	require.Len(t, positions, 4)
	assert.Equal(t, Position{
		Protocol: "SimpleStake", StrategyID: 1, StakingToken: "WMOD", RewardToken: "sWMOD",
		AmountStaked: 5, PendingRewards: 0.25,
	}, positions[0])
	assert.Equal(t, "HappyStake", positions[1].Protocol)
	assert.Zero(t, positions[1].AmountStaked)
	assert.InDelta(t, 2.0, positions[2].AmountStaked, 1e-12)
	assert.Equal(t, "CakeStake", positions[3].Protocol)
	assert.Equal(t, 8, backend.calls)
}

func TestListPositions_CallFailureYieldsZero(t *testing.T) {
	backend := newFakeBackend()
	backend.staked[1] = ether(1)
	backend.staked[2] = ether(7)
	backend.callErr[2] = errors.New("execution reverted")

	positions := newTestReader(backend).ListPositions(context.Background(), testUser)

	require.Len(t, positions, 4)
	assert.InDelta(t, 1.0, positions[0].AmountStaked, 1e-12)
	assert.Zero(t, positions[1].AmountStaked)
	assert.Zero(t, positions[1].PendingRewards)
	assert.Equal(t, "HappyStake", positions[1].Protocol)
}

func TestListPositions_MalformedAddressYieldsZerosWithoutCalls(t *testing.T) {
	backend := newFakeBackend()
	backend.staked[1] = ether(1)

	positions := newTestReader(backend).ListPositions(context.Background(), "not-an-address")

	require.Len(t, positions, 4)
	for _, p := range positions {
		assert.Zero(t, p.AmountStaked)
		assert.Zero(t, p.PendingRewards)
	}
	assert.Zero(t, backend.calls)
}

// --- executor ---

func TestStake_ApprovesThenStakes(t *testing.T) {
	backend := newFakeBackend()
	exec, key := newTestExecutor(t, backend)

	hash, err := exec.Stake(context.Background(), 2, "1.5")

	require.NoError(t, err)
	require.Len(t, backend.sent, 2)
	approve, stake := backend.sent[0], backend.sent[1]
	assert.Equal(t, stake.Hash().Hex(), hash)

	signer := types.LatestSignerForChainID(backend.chainID)
	for i, tx := range backend.sent {
		from, err := types.Sender(signer, tx)
		require.NoError(t, err)
		assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), from)
		assert.Equal(t, uint64(i), tx.Nonce())
	}

	name, args := decodeCall(t, approve)
	assert.Equal(t, "approve", name)
	assert.Equal(t, common.HexToAddress(testStakeToken), *approve.To())
	assert.Equal(t, common.HexToAddress(testAggregator), args[0])
	assert.Equal(t, "1500000000000000000", args[1].(*big.Int).String())
	assert.Equal(t, uint64(100000), approve.Gas())

	name, args = decodeCall(t, stake)
	assert.Equal(t, "stake", name)
	assert.Equal(t, common.HexToAddress(testAggregator), *stake.To())
	assert.Equal(t, int64(2), args[0].(*big.Int).Int64())
	assert.Equal(t, "1500000000000000000", args[1].(*big.Int).String())
	assert.Equal(t, uint64(200000), stake.Gas())
}

func TestStake_ApprovalFailureSkipsStake(t *testing.T) {
	backend := newFakeBackend()
	backend.sendErr[0] = errors.New("insufficient funds")
	exec, _ := newTestExecutor(t, backend)

	hash, err := exec.Stake(context.Background(), 1, "1")

	assert.Empty(t, hash)
	var approvalErr *ApprovalError
	require.ErrorAs(t, err, &approvalErr)
	assert.Equal(t, 1, approvalErr.StrategyID)
	assert.Contains(t, err.Error(), "insufficient funds")
	assert.Empty(t, backend.sent)
}

func TestStake_RevertedStakeIsStakeError(t *testing.T) {
	backend := newFakeBackend()
	backend.reverted[1] = true
	exec, _ := newTestExecutor(t, backend)

	hash, err := exec.Stake(context.Background(), 1, "1")

	assert.Empty(t, hash)
	var stakeErr *StakeError
	require.ErrorAs(t, err, &stakeErr)
	assert.ErrorIs(t, err, ErrReverted)
	assert.Len(t, backend.sent, 2)
}

func TestStake_RevertedApprovalIsApprovalError(t *testing.T) {
	backend := newFakeBackend()
	backend.reverted[0] = true
	exec, _ := newTestExecutor(t, backend)

	_, err := exec.Stake(context.Background(), 1, "1")

	var approvalErr *ApprovalError
	require.ErrorAs(t, err, &approvalErr)
	assert.ErrorIs(t, err, ErrReverted)
	assert.Len(t, backend.sent, 1)
}

func TestStake_RejectsBeforeSending(t *testing.T) {
	backend := newFakeBackend()
	exec, _ := newTestExecutor(t, backend)

	_, err := exec.Stake(context.Background(), 99, "1")
	assert.ErrorIs(t, err, ErrUnknownStrategy)

	_, err = exec.Stake(context.Background(), 1, "-2")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	// 2^256 + 5 wei would wrap to 5 wei when packed
	_, err = exec.Stake(context.Background(), 1, "115792089237316195423570985008687907853269984665640564039457.584007913129639941")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = exec.Withdraw(context.Background(), 1, "1e20000000")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	assert.Empty(t, backend.sent)
	assert.Zero(t, backend.chainIDCalls)
}

func TestStake_WithoutKeyFails(t *testing.T) {
	exec := NewExecutor(newFakeBackend(), nil, strategy.Default(testStakeToken), ExecutorConfig{}, nil)

	_, err := exec.Stake(context.Background(), 1, "1")

	assert.ErrorIs(t, err, ErrNoSigner)
}

func TestStake_WaitsForPendingReceipts(t *testing.T) {
	backend := newFakeBackend()
	backend.pendingPolls = 3
	exec, _ := newTestExecutor(t, backend)

	_, err := exec.Stake(context.Background(), 1, "1")

	require.NoError(t, err)
	assert.Zero(t, backend.pendingPolls)
}

func TestStake_ReceiptWaitHonorsContext(t *testing.T) {
	backend := newFakeBackend()
	backend.neverMined = true
	exec, _ := newTestExecutor(t, backend)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := exec.Stake(ctx, 1, "1")

	var approvalErr *ApprovalError
	require.ErrorAs(t, err, &approvalErr)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestExecutor_ChainIDFetchedOnce(t *testing.T) {
	backend := newFakeBackend()
	exec, _ := newTestExecutor(t, backend)

	_, err := exec.Stake(context.Background(), 1, "1")
	require.NoError(t, err)
	_, err = exec.Withdraw(context.Background(), 1, "1")
	require.NoError(t, err)

	assert.Equal(t, 1, backend.chainIDCalls)
}

func TestWithdraw_SendsWithdrawCall(t *testing.T) {
	backend := newFakeBackend()
	exec, _ := newTestExecutor(t, backend)

	hash, err := exec.Withdraw(context.Background(), 4, "0.5")

	require.NoError(t, err)
	require.Len(t, backend.sent, 1)
	tx := backend.sent[0]
	assert.Equal(t, tx.Hash().Hex(), hash)
	assert.Equal(t, common.HexToAddress(testAggregator), *tx.To())
	name, args := decodeCall(t, tx)
	assert.Equal(t, "withdraw", name)
	assert.Equal(t, int64(4), args[0].(*big.Int).Int64())
	assert.Equal(t, "500000000000000000", args[1].(*big.Int).String())
}

func TestWithdraw_FailureIsWithdrawError(t *testing.T) {
	backend := newFakeBackend()
	backend.sendErr[0] = errors.New("nonce too low")
	exec, _ := newTestExecutor(t, backend)

	_, err := exec.Withdraw(context.Background(), 1, "1")

	var withdrawErr *WithdrawError
	require.ErrorAs(t, err, &withdrawErr)
	assert.Equal(t, 1, withdrawErr.StrategyID)
}

func TestLoadKey(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	encoded := hex.EncodeToString(crypto.FromECDSA(key))

	loaded, err := LoadKey("0x" + encoded)
	require.NoError(t, err)
	assert.Equal(t, key.D, loaded.D)

	loaded, err = LoadKey(encoded)
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), crypto.PubkeyToAddress(loaded.PublicKey))

	_, err = LoadKey("")
	assert.ErrorIs(t, err, ErrNoSigner)

	_, err = LoadKey("zz")
	assert.Error(t, err)
}
