package blockchain

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orris-inc/usdtvote/internal/domain/payment"
	"github.com/orris-inc/usdtvote/internal/infrastructure/blockchain/decode"
)

const (
	bscUSDT    = "0x55d398326f99059fF775485246999027B3197955"
	bscDeposit = "0x1111111111111111111111111111111111111111"
	bscPayer   = "0x2222222222222222222222222222222222222222"
	bscOther   = "0x3333333333333333333333333333333333333333"
	bscTxHash  = "0xabababababababababababababababababababababababababababababababab"
)

type fakeEVMClient struct {
	receipt    *gethtypes.Receipt
	receiptErr error
	head       uint64
	headErr    error
	block      chan struct{}
	calls      int
}

func (f *fakeEVMClient) TransactionReceipt(ctx context.Context, _ common.Hash) (*gethtypes.Receipt, error) {
	f.calls++
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.receipt, f.receiptErr
}

func (f *fakeEVMClient) HeaderByNumber(_ context.Context, _ *big.Int) (*gethtypes.Header, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	return &gethtypes.Header{Number: new(big.Int).SetUint64(f.head)}, nil
}

func transferLog(contract, from, to string, amount *big.Int) *gethtypes.Log {
	return &gethtypes.Log{
		Address: common.HexToAddress(contract),
		Topics: []common.Hash{
			decode.TransferEventTopic,
			common.BytesToHash(common.HexToAddress(from).Bytes()),
			common.BytesToHash(common.HexToAddress(to).Bytes()),
		},
		Data: common.LeftPadBytes(amount.Bytes(), 32),
	}
}

func usdtWei(whole int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(whole), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

func successReceipt(block int64, logs ...*gethtypes.Log) *gethtypes.Receipt {
	return &gethtypes.Receipt{
		Status:      gethtypes.ReceiptStatusSuccessful,
		BlockNumber: big.NewInt(block),
		Logs:        logs,
	}
}

func newTestBSCClient(t *testing.T, fake *fakeEVMClient) *BSCClient {
	t.Helper()
	c, err := NewBSCClient(fake, bscUSDT, bscDeposit, ClientOptions{Timeout: time.Second})
	require.NoError(t, err)
	return c
}

func TestBSCClient_FetchTransfer(t *testing.T) {
	fake := &fakeEVMClient{
		receipt: successReceipt(100, transferLog(bscUSDT, bscPayer, bscDeposit, usdtWei(10))),
		head:    103,
	}
	c := newTestBSCClient(t, fake)

	got, err := c.FetchTransfer(context.Background(), bscTxHash)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(bscPayer).Hex(), got.FromAddress)
	assert.Equal(t, common.HexToAddress(bscDeposit).Hex(), got.ToAddress)
	assert.True(t, got.AmountUSD.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, uint64(100), got.BlockNumber)
	assert.Equal(t, uint64(3), got.Confirmations)
	assert.True(t, got.Success)
}

func TestBSCClient_FetchTransfer_HeadBehindBlock(t *testing.T) {
	fake := &fakeEVMClient{
		receipt: successReceipt(100, transferLog(bscUSDT, bscPayer, bscDeposit, usdtWei(1))),
		head:    99,
	}
	got, err := newTestBSCClient(t, fake).FetchTransfer(context.Background(), bscTxHash)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), got.Confirmations)
}

func TestBSCClient_FetchTransfer_PrefersDepositTransfer(t *testing.T) {
	fake := &fakeEVMClient{
		receipt: successReceipt(50,
			transferLog(bscUSDT, bscPayer, bscOther, usdtWei(1)),
			transferLog(bscUSDT, bscPayer, bscDeposit, usdtWei(5)),
		),
		head: 60,
	}
	got, err := newTestBSCClient(t, fake).FetchTransfer(context.Background(), bscTxHash)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(bscDeposit).Hex(), got.ToAddress)
	assert.True(t, got.AmountUSD.Equal(decimal.NewFromInt(5)))
}

func TestBSCClient_FetchTransfer_Errors(t *testing.T) {
	reverted := successReceipt(10, transferLog(bscUSDT, bscPayer, bscDeposit, usdtWei(1)))
	reverted.Status = gethtypes.ReceiptStatusFailed

	otherToken := "0x4444444444444444444444444444444444444444"

	tests := map[string]struct {
		fake    *fakeEVMClient
		wantErr error
	}{
		"not found": {
			fake:    &fakeEVMClient{receiptErr: ethereum.NotFound},
			wantErr: payment.ErrTxNotFound,
		},
		"rpc failure": {
			fake:    &fakeEVMClient{receiptErr: errors.New("connection refused")},
			wantErr: payment.ErrChainUnavailable,
		},
		"reverted": {
			fake:    &fakeEVMClient{receipt: reverted, head: 20},
			wantErr: payment.ErrTxFailed,
		},
		"no usdt transfer": {
			fake:    &fakeEVMClient{receipt: successReceipt(10, transferLog(otherToken, bscPayer, bscDeposit, usdtWei(1))), head: 20},
			wantErr: payment.ErrNoTransferEvent,
		},
		"malformed transfer log": {
			fake: &fakeEVMClient{receipt: successReceipt(10, &gethtypes.Log{
				Address: common.HexToAddress(bscUSDT),
				Topics:  []common.Hash{decode.TransferEventTopic, common.BytesToHash(common.HexToAddress(bscPayer).Bytes()), common.BytesToHash(common.HexToAddress(bscDeposit).Bytes())},
				Data:    []byte{0x01},
			}), head: 20},
			wantErr: payment.ErrDecode,
		},
		"head unavailable": {
			fake:    &fakeEVMClient{receipt: successReceipt(10, transferLog(bscUSDT, bscPayer, bscDeposit, usdtWei(1))), headErr: errors.New("503")},
			wantErr: payment.ErrChainUnavailable,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := newTestBSCClient(t, tt.fake).FetchTransfer(context.Background(), bscTxHash)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestBSCClient_FetchTransfer_Timeout(t *testing.T) {
	fake := &fakeEVMClient{block: make(chan struct{})}
	c, err := NewBSCClient(fake, bscUSDT, bscDeposit, ClientOptions{Timeout: 20 * time.Millisecond})
	require.NoError(t, err)

	_, err = c.FetchTransfer(context.Background(), bscTxHash)
	assert.ErrorIs(t, err, payment.ErrChainUnavailable)
}

func TestBSCClient_FetchTransfer_CallerCancelled(t *testing.T) {
	fake := &fakeEVMClient{block: make(chan struct{})}
	c := newTestBSCClient(t, fake)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.FetchTransfer(ctx, bscTxHash)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, payment.ErrChainUnavailable)
}

func TestNewBSCClient_Validation(t *testing.T) {
	_, err := NewBSCClient(nil, bscUSDT, "", ClientOptions{})
	assert.Error(t, err)

	_, err = NewBSCClient(&fakeEVMClient{}, "not-an-address", "", ClientOptions{})
	assert.Error(t, err)

	_, err = NewBSCClient(&fakeEVMClient{}, bscUSDT, "0x12", ClientOptions{})
	assert.Error(t, err)
}
