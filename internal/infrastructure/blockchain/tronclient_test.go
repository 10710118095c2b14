package blockchain

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orris-inc/usdtvote/internal/domain/payment"
	"github.com/orris-inc/usdtvote/internal/infrastructure/blockchain/decode"
)

const (
	tronUSDT       = "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t"
	tronUSDTHex    = "41a614f803b6fd780986a42c78ec9c7f77e6ded13c"
	tronOwnerHex   = "410000000000000000000000000000000000000000"
	tronOwner      = "T9yD14Nj9j7xAB4dbGeiX9h8unkKHxuWwb"
	tronTxID       = "cdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcd"
	tronTestAPIKey = "test-key"
)

// fakeTronGrid serves canned /wallet responses keyed by method.
type fakeTronGrid struct {
	mu        sync.Mutex
	responses map[string]string
	status    map[string]int
	apiKeys   []string
}

func (f *fakeTronGrid) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.apiKeys = append(f.apiKeys, r.Header.Get("TRON-PRO-API-KEY"))
	method := strings.TrimPrefix(r.URL.Path, "/wallet/")
	if code, ok := f.status[method]; ok {
		w.WriteHeader(code)
		_, _ = w.Write([]byte(`{"Error":"unavailable"}`))
		return
	}
	body, ok := f.responses[method]
	if !ok {
		body = `{}`
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

func trc20Data(toHex string, amount *big.Int) string {
	to := common.FromHex(toHex)
	if len(to) == 21 {
		to = to[1:]
	}
	data := append([]byte{}, decode.TransferMethodSelector...)
	data = append(data, common.LeftPadBytes(to, 32)...)
	data = append(data, common.LeftPadBytes(amount.Bytes(), 32)...)
	return hex.EncodeToString(data)
}

func txByIDJSON(contractType, contractHex, data, ret string) string {
	return fmt.Sprintf(`{
		"txID": %q,
		"ret": [{"contractRet": %q}],
		"raw_data": {"contract": [{
			"type": %q,
			"parameter": {"value": {
				"owner_address": %q,
				"contract_address": %q,
				"data": %q
			}}
		}]}
	}`, tronTxID, ret, contractType, tronOwnerHex, contractHex, data)
}

func happyTronGrid(amount *big.Int, block, head uint64) *fakeTronGrid {
	return &fakeTronGrid{
		responses: map[string]string{
			"gettransactionbyid":     txByIDJSON("TriggerSmartContract", tronUSDTHex, trc20Data(tronUSDTHex, amount), "SUCCESS"),
			"gettransactioninfobyid": fmt.Sprintf(`{"id": %q, "blockNumber": %d, "receipt": {"result": "SUCCESS"}}`, tronTxID, block),
			"getnowblock":            fmt.Sprintf(`{"block_header": {"raw_data": {"number": %d}}}`, head),
		},
		status: map[string]int{},
	}
}

func newTestTronClient(t *testing.T, grid http.Handler, timeout time.Duration) *TronClient {
	t.Helper()
	srv := httptest.NewServer(grid)
	t.Cleanup(srv.Close)

	c, err := NewTronClient(srv.URL+"/", tronTestAPIKey, tronUSDT, ClientOptions{Timeout: timeout})
	require.NoError(t, err)
	return c
}

func TestTronClient_FetchTransfer(t *testing.T) {
	grid := happyTronGrid(big.NewInt(12_500_000), 1000, 1004)
	c := newTestTronClient(t, grid, time.Second)

	got, err := c.FetchTransfer(context.Background(), tronTxID)
	require.NoError(t, err)
	assert.Equal(t, tronOwner, got.FromAddress)
	assert.Equal(t, tronUSDT, got.ToAddress)
	assert.True(t, got.AmountUSD.Equal(decimal.RequireFromString("12.5")), got.AmountUSD.String())
	assert.Equal(t, "12500000", got.AmountMinorUnits.String())
	assert.Equal(t, uint64(1000), got.BlockNumber)
	assert.Equal(t, uint64(4), got.Confirmations)

	for _, key := range grid.apiKeys {
		assert.Equal(t, tronTestAPIKey, key)
	}
	assert.Len(t, grid.apiKeys, 3)
}

func TestTronClient_FetchTransfer_Errors(t *testing.T) {
	amount := big.NewInt(1_000_000)

	tests := map[string]struct {
		mutate  func(g *fakeTronGrid)
		wantErr error
	}{
		"unknown transaction": {
			mutate:  func(g *fakeTronGrid) { g.responses["gettransactionbyid"] = `{}` },
			wantErr: payment.ErrTxNotFound,
		},
		"not yet in a block": {
			mutate:  func(g *fakeTronGrid) { g.responses["gettransactioninfobyid"] = `{}` },
			wantErr: payment.ErrTxNotFound,
		},
		"plain trx transfer": {
			mutate: func(g *fakeTronGrid) {
				g.responses["gettransactionbyid"] = txByIDJSON("TransferContract", tronUSDTHex, "", "SUCCESS")
			},
			wantErr: payment.ErrNoTransferEvent,
		},
		"different token contract": {
			mutate: func(g *fakeTronGrid) {
				g.responses["gettransactionbyid"] = txByIDJSON("TriggerSmartContract", "41"+strings.Repeat("ab", 20), trc20Data(tronUSDTHex, amount), "SUCCESS")
			},
			wantErr: payment.ErrNoTransferEvent,
		},
		"approve instead of transfer": {
			mutate: func(g *fakeTronGrid) {
				data := "095ea7b3" + trc20Data(tronUSDTHex, amount)[8:]
				g.responses["gettransactionbyid"] = txByIDJSON("TriggerSmartContract", tronUSDTHex, data, "SUCCESS")
			},
			wantErr: payment.ErrNoTransferEvent,
		},
		"truncated call data": {
			mutate: func(g *fakeTronGrid) {
				g.responses["gettransactionbyid"] = txByIDJSON("TriggerSmartContract", tronUSDTHex, "a9059cbb00", "SUCCESS")
			},
			wantErr: payment.ErrDecode,
		},
		"contract reverted": {
			mutate: func(g *fakeTronGrid) {
				g.responses["gettransactionbyid"] = txByIDJSON("TriggerSmartContract", tronUSDTHex, trc20Data(tronUSDTHex, amount), "REVERT")
			},
			wantErr: payment.ErrTxFailed,
		},
		"receipt out of energy": {
			mutate: func(g *fakeTronGrid) {
				g.responses["gettransactioninfobyid"] = `{"blockNumber": 10, "receipt": {"result": "OUT_OF_ENERGY"}}`
			},
			wantErr: payment.ErrTxFailed,
		},
		"invalid json": {
			mutate:  func(g *fakeTronGrid) { g.responses["gettransactionbyid"] = `{"txID": ` },
			wantErr: payment.ErrDecode,
		},
		"api error field": {
			mutate:  func(g *fakeTronGrid) { g.responses["getnowblock"] = `{"Error": "class org.tron.core.exception"}` },
			wantErr: payment.ErrChainUnavailable,
		},
		"http 503": {
			mutate:  func(g *fakeTronGrid) { g.status["gettransactionbyid"] = http.StatusServiceUnavailable },
			wantErr: payment.ErrChainUnavailable,
		},
		"rate limited": {
			mutate:  func(g *fakeTronGrid) { g.status["getnowblock"] = http.StatusTooManyRequests },
			wantErr: payment.ErrChainUnavailable,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			grid := happyTronGrid(amount, 10, 12)
			tt.mutate(grid)
			_, err := newTestTronClient(t, grid, time.Second).FetchTransfer(context.Background(), tronTxID)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestTronClient_FetchTransfer_Timeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	c := newTestTronClient(t, slow, 20*time.Millisecond)

	_, err := c.FetchTransfer(context.Background(), tronTxID)
	assert.ErrorIs(t, err, payment.ErrChainUnavailable)
}

func TestTronClient_FetchTransfer_CallerCancelled(t *testing.T) {
	c := newTestTronClient(t, happyTronGrid(big.NewInt(1), 1, 2), time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.FetchTransfer(ctx, tronTxID)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewTronClient_Validation(t *testing.T) {
	_, err := NewTronClient("", "", tronUSDT, ClientOptions{})
	assert.Error(t, err)

	_, err = NewTronClient("https://api.trongrid.io", "", "0x55d398326f99059fF775485246999027B3197955", ClientOptions{})
	assert.Error(t, err)
}
