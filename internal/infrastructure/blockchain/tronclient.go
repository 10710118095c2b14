package blockchain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/orris-inc/usdtvote/internal/application/payment/blockchain"
	"github.com/orris-inc/usdtvote/internal/domain/payment"
	vo "github.com/orris-inc/usdtvote/internal/domain/payment/valueobjects"
	"github.com/orris-inc/usdtvote/internal/infrastructure/blockchain/decode"
	"github.com/orris-inc/usdtvote/internal/shared/utils/logutil"
)

const (
	triggerSmartContract = "TriggerSmartContract"
	tronSuccess          = "SUCCESS"
)

// TronClient reads TRC-20 USDT transfers through the TronGrid full-node HTTP API.
type TronClient struct {
	apiURL     string
	apiKey     string
	usdtHex    string
	httpClient *http.Client
	call       caller
}

// NewTronClient builds the adapter. usdtContract is the Base58Check contract address.
func NewTronClient(apiURL, apiKey, usdtContract string, opts ClientOptions) (*TronClient, error) {
	if strings.TrimSpace(apiURL) == "" {
		return nil, fmt.Errorf("tron api url required")
	}
	usdtHex, err := decode.TronBase58ToHex(usdtContract)
	if err != nil {
		return nil, fmt.Errorf("invalid TRON USDT contract address: %w", err)
	}
	opts = opts.withDefaults()
	return &TronClient{
		apiURL:  strings.TrimRight(apiURL, "/"),
		apiKey:  apiKey,
		usdtHex: usdtHex,
		// Per-call deadlines come from the context; this is only a backstop.
		httpClient: &http.Client{Timeout: 2 * opts.Timeout},
		call:       caller{network: vo.NetworkTRON, opts: opts},
	}, nil
}

// FetchTransfer looks the transaction up, requires a transfer(address,uint256) call on the USDT
// contract, and measures its depth against the current head block.
func (c *TronClient) FetchTransfer(ctx context.Context, txID string) (*blockchain.VerifiedTransfer, error) {
	tx, err := c.post(ctx, "gettransactionbyid", map[string]any{"value": txID})
	if err != nil {
		return nil, err
	}
	if !tx.Get("txID").Exists() {
		return nil, fmt.Errorf("%w: transaction %s", payment.ErrTxNotFound, txID)
	}

	contract := tx.Get("raw_data.contract.0")
	if !contract.Exists() {
		return nil, fmt.Errorf("%w: transaction %s has no contract", payment.ErrDecode, txID)
	}
	if t := contract.Get("type").String(); t != triggerSmartContract {
		return nil, fmt.Errorf("%w: %s is a %s, not a contract call", payment.ErrNoTransferEvent, txID, t)
	}
	value := contract.Get("parameter.value")
	if !strings.EqualFold(value.Get("contract_address").String(), c.usdtHex) {
		return nil, fmt.Errorf("%w: %s calls contract %s, not USDT", payment.ErrNoTransferEvent, txID, value.Get("contract_address").String())
	}
	if ret := tx.Get("ret.0.contractRet"); ret.Exists() && ret.String() != tronSuccess {
		return nil, fmt.Errorf("%w: %s returned %s", payment.ErrTxFailed, txID, ret.String())
	}

	transfer, err := decode.TRC20TransferCallHex(value.Get("data").String())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", txID, err)
	}
	from, err := decode.TronHexToBase58(value.Get("owner_address").String())
	if err != nil {
		return nil, fmt.Errorf("%s owner: %w", txID, err)
	}

	info, err := c.post(ctx, "gettransactioninfobyid", map[string]any{"value": txID})
	if err != nil {
		return nil, err
	}
	blockNumber := info.Get("blockNumber")
	if !blockNumber.Exists() {
		// Broadcast but not yet in a block.
		return nil, fmt.Errorf("%w: %s has no block yet", payment.ErrTxNotFound, txID)
	}
	if result := info.Get("receipt.result"); result.Exists() && result.String() != tronSuccess {
		return nil, fmt.Errorf("%w: %s receipt result %s", payment.ErrTxFailed, txID, result.String())
	}

	head, err := c.post(ctx, "getnowblock", nil)
	if err != nil {
		return nil, err
	}
	headNumber := head.Get("block_header.raw_data.number")
	if !headNumber.Exists() {
		return nil, fmt.Errorf("%w: now block has no number", payment.ErrChainUnavailable)
	}

	block := blockNumber.Uint()
	return blockchain.NewVerifiedTransfer(
		vo.NetworkTRON,
		txID,
		from,
		transfer.To,
		new(big.Int).Set(transfer.Amount),
		block,
		blockchain.Confirmations(headNumber.Uint(), block),
	), nil
}

// post calls a /wallet endpoint and returns the parsed body.
func (c *TronClient) post(ctx context.Context, method string, body map[string]any) (gjson.Result, error) {
	var result gjson.Result
	err := c.call.do(ctx, method, func(ctx context.Context) error {
		var payload io.Reader = http.NoBody
		if body != nil {
			raw, err := json.Marshal(body)
			if err != nil {
				return fmt.Errorf("failed to encode request: %w", err)
			}
			payload = bytes.NewReader(raw)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/wallet/"+method, payload)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		if c.apiKey != "" {
			req.Header.Set("TRON-PRO-API-KEY", c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("failed to call %s: %w", method, err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBlockchainResponseSize))
		if err != nil {
			return fmt.Errorf("failed to read %s response: %w", method, err)
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("%w: %s returned HTTP %d: %s", payment.ErrChainUnavailable, method, resp.StatusCode,
				logutil.TruncateBodyForLog(raw, 200))
		}
		if !gjson.ValidBytes(raw) {
			c.call.opts.Logger.Errorw("trongrid returned malformed JSON",
				"method", method,
				"body", logutil.TruncateBodyForLog(raw, 500),
			)
			return fmt.Errorf("%w: %s returned invalid JSON", payment.ErrDecode, method)
		}

		parsed := gjson.ParseBytes(raw)
		if apiErr := parsed.Get("Error"); apiErr.Exists() {
			return fmt.Errorf("%w: %s: %s", payment.ErrChainUnavailable, method, apiErr.String())
		}
		result = parsed
		return nil
	})
	return result, err
}
