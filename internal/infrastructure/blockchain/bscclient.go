package blockchain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/orris-inc/usdtvote/internal/application/payment/blockchain"
	"github.com/orris-inc/usdtvote/internal/domain/payment"
	vo "github.com/orris-inc/usdtvote/internal/domain/payment/valueobjects"
	"github.com/orris-inc/usdtvote/internal/infrastructure/blockchain/decode"
)

// EVMClient is the subset of the Ethereum JSON-RPC API the BSC adapter needs.
type EVMClient interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*gethtypes.Header, error)
}

// DialBSC connects to a BSC JSON-RPC endpoint.
func DialBSC(endpoint string) (*ethclient.Client, error) {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		return nil, fmt.Errorf("bsc rpc endpoint required")
	}
	return ethclient.Dial(trimmed)
}

// BSCClient reads BEP-20 USDT transfers from transaction receipts.
type BSCClient struct {
	client         EVMClient
	usdtContract   common.Address
	depositAddress common.Address
	call           caller
}

// NewBSCClient builds the adapter. depositAddress may be empty; when set, a receipt with several
// USDT transfers reports the one paying it.
func NewBSCClient(client EVMClient, usdtContract, depositAddress string, opts ClientOptions) (*BSCClient, error) {
	if client == nil {
		return nil, fmt.Errorf("evm client required")
	}
	if !common.IsHexAddress(usdtContract) {
		return nil, fmt.Errorf("invalid BSC USDT contract address: %q", usdtContract)
	}
	var deposit common.Address
	if depositAddress != "" {
		if !common.IsHexAddress(depositAddress) {
			return nil, fmt.Errorf("invalid BSC deposit address: %q", depositAddress)
		}
		deposit = common.HexToAddress(depositAddress)
	}
	return &BSCClient{
		client:         client,
		usdtContract:   common.HexToAddress(usdtContract),
		depositAddress: deposit,
		call:           caller{network: vo.NetworkBSC, opts: opts.withDefaults()},
	}, nil
}

// FetchTransfer loads the receipt for txHash and decodes its USDT Transfer log.
func (c *BSCClient) FetchTransfer(ctx context.Context, txHash string) (*blockchain.VerifiedTransfer, error) {
	hash := common.HexToHash(txHash)

	var receipt *gethtypes.Receipt
	err := c.call.do(ctx, "eth_getTransactionReceipt", func(ctx context.Context) error {
		r, err := c.client.TransactionReceipt(ctx, hash)
		if err != nil {
			if errors.Is(err, ethereum.NotFound) {
				return fmt.Errorf("%w: receipt for %s", payment.ErrTxNotFound, txHash)
			}
			return err
		}
		receipt = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	if receipt == nil || receipt.BlockNumber == nil {
		return nil, fmt.Errorf("%w: receipt for %s has no block number", payment.ErrDecode, txHash)
	}
	if receipt.Status != gethtypes.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("%w: %s reverted in block %s", payment.ErrTxFailed, txHash, receipt.BlockNumber)
	}

	transfer, err := c.selectTransfer(receipt.Logs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", txHash, err)
	}

	var head uint64
	err = c.call.do(ctx, "eth_getBlockByNumber", func(ctx context.Context) error {
		header, err := c.client.HeaderByNumber(ctx, nil)
		if err != nil {
			return err
		}
		if header == nil || header.Number == nil {
			return fmt.Errorf("%w: latest header has no number", payment.ErrChainUnavailable)
		}
		head = header.Number.Uint64()
		return nil
	})
	if err != nil {
		return nil, err
	}

	block := receipt.BlockNumber.Uint64()
	return blockchain.NewVerifiedTransfer(
		vo.NetworkBSC,
		txHash,
		transfer.From.Hex(),
		transfer.To.Hex(),
		transfer.Amount,
		block,
		blockchain.Confirmations(head, block),
	), nil
}

// selectTransfer picks the USDT Transfer log paying the deposit address, else the first one.
func (c *BSCClient) selectTransfer(logs []*gethtypes.Log) (*decode.EVMTransfer, error) {
	var (
		first     *decode.EVMTransfer
		decodeErr error
	)
	for _, lg := range logs {
		if lg == nil || lg.Address != c.usdtContract || !decode.IsTransferTopic(lg.Topics) {
			continue
		}
		transfer, err := decode.EVMTransferLog(lg.Topics, lg.Data)
		if err != nil {
			if decodeErr == nil {
				decodeErr = err
			}
			continue
		}
		if c.depositAddress != (common.Address{}) && transfer.To == c.depositAddress {
			return transfer, nil
		}
		if first == nil {
			first = transfer
		}
	}

	switch {
	case first != nil:
		return first, nil
	case decodeErr != nil:
		return nil, decodeErr
	default:
		return nil, fmt.Errorf("%w: no Transfer log from %s", payment.ErrNoTransferEvent, c.usdtContract.Hex())
	}
}
