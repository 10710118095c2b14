// Package decode turns raw USDT transfer payloads into addresses and amounts.
// It does no I/O; every malformed input fails with payment.ErrDecode.
package decode

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/orris-inc/usdtvote/internal/domain/payment"
)

// TransferEventTopic is keccak256("Transfer(address,address,uint256)").
var TransferEventTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

// EVMTransfer is a decoded ERC-20 style Transfer log.
type EVMTransfer struct {
	From   common.Address
	To     common.Address
	Amount *big.Int
}

var zeroPadding = make([]byte, common.HashLength-common.AddressLength)

// IsTransferTopic reports whether a log's first topic is the Transfer event signature.
func IsTransferTopic(topics []common.Hash) bool {
	return len(topics) > 0 && topics[0] == TransferEventTopic
}

// EVMTransferLog decodes Transfer(address indexed from, address indexed to, uint256 value).
// The indexed addresses live in topics 1 and 2, the value in the first data word.
func EVMTransferLog(topics []common.Hash, data []byte) (*EVMTransfer, error) {
	if len(topics) != 3 {
		return nil, fmt.Errorf("%w: transfer log has %d topics, want 3", payment.ErrDecode, len(topics))
	}
	if topics[0] != TransferEventTopic {
		return nil, fmt.Errorf("%w: log topic %s is not Transfer", payment.ErrDecode, topics[0].Hex())
	}
	if len(data) < common.HashLength {
		return nil, fmt.Errorf("%w: transfer log data is %d bytes, want at least %d", payment.ErrDecode, len(data), common.HashLength)
	}

	from, err := addressFromTopic(topics[1])
	if err != nil {
		return nil, fmt.Errorf("from: %w", err)
	}
	to, err := addressFromTopic(topics[2])
	if err != nil {
		return nil, fmt.Errorf("to: %w", err)
	}

	return &EVMTransfer{
		From:   from,
		To:     to,
		Amount: new(big.Int).SetBytes(data[:common.HashLength]),
	}, nil
}

func addressFromTopic(topic common.Hash) (common.Address, error) {
	if !bytes.Equal(topic[:len(zeroPadding)], zeroPadding) {
		return common.Address{}, fmt.Errorf("%w: address topic %s has non-zero padding", payment.ErrDecode, topic.Hex())
	}
	return common.BytesToAddress(topic.Bytes()), nil
}
