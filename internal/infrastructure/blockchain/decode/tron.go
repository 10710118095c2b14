package decode

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/btcsuite/btcutil/base58"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/orris-inc/usdtvote/internal/domain/payment"
)

// TronAddressPrefix is the version byte of mainnet TRON addresses.
const TronAddressPrefix byte = 0x41

// TransferMethodSelector is the first four bytes of keccak256("transfer(address,uint256)").
var TransferMethodSelector = crypto.Keccak256([]byte("transfer(address,uint256)"))[:4]

// transferCallLength is selector + address word + amount word.
const transferCallLength = 4 + 2*common.HashLength

var transferArgs = func() abi.Arguments {
	addressTy, err := abi.NewType("address", "", nil)
	if err != nil {
		panic(err)
	}
	uint256Ty, err := abi.NewType("uint256", "", nil)
	if err != nil {
		panic(err)
	}
	return abi.Arguments{{Name: "to", Type: addressTy}, {Name: "value", Type: uint256Ty}}
}()

// TRC20Transfer is a decoded transfer(address,uint256) call.
type TRC20Transfer struct {
	// To is the Base58Check recipient, e.g. "T...".
	To     string
	Amount *big.Int
}

// TRC20TransferCall decodes the data field of a TriggerSmartContract calling transfer(address,uint256).
// A call to any other method fails with payment.ErrNoTransferEvent.
func TRC20TransferCall(data []byte) (*TRC20Transfer, error) {
	if len(data) < transferCallLength {
		return nil, fmt.Errorf("%w: call data is %d bytes, want at least %d", payment.ErrDecode, len(data), transferCallLength)
	}
	if !bytes.Equal(data[:4], TransferMethodSelector) {
		return nil, fmt.Errorf("%w: method selector %x is not transfer(address,uint256)", payment.ErrNoTransferEvent, data[:4])
	}

	values, err := transferArgs.Unpack(data[4:transferCallLength])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrDecode, err)
	}
	to, ok := values[0].(common.Address)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected recipient type %T", payment.ErrDecode, values[0])
	}
	amount, ok := values[1].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected amount type %T", payment.ErrDecode, values[1])
	}

	return &TRC20Transfer{
		To:     EncodeTronAddress(to.Bytes()),
		Amount: amount,
	}, nil
}

// TRC20TransferCallHex is TRC20TransferCall for the hex strings TronGrid returns.
func TRC20TransferCallHex(dataHex string) (*TRC20Transfer, error) {
	data, err := hex.DecodeString(strings.TrimPrefix(dataHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: call data is not hex: %v", payment.ErrDecode, err)
	}
	return TRC20TransferCall(data)
}

// EncodeTronAddress renders a 20-byte account id as a Base58Check TRON address.
func EncodeTronAddress(addr20 []byte) string {
	return base58.CheckEncode(addr20, TronAddressPrefix)
}

// DecodeTronAddress verifies the checksum and version byte and returns the 20-byte account id.
func DecodeTronAddress(address string) ([]byte, error) {
	payload, version, err := base58.CheckDecode(address)
	if err != nil {
		return nil, fmt.Errorf("%w: tron address %q: %v", payment.ErrDecode, address, err)
	}
	if version != TronAddressPrefix {
		return nil, fmt.Errorf("%w: tron address %q has version byte %#x", payment.ErrDecode, address, version)
	}
	if len(payload) != common.AddressLength {
		return nil, fmt.Errorf("%w: tron address %q decodes to %d bytes", payment.ErrDecode, address, len(payload))
	}
	return payload, nil
}

// TronHexToBase58 converts TronGrid's hex form ("41" + 40 hex chars) into Base58Check.
func TronHexToBase58(hexAddr string) (string, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(hexAddr, "0x"))
	if err != nil {
		return "", fmt.Errorf("%w: tron hex address %q: %v", payment.ErrDecode, hexAddr, err)
	}
	switch {
	case len(raw) == common.AddressLength+1 && raw[0] == TronAddressPrefix:
		return EncodeTronAddress(raw[1:]), nil
	case len(raw) == common.AddressLength:
		return EncodeTronAddress(raw), nil
	default:
		return "", fmt.Errorf("%w: tron hex address %q has unexpected length %d", payment.ErrDecode, hexAddr, len(raw))
	}
}

// TronBase58ToHex is the inverse of TronHexToBase58, returning lower-case "41..." hex.
func TronBase58ToHex(address string) (string, error) {
	payload, err := DecodeTronAddress(address)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(append([]byte{TronAddressPrefix}, payload...)), nil
}
