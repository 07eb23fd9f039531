package gateway

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"hashpay/pkg/apperr"
)

const paySignature = "pay(address,string)"

var paySelector = crypto.Keccak256([]byte(paySignature))[:4]

// EncodePay builds the calldata for pay(address,string):
//
//	selector | recipient (left padded) | 0x40 | len(message) | message (right padded)
//
// The string offset is always 0x40 because the only other argument is a
// single static word.
func EncodePay(recipient, message string) ([]byte, error) {
	if !common.IsHexAddress(recipient) {
		return nil, apperr.Validationf("invalid recipient address %q", recipient)
	}

	msg := []byte(message)
	padded := (len(msg) + 31) / 32 * 32

	data := make([]byte, 0, len(paySelector)+3*32+padded)
	data = append(data, paySelector...)
	data = append(data, common.LeftPadBytes(common.HexToAddress(recipient).Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(big.NewInt(0x40).Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(big.NewInt(int64(len(msg))).Bytes(), 32)...)
	data = append(data, common.RightPadBytes(msg, padded)...)
	return data, nil
}
