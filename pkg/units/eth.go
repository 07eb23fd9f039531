package units

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const EthDecimals = 18

var (
	ErrBlankAmount   = errors.New("amount is required")
	ErrInvalidAmount = errors.New("amount is not a valid number")
	ErrNonPositive   = errors.New("amount must be greater than 0")
	weiPerEth        = decimal.New(1, EthDecimals)
)

// ParseEth parses a user supplied ETH amount. Only strictly positive values
// are accepted.
func ParseEth(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrBlankAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errors.Wrap(ErrInvalidAmount, s)
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrNonPositive
	}
	return d, nil
}

// EthToWei converts an ETH amount to wei, truncating anything below 1 wei.
func EthToWei(s string) (*big.Int, error) {
	d, err := ParseEth(s)
	if err != nil {
		return nil, err
	}
	return DecimalToWei(d), nil
}

func DecimalToWei(d decimal.Decimal) *big.Int {
	return d.Mul(weiPerEth).BigInt()
}

func WeiToEth(wei *big.Int) decimal.Decimal {
	if wei == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(wei, -EthDecimals)
}

// FormatEth renders wei as ETH rounded down to the given number of places.
func FormatEth(wei *big.Int, places int32) string {
	return WeiToEth(wei).Truncate(places).StringFixed(places)
}

func ToHex(wei *big.Int) string {
	return hexutil.EncodeBig(wei)
}
