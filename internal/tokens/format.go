package tokens

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// FormatAmount converts a raw integer token quantity into a decimal
// quantity using the token's precision, e.g. ("1500000000000000000", 18)
// → 1.5. Exact; no floating point involved.
func FormatAmount(raw string, decimals int) (decimal.Decimal, error) {
	v, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("invalid raw token amount %q", raw)
	}
	return decimal.NewFromBigInt(v, int32(-decimals)), nil
}
