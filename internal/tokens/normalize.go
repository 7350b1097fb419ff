package tokens

import "strings"

// symbolAliases maps wrapped/legacy tickers to the vocabulary the price
// oracle understands. Unknown symbols pass through unchanged.
var symbolAliases = map[string]string{
	"WETH": "ETH",
	"WBTC": "BTC",
	"SAI":  "DAI",
}

// NormalizeSymbol maps a token symbol to the oracle's canonical ticker.
// Total over its input domain: anything unrecognized is returned as-is
// (uppercased).
func NormalizeSymbol(symbol string) string {
	upper := strings.ToUpper(strings.TrimSpace(symbol))
	if canonical, ok := symbolAliases[upper]; ok {
		return canonical
	}
	return upper
}
