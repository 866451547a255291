package backtester

import (
	"fmt"
	"strings"

	"github.com/ridopark/ashare-backtest/pkg/strategy"
)

// NormalizeSymbol converts a bare 6-digit A-share code (or one already
// carrying a ".SH"/".SZ"/".BJ" suffix) into its canonical CODE.EXCHANGE form,
// inferring the exchange from the leading digit when no suffix is present:
// 6 -> SH, 0 or 3 -> SZ, 4 or 8 -> BJ.
func NormalizeSymbol(code string) (string, strategy.Exchange, error) {
	code = strings.TrimSpace(code)
	if i := strings.Index(code, "."); i >= 0 {
		ex := strategy.Exchange(strings.ToUpper(code[i+1:]))
		return strings.ToUpper(code[:i]) + "." + string(ex), ex, nil
	}
	if len(code) != 6 {
		return "", "", fmt.Errorf("normalize symbol: %q is not a 6-digit A-share code", code)
	}

	var ex strategy.Exchange
	switch code[0] {
	case '6':
		ex = strategy.ExchangeSH
	case '0', '3':
		ex = strategy.ExchangeSZ
	case '4', '8':
		ex = strategy.ExchangeBJ
	default:
		return "", "", fmt.Errorf("normalize symbol: cannot infer exchange for code %q", code)
	}
	return code + "." + string(ex), ex, nil
}
