package strategies

import "github.com/ridopark/ashare-backtest/pkg/strategy"

// BuyAndHold buys once, the first time it sees a bar for its target symbol,
// then holds for the rest of the backtest.
type BuyAndHold struct {
	*strategy.BaseStrategy
	Symbol string

	bought bool
}

// NewBuyAndHold builds a BuyAndHold strategy targeting symbol.
func NewBuyAndHold(symbol string) *BuyAndHold {
	return &BuyAndHold{BaseStrategy: strategy.NewBaseStrategy("BuyAndHold"), Symbol: symbol}
}

func (s *BuyAndHold) OnMarket(ctx strategy.Context, bar strategy.Bar) error {
	if bar.Symbol != s.Symbol || s.bought {
		return nil
	}
	s.bought = true
	ctx.Emit(strategy.Signal{
		Symbol:    s.Symbol,
		Direction: strategy.Long,
		Strength:  1.0,
		Timestamp: bar.Timestamp,
	})
	ctx.Log("info", "buy-and-hold: entering position", map[string]interface{}{
		"symbol": s.Symbol,
		"price":  bar.Close,
	})
	return nil
}
