package strategies

import "github.com/ridopark/ashare-backtest/pkg/strategy"

// MACrossover goes LONG when a symbol's short SMA crosses above its long SMA
// and exits when it crosses back below, tracked independently per symbol.
type MACrossover struct {
	*strategy.BaseStrategy
	ShortPeriod, LongPeriod int

	lastAbove map[string]bool // true if short MA was above long MA as of the previous bar
	known     map[string]bool
	holding   map[string]bool
}

// NewMACrossover builds an MACrossover strategy comparing an SMA of
// shortPeriod against an SMA of longPeriod.
func NewMACrossover(shortPeriod, longPeriod int) *MACrossover {
	if shortPeriod <= 0 || longPeriod <= 0 || shortPeriod >= longPeriod {
		panic("strategies: short period must be positive and less than long period")
	}
	return &MACrossover{
		BaseStrategy: strategy.NewBaseStrategy("MACrossover"),
		ShortPeriod:  shortPeriod,
		LongPeriod:   longPeriod,
		lastAbove:    make(map[string]bool),
		known:        make(map[string]bool),
		holding:      make(map[string]bool),
	}
}

func (s *MACrossover) OnMarket(ctx strategy.Context, bar strategy.Bar) error {
	shortMA, ok := ctx.SMA(bar.Symbol, s.ShortPeriod)
	if !ok {
		return nil
	}
	longMA, ok := ctx.SMA(bar.Symbol, s.LongPeriod)
	if !ok {
		return nil
	}

	above := shortMA > longMA
	wasAbove, known := s.lastAbove[bar.Symbol]
	s.lastAbove[bar.Symbol] = above
	s.known[bar.Symbol] = true

	if !known {
		return nil
	}

	switch {
	case !wasAbove && above && !s.holding[bar.Symbol]:
		ctx.Emit(strategy.Signal{Symbol: bar.Symbol, Direction: strategy.Long, Strength: 1.0, Timestamp: bar.Timestamp})
		s.holding[bar.Symbol] = true
		ctx.Log("info", "ma crossover: bullish cross", map[string]interface{}{
			"symbol": bar.Symbol, "short_ma": shortMA, "long_ma": longMA,
		})
	case wasAbove && !above && s.holding[bar.Symbol]:
		ctx.Emit(strategy.Signal{Symbol: bar.Symbol, Direction: strategy.Short, Strength: 1.0, Timestamp: bar.Timestamp})
		s.holding[bar.Symbol] = false
		ctx.Log("info", "ma crossover: bearish cross", map[string]interface{}{
			"symbol": bar.Symbol, "short_ma": shortMA, "long_ma": longMA,
		})
	}
	return nil
}
