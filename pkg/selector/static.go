// Package selector implements backtester.StockSelector.
package selector

import (
	"context"
	"time"
)

// Static returns a fixed, pre-configured trading universe regardless of
// date — a minimal StockSelector for config-driven runs that don't need a
// live factor screen.
type Static struct {
	Symbols []string
}

// NewStatic builds a Static selector over symbols.
func NewStatic(symbols []string) Static { return Static{Symbols: symbols} }

// Select implements backtester.StockSelector.
func (s Static) Select(_ context.Context, _ time.Time) ([]string, error) {
	out := make([]string, len(s.Symbols))
	copy(out, s.Symbols)
	return out, nil
}
