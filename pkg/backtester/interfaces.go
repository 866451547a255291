package backtester

import (
	"context"
	"time"

	"github.com/ridopark/ashare-backtest/pkg/strategy"
)

// BarSource loads historical daily bars for one symbol. Concrete wire
// formats (CSV, a database, a vendor API) live outside this package behind
// this interface — see pkg/barsource/csv and pkg/barsource/postgres.
type BarSource interface {
	LoadBars(ctx context.Context, symbol string, exchange strategy.Exchange, start, end time.Time) ([]strategy.Bar, error)
}

// StockSelector resolves a trading universe as of a given date. Universe
// selection logic (factor screens, index membership, liquidity filters)
// lives outside this package behind this interface.
type StockSelector interface {
	Select(ctx context.Context, asOf time.Time) ([]string, error)
}
