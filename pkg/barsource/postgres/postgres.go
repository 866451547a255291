// Package postgres implements backtester.BarSource against a TimescaleDB
// table of daily A-share OHLCV bars.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // postgres driver
	"github.com/ridopark/ashare-backtest/pkg/strategy"
	"github.com/rs/zerolog"
)

// Source loads bars from a table shaped as:
//
//	ohlcv_data(symbol, exchange, ts, open, high, low, close, volume,
//	           turnover, pre_close, limit_up, limit_down)
type Source struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewSource opens a connection pool against connectionString and verifies it
// with a ping before returning.
func NewSource(connectionString string, logger zerolog.Logger) (*Source, error) {
	logger.Info().Msg("initializing postgres bar source connection")

	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("postgres bar source: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("postgres bar source: ping: %w", err)
	}

	logger.Info().Msg("postgres bar source connected")
	return &Source{db: db, logger: logger}, nil
}

// Close releases the underlying connection pool.
func (s *Source) Close() error {
	s.logger.Info().Msg("closing postgres bar source connection")
	return s.db.Close()
}

// LoadBars implements backtester.BarSource.
func (s *Source) LoadBars(ctx context.Context, symbol string, exchange strategy.Exchange, start, end time.Time) ([]strategy.Bar, error) {
	s.logger.Debug().Str("symbol", symbol).Str("exchange", string(exchange)).Time("start", start).Time("end", end).Msg("fetching bars from postgres")

	const query = `
		SELECT symbol, ts, open, high, low, close, volume, turnover, pre_close, limit_up, limit_down
		FROM ohlcv_data
		WHERE symbol = $1 AND exchange = $2 AND ts >= $3 AND ts <= $4
		ORDER BY ts ASC
	`

	rows, err := s.db.QueryContext(ctx, query, symbol, string(exchange), start, end)
	if err != nil {
		return nil, fmt.Errorf("postgres bar source: query %s: %w", symbol, err)
	}
	defer rows.Close()

	var bars []strategy.Bar
	for rows.Next() {
		bar := strategy.Bar{Exchange: exchange}
		if err := rows.Scan(
			&bar.Symbol, &bar.Timestamp, &bar.Open, &bar.High, &bar.Low, &bar.Close,
			&bar.Volume, &bar.Turnover, &bar.PreClose, &bar.LimitUp, &bar.LimitDown,
		); err != nil {
			return nil, fmt.Errorf("postgres bar source: scan row: %w", err)
		}
		bars = append(bars, bar)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres bar source: iterate rows: %w", err)
	}

	s.logger.Info().Str("symbol", symbol).Int("bars", len(bars)).Msg("loaded bars from postgres")
	return bars, nil
}
