package backtester

import (
	"math"

	"github.com/google/uuid"
	"github.com/ridopark/ashare-backtest/pkg/strategy"
	"github.com/rs/zerolog"
)

// ExecutionConfig configures the simulated fill model.
type ExecutionConfig struct {
	CommissionRate float64
	MinCommission  float64
	SlippageRate   float64
}

// ExecutionStats mirrors Execution/simulator.py's get_execution_stats().
type ExecutionStats struct {
	Received        int
	Executed        int
	Rejected        int
	ExecutionRate   float64
	AvgCommission   float64
	TotalCommission float64
}

// ExecutionSimulator turns Order events into Fill events using the current
// bar's close as the market price (or the limit price for LIMIT orders).
// This module does not model order-book depth or partial fills.
type ExecutionSimulator struct {
	logger zerolog.Logger
	market strategy.MarketView
	cfg    ExecutionConfig

	received, executed, rejected int
}

// NewExecutionSimulator builds a simulator reading prices from market.
func NewExecutionSimulator(market strategy.MarketView, cfg ExecutionConfig, logger zerolog.Logger) *ExecutionSimulator {
	return &ExecutionSimulator{logger: logger, market: market, cfg: cfg}
}

// Stats reports execution counters. totalCommission is supplied by the
// caller (the Portfolio tracks it across all fills) rather than recomputed
// here, since the simulator itself never accumulates commission state beyond
// a single Execute call.
func (e *ExecutionSimulator) Stats(totalCommission float64) ExecutionStats {
	rate := 0.0
	if e.received > 0 {
		rate = float64(e.executed) / float64(e.received)
	}
	avg := 0.0
	if e.executed > 0 {
		avg = totalCommission / float64(e.executed)
	}
	return ExecutionStats{
		Received:        e.received,
		Executed:        e.executed,
		Rejected:        e.rejected,
		ExecutionRate:   rate,
		AvgCommission:   avg,
		TotalCommission: totalCommission,
	}
}

// Execute fills order against the current bar, or returns nil if the order
// cannot be priced (no market data for a market order, no limit price for a
// limit order, or an unsupported order type).
func (e *ExecutionSimulator) Execute(order strategy.Order) *strategy.Fill {
	e.received++

	if order.Volume <= 0 {
		e.rejected++
		e.logger.Warn().Str("symbol", order.Symbol).Msg("order rejected: non-positive volume")
		return nil
	}

	var price float64
	switch order.Type {
	case strategy.OrderMarket:
		bar, ok := e.market.LatestBar(order.Symbol)
		if !ok {
			e.rejected++
			e.logger.Warn().Str("symbol", order.Symbol).Msg("order rejected: no market data for market order")
			return nil
		}
		price = bar.Close
	case strategy.OrderLimit:
		if order.LimitPrice <= 0 {
			e.rejected++
			e.logger.Warn().Str("symbol", order.Symbol).Msg("order rejected: limit order with no limit price")
			return nil
		}
		price = order.LimitPrice
	default:
		e.rejected++
		e.logger.Warn().Str("type", string(order.Type)).Msg("order rejected: unsupported order type")
		return nil
	}

	switch order.Direction {
	case strategy.Long:
		price *= 1 + e.cfg.SlippageRate
	case strategy.Short:
		price *= 1 - e.cfg.SlippageRate
	}

	commission := math.Max(price*float64(order.Volume)*e.cfg.CommissionRate, e.cfg.MinCommission)

	ts, ok := e.market.CurrentTime()
	if !ok {
		ts = order.Timestamp
	}

	e.executed++
	return &strategy.Fill{
		ID:         uuid.NewString(),
		OrderID:    order.ID,
		Symbol:     order.Symbol,
		Direction:  order.Direction,
		Volume:     order.Volume,
		Price:      price,
		Commission: commission,
		Timestamp:  ts,
	}
}
