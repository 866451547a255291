package backtester

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/ridopark/ashare-backtest/pkg/strategy"
	"github.com/rs/zerolog"
)

// EquityPoint is one observation of total account value.
type EquityPoint struct {
	Timestamp      time.Time
	Cash           float64
	PositionsValue float64
	TotalEquity    float64
}

// FillRecord is a completed trade as retained for reporting and trade reconstruction.
type FillRecord struct {
	Timestamp  time.Time
	Symbol     string
	Direction  strategy.Direction
	Volume     int
	Price      float64
	Commission float64
	TradeValue float64
	NetValue   float64
}

// RiskParams configures the position-level risk checks Portfolio applies
// before turning a Signal into an Order.
type RiskParams struct {
	MaxPositions     int
	CashReserveRatio float64
	CommissionRate   float64
	MinCommission    float64
	MinCloseProceeds float64
}

const cashToleranceCNY = 0.01

// Portfolio owns cash, share positions, the equity curve, and the fill
// history, and turns Signal events into Order events subject to risk limits.
// One LONG position per symbol at a time is supported; a buy signal for a
// symbol already held, or with no market data yet, is dropped.
type Portfolio struct {
	logger zerolog.Logger

	market strategy.MarketView
	sizer  strategy.Sizer
	risk   RiskParams

	cash      float64
	positions map[string]int

	equityCurve []EquityPoint
	fillHistory []FillRecord

	totalCommission float64
}

// NewPortfolio builds a Portfolio starting from initialCapital in cash.
func NewPortfolio(market strategy.MarketView, initialCapital float64, sizer strategy.Sizer, risk RiskParams, logger zerolog.Logger) *Portfolio {
	return &Portfolio{
		logger:    logger,
		market:    market,
		sizer:     sizer,
		risk:      risk,
		cash:      initialCapital,
		positions: make(map[string]int),
	}
}

// Snapshot returns the current read-only view a Strategy or Sizer sees.
func (p *Portfolio) Snapshot() strategy.PortfolioView {
	positions := make(map[string]int, len(p.positions))
	for symbol, vol := range p.positions {
		positions[symbol] = vol
	}
	return strategy.PortfolioView{
		Cash:        p.cash,
		TotalEquity: p.cash + p.positionsValue(),
		Positions:   positions,
	}
}

func (p *Portfolio) positionsValue() float64 {
	total := 0.0
	for symbol, vol := range p.positions {
		if vol <= 0 {
			continue
		}
		bar, ok := p.market.LatestBar(symbol)
		if !ok {
			p.logger.Warn().Str("symbol", symbol).Msg("no latest bar while marking position to market")
			continue
		}
		total += float64(vol) * bar.Close
	}
	return total
}

// UpdateOnMarket marks every held position to market at its symbol's latest
// close and appends one EquityPoint stamped with this bar's timestamp. The engine calls this once per Market event, so a tick
// with K symbols present appends K points sharing that tick's timestamp.
func (p *Portfolio) UpdateOnMarket(evt MarketEvent) {
	positionsValue := p.positionsValue()
	p.equityCurve = append(p.equityCurve, EquityPoint{
		Timestamp:      evt.Bar.Timestamp,
		Cash:           p.cash,
		PositionsValue: positionsValue,
		TotalEquity:    p.cash + positionsValue,
	})
}

// ProcessSignal turns a Signal into at most one Order, or nil if risk
// limits, missing market data, or sizing reject it.
func (p *Portfolio) ProcessSignal(sig strategy.Signal) *strategy.Order {
	switch sig.Direction {
	case strategy.Long:
		return p.processBuySignal(sig)
	case strategy.Short:
		return p.processSellSignal(sig)
	default:
		p.logger.Warn().Str("direction", string(sig.Direction)).Msg("signal with unknown direction dropped")
		return nil
	}
}

func (p *Portfolio) processBuySignal(sig strategy.Signal) *strategy.Order {
	if p.risk.MaxPositions > 0 && len(p.positions) >= p.risk.MaxPositions {
		p.logger.Info().Str("symbol", sig.Symbol).Msg("buy signal dropped: max positions reached")
		return nil
	}
	if vol, held := p.positions[sig.Symbol]; held && vol > 0 {
		p.logger.Info().Str("symbol", sig.Symbol).Msg("buy signal dropped: already holding position")
		return nil
	}
	bar, ok := p.market.LatestBar(sig.Symbol)
	if !ok {
		p.logger.Info().Str("symbol", sig.Symbol).Msg("buy signal dropped: no market data yet")
		return nil
	}

	price := bar.Close
	target := p.sizer.TargetValue(p.Snapshot(), sig, p.market)
	if target <= 0 {
		return nil
	}

	volume := roundDownToBoardLot(int(target / price))
	commission := math.Max(float64(volume)*price*p.risk.CommissionRate, p.risk.MinCommission)
	if float64(volume)*price+commission > p.cash {
		affordable := (p.cash - p.risk.MinCommission) / (price * (1 + p.risk.CommissionRate))
		if affordable < 0 {
			affordable = 0
		}
		volume = roundDownToBoardLot(int(affordable))
	}
	if volume == 0 {
		p.logger.Info().Str("symbol", sig.Symbol).Msg("buy signal dropped: cannot afford one board lot")
		return nil
	}

	return &strategy.Order{
		ID:        uuid.NewString(),
		Symbol:    sig.Symbol,
		Type:      strategy.OrderMarket,
		Direction: strategy.Long,
		Volume:    volume,
		Timestamp: sig.Timestamp,
	}
}

func (p *Portfolio) processSellSignal(sig strategy.Signal) *strategy.Order {
	volume, held := p.positions[sig.Symbol]
	if !held || volume <= 0 {
		p.logger.Info().Str("symbol", sig.Symbol).Msg("sell signal dropped: no position held")
		return nil
	}
	bar, ok := p.market.LatestBar(sig.Symbol)
	if !ok {
		p.logger.Warn().Str("symbol", sig.Symbol).Msg("sell signal dropped: no market data yet")
		return nil
	}

	price := bar.Close
	proceeds := float64(volume) * price
	commission := math.Max(proceeds*p.risk.CommissionRate, p.risk.MinCommission)
	if proceeds-commission < p.risk.MinCloseProceeds {
		p.logger.Info().Str("symbol", sig.Symbol).Msg("sell signal dropped: net proceeds below minimum")
		return nil
	}

	return &strategy.Order{
		ID:        uuid.NewString(),
		Symbol:    sig.Symbol,
		Type:      strategy.OrderMarket,
		Direction: strategy.Short,
		Volume:    volume,
		Timestamp: sig.Timestamp,
	}
}

// UpdateOnFill applies a completed trade to cash and positions.
func (p *Portfolio) UpdateOnFill(fill strategy.Fill) {
	cashBefore := p.cash
	tradeValue := fill.TradeValue()
	netValue := fill.NetValue()

	switch fill.Direction {
	case strategy.Long:
		p.cash -= netValue
		p.positions[fill.Symbol] += fill.Volume
		if expected := cashBefore - tradeValue - fill.Commission; math.Abs(p.cash-expected) > cashToleranceCNY {
			p.logger.Error().Float64("cash", p.cash).Float64("expected", expected).Msg("cash reconciliation mismatch after buy fill")
		}
	case strategy.Short:
		p.cash += netValue
		p.positions[fill.Symbol] -= fill.Volume
		if p.positions[fill.Symbol] <= 0 {
			delete(p.positions, fill.Symbol)
		}
		if expected := cashBefore + tradeValue - fill.Commission; math.Abs(p.cash-expected) > cashToleranceCNY {
			p.logger.Error().Float64("cash", p.cash).Float64("expected", expected).Msg("cash reconciliation mismatch after sell fill")
		}
	}

	p.totalCommission += fill.Commission
	p.fillHistory = append(p.fillHistory, FillRecord{
		Timestamp:  fill.Timestamp,
		Symbol:     fill.Symbol,
		Direction:  fill.Direction,
		Volume:     fill.Volume,
		Price:      fill.Price,
		Commission: fill.Commission,
		TradeValue: tradeValue,
		NetValue:   netValue,
	})

	if p.cash < 0 {
		p.logger.Error().Float64("cash", p.cash).Msg("cash balance negative after fill")
	}
}

// EquityCurve returns a copy of the accumulated equity curve.
func (p *Portfolio) EquityCurve() []EquityPoint { return append([]EquityPoint(nil), p.equityCurve...) }

// FillHistory returns a copy of every fill applied so far.
func (p *Portfolio) FillHistory() []FillRecord { return append([]FillRecord(nil), p.fillHistory...) }

// Cash returns the current cash balance.
func (p *Portfolio) Cash() float64 { return p.cash }

// TotalCommission returns the running sum of commission paid across all fills.
func (p *Portfolio) TotalCommission() float64 { return p.totalCommission }

func roundDownToBoardLot(shares int) int {
	if shares < 0 {
		return 0
	}
	return (shares / 100) * 100
}
