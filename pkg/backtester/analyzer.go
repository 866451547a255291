package backtester

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/ridopark/ashare-backtest/pkg/strategy"
	"github.com/rs/zerolog"
)

// ClosedTrade is one FIFO-matched round trip: part or all of a LONG lot
// matched against a later SHORT fill.
type ClosedTrade struct {
	Symbol                          string
	OpenTime, CloseTime             time.Time
	Volume                          int
	OpenPrice, ClosePrice           float64
	OpenCommission, CloseCommission float64
	GrossPnL, NetPnL                float64
	ReturnPct                       float64
}

// TradeStats summarizes the full set of closed trades.
type TradeStats struct {
	TotalTrades, WinningTrades, LosingTrades int
	WinRate, ProfitLossRatio                 float64
	AvgTradePnL, AvgWinningTrade             float64
	AvgLosingTrade                           float64
	LargestWin, LargestLoss                  float64
	TotalCommission                          float64
}

// Metrics are the equity-curve-level performance metrics.
type Metrics struct {
	TradingDays      int
	TotalReturn      float64
	AnnualizedReturn float64
	MaxDrawdown      float64
	Volatility       float64
	Sharpe           float64
	Calmar           float64
}

// Analyzer derives performance metrics and FIFO-matched round-trip trades
// from a finished backtest's equity curve and fill history. The (only
// moderately expensive) trade reconstruction runs once, at construction time.
type Analyzer struct {
	logger zerolog.Logger

	equityCurve []EquityPoint
	fillHistory []FillRecord

	riskFreeRate float64

	metrics      Metrics
	closedTrades []ClosedTrade
	tradeStats   TradeStats
}

// NewAnalyzer builds an Analyzer over a completed backtest's history.
func NewAnalyzer(equityCurve []EquityPoint, fillHistory []FillRecord, riskFreeRate float64, logger zerolog.Logger) (*Analyzer, error) {
	if len(equityCurve) == 0 {
		return nil, errors.New("analyzer: empty equity curve")
	}
	a := &Analyzer{
		logger:       logger,
		equityCurve:  append([]EquityPoint(nil), equityCurve...),
		fillHistory:  append([]FillRecord(nil), fillHistory...),
		riskFreeRate: riskFreeRate,
	}
	sort.Slice(a.fillHistory, func(i, j int) bool { return a.fillHistory[i].Timestamp.Before(a.fillHistory[j].Timestamp) })

	a.computeMetrics()
	a.closedTrades = a.matchTradesFIFO()
	a.tradeStats = computeTradeStats(a.closedTrades)
	return a, nil
}

// Metrics returns the computed equity-curve metrics.
func (a *Analyzer) Metrics() Metrics { return a.metrics }

// ClosedTrades returns a copy of the FIFO-matched round trips.
func (a *Analyzer) ClosedTrades() []ClosedTrade { return append([]ClosedTrade(nil), a.closedTrades...) }

// TradeStats returns the summary statistics over ClosedTrades.
func (a *Analyzer) TradeStats() TradeStats { return a.tradeStats }

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func (a *Analyzer) computeMetrics() {
	n := len(a.equityCurve)
	start := a.equityCurve[0].TotalEquity
	end := a.equityCurve[n-1].TotalEquity

	dateSet := make(map[time.Time]bool)
	for _, p := range a.equityCurve {
		dateSet[dateOnly(p.Timestamp)] = true
	}
	tradingDays := len(dateSet)

	totalReturn := end/start - 1

	annualized := 0.0
	if tradingDays > 1 {
		annualized = math.Pow(end/start, 252.0/float64(tradingDays)) - 1
	}

	maxDD := 0.0
	peak := a.equityCurve[0].TotalEquity
	for _, p := range a.equityCurve {
		if p.TotalEquity > peak {
			peak = p.TotalEquity
		}
		if peak > 0 {
			if dd := p.TotalEquity/peak - 1; dd < maxDD {
				maxDD = dd
			}
		}
	}

	dailyReturns := a.dailyReturns()

	vol, sharpe := 0.0, 0.0
	if len(dailyReturns) >= 2 {
		mean, std := meanStdDev(dailyReturns)
		vol = std * math.Sqrt(252)
		if std > 0 {
			rfDaily := a.riskFreeRate / 252
			sharpe = (mean - rfDaily) / std * math.Sqrt(252)
		}
	}

	calmar := 0.0
	if maxDD < 0 {
		calmar = annualized / math.Abs(maxDD)
	}

	a.metrics = Metrics{
		TradingDays:      tradingDays,
		TotalReturn:      totalReturn,
		AnnualizedReturn: annualized,
		MaxDrawdown:      maxDD,
		Volatility:       vol,
		Sharpe:           sharpe,
		Calmar:           calmar,
	}
}

// dailyReturns resamples the equity curve to one value per calendar day (the
// last observation of that day) and returns simple returns between
// consecutive days, in chronological order.
func (a *Analyzer) dailyReturns() []float64 {
	type dayValue struct {
		date  time.Time
		value float64
	}
	index := make(map[time.Time]int)
	var days []dayValue
	for _, p := range a.equityCurve {
		d := dateOnly(p.Timestamp)
		if i, ok := index[d]; ok {
			days[i].value = p.TotalEquity
		} else {
			index[d] = len(days)
			days = append(days, dayValue{date: d, value: p.TotalEquity})
		}
	}
	var out []float64
	for i := 1; i < len(days); i++ {
		if days[i-1].value != 0 {
			out = append(out, days[i].value/days[i-1].value-1)
		}
	}
	return out
}

func meanStdDev(xs []float64) (mean, std float64) {
	n := float64(len(xs))
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	mean = sum / n
	if n <= 1 {
		return mean, 0
	}
	ss := 0.0
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / (n - 1))
}

type openLot struct {
	openTime            time.Time
	volumeRemaining     int
	price               float64
	commissionRemaining float64
}

// matchTradesFIFO reconstructs closed round trips: each SHORT fill is
// matched against the oldest still-open LONG lots for that symbol, splitting
// a lot across multiple SHORT fills if needed. Open commission is allocated
// to a match in proportion to matched volume vs. the lot's remaining volume;
// close commission is allocated in proportion to matched volume vs. the
// closing fill's total volume.
func (a *Analyzer) matchTradesFIFO() []ClosedTrade {
	open := make(map[string][]*openLot)
	var trades []ClosedTrade

	for _, f := range a.fillHistory {
		switch f.Direction {
		case strategy.Long:
			open[f.Symbol] = append(open[f.Symbol], &openLot{
				openTime:            f.Timestamp,
				volumeRemaining:     f.Volume,
				price:               f.Price,
				commissionRemaining: f.Commission,
			})
		case strategy.Short:
			remaining := f.Volume
			lots := open[f.Symbol]
			for remaining > 0 && len(lots) > 0 {
				lot := lots[0]
				matched := remaining
				if lot.volumeRemaining < matched {
					matched = lot.volumeRemaining
				}

				openValue := float64(matched) * lot.price
				closeValue := float64(matched) * f.Price
				grossPnL := closeValue - openValue

				allocOpenComm := lot.commissionRemaining * (float64(matched) / float64(lot.volumeRemaining))
				allocCloseComm := f.Commission * (float64(matched) / float64(f.Volume))
				netPnL := grossPnL - allocOpenComm - allocCloseComm

				returnPct := 0.0
				if openValue > 0 {
					returnPct = grossPnL / openValue * 100
				}

				trades = append(trades, ClosedTrade{
					Symbol:          f.Symbol,
					OpenTime:        lot.openTime,
					CloseTime:       f.Timestamp,
					Volume:          matched,
					OpenPrice:       lot.price,
					ClosePrice:      f.Price,
					OpenCommission:  allocOpenComm,
					CloseCommission: allocCloseComm,
					GrossPnL:        grossPnL,
					NetPnL:          netPnL,
					ReturnPct:       returnPct,
				})

				lot.volumeRemaining -= matched
				lot.commissionRemaining -= allocOpenComm
				remaining -= matched
				if lot.volumeRemaining == 0 {
					lots = lots[1:]
				}
			}
			open[f.Symbol] = lots
			if remaining > 0 {
				a.logger.Warn().Str("symbol", f.Symbol).Int("unmatched_volume", remaining).Msg("sell fill exceeds tracked open lots")
			}
		}
	}

	return trades
}

func computeTradeStats(trades []ClosedTrade) TradeStats {
	var ts TradeStats
	ts.TotalTrades = len(trades)

	var sumPnL, totalWin, totalLoss float64
	for _, t := range trades {
		sumPnL += t.NetPnL
		ts.TotalCommission += t.OpenCommission + t.CloseCommission
		switch {
		case t.NetPnL > 0:
			ts.WinningTrades++
			totalWin += t.NetPnL
			if t.NetPnL > ts.LargestWin {
				ts.LargestWin = t.NetPnL
			}
		case t.NetPnL < 0:
			ts.LosingTrades++
			totalLoss += -t.NetPnL
			if -t.NetPnL > ts.LargestLoss {
				ts.LargestLoss = -t.NetPnL
			}
		}
	}

	if ts.TotalTrades > 0 {
		ts.WinRate = float64(ts.WinningTrades) / float64(ts.TotalTrades)
		ts.AvgTradePnL = sumPnL / float64(ts.TotalTrades)
	}
	if ts.WinningTrades > 0 {
		ts.AvgWinningTrade = totalWin / float64(ts.WinningTrades)
	}
	if ts.LosingTrades > 0 {
		ts.AvgLosingTrade = totalLoss / float64(ts.LosingTrades)
	}

	switch {
	case ts.WinningTrades == 0:
		ts.ProfitLossRatio = 0
	case ts.LosingTrades == 0:
		ts.ProfitLossRatio = math.Inf(1)
	default:
		ts.ProfitLossRatio = ts.AvgWinningTrade / ts.AvgLosingTrade
	}

	return ts
}

// Summary renders a plain-text report: period, returns, drawdown, then trade stats.
func (a *Analyzer) Summary() string {
	m := a.metrics
	ts := a.tradeStats
	return fmt.Sprintf(
		"Backtest Summary\n"+
			"================\n"+
			"Trading days:       %d\n"+
			"Total return:       %.2f%%\n"+
			"Annualized return:  %.2f%%\n"+
			"Max drawdown:       %.2f%%\n"+
			"Volatility:         %.2f%%\n"+
			"Sharpe ratio:       %.2f\n"+
			"Calmar ratio:       %.2f\n"+
			"\n"+
			"Closed trades:      %d\n"+
			"Win rate:           %.2f%%\n"+
			"Profit/loss ratio:  %.2f\n"+
			"Avg trade P&L:      %.2f\n"+
			"Largest win:        %.2f\n"+
			"Largest loss:       %.2f\n"+
			"Total commission:   %.2f\n",
		m.TradingDays, m.TotalReturn*100, m.AnnualizedReturn*100, m.MaxDrawdown*100,
		m.Volatility*100, m.Sharpe, m.Calmar,
		ts.TotalTrades, ts.WinRate*100, ts.ProfitLossRatio, ts.AvgTradePnL,
		ts.LargestWin, ts.LargestLoss, ts.TotalCommission,
	)
}
