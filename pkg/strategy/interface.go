package strategy

import "time"

// Exchange identifies which A-share market a symbol trades on.
type Exchange string

const (
	ExchangeSH Exchange = "SH"
	ExchangeSZ Exchange = "SZ"
	ExchangeBJ Exchange = "BJ"
)

const priceEpsilon = 0.01

// Bar is one daily OHLCV observation for a symbol.
type Bar struct {
	Symbol    string
	Exchange  Exchange
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	Turnover  float64
	PreClose  float64
	LimitUp   float64
	LimitDown float64
}

// AtUpperLimit reports whether the bar closed at (or above) its daily limit-up
// price. LimitUp of zero means the limit is unknown, not untouched.
func (b Bar) AtUpperLimit() bool {
	return b.LimitUp > 0 && b.Close >= b.LimitUp-priceEpsilon
}

// AtLowerLimit reports whether the bar closed at (or below) its daily limit-down price.
func (b Bar) AtLowerLimit() bool {
	return b.LimitDown > 0 && b.Close <= b.LimitDown+priceEpsilon
}

// Direction is intentionally binary: every event in this engine is either a
// LONG (opening) or a SHORT (closing) one. The source system's BUY/SELL and
// LONG/SHORT conventions do not carry over; see DESIGN.md's note on the
// original event model's inconsistency.
type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
)

// Signal is a strategy's request to open or close a position. Strength is an
// optional [0,1] conviction weight a Sizer may use to scale the position.
type Signal struct {
	Symbol    string
	Direction Direction
	Strength  float64
	Timestamp time.Time
}

// OrderType selects how the Execution Simulator prices a fill.
type OrderType string

const (
	OrderMarket OrderType = "MARKET"
	OrderLimit  OrderType = "LIMIT"
)

// Order is a sized, risk-checked instruction produced by the Portfolio from a Signal.
type Order struct {
	ID         string
	Symbol     string
	Type       OrderType
	Direction  Direction
	Volume     int // shares, already rounded to a board lot
	LimitPrice float64
	Timestamp  time.Time
}

// Fill is a completed trade.
type Fill struct {
	ID         string
	OrderID    string
	Symbol     string
	Direction  Direction
	Volume     int
	Price      float64
	Commission float64
	Timestamp  time.Time
}

// TradeValue is volume * price before commission.
func (f Fill) TradeValue() float64 { return float64(f.Volume) * f.Price }

// NetValue is the cash impact of the fill: cost for a LONG, proceeds for a SHORT.
func (f Fill) NetValue() float64 {
	tv := f.TradeValue()
	if f.Direction == Long {
		return tv + f.Commission
	}
	return tv - f.Commission
}

// PortfolioView is the read-only snapshot of portfolio state a Strategy or
// Sizer is allowed to see.
type PortfolioView struct {
	Cash        float64
	TotalEquity float64
	Positions   map[string]int
}

// MarketView is the look-ahead-safe subset of the Data Handler exposed to
// strategies and sizers: each symbol's bars up to and including the one most
// recently dispatched for it, never anything later.
type MarketView interface {
	LatestBar(symbol string) (Bar, bool)
	LatestBars(symbol string, n int) []Bar
	CurrentTime() (time.Time, bool)
}

// Context is what a Strategy receives on every call: market access, a
// portfolio snapshot, a signal-emission handle, indicator helpers, and
// structured logging.
type Context interface {
	MarketView
	Portfolio() PortfolioView
	Emit(Signal)
	SMA(symbol string, period int) (float64, bool)
	EMA(symbol string, period int) (float64, bool)
	RSI(symbol string, period int) (float64, bool)
	ATR(symbol string, period int) (float64, bool)
	Log(level string, message string, fields map[string]interface{})
}

// Strategy is the contract every trading strategy implements. A strategy
// sees bars one at a time, in timeline order, and reacts by emitting at most
// a handful of Signals per call — it never places Orders or Fills directly.
type Strategy interface {
	Initialize(ctx Context) error
	OnMarket(ctx Context, bar Bar) error
	OnFill(ctx Context, fill Fill) error
	Cleanup(ctx Context) error
	Name() string
}

// Sizer turns a Signal into a target notional cash value to deploy. It never
// sees raw share counts — rounding to a board lot is the Portfolio's job.
type Sizer interface {
	TargetValue(view PortfolioView, signal Signal, market MarketView) float64
}
