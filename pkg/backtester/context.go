package backtester

import (
	"time"

	"github.com/ridopark/ashare-backtest/pkg/strategy"
	"github.com/rs/zerolog"
)

// StrategyContext is the engine's implementation of strategy.Context: a
// look-ahead-safe view of market data, a read-only portfolio snapshot, an
// enqueue handle for signals, indicator helpers, and structured logging.
type StrategyContext struct {
	data      *DataHandler
	portfolio *Portfolio
	queue     *EventQueue
	logger    zerolog.Logger
}

// NewStrategyContext builds a StrategyContext wired to the engine's data
// handler, portfolio, and event queue.
func NewStrategyContext(data *DataHandler, portfolio *Portfolio, queue *EventQueue, logger zerolog.Logger) *StrategyContext {
	return &StrategyContext{data: data, portfolio: portfolio, queue: queue, logger: logger}
}

func (c *StrategyContext) LatestBar(symbol string) (strategy.Bar, bool) {
	return c.data.LatestBar(symbol)
}

func (c *StrategyContext) LatestBars(symbol string, n int) []strategy.Bar {
	return c.data.LatestBars(symbol, n)
}

func (c *StrategyContext) CurrentTime() (time.Time, bool) { return c.data.CurrentTime() }

func (c *StrategyContext) Portfolio() strategy.PortfolioView { return c.portfolio.Snapshot() }

// Emit enqueues a signal for the engine to process once the strategy's
// current OnMarket call returns. A signal for a symbol with no market data
// yet is not rejected here — Portfolio.ProcessSignal is the stage that drops it.
func (c *StrategyContext) Emit(sig strategy.Signal) {
	c.queue.Push(SignalEvent{Signal: sig})
}

func (c *StrategyContext) SMA(symbol string, period int) (float64, bool) {
	return strategy.SMA(c.data.LatestBars(symbol, period), period)
}

func (c *StrategyContext) EMA(symbol string, period int) (float64, bool) {
	return strategy.EMA(c.data.LatestBars(symbol, period), period)
}

func (c *StrategyContext) RSI(symbol string, period int) (float64, bool) {
	return strategy.RSI(c.data.LatestBars(symbol, period+1), period)
}

func (c *StrategyContext) ATR(symbol string, period int) (float64, bool) {
	return strategy.ATR(c.data.LatestBars(symbol, period+1), period)
}

func (c *StrategyContext) Log(level string, msg string, fields map[string]interface{}) {
	var evt *zerolog.Event
	switch level {
	case "trace":
		evt = c.logger.Trace()
	case "debug":
		evt = c.logger.Debug()
	case "warn":
		evt = c.logger.Warn()
	case "error":
		evt = c.logger.Error()
	case "fatal":
		evt = c.logger.Fatal()
	case "panic":
		evt = c.logger.Panic()
	default:
		evt = c.logger.Info()
	}
	for k, v := range fields {
		evt = evt.Interface(k, v)
	}
	evt.Msg(msg)
}

var _ strategy.Context = (*StrategyContext)(nil)
