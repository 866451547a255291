package backtester

import (
	"github.com/ridopark/ashare-backtest/pkg/strategy"
	"github.com/rs/zerolog"
)

// Engine drains a single Market event (and everything it cascades into)
// completely before pulling the next one from the Data Handler, regardless
// of whether multiple symbols share a timestamp.
type Engine struct {
	logger zerolog.Logger

	data      *DataHandler
	strat     strategy.Strategy
	portfolio *Portfolio
	execution *ExecutionSimulator

	queue *EventQueue
	ctx   *StrategyContext
}

// NewEngine wires an Engine from its already-constructed components.
func NewEngine(data *DataHandler, strat strategy.Strategy, portfolio *Portfolio, execution *ExecutionSimulator, logger zerolog.Logger) *Engine {
	queue := NewEventQueue()
	return &Engine{
		logger:    logger,
		data:      data,
		strat:     strat,
		portfolio: portfolio,
		execution: execution,
		queue:     queue,
		ctx:       NewStrategyContext(data, portfolio, queue, logger),
	}
}

// Run drives the backtest to completion: one tick at a time, one Market
// event at a time within a tick, each fully drained before the next.
func (e *Engine) Run() error {
	if err := e.strat.Initialize(e.ctx); err != nil {
		return err
	}

	for e.data.HasNext() {
		for _, bar := range e.data.NextTick() {
			e.data.AdvanceSymbol(bar)
			e.queue.Push(MarketEvent{Bar: bar})
			e.drain()
		}
	}

	return e.strat.Cleanup(e.ctx)
}

func (e *Engine) drain() {
	for !e.queue.IsEmpty() {
		e.dispatch(e.queue.Pop())
	}
}

func (e *Engine) dispatch(evt Event) {
	switch ev := evt.(type) {
	case MarketEvent:
		e.portfolio.UpdateOnMarket(ev)
		e.dispatchOnMarket(ev.Bar)
	case SignalEvent:
		if order := e.portfolio.ProcessSignal(ev.Signal); order != nil {
			e.queue.Push(OrderEvent{Order: *order})
		}
	case OrderEvent:
		if fill := e.execution.Execute(ev.Order); fill != nil {
			e.queue.Push(FillEvent{Fill: *fill})
		}
	case FillEvent:
		e.portfolio.UpdateOnFill(ev.Fill)
		e.dispatchOnFill(ev.Fill)
	default:
		e.logger.Warn().Msg("unknown event kind reached dispatch")
	}
}

func (e *Engine) dispatchOnMarket(bar strategy.Bar) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().Interface("panic", r).Str("symbol", bar.Symbol).Msg("strategy.OnMarket panicked")
		}
	}()
	if err := e.strat.OnMarket(e.ctx, bar); err != nil {
		e.logger.Error().Err(err).Str("symbol", bar.Symbol).Msg("strategy.OnMarket returned an error")
	}
}

func (e *Engine) dispatchOnFill(fill strategy.Fill) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().Interface("panic", r).Msg("strategy.OnFill panicked")
		}
	}()
	if err := e.strat.OnFill(e.ctx, fill); err != nil {
		e.logger.Error().Err(err).Msg("strategy.OnFill returned an error")
	}
}

// Portfolio exposes the engine's portfolio for reporting after Run completes.
func (e *Engine) Portfolio() *Portfolio { return e.portfolio }

// ExecutionStats exposes the execution simulator's counters for reporting.
func (e *Engine) ExecutionStats() ExecutionStats {
	return e.execution.Stats(e.portfolio.TotalCommission())
}
