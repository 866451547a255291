package backtester

import (
	"context"
	"testing"

	"github.com/ridopark/ashare-backtest/pkg/logging"
	"github.com/ridopark/ashare-backtest/pkg/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStrategyContextDelegatesToDataHandler(t *testing.T) {
	source := fakeSource{bars: map[string][]strategy.Bar{
		"000001.SZ": {
			{Symbol: "000001.SZ", Timestamp: day(1), Close: 10},
			{Symbol: "000001.SZ", Timestamp: day(2), Close: 11},
			{Symbol: "000001.SZ", Timestamp: day(3), Close: 12},
		},
	}}
	data, err := NewDataHandler(context.Background(), source, []string{"000001.SZ"}, day(0), day(10), logging.GetLogger("test"))
	require.NoError(t, err)

	portfolio := NewPortfolio(data, 100000, strategy.FixedRatioSizer{Ratio: 0.1}, defaultRisk(), logging.GetLogger("test"))
	queue := NewEventQueue()
	ctx := NewStrategyContext(data, portfolio, queue, logging.GetLogger("test"))

	for i := 0; i < 3; i++ {
		tick := data.NextTick()
		for _, bar := range tick {
			data.AdvanceSymbol(bar)
		}
	}

	sma, ok := ctx.SMA("000001.SZ", 3)
	require.True(t, ok)
	assert.InDelta(t, 11.0, sma, 1e-9)

	ts, ok := ctx.CurrentTime()
	require.True(t, ok)
	assert.True(t, ts.Equal(day(3)))
}

func TestStrategyContextEmitEnqueuesSignal(t *testing.T) {
	queue := NewEventQueue()
	ctx := NewStrategyContext(nil, nil, queue, logging.GetLogger("test"))

	ctx.Emit(strategy.Signal{Symbol: "000001.SZ", Direction: strategy.Long})
	require.Equal(t, 1, queue.Len())
	assert.Equal(t, EventSignal, queue.Pop().Kind())
}

func TestStrategyContextPortfolioSnapshot(t *testing.T) {
	source := fakeSource{bars: map[string][]strategy.Bar{
		"000001.SZ": {{Symbol: "000001.SZ", Timestamp: day(1), Close: 10}},
	}}
	data, err := NewDataHandler(context.Background(), source, []string{"000001.SZ"}, day(0), day(10), logging.GetLogger("test"))
	require.NoError(t, err)

	portfolio := NewPortfolio(data, 50000, strategy.FixedRatioSizer{Ratio: 0.1}, defaultRisk(), logging.GetLogger("test"))
	ctx := NewStrategyContext(data, portfolio, NewEventQueue(), logging.GetLogger("test"))

	view := ctx.Portfolio()
	assert.InDelta(t, 50000.0, view.Cash, 1e-9)
	assert.InDelta(t, 50000.0, view.TotalEquity, 1e-9)
}

func TestStrategyContextLogDoesNotPanicOnUnknownLevel(t *testing.T) {
	ctx := NewStrategyContext(nil, nil, NewEventQueue(), logging.GetLogger("test"))
	assert.NotPanics(t, func() {
		ctx.Log("banana", "weird level falls back to info", nil)
	})
}
