package backtester

import (
	"context"
	"testing"
	"time"

	"github.com/ridopark/ashare-backtest/pkg/logging"
	"github.com/ridopark/ashare-backtest/pkg/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	bars map[string][]strategy.Bar
	err  map[string]error
}

func (s fakeSource) LoadBars(_ context.Context, symbol string, _ strategy.Exchange, _, _ time.Time) ([]strategy.Bar, error) {
	if err, ok := s.err[symbol]; ok {
		return nil, err
	}
	return s.bars[symbol], nil
}

func day(n int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func newTestDataHandler(t *testing.T, source BarSource, symbols []string) *DataHandler {
	t.Helper()
	dh, err := NewDataHandler(context.Background(), source, symbols, day(0), day(30), logging.GetLogger("test"))
	require.NoError(t, err)
	return dh
}

func TestDataHandlerUnionTimelineDoesNotRequireEverySymbol(t *testing.T) {
	source := fakeSource{bars: map[string][]strategy.Bar{
		"000001.SZ": {
			{Symbol: "000001.SZ", Timestamp: day(1), Close: 10},
			{Symbol: "000001.SZ", Timestamp: day(2), Close: 11},
			{Symbol: "000001.SZ", Timestamp: day(3), Close: 12},
		},
		"000002.SZ": {
			{Symbol: "000002.SZ", Timestamp: day(2), Close: 20},
			{Symbol: "000002.SZ", Timestamp: day(3), Close: 21},
			{Symbol: "000002.SZ", Timestamp: day(4), Close: 22},
		},
	}}
	dh := newTestDataHandler(t, source, []string{"000001.SZ", "000002.SZ"})

	require.True(t, dh.HasNext())
	tick1 := dh.NextTick()
	require.Len(t, tick1, 1, "day 1 only has a bar for 000001.SZ")
	assert.Equal(t, "000001.SZ", tick1[0].Symbol)

	ts, ok := dh.CurrentTime()
	require.True(t, ok)
	assert.True(t, ts.Equal(day(1)))

	tick2 := dh.NextTick()
	require.Len(t, tick2, 2, "day 2 has bars for both symbols")
	assert.Equal(t, "000001.SZ", tick2[0].Symbol, "bars within a tick are returned in sorted symbol order")
	assert.Equal(t, "000002.SZ", tick2[1].Symbol)

	tick3 := dh.NextTick()
	require.Len(t, tick3, 2)

	tick4 := dh.NextTick()
	require.Len(t, tick4, 1, "day 4 only has a bar for 000002.SZ")
	assert.Equal(t, "000002.SZ", tick4[0].Symbol)

	assert.False(t, dh.HasNext())
}

func TestDataHandlerNoLookAhead(t *testing.T) {
	source := fakeSource{bars: map[string][]strategy.Bar{
		"000001.SZ": {
			{Symbol: "000001.SZ", Timestamp: day(1), Close: 10},
			{Symbol: "000001.SZ", Timestamp: day(2), Close: 11},
			{Symbol: "000001.SZ", Timestamp: day(3), Close: 12},
		},
	}}
	dh := newTestDataHandler(t, source, []string{"000001.SZ"})

	_, ok := dh.LatestBar("000001.SZ")
	assert.False(t, ok, "no bar has been delivered yet")

	tick1 := dh.NextTick()
	require.Len(t, tick1, 1)
	dh.AdvanceSymbol(tick1[0])
	bar, ok := dh.LatestBar("000001.SZ")
	require.True(t, ok)
	assert.InDelta(t, 10.0, bar.Close, 1e-9)

	bars := dh.LatestBars("000001.SZ", 10)
	require.Len(t, bars, 1, "must never return bars beyond the current tick, even when n exceeds history")

	tick2 := dh.NextTick()
	require.Len(t, tick2, 1)
	dh.AdvanceSymbol(tick2[0])

	tick3 := dh.NextTick()
	require.Len(t, tick3, 1)
	dh.AdvanceSymbol(tick3[0])

	bars = dh.LatestBars("000001.SZ", 2)
	require.Len(t, bars, 2)
	assert.InDelta(t, 11.0, bars[0].Close, 1e-9)
	assert.InDelta(t, 12.0, bars[1].Close, 1e-9)
}

func TestDataHandlerCursorStableDuringCascade(t *testing.T) {
	// Regression guard for the cursor/nextIndex split: CurrentTime() must
	// keep reporting the tick just returned by NextTick() even after
	// LatestBar/LatestBars calls that a strategy or sizer might make mid-cascade,
	// and before the next NextTick() call advances anything.
	source := fakeSource{bars: map[string][]strategy.Bar{
		"000001.SZ": {
			{Symbol: "000001.SZ", Timestamp: day(1), Close: 10},
			{Symbol: "000001.SZ", Timestamp: day(2), Close: 11},
		},
	}}
	dh := newTestDataHandler(t, source, []string{"000001.SZ"})

	tick := dh.NextTick()
	require.Len(t, tick, 1)
	dh.AdvanceSymbol(tick[0])
	ts1, _ := dh.CurrentTime()

	_, _ = dh.LatestBar("000001.SZ")
	_ = dh.LatestBars("000001.SZ", 5)

	ts2, _ := dh.CurrentTime()
	assert.True(t, ts1.Equal(ts2), "current time must not drift between NextTick calls")
}

func TestDataHandlerWithholdsOtherSymbolsUntilAdvanced(t *testing.T) {
	// Two symbols share day 1. NextTick returns both bars, but neither
	// symbol's cursor moves until AdvanceSymbol is called for it -
	// simulating 000001.SZ's Market event still cascading through
	// Signal/Order/Fill while 000002.SZ's bar for the same tick must stay
	// invisible to LatestBar/LatestBars.
	source := fakeSource{bars: map[string][]strategy.Bar{
		"000001.SZ": {{Symbol: "000001.SZ", Timestamp: day(1), Close: 10}},
		"000002.SZ": {{Symbol: "000002.SZ", Timestamp: day(1), Close: 20}},
	}}
	dh := newTestDataHandler(t, source, []string{"000001.SZ", "000002.SZ"})

	tick := dh.NextTick()
	require.Len(t, tick, 2)
	assert.Equal(t, "000001.SZ", tick[0].Symbol)
	assert.Equal(t, "000002.SZ", tick[1].Symbol)

	_, ok := dh.LatestBar("000001.SZ")
	assert.False(t, ok, "000001.SZ's own Market event has not dispatched yet")
	_, ok = dh.LatestBar("000002.SZ")
	assert.False(t, ok, "000002.SZ's bar must stay invisible while 000001.SZ's cascade is still draining")

	dh.AdvanceSymbol(tick[0])
	bar, ok := dh.LatestBar("000001.SZ")
	require.True(t, ok)
	assert.InDelta(t, 10.0, bar.Close, 1e-9)
	_, ok = dh.LatestBar("000002.SZ")
	assert.False(t, ok, "advancing 000001.SZ must not leak 000002.SZ's same-tick bar")

	dh.AdvanceSymbol(tick[1])
	bar, ok = dh.LatestBar("000002.SZ")
	require.True(t, ok)
	assert.InDelta(t, 20.0, bar.Close, 1e-9)
}

func TestDataHandlerSkipsUnresolvableSymbol(t *testing.T) {
	source := fakeSource{bars: map[string][]strategy.Bar{
		"000001.SZ": {{Symbol: "000001.SZ", Timestamp: day(1), Close: 10}},
	}}
	dh := newTestDataHandler(t, source, []string{"000001.SZ", "not-a-code"})
	assert.True(t, dh.HasNext())
}

func TestDataHandlerErrorsWhenNoSymbolsProduceBars(t *testing.T) {
	source := fakeSource{bars: map[string][]strategy.Bar{}}
	_, err := NewDataHandler(context.Background(), source, []string{"000001.SZ"}, day(0), day(10), logging.GetLogger("test"))
	assert.Error(t, err)
}

func TestDataHandlerReset(t *testing.T) {
	source := fakeSource{bars: map[string][]strategy.Bar{
		"000001.SZ": {
			{Symbol: "000001.SZ", Timestamp: day(1), Close: 10},
			{Symbol: "000001.SZ", Timestamp: day(2), Close: 11},
		},
	}}
	dh := newTestDataHandler(t, source, []string{"000001.SZ"})
	dh.NextTick()
	dh.NextTick()
	assert.False(t, dh.HasNext())

	dh.Reset()
	assert.True(t, dh.HasNext())
	_, ok := dh.LatestBar("000001.SZ")
	assert.False(t, ok, "reset must clear per-symbol cursors")
}
