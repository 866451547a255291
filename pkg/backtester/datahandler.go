package backtester

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ridopark/ashare-backtest/pkg/strategy"
	"github.com/rs/zerolog"
)

// DataHandler is the engine's sole gateway to historical bars. It enforces
// no-look-ahead access: callers can only ever see data up to the bar most
// recently emitted for a symbol. The shared timeline is the sorted union of
// every symbol's bar timestamps — a tick does not require every symbol to
// have a bar at that timestamp, only at least one.
type DataHandler struct {
	logger zerolog.Logger

	bars map[string][]strategy.Bar // full per-symbol archive, chronological

	timeline    []time.Time
	timeIndexed map[time.Time]map[string]int // timestamp -> symbol -> index into bars[symbol]

	cursor    int // index into timeline of the tick currently being dispatched, -1 before the first NextTick
	nextIndex int // index into timeline of the next tick NextTick will emit

	symbolCursor map[string]int // symbol -> index into bars[symbol], -1 if none yet

	continueBacktest bool
}

// NewDataHandler loads bars for every symbol via source, builds the shared
// timeline, and the timestamp -> symbol -> bar index used to answer per-tick
// queries. A symbol whose exchange cannot be inferred or that produces no
// bars in range is skipped with a warning rather than failing the whole run.
func NewDataHandler(ctx context.Context, source BarSource, symbols []string, start, end time.Time, logger zerolog.Logger) (*DataHandler, error) {
	dh := &DataHandler{
		logger:           logger,
		bars:             make(map[string][]strategy.Bar),
		timeIndexed:      make(map[time.Time]map[string]int),
		symbolCursor:     make(map[string]int),
		continueBacktest: true,
	}

	dateSet := make(map[time.Time]bool)
	for _, raw := range symbols {
		symbol, exchange, err := NormalizeSymbol(raw)
		if err != nil {
			dh.logger.Warn().Err(err).Str("symbol", raw).Msg("skipping symbol with unresolvable exchange")
			continue
		}
		loaded, err := source.LoadBars(ctx, symbol, exchange, start, end)
		if err != nil {
			dh.logger.Error().Err(err).Str("symbol", symbol).Msg("failed to load bars")
			continue
		}
		if len(loaded) == 0 {
			dh.logger.Warn().Str("symbol", symbol).Msg("no bars loaded for symbol in range")
			continue
		}

		sorted := append([]strategy.Bar(nil), loaded...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

		dh.bars[symbol] = sorted
		dh.symbolCursor[symbol] = -1
		for _, b := range sorted {
			dateSet[b.Timestamp] = true
		}
	}

	if len(dh.bars) == 0 {
		return nil, fmt.Errorf("data handler: no symbols produced any bars in [%s, %s]", start, end)
	}

	dh.timeline = make([]time.Time, 0, len(dateSet))
	for t := range dateSet {
		dh.timeline = append(dh.timeline, t)
	}
	sort.Slice(dh.timeline, func(i, j int) bool { return dh.timeline[i].Before(dh.timeline[j]) })

	for symbol, series := range dh.bars {
		for idx, b := range series {
			if dh.timeIndexed[b.Timestamp] == nil {
				dh.timeIndexed[b.Timestamp] = make(map[string]int)
			}
			dh.timeIndexed[b.Timestamp][symbol] = idx
		}
	}

	dh.cursor = -1
	dh.nextIndex = 0

	return dh, nil
}

// HasNext reports whether any tick remains to be emitted.
func (dh *DataHandler) HasNext() bool {
	return dh.continueBacktest && dh.nextIndex < len(dh.timeline)
}

// NextTick advances the shared timeline by one tick and returns that tick's
// bars in deterministic symbol order. It does NOT advance any per-symbol
// cursor — a symbol's bar only becomes visible to LatestBar/LatestBars once
// the engine calls AdvanceSymbol for it, immediately before dispatching that
// symbol's Market event. This keeps cursor-then-emit strictly per symbol: a
// same-tick symbol B's bar must not be visible while symbol A's Market event
// is still cascading through Signal/Order/Fill.
func (dh *DataHandler) NextTick() []strategy.Bar {
	if dh.nextIndex >= len(dh.timeline) {
		dh.continueBacktest = false
		return nil
	}

	ts := dh.timeline[dh.nextIndex]
	dh.cursor = dh.nextIndex
	dh.nextIndex++

	present := dh.timeIndexed[ts]
	symbols := make([]string, 0, len(present))
	for symbol := range present {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	out := make([]strategy.Bar, 0, len(symbols))
	for _, symbol := range symbols {
		out = append(out, dh.bars[symbol][present[symbol]])
	}
	return out
}

// AdvanceSymbol sets bar's symbol cursor to the index, within that symbol's
// own bar sequence, of its bar at the current tick, making it the latest bar LatestBar/LatestBars will return for
// that symbol. The engine calls this right before pushing bar's Market
// event, so a symbol's bar becomes visible exactly when its own cascade
// starts — never earlier, even for another symbol sharing the same tick.
func (dh *DataHandler) AdvanceSymbol(bar strategy.Bar) {
	if dh.cursor < 0 || dh.cursor >= len(dh.timeline) {
		return
	}
	ts := dh.timeline[dh.cursor]
	if idx, ok := dh.timeIndexed[ts][bar.Symbol]; ok {
		dh.symbolCursor[bar.Symbol] = idx
	}
}

// LatestBar returns the most recent bar available for symbol as of the
// current tick, or false if the symbol has never appeared yet.
func (dh *DataHandler) LatestBar(symbol string) (strategy.Bar, bool) {
	idx, ok := dh.symbolCursor[symbol]
	if !ok || idx < 0 {
		return strategy.Bar{}, false
	}
	return dh.bars[symbol][idx], true
}

// LatestBars returns up to the last n bars available for symbol as of the
// current tick, oldest first.
func (dh *DataHandler) LatestBars(symbol string, n int) []strategy.Bar {
	if n <= 0 {
		return nil
	}
	idx, ok := dh.symbolCursor[symbol]
	if !ok || idx < 0 {
		return nil
	}
	series := dh.bars[symbol]
	start := idx - n + 1
	if start < 0 {
		start = 0
	}
	out := make([]strategy.Bar, idx-start+1)
	copy(out, series[start:idx+1])
	return out
}

// CurrentTime returns the timestamp of the tick currently being dispatched.
func (dh *DataHandler) CurrentTime() (time.Time, bool) {
	if dh.cursor < 0 || dh.cursor >= len(dh.timeline) {
		return time.Time{}, false
	}
	return dh.timeline[dh.cursor], true
}

// Reset rewinds the handler to its initial state without reloading data.
func (dh *DataHandler) Reset() {
	dh.cursor = -1
	dh.nextIndex = 0
	dh.continueBacktest = true
	for symbol := range dh.symbolCursor {
		dh.symbolCursor[symbol] = -1
	}
}

var _ strategy.MarketView = (*DataHandler)(nil)
