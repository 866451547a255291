package backtester

import (
	"context"
	"testing"

	"github.com/ridopark/ashare-backtest/pkg/logging"
	"github.com/ridopark/ashare-backtest/pkg/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// orderingStrategy emits a LONG signal every time it sees a bar for
// firstSymbol, and records whether firstSymbol was already held by the time
// it sees a bar for secondSymbol in the same tick.
type orderingStrategy struct {
	*strategy.BaseStrategy
	firstSymbol, secondSymbol string

	secondSawFirstHeld bool
	onMarketCalls      []string
}

func newOrderingStrategy(first, second string) *orderingStrategy {
	return &orderingStrategy{BaseStrategy: strategy.NewBaseStrategy("ordering"), firstSymbol: first, secondSymbol: second}
}

func (s *orderingStrategy) OnMarket(ctx strategy.Context, bar strategy.Bar) error {
	s.onMarketCalls = append(s.onMarketCalls, bar.Symbol)
	switch bar.Symbol {
	case s.firstSymbol:
		ctx.Emit(strategy.Signal{Symbol: s.firstSymbol, Direction: strategy.Long, Strength: 1, Timestamp: bar.Timestamp})
	case s.secondSymbol:
		view := ctx.Portfolio()
		if vol, ok := view.Positions[s.firstSymbol]; ok && vol > 0 {
			s.secondSawFirstHeld = true
		}
	}
	return nil
}

// TestEngineScenarioF_OneSymbolCascadeCompletesBeforeNext replays spec.md's
// Scenario F: two symbols share a timestamp. The entire Market->Signal->
// Order->Fill cascade for the first symbol (alphabetically) must complete
// before the second symbol's Market event is dispatched, even though both
// share the same tick.
func TestEngineScenarioF_OneSymbolCascadeCompletesBeforeNext(t *testing.T) {
	source := fakeSource{bars: map[string][]strategy.Bar{
		"000001.SZ": {{Symbol: "000001.SZ", Timestamp: day(1), Close: 10}},
		"000002.SZ": {{Symbol: "000002.SZ", Timestamp: day(1), Close: 20}},
	}}
	data, err := NewDataHandler(context.Background(), source, []string{"000001.SZ", "000002.SZ"}, day(0), day(10), logging.GetLogger("test"))
	require.NoError(t, err)

	sizer := strategy.FixedRatioSizer{Ratio: 0.1}
	risk := defaultRisk()
	portfolio := NewPortfolio(data, 1000000, sizer, risk, logging.GetLogger("test"))
	execution := NewExecutionSimulator(data, ExecutionConfig{CommissionRate: 0.0003, MinCommission: 5}, logging.GetLogger("test"))

	strat := newOrderingStrategy("000001.SZ", "000002.SZ")
	engine := NewEngine(data, strat, portfolio, execution, logging.GetLogger("test"))

	require.NoError(t, engine.Run())

	assert.Equal(t, []string{"000001.SZ", "000002.SZ"}, strat.onMarketCalls)
	assert.True(t, strat.secondSawFirstHeld, "000001.SZ's signal->order->fill cascade must complete before 000002.SZ's Market event is dispatched")
}

func TestEngineRunProducesEquityCurveAndRunsLifecycle(t *testing.T) {
	source := fakeSource{bars: map[string][]strategy.Bar{
		"000001.SZ": {
			{Symbol: "000001.SZ", Timestamp: day(1), Close: 10},
			{Symbol: "000001.SZ", Timestamp: day(2), Close: 11},
		},
	}}
	data, err := NewDataHandler(context.Background(), source, []string{"000001.SZ"}, day(0), day(10), logging.GetLogger("test"))
	require.NoError(t, err)

	portfolio := NewPortfolio(data, 100000, strategy.FixedRatioSizer{Ratio: 0.1}, defaultRisk(), logging.GetLogger("test"))
	execution := NewExecutionSimulator(data, ExecutionConfig{CommissionRate: 0.0003, MinCommission: 5}, logging.GetLogger("test"))
	strat := &lifecycleStrategy{BaseStrategy: strategy.NewBaseStrategy("lifecycle")}
	engine := NewEngine(data, strat, portfolio, execution, logging.GetLogger("test"))

	require.NoError(t, engine.Run())

	assert.True(t, strat.initialized)
	assert.True(t, strat.cleanedUp)
	assert.Len(t, engine.Portfolio().EquityCurve(), 2)
}

type lifecycleStrategy struct {
	*strategy.BaseStrategy
	initialized, cleanedUp bool
}

func (s *lifecycleStrategy) Initialize(ctx strategy.Context) error { s.initialized = true; return nil }
func (s *lifecycleStrategy) OnMarket(strategy.Context, strategy.Bar) error { return nil }
func (s *lifecycleStrategy) Cleanup(ctx strategy.Context) error    { s.cleanedUp = true; return nil }

func TestEngineRecoversFromStrategyPanic(t *testing.T) {
	source := fakeSource{bars: map[string][]strategy.Bar{
		"000001.SZ": {{Symbol: "000001.SZ", Timestamp: day(1), Close: 10}},
	}}
	data, err := NewDataHandler(context.Background(), source, []string{"000001.SZ"}, day(0), day(10), logging.GetLogger("test"))
	require.NoError(t, err)

	portfolio := NewPortfolio(data, 100000, strategy.FixedRatioSizer{Ratio: 0.1}, defaultRisk(), logging.GetLogger("test"))
	execution := NewExecutionSimulator(data, ExecutionConfig{}, logging.GetLogger("test"))
	strat := &panickingStrategy{BaseStrategy: strategy.NewBaseStrategy("panicker")}
	engine := NewEngine(data, strat, portfolio, execution, logging.GetLogger("test"))

	assert.NotPanics(t, func() {
		require.NoError(t, engine.Run())
	})
}

type panickingStrategy struct {
	*strategy.BaseStrategy
}

func (s *panickingStrategy) OnMarket(strategy.Context, strategy.Bar) error {
	panic("boom")
}
