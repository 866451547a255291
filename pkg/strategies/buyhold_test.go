package strategies

import (
	"testing"
	"time"

	"github.com/ridopark/ashare-backtest/pkg/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingContext struct {
	emitted []strategy.Signal
}

func (c *recordingContext) LatestBar(string) (strategy.Bar, bool)   { return strategy.Bar{}, false }
func (c *recordingContext) LatestBars(string, int) []strategy.Bar   { return nil }
func (c *recordingContext) CurrentTime() (time.Time, bool)         { return time.Time{}, false }
func (c *recordingContext) Portfolio() strategy.PortfolioView       { return strategy.PortfolioView{} }
func (c *recordingContext) Emit(sig strategy.Signal)                { c.emitted = append(c.emitted, sig) }
func (c *recordingContext) SMA(string, int) (float64, bool)         { return 0, false }
func (c *recordingContext) EMA(string, int) (float64, bool)         { return 0, false }
func (c *recordingContext) RSI(string, int) (float64, bool)         { return 0, false }
func (c *recordingContext) ATR(string, int) (float64, bool)         { return 0, false }
func (c *recordingContext) Log(string, string, map[string]interface{}) {}

var _ strategy.Context = (*recordingContext)(nil)

func TestBuyAndHoldEntersOnceOnFirstMatchingBar(t *testing.T) {
	s := NewBuyAndHold("000001.SZ")
	ctx := &recordingContext{}

	require.NoError(t, s.OnMarket(ctx, strategy.Bar{Symbol: "000002.SZ", Close: 20}))
	assert.Empty(t, ctx.emitted, "must ignore bars for other symbols")

	require.NoError(t, s.OnMarket(ctx, strategy.Bar{Symbol: "000001.SZ", Close: 10}))
	require.Len(t, ctx.emitted, 1)
	assert.Equal(t, strategy.Long, ctx.emitted[0].Direction)

	require.NoError(t, s.OnMarket(ctx, strategy.Bar{Symbol: "000001.SZ", Close: 11}))
	assert.Len(t, ctx.emitted, 1, "must not buy a second time")
}
