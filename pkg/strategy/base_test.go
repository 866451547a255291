package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recordingContext struct {
	logs []string
}

func (c *recordingContext) LatestBar(string) (Bar, bool)        { return Bar{}, false }
func (c *recordingContext) LatestBars(string, int) []Bar        { return nil }
func (c *recordingContext) CurrentTime() (time.Time, bool)      { return time.Time{}, false }
func (c *recordingContext) Portfolio() PortfolioView            { return PortfolioView{} }
func (c *recordingContext) Emit(Signal)                         {}
func (c *recordingContext) SMA(string, int) (float64, bool)     { return 0, false }
func (c *recordingContext) EMA(string, int) (float64, bool)     { return 0, false }
func (c *recordingContext) RSI(string, int) (float64, bool)     { return 0, false }
func (c *recordingContext) ATR(string, int) (float64, bool)     { return 0, false }
func (c *recordingContext) Log(level, msg string, _ map[string]interface{}) {
	c.logs = append(c.logs, level+": "+msg)
}

var _ Context = (*recordingContext)(nil)

func TestBaseStrategyName(t *testing.T) {
	s := NewBaseStrategy("my-strategy")
	assert.Equal(t, "my-strategy", s.Name())
}

func TestBaseStrategyLifecycleLogs(t *testing.T) {
	s := NewBaseStrategy("my-strategy")
	ctx := &recordingContext{}

	assert.NoError(t, s.Initialize(ctx))
	assert.NoError(t, s.OnFill(ctx, Fill{Symbol: "000001.SZ", Direction: Long, Volume: 100, Price: 10}))
	assert.NoError(t, s.Cleanup(ctx))

	assert.Len(t, ctx.logs, 3)
}
