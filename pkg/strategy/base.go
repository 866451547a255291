package strategy

// BaseStrategy supplies default implementations of every Strategy method
// except OnMarket, so concrete strategies only need to embed it and provide
// their own market-reaction logic.
type BaseStrategy struct {
	name string
}

// NewBaseStrategy creates a new base strategy carrying the given name.
func NewBaseStrategy(name string) *BaseStrategy {
	return &BaseStrategy{name: name}
}

// Name returns the strategy name.
func (s *BaseStrategy) Name() string {
	return s.name
}

// Initialize provides a default initialization that just logs.
func (s *BaseStrategy) Initialize(ctx Context) error {
	ctx.Log("info", "strategy initialized", map[string]interface{}{"strategy": s.name})
	return nil
}

// OnFill provides a default implementation that logs the fill.
func (s *BaseStrategy) OnFill(ctx Context, fill Fill) error {
	ctx.Log("info", "fill received", map[string]interface{}{
		"strategy":  s.name,
		"symbol":    fill.Symbol,
		"direction": fill.Direction,
		"volume":    fill.Volume,
		"price":     fill.Price,
	})
	return nil
}

// Cleanup provides a default cleanup that just logs.
func (s *BaseStrategy) Cleanup(ctx Context) error {
	ctx.Log("info", "strategy cleanup", map[string]interface{}{"strategy": s.name})
	return nil
}
