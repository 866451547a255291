package strategy

import "fmt"

func capByCash(target, cash, reserveRatio float64) float64 {
	maxUsable := cash * (1 - reserveRatio)
	if maxUsable < 0 {
		maxUsable = 0
	}
	if target > maxUsable {
		target = maxUsable
	}
	if target < 0 {
		return 0
	}
	return target
}

// EqualWeightSizer targets total_equity / MaxPositions per signal.
type EqualWeightSizer struct {
	MaxPositions     int
	CashReserveRatio float64
}

func (s EqualWeightSizer) TargetValue(view PortfolioView, _ Signal, _ MarketView) float64 {
	if s.MaxPositions <= 0 {
		return 0
	}
	return capByCash(view.TotalEquity/float64(s.MaxPositions), view.Cash, s.CashReserveRatio)
}

// FixedRatioSizer targets a fixed fraction of total equity per signal.
type FixedRatioSizer struct {
	Ratio            float64
	CashReserveRatio float64
}

func (s FixedRatioSizer) TargetValue(view PortfolioView, _ Signal, _ MarketView) float64 {
	return capByCash(view.TotalEquity*s.Ratio, view.Cash, s.CashReserveRatio)
}

// SignalWeightedSizer scales a base ratio of total equity by the signal's strength.
type SignalWeightedSizer struct {
	BaseRatio        float64
	CashReserveRatio float64
}

func (s SignalWeightedSizer) TargetValue(view PortfolioView, sig Signal, _ MarketView) float64 {
	return capByCash(view.TotalEquity*s.BaseRatio*sig.Strength, view.Cash, s.CashReserveRatio)
}

// ATRSizer targets BaseRiskAmount / (ATR/price) * RiskPerUnit: wider
// volatility for a symbol shrinks the position, tighter volatility grows it.
type ATRSizer struct {
	Period           int
	BaseRiskAmount   float64
	RiskPerUnit      float64
	CashReserveRatio float64
}

func (s ATRSizer) TargetValue(view PortfolioView, sig Signal, market MarketView) float64 {
	bars := market.LatestBars(sig.Symbol, s.Period+1)
	atr, ok := ATR(bars, s.Period)
	if !ok || atr <= 0 {
		return 0
	}
	latestPrice := bars[len(bars)-1].Close
	if latestPrice <= 0 {
		return 0
	}
	volRatio := atr / latestPrice
	if volRatio <= 0 {
		return 0
	}
	target := s.BaseRiskAmount / volRatio * s.RiskPerUnit
	return capByCash(target, view.Cash, s.CashReserveRatio)
}

// NewSizer builds a Sizer from its configured kind and parameters, mirroring
// Portfolio/sizers.py's create_sizer factory dispatch: an empty kind falls
// back to equal_weight, while an unrecognized kind returns an error.
func NewSizer(kind string, params map[string]interface{}) (Sizer, error) {
	reserve := floatParam(params, "cash_reserve_ratio", 0.10)
	switch kind {
	case "", "equal_weight":
		return EqualWeightSizer{
			MaxPositions:     intParam(params, "max_positions", 5),
			CashReserveRatio: reserve,
		}, nil
	case "fixed_ratio":
		return FixedRatioSizer{
			Ratio:            floatParam(params, "ratio", 0.10),
			CashReserveRatio: reserve,
		}, nil
	case "signal_weighted":
		return SignalWeightedSizer{
			BaseRatio:        floatParam(params, "base_ratio", 0.10),
			CashReserveRatio: reserve,
		}, nil
	case "atr":
		return ATRSizer{
			Period:           intParam(params, "atr_period", 20),
			BaseRiskAmount:   floatParam(params, "base_risk_amount", 10000.0),
			RiskPerUnit:      floatParam(params, "risk_per_unit", 0.01),
			CashReserveRatio: reserve,
		}, nil
	default:
		return nil, fmt.Errorf("strategy: unknown sizer type %q", kind)
	}
}

func floatParam(params map[string]interface{}, key string, def float64) float64 {
	if v, ok := params[key]; ok {
		switch n := v.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		}
	}
	return def
}

func intParam(params map[string]interface{}, key string, def int) int {
	if v, ok := params[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case float64:
			return int(n)
		}
	}
	return def
}

var (
	_ Sizer = EqualWeightSizer{}
	_ Sizer = FixedRatioSizer{}
	_ Sizer = SignalWeightedSizer{}
	_ Sizer = ATRSizer{}
)
