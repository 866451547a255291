package strategy

import (
	"math"

	"github.com/cinar/indicator/v2/momentum"
	"github.com/cinar/indicator/v2/trend"
)

func closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

func toChan(xs []float64) <-chan float64 {
	ch := make(chan float64, len(xs))
	for _, x := range xs {
		ch <- x
	}
	close(ch)
	return ch
}

func drain(ch <-chan float64) []float64 {
	var out []float64
	for v := range ch {
		out = append(out, v)
	}
	return out
}

// SMA computes the simple moving average of the trailing period closes.
func SMA(bars []Bar, period int) (float64, bool) {
	if period <= 0 || len(bars) < period {
		return 0, false
	}
	window := bars[len(bars)-period:]
	sum := 0.0
	for _, b := range window {
		sum += b.Close
	}
	return sum / float64(period), true
}

// EMA computes the exponential moving average via cinar/indicator/v2.
func EMA(bars []Bar, period int) (float64, bool) {
	if period <= 0 || len(bars) < period {
		return 0, false
	}
	ind := trend.NewEmaWithPeriod[float64](period)
	values := drain(ind.Compute(toChan(closes(bars))))
	if len(values) == 0 {
		return 0, false
	}
	return values[len(values)-1], true
}

// RSI computes the relative strength index via cinar/indicator/v2.
func RSI(bars []Bar, period int) (float64, bool) {
	if period <= 0 || len(bars) < period+1 {
		return 0, false
	}
	ind := momentum.NewRsiWithPeriod[float64](period)
	values := drain(ind.Compute(toChan(closes(bars))))
	if len(values) == 0 {
		return 0, false
	}
	return values[len(values)-1], true
}

// ATR computes the Average True Range over the trailing period bars.
// cinar/indicator/v2 does not expose a true-range/ATR indicator, so this is
// computed directly from OHLC data — the same gap the cryptofunk indicators
// package hit with ADX, which it also hand-rolled.
func ATR(bars []Bar, period int) (float64, bool) {
	if period <= 0 || len(bars) < period+1 {
		return 0, false
	}
	window := bars[len(bars)-period-1:]
	sum := 0.0
	for i := 1; i < len(window); i++ {
		b, prev := window[i], window[i-1]
		tr := math.Max(b.High-b.Low, math.Max(math.Abs(b.High-prev.Close), math.Abs(b.Low-prev.Close)))
		sum += tr
	}
	return sum / float64(period), true
}
