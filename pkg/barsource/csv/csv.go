// Package csv implements backtester.BarSource by reading per-symbol CSV
// files laid out with the Chinese-header column convention common to local
// A-share data exports.
package csv

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ridopark/ashare-backtest/pkg/strategy"
)

// Loader reads daily A-share bars from <RootPath>/<code>.csv.
type Loader struct {
	RootPath string
}

// NewLoader builds a Loader rooted at rootPath.
func NewLoader(rootPath string) *Loader { return &Loader{RootPath: rootPath} }

// LoadBars implements backtester.BarSource.
func (l *Loader) LoadBars(_ context.Context, symbol string, exchange strategy.Exchange, start, end time.Time) ([]strategy.Bar, error) {
	code := symbol
	if i := strings.Index(symbol, "."); i >= 0 {
		code = symbol[:i]
	}
	path := filepath.Join(l.RootPath, code+".csv")

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csv bar source: open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("csv bar source: read header %s: %w", path, err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"交易日期", "开盘价", "最高价", "最低价", "收盘价"} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("csv bar source: %s missing required column %q", path, required)
		}
	}

	var bars []strategy.Bar
	for {
		row, err := r.Read()
		if err != nil {
			break
		}
		ts, err := parseDate(row[columns["交易日期"]])
		if err != nil {
			continue
		}
		if ts.Before(start) || ts.After(end) {
			continue
		}
		bars = append(bars, strategy.Bar{
			Symbol:    symbol,
			Exchange:  exchange,
			Timestamp: ts,
			Open:      field(row, columns, "开盘价"),
			High:      field(row, columns, "最高价"),
			Low:       field(row, columns, "最低价"),
			Close:     field(row, columns, "收盘价"),
			Volume:    field(row, columns, "成交量(手)") * 100,   // lots -> shares
			Turnover:  field(row, columns, "成交额(千元)") * 1000, // thousands of yuan -> yuan
			PreClose:  field(row, columns, "昨收价"),
			LimitUp:   field(row, columns, "今日涨停价"),
			LimitDown: field(row, columns, "今日跌停价"),
		})
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Timestamp.Before(bars[j].Timestamp) })
	return bars, nil
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse("20060102", raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}

func field(row []string, columns map[string]int, name string) float64 {
	idx, ok := columns[name]
	if !ok || idx >= len(row) {
		return 0
	}
	v, _ := strconv.ParseFloat(strings.TrimSpace(row[idx]), 64)
	return v
}
