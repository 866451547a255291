// Package config loads backtest configuration via viper from a YAML file,
// applying defaults for anything the file omits.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// BacktestConfig holds the top-level run parameters.
type BacktestConfig struct {
	StartDate      time.Time `mapstructure:"start_date"`
	EndDate        time.Time `mapstructure:"end_date"`
	InitialCapital float64   `mapstructure:"initial_capital"`
	Symbols        []string  `mapstructure:"symbols"`
}

// SizerConfig selects and parameterizes a strategy.Sizer.
type SizerConfig struct {
	Type   string                 `mapstructure:"type"`
	Params map[string]interface{} `mapstructure:"params"`
}

// PortfolioConfig holds Portfolio risk parameters.
type PortfolioConfig struct {
	MaxPositions     int         `mapstructure:"max_positions"`
	CashReserveRatio float64     `mapstructure:"cash_reserve_ratio"`
	Sizer            SizerConfig `mapstructure:"sizer"`
}

// PostgresConfig holds connection parameters for the postgres bar source.
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// DataConfig selects and configures a BarSource.
type DataConfig struct {
	Source      string         `mapstructure:"source"`
	CSVRootPath string         `mapstructure:"csv_root_path"`
	Postgres    PostgresConfig `mapstructure:"postgres"`
}

// ExecutionConfig holds commission and slippage parameters.
type ExecutionConfig struct {
	CommissionRate   float64 `mapstructure:"commission_rate"`
	MinCommission    float64 `mapstructure:"min_commission"`
	SlippageRate     float64 `mapstructure:"slippage_rate"`
	MinCloseProceeds float64 `mapstructure:"min_close_proceeds"`
}

// AnalysisConfig holds performance-analysis parameters.
type AnalysisConfig struct {
	RiskFreeRate float64 `mapstructure:"risk_free_rate"`
}

// StrategyConfig selects and parameterizes a Strategy.
type StrategyConfig struct {
	Name       string                 `mapstructure:"name"`
	Parameters map[string]interface{} `mapstructure:"parameters"`
}

// Config is the root configuration document.
type Config struct {
	Backtest  BacktestConfig  `mapstructure:"backtest"`
	Data      DataConfig      `mapstructure:"data"`
	Portfolio PortfolioConfig `mapstructure:"portfolio"`
	Execution ExecutionConfig `mapstructure:"execution"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
	Strategy  StrategyConfig  `mapstructure:"strategy"`
}

// Load reads configuration from the YAML file at path, applying defaults for
// anything the file omits — a missing portfolio.sizer.type, for instance,
// falls back to "equal_weight".
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backtest.initial_capital", 100000.0)
	v.SetDefault("portfolio.max_positions", 10)
	v.SetDefault("portfolio.cash_reserve_ratio", 0.10)
	v.SetDefault("portfolio.sizer.type", "equal_weight")
	v.SetDefault("execution.commission_rate", 0.0003)
	v.SetDefault("execution.min_commission", 5.0)
	v.SetDefault("execution.slippage_rate", 0.001)
	v.SetDefault("execution.min_close_proceeds", 1000.0)
	v.SetDefault("analysis.risk_free_rate", 0.02)
	v.SetDefault("data.source", "csv")
}
