package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ridopark/ashare-backtest/internal/config"
	"github.com/ridopark/ashare-backtest/pkg/backtester"
	bcsv "github.com/ridopark/ashare-backtest/pkg/barsource/csv"
	"github.com/ridopark/ashare-backtest/pkg/barsource/postgres"
	"github.com/ridopark/ashare-backtest/pkg/logging"
	"github.com/ridopark/ashare-backtest/pkg/strategies"
	"github.com/ridopark/ashare-backtest/pkg/strategy"
)

var (
	configPath   string
	strategyFlag string
)

var rootCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run an A-share equity backtest",
	RunE:  runBacktest,
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "backtest.yaml", "path to backtest config file")
	rootCmd.Flags().StringVarP(&strategyFlag, "strategy", "s", "buy_and_hold", "strategy to run (buy_and_hold, ma_crossover)")
}

func main() {
	_ = godotenv.Load()
	logging.Initialize(logging.DefaultConfig())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx := context.Background()

	source, err := buildBarSource(cfg, logging.GetLogger("barsource"))
	if err != nil {
		return err
	}

	data, err := backtester.NewDataHandler(ctx, source, cfg.Backtest.Symbols, cfg.Backtest.StartDate, cfg.Backtest.EndDate, logging.GetLogger("datahandler"))
	if err != nil {
		return err
	}

	sizer, err := strategy.NewSizer(cfg.Portfolio.Sizer.Type, cfg.Portfolio.Sizer.Params)
	if err != nil {
		return err
	}

	risk := backtester.RiskParams{
		MaxPositions:     cfg.Portfolio.MaxPositions,
		CashReserveRatio: cfg.Portfolio.CashReserveRatio,
		CommissionRate:   cfg.Execution.CommissionRate,
		MinCommission:    cfg.Execution.MinCommission,
		MinCloseProceeds: cfg.Execution.MinCloseProceeds,
	}
	portfolio := backtester.NewPortfolio(data, cfg.Backtest.InitialCapital, sizer, risk, logging.GetLogger("portfolio"))

	execCfg := backtester.ExecutionConfig{
		CommissionRate: cfg.Execution.CommissionRate,
		MinCommission:  cfg.Execution.MinCommission,
		SlippageRate:   cfg.Execution.SlippageRate,
	}
	execution := backtester.NewExecutionSimulator(data, execCfg, logging.GetLogger("execution"))

	strat, err := buildStrategy(strategyFlag, cfg)
	if err != nil {
		return err
	}

	engine := backtester.NewEngine(data, strat, portfolio, execution, logging.GetLogger("engine"))
	if err := engine.Run(); err != nil {
		return fmt.Errorf("engine run: %w", err)
	}

	analyzer, err := backtester.NewAnalyzer(portfolio.EquityCurve(), portfolio.FillHistory(), cfg.Analysis.RiskFreeRate, logging.GetLogger("analyzer"))
	if err != nil {
		return err
	}

	fmt.Println(analyzer.Summary())
	return nil
}

func buildBarSource(cfg *config.Config, logger zerolog.Logger) (backtester.BarSource, error) {
	switch cfg.Data.Source {
	case "postgres":
		conn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			cfg.Data.Postgres.Host, cfg.Data.Postgres.Port, cfg.Data.Postgres.User, cfg.Data.Postgres.Password, cfg.Data.Postgres.Database)
		return postgres.NewSource(conn, logger)
	case "", "csv":
		return bcsv.NewLoader(cfg.Data.CSVRootPath), nil
	default:
		return nil, fmt.Errorf("unknown data source %q", cfg.Data.Source)
	}
}

func buildStrategy(name string, cfg *config.Config) (strategy.Strategy, error) {
	switch name {
	case "buy_and_hold":
		if len(cfg.Backtest.Symbols) == 0 {
			return nil, fmt.Errorf("buy_and_hold requires at least one symbol in backtest.symbols")
		}
		return strategies.NewBuyAndHold(cfg.Backtest.Symbols[0]), nil
	case "ma_crossover":
		short := intParam(cfg.Strategy.Parameters, "short_period", 5)
		long := intParam(cfg.Strategy.Parameters, "long_period", 20)
		return strategies.NewMACrossover(short, long), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", name)
	}
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
