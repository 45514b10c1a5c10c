package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine"
	engine_v1 "github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/strategy"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

type runParams struct {
	DataPath           string
	ConfigPath         string
	Balance            optional.Option[float64]
	LogLevel           string
	StrategyName       string
	StrategyConfigPath string
	ResultsFolder      string
	KeepOpen           bool
	// Progress receives the progress bar. Nil disables it.
	Progress io.Writer
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	params := runParams{
		DataPath:           cmd.String("data"),
		ConfigPath:         cmd.String("config"),
		Balance:            optional.None[float64](),
		LogLevel:           cmd.String("log-level"),
		StrategyName:       cmd.String("strategy"),
		StrategyConfigPath: cmd.String("strategy-config"),
		ResultsFolder:      cmd.String("results"),
		KeepOpen:           cmd.Bool("keep-open"),
		Progress:           os.Stderr,
	}

	if cmd.IsSet("balance") {
		params.Balance = optional.Some(cmd.Float("balance"))
	}

	if cmd.Bool("quiet") {
		params.Progress = nil
	}

	stats, err := runBacktest(ctx, params)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.Root().Writer, renderSummary(stats))

	return nil
}

func loadEngineConfig(params runParams) (engine_v1.BacktestEngineV1Config, error) {
	config := engine_v1.EmptyConfig()

	if params.ConfigPath != "" {
		content, err := os.ReadFile(params.ConfigPath)
		if err != nil {
			return config, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read config %s", params.ConfigPath)
		}

		if config, err = engine_v1.LoadConfig(string(content)); err != nil {
			return config, err
		}
	}

	if balance, err := params.Balance.Take(); err == nil {
		config.InitialBalance = balance
	}

	if params.LogLevel != "" {
		config.LogLevel = params.LogLevel
	}

	if err := config.Validate(); err != nil {
		return config, err
	}

	return config, nil
}

func loadStrategy(params runParams) (engine.Strategy, error) {
	var content []byte

	if params.StrategyConfigPath != "" {
		var err error

		content, err = os.ReadFile(params.StrategyConfigPath)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read strategy config %s", params.StrategyConfigPath)
		}
	}

	return strategy.New(params.StrategyName, string(content))
}

// runBacktest loads the candles, runs the strategy over them and writes the results.
func runBacktest(ctx context.Context, params runParams) (types.BacktestStats, error) {
	config, err := loadEngineConfig(params)
	if err != nil {
		return types.BacktestStats{}, err
	}

	log, err := logger.NewLoggerWithLevel(config.LogLevel)
	if err != nil {
		return types.BacktestStats{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to create logger", err)
	}

	defer func() { _ = log.Sync() }()

	strat, err := loadStrategy(params)
	if err != nil {
		return types.BacktestStats{}, err
	}

	source, err := datasource.NewDataSource(":memory:", log)
	if err != nil {
		return types.BacktestStats{}, err
	}

	defer source.Close()

	if err := source.Initialize(params.DataPath); err != nil {
		return types.BacktestStats{}, err
	}

	candles, err := datasource.LoadCandles(source, config.StartTime, config.EndTime)
	if err != nil {
		return types.BacktestStats{}, err
	}

	backtest, err := engine_v1.NewBacktestFromConfig(candles, config, log)
	if err != nil {
		return types.BacktestStats{}, err
	}

	if err := backtest.Run(ctx, strat, progressCallbacks(params.Progress, len(candles))); err != nil {
		return types.BacktestStats{}, err
	}

	if !params.KeepOpen {
		if err := liquidate(backtest, candles[len(candles)-1], log); err != nil {
			return types.BacktestStats{}, err
		}
	}

	state, err := engine_v1.NewBacktestState(log)
	if err != nil {
		return types.BacktestStats{}, err
	}

	defer state.Close()

	if err := state.Initialize(); err != nil {
		return types.BacktestStats{}, err
	}

	summary := backtest.Summary(config.Symbol, strat.Name(), params.DataPath)
	folder := engine_v1.ResultFolder(params.ResultsFolder, strat.Name(), params.DataPath, config)

	stats, err := backtest.SaveResults(state, summary, folder)
	if err != nil {
		return types.BacktestStats{}, err
	}

	log.Info("Backtest results written", zap.String("folder", folder), zap.String("run_id", stats.ID))

	return stats, nil
}

// liquidate cancels the pending orders and closes the open positions at the last close.
func liquidate(backtest *engine_v1.BacktestEngineV1, last types.Candle, log *logger.Logger) error {
	for _, order := range backtest.Orders() {
		if err := backtest.DeleteOrder(order.ID); err != nil {
			return err
		}
	}

	positions := len(backtest.Positions())
	if positions == 0 {
		return nil
	}

	profit, err := backtest.CloseAllPositions(last.Close)
	if err != nil {
		return err
	}

	log.Info("Closed open positions at the last close",
		zap.Int("positions", positions),
		zap.Float64("price", last.Close),
		zap.Float64("profit", profit),
	)

	return nil
}

func progressCallbacks(w io.Writer, total int) engine.LifecycleCallbacks {
	if w == nil {
		return engine.LifecycleCallbacks{}
	}

	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("Backtesting"),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(0),
		progressbar.OptionClearOnFinish(),
	)

	onTick := engine.OnTickCallback(func(current int, _ int) error {
		return bar.Set(current)
	})

	onRunEnd := engine.OnRunEndCallback(func(error) {
		_ = bar.Finish()
	})

	return engine.LifecycleCallbacks{
		OnTick:   &onTick,
		OnRunEnd: &onRunEnd,
	}
}

func schemaAction(_ context.Context, cmd *cli.Command) error {
	var (
		schema string
		err    error
	)

	if name := cmd.String("strategy"); name != "" {
		schema, err = strategy.ConfigSchema(name)
	} else {
		config := engine_v1.EmptyConfig()
		schema, err = config.GenerateSchemaJSON()
	}

	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.Root().Writer, schema)

	return nil
}
