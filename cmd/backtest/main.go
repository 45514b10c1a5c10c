package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rxtech-lab/argo-backtest/internal/strategy"
	"github.com/rxtech-lab/argo-backtest/internal/version"
	"github.com/urfave/cli/v3"
)

const defaultEnvFile = ".env"

// loadEnv reads KEY=VALUE pairs from path into the environment. Variables that are already
// set win, and a missing file is not an error.
func loadEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}

	return nil
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "backtest",
		Usage:   "Replay historical candles through a trading strategy",
		Version: version.GetVersion(),
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run a strategy over a parquet or CSV candle file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "Path to the candle file (`.parquet` or `.csv`)",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to the engine YAML config",
					},
					&cli.FloatFlag{
						Name:    "balance",
						Aliases: []string{"b"},
						Usage:   "Initial balance, overrides the config",
					},
					&cli.StringFlag{
						Name:    "strategy",
						Aliases: []string{"s"},
						Usage:   fmt.Sprintf("Strategy to run (%s)", strings.Join(strategy.Names(), ", ")),
						Value:   strategy.SMACrossoverName,
					},
					&cli.StringFlag{
						Name:  "strategy-config",
						Usage: "Path to the strategy YAML config, defaults are used when empty",
					},
					&cli.StringFlag{
						Name:    "results",
						Aliases: []string{"r"},
						Usage:   "Folder receiving events.parquet and stats.yaml",
						Value:   "results",
						Sources: cli.EnvVars("BACKTEST_RESULTS_FOLDER"),
					},
					&cli.StringFlag{
						Name:    "log-level",
						Usage:   "Log level (debug, info, warn, error), overrides the config",
						Sources: cli.EnvVars("BACKTEST_LOG_LEVEL"),
					},
					&cli.BoolFlag{
						Name:  "keep-open",
						Usage: "Leave open positions unrealized instead of closing them at the last close",
					},
					&cli.BoolFlag{
						Name:  "quiet",
						Usage: "Hide the progress bar",
					},
				},
				Action: runAction,
			},
			{
				Name:  "schema",
				Usage: "Print the JSON schema of the engine config or of a strategy config",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "strategy",
						Aliases: []string{"s"},
						Usage:   "Print this strategy's config schema instead",
					},
				},
				Action: schemaAction,
			},
		},
	}
}

func main() {
	if err := loadEnv(defaultEnvFile); err != nil {
		log.Fatal(err)
	}

	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
