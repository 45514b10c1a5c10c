package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	engine "github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/strategy"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/mocks"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const engineConfigName = "backtest-engine-v1-config"

// sampleEngineConfig is the YAML written next to the engine schema. The time range is left out
// so the sample runs over the whole file.
type sampleEngineConfig struct {
	InitialBalance float64              `yaml:"initial_balance"`
	TieBreak       types.TieBreakPolicy `yaml:"tie_break"`
	Symbol         string               `yaml:"symbol"`
	LogLevel       string               `yaml:"log_level"`
}

// writeConfigFiles writes <name>.json schemas and, when missing, <name>.yaml samples for the
// engine and every strategy into dir.
func writeConfigFiles(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	config := engine.EmptyConfig()

	schema, err := config.GenerateSchemaJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to generate schema: %w", err)
	}

	sample := sampleEngineConfig{
		InitialBalance: 10000,
		TieBreak:       config.TieBreak,
		Symbol:         "SPY",
		LogLevel:       config.LogLevel,
	}

	written, err := writeConfigPair(dir, engineConfigName, schema, sample)
	if err != nil {
		return nil, err
	}

	for _, name := range strategy.Names() {
		schema, err := strategy.ConfigSchema(name)
		if err != nil {
			return nil, err
		}

		defaults, err := strategy.DefaultConfig(name)
		if err != nil {
			return nil, err
		}

		files, err := writeConfigPair(dir, name+"-config", schema, defaults)
		if err != nil {
			return nil, err
		}

		written = append(written, files...)
	}

	return written, nil
}

func writeConfigPair(dir, name, schema string, sample any) ([]string, error) {
	schemaPath := filepath.Join(dir, name+".json")
	samplePath := filepath.Join(dir, name+".yaml")

	if err := os.WriteFile(schemaPath, []byte(schema), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write schema to file: %w", err)
	}

	written := []string{schemaPath}

	if _, err := os.Stat(samplePath); err == nil {
		return written, nil
	}

	yamlBytes, err := yaml.Marshal(sample)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sample config to yaml: %w", err)
	}

	yamlBytes = append([]byte("# yaml-language-server: $schema="+name+".json\n"), yamlBytes...)

	if err := os.WriteFile(samplePath, yamlBytes, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write sample config to file: %w", err)
	}

	return append(written, samplePath), nil
}

// writeCandles generates synthetic candles and exports them to output.
func writeCandles(output string, seed int64, config mocks.GeneratorConfig) (string, error) {
	writer, err := datasource.NewDuckDBWriter(output, logger.NewNopLogger())
	if err != nil {
		return "", err
	}

	defer writer.Close()

	if err := writer.Initialize(); err != nil {
		return "", err
	}

	for _, candle := range mocks.NewCandleGenerator(seed).Generate(config) {
		if err := writer.Write(candle); err != nil {
			return "", err
		}
	}

	return writer.Finalize()
}

func newCommand() *cli.Command {
	defaults := mocks.DefaultConfig()

	return &cli.Command{
		Name:  "generate",
		Usage: "Generate config schemas, sample configs and synthetic candles",
		Commands: []*cli.Command{
			{
				Name:  "config",
				Usage: "Write JSON schemas and sample YAML configs for the engine and the strategies",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Directory receiving the files",
						Value:   "./config",
					},
				},
				Action: func(_ context.Context, cmd *cli.Command) error {
					files, err := writeConfigFiles(cmd.String("output"))
					if err != nil {
						return err
					}

					for _, file := range files {
						log.Printf("Generated %s", file)
					}

					return nil
				},
			},
			{
				Name:  "candles",
				Usage: "Write a synthetic candle file (`.parquet` or `.csv`)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output file", Required: true},
					&cli.IntFlag{Name: "count", Aliases: []string{"n"}, Usage: "Number of candles", Value: int64(defaults.Count)},
					&cli.IntFlag{Name: "seed", Usage: "Random seed", Value: 42},
					&cli.FloatFlag{Name: "price", Usage: "Open of the first candle", Value: defaults.InitialPrice},
					&cli.FloatFlag{Name: "volatility", Usage: "Relative price move per candle", Value: defaults.Volatility},
					&cli.FloatFlag{Name: "trend", Usage: "Total drift over the series", Value: defaults.Trend},
					&cli.FloatFlag{Name: "bid-spread", Usage: "Bid distance below the close, zero for no bid column values", Value: 0},
					&cli.DurationFlag{Name: "interval", Usage: "Time between candles", Value: defaults.Interval},
					&cli.TimestampFlag{
						Name:   "start",
						Usage:  "Time of the first candle",
						Value:  defaults.StartTime,
						Config: cli.TimestampConfig{Timezone: time.UTC, Layouts: []string{time.RFC3339, "2006-01-02"}},
					},
				},
				Action: func(_ context.Context, cmd *cli.Command) error {
					config := defaults
					config.Count = int(cmd.Int("count"))
					config.InitialPrice = cmd.Float("price")
					config.Volatility = cmd.Float("volatility")
					config.Trend = cmd.Float("trend")
					config.BidSpread = cmd.Float("bid-spread")
					config.Interval = cmd.Duration("interval")
					config.StartTime = cmd.Timestamp("start")

					output, err := writeCandles(cmd.String("output"), cmd.Int("seed"), config)
					if err != nil {
						return err
					}

					log.Printf("Generated %d candles at %s", config.Count, output)

					return nil
				},
			},
		},
	}
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
