package engine

import (
	"encoding/json"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/internal/version"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"gopkg.in/yaml.v3"
)

type BacktestEngineV1Config struct {
	InitialBalance  float64                    `yaml:"initial_balance" json:"initial_balance" jsonschema:"title=Initial Balance,description=Starting wallet balance of the backtest,minimum=0,required" validate:"gt=0"`
	TieBreak        types.TieBreakPolicy       `yaml:"tie_break" json:"tie_break" jsonschema:"title=Tie Break,description=Exit used when take profit and stop loss are both reached in one candle,enum=take_profit,enum=stop_loss,default=take_profit" validate:"omitempty,oneof=take_profit stop_loss"`
	StartTime       optional.Option[time.Time] `yaml:"start_time" json:"start_time" jsonschema:"title=Start Time,description=Optional start time for the backtest period"`
	EndTime         optional.Option[time.Time] `yaml:"end_time" json:"end_time" jsonschema:"title=End Time,description=Optional end time for the backtest period"`
	Symbol          string                     `yaml:"symbol" json:"symbol" jsonschema:"title=Symbol,description=Instrument label written to the results"`
	LogLevel        string                     `yaml:"log_level" json:"log_level" jsonschema:"title=Log Level,description=Engine log level,enum=debug,enum=info,enum=warn,enum=error,default=info" validate:"omitempty,oneof=debug info warn error"`
	// RequiredVersion pins the config to compatible builds, e.g. "~1.2".
	RequiredVersion string                     `yaml:"required_version" json:"required_version" jsonschema:"title=Required Version,description=Semver constraint the running build must satisfy"`
}

// UnmarshalYAML implements custom unmarshaling for BacktestEngineV1Config
func (c *BacktestEngineV1Config) UnmarshalYAML(value *yaml.Node) error {
	type Config struct {
		InitialBalance  float64              `yaml:"initial_balance"`
		TieBreak        types.TieBreakPolicy `yaml:"tie_break"`
		StartTime       *time.Time           `yaml:"start_time"`
		EndTime         *time.Time           `yaml:"end_time"`
		Symbol          string               `yaml:"symbol"`
		LogLevel        string               `yaml:"log_level"`
		RequiredVersion string               `yaml:"required_version"`
	}

	var config Config
	if err := value.Decode(&config); err != nil {
		return err
	}

	*c = EmptyConfig()
	c.InitialBalance = config.InitialBalance
	c.Symbol = config.Symbol
	c.RequiredVersion = config.RequiredVersion

	if config.TieBreak != "" {
		c.TieBreak = config.TieBreak
	}

	if config.LogLevel != "" {
		c.LogLevel = config.LogLevel
	}

	if config.StartTime != nil {
		c.StartTime = optional.Some(*config.StartTime)
	}

	if config.EndTime != nil {
		c.EndTime = optional.Some(*config.EndTime)
	}

	return nil
}

// Validate checks the configuration values and the time range.
func (c *BacktestEngineV1Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid backtest config", err)
	}

	if c.StartTime.IsSome() && c.EndTime.IsSome() && c.EndTime.Unwrap().Before(c.StartTime.Unwrap()) {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "end time %s is before start time %s",
			c.EndTime.Unwrap().Format(time.RFC3339), c.StartTime.Unwrap().Format(time.RFC3339))
	}

	if err := version.CheckCompatibility(version.GetVersion(), c.RequiredVersion); err != nil {
		return err
	}

	return nil
}

// LoadConfig parses and validates a YAML configuration.
func LoadConfig(content string) (BacktestEngineV1Config, error) {
	var config BacktestEngineV1Config
	if err := yaml.Unmarshal([]byte(content), &config); err != nil {
		return BacktestEngineV1Config{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse backtest config", err)
	}

	if err := config.Validate(); err != nil {
		return BacktestEngineV1Config{}, err
	}

	return config, nil
}

// GenerateSchema generates a JSON schema for the BacktestEngineV1Config
func (c *BacktestEngineV1Config) GenerateSchema() (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t == reflect.TypeFor[optional.Option[time.Time]]() {
				return &jsonschema.Schema{
					Type:   "string",
					Format: "date-time",
				}
			}

			return nil
		},
	}

	schema := reflector.Reflect(c)

	schema.Title = "backtest-engine-v1-config"
	schema.Description = "Configuration schema for BacktestEngineV1"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema, nil
}

// GenerateSchemaJSON generates a JSON schema string for the BacktestEngineV1Config
func (c *BacktestEngineV1Config) GenerateSchemaJSON() (string, error) {
	schema, err := c.GenerateSchema()
	if err != nil {
		return "", err
	}

	schemaBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}

func TestConfig(startTime time.Time, endTime time.Time, tieBreak types.TieBreakPolicy) BacktestEngineV1Config {
	return BacktestEngineV1Config{
		InitialBalance:  10000,
		TieBreak:        tieBreak,
		StartTime:       optional.Some(startTime),
		EndTime:         optional.Some(endTime),
		Symbol:          "TEST",
		LogLevel:        "info",
		RequiredVersion: "",
	}
}

// EmptyConfig returns a BacktestEngineV1Config with default values
func EmptyConfig() BacktestEngineV1Config {
	return BacktestEngineV1Config{
		InitialBalance:  0,
		TieBreak:        types.TieBreakTakeProfit,
		StartTime:       optional.None[time.Time](),
		EndTime:         optional.None[time.Time](),
		Symbol:          "",
		LogLevel:        "info",
		RequiredVersion: "",
	}
}
