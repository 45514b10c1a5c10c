package strategy

import (
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/rxtech-lab/argo-backtest/pkg/utils"
	"gopkg.in/yaml.v3"
)

type definition struct {
	// defaults returns the config used for keys missing from the YAML
	defaults func() any
	build    func(content string) (engine.Strategy, error)
}

var definitions = map[string]definition{
	SMACrossoverName: {
		defaults: func() any { return DefaultSMACrossoverConfig() },
		build: func(content string) (engine.Strategy, error) {
			config, err := loadConfig(content, DefaultSMACrossoverConfig())
			if err != nil {
				return nil, err
			}

			return NewSMACrossover(config)
		},
	},
	BreakoutName: {
		defaults: func() any { return DefaultBreakoutConfig() },
		build: func(content string) (engine.Strategy, error) {
			config, err := loadConfig(content, DefaultBreakoutConfig())
			if err != nil {
				return nil, err
			}

			return NewBreakout(config)
		},
	},
}

// Names lists the built-in strategies in alphabetical order.
func Names() []string {
	names := make([]string, 0, len(definitions))
	for name := range definitions {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

// New builds the named strategy from a YAML config. An empty config uses the defaults.
func New(name string, config string) (engine.Strategy, error) {
	def, ok := definitions[name]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "unknown strategy %q, expected one of %s", name, strings.Join(Names(), ", "))
	}

	return def.build(config)
}

// DefaultConfig returns the config the named strategy uses when built from an empty YAML.
func DefaultConfig(name string) (any, error) {
	def, ok := definitions[name]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "unknown strategy %q", name)
	}

	return def.defaults(), nil
}

// ConfigSchema returns the JSON schema of the named strategy's config.
func ConfigSchema(name string) (string, error) {
	config, err := DefaultConfig(name)
	if err != nil {
		return "", err
	}

	return utils.GetSchemaFromConfig(config)
}

func loadConfig[T any](content string, config T) (T, error) {
	if strings.TrimSpace(content) != "" {
		if err := yaml.Unmarshal([]byte(content), &config); err != nil {
			return config, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse strategy config", err)
		}
	}

	if err := validateConfig(config); err != nil {
		return config, err
	}

	return config, nil
}

func validateConfig(config any) error {
	if err := validator.New().Struct(config); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid strategy config", err)
	}

	return nil
}
