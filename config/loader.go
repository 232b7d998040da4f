package config

import (
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/saiset-co/sai-registry/types"
)

type Loader struct {
	validator *validator.Validate
}

func NewLoader() *Loader {
	return &Loader{
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (l *Loader) LoadFromFile(configPath string) (*types.ServiceConfig, error) {
	if configPath == "" {
		return nil, types.ErrConfigNotFound
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, types.WrapError(err, "failed to read config file")
	}

	config := l.Defaults()

	expanded := expandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), config); err != nil {
		return nil, types.WrapError(err, "failed to parse YAML config")
	}

	if err := l.validator.Struct(config); err != nil {
		return nil, types.WrapError(err, "config validation failed")
	}

	return config, nil
}

func (l *Loader) Defaults() *types.ServiceConfig {
	return &types.ServiceConfig{
		Server: &types.ServerConfig{
			HTTP: &types.HTTPConfig{
				Host:            "localhost",
				Port:            8080,
				ReadTimeout:     30,
				WriteTimeout:    30,
				IdleTimeout:     120,
				ShutdownTimeout: 5,
			},
		},
		Logger: &types.LoggerConfig{
			Type:  "default",
			Level: "debug",
		},
		Cache: &types.CacheConfig{
			Enabled:    true,
			Type:       "memory",
			DefaultTTL: 5 * time.Minute,
		},
		Store: &types.StoreConfig{
			Enabled: true,
			Type:    "memory",
		},
		Cron: &types.CronConfig{
			Enabled:  false,
			Timezone: "UTC",
		},
		Metrics: &types.MetricsConfig{
			Enabled: false,
			Type:    "prometheus",
			Path:    "/metrics",
		},
		Middlewares: &types.MiddlewaresConfig{
			Enabled: true,
			Recovery: &types.MiddlewareItemConfig{
				Enabled: true,
				Weight:  10,
				Params: map[string]interface{}{
					"stack_trace": true,
				},
			},
			Logging: &types.MiddlewareItemConfig{
				Enabled: true,
				Weight:  20,
				Params: map[string]interface{}{
					"log_level": "info",
					"log_body":  false,
				},
			},
			Compression: &types.MiddlewareItemConfig{
				Enabled: true,
				Weight:  30,
			},
			Cache: &types.MiddlewareItemConfig{
				Enabled: true,
				Weight:  40,
			},
		},
	}
}

// expandEnv substitutes ${VAR} and ${VAR:default} references before the YAML
// is parsed, so secrets never need to live in the file itself.
func expandEnv(s string) string {
	return os.Expand(s, func(name string) string {
		name, fallback, hasFallback := strings.Cut(name, ":")
		if value, exists := os.LookupEnv(name); exists {
			return value
		}
		if hasFallback {
			return fallback
		}
		return ""
	})
}
