package config

import (
	stderrors "errors"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	maestroerrors "github.com/mrz1836/maestro/internal/errors"
)

// newViperInstance creates a Viper instance with standard maestro
// configuration: defaults, MAESTRO_ environment prefix, key replacer.
func newViperInstance() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("MAESTRO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// viperDecoderOption returns the decoder options for viper unmarshal.
// This configures mapstructure to convert duration strings like "30s".
func viperDecoderOption() viper.DecoderConfigOption {
	return viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
	)
}

// isConfigNotFoundError reports whether err is viper's missing-config
// error. Missing config files are expected and not an error.
func isConfigNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	var notFound viper.ConfigFileNotFoundError
	return stderrors.As(err, &notFound)
}

// Load reads configuration with the following precedence (highest
// first): environment variables (MAESTRO_*), the config file at path
// (when non-empty), built-in defaults.
//
// A missing config file is not an error; a malformed one is.
func Load(path string) (*Config, error) {
	v := newViperInstance()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil && !isConfigNotFoundError(err) {
			return nil, maestroerrors.Wrap(err, "failed to read config file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viperDecoderOption()); err != nil {
		return nil, maestroerrors.Wrap(err, "failed to unmarshal config")
	}

	if err := Validate(&cfg); err != nil {
		return nil, maestroerrors.Wrap(err, "invalid configuration")
	}

	return &cfg, nil
}
