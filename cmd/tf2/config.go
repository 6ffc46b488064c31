package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/go-digitaltwin/tf2"
)

const (
	configFileName = "tf2"
	configFileType = "yaml"
	envPrefix      = "TF2"

	cfgKeyDynamicTopic     = "dynamic_topic"
	cfgKeyStaticTopic      = "static_topic"
	cfgKeyCacheTime        = "cache_time"
	cfgKeyAuthority        = "authority"
	cfgKeyLogLevel         = "log_level"
	cfgKeyStaticTransforms = "static_transforms"

	defaultDynamicTopic = "mem://tf"
	defaultStaticTopic  = "mem://tf_static"
)

// config is the configuration shared by every command.
type config struct {
	DynamicTopic string
	StaticTopic  string
	CacheTime    time.Duration
	Authority    string
	LogLevel     slog.Level
}

// bindFlags registers the persistent flags of the root command and binds each
// of them to its configuration key.
func bindFlags(root *cobra.Command, v *viper.Viper) {
	flags := root.PersistentFlags()
	flags.String("dynamic-topic", defaultDynamicTopic, "pubsub URL of the dynamic transform stream")
	flags.String("static-topic", defaultStaticTopic, "pubsub URL of the static transform stream")
	flags.Duration("cache-time", tf2.DefaultCacheTime, "how long dynamic transforms are retained")
	flags.String("authority", "", "name recorded as the publisher of transforms (default: tf2-<random>)")
	flags.String("log-level", "info", "one of debug, info, warn, error")

	for key, flag := range map[string]string{
		cfgKeyDynamicTopic: "dynamic-topic",
		cfgKeyStaticTopic:  "static-topic",
		cfgKeyCacheTime:    "cache-time",
		cfgKeyAuthority:    "authority",
		cfgKeyLogLevel:     "log-level",
	} {
		// Lookup cannot fail: the flags were defined right above.
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}
}

// loadConfig reads the configuration file, if any, and resolves the
// configuration with the following precedence: flags > environment > file >
// defaults. A missing configuration file is not an error unless it was named
// explicitly.
func loadConfig(v *viper.Viper, file string) (config, error) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(configFileName)
		v.SetConfigType(configFileType)
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/tf2")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return config{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := config{
		DynamicTopic: v.GetString(cfgKeyDynamicTopic),
		StaticTopic:  v.GetString(cfgKeyStaticTopic),
		CacheTime:    v.GetDuration(cfgKeyCacheTime),
		Authority:    v.GetString(cfgKeyAuthority),
	}
	if cfg.Authority == "" {
		cfg.Authority = defaultAuthority()
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(v.GetString(cfgKeyLogLevel))); err != nil {
		return config{}, fmt.Errorf("%s: %w", cfgKeyLogLevel, err)
	}
	return cfg, nil
}

// defaultAuthority names this process uniquely among the publishers of a
// stream.
func defaultAuthority() string {
	return "tf2-" + uuid.NewString()[:8]
}
