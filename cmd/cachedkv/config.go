package main

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/dailyyoga/cachedkv/cache"
	"github.com/dailyyoga/cachedkv/logger"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/xhit/go-str2duration/v2"
)

// closeTimeout bounds the final flush when a command exits
const closeTimeout = 30 * time.Second

// flagKeys maps persistent flags to their config keys
var flagKeys = map[string]string{
	"db":            "db.uri",
	"cache-ttl":     "cache.ttl",
	"sync-interval": "sync.interval",
	"log-level":     "log.level",
}

// fileConfig is the layout of the config file and environment
type fileConfig struct {
	cache.Config `mapstructure:",squash"`
	Log          logger.Config `mapstructure:"log"`
}

// initConfig loads .env files and enables CACHEDKV_* environment overrides
func initConfig() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	viper.SetEnvPrefix("cachedkv")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
}

// loadConfig binds the command's flags and decodes the merged configuration.
// Precedence is flag, environment, config file, default.
func loadConfig(cmd *cobra.Command) (*fileConfig, error) {
	for flag, key := range flagKeys {
		if f := cmd.Flags().Lookup(flag); f != nil {
			if err := viper.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", flag, err)
			}
		}
	}

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	fc := &fileConfig{Config: *cache.DefaultConfig()}
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		durationHook(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := viper.Unmarshal(fc, hook); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	fc.Config.MergeDefaults()
	return fc, nil
}

// durationHook decodes durations with day and week units, and treats an
// empty string as zero
func durationHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.String || to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		return parseDuration(data.(string))
	}
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := str2duration.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return d, nil
}

// withCache opens the cached store described by the configuration, runs fn
// and flushes pending writes before returning
func withCache(cmd *cobra.Command, fn func(ctx context.Context, log logger.Logger, c cache.CachedStore) error) (err error) {
	fc, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log, err := logger.New(&fc.Log)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	c, err := cache.New(log, &fc.Config)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		if cerr := c.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return fn(cmd.Context(), log, c)
}
