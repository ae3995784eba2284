package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dailyyoga/cachedkv/cache"
	"github.com/dailyyoga/cachedkv/logger"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var errKeyNotFound = errors.New("key not found")

var (
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Print the value stored under a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(cmd, func(ctx context.Context, _ logger.Logger, c cache.CachedStore) error {
				v, ok, err := c.Get(ctx, args[0])
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("%w: %s", errKeyNotFound, args[0])
				}
				out, err := formatValue(v)
				if err != nil {
					return err
				}
				fmt.Fprint(os.Stdout, out)
				return nil
			})
		},
	}

	setCmd = &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Store a value under a key",
		Long: `Store a value under a key.

The value is parsed as YAML, so numbers, booleans, lists and maps keep
their type. Anything that does not parse is stored as a plain string.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ttlFlag, _ := cmd.Flags().GetString("ttl")
			ttl, err := parseDuration(ttlFlag)
			if err != nil {
				return err
			}
			return withCache(cmd, func(ctx context.Context, _ logger.Logger, c cache.CachedStore) error {
				return c.Set(ctx, args[0], parseValue(args[1]), ttl)
			})
		},
	}

	deleteCmd = &cobra.Command{
		Use:     "delete [key]",
		Aliases: []string{"del"},
		Short:   "Delete a key",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(cmd, func(ctx context.Context, _ logger.Logger, c cache.CachedStore) error {
				return c.Delete(ctx, args[0])
			})
		},
	}

	clearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Remove every key from the cache and the durable store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(cmd, func(ctx context.Context, _ logger.Logger, c cache.CachedStore) error {
				return c.Clear(ctx)
			})
		},
	}
)

func init() {
	setCmd.Flags().String("ttl", "", "Lifetime of the entry, e.g. 90s, 12h, 7d (empty: cache default)")
}

// parseValue decodes a command line value as YAML, falling back to the raw string
func parseValue(s string) any {
	var v any
	if err := yaml.Unmarshal([]byte(s), &v); err != nil || v == nil {
		return s
	}
	return v
}

// formatValue renders a value as YAML
func formatValue(v any) (string, error) {
	out, err := yaml.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("format value: %w", err)
	}
	return string(out), nil
}
