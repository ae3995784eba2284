package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/dailyyoga/cachedkv/cache"
	"github.com/dailyyoga/cachedkv/logger"
	"github.com/dailyyoga/cachedkv/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Measure set and get throughput",
	Long: `Measure set and get throughput.

Writes n structured values, reads them back, then waits for the sync
engine to replay every write to the durable store.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		n, _ := cmd.Flags().GetInt("n")
		showMetrics, _ := cmd.Flags().GetBool("metrics")
		if n <= 0 {
			return fmt.Errorf("n must be positive, got %d", n)
		}
		return withCache(cmd, func(ctx context.Context, log logger.Logger, c cache.CachedStore) error {
			return runBench(ctx, log, c, n, showMetrics)
		})
	},
}

func init() {
	benchCmd.Flags().Int("n", 1000, "Number of keys to write and read")
	benchCmd.Flags().Bool("metrics", false, "Print sync engine metrics when done")
}

type benchValue struct {
	Name    string   `msgpack:"name" yaml:"name"`
	ID      string   `msgpack:"id" yaml:"id"`
	Likes   []string `msgpack:"likes" yaml:"likes"`
	Friends []string `msgpack:"friends" yaml:"friends"`
}

func runBench(ctx context.Context, log logger.Logger, c cache.CachedStore, n int, showMetrics bool) error {
	var failures atomic.Int64
	id := c.On(cache.TargetDB, store.EventError, func(ev store.Event) {
		failures.Add(1)
		log.Warn("durable write failed", zap.String("key", ev.Key), zap.Error(ev.Err))
	})
	defer c.Off(cache.TargetDB, store.EventError, id)

	value := benchValue{
		Name:    "Panda",
		ID:      "12345",
		Likes:   []string{"bamboo", "sleeping", "climbing"},
		Friends: []string{"Po", "Tigress", "Shifu"},
	}

	start := time.Now()
	for i := 0; i < n; i++ {
		if err := c.Set(ctx, strconv.Itoa(i), value, 0); err != nil {
			return err
		}
	}
	report("set", n, time.Since(start))

	start = time.Now()
	for i := 0; i < n; i++ {
		if _, ok, err := c.Get(ctx, strconv.Itoa(i)); err != nil {
			return err
		} else if !ok {
			return fmt.Errorf("%w: %d", errKeyNotFound, i)
		}
	}
	report("get", n, time.Since(start))

	start = time.Now()
	pending := c.Pending()
	for c.Pending() > 0 {
		if c.Sync(ctx) == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(10 * time.Millisecond):
			}
		}
	}
	report("sync", pending, time.Since(start))

	if showMetrics {
		c.WriteMetrics(os.Stdout)
	}
	if f := failures.Load(); f > 0 {
		return fmt.Errorf("%d durable writes failed", f)
	}
	return nil
}

func report(op string, n int, d time.Duration) {
	rate := 0.0
	if d > 0 {
		rate = float64(n) / d.Seconds()
	}
	fmt.Printf("%-5s %7d ops in %-12s %10.0f ops/s\n", op, n, d.Round(time.Microsecond), rate)
}
