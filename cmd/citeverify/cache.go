// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/citeverify/internal/cache"
	"github.com/pdiddy/citeverify/pkg/types"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the registry response cache",
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove expired cache entries",
	Long: `Purge deletes cache entries whose 30-day lifetime has passed. With --all
it empties the cache. Redis expires entries on its own, so without --all
purge has nothing to do there.`,
	RunE: runCachePurge,
}

func init() {
	cachePurgeCmd.Flags().Bool("all", false, "remove every entry, not only expired ones")
	cachePurgeCmd.Flags().String("cache", "", "cache backend: sqlite, memory, or redis (default from config)")

	cacheCmd.AddCommand(cachePurgeCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCachePurge(cmd *cobra.Command, args []string) error {
	all, _ := cmd.Flags().GetBool("all")
	cfg := appConfig.Cache
	if backend, _ := cmd.Flags().GetString("cache"); backend != "" {
		cfg.Backend = types.CacheBackend(backend)
	}

	ctx := cmdContext(cmd)
	c, closeCache, err := cache.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening %s cache: %w", cfg.Backend, err)
	}
	defer func() {
		if err := closeCache(); err != nil {
			logger.Warn("closing cache", zap.Error(err))
		}
	}()

	p, ok := c.(cache.Purger)
	if !ok {
		return fmt.Errorf("cache backend %q does not support purge", cfg.Backend)
	}
	n, err := p.Purge(ctx, all)
	if err != nil {
		return fmt.Errorf("purging cache: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Purged %d cache entries (%s)\n", n, cfg.Backend)
	return nil
}
