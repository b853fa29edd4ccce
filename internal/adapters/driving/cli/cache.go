package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lectern-labs/lectern-cli/internal/adapters/driven/config/file"
	"github.com/lectern-labs/lectern-cli/internal/adapters/driven/storage/sqlite"
)

var (
	cacheClearProcessed bool
	cacheExpireDays     int
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the score cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache record counts and size",
	RunE:  runCacheStats,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete cached scores",
	Long: `Deletes all cached similarity and rating scores. Delivery history is
kept unless --processed is given, so cleared articles are re-scored but
not re-delivered.`,
	RunE: runCacheClear,
}

var cacheExpireCmd = &cobra.Command{
	Use:   "expire",
	Short: "Delete cache records older than the retention window",
	RunE:  runCacheExpire,
}

func init() {
	cacheClearCmd.Flags().BoolVar(&cacheClearProcessed, "processed", false, "also forget delivery history")
	cacheExpireCmd.Flags().IntVar(&cacheExpireDays, "days", 0, "retention in days (default from config)")

	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheExpireCmd)
	rootCmd.AddCommand(cacheCmd)
}

// openStore loads settings and opens the score cache they point at.
func openStore() (*sqlite.Store, *file.Settings, error) {
	settings, err := file.LoadSettings(configPath)
	if err != nil {
		return nil, nil, err
	}
	store, err := sqlite.NewStore(settings.Cache.Dir)
	if err != nil {
		return nil, nil, fmt.Errorf("opening score cache: %w", err)
	}
	return store, settings, nil
}

func runCacheStats(cmd *cobra.Command, _ []string) error {
	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	stats, err := store.Stats(context.Background())
	if err != nil {
		return fmt.Errorf("reading cache stats: %w", err)
	}

	cmd.Printf("Cache: %s\n", store.Path())
	cmd.Printf("  Similarity scores: %d\n", stats.SimilarityCount)
	cmd.Printf("  Rating scores:     %d\n", stats.RatingCount)
	cmd.Printf("  Processed articles: %d\n", stats.ProcessedCount)
	cmd.Printf("  Size: %.1f MiB\n", float64(stats.SizeBytes)/(1<<20))
	return nil
}

func runCacheClear(cmd *cobra.Command, _ []string) error {
	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Clear(context.Background(), cacheClearProcessed); err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}

	if cacheClearProcessed {
		cmd.Println("Cleared cached scores and delivery history.")
	} else {
		cmd.Println("Cleared cached scores.")
	}
	return nil
}

func runCacheExpire(cmd *cobra.Command, _ []string) error {
	store, settings, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ttl := settings.CacheTTL()
	if cacheExpireDays > 0 {
		ttl = time.Duration(cacheExpireDays) * 24 * time.Hour
	}
	if ttl <= 0 {
		cmd.Println("Cache expiry is disabled.")
		return nil
	}

	removed, err := store.Expire(context.Background(), ttl)
	if err != nil {
		return fmt.Errorf("expiring cache: %w", err)
	}

	cmd.Printf("Expired %d records older than %s.\n", removed, ttl)
	return nil
}
