package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/lyndonlyu/tokenscope/internal/cache"
	"github.com/lyndonlyu/tokenscope/internal/config"
	"github.com/spf13/cobra"
)

var (
	pruneDryRun     bool
	pruneMaxAge     int
	pruneMaxEntries int
	cacheDirFlag    string
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and clean the repository cache",
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached repositories",
	Args:  cobra.NoArgs,
	RunE:  listCache,
}

var cachePathCmd = &cobra.Command{
	Use:   "path <repository>",
	Short: "Print the cache location for a repository",
	Args:  cobra.ExactArgs(1),
	RunE:  showCachePath,
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove old cached repositories",
	Long:  "Remove cached repositories unused for longer than --max-age days or beyond the --max-entries most recently used.",
	Args:  cobra.NoArgs,
	RunE:  pruneCache,
}

func init() {
	cacheCmd.PersistentFlags().StringVar(&cacheDirFlag, "cache-dir", "", "Cache directory (default from config)")
	cachePruneCmd.Flags().BoolVar(&pruneDryRun, "dry-run", false, "Show what would be deleted without deleting")
	cachePruneCmd.Flags().IntVar(&pruneMaxAge, "max-age", 0, "Delete entries unused for N days (default from config)")
	cachePruneCmd.Flags().IntVar(&pruneMaxEntries, "max-entries", 0, "Keep at most N entries (default from config)")

	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cachePathCmd)
	cacheCmd.AddCommand(cachePruneCmd)
}

func cacheStore() (*cache.Store, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if cacheDirFlag != "" {
		cfg.Cache.Dir = cacheDirFlag
	}
	return cache.NewStore(cfg.Cache.Dir), cfg, nil
}

func listCache(cmd *cobra.Command, args []string) error {
	store, _, err := cacheStore()
	if err != nil {
		return err
	}
	entries, err := store.List()
	if err != nil {
		return fmt.Errorf("list cache: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, styleDim.Render("[cache] No cached repositories in "+store.Dir))
		return nil
	}

	fmt.Fprintln(out, styleBanner.Render(fmt.Sprintf("%-18s %10s  %s", "KEY", "SIZE", "LAST USED")))
	fmt.Fprintln(out, strings.Repeat("-", 45))
	var total uint64
	for _, e := range entries {
		fmt.Fprintf(out, "%-18s %10s  %s\n", e.Key, humanize.Bytes(uint64(e.Size)), humanize.Time(e.ModTime))
		total += uint64(e.Size)
	}
	fmt.Fprintf(out, "\n%d entries, %s in %s\n", len(entries), humanize.Bytes(total), store.Dir)
	return nil
}

func showCachePath(cmd *cobra.Command, args []string) error {
	store, _, err := cacheStore()
	if err != nil {
		return err
	}
	key := cache.Digest(args[0])
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, store.Path(key))
	if !store.Exists(key) {
		fmt.Fprintln(cmd.ErrOrStderr(), styleDim.Render("[cache] not cached yet"))
	}
	return nil
}

func pruneCache(cmd *cobra.Command, args []string) error {
	store, cfg, err := cacheStore()
	if err != nil {
		return err
	}

	policy := cache.Policy{
		MaxAgeDays: cfg.Cache.MaxAgeDays,
		MaxEntries: cfg.Cache.MaxEntries,
		DryRun:     pruneDryRun,
	}
	if cmd.Flags().Changed("max-age") {
		policy.MaxAgeDays = pruneMaxAge
	}
	if cmd.Flags().Changed("max-entries") {
		policy.MaxEntries = pruneMaxEntries
	}

	out := cmd.OutOrStdout()
	if pruneDryRun {
		fmt.Fprintln(out, styleWarn.Render("[cache] Dry run mode: no files will be deleted"))
	}

	result, err := store.Prune(policy)
	if err != nil {
		return fmt.Errorf("cache prune failed: %w", err)
	}

	for _, key := range result.Removed {
		fmt.Fprintf(out, "[cache] Removed %s\n", key)
	}
	if result.BytesFreed > 0 {
		fmt.Fprintln(out, styleSuccess.Render("[cache] Freed "+humanize.Bytes(uint64(result.BytesFreed))))
	}
	if len(result.Removed) == 0 {
		fmt.Fprintln(out, styleDim.Render("[cache] Nothing to clean up"))
	}
	return nil
}
