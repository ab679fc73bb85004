package main

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/lyndonlyu/tokenscope/internal/cache"
	"github.com/lyndonlyu/tokenscope/internal/classify"
	"github.com/lyndonlyu/tokenscope/internal/config"
	"github.com/lyndonlyu/tokenscope/internal/fetch"
	"github.com/lyndonlyu/tokenscope/internal/report"
	"github.com/lyndonlyu/tokenscope/internal/scan"
	"github.com/lyndonlyu/tokenscope/internal/tokens"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	flagIncludeReadmeLicense bool
	flagIncludeGitFiles      bool
	flagPath                 string
	flagCache                bool
	flagCacheDir             string
	flagMatch                string
	flagFormat               string
	flagTop                  int
	flagConfig               string
	flagVerbose              bool
)

func init() {
	f := rootCmd.Flags()
	f.BoolVar(&flagIncludeReadmeLicense, "include-readme-license", false, "Include README and LICENSE files without extensions in the analysis")
	f.BoolVar(&flagIncludeGitFiles, "include-git-files", false, "Include files under the .git folder in the analysis")
	f.StringVar(&flagPath, "path", "", "Only analyze files under this path within the repository")
	f.BoolVar(&flagCache, "cache", false, "Reuse and keep fetched repositories in the local cache")
	f.StringVar(&flagCacheDir, "cache-dir", "", "Directory to store cached repositories (default ~/.llm_analyzer_cache)")
	f.StringVar(&flagMatch, "match", "", "Regular expression searched in each file's repository-relative path (e.g. src/app.py), replacing the default rules; ^README matches only at the root")
	f.StringVar(&flagFormat, "format", "", "Output format: human, json or markdown")
	f.IntVar(&flagTop, "top", 0, "Number of largest files to list (default 10)")

	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default ~/.tokenscope/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Log every processed and skipped file")
}

// analyzeParams is one fully configured run.
type analyzeParams struct {
	Locator  string
	UseCache bool
	Scan     scan.Options
	Pattern  string
	Format   string
	TopN     int
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyFlags(cmd, cfg)
	logger := newLogger(cmd.ErrOrStderr(), flagVerbose)

	params := analyzeParams{
		Locator:  args[0],
		UseCache: flagCache,
		Scan: scan.Options{
			IncludeReadmeLicense: flagIncludeReadmeLicense,
			IncludeGit:           flagIncludeGitFiles,
			Subpath:              flagPath,
		},
		Format: cfg.Format,
		TopN:   cfg.TopFiles,
	}
	if err := validateFormat(params.Format); err != nil {
		return err
	}

	// A bad pattern is fatal before anything is fetched.
	if flagMatch != "" {
		p, err := classify.CompilePattern(flagMatch)
		if err != nil {
			return err
		}
		params.Scan.Pattern = p
		params.Pattern = flagMatch
	}

	counter, err := newCounter(cfg)
	if err != nil {
		return err
	}

	resolver := cache.NewResolver(fetch.Git{}, newStore(cfg.Cache.Dir), logger)
	return analyze(cmd.Context(), params, resolver, counter, cmd.OutOrStdout(), logger)
}

// loadConfig reads --config, or the default config file when unset.
func loadConfig() (*config.Config, error) {
	path := flagConfig
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	return cfg, nil
}

// applyFlags lets explicitly set flags win over the config file.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("cache-dir") {
		cfg.Cache.Dir = flagCacheDir
	}
	if flags.Changed("format") {
		cfg.Format = flagFormat
	}
	if flags.Changed("top") && flagTop > 0 {
		cfg.TopFiles = flagTop
	}
}

// newStore returns nil for an empty dir, which leaves every run ephemeral.
func newStore(dir string) *cache.Store {
	if dir == "" {
		return nil
	}
	return cache.NewStore(dir)
}

func validateFormat(format string) error {
	switch format {
	case "human", "json", "markdown":
		return nil
	default:
		return fmt.Errorf("unknown format %q (want human, json or markdown)", format)
	}
}

func newCounter(cfg *config.Config) (tokens.Counter, error) {
	base, err := tokens.New(cfg.Tokenizer)
	if err != nil {
		return nil, err
	}
	return tokens.NewMemo(base, cfg.MemoSize)
}

// analyze resolves the repository, scans it and writes the report to w. An
// ephemeral checkout is removed on every path out of this function, including
// errors and an empty result.
func analyze(ctx context.Context, p analyzeParams, resolver *cache.Resolver, counter tokens.Counter, w io.Writer, logger zerolog.Logger) error {
	runID := uuid.New().String()
	logger = logger.With().Str("run", runID[:8]).Logger()

	logger.Info().Str("locator", p.Locator).Msg("Cloning or using cached repository")
	loc, err := resolver.Resolve(ctx, p.Locator, p.UseCache)
	if err != nil {
		return fmt.Errorf("fetch repository: %w", err)
	}
	defer func() {
		if !loc.Ephemeral {
			return
		}
		logger.Info().Msg("Cleaning up temporary files")
		if rerr := loc.Release(); rerr != nil {
			logger.Warn().Err(rerr).Msg("cleanup failed")
		}
	}()
	logger.Info().Str("path", loc.Path).Bool("cache_hit", loc.CacheHit).Msg("Repository ready for analysis")

	res, err := scan.New(counter, logger).Scan(ctx, loc.Path, p.Scan)
	if err != nil {
		return fmt.Errorf("scan repository: %w", err)
	}
	if n := len(res.Failed()); n > 0 {
		logger.Warn().Int("files", n).Msg("Some files could not be read and were left out")
	}

	rep := report.Build(report.Meta{
		RunID:    runID,
		Locator:  p.Locator,
		RepoPath: loc.Path,
		Subpath:  p.Scan.Subpath,
		Pattern:  p.Pattern,
		CacheHit: loc.CacheHit,
	}, res, p.TopN)

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("analysis interrupted: %w", err)
	}
	if err := writeReport(w, rep, p.Format); err != nil {
		return err
	}
	if rep.Empty() {
		return errNothingToReport
	}
	return nil
}

func writeReport(w io.Writer, rep *report.Report, format string) error {
	var out string
	switch format {
	case "json":
		s, err := report.FormatJSON(rep)
		if err != nil {
			return fmt.Errorf("format error: %w", err)
		}
		out = s
	case "markdown":
		out = renderMarkdown(report.FormatMarkdown(rep))
	default:
		out = report.FormatHuman(rep)
	}
	_, err := io.WriteString(w, out)
	return err
}
