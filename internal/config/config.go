package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	defaultTokenizer = "cl100k_base"
	defaultFormat    = "human"
	defaultTopFiles  = 10
	defaultMemoSize  = 4096
	defaultMaxAge    = 30
	defaultMaxCached = 50
)

type CacheConfig struct {
	Dir        string `yaml:"dir"`
	MaxAgeDays int    `yaml:"max_age_days"`
	MaxEntries int    `yaml:"max_entries"`
}

type Config struct {
	Tokenizer string      `yaml:"tokenizer"`
	Format    string      `yaml:"format"`
	TopFiles  int         `yaml:"top_files"`
	MemoSize  int         `yaml:"memo_size"`
	Cache     CacheConfig `yaml:"cache"`
	BaseDir   string      `yaml:"-"`
}

func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Tokenizer: defaultTokenizer,
		Format:    defaultFormat,
		TopFiles:  defaultTopFiles,
		MemoSize:  defaultMemoSize,
		Cache: CacheConfig{
			Dir:        filepath.Join(home, ".llm_analyzer_cache"),
			MaxAgeDays: defaultMaxAge,
			MaxEntries: defaultMaxCached,
		},
		BaseDir: filepath.Join(home, ".tokenscope"),
	}
}

// DefaultPath is where Load looks when no --config flag is given.
func DefaultPath() string {
	return filepath.Join(Default().BaseDir, "config.yaml")
}

func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	// Ensure defaults for zero values
	def := Default()
	if cfg.Tokenizer == "" {
		cfg.Tokenizer = def.Tokenizer
	}
	if cfg.Format == "" {
		cfg.Format = def.Format
	}
	if cfg.TopFiles <= 0 {
		cfg.TopFiles = def.TopFiles
	}
	if cfg.MemoSize <= 0 {
		cfg.MemoSize = def.MemoSize
	}
	if cfg.Cache.Dir == "" {
		cfg.Cache.Dir = def.Cache.Dir
	}
	if cfg.Cache.MaxAgeDays == 0 {
		cfg.Cache.MaxAgeDays = def.Cache.MaxAgeDays
	}
	if cfg.Cache.MaxEntries == 0 {
		cfg.Cache.MaxEntries = def.Cache.MaxEntries
	}
	cfg.Cache.Dir = expandHome(cfg.Cache.Dir)

	return cfg, nil
}

// expandHome replaces a leading "~/" with the user's home directory.
func expandHome(path string) string {
	if len(path) < 2 || path[:2] != "~/" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
