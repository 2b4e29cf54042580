// Package config resolves newsrag settings from defaults, the YAML config
// file, environment variables and, in the CLI, flags, in that order of
// increasing priority.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pevans/newsrag/crawl"
	"github.com/pevans/newsrag/discovery"
	"github.com/pevans/newsrag/logger"
	"github.com/pevans/newsrag/ragexport"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every validation and parse failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the fully resolved configuration of one run.
type Config struct {
	Crawl        crawl.Config
	UserAgent    string
	FetchTimeout time.Duration
	OutputDir    string
	OutputFile   string
	HistoryDSN   string
	Log          logger.Config
}

// Default returns the bisnis.com configuration.
func Default() *Config {
	return &Config{
		Crawl:      crawl.DefaultConfig(),
		UserAgent:  discovery.DefaultUserAgent,
		OutputDir:  ragexport.DefaultDir,
		OutputFile: ragexport.DefaultFile,
		Log:        logger.Config{Level: logger.DefaultLevel, Format: logger.DefaultFormat},
	}
}

// OutputPath is where the export will be written.
func (c *Config) OutputPath() string {
	return filepath.Join(c.OutputDir, c.OutputFile)
}

// Validate checks the crawl settings and output location.
func (c *Config) Validate() error {
	if err := c.Crawl.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.OutputDir == "" {
		return fmt.Errorf("%w: output directory is empty", ErrInvalidConfig)
	}
	if c.OutputFile == "" {
		return fmt.Errorf("%w: output file name is empty", ErrInvalidConfig)
	}
	if c.FetchTimeout < 0 {
		return fmt.Errorf("%w: fetch timeout must not be negative", ErrInvalidConfig)
	}
	return nil
}

// FileConfig represents the structure of the YAML config file.
type FileConfig struct {
	Crawl struct {
		BaseURL          string         `yaml:"base_url,omitempty"`
		FirstPage        int            `yaml:"first_page,omitempty"`
		LastPage         int            `yaml:"last_page,omitempty"`
		Delay            *time.Duration `yaml:"delay,omitempty"`
		UserAgent        string         `yaml:"user_agent,omitempty"`
		FetchTimeout     time.Duration  `yaml:"fetch_timeout,omitempty"`
		FeedURL          string         `yaml:"feed_url,omitempty"`
		AbortOnPageError *bool          `yaml:"abort_on_page_error,omitempty"`
	} `yaml:"crawl"`
	Extract struct {
		Normalize           *bool    `yaml:"normalize,omitempty"`
		RetainMetadata      *bool    `yaml:"retain_metadata,omitempty"`
		Source              string   `yaml:"source,omitempty"`
		DefaultTag          string   `yaml:"default_tag,omitempty"`
		BoilerplatePrefixes []string `yaml:"boilerplate_prefixes,omitempty"`
	} `yaml:"extract"`
	Output struct {
		Dir  string `yaml:"dir,omitempty"`
		File string `yaml:"file,omitempty"`
	} `yaml:"output"`
	History struct {
		DSN string `yaml:"dsn,omitempty"`
	} `yaml:"history"`
	Log struct {
		Level  string `yaml:"level,omitempty"`
		Format string `yaml:"format,omitempty"`
	} `yaml:"log"`
}

// DefaultConfigPath returns ~/.newsrag/config.yaml.
func DefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".newsrag", "config.yaml"), nil
}

// LoadConfigFile loads the YAML config file. With an empty path it reads
// ~/.newsrag/config.yaml and returns nil if that file doesn't exist. An
// explicit path must exist.
func LoadConfigFile(path string) (*FileConfig, error) {
	explicit := path != ""
	if !explicit {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return nil, err
		}
		path = defaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return nil, nil // File doesn't exist -- not an error
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config file: %w", ErrInvalidConfig, err)
	}

	return &cfg, nil
}

// Load resolves defaults, the config file at path (see LoadConfigFile) and
// NEWSRAG_* environment variables, then validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	fileCfg, err := LoadConfigFile(path)
	if err != nil {
		return nil, err
	}
	if fileCfg != nil {
		cfg.applyFile(fileCfg)
	}

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyFile copies every value the file sets.
func (c *Config) applyFile(f *FileConfig) {
	if f.Crawl.BaseURL != "" {
		c.Crawl.BaseURL = f.Crawl.BaseURL
	}
	if f.Crawl.FirstPage != 0 {
		c.Crawl.FirstPage = f.Crawl.FirstPage
	}
	if f.Crawl.LastPage != 0 {
		c.Crawl.LastPage = f.Crawl.LastPage
	}
	if f.Crawl.Delay != nil {
		c.Crawl.Delay = *f.Crawl.Delay
	}
	if f.Crawl.UserAgent != "" {
		c.UserAgent = f.Crawl.UserAgent
	}
	if f.Crawl.FetchTimeout != 0 {
		c.FetchTimeout = f.Crawl.FetchTimeout
	}
	if f.Crawl.FeedURL != "" {
		c.Crawl.FeedURL = f.Crawl.FeedURL
	}
	if f.Crawl.AbortOnPageError != nil {
		c.Crawl.AbortOnPageError = *f.Crawl.AbortOnPageError
	}

	article := &c.Crawl.Scraper.ArticleConfig
	if f.Extract.Normalize != nil {
		article.Normalize = *f.Extract.Normalize
	}
	if f.Extract.RetainMetadata != nil {
		article.RetainMetadata = *f.Extract.RetainMetadata
	}
	if f.Extract.Source != "" {
		article.Source = f.Extract.Source
	}
	if f.Extract.DefaultTag != "" {
		article.DefaultTag = f.Extract.DefaultTag
	}
	if len(f.Extract.BoilerplatePrefixes) > 0 {
		article.BoilerplatePrefixes = f.Extract.BoilerplatePrefixes
	}

	if f.Output.Dir != "" {
		c.OutputDir = f.Output.Dir
	}
	if f.Output.File != "" {
		c.OutputFile = f.Output.File
	}
	if f.History.DSN != "" {
		c.HistoryDSN = f.History.DSN
	}
	if f.Log.Level != "" {
		c.Log.Level = f.Log.Level
	}
	if f.Log.Format != "" {
		c.Log.Format = f.Log.Format
	}
}

// applyEnv applies NEWSRAG_* variables. getenv is os.Getenv outside tests.
func (c *Config) applyEnv(getenv func(string) string) error {
	strs := map[string]*string{
		"NEWSRAG_BASE_URL":    &c.Crawl.BaseURL,
		"NEWSRAG_USER_AGENT":  &c.UserAgent,
		"NEWSRAG_FEED_URL":    &c.Crawl.FeedURL,
		"NEWSRAG_OUTPUT_DIR":  &c.OutputDir,
		"NEWSRAG_OUTPUT_FILE": &c.OutputFile,
		"NEWSRAG_HISTORY_DSN": &c.HistoryDSN,
		"NEWSRAG_LOG_LEVEL":   &c.Log.Level,
		"NEWSRAG_LOG_FORMAT":  &c.Log.Format,
	}
	for key, dst := range strs {
		if val := getenv(key); val != "" {
			*dst = val
		}
	}

	ints := map[string]*int{
		"NEWSRAG_FIRST_PAGE": &c.Crawl.FirstPage,
		"NEWSRAG_LAST_PAGE":  &c.Crawl.LastPage,
	}
	for key, dst := range ints {
		if val := getenv(key); val != "" {
			n, err := strconv.Atoi(val)
			if err != nil {
				return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, key, err)
			}
			*dst = n
		}
	}

	durations := map[string]*time.Duration{
		"NEWSRAG_DELAY":         &c.Crawl.Delay,
		"NEWSRAG_FETCH_TIMEOUT": &c.FetchTimeout,
	}
	for key, dst := range durations {
		if val := getenv(key); val != "" {
			d, err := time.ParseDuration(val)
			if err != nil {
				return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, key, err)
			}
			*dst = d
		}
	}

	article := &c.Crawl.Scraper.ArticleConfig
	bools := map[string]*bool{
		"NEWSRAG_NORMALIZE":           &article.Normalize,
		"NEWSRAG_RETAIN_METADATA":     &article.RetainMetadata,
		"NEWSRAG_ABORT_ON_PAGE_ERROR": &c.Crawl.AbortOnPageError,
	}
	for key, dst := range bools {
		if val := getenv(key); val != "" {
			b, err := strconv.ParseBool(val)
			if err != nil {
				return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, key, err)
			}
			*dst = b
		}
	}

	return nil
}

// ToFile renders a resolved config in file form.
func (c *Config) ToFile() *FileConfig {
	var f FileConfig
	article := c.Crawl.Scraper.ArticleConfig

	f.Crawl.BaseURL = c.Crawl.BaseURL
	f.Crawl.FirstPage = c.Crawl.FirstPage
	f.Crawl.LastPage = c.Crawl.LastPage
	delay := c.Crawl.Delay
	f.Crawl.Delay = &delay
	f.Crawl.UserAgent = c.UserAgent
	f.Crawl.FetchTimeout = c.FetchTimeout
	f.Crawl.FeedURL = c.Crawl.FeedURL
	abort := c.Crawl.AbortOnPageError
	f.Crawl.AbortOnPageError = &abort

	normalize, retain := article.Normalize, article.RetainMetadata
	f.Extract.Normalize = &normalize
	f.Extract.RetainMetadata = &retain
	f.Extract.Source = article.Source
	f.Extract.DefaultTag = article.DefaultTag
	f.Extract.BoilerplatePrefixes = article.BoilerplatePrefixes

	f.Output.Dir = c.OutputDir
	f.Output.File = c.OutputFile
	f.History.DSN = c.HistoryDSN
	f.Log.Level = c.Log.Level
	f.Log.Format = c.Log.Format

	return &f
}

// WriteDefaultConfigFile writes the default configuration to path, or to
// ~/.newsrag/config.yaml when path is empty. An existing file is left alone
// unless force is set. It reports whether a file was written.
func WriteDefaultConfigFile(path string, force bool) (bool, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return false, err
		}
		path = defaultPath
	}

	if _, err := os.Stat(path); err == nil && !force {
		return false, nil
	}

	data, err := yaml.Marshal(Default().ToFile())
	if err != nil {
		return false, fmt.Errorf("failed to marshal default config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return false, fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return false, fmt.Errorf("failed to write config file: %w", err)
	}

	return true, nil
}
