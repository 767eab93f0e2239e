package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Output  Output  `yaml:"output" envPrefix:"PANTHEON_"`
	Server  Server  `yaml:"server" envPrefix:"PANTHEON_SERVER_"`
	Logging Logging `yaml:"logging" envPrefix:"PANTHEON_LOG_"`
	Import  Import  `yaml:"import" envPrefix:"PANTHEON_IMPORT_"`
	Report  Report  `yaml:"report" envPrefix:"PANTHEON_REPORT_"`
	Fetch   Fetch   `yaml:"fetch" envPrefix:"PANTHEON_FETCH_"`
}

type Output struct {
	DataDir string `yaml:"data_dir" env:"DATA_DIR"`
}

type Server struct {
	Port     int `yaml:"port" env:"PORT"`
	PageSize int `yaml:"page_size" env:"PAGE_SIZE"`
}

type Logging struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

type Import struct {
	Delimiter     string `yaml:"delimiter" env:"DELIMITER"`
	ProgressEvery int    `yaml:"progress_every" env:"PROGRESS_EVERY"`
}

// Report sizes the ranked sections of the analysis report and statistics page.
type Report struct {
	TopPopular int `yaml:"top_popular" env:"TOP_POPULAR"`
	TopN       int `yaml:"top_n" env:"TOP_N"`
	StatsLimit int `yaml:"stats_limit" env:"STATS_LIMIT"`
}

type Fetch struct {
	URLTemplate    string `yaml:"url_template" env:"URL_TEMPLATE"`
	UserAgent      string `yaml:"user_agent" env:"USER_AGENT"`
	TimeoutSeconds int    `yaml:"timeout_seconds" env:"TIMEOUT_SECONDS"`
}

// ConfigDir returns the XDG config directory for pantheon.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "pantheon")
}

// DataDir returns the XDG data directory for pantheon.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "pantheon")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/pantheon/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'pantheon init' to create a default config",
		xdgConfig,
	)
}

// Load reads a config YAML file. Variables from ./.env are exported first
// so PANTHEON_* overrides can live next to the data.
func Load(path string) (*Config, error) {
	if err := loadEnvFiles(".env"); err != nil {
		return nil, fmt.Errorf("loading env files: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// Default returns the built-in configuration with ./.env and environment
// overrides applied, for runs without a config file.
func Default() (*Config, error) {
	if err := loadEnvFiles(".env"); err != nil {
		return nil, fmt.Errorf("loading env files: %w", err)
	}
	return parse(DefaultConfigYAML)
}

// parse parses YAML bytes into a Config, applying defaults and then
// environment overrides.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Server:  Server{Port: 8000, PageSize: 100},
		Logging: Logging{Level: "INFO", Format: "text"},
		Import:  Import{Delimiter: ",", ProgressEvery: 100},
		Report:  Report{TopPopular: 10, TopN: 5, StatsLimit: 100},
		Fetch: Fetch{
			URLTemplate:    "https://en.wikipedia.org/?curid=%d",
			UserAgent:      "pantheon/1.0 (catalog)",
			TimeoutSeconds: 15,
		},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("applying environment: %w", err)
	}
	if cfg.Server.PageSize <= 0 {
		return nil, fmt.Errorf("server.page_size must be positive, got %d", cfg.Server.PageSize)
	}

	return cfg, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// DelimiterRune returns the configured import delimiter, "\t" and "tab" meaning a tab.
func (c *Config) DelimiterRune() rune {
	switch c.Import.Delimiter {
	case "", ",":
		return ','
	case `\t`, "\t", "tab":
		return '\t'
	default:
		return []rune(c.Import.Delimiter)[0]
	}
}

func loadEnvFiles(files ...string) error {
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
