package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

const appName = "catalog"

// Store backends.
const (
	BackendPostgREST = "postgrest"
	BackendPostgres  = "postgres"
	BackendSQLite    = "sqlite"
)

// Cache backends.
const (
	CacheMemory = "memory"
	CacheSQLite = "sqlite"
	CacheRedis  = "redis"
)

type Config struct {
	Store   Store   `yaml:"store"`
	Cache   Cache   `yaml:"cache"`
	Render  Render  `yaml:"render"`
	Import  Import  `yaml:"import"`
	Server  Server  `yaml:"server"`
	Logging Logging `yaml:"logging"`
	Output  Output  `yaml:"output"`
}

type Store struct {
	Backend      string        `yaml:"backend"`
	URLEnv       string        `yaml:"url_env"`
	KeyEnv       string        `yaml:"key_env"`
	DSNEnv       string        `yaml:"dsn_env"`
	Table        string        `yaml:"table"`
	SearchColumn string        `yaml:"search_column"`
	Timeout      time.Duration `yaml:"timeout"`
}

type Cache struct {
	Backend     string `yaml:"backend"`
	Slot        string `yaml:"slot"`
	RedisURLEnv string `yaml:"redis_url_env"`
}

type Render struct {
	MarkdownDescriptions bool `yaml:"markdown_descriptions"`
}

type Import struct {
	FetchExcerpt bool          `yaml:"fetch_excerpt"`
	Timeout      time.Duration `yaml:"timeout"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Logging struct {
	Level string `yaml:"level"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

// ConfigDir returns the XDG config directory for the catalog.
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, appName)
}

// DataDir returns the XDG data directory for the catalog.
func DataDir() string {
	return filepath.Join(xdg.DataHome, appName)
}

// ResolveConfigPath finds the config file following priority:
// explicit path > $XDG_CONFIG_HOME/catalog/config.yaml > ./config.yaml
// An empty path with no error means no file was found and defaults apply.
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

	return "", nil
}

// Load reads and parses a config YAML file. An empty path yields the
// defaults. Variables from a .env file in the working directory are loaded
// into the environment first; existing variables win.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	if path == "" {
		return parse(nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Store: Store{
			Backend:      BackendPostgREST,
			URLEnv:       "SUPABASE_URL",
			KeyEnv:       "SUPABASE_KEY",
			DSNEnv:       "DATABASE_URL",
			Table:        "articles",
			SearchColumn: "fts",
			Timeout:      30 * time.Second,
		},
		Cache: Cache{
			Backend:     CacheMemory,
			Slot:        "articles",
			RedisURLEnv: "REDIS_URL",
		},
		Import:  Import{Timeout: 15 * time.Second},
		Server:  Server{Port: 8000},
		Logging: Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Backend {
	case BackendPostgREST, BackendPostgres, BackendSQLite:
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	switch c.Cache.Backend {
	case CacheMemory, CacheSQLite, CacheRedis:
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	if c.Cache.Slot == "" {
		return fmt.Errorf("cache slot must not be empty")
	}
	return nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// DatabasePath is the local SQLite file used by the sqlite store and cache.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.GetDataDir(), "catalog.db")
}

// StoreURL returns the REST endpoint from the environment.
func (s *Store) StoreURL() string {
	return os.Getenv(s.URLEnv)
}

// StoreKey returns the REST access key from the environment.
func (s *Store) StoreKey() string {
	return os.Getenv(s.KeyEnv)
}

// DSN returns the Postgres connection string from the environment.
func (s *Store) DSN() string {
	return os.Getenv(s.DSNEnv)
}

// RedisURL returns the Redis address from the environment.
func (c *Cache) RedisURL() string {
	return os.Getenv(c.RedisURLEnv)
}
