package shared

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Log         LogConfig         `toml:"log"`
	Credentials CredentialsConfig `toml:"credentials"`
	Vault       VaultConfig       `toml:"vault"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Sync        SyncConfig        `toml:"sync"`
	Enrichment  EnrichmentConfig  `toml:"enrichment"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify   SpotifyConfig   `toml:"spotify"`
	Anthropic AnthropicConfig `toml:"anthropic"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
}

// AnthropicConfig configures the classification oracle.
type AnthropicConfig struct {
	APIKey    string `toml:"api_key"`
	BaseURL   string `toml:"base_url"`
	Model     string `toml:"model"`
	MaxTokens int    `toml:"max_tokens"`
}

// VaultConfig holds the symmetric key used to seal tokens at rest.
type VaultConfig struct {
	SecretKey string `toml:"secret_key"`
}

// DatabaseConfig contains database connection settings.
//
// Driver selects the store: "sqlite" uses Path and the pool sizes, "mongo" uses URI and Name.
type DatabaseConfig struct {
	Driver       string `toml:"driver"`
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
	URI          string `toml:"uri"`
	Name         string `toml:"name"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string   `toml:"host"`
	Port            int      `toml:"port"`
	FrontendURL     string   `toml:"frontend_url"`
	FrontendOrigins []string `toml:"frontend_origins"`
}

// SyncConfig tunes catalog fetching and the background task pool.
type SyncConfig struct {
	FanOut            int     `toml:"fan_out"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Workers           int     `toml:"workers"`
	QueueSize         int     `toml:"queue_size"`
}

// EnrichmentConfig tunes batch enrichment.
type EnrichmentConfig struct {
	Concurrency int `toml:"concurrency"`
}

// envOverrides lists the environment variables that take precedence over the file.
type envOverrides struct {
	ClientID        string   `envconfig:"CLIENT_ID"`
	ClientSecret    string   `envconfig:"CLIENT_SECRET"`
	RedirectURI     string   `envconfig:"REDIRECT_URI"`
	VaultKey        string   `envconfig:"VAULT_SECRET_KEY"`
	AnthropicKey    string   `envconfig:"ANTHROPIC_API_KEY"`
	AnthropicModel  string   `envconfig:"ANTHROPIC_MODEL"`
	FrontendURL     string   `envconfig:"FRONTEND_URL"`
	FrontendOrigins []string `envconfig:"FRONTEND_ORIGINS"`
	MongoURI        string   `envconfig:"MONGODB_CONNECTION_URL"`
	DatabaseDriver  string   `envconfig:"DATABASE_DRIVER"`
	DatabasePath    string   `envconfig:"DATABASE_PATH"`
	ServerPort      int      `envconfig:"SERVER_PORT"`
	LogLevel        string   `envconfig:"LOG_LEVEL"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// ResolveConfig loads the file at path when it exists (defaults otherwise),
// then the optional .env file, then environment overrides.
func ResolveConfig(path string) (*Config, error) {
	config := DefaultConfig()
	if _, err := os.Stat(path); err == nil {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		config = loaded
	}

	if err := LoadEnvFile(".env"); err != nil {
		return nil, err
	}

	if err := config.ApplyEnv(); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadEnvFile loads KEY=VALUE pairs into the process environment. A missing file is not an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays non-empty environment variables on top of c.
func (c *Config) ApplyEnv() error {
	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}

	set(&c.Credentials.Spotify.ClientID, env.ClientID)
	set(&c.Credentials.Spotify.ClientSecret, env.ClientSecret)
	set(&c.Credentials.Spotify.RedirectURI, env.RedirectURI)
	set(&c.Vault.SecretKey, env.VaultKey)
	set(&c.Credentials.Anthropic.APIKey, env.AnthropicKey)
	set(&c.Credentials.Anthropic.Model, env.AnthropicModel)
	set(&c.Server.FrontendURL, env.FrontendURL)
	set(&c.Database.URI, env.MongoURI)
	set(&c.Database.Driver, env.DatabaseDriver)
	set(&c.Database.Path, env.DatabasePath)
	set(&c.Log.Level, env.LogLevel)

	if len(env.FrontendOrigins) > 0 {
		c.Server.FrontendOrigins = env.FrontendOrigins
	}
	if env.ServerPort > 0 {
		c.Server.Port = env.ServerPort
	}
	return nil
}

// RequireSpotify reports whether the Spotify OAuth client is configured.
func (c *Config) RequireSpotify() error {
	s := c.Credentials.Spotify
	if s.ClientID == "" || s.ClientSecret == "" {
		return fmt.Errorf("%w: spotify client_id and client_secret must be set", ErrMissingCredentials)
	}
	if s.RedirectURI == "" {
		return fmt.Errorf("%w: spotify redirect_uri must be set", ErrMissingConfig)
	}
	return nil
}

// RequireVault reports whether a vault key is configured.
func (c *Config) RequireVault() error {
	if c.Vault.SecretKey == "" {
		return fmt.Errorf("%w: vault secret_key must be set (run setup)", ErrMissingConfig)
	}
	return nil
}

// RequireOracle reports whether the classification oracle is configured.
func (c *Config) RequireOracle() error {
	if c.Credentials.Anthropic.APIKey == "" {
		return fmt.Errorf("%w: anthropic api_key must be set", ErrMissingCredentials)
	}
	return nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig writes c to path as TOML, replacing any existing file.
func SaveConfig(path string, c *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
