package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultConfigFile is used when no --config flag is supplied.
const DefaultConfigFile = ".webbuilder/settings.yaml"

// DefaultSystemPrompt is the fixed instruction sent ahead of every conversation.
const DefaultSystemPrompt = "You are a helpful AI web developer assistant that generates HTML code based on user descriptions. " +
	"Your response should be only in code format and code format alone. The user would give you a request, " +
	"and you would try to make the most beautiful design of it as possible. You are to use tailwind css for 95% " +
	"of your styling unless when not possible to use it or when the user explicitly says against using it."

// Config represents the application configuration
type Config struct {
	Logging    LoggingConfig    `mapstructure:"logging"`
	Endpoint   EndpointConfig   `mapstructure:"endpoint"`
	Generation GenerationConfig `mapstructure:"generation"`
	Models     []ModelConfig    `mapstructure:"models"`
	Server     ServerConfig     `mapstructure:"server"`
	Preview    PreviewConfig    `mapstructure:"preview"`
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	LogFile  string `mapstructure:"log_file"`
	Preserve bool   `mapstructure:"preserve"`
	Level    string `mapstructure:"level"`
}

// EndpointConfig describes the OpenAI-compatible generation endpoint
type EndpointConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	APIKey     string        `mapstructure:"api_key"`
	Timeout    time.Duration `mapstructure:"-"`
	TimeoutStr string        `mapstructure:"timeout"` // For parsing string duration
}

// GenerationConfig holds the request parameters sent with every generation
type GenerationConfig struct {
	SystemPrompt string  `mapstructure:"system_prompt"`
	Temperature  float32 `mapstructure:"temperature"`
	MaxTokens    int     `mapstructure:"max_tokens"`

	// SelectionContext appends the selected element's markup to the
	// follow-up suggestion.
	SelectionContext bool `mapstructure:"selection_context"`
}

// ModelConfig is one entry of the model dropdown
type ModelConfig struct {
	ID   string `mapstructure:"id"`
	Name string `mapstructure:"name"`
}

// ServerConfig holds host web server configuration
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// PreviewConfig holds sandbox document configuration
type PreviewConfig struct {
	Stylesheet string `mapstructure:"stylesheet"`
}

var cfg *Config

// Get returns the global config instance
func Get() *Config {
	if cfg == nil {
		panic("config not initialized")
	}
	return cfg
}

// Load loads configuration from file and environment
func Load(cfgFile string) (*Config, error) {
	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}

		xdgConfigHome := os.Getenv("XDG_CONFIG_HOME")
		if xdgConfigHome == "" {
			xdgConfigHome = filepath.Join(home, ".config")
		}

		viper.AddConfigPath("./.webbuilder")
		viper.AddConfigPath(filepath.Join(xdgConfigHome, "webbuilder"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("settings")
	}

	viper.SetEnvPrefix("WEBBUILDER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	bindEnvironmentVariables()

	// A missing settings file is fine; defaults and environment still apply.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	loaded := &Config{}
	if err := viper.Unmarshal(loaded); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := processDurations(loaded); err != nil {
		return nil, fmt.Errorf("failed to process durations: %w", err)
	}

	if err := loaded.Validate(); err != nil {
		return nil, err
	}

	cfg = loaded
	return cfg, nil
}

// Validate checks the values that the rest of the application relies on
func (c *Config) Validate() error {
	if c.Endpoint.BaseURL == "" {
		return fmt.Errorf("endpoint.base_url must be set")
	}
	if len(c.Models) == 0 {
		return fmt.Errorf("at least one model must be configured")
	}
	for i, m := range c.Models {
		if m.ID == "" {
			return fmt.Errorf("models[%d].id must be set", i)
		}
	}
	if c.Generation.Temperature < 0 || c.Generation.Temperature > 2 {
		return fmt.Errorf("generation.temperature must be between 0 and 2, got %v", c.Generation.Temperature)
	}
	return nil
}

// DefaultModel returns the model preselected in the dropdown
func (c *Config) DefaultModel() ModelConfig {
	return c.Models[0]
}

// setDefaults sets all default configuration values
func setDefaults() {
	applyDefaults(viper.GetViper())
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("endpoint.base_url", "http://localhost:1234/v1")
	v.SetDefault("endpoint.api_key", "")
	v.SetDefault("endpoint.timeout", "5m")

	v.SetDefault("generation.system_prompt", DefaultSystemPrompt)
	v.SetDefault("generation.temperature", 0.7)
	v.SetDefault("generation.max_tokens", -1)
	v.SetDefault("generation.selection_context", false)

	v.SetDefault("models", []map[string]any{
		{"id": "deepseek-r1-distill-qwen-1.5b", "name": "Deepseek R1 Distill Qwen 1.5B"},
		{"id": "qwen2.5-coder-7b-instruct-mlx", "name": "Qwen coder 7b"},
		{"id": "mistral-7b", "name": "Mistral 7B"},
		{"id": "neural-chat-7b", "name": "Neural Chat 7B"},
	})

	v.SetDefault("server.addr", "127.0.0.1:3030")
	v.SetDefault("preview.stylesheet", "https://cdn.jsdelivr.net/npm/tailwindcss@2.2.19/dist/tailwind.min.css")

	v.SetDefault("logging.log_file", "./.webbuilder/system.log")
	v.SetDefault("logging.preserve", false)
	v.SetDefault("logging.level", "info")
}

// bindEnvironmentVariables binds specific environment variables to Viper keys
func bindEnvironmentVariables() {
	viper.BindEnv("endpoint.api_key", "WEBBUILDER_API_KEY", "OPENAI_API_KEY")
	viper.BindEnv("endpoint.base_url", "WEBBUILDER_BASE_URL")
	viper.BindEnv("server.addr", "WEBBUILDER_ADDR")
	viper.BindEnv("logging.level", "WEBBUILDER_LOG_LEVEL")
}

// processDurations converts string durations to time.Duration
func processDurations(cfg *Config) error {
	if cfg.Endpoint.TimeoutStr != "" {
		d, err := time.ParseDuration(cfg.Endpoint.TimeoutStr)
		if err != nil {
			return fmt.Errorf("invalid endpoint.timeout: %w", err)
		}
		cfg.Endpoint.Timeout = d
	} else if cfg.Endpoint.Timeout == 0 {
		cfg.Endpoint.Timeout = 5 * time.Minute
	}
	return nil
}

// GetConfigFileUsed returns the path to the config file being used
func GetConfigFileUsed() string {
	return viper.ConfigFileUsed()
}

// InitializeDefaults writes a default settings file to path. An existing
// file is left alone unless force is set, in which case it is replaced and
// the old content kept as a backup.
func InitializeDefaults(path string, force bool) (bool, error) {
	if path == "" {
		path = DefaultConfigFile
	}
	if _, err := os.Stat(path); err == nil && !force {
		return false, nil
	}

	v := viper.New()
	v.SetConfigType("yaml")
	applyDefaults(v)

	err := ReplaceSettings(path, DefaultLockConfig(), func(tmpPath string) error {
		return v.WriteConfigAs(tmpPath)
	})
	if err != nil {
		return false, fmt.Errorf("failed to write default configuration: %w", err)
	}
	return true, nil
}
