// Package config assembles the service configuration from defaults, an
// optional YAML file, a .env file and the process environment.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"asic-advisor/internal/integrations/paramstore"
	"asic-advisor/internal/repository"
)

const (
	defaultAddr          = ":5000"
	defaultLogLevel      = "info"
	defaultBaseURL       = "https://api.mistral.ai/v1"
	defaultModel         = "mistral-large-latest"
	defaultTimeout       = 60 * time.Second
	defaultMaxToolRounds = 3
	defaultSellerPath    = "data/seller_data.json"
	defaultBuyerPath     = "data/buyer_data.json"
	defaultSellerTable   = "seller_listings"
	defaultBuyerTable    = "buyer_requests"
)

// Config is built once in main and passed down explicitly.
type Config struct {
	Addr           string   `yaml:"addr"`
	LogLevel       string   `yaml:"log_level"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	// ParamPrefix enables SSM lookup of the LLM key when none is set.
	ParamPrefix string    `yaml:"param_prefix"`
	LLM         LLMConfig `yaml:"llm"`
	Data        Data      `yaml:"data"`
}

type LLMConfig struct {
	BaseURL       string        `yaml:"base_url"`
	APIKey        string        `yaml:"api_key"`
	Model         string        `yaml:"model"`
	Temperature   float32       `yaml:"temperature"`
	Timeout       time.Duration `yaml:"timeout"`
	MaxToolRounds int           `yaml:"max_tool_rounds"`
}

type Data struct {
	Backend     string  `yaml:"backend"`
	DatabaseURL string  `yaml:"database_url"`
	Seller      Dataset `yaml:"seller"`
	Buyer       Dataset `yaml:"buyer"`
}

// Dataset locates one dataset. Path and Format apply to the file backend,
// Table to dynamodb and postgres.
type Dataset struct {
	Path   string `yaml:"path"`
	Format string `yaml:"format"`
	Table  string `yaml:"table"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Addr:           defaultAddr,
		LogLevel:       defaultLogLevel,
		AllowedOrigins: []string{"http://localhost:3000"},
		LLM: LLMConfig{
			BaseURL:       defaultBaseURL,
			Model:         defaultModel,
			Timeout:       defaultTimeout,
			MaxToolRounds: defaultMaxToolRounds,
		},
		Data: Data{
			Backend: string(repository.BackendFile),
			Seller:  Dataset{Path: defaultSellerPath, Format: string(repository.FormatJSONLines), Table: defaultSellerTable},
			Buyer:   Dataset{Path: defaultBuyerPath, Format: string(repository.FormatJSON), Table: defaultBuyerTable},
		},
	}
}

// Load reads .env (unless NO_DOTENV=1), then CONFIG_FILE if set, then
// environment overrides. The result is not validated; call ResolveAPIKey and
// Validate afterwards.
func Load() (*Config, error) {
	loadDotenv()
	return load(os.LookupEnv)
}

func loadDotenv() {
	if os.Getenv("NO_DOTENV") == "1" {
		return
	}
	path := ".env"
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		path = envFile
	}
	if os.Getenv("DOTENV_OVERLOAD") == "1" {
		_ = godotenv.Overload(path)
		return
	}
	_ = godotenv.Load(path)
}

func load(lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()
	if path, ok := lookup("CONFIG_FILE"); ok && strings.TrimSpace(path) != "" {
		if err := cfg.mergeFile(strings.TrimSpace(path)); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: unmarshal %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	if port, ok := lookup("PORT"); ok && strings.TrimSpace(port) != "" {
		c.Addr = ":" + strings.TrimSpace(port)
	}
	str("ADDR", &c.Addr)
	str("LOG_LEVEL", &c.LogLevel)
	str("PARAM_PREFIX", &c.ParamPrefix)
	if v, ok := lookup("CORS_ALLOWED_ORIGINS"); ok && strings.TrimSpace(v) != "" {
		c.AllowedOrigins = splitList(v)
	}

	str("LLM_BASE_URL", &c.LLM.BaseURL)
	str("MISTRAL_API_KEY", &c.LLM.APIKey)
	str("LLM_API_KEY", &c.LLM.APIKey)
	str("LLM_MODEL", &c.LLM.Model)
	if v, ok := lookup("LLM_TEMPERATURE"); ok && strings.TrimSpace(v) != "" {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 32)
		if err != nil {
			return fmt.Errorf("config: LLM_TEMPERATURE: %w", err)
		}
		c.LLM.Temperature = float32(f)
	}
	if v, ok := lookup("LLM_TIMEOUT"); ok && strings.TrimSpace(v) != "" {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: LLM_TIMEOUT: %w", err)
		}
		c.LLM.Timeout = d
	}
	if v, ok := lookup("LLM_MAX_TOOL_ROUNDS"); ok && strings.TrimSpace(v) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: LLM_MAX_TOOL_ROUNDS: %w", err)
		}
		c.LLM.MaxToolRounds = n
	}

	str("DATA_BACKEND", &c.Data.Backend)
	str("DATABASE_URL", &c.Data.DatabaseURL)
	str("SELLER_DATA_PATH", &c.Data.Seller.Path)
	str("SELLER_DATA_FORMAT", &c.Data.Seller.Format)
	str("SELLER_TABLE", &c.Data.Seller.Table)
	str("BUYER_DATA_PATH", &c.Data.Buyer.Path)
	str("BUYER_DATA_FORMAT", &c.Data.Buyer.Format)
	str("BUYER_TABLE", &c.Data.Buyer.Table)
	return nil
}

// NeedsParamStore reports whether the LLM key must come from SSM.
func (c *Config) NeedsParamStore() bool {
	return strings.TrimSpace(c.LLM.APIKey) == "" && strings.TrimSpace(c.ParamPrefix) != ""
}

// ResolveAPIKey fills LLM.APIKey from SSM when NeedsParamStore is true.
func (c *Config) ResolveAPIKey(ctx context.Context, g paramstore.Getter) error {
	if !c.NeedsParamStore() {
		return nil
	}
	key, err := paramstore.APIKey(ctx, g, c.ParamPrefix)
	if err != nil {
		return fmt.Errorf("config: resolve api key: %w", err)
	}
	c.LLM.APIKey = key
	return nil
}

// Backend returns the parsed dataset backend.
func (c *Config) Backend() (repository.Backend, error) {
	return repository.ParseBackend(c.Data.Backend)
}

// Validate checks that required configuration is present and well formed.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Addr) == "" {
		errs = append(errs, errors.New("config: addr is required"))
	}
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		errs = append(errs, errors.New("config: llm api key is required (LLM_API_KEY, MISTRAL_API_KEY or PARAM_PREFIX)"))
	}
	if strings.TrimSpace(c.LLM.BaseURL) == "" {
		errs = append(errs, errors.New("config: llm base_url is required"))
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		errs = append(errs, errors.New("config: llm model is required"))
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, fmt.Errorf("config: llm temperature %v out of range [0,2]", c.LLM.Temperature))
	}
	if c.LLM.Timeout <= 0 {
		errs = append(errs, errors.New("config: llm timeout must be positive"))
	}
	if c.LLM.MaxToolRounds < 1 {
		errs = append(errs, errors.New("config: llm max_tool_rounds must be at least 1"))
	}

	backend, err := c.Backend()
	if err != nil {
		errs = append(errs, fmt.Errorf("config: %w", err))
	}
	switch backend {
	case repository.BackendFile:
		for _, ds := range []struct {
			name string
			Dataset
		}{{"seller", c.Data.Seller}, {"buyer", c.Data.Buyer}} {
			if strings.TrimSpace(ds.Path) == "" {
				errs = append(errs, fmt.Errorf("config: %s data path is required", ds.name))
			}
			if _, err := repository.ParseFormat(ds.Format); err != nil {
				errs = append(errs, fmt.Errorf("config: %s: %w", ds.name, err))
			}
		}
	case repository.BackendPostgres:
		if strings.TrimSpace(c.Data.DatabaseURL) == "" {
			errs = append(errs, errors.New("config: database_url is required for the postgres backend"))
		}
		fallthrough
	case repository.BackendDynamoDB:
		if strings.TrimSpace(c.Data.Seller.Table) == "" || strings.TrimSpace(c.Data.Buyer.Table) == "" {
			errs = append(errs, errors.New("config: seller and buyer tables are required"))
		}
	}
	return errors.Join(errs...)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
