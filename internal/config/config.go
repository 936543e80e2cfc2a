package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

const (
	JSONFile = ".docfill.json"
	YAMLFile = ".docfill.yaml"

	redactedValue = "[REDACTED]"
)

//go:embed schema.json
var schemaJSON string

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error

	validate = validator.New()
)

// Config is the resolved configuration of one run.
type Config struct {
	Root      string   `json:"root,omitempty" yaml:"root"`
	Include   []string `json:"include,omitempty" yaml:"include" validate:"dive,required"`
	Exclude   []string `json:"exclude,omitempty" yaml:"exclude" validate:"dive,required"`
	Languages []string `json:"languages,omitempty" yaml:"languages" validate:"dive,oneof=go python javascript typescript"`

	Provider string `json:"provider" yaml:"provider" validate:"oneof=gemini openai"`
	Model    string `json:"model,omitempty" yaml:"model"`
	BaseURL  string `json:"base_url,omitempty" yaml:"base_url" validate:"omitempty,url"`
	APIKey   string `json:"api_key,omitempty" yaml:"api_key"`

	Interactive      bool `json:"interactive" yaml:"interactive"`
	Override         bool `json:"override" yaml:"override"`
	SkipErrors       bool `json:"skip_errors" yaml:"skip_errors"`
	Strict           bool `json:"strict" yaml:"strict"`
	TimestampBackups bool `json:"timestamp_backups" yaml:"timestamp_backups"`

	BatchSize       int     `json:"batch_size" yaml:"batch_size" validate:"gte=1,lte=64"`
	RateLimit       int     `json:"rate_limit" yaml:"rate_limit" validate:"gte=1"`
	RateWindowMS    int     `json:"rate_window_ms" yaml:"rate_window_ms" validate:"gte=1"`
	TimeoutSeconds  int     `json:"timeout_seconds" yaml:"timeout_seconds" validate:"gte=1"`
	MaxAttempts     int     `json:"max_attempts" yaml:"max_attempts" validate:"gte=1,lte=10"`
	MaxTokens       int     `json:"max_tokens" yaml:"max_tokens" validate:"gte=1"`
	Temperature     float32 `json:"temperature" yaml:"temperature" validate:"gte=0,lte=2"`
	MemoryCeilingMB int     `json:"memory_ceiling_mb" yaml:"memory_ceiling_mb" validate:"gte=0"`

	LedgerPath  string `json:"ledger_path,omitempty" yaml:"ledger_path"`
	MetricsFile string `json:"metrics_file,omitempty" yaml:"metrics_file"`

	// Source is the file the configuration was read from, if any.
	Source string `json:"-" yaml:"-"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Root:            ".",
		Provider:        "gemini",
		BatchSize:       5,
		RateLimit:       5,
		RateWindowMS:    1000,
		TimeoutSeconds:  60,
		MaxAttempts:     3,
		MaxTokens:       1024,
		Temperature:     0.2,
		MemoryCeilingMB: 512,
		LedgerPath:      filepath.Join(".docfill", "ledger.db"),
	}
}

func (c *Config) RateWindow() time.Duration {
	return time.Duration(c.RateWindowMS) * time.Millisecond
}

func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// LoadConfig resolves the configuration for the project in dir.
// Precedence: environment > config file > defaults. Command-line flags are
// applied by the caller, followed by Validate.
func LoadConfig(dir string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load(filepath.Join(dir, ".env"))

	cfg := Default()

	// 2. Load the project file
	path, err := findConfigFile(dir)
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
		cfg.Source = path
	}

	// 3. Override with Environment Variables if present
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func findConfigFile(dir string) (string, error) {
	var found []string
	for _, name := range []string{JSONFile, YAMLFile, ".docfill.yml"} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			found = append(found, p)
		}
	}
	if len(found) > 1 {
		return "", fmt.Errorf("multiple config files found: %s", strings.Join(found, ", "))
	}
	if len(found) == 0 {
		return "", nil
	}
	return found[0], nil
}

func loadFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	var doc any
	if strings.HasSuffix(path, ".json") {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&doc); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else {
		var y any
		if err := yaml.Unmarshal(raw, &y); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
		if y == nil {
			return nil
		}
		// normalize YAML scalars to JSON types before schema validation
		norm, err := json.Marshal(y)
		if err != nil {
			return fmt.Errorf("failed to normalize %s: %w", path, err)
		}
		dec := json.NewDecoder(bytes.NewReader(norm))
		dec.UseNumber()
		if err := dec.Decode(&doc); err != nil {
			return fmt.Errorf("failed to normalize %s: %w", path, err)
		}
	}

	schema, err := loadSchema()
	if err != nil {
		return fmt.Errorf("failed to compile config schema: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("config schema validation failed for %s: %w", path, err)
	}

	if strings.HasSuffix(path, ".json") {
		return json.Unmarshal(raw, cfg)
	}
	return yaml.Unmarshal(raw, cfg)
}

func loadSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("docfill.schema.json", strings.NewReader(schemaJSON)); err != nil {
			schemaErr = err
			return
		}
		compiledSchema, schemaErr = compiler.Compile("docfill.schema.json")
	})
	return compiledSchema, schemaErr
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("DOCFILL_PROVIDER"); v != "" {
		cfg.Provider = v
	}
	if v := os.Getenv("DOCFILL_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("DOCFILL_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("DOCFILL_LEDGER"); v != "" {
		cfg.LedgerPath = v
	}

	cfg.APIKey = firstNonEmpty(os.Getenv("DOCFILL_API_KEY"), providerKey(cfg.Provider), cfg.APIKey)

	if v := os.Getenv("DOCFILL_BATCH_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid DOCFILL_BATCH_SIZE %q: %w", v, err)
		}
		cfg.BatchSize = n
	}
	if v := os.Getenv("DOCFILL_STRICT"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid DOCFILL_STRICT %q: %w", v, err)
		}
		cfg.Strict = b
	}
	return nil
}

func providerKey(provider string) string {
	switch provider {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "gemini":
		return firstNonEmpty(os.Getenv("GEMINI_API_KEY"), os.Getenv("GOOGLE_API_KEY"))
	}
	return ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// Validate checks field constraints. It never echoes the API key.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q (%s)", fe.Namespace(), fe.Tag(), fe.Param()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Redacted returns a copy safe to print: the API key is masked.
func (c *Config) Redacted() Config {
	out := *c
	out.Include = append([]string(nil), c.Include...)
	out.Exclude = append([]string(nil), c.Exclude...)
	out.Languages = append([]string(nil), c.Languages...)
	if out.APIKey != "" {
		out.APIKey = redactedValue
	}
	return out
}

// Snapshot returns the options as a generic map without the API key.
func (c *Config) Snapshot() (map[string]any, error) {
	r := c.Redacted()
	r.APIKey = ""
	raw, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	delete(out, "api_key")
	return out, nil
}

// Save writes the snapshot as JSON. The API key is never written.
func (c *Config) Save(path string) error {
	snap, err := c.Snapshot()
	if err != nil {
		return err
	}
	raw, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, append(raw, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// HasAPIKey reports whether a key was resolved.
func (c *Config) HasAPIKey() bool {
	return c.APIKey != ""
}
