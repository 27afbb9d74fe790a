package main

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rendis/recipelint/internal/rules"
	"github.com/rendis/recipelint/pkg/schema"
)

// defaultConfigFile is looked up in the working directory when neither
// --config nor RECIPELINT_CONFIG names a file.
const defaultConfigFile = ".recipelint.yml"

// Config holds all recipelint settings.
// Priority: flags > env vars > config file > defaults.
type Config struct {
	LogLevel  string       `yaml:"log_level"`
	LogFormat string       `yaml:"log_format"`
	Format    string       `yaml:"format"`
	SchemaDir string       `yaml:"schema_dir"`
	SchemaDB  string       `yaml:"schema_db"`
	Strict    bool         `yaml:"strict"`
	Rules     []rules.Rule `yaml:"rules"`
	// RulesFile points at a YAML list of extra rules, appended to Rules.
	RulesFile string `yaml:"rules_file"`
}

func defaultConfig() Config {
	return Config{
		LogLevel:  "warn",
		LogFormat: "text",
		Format:    formatText,
		SchemaDB:  filepath.Join(recipelintDir(), "schemas.db"),
	}
}

func recipelintDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".recipelint"
	}
	return filepath.Join(home, ".recipelint")
}

// loadConfig layers defaults, the config file and RECIPELINT_* variables.
// path is the --config flag; an explicitly named file must exist, the
// default one is optional.
func loadConfig(path string, getenv func(string) string) (Config, error) {
	cfg := defaultConfig()

	explicit := path != ""
	if !explicit {
		if v := getenv("RECIPELINT_CONFIG"); v != "" {
			path, explicit = v, true
		} else {
			path = defaultConfigFile
		}
	}

	// Layer 2: config file.
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decodeConfig(data, &cfg); err != nil {
			return Config{}, schema.NewErrorf(schema.ErrCodeConfig, "config %s: %v", path, err).WithCause(err)
		}
	case explicit || !errors.Is(err, fs.ErrNotExist):
		return Config{}, schema.NewErrorf(schema.ErrCodeConfig, "reading config: %v", err).WithCause(err)
	}

	// Layer 3: env vars override.
	if v := getenv("RECIPELINT_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := getenv("RECIPELINT_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := getenv("RECIPELINT_FORMAT"); v != "" {
		cfg.Format = v
	}
	if v := getenv("RECIPELINT_SCHEMA_DIR"); v != "" {
		cfg.SchemaDir = v
	}
	if v := getenv("RECIPELINT_SCHEMA_DB"); v != "" {
		cfg.SchemaDB = v
	}
	if v := getenv("RECIPELINT_STRICT"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, schema.NewErrorf(schema.ErrCodeConfig, "RECIPELINT_STRICT: %q is not a boolean", v)
		}
		cfg.Strict = b
	}
	if v := getenv("RECIPELINT_RULES_FILE"); v != "" {
		cfg.RulesFile = v
	}

	if cfg.RulesFile != "" {
		extra, err := loadRulesFile(cfg.RulesFile)
		if err != nil {
			return Config{}, err
		}
		cfg.Rules = append(cfg.Rules, extra...)
	}
	return cfg, nil
}

func decodeConfig(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// loadRulesFile reads a YAML (or JSON) list of rules.
func loadRulesFile(path string) ([]rules.Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeConfig, "reading rules file: %v", err).WithCause(err)
	}
	var list []rules.Rule
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeConfig, "rules file %s: %v", path, err).WithCause(err)
	}
	return list, nil
}

// validate checks settings that cannot be caught by decoding.
func (c Config) validate() error {
	switch strings.ToLower(c.Format) {
	case formatText, formatJSON:
	default:
		return schema.NewErrorf(schema.ErrCodeConfig, "unknown output format %q (want text or json)", c.Format)
	}
	return nil
}
