package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/recipelint/pkg/schema"
)

func envMap(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig("", envMap(nil))
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, formatText, cfg.Format)
	assert.Equal(t, filepath.Join(recipelintDir(), "schemas.db"), cfg.SchemaDB)
	assert.False(t, cfg.Strict)
	assert.Empty(t, cfg.Rules)
}

func TestLoadConfig_Layers(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "recipelint.yml", `
log_level: debug
format: json
schema_dir: ./schemas
strict: true
rules:
  - id: no-stop
    when: line.keyword == "stop"
`)

	cfg, err := loadConfig(path, envMap(nil))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, formatJSON, cfg.Format)
	assert.Equal(t, "./schemas", cfg.SchemaDir)
	assert.True(t, cfg.Strict)
	require.Len(t, cfg.Rules, 1)
	assert.Equal(t, "no-stop", cfg.Rules[0].ID)
	assert.Equal(t, "text", cfg.LogFormat, "unset keys keep their defaults")

	cfg, err = loadConfig("", envMap(map[string]string{
		"RECIPELINT_CONFIG":     path,
		"RECIPELINT_LOG_LEVEL":  "error",
		"RECIPELINT_LOG_FORMAT": "json",
		"RECIPELINT_FORMAT":     "text",
		"RECIPELINT_SCHEMA_DIR": "/etc/recipelint/schemas",
		"RECIPELINT_SCHEMA_DB":  "/var/lib/recipelint.db",
		"RECIPELINT_STRICT":     "false",
	}))
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, formatText, cfg.Format)
	assert.Equal(t, "/etc/recipelint/schemas", cfg.SchemaDir)
	assert.Equal(t, "/var/lib/recipelint.db", cfg.SchemaDB)
	assert.False(t, cfg.Strict)
	assert.Len(t, cfg.Rules, 1, "env vars do not drop file rules")
}

func TestLoadConfig_RulesFile(t *testing.T) {
	dir := t.TempDir()
	rulesPath := writeFile(t, dir, "rules.yml", `
- id: deep
  engine: expr
  when: line.depth > 2
  severity: warning
- id: untitled
  engine: jq
  when: .recipe.name == ""
`)
	path := writeFile(t, dir, "recipelint.yml", "rules_file: "+rulesPath+"\nrules:\n  - id: first\n    when: 'false'\n")

	cfg, err := loadConfig(path, envMap(nil))
	require.NoError(t, err)
	require.Len(t, cfg.Rules, 3)
	assert.Equal(t, []string{"first", "deep", "untitled"}, []string{cfg.Rules[0].ID, cfg.Rules[1].ID, cfg.Rules[2].ID})
	assert.Equal(t, schema.SeverityWarning, cfg.Rules[1].Severity)
	assert.Equal(t, "jq", cfg.Rules[2].Engine)
}

func TestLoadConfig_Errors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		path    string
		env     map[string]string
		message string
	}{
		{"explicit file missing", filepath.Join(dir, "nope.yml"), nil, "reading config"},
		{"env file missing", "", map[string]string{"RECIPELINT_CONFIG": filepath.Join(dir, "nope.yml")}, "reading config"},
		{"unknown key", writeFile(t, dir, "typo.yml", "log_levle: debug\n"), nil, "field log_levle not found"},
		{"bad yaml", writeFile(t, dir, "bad.yml", "rules: [\n"), nil, "bad.yml"},
		{"bad strict", "", map[string]string{"RECIPELINT_STRICT": "maybe"}, "is not a boolean"},
		{"missing rules file", "", map[string]string{"RECIPELINT_RULES_FILE": filepath.Join(dir, "rules.yml")}, "reading rules file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadConfig(tt.path, envMap(tt.env))
			require.Error(t, err)
			assert.True(t, schema.HasCode(err, schema.ErrCodeConfig), "got %v", err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestLoadConfig_EmptyFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "empty.yml", "")
	cfg, err := loadConfig(path, envMap(nil))
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), cfg)
}

func TestConfig_Validate(t *testing.T) {
	cfg := defaultConfig()
	require.NoError(t, cfg.validate())

	cfg.Format = "JSON"
	require.NoError(t, cfg.validate())

	cfg.Format = "xml"
	err := cfg.validate()
	require.Error(t, err)
	assert.True(t, schema.HasCode(err, schema.ErrCodeConfig))
}
