package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvSyntax, EnvEntry, EnvEmit, EnvLogLevel} {
		t.Setenv(key, "")
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	config, err := Load(DefaultPath)
	require.NoError(t, err)
	assert.Equal(t, Default(), config)
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)

	path := writeFile(t, dir, "exprc.yaml", "syntax: att\nentry: calc\n")
	config, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "att", config.Syntax)
	assert.Equal(t, "calc", config.Entry)
	assert.Equal(t, "asm", config.Emit)
	assert.Equal(t, "warn", config.LogLevel)
}

func TestLoadStrict(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)

	path := writeFile(t, dir, "exprc.yaml", "syntax: intel\noptimize: true\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)

	path := writeFile(t, dir, "exprc.yaml", "syntax: intel\nentry: calc\nlog_level: info\n")
	t.Setenv(EnvSyntax, "att")
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvEmit, "ir")

	config, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "att", config.Syntax)
	assert.Equal(t, "calc", config.Entry)
	assert.Equal(t, "ir", config.Emit)
	assert.Equal(t, "debug", config.LogLevel)
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	// godotenv does not override variables that are already set, so the
	// entry variable must be absent rather than empty.
	require.NoError(t, os.Unsetenv(EnvEntry))
	t.Cleanup(func() { os.Unsetenv(EnvEntry) })

	dir := t.TempDir()
	t.Chdir(dir)
	writeFile(t, dir, ".env", EnvEntry+"=from_dotenv\n")

	config, err := Load(DefaultPath)
	require.NoError(t, err)
	assert.Equal(t, "from_dotenv", config.Entry)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"Defaults", func(*Config) {}, ""},
		{"Upper Syntax", func(c *Config) { c.Syntax = "ATT" }, ""},
		{"Bad Syntax", func(c *Config) { c.Syntax = "arm" }, "invalid syntax 'arm'"},
		{"Empty Entry", func(c *Config) { c.Entry = "" }, "invalid entry ''"},
		{"Entry With Space", func(c *Config) { c.Entry = "my fn" }, "invalid entry 'my fn'"},
		{"Entry Leading Digit", func(c *Config) { c.Entry = "1f" }, "invalid entry '1f'"},
		{"Bad Emit", func(c *Config) { c.Emit = "elf" }, "invalid emit 'elf'"},
		{"Bad Level", func(c *Config) { c.LogLevel = "loud" }, "invalid log_level 'loud'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := Default()
			tt.mutate(config)
			err := config.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrConfigValidation)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoadValidationError(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)

	path := writeFile(t, dir, "exprc.yaml", "emit: elf\n")
	_, err := Load(path)
	assert.ErrorIs(t, err, ErrConfigValidation)
}

func TestLoadEnvEmitValidated(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv(EnvEmit, "elf")

	_, err := Load(DefaultPath)
	require.ErrorIs(t, err, ErrConfigValidation)
	assert.Contains(t, err.Error(), "invalid emit 'elf'")
}
