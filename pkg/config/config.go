// Package config loads exprc settings from exprc.yaml, .env and the
// process environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
)

// ErrConfigValidation is returned when configuration validation fails
var ErrConfigValidation = errors.New("configuration validation failed")

// DefaultPath is the config file looked up when none is given.
const DefaultPath = "exprc.yaml"

// Environment variables that override the file.
const (
	EnvSyntax   = "EXPRC_SYNTAX"
	EnvEntry    = "EXPRC_ENTRY"
	EnvEmit     = "EXPRC_EMIT"
	EnvLogLevel = "EXPRC_LOG_LEVEL"
)

// Config represents the exprc configuration
type Config struct {
	Syntax   string `yaml:"syntax"`    // intel or att
	Entry    string `yaml:"entry"`     // exported function symbol
	Emit     string `yaml:"emit"`      // asm, tokens, ast or ir
	LogLevel string `yaml:"log_level"` // zerolog level name
}

var (
	validSyntaxes  = map[string]bool{"intel": true, "att": true}
	validEmits     = map[string]bool{"asm": true, "tokens": true, "ast": true, "ir": true}
	validLogLevels = map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true, "disabled": true}
)

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Syntax:   "intel",
		Entry:    "main",
		Emit:     "asm",
		LogLevel: "warn",
	}
}

// Load reads the configuration from path. A missing file yields the
// defaults; environment overrides apply either way.
func Load(path string) (*Config, error) {
	if err := loadEnvFiles(); err != nil {
		return nil, fmt.Errorf("failed to load environment files: %w", err)
	}

	config := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// defaults
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		var fromFile Config
		if err := yaml.UnmarshalWithOptions(data, &fromFile, yaml.Strict()); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		config.merge(&fromFile)
	}

	config.applyEnv()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// merge copies the non-empty fields of other over c.
func (c *Config) merge(other *Config) {
	if other.Syntax != "" {
		c.Syntax = other.Syntax
	}
	if other.Entry != "" {
		c.Entry = other.Entry
	}
	if other.Emit != "" {
		c.Emit = other.Emit
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
}

func (c *Config) applyEnv() {
	c.merge(&Config{
		Syntax:   os.Getenv(EnvSyntax),
		Entry:    os.Getenv(EnvEntry),
		Emit:     os.Getenv(EnvEmit),
		LogLevel: os.Getenv(EnvLogLevel),
	})
}

// Validate checks every field against its allowed values.
func (c *Config) Validate() error {
	if !validSyntaxes[strings.ToLower(c.Syntax)] {
		return fmt.Errorf("%w: invalid syntax '%s': must be one of intel, att", ErrConfigValidation, c.Syntax)
	}
	if c.Entry == "" || !isSymbol(c.Entry) {
		return fmt.Errorf("%w: invalid entry '%s': must be a symbol name", ErrConfigValidation, c.Entry)
	}
	if !validEmits[c.Emit] {
		return fmt.Errorf("%w: invalid emit '%s': must be one of asm, tokens, ast, ir", ErrConfigValidation, c.Emit)
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("%w: invalid log_level '%s': must be one of trace, debug, info, warn, error, disabled", ErrConfigValidation, c.LogLevel)
	}
	return nil
}

func isSymbol(s string) bool {
	for i, r := range s {
		switch {
		case r == '_' || r == '.':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

func loadEnvFiles() error {
	// Try to load .env file from current directory
	if fileExists(".env") {
		if err := godotenv.Load(".env"); err != nil {
			return fmt.Errorf("failed to load .env file: %w", err)
		}
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
