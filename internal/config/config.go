// Package config loads the nodeledger configuration.
//
// Sources are applied in order, later ones winning:
//
//  1. built-in defaults
//  2. an optional YAML file
//  3. a .env file in the working directory and NODELEDGER_* variables
//
// The merged result is validated against the embedded CUE schema. CLI
// flags are applied by the caller after Load.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/roach88/nodeledger/internal/backup"
	"github.com/roach88/nodeledger/internal/export"
	"github.com/roach88/nodeledger/internal/merge"
	"github.com/roach88/nodeledger/internal/store"
)

//go:embed schema.cue
var schemaSource string

// EnvPrefix prefixes every environment override.
const EnvPrefix = "NODELEDGER_"

// Config is the merged configuration.
type Config struct {
	Store       StoreConfig  `yaml:"store" json:"store"`
	Log         LogConfig    `yaml:"log" json:"log"`
	Imports     ImportConfig `yaml:"imports" json:"imports"`
	Backup      BackupConfig `yaml:"backup" json:"backup"`
	DormantDays int          `yaml:"dormant_days" json:"dormant_days"`
}

// StoreConfig selects the KV backend.
type StoreConfig struct {
	Backend string `yaml:"backend" json:"backend"`
	Path    string `yaml:"path" json:"path"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level       string `yaml:"level" json:"level"`
	Development bool   `yaml:"development" json:"development"`
}

// ImportConfig holds the default merge policies.
type ImportConfig struct {
	EarningsPolicy string `yaml:"earnings_policy" json:"earnings_policy"`
	LicensesPolicy string `yaml:"licenses_policy" json:"licenses_policy"`
}

// BackupConfig holds the backup destination and the settings used until
// settings are saved in the store.
type BackupConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Dir       string `yaml:"dir" json:"dir"`
	Format    string `yaml:"format" json:"format"`
	Frequency string `yaml:"frequency" json:"frequency"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Store: StoreConfig{Backend: store.BackendSQLite, Path: "nodeledger.db"},
		Log:   LogConfig{Level: "info"},
		Imports: ImportConfig{
			EarningsPolicy: merge.AddAll.String(),
			LicensesPolicy: merge.Skip.String(),
		},
		Backup: BackupConfig{
			Dir:       "backups",
			Format:    string(export.FormatJSON),
			Frequency: string(backup.Weekly),
		},
		DormantDays: 3,
	}
}

// Load builds the configuration. An empty path skips the YAML file; a
// path that does not exist is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	// A missing .env file is fine.
	_ = godotenv.Load()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Store.Backend = getEnv("DB_BACKEND", c.Store.Backend)
	c.Store.Path = getEnv("DB_PATH", c.Store.Path)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Imports.EarningsPolicy = getEnv("EARNINGS_POLICY", c.Imports.EarningsPolicy)
	c.Imports.LicensesPolicy = getEnv("LICENSES_POLICY", c.Imports.LicensesPolicy)
	c.Backup.Dir = getEnv("BACKUP_DIR", c.Backup.Dir)
	c.Backup.Format = getEnv("BACKUP_FORMAT", c.Backup.Format)
	c.Backup.Frequency = getEnv("BACKUP_FREQUENCY", c.Backup.Frequency)

	var err error
	if c.Log.Development, err = getEnvAsBool("DEVELOPMENT", c.Log.Development); err != nil {
		return err
	}
	if c.Backup.Enabled, err = getEnvAsBool("BACKUP_ENABLED", c.Backup.Enabled); err != nil {
		return err
	}
	if c.DormantDays, err = getEnvAsInt("DORMANT_DAYS", c.DormantDays); err != nil {
		return err
	}
	return nil
}

// Validate checks the configuration against the CUE schema.
func (c *Config) Validate() error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	value := ctx.Encode(c)
	if err := value.Err(); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := def.Unify(value).Validate(cue.Concrete(true)); err != nil {
		return &ValidationError{Err: err}
	}
	return nil
}

// ValidationError reports a configuration that does not satisfy the
// schema.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration: %v", e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidationError reports whether err is a schema violation.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// EarningsPolicy returns the default earnings import policy.
func (c *Config) EarningsPolicy() (merge.Policy, error) {
	return merge.ParsePolicy(c.Imports.EarningsPolicy)
}

// LicensesPolicy returns the default license import policy.
func (c *Config) LicensesPolicy() (merge.Policy, error) {
	return merge.ParsePolicy(c.Imports.LicensesPolicy)
}

// BackupDefaults converts the backup section into scheduler settings.
func (c *Config) BackupDefaults() (backup.Settings, error) {
	freq, err := backup.ParseFrequency(c.Backup.Frequency)
	if err != nil {
		return backup.Settings{}, err
	}
	format, err := export.ParseFormat(c.Backup.Format)
	if err != nil {
		return backup.Settings{}, err
	}
	return backup.Settings{Enabled: c.Backup.Enabled, Frequency: freq, Format: format}, nil
}

// Helper functions to read environment variables

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(EnvPrefix + key); exists {
		return strings.TrimSpace(value)
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) (bool, error) {
	valueStr, exists := os.LookupEnv(EnvPrefix + key)
	if !exists {
		return defaultValue, nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(valueStr))
	if err != nil {
		return false, fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
	}
	return value, nil
}

func getEnvAsInt(key string, defaultValue int) (int, error) {
	valueStr, exists := os.LookupEnv(EnvPrefix + key)
	if !exists {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(valueStr))
	if err != nil {
		return 0, fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
	}
	return value, nil
}
