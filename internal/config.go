package internal

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/dailypy/mediaflow/internal/database"
	"github.com/dailypy/mediaflow/internal/ffmpeg"
	"github.com/dailypy/mediaflow/internal/ingest"
	"github.com/dailypy/mediaflow/internal/scan"
	"github.com/dailypy/mediaflow/internal/storage"
	"github.com/dailypy/mediaflow/pkg/logger"
	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/mitchellh/go-homedir"
)

const DefaultConfigPath = "~/.config/mediaflow/config.yaml"

var ErrUnknownEnvironment = errors.New("unknown environment")

// MediaflowConfig is the struct used to contain the
// various user config supplied by file, or by
// environment variables.
//
// Database and Storage are the base connection settings. Each named entry in
// Environments is layered on top of them, so an environment need only declare the
// settings which differ (typically credentials and the bucket).
type MediaflowConfig struct {
	LogLevel     string                       `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	Environment  string                       `yaml:"environment" env:"MEDIAFLOW_ENV" env-default:"test"`
	Database     database.DatabaseConfig      `yaml:"database"`
	Storage      storage.Config               `yaml:"storage"`
	Environments map[string]EnvironmentConfig `yaml:"environments"`
	Ffmpeg       ffmpeg.Config                `yaml:"ffmpeg"`
	Scan         scan.Config                  `yaml:"scan"`
	Ingest       ingest.Config                `yaml:"ingest"`
	CoverBackend string                       `yaml:"cover_backend" env:"COVER_BACKEND"`
	MetricsFile  string                       `yaml:"metrics_file" env:"METRICS_FILE"`
}

// EnvironmentConfig holds the collaborator credentials for a single
// named environment (e.g. 'test' or 'prod').
type EnvironmentConfig struct {
	Database database.DatabaseConfig `yaml:"database"`
	Storage  storage.Config          `yaml:"storage"`
}

// LoadConfig reads the YAML configuration at the path provided (expanding a leading
// '~'), applying environment variable overrides and defaults. If the path is the
// default path and no file exists there, the configuration is read from the
// environment alone.
func LoadConfig(path string) (*MediaflowConfig, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath
	}

	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("failed to expand config path '%s': %w", path, err)
	}

	config := &MediaflowConfig{}
	if _, statErr := os.Stat(expanded); statErr != nil && !explicit {
		log.Emit(logger.DEBUG, "No config file found at %s, reading config from environment\n", expanded)
		if err := cleanenv.ReadEnv(config); err != nil {
			return nil, fmt.Errorf("failed to load configuration from environment: %w", err)
		}
	} else if err := cleanenv.ReadConfig(expanded, config); err != nil {
		return nil, fmt.Errorf("failed to load configuration from '%s': %w", expanded, err)
	}

	return config, nil
}

// ResolveEnvironment returns the connection settings for the environment named. An
// empty name selects the configured default environment. When no environments
// are configured at all, the base settings are returned for any name.
func (config *MediaflowConfig) ResolveEnvironment(name string) (EnvironmentConfig, error) {
	if name == "" {
		name = config.Environment
	}

	base := EnvironmentConfig{Database: config.Database, Storage: config.Storage}
	if len(config.Environments) == 0 {
		return base, nil
	}

	env, ok := config.Environments[name]
	if !ok {
		return EnvironmentConfig{}, fmt.Errorf("%w '%s' (available: %v)", ErrUnknownEnvironment, name, config.EnvironmentNames())
	}

	return env.layerOnto(base), nil
}

// EnvironmentNames returns the names of every configured environment, sorted.
func (config *MediaflowConfig) EnvironmentNames() []string {
	names := make([]string, 0, len(config.Environments))
	for name := range config.Environments {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Validate checks the ingest configuration using the 'validate' struct tags.
func (config *MediaflowConfig) Validate() error {
	validate := validator.New()
	if err := validate.Struct(config.Ingest); err != nil {
		return fmt.Errorf("invalid ingest configuration: %w", err)
	}
	if err := validate.Var(config.CoverBackend, "omitempty,oneof=ffmpeg-seek transcoder-sample"); err != nil {
		return fmt.Errorf("invalid cover backend '%s': %w", config.CoverBackend, err)
	}

	return nil
}

// Validate checks the database and object store settings of the environment.
func (env EnvironmentConfig) Validate() error {
	if err := validator.New().Struct(env); err != nil {
		return fmt.Errorf("invalid environment configuration: %w", err)
	}

	return nil
}

func (env EnvironmentConfig) layerOnto(base EnvironmentConfig) EnvironmentConfig {
	db, bdb := env.Database, base.Database
	db.Dialect = orDefault(db.Dialect, bdb.Dialect)
	db.User = orDefault(db.User, bdb.User)
	db.Password = orDefault(db.Password, bdb.Password)
	db.Name = orDefault(db.Name, bdb.Name)
	db.Host = orDefault(db.Host, bdb.Host)
	db.Port = orDefault(db.Port, bdb.Port)
	db.SSLMode = orDefault(db.SSLMode, bdb.SSLMode)
	db.Path = orDefault(db.Path, bdb.Path)
	db.DSN = orDefault(db.DSN, bdb.DSN)
	if db.ConnectAttempts == 0 {
		db.ConnectAttempts = bdb.ConnectAttempts
	}

	st, bst := env.Storage, base.Storage
	st.Backend = orDefault(st.Backend, bst.Backend)
	st.Bucket = orDefault(st.Bucket, bst.Bucket)
	st.Region = orDefault(st.Region, bst.Region)
	st.AccessKeyID = orDefault(st.AccessKeyID, bst.AccessKeyID)
	st.SecretAccessKey = orDefault(st.SecretAccessKey, bst.SecretAccessKey)
	st.Endpoint = orDefault(st.Endpoint, bst.Endpoint)
	st.BaseURL = orDefault(st.BaseURL, bst.BaseURL)
	st.RootDir = orDefault(st.RootDir, bst.RootDir)

	return EnvironmentConfig{Database: db, Storage: st}
}

func orDefault(val string, fallback string) string {
	if val == "" {
		return fallback
	}

	return val
}
