package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// GlobalConfig represents configuration stored in ~/.config/skb/config.yml.
type GlobalConfig struct {
	DataPath       string `yaml:"data_path,omitempty"`
	MinioEndpoint  string `yaml:"minio_endpoint,omitempty"`
	MinioAccessKey string `yaml:"minio_access_key,omitempty"`
	MinioSecretKey string `yaml:"minio_secret_key,omitempty"`
	MinioUseSSL    bool   `yaml:"minio_use_ssl,omitempty"`
	ReviewBaseURL  string `yaml:"review_base_url,omitempty"`
	QABaseURL      string `yaml:"qa_base_url,omitempty"`
}

const (
	// GlobalConfigDir is the directory name under XDG_CONFIG_HOME.
	GlobalConfigDir = "skb"
	// GlobalConfigFile is the config file name.
	GlobalConfigFile = "config.yml"
)

// Environment variables that override the MinIO settings.
const (
	EnvMinioEndpoint  = "SKB_MINIO_ENDPOINT"
	EnvMinioAccessKey = "SKB_MINIO_ACCESS_KEY"
	EnvMinioSecretKey = "SKB_MINIO_SECRET_KEY"
	EnvMinioUseSSL    = "SKB_MINIO_USE_SSL"
)

// globalConfigCache caches the loaded global config.
var globalConfigCache *GlobalConfig

// GlobalConfigPath returns the path to the global config file.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/skb/config.yml.
func GlobalConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, GlobalConfigDir, GlobalConfigFile)
}

// LoadGlobalConfig loads the global configuration file and applies
// environment overrides. Returns an empty config (not an error) if the file
// doesn't exist.
func LoadGlobalConfig() (*GlobalConfig, error) {
	if globalConfigCache != nil {
		return globalConfigCache, nil
	}

	cfg := &GlobalConfig{}
	if path := GlobalConfigPath(); path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing global config: %w", err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("reading global config: %w", err)
		}
	}

	if cfg.DataPath != "" {
		cfg.DataPath = ExpandPath(cfg.DataPath)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	globalConfigCache = cfg
	return cfg, nil
}

func (c *GlobalConfig) applyEnv() error {
	if v := os.Getenv(EnvMinioEndpoint); v != "" {
		c.MinioEndpoint = v
	}
	if v := os.Getenv(EnvMinioAccessKey); v != "" {
		c.MinioAccessKey = v
	}
	if v := os.Getenv(EnvMinioSecretKey); v != "" {
		c.MinioSecretKey = v
	}
	if v := os.Getenv(EnvMinioUseSSL); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvMinioUseSSL, err)
		}
		c.MinioUseSSL = b
	}
	return nil
}

// ResetGlobalConfigCache clears the cached global config.
// Useful for testing.
func ResetGlobalConfigCache() {
	globalConfigCache = nil
}

// GetDataPath returns the configured default repository from global config.
func GetDataPath() string {
	cfg, err := LoadGlobalConfig()
	if err != nil {
		return ""
	}
	return cfg.DataPath
}

// ErrDataPathNotConfigured is returned when data_path is not set in config.
var ErrDataPathNotConfigured = errors.New("data_path not configured")

// ErrDataPathNotExist is returned when the configured data_path doesn't exist.
var ErrDataPathNotExist = errors.New("data_path does not exist")

// ValidateDataPath returns the data path from global config after validation.
func ValidateDataPath() (string, error) {
	path := GetDataPath()
	if path == "" {
		return "", ErrDataPathNotConfigured
	}
	if !IsRepository(path) {
		return "", fmt.Errorf("%w: %s", ErrDataPathNotExist, path)
	}
	return path, nil
}

// HelpfulConfigMessage returns a helpful message when no repository is found.
func HelpfulConfigMessage() string {
	configPath := GlobalConfigPath()
	return fmt.Sprintf(`No semikb repository found.

Run 'skb init' in a directory, or create %s to set a default:
  mkdir -p %s
  echo 'data_path: /path/to/your/repo' > %s`,
		configPath,
		filepath.Dir(configPath),
		configPath)
}
