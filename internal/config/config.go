// Package config handles repository configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/matsen/semikb/internal/blob"
	"github.com/matsen/semikb/internal/catalog"
)

// Config represents repository configuration stored in .semikb/config.json.
type Config struct {
	Categories          []string `json:"categories"`
	MetaLinkTypes       []string `json:"meta_link_types"`
	MaxEntries          int      `json:"max_entries"`
	Undirected          bool     `json:"undirected"`
	Store               string   `json:"store"`                          // local or minio
	MinioBucket         string   `json:"minio_bucket,omitempty"`         // Bucket for the minio store
	MinioPrefix         string   `json:"minio_prefix,omitempty"`         // Object key prefix for the minio store
	DownloadConcurrency int      `json:"download_concurrency,omitempty"` // Parallel archive downloads
}

const (
	SemikbDir     = ".semikb"
	ConfigFile    = "config.json"
	RawDir        = "raw"
	ProcessedDir  = "processed"
	CacheDir      = "cache"
	DBFile        = "nodes.db"
	StoreLocal    = "local"
	StoreMinio    = "minio"
	DefaultMax    = 25
	DefaultWorker = 4
)

// ValidStores lists the supported bundle stores.
var ValidStores = []string{StoreLocal, StoreMinio}

// Default returns the configuration written by skb init.
func Default() *Config {
	return &Config{
		Categories:          []string{catalog.All},
		MetaLinkTypes:       []string{"brand"},
		MaxEntries:          DefaultMax,
		Undirected:          true,
		Store:               StoreLocal,
		DownloadConcurrency: DefaultWorker,
	}
}

// SemikbPath returns the path to the .semikb directory from a root path.
func SemikbPath(root string) string {
	return filepath.Join(root, SemikbDir)
}

// ConfigPath returns the path to config.json from a root path.
func ConfigPath(root string) string {
	return filepath.Join(root, SemikbDir, ConfigFile)
}

// RawPath returns the directory holding downloaded raw archives.
func RawPath(root string) string {
	return filepath.Join(root, SemikbDir, RawDir)
}

// ProcessedPath returns the root directory of the local bundle store.
func ProcessedPath(root string) string {
	return filepath.Join(root, SemikbDir, ProcessedDir)
}

// CachePath returns the path to the cache directory from a root path.
func CachePath(root string) string {
	return filepath.Join(root, SemikbDir, CacheDir)
}

// DBPath returns the path to nodes.db from a root path.
func DBPath(root string) string {
	return filepath.Join(root, SemikbDir, CacheDir, DBFile)
}

// IsRepository checks if the given path contains a semikb repository.
func IsRepository(root string) bool {
	info, err := os.Stat(SemikbPath(root))
	return err == nil && info.IsDir()
}

// FindRepository walks up from the given path to find a semikb repository.
// Returns the repository root path or an error if not found.
func FindRepository(start string) (string, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	for {
		if IsRepository(abs) {
			return abs, nil
		}

		parent := filepath.Dir(abs)
		if parent == abs {
			return "", fmt.Errorf("not in a semikb repository (no .semikb directory found)")
		}
		abs = parent
	}
}

// Init creates the repository layout under root and writes cfg.
func Init(root string, cfg *Config) error {
	for _, dir := range []string{RawPath(root), ProcessedPath(root), CachePath(root)} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return cfg.Save(root)
}

// Load reads configuration from the repository at the given root. Missing
// fields take their defaults.
func Load(root string) (*Config, error) {
	data, err := os.ReadFile(ConfigPath(root))
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Save writes configuration to the repository at the given root.
func (c *Config) Save(root string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(ConfigPath(root), data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// Validate checks categories, the store and numeric bounds.
func (c *Config) Validate() error {
	if _, err := catalog.Resolve(c.Categories); err != nil {
		return err
	}
	if err := blob.ValidateKinds(c.MetaLinkTypes); err != nil {
		return err
	}
	if err := ValidateStore(c.Store); err != nil {
		return err
	}
	if c.Store == StoreMinio && c.MinioBucket == "" {
		return fmt.Errorf("store %q requires minio_bucket", StoreMinio)
	}
	if c.MaxEntries < 0 {
		return fmt.Errorf("max_entries must be >= 0, got %d", c.MaxEntries)
	}
	if c.DownloadConcurrency < 0 {
		return fmt.Errorf("download_concurrency must be >= 0, got %d", c.DownloadConcurrency)
	}
	return nil
}

// ValidateStore checks that the store value is valid.
func ValidateStore(store string) error {
	if store == "" {
		return nil // Empty defaults to "local"
	}

	for _, valid := range ValidStores {
		if store == valid {
			return nil
		}
	}

	return fmt.Errorf("invalid store: %s (valid: %v)", store, ValidStores)
}

// ExpandPath expands ~ to the user's home directory.
// Returns the original path unchanged if it doesn't start with ~.
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path // Return original if we can't get home directory
	}

	return filepath.Join(home, path[1:])
}
