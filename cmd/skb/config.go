package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matsen/semikb/internal/config"
)

func init() {
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Get or set configuration values",
	Long: `Get or set repository configuration values.

Usage:
  skb config                              # Show all config
  skb config categories                   # Get specific value
  skb config categories Appliances,Software
  skb config meta-link-types brand,price

Keys:
  categories            Comma-separated categories, or "all"
  meta-link-types       Comma-separated attributes promoted to nodes
  max-entries           Reviews and Q&A entries rendered per document
  undirected            Whether neighbours include incoming edges
  store                 Bundle store (local, minio)
  minio-bucket          Bucket for the minio store
  minio-prefix          Object key prefix for the minio store
  download-concurrency  Parallel archive downloads`,
	Args: cobra.MaximumNArgs(2),
	RunE: runConfig,
}

// UpdateResponse is the response for config set commands.
type UpdateResponse struct {
	Status string `json:"status"`
	Key    string `json:"key"`
	Value  string `json:"value"`
}

func runConfig(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	cfg, err := config.Load(repoRoot)
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}

	if len(args) == 0 {
		if humanOutput {
			for _, k := range configKeys {
				fmt.Printf("%-21s %s\n", k+":", getConfigValue(cfg, k))
			}
		} else {
			outputJSON(cfg)
		}
		return nil
	}

	key := normalizeKey(args[0])
	if !isConfigKey(key) {
		exitWithError(ExitError, "unknown configuration key: %s", args[0])
	}

	if len(args) == 1 {
		value := getConfigValue(cfg, key)
		if humanOutput {
			fmt.Println(value)
		} else {
			outputJSON(map[string]string{strings.ReplaceAll(key, "-", "_"): value})
		}
		return nil
	}

	value := args[1]
	if err := setConfigValue(cfg, key, value); err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	if err := cfg.Validate(); err != nil {
		exitWithError(ExitConfigError, "invalid config: %v", err)
	}
	if err := cfg.Save(repoRoot); err != nil {
		exitWithError(ExitError, "saving config: %v", err)
	}

	if humanOutput {
		fmt.Printf("Set %s = %s\n", key, value)
	} else {
		outputJSON(UpdateResponse{Status: "updated", Key: key, Value: value})
	}
	return nil
}

var configKeys = []string{
	"categories",
	"meta-link-types",
	"max-entries",
	"undirected",
	"store",
	"minio-bucket",
	"minio-prefix",
	"download-concurrency",
}

// normalizeKey converts underscore keys (max_entries) to dash form.
func normalizeKey(key string) string {
	return strings.ToLower(strings.ReplaceAll(key, "_", "-"))
}

func isConfigKey(key string) bool {
	for _, k := range configKeys {
		if k == key {
			return true
		}
	}
	return false
}

func getConfigValue(cfg *config.Config, key string) string {
	switch key {
	case "categories":
		return strings.Join(cfg.Categories, ",")
	case "meta-link-types":
		return strings.Join(cfg.MetaLinkTypes, ",")
	case "max-entries":
		return strconv.Itoa(cfg.MaxEntries)
	case "undirected":
		return strconv.FormatBool(cfg.Undirected)
	case "store":
		return cfg.Store
	case "minio-bucket":
		return cfg.MinioBucket
	case "minio-prefix":
		return cfg.MinioPrefix
	case "download-concurrency":
		return strconv.Itoa(cfg.DownloadConcurrency)
	}
	return ""
}

func setConfigValue(cfg *config.Config, key, value string) error {
	switch key {
	case "categories":
		cfg.Categories = splitList(value)
	case "meta-link-types":
		cfg.MetaLinkTypes = splitList(value)
	case "max-entries":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("max-entries: %w", err)
		}
		cfg.MaxEntries = n
	case "undirected":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("undirected: %w", err)
		}
		cfg.Undirected = b
	case "store":
		cfg.Store = value
	case "minio-bucket":
		cfg.MinioBucket = value
	case "minio-prefix":
		cfg.MinioPrefix = value
	case "download-concurrency":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("download-concurrency: %w", err)
		}
		cfg.DownloadConcurrency = n
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(value string) []string {
	out := []string{}
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
