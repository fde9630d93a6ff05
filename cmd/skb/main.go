// Package main provides the skb CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/matsen/semikb/internal/blob"
	"github.com/matsen/semikb/internal/config"
	"github.com/matsen/semikb/internal/kg"
	"github.com/matsen/semikb/internal/logging"
	"github.com/matsen/semikb/internal/pipeline"
	"github.com/matsen/semikb/internal/source"
	"github.com/matsen/semikb/internal/storage"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	// humanOutput controls whether to use human-readable output
	humanOutput bool
	verbose     bool
	jsonLogs    bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Print the error since we have SilenceErrors: true
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "skb",
	Short: "Semi-structured product knowledge base CLI",
	Long: `skb builds a typed knowledge graph from product metadata, reviews and Q&A.

Products become nodes, co-purchase and co-view lists become edges, and
selected attributes (brand, price, ...) can be promoted to nodes of their
own. Every node renders to a text document for retrieval.

Graphs are stored as compressed JSONL bundles with an ephemeral SQLite
index for keyword search. All commands output JSON by default.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "Write logs as JSON lines")
	rootCmd.Version = Version
}

// newLogger returns the stderr logger configured by the global flags.
func newLogger() *log.Logger {
	return logging.New(logging.Options{Debug: verbose, JSON: jsonLogs})
}

// getStartingDirectory returns the directory to start searching for a repository.
// Checks global config data_path first, then current working directory.
func getStartingDirectory() (string, int) {
	if root := config.GetDataPath(); root != "" {
		return root, 0
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", outputError(ExitError, "getting current directory: %v", err)
	}
	return cwd, 0
}

// mustFindRepository finds and validates the repository, exits on error.
// Returns the repository root path.
func mustFindRepository() string {
	cwd, err := os.Getwd()
	if err == nil {
		if root, err := config.FindRepository(cwd); err == nil {
			return root
		}
	}

	start, exitCode := getStartingDirectory()
	if exitCode != 0 {
		os.Exit(exitCode)
	}

	repoRoot, err := config.FindRepository(start)
	if err != nil {
		fmt.Fprintln(os.Stderr, config.HelpfulConfigMessage())
		os.Exit(ExitConfigError)
	}
	return repoRoot
}

// mustLoadConfig loads and validates configuration, exits on error.
func mustLoadConfig(repoRoot string) *config.Config {
	cfg, err := config.Load(repoRoot)
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		exitWithError(ExitConfigError, "invalid config: %v", err)
	}
	return cfg
}

// mustLoadGlobalConfig loads the global config, exits on error.
func mustLoadGlobalConfig() *config.GlobalConfig {
	g, err := config.LoadGlobalConfig()
	if err != nil {
		exitWithError(ExitConfigError, "loading global config: %v", err)
	}
	return g
}

// mustOpenDatabase opens the SQLite database, exits on error.
// The caller is responsible for calling Close() on the returned DB.
func mustOpenDatabase(repoRoot string) *storage.DB {
	if err := os.MkdirAll(config.CachePath(repoRoot), 0755); err != nil {
		exitWithError(ExitError, "creating cache directory: %v", err)
	}
	db, err := storage.OpenDB(config.DBPath(repoRoot))
	if err != nil {
		exitWithError(ExitError, "opening database: %v", err)
	}
	return db
}

// mustOpenStore returns the bundle store selected by the repository config.
func mustOpenStore(ctx context.Context, repoRoot string, cfg *config.Config) blob.Store {
	if cfg.Store != config.StoreMinio {
		return blob.NewLocalStore(config.ProcessedPath(repoRoot))
	}

	g := mustLoadGlobalConfig()
	if g.MinioEndpoint == "" {
		exitWithError(ExitConfigError, "store %q requires minio_endpoint in %s or %s", config.StoreMinio, config.GlobalConfigPath(), config.EnvMinioEndpoint)
	}
	store, err := blob.DialMinio(ctx, blob.MinioOptions{
		Endpoint:  g.MinioEndpoint,
		AccessKey: g.MinioAccessKey,
		SecretKey: g.MinioSecretKey,
		UseSSL:    g.MinioUseSSL,
		Bucket:    cfg.MinioBucket,
		Prefix:    cfg.MinioPrefix,
	})
	if err != nil {
		exitWithError(ExitError, "connecting to minio: %v", err)
	}
	return store
}

// pipelineOptions maps the repository config onto construction options.
func pipelineOptions(cfg *config.Config, logger *log.Logger) pipeline.Options {
	return pipeline.Options{
		Categories:    cfg.Categories,
		MetaLinkTypes: cfg.MetaLinkTypes,
		MaxEntries:    cfg.MaxEntries,
		Undirected:    cfg.Undirected,
		Logger:        logger,
	}
}

// mustBuild runs the pipeline, loading cached bundles where possible.
func mustBuild(ctx context.Context, repoRoot string, cfg *config.Config, opts pipeline.Options) *pipeline.Result {
	src := source.NewFileSource(config.RawPath(repoRoot))
	store := mustOpenStore(ctx, repoRoot, cfg)
	res, err := pipeline.NewBuilder(src, store, opts).Build(ctx)
	if err != nil {
		if pipeline.IsNotFound(err) {
			exitWithError(ExitNotFound, "%v\n\nRun 'skb fetch' to download the raw archives.", err)
		}
		exitWithError(exitCodeFor(err), "building graph: %v", err)
	}
	return res
}

// mustLoadGraph returns the graph for the repository config.
func mustLoadGraph(ctx context.Context) *pipeline.Result {
	repoRoot := mustFindRepository()
	cfg := mustLoadConfig(repoRoot)
	return mustBuild(ctx, repoRoot, cfg, pipelineOptions(cfg, newLogger()))
}

// mustResolveNode maps an argument to a node id. Natural keys take
// precedence over numeric ids.
func mustResolveNode(g *kg.Graph, arg string) int {
	if id, err := g.LookupID(arg); err == nil {
		return id
	}
	id, err := strconv.Atoi(arg)
	if err != nil {
		exitWithError(ExitNotFound, "unknown node: %s", arg)
	}
	if id < 0 || id >= g.Len() {
		exitWithError(ExitNotFound, "node id %d out of range [0, %d)", id, g.Len())
	}
	return id
}
