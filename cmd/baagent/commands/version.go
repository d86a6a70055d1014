// ABOUTME: Version command reporting the build and the runtime configuration it would serve with
// ABOUTME: Shows chat and embedding models, storage driver and cache backend without opening storage
package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/websiTester/ba-agent-sub000/internal/config"
	"github.com/websiTester/ba-agent-sub000/internal/storage/sqlite"
)

var versionInfo = VersionInfo{
	Version: "dev",
	Commit:  "none",
	Date:    "unknown",
}

// VersionInfo contains build information
type VersionInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// SetVersion sets the version information (called from main)
func SetVersion(version, commit, date string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.Date = date
}

// runtimeInfo is the effective configuration a server started now would use
type runtimeInfo struct {
	ChatModel     string `json:"chatModel"`
	APIKey        bool   `json:"apiKeyConfigured"`
	Embedder      string `json:"embedder"`
	Chunker       string `json:"chunker"`
	StorageDriver string `json:"storageDriver"`
	StoragePath   string `json:"storagePath,omitempty"`
	CacheBackend  string `json:"cacheBackend"`
}

func describeRuntime(cfg *config.Config) runtimeInfo {
	info := runtimeInfo{
		ChatModel:     cfg.OpenAI.ChatModel,
		APIKey:        cfg.HasOpenAIKey(),
		StorageDriver: cfg.Storage.Driver,
		CacheBackend:  cfg.Cache.Backend,
		Chunker:       "heading",
	}

	switch {
	case cfg.Embedding.Provider == "hash", !info.APIKey:
		info.Embedder = fmt.Sprintf("hash (%d dims)", cfg.Embedding.Dimension)
	default:
		info.Embedder = cfg.OpenAI.EmbeddingModel
	}
	if cfg.Chunker.Mode != "heading" && info.APIKey {
		info.Chunker = "model (" + cfg.OpenAI.ChatModel + ")"
	}
	if cfg.Storage.Driver == "sqlite" {
		info.StoragePath = cfg.Storage.Path
		if info.StoragePath == "" {
			info.StoragePath = sqlite.DefaultDBPath()
		}
	}
	return info
}

// NewVersionCmd creates the version command
func NewVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version and runtime configuration",
		Long: `Display the build version, commit and date, followed by the models,
storage driver and cache backend resolved from config file and environment.

The configuration is only read; no database, cache or model is contacted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVersion(cmd.OutOrStdout())
		},
	}

	return cmd
}

func runVersion(w io.Writer) error {
	cfg, cfgErr := config.Load(configPath)

	if useJSON() {
		out := map[string]interface{}{"build": versionInfo}
		if cfgErr != nil {
			out["configError"] = cfgErr.Error()
		} else {
			out["runtime"] = describeRuntime(cfg)
		}
		return printJSON(w, out)
	}

	fmt.Fprintf(w, "ba-agent %s\n", versionInfo.Version)
	fmt.Fprintf(w, "Commit: %s\n", versionInfo.Commit)
	fmt.Fprintf(w, "Built:  %s\n", versionInfo.Date)
	fmt.Fprintln(w)

	if cfgErr != nil {
		fmt.Fprintf(w, "Config: unavailable (%v)\n", cfgErr)
		return nil
	}

	info := describeRuntime(cfg)
	key := "not set"
	if info.APIKey {
		key = "set"
	}
	fmt.Fprintf(w, "Chat model:  %s (API key %s)\n", info.ChatModel, key)
	fmt.Fprintf(w, "Embedder:    %s\n", info.Embedder)
	fmt.Fprintf(w, "Chunker:     %s\n", info.Chunker)
	if info.StoragePath != "" {
		fmt.Fprintf(w, "Storage:     %s (%s)\n", info.StorageDriver, info.StoragePath)
	} else {
		fmt.Fprintf(w, "Storage:     %s\n", info.StorageDriver)
	}
	fmt.Fprintf(w, "Cache:       %s\n", info.CacheBackend)
	return nil
}
