// Package cli implements the chatflow command line.
package cli

import (
	"fmt"

	"github.com/flowgraph/chatflow/internal/app/services"
	"github.com/flowgraph/chatflow/internal/config"
	"github.com/flowgraph/chatflow/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// BuildInfo identifies the binary.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigFile string
	EnvFile    string
}

// NewRootCommand creates the root command for the chatflow CLI.
func NewRootCommand(info BuildInfo) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "chatflow",
		Short:         "chatflow - chatbot flow graph store",
		Long:          "Edit, version and archive chatbot conversation flows.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags; names map onto config keys in internal/config
	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigFile, "config", "c", "", "config file (default ./chatflow.yaml if present)")
	pf.StringVar(&opts.EnvFile, "env-file", "", "dotenv file (default ./.env if present)")
	pf.String("log-level", config.DefaultLogLevel, "log level (debug|info|warn|error)")
	pf.String("log-format", config.DefaultLogFormat, "log format (json|console)")
	pf.String("flow-id", config.DefaultFlowID, "id of the flow to serve")
	pf.String("backend", config.DefaultBackend, "version archive backend (memory|sqlite|postgres)")
	pf.String("dsn", "", "archive data source name")
	pf.String("table", config.DefaultTable, "archive table name")
	pf.String("codec", config.DefaultCodec, "snapshot codec (msgpack|json)")
	pf.String("compression", config.DefaultCompression, "snapshot compression (none|gzip|zstd)")
	pf.Int("max-versions", 0, "keep only the newest N versions in memory (0 keeps all)")

	cmd.AddCommand(NewVersionCommand(info))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewDemoCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))

	return cmd
}

// loadConfig resolves configuration for cmd, honouring only flags the user set.
func loadConfig(opts *RootOptions, cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(config.Options{
		File:    opts.ConfigFile,
		EnvFile: opts.EnvFile,
		Flags:   cmd.Flags(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the process logger from cfg.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}

// newStore builds an initialized store for the configured flow.
func newStore(cfg *config.Config, logger *zap.Logger) (*services.FlowGraphStore, error) {
	store := services.NewFlowGraphStore(
		services.WithFlowID(cfg.Flow.ID),
		services.WithLogger(logger),
		services.WithMaxVersions(cfg.History.MaxVersions),
	)
	if err := store.Initialize(); err != nil {
		return nil, err
	}
	return store, nil
}
