package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/flowgraph/chatflow/internal/app/dto"
	"github.com/flowgraph/chatflow/internal/app/services"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewHistoryCommand creates the history command group.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Export or import archived version history",
	}
	cmd.AddCommand(newHistoryExportCommand(rootOpts))
	cmd.AddCommand(newHistoryImportCommand(rootOpts))
	return cmd
}

func newHistoryExportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Print the archived history of the flow as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(rootOpts, cmd)
			if err != nil {
				return err
			}
			backend, err := cfg.OpenArchive(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = backend.Close() }()

			archive := services.NewVersionArchive(backend, cfg.Storage.Backend, nil)
			records, err := archive.Records(cmd.Context(), cfg.Flow.ID)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(dto.HistoryResponse{FlowID: cfg.Flow.ID, Versions: records})
		},
	}
}

func newHistoryImportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file|->",
		Short: "Validate an exported history and write it to the archive",
		Long: `Read a history in the shape printed by "history export", validate every
version and write it to the configured archive under the configured flow id.
Nothing is written if any version is rejected.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rootOpts, cmd)
			if err != nil {
				return err
			}
			history, err := readHistory(cmd, args[0])
			if err != nil {
				return err
			}

			store, err := newStore(cfg, zap.NewNop())
			if err != nil {
				return err
			}
			if err := store.ImportHistory(history.Versions); err != nil {
				return err
			}

			backend, err := cfg.OpenArchive(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = backend.Close() }()

			n, err := services.NewVersionArchive(backend, cfg.Storage.Backend, nil).Archive(cmd.Context(), store)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "imported %d version(s) into flow %s\n", n, store.FlowID())
			return nil
		},
	}
}

func readHistory(cmd *cobra.Command, path string) (*dto.HistoryResponse, error) {
	var r io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer func() { _ = f.Close() }()
		r = f
	}

	var history dto.HistoryResponse
	if err := json.NewDecoder(r).Decode(&history); err != nil {
		return nil, fmt.Errorf("failed to decode history: %w", err)
	}
	return &history, nil
}
