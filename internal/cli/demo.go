package cli

import (
	"encoding/json"
	"fmt"

	"github.com/flowgraph/chatflow/internal/app/dto"
	"github.com/flowgraph/chatflow/internal/app/services"
	"github.com/flowgraph/chatflow/internal/core/graph"
	"github.com/spf13/cobra"
)

// DemoStep records the graph size after one store operation.
type DemoStep struct {
	Op     string `json:"op"`
	Result string `json:"result,omitempty"`
	Nodes  int    `json:"nodes"`
	Edges  int    `json:"edges"`
}

// DemoResult is printed by the demo command.
type DemoResult struct {
	Steps []DemoStep       `json:"steps"`
	Flow  dto.FlowResponse `json:"flow"`
}

// NewDemoCommand creates the demo command.
func NewDemoCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run an edit session and print the resulting flow",
		Long: `Run a short edit session against a fresh store: add a bot reply,
connect it, save a version, delete the reply, then load the saved version
back. Prints every step and the final flow as JSON.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(rootOpts, cmd)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			store, err := newStore(cfg, logger)
			if err != nil {
				return err
			}
			result, err := RunDemo(store)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
}

// RunDemo plays the reference edit session on an initialized store.
func RunDemo(store *services.FlowGraphStore) (*DemoResult, error) {
	res := &DemoResult{}
	step := func(op, result string) error {
		stats, err := store.Stats()
		if err != nil {
			return err
		}
		res.Steps = append(res.Steps, DemoStep{Op: op, Result: result, Nodes: stats.Nodes, Edges: stats.Edges})
		return nil
	}

	if err := step("initialize", "v1"); err != nil {
		return nil, err
	}

	id, err := store.AddNode(graph.NodeTypeBotReply, graph.Position{})
	if err != nil {
		return nil, fmt.Errorf("add node: %w", err)
	}
	if err := step("addNode", id); err != nil {
		return nil, err
	}

	edgeID, err := store.Connect(services.SeedReplyID, id)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := step("connect", edgeID); err != nil {
		return nil, err
	}

	v, err := store.SaveVersion()
	if err != nil {
		return nil, fmt.Errorf("save version: %w", err)
	}
	if err := step("saveVersion", fmt.Sprintf("v%d", v)); err != nil {
		return nil, err
	}

	if err := store.RemoveNode(id); err != nil {
		return nil, fmt.Errorf("remove node: %w", err)
	}
	if err := step("removeNode", id); err != nil {
		return nil, err
	}

	if err := store.LoadVersion(v); err != nil {
		return nil, fmt.Errorf("load version: %w", err)
	}
	if err := step("loadVersion", fmt.Sprintf("v%d", v)); err != nil {
		return nil, err
	}

	nodes, _ := store.Nodes()
	edges, _ := store.Edges()
	current, _ := store.CurrentVersion()
	res.Flow = dto.FlowResponse{FlowID: store.FlowID(), CurrentVersion: current, Nodes: nodes, Edges: edges}
	return res, nil
}
