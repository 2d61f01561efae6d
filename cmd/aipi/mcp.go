package main

import (
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/ahrav/go-aipi/infrastructure/mcptools"
)

func newMCPCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the index as MCP tools over stdio",
		Long: "Serve the index to MCP clients over stdin/stdout. Logs go to stderr so " +
			"they never corrupt the protocol stream.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.config()
			if err != nil {
				return err
			}
			svc, err := root.service(cmd.Context(), cfg, nil)
			if err != nil {
				return err
			}
			klog.FromContext(cmd.Context()).Info("serving MCP over stdio", "source", cfg.Source.Location())
			return mcptools.Serve(svc, cfg.Mode(), version)
		},
	}
}
