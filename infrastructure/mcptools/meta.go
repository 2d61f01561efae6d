package mcptools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// MetaTool handles the aipi_meta MCP tool.
type MetaTool struct {
	snapshots Snapshotter
}

// NewMetaTool creates a MetaTool.
func NewMetaTool(snapshots Snapshotter) *MetaTool {
	return &MetaTool{snapshots: snapshots}
}

// Definition returns the MCP tool definition for aipi_meta.
func (t *MetaTool) Definition() mcp.Tool {
	return mcp.NewTool("aipi_meta",
		mcp.WithDescription(
			"Describe the loaded dataset: release tag, generation time, dataset hash, the pillar "+
				"weighting and the indicator catalogue, as JSON.",
		),
	)
}

// Handle processes the aipi_meta tool call.
func (t *MetaTool) Handle(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap, errResult := snapshotOrError(ctx, t.snapshots)
	if errResult != nil {
		return errResult, nil
	}
	meta, err := snap.MetaDocument()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("meta document unreadable: %v", err)), nil
	}
	return jsonResult(meta)
}
