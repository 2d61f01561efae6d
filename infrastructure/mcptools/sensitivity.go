package mcptools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ahrav/go-aipi/internal/domain"
)

// SensitivityTool handles the aipi_sensitivity MCP tool.
type SensitivityTool struct {
	snapshots   Snapshotter
	defaultMode domain.Mode
}

// NewSensitivityTool creates a SensitivityTool.
func NewSensitivityTool(snapshots Snapshotter, defaultMode domain.Mode) *SensitivityTool {
	return &SensitivityTool{snapshots: snapshots, defaultMode: defaultMode}
}

// Definition returns the MCP tool definition for aipi_sensitivity.
func (t *SensitivityTool) Definition() mcp.Tool {
	return mcp.NewTool("aipi_sensitivity",
		mcp.WithDescription(
			"Report how robust the ranking is: the Spearman correlation between the evidence and "+
				"known_only modes, and how ranks move when each pillar is left out.",
		),
		mcp.WithString("mode",
			mcp.Description("Mode whose ranking is ablated: evidence (default) or known_only"),
			mcp.Enum(string(domain.ModeEvidence), string(domain.ModeKnownOnly)),
		),
	)
}

// Handle processes the aipi_sensitivity tool call.
func (t *SensitivityTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mode, err := modeArg(req, t.defaultMode)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	snap, errResult := snapshotOrError(ctx, t.snapshots)
	if errResult != nil {
		return errResult, nil
	}
	report := snap.Index.Sensitivity(mode)

	var b strings.Builder
	fmt.Fprintf(&b, "Providers compared: %d\n", report.Providers)
	fmt.Fprintf(&b, "Spearman rho (evidence vs known_only): %s\n", formatRho(report.Rho))

	for _, a := range report.Ablations {
		fmt.Fprintf(&b, "\nWithout %s (%s): rho %s\n", a.Dropped, a.Mode, formatRho(a.Rho))
		moved := 0
		for _, s := range a.Shifts {
			if s.Shift == 0 {
				continue
			}
			moved++
			fmt.Fprintf(&b, "  %s: #%d -> #%d (%+d)\n", s.ProviderName, s.Rank, s.AblatedRank, s.Shift)
		}
		if moved == 0 {
			b.WriteString("  no rank changes\n")
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}

func formatRho(rho *float64) string {
	if rho == nil {
		return "undefined"
	}
	return fmt.Sprintf("%.3f", *rho)
}
