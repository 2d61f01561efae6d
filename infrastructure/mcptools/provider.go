package mcptools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ahrav/go-aipi/infrastructure/export"
	"github.com/ahrav/go-aipi/internal/application"
	"github.com/ahrav/go-aipi/internal/domain"
)

// ProviderTool handles the aipi_provider MCP tool.
type ProviderTool struct {
	snapshots   Snapshotter
	defaultMode domain.Mode
}

// NewProviderTool creates a ProviderTool.
func NewProviderTool(snapshots Snapshotter, defaultMode domain.Mode) *ProviderTool {
	return &ProviderTool{snapshots: snapshots, defaultMode: defaultMode}
}

// Definition returns the MCP tool definition for aipi_provider.
func (t *ProviderTool) Definition() mcp.Tool {
	return mcp.NewTool("aipi_provider",
		mcp.WithDescription(
			"Show one provider's AIPI profile: pillar scores, coverage, each indicator's status "+
				"and evidence links, and the areas most in need of evidence.",
		),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Provider id as listed by aipi_rankings"),
		),
		mcp.WithString("mode",
			mcp.Description("Scoring mode: evidence (default) or known_only"),
			mcp.Enum(string(domain.ModeEvidence), string(domain.ModeKnownOnly)),
		),
		mcp.WithString("filter",
			mcp.Description("Indicators to include: all (default), with_evidence or missing_evidence"),
			mcp.Enum(string(application.FilterAll), string(application.FilterWithEvidence), string(application.FilterMissingEvidence)),
		),
		mcp.WithString("sort",
			mcp.Description("Indicator order: score_desc (default) or alpha"),
			mcp.Enum(string(application.SortScoreDesc), string(application.SortAlpha)),
		),
	)
}

// Handle processes the aipi_provider tool call.
func (t *ProviderTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := strings.TrimSpace(req.GetString("id", ""))
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}
	mode, err := modeArg(req, t.defaultMode)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	filter, err := application.ParseEvidenceFilter(req.GetString("filter", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	order, err := application.ParseIndicatorSort(req.GetString("sort", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	snap, errResult := snapshotOrError(ctx, t.snapshots)
	if errResult != nil {
		return errResult, nil
	}
	p, err := snap.Index.Profile(id, mode, application.ProfileOptions{Filter: filter, Sort: order})
	if err != nil {
		return notFound(snap, id, err), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s)\nRank #%d, AIPI %s, coverage %s, mode %s\n",
		p.Score.ProviderName, p.Score.ProviderID, p.Score.Rank,
		export.FormatAIPI(p.Score.AIPI), export.FormatPercent(p.Score.Coverage), mode)

	for _, g := range p.Groups {
		fmt.Fprintf(&b, "\n## %s: %s (coverage %s)\n", g.Pillar, export.FormatPillar(g.Score), export.FormatPercent(g.Coverage))
		if len(g.Indicators) == 0 {
			b.WriteString("  (no indicators)\n")
			continue
		}
		for _, v := range g.Indicators {
			score := "n/a"
			if s, ok := v.Score(mode); ok {
				score = export.FormatPillar(s)
			}
			fmt.Fprintf(&b, "  - %s [%s] score %s", v.IndicatorName, v.Status, score)
			if len(v.EvidenceURLs) > 0 {
				fmt.Fprintf(&b, " evidence: %s", strings.Join(v.EvidenceURLs, ", "))
			}
			b.WriteByte('\n')
		}
	}

	if p.ImprovementSummary != "" {
		fmt.Fprintf(&b, "\nMissing evidence: %s.\n", p.ImprovementSummary)
	}
	return mcp.NewToolResultText(b.String()), nil
}
