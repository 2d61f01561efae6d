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

const (
	defaultRankingLimit = 20
	maxRankingLimit     = 100
)

// RankingsTool handles the aipi_rankings MCP tool.
type RankingsTool struct {
	snapshots   Snapshotter
	defaultMode domain.Mode
}

// NewRankingsTool creates a RankingsTool.
func NewRankingsTool(snapshots Snapshotter, defaultMode domain.Mode) *RankingsTool {
	return &RankingsTool{snapshots: snapshots, defaultMode: defaultMode}
}

// Definition returns the MCP tool definition for aipi_rankings.
func (t *RankingsTool) Definition() mcp.Tool {
	return mcp.NewTool("aipi_rankings",
		mcp.WithDescription(
			"List providers ranked by AI Pluralism Index score. Optionally filter by a name "+
				"or id substring and reorder by name, score or coverage.",
		),
		mcp.WithString("mode",
			mcp.Description("Scoring mode: evidence treats unknown indicators as zero, known_only ignores them"),
			mcp.Enum(string(domain.ModeEvidence), string(domain.ModeKnownOnly)),
		),
		mcp.WithString("query",
			mcp.Description("Case-insensitive substring of provider name or id"),
		),
		mcp.WithString("sort",
			mcp.Description("Order by rank (default), name, aipi or coverage"),
			mcp.Enum("rank", "name", "aipi", "coverage"),
		),
		mcp.WithString("dir",
			mcp.Description("asc (default) or desc"),
			mcp.Enum("asc", "desc"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max providers (default: 20, max: 100)"),
		),
	)
}

// Handle processes the aipi_rankings tool call.
func (t *RankingsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mode, err := modeArg(req, t.defaultMode)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sortKey, err := application.ParseSortKey(req.GetString("sort", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	desc := strings.EqualFold(req.GetString("dir", ""), "desc")
	limit := min(max(intArg(req, "limit", defaultRankingLimit), 1), maxRankingLimit)

	snap, errResult := snapshotOrError(ctx, t.snapshots)
	if errResult != nil {
		return errResult, nil
	}

	scores := snap.Index.Search(mode, application.RankingQuery{
		Query: req.GetString("query", ""),
		Sort:  sortKey,
		Desc:  desc,
	})
	if len(scores) == 0 {
		return mcp.NewToolResultText("No providers match."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d providers (mode: %s)", len(scores), mode)
	if len(scores) > limit {
		fmt.Fprintf(&b, ", showing %d", limit)
		scores = scores[:limit]
	}
	b.WriteString("\n\n")
	for _, s := range scores {
		fmt.Fprintf(&b, "#%d %s (%s) AIPI %s, coverage %s\n",
			s.Rank, s.ProviderName, s.ProviderID, export.FormatAIPI(s.AIPI), export.FormatPercent(s.Coverage))
		parts := make([]string, 0, domain.NumPillars)
		for _, p := range domain.Pillars {
			parts = append(parts, fmt.Sprintf("%s %s", p, export.FormatPillar(s.Pillars.Get(p))))
		}
		fmt.Fprintf(&b, "    %s\n", strings.Join(parts, " | "))
	}
	return mcp.NewToolResultText(b.String()), nil
}
