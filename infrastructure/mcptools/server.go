// Package mcptools exposes the index to MCP clients.
//
// Each tool is a struct holding its dependencies, a Definition method that
// returns the tool schema and a Handle method that answers calls. Tool
// failures are reported as error results, never as protocol errors.
package mcptools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ahrav/go-aipi/internal/application"
	"github.com/ahrav/go-aipi/internal/domain"
)

// Snapshotter yields the current index snapshot.
type Snapshotter interface {
	Snapshot(ctx context.Context) (*application.Snapshot, error)
}

const loadFailed = "Failed to load data."

// NewServer registers every AIPI tool on a new MCP server.
func NewServer(snapshots Snapshotter, defaultMode domain.Mode, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"aipi",
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions("Read-only access to the AI Pluralism Index: provider rankings, "+
			"per-provider indicator profiles, dataset metadata and ranking sensitivity."),
	)

	rankings := NewRankingsTool(snapshots, defaultMode)
	s.AddTool(rankings.Definition(), rankings.Handle)

	provider := NewProviderTool(snapshots, defaultMode)
	s.AddTool(provider.Definition(), provider.Handle)

	meta := NewMetaTool(snapshots)
	s.AddTool(meta.Definition(), meta.Handle)

	sensitivity := NewSensitivityTool(snapshots, defaultMode)
	s.AddTool(sensitivity.Definition(), sensitivity.Handle)

	return s
}

// Serve runs the MCP server over stdio until the client disconnects.
func Serve(snapshots Snapshotter, defaultMode domain.Mode, version string) error {
	return server.ServeStdio(NewServer(snapshots, defaultMode, version))
}

func modeArg(req mcp.CallToolRequest, fallback domain.Mode) (domain.Mode, error) {
	raw := req.GetString("mode", "")
	if raw == "" {
		return fallback, nil
	}
	return domain.ParseMode(raw)
}

// intArg reads a numeric argument; JSON numbers arrive as float64.
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

func snapshotOrError(ctx context.Context, s Snapshotter) (*application.Snapshot, *mcp.CallToolResult) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, mcp.NewToolResultError(loadFailed)
	}
	return snap, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	var buf strings.Builder
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode failed: %v", err)), nil
	}
	return mcp.NewToolResultText(strings.TrimSuffix(buf.String(), "\n")), nil
}

func notFound(snap *application.Snapshot, id string, err error) *mcp.CallToolResult {
	if !errors.Is(err, application.ErrProviderNotFound) {
		return mcp.NewToolResultError(err.Error())
	}
	msg := fmt.Sprintf("Provider not found: %q.", id)
	if s := snap.Index.Suggest(id, 3); len(s) > 0 {
		msg += " Did you mean: " + application.JoinNatural(s) + "?"
	}
	return mcp.NewToolResultError(msg)
}
