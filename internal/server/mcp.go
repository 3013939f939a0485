package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/docsearch/internal/errors"
	"github.com/Aman-CERP/docsearch/pkg/version"
)

// SearchToolName is the name of the MCP search tool.
const SearchToolName = "search"

// SearchInput defines the input schema for the search tool.
type SearchInput struct {
	Query     string   `json:"query" jsonschema:"the query, field:term qualifies a term and quotes make a phrase"`
	Fields    []string `json:"fields,omitempty" jsonschema:"fields searched by unqualified terms, defaults to the full content"`
	Limit     int      `json:"limit,omitempty" jsonschema:"maximum number of results"`
	Group     string   `json:"group,omitempty" jsonschema:"field whose value groups the results"`
	Sort      []string `json:"sort,omitempty" jsonschema:"fields sorting results within each group"`
	Highlight bool     `json:"highlight,omitempty" jsonschema:"include highlighted fragments"`
}

// MCPServer serves the search tool over MCP.
type MCPServer struct {
	mcp    *mcp.Server
	exec   *Executor
	logger *slog.Logger
}

// NewMCPServer creates an MCP server with the search tool registered.
func NewMCPServer(exec *Executor, logger *slog.Logger) *MCPServer {
	if logger == nil {
		logger = slog.Default()
	}
	s := &MCPServer{
		exec:   exec,
		logger: logger,
		mcp: mcp.NewServer(&mcp.Implementation{
			Name:    "docsearch",
			Version: version.Short(),
		}, nil),
	}

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        SearchToolName,
		Description: "Full-text search over the indexed documents. Returns ranked hits with their stored fields, or groups of hits when a group field is given.",
	}, s.handleSearch)
	s.logger.Debug("mcp_tool_registered", slog.String("name", SearchToolName))
	return s
}

func (s *MCPServer) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, in SearchInput) (*mcp.CallToolResult, Response, error) {
	start := time.Now()
	resp, err := s.exec.Execute(ctx, Request(in))
	if err != nil {
		s.logger.Warn("mcp_search_failed", errors.LogArgs(err)...)
		return nil, Response{}, toolError(err)
	}
	s.logger.Info("mcp_search_complete",
		slog.String("query", resp.Query),
		slog.Int("results", resp.Total),
		slog.Duration("duration", time.Since(start)))
	return nil, resp, nil
}

// toolError renders err for the calling model: code, message and hint.
func toolError(err error) error {
	var e *errors.Error
	if !stderrors.As(err, &e) {
		return err
	}
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Cause != nil {
		msg += fmt.Sprintf(" (%v)", e.Cause)
	}
	if e.Suggestion != "" {
		msg += ". " + e.Suggestion
	}
	return stderrors.New(msg)
}

// Run serves the MCP protocol over t until ctx is cancelled or the client
// disconnects.
func (s *MCPServer) Run(ctx context.Context, t mcp.Transport) error {
	s.logger.Info("mcp_server_started")
	err := s.mcp.Run(ctx, t)
	if err != nil && !stderrors.Is(err, context.Canceled) {
		s.logger.Error("mcp_server_failed", slog.String("error", err.Error()))
		return err
	}
	s.logger.Info("mcp_server_stopped")
	return nil
}

// ServeStdio serves over stdin and stdout.
func (s *MCPServer) ServeStdio(ctx context.Context) error {
	return s.Run(ctx, &mcp.StdioTransport{})
}
