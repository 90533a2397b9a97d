// Package mcp exposes the CalDAV client as a set of MCP tools served over
// stdio.
package mcp

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"caldav-mcp/internal/errs"
	"caldav-mcp/pkg/caldav"
	"caldav-mcp/pkg/config"
	"caldav-mcp/pkg/nats"
)

// Server wires the CalDAV client and the optional change publisher into
// an MCP stdio server. The client may be nil when credentials were not
// supplied; every tool then reports the missing configuration instead of
// the process failing at startup.
type Server struct {
	mcp       *mcpserver.MCPServer
	client    *caldav.Client
	publisher *nats.Publisher
	missing   []string
	logger    *slog.Logger
	now       func() time.Time
}

// NewServer builds the MCP server and registers all calendar tools
func NewServer(client *caldav.Client, publisher *nats.Publisher, cfg *config.Config, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		mcp:       mcpserver.NewMCPServer("caldav-mcp", version, mcpserver.WithToolCapabilities(false)),
		client:    client,
		publisher: publisher,
		missing:   cfg.CalDAV.Missing(),
		logger:    logger,
		now:       time.Now,
	}
	s.registerTools()
	return s
}

// ServeStdio blocks serving MCP requests on stdin/stdout
func (s *Server) ServeStdio() error {
	return mcpserver.ServeStdio(s.mcp)
}

// requireClient returns a tool error result when the CalDAV connection is
// not configured.
func (s *Server) requireClient() *mcp.CallToolResult {
	if s.client != nil {
		return nil
	}
	return mcp.NewToolResultError(fmt.Sprintf(
		"CalDAV is not configured. Set %s to enable calendar tools.",
		strings.Join(s.missing, ", ")))
}

// toolError maps the error taxonomy onto a human-readable tool result.
// Every failure is returned to the caller; nothing here ends the process.
func toolError(err error) *mcp.CallToolResult {
	var (
		confErr      *errs.ConfigurationError
		validErr     *errs.ValidationError
		notFoundErr  *errs.NotFoundError
		transportErr *errs.TransportError
	)
	switch {
	case errors.As(err, &confErr):
		return mcp.NewToolResultError(fmt.Sprintf("configuration error: %v", err))
	case errors.As(err, &validErr):
		return mcp.NewToolResultError(fmt.Sprintf("invalid input: %v", err))
	case errors.As(err, &notFoundErr):
		return mcp.NewToolResultError(fmt.Sprintf("not found: %v", err))
	case errors.As(err, &transportErr):
		return mcp.NewToolResultError(fmt.Sprintf("CalDAV server error: %v", err))
	default:
		return mcp.NewToolResultError(err.Error())
	}
}
