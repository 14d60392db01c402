// Package mcp exposes the read-only SEO operations as Model Context Protocol
// tools so AI agents can inspect product metadata and optimization coverage.
package mcp

import (
	"context"
	"net/http"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/Strob0t/ShopForge/internal/domain/seo"
)

// SEOReader is the subset of the SEO service the tools call.
type SEOReader interface {
	ProductMeta(ctx context.Context, productID string) seo.MetaTags
	EnhancedDescription(ctx context.Context, productID string) seo.Description
	PageMeta(ctx context.Context, pageType, categoryID string) (seo.PageMeta, error)
	OptimizationStatus(ctx context.Context, productID string) seo.OptimizationStatus
	Analytics(ctx context.Context) seo.Analytics
}

// ServerConfig holds MCP server identification.
type ServerConfig struct {
	Name    string
	Version string
}

// ServerDeps holds the services the tools delegate to. A nil SEO makes every
// tool return an error result.
type ServerDeps struct {
	SEO SEOReader
}

// Server wraps an mcp-go server and its streamable HTTP transport.
type Server struct {
	cfg       ServerConfig
	deps      ServerDeps
	mcpServer *mcpserver.MCPServer
	transport *mcpserver.StreamableHTTPServer
}

// NewServer creates a Server with all tools and resources registered.
func NewServer(cfg ServerConfig, deps ServerDeps) *Server {
	s := &Server{
		cfg:  cfg,
		deps: deps,
		mcpServer: mcpserver.NewMCPServer(cfg.Name, cfg.Version,
			mcpserver.WithToolCapabilities(false),
			mcpserver.WithResourceCapabilities(false, false),
			mcpserver.WithRecovery(),
		),
	}
	s.registerTools()
	s.registerResources()
	s.transport = mcpserver.NewStreamableHTTPServer(s.mcpServer, mcpserver.WithStateLess(true))
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *mcpserver.MCPServer { return s.mcpServer }

// Handler returns the streamable HTTP handler to mount on the router.
func (s *Server) Handler() http.Handler { return s.transport }
