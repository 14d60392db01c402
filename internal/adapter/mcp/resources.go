package mcp

import (
	"context"
	"encoding/json"

	mcplib "github.com/mark3labs/mcp-go/mcp"
)

// AnalyticsURI is the resource URI of the catalog-wide SEO analytics.
const AnalyticsURI = "shopforge://seo/analytics"

// registerResources registers all MCP resources on the server.
func (s *Server) registerResources() {
	s.mcpServer.AddResource(
		mcplib.NewResource(
			AnalyticsURI,
			"SEO Analytics",
			mcplib.WithResourceDescription("Optimization coverage and traffic change across the catalog"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleAnalyticsResource,
	)
}

func (s *Server) handleAnalyticsResource(ctx context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	text := `{"error":"seo service not configured"}`
	if s.deps.SEO != nil {
		data, err := json.Marshal(s.deps.SEO.Analytics(ctx))
		if err != nil {
			return nil, err
		}
		text = string(data)
	}
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     text,
		},
	}, nil
}
