package mcp

import (
	"context"
	"encoding/json"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// registerTools registers all MCP tools on the server.
func (s *Server) registerTools() {
	s.mcpServer.AddTools(
		s.productMetaTool(),
		s.enhanceDescriptionTool(),
		s.pageMetaTool(),
		s.optimizationStatusTool(),
		s.analyticsTool(),
	)
}

func productIDParam() mcplib.ToolOption {
	return mcplib.WithString("product_id",
		mcplib.Required(),
		mcplib.Description("The catalog product ID"),
	)
}

func (s *Server) productMetaTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("get_product_meta",
		mcplib.WithDescription("Get SEO meta tags for a product page"),
		productIDParam(),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleProductMeta}
}

func (s *Server) enhanceDescriptionTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("enhance_description",
		mcplib.WithDescription("Get an AI-enhanced description for a product"),
		productIDParam(),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleEnhanceDescription}
}

func (s *Server) pageMetaTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("get_page_meta",
		mcplib.WithDescription("Get SEO metadata for a listing page"),
		mcplib.WithString("page_type",
			mcplib.Required(),
			mcplib.Description("One of home, category, search, product"),
			mcplib.Enum("home", "category", "search", "product"),
		),
		mcplib.WithString("category_id",
			mcplib.Description("Category slug for category pages"),
		),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handlePageMeta}
}

func (s *Server) optimizationStatusTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("get_optimization_status",
		mcplib.WithDescription("Check whether a product has been SEO optimized"),
		productIDParam(),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleOptimizationStatus}
}

func (s *Server) analyticsTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("get_seo_analytics",
		mcplib.WithDescription("Get optimization coverage across the catalog"),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleAnalytics}
}

func (s *Server) handleProductMeta(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	id, errResult := s.productID(req)
	if errResult != nil {
		return errResult, nil
	}
	return toolResult(s.deps.SEO.ProductMeta(ctx, id))
}

func (s *Server) handleEnhanceDescription(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	id, errResult := s.productID(req)
	if errResult != nil {
		return errResult, nil
	}
	return toolResult(s.deps.SEO.EnhancedDescription(ctx, id))
}

func (s *Server) handlePageMeta(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.SEO == nil {
		return mcplib.NewToolResultError("seo service not configured"), nil
	}
	args := req.GetArguments()
	pageType, _ := args["page_type"].(string)
	categoryID, _ := args["category_id"].(string)
	meta, err := s.deps.SEO.PageMeta(ctx, pageType, categoryID)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to get page meta", err), nil
	}
	return toolResult(meta)
}

func (s *Server) handleOptimizationStatus(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	id, errResult := s.productID(req)
	if errResult != nil {
		return errResult, nil
	}
	return toolResult(s.deps.SEO.OptimizationStatus(ctx, id))
}

func (s *Server) handleAnalytics(ctx context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.SEO == nil {
		return mcplib.NewToolResultError("seo service not configured"), nil
	}
	return toolResult(s.deps.SEO.Analytics(ctx))
}

// productID extracts the required product_id argument. A non-nil result is
// the error to hand back to the client.
func (s *Server) productID(req mcplib.CallToolRequest) (string, *mcplib.CallToolResult) { //nolint:gocritic // hugeParam: mcp-go request type
	if s.deps.SEO == nil {
		return "", mcplib.NewToolResultError("seo service not configured")
	}
	id, ok := req.GetArguments()["product_id"].(string)
	if !ok || id == "" {
		return "", mcplib.NewToolResultError("product_id is required")
	}
	return id, nil
}

func toolResult(v any) (*mcplib.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal result", err), nil
	}
	return mcplib.NewToolResultText(string(data)), nil
}
