package mcp

import (
	"context"
	"strings"
	"testing"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/Strob0t/ShopForge/internal/domain/seo"
)

type fixedAnalytics struct{ SEOReader }

func (fixedAnalytics) Analytics(context.Context) seo.Analytics {
	return seo.Analytics{OptimizedProducts: 5, TotalProducts: 20, Source: seo.SourceCache}
}

func readAnalytics(t *testing.T, s *Server) string {
	t.Helper()
	req := mcplib.ReadResourceRequest{}
	req.Params.URI = AnalyticsURI
	contents, err := s.handleAnalyticsResource(context.Background(), req)
	if err != nil {
		t.Fatalf("read resource: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("expected 1 content, got %d", len(contents))
	}
	text, ok := contents[0].(mcplib.TextResourceContents)
	if !ok {
		t.Fatal("expected TextResourceContents")
	}
	if text.URI != AnalyticsURI || text.MIMEType != "application/json" {
		t.Errorf("unexpected content header: %+v", text)
	}
	return text.Text
}

func TestAnalyticsResource(t *testing.T) {
	s := NewServer(ServerConfig{Name: "test", Version: "0.1.0"}, ServerDeps{SEO: fixedAnalytics{}})
	got := readAnalytics(t, s)
	if !strings.Contains(got, `"optimized_products":5`) || !strings.Contains(got, `"source":"cache"`) {
		t.Fatalf("unexpected body %s", got)
	}
}

func TestAnalyticsResourceNotConfigured(t *testing.T) {
	s := NewServer(ServerConfig{Name: "test", Version: "0.1.0"}, ServerDeps{})
	if got := readAnalytics(t, s); !strings.Contains(got, "not configured") {
		t.Fatalf("unexpected body %s", got)
	}
}
