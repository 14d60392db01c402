package postgres

import (
	"strings"
	"testing"

	"github.com/Strob0t/ShopForge/internal/domain/seo"
)

func TestBuildListQuery(t *testing.T) {
	tests := []struct {
		name      string
		filter    seo.LogFilter
		wantWhere string
		wantArgs  int
	}{
		{"no filter", seo.LogFilter{Limit: 10}, "", 1},
		{"product", seo.LogFilter{ProductID: "42", Limit: 10}, "WHERE product_id = $1", 2},
		{"batch", seo.LogFilter{BatchID: "b", Limit: 10}, "WHERE batch_id = $1::uuid", 2},
		{"both", seo.LogFilter{ProductID: "42", BatchID: "b", Limit: 10}, "WHERE product_id = $1 AND batch_id = $2::uuid", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, args := buildListQuery(tt.filter)
			if tt.wantWhere == "" && strings.Contains(q, "WHERE") {
				t.Errorf("unexpected WHERE in %q", q)
			}
			if tt.wantWhere != "" && !strings.Contains(q, tt.wantWhere) {
				t.Errorf("expected %q in %q", tt.wantWhere, q)
			}
			if len(args) != tt.wantArgs {
				t.Fatalf("expected %d args, got %d", tt.wantArgs, len(args))
			}
			wantLimit := "LIMIT $" + string(rune('0'+tt.wantArgs))
			if !strings.HasSuffix(q, wantLimit) {
				t.Errorf("expected %q suffix in %q", wantLimit, q)
			}
			if args[len(args)-1] != 10 {
				t.Errorf("expected limit arg 10, got %v", args[len(args)-1])
			}
		})
	}
}

func TestNullIfEmpty(t *testing.T) {
	if nullIfEmpty("") != nil {
		t.Error("empty string should be nil")
	}
	if p := nullIfEmpty("x"); p == nil || *p != "x" {
		t.Error("non-empty string should be kept")
	}
}
