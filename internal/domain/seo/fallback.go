package seo

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Strob0t/ShopForge/internal/domain/catalog"
)

// Length limits search engines display without truncation.
const (
	maxTitleLen       = 60
	maxDescriptionLen = 160
)

// Site identifies the storefront in generated copy and canonical URLs.
type Site struct {
	Name    string
	BaseURL string
}

// FallbackMeta builds meta tags for p from catalog data alone.
func FallbackMeta(site Site, p *catalog.Product) MetaTags {
	title := p.Title
	if p.Category != "" {
		title += " - " + humanize(p.Category)
	}
	if site.Name != "" {
		title += " | " + site.Name
	}

	desc := fmt.Sprintf("Buy %s for %s.", p.Title, formatPrice(p.Price))
	if first := firstSentence(p.Description); first != "" {
		desc += " " + first
	}

	m := MetaTags{
		Title:       truncate(title, maxTitleLen),
		Description: truncate(desc, maxDescriptionLen),
		Keywords:    keywords(p.Title, p.Category, p.Brand),
		OGImage:     p.Thumbnail,
		Source:      SourceFallback,
	}
	if site.BaseURL != "" {
		m.CanonicalURL = strings.TrimRight(site.BaseURL, "/") + "/products/" + strconv.Itoa(p.ID)
	}
	return m
}

// FallbackDescription is the template description used when enhancement fails.
func FallbackDescription(p *catalog.Product) Description {
	text := fmt.Sprintf("Discover the %s, available now for only %s.", p.Title, formatPrice(p.Price))
	if d := strings.TrimSpace(p.Description); d != "" {
		text += " " + d
	}
	return Description{
		ProductID: strconv.Itoa(p.ID),
		Text:      text,
		Source:    SourceFallback,
	}
}

// FallbackPageMeta builds page metadata from the page type and category.
func FallbackPageMeta(site Site, pageType string, category *catalog.Category) PageMeta {
	m := PageMeta{PageType: pageType, Source: SourceFallback}
	name := site.Name
	if name == "" {
		name = "our store"
	}

	switch {
	case pageType == PageCategory && category != nil:
		label := category.Name
		if label == "" {
			label = humanize(category.Slug)
		}
		m.CategoryID = category.Slug
		m.Title = truncate(label+" | "+name, maxTitleLen)
		m.Description = truncate(fmt.Sprintf("Browse our selection of %s at %s.", strings.ToLower(label), name), maxDescriptionLen)
		m.Keywords = keywords(label, category.Slug)
	case pageType == PageSearch:
		m.Title = truncate("Search results | "+name, maxTitleLen)
		m.Description = truncate("Find the products you are looking for at "+name+".", maxDescriptionLen)
		m.Keywords = []string{"search"}
	default:
		m.Title = truncate(name+" - Shop the latest products", maxTitleLen)
		m.Description = truncate("Shop the latest products at "+name+". Fast delivery and great prices.", maxDescriptionLen)
		m.Keywords = []string{"shop", "online store"}
	}
	if category != nil && m.CategoryID == "" {
		m.CategoryID = category.Slug
	}
	return m
}

// FallbackStatus reports an unknown product as not optimized.
func FallbackStatus(productID string) OptimizationStatus {
	return OptimizationStatus{ProductID: productID, Source: SourceFallback}
}

// FallbackResult reports that an optimization could not be applied.
func FallbackResult(productID, reason string) OptimizationResult {
	return OptimizationResult{
		ProductID: productID,
		Applied:   false,
		Message:   reason,
		Source:    SourceFallback,
	}
}

// FallbackAnalytics derives analytics from local optimization log counts.
func FallbackAnalytics(optimized, total int, averageScore float64) Analytics {
	return Analytics{
		OptimizedProducts: optimized,
		TotalProducts:     total,
		AverageScore:      round2(averageScore),
		Source:            SourceFallback,
	}
}

// FallbackROI computes an ROI estimate with a fixed uplift formula:
// monthly gain = revenue * uplift, annualised, against a per-product cost.
func FallbackROI(req ROIRequest) ROIEstimate {
	gain := req.MonthlyRevenue * req.UpliftPct / 100
	annual := gain * 12
	cost := req.CostPerProduct * float64(req.ProductCount)

	est := ROIEstimate{
		ProjectedRevenue: round2(req.MonthlyRevenue + gain),
		ProjectedGain:    round2(gain),
		AnnualGain:       round2(annual),
		TotalCost:        round2(cost),
		Source:           SourceFallback,
	}
	if cost > 0 {
		est.ROIPercent = round2((annual - cost) / cost * 100)
	}
	return est
}

func formatPrice(p float64) string {
	return "$" + strconv.FormatFloat(p, 'f', 2, 64)
}

func firstSentence(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, ".!?"); i >= 0 {
		return s[:i+1]
	}
	return s
}

// humanize turns a slug such as "mens-shirts" into "Mens Shirts".
func humanize(slug string) string {
	words := strings.FieldsFunc(slug, func(r rune) bool { return r == '-' || r == '_' || r == ' ' })
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = strings.ToUpper(string(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

func keywords(parts ...string) []string {
	seen := make(map[string]bool, len(parts))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		k := strings.ToLower(strings.TrimSpace(strings.ReplaceAll(p, "-", " ")))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

// truncate cuts s to at most n runes, ending in "..." when shortened.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:n-3])) + "..."
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
