package parser

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/maltedev/catalog-scraper/internal/models"
	"github.com/maltedev/catalog-scraper/internal/normalize"
)

// StructuredData reads schema.org Product markup from JSON-LD blocks.
type StructuredData struct {
	logger *slog.Logger
}

func (s *StructuredData) Name() string {
	return "structured-data"
}

func (s *StructuredData) Extract(doc *goquery.Document) (models.Product, bool) {
	schema := FindProductSchema(s.Schemas(doc))
	if schema == nil {
		return models.Product{}, false
	}
	return productFromSchema(schema), true
}

// Schemas returns every JSON object embedded in ld+json scripts, with
// arrays and @graph containers flattened. Malformed blocks are skipped.
func (s *StructuredData) Schemas(doc *goquery.Document) []map[string]any {
	var schemas []map[string]any

	doc.Find(`script[type="application/ld+json"]`).Each(func(i int, sel *goquery.Selection) {
		raw := strings.TrimSpace(sel.Text())
		if raw == "" {
			return
		}

		var data any
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			if s.logger != nil {
				s.logger.Debug("skipping malformed json-ld block", "index", i, "error", err)
			}
			return
		}

		schemas = flattenSchemas(schemas, data)
	})

	return schemas
}

func flattenSchemas(out []map[string]any, data any) []map[string]any {
	switch v := data.(type) {
	case []any:
		for _, item := range v {
			out = flattenSchemas(out, item)
		}
	case map[string]any:
		out = append(out, v)
		if graph, ok := v["@graph"]; ok {
			out = flattenSchemas(out, graph)
		}
	}
	return out
}

// FindProductSchema returns the first schema typed Product, or nil.
func FindProductSchema(schemas []map[string]any) map[string]any {
	for _, s := range schemas {
		if isProductType(s["@type"]) {
			return s
		}
	}
	return nil
}

func isProductType(t any) bool {
	switch v := t.(type) {
	case string:
		return v == "Product"
	case []any:
		for _, item := range v {
			if str, ok := item.(string); ok && str == "Product" {
				return true
			}
		}
	}
	return false
}

func productFromSchema(schema map[string]any) models.Product {
	return models.Product{
		Title:       models.String(stringValue(schema["name"])),
		Description: models.String(stringValue(schema["description"])),
		Price:       schemaPrice(schema["offers"]),
		ImageURL:    models.String(schemaImage(schema["image"])),
		URL:         models.String(stringValue(schema["url"])),
	}
}

// schemaImage accepts a URL string, a list (first entry) or an ImageObject.
func schemaImage(v any) string {
	switch img := v.(type) {
	case string:
		return img
	case []any:
		if len(img) > 0 {
			return schemaImage(img[0])
		}
	case map[string]any:
		return stringValue(img["url"])
	}
	return ""
}

// schemaPrice reads price, else lowPrice, from an offer or the first of a
// list of offers.
func schemaPrice(v any) *float64 {
	var offer map[string]any

	switch o := v.(type) {
	case map[string]any:
		offer = o
	case []any:
		if len(o) > 0 {
			offer, _ = o[0].(map[string]any)
		}
	}
	if offer == nil {
		return nil
	}

	for _, key := range []string{"price", "lowPrice"} {
		if price := priceValue(offer[key]); price != nil {
			return price
		}
	}
	return nil
}

func priceValue(v any) *float64 {
	switch p := v.(type) {
	case float64:
		return models.Float(p)
	case string:
		return normalize.PricePtr(p)
	}
	return nil
}

func stringValue(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case nil:
		return ""
	case map[string]any, []any:
		return ""
	default:
		return fmt.Sprint(s)
	}
}
