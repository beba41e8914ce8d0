package parser

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/catalog-scraper/internal/models"
)

func newTestParser() *CatalogParser {
	return NewCatalogParser(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestParseProductStructuredData(t *testing.T) {
	parser := newTestParser()
	pageURL := "https://shop.example.com/producto/crema-123/"

	tests := []struct {
		name     string
		html     string
		expected models.Product
	}{
		{
			name: "single object with offer",
			html: `<html><head><script type="application/ld+json">
				{"@context":"https://schema.org","@type":"Product","name":"  Crema   Hidratante ",
				 "description":"Crema para piel seca","image":["https://cdn.example.com/a.jpg","https://cdn.example.com/b.jpg"],
				 "offers":{"@type":"Offer","price":"129.50","priceCurrency":"MXN"},
				 "url":"https://shop.example.com/producto/crema-123/"}
			</script></head><body><h1>Ignored DOM title</h1></body></html>`,
			expected: models.Product{
				Title:       models.String("Crema Hidratante"),
				Description: models.String("Crema para piel seca"),
				Price:       models.Float(129.5),
				ImageURL:    models.String("https://cdn.example.com/a.jpg"),
				URL:         models.String("https://shop.example.com/producto/crema-123/"),
			},
		},
		{
			name: "array with type list and numeric lowPrice",
			html: `<script type="application/ld+json">
				[{"@type":"BreadcrumbList"},{"@type":["Product","Thing"],"name":"Jarabe","image":"/img/jarabe.png",
				  "offers":{"@type":"AggregateOffer","lowPrice":89}}]
			</script>`,
			expected: models.Product{
				Title:    models.String("Jarabe"),
				Price:    models.Float(89),
				ImageURL: models.String("https://shop.example.com/img/jarabe.png"),
				URL:      models.String(pageURL),
			},
		},
		{
			name: "graph with image object and offer list",
			html: `<script type="application/ld+json">
				{"@context":"https://schema.org","@graph":[
					{"@type":"WebPage","name":"Page"},
					{"@type":"Product","name":"Vitamina C","image":{"@type":"ImageObject","url":"https://cdn.example.com/c.jpg"},
					 "offers":[{"price":"$1,234.56 MXN"},{"price":"1"}]}
				]}
			</script>`,
			expected: models.Product{
				Title:    models.String("Vitamina C"),
				Price:    models.Float(1234.56),
				ImageURL: models.String("https://cdn.example.com/c.jpg"),
				URL:      models.String(pageURL),
			},
		},
		{
			name: "malformed block is skipped",
			html: `<script type="application/ld+json">{not json</script>
				<script type="application/ld+json">{"@type":"Product","name":"Gel"}</script>`,
			expected: models.Product{
				Title: models.String("Gel"),
				URL:   models.String(pageURL),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			product, err := parser.ParseProduct(tt.html, pageURL)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, *product)
		})
	}
}

func TestParseProductDOMFallback(t *testing.T) {
	parser := newTestParser()

	html := `<html><head>
		<meta property="og:title" content="OG title">
		<meta property="og:image" content="https://cdn.example.com/og.jpg">
		<meta name="description" content="Meta description fallback">
	</head><body>
		<nav class="breadcrumb"><a href="/">Inicio</a><a href="/salud">Salud</a><a href="/salud/vitaminas">Vitaminas</a></nav>
		<h1 class="product-title">
			Vitamina   D3
		</h1>
		<div class="description">short</div>
		<div itemprop="description">Suplemento de vitamina D3 de <b>alta</b> absorción.</div>
		<span itemprop="priceCurrency" content="MXN"></span>
		<span itemprop="price">$ 249,90</span>
		<img class="product-image" src="/img/d3.jpg">
	</body></html>`

	product, err := parser.ParseProduct(html, "https://shop.example.com/salud/vitamina-d3")
	require.NoError(t, err)

	assert.Equal(t, "Vitamina D3", models.Deref(product.Title))
	assert.Equal(t, "Suplemento de vitamina D3 de alta absorción.", models.Deref(product.Description))
	require.NotNil(t, product.Price)
	assert.InDelta(t, 249.90, *product.Price, 0.0001)
	assert.Equal(t, "https://shop.example.com/img/d3.jpg", models.Deref(product.ImageURL))
	assert.Equal(t, "Salud > Vitaminas", models.Deref(product.Category))
	assert.Equal(t, "https://shop.example.com/salud/vitamina-d3", models.Deref(product.URL))
}

func TestDOMHeuristicsFallbacks(t *testing.T) {
	parser := newTestParser()

	html := `<html><head>
		<meta property="og:title" content="OG title">
		<meta name="description" content="Meta description">
		<meta property="og:image" content="https://cdn.example.com/og.jpg">
	</head><body>
		<div class="breadcrumb"><a href="/">Solo</a></div>
		<div class="price">Consultar</div>
		<div class="product-price">Precio: $99.00 MXN</div>
	</body></html>`

	product, err := parser.ParseProduct(html, "https://shop.example.com/x")
	require.NoError(t, err)

	assert.Equal(t, "OG title", models.Deref(product.Title))
	assert.Equal(t, "Meta description", models.Deref(product.Description))
	require.NotNil(t, product.Price)
	assert.Equal(t, 99.0, *product.Price)
	assert.Equal(t, "https://cdn.example.com/og.jpg", models.Deref(product.ImageURL))
	assert.Equal(t, "Solo", models.Deref(product.Category))
}

func TestParseProductNoData(t *testing.T) {
	parser := newTestParser()

	product, err := parser.ParseProduct(`<html><body><p>nothing here</p></body></html>`, "https://shop.example.com/empty")

	assert.Nil(t, product)
	assert.ErrorIs(t, err, ErrNoProductData)
}

func TestStrategiesOrder(t *testing.T) {
	names := make([]string, 0)
	for _, s := range newTestParser().Strategies() {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{"structured-data", "dom-heuristics"}, names)
}
