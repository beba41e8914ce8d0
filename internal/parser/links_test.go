package parser

import (
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestProductLinks(t *testing.T) {
	html := `<html><body>
		<a href="/producto/a"><img src="a.jpg"></a>
		<a href="/producto/a">Ver producto A</a>
		<a class="card product" href="/b">B</a>
		<a class="product" href="/c">C</a>
		<a href="/d">Ver Producto D</a>
		<a href="/sku/e">E</a>
		<a href="/cart"><img src="cart.png"></a>
		<a href="/p/account-settings">Mi cuenta</a>
		<a href="/about">About us</a>
		<a href="mailto:help@example.com"><img src="mail.png"></a>
		<a href="javascript:void(0)" class="product">JS</a>
		<a href="https://other.example.com/item/f#reviews">F</a>
		<a href="">empty</a>
	</body></html>`

	links := ProductLinks(mustDoc(t, html), mustURL(t, "https://shop.example.com/categoria/salud?page=1"))

	assert.Equal(t, []string{
		"https://shop.example.com/producto/a",
		"https://shop.example.com/b",
		"https://shop.example.com/c",
		"https://shop.example.com/d",
		"https://shop.example.com/sku/e",
		"https://other.example.com/item/f",
	}, links)
}

func TestProductLinksEmptyPage(t *testing.T) {
	links := ProductLinks(mustDoc(t, `<p>no links</p>`), mustURL(t, "https://shop.example.com/"))

	assert.NotNil(t, links)
	assert.Empty(t, links)
}

func TestNextPage(t *testing.T) {
	base := "https://shop.example.com/categoria/salud?page=1"

	tests := []struct {
		name     string
		html     string
		expected string
	}{
		{
			name:     "link rel next wins",
			html:     `<head><link rel="prev" href="?page=0"><link rel="next" href="?page=2"></head><a class="next" href="?page=9">next</a>`,
			expected: "https://shop.example.com/categoria/salud?page=2",
		},
		{
			name:     "rel token list",
			html:     `<head><link rel="Next Prefetch" href="/categoria/salud/2"></head>`,
			expected: "https://shop.example.com/categoria/salud/2",
		},
		{
			name:     "anchor with class next",
			html:     `<a class="next" href="/categoria/salud?page=3">Siguiente</a>`,
			expected: "https://shop.example.com/categoria/salud?page=3",
		},
		{
			name:     "pagination aria label",
			html:     `<ul class="pagination"><a aria-label="Prev" href="?page=0">«</a><a aria-label="Next" href="?page=4">»</a></ul>`,
			expected: "https://shop.example.com/categoria/salud?page=4",
		},
		{
			name:     "pagination item",
			html:     `<ul><li class="pagination-next"><a href="https://shop.example.com/categoria/salud?page=5">»</a></li></ul>`,
			expected: "https://shop.example.com/categoria/salud?page=5",
		},
		{
			name:     "no next page",
			html:     `<a href="?page=0">prev</a>`,
			expected: "",
		},
		{
			name:     "non http next is ignored",
			html:     `<a class="next" href="javascript:load(2)">next</a>`,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NextPage(mustDoc(t, tt.html), mustURL(t, base)))
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		url      string
		expected PageKind
	}{
		{"https://shop.example.com/producto/crema-123", KindProduct},
		{"https://shop.example.com/p/123/", KindProduct},
		{"https://shop.example.com/detalle/crema", KindProduct},
		{"https://shop.example.com/detalle-producto/crema", KindProduct},
		{"https://shop.example.com/categoria/salud", KindListing},
		{"https://shop.example.com/buscar?q=crema", KindListing},
		{"https://shop.example.com/", KindListing},
		{"https://shop.example.com/crema-123.html", KindListing},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.url))
		})
	}
}

func TestIsListingLike(t *testing.T) {
	assert.True(t, IsListingLike("https://shop.example.com/catalogo/ofertas"))
	assert.True(t, IsListingLike("https://shop.example.com/search?q=x"))
	assert.False(t, IsListingLike("https://shop.example.com/crema-123.html"))
}

func TestParseListing(t *testing.T) {
	html := `<html><head><link rel="next" href="/categoria/salud?page=2"></head><body>
		<a class="product" href="/producto/a">A</a>
		<a class="product" href="/producto/b">B</a>
		<a class="product" href="/producto/a">A again</a>
	</body></html>`

	page, err := newTestParser().ParseListing(html, "https://shop.example.com/categoria/salud")
	require.NoError(t, err)

	assert.Equal(t, "https://shop.example.com/categoria/salud", page.URL)
	assert.Equal(t, []string{
		"https://shop.example.com/producto/a",
		"https://shop.example.com/producto/b",
	}, page.ProductLinks)
	assert.Equal(t, "https://shop.example.com/categoria/salud?page=2", page.NextURL)
}
