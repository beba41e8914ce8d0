package parser

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

type PageKind string

const (
	KindProduct PageKind = "product"
	KindListing PageKind = "listing"
)

var (
	productPath     = regexp.MustCompile(`(?i)/(producto|product|sku|item|p)/`)
	detailPath      = regexp.MustCompile(`(?i)/(detalle|detalle-producto)/`)
	listingPath     = regexp.MustCompile(`(?i)(search|buscar|busqueda|categoria|category|catalogo)`)
	nonProductPath  = regexp.MustCompile(`(?i)(cart|account|login|register|wishlist|help|policy)`)
	productTextHint = "producto"

	nextPageSelectors = []string{
		"a.next",
		"a[rel='next']",
		"li.pagination-next a",
		".pagination a[aria-label='Next']",
		".pagination a[rel='next']",
	}
)

// IsProductLike reports whether u has a product detail path shape.
func IsProductLike(u string) bool {
	return productPath.MatchString(u)
}

// IsListingLike reports whether u has a search, category or catalog path.
func IsListingLike(u string) bool {
	return listingPath.MatchString(u)
}

// Classify decides how a seed URL is scraped. Anything not recognised as
// a product page is treated as a listing.
func Classify(u string) PageKind {
	if IsProductLike(u) || detailPath.MatchString(u) {
		return KindProduct
	}
	return KindListing
}

// ProductLinks collects candidate product URLs from the anchors on a
// listing page, resolved against base, first occurrence first.
func ProductLinks(doc *goquery.Document, base *url.URL) []string {
	seen := make(map[string]struct{})
	links := make([]string, 0)

	add := func(link string) {
		if _, dup := seen[link]; dup {
			return
		}
		seen[link] = struct{}{}
		links = append(links, link)
	}

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if href == "" {
			return
		}

		link, ok := absoluteHTTP(base, href)
		if !ok || nonProductPath.MatchString(link) {
			return
		}

		if looksLikeProductCard(a) || IsProductLike(href) {
			add(link)
		}
	})

	return links
}

func looksLikeProductCard(a *goquery.Selection) bool {
	if a.Find("img").Length() > 0 {
		return true
	}
	for _, class := range strings.Fields(a.AttrOr("class", "")) {
		if class == "product" {
			return true
		}
	}
	return strings.Contains(strings.ToLower(nodeText(a)), productTextHint)
}

// NextPage returns the absolute next-page URL, or "" on the last page.
func NextPage(doc *goquery.Document, base *url.URL) string {
	var next string

	doc.Find("link[rel]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !hasToken(s.AttrOr("rel", ""), "next") {
			return true
		}
		next = strings.TrimSpace(s.AttrOr("href", ""))
		return next == ""
	})

	if next == "" {
		for _, selector := range nextPageSelectors {
			href := strings.TrimSpace(doc.Find(selector).First().AttrOr("href", ""))
			if href != "" {
				next = href
				break
			}
		}
	}

	if next == "" {
		return ""
	}

	link, ok := absoluteHTTP(base, next)
	if !ok {
		return ""
	}
	return link
}

func absoluteHTTP(base *url.URL, href string) (string, bool) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}

	u := ref
	if base != nil {
		u = base.ResolveReference(ref)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}

	u.Fragment = ""
	return u.String(), true
}

func hasToken(list, token string) bool {
	for _, t := range strings.Fields(list) {
		if strings.EqualFold(t, token) {
			return true
		}
	}
	return false
}
