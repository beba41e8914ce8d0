package models

// Product is one extracted catalog record. Absent fields serialise as null.
type Product struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price"`
	ImageURL    *string  `json:"imageUrl"`
	Category    *string  `json:"category"`
	URL         *string  `json:"url"`
}

// ListingPage is what link discovery finds on one listing page.
type ListingPage struct {
	URL          string
	ProductLinks []string
	NextURL      string
}

// String returns a pointer to s, or nil when s is empty.
func String(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Float returns a pointer to f.
func Float(f float64) *float64 {
	return &f
}

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// HasData reports whether at least one content field was extracted.
// URL and category are backfilled, so they do not count.
func (p *Product) HasData() bool {
	return p.Title != nil || p.Description != nil || p.Price != nil || p.ImageURL != nil
}

// DedupeKey is the url when present, else the title.
func (p *Product) DedupeKey() string {
	if key := Deref(p.URL); key != "" {
		return key
	}
	return Deref(p.Title)
}

// Validate lists what makes the record unusable.
func (p *Product) Validate() []string {
	var errors []string

	if !p.HasData() {
		errors = append(errors, "no title, description, price or image")
	}

	if p.Price != nil && *p.Price < 0 {
		errors = append(errors, "negative price")
	}

	return errors
}

// Dedupe keeps the first record per DedupeKey, preserving order. Records
// without url and title are dropped.
func Dedupe(products []Product) []Product {
	seen := make(map[string]struct{}, len(products))
	out := make([]Product, 0, len(products))

	for _, p := range products {
		key := p.DedupeKey()
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}

	return out
}
