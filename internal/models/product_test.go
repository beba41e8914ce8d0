package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDedupeKeepsFirstByURL(t *testing.T) {
	products := []Product{
		{Title: String("Paracetamol 500mg"), URL: String("https://shop.example/p/1")},
		{Title: String("Paracetamol (dup)"), URL: String("https://shop.example/p/1")},
		{Title: String("Ibuprofeno"), URL: String("https://shop.example/p/2")},
	}

	out := Dedupe(products)

	require.Len(t, out, 2)
	assert.Equal(t, "Paracetamol 500mg", *out[0].Title)
	assert.Equal(t, "https://shop.example/p/2", *out[1].URL)
}

func TestDedupeFallsBackToTitle(t *testing.T) {
	products := []Product{
		{Title: String("Vitamina C"), Price: Float(99)},
		{Title: String("Vitamina C"), Price: Float(120)},
		{Price: Float(10)},
	}

	out := Dedupe(products)

	require.Len(t, out, 1)
	assert.Equal(t, 99.0, *out[0].Price)
}

func TestDedupeEmptyInput(t *testing.T) {
	out := Dedupe(nil)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestHasData(t *testing.T) {
	assert.False(t, (&Product{URL: String("https://x"), Category: String("A")}).HasData())
	assert.True(t, (&Product{ImageURL: String("https://x/img.jpg")}).HasData())
	assert.True(t, (&Product{Price: Float(0)}).HasData())
}

func TestValidate(t *testing.T) {
	assert.Len(t, (&Product{}).Validate(), 1)
	assert.Empty(t, (&Product{Title: String("ok")}).Validate())
	assert.Contains(t, (&Product{Price: Float(-1)}).Validate(), "negative price")
}

func TestProductJSONShape(t *testing.T) {
	p := Product{Title: String("Crema"), Price: Float(149.5)}

	data, err := json.Marshal(p)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"title": "Crema",
		"description": null,
		"price": 149.5,
		"imageUrl": null,
		"category": null,
		"url": null
	}`, string(data))
}
