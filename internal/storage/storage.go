package storage

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/maltedev/catalog-scraper/internal/models"
)

var ErrNoURLs = errors.New("no urls")

// ReadURLs reads one seed URL per line. Blank lines and lines starting
// with # are skipped; duplicates keep their first position.
func ReadURLs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open url file: %w", err)
	}
	defer f.Close()

	seen := make(map[string]struct{})
	urls := make([]string, 0)

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, dup := seen[line]; dup {
			continue
		}
		seen[line] = struct{}{}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read url file: %w", err)
	}

	return urls, nil
}

// LoadSeeds returns the positional URLs when any are given, otherwise the
// URLs in path. A missing file is an error; an empty result is reported
// as ErrNoURLs alongside the empty slice.
func LoadSeeds(args []string, path string) ([]string, error) {
	var urls []string
	if len(args) > 0 {
		urls = UniqueURLs(args)
	} else {
		var err error
		if urls, err = ReadURLs(path); err != nil {
			return nil, err
		}
	}

	if len(urls) == 0 {
		return urls, ErrNoURLs
	}
	return urls, nil
}

// UniqueURLs drops blanks and repeats, keeping first positions.
func UniqueURLs(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

// JSONFile writes products as a JSON array, replacing the file atomically.
type JSONFile struct {
	path   string
	pretty bool
}

func NewJSONFile(path string, pretty bool) *JSONFile {
	return &JSONFile{path: path, pretty: pretty}
}

func (j *JSONFile) Name() string {
	return "json"
}

func (j *JSONFile) Path() string {
	return j.path
}

func (j *JSONFile) Write(_ context.Context, products []models.Product) error {
	if products == nil {
		products = []models.Product{}
	}

	data, err := Encode(products, j.pretty)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(j.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output dir: %w", err)
		}
	}

	// Write to temp file first for atomicity
	tmpFile := j.path + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if err := os.Rename(tmpFile, j.path); err != nil {
		_ = os.Remove(tmpFile)
		return fmt.Errorf("failed to replace output: %w", err)
	}
	return nil
}

// Encode renders products with non-ASCII text left unescaped, indented by
// two spaces when pretty, otherwise without extra whitespace.
func Encode(products []models.Product, pretty bool) ([]byte, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}

	if err := enc.Encode(products); err != nil {
		return nil, fmt.Errorf("failed to encode products: %w", err)
	}

	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
