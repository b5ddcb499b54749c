// Package catalog loads product seed files and feeds them to the product
// service. Seed files are gzipped JSON lines, one product per line.
package catalog

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Item is one line of a seed file.
type Item struct {
	Name  string `json:"name"`
	Price int    `json:"price"`
	Stock int    `json:"stock"`
}

// Valid reports whether the item can become a product.
func (i Item) Valid() bool {
	return strings.TrimSpace(i.Name) != "" && i.Price > 0 && i.Stock >= 0
}

// Loader defines the interface for loading seed files.
type Loader interface {
	// Load reads a gzipped seed file and returns its items in file order.
	Load(ctx context.Context, path string) ([]Item, error)
}

// decode reads gzipped JSON lines from r. Blank lines are skipped.
func decode(ctx context.Context, r io.Reader, source string) ([]Item, error) {
	gzipReader, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader for %s: %w", source, err)
	}
	defer gzipReader.Close()

	scanner := bufio.NewScanner(gzipReader)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var items []Item
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo%10_000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var item Item
		if err := json.Unmarshal([]byte(line), &item); err != nil {
			return nil, fmt.Errorf("invalid seed line %d in %s: %w", lineNo, source, err)
		}
		items = append(items, item)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading seed file %s: %w", source, err)
	}

	return items, nil
}
