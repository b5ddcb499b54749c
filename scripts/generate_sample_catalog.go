package main

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"stockroom/internal/catalog"
)

// generateSampleCatalog writes sample seed files for local development.
// products.jsonl.gz holds the starter catalogue; extras.jsonl.gz repeats
// Laptop to show duplicate skipping and carries one invalid line.
func main() {
	dataDir := "data/catalog"

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		log.Fatalf("Failed to create directory: %v", err)
	}

	files := map[string][]catalog.Item{
		"products.jsonl.gz": {
			{Name: "Laptop", Price: 99900, Stock: 50},
			{Name: "Smartphone", Price: 69900, Stock: 100},
			{Name: "Headphones", Price: 19900, Stock: 200},
			{Name: "Tablet", Price: 49900, Stock: 75},
			{Name: "Smartwatch", Price: 29900, Stock: 150},
		},
		"extras.jsonl.gz": {
			{Name: "Laptop", Price: 99900, Stock: 50},
			{Name: "Keyboard", Price: 4900, Stock: 300},
			{Name: "Monitor", Price: 24900, Stock: 40},
			{Name: "Broken", Price: 0, Stock: 1},
		},
	}

	for filename, items := range files {
		filePath := filepath.Join(dataDir, filename)

		if err := createSeedFile(filePath, items); err != nil {
			log.Fatalf("Failed to create %s: %v", filename, err)
		}

		fmt.Printf("Created %s with %d products\n", filePath, len(items))
	}

	fmt.Println("\nSample catalogue files created successfully!")
	fmt.Println("Seed them with: SEED_FILES=data/catalog/products.jsonl.gz,data/catalog/extras.jsonl.gz go run ./cmd/seed")
}

func createSeedFile(filePath string, items []catalog.Item) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	gzipWriter := gzip.NewWriter(file)
	defer gzipWriter.Close()

	enc := json.NewEncoder(gzipWriter)
	for _, item := range items {
		if err := enc.Encode(item); err != nil {
			return fmt.Errorf("failed to write product: %w", err)
		}
	}

	return nil
}
