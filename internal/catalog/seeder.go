package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"stockroom/internal/model"

	"github.com/rs/zerolog"
)

// ProductCreator is the part of the product service the seeder uses.
type ProductCreator interface {
	Create(ctx context.Context, req model.CreateProductRequest) (*model.Product, error)
}

// Result summarises a seeding run.
type Result struct {
	Loaded     int
	Created    int
	Duplicates int
	Invalid    int
}

// Seeder loads seed files and creates their products.
type Seeder struct {
	loader   Loader
	products ProductCreator
	logger   zerolog.Logger
}

// NewSeeder creates a new catalogue seeder.
func NewSeeder(loader Loader, products ProductCreator, logger zerolog.Logger) *Seeder {
	return &Seeder{
		loader:   loader,
		products: products,
		logger:   logger.With().Str("component", "catalog-seeder").Logger(),
	}
}

// Seed loads every file concurrently, then creates the products one at a
// time in file order. Names that already exist are skipped, so reruns are
// safe. Any other creation error aborts the run.
func (s *Seeder) Seed(ctx context.Context, paths []string) (Result, error) {
	type loadResult struct {
		index int
		items []Item
		err   error
	}

	resultChan := make(chan loadResult, len(paths))
	var wg sync.WaitGroup

	for i, path := range paths {
		wg.Add(1)
		go func(index int, path string) {
			defer wg.Done()

			items, err := s.loader.Load(ctx, path)
			resultChan <- loadResult{index: index, items: items, err: err}
		}(i, path)
	}

	wg.Wait()
	close(resultChan)

	results := make([]loadResult, len(paths))
	for result := range resultChan {
		results[result.index] = result
	}

	var res Result
	for i, result := range results {
		if result.err != nil {
			return res, fmt.Errorf("failed to load seed file %s: %w", paths[i], result.err)
		}
		res.Loaded += len(result.items)
	}

	for _, result := range results {
		for _, item := range result.items {
			if !item.Valid() {
				res.Invalid++
				s.logger.Warn().
					Str("product_name", item.Name).
					Int("price", item.Price).
					Int("stock", item.Stock).
					Msg("skipping invalid seed item")
				continue
			}

			_, err := s.products.Create(ctx, model.CreateProductRequest{
				Name:  strings.TrimSpace(item.Name),
				Price: item.Price,
				Stock: item.Stock,
			})
			switch {
			case err == nil:
				res.Created++
			case errors.Is(err, model.ErrDuplicateName):
				res.Duplicates++
			default:
				return res, fmt.Errorf("failed to seed product %q: %w", item.Name, err)
			}
		}
	}

	s.logger.Info().
		Int("loaded", res.Loaded).
		Int("created", res.Created).
		Int("duplicates", res.Duplicates).
		Int("invalid", res.Invalid).
		Msg("catalogue seeded")

	return res, nil
}
