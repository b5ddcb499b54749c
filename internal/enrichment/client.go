// Package enrichment builds random catalogue entries from the public
// Pokémon API.
package enrichment

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"stockroom/internal/config"
	"stockroom/internal/model"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

const (
	pokemonCount = 151
	minPrice     = 50
	priceSpan    = 10000
	maxStock     = 10
)

type pokemon struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Client fetches a random Pokémon and turns it into a product draft. Calls
// go through a circuit breaker so a failing upstream is not hammered.
type Client struct {
	http    *resty.Client
	breaker *gobreaker.CircuitBreaker
	intn    func(n int) int
	logger  zerolog.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithRand replaces the random source. intn must return a value in [0, n).
func WithRand(intn func(n int) int) Option {
	return func(c *Client) {
		c.intn = intn
	}
}

// NewClient creates a client for the API rooted at cfg.BaseURL.
func NewClient(cfg config.EnrichmentConfig, logger zerolog.Logger, opts ...Option) *Client {
	logger = logger.With().Str("component", "enrichment").Logger()

	c := &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
			SetTimeout(cfg.Timeout).
			SetHeader("Accept", "application/json"),
		intn:   rand.IntN,
		logger: logger,
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "pokeapi",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	})

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// RandomProduct returns a product draft named after a random Pokémon with
// a random price and stock.
func (c *Client) RandomProduct(ctx context.Context) (*model.CreateProductRequest, error) {
	id := 1 + c.intn(pokemonCount)

	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.http.R().
			SetContext(ctx).
			SetResult(&pokemon{}).
			Get(fmt.Sprintf("/pokemon/%d", id))
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return nil, fmt.Errorf("unexpected status %d", resp.StatusCode())
		}
		return resp.Result().(*pokemon), nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			c.logger.Warn().Err(err).Msg("enrichment short-circuited")
		} else {
			c.logger.Error().Err(err).Int("pokemon_id", id).Msg("failed to fetch pokemon")
		}
		return nil, fmt.Errorf("%w: %v", model.ErrEnrichmentUnavailable, err)
	}

	p := result.(*pokemon)
	if p.Name == "" {
		return nil, fmt.Errorf("%w: empty name for pokemon %d", model.ErrEnrichmentUnavailable, id)
	}

	return &model.CreateProductRequest{
		Name:  capitalize(p.Name) + " Plush Doll",
		Price: minPrice + c.intn(priceSpan),
		Stock: 1 + c.intn(maxStock),
	}, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
