package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/recipeprice/backend/internal/domain"
)

const (
	maxAttempts       = 3
	maxErrorBodyBytes = 1024
	defaultPageSize   = 20
)

// Client queries an Elasticsearch-compatible document store holding the recipe and
// price indices. It implements domain.RecipeRepository and domain.PriceRepository.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	recipeIndex string
	priceIndex  string
	rateLimiter *rate.Limiter
	backoff     func(attempt int) time.Duration
	debug       bool
}

// NewClient creates a new document store client. requestsPerSecond <= 0 disables throttling.
func NewClient(baseURL, recipeIndex, priceIndex string, requestsPerSecond float64) *Client {
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL:     strings.TrimRight(baseURL, "/"),
		recipeIndex: recipeIndex,
		priceIndex:  priceIndex,
		rateLimiter: rate.NewLimiter(limit, 10),
		backoff:     exponentialBackoff,
	}
}

// SetDebug toggles request/response logging
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

func (c *Client) debugLog(format string, args ...interface{}) {
	if c.debug {
		log.Debug().Str("component", "search").Msgf(format, args...)
	}
}

// exponentialBackoff returns 500ms, 1s, 2s, ... for attempts 1, 2, 3, ...
func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(500*(1<<(attempt-1))) * time.Millisecond
}

var errIndexMissing = errors.New("index not found")

// positionField holds a price record's position in the source file. Indexers set it
// so hits come back in file order.
const positionField = "position"

type matchQuery map[string]interface{}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			Source json.RawMessage `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// FindRecipe returns the best hit of a match query on the recipe name
func (c *Client) FindRecipe(ctx context.Context, name string) (*domain.Recipe, error) {
	query := matchQuery{
		"size":  1,
		"query": matchQuery{"match": matchQuery{"name": name}},
	}

	hits, err := c.search(ctx, c.recipeIndex, query)
	if errors.Is(err, errIndexMissing) {
		return nil, domain.ErrRecipeNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, domain.ErrRecipeNotFound
	}

	var recipe domain.Recipe
	if err := json.Unmarshal(hits[0], &recipe); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &recipe, nil
}

// FindPrices returns price records whose ingredient or other_ingredients match the name.
// Matching is full-text on the store side; callers filter on exact names.
func (c *Client) FindPrices(ctx context.Context, ingredient string) ([]domain.PriceRecord, error) {
	query := matchQuery{
		"size": defaultPageSize,
		// store order, not relevance, decides which record prices an ingredient
		"sort": []matchQuery{
			{positionField: matchQuery{"order": "asc", "unmapped_type": "long"}},
			{"_doc": matchQuery{"order": "asc"}},
		},
		"query": matchQuery{
			"bool": matchQuery{
				"should": []matchQuery{
					{"match": matchQuery{"ingredient": ingredient}},
					{"match": matchQuery{"other_ingredients": ingredient}},
				},
			},
		},
	}

	hits, err := c.search(ctx, c.priceIndex, query)
	if errors.Is(err, errIndexMissing) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	records := make([]domain.PriceRecord, 0, len(hits))
	for _, hit := range hits {
		var record domain.PriceRecord
		if err := json.Unmarshal(hit, &record); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
		// match queries are analyzed, "farine" also hits "farine de blé"
		if !record.Satisfies(ingredient) {
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

// search posts a query to index/_search and returns the _source of every hit.
// 5xx and 429 responses are retried with backoff.
func (c *Client) search(ctx context.Context, index string, query matchQuery) ([]json.RawMessage, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}
	endpoint := fmt.Sprintf("%s/%s/_search", c.baseURL, url.PathEscape(index))

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", "RecipePrice/1.0")

		c.debugLog("POST %s attempt=%d body=%s", endpoint, attempt, body)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: %v", domain.ErrSearchFailure, err)
			if ctx.Err() != nil {
				return nil, lastErr
			}
			if !c.sleep(ctx, attempt) {
				return nil, lastErr
			}
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			var parsed searchResponse
			err := json.NewDecoder(resp.Body).Decode(&parsed)
			resp.Body.Close()
			if err != nil {
				return nil, fmt.Errorf("failed to decode response: %w", err)
			}
			hits := make([]json.RawMessage, 0, len(parsed.Hits.Hits))
			for _, h := range parsed.Hits.Hits {
				hits = append(hits, h.Source)
			}
			c.debugLog("index=%s hits=%d", index, len(hits))
			return hits, nil

		case resp.StatusCode == http.StatusNotFound:
			resp.Body.Close()
			return nil, errIndexMissing

		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			msg, _ := readLimitedBody(resp.Body, maxErrorBodyBytes)
			resp.Body.Close()
			log.Warn().Int("status", resp.StatusCode).Int("attempt", attempt).Str("index", index).Msg("document store error, retrying")
			lastErr = fmt.Errorf("%w: status %d: %s", domain.ErrSearchFailure, resp.StatusCode, msg)
			if !c.sleep(ctx, attempt) {
				return nil, lastErr
			}

		default:
			msg, _ := readLimitedBody(resp.Body, maxErrorBodyBytes)
			resp.Body.Close()
			return nil, fmt.Errorf("%w: status %d: %s", domain.ErrSearchFailure, resp.StatusCode, msg)
		}
	}

	return nil, lastErr
}

// sleep waits for the backoff of attempt unless it was the last one or ctx ends
func (c *Client) sleep(ctx context.Context, attempt int) bool {
	if attempt >= maxAttempts {
		return false
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(c.backoff(attempt)):
		return true
	}
}

// readLimitedBody reads at most limit bytes from r
func readLimitedBody(r io.Reader, limit int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, limit))
}
