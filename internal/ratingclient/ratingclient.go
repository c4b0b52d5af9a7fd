// Package ratingclient looks up a player's federation rating (USCF/FIDE)
// from an external rating service, with retry and a bounded cache around
// the network call.
package ratingclient

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/cliffdoyle/chess-arbiter/internal/apperr"
)

const (
	requestTimeout = 10 * time.Second
	cacheCapacity  = 10_000
	cacheTTL       = 30 * time.Minute
)

// retryDelays is the exponential backoff schedule: 3 retries at 1s, 2s, 4s.
var retryDelays = []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}

// ratingResponse matches the federation lookup service's JSON shape.
type ratingResponse struct {
	Rating int `json:"rating"`
}

// Client looks up federation ratings, with a process-wide LRU cache in
// front of the network call.
type Client struct {
	baseURL string
	http    *http.Client
	cache   *lruCache
}

// New creates a Client reading its base URL from RATING_SERVICE_URL.
func New() *Client {
	baseURL := os.Getenv("RATING_SERVICE_URL")
	if baseURL == "" {
		log.Println("Warning: RATING_SERVICE_URL environment variable is not set. Rating lookups will fail.")
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: requestTimeout},
		cache:   newLRUCache(cacheCapacity, cacheTTL),
	}
}

// Lookup fetches a federation id's current rating, serving from cache when
// possible and retrying transient failures with a 10s-per-attempt timeout
// and exponential backoff. A lookup failure is an IntegrationError, not
// fatal to the caller.
func (c *Client) Lookup(ctx context.Context, federationID string) (int, error) {
	if rating, ok := c.cache.Get(federationID); ok {
		return rating, nil
	}
	if c.baseURL == "" {
		return 0, &apperr.IntegrationError{System: "rating-service", Err: fmt.Errorf("RATING_SERVICE_URL is not configured")}
	}

	var lastErr error
	for attempt := 0; attempt <= len(retryDelays); attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return 0, &apperr.IntegrationError{System: "rating-service", Err: ctx.Err()}
			case <-time.After(retryDelays[attempt-1]):
			}
		}

		rating, err := c.fetch(ctx, federationID)
		if err == nil {
			c.cache.CompareAndSwap(federationID, rating)
			return rating, nil
		}
		lastErr = err
		log.Printf("[ratingclient] lookup attempt %d for %s failed: %v", attempt+1, federationID, err)
	}
	return 0, &apperr.IntegrationError{System: "rating-service", Err: lastErr}
}

func (c *Client) fetch(ctx context.Context, federationID string) (int, error) {
	url := fmt.Sprintf("%s/ratings/%s", c.baseURL, federationID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("build rating request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("call rating service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("rating service returned status %d", resp.StatusCode)
	}

	var payload ratingResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("decode rating response: %w", err)
	}
	return payload.Rating, nil
}
