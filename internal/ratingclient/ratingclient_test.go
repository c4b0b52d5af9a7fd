package ratingclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cliffdoyle/chess-arbiter/internal/apperr"
)

func TestLookupServesFromCacheWithoutHittingNetwork(t *testing.T) {
	c := &Client{http: &http.Client{Timeout: time.Second}, cache: newLRUCache(10, time.Minute)}
	c.cache.CompareAndSwap("12345", 2100)

	rating, err := c.Lookup(context.Background(), "12345")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if rating != 2100 {
		t.Fatalf("rating = %d, want 2100", rating)
	}
}

func TestLookupFetchesAndCachesOnMiss(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"rating": 1950}`))
	}))
	defer server.Close()

	c := &Client{baseURL: server.URL, http: &http.Client{Timeout: time.Second}, cache: newLRUCache(10, time.Minute)}
	rating, err := c.Lookup(context.Background(), "67890")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if rating != 1950 {
		t.Fatalf("rating = %d, want 1950", rating)
	}

	cached, ok := c.cache.Get("67890")
	if !ok || cached != 1950 {
		t.Fatalf("expected the lookup result to populate the cache, got (%d, %v)", cached, ok)
	}
}

func TestLookupWithoutBaseURLIsAnIntegrationError(t *testing.T) {
	c := &Client{http: &http.Client{Timeout: time.Second}, cache: newLRUCache(10, time.Minute)}
	_, err := c.Lookup(context.Background(), "12345")
	var integrationErr *apperr.IntegrationError
	if !errors.As(err, &integrationErr) {
		t.Fatalf("expected IntegrationError when RATING_SERVICE_URL is unset, got %v", err)
	}
}
