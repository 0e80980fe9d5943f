package client

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWithHTTPClient(t *testing.T) {
	customClient := &http.Client{Timeout: 60 * time.Second}
	c := &Client{}

	WithHTTPClient(customClient)(c)
	assert.Same(t, customClient, c.httpClient)

	WithHTTPClient(nil)(c)
	assert.Same(t, customClient, c.httpClient)
}

func TestWithTimeout(t *testing.T) {
	c := &Client{}
	WithTimeout(5 * time.Second)(c)
	assert.Equal(t, 5*time.Second, c.httpClient.Timeout)

	WithTimeout(0)(c)
	assert.Equal(t, 5*time.Second, c.httpClient.Timeout)
}

func TestWithLogger(t *testing.T) {
	logger := &testLogger{}
	c := &Client{}

	WithLogger(logger)(c)
	assert.Equal(t, logger, c.logger)
}

func TestWithRetryMax(t *testing.T) {
	tests := []struct {
		name     string
		input    int
		expected int
	}{
		{"positive value", 5, 5},
		{"zero value", 0, 0},
		{"negative value ignored", -1, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Client{retryMax: 2}
			WithRetryMax(tt.input)(c)
			assert.Equal(t, tt.expected, c.retryMax)
		})
	}
}

func TestWithRetryWait(t *testing.T) {
	tests := []struct {
		name        string
		min         time.Duration
		max         time.Duration
		expectedMin time.Duration
		expectedMax time.Duration
	}{
		{"valid range", time.Second, 10 * time.Second, time.Second, 10 * time.Second},
		{"max below min keeps old max", 2 * time.Second, time.Second, 2 * time.Second, 5 * time.Second},
		{"zero min ignored", 0, 10 * time.Second, 500 * time.Millisecond, 5 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Client{retryWaitMin: 500 * time.Millisecond, retryWaitMax: 5 * time.Second}
			WithRetryWait(tt.min, tt.max)(c)
			assert.Equal(t, tt.expectedMin, c.retryWaitMin)
			assert.Equal(t, tt.expectedMax, c.retryWaitMax)
		})
	}
}

func TestWithUserAgent(t *testing.T) {
	c := &Client{userAgent: "default"}
	WithUserAgent("")(c)
	assert.Equal(t, "default", c.userAgent)
	WithUserAgent("dash/2")(c)
	assert.Equal(t, "dash/2", c.userAgent)
}

type mapCache struct {
	data map[string][]byte
	sets int
}

func newMapCache() *mapCache { return &mapCache{data: map[string][]byte{}} }

func (m *mapCache) GetBody(_ context.Context, key string) ([]byte, bool, error) {
	b, ok := m.data[key]
	return b, ok, nil
}

func (m *mapCache) SetBody(_ context.Context, key string, body []byte) error {
	m.sets++
	m.data[key] = body
	return nil
}

type countingObserver struct {
	paths []string
	codes []int
}

func (o *countingObserver) ObserveRequest(path string, statusCode int, _ time.Duration) {
	o.paths = append(o.paths, path)
	o.codes = append(o.codes, statusCode)
}

func TestWithCacheAndObserver(t *testing.T) {
	c := &Client{}
	cache := newMapCache()
	obs := &countingObserver{}
	WithCache(cache)(c)
	WithObserver(obs)(c)
	assert.Same(t, cache, c.cache)
	assert.Same(t, obs, c.observer)
}
