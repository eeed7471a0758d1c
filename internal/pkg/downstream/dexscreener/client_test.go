package dexscreener

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"autosell-worker/internal/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(url string) *Client {
	return NewClient(config.QuoteConfig{BaseURL: url + "/", HTTPTimeout: 2 * time.Second})
}

func TestGetPairs(t *testing.T) {
	tests := []struct {
		name          string
		statusCode    int
		body          string
		expectError   bool
		expectedPairs int
		firstPrice    string
	}{
		{
			name:       "success",
			statusCode: http.StatusOK,
			body: `{"schemaVersion":"1.0.0","pairs":[
				{"chainId":"ethereum","dexId":"uniswap","pairAddress":"0x1","priceUsd":"1.25"},
				{"chainId":"ethereum","dexId":"sushiswap","pairAddress":"0x2","priceUsd":"1.20"}]}`,
			expectedPairs: 2,
			firstPrice:    "1.25",
		},
		{
			name:          "null pairs",
			statusCode:    http.StatusOK,
			body:          `{"schemaVersion":"1.0.0","pairs":null}`,
			expectedPairs: 0,
		},
		{
			name:        "rate limited",
			statusCode:  http.StatusTooManyRequests,
			body:        `{}`,
			expectError: true,
		},
		{
			name:        "malformed body",
			statusCode:  http.StatusOK,
			body:        `{"pairs":[`,
			expectError: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "/latest/dex/tokens/0xtoken", r.URL.Path)
				w.WriteHeader(tc.statusCode)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			pairs, err := newTestClient(server.URL).GetPairs(context.Background(), "0xtoken")
			if tc.expectError {
				require.Error(t, err)
				var qpErr *QuoteProviderError
				require.True(t, errors.As(err, &qpErr))
				assert.Equal(t, tc.statusCode, qpErr.StatusCode)
				return
			}

			require.NoError(t, err)
			assert.Len(t, pairs, tc.expectedPairs)
			if tc.firstPrice != "" {
				assert.Equal(t, tc.firstPrice, pairs[0].PriceUSD)
			}
		})
	}
}

func TestGetPairsTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := newTestClient(url).GetPairs(context.Background(), "0xtoken")
	var qpErr *QuoteProviderError
	require.True(t, errors.As(err, &qpErr))
	assert.Equal(t, -1, qpErr.StatusCode)
}

func TestGetPairsRateLimiterHonoursContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"pairs":[]}`))
	}))
	defer server.Close()

	client := NewClient(config.QuoteConfig{BaseURL: server.URL, HTTPTimeout: time.Second, RequestsPerMinute: 1})

	_, err := client.GetPairs(context.Background(), "0xtoken")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = client.GetPairs(ctx, "0xtoken")
	assert.Error(t, err, "second call must wait for the limiter and give up with the context")
}
