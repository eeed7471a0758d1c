package dexscreener

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"autosell-worker/internal/pkg/config"
	"autosell-worker/internal/pkg/log_messages"
	"autosell-worker/internal/pkg/logger"
	"autosell-worker/internal/pkg/models"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// QuoteProviderError carries the HTTP status of a failed lookup. StatusCode
// is -1 when no response was received.
type QuoteProviderError struct {
	StatusCode int
	Err        error
}

func (e *QuoteProviderError) Error() string {
	return fmt.Sprintf("quote provider error: statusCode=%d, err:%v", e.StatusCode, e.Err)
}

func (e *QuoteProviderError) Unwrap() error { return e.Err }

type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewClient(cfg config.QuoteConfig) *Client {
	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute))
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.HTTPTimeout,
		},
		limiter: rate.NewLimiter(limit, 1),
	}
}

// GetPairs returns the pairs the provider lists for token, in provider order.
func (c *Client) GetPairs(ctx context.Context, token string) ([]models.TokenPair, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &QuoteProviderError{StatusCode: -1, Err: err}
	}

	reqURL := fmt.Sprintf("%s/latest/dex/tokens/%s", c.baseURL, url.PathEscape(token))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &QuoteProviderError{StatusCode: -1, Err: err}
	}
	httpReq.Header.Set("Accept", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		logger.CtxError(ctx, "Quote request failed", err, zap.String("token", token))
		return nil, &QuoteProviderError{
			StatusCode: -1,
			Err:        fmt.Errorf(log_messages.ErrorFailedToSendQuoteRequest, err),
		}
	}
	defer func() {
		if cerr := httpResp.Body.Close(); cerr != nil {
			logger.CtxWarn(ctx, "Failed to close quote response body", zap.Error(cerr))
		}
	}()

	if httpResp.StatusCode != http.StatusOK {
		return nil, &QuoteProviderError{
			StatusCode: httpResp.StatusCode,
			Err:        fmt.Errorf(log_messages.ErrorQuoteProviderStatus, httpResp.StatusCode),
		}
	}

	var body models.TokenPairsResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&body); err != nil {
		return nil, &QuoteProviderError{
			StatusCode: httpResp.StatusCode,
			Err:        fmt.Errorf(log_messages.ErrorDecodingQuoteResponse, err),
		}
	}

	logger.CtxDebug(ctx, "Received token pairs", zap.String("token", token), zap.Int("pairs", len(body.Pairs)))
	return body.Pairs, nil
}
