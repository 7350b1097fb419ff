package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

// Client is the REST client for the external price oracle. Requests are
// throttled so batch valuation stays inside the oracle's rate limits.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a price oracle client. requestsPerSecond bounds the
// outbound request rate; zero or negative disables throttling.
func NewClient(baseURL string, requestsPerSecond float64) *Client {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if requestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		limiter: limiter,
	}
}

type rateResponse struct {
	Rate decimal.Decimal `json:"rate"`
}

// Rate returns the conversion rate from symbol to target at the given
// point in time. The second return value is false when the oracle has no
// rate for the pair/date ("unavailable" is an answer, not an error).
func (c *Client) Rate(ctx context.Context, symbol, target string, at time.Time) (decimal.Decimal, bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return decimal.Decimal{}, false, fmt.Errorf("rates: wait for limiter: %w", err)
	}

	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("convert", target)
	q.Set("time", at.UTC().Format(time.RFC3339))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/v1/rate?"+q.Encode(), nil)
	if err != nil {
		return decimal.Decimal{}, false, fmt.Errorf("rates: build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Decimal{}, false, fmt.Errorf("rates: fetch %s/%s: %w", symbol, target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return decimal.Decimal{}, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return decimal.Decimal{}, false, fmt.Errorf("rates: fetch %s/%s: unexpected status %d: %s",
			symbol, target, resp.StatusCode, body)
	}

	var rr rateResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return decimal.Decimal{}, false, fmt.Errorf("rates: decode response: %w", err)
	}

	return rr.Rate, true, nil
}
