package tokens

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sudoswap/0x-tracker-worker/internal/domain/model"
)

// Client is the REST client for the token metadata service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a token metadata client. baseURL is the service root,
// e.g. "https://tokens.internal".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type tokenResponse struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals int    `json:"decimals"`
}

// FetchToken looks up token metadata by address.
func (c *Client) FetchToken(ctx context.Context, address string) (*model.Token, error) {
	url := fmt.Sprintf("%s/tokens/%s", c.baseURL, address)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("tokens: build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tokens: fetch %s: %w", address, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("tokens: fetch %s: unexpected status %d: %s", address, resp.StatusCode, body)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("tokens: decode response for %s: %w", address, err)
	}

	return &model.Token{
		Address:  address,
		Symbol:   tr.Symbol,
		Name:     tr.Name,
		Decimals: tr.Decimals,
	}, nil
}
