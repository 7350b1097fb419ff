package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	elasticsearch "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// DefaultIndex is the search index holding fill documents.
const DefaultIndex = "fills"

type Config struct {
	Addresses []string
	Index     string
	// Transport overrides the HTTP round tripper, used by tests.
	Transport http.RoundTripper
}

// Client writes fill documents to the search index.
type Client struct {
	es     *elasticsearch.Client
	index  string
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	index := cfg.Index
	if index == "" {
		index = DefaultIndex
	}

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Transport: cfg.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	return &Client{
		es:     es,
		index:  index,
		logger: logger.With("component", "search"),
	}, nil
}

// IndexFill writes doc under fillID, fully replacing any prior document
// for that key. Idempotent overwrite.
func (c *Client) IndexFill(ctx context.Context, fillID string, doc FillDocument) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal fill document %s: %w", fillID, err)
	}

	req := esapi.IndexRequest{
		Index:      c.index,
		DocumentID: fillID,
		Body:       bytes.NewReader(body),
	}

	res, err := req.Do(ctx, c.es)
	if err != nil {
		return fmt.Errorf("index fill %s: %w", fillID, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		detail, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("index fill %s: %s: %s", fillID, res.Status(), detail)
	}

	c.logger.Debug("indexed fill", "fill", fillID)
	return nil
}
