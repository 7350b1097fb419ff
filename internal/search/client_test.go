package search

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(nopWriter{}, nil))
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func testDocument() FillDocument {
	volume := 4905.859567
	value := volume
	return FillDocument{
		Assets: []AssetDocument{
			{TokenAddress: "0x1f9840a85d5af5bf1d1762f925bdaddc4201f984"},
			{TokenAddress: "0x6b175474e89094c44da98b954eedeac495271d0f"},
		},
		Date:                   time.Date(2020, 10, 1, 4, 6, 4, 0, time.UTC),
		FeeRecipient:           "0x1000000000000000000000000000000000000011",
		Maker:                  "0xc47b7094f378e54347e281aab170e8cca69d880a",
		OrderHash:              "0x56b4f9485a5b3b21e66b2f4f91a0d54a1411ee4fd5e680772a2f7a35638d37d3",
		ProtocolVersion:        3,
		SenderAddress:          "0xf9757222770d93f0f71c30098d12d4754209f4d4",
		Status:                 1,
		Taker:                  "0xf9757222770d93f0f71c30098d12d4754209f4d4",
		TradeCountContribution: 1,
		TradeVolume:            &volume,
		Traders: []string{
			"0xc47b7094f378e54347e281aab170e8cca69d880a",
			"0xf9757222770d93f0f71c30098d12d4754209f4d4",
		},
		TransactionHash: "0xd1e01c31a2183107221ef094b3f7cbfedd13db0340df935464c1dddd2259a1ea",
		UpdatedAt:       time.Date(2020, 10, 6, 12, 0, 0, 0, time.UTC),
		Value:           &value,
	}
}

func TestIndexFill(t *testing.T) {
	t.Parallel()

	var (
		gotMethod string
		gotPath   string
		gotBody   []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotBody, _ = io.ReadAll(r.Body)

		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result":"created"}`))
	}))
	defer srv.Close()

	c, err := NewClient(Config{Addresses: []string{srv.URL}}, testLogger())
	require.NoError(t, err)

	require.NoError(t, c.IndexFill(context.Background(), "5f7556972d14a83036966e50", testDocument()))

	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/fills/_doc/5f7556972d14a83036966e50", gotPath)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(gotBody, &decoded))
	assert.Equal(t, "0xc47b7094f378e54347e281aab170e8cca69d880a", decoded["maker"])
	assert.InDelta(t, 4905.859567, decoded["tradeVolume"], 1e-9)
	assert.Equal(t, float64(1), decoded["tradeCountContribution"])

	// Unset optional fields stay out of the document entirely.
	assert.NotContains(t, decoded, "protocolFeeUSD")
	assert.NotContains(t, decoded, "relayerId")
	assert.NotContains(t, decoded, "affiliateAddress")
}

func TestIndexFillCustomIndex(t *testing.T) {
	t.Parallel()

	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result":"created"}`))
	}))
	defer srv.Close()

	c, err := NewClient(Config{Addresses: []string{srv.URL}, Index: "fills_staging"}, testLogger())
	require.NoError(t, err)

	require.NoError(t, c.IndexFill(context.Background(), "5f7556972d14a83036966e50", testDocument()))
	assert.Equal(t, "/fills_staging/_doc/5f7556972d14a83036966e50", gotPath)
}

func TestIndexFillServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"shard unavailable"}`))
	}))
	defer srv.Close()

	c, err := NewClient(Config{Addresses: []string{srv.URL}}, testLogger())
	require.NoError(t, err)

	err = c.IndexFill(context.Background(), "5f7556972d14a83036966e50", testDocument())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index fill 5f7556972d14a83036966e50")
}
