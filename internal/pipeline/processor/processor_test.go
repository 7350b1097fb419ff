package processor

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudoswap/0x-tracker-worker/internal/domain/model"
	"github.com/sudoswap/0x-tracker-worker/internal/pipeline/builder"
	"github.com/sudoswap/0x-tracker-worker/internal/pipeline/valuator"
)

const (
	testBlockHash = "0x48d886d6a92fd8515963dab0ea79273b7aa0af3f5a7efeafd8bf1288f80b07b0"
	testTxHash    = "0xd1e01c31a2183107221ef094b3f7cbfedd13db0340df935464c1dddd2259a1ea"
	wethToken     = "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"
	daiToken      = "0x6b175474e89094c44da98b954eedeac495271d0f"
)

type fakeEventRepo struct {
	events []model.Event
	err    error
}

func (f *fakeEventRepo) FindUnprocessed(_ context.Context, limit int) ([]model.Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.events) {
		return f.events[:limit], nil
	}
	return f.events, nil
}

type fakeFillRepo struct {
	created []*model.Fill
	err     error
}

func (f *fakeFillRepo) CreateWithEvent(_ context.Context, fill *model.Fill) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, fill)
	return nil
}

func (f *fakeFillRepo) FindByID(context.Context, string) (*model.Fill, error) {
	return nil, nil
}

type fakeBlockRepo struct {
	blocks map[string]model.Block
}

func (f *fakeBlockRepo) FindByHash(_ context.Context, hash string) (*model.Block, error) {
	if b, ok := f.blocks[hash]; ok {
		return &b, nil
	}
	return nil, nil
}

type fakeRegistrar struct {
	tokens map[string]model.Token
	seen   []string
	err    error
}

func (f *fakeRegistrar) EnsureExists(_ context.Context, address string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.seen = append(f.seen, address)
	return false, nil
}

func (f *fakeRegistrar) Get(address string) (model.Token, bool) {
	t, ok := f.tokens[address]
	return t, ok
}

type fakeRates struct {
	rates map[string]decimal.Decimal
}

func (f *fakeRates) Rate(_ context.Context, symbol, _ string, _ time.Time) (decimal.Decimal, bool, error) {
	r, ok := f.rates[symbol]
	return r, ok, nil
}

type fakeEnqueuer struct {
	fillIDs []string
	err     error
}

func (f *fakeEnqueuer) EnqueueIndexFill(_ context.Context, fillID string) error {
	if f.err != nil {
		return f.err
	}
	f.fillIDs = append(f.fillIDs, fillID)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(nopWriter{}, nil))
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func padAddress(addr string) string {
	return strings.Repeat("0", 24) + strings.TrimPrefix(addr, "0x")
}

func erc20AssetData(token string) string {
	return "0xf47261b0" + padAddress(token)
}

func testEvent(t *testing.T, id string, args model.EventArgs) model.Event {
	t.Helper()

	data, err := json.Marshal(model.EventData{Args: args})
	require.NoError(t, err)

	return model.Event{
		ID:              id,
		BlockHash:       testBlockHash,
		BlockNumber:     10997543,
		LogIndex:        264,
		TransactionHash: testTxHash,
		ProtocolVersion: 3,
		Data:            data,
	}
}

func defaultArgs() model.EventArgs {
	return model.EventArgs{
		MakerAddress:           "0xc47b7094f378e54347e281aab170e8cca69d880a",
		TakerAddress:           "0xf9757222770d93f0f71c30098d12d4754209f4d4",
		FeeRecipientAddress:    "0x1000000000000000000000000000000000000011",
		MakerAssetData:         erc20AssetData(wethToken),
		TakerAssetData:         erc20AssetData(daiToken),
		MakerAssetFilledAmount: "360000000000000000",
		TakerAssetFilledAmount: "130000000000000000000",
		ProtocolFeePaid:        "0",
		OrderHash:              "0x56b4f9485a5b3b21e66b2f4f91a0d54a1411ee4fd5e680772a2f7a35638d37d3",
	}
}

type fixture struct {
	events    *fakeEventRepo
	fills     *fakeFillRepo
	registrar *fakeRegistrar
	queue     *fakeEnqueuer
	processor *Processor
}

func newFixture(events ...model.Event) *fixture {
	logger := testLogger()

	blockRepo := &fakeBlockRepo{blocks: map[string]model.Block{
		testBlockHash: {Hash: testBlockHash, Number: 10997543, Timestamp: time.Date(2020, 10, 5, 19, 10, 18, 0, time.UTC)},
	}}
	registrar := &fakeRegistrar{tokens: map[string]model.Token{
		wethToken: {Address: wethToken, Symbol: "WETH", Decimals: 18},
		daiToken:  {Address: daiToken, Symbol: "DAI", Decimals: 18},
	}}
	rates := &fakeRates{rates: map[string]decimal.Decimal{
		"ETH": decimal.RequireFromString("362.75"),
		"DAI": decimal.RequireFromString("1.01"),
	}}

	f := &fixture{
		events:    &fakeEventRepo{events: events},
		fills:     &fakeFillRepo{},
		registrar: registrar,
		queue:     &fakeEnqueuer{},
	}
	f.processor = New(
		f.events,
		f.fills,
		builder.New(blockRepo, logger),
		valuator.New(registrar, rates, logger),
		registrar,
		f.queue,
		logger,
	)
	return f
}

func TestRunCreatesAndEnqueuesFills(t *testing.T) {
	t.Parallel()

	f := newFixture(
		testEvent(t, "5f7b709a5a345268dec8d425", defaultArgs()),
		testEvent(t, "5f7b709a5a345268dec8d426", defaultArgs()),
	)

	require.NoError(t, f.processor.Run(context.Background(), 100))

	require.Len(t, f.fills.created, 2)
	assert.Equal(t, "5f7b709a5a345268dec8d425", f.fills.created[0].ID)
	assert.True(t, f.fills.created[0].HasValue)
	assert.Equal(t, []string{"5f7b709a5a345268dec8d425", "5f7b709a5a345268dec8d426"}, f.queue.fillIDs)

	// Every asset token was registered before valuation.
	assert.Equal(t, []string{wethToken, daiToken, wethToken, daiToken}, f.registrar.seen)
}

func TestRunSkipsEventWithMissingBlock(t *testing.T) {
	t.Parallel()

	missing := testEvent(t, "5f7b709a5a345268dec8d425", defaultArgs())
	missing.BlockHash = "0x0000000000000000000000000000000000000000000000000000000000000000"
	ok := testEvent(t, "5f7b709a5a345268dec8d426", defaultArgs())

	f := newFixture(missing, ok)

	require.NoError(t, f.processor.Run(context.Background(), 100))

	require.Len(t, f.fills.created, 1)
	assert.Equal(t, "5f7b709a5a345268dec8d426", f.fills.created[0].ID)
}

func TestRunSkipsEventWithUnsupportedAsset(t *testing.T) {
	t.Parallel()

	args := defaultArgs()
	args.MakerAssetData = "0xdeadbeef" + padAddress(wethToken)
	bad := testEvent(t, "5f7b709a5a345268dec8d425", args)
	ok := testEvent(t, "5f7b709a5a345268dec8d426", defaultArgs())

	f := newFixture(bad, ok)

	require.NoError(t, f.processor.Run(context.Background(), 100))

	require.Len(t, f.fills.created, 1)
	assert.Equal(t, "5f7b709a5a345268dec8d426", f.fills.created[0].ID)
	assert.Equal(t, []string{"5f7b709a5a345268dec8d426"}, f.queue.fillIDs)
}

func TestRunSkipsEventWithUnsupportedProtocol(t *testing.T) {
	t.Parallel()

	old := testEvent(t, "5f7b709a5a345268dec8d425", defaultArgs())
	old.ProtocolVersion = 1

	f := newFixture(old)

	require.NoError(t, f.processor.Run(context.Background(), 100))
	assert.Empty(t, f.fills.created)
	assert.Empty(t, f.queue.fillIDs)
}

func TestRunValuationFailureSkipsItemOnly(t *testing.T) {
	t.Parallel()

	f := newFixture(
		testEvent(t, "5f7b709a5a345268dec8d425", defaultArgs()),
		testEvent(t, "5f7b709a5a345268dec8d426", defaultArgs()),
	)
	// No ETH rate: valuation of the maker (WETH) side fails for both items,
	// but the batch itself still completes.
	f.processor.valuator = valuator.New(
		f.registrar,
		&fakeRates{rates: map[string]decimal.Decimal{}},
		testLogger(),
	)

	require.NoError(t, f.processor.Run(context.Background(), 100))
	assert.Empty(t, f.fills.created)
	assert.Empty(t, f.queue.fillIDs)
}

func TestRunAbortsOnPersistFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(
		testEvent(t, "5f7b709a5a345268dec8d425", defaultArgs()),
		testEvent(t, "5f7b709a5a345268dec8d426", defaultArgs()),
	)
	f.fills.err = errors.New("connection reset")

	err := f.processor.Run(context.Background(), 100)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persist fill for event 5f7b709a5a345268dec8d425")
	assert.Empty(t, f.queue.fillIDs)
}

func TestRunAbortsOnTokenRegistrationFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(testEvent(t, "5f7b709a5a345268dec8d425", defaultArgs()))
	f.registrar.err = errors.New("token service down")

	err := f.processor.Run(context.Background(), 100)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ensure token")
	assert.Empty(t, f.fills.created)
}

func TestRunAbortsOnEnqueueFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(testEvent(t, "5f7b709a5a345268dec8d425", defaultArgs()))
	f.queue.err = errors.New("redis unavailable")

	err := f.processor.Run(context.Background(), 100)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "enqueue indexing of fill")
	// The fill was persisted before the enqueue attempt.
	assert.Len(t, f.fills.created, 1)
}

func TestRunRespectsBatchSize(t *testing.T) {
	t.Parallel()

	f := newFixture(
		testEvent(t, "5f7b709a5a345268dec8d425", defaultArgs()),
		testEvent(t, "5f7b709a5a345268dec8d426", defaultArgs()),
		testEvent(t, "5f7b709a5a345268dec8d427", defaultArgs()),
	)

	require.NoError(t, f.processor.Run(context.Background(), 2))
	assert.Len(t, f.fills.created, 2)
}

func TestRunPropagatesLoadFailure(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.events.err = errors.New("db down")

	err := f.processor.Run(context.Background(), 100)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load unprocessed events")
}
