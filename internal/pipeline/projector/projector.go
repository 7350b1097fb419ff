package projector

import (
	"context"
	"log/slog"
	"regexp"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sudoswap/0x-tracker-worker/internal/addresses"
	"github.com/sudoswap/0x-tracker-worker/internal/domain/model"
	"github.com/sudoswap/0x-tracker-worker/internal/metrics"
	"github.com/sudoswap/0x-tracker-worker/internal/search"
	"github.com/sudoswap/0x-tracker-worker/internal/store"
	redisq "github.com/sudoswap/0x-tracker-worker/internal/store/redis"
)

var fillIDPattern = regexp.MustCompile(`^[0-9a-f]{24}$`)

// DocumentWriter writes a fill document to the search index.
type DocumentWriter interface {
	IndexFill(ctx context.Context, fillID string, doc search.FillDocument) error
}

// Projector consumes index-fill jobs: it loads the persisted fill,
// resolves the effective taker, derives the reduced document, and writes
// it to the search index.
type Projector struct {
	fills      store.FillRepository
	txs        store.TransactionRepository
	classifier addresses.ContractChecker
	writer     DocumentWriter
	logger     *slog.Logger
	nowFn      func() time.Time
}

func New(
	fills store.FillRepository,
	txs store.TransactionRepository,
	classifier addresses.ContractChecker,
	writer DocumentWriter,
	logger *slog.Logger,
) *Projector {
	return &Projector{
		fills:      fills,
		txs:        txs,
		classifier: classifier,
		writer:     writer,
		logger:     logger.With("component", "projector"),
		nowFn:      time.Now,
	}
}

// Handle processes one queue job.
func (p *Projector) Handle(ctx context.Context, job redisq.Job) error {
	start := time.Now()

	err := p.Project(ctx, job.FillID())
	switch {
	case err == nil:
		metrics.IndexJobDuration.Observe(time.Since(start).Seconds())
	case IsTerminal(err):
		metrics.IndexJobFailures.WithLabelValues(metrics.FailureTerminal).Inc()
	default:
		metrics.IndexJobFailures.WithLabelValues(metrics.FailureTransient).Inc()
	}
	return err
}

// Permanent classifies handler errors for the queue: terminal projector
// failures must not be retried.
func (p *Projector) Permanent(err error) bool {
	return IsTerminal(err)
}

// Project indexes the fill with the given id.
func (p *Projector) Project(ctx context.Context, fillID string) error {
	if !fillIDPattern.MatchString(fillID) {
		return &InvalidFillIDError{FillID: fillID}
	}

	fill, err := p.fills.FindByID(ctx, fillID)
	if err != nil {
		return err
	}
	if fill == nil {
		return &FillNotFoundError{FillID: fillID}
	}

	taker, err := addresses.ResolveEffectiveTaker(ctx, fill, p.classifier, p.txs)
	if err != nil {
		return err
	}

	doc := p.buildDocument(fill, taker)
	if err := p.writer.IndexFill(ctx, fillID, doc); err != nil {
		return err
	}

	metrics.FillsIndexed.Inc()
	p.logger.Debug("projected fill", "fill", fillID, "taker", taker)
	return nil
}

func (p *Projector) buildDocument(fill *model.Fill, taker string) search.FillDocument {
	assets := make([]search.AssetDocument, len(fill.Assets))
	for i, a := range fill.Assets {
		assets[i] = search.AssetDocument{
			TokenAddress:  a.TokenAddress,
			BridgeAddress: a.BridgeAddress,
		}
	}

	fees := fill.Fees
	if fees == nil {
		fees = []model.Fee{}
	}

	doc := search.FillDocument{
		AffiliateAddress:       fill.AffiliateAddress,
		Assets:                 assets,
		Date:                   fill.Date,
		FeeRecipient:           fill.FeeRecipient,
		Fees:                   fees,
		Maker:                  fill.Maker,
		OrderHash:              fill.OrderHash,
		ProtocolFeeETH:         rawFloat(fill.ProtocolFee),
		ProtocolVersion:        fill.ProtocolVersion,
		RelayerID:              fill.RelayerID,
		SenderAddress:          fill.SenderAddress,
		Status:                 int(fill.Status),
		Taker:                  taker,
		TradeCountContribution: fill.TradeCountContribution(),
		Traders:                uniqueOrdered(fill.Maker, taker),
		TransactionHash:        fill.TransactionHash,
		UpdatedAt:              p.nowFn().UTC(),
	}

	if fill.Conversions.USD.Amount != nil {
		volume := fill.Conversions.USD.Amount.InexactFloat64()
		doc.TradeVolume = &volume
		value := volume
		doc.Value = &value
	}
	if fill.Conversions.USD.ProtocolFee != nil {
		fee := fill.Conversions.USD.ProtocolFee.InexactFloat64()
		doc.ProtocolFeeUSD = &fee
	}

	return doc
}

// uniqueOrdered returns {maker, taker} preserving order, collapsing
// self-trades to one entry.
func uniqueOrdered(maker, taker string) []string {
	if maker == taker {
		return []string{maker}
	}
	return []string{maker, taker}
}

func rawFloat(raw string) float64 {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0
	}
	return d.InexactFloat64()
}
