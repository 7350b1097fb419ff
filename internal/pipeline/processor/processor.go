package processor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sudoswap/0x-tracker-worker/internal/domain/model"
	"github.com/sudoswap/0x-tracker-worker/internal/metrics"
	"github.com/sudoswap/0x-tracker-worker/internal/pipeline/builder"
	"github.com/sudoswap/0x-tracker-worker/internal/pipeline/valuator"
	"github.com/sudoswap/0x-tracker-worker/internal/store"
)

// TokenRegistrar makes tokens known to the system ahead of valuation.
type TokenRegistrar interface {
	EnsureExists(ctx context.Context, address string) (bool, error)
}

// IndexEnqueuer publishes an index-fill job for a persisted fill.
type IndexEnqueuer interface {
	EnqueueIndexFill(ctx context.Context, fillID string) error
}

// Processor orchestrates build → token registration → valuation → persist
// over a bounded batch of unprocessed events.
type Processor struct {
	events   store.EventRepository
	fills    store.FillRepository
	builder  *builder.Builder
	valuator *valuator.Valuator
	tokens   TokenRegistrar
	queue    IndexEnqueuer
	logger   *slog.Logger
}

func New(
	events store.EventRepository,
	fills store.FillRepository,
	b *builder.Builder,
	v *valuator.Valuator,
	tokens TokenRegistrar,
	queue IndexEnqueuer,
	logger *slog.Logger,
) *Processor {
	return &Processor{
		events:   events,
		fills:    fills,
		builder:  b,
		valuator: v,
		tokens:   tokens,
		queue:    queue,
		logger:   logger.With("component", "processor"),
	}
}

// Run processes up to batchSize pending events, one at a time in load
// order. Events that fail for an expected per-item reason are skipped and
// stay eligible for the next batch; any other error aborts the run,
// leaving already-persisted fills intact.
func (p *Processor) Run(ctx context.Context, batchSize int) error {
	start := time.Now()
	metrics.BatchRunsTotal.Inc()

	events, err := p.events.FindUnprocessed(ctx, batchSize)
	if err != nil {
		return fmt.Errorf("load unprocessed events: %w", err)
	}

	p.logger.Info("found events without associated fills", "count", len(events))
	metrics.BatchEventsLoaded.Add(float64(len(events)))

	for i := range events {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.processEvent(ctx, &events[i]); err != nil {
			return err
		}
	}

	metrics.BatchDuration.Observe(time.Since(start).Seconds())
	return nil
}

func (p *Processor) processEvent(ctx context.Context, event *model.Event) error {
	fill, err := p.builder.Build(ctx, event)
	if err != nil {
		return p.classifyBuildError(event, err)
	}

	for _, asset := range fill.Assets {
		created, err := p.tokens.EnsureExists(ctx, asset.TokenAddress)
		if err != nil {
			return fmt.Errorf("ensure token %s exists: %w", asset.TokenAddress, err)
		}
		if created {
			p.logger.Info("created token", "address", asset.TokenAddress)
		}
	}

	if err := p.valuator.Measure(ctx, fill); err != nil {
		// Valuation failures are fatal for the item, not the batch: the
		// event stays pending and is retried once rates or tokens resolve.
		p.logger.Error("unable to measure fill", "event", event.ID, "error", err)
		metrics.EventsSkipped.WithLabelValues(metrics.SkipValuation).Inc()
		return nil
	}

	if fill.Immeasurable {
		metrics.FillsMeasured.WithLabelValues(metrics.OutcomeImmeasurable).Inc()
	} else {
		metrics.FillsMeasured.WithLabelValues(metrics.OutcomePriced).Inc()
	}

	if err := p.fills.CreateWithEvent(ctx, fill); err != nil {
		return fmt.Errorf("persist fill for event %s: %w", event.ID, err)
	}
	metrics.FillsCreated.Inc()

	if err := p.queue.EnqueueIndexFill(ctx, fill.ID); err != nil {
		return fmt.Errorf("enqueue indexing of fill %s: %w", fill.ID, err)
	}

	p.logger.Debug("created fill", "event", event.ID)
	return nil
}

// classifyBuildError applies the per-item failure policy. Only the three
// expected build-error kinds are swallowed; everything else aborts the
// batch.
func (p *Processor) classifyBuildError(event *model.Event, err error) error {
	kind, ok := builder.KindOf(err)
	if !ok {
		return err
	}

	switch kind {
	case builder.KindMissingBlock:
		p.logger.Warn("unable to create fill due to missing block", "event", event.ID)
		metrics.EventsSkipped.WithLabelValues(metrics.SkipMissingBlock).Inc()
	case builder.KindUnsupportedAsset:
		// Intentionally silent: trade shape may become supported later.
		metrics.EventsSkipped.WithLabelValues(metrics.SkipUnsupportedAsset).Inc()
	case builder.KindUnsupportedProtocol:
		p.logger.Warn("unable to create fill due to unsupported protocol", "event", event.ID)
		metrics.EventsSkipped.WithLabelValues(metrics.SkipUnsupportedProtocol).Inc()
	default:
		return err
	}
	return nil
}
