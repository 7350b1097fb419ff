package redis

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Queue and job names are part of the operational contract: dashboards and
// retry tooling key on them, so they must stay stable.
const (
	StreamFillProcessing = "fill-processing"
	StreamFillIndexing   = "fill-indexing"

	JobCreateFillBatch = "create-fill-batch"
	JobIndexFill       = "index-fill"

	fieldJob       = "job"
	fieldFillID    = "fillId"
	fieldBatchSize = "batchSize"
)

const (
	consumerGroup = "tracker-worker"
	readBlock     = 5 * time.Second
	readTimeout   = 10 * time.Second
)

// Job is one unit of work read from a stream.
type Job struct {
	Stream string
	ID     string
	Name   string
	Values map[string]string
}

// FillID returns the fillId field of an index-fill job.
func (j Job) FillID() string {
	return j.Values[fieldFillID]
}

// BatchSize returns the batchSize field of a create-fill-batch job,
// falling back to def when the field is absent or malformed.
func (j Job) BatchSize(def int) int {
	if v, err := strconv.Atoi(j.Values[fieldBatchSize]); err == nil && v > 0 {
		return v
	}
	return def
}

// Queue is a redis-streams work queue with at-least-once delivery.
// Transient handler failures are re-enqueued; permanent ones are logged and
// dropped.
type Queue struct {
	client   *redis.Client
	consumer string
	logger   *slog.Logger
}

func NewQueue(url string, logger *slog.Logger) (*Queue, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Queue{
		client:   client,
		consumer: "worker-" + uuid.NewString(),
		logger:   logger.With("component", "queue"),
	}, nil
}

func (q *Queue) Close() error {
	return q.client.Close()
}

// EnqueueIndexFill publishes an index-fill job for one persisted fill.
func (q *Queue) EnqueueIndexFill(ctx context.Context, fillID string) error {
	return q.enqueue(ctx, StreamFillIndexing, map[string]interface{}{
		fieldJob:    JobIndexFill,
		fieldFillID: fillID,
	})
}

// EnqueueCreateFillBatch publishes a create-fill-batch job.
func (q *Queue) EnqueueCreateFillBatch(ctx context.Context, batchSize int) error {
	return q.enqueue(ctx, StreamFillProcessing, map[string]interface{}{
		fieldJob:       JobCreateFillBatch,
		fieldBatchSize: strconv.Itoa(batchSize),
	})
}

func (q *Queue) enqueue(ctx context.Context, stream string, values map[string]interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	if err := q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: values,
	}).Err(); err != nil {
		return fmt.Errorf("enqueue %s job: %w", values[fieldJob], err)
	}
	return nil
}

// Handler processes one job. Permanent reports whether an error should not
// be retried.
type Handler interface {
	Handle(ctx context.Context, job Job) error
	Permanent(err error) bool
}

// Consume reads jobs from stream until ctx is cancelled. Jobs that fail
// transiently are re-enqueued before being acknowledged, preserving
// at-least-once semantics without pending-list reclaim machinery.
func (q *Queue) Consume(ctx context.Context, stream string, handler Handler) error {
	if err := q.ensureGroup(ctx, stream); err != nil {
		return err
	}

	log := q.logger.With("stream", stream)
	log.Info("consumer started", "consumer", q.consumer)

	for {
		select {
		case <-ctx.Done():
			log.Info("consumer stopped")
			return ctx.Err()
		default:
		}

		res, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    consumerGroup,
			Consumer: q.consumer,
			Streams:  []string{stream, ">"},
			Count:    10,
			Block:    readBlock,
		}).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Error("read stream failed", "error", err)
			continue
		}

		for _, sr := range res {
			for _, msg := range sr.Messages {
				q.dispatch(ctx, log, stream, msg, handler)
			}
		}
	}
}

func (q *Queue) dispatch(ctx context.Context, log *slog.Logger, stream string, msg redis.XMessage, handler Handler) {
	job := Job{
		Stream: stream,
		ID:     msg.ID,
		Values: make(map[string]string, len(msg.Values)),
	}
	for k, v := range msg.Values {
		if s, ok := v.(string); ok {
			job.Values[k] = s
		}
	}
	job.Name = job.Values[fieldJob]

	err := handler.Handle(ctx, job)
	switch {
	case err == nil:
	case handler.Permanent(err):
		log.Error("job failed permanently", "job", job.Name, "id", msg.ID, "error", err)
	default:
		log.Warn("job failed, re-enqueueing", "job", job.Name, "id", msg.ID, "error", err)
		if reErr := q.client.XAdd(ctx, &redis.XAddArgs{
			Stream: stream,
			Values: msg.Values,
		}).Err(); reErr != nil {
			// Leave the message unacked so the pending list keeps it.
			log.Error("re-enqueue failed", "job", job.Name, "id", msg.ID, "error", reErr)
			return
		}
	}

	if ackErr := q.client.XAck(ctx, stream, consumerGroup, msg.ID).Err(); ackErr != nil {
		log.Error("ack failed", "id", msg.ID, "error", ackErr)
	}
}

func (q *Queue) ensureGroup(ctx context.Context, stream string) error {
	err := q.client.XGroupCreateMkStream(ctx, stream, consumerGroup, "0").Err()
	if err != nil && !isBusyGroup(err) {
		return fmt.Errorf("create consumer group for %s: %w", stream, err)
	}
	return nil
}

func isBusyGroup(err error) bool {
	return err != nil && len(err.Error()) >= 9 && err.Error()[:9] == "BUSYGROUP"
}
