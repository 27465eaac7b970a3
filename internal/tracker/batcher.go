package tracker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ahmedrzakhan/portfolio-analytics/internal/domain"
)

// Record pairs an analytics record with the kind that routes it to its
// store table.
type Record struct {
	Kind domain.Kind
	Data any
}

// Deliverer receives a flushed batch. Deliver must not retain the slice.
type Deliverer interface {
	Deliver(ctx context.Context, batch []Record)
}

// BatcherConfig configures the batching thresholds.
type BatcherConfig struct {
	MaxBatchSize  int
	FlushInterval time.Duration
}

// Batcher accumulates records and flushes them to the deliverer when the
// size threshold is reached, the flush interval elapses, or a flush is
// forced. The batch slice is owned by the Start goroutine, so a flush is
// an atomic swap-and-clear: no record can be delivered twice or dropped
// between the decision to flush and the clear.
type Batcher struct {
	deliverer Deliverer
	config    BatcherConfig
	log       *zap.Logger

	in    chan Record
	force chan chan struct{}
	done  chan struct{}
}

func NewBatcher(deliverer Deliverer, config BatcherConfig, log *zap.Logger) *Batcher {
	return &Batcher{
		deliverer: deliverer,
		config:    config,
		log:       log,
		in:        make(chan Record, 256),
		force:     make(chan chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start runs the batching loop until ctx is cancelled. Any remaining
// records are flushed on the way out.
func (b *Batcher) Start(ctx context.Context) {
	defer close(b.done)

	ticker := time.NewTicker(b.config.FlushInterval)
	defer ticker.Stop()

	batch := make([]Record, 0, b.config.MaxBatchSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		b.deliverer.Deliver(ctx, batch)
		batch = make([]Record, 0, b.config.MaxBatchSize)
		ticker.Reset(b.config.FlushInterval)
	}

	for {
		select {
		case <-ctx.Done():
			b.drain(&batch)
			if len(batch) > 0 {
				b.log.Info("Flushing final batch", zap.Int("record_count", len(batch)))
				b.deliverer.Deliver(context.Background(), batch)
			}
			return

		case record := <-b.in:
			// The interval is measured from the first unflushed record,
			// not from the previous tick.
			if len(batch) == 0 {
				ticker.Reset(b.config.FlushInterval)
			}
			batch = append(batch, record)
			if len(batch) >= b.config.MaxBatchSize {
				b.log.Debug("Batch size threshold reached", zap.Int("batch_size", len(batch)))
				flush()
			}

		case <-ticker.C:
			if len(batch) > 0 {
				b.log.Debug("Batch interval elapsed", zap.Int("record_count", len(batch)))
				flush()
			}

		case ack := <-b.force:
			b.drain(&batch)
			flush()
			close(ack)
		}
	}
}

// Add enqueues a record for the next flush. It returns false once the
// batcher has shut down.
func (b *Batcher) Add(record Record) bool {
	select {
	case b.in <- record:
		return true
	case <-b.done:
		return false
	}
}

// Flush forces an out-of-band flush and waits for it to complete. Used on
// visibility changes, disable and teardown, where a partially filled
// batch must leave the page.
func (b *Batcher) Flush() {
	ack := make(chan struct{})
	select {
	case b.force <- ack:
		<-ack
	case <-b.done:
	}
}

// drain moves records already sitting in the channel into the batch so a
// forced or final flush cannot strand them.
func (b *Batcher) drain(batch *[]Record) {
	for {
		select {
		case record := <-b.in:
			*batch = append(*batch, record)
		default:
			return
		}
	}
}
