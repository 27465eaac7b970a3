package tracker

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/ahmedrzakhan/portfolio-analytics/internal/domain"
	"github.com/ahmedrzakhan/portfolio-analytics/internal/store"
)

// Delivery ships flushed batches to the remote analytics store. Failed
// groups are requeued record-by-record into the offline queue; a failure
// in one kind-group never blocks the others.
type Delivery struct {
	store  store.Store
	queue  *OfflineQueue
	online func() bool
	log    *zap.Logger
}

func NewDelivery(st store.Store, queue *OfflineQueue, online func() bool, log *zap.Logger) *Delivery {
	return &Delivery{
		store:  st,
		queue:  queue,
		online: online,
		log:    log,
	}
}

// Deliver groups the batch by record kind and issues one bulk write per
// kind, concurrently. Offline clients skip the network entirely and
// requeue everything.
func (d *Delivery) Deliver(ctx context.Context, batch []Record) {
	if len(batch) == 0 {
		return
	}

	groups := make(map[domain.Kind][]any)
	for _, record := range batch {
		groups[record.Kind] = append(groups[record.Kind], record.Data)
	}

	if !d.online() {
		d.log.Info("Client offline, queueing batch", zap.Int("record_count", len(batch)))
		d.requeueAll(groups)
		return
	}

	var wg sync.WaitGroup
	for kind, records := range groups {
		wg.Add(1)
		go func(kind domain.Kind, records []any) {
			defer wg.Done()
			d.deliverGroup(ctx, kind, records)
		}(kind, records)
	}
	wg.Wait()
}

func (d *Delivery) deliverGroup(ctx context.Context, kind domain.Kind, records []any) {
	table, upsert := tableFor(kind)

	var err error
	if upsert {
		err = d.store.Upsert(ctx, table, records, "session_id")
	} else {
		err = d.store.Insert(ctx, table, records)
	}

	if err != nil {
		d.log.Warn("Batch delivery failed, queueing for retry",
			zap.String("table", table),
			zap.Int("record_count", len(records)),
			zap.Error(err))
		for _, record := range records {
			d.queue.Enqueue(kind, record)
		}
		return
	}

	d.log.Debug("Batch delivered",
		zap.String("table", table),
		zap.Int("record_count", len(records)))
}

func (d *Delivery) requeueAll(groups map[domain.Kind][]any) {
	for kind, records := range groups {
		for _, record := range records {
			d.queue.Enqueue(kind, record)
		}
	}
}
