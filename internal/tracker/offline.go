package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ahmedrzakhan/portfolio-analytics/internal/domain"
	"github.com/ahmedrzakhan/portfolio-analytics/internal/storage"
	"github.com/ahmedrzakhan/portfolio-analytics/internal/store"
)

// OfflineQueueConfig bounds the durable queue. MaxItems guards the
// storage slot against unbounded growth while the store is unreachable.
type OfflineQueueConfig struct {
	MaxRetries int
	MaxItems   int
}

// OfflineQueue is the durable, ordered list of records that failed
// delivery. Every mutation is persisted so a restart never loses retry
// state. Items leave the queue only on confirmed delivery or when their
// retry count reaches the ceiling.
type OfflineQueue struct {
	storage storage.Storage
	config  OfflineQueueConfig
	log     *zap.Logger

	newID func() string
	now   func() time.Time

	mu    sync.Mutex // held across Sync's store calls to serialize replay
	items []domain.OfflineQueueItem
}

func NewOfflineQueue(st storage.Storage, config OfflineQueueConfig, log *zap.Logger) *OfflineQueue {
	q := &OfflineQueue{
		storage: st,
		config:  config,
		log:     log,
		newID:   func() string { return uuid.NewString() },
		now:     time.Now,
	}
	q.items = q.load()
	return q
}

// load reads the persisted queue. Missing or corrupt storage is treated
// as an empty queue.
func (q *OfflineQueue) load() []domain.OfflineQueueItem {
	stored, ok, err := q.storage.Get(storage.KeyOfflineQueue)
	if err != nil {
		q.log.Warn("Could not load offline queue", zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}

	var items []domain.OfflineQueueItem
	if err := json.Unmarshal(stored, &items); err != nil {
		q.log.Warn("Offline queue storage is corrupt, starting empty", zap.Error(err))
		return nil
	}

	if len(items) > 0 {
		q.log.Info("Loaded offline queue", zap.Int("item_count", len(items)))
	}
	return items
}

func (q *OfflineQueue) persist() {
	encoded, err := json.Marshal(q.items)
	if err != nil {
		q.log.Warn("Could not encode offline queue", zap.Error(err))
		return
	}
	if err := q.storage.Set(storage.KeyOfflineQueue, encoded); err != nil {
		q.log.Warn("Could not persist offline queue", zap.Error(err))
	}
}

// Enqueue wraps a failed record and appends it to the queue. When the
// queue is full the oldest item is evicted first.
func (q *OfflineQueue) Enqueue(kind domain.Kind, data any) {
	encoded, err := json.Marshal(data)
	if err != nil {
		q.log.Warn("Could not encode record for offline queue",
			zap.String("kind", string(kind)),
			zap.Error(err))
		return
	}

	item := domain.OfflineQueueItem{
		ID:         q.newID(),
		Type:       kind,
		Data:       encoded,
		Timestamp:  q.now(),
		RetryCount: 0,
		MaxRetries: q.config.MaxRetries,
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = append(q.items, item)
	if q.config.MaxItems > 0 && len(q.items) > q.config.MaxItems {
		dropped := len(q.items) - q.config.MaxItems
		q.log.Warn("Offline queue full, evicting oldest items", zap.Int("dropped", dropped))
		q.items = q.items[dropped:]
	}
	q.persist()
}

// Len reports the number of queued items.
func (q *OfflineQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Items returns a copy of the queued items.
func (q *OfflineQueue) Items() []domain.OfflineQueueItem {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]domain.OfflineQueueItem, len(q.items))
	copy(out, q.items)
	return out
}

// Sync replays the queue against the store, one item at a time so each
// item keeps its own retry bookkeeping. Successful items are removed;
// failures increment retry_count; items at the ceiling are evicted. The
// queue is persisted after every mutation.
func (q *OfflineQueue) Sync(ctx context.Context, st store.Store) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return
	}

	q.log.Info("Replaying offline queue", zap.Int("item_count", len(q.items)))

	pending := q.items
	remaining := make([]domain.OfflineQueueItem, 0, len(pending))

	for i := range pending {
		item := pending[i]

		if item.RetryCount >= item.MaxRetries {
			q.log.Warn("Discarding record past its retry ceiling",
				zap.String("item_id", item.ID),
				zap.Int("retry_count", item.RetryCount))
		} else if err := q.redeliver(ctx, st, item); err != nil {
			item.RetryCount++
			if item.RetryCount < item.MaxRetries {
				q.log.Warn("Offline replay failed",
					zap.String("item_id", item.ID),
					zap.Int("retry_count", item.RetryCount),
					zap.Int("max_retries", item.MaxRetries),
					zap.Error(err))
				remaining = append(remaining, item)
			} else {
				q.log.Warn("Evicting record after final retry",
					zap.String("item_id", item.ID),
					zap.Error(err))
			}
		}

		// Persist progress after every item: the survivors so far plus
		// the not-yet-replayed tail.
		q.items = append(append(make([]domain.OfflineQueueItem, 0, len(pending)), remaining...), pending[i+1:]...)
		q.persist()
	}
}

func (q *OfflineQueue) redeliver(ctx context.Context, st store.Store, item domain.OfflineQueueItem) error {
	table, upsert := tableFor(item.Type)
	records := []json.RawMessage{item.Data}
	if upsert {
		return st.Upsert(ctx, table, records, "session_id")
	}
	return st.Insert(ctx, table, records)
}

// tableFor maps a record kind to its store table and whether delivery is
// a keyed upsert rather than an insert.
func tableFor(kind domain.Kind) (table string, upsert bool) {
	switch kind {
	case domain.KindPageView:
		return store.TablePageViews, false
	case domain.KindSession:
		return store.TableSessions, true
	default:
		return store.TableEvents, false
	}
}
