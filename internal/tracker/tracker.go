// Package tracker implements the consent-gated, store-and-forward
// analytics pipeline: probes run once at construction, tracking calls
// feed a batcher, and failed deliveries are replayed from a durable
// offline queue.
package tracker

import (
	"context"
	"fmt"
	"math/rand"
	"net/url"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ahmedrzakhan/portfolio-analytics/internal/config"
	"github.com/ahmedrzakhan/portfolio-analytics/internal/domain"
	"github.com/ahmedrzakhan/portfolio-analytics/internal/probe"
	"github.com/ahmedrzakhan/portfolio-analytics/internal/storage"
	"github.com/ahmedrzakhan/portfolio-analytics/internal/store"
)

// Clock supplies the current time. Injected so tests control timestamps.
type Clock func() time.Time

// Option customizes a Tracker.
type Option func(*Tracker)

// WithClock replaces the tracker's time source.
func WithClock(clock Clock) Option {
	return func(t *Tracker) { t.now = clock }
}

// WithIDGenerator replaces the offline queue's item ID source.
func WithIDGenerator(newID func() string) Option {
	return func(t *Tracker) { t.queue.newID = newID }
}

// WithPerformanceSource subscribes the tracker to a stream of navigation
// timing entries. The first entry is recorded; the subscription ends at
// teardown.
func WithPerformanceSource(entries <-chan domain.PerformanceMetrics) Option {
	return func(t *Tracker) { t.perfSource = entries }
}

// WithInitialOnline sets the starting connectivity state. Defaults to
// online.
func WithInitialOnline(online bool) Option {
	return func(t *Tracker) { t.online.Store(online) }
}

// Tracker is one visitor session's analytics pipeline. Construct with
// New, gate with Enable/Disable, and release with Close. All tracking
// methods are fire-and-forget and are no-ops while the tracker is
// disabled: the privacy contract is that a disabled tracker performs no
// network or storage I/O.
type Tracker struct {
	store   store.Store
	storage storage.Storage
	cfg     config.Tracker
	env     probe.Environment
	log     *zap.Logger

	sessionID    string
	sessionStart time.Time
	now          Clock

	enabled atomic.Bool
	online  atomic.Bool
	closed  atomic.Bool

	device *domain.DeviceInfo
	utm    *domain.UTMParams
	geo    atomic.Pointer[domain.GeoData]
	ipHash atomic.Pointer[string]

	batcher  *Batcher
	delivery *Delivery
	queue    *OfflineQueue

	perfSource <-chan domain.PerformanceMetrics

	mu        sync.Mutex
	pageStart time.Time
	pagePath  string
	pageTitle string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs a tracker and starts its probes. The tracker begins
// disabled; no records are produced until the host grants consent via
// Enable.
func New(cfg config.Tracker, st store.Store, kv storage.Storage, env probe.Environment, log *zap.Logger, opts ...Option) *Tracker {
	t := &Tracker{
		store:   st,
		storage: kv,
		cfg:     cfg,
		env:     env,
		log:     log,
		now:     time.Now,
		queue: NewOfflineQueue(kv, OfflineQueueConfig{
			MaxRetries: cfg.MaxRetries,
			MaxItems:   cfg.QueueMaxItems,
		}, log),
	}
	t.online.Store(true)

	for _, opt := range opts {
		opt(t)
	}

	t.sessionStart = t.now()
	t.sessionID = newSessionID(t.sessionStart)
	t.pageStart = t.sessionStart
	t.pagePath, t.pageTitle = pagePathOf(env.PageURL), env.PageTitle

	t.device = probe.DetectDevice(env)
	t.utm = probe.ExtractUTM(env.PageURL, kv, log)

	t.delivery = NewDelivery(st, t.queue, t.online.Load, log)
	t.batcher = NewBatcher(t.delivery, BatcherConfig{
		MaxBatchSize:  cfg.BatchSize,
		FlushInterval: time.Duration(cfg.FlushIntervalMS) * time.Millisecond,
	}, log)

	t.ctx, t.cancel = context.WithCancel(context.Background())

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.batcher.Start(t.ctx)
	}()

	t.startProbes()

	if t.perfSource != nil {
		t.wg.Add(1)
		go func() {
			defer t.wg.Done()
			t.observePerformance()
		}()
	}

	log.Info("Tracker constructed",
		zap.String("session_id", t.sessionID),
		zap.String("device_type", t.device.DeviceType))

	return t
}

// startProbes launches the asynchronous geo and IP lookups. Neither
// blocks tracking calls; both fall back silently on failure.
func (t *Tracker) startProbes() {
	timeout := time.Duration(t.cfg.ProbeTimeoutSec) * time.Second

	t.wg.Add(2)
	go func() {
		defer t.wg.Done()
		geoClient := probe.NewGeoClient(t.cfg.GeoEndpoint, timeout, t.log)
		t.geo.Store(geoClient.Lookup(t.ctx, t.env.Timezone))
	}()
	go func() {
		defer t.wg.Done()
		hasher := probe.NewIPHasher(t.cfg.IPEndpoint, t.cfg.IPSalt, timeout, t.log)
		hash := hasher.HashedIP(t.ctx)
		t.ipHash.Store(&hash)
	}()
}

// SessionID returns the session identifier carried by every record.
func (t *Tracker) SessionID() string {
	return t.sessionID
}

// Enable opens the privacy gate and, when online, kicks off a replay of
// records queued while delivery was failing.
func (t *Tracker) Enable() {
	if t.closed.Load() {
		return
	}
	t.enabled.Store(true)
	t.log.Info("Tracking enabled", zap.String("session_id", t.sessionID))

	if t.online.Load() {
		t.asyncSync()
	}
}

// Disable closes the privacy gate. Any batched records get one final
// best-effort flush before the tracker goes silent.
func (t *Tracker) Disable() {
	if !t.enabled.Swap(false) {
		return
	}
	t.batcher.Flush()
	t.log.Info("Tracking disabled", zap.String("session_id", t.sessionID))
}

// SetOnline records a connectivity transition from the host. Coming back
// online triggers an offline queue replay.
func (t *Tracker) SetOnline(online bool) {
	was := t.online.Swap(online)
	if online && !was && t.enabled.Load() {
		t.asyncSync()
	}
}

// PageHidden is called when the page becomes hidden. The elapsed page
// time is recorded and the partial batch is forced out, since a hidden
// tab may never come back.
func (t *Tracker) PageHidden() {
	if !t.enabled.Load() {
		return
	}
	t.TrackTimeOnPage()
	t.batcher.Flush()
}

// PageVisible resets the page timer when the page is shown again.
func (t *Tracker) PageVisible() {
	t.mu.Lock()
	t.pageStart = t.now()
	t.mu.Unlock()
}

// TrackPageView records a page view and refreshes the visitor's
// real-time presence record.
func (t *Tracker) TrackPageView(pagePath, pageTitle string) {
	if !t.enabled.Load() {
		return
	}
	defer t.recoverTracking("trackPageView", map[string]any{"page_path": pagePath})

	view := domain.PageView{
		Timestamp:  t.now(),
		PagePath:   pagePath,
		PageTitle:  pageTitle,
		Referrer:   referrerOrDirect(t.env.Referrer),
		UserAgent:  t.env.UserAgent,
		SessionID:  t.sessionID,
		IPHash:     t.currentIPHash(),
		GeoData:    t.geo.Load(),
		DeviceInfo: t.device,
		UTMParams:  t.utm,
		Viewport: domain.Viewport{
			Width:  t.env.ViewportWidth,
			Height: t.env.ViewportHeight,
		},
	}

	t.batcher.Add(Record{Kind: domain.KindPageView, Data: view})

	t.mu.Lock()
	t.pageStart = t.now()
	t.pagePath, t.pageTitle = pagePath, pageTitle
	t.mu.Unlock()

	t.asyncPresence(pagePath)
}

// TrackEvent records a custom event. The payload is enriched with the
// page URL and a millisecond timestamp, matching the store contract.
func (t *Tracker) TrackEvent(eventName string, eventData map[string]any) {
	if !t.enabled.Load() {
		return
	}
	defer t.recoverTracking("trackEvent", map[string]any{"event_name": eventName})

	data := make(map[string]any, len(eventData)+2)
	for k, v := range eventData {
		data[k] = v
	}
	data["page_url"] = t.env.PageURL
	data["timestamp"] = t.now().UnixMilli()

	event := domain.Event{
		Timestamp:  t.now(),
		EventName:  eventName,
		EventData:  data,
		SessionID:  t.sessionID,
		PagePath:   t.currentPagePath(),
		UserAgent:  t.env.UserAgent,
		DeviceInfo: t.device,
		UTMParams:  t.utm,
	}

	t.batcher.Add(Record{Kind: domain.KindEvent, Data: event})
}

// TrackTimeOnPage emits a time_on_page event for the current page.
// Stays silent under one second to keep bounce noise out.
func (t *Tracker) TrackTimeOnPage() {
	if !t.enabled.Load() {
		return
	}

	t.mu.Lock()
	elapsed := t.now().Sub(t.pageStart)
	pagePath := t.pagePath
	t.mu.Unlock()

	if elapsed <= time.Second {
		return
	}

	t.TrackEvent("time_on_page", map[string]any{
		"duration":     elapsed.Milliseconds(),
		"page_path":    pagePath,
		"scroll_depth": t.env.CurrentScrollDepth(),
	})
}

// TrackPerformance writes page load metrics straight to the store. These
// are one-shot records and skip the batcher.
func (t *Tracker) TrackPerformance(metrics domain.PerformanceMetrics) {
	if !t.enabled.Load() {
		return
	}

	record := domain.PerformanceRecord{
		Timestamp:          t.now(),
		SessionID:          t.sessionID,
		PagePath:           t.currentPagePath(),
		PerformanceMetrics: metrics,
	}

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		if err := t.store.Insert(t.ctx, store.TablePerformanceMetrics, []domain.PerformanceRecord{record}); err != nil {
			t.log.Warn("Could not record performance metrics", zap.Error(err))
		}
	}()
}

// TrackError reports a failure inside tracking logic to the store. A
// failure to report is only logged, so the error path cannot recurse.
func (t *Tracker) TrackError(trackedErr error, extra map[string]any) {
	if !t.enabled.Load() || trackedErr == nil {
		return
	}

	record := domain.AnalyticsError{
		Timestamp:         t.now(),
		ErrorType:         "tracking_error",
		ErrorMessage:      trackedErr.Error(),
		ErrorStack:        string(debug.Stack()),
		SessionID:         t.sessionID,
		PagePath:          t.currentPagePath(),
		UserAgent:         t.env.UserAgent,
		AdditionalContext: extra,
	}

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		if err := t.store.Insert(t.ctx, store.TableErrors, []domain.AnalyticsError{record}); err != nil {
			t.log.Warn("Could not report tracking error", zap.Error(err))
		}
	}()
}

// EndSession closes out the session: final time-on-page, a forced flush,
// the session summary upsert, removal of the real-time presence record,
// and clearing of the stored attribution. Attribution is scoped to the
// session, so it must not leak into whatever session comes next.
func (t *Tracker) EndSession() {
	if !t.enabled.Load() {
		return
	}
	defer t.recoverTracking("endSession", nil)

	t.TrackTimeOnPage()
	t.batcher.Flush()

	end := t.now()
	session := domain.Session{
		SessionID:  t.sessionID,
		StartTime:  t.sessionStart,
		EndTime:    &end,
		DurationMS: end.Sub(t.sessionStart).Milliseconds(),
		DeviceInfo: t.device,
		GeoData:    t.geo.Load(),
		UTMParams:  t.utm,
	}

	t.batcher.Add(Record{Kind: domain.KindSession, Data: session})
	t.batcher.Flush()

	if err := t.store.Delete(t.ctx, store.TableRealTimeVisitors, store.Filter{
		"session_id": store.Eq(t.sessionID),
	}); err != nil {
		t.log.Warn("Could not remove real-time presence", zap.Error(err))
	}

	if err := t.storage.Delete(storage.KeyUTMParams); err != nil {
		t.log.Warn("Could not clear session attribution", zap.Error(err))
	}
}

// SyncOfflineQueue replays queued records immediately. Exposed for hosts
// that want to drive replay on their own schedule.
func (t *Tracker) SyncOfflineQueue() {
	if !t.enabled.Load() || !t.online.Load() {
		return
	}
	t.queue.Sync(t.ctx, t.store)
}

// Close tears the tracker down: a final flush if still enabled, then all
// probe and batch goroutines are cancelled and awaited. The tracker is
// unusable afterwards.
func (t *Tracker) Close() {
	if t.closed.Swap(true) {
		return
	}

	if t.enabled.Swap(false) {
		t.batcher.Flush()
	}

	t.cancel()
	t.wg.Wait()

	t.log.Info("Tracker closed", zap.String("session_id", t.sessionID))
}

func (t *Tracker) asyncSync() {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.queue.Sync(t.ctx, t.store)
	}()
}

func (t *Tracker) asyncPresence(pagePath string) {
	visitor := domain.RealTimeVisitor{
		SessionID:  t.sessionID,
		LastSeen:   t.now(),
		PagePath:   pagePath,
		UserAgent:  t.env.UserAgent,
		DeviceInfo: t.device,
		GeoData:    t.geo.Load(),
	}

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		if err := t.store.Upsert(t.ctx, store.TableRealTimeVisitors, visitor, "session_id"); err != nil {
			t.log.Warn("Could not update real-time presence", zap.Error(err))
		}
	}()
}

// observePerformance records the first navigation timing entry from the
// host's performance source.
func (t *Tracker) observePerformance() {
	select {
	case <-t.ctx.Done():
	case metrics, ok := <-t.perfSource:
		if ok {
			t.TrackPerformance(metrics)
		}
	}
}

// recoverTracking converts a panic inside a tracking method into an
// AnalyticsError record instead of crashing the host page.
func (t *Tracker) recoverTracking(operation string, extra map[string]any) {
	r := recover()
	if r == nil {
		return
	}
	if extra == nil {
		extra = map[string]any{}
	}
	extra["context"] = operation
	t.TrackError(fmt.Errorf("panic in %s: %v", operation, r), extra)
}

func (t *Tracker) currentIPHash() string {
	if hash := t.ipHash.Load(); hash != nil {
		return *hash
	}
	return ""
}

func (t *Tracker) currentPagePath() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pagePath
}

func referrerOrDirect(referrer string) string {
	if referrer == "" {
		return "direct"
	}
	return referrer
}

func pagePathOf(pageURL string) string {
	parsed, err := url.Parse(pageURL)
	if err != nil || parsed.Path == "" {
		return "/"
	}
	return parsed.Path
}

func newSessionID(start time.Time) string {
	const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	token := make([]byte, 9)
	for i := range token {
		token[i] = alphabet[rand.Intn(len(alphabet))]
	}
	return fmt.Sprintf("session_%d_%s", start.UnixMilli(), token)
}
