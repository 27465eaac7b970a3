package tracker

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/ahmedrzakhan/portfolio-analytics/internal/config"
	"github.com/ahmedrzakhan/portfolio-analytics/internal/domain"
	"github.com/ahmedrzakhan/portfolio-analytics/internal/probe"
	"github.com/ahmedrzakhan/portfolio-analytics/internal/storage"
	"github.com/ahmedrzakhan/portfolio-analytics/internal/store"
)

// testTrackerConfig points the probe endpoints at a closed port so the
// async geo and IP lookups fail fast instead of leaving the test.
func testTrackerConfig() config.Tracker {
	return config.Tracker{
		BatchSize:       10,
		FlushIntervalMS: 60_000,
		MaxRetries:      3,
		QueueMaxItems:   500,
		ProbeTimeoutSec: 1,
		IPSalt:          "test_salt",
		GeoEndpoint:     "http://127.0.0.1:1",
		IPEndpoint:      "http://127.0.0.1:1",
	}
}

func testEnvironment() probe.Environment {
	return probe.Environment{
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		ScreenWidth:    1920,
		ScreenHeight:   1080,
		ColorDepth:     24,
		Timezone:       "Europe/Istanbul",
		Language:       "en-US",
		PageURL:        "https://example.dev/",
		PageTitle:      "Home",
		ViewportWidth:  1280,
		ViewportHeight: 720,
	}
}

func TestTracker_DisabledPerformsNoStoreOrStorageWrites(t *testing.T) {
	mockStore := new(MockStore)
	kv := newCountingStorage()

	tr := New(testTrackerConfig(), mockStore, kv, testEnvironment(), zap.NewNop())

	tr.TrackPageView("/", "Home")
	tr.TrackEvent("click", map[string]any{"target": "cta"})
	tr.TrackTimeOnPage()
	tr.TrackPerformance(domain.PerformanceMetrics{PageLoadTime: 120})
	tr.EndSession()
	tr.Close()

	mockStore.AssertNotCalled(t, "Insert")
	mockStore.AssertNotCalled(t, "Upsert")
	mockStore.AssertNotCalled(t, "Delete")
	assert.Equal(t, 0, kv.writeCount())
}

func TestTracker_SessionIDFormat(t *testing.T) {
	mockStore := new(MockStore)

	tr := New(testTrackerConfig(), mockStore, storage.NewMemory(), testEnvironment(), zap.NewNop())
	defer tr.Close()

	assert.Regexp(t, regexp.MustCompile(`^session_\d+_[a-z0-9]{9}$`), tr.SessionID())
	assert.Equal(t, tr.SessionID(), tr.SessionID())
}

func TestTracker_PageViewDeliveredOnFlush(t *testing.T) {
	mockStore := new(MockStore)

	var delivered []domain.PageView
	mockStore.On("Insert", mock.Anything, store.TablePageViews, mock.Anything).
		Run(func(args mock.Arguments) {
			for _, record := range args.Get(2).([]any) {
				delivered = append(delivered, record.(domain.PageView))
			}
		}).
		Return(nil)
	mockStore.On("Upsert", mock.Anything, store.TableRealTimeVisitors, mock.Anything, "session_id").Return(nil)

	tr := New(testTrackerConfig(), mockStore, storage.NewMemory(), testEnvironment(), zap.NewNop())
	tr.Enable()
	tr.TrackPageView("/projects", "Projects")
	tr.Close()

	assert.Len(t, delivered, 1)
	assert.Equal(t, "/projects", delivered[0].PagePath)
	assert.Equal(t, "Projects", delivered[0].PageTitle)
	assert.Equal(t, "direct", delivered[0].Referrer)
	assert.Equal(t, tr.SessionID(), delivered[0].SessionID)
	assert.Equal(t, domain.DeviceDesktop, delivered[0].DeviceInfo.DeviceType)
}

func TestTracker_EndSessionUpsertsSummaryAndDeletesPresence(t *testing.T) {
	mockStore := new(MockStore)
	mockStore.On("Insert", mock.Anything, store.TablePageViews, mock.Anything).Return(nil)
	mockStore.On("Upsert", mock.Anything, store.TableRealTimeVisitors, mock.Anything, "session_id").Return(nil)
	mockStore.On("Upsert", mock.Anything, store.TableSessions, mock.Anything, "session_id").Return(nil)
	mockStore.On("Delete", mock.Anything, store.TableRealTimeVisitors, mock.Anything).Return(nil)

	tr := New(testTrackerConfig(), mockStore, storage.NewMemory(), testEnvironment(), zap.NewNop())
	tr.Enable()
	tr.TrackPageView("/", "Home")
	tr.EndSession()
	tr.Close()

	mockStore.AssertCalled(t, "Upsert", mock.Anything, store.TableSessions, mock.Anything, "session_id")
	mockStore.AssertCalled(t, "Delete", mock.Anything, store.TableRealTimeVisitors,
		store.Filter{"session_id": store.Eq(tr.SessionID())})
}

func TestTracker_OfflineRecordsReplayOnReconnect(t *testing.T) {
	mem := storage.NewMemory()
	mockStore := new(MockStore)
	mockStore.On("Insert", mock.Anything, store.TablePageViews, mock.Anything).Return(nil)
	mockStore.On("Upsert", mock.Anything, store.TableRealTimeVisitors, mock.Anything, "session_id").Return(nil)

	tr := New(testTrackerConfig(), mockStore, mem, testEnvironment(), zap.NewNop(),
		WithInitialOnline(false))
	tr.Enable()
	tr.TrackPageView("/", "Home")

	// The flush while offline lands in the durable queue, not the store.
	tr.Disable()
	mockStore.AssertNotCalled(t, "Insert")

	stored, ok, err := mem.Get(storage.KeyOfflineQueue)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, string(stored), `"type":"pageview"`)

	tr.SetOnline(true)
	tr.Enable()
	tr.Close()

	mockStore.AssertCalled(t, "Insert", mock.Anything, store.TablePageViews, mock.Anything)
}

func TestTracker_FirstTouchAttributionSurvivesNavigation(t *testing.T) {
	mem := storage.NewMemory()

	captureUTM := func(st *MockStore, sink *[]domain.PageView) {
		st.On("Insert", mock.Anything, store.TablePageViews, mock.Anything).
			Run(func(args mock.Arguments) {
				for _, record := range args.Get(2).([]any) {
					*sink = append(*sink, record.(domain.PageView))
				}
			}).
			Return(nil)
		st.On("Upsert", mock.Anything, store.TableRealTimeVisitors, mock.Anything, "session_id").Return(nil)
	}

	// First visit arrives with campaign parameters.
	env := testEnvironment()
	env.PageURL = "https://example.dev/?utm_source=github&utm_medium=readme"

	firstStore := new(MockStore)
	var firstViews []domain.PageView
	captureUTM(firstStore, &firstViews)

	first := New(testTrackerConfig(), firstStore, mem, env, zap.NewNop())
	first.Enable()
	first.TrackPageView("/", "Home")
	first.Close()

	assert.Len(t, firstViews, 1)
	assert.Equal(t, "github", firstViews[0].UTMParams.Source)

	// A later tracker over the same storage, on a clean URL, still
	// carries the persisted first-touch attribution.
	secondStore := new(MockStore)
	var secondViews []domain.PageView
	captureUTM(secondStore, &secondViews)

	second := New(testTrackerConfig(), secondStore, mem, testEnvironment(), zap.NewNop())
	second.Enable()
	second.TrackPageView("/about", "About")
	second.Close()

	assert.Len(t, secondViews, 1)
	assert.NotNil(t, secondViews[0].UTMParams)
	assert.Equal(t, "github", secondViews[0].UTMParams.Source)
	assert.Equal(t, "readme", secondViews[0].UTMParams.Medium)
}

func TestTracker_AttributionClearedWhenSessionEnds(t *testing.T) {
	mem := storage.NewMemory()

	firstStore := new(MockStore)
	firstStore.On("Insert", mock.Anything, store.TablePageViews, mock.Anything).Return(nil)
	firstStore.On("Upsert", mock.Anything, mock.Anything, mock.Anything, "session_id").Return(nil)
	firstStore.On("Delete", mock.Anything, store.TableRealTimeVisitors, mock.Anything).Return(nil)

	env := testEnvironment()
	env.PageURL = "https://example.dev/?utm_source=campaign_a"

	first := New(testTrackerConfig(), firstStore, mem, env, zap.NewNop())
	first.Enable()
	first.TrackPageView("/", "Home")
	first.EndSession()
	first.Close()

	_, ok, err := mem.Get(storage.KeyUTMParams)
	assert.NoError(t, err)
	assert.False(t, ok)

	// The next session over the same storage starts on a clean URL and
	// must not inherit the ended session's attribution.
	secondStore := new(MockStore)
	var secondViews []domain.PageView
	secondStore.On("Insert", mock.Anything, store.TablePageViews, mock.Anything).
		Run(func(args mock.Arguments) {
			for _, record := range args.Get(2).([]any) {
				secondViews = append(secondViews, record.(domain.PageView))
			}
		}).
		Return(nil)
	secondStore.On("Upsert", mock.Anything, store.TableRealTimeVisitors, mock.Anything, "session_id").Return(nil)

	second := New(testTrackerConfig(), secondStore, mem, testEnvironment(), zap.NewNop())
	second.Enable()
	second.TrackPageView("/", "Home")
	second.Close()

	assert.Len(t, secondViews, 1)
	assert.Nil(t, secondViews[0].UTMParams)
}

func TestTracker_TimeOnPageEmittedWhenOverOneSecond(t *testing.T) {
	current := time.Now()

	mockStore := new(MockStore)
	var events []domain.Event
	mockStore.On("Insert", mock.Anything, store.TableEvents, mock.Anything).
		Run(func(args mock.Arguments) {
			for _, record := range args.Get(2).([]any) {
				events = append(events, record.(domain.Event))
			}
		}).
		Return(nil)

	env := testEnvironment()
	env.ScrollDepth = func() int { return 42 }

	tr := New(testTrackerConfig(), mockStore, storage.NewMemory(), env, zap.NewNop(),
		WithClock(func() time.Time { return current }))
	tr.Enable()

	// Under a second nothing is emitted.
	tr.TrackTimeOnPage()

	current = current.Add(5 * time.Second)
	tr.TrackTimeOnPage()
	tr.Close()

	assert.Len(t, events, 1)
	assert.Equal(t, "time_on_page", events[0].EventName)
	assert.Equal(t, int64(5000), events[0].EventData["duration"])
	assert.Equal(t, 42, events[0].EventData["scroll_depth"])
}

func TestTracker_CloseIsIdempotent(t *testing.T) {
	mockStore := new(MockStore)

	tr := New(testTrackerConfig(), mockStore, storage.NewMemory(), testEnvironment(), zap.NewNop())
	tr.Close()
	tr.Close()

	// A closed tracker refuses to re-enable.
	tr.Enable()
	tr.TrackEvent("click", nil)
	mockStore.AssertNotCalled(t, "Insert")
}
