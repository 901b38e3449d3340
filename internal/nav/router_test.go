package nav

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// recordingView captures every call so navigation behavior can be
// asserted without a rendering environment.
type recordingView struct {
	mu          sync.Mutex
	content     string
	title       string
	header      string
	notices     []string
	native      []string
	sections    []string
	exactLinks  map[string]bool
	loadingSeen int
	reinits     int
	scrolls     int
}

func (v *recordingView) SwapContent(html string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.content = html
}

func (v *recordingView) SetTitle(t string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.title = t
}

func (v *recordingView) SetPageHeader(t string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.header = t
}

func (v *recordingView) BeginTransition() {}
func (v *recordingView) EndTransition()   {}

func (v *recordingView) ShowLoading() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.loadingSeen++
}

func (v *recordingView) HideLoading() {}

func (v *recordingView) SetActiveLink(path string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.exactLinks[path]
}

func (v *recordingView) SetActiveSection(section string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.sections = append(v.sections, section)
}

func (v *recordingView) Notify(msg string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.notices = append(v.notices, msg)
}

func (v *recordingView) NavigateNative(url string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.native = append(v.native, url)
}

func (v *recordingView) Reinit() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.reinits++
}

func (v *recordingView) ScrollTop() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.scrolls++
}

func (v *recordingView) snapshot() recordingView {
	v.mu.Lock()
	defer v.mu.Unlock()
	return recordingView{
		content:     v.content,
		title:       v.title,
		header:      v.header,
		notices:     append([]string(nil), v.notices...),
		native:      append([]string(nil), v.native...),
		sections:    append([]string(nil), v.sections...),
		loadingSeen: v.loadingSeen,
		reinits:     v.reinits,
		scrolls:     v.scrolls,
	}
}

const analyticsPage = `<html><head><title>Analytics</title></head><body>
<h1 class="page-title">Analytics</h1>
<div class="page-content"><div id="charts">ready</div></div>
</body></html>`

func newTestRouter(t *testing.T, srvURL string, view View, hist History) *Router {
	t.Helper()
	r, err := New(srvURL,
		WithView(view),
		WithHistory(hist),
		WithPolicy(DefaultPolicy(srvURL)),
		// Suppress the loading indicator and transition waits.
		WithTimings(time.Hour, 0, 0),
	)
	require.NoError(t, err)
	return r
}

func TestNavigateSuccess(t *testing.T) {
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		require.Equal(t, "XMLHttpRequest", r.Header.Get("X-Requested-With"))
		_, _ = w.Write([]byte(analyticsPage))
	}))
	defer srv.Close()

	view := &recordingView{}
	hist := NewMemoryHistory()
	r := newTestRouter(t, srv.URL, view, hist)
	r.Start("/dashboard/")

	var loaded []string
	WithPageLoadedHook(func(p string) { loaded = append(loaded, p) })(r)

	err := r.Navigate(context.Background(), "/dashboard/analytics/", true)
	require.NoError(t, err)

	snap := view.snapshot()
	require.Contains(t, snap.content, `<div id="charts">`)
	require.Equal(t, "Analytics", snap.title)
	require.Equal(t, "Analytics", snap.header)
	require.Equal(t, 1, snap.reinits)
	require.Equal(t, 1, snap.scrolls)
	require.Empty(t, snap.notices)

	require.True(t, r.IsPageCached("/dashboard/analytics/"))
	require.Equal(t, "/dashboard/analytics/", r.CurrentPage())
	cur, ok := hist.Current()
	require.True(t, ok)
	require.Equal(t, "/dashboard/analytics/", cur)
	require.Equal(t, 2, hist.Len())
	require.Equal(t, []string{"/dashboard/analytics/"}, loaded)
	require.EqualValues(t, 1, requests.Load())

	// Navigating to the active page is a no-op: no fetch, no entry.
	require.NoError(t, r.Navigate(context.Background(), "/dashboard/analytics/", true))
	require.EqualValues(t, 1, requests.Load())
	require.Equal(t, 2, hist.Len())

	// A revisit of a cached page goes through the cache, not the network.
	require.NoError(t, r.Navigate(context.Background(), "/dashboard/", true))
	require.NoError(t, r.Navigate(context.Background(), "/dashboard/analytics/", true))
	require.EqualValues(t, 2, requests.Load())
}

func TestNavigateDropsConcurrent(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		close(entered)
		<-release
		_, _ = w.Write([]byte(analyticsPage))
	}))
	defer srv.Close()

	view := &recordingView{}
	r := newTestRouter(t, srv.URL, view, NewMemoryHistory())
	r.Start("/dashboard/")

	done := make(chan error, 1)
	go func() {
		done <- r.Navigate(context.Background(), "/dashboard/analytics/", true)
	}()

	<-entered
	// Second navigation while one is in flight: dropped, not queued.
	require.NoError(t, r.Navigate(context.Background(), "/dashboard/signals/", true))
	require.EqualValues(t, 1, requests.Load())

	close(release)
	require.NoError(t, <-done)
	require.Equal(t, "/dashboard/analytics/", r.CurrentPage())
}

func TestNavigateFailureFallsBackOnlyWhenRecordingHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	view := &recordingView{}
	hist := NewMemoryHistory()
	r := newTestRouter(t, srv.URL, view, hist)
	r.Start("/dashboard/")

	// User-initiated navigation: error banner plus native fallback.
	err := r.Navigate(context.Background(), "/dashboard/watchlist/", true)
	require.Error(t, err)
	snap := view.snapshot()
	require.Len(t, snap.notices, 1)
	require.Len(t, snap.native, 1)
	require.Contains(t, snap.native[0], "/dashboard/watchlist/")
	require.Equal(t, 1, hist.Len(), "failed navigation must not push history")
	require.Equal(t, "/dashboard/", r.CurrentPage())

	// Back/forward replay: banner only, no native reload.
	err = r.Navigate(context.Background(), "/dashboard/signals/", false)
	require.Error(t, err)
	snap = view.snapshot()
	require.Len(t, snap.notices, 2)
	require.Len(t, snap.native, 1)
}

func TestNavigateMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><p>no container</p></body></html>`))
	}))
	defer srv.Close()

	view := &recordingView{}
	r := newTestRouter(t, srv.URL, view, NewMemoryHistory())
	r.Start("/dashboard/")

	err := r.Navigate(context.Background(), "/dashboard/search/", false)
	require.ErrorIs(t, err, ErrNoPageContent)
	require.Len(t, view.snapshot().notices, 1)
	require.Empty(t, view.snapshot().native)
}

func TestPreloadFailuresAreSilent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	view := &recordingView{}
	r := newTestRouter(t, srv.URL, view, NewMemoryHistory())

	r.Preload(context.Background(), "/dashboard/leaderboard/")
	require.Empty(t, view.snapshot().notices)
	require.Empty(t, view.snapshot().native)
	require.False(t, r.IsPageCached("/dashboard/leaderboard/"))
}

func TestPreloadWarmsCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(analyticsPage))
	}))
	defer srv.Close()

	r := newTestRouter(t, srv.URL, &recordingView{}, NewMemoryHistory())

	require.False(t, r.IsPageCached("/dashboard/analytics/"))
	r.Preload(context.Background(), "/dashboard/analytics/")
	require.True(t, r.IsPageCached("/dashboard/analytics/"))

	r.ClearCache()
	require.False(t, r.IsPageCached("/dashboard/analytics/"))
}

func TestActiveSectionFirstMatchWins(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(analyticsPage))
	}))
	defer srv.Close()

	view := &recordingView{exactLinks: map[string]bool{}}
	r := newTestRouter(t, srv.URL, view, NewMemoryHistory())
	r.Start("/dashboard/")

	require.NoError(t, r.Navigate(context.Background(), "/dashboard/analytics/", true))
	snap := view.snapshot()
	require.NotEmpty(t, snap.sections)
	require.Equal(t, "analytics", snap.sections[len(snap.sections)-1])
}

func TestLoadingIndicatorDebounce(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		_, _ = w.Write([]byte(analyticsPage))
	}))
	defer srv.Close()

	view := &recordingView{}
	r, err := New(srv.URL,
		WithView(view),
		WithHistory(NewMemoryHistory()),
		WithTimings(20*time.Millisecond, 0, 0),
	)
	require.NoError(t, err)
	r.Start("/dashboard/")

	done := make(chan error, 1)
	go func() {
		done <- r.Navigate(context.Background(), "/dashboard/analytics/", true)
	}()

	// The overlay appears only once the navigation outlives the debounce.
	require.Eventually(t, func() bool {
		return view.snapshot().loadingSeen > 0
	}, time.Second, 5*time.Millisecond)

	close(release)
	require.NoError(t, <-done)
}
