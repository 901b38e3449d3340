// Package nav implements seamless in-app navigation between dashboard
// pages: it fetches page content over HTTP, keeps a small FIFO cache of
// fetched bodies, swaps the visible content through a View, and records
// completed navigations in a History. Any failure degrades to a full
// native page load, which is the pre-existing baseline behavior.
package nav

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// SectionRule maps a path segment to a logical nav section. The table
// is ordered; the first matching rule wins.
type SectionRule struct {
	Segment string
	Section string
}

// DefaultSections covers the dashboard's known pages. The bare
// /dashboard entry must stay last so it doesn't shadow the others.
var DefaultSections = []SectionRule{
	{"/dashboard/leaderboard", "leaderboard"},
	{"/dashboard/trending-kols", "trending"},
	{"/dashboard/analytics", "analytics"},
	{"/dashboard/signals", "signals"},
	{"/dashboard/search", "search"},
	{"/dashboard/watchlist", "watchlist"},
	{"/dashboard/settings", "settings"},
	{"/dashboard", "home"},
}

// Router drives in-app page transitions. There is exactly one Router
// per page session; construct it once at startup and hand it to the
// event-handling layer.
type Router struct {
	client   *http.Client
	origin   *url.URL
	policy   Policy
	cache    *PageCache
	view     View
	history  History
	log      zerolog.Logger
	sections []SectionRule
	onLoaded func(path string)

	loadingDelay  time.Duration
	exitDelay     time.Duration
	enterDelay    time.Duration
	preloadJitter time.Duration

	mu           sync.Mutex
	currentPage  string
	inFlight     bool
	loadingTimer *time.Timer
}

type Option func(*Router)

func WithHTTPClient(h *http.Client) Option {
	return func(r *Router) { r.client = h }
}

func WithView(v View) Option {
	return func(r *Router) { r.view = v }
}

func WithHistory(h History) Option {
	return func(r *Router) { r.history = h }
}

func WithPolicy(p Policy) Option {
	return func(r *Router) { r.policy = p }
}

func WithCacheSize(n int) Option {
	return func(r *Router) { r.cache = NewPageCache(n) }
}

func WithLogger(l zerolog.Logger) Option {
	return func(r *Router) { r.log = l }
}

func WithSectionTable(rules []SectionRule) Option {
	return func(r *Router) { r.sections = rules }
}

// WithPageLoadedHook registers the listener notified after each
// completed navigation, carrying the new path.
func WithPageLoadedHook(fn func(path string)) Option {
	return func(r *Router) { r.onLoaded = fn }
}

// WithTimings overrides the loading-indicator debounce and the two
// transition delays. Tests pass zeros to run without waiting.
func WithTimings(loading, exit, enter time.Duration) Option {
	return func(r *Router) {
		r.loadingDelay, r.exitDelay, r.enterDelay = loading, exit, enter
	}
}

func New(origin string, opts ...Option) (*Router, error) {
	u, err := url.Parse(origin)
	if err != nil {
		return nil, fmt.Errorf("parse origin: %w", err)
	}
	r := &Router{
		client:        http.DefaultClient,
		origin:        u,
		policy:        DefaultPolicy(origin),
		cache:         NewPageCache(DefaultCacheSize),
		view:          NopView{},
		history:       NewMemoryHistory(),
		log:           zerolog.Nop(),
		sections:      DefaultSections,
		loadingDelay:  100 * time.Millisecond,
		exitDelay:     300 * time.Millisecond,
		enterDelay:    400 * time.Millisecond,
		preloadJitter: 2 * time.Second,
	}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

// Start records the initial page. It replaces history state rather than
// pushing, so back/forward doesn't land on a duplicate first entry.
func (r *Router) Start(path string) {
	r.mu.Lock()
	r.currentPage = path
	r.mu.Unlock()
	r.history.Replace(path)
	if !r.view.SetActiveLink(path) {
		r.setActiveSection(path)
	}
}

// ShouldIntercept applies the link interception policy.
func (r *Router) ShouldIntercept(l Link) bool {
	return r.policy.ShouldIntercept(l)
}

// CurrentPage returns the active path.
func (r *Router) CurrentPage() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentPage
}

// Navigate performs one in-app navigation. addToHistory is false when
// replaying a back/forward entry, so no duplicate entry is pushed.
//
// Navigations are strictly serialized: if one is already in flight the
// call is dropped entirely (not queued). Navigating to the current page
// is likewise a no-op. On failure the user sees an error banner; the
// full native reload fallback fires only for history-recording
// navigations, since a native load during back/forward replay would
// conflict with existing history.
func (r *Router) Navigate(ctx context.Context, target string, addToHistory bool) error {
	dest, err := r.resolve(target)
	if err != nil {
		return err
	}

	r.mu.Lock()
	if r.inFlight || dest.Path == r.currentPage {
		r.mu.Unlock()
		return nil
	}
	r.inFlight = true
	r.loadingTimer = time.AfterFunc(r.loadingDelay, func() {
		r.mu.Lock()
		stillLoading := r.inFlight
		r.mu.Unlock()
		if stillLoading {
			r.view.ShowLoading()
		}
	})
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.inFlight = false
		if r.loadingTimer != nil {
			r.loadingTimer.Stop()
			r.loadingTimer = nil
		}
		r.mu.Unlock()
		r.view.HideLoading()
		if !r.view.SetActiveLink(dest.Path) {
			r.setActiveSection(dest.Path)
		}
	}()

	body, err := r.fetchContent(ctx, dest)
	if err == nil {
		err = r.updatePage(ctx, body, dest)
	}
	if err != nil {
		r.log.Error().Err(err).Str("url", dest.String()).Msg("navigation failed")
		r.view.Notify("Failed to load page. Please try again.")
		if addToHistory {
			r.view.NavigateNative(dest.String())
		}
		return err
	}

	r.mu.Lock()
	r.currentPage = dest.Path
	r.mu.Unlock()
	if addToHistory {
		r.history.Push(dest.Path)
	}
	return nil
}

// fetchContent returns a page body from cache, or fetches and caches
// it. The request is tagged as a partial/AJAX request so the server may
// return a lighter-weight fragment.
func (r *Router) fetchContent(ctx context.Context, u *url.URL) (string, error) {
	r.mu.Lock()
	body, ok := r.cache.Get(u.String())
	r.mu.Unlock()
	if ok {
		return body, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("Accept", "text/html")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetch %s: %s", u.Path, resp.Status)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	body = string(b)
	r.mu.Lock()
	r.cache.Put(u.String(), body)
	r.mu.Unlock()
	return body, nil
}

// updatePage parses the fetched document and swaps it into the view.
// The content transition is a timed two-phase swap: mark exiting, wait,
// replace, wait, clear markers. It is not tied to animation events.
func (r *Router) updatePage(ctx context.Context, body string, u *url.URL) error {
	pg, err := parsePage(body)
	if err != nil {
		return err
	}

	if pg.Title != "" {
		r.view.SetTitle(pg.Title)
	}
	if pg.Header != "" {
		r.view.SetPageHeader(pg.Header)
	}

	r.view.BeginTransition()
	if err := sleep(ctx, r.exitDelay); err != nil {
		return err
	}
	r.view.SwapContent(pg.Content)
	if err := sleep(ctx, r.enterDelay); err != nil {
		return err
	}
	r.view.EndTransition()

	r.view.Reinit()
	if r.onLoaded != nil {
		r.onLoaded(u.Path)
	}
	r.view.ScrollTop()
	return nil
}

// Preload warms the cache for a URL, typically on link hover. Failures
// are logged and swallowed: preloading is best-effort, never
// user-visible.
func (r *Router) Preload(ctx context.Context, target string) {
	dest, err := r.resolve(target)
	if err != nil {
		r.log.Debug().Err(err).Str("url", target).Msg("preload skipped")
		return
	}
	r.mu.Lock()
	cached := r.cache.Contains(dest.String())
	r.mu.Unlock()
	if cached {
		return
	}
	if _, err := r.fetchContent(ctx, dest); err != nil {
		r.log.Debug().Err(err).Str("url", dest.String()).Msg("preload failed")
	}
}

// WarmCriticalPages preloads a fixed set of pages at startup, each
// staggered by a random delay up to the jitter bound to avoid a request
// burst.
func (r *Router) WarmCriticalPages(ctx context.Context, targets []string) {
	for _, t := range targets {
		go func(t string) {
			d := time.Duration(rand.Int63n(int64(r.preloadJitter) + 1))
			if sleep(ctx, d) != nil {
				return
			}
			r.Preload(ctx, t)
		}(t)
	}
}

// ClearCache drops every cached page.
func (r *Router) ClearCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Clear()
}

// IsPageCached reports whether a URL has a cached body.
func (r *Router) IsPageCached(target string) bool {
	dest, err := r.resolve(target)
	if err != nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cache.Contains(dest.String())
}

func (r *Router) setActiveSection(path string) {
	for _, rule := range r.sections {
		if strings.Contains(path, rule.Segment) {
			r.view.SetActiveSection(rule.Section)
			return
		}
	}
}

func (r *Router) resolve(target string) (*url.URL, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("parse url %q: %w", target, err)
	}
	return r.origin.ResolveReference(u), nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
