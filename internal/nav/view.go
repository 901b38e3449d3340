package nav

// View is the impure half of the router: everything that touches the
// rendered page goes through it, so the navigation logic itself can be
// exercised without a rendering environment.
type View interface {
	// SwapContent replaces the inner HTML of the page-content container.
	SwapContent(html string)
	SetTitle(title string)
	SetPageHeader(title string)

	// BeginTransition marks the content container as exiting;
	// EndTransition clears the transition markers after the new content
	// has entered.
	BeginTransition()
	EndTransition()

	ShowLoading()
	HideLoading()

	// SetActiveLink activates a nav link whose href matches the path
	// exactly. It reports whether such a link exists; when it does not,
	// the router falls back to the section table.
	SetActiveLink(path string) bool
	SetActiveSection(section string)

	// Notify shows a dismissible error banner.
	Notify(msg string)
	// NavigateNative abandons in-app navigation and performs a full
	// page load to the given URL.
	NavigateNative(url string)

	// Reinit reattaches page-level widgets (tooltips, charts) to newly
	// injected content.
	Reinit()
	ScrollTop()
}

// NopView discards every call. It keeps the router usable headless,
// e.g. for cache warming in tests or tools.
type NopView struct{}

func (NopView) SwapContent(string)        {}
func (NopView) SetTitle(string)           {}
func (NopView) SetPageHeader(string)      {}
func (NopView) BeginTransition()          {}
func (NopView) EndTransition()            {}
func (NopView) ShowLoading()              {}
func (NopView) HideLoading()              {}
func (NopView) SetActiveLink(string) bool { return false }
func (NopView) SetActiveSection(string)   {}
func (NopView) Notify(string)             {}
func (NopView) NavigateNative(string)     {}
func (NopView) Reinit()                   {}
func (NopView) ScrollTop()                {}
