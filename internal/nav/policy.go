package nav

import (
	"net/url"
	"strings"
)

// Link describes an anchor as the interception policy sees it.
type Link struct {
	Href   string
	Target string
}

// Policy decides which links the router may take over. Anything it
// rejects falls through to a normal full-page navigation.
type Policy struct {
	Origin          string   // scheme://host of the app, e.g. "https://app.example"
	DashboardPrefix string   // path prefix eligible for interception
	BlockedSegments []string // path segments that must always navigate natively
}

// DefaultPolicy matches the dashboard's URL layout: everything under
// /dashboard/ except the auth and logout flows.
func DefaultPolicy(origin string) Policy {
	return Policy{
		Origin:          origin,
		DashboardPrefix: "/dashboard/",
		BlockedSegments: []string{"/auth/", "/logout"},
	}
}

// ShouldIntercept reports whether a clicked or hovered link is eligible
// for in-app navigation. All checks must pass; a false return means the
// browser's default behavior is left untouched.
func (p Policy) ShouldIntercept(l Link) bool {
	if l.Href == "" {
		return false
	}
	if l.Target == "_blank" {
		return false
	}
	u, err := url.Parse(l.Href)
	if err != nil {
		return false
	}
	if u.IsAbs() {
		origin, err := url.Parse(p.Origin)
		if err != nil {
			return false
		}
		if u.Scheme != origin.Scheme || u.Host != origin.Host {
			return false
		}
	}
	if !strings.Contains(u.Path, p.DashboardPrefix) {
		return false
	}
	for _, seg := range p.BlockedSegments {
		if strings.Contains(u.Path, seg) {
			return false
		}
	}
	return true
}
