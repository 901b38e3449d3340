// Package hover turns link hover events into cache warming: dashboard
// links are preloaded through the navigation router's page cache,
// influencer links through the mini-profile card cache.
package hover

import (
	"context"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/kolwatch/kolwatch/internal/nav"
	"github.com/kolwatch/kolwatch/internal/profilecard"
)

type Prefetcher struct {
	Router *nav.Router
	Cards  *profilecard.Client
	Log    zerolog.Logger
}

// OnHover warms the right cache for the hovered link. Best-effort like
// the router's own preload: failures are logged, never surfaced.
func (p *Prefetcher) OnHover(ctx context.Context, l nav.Link) {
	if id, ok := influencerID(l.Href); ok && p.Cards != nil {
		if _, err := p.Cards.Get(ctx, id); err != nil {
			p.Log.Debug().Err(err).Int64("influencer", id).Msg("card prefetch failed")
		}
		return
	}
	if p.Router != nil && p.Router.ShouldIntercept(l) {
		p.Router.Preload(ctx, l.Href)
	}
}

// influencerID extracts the id from profile links such as
// /influencer/42 or /dashboard/influencer/42.
func influencerID(href string) (int64, bool) {
	_, rest, ok := strings.Cut(href, "/influencer/")
	if !ok {
		return 0, false
	}
	if i := strings.IndexAny(rest, "/?#"); i >= 0 {
		rest = rest[:i]
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
