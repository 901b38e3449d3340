// Package rank computes influencer credibility metrics from historical
// trade calls: accuracy over resolved calls, median risk-reward, median
// time-to-target and a blended confidence score. All functions are pure
// so the leaderboard can be tested without a database.
package rank

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// Call is the slice of a trade call the ranking math needs. Only
// tracked calls (valid signal details) should be passed in.
type Call struct {
	AssetType  string
	AssetSym   string
	Signal     string
	Entry      float64 // assumed entry price
	Stop       float64
	Target     float64 // first target
	PostedAt   time.Time
	ResolvedAt time.Time // when the target was achieved, zero if never
	TargetHit  bool
	StopHit    bool
}

// Resolved reports whether the call ended either way.
func (c Call) Resolved() bool { return c.TargetHit || c.StopHit }

// Accuracy is the win percentage over resolved calls, 0 when nothing
// has resolved yet.
func Accuracy(calls []Call) float64 {
	var wins, losses int
	for _, c := range calls {
		switch {
		case c.TargetHit:
			wins++
		case c.StopHit:
			losses++
		}
	}
	if wins+losses == 0 {
		return 0
	}
	return round1(float64(wins) / float64(wins+losses) * 100)
}

// MedianRiskReward is the median (target-entry)/(entry-stop) over
// winning calls with usable prices.
func MedianRiskReward(calls []Call) float64 {
	var rrs []float64
	for _, c := range calls {
		if !c.TargetHit || c.Entry <= 0 || c.Stop <= 0 || c.Target <= 0 {
			continue
		}
		risk := math.Abs(c.Entry - c.Stop)
		if risk == 0 {
			continue
		}
		rrs = append(rrs, math.Abs(c.Target-c.Entry)/risk)
	}
	if len(rrs) == 0 {
		return 0
	}
	sort.Float64s(rrs)
	return round1(rrs[len(rrs)/2])
}

// MedianTimeToTarget is the median days from posting to target hit.
func MedianTimeToTarget(calls []Call) float64 {
	var days []float64
	for _, c := range calls {
		if !c.TargetHit || c.ResolvedAt.IsZero() || !c.ResolvedAt.After(c.PostedAt) {
			continue
		}
		days = append(days, c.ResolvedAt.Sub(c.PostedAt).Hours()/24)
	}
	if len(days) == 0 {
		return 0
	}
	sort.Float64s(days)
	return round1(days[len(days)/2])
}

// Confidence blends accuracy (40 pts), call volume (20), resolved ratio
// (20), risk-reward (10) and recent activity (10) into a 0-100 score.
func Confidence(calls []Call, now time.Time) int {
	total := len(calls)
	var wins, losses int
	for _, c := range calls {
		switch {
		case c.TargetHit:
			wins++
		case c.StopHit:
			losses++
		}
	}
	resolved := wins + losses

	score := math.Min(Accuracy(calls)*0.4, 40)

	switch {
	case total >= 100:
		score += 20
	case total >= 50:
		score += 15
	case total >= 20:
		score += 10
	case total >= 10:
		score += 5
	}

	if total > 0 {
		score += float64(resolved) / float64(total) * 20
	}

	switch rr := MedianRiskReward(calls); {
	case rr >= 3:
		score += 10
	case rr >= 2:
		score += 7
	case rr >= 1:
		score += 5
	case rr > 0:
		score += 2
	}

	lastWeek := now.AddDate(0, 0, -7)
	var recent int
	for _, c := range calls {
		if c.PostedAt.After(lastWeek) {
			recent++
		}
	}
	switch {
	case recent >= 5:
		score += 10
	case recent >= 3:
		score += 7
	case recent >= 1:
		score += 5
	}

	if score > 100 {
		score = 100
	}
	return int(score)
}

// PrimaryCategory buckets the influencer by the asset type they call
// most often. Unknown types count as crypto.
func PrimaryCategory(calls []Call) string {
	counts := map[string]int{}
	for _, c := range calls {
		counts[CategoryOf(c.AssetType)]++
	}
	best, bestN := "crypto", 0
	for _, cat := range []string{"crypto", "stocks", "forex", "commodities"} {
		if counts[cat] > bestN {
			best, bestN = cat, counts[cat]
		}
	}
	return best
}

// CategoryOf normalizes a raw asset type string to a category bucket.
func CategoryOf(assetType string) string {
	at := strings.ToLower(assetType)
	switch {
	case strings.Contains(at, "stock"):
		return "stocks"
	case strings.Contains(at, "forex"), strings.Contains(at, "fx"):
		return "forex"
	case strings.Contains(at, "commodit"), strings.Contains(at, "gold"), strings.Contains(at, "oil"):
		return "commodities"
	default:
		return "crypto"
	}
}

// Row is one leaderboard entry, shaped for the JSON API.
type Row struct {
	ID          int64    `json:"id"`
	Username    string   `json:"username"`
	DisplayName string   `json:"display_name"`
	Platform    string   `json:"platform"`
	Accuracy    float64  `json:"accuracy"`
	AccuracyLow float64  `json:"accuracy_low"`
	AccuracyHi  float64  `json:"accuracy_high"`
	Category    string   `json:"category"`
	TotalCalls  int      `json:"total_calls"`
	MedianRR    float64  `json:"median_risk_reward"`
	MedianTT    string   `json:"median_time_to_target"`
	Confidence  int      `json:"confidence_score"`
	Platforms   []string `json:"platforms"`
}

// BuildRow computes every metric for one influencer.
func BuildRow(id int64, username, displayName, platform string, calls []Call, now time.Time) Row {
	if username == "" {
		username = fmt.Sprintf("user_%d", id)
	}
	if displayName == "" {
		displayName = username
	}
	if platform == "" {
		platform = "twitter"
	}
	var wins, losses int
	for _, c := range calls {
		switch {
		case c.TargetHit:
			wins++
		case c.StopHit:
			losses++
		}
	}
	lo, hi := ClopperPearson(wins, wins+losses, 0.05)
	return Row{
		ID:          id,
		Username:    username,
		DisplayName: displayName,
		Platform:    platform,
		Accuracy:    Accuracy(calls),
		AccuracyLow: lo,
		AccuracyHi:  hi,
		Category:    PrimaryCategory(calls),
		TotalCalls:  len(calls),
		MedianRR:    MedianRiskReward(calls),
		MedianTT:    fmt.Sprintf("%.1fd", MedianTimeToTarget(calls)),
		Confidence:  Confidence(calls, now),
		Platforms:   []string{platform},
	}
}

// SortRows orders the leaderboard by accuracy descending, breaking ties
// by call volume.
func SortRows(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Accuracy != rows[j].Accuracy {
			return rows[i].Accuracy > rows[j].Accuracy
		}
		return rows[i].TotalCalls > rows[j].TotalCalls
	})
}

// Paginate slices rows for a 1-based page.
func Paginate(rows []Row, page, pageSize int) []Row {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	start := (page - 1) * pageSize
	if start >= len(rows) {
		return nil
	}
	end := start + pageSize
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end]
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
