package rank

import (
	"testing"
	"time"
)

func win(entry, stop, target float64, postedAgo, ttDays time.Duration) Call {
	now := time.Now()
	return Call{
		AssetType:  "crypto",
		Entry:      entry,
		Stop:       stop,
		Target:     target,
		PostedAt:   now.Add(-postedAgo),
		ResolvedAt: now.Add(-postedAgo).Add(ttDays),
		TargetHit:  true,
	}
}

func loss(entry, stop float64, postedAgo time.Duration) Call {
	return Call{
		AssetType: "crypto",
		Entry:     entry,
		Stop:      stop,
		PostedAt:  time.Now().Add(-postedAgo),
		StopHit:   true,
	}
}

func TestAccuracy(t *testing.T) {
	tests := []struct {
		name  string
		calls []Call
		want  float64
	}{
		{"no calls", nil, 0},
		{"unresolved only", []Call{{Entry: 1}}, 0},
		{"three wins one loss", []Call{
			win(100, 90, 120, 48*time.Hour, 24*time.Hour),
			win(100, 90, 120, 48*time.Hour, 24*time.Hour),
			win(100, 90, 120, 48*time.Hour, 24*time.Hour),
			loss(100, 90, 48*time.Hour),
		}, 75},
		{"all losses", []Call{loss(100, 90, time.Hour), loss(50, 40, time.Hour)}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Accuracy(tt.calls); got != tt.want {
				t.Errorf("Accuracy() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMedianRiskReward(t *testing.T) {
	calls := []Call{
		win(100, 90, 120, 0, time.Hour), // RR 2.0
		win(100, 95, 120, 0, time.Hour), // RR 4.0
		win(100, 80, 110, 0, time.Hour), // RR 0.5
	}
	// Sorted RRs: 0.5, 2.0, 4.0 — median is 2.0.
	if got := MedianRiskReward(calls); got != 2.0 {
		t.Errorf("MedianRiskReward() = %v, want 2.0", got)
	}

	if got := MedianRiskReward([]Call{loss(100, 90, 0)}); got != 0 {
		t.Errorf("losses only should give 0, got %v", got)
	}
}

func TestMedianTimeToTarget(t *testing.T) {
	calls := []Call{
		win(100, 90, 110, 240*time.Hour, 24*time.Hour),  // 1 day
		win(100, 90, 110, 240*time.Hour, 72*time.Hour),  // 3 days
		win(100, 90, 110, 240*time.Hour, 120*time.Hour), // 5 days
	}
	if got := MedianTimeToTarget(calls); got != 3.0 {
		t.Errorf("MedianTimeToTarget() = %v, want 3.0", got)
	}
}

func TestConfidenceClamped(t *testing.T) {
	now := time.Now()
	var calls []Call
	for i := 0; i < 120; i++ {
		calls = append(calls, win(100, 90, 140, time.Duration(i)*time.Hour, time.Hour))
	}
	got := Confidence(calls, now)
	if got != 100 {
		t.Errorf("Confidence() = %d, want clamp at 100", got)
	}

	if got := Confidence(nil, now); got != 0 {
		t.Errorf("Confidence(no calls) = %d, want 0", got)
	}
}

func TestPrimaryCategory(t *testing.T) {
	calls := []Call{
		{AssetType: "Stocks"},
		{AssetType: "stock"},
		{AssetType: "crypto"},
	}
	if got := PrimaryCategory(calls); got != "stocks" {
		t.Errorf("PrimaryCategory() = %q, want stocks", got)
	}
	if got := PrimaryCategory(nil); got != "crypto" {
		t.Errorf("PrimaryCategory(empty) = %q, want crypto default", got)
	}
}

func TestSortAndPaginate(t *testing.T) {
	rows := []Row{
		{ID: 1, Accuracy: 50, TotalCalls: 10},
		{ID: 2, Accuracy: 80, TotalCalls: 5},
		{ID: 3, Accuracy: 80, TotalCalls: 50},
		{ID: 4, Accuracy: 20, TotalCalls: 99},
	}
	SortRows(rows)
	wantOrder := []int64{3, 2, 1, 4}
	for i, id := range wantOrder {
		if rows[i].ID != id {
			t.Fatalf("rows[%d].ID = %d, want %d", i, rows[i].ID, id)
		}
	}

	page := Paginate(rows, 2, 2)
	if len(page) != 2 || page[0].ID != 1 {
		t.Errorf("Paginate page 2 = %+v", page)
	}
	if got := Paginate(rows, 9, 2); got != nil {
		t.Errorf("out-of-range page should be empty, got %+v", got)
	}
}

func TestClopperPearson(t *testing.T) {
	tests := []struct {
		successes, trials int
		wantLo, wantHi    float64
	}{
		{0, 0, 0, 0},
		{0, 10, 0, 30.8},
		{10, 10, 69.2, 100},
		{5, 10, 18.7, 81.3},
		{7, 10, 34.8, 93.3},
	}
	for _, tt := range tests {
		lo, hi := ClopperPearson(tt.successes, tt.trials, 0.05)
		if lo != tt.wantLo || hi != tt.wantHi {
			t.Errorf("ClopperPearson(%d, %d) = (%v, %v), want (%v, %v)",
				tt.successes, tt.trials, lo, hi, tt.wantLo, tt.wantHi)
		}
	}

	// Interior case: bounds must bracket the point estimate.
	lo, hi := ClopperPearson(7, 10, 0.05)
	if !(lo < 70 && 70 < hi) {
		t.Errorf("ClopperPearson(7, 10) = (%v, %v) does not bracket 70", lo, hi)
	}
}
