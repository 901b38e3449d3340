package simulate

import (
	"errors"
	"testing"
	"time"
)

func TestRunMixedOutcomes(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	calls := []Call{
		{At: base, Asset: "BTC", Signal: "buy", Entry: 100, Target: 120, TargetHit: true},
		{At: base.AddDate(0, 0, 1), Asset: "ETH", Signal: "buy", Entry: 50, Stop: 45, StopHit: true},
	}

	res, err := Run(1000, calls)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// 500 per call: +20% on the first (+100), -10% on the second (-50).
	if res.FinalValue != 1050 {
		t.Errorf("FinalValue = %v, want 1050", res.FinalValue)
	}
	if res.TotalReturnAmount != 50 {
		t.Errorf("TotalReturnAmount = %v, want 50", res.TotalReturnAmount)
	}
	if res.TotalReturnPct != 5 {
		t.Errorf("TotalReturnPct = %v, want 5", res.TotalReturnPct)
	}
	if res.SuccessfulCalls != 1 || res.FailedCalls != 1 {
		t.Errorf("wins/losses = %d/%d, want 1/1", res.SuccessfulCalls, res.FailedCalls)
	}
	if res.SuccessRate != 50 {
		t.Errorf("SuccessRate = %v, want 50", res.SuccessRate)
	}
	if res.AvgWin != 100 || res.AvgLoss != -50 {
		t.Errorf("AvgWin/AvgLoss = %v/%v, want 100/-50", res.AvgWin, res.AvgLoss)
	}
	if len(res.Points) != 2 {
		t.Fatalf("expected 2 chart points, got %d", len(res.Points))
	}
	if res.Points[0].CumulativeValue != 1100 || res.Points[1].CumulativeValue != 1050 {
		t.Errorf("cumulative curve = %v, %v", res.Points[0].CumulativeValue, res.Points[1].CumulativeValue)
	}
}

func TestRunOrdersByTimestamp(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	calls := []Call{
		{At: base.AddDate(0, 0, 5), Asset: "LATER", Signal: "buy", Entry: 10, Target: 11, TargetHit: true},
		{At: base, Asset: "FIRST", Signal: "buy", Entry: 10, Target: 11, TargetHit: true},
	}
	res, err := Run(100, calls)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Points[0].Asset != "FIRST" {
		t.Errorf("points not chronological: %v first", res.Points[0].Asset)
	}
}

func TestRunNoHistory(t *testing.T) {
	if _, err := Run(1000, nil); !errors.Is(err, ErrNoHistory) {
		t.Fatalf("expected ErrNoHistory, got %v", err)
	}
}

func TestRunRejectsBadBudget(t *testing.T) {
	if _, err := Run(0, []Call{{Entry: 1}}); err == nil {
		t.Fatal("expected error for zero budget")
	}
}

func TestFormatReturn(t *testing.T) {
	tests := []struct {
		pct   float64
		label string
		tone  Tone
	}{
		{12.5, "+12.5%", ToneSuccess},
		{0, "+0.0%", ToneSuccess},
		{-4.2, "-4.2%", ToneDanger},
	}
	for _, tt := range tests {
		label, tone := FormatReturn(tt.pct)
		if label != tt.label || tone != tt.tone {
			t.Errorf("FormatReturn(%v) = (%q, %q), want (%q, %q)",
				tt.pct, label, tone, tt.label, tt.tone)
		}
	}
}
