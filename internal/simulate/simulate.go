// Package simulate replays an influencer's resolved trade calls
// against a hypothetical budget: equal allocation per call, wins pay
// out at the first target, losses cut at the stop.
package simulate

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

// ErrNoHistory means no resolved calls exist in the requested period.
var ErrNoHistory = errors.New("no historical data available for this period")

// Call is one resolved historical trade call.
type Call struct {
	At        time.Time
	Asset     string
	Signal    string
	Entry     float64
	Target    float64
	Stop      float64
	TargetHit bool
	StopHit   bool
}

// Point is one step of the cumulative return curve.
type Point struct {
	Date            time.Time `json:"date"`
	Asset           string    `json:"asset"`
	Signal          string    `json:"signal"`
	Entry           float64   `json:"entry"`
	Exit            float64   `json:"exit"`
	ReturnPct       float64   `json:"return_pct"`
	ReturnAmount    float64   `json:"return_amount"`
	CumulativeValue float64   `json:"cumulative_value"`
}

// Result summarizes a simulation run.
type Result struct {
	FinalValue        float64 `json:"final_value"`
	TotalReturnAmount float64 `json:"total_return_amount"`
	TotalReturnPct    float64 `json:"total_return_pct"`
	TotalCalls        int     `json:"total_calls"`
	SuccessfulCalls   int     `json:"successful_calls"`
	FailedCalls       int     `json:"failed_calls"`
	SuccessRate       float64 `json:"success_rate"`
	AvgWin            float64 `json:"avg_win"`
	AvgLoss           float64 `json:"avg_loss"`
	Points            []Point `json:"chart_data"`
}

// Run replays calls in chronological order with budget/len(calls)
// allocated to each. Calls without usable prices contribute nothing to
// the curve but still count toward the allocation, matching how the
// budget would have been committed up front.
func Run(budget float64, calls []Call) (Result, error) {
	if budget <= 0 {
		return Result{}, fmt.Errorf("budget must be positive, got %v", budget)
	}
	if len(calls) == 0 {
		return Result{}, ErrNoHistory
	}

	ordered := make([]Call, len(calls))
	copy(ordered, calls)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].At.Before(ordered[j].At) })

	perCall := budget / float64(len(ordered))
	cumulative := budget

	var res Result
	res.TotalCalls = len(ordered)

	for _, c := range ordered {
		switch {
		case c.TargetHit:
			res.SuccessfulCalls++
			if c.Entry <= 0 || c.Target <= 0 {
				continue
			}
			pct := (c.Target - c.Entry) / c.Entry
			amount := perCall * pct
			cumulative += amount
			res.Points = append(res.Points, Point{
				Date: c.At, Asset: c.Asset, Signal: c.Signal,
				Entry: c.Entry, Exit: c.Target,
				ReturnPct:       round2(pct * 100),
				ReturnAmount:    round2(amount),
				CumulativeValue: round2(cumulative),
			})
		case c.StopHit:
			res.FailedCalls++
			if c.Entry <= 0 || c.Stop <= 0 {
				continue
			}
			pct := (c.Stop - c.Entry) / c.Entry
			amount := perCall * pct
			cumulative += amount
			res.Points = append(res.Points, Point{
				Date: c.At, Asset: c.Asset, Signal: c.Signal,
				Entry: c.Entry, Exit: c.Stop,
				ReturnPct:       round2(pct * 100),
				ReturnAmount:    round2(amount),
				CumulativeValue: round2(cumulative),
			})
		}
	}

	res.FinalValue = round2(cumulative)
	res.TotalReturnAmount = round2(cumulative - budget)
	res.TotalReturnPct = round2((cumulative - budget) / budget * 100)
	res.SuccessRate = round1(float64(res.SuccessfulCalls) / float64(res.TotalCalls) * 100)

	var winSum, lossSum float64
	var winN, lossN int
	for _, p := range res.Points {
		if p.ReturnAmount > 0 {
			winSum += p.ReturnAmount
			winN++
		} else if p.ReturnAmount < 0 {
			lossSum += p.ReturnAmount
			lossN++
		}
	}
	if winN > 0 {
		res.AvgWin = round2(winSum / float64(winN))
	}
	if lossN > 0 {
		res.AvgLoss = round2(lossSum / float64(lossN))
	}
	return res, nil
}

// Tone classifies a return figure for presentation.
type Tone string

const (
	ToneSuccess Tone = "success" // non-negative, upward indicator
	ToneDanger  Tone = "danger"  // negative, downward indicator
)

// FormatReturn renders a percentage with an explicit sign and the tone
// the UI styles it with: "+12.5%" success for any non-negative value,
// "-4.2%" danger otherwise.
func FormatReturn(pct float64) (string, Tone) {
	if pct >= 0 {
		return fmt.Sprintf("+%.1f%%", pct), ToneSuccess
	}
	return fmt.Sprintf("%.1f%%", pct), ToneDanger
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round1(v float64) float64 { return math.Round(v*10) / 10 }
