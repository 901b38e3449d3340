package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/kolwatch/kolwatch/internal/store"
)

// SubmissionStore is the slice of the data layer approval processing
// needs.
type SubmissionStore interface {
	PendingSubmissions(ctx context.Context) ([]store.Submission, error)
	UpdateSubmissionDecision(ctx context.Context, id int64, status string, score int, autoApproved bool) error
	PromoteSubmission(ctx context.Context, sub store.Submission) (int64, error)
}

// ApprovalThresholds gate auto-approval of community submissions.
type ApprovalThresholds struct {
	MinFollowers int64
	MinScore     int
}

// platformHosts maps a submission platform to the hosts a plausible
// profile URL lives on.
var platformHosts = map[string][]string{
	"youtube":  {"youtube.com", "youtu.be"},
	"twitter":  {"twitter.com", "x.com"},
	"telegram": {"t.me", "telegram.me"},
	"tiktok":   {"tiktok.com"},
}

// ScoreSubmission rates a submission 0-100: audience size (40 pts), a
// profile URL on the claimed platform (30) and a verified account (30).
func ScoreSubmission(sub store.Submission) int {
	score := 0
	switch {
	case sub.Followers >= 100_000:
		score += 40
	case sub.Followers >= 10_000:
		score += 30
	case sub.Followers >= 1_000:
		score += 20
	case sub.Followers > 0:
		score += 10
	}

	u := strings.ToLower(sub.URL)
	for _, host := range platformHosts[strings.ToLower(sub.Platform)] {
		if strings.Contains(u, host) {
			score += 30
			break
		}
	}

	if sub.Verified {
		score += 30
	}
	if score > 100 {
		score = 100
	}
	return score
}

// Approver processes pending submissions.
type Approver struct {
	Store      SubmissionStore
	Thresholds ApprovalThresholds
	Log        zerolog.Logger
}

// Decide scores a submission and reports whether it clears the bar.
func (a *Approver) Decide(sub store.Submission) (score int, approve bool) {
	score = ScoreSubmission(sub)
	approve = sub.Followers >= a.Thresholds.MinFollowers || score >= a.Thresholds.MinScore
	return score, approve
}

// Process reviews pending submissions (or just one, when the payload
// names it), promoting approved ones to full influencer rows.
func (a *Approver) Process(ctx context.Context, submissionID int64) (approved int, err error) {
	subs, err := a.Store.PendingSubmissions(ctx)
	if err != nil {
		return 0, err
	}

	for _, sub := range subs {
		if submissionID != 0 && sub.ID != submissionID {
			continue
		}
		score, ok := a.Decide(sub)
		status := "rejected"
		if ok {
			status = "approved"
		}
		if err := a.Store.UpdateSubmissionDecision(ctx, sub.ID, status, score, ok); err != nil {
			return approved, fmt.Errorf("submission %d: %w", sub.ID, err)
		}
		if !ok {
			a.Log.Info().Int64("submission", sub.ID).Int("score", score).Msg("submission rejected")
			continue
		}
		id, err := a.Store.PromoteSubmission(ctx, sub)
		if err != nil {
			return approved, fmt.Errorf("promote submission %d: %w", sub.ID, err)
		}
		approved++
		a.Log.Info().Int64("submission", sub.ID).Int64("influencer", id).Int("score", score).Msg("submission approved")
	}
	return approved, nil
}

// Handle is the asynq handler for TaskProcessApprovals.
func (a *Approver) Handle(ctx context.Context, t *asynq.Task) error {
	var p ProcessApprovalsPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		a.Log.Error().Err(err).Msg("bad approvals payload, dropping")
		return nil
	}
	start := time.Now()
	n, err := a.Process(ctx, p.SubmissionID)
	duration := time.Since(start)
	if err != nil {
		if IsRetryableError(err) {
			a.Log.Warn().Err(err).Dur("duration", duration).Msg("approval run failed, retrying")
			return err
		}
		a.Log.Error().Err(err).Dur("duration", duration).Msg("approval run failed permanently, dropping")
		return nil
	}
	a.Log.Info().Int("approved", n).Dur("duration", duration).Msg("approval run done")
	return nil
}
