// Package jobs defines the asynq task names and payloads shared by the
// web server (producer) and the worker (consumer), plus the handlers
// behind them.
package jobs

const (
	// TaskResolveCalls sweeps open trade calls and records outcomes
	// against current asset prices.
	TaskResolveCalls = "resolve:trade_calls"

	// TaskProcessApprovals scores pending influencer submissions and
	// auto-approves the ones that clear the thresholds.
	TaskProcessApprovals = "approvals:process"
)

type ResolveCallsPayload struct {
	// CallID narrows the sweep to one call; zero means all open calls.
	CallID int64 `json:"call_id,omitempty"`
}

type ProcessApprovalsPayload struct {
	// SubmissionID narrows to one submission; zero means all pending.
	SubmissionID int64 `json:"submission_id,omitempty"`
}
