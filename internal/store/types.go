package store

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

// Influencer mirrors the influencer table, optionally annotated with
// call counts by the search query.
type Influencer struct {
	ID          int64
	ChannelName string
	AuthorName  string
	Platform    string
	URL         string
	Followers   int64
	CreatedAt   time.Time

	TotalCalls      int64
	SuccessfulCalls int64
	FailedCalls     int64
}

// TradeCall is a trade_call row joined with its asset and influencer
// context. Only tracked calls (signal details complete) are returned by
// the queries here.
type TradeCall struct {
	ID           int64
	UUID         string
	InfluencerID int64
	Signal       string
	Entry        float64 // assumed entry price
	Stop         float64
	TargetFirst  float64
	PostedAt     time.Time
	ResolvedAt   time.Time // zero if the target was never achieved
	TargetHit    bool
	StopHit      bool
	Resolved     bool // either outcome recorded
	Done         bool
	Description  string

	InfluencerName string
	Platform       string
	AssetID        int64
	AssetSymbol    string
	AssetName      string
	AssetType      string
	AssetPrice     float64
}

// User is an authenticated dashboard account.
type User struct {
	ID        uuid.UUID
	Email     string
	Name      string
	CreatedAt time.Time
}

// WatchlistItem joins a watchlist row with its influencer.
type WatchlistItem struct {
	ID         int64
	UserID     uuid.UUID
	Notes      string
	AddedAt    time.Time
	Influencer Influencer
}

// AbuseReport is a user-filed report against a trade call or an
// influencer profile.
type AbuseReport struct {
	ID           int64
	ReporterID   uuid.UUID
	ReportType   string // "call" or "profile"
	Reason       string
	Description  string
	InfluencerID int64 // set for profile reports
	TradeCallID  int64 // set for call reports
	IPAddress    string
	Status       string
	CreatedAt    time.Time
}

// Submission is a community-submitted influencer awaiting approval.
type Submission struct {
	ID            int64
	SubmittedBy   uuid.UUID
	Platform      string
	ChannelName   string
	AuthorName    string
	URL           string
	Followers     int64
	Verified      bool
	Status        string // pending, approved, rejected
	AutoApproved  bool
	ApprovalScore int
	CreatedAt     time.Time
}

// Stats is the aggregate snapshot served by the dashboard stats API.
type Stats struct {
	TotalInfluencers int64
	TotalCalls       int64
	ActiveCalls      int64
	SuccessfulCalls  int64
	FailedCalls      int64
	PendingReports   int64
}
