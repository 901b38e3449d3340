// Package store is the pgx-backed data access layer for the dashboard.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// trackedCallColumns selects a trade_call row with its joined context.
// "tracked" means the extraction pipeline judged the signal details
// complete enough to score.
const trackedCallColumns = `
	tc.id, tc.uuid, tc.influencer_id, COALESCE(tc.signal, ''),
	COALESCE(tc.assumed_entry_price, 0), COALESCE(tc.stoploss_price, 0),
	COALESCE(tc.target_first, 0), tc.posted_at, tc.resolved_at,
	COALESCE(tc.target_hit, false), COALESCE(tc.stoploss_hit, false),
	COALESCE(tc.done, false), COALESCE(tc.description, ''),
	COALESCE(i.channel_name, ''), COALESCE(i.platform, ''),
	a.id, a.symbol, COALESCE(a.name, ''), COALESCE(a.asset_type, ''),
	COALESCE(a.current_price, 0)`

const trackedCallFrom = `
	FROM trade_call tc
	JOIN asset a ON a.id = tc.asset_id
	JOIN influencer i ON i.id = tc.influencer_id
	WHERE tc.tracked`

func scanCall(row pgx.Row) (TradeCall, error) {
	var c TradeCall
	var resolvedAt pgtype.Timestamptz
	err := row.Scan(&c.ID, &c.UUID, &c.InfluencerID, &c.Signal,
		&c.Entry, &c.Stop, &c.TargetFirst, &c.PostedAt, &resolvedAt,
		&c.TargetHit, &c.StopHit, &c.Done, &c.Description,
		&c.InfluencerName, &c.Platform,
		&c.AssetID, &c.AssetSymbol, &c.AssetName, &c.AssetType, &c.AssetPrice)
	if err != nil {
		return c, err
	}
	if resolvedAt.Valid {
		c.ResolvedAt = resolvedAt.Time
	}
	c.Resolved = c.TargetHit || c.StopHit
	return c, nil
}

func (s *Store) collectCalls(ctx context.Context, query string, args ...any) ([]TradeCall, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var calls []TradeCall
	for rows.Next() {
		c, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		calls = append(calls, c)
	}
	return calls, rows.Err()
}

// CallsByInfluencer returns every tracked call for one influencer.
func (s *Store) CallsByInfluencer(ctx context.Context, influencerID int64) ([]TradeCall, error) {
	q := `SELECT ` + trackedCallColumns + trackedCallFrom + ` AND tc.influencer_id = $1 ORDER BY tc.posted_at`
	return s.collectCalls(ctx, q, influencerID)
}

// CallsSince returns tracked calls posted after the given time, across
// all influencers. Used for trending and analytics windows.
func (s *Store) CallsSince(ctx context.Context, since time.Time) ([]TradeCall, error) {
	q := `SELECT ` + trackedCallColumns + trackedCallFrom + ` AND tc.posted_at >= $1 ORDER BY tc.posted_at DESC`
	return s.collectCalls(ctx, q, since)
}

// RecentResolvedCalls returns the newest calls with a recorded outcome.
func (s *Store) RecentResolvedCalls(ctx context.Context, limit int) ([]TradeCall, error) {
	q := `SELECT ` + trackedCallColumns + trackedCallFrom +
		` AND (tc.target_hit IS NOT NULL OR tc.stoploss_hit IS NOT NULL)
		 ORDER BY tc.created_at DESC LIMIT $1`
	return s.collectCalls(ctx, q, limit)
}

// OpenCalls returns unresolved tracked calls for the worker to check
// against current prices.
func (s *Store) OpenCalls(ctx context.Context) ([]TradeCall, error) {
	q := `SELECT ` + trackedCallColumns + trackedCallFrom +
		` AND NOT COALESCE(tc.done, false)
		 AND tc.target_hit IS NULL AND tc.stoploss_hit IS NULL`
	return s.collectCalls(ctx, q)
}

func (s *Store) GetCall(ctx context.Context, id int64) (TradeCall, error) {
	q := `SELECT ` + trackedCallColumns + trackedCallFrom + ` AND tc.id = $1`
	c, err := scanCall(s.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return c, ErrNotFound
	}
	return c, err
}

// ResolveCall records the outcome of an open call.
func (s *Store) ResolveCall(ctx context.Context, id int64, targetHit, stopHit bool, at time.Time) error {
	var resolvedAt pgtype.Timestamptz
	if targetHit {
		resolvedAt = pgtype.Timestamptz{Time: at, Valid: true}
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE trade_call
		SET target_hit = $2, stoploss_hit = $3, done = true, resolved_at = $4
		WHERE id = $1`, id, targetHit, stopHit, resolvedAt)
	if err != nil {
		return fmt.Errorf("resolve call %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanInfluencer(row pgx.Row, withCounts bool) (Influencer, error) {
	var inf Influencer
	var created pgtype.Timestamptz
	dest := []any{&inf.ID, &inf.ChannelName, &inf.AuthorName, &inf.Platform, &inf.URL, &inf.Followers, &created}
	if withCounts {
		dest = append(dest, &inf.TotalCalls, &inf.SuccessfulCalls, &inf.FailedCalls)
	}
	if err := row.Scan(dest...); err != nil {
		return inf, err
	}
	if created.Valid {
		inf.CreatedAt = created.Time
	}
	return inf, nil
}

const influencerColumns = `
	i.id, COALESCE(i.channel_name, ''), COALESCE(i.author_name, ''),
	COALESCE(i.platform, ''), COALESCE(i.url, ''), COALESCE(i.follower_count, 0),
	i.created_at`

func (s *Store) GetInfluencer(ctx context.Context, id int64) (Influencer, error) {
	inf, err := scanInfluencer(s.pool.QueryRow(ctx,
		`SELECT `+influencerColumns+` FROM influencer i WHERE i.id = $1`, id), false)
	if errors.Is(err, pgx.ErrNoRows) {
		return inf, ErrNotFound
	}
	return inf, err
}

// ListInfluencers returns influencers, optionally narrowed by platform
// and by the asset category of their calls.
func (s *Store) ListInfluencers(ctx context.Context, platform, category string) ([]Influencer, error) {
	q := `SELECT ` + influencerColumns + ` FROM influencer i WHERE 1=1`
	var args []any
	if platform != "" && platform != "all" {
		args = append(args, "%"+platform+"%")
		q += fmt.Sprintf(" AND i.platform ILIKE $%d", len(args))
	}
	if category != "" && category != "all" {
		args = append(args, "%"+category+"%")
		q += fmt.Sprintf(` AND EXISTS (
			SELECT 1 FROM trade_call tc JOIN asset a ON a.id = tc.asset_id
			WHERE tc.influencer_id = i.id AND a.asset_type ILIKE $%d)`, len(args))
	}
	q += " ORDER BY i.id"

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Influencer
	for rows.Next() {
		inf, err := scanInfluencer(rows, false)
		if err != nil {
			return nil, err
		}
		out = append(out, inf)
	}
	return out, rows.Err()
}

// SearchInfluencers matches channel name, author name or URL, annotated
// with tracked-call counts. With an empty query it returns the most
// active influencers instead.
func (s *Store) SearchInfluencers(ctx context.Context, query, platform, category string, limit int) ([]Influencer, error) {
	if limit < 1 || limit > 50 {
		limit = 20
	}
	q := `SELECT ` + influencerColumns + `,
		COUNT(tc.id) FILTER (WHERE tc.tracked) AS total_calls,
		COUNT(tc.id) FILTER (WHERE tc.tracked AND tc.target_hit) AS successful_calls,
		COUNT(tc.id) FILTER (WHERE tc.tracked AND tc.stoploss_hit) AS failed_calls
		FROM influencer i
		LEFT JOIN trade_call tc ON tc.influencer_id = i.id
		WHERE 1=1`
	var args []any
	if query != "" {
		args = append(args, "%"+query+"%")
		n := len(args)
		q += fmt.Sprintf(" AND (i.channel_name ILIKE $%d OR i.author_name ILIKE $%d OR i.url ILIKE $%d)", n, n, n)
	}
	if platform != "" && platform != "all" {
		args = append(args, "%"+platform+"%")
		q += fmt.Sprintf(" AND i.platform ILIKE $%d", len(args))
	}
	if category != "" && category != "all" {
		args = append(args, "%"+category+"%")
		q += fmt.Sprintf(` AND EXISTS (
			SELECT 1 FROM trade_call c2 JOIN asset a2 ON a2.id = c2.asset_id
			WHERE c2.influencer_id = i.id AND a2.asset_type ILIKE $%d)`, len(args))
	}
	q += ` GROUP BY i.id`
	if query == "" {
		q += ` HAVING COUNT(tc.id) FILTER (WHERE tc.tracked) > 0`
	}
	args = append(args, limit)
	q += fmt.Sprintf(` ORDER BY total_calls DESC, successful_calls DESC LIMIT $%d`, len(args))

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Influencer
	for rows.Next() {
		inf, err := scanInfluencer(rows, true)
		if err != nil {
			return nil, err
		}
		out = append(out, inf)
	}
	return out, rows.Err()
}

// ---- users

func (s *Store) UpsertUserByEmail(ctx context.Context, email, name string) (User, error) {
	var u User
	err := s.pool.QueryRow(ctx, `
		INSERT INTO app_user (id, email, name)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO UPDATE SET name = COALESCE(NULLIF(EXCLUDED.name, ''), app_user.name)
		RETURNING id, email, name, created_at`,
		uuid.New(), email, name).Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt)
	return u, err
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, name, created_at FROM app_user WHERE email = $1`,
		email).Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return u, ErrNotFound
	}
	return u, err
}

// ---- watchlist

func (s *Store) Watchlist(ctx context.Context, userID uuid.UUID) ([]WatchlistItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT w.id, w.user_id, COALESCE(w.notes, ''), w.added_at, `+influencerColumns+`
		FROM watchlist w
		JOIN influencer i ON i.id = w.influencer_id
		WHERE w.user_id = $1
		ORDER BY w.added_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []WatchlistItem
	for rows.Next() {
		var it WatchlistItem
		var created pgtype.Timestamptz
		err := rows.Scan(&it.ID, &it.UserID, &it.Notes, &it.AddedAt,
			&it.Influencer.ID, &it.Influencer.ChannelName, &it.Influencer.AuthorName,
			&it.Influencer.Platform, &it.Influencer.URL, &it.Influencer.Followers, &created)
		if err != nil {
			return nil, err
		}
		if created.Valid {
			it.Influencer.CreatedAt = created.Time
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// AddToWatchlist inserts an entry, returning ErrDuplicate when the
// influencer is already watched by this user.
func (s *Store) AddToWatchlist(ctx context.Context, userID uuid.UUID, influencerID int64, notes string) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO watchlist (user_id, influencer_id, notes)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, influencer_id) DO NOTHING
		RETURNING id`, userID, influencerID, notes).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrDuplicate
	}
	return id, err
}

// RemoveFromWatchlist deletes an entry, scoped to the owning user.
func (s *Store) RemoveFromWatchlist(ctx context.Context, userID uuid.UUID, watchlistID int64) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM watchlist WHERE id = $1 AND user_id = $2`, watchlistID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ---- abuse reports

func (s *Store) CreateAbuseReport(ctx context.Context, r AbuseReport) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO abuse_report (reporter_id, report_type, reason, description, influencer_id, trade_call_id, ip_address, status)
		VALUES ($1, $2, $3, $4, NULLIF($5, 0), NULLIF($6, 0), NULLIF($7, ''), 'pending')
		RETURNING id`,
		r.ReporterID, r.ReportType, r.Reason, r.Description,
		r.InfluencerID, r.TradeCallID, r.IPAddress).Scan(&id)
	return id, err
}

// ---- submissions

func (s *Store) CreateSubmission(ctx context.Context, sub Submission) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO influencer_submission (submitted_by, platform, channel_name, author_name, url, follower_count, verified, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending')
		RETURNING id`,
		sub.SubmittedBy, sub.Platform, sub.ChannelName, sub.AuthorName,
		sub.URL, sub.Followers, sub.Verified).Scan(&id)
	return id, err
}

func (s *Store) PendingSubmissions(ctx context.Context) ([]Submission, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, submitted_by, platform, channel_name, COALESCE(author_name, ''),
		       url, follower_count, verified, status, auto_approved, approval_score, created_at
		FROM influencer_submission
		WHERE status = 'pending'
		ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []Submission
	for rows.Next() {
		var sub Submission
		if err := rows.Scan(&sub.ID, &sub.SubmittedBy, &sub.Platform, &sub.ChannelName,
			&sub.AuthorName, &sub.URL, &sub.Followers, &sub.Verified,
			&sub.Status, &sub.AutoApproved, &sub.ApprovalScore, &sub.CreatedAt); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func (s *Store) UpdateSubmissionDecision(ctx context.Context, id int64, status string, score int, autoApproved bool) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE influencer_submission
		SET status = $2, approval_score = $3, auto_approved = $4, reviewed_at = now()
		WHERE id = $1`, id, status, score, autoApproved)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// PromoteSubmission creates an influencer row from an approved
// submission.
func (s *Store) PromoteSubmission(ctx context.Context, sub Submission) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO influencer (channel_name, author_name, platform, url, follower_count, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING id`,
		sub.ChannelName, sub.AuthorName, sub.Platform, sub.URL, sub.Followers).Scan(&id)
	return id, err
}

// ---- aggregates

func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM influencer),
			(SELECT COUNT(*) FROM trade_call WHERE tracked),
			(SELECT COUNT(*) FROM trade_call WHERE tracked AND NOT COALESCE(done, false)),
			(SELECT COUNT(*) FROM trade_call WHERE tracked AND COALESCE(target_hit, false)),
			(SELECT COUNT(*) FROM trade_call WHERE tracked AND COALESCE(stoploss_hit, false)),
			(SELECT COUNT(*) FROM abuse_report WHERE status = 'pending')`).
		Scan(&st.TotalInfluencers, &st.TotalCalls, &st.ActiveCalls,
			&st.SuccessfulCalls, &st.FailedCalls, &st.PendingReports)
	return st, err
}
