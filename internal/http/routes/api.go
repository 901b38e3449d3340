package routes

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/kolwatch/kolwatch/internal/jobs"
	"github.com/kolwatch/kolwatch/internal/rank"
	"github.com/kolwatch/kolwatch/internal/simulate"
	"github.com/kolwatch/kolwatch/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr emits the standard error envelope: a JSON object whose
// "error" field carries the message.
func writeErr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func toRankCalls(calls []store.TradeCall) []rank.Call {
	out := make([]rank.Call, 0, len(calls))
	for _, c := range calls {
		out = append(out, rank.Call{
			AssetType:  c.AssetType,
			AssetSym:   c.AssetSymbol,
			Signal:     c.Signal,
			Entry:      c.Entry,
			Stop:       c.Stop,
			Target:     c.TargetFirst,
			PostedAt:   c.PostedAt,
			ResolvedAt: c.ResolvedAt,
			TargetHit:  c.TargetHit,
			StopHit:    c.StopHit,
		})
	}
	return out
}

func queryInt(r *http.Request, key string, def int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get(key)); err == nil {
		return v
	}
	return def
}

// handleLeaderboard ranks influencers by accuracy over their resolved
// calls, paginated.
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	platform := r.URL.Query().Get("platform")
	category := r.URL.Query().Get("category")
	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "page_size", 20)

	influencers, err := s.Store.ListInfluencers(r.Context(), platform, category)
	if err != nil {
		s.Log.Error().Err(err).Msg("leaderboard query failed")
		writeErr(w, http.StatusInternalServerError, "could not load leaderboard")
		return
	}

	now := time.Now()
	rows := make([]rank.Row, 0, len(influencers))
	for _, inf := range influencers {
		calls, err := s.Store.CallsByInfluencer(r.Context(), inf.ID)
		if err != nil {
			s.Log.Error().Err(err).Int64("influencer", inf.ID).Msg("calls query failed")
			writeErr(w, http.StatusInternalServerError, "could not load leaderboard")
			return
		}
		if len(calls) == 0 {
			continue
		}
		rows = append(rows, rank.BuildRow(inf.ID, inf.ChannelName, inf.AuthorName, inf.Platform, toRankCalls(calls), now))
	}
	rank.SortRows(rows)

	writeJSON(w, http.StatusOK, map[string]any{
		"results":   rank.Paginate(rows, page, pageSize),
		"page":      page,
		"page_size": pageSize,
		"total":     len(rows),
	})
}

// handleTrending surfaces the influencers most active over the last
// week, ranked by recent call volume.
func (s *Server) handleTrending(w http.ResponseWriter, r *http.Request) {
	since := time.Now().AddDate(0, 0, -7)
	calls, err := s.Store.CallsSince(r.Context(), since)
	if err != nil {
		s.Log.Error().Err(err).Msg("trending query failed")
		writeErr(w, http.StatusInternalServerError, "could not load trending influencers")
		return
	}

	byInfluencer := map[int64][]store.TradeCall{}
	var order []int64
	for _, c := range calls {
		if _, seen := byInfluencer[c.InfluencerID]; !seen {
			order = append(order, c.InfluencerID)
		}
		byInfluencer[c.InfluencerID] = append(byInfluencer[c.InfluencerID], c)
	}

	now := time.Now()
	type trendingRow struct {
		rank.Row
		RecentCalls int `json:"recent_calls"`
	}
	rows := make([]trendingRow, 0, len(order))
	for _, id := range order {
		recent := byInfluencer[id]
		all, err := s.Store.CallsByInfluencer(r.Context(), id)
		if err != nil {
			s.Log.Error().Err(err).Int64("influencer", id).Msg("calls query failed")
			writeErr(w, http.StatusInternalServerError, "could not load trending influencers")
			return
		}
		name, platform := recent[0].InfluencerName, recent[0].Platform
		rows = append(rows, trendingRow{
			Row:         rank.BuildRow(id, name, name, platform, toRankCalls(all), now),
			RecentCalls: len(recent),
		})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].RecentCalls > rows[j].RecentCalls })
	if len(rows) > 10 {
		rows = rows[:10]
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": rows})
}

// handleTopSignals lists the newest resolved calls as signal cards,
// with the sign-styled return figure.
func (s *Server) handleTopSignals(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 12)
	if limit < 1 || limit > 50 {
		limit = 12
	}
	calls, err := s.Store.RecentResolvedCalls(r.Context(), limit)
	if err != nil {
		s.Log.Error().Err(err).Msg("top signals query failed")
		writeErr(w, http.StatusInternalServerError, "could not load signals")
		return
	}

	type signalCard struct {
		CallUUID    string  `json:"call_uuid"`
		Influencer  string  `json:"influencer"`
		Platform    string  `json:"platform"`
		Asset       string  `json:"asset"`
		AssetName   string  `json:"asset_name"`
		Signal      string  `json:"signal"`
		Entry       float64 `json:"entry"`
		Outcome     string  `json:"outcome"`
		ReturnLabel string  `json:"return_label"`
		ReturnTone  string  `json:"return_tone"`
		PostedAt    string  `json:"posted_at"`
	}
	cards := make([]signalCard, 0, len(calls))
	for _, c := range calls {
		outcome := "stop"
		exit := c.Stop
		if c.TargetHit {
			outcome = "target"
			exit = c.TargetFirst
		}
		var pct float64
		if c.Entry > 0 && exit > 0 {
			pct = (exit - c.Entry) / c.Entry * 100
		}
		label, tone := simulate.FormatReturn(pct)
		cards = append(cards, signalCard{
			CallUUID:    c.UUID,
			Influencer:  c.InfluencerName,
			Platform:    c.Platform,
			Asset:       c.AssetSymbol,
			AssetName:   c.AssetName,
			Signal:      c.Signal,
			Entry:       c.Entry,
			Outcome:     outcome,
			ReturnLabel: label,
			ReturnTone:  string(tone),
			PostedAt:    c.PostedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": cards})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	results, err := s.Store.SearchInfluencers(r.Context(),
		q.Get("q"), q.Get("platform"), q.Get("category"), queryInt(r, "limit", 20))
	if err != nil {
		s.Log.Error().Err(err).Msg("search failed")
		writeErr(w, http.StatusInternalServerError, "search failed")
		return
	}

	type searchRow struct {
		ID        int64   `json:"id"`
		Name      string  `json:"name"`
		Author    string  `json:"author"`
		Platform  string  `json:"platform"`
		URL       string  `json:"url"`
		Followers int64   `json:"followers"`
		Calls     int64   `json:"total_calls"`
		Accuracy  float64 `json:"accuracy"`
	}
	rows := make([]searchRow, 0, len(results))
	for _, inf := range results {
		var acc float64
		if resolved := inf.SuccessfulCalls + inf.FailedCalls; resolved > 0 {
			acc = float64(inf.SuccessfulCalls) / float64(resolved) * 100
		}
		rows = append(rows, searchRow{
			ID: inf.ID, Name: inf.ChannelName, Author: inf.AuthorName,
			Platform: inf.Platform, URL: inf.URL, Followers: inf.Followers,
			Calls: inf.TotalCalls, Accuracy: acc,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": rows})
}

// handleMiniProfile serves the hover-card payload. Responses carry a
// short max-age so client caching transports can reuse them.
func (s *Server) handleMiniProfile(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid influencer id")
		return
	}
	inf, err := s.Store.GetInfluencer(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeErr(w, http.StatusNotFound, "influencer not found")
		return
	}
	if err != nil {
		s.Log.Error().Err(err).Int64("influencer", id).Msg("mini-profile lookup failed")
		writeErr(w, http.StatusInternalServerError, "could not load profile")
		return
	}
	calls, err := s.Store.CallsByInfluencer(r.Context(), id)
	if err != nil {
		s.Log.Error().Err(err).Int64("influencer", id).Msg("mini-profile calls failed")
		writeErr(w, http.StatusInternalServerError, "could not load profile")
		return
	}

	row := rank.BuildRow(inf.ID, inf.ChannelName, inf.AuthorName, inf.Platform, toRankCalls(calls), time.Now())
	w.Header().Set("Cache-Control", "max-age=300")
	writeJSON(w, http.StatusOK, map[string]any{
		"id":               row.ID,
		"username":         row.Username,
		"display_name":     row.DisplayName,
		"platform":         row.Platform,
		"accuracy":         row.Accuracy,
		"total_calls":      row.TotalCalls,
		"confidence_score": row.Confidence,
		"category":         row.Category,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.Store.Stats(r.Context())
	if err != nil {
		s.Log.Error().Err(err).Msg("stats query failed")
		writeErr(w, http.StatusInternalServerError, "could not load stats")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total_influencers": st.TotalInfluencers,
		"total_calls":       st.TotalCalls,
		"active_calls":      st.ActiveCalls,
		"successful_calls":  st.SuccessfulCalls,
		"failed_calls":      st.FailedCalls,
		"pending_reports":   st.PendingReports,
	})
}

// handleSimulate replays an influencer's resolved calls against a
// hypothetical budget.
func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		InfluencerID int64   `json:"influencer_id"`
		Budget       float64 `json:"budget"`
		PeriodDays   int     `json:"period_days"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.InfluencerID == 0 {
		writeErr(w, http.StatusBadRequest, "influencer_id required")
		return
	}
	if req.Budget <= 0 {
		req.Budget = 1000
	}
	if req.PeriodDays <= 0 {
		req.PeriodDays = 90
	}

	calls, err := s.Store.CallsByInfluencer(r.Context(), req.InfluencerID)
	if err != nil {
		s.Log.Error().Err(err).Int64("influencer", req.InfluencerID).Msg("simulate query failed")
		writeErr(w, http.StatusInternalServerError, "could not load call history")
		return
	}

	cutoff := time.Now().AddDate(0, 0, -req.PeriodDays)
	var simCalls []simulate.Call
	for _, c := range calls {
		if !c.Resolved || c.PostedAt.Before(cutoff) {
			continue
		}
		simCalls = append(simCalls, simulate.Call{
			At: c.PostedAt, Asset: c.AssetSymbol, Signal: c.Signal,
			Entry: c.Entry, Target: c.TargetFirst, Stop: c.Stop,
			TargetHit: c.TargetHit, StopHit: c.StopHit,
		})
	}

	res, err := simulate.Run(req.Budget, simCalls)
	if errors.Is(err, simulate.ErrNoHistory) {
		writeErr(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}

	label, tone := simulate.FormatReturn(res.TotalReturnPct)
	writeJSON(w, http.StatusOK, map[string]any{
		"simulation":   res,
		"budget":       req.Budget,
		"period_days":  req.PeriodDays,
		"return_label": label,
		"return_tone":  tone,
	})
}

// ---- watchlist

func (s *Server) handleWatchlistGet(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.sessionUser(r)
	if !ok {
		writeErr(w, http.StatusUnauthorized, "authentication required")
		return
	}
	items, err := s.Store.Watchlist(r.Context(), uid)
	if err != nil {
		s.Log.Error().Err(err).Msg("watchlist query failed")
		writeErr(w, http.StatusInternalServerError, "could not load watchlist")
		return
	}

	type watchRow struct {
		ID         int64  `json:"id"`
		Influencer int64  `json:"influencer_id"`
		Name       string `json:"name"`
		Platform   string `json:"platform"`
		Notes      string `json:"notes"`
		AddedAt    string `json:"added_at"`
	}
	rows := make([]watchRow, 0, len(items))
	for _, it := range items {
		rows = append(rows, watchRow{
			ID: it.ID, Influencer: it.Influencer.ID, Name: it.Influencer.ChannelName,
			Platform: it.Influencer.Platform, Notes: it.Notes,
			AddedAt: it.AddedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": rows})
}

func (s *Server) handleWatchlistAdd(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.sessionUser(r)
	if !ok {
		writeErr(w, http.StatusUnauthorized, "authentication required")
		return
	}
	var req struct {
		InfluencerID int64  `json:"influencer_id"`
		Notes        string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.InfluencerID == 0 {
		writeErr(w, http.StatusBadRequest, "influencer_id required")
		return
	}
	id, err := s.Store.AddToWatchlist(r.Context(), uid, req.InfluencerID, req.Notes)
	if errors.Is(err, store.ErrDuplicate) {
		writeErr(w, http.StatusConflict, "influencer already on watchlist")
		return
	}
	if err != nil {
		s.Log.Error().Err(err).Msg("watchlist add failed")
		writeErr(w, http.StatusInternalServerError, "could not add to watchlist")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (s *Server) handleWatchlistRemove(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.sessionUser(r)
	if !ok {
		writeErr(w, http.StatusUnauthorized, "authentication required")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid watchlist id")
		return
	}
	if err := s.Store.RemoveFromWatchlist(r.Context(), uid, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, http.StatusNotFound, "watchlist entry not found")
			return
		}
		s.Log.Error().Err(err).Msg("watchlist remove failed")
		writeErr(w, http.StatusInternalServerError, "could not remove from watchlist")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

// ---- abuse reports

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.sessionUser(r)
	if !ok {
		writeErr(w, http.StatusUnauthorized, "authentication required")
		return
	}
	var req struct {
		ReportType   string `json:"report_type"`
		Reason       string `json:"reason"`
		Description  string `json:"description"`
		InfluencerID int64  `json:"influencer_id"`
		TradeCallID  int64  `json:"trade_call_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ReportType != "call" && req.ReportType != "profile" {
		writeErr(w, http.StatusBadRequest, "report_type must be call or profile")
		return
	}
	if req.Reason == "" {
		writeErr(w, http.StatusBadRequest, "reason required")
		return
	}
	if req.ReportType == "call" && req.TradeCallID == 0 {
		writeErr(w, http.StatusBadRequest, "trade_call_id required for call reports")
		return
	}
	if req.ReportType == "profile" && req.InfluencerID == 0 {
		writeErr(w, http.StatusBadRequest, "influencer_id required for profile reports")
		return
	}

	id, err := s.Store.CreateAbuseReport(r.Context(), store.AbuseReport{
		ReporterID:   uid,
		ReportType:   req.ReportType,
		Reason:       req.Reason,
		Description:  req.Description,
		InfluencerID: req.InfluencerID,
		TradeCallID:  req.TradeCallID,
		IPAddress:    r.RemoteAddr,
	})
	if err != nil {
		s.Log.Error().Err(err).Msg("abuse report create failed")
		writeErr(w, http.StatusInternalServerError, "could not file report")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id, "status": "pending"})
}

// ---- submissions

func (s *Server) handleSubmission(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.sessionUser(r)
	if !ok {
		writeErr(w, http.StatusUnauthorized, "authentication required")
		return
	}
	var req struct {
		Platform    string `json:"platform"`
		ChannelName string `json:"channel_name"`
		AuthorName  string `json:"author_name"`
		URL         string `json:"url"`
		Followers   int64  `json:"followers"`
		Verified    bool   `json:"verified"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Platform == "" || req.ChannelName == "" || req.URL == "" {
		writeErr(w, http.StatusBadRequest, "platform, channel_name and url required")
		return
	}

	id, err := s.Store.CreateSubmission(r.Context(), store.Submission{
		SubmittedBy: uid,
		Platform:    req.Platform,
		ChannelName: req.ChannelName,
		AuthorName:  req.AuthorName,
		URL:         req.URL,
		Followers:   req.Followers,
		Verified:    req.Verified,
	})
	if err != nil {
		s.Log.Error().Err(err).Msg("submission create failed")
		writeErr(w, http.StatusInternalServerError, "could not create submission")
		return
	}

	payload, _ := json.Marshal(jobs.ProcessApprovalsPayload{SubmissionID: id})
	if err := s.Enqueue(jobs.TaskProcessApprovals, payload); err != nil {
		s.Log.Error().Err(err).Msg("approvals enqueue failed")
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id, "status": "pending"})
}

// handleRefresh queues a resolution sweep over open calls.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	payload, _ := json.Marshal(jobs.ResolveCallsPayload{})
	if err := s.Enqueue(jobs.TaskResolveCalls, payload); err != nil {
		s.Log.Error().Err(err).Msg("resolve enqueue failed")
		writeErr(w, http.StatusInternalServerError, "could not queue refresh")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"queued": true})
}

func (s *Server) enqueueAsynq(taskName string, payload []byte) error {
	client := asynq.NewClient(asynq.RedisClientOpt{Addr: s.RedisAddr})
	defer func() {
		if err := client.Close(); err != nil {
			s.Log.Error().Err(err).Msg("asynq client close failed")
		}
	}()
	info, err := client.Enqueue(asynq.NewTask(taskName, payload),
		asynq.Queue("background"),
		asynq.MaxRetry(3),
		asynq.Timeout(5*time.Minute),
	)
	if err != nil {
		return err
	}
	s.Log.Info().Str("task", taskName).Str("id", info.ID).Str("queue", info.Queue).Msg("task enqueued")
	return nil
}
