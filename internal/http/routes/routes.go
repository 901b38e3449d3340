// Package routes wires the dashboard's HTTP surface: session auth
// (magic links + Google OAuth), the server-rendered pages the
// navigation router swaps between, and the JSON API.
package routes

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	scs "github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/kolwatch/kolwatch/internal/auth"
	"github.com/kolwatch/kolwatch/internal/config"
	"github.com/kolwatch/kolwatch/internal/email"
	appmw "github.com/kolwatch/kolwatch/internal/http/middleware"
	"github.com/kolwatch/kolwatch/internal/store"
)

// Store is the data-layer surface the handlers need. *store.Store
// satisfies it; tests substitute a fake.
type Store interface {
	CallsByInfluencer(ctx context.Context, influencerID int64) ([]store.TradeCall, error)
	CallsSince(ctx context.Context, since time.Time) ([]store.TradeCall, error)
	RecentResolvedCalls(ctx context.Context, limit int) ([]store.TradeCall, error)
	GetInfluencer(ctx context.Context, id int64) (store.Influencer, error)
	ListInfluencers(ctx context.Context, platform, category string) ([]store.Influencer, error)
	SearchInfluencers(ctx context.Context, query, platform, category string, limit int) ([]store.Influencer, error)
	UpsertUserByEmail(ctx context.Context, email, name string) (store.User, error)
	GetUserByEmail(ctx context.Context, email string) (store.User, error)
	Watchlist(ctx context.Context, userID uuid.UUID) ([]store.WatchlistItem, error)
	AddToWatchlist(ctx context.Context, userID uuid.UUID, influencerID int64, notes string) (int64, error)
	RemoveFromWatchlist(ctx context.Context, userID uuid.UUID, watchlistID int64) error
	CreateAbuseReport(ctx context.Context, r store.AbuseReport) (int64, error)
	CreateSubmission(ctx context.Context, sub store.Submission) (int64, error)
	Stats(ctx context.Context) (store.Stats, error)
}

type Server struct {
	Router      *chi.Mux
	Sess        *scs.SessionManager
	Tmpl        *template.Template
	Store       Store
	Magic       auth.MagicLink
	BaseURL     string
	GoogleConf  *oauth2.Config
	StateSecret string // for signing oauth2 state param
	RedisAddr   string
	Email       email.Sender
	Log         zerolog.Logger

	// Enqueue submits a background task by name. Defaults to an asynq
	// client against RedisAddr; tests replace it.
	Enqueue func(taskName string, payload []byte) error
}

type ServerOptions struct {
	Sess  *scs.SessionManager
	Tmpl  *template.Template
	Store Store
	Magic auth.MagicLink
	Cfg   config.Config
	Email email.Sender
	Log   zerolog.Logger
}

func New(opts ServerOptions) *Server {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	s := &Server{
		Router:      r,
		Sess:        opts.Sess,
		Tmpl:        opts.Tmpl,
		Store:       opts.Store,
		Magic:       opts.Magic,
		BaseURL:     opts.Cfg.BaseURL,
		StateSecret: opts.Cfg.AppSecret,
		RedisAddr:   opts.Cfg.RedisAddr,
		Email:       opts.Email,
		Log:         opts.Log,
	}
	if opts.Cfg.HasGoogle() {
		s.GoogleConf = &oauth2.Config{
			ClientID:     opts.Cfg.Google.ClientID,
			ClientSecret: opts.Cfg.Google.ClientSecret,
			RedirectURL:  opts.Cfg.BaseURL + "/oauth/google/callback",
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://accounts.google.com/o/oauth2/auth",
				TokenURL: "https://oauth2.googleapis.com/token",
			},
		}
	}
	s.Enqueue = s.enqueueAsynq

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir("web/static"))))

	r.Get("/", s.handleHome)
	r.Get("/login", s.handleLogin)
	r.Post("/auth/magic-link", s.handleMagicLink)
	r.Get("/auth/callback", s.handleCallback)
	r.Get("/oauth/google/start", s.handleGoogleStart)
	r.Get("/oauth/google/callback", s.handleGoogleCallback)
	r.Get("/logout", s.handleLogout)

	// Dashboard pages, each carrying the .page-content container the
	// client-side router swaps.
	r.Group(func(pr chi.Router) {
		pr.Use(s.sessionToContext)
		pr.Use(appmw.RequireAuth)
		pr.Get("/dashboard", s.page("home", "Dashboard"))
		pr.Get("/dashboard/leaderboard", s.page("leaderboard", "Leaderboard"))
		pr.Get("/dashboard/trending-kols", s.page("trending", "Trending KOLs"))
		pr.Get("/dashboard/analytics", s.page("analytics", "Analytics"))
		pr.Get("/dashboard/signals", s.page("signals", "Signals"))
		pr.Get("/dashboard/search", s.page("search", "Search"))
		pr.Get("/dashboard/watchlist", s.handleWatchlistPage)
		pr.Get("/dashboard/settings", s.page("settings", "Settings"))
	})

	// JSON API. Read endpoints are public; anything writing on behalf
	// of a user sits behind the session.
	r.Route("/api", func(ar chi.Router) {
		ar.Use(s.sessionToContext)
		ar.Get("/leaderboard", s.handleLeaderboard)
		ar.Get("/trending-kols", s.handleTrending)
		ar.Get("/top-signals", s.handleTopSignals)
		ar.Get("/search", s.handleSearch)
		ar.Get("/influencer/{id}/mini-profile", s.handleMiniProfile)
		ar.Get("/dashboard/stats", s.handleStats)
		ar.Post("/simulate", s.handleSimulate)

		ar.Group(func(par chi.Router) {
			par.Use(appmw.RequireAuthJSON)
			par.Get("/watchlist", s.handleWatchlistGet)
			par.Post("/watchlist", s.handleWatchlistAdd)
			par.Delete("/watchlist/{id}", s.handleWatchlistRemove)
			par.Post("/report", s.handleReport)
			par.Post("/submissions", s.handleSubmission)
			par.Post("/refresh", s.handleRefresh)
		})
	})

	return s
}

func (s *Server) sessionToContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := s.Sess.GetString(r.Context(), "user_id"); id != "" {
			// use the SAME key that RequireAuth checks
			r = r.WithContext(context.WithValue(r.Context(), appmw.UserIDKey, id))
		}
		next.ServeHTTP(w, r)
	})
}

// sessionUser returns the authenticated user's id. The auth middleware
// guarantees the value exists on protected routes.
func (s *Server) sessionUser(r *http.Request) (uuid.UUID, bool) {
	id, _ := r.Context().Value(appmw.UserIDKey).(string)
	uid, err := uuid.Parse(id)
	return uid, err == nil
}

// isPartial reports whether the request came from the client-side
// router, which only needs the content fragment.
func isPartial(r *http.Request) bool {
	return r.Header.Get("X-Requested-With") == "XMLHttpRequest"
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data map[string]any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	tmpl := name
	if isPartial(r) {
		tmpl = name + "_content"
	}
	if err := s.Tmpl.ExecuteTemplate(w, tmpl, data); err != nil {
		s.Log.Error().Err(err).Str("template", tmpl).Msg("render failed")
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// page builds a handler for a template-only dashboard page.
func (s *Server) page(name, title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, r, name, map[string]any{"Title": title})
	}
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	if s.Sess.GetString(r.Context(), "user_id") != "" {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "login", map[string]any{
		"Title":     "Login",
		"HasGoogle": s.GoogleConf != nil,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.Sess.Remove(r.Context(), "user_id")
	if err := s.Sess.RenewToken(r.Context()); err != nil {
		s.Log.Error().Err(err).Msg("session renew on logout failed")
	}
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (s *Server) handleWatchlistPage(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.sessionUser(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	items, err := s.Store.Watchlist(r.Context(), uid)
	if err != nil {
		s.Log.Error().Err(err).Msg("watchlist page load failed")
		http.Error(w, "could not load watchlist", http.StatusInternalServerError)
		return
	}
	s.render(w, r, "watchlist", map[string]any{"Title": "Watchlist", "Items": items})
}

// ---- Magic link flow

func (s *Server) handleMagicLink(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	emailAddr := strings.TrimSpace(r.Form.Get("email"))
	if emailAddr == "" {
		http.Error(w, "email required", http.StatusBadRequest)
		return
	}

	// Upsert the account so the callback can find it.
	if _, err := s.Store.UpsertUserByEmail(r.Context(), emailAddr, ""); err != nil {
		s.Log.Error().Err(err).Str("email", emailAddr).Msg("issue link failed")
		http.Error(w, "could not issue link", http.StatusInternalServerError)
		return
	}
	link := s.Magic.URL(emailAddr, 2*time.Hour)

	if s.Email != nil {
		html := "<p>Click the link below to sign in:</p><p><a href=\"" + link + "\">Sign in</a></p>"
		if err := s.Email.Send(emailAddr, "Your KOL Watch sign-in link", html); err != nil {
			s.Log.Error().Err(err).Str("email", emailAddr).Msg("magic link email failed")
		}
	}

	s.Log.Info().Str("email", emailAddr).Msg("magic link issued")
	s.render(w, r, "magic_sent", map[string]any{
		"Title": "Check your inbox", "Email": emailAddr,
	})
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	tok := r.URL.Query().Get("token")
	if un, err := url.QueryUnescape(tok); err == nil {
		tok = un
	}

	emailAddr, err := s.Magic.Verify(tok)
	if err != nil {
		s.Log.Warn().Err(err).Msg("magic link verify failed")
		http.Error(w, "invalid or expired token", http.StatusUnauthorized)
		return
	}
	u, err := s.Store.GetUserByEmail(r.Context(), emailAddr)
	if err != nil {
		s.Log.Error().Err(err).Str("email", emailAddr).Msg("user lookup failed")
		http.Error(w, "invalid or expired token", http.StatusUnauthorized)
		return
	}
	s.Sess.Put(r.Context(), "user_id", u.ID.String())
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

// ---- Google OAuth flow

func (s *Server) handleGoogleStart(w http.ResponseWriter, r *http.Request) {
	if s.GoogleConf == nil {
		http.Error(w, "google login not configured", http.StatusNotFound)
		return
	}
	state := s.signState("/dashboard", time.Now().Add(30*time.Minute))
	http.Redirect(w, r, s.GoogleConf.AuthCodeURL(state), http.StatusFound)
}

func (s *Server) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	if s.GoogleConf == nil {
		http.Error(w, "google login not configured", http.StatusNotFound)
		return
	}
	dest, ok := s.verifyState(r.URL.Query().Get("state"))
	if !ok {
		http.Error(w, "invalid state", http.StatusBadRequest)
		return
	}

	tok, err := s.GoogleConf.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		s.Log.Error().Err(err).Msg("google token exchange failed")
		http.Error(w, "could not exchange token", http.StatusInternalServerError)
		return
	}

	emailAddr, name, err := fetchGoogleIdentity(r.Context(), tok.AccessToken)
	if err != nil {
		s.Log.Error().Err(err).Msg("google userinfo failed")
		http.Error(w, "could not load profile", http.StatusInternalServerError)
		return
	}

	u, err := s.Store.UpsertUserByEmail(r.Context(), emailAddr, name)
	if err != nil {
		s.Log.Error().Err(err).Str("email", emailAddr).Msg("user upsert failed")
		http.Error(w, "could not sign in", http.StatusInternalServerError)
		return
	}
	s.Sess.Put(r.Context(), "user_id", u.ID.String())
	http.Redirect(w, r, dest, http.StatusFound)
}

func fetchGoogleIdentity(ctx context.Context, accessToken string) (emailAddr, name string, err error) {
	req, err := http.NewRequestWithContext(ctx, "GET", "https://www.googleapis.com/oauth2/v2/userinfo", nil)
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close() //nolint:errcheck
	var info struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", "", err
	}
	return info.Email, info.Name, nil
}

func (s *Server) signState(dest string, exp time.Time) string {
	msg := dest + "|" + strconv.FormatInt(exp.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(s.StateSecret))
	mac.Write([]byte(msg))
	sig := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	pl := base64.RawURLEncoding.EncodeToString([]byte(msg))
	return pl + "." + sig
}

func (s *Server) verifyState(state string) (dest string, ok bool) {
	parts := strings.SplitN(state, ".", 2)
	if len(parts) != 2 {
		return
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return
	}

	mac := hmac.New(sha256.New, []byte(s.StateSecret))
	mac.Write(payload)

	expected := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(parts[1])) {
		return
	}

	fields := strings.SplitN(string(payload), "|", 2)
	if len(fields) != 2 {
		return
	}

	dest = fields[0]
	expUnix, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return
	}

	if time.Now().After(time.Unix(expUnix, 0)) {
		return
	}

	ok = true
	return
}
