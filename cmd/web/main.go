// cmd/web/main.go
package main

import (
	"context"
	"html/template"
	"net/http"
	"os"
	"time"

	scs "github.com/alexedwards/scs/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/kolwatch/kolwatch/internal/auth"
	"github.com/kolwatch/kolwatch/internal/config"
	"github.com/kolwatch/kolwatch/internal/email"
	"github.com/kolwatch/kolwatch/internal/http/routes"
	"github.com/kolwatch/kolwatch/internal/simulate"
	"github.com/kolwatch/kolwatch/internal/store"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("config error")
	}
	logger.Info().Str("port", cfg.Port).Msg("starting web server")

	// DB
	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("db error")
	}
	defer pool.Close()
	st := store.New(pool)

	// Sessions
	sess := scs.New()
	sess.Lifetime = 12 * time.Hour
	sess.Cookie.HttpOnly = true
	sess.Cookie.SameSite = http.SameSiteLaxMode
	sess.Cookie.Secure = false

	// Templates with formatting helpers
	funcMap := template.FuncMap{
		"divf": func(a, b float64) float64 { return a / b },
		"pct": func(v float64) string {
			label, _ := simulate.FormatReturn(v)
			return label
		},
		"tone": func(v float64) string {
			_, tone := simulate.FormatReturn(v)
			return string(tone)
		},
	}
	tmpl := template.Must(template.New("").Funcs(funcMap).ParseGlob("web/templates/*.tmpl"))

	// Magic link helper
	ml := auth.MagicLink{
		Secret:  []byte(cfg.AppSecret),
		BaseURL: cfg.BaseURL,
	}

	// Mail sender (MailHog on localhost:1025 in development)
	sender := email.NewSMTPSender("localhost:1025", "no-reply@kolwatch.local")

	s := routes.New(routes.ServerOptions{
		Sess:  sess,
		Tmpl:  tmpl,
		Store: st,
		Magic: ml,
		Cfg:   cfg,
		Email: sender,
		Log:   logger,
	})
	h := hlog.NewHandler(logger)(s.Router)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: sess.LoadAndSave(h)}
	logger.Fatal().Err(srv.ListenAndServe()).Msg("server stopped")
}
