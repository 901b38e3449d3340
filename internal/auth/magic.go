// Package auth implements the passwordless sign-in tokens used by the
// dashboard: an HMAC-signed login claim carried in the emailed link.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// tokenAudience pins tokens to the login flow so a signed blob minted
// for one purpose can never be replayed for another.
const tokenAudience = "kol-login"

type MagicLink struct {
	Secret  []byte
	BaseURL string
}

var (
	ErrBadToken   = errors.New("bad token")
	ErrBadSig     = errors.New("invalid signature")
	ErrExpired    = errors.New("expired")
	ErrBadPayload = errors.New("bad payload")
)

// Sign issues a token for the given email, valid until exp. The token
// is payload.signature, both raw URL-safe base64.
func (m MagicLink) Sign(email string, exp time.Time) string {
	claim := fmt.Sprintf("%s|%s|%d", tokenAudience, email, exp.Unix())
	sig := m.mac(claim)
	return base64.RawURLEncoding.EncodeToString([]byte(claim)) + "." + sig
}

// Verify checks the signature, audience and expiry and returns the
// email the token was issued for.
func (m MagicLink) Verify(token string) (string, error) {
	payload, sig, ok := strings.Cut(token, ".")
	if !ok {
		return "", ErrBadToken
	}
	raw, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return "", ErrBadToken
	}

	if !hmac.Equal([]byte(m.mac(string(raw))), []byte(sig)) {
		return "", ErrBadSig
	}

	fields := strings.SplitN(string(raw), "|", 3)
	if len(fields) != 3 || fields[0] != tokenAudience {
		return "", ErrBadPayload
	}
	email := strings.TrimSpace(fields[1])
	ts, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil || email == "" {
		return "", ErrBadPayload
	}
	if time.Now().After(time.Unix(ts, 0)) {
		return "", ErrExpired
	}
	return email, nil
}

// URL builds the full sign-in link pointing at the auth callback.
func (m MagicLink) URL(email string, ttl time.Duration) string {
	tok := m.Sign(email, time.Now().Add(ttl))
	u, _ := url.Parse(m.BaseURL)
	u.Path = "/auth/callback"
	q := u.Query()
	q.Set("token", tok)
	u.RawQuery = q.Encode()
	return u.String()
}

func (m MagicLink) mac(msg string) string {
	h := hmac.New(sha256.New, m.Secret)
	h.Write([]byte(msg))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}
