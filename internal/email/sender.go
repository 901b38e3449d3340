// Package email delivers transactional mail: sign-in links and
// submission decisions.
package email

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog/log"
)

type Sender interface {
	Send(to, subject, html string) error
}

// StdoutSender logs mail instead of delivering it. Used in development
// when no SMTP host is configured.
type StdoutSender struct{}

func (StdoutSender) Send(to, subject, html string) error {
	log.Info().Str("to", to).Str("subject", subject).Msg("email (stdout)")
	log.Debug().Msg(html)
	return nil
}

// SMTPSender delivers over plain SMTP. Pointed at MailHog in
// development.
type SMTPSender struct {
	Addr string
	From string
}

func NewSMTPSender(addr, from string) *SMTPSender {
	if addr == "" {
		addr = "localhost:1025"
	}
	if from == "" {
		from = "no-reply@kolwatch.local"
	}
	return &SMTPSender{Addr: addr, From: from}
}

func (s *SMTPSender) Send(to, subject, html string) error {
	if strings.TrimSpace(to) == "" {
		return fmt.Errorf("empty recipient")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.From)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(html)
	return smtp.SendMail(s.Addr, nil, s.From, []string{to}, []byte(b.String()))
}
