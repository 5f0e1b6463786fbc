// Package mail delivers plain-text notification mails over SMTP, or to the log
// when no SMTP host is configured.
package mail

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"pickfast/internal/core/config"
)

type Message struct {
	From    string // defaults to the sender's configured address
	ReplyTo string
	To      []string
	Subject string
	Body    string
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, m Message) error
}

// New returns an SMTP mailer for c, or a log mailer when c.Host is empty.
func New(c config.Mail, l *zap.Logger) Mailer {
	if c.Host == "" {
		return NewLog(l)
	}
	return NewSMTP(c)
}

// SMTP sends through one dialer; every Send opens its own connection.
type SMTP struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTP(c config.Mail) *SMTP {
	return &SMTP{
		dialer: gomail.NewDialer(c.Host, c.Port, c.Username, c.Password),
		from:   c.From,
	}
}

func (s *SMTP) Send(ctx context.Context, m Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg, err := s.compose(m)
	if err != nil {
		return err
	}
	if err := s.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("smtp send %q to %s: %w", m.Subject, strings.Join(m.To, ","), err)
	}
	return nil
}

func (s *SMTP) compose(m Message) (*gomail.Message, error) {
	if len(m.To) == 0 {
		return nil, fmt.Errorf("mail %q has no recipients", m.Subject)
	}
	from := m.From
	if from == "" {
		from = s.from
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("To", m.To...)
	if m.ReplyTo != "" {
		msg.SetHeader("Reply-To", m.ReplyTo)
	}
	msg.SetHeader("Subject", m.Subject)
	msg.SetBody("text/plain", m.Body)
	return msg, nil
}

// Log writes messages to the logger instead of sending them.
type Log struct {
	log *zap.Logger
}

func NewLog(l *zap.Logger) *Log {
	if l == nil {
		l = zap.NewNop()
	}
	return &Log{log: l.Named("mail")}
}

func (s *Log) Send(_ context.Context, m Message) error {
	if len(m.To) == 0 {
		return fmt.Errorf("mail %q has no recipients", m.Subject)
	}
	s.log.Info("mail not sent, no smtp host",
		zap.Strings("to", m.To),
		zap.String("reply_to", m.ReplyTo),
		zap.String("subject", m.Subject),
		zap.String("body", m.Body),
	)
	return nil
}
