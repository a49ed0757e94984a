// Package mailer は通知メールの組み立てと送信を提供します。
package mailer

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"
)

// Message は送信する1通のメールです。
type Message struct {
	To       string
	Subject  string
	HTMLBody string
}

// Config はSMTP接続の設定です。
type Config struct {
	Host     string
	Port     string
	User     string
	Pass     string
	From     string
	FromName string
}

const sendTimeout = 15 * time.Second

// Mailer はSMTP経由でメールを送信します。
type Mailer struct {
	cfg Config
}

// New は Mailer を作成します。
func New(cfg Config) *Mailer {
	return &Mailer{cfg: cfg}
}

// Enabled は送信に必要な設定が揃っているかを返します。
func (m *Mailer) Enabled() bool {
	return m.cfg.Host != "" && m.cfg.From != ""
}

// Send はメールを1通送信します。接続と送信には上限時間を設けます。
func (m *Mailer) Send(ctx context.Context, msg Message) error {
	if !m.Enabled() {
		return fmt.Errorf("smtp is not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	addr := net.JoinHostPort(m.cfg.Host, m.cfg.Port)
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to smtp server: %w", err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create smtp client: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(nil); err != nil {
			return fmt.Errorf("starttls failed: %w", err)
		}
	}
	if m.cfg.User != "" {
		auth := smtp.PlainAuth("", m.cfg.User, m.cfg.Pass, m.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth failed: %w", err)
		}
	}

	if err := client.Mail(m.cfg.From); err != nil {
		return err
	}
	if err := client.Rcpt(msg.To); err != nil {
		return err
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(m.render(msg)); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

func (m *Mailer) render(msg Message) []byte {
	headers := []string{
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=UTF-8",
		fmt.Sprintf("From: %s <%s>", m.cfg.FromName, m.cfg.From),
		"Reply-To: " + m.cfg.From,
		"To: " + msg.To,
		"Subject: " + msg.Subject,
	}
	return []byte(strings.Join(headers, "\r\n") + "\r\n\r\n" + msg.HTMLBody + "\r\n")
}
