package notify

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

// MailConfig holds the SMTP settings of the email channel.
type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	TLS      bool
}

// MailTransport sends plain text email. The recipient handle is the address.
type MailTransport struct {
	cfg MailConfig
}

func NewMailTransport(cfg MailConfig) *MailTransport {
	return &MailTransport{cfg: cfg}
}

func (t *MailTransport) Send(ctx context.Context, to Recipient, msg Message) error {
	if t.cfg.Host == "" || t.cfg.From == "" {
		return fmt.Errorf("smtp not configured")
	}
	if to.Handle == "" {
		return fmt.Errorf("user %d has no email address", to.UserID)
	}
	addr := net.JoinHostPort(t.cfg.Host, strconv.Itoa(t.cfg.Port))
	body := t.compose(to.Handle, msg)

	d := net.Dialer{Timeout: 5 * time.Second}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	deadline := time.Now().Add(15 * time.Second)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	_ = conn.SetDeadline(deadline)

	c, err := smtp.NewClient(conn, t.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer c.Close()
	if t.cfg.TLS {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(&tls.Config{ServerName: t.cfg.Host}); err != nil {
				return err
			}
		}
	}
	if t.cfg.Username != "" {
		if err := c.Auth(smtp.PlainAuth("", t.cfg.Username, t.cfg.Password, t.cfg.Host)); err != nil {
			return err
		}
	}
	if err := c.Mail(t.cfg.From); err != nil {
		return err
	}
	if err := c.Rcpt(to.Handle); err != nil {
		return err
	}
	wc, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := wc.Write([]byte(body)); err != nil {
		_ = wc.Close()
		return err
	}
	if err := wc.Close(); err != nil {
		return err
	}
	return c.Quit()
}

func (t *MailTransport) compose(to string, msg Message) string {
	fromName := t.cfg.FromName
	if fromName == "" {
		fromName = "CarePing"
	}
	headers := []struct{ k, v string }{
		{"From", fmt.Sprintf("%s <%s>", encodeHeader(fromName), t.cfg.From)},
		{"To", to},
		{"Subject", encodeHeader(msg.Title)},
		{"MIME-Version", "1.0"},
		{"Content-Type", "text/plain; charset=UTF-8"},
	}
	var b strings.Builder
	for _, h := range headers {
		fmt.Fprintf(&b, "%s: %s\r\n", h.k, h.v)
	}
	b.WriteString("\r\n")
	b.WriteString(msg.Body)
	return b.String()
}

// encodeHeader applies RFC 2047 B encoding when s is not plain ASCII.
func encodeHeader(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] >= 128 {
			return "=?UTF-8?B?" + base64.StdEncoding.EncodeToString([]byte(s)) + "?="
		}
	}
	return s
}
