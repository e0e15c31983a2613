// Package mailer sends the approval email at submit time and the 7-day and
// 30-day follow-ups from the executor loop. Delivery is plain SMTP with
// STARTTLS, IPv4 preferred, and short socket timeouts so a wedged relay
// cannot stall a tick.
package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"time"

	"music-brief-scheduler/pkg/config"
	apperrors "music-brief-scheduler/pkg/errors"
	"music-brief-scheduler/pkg/logging"
)

const (
	dialTimeout   = 10 * time.Second
	socketTimeout = 15 * time.Second
)

// Sender is the delivery interface; tests substitute a recorder.
type Sender interface {
	SendApproval(ctx context.Context, data ApprovalEmail) error
	SendFollowUp(ctx context.Context, data FollowUpEmail) error
}

// Mailer is the SMTP-backed Sender.
type Mailer struct {
	host     string
	port     string
	user     string
	password string
	from     string
	log      *logging.ComponentLogger
}

var _ Sender = (*Mailer)(nil)

func New(cfg *config.Config, log *logging.Logger) *Mailer {
	return &Mailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		from:     cfg.SMTPUser,
		log:      log.WithComponent("mailer"),
	}
}

// Configured reports whether SMTP credentials are present.
func (m *Mailer) Configured() bool { return m.user != "" && m.password != "" }

// SendApproval renders and delivers the internal approval email.
func (m *Mailer) SendApproval(ctx context.Context, data ApprovalEmail) error {
	var body bytes.Buffer
	if err := approvalTmpl.Execute(&body, data); err != nil {
		return apperrors.NewExternal("mailer.SendApproval", "smtp", "render template", err)
	}
	subject := fmt.Sprintf("Music brief #%d — %s", data.BriefID, data.VenueName)
	return m.send(ctx, data.To, subject, body.String())
}

// SendFollowUp renders and delivers a 7-day or 30-day check-in.
func (m *Mailer) SendFollowUp(ctx context.Context, data FollowUpEmail) error {
	var body bytes.Buffer
	if err := followUpTmpl.Execute(&body, data); err != nil {
		return apperrors.NewExternal("mailer.SendFollowUp", "smtp", "render template", err)
	}
	return m.send(ctx, data.To, data.Subject, body.String())
}

func (m *Mailer) send(ctx context.Context, to, subject, htmlBody string) error {
	if !m.Configured() {
		return apperrors.NewExternal("mailer.send", "smtp", "SMTP not configured", nil)
	}

	msg := buildMessage(m.from, to, subject, htmlBody)

	conn, err := m.dial(ctx)
	if err != nil {
		return apperrors.NewExternal("mailer.send", "smtp", "connect", err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(socketTimeout))

	client, err := smtp.NewClient(conn, m.host)
	if err != nil {
		return apperrors.NewExternal("mailer.send", "smtp", "greeting", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		tlsConfig := &tls.Config{ServerName: m.host, MinVersion: tls.VersionTLS12}
		if err := client.StartTLS(tlsConfig); err != nil {
			return apperrors.NewExternal("mailer.send", "smtp", "starttls", err)
		}
	}

	auth := smtp.PlainAuth("", m.user, m.password, m.host)
	if err := client.Auth(auth); err != nil {
		return apperrors.NewExternal("mailer.send", "smtp", "auth", err)
	}
	if err := client.Mail(m.from); err != nil {
		return apperrors.NewExternal("mailer.send", "smtp", "mail from", err)
	}
	if err := client.Rcpt(to); err != nil {
		return apperrors.NewExternal("mailer.send", "smtp", "rcpt to", err)
	}
	w, err := client.Data()
	if err != nil {
		return apperrors.NewExternal("mailer.send", "smtp", "data", err)
	}
	if _, err := w.Write([]byte(msg)); err != nil {
		return apperrors.NewExternal("mailer.send", "smtp", "write body", err)
	}
	if err := w.Close(); err != nil {
		return apperrors.NewExternal("mailer.send", "smtp", "close body", err)
	}
	// Quit failures after a delivered body are not worth surfacing.
	_ = client.Quit()

	m.log.Info("email sent", logging.String("to", to), logging.String("subject", subject))
	return nil
}

// dial prefers an IPv4 address for the relay; some hosts publish AAAA
// records but reject IPv6 submission.
func (m *Mailer) dial(ctx context.Context) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: dialTimeout}
	addr := net.JoinHostPort(m.host, m.port)

	ips, err := net.DefaultResolver.LookupIP(ctx, "ip4", m.host)
	if err == nil && len(ips) > 0 {
		if conn, err := dialer.DialContext(ctx, "tcp4",
			net.JoinHostPort(ips[0].String(), m.port)); err == nil {
			return conn, nil
		}
	}
	return dialer.DialContext(ctx, "tcp", addr)
}

func buildMessage(from, to, subject, htmlBody string) string {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: BMAsia Music <%s>\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	b.WriteString("\r\n")
	return b.String()
}
