package notify

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strings"
	"time"

	"backoffice/internal/models"
	"backoffice/internal/util"

	"go.uber.org/zap"
)

// Mailer delivers a rendered confirmation mail
type Mailer interface {
	Send(ctx context.Context, mail *models.EmailConfirmationRequestedEvent) error
}

// LogMailer logs mails instead of delivering them
type LogMailer struct {
	logger *zap.Logger
}

func NewLogMailer() *LogMailer {
	return &LogMailer{logger: util.GetLogger()}
}

func (m *LogMailer) Send(ctx context.Context, mail *models.EmailConfirmationRequestedEvent) error {
	m.logger.Info("Mail delivery skipped, no SMTP host configured",
		zap.String("to", mail.To),
		zap.String("subject", mail.Subject),
		zap.String("event_id", mail.EventID))
	return nil
}

// SMTPConfig addresses the outgoing mail server
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer sends mails through an SMTP relay with PLAIN auth
type SMTPMailer struct {
	cfg    SMTPConfig
	send   sendFunc
	logger *zap.Logger
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{
		cfg:    cfg,
		send:   smtp.SendMail,
		logger: util.GetLogger(),
	}
}

func (m *SMTPMailer) Send(ctx context.Context, mail *models.EmailConfirmationRequestedEvent) (err error) {
	_, span := util.StartSpan(ctx, "SMTPMailer.Send")
	defer func() { util.EndSpan(span, err) }()

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	addr := net.JoinHostPort(m.cfg.Host, m.cfg.Port)
	if err = m.send(addr, auth, mail.From, []string{mail.To}, renderMessage(mail, time.Now())); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", mail.To, err)
	}

	m.logger.Info("Confirmation mail sent", zap.String("to", mail.To), zap.String("event_id", mail.EventID))
	return nil
}

// renderMessage builds a multipart/alternative message with the text and
// html bodies
func renderMessage(mail *models.EmailConfirmationRequestedEvent, now time.Time) []byte {
	const boundary = "backoffice-alt-boundary"

	var b bytes.Buffer
	header := func(k, v string) {
		b.WriteString(k + ": " + v + "\r\n")
	}

	header("From", mail.From)
	header("To", mail.To)
	header("Subject", mime.QEncoding.Encode("utf-8", mail.Subject))
	header("Date", now.Format(time.RFC1123Z))
	header("MIME-Version", "1.0")
	header("Content-Type", `multipart/alternative; boundary="`+boundary+`"`)
	b.WriteString("\r\n")

	part := func(contentType, body string) {
		b.WriteString("--" + boundary + "\r\n")
		header("Content-Type", contentType+"; charset=UTF-8")
		b.WriteString("\r\n")
		b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
		b.WriteString("\r\n")
	}

	part("text/plain", mail.Text)
	part("text/html", mail.HTML)
	b.WriteString("--" + boundary + "--\r\n")

	return b.Bytes()
}
