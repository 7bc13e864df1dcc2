package notify

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"backoffice/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func confirmationMail() *models.EmailConfirmationRequestedEvent {
	user := &models.User{ID: 4, Email: "ana@x.com"}
	return BuildConfirmationEvent(user, "042917", "no-reply@shop.com", time.Now().Add(time.Hour))
}

func TestRenderMessage(t *testing.T) {
	msg := string(renderMessage(confirmationMail(), time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)))

	assert.Contains(t, msg, "From: no-reply@shop.com\r\n")
	assert.Contains(t, msg, "To: ana@x.com\r\n")
	assert.Contains(t, msg, "Subject: =?utf-8?q?")
	assert.Contains(t, msg, "Content-Type: text/plain; charset=UTF-8")
	assert.Contains(t, msg, "Content-Type: text/html; charset=UTF-8")
	assert.Contains(t, msg, "Seu código de confirmação é: 042917")
	assert.True(t, strings.HasSuffix(msg, "--backoffice-alt-boundary--\r\n"))
}

func TestSMTPMailerSend(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com", Port: "587", Username: "u", Password: "p"})

	var gotAddr, gotFrom string
	var gotTo []string
	var gotAuth smtp.Auth
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotAuth, gotFrom, gotTo = addr, a, from, to
		return nil
	}

	require.NoError(t, m.Send(context.Background(), confirmationMail()))
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.NotNil(t, gotAuth)
	assert.Equal(t, "no-reply@shop.com", gotFrom)
	assert.Equal(t, []string{"ana@x.com"}, gotTo)
}

func TestSMTPMailerWithoutCredentials(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "localhost", Port: "25"})

	var gotAuth smtp.Auth = smtp.PlainAuth("", "x", "y", "z")
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAuth = a
		return errors.New("connection refused")
	}

	err := m.Send(context.Background(), confirmationMail())
	assert.ErrorContains(t, err, "ana@x.com")
	assert.Nil(t, gotAuth)
}
