// Package email, uygulama genelinde email gönderimi için soyutlama katmanı sağlar.
//
// Service katmanı EmailSender interface'ine bağımlıdır. RESEND_API_KEY
// tanımlı değilse main.go NopSender kullanır; kayıt akışı email'e bağlı değildir.
package email

import (
	"context"
	"fmt"
	"html"

	"github.com/resend/resend-go/v3"
)

// EmailSender, email gönderimi için interface.
type EmailSender interface {
	// SendWelcome, yeni kayıt olan kullanıcıya hoş geldin email'i gönderir.
	SendWelcome(ctx context.Context, toEmail, name string) error
}

// resendSender, Resend API ile email gönderen EmailSender implementasyonu.
type resendSender struct {
	client    *resend.Client
	fromEmail string
	appURL    string
}

// NewResendSender, Resend API client'ı ile yeni bir EmailSender oluşturur.
// fromEmail Resend'de doğrulanmış bir domain altında olmalıdır.
func NewResendSender(apiKey, fromEmail, appURL string) EmailSender {
	return &resendSender{
		client:    resend.NewClient(apiKey),
		fromEmail: fromEmail,
		appURL:    appURL,
	}
}

func (s *resendSender) SendWelcome(ctx context.Context, toEmail, name string) error {
	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("TMS <%s>", s.fromEmail),
		To:      []string{toEmail},
		Subject: "Welcome to TMS",
		Html:    welcomeHTML(name, s.appURL),
	}

	if _, err := s.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("failed to send welcome email: %w", err)
	}
	return nil
}

func welcomeHTML(name, appURL string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="margin:0;padding:24px;font-family:Arial,Helvetica,sans-serif;">
  <h2 style="margin:0 0 16px 0;">Hi %s,</h2>
  <p style="font-size:15px;line-height:1.6;">Your TMS account is ready. You can start adding tasks right away.</p>
  <p><a href="%s/login" style="color:#6366f1;">Sign in</a></p>
</body>
</html>`, html.EscapeString(name), appURL)
}

// NopSender, email göndermeyen EmailSender. Resend yapılandırılmadığında kullanılır.
type NopSender struct{}

func (NopSender) SendWelcome(context.Context, string, string) error { return nil }
