// email.go

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// Mailer delivers the OTP email. Delivery failure is never fatal to the
// calling operation; callers log it and point the client at the resend
// path.
type Mailer interface {
	SendOTP(ctx context.Context, to, code string) error
}

const otpEmailBody = `<div style="font-family: 'Helvetica Neue', Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 40px 20px;">
  <div style="text-align: center; margin-bottom: 30px;">
    <h1 style="color: #d4af37; font-size: 32px; margin: 0;">EYES</h1>
    <p style="color: #888; font-size: 14px;">Premium Fragrances</p>
  </div>
  <div style="background: linear-gradient(145deg, #1a1a1a, #2a2a2a); border-radius: 16px; padding: 40px; text-align: center;">
    <h2 style="color: #fff; margin: 0 0 20px;">Your Verification Code</h2>
    <div style="background: #d4af37; color: #000; font-size: 32px; font-weight: bold; letter-spacing: 8px; padding: 16px 32px; border-radius: 12px; display: inline-block;">%s</div>
    <p style="color: #888; margin-top: 24px; font-size: 14px;">This code expires in <strong>5 minutes</strong></p>
  </div>
  <p style="color: #666; font-size: 12px; text-align: center; margin-top: 30px;">If you didn't request this code, you can safely ignore this email.</p>
</div>`

// brevoMailer sends through the Brevo transactional email API.
type brevoMailer struct {
	apiKey string
	from   string
	client *http.Client
}

func newBrevoMailer(apiKey, from string) *brevoMailer {
	return &brevoMailer{
		apiKey: apiKey,
		from:   from,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type brevoAddress struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

type brevoEmail struct {
	Sender      brevoAddress   `json:"sender"`
	To          []brevoAddress `json:"to"`
	Subject     string         `json:"subject"`
	HTMLContent string         `json:"htmlContent"`
}

func (m *brevoMailer) SendOTP(ctx context.Context, to, code string) error {
	payload := brevoEmail{
		Sender:      brevoAddress{Name: "EYES Perfume", Email: m.from},
		To:          []brevoAddress{{Email: to}},
		Subject:     "Your EYES Perfume OTP Code",
		HTMLContent: fmt.Sprintf(otpEmailBody, code),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		"https://api.brevo.com/v3/smtp/email", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", m.apiKey)
	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("brevo: status %d: %s", resp.StatusCode, detail)
	}
	return nil
}

// logMailer stands in when no API key is configured, writing the code to
// the server log so local development can complete the handshake.
type logMailer struct {
	log *log.Logger
}

func (m *logMailer) SendOTP(_ context.Context, to, code string) error {
	m.log.Printf("otp for %s: %s", to, code)
	return nil
}
