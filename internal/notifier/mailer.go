package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
)

const resendAPI = "https://api.resend.com/emails"

// Email is one outbound message.
type Email struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Text    string `json:"text,omitempty"`
	From    string `json:"from"`
}

// Sender delivers a single email. Delivery failures never block payment
// state; callers log and move on.
type Sender interface {
	Send(ctx context.Context, msg Email) error
}

// ResendSender posts through the Resend HTTP API. Without an API key it
// runs in log-only mode, which is what local development uses.
type ResendSender struct {
	APIKey string
	From   string
	Client *http.Client
	Log    *logrus.Logger
}

func NewResendSender(apiKey, from string, log *logrus.Logger) *ResendSender {
	return &ResendSender{APIKey: apiKey, From: from, Client: http.DefaultClient, Log: log}
}

func (s *ResendSender) Send(ctx context.Context, msg Email) error {
	if msg.From == "" {
		msg.From = s.From
	}

	if s.APIKey == "" {
		s.Log.WithFields(logrus.Fields{"to": msg.To, "subject": msg.Subject}).
			Info("no email API key configured, logging instead of sending")
		return nil
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, resendAPI, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return fmt.Errorf("send email to %s: %w", msg.To, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("send email to %s: %s", msg.To, resp.Status)
	}
	return nil
}
