package notifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/nifgashim/trek-api/internal/models"
	"github.com/nifgashim/trek-api/internal/payments"
)

// TokenMailer composes the registrant-facing emails: admission tokens after
// payment (or after a day edit regenerates them) and payment reminders.
// It implements payments.Mailer.
type TokenMailer struct {
	sender      Sender
	frontendURL string
}

func NewTokenMailer(sender Sender, frontendURL string) *TokenMailer {
	return &TokenMailer{sender: sender, frontendURL: frontendURL}
}

func (m *TokenMailer) SendTokens(ctx context.Context, reg *models.Registration, trip *models.Trip, tokens []payments.IssuedToken) error {
	to := recipient(reg)
	if to == "" {
		return fmt.Errorf("registration %s has no participant email", reg.ID)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<h2>You're in! %s</h2>", trip.Name)
	fmt.Fprintf(&b, "<p>Days: %s</p>", joinDays(reg.SelectedDays))
	b.WriteString("<p>Show each participant's QR code at the trailhead:</p><ul>")
	for _, t := range tokens {
		fmt.Fprintf(&b, `<li><b>%s</b><br/><a href="%s/qr/%s">Your QR code</a><br/><code>%s</code></li>`,
			t.Participant.Name, m.frontendURL, t.Token, t.Token)
	}
	b.WriteString("</ul>")

	return m.sender.Send(ctx, Email{
		To:      to,
		Subject: fmt.Sprintf("Your admission codes for %s", trip.Name),
		HTML:    b.String(),
	})
}

// SendPaymentReminder nudges a pending_payment registration. Used by the
// admin bulk-notify endpoint.
func (m *TokenMailer) SendPaymentReminder(ctx context.Context, reg *models.Registration, trip *models.Trip) error {
	to := recipient(reg)
	if to == "" {
		return fmt.Errorf("registration %s has no participant email", reg.ID)
	}
	html := fmt.Sprintf(`
		<h2>Complete your registration for %s</h2>
		<p>Your spot for days %s is reserved but not yet paid.</p>
		<p><a href="%s/pay/%s">Complete payment</a></p>
	`, trip.Name, joinDays(reg.SelectedDays), m.frontendURL, reg.ID)

	return m.sender.Send(ctx, Email{
		To:      to,
		Subject: fmt.Sprintf("Payment pending for %s", trip.Name),
		HTML:    html,
	})
}

// recipient picks the first participant with an email address.
func recipient(reg *models.Registration) string {
	for _, p := range reg.Participants {
		if p.Email != "" {
			return p.Email
		}
	}
	return ""
}

func joinDays(days models.DayList) string {
	parts := make([]string, len(days))
	for i, d := range days {
		parts[i] = fmt.Sprintf("%d", d)
	}
	return strings.Join(parts, ", ")
}
