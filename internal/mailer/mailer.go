// Package mailer composes the HTML emails sent to customers.
package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"storefront/internal/domain"
)

// Brand is the product name used in subjects and bodies.
const Brand = "Revive My Photo"

var funcs = template.FuncMap{"imageURL": imageURL}

var (
	deliveryTmpl = template.Must(template.New("delivery").Funcs(funcs).Parse(deliveryTemplate))
	recoveryTmpl = template.Must(template.New("recovery").Funcs(funcs).Parse(recoveryTemplate))
	testTmpl     = template.Must(template.New("test").Funcs(funcs).Parse(testTemplate))
)

// imageURL admits http(s) links and inline images; demo deliveries carry
// data URLs which html/template would otherwise replace.
func imageURL(raw string) template.URL {
	lower := strings.ToLower(strings.TrimSpace(raw))
	if strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "data:image/") {
		return template.URL(raw)
	}
	return "#"
}

// RecoverySteps is shown when no stored links are available for a recovery.
var RecoverySteps = []string{
	"Check your email immediately",
	"Reply with 'SEND MY PHOTOS' to get photos",
	"Or reply with 'REFUND NOW' for instant refund",
	"Response guaranteed within 30 minutes",
}

// Composer renders messages from a fixed sender.
type Composer struct {
	From         string
	SupportEmail string
}

// DeliveryParams describes one delivery email.
type DeliveryParams struct {
	To              string
	Links           []domain.DownloadLink
	Services        domain.Services
	Paid            bool
	PaymentIntentID string
	AmountCents     int64
	Currency        string
}

// Subject returns the delivery subject line.
func Subject(count int, paid bool) string {
	var b strings.Builder
	if paid {
		b.WriteString("Receipt: ")
	}
	fmt.Fprintf(&b, "Your %d Revived Photo", count)
	if count > 1 {
		b.WriteString("s")
	}
	b.WriteString(" - " + Brand)
	return b.String()
}

// ServicesList joins service labels for display.
func ServicesList(services domain.Services) string {
	if len(services) == 0 {
		return "Photo Restoration"
	}
	return strings.Join(services.Labels(), ", ")
}

// FormatAmount renders minor units as a price, e.g. 100 usd → "$1.00".
func FormatAmount(cents int64, currency string) string {
	if strings.EqualFold(currency, "usd") || currency == "" {
		return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
	}
	return fmt.Sprintf("%d.%02d %s", cents/100, cents%100, strings.ToUpper(currency))
}

// Delivery renders the email carrying every restored photo.
func (c Composer) Delivery(p DeliveryParams) (domain.Email, error) {
	var buf bytes.Buffer
	err := deliveryTmpl.Execute(&buf, map[string]any{
		"Brand":           Brand,
		"Style":           template.CSS(baseStyle),
		"To":              p.To,
		"Links":           p.Links,
		"ServicesList":    ServicesList(p.Services),
		"Paid":            p.Paid,
		"PaymentIntentID": p.PaymentIntentID,
		"Amount":          FormatAmount(p.AmountCents, p.Currency),
	})
	if err != nil {
		return domain.Email{}, fmt.Errorf("mailer: render delivery: %w", err)
	}
	return domain.Email{
		From:    c.From,
		To:      []string{p.To},
		Subject: Subject(len(p.Links), p.Paid),
		HTML:    buf.String(),
	}, nil
}

// Recovery renders the manual-recovery email for a paid order whose
// automatic delivery failed. links may be empty.
func (c Composer) Recovery(to, paymentIntentID string, links []domain.DownloadLink) (domain.Email, error) {
	var buf bytes.Buffer
	err := recoveryTmpl.Execute(&buf, map[string]any{
		"Brand":           Brand,
		"Style":           template.CSS(baseStyle),
		"PaymentIntentID": paymentIntentID,
		"Links":           links,
		"NextSteps":       RecoverySteps,
		"SupportEmail":    c.SupportEmail,
	})
	if err != nil {
		return domain.Email{}, fmt.Errorf("mailer: render recovery: %w", err)
	}
	return domain.Email{
		From:    c.From,
		To:      []string{to},
		Subject: "Your Paid Photos - Manual Recovery",
		HTML:    buf.String(),
	}, nil
}

// Test renders a connectivity check email.
func (c Composer) Test(to string, now time.Time) (domain.Email, error) {
	var buf bytes.Buffer
	err := testTmpl.Execute(&buf, map[string]any{
		"Brand":  Brand,
		"Style":  template.CSS(baseStyle),
		"From":   c.From,
		"To":     to,
		"SentAt": now.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return domain.Email{}, fmt.Errorf("mailer: render test: %w", err)
	}
	return domain.Email{
		From:    c.From,
		To:      []string{to},
		Subject: Brand + " - test email",
		HTML:    buf.String(),
	}, nil
}
