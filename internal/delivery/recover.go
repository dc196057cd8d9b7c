package delivery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/domain"
	"storefront/internal/mailer"
)

// RecoveryResult is returned after a recovery email is sent.
type RecoveryResult struct {
	EmailID       string                `json:"emailId"`
	PaymentID     string                `json:"paymentId"`
	DownloadLinks []domain.DownloadLink `json:"downloadLinks,omitempty"`
	NextSteps     []string              `json:"nextSteps"`
}

// Recover sends a manual-recovery email for a paid order. Stored links from
// the ledger are included only when email matches the address on the order.
func (s *Service) Recover(ctx context.Context, paymentIntentID, email string) (*RecoveryResult, error) {
	if s.sender == nil {
		return nil, domain.ErrEmailDisabled
	}
	paymentIntentID = strings.TrimSpace(paymentIntentID)
	if paymentIntentID == "" {
		return nil, domain.Invalid("paymentIntentId is required")
	}
	to, err := ParseRecipient(email)
	if err != nil {
		return nil, err
	}

	var links []domain.DownloadLink
	if s.ledger != nil {
		rec, err := s.ledger.Lookup(ctx, paymentIntentID)
		switch {
		case err == nil && rec.Email != "" && strings.EqualFold(rec.Email, to):
			links = rec.DownloadLinks
		case err == nil:
			s.logger.Warn().Str("payment_intent_id", paymentIntentID).Msg("recovery address differs from order email, sending notice without links")
		case !errors.Is(err, domain.ErrNotFound):
			s.logger.Warn().Err(err).Str("payment_intent_id", paymentIntentID).Msg("ledger lookup failed during recovery")
		}
	}

	msg, err := s.composer.Recovery(to, paymentIntentID, links)
	if err != nil {
		return nil, err
	}
	id, err := s.sender.Send(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("delivery: send recovery for %s: %w", paymentIntentID, err)
	}
	s.logger.Info().Str("payment_intent_id", paymentIntentID).Str("email_id", id).Msg("recovery email sent")

	steps := mailer.RecoverySteps
	if len(links) > 0 {
		steps = []string{"Check your email for download links", "Contact support with your payment ID if anything is missing"}
	}
	return &RecoveryResult{EmailID: id, PaymentID: paymentIntentID, DownloadLinks: links, NextSteps: steps}, nil
}

// SendTest sends a connectivity check email.
func (s *Service) SendTest(ctx context.Context, email string, now time.Time) (string, error) {
	if s.sender == nil {
		return "", domain.ErrEmailDisabled
	}
	to, err := ParseRecipient(email)
	if err != nil {
		return "", err
	}
	msg, err := s.composer.Test(to, now)
	if err != nil {
		return "", err
	}
	return s.sender.Send(ctx, msg)
}
