// Package payments prices orders and opens payment intents.
package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"storefront/internal/domain"
)

// Product is the metadata tag attached to every intent.
const Product = "photo-restoration"

// Processor is the payment processor. *stripe.Client satisfies it.
type Processor interface {
	CreateIntent(ctx context.Context, p domain.IntentParams) (*domain.PaymentIntent, error)
	IntentStatus(ctx context.Context, id string) (domain.PaymentStatus, error)
}

// Ledger persists created intents. Optional.
type Ledger interface {
	RecordIntent(ctx context.Context, rec domain.OrderRecord) error
}

// Recorder counts intent outcomes.
type Recorder interface {
	ObservePayment(outcome string)
}

// AmountCents prices an order: count × unitPrice, rounded to minor units.
func AmountCents(photoCount int, unitPrice float64) (int64, error) {
	if photoCount <= 0 {
		return 0, domain.Invalid("photo count must be positive")
	}
	if unitPrice <= 0 {
		return 0, domain.Invalid("unit price must be positive")
	}
	return int64(math.Round(float64(photoCount) * unitPrice * 100)), nil
}

// CreateRequest is the client's checkout request. Amount is in major units
// and optional; when present it must match the server-side price.
type CreateRequest struct {
	Amount         float64
	PhotoCount     int
	Services       domain.Services
	Email          string
	Country        string
	IdempotencyKey string
}

// Options wires the service.
type Options struct {
	Processor Processor
	Enabled   bool
	UnitPrice float64
	Currency  string
	Ledger    Ledger
	Recorder  Recorder
	Logger    zerolog.Logger
}

// Service creates and verifies payments.
type Service struct {
	processor Processor
	enabled   bool
	unitPrice float64
	currency  string
	ledger    Ledger
	recorder  Recorder
	logger    zerolog.Logger
}

func NewService(opts Options) *Service {
	currency := strings.ToLower(opts.Currency)
	if currency == "" {
		currency = "usd"
	}
	return &Service{
		processor: opts.Processor,
		enabled:   opts.Enabled && opts.Processor != nil,
		unitPrice: opts.UnitPrice,
		currency:  currency,
		ledger:    opts.Ledger,
		recorder:  opts.Recorder,
		logger:    opts.Logger.With().Str("component", "payments").Logger(),
	}
}

// Enabled reports whether a processor is configured.
func (s *Service) Enabled() bool { return s.enabled }

// UnitPrice is the per-photo price in major units.
func (s *Service) UnitPrice() float64 { return s.unitPrice }

// CreateIntent prices the order and opens an intent for it.
func (s *Service) CreateIntent(ctx context.Context, req CreateRequest) (*domain.PaymentIntent, error) {
	if !s.enabled {
		s.observe("disabled")
		return nil, domain.ErrPaymentsDisabled
	}
	cents, err := AmountCents(req.PhotoCount, s.unitPrice)
	if err != nil {
		s.observe("invalid")
		return nil, err
	}
	if req.Amount != 0 {
		if claimed := int64(math.Round(req.Amount * 100)); claimed != cents {
			s.observe("invalid")
			return nil, domain.Invalid("amount %.2f does not match %d photo(s) at %s each", req.Amount, req.PhotoCount, s.formatPrice())
		}
	}

	servicesJSON, err := json.Marshal(req.Services.Strings())
	if err != nil {
		return nil, fmt.Errorf("payments: encode services: %w", err)
	}
	params := domain.IntentParams{
		AmountCents: cents,
		Currency:    s.currency,
		Description: Description(req.PhotoCount, s.unitPrice),
		Metadata: map[string]string{
			"photoCount":    strconv.Itoa(req.PhotoCount),
			"services":      string(servicesJSON),
			"email":         req.Email,
			"product":       Product,
			"pricePerPhoto": strconv.FormatFloat(s.unitPrice, 'f', 2, 64),
		},
		IdempotencyKey: req.IdempotencyKey,
	}
	if req.Country != "" {
		params.Metadata["country"] = req.Country
	}

	intent, err := s.processor.CreateIntent(ctx, params)
	if err != nil {
		s.observe("error")
		return nil, fmt.Errorf("payments: create intent: %w", err)
	}
	s.observe("created")
	s.logger.Info().
		Str("payment_intent_id", intent.ID).
		Int64("amount", cents).
		Int("photo_count", req.PhotoCount).
		Msg("payment intent created")

	if s.ledger != nil {
		rec := domain.OrderRecord{
			PaymentIntentID: intent.ID,
			Email:           req.Email,
			AmountCents:     cents,
			Currency:        s.currency,
			PhotoCount:      req.PhotoCount,
			Services:        req.Services,
		}
		if err := s.ledger.RecordIntent(ctx, rec); err != nil {
			s.logger.Warn().Err(err).Str("payment_intent_id", intent.ID).Msg("ledger record intent failed")
		}
	}
	return intent, nil
}

// VerifyPaid asks the processor whether the intent succeeded.
func (s *Service) VerifyPaid(ctx context.Context, id string) (bool, error) {
	if !s.enabled {
		return false, domain.ErrPaymentsDisabled
	}
	status, err := s.processor.IntentStatus(ctx, id)
	if err != nil {
		return false, fmt.Errorf("payments: lookup %s: %w", id, err)
	}
	return status == domain.PaymentSucceeded, nil
}

// Description is the statement line shown on the intent.
func Description(photoCount int, unitPrice float64) string {
	noun := "photo"
	if photoCount > 1 {
		noun = "photos"
	}
	return fmt.Sprintf("Photo Restoration - %d %s at $%.2f each", photoCount, noun, unitPrice)
}

func (s *Service) formatPrice() string {
	return fmt.Sprintf("$%.2f", s.unitPrice)
}

func (s *Service) observe(outcome string) {
	if s.recorder != nil {
		s.recorder.ObservePayment(outcome)
	}
}
