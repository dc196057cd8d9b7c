// Package ledger keeps an optional record of paid orders so deliveries can
// be recovered after the client session is gone.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"storefront/internal/domain"
	"storefront/internal/infra"
	"storefront/internal/sqlinline"
)

// Ledger stores orders keyed by payment intent id. A Ledger without a
// database is valid and records nothing.
type Ledger struct {
	db     infra.SQLExecutor
	logger zerolog.Logger
}

func New(db infra.SQLExecutor, logger zerolog.Logger) *Ledger {
	return &Ledger{db: db, logger: logger.With().Str("component", "ledger").Logger()}
}

// Enabled reports whether a database is attached.
func (l *Ledger) Enabled() bool { return l != nil && l.db != nil }

// EnsureSchema creates the orders table when missing.
func (l *Ledger) EnsureSchema(ctx context.Context) error {
	if !l.Enabled() {
		return nil
	}
	if _, err := l.db.Exec(ctx, sqlinline.QCreateOrdersTable); err != nil {
		return fmt.Errorf("ledger: ensure schema: %w", err)
	}
	return nil
}

// RecordIntent stores a newly created payment intent.
func (l *Ledger) RecordIntent(ctx context.Context, rec domain.OrderRecord) error {
	if !l.Enabled() {
		return nil
	}
	services, err := json.Marshal(rec.Services.Strings())
	if err != nil {
		return fmt.Errorf("ledger: encode services: %w", err)
	}
	_, err = l.db.Exec(ctx, sqlinline.QUpsertOrderIntent,
		rec.PaymentIntentID, rec.Email, rec.AmountCents, rec.Currency, rec.PhotoCount, services)
	if err != nil {
		return fmt.Errorf("ledger: record intent %s: %w", rec.PaymentIntentID, err)
	}
	return nil
}

// RecordDelivery stores the outcome and links of a delivery attempt.
func (l *Ledger) RecordDelivery(ctx context.Context, rec domain.OrderRecord) error {
	if !l.Enabled() {
		return nil
	}
	services, err := json.Marshal(rec.Services.Strings())
	if err != nil {
		return fmt.Errorf("ledger: encode services: %w", err)
	}
	links, err := json.Marshal(rec.DownloadLinks)
	if err != nil {
		return fmt.Errorf("ledger: encode links: %w", err)
	}
	_, err = l.db.Exec(ctx, sqlinline.QUpsertOrderDelivery,
		rec.PaymentIntentID, rec.Email, rec.PhotoCount, services, string(rec.Outcome), links, rec.EmailID)
	if err != nil {
		return fmt.Errorf("ledger: record delivery %s: %w", rec.PaymentIntentID, err)
	}
	l.logger.Debug().Str("payment_intent_id", rec.PaymentIntentID).Str("outcome", string(rec.Outcome)).Msg("delivery recorded")
	return nil
}

// Lookup loads an order. Missing orders and a disabled ledger both yield
// domain.ErrNotFound.
func (l *Ledger) Lookup(ctx context.Context, paymentIntentID string) (*domain.OrderRecord, error) {
	if !l.Enabled() {
		return nil, domain.ErrNotFound
	}
	var (
		rec      domain.OrderRecord
		services []byte
		links    []byte
		outcome  string
	)
	err := l.db.QueryRow(ctx, sqlinline.QSelectOrder, paymentIntentID).Scan(
		&rec.PaymentIntentID, &rec.Email, &rec.AmountCents, &rec.Currency, &rec.PhotoCount,
		&services, &outcome, &links, &rec.EmailID, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("ledger: lookup %s: %w", paymentIntentID, err)
	}
	rec.Outcome = domain.DeliveryOutcome(outcome)
	var tags []string
	if len(services) > 0 {
		if err := json.Unmarshal(services, &tags); err != nil {
			return nil, fmt.Errorf("ledger: decode services: %w", err)
		}
	}
	rec.Services = domain.NewServices(tags)
	if len(links) > 0 {
		if err := json.Unmarshal(links, &rec.DownloadLinks); err != nil {
			return nil, fmt.Errorf("ledger: decode links: %w", err)
		}
	}
	return &rec, nil
}
