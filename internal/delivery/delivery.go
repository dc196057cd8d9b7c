// Package delivery hands restored photos to the customer: it copies them to
// durable storage, emails them and guarantees paid orders a download path.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"storefront/internal/domain"
	"storefront/internal/mailer"
	"storefront/internal/payments"
)

const (
	ReasonEmailDisabled       = "email_disabled"
	ReasonUnverifiedRecipient = "unverified_recipient"
)

// Fetcher downloads a remote image.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, string, error)
}

// BlobStore persists an object and returns its public URL.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Sender hands a composed email to the provider.
type Sender interface {
	Send(ctx context.Context, msg domain.Email) (string, error)
}

// PaymentVerifier confirms a client's paid claim server-side.
type PaymentVerifier interface {
	Enabled() bool
	VerifyPaid(ctx context.Context, id string) (bool, error)
}

// Ledger stores delivery outcomes and serves them back for recovery.
type Ledger interface {
	RecordDelivery(ctx context.Context, rec domain.OrderRecord) error
	Lookup(ctx context.Context, paymentIntentID string) (*domain.OrderRecord, error)
}

// Recorder counts delivery outcomes.
type Recorder interface {
	ObserveDelivery(outcome domain.DeliveryOutcome, paid bool)
}

// Request is one delivery as submitted by the client.
type Request struct {
	Email           string
	RestoredImages  []string
	Filenames       []string
	Services        domain.Services
	Paid            bool
	PaymentIntentID string
}

// Options wires the service. Nil collaborators disable their step.
type Options struct {
	Composer          mailer.Composer
	Sender            Sender
	Blob              BlobStore
	Fetcher           Fetcher
	Payments          PaymentVerifier
	Ledger            Ledger
	Recorder          Recorder
	AllowedRecipients []string
	UnitPrice         float64
	Currency          string
	Logger            zerolog.Logger
}

// Service runs deliveries and recoveries.
type Service struct {
	composer  mailer.Composer
	sender    Sender
	blob      BlobStore
	fetcher   Fetcher
	payments  PaymentVerifier
	ledger    Ledger
	recorder  Recorder
	allowed   map[string]struct{}
	unitPrice float64
	currency  string
	logger    zerolog.Logger
}

func NewService(opts Options) *Service {
	var allowed map[string]struct{}
	if len(opts.AllowedRecipients) > 0 {
		allowed = make(map[string]struct{}, len(opts.AllowedRecipients))
		for _, addr := range opts.AllowedRecipients {
			allowed[strings.ToLower(strings.TrimSpace(addr))] = struct{}{}
		}
	}
	return &Service{
		composer:  opts.Composer,
		sender:    opts.Sender,
		blob:      opts.Blob,
		fetcher:   opts.Fetcher,
		payments:  opts.Payments,
		ledger:    opts.Ledger,
		recorder:  opts.Recorder,
		allowed:   allowed,
		unitPrice: opts.UnitPrice,
		currency:  opts.Currency,
		logger:    opts.Logger.With().Str("component", "delivery").Logger(),
	}
}

// EmailEnabled reports whether a provider is attached.
func (s *Service) EmailEnabled() bool { return s.sender != nil }

// Deliver persists the images, emails them and resolves the outcome. Paid
// orders never resolve to DeliveryFailed. The returned error is reserved for
// invalid requests.
func (s *Service) Deliver(ctx context.Context, req Request) (*domain.DeliveryResult, error) {
	to, err := ParseRecipient(req.Email)
	if err != nil {
		return nil, err
	}
	if len(req.RestoredImages) == 0 {
		return nil, domain.Invalid("at least one restored image is required")
	}

	paid := s.confirmPaid(ctx, req)
	links := s.persist(ctx, req.RestoredImages, req.Filenames)
	result := &domain.DeliveryResult{DownloadLinks: links, Paid: paid}
	if paid {
		result.PaymentIntentID = req.PaymentIntentID
	}

	switch {
	case s.sender == nil:
		result.Outcome = domain.DeliveredWithFallback
		result.Reason = ReasonEmailDisabled
		result.Demo = true
	case !s.recipientAllowed(to):
		result.Outcome = domain.DeliveredWithFallback
		result.Reason = ReasonUnverifiedRecipient
	default:
		s.send(ctx, to, req, result)
	}

	s.finish(ctx, to, req, result)
	return result, nil
}

func (s *Service) send(ctx context.Context, to string, req Request, result *domain.DeliveryResult) {
	msg, err := s.composer.Delivery(mailer.DeliveryParams{
		To:              to,
		Links:           result.DownloadLinks,
		Services:        req.Services,
		Paid:            result.Paid,
		PaymentIntentID: result.PaymentIntentID,
		AmountCents:     s.amountCents(len(result.DownloadLinks)),
		Currency:        s.currency,
	})
	if err == nil {
		result.EmailID, err = s.sender.Send(ctx, msg)
	}
	if err == nil {
		result.Outcome = domain.Delivered
		return
	}

	kind := domain.Classify(err)
	result.ErrorKind = kind
	result.Reason = err.Error()
	if result.Paid {
		result.Outcome = domain.DeliveredWithFallback
		s.logger.Error().Err(err).Str("payment_intent_id", result.PaymentIntentID).Str("kind", string(kind)).Msg("email failed for paid order, returning download links")
		return
	}
	result.Outcome = domain.DeliveryFailed
	s.logger.Error().Err(err).Str("kind", string(kind)).Msg("email failed")
}

// confirmPaid trusts a paid claim only when it carries an intent id and the
// processor does not contradict it. Lookup failures keep the claim so a
// processor outage cannot strand a paying customer.
func (s *Service) confirmPaid(ctx context.Context, req Request) bool {
	if !req.Paid || strings.TrimSpace(req.PaymentIntentID) == "" {
		return false
	}
	if s.payments == nil || !s.payments.Enabled() {
		return true
	}
	ok, err := s.payments.VerifyPaid(ctx, req.PaymentIntentID)
	if err != nil {
		s.logger.Warn().Err(err).Str("payment_intent_id", req.PaymentIntentID).Msg("payment verification failed, keeping paid claim")
		return true
	}
	if !ok {
		s.logger.Warn().Str("payment_intent_id", req.PaymentIntentID).Msg("paid claim rejected by processor")
	}
	return ok
}

// persist copies remote images into the blob store. Any failure keeps the
// original URL for that image.
func (s *Service) persist(ctx context.Context, images, filenames []string) []domain.DownloadLink {
	links := make([]domain.DownloadLink, len(images))
	for i, src := range images {
		filename := fmt.Sprintf("restored_photo_%d.jpg", i+1)
		if i < len(filenames) && strings.TrimSpace(filenames[i]) != "" {
			filename = path.Base(strings.ReplaceAll(strings.TrimSpace(filenames[i]), "\\", "/"))
		}
		links[i] = domain.DownloadLink{URL: src, Filename: filename, Index: i + 1}

		if s.blob == nil || s.fetcher == nil || !isRemote(src) {
			continue
		}
		data, contentType, err := s.fetcher.Fetch(ctx, src)
		if err != nil {
			s.logger.Warn().Err(err).Int("index", i+1).Msg("fetch restored image failed, keeping original url")
			continue
		}
		key := "restored/" + uuid.NewString() + "_" + filename
		url, err := s.blob.Put(ctx, key, data, contentType)
		if err != nil {
			s.logger.Warn().Err(err).Int("index", i+1).Msg("blob upload failed, keeping original url")
			continue
		}
		links[i].URL = url
	}
	return links
}

func (s *Service) finish(ctx context.Context, to string, req Request, result *domain.DeliveryResult) {
	if s.recorder != nil {
		s.recorder.ObserveDelivery(result.Outcome, result.Paid)
	}
	s.logger.Info().
		Str("outcome", string(result.Outcome)).
		Bool("paid", result.Paid).
		Int("images", len(result.DownloadLinks)).
		Str("reason", result.Reason).
		Msg("delivery finished")

	if s.ledger == nil || !result.Paid {
		return
	}
	if !s.ownsOrder(ctx, result.PaymentIntentID, to) {
		s.logger.Warn().Str("payment_intent_id", result.PaymentIntentID).Msg("delivery recipient differs from order email, ledger left unchanged")
		return
	}
	err := s.ledger.RecordDelivery(ctx, domain.OrderRecord{
		PaymentIntentID: result.PaymentIntentID,
		Email:           to,
		PhotoCount:      len(result.DownloadLinks),
		Services:        req.Services,
		Outcome:         result.Outcome,
		DownloadLinks:   result.DownloadLinks,
		EmailID:         result.EmailID,
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("payment_intent_id", result.PaymentIntentID).Msg("ledger record delivery failed")
	}
}

// ownsOrder reports whether addr may write or read the order's stored
// links. Orders without a recorded email are open to their first delivery.
func (s *Service) ownsOrder(ctx context.Context, paymentIntentID, addr string) bool {
	rec, err := s.ledger.Lookup(ctx, paymentIntentID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return true
	case err != nil:
		s.logger.Warn().Err(err).Str("payment_intent_id", paymentIntentID).Msg("ledger lookup failed")
		return false
	}
	return rec.Email == "" || strings.EqualFold(rec.Email, addr)
}

func (s *Service) recipientAllowed(addr string) bool {
	if s.allowed == nil {
		return true
	}
	_, ok := s.allowed[strings.ToLower(addr)]
	return ok
}

func (s *Service) amountCents(count int) int64 {
	cents, err := payments.AmountCents(count, s.unitPrice)
	if err != nil {
		return 0
	}
	return cents
}

// ParseRecipient validates a customer address and returns its bare form.
func ParseRecipient(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", domain.Invalid("email is required")
	}
	addr, err := mail.ParseAddress(raw)
	if err != nil {
		return "", domain.Invalid("email %q is not a valid address", raw)
	}
	return addr.Address, nil
}

func isRemote(u string) bool {
	lower := strings.ToLower(u)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
