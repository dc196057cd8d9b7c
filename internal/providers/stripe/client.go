package stripe

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	stripeapi "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"

	"storefront/internal/domain"
)

// ErrMissingSecretKey indicates that the client was configured without credentials.
var ErrMissingSecretKey = errors.New("stripe: secret key is required")

const providerName = "stripe"

// Options configures the processor adapter.
type Options struct {
	SecretKey      string
	BaseURL        string
	HTTPClient     *http.Client
	RequestTimeout time.Duration
	MaxRetries     int64
}

// Client opens and inspects payment intents.
type Client struct {
	api *client.API
}

func NewClient(opts Options) (*Client, error) {
	key := strings.TrimSpace(opts.SecretKey)
	if key == "" {
		return nil, ErrMissingSecretKey
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	cfg := &stripeapi.BackendConfig{
		HTTPClient:        httpClient,
		MaxNetworkRetries: stripeapi.Int64(opts.MaxRetries),
		LeveledLogger:     &stripeapi.LeveledLogger{Level: stripeapi.LevelError},
	}
	if base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"); base != "" {
		cfg.URL = stripeapi.String(base)
	}
	api := &client.API{}
	api.Init(key, &stripeapi.Backends{
		API:     stripeapi.GetBackendWithConfig(stripeapi.APIBackend, cfg),
		Connect: stripeapi.GetBackendWithConfig(stripeapi.ConnectBackend, cfg),
		Uploads: stripeapi.GetBackendWithConfig(stripeapi.UploadsBackend, cfg),
	})
	return &Client{api: api}, nil
}

// CreateIntent opens a payment intent with automatic payment methods.
func (c *Client) CreateIntent(ctx context.Context, p domain.IntentParams) (*domain.PaymentIntent, error) {
	params := &stripeapi.PaymentIntentParams{
		Amount:   stripeapi.Int64(p.AmountCents),
		Currency: stripeapi.String(strings.ToLower(p.Currency)),
		AutomaticPaymentMethods: &stripeapi.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripeapi.Bool(true),
		},
	}
	params.Context = ctx
	if p.Description != "" {
		params.Description = stripeapi.String(p.Description)
	}
	if p.ReceiptEmail != "" {
		params.ReceiptEmail = stripeapi.String(p.ReceiptEmail)
	}
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}
	if p.IdempotencyKey != "" {
		params.SetIdempotencyKey(p.IdempotencyKey)
	}

	pi, err := c.api.PaymentIntents.New(params)
	if err != nil {
		return nil, wrapError(err)
	}
	return &domain.PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		AmountCents:  pi.Amount,
		Currency:     string(pi.Currency),
	}, nil
}

// IntentStatus returns the current status of an intent.
func (c *Client) IntentStatus(ctx context.Context, id string) (domain.PaymentStatus, error) {
	params := &stripeapi.PaymentIntentParams{}
	params.Context = ctx
	pi, err := c.api.PaymentIntents.Get(id, params)
	if err != nil {
		return "", wrapError(err)
	}
	return domain.PaymentStatus(pi.Status), nil
}

func wrapError(err error) error {
	var serr *stripeapi.Error
	if errors.As(err, &serr) {
		return &domain.ProviderError{
			Provider: providerName,
			Status:   serr.HTTPStatusCode,
			Code:     string(serr.Code),
			Message:  serr.Msg,
			Err:      err,
		}
	}
	return &domain.ProviderError{Provider: providerName, Err: err}
}
