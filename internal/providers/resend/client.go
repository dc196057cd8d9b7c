package resend

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	resendapi "github.com/resend/resend-go/v2"

	"storefront/internal/domain"
)

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = errors.New("resend: api key is required")

const providerName = "resend"

// Options configures the email provider adapter.
type Options struct {
	APIKey         string
	BaseURL        string
	HTTPClient     *http.Client
	RequestTimeout time.Duration
}

// Client sends mail and reads sender-domain configuration.
type Client struct {
	api *resendapi.Client
}

func NewClient(opts Options) (*Client, error) {
	key := strings.TrimSpace(opts.APIKey)
	if key == "" {
		return nil, ErrMissingAPIKey
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	api := resendapi.NewCustomClient(httpClient, key)
	if base := strings.TrimSpace(opts.BaseURL); base != "" {
		u, err := url.Parse(strings.TrimRight(base, "/") + "/")
		if err != nil {
			return nil, err
		}
		api.BaseURL = u
	}
	return &Client{api: api}, nil
}

// Send delivers a composed email and returns the provider's message id.
func (c *Client) Send(ctx context.Context, msg domain.Email) (string, error) {
	resp, err := c.api.Emails.SendWithContext(ctx, &resendapi.SendEmailRequest{
		From:    msg.From,
		To:      msg.To,
		Subject: msg.Subject,
		Html:    msg.HTML,
	})
	if err != nil {
		return "", wrapError(err)
	}
	return resp.Id, nil
}

// Domains lists every sending domain with its expected records.
func (c *Client) Domains(ctx context.Context) ([]domain.SenderDomain, error) {
	list, err := c.api.Domains.ListWithContext(ctx)
	if err != nil {
		return nil, wrapError(err)
	}
	out := make([]domain.SenderDomain, 0, len(list.Data))
	for _, d := range list.Data {
		out = append(out, convertDomain(d))
	}
	return out, nil
}

// domainDetail is the GET domains/{id} payload. The SDK's Domain type omits
// the records list, so the request goes through NewRequest/Perform.
type domainDetail struct {
	resendapi.Domain
	Records []resendapi.Record `json:"records"`
}

// Domain fetches one sending domain by provider id, including records.
func (c *Client) Domain(ctx context.Context, id string) (*domain.SenderDomain, error) {
	req, err := c.api.NewRequest(ctx, http.MethodGet, "domains/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, wrapError(err)
	}
	var detail domainDetail
	if _, err := c.api.Perform(req, &detail); err != nil {
		return nil, wrapError(err)
	}
	converted := convertDomain(detail.Domain)
	for _, r := range detail.Records {
		converted.Records = append(converted.Records, domain.DomainRecord{
			Record: r.Record,
			Name:   r.Name,
			Type:   r.Type,
			TTL:    r.Ttl,
			Status: r.Status,
			Value:  r.Value,
		})
	}
	return &converted, nil
}

func convertDomain(d resendapi.Domain) domain.SenderDomain {
	return domain.SenderDomain{
		ID:     d.Id,
		Name:   d.Name,
		Status: d.Status,
		Region: d.Region,
	}
}

func wrapError(err error) error {
	return &domain.ProviderError{Provider: providerName, Err: err}
}
