package replicate

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	replicatego "github.com/replicate/replicate-go"
	"github.com/rs/zerolog"

	"storefront/internal/domain"
)

// ErrMissingAPIToken indicates that the client was configured without credentials.
var ErrMissingAPIToken = errors.New("replicate: api token is required")

const providerName = "replicate"

// Options configures the Replicate predictions client.
type Options struct {
	APIToken       string
	BaseURL        string
	HTTPClient     *http.Client
	RequestTimeout time.Duration
	Logger         *zerolog.Logger
}

// Client runs model predictions through replicate-go and reports failures
// as domain.ProviderError.
type Client struct {
	api    *replicatego.Client
	logger zerolog.Logger
}

// NewClient constructs a client with defaults for anything left unset.
func NewClient(opts Options) (*Client, error) {
	token := strings.TrimSpace(opts.APIToken)
	if token == "" {
		return nil, ErrMissingAPIToken
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 120 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	clientOpts := []replicatego.ClientOption{
		replicatego.WithToken(token),
		replicatego.WithHTTPClient(httpClient),
	}
	if base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"); base != "" {
		clientOpts = append(clientOpts, replicatego.WithBaseURL(base))
	}
	api, err := replicatego.NewClient(clientOpts...)
	if err != nil {
		return nil, &domain.ProviderError{Provider: providerName, Err: err}
	}

	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = opts.Logger.With().Str("provider", providerName).Logger()
	}
	return &Client{api: api, logger: logger}, nil
}

// Run creates a prediction for identifier and blocks until it reaches a
// terminal state, returning the decoded output. identifier is either
// "owner/name:version" or "owner/name" for official models.
func (c *Client) Run(ctx context.Context, identifier string, input map[string]any) (any, error) {
	identifier = strings.TrimSpace(identifier)
	if err := validIdentifier(identifier); err != nil {
		return nil, err
	}

	start := time.Now()
	output, err := c.api.Run(ctx, identifier, replicatego.PredictionInput(input), nil)
	if err != nil {
		return nil, wrapError(ctx, err)
	}
	c.logger.Debug().
		Str("model", identifier).
		Dur("elapsed", time.Since(start)).
		Msg("replicate: prediction finished")
	return any(output), nil
}

func validIdentifier(identifier string) error {
	model, version, hasVersion := strings.Cut(identifier, ":")
	owner, name, ok := strings.Cut(model, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") || (hasVersion && version == "") {
		return domain.Invalid("model identifier %q must be owner/name[:version]", identifier)
	}
	return nil
}

// wrapError keeps the API status so Classify can map it; context errors
// pass through untouched.
func wrapError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return err
	}
	var apiErr *replicatego.APIError
	if errors.As(err, &apiErr) {
		return &domain.ProviderError{
			Provider: providerName,
			Status:   apiErr.Status,
			Code:     apiErr.Type,
			Message:  strings.TrimSpace(apiErr.Title + " " + apiErr.Detail),
			Err:      err,
		}
	}
	return &domain.ProviderError{Provider: providerName, Message: err.Error(), Err: err}
}
