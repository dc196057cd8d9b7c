package delivery

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"syscall"
	"time"

	"storefront/internal/domain"
	"storefront/internal/restore"
)

var (
	// ErrHostNotAllowed rejects URLs outside the configured image hosts.
	ErrHostNotAllowed = fmt.Errorf("%w: image host is not allowed", domain.ErrInvalidInput)
	// ErrPrivateAddress rejects connections to loopback, private and
	// link-local addresses.
	ErrPrivateAddress = errors.New("fetch: destination address is not public")
	// ErrNotImage rejects bodies that do not sniff as a supported image.
	ErrNotImage = fmt.Errorf("%w: fetched content is not an image", domain.ErrInvalidInput)
)

// FetcherOptions configures HTTPFetcher.
type FetcherOptions struct {
	Timeout  time.Duration
	MaxBytes int64
	// AllowedHosts lists hostnames images may be fetched from. An entry also
	// matches its subdomains. Empty allows no remote fetches.
	AllowedHosts []string
	// AllowPrivateNetworks skips the dial-time address check. Local
	// development and tests against httptest servers only.
	AllowPrivateNetworks bool
}

// HTTPFetcher downloads restored images from the inference provider's CDN
// and the storefront's own bucket.
type HTTPFetcher struct {
	client   *http.Client
	maxBytes int64
	hosts    []string
}

// NewHTTPFetcher returns a fetcher bounded by the allowlist, timeout and size cap.
func NewHTTPFetcher(opts FetcherOptions) *HTTPFetcher {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	f := &HTTPFetcher{maxBytes: opts.MaxBytes}
	for _, h := range opts.AllowedHosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			f.hosts = append(f.hosts, strings.TrimPrefix(h, "*."))
		}
	}

	dialer := &net.Dialer{Timeout: 10 * time.Second}
	if !opts.AllowPrivateNetworks {
		dialer.Control = publicOnly
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext

	f.client = &http.Client{
		Timeout:   timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return errors.New("fetch: too many redirects")
			}
			return f.checkURL(req.URL)
		},
	}
	return f
}

// Fetch returns the body and sniffed content type of raw. Inline data URLs,
// as produced in demo mode, are decoded without a round trip.
func (f *HTTPFetcher) Fetch(ctx context.Context, raw string) ([]byte, string, error) {
	if strings.HasPrefix(raw, "data:") {
		return f.decodeDataURL(raw)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, "", domain.Invalid("image url %q is malformed", raw)
	}
	if err := f.checkURL(u); err != nil {
		return nil, "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, "", fmt.Errorf("fetch: build request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("fetch: status %d", resp.StatusCode)
	}

	var body io.Reader = resp.Body
	if f.maxBytes > 0 {
		body = io.LimitReader(resp.Body, f.maxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, "", fmt.Errorf("fetch: read body: %w", err)
	}
	if f.maxBytes > 0 && int64(len(data)) > f.maxBytes {
		return nil, "", fmt.Errorf("fetch: image exceeds %d bytes", f.maxBytes)
	}
	contentType, ok := restore.SniffMIME(data)
	if !ok {
		return nil, "", ErrNotImage
	}
	return data, contentType, nil
}

func (f *HTTPFetcher) checkURL(u *url.URL) error {
	if u.Scheme != "http" && u.Scheme != "https" {
		return domain.Invalid("image url scheme %q is not supported", u.Scheme)
	}
	if u.User != nil {
		return ErrHostNotAllowed
	}
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	for _, allowed := range f.hosts {
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return nil
		}
	}
	return ErrHostNotAllowed
}

// publicOnly runs after DNS resolution, so hostnames that resolve to
// internal addresses are caught too.
func publicOnly(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip, err := netip.ParseAddr(host)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrPrivateAddress, host)
	}
	ip = ip.Unmap()
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
		ip.IsUnspecified() || ip.IsMulticast() || ip.IsInterfaceLocalMulticast() || cgnat.Contains(ip) {
		return fmt.Errorf("%w: %s", ErrPrivateAddress, ip)
	}
	return nil
}

var cgnat = netip.MustParsePrefix("100.64.0.0/10")

func (f *HTTPFetcher) decodeDataURL(raw string) ([]byte, string, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(raw, "data:"), ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return nil, "", domain.Invalid("unsupported data url")
	}
	if f.maxBytes > 0 && int64(base64.StdEncoding.DecodedLen(len(payload))) > f.maxBytes+2 {
		return nil, "", fmt.Errorf("fetch: image exceeds %d bytes", f.maxBytes)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", domain.Invalid("data url is not valid base64")
	}
	contentType := strings.TrimSuffix(meta, ";base64")
	if !strings.HasPrefix(contentType, "image/") {
		contentType = "image/jpeg"
	}
	return data, contentType, nil
}
