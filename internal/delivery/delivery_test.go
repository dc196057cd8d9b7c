package delivery

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob/memblob"

	"storefront/internal/domain"
	"storefront/internal/mailer"
	"storefront/internal/storage"
)

type fakeSender struct {
	sent []domain.Email
	err  error
}

func (f *fakeSender) Send(_ context.Context, msg domain.Email) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, msg)
	return "em_1", nil
}

type fakeVerifier struct {
	paid bool
	err  error
}

func (f fakeVerifier) Enabled() bool { return true }

func (f fakeVerifier) VerifyPaid(context.Context, string) (bool, error) { return f.paid, f.err }

type memLedger struct {
	records map[string]domain.OrderRecord
}

func (m *memLedger) RecordDelivery(_ context.Context, rec domain.OrderRecord) error {
	if m.records == nil {
		m.records = map[string]domain.OrderRecord{}
	}
	m.records[rec.PaymentIntentID] = rec
	return nil
}

func (m *memLedger) Lookup(_ context.Context, id string) (*domain.OrderRecord, error) {
	rec, ok := m.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

func newService(opts Options) *Service {
	opts.Composer = mailer.Composer{From: "Revive My Photo <hello@revivemyphoto.ai>", SupportEmail: "support@revivemyphoto.ai"}
	opts.UnitPrice = 0.50
	opts.Currency = "usd"
	opts.Logger = zerolog.Nop()
	return NewService(opts)
}

func twoImageRequest(paid bool) Request {
	req := Request{
		Email:          "ana@example.com",
		RestoredImages: []string{"data:image/png;base64,AAAA", "data:image/png;base64,BBBB"},
		Services:       domain.Services{domain.ServiceColorize},
	}
	if paid {
		req.Paid = true
		req.PaymentIntentID = "pi_123"
	}
	return req
}

func assertTwoLinks(t *testing.T, res *domain.DeliveryResult) {
	t.Helper()
	require.Len(t, res.DownloadLinks, 2)
	assert.Equal(t, 1, res.DownloadLinks[0].Index)
	assert.Equal(t, 2, res.DownloadLinks[1].Index)
	assert.Equal(t, "restored_photo_1.jpg", res.DownloadLinks[0].Filename)
	assert.Equal(t, "restored_photo_2.jpg", res.DownloadLinks[1].Filename)
}

func TestDeliverSuccess(t *testing.T) {
	sender := &fakeSender{}
	ledger := &memLedger{}
	svc := newService(Options{Sender: sender, Ledger: ledger})

	res, err := svc.Deliver(context.Background(), twoImageRequest(true))
	require.NoError(t, err)
	assert.Equal(t, domain.Delivered, res.Outcome)
	assert.Equal(t, "em_1", res.EmailID)
	assert.True(t, res.Paid)
	assertTwoLinks(t, res)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "Receipt: Your 2 Revived Photos - Revive My Photo", sender.sent[0].Subject)
	assert.Contains(t, sender.sent[0].HTML, "$1.00")
	assert.Equal(t, domain.Delivered, ledger.records["pi_123"].Outcome)
}

func TestDeliverPaidNeverFails(t *testing.T) {
	for _, sendErr := range []error{
		&domain.ProviderError{Provider: "resend", Status: http.StatusTooManyRequests},
		&domain.ProviderError{Provider: "resend", Status: http.StatusUnauthorized},
		errors.New("connection reset"),
	} {
		svc := newService(Options{Sender: &fakeSender{err: sendErr}})
		res, err := svc.Deliver(context.Background(), twoImageRequest(true))
		require.NoError(t, err)
		assert.Equal(t, domain.DeliveredWithFallback, res.Outcome)
		assert.Equal(t, "pi_123", res.PaymentIntentID)
		assert.NotEmpty(t, res.ErrorKind)
		assertTwoLinks(t, res)
	}
}

func TestDeliverUnpaidSendFailureFails(t *testing.T) {
	svc := newService(Options{Sender: &fakeSender{err: &domain.ProviderError{Provider: "resend", Status: http.StatusTooManyRequests}}})
	res, err := svc.Deliver(context.Background(), twoImageRequest(false))
	require.NoError(t, err)
	assert.Equal(t, domain.DeliveryFailed, res.Outcome)
	assert.Equal(t, domain.KindProviderQuota, res.ErrorKind)
	assert.False(t, res.Paid)
}

func TestDeliverPaidClaimWithoutIntentIsUnpaid(t *testing.T) {
	req := twoImageRequest(false)
	req.Paid = true
	svc := newService(Options{Sender: &fakeSender{err: errors.New("down")}})
	res, err := svc.Deliver(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, domain.DeliveryFailed, res.Outcome)
}

func TestDeliverPaymentVerification(t *testing.T) {
	svc := newService(Options{Sender: &fakeSender{err: errors.New("down")}, Payments: fakeVerifier{paid: false}})
	res, err := svc.Deliver(context.Background(), twoImageRequest(true))
	require.NoError(t, err)
	assert.False(t, res.Paid)
	assert.Equal(t, domain.DeliveryFailed, res.Outcome)

	svc = newService(Options{Sender: &fakeSender{err: errors.New("down")}, Payments: fakeVerifier{err: errors.New("stripe down")}})
	res, err = svc.Deliver(context.Background(), twoImageRequest(true))
	require.NoError(t, err)
	assert.True(t, res.Paid)
	assert.Equal(t, domain.DeliveredWithFallback, res.Outcome)
}

func TestDeliverEmailDisabledIsDemoFallback(t *testing.T) {
	svc := newService(Options{})
	res, err := svc.Deliver(context.Background(), twoImageRequest(false))
	require.NoError(t, err)
	assert.Equal(t, domain.DeliveredWithFallback, res.Outcome)
	assert.Equal(t, ReasonEmailDisabled, res.Reason)
	assert.True(t, res.Demo)
	assertTwoLinks(t, res)
}

func TestDeliverUnverifiedRecipient(t *testing.T) {
	sender := &fakeSender{}
	svc := newService(Options{Sender: sender, AllowedRecipients: []string{"Owner@Example.com"}})
	res, err := svc.Deliver(context.Background(), twoImageRequest(false))
	require.NoError(t, err)
	assert.Equal(t, domain.DeliveredWithFallback, res.Outcome)
	assert.Equal(t, ReasonUnverifiedRecipient, res.Reason)
	assert.Empty(t, sender.sent)

	req := twoImageRequest(false)
	req.Email = "owner@example.com"
	res, err = svc.Deliver(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, domain.Delivered, res.Outcome)
}

func TestDeliverValidation(t *testing.T) {
	svc := newService(Options{Sender: &fakeSender{}})
	_, err := svc.Deliver(context.Background(), Request{Email: "not-an-email", RestoredImages: []string{"x"}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.Deliver(context.Background(), Request{Email: "ana@example.com"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDeliverPersistsRemoteImages(t *testing.T) {
	cdn := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("\x89PNG\r\n\x1a\n"))
	}))
	defer cdn.Close()

	store := storage.NewStore(memblob.OpenBucket(nil), "https://blob.example.com")
	defer store.Close()
	svc := newService(Options{
		Sender:  &fakeSender{},
		Blob:    store,
		Fetcher: localFetcher(1 << 20),
	})

	res, err := svc.Deliver(context.Background(), Request{
		Email:          "ana@example.com",
		RestoredImages: []string{cdn.URL + "/out.png", cdn.URL + "/missing.png", "data:image/png;base64,AAAA"},
		Filenames:      []string{"grandpa.png", "", "../../etc/x.png"},
	})
	require.NoError(t, err)
	require.Len(t, res.DownloadLinks, 3)
	assert.True(t, strings.HasPrefix(res.DownloadLinks[0].URL, "https://blob.example.com/restored/"))
	assert.True(t, strings.HasSuffix(res.DownloadLinks[0].URL, "_grandpa.png"))
	assert.Equal(t, cdn.URL+"/missing.png", res.DownloadLinks[1].URL)
	assert.Equal(t, "restored_photo_2.jpg", res.DownloadLinks[1].Filename)
	assert.Equal(t, "data:image/png;base64,AAAA", res.DownloadLinks[2].URL)
	assert.Equal(t, "x.png", res.DownloadLinks[2].Filename)
}

// localFetcher trusts httptest servers, which listen on loopback.
func localFetcher(maxBytes int64) *HTTPFetcher {
	return NewHTTPFetcher(FetcherOptions{
		Timeout:              time.Second,
		MaxBytes:             maxBytes,
		AllowedHosts:         []string{"127.0.0.1"},
		AllowPrivateNetworks: true,
	})
}

func TestFetcherEnforcesLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 56)...))
	}))
	defer srv.Close()

	_, _, err := localFetcher(16).Fetch(context.Background(), srv.URL)
	assert.Error(t, err)

	data, ct, err := localFetcher(0).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Len(t, data, 64)
	assert.Equal(t, "image/png", ct)
}

func TestFetcherRejectsHostsOutsideAllowlist(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		_, _ = w.Write([]byte("AWS_SECRET=hunter2"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(FetcherOptions{Timeout: time.Second, AllowedHosts: []string{"replicate.delivery"}})
	for _, raw := range []string{
		srv.URL + "/latest/meta-data",
		"http://169.254.169.254/latest/meta-data",
		"https://replicate.delivery.evil.test/x.png",
		"https://user@replicate.delivery/x.png",
		"file:///etc/passwd",
	} {
		_, _, err := f.Fetch(context.Background(), raw)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, raw)
	}
	assert.Zero(t, hits)
}

func TestFetcherRejectsPrivateAddresses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("\x89PNG\r\n\x1a\n"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(FetcherOptions{Timeout: time.Second, AllowedHosts: []string{"127.0.0.1"}})
	_, _, err := f.Fetch(context.Background(), srv.URL+"/out.png")
	assert.ErrorIs(t, err, ErrPrivateAddress)
}

func TestFetcherRejectsRedirectOffAllowlist(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "http://metadata.google.internal/computeMetadata/v1/", http.StatusFound)
	}))
	defer srv.Close()

	_, _, err := localFetcher(0).Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrHostNotAllowed)
}

func TestFetcherRejectsNonImageBodies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("AWS_SECRET=hunter2"))
	}))
	defer srv.Close()

	_, _, err := localFetcher(0).Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrNotImage)
}

func TestFetcherDecodesDataURL(t *testing.T) {
	f := NewHTTPFetcher(FetcherOptions{Timeout: time.Second})
	data, ct, err := f.Fetch(context.Background(), "data:image/png;base64,aGVsbG8=")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	assert.Equal(t, "image/png", ct)

	_, _, err = f.Fetch(context.Background(), "data:text/plain,hello")
	assert.Error(t, err)
}

func TestRecover(t *testing.T) {
	sender := &fakeSender{}
	ledger := &memLedger{records: map[string]domain.OrderRecord{
		"pi_9": {PaymentIntentID: "pi_9", Email: "Ana@Example.com", DownloadLinks: []domain.DownloadLink{{URL: "https://x/1.jpg", Filename: "1.jpg", Index: 1}}},
	}}
	svc := newService(Options{Sender: sender, Ledger: ledger})

	res, err := svc.Recover(context.Background(), "pi_9", "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, "pi_9", res.PaymentID)
	assert.Len(t, res.DownloadLinks, 1)
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].HTML, "Download Photo 1")

	res, err = svc.Recover(context.Background(), "pi_unknown", "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, mailer.RecoverySteps, res.NextSteps)

	_, err = newService(Options{}).Recover(context.Background(), "pi_9", "ana@example.com")
	assert.ErrorIs(t, err, domain.ErrEmailDisabled)
}

func TestRecoverWithholdsLinksFromOtherAddresses(t *testing.T) {
	owned := domain.OrderRecord{PaymentIntentID: "pi_9", Email: "owner@example.com", DownloadLinks: []domain.DownloadLink{{URL: "https://cdn/secret.jpg", Filename: "1.jpg", Index: 1}}}
	unowned := domain.OrderRecord{PaymentIntentID: "pi_10", DownloadLinks: owned.DownloadLinks}
	sender := &fakeSender{}
	svc := newService(Options{Sender: sender, Ledger: &memLedger{records: map[string]domain.OrderRecord{"pi_9": owned, "pi_10": unowned}}})

	for _, id := range []string{"pi_9", "pi_10"} {
		res, err := svc.Recover(context.Background(), id, "attacker@evil.test")
		require.NoError(t, err)
		assert.Empty(t, res.DownloadLinks, id)
		assert.Equal(t, mailer.RecoverySteps, res.NextSteps, id)
	}
	require.Len(t, sender.sent, 2)
	for _, msg := range sender.sent {
		assert.Equal(t, []string{"attacker@evil.test"}, msg.To)
		assert.NotContains(t, msg.HTML, "secret.jpg")
	}
}

func TestDeliverKeepsOrderOwnedByAnotherEmail(t *testing.T) {
	original := domain.OrderRecord{
		PaymentIntentID: "pi_123",
		Email:           "owner@example.com",
		Outcome:         domain.Delivered,
		DownloadLinks:   []domain.DownloadLink{{URL: "https://cdn/owner.jpg", Filename: "owner.jpg", Index: 1}},
	}
	ledger := &memLedger{records: map[string]domain.OrderRecord{"pi_123": original}}
	svc := newService(Options{Sender: &fakeSender{}, Ledger: ledger})

	res, err := svc.Deliver(context.Background(), twoImageRequest(true))
	require.NoError(t, err)
	assert.Equal(t, domain.Delivered, res.Outcome)
	assert.Equal(t, original, ledger.records["pi_123"])

	req := twoImageRequest(true)
	req.Email = "OWNER@example.com"
	_, err = svc.Deliver(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, ledger.records["pi_123"].DownloadLinks, 2)
}

func TestSendTest(t *testing.T) {
	sender := &fakeSender{}
	svc := newService(Options{Sender: sender})
	id, err := svc.SendTest(context.Background(), "ops@example.com", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "em_1", id)
	assert.Equal(t, []string{"ops@example.com"}, sender.sent[0].To)
}
