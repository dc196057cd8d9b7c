package handlers

import (
	"errors"
	"io"
	"net/http"
	"path"
	"strings"

	"storefront/internal/diagnostics"
	"storefront/internal/domain"
	"storefront/internal/middleware"
	"storefront/internal/restore"
)

// CheckDNS reports whether the sending domain's records are in place.
func (a *App) CheckDNS(w http.ResponseWriter, r *http.Request) {
	if a.DNS == nil {
		a.error(w, http.StatusServiceUnavailable, "", "sender domain is not configured")
		return
	}
	a.json(w, http.StatusOK, a.DNS.Check(r.Context()))
}

// SenderDomain shows the email provider's records for the sending domain,
// or ?domain= when given.
func (a *App) SenderDomain(w http.ResponseWriter, r *http.Request) {
	if a.Domains == nil {
		a.error(w, http.StatusServiceUnavailable, "", domain.ErrEmailDisabled.Error())
		return
	}
	name := strings.TrimSpace(r.URL.Query().Get("domain"))
	if name == "" {
		name = a.Config.SenderDomain
	}
	report, err := diagnostics.SenderDomain(r.Context(), a.Domains, name)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		a.json(w, http.StatusNotFound, map[string]any{
			"success":          false,
			"error":            report.Message,
			"availableDomains": report.AvailableDomains,
		})
	case err != nil:
		a.fail(w, r, err, "Failed to load sender domain")
	default:
		a.json(w, http.StatusOK, map[string]any{
			"success":    true,
			"domain":     report.Domain,
			"dkimRecord": report.DKIM,
			"message":    report.Message,
		})
	}
}

type testEmailRequest struct {
	Email string `json:"email"`
}

// TestEmail sends a connectivity check through the email provider.
func (a *App) TestEmail(w http.ResponseWriter, r *http.Request) {
	var req testEmailRequest
	if err := a.decodeJSON(w, r, &req, 4<<10); err != nil {
		a.fail(w, r, err, "Failed to send test email")
		return
	}
	id, err := a.Delivery.SendTest(r.Context(), req.Email, a.now())
	if err != nil {
		if errors.Is(err, domain.ErrEmailDisabled) {
			a.error(w, http.StatusServiceUnavailable, "", err.Error())
			return
		}
		a.fail(w, r, err, "Failed to send test email")
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"success": true,
		"emailId": id,
		"message": "Test email sent to " + req.Email,
	})
}

// BlobUpload stores a marketing asset (demo GIFs, sample photos) under
// demos/ and returns its public URL.
func (a *App) BlobUpload(w http.ResponseWriter, r *http.Request) {
	if a.Blob == nil {
		a.error(w, http.StatusServiceUnavailable, "", domain.ErrBlobDisabled.Error())
		return
	}
	if err := a.parseMultipart(w, r, 1); err != nil {
		a.fail(w, r, err, "Failed to upload file")
		return
	}
	file, hdr, err := r.FormFile("file")
	if err != nil {
		a.error(w, http.StatusBadRequest, domain.KindInvalidInput, "No file provided")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, a.maxUpload()+1))
	if err != nil || int64(len(data)) > a.maxUpload() {
		a.error(w, http.StatusBadRequest, domain.KindInvalidInput, "File is too large")
		return
	}
	contentType, ok := restore.SniffMIME(data)
	if !ok {
		a.error(w, http.StatusBadRequest, domain.KindInvalidInput, "unsupported image format")
		return
	}

	key := "demos/" + path.Base(strings.ReplaceAll(hdr.Filename, "\\", "/"))
	url, err := a.Blob.Put(r.Context(), key, data, contentType)
	if err != nil {
		a.fail(w, r, err, "Failed to upload file")
		return
	}
	a.log(r).Info().
		Str("key", key).
		Int("bytes", len(data)).
		Str("admin", middleware.AdminSubjectFromContext(r.Context())).
		Msg("blob asset uploaded")
	a.json(w, http.StatusOK, map[string]any{
		"success": true,
		"url":     url,
		"key":     key,
	})
}
