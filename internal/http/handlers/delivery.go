package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/sync/errgroup"

	"storefront/internal/delivery"
	"storefront/internal/domain"
	"storefront/internal/flow"
	"storefront/pkg/zip"
)

type sendEmailRequest struct {
	Email           string   `json:"email"`
	RestoredImages  []string `json:"restoredImages"`
	OriginalImages  []string `json:"originalImages"`
	Services        []string `json:"services"`
	Filenames       []string `json:"filenames"`
	PaymentIntentID string   `json:"paymentIntentId"`
	Paid            bool     `json:"paid"`
}

type sendEmailResponse struct {
	Success         bool                   `json:"success"`
	Outcome         domain.DeliveryOutcome `json:"outcome"`
	Message         string                 `json:"message"`
	EmailSent       bool                   `json:"emailSent"`
	EmailID         string                 `json:"emailId,omitempty"`
	Paid            bool                   `json:"paid"`
	PaymentIntentID string                 `json:"paymentIntentId,omitempty"`
	ImageURLs       []string               `json:"imageUrls,omitempty"`
	DownloadLinks   []domain.DownloadLink  `json:"downloadLinks"`
	DirectDownload  bool                   `json:"directDownload,omitempty"`
	Demo            bool                   `json:"demo,omitempty"`
	Notice          string                 `json:"notice,omitempty"`
	EmailError      string                 `json:"emailError,omitempty"`
	SupportMessage  string                 `json:"supportMessage,omitempty"`
	NextStep        flow.Step              `json:"nextStep"`
}

// SendEmail delivers restored photos. Paid orders always answer 200 with
// download links, whatever the email provider does.
func (a *App) SendEmail(w http.ResponseWriter, r *http.Request) {
	var req sendEmailRequest
	if err := a.decodeJSON(w, r, &req, a.maxUpload()*maxBatchImages*2); err != nil {
		a.fail(w, r, err, "Failed to process email request")
		return
	}
	if req.Email == "" || len(req.RestoredImages) == 0 {
		a.error(w, http.StatusBadRequest, domain.KindInvalidInput, "Missing required fields")
		return
	}

	result, err := a.Delivery.Deliver(r.Context(), delivery.Request{
		Email:           req.Email,
		RestoredImages:  req.RestoredImages,
		Filenames:       req.Filenames,
		Services:        domain.NewServices(req.Services),
		Paid:            req.Paid,
		PaymentIntentID: req.PaymentIntentID,
	})
	if err != nil {
		a.fail(w, r, err, "Failed to process email request")
		return
	}

	if result.Outcome == domain.DeliveryFailed {
		kind := result.ErrorKind
		if kind == "" {
			kind = domain.KindUnknown
		}
		a.json(w, kind.HTTPStatus(), map[string]any{
			"error":         "Failed to send email",
			"errorKind":     kind,
			"details":       result.Reason,
			"success":       false,
			"outcome":       result.Outcome,
			"downloadLinks": result.DownloadLinks,
		})
		return
	}

	step, _ := flow.Advance(flow.StepPayment, flow.EventPaid)
	a.json(w, http.StatusOK, deliveryResponse(req.Email, result, step))
}

func deliveryResponse(email string, res *domain.DeliveryResult, step flow.Step) sendEmailResponse {
	resp := sendEmailResponse{
		Success:         true,
		Outcome:         res.Outcome,
		Paid:            res.Paid,
		PaymentIntentID: res.PaymentIntentID,
		DownloadLinks:   res.DownloadLinks,
		Demo:            res.Demo,
		NextStep:        step,
	}
	confirmed := ""
	if res.Paid {
		confirmed = "Payment confirmed! "
	}

	if res.Outcome == domain.Delivered {
		resp.EmailSent = true
		resp.EmailID = res.EmailID
		resp.Message = fmt.Sprintf("%sEmail sent successfully to %s! Check your inbox for %s professionally restored.",
			confirmed, email, pluralPhotos(len(res.DownloadLinks)))
		resp.ImageURLs = make([]string, len(res.DownloadLinks))
		for i, link := range res.DownloadLinks {
			resp.ImageURLs[i] = link.URL
		}
		return resp
	}

	resp.DirectDownload = true
	switch res.Reason {
	case delivery.ReasonEmailDisabled:
		if res.Paid {
			resp.Message = "Payment confirmed! Email service configuration issue - your photos are ready for download. Payment ID: " + res.PaymentIntentID
		} else {
			resp.Message = "Demo mode: email delivery is not configured. Your photos are ready for download."
		}
		resp.Notice = "Email service needs configuration. Your photos are available for immediate download above."
	case delivery.ReasonUnverifiedRecipient:
		resp.Message = confirmed + "Email delivery is limited to verified recipients. Your photos are ready for download."
		resp.Notice = "Your photos are available for immediate download above."
	default:
		resp.Message = confirmed + "Email delivery failed, but your photos are ready for download."
		if res.Paid {
			resp.Message += " Payment ID: " + res.PaymentIntentID
		}
		resp.EmailError = res.Reason
		resp.Notice = "Email service temporarily unavailable. Your photos are available for immediate download above."
	}
	if res.Paid {
		resp.SupportMessage = "Contact support with Payment ID: " + res.PaymentIntentID
	}
	return resp
}

type recoverRequest struct {
	PaymentIntentID string `json:"paymentIntentId"`
	Email           string `json:"email"`
}

// RecoverPayment re-sends a paid order's photos, or a manual recovery
// notice when the ledger has none.
func (a *App) RecoverPayment(w http.ResponseWriter, r *http.Request) {
	var req recoverRequest
	if err := a.decodeJSON(w, r, &req, 16<<10); err != nil {
		a.fail(w, r, err, "Failed to send recovery email")
		return
	}
	fallback := "Contact support directly with payment ID: " + req.PaymentIntentID

	res, err := a.Delivery.Recover(r.Context(), req.PaymentIntentID, req.Email)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			a.json(w, http.StatusBadRequest, map[string]any{
				"error": err.Error(), "errorKind": domain.KindInvalidInput, "success": false,
			})
		case errors.Is(err, domain.ErrEmailDisabled):
			a.json(w, http.StatusInternalServerError, map[string]any{
				"error": "Email service not configured", "fallback": fallback, "success": false,
			})
		default:
			a.log(r).Error().Err(err).Str("payment_intent_id", req.PaymentIntentID).Msg("recovery email failed")
			a.json(w, http.StatusInternalServerError, map[string]any{
				"error":     "Failed to send recovery email",
				"errorKind": domain.Classify(err),
				"details":   err.Error(),
				"fallback":  fallback,
				"success":   false,
			})
		}
		return
	}
	body := map[string]any{
		"success":   true,
		"message":   "Recovery email sent successfully",
		"emailId":   res.EmailID,
		"paymentId": res.PaymentID,
		"nextSteps": res.NextSteps,
	}
	if len(res.DownloadLinks) > 0 {
		body["downloadLinks"] = res.DownloadLinks
	}
	a.json(w, http.StatusOK, body)
}

type downloadZipRequest struct {
	RestoredImages []string `json:"restoredImages"`
	Filenames      []string `json:"filenames"`
}

// DownloadZip bundles restored photos into a single archive.
func (a *App) DownloadZip(w http.ResponseWriter, r *http.Request) {
	var req downloadZipRequest
	if err := a.decodeJSON(w, r, &req, a.maxUpload()*maxBatchImages*2); err != nil {
		a.fail(w, r, err, "Failed to build archive")
		return
	}
	if len(req.RestoredImages) == 0 {
		a.error(w, http.StatusBadRequest, domain.KindInvalidInput, "Missing required fields")
		return
	}
	if len(req.RestoredImages) > maxBatchImages {
		a.error(w, http.StatusBadRequest, domain.KindInvalidInput, "Too many images in one archive")
		return
	}

	assets := make([]zip.Asset, len(req.RestoredImages))
	g, ctx := errgroup.WithContext(r.Context())
	g.SetLimit(4)
	for i, src := range req.RestoredImages {
		g.Go(func() error {
			data, _, err := a.Fetcher.Fetch(ctx, src)
			if err != nil {
				return fmt.Errorf("image %d: %w", i+1, err)
			}
			name := ""
			if i < len(req.Filenames) {
				name = req.Filenames[i]
			}
			assets[i] = zip.Asset{Filename: name, Data: data}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		a.log(r).Warn().Err(err).Msg("zip download fetch failed")
		if errors.Is(err, domain.ErrInvalidInput) {
			a.error(w, http.StatusBadRequest, domain.KindInvalidInput, err.Error())
			return
		}
		a.json(w, http.StatusBadGateway, errorResponse{Error: "Failed to download restored images", Details: err.Error()})
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="revived-photos.zip"`)
	if err := zip.Write(w, assets, a.now()); err != nil {
		a.log(r).Error().Err(err).Msg("write zip archive")
	}
}
