package handlers

import (
	"errors"
	"net/http"

	"storefront/internal/domain"
	"storefront/internal/flow"
	"storefront/internal/middleware"
	"storefront/internal/payments"
)

type createIntentRequest struct {
	Amount     float64  `json:"amount"`
	PhotoCount int      `json:"photoCount"`
	Services   []string `json:"services"`
	Email      string   `json:"email"`
}

type createIntentResponse struct {
	ClientSecret    string    `json:"clientSecret"`
	PaymentIntentID string    `json:"paymentIntentId"`
	Amount          int64     `json:"amount"`
	Currency        string    `json:"currency"`
	NextStep        flow.Step `json:"nextStep"`
}

func (a *App) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	if !a.Payments.Enabled() {
		a.json(w, http.StatusBadRequest, map[string]any{
			"error":      "Payment processing is not configured. Please add Stripe environment variables to enable payments.",
			"configured": false,
			"success":    false,
			"debug": map[string]bool{
				"hasSecretKey":      a.Config.StripeSecretKey != "",
				"hasPublishableKey": a.Config.StripePublishableKey != "",
			},
		})
		return
	}

	var req createIntentRequest
	if err := a.decodeJSON(w, r, &req, 64<<10); err != nil {
		a.fail(w, r, err, "Failed to create payment intent")
		return
	}
	if req.PhotoCount == 0 {
		a.error(w, http.StatusBadRequest, domain.KindInvalidInput, "Missing required fields")
		return
	}

	intent, err := a.Payments.CreateIntent(r.Context(), payments.CreateRequest{
		Amount:         req.Amount,
		PhotoCount:     req.PhotoCount,
		Services:       domain.NewServices(req.Services),
		Email:          req.Email,
		Country:        middleware.CountryFromContext(r.Context()),
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	})
	if err != nil {
		if errors.Is(err, domain.ErrPaymentsDisabled) {
			a.error(w, http.StatusBadRequest, "", err.Error())
			return
		}
		a.fail(w, r, err, "Failed to create payment intent")
		return
	}
	step, _ := flow.Advance(flow.StepPreview, flow.EventCheckout)
	a.json(w, http.StatusOK, createIntentResponse{
		ClientSecret:    intent.ClientSecret,
		PaymentIntentID: intent.ID,
		Amount:          intent.AmountCents,
		Currency:        intent.Currency,
		NextStep:        step,
	})
}
