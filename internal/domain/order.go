package domain

import "time"

// RestorationJob is the result of one restore request.
type RestorationJob struct {
	Filename      string   `json:"filename,omitempty"`
	OriginalImage string   `json:"originalImage"`
	RestoredImage string   `json:"restoredImage"`
	Model         string   `json:"model"`
	Services      Services `json:"services"`
	Demo          bool     `json:"demo"`
	Fallback      bool     `json:"fallback,omitempty"`
	Message       string   `json:"message,omitempty"`
}

// PaymentIntent is the processor-side handle for a pending payment.
type PaymentIntent struct {
	ID           string `json:"paymentIntentId"`
	ClientSecret string `json:"clientSecret"`
	AmountCents  int64  `json:"amount"`
	Currency     string `json:"currency"`
}

// DownloadLink points the customer at one delivered image. Index is 1-based.
type DownloadLink struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Index    int    `json:"index"`
}

// DeliveryOutcome is the closed set of delivery results.
type DeliveryOutcome string

const (
	Delivered             DeliveryOutcome = "delivered"
	DeliveredWithFallback DeliveryOutcome = "delivered_with_fallback"
	DeliveryFailed        DeliveryOutcome = "failed"
)

// DeliveryResult carries the outcome plus everything the client needs to
// recover the images without email.
type DeliveryResult struct {
	Outcome         DeliveryOutcome `json:"outcome"`
	EmailID         string          `json:"emailId,omitempty"`
	Reason          string          `json:"reason,omitempty"`
	DownloadLinks   []DownloadLink  `json:"downloadLinks"`
	Paid            bool            `json:"paid"`
	PaymentIntentID string          `json:"paymentIntentId,omitempty"`
	Demo            bool            `json:"demo,omitempty"`
	ErrorKind       Kind            `json:"errorKind,omitempty"`
}

// Email is a fully composed message ready for the provider.
type Email struct {
	From    string
	To      []string
	Subject string
	HTML    string
}

// OrderRecord is the ledger's view of one paid order.
type OrderRecord struct {
	PaymentIntentID string
	Email           string
	AmountCents     int64
	Currency        string
	PhotoCount      int
	Services        Services
	Outcome         DeliveryOutcome
	DownloadLinks   []DownloadLink
	EmailID         string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IntentParams is what the payment processor needs to open an intent.
type IntentParams struct {
	AmountCents    int64
	Currency       string
	Description    string
	ReceiptEmail   string
	Metadata       map[string]string
	IdempotencyKey string
}

// PaymentStatus is the processor-side state of an intent.
type PaymentStatus string

const PaymentSucceeded PaymentStatus = "succeeded"
