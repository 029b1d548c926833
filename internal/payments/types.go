package payments

type PaymentRequest struct {
	TransactionID string
	AmountCents   int64
	Currency      string
	Plan          string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
}

type PaymentResponse struct {
	PaymentURL string
	Data       map[string]string // provider handles, e.g. the checkout token
}

type PaymentVerifyRequest struct {
	TransactionID string
	Data          map[string]string
}

type PaymentVerifyResponse struct {
	Success bool
	// State is the provider's own status string, kept for support tooling.
	State string
	// Terminal reports whether the payment can still change state.
	Terminal    bool
	ProviderRef string
	Raw         map[string]any
}
