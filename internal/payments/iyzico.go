package payments

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type IyzicoAdapter struct {
	APIKey       string
	SecretKey    string
	CallbackURL  string
	IsProduction bool
	httpClient   *http.Client
}

func NewIyzicoAdapter(apiKey, secretKey, callbackURL string, isProd bool) *IyzicoAdapter {
	return &IyzicoAdapter{
		APIKey:       apiKey,
		SecretKey:    secretKey,
		CallbackURL:  callbackURL,
		IsProduction: isProd,
		httpClient:   http.DefaultClient,
	}
}

func (i *IyzicoAdapter) baseURL() string {
	if i.IsProduction {
		return "https://api.iyzipay.com"
	}
	return "https://sandbox-api.iyzipay.com"
}

// authorization builds the IYZWSv2 header: HMAC-SHA256 over
// randomKey + uriPath + body, keyed with the secret key.
func (i *IyzicoAdapter) authorization(uriPath string, body []byte) (string, string) {
	randomKey := uuid.New().String()

	mac := hmac.New(sha256.New, []byte(i.SecretKey))
	mac.Write([]byte(randomKey + uriPath))
	mac.Write(body)
	signature := hex.EncodeToString(mac.Sum(nil))

	payload := fmt.Sprintf("apiKey:%s&randomKey:%s&signature:%s", i.APIKey, randomKey, signature)
	header := "IYZWSv2 " + base64.StdEncoding.EncodeToString([]byte(payload))
	return header, randomKey
}

func (i *IyzicoAdapter) post(ctx context.Context, uriPath string, payload any) (int, []byte, error) {
	body, _ := json.Marshal(payload)

	header, randomKey := i.authorization(uriPath, body)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, i.baseURL()+uriPath, bytes.NewBuffer(body))
	if err != nil {
		return 0, nil, err
	}
	httpReq.Header.Set("Authorization", header)
	httpReq.Header.Set("x-iyzi-rnd", randomKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := i.httpClient.Do(httpReq)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, raw, nil
}

func (i *IyzicoAdapter) InitiatePayment(ctx context.Context, req PaymentRequest) (PaymentResponse, error) {
	// iyzico wants decimal strings, our repos store kuruş.
	price := fmt.Sprintf("%d.%02d", req.AmountCents/100, req.AmountCents%100)

	currency := req.Currency
	if currency == "" {
		currency = "TRY"
	}

	payload := map[string]any{
		"locale":         "tr",
		"conversationId": req.TransactionID,
		"price":          price,
		"paidPrice":      price,
		"currency":       currency,
		"basketId":       req.TransactionID,
		"paymentGroup":   "SUBSCRIPTION",
		"callbackUrl":    i.CallbackURL,
		"buyer": map[string]string{
			"id":                  req.TransactionID,
			"name":                req.CustomerName,
			"surname":             req.CustomerName,
			"email":               req.CustomerEmail,
			"gsmNumber":           req.CustomerPhone,
			"identityNumber":      "11111111111",
			"registrationAddress": "Türkiye",
			"city":                "Istanbul",
			"country":             "Turkey",
		},
		"basketItems": []map[string]string{
			{
				"id":        req.Plan,
				"name":      req.Plan + " aboneliği",
				"category1": "subscription",
				"itemType":  "VIRTUAL",
				"price":     price,
			},
		},
	}

	status, raw, err := i.post(ctx, "/payment/iyzipos/checkoutform/initialize/auth/ecom", payload)
	if err != nil {
		return PaymentResponse{}, fmt.Errorf("iyzico initialize request: %w", err)
	}

	var res struct {
		Status         string `json:"status"`
		ErrorMessage   string `json:"errorMessage"`
		Token          string `json:"token"`
		PaymentPageURL string `json:"paymentPageUrl"`
	}
	if err := json.Unmarshal(raw, &res); err != nil {
		return PaymentResponse{}, fmt.Errorf("iyzico initialize decode: %w body=%s", err, string(raw))
	}

	if status != http.StatusOK || !strings.EqualFold(res.Status, "success") {
		return PaymentResponse{}, fmt.Errorf("iyzico initialize failed: http=%d status=%s message=%s", status, res.Status, res.ErrorMessage)
	}

	return PaymentResponse{
		PaymentURL: res.PaymentPageURL,
		Data: map[string]string{
			"token":            res.Token,
			"payment_page_url": res.PaymentPageURL,
		},
	}, nil
}

func (i *IyzicoAdapter) VerifyPayment(ctx context.Context, req PaymentVerifyRequest) (PaymentVerifyResponse, error) {
	token := strings.TrimSpace(req.Data["token"])
	if token == "" {
		return PaymentVerifyResponse{}, fmt.Errorf("iyzico verify requires token")
	}

	payload := map[string]string{
		"locale":         "tr",
		"conversationId": req.TransactionID,
		"token":          token,
	}

	status, raw, err := i.post(ctx, "/payment/iyzipos/checkoutform/auth/ecom/detail", payload)
	if err != nil {
		return PaymentVerifyResponse{}, fmt.Errorf("iyzico retrieve request: %w", err)
	}

	var res struct {
		Status        string `json:"status"`
		PaymentStatus string `json:"paymentStatus"` // SUCCESS, FAILURE, INIT_THREEDS, CALLBACK_THREEDS
		PaymentID     any    `json:"paymentId"`
		ErrorMessage  string `json:"errorMessage"`
	}
	if err := json.Unmarshal(raw, &res); err != nil {
		return PaymentVerifyResponse{}, fmt.Errorf("iyzico retrieve decode: http=%d err=%w body=%s", status, err, string(raw))
	}

	state := strings.TrimSpace(res.PaymentStatus)
	success := strings.EqualFold(res.Status, "success") && strings.EqualFold(state, "SUCCESS")

	terminal := false
	switch strings.ToUpper(state) {
	case "SUCCESS", "FAILURE":
		terminal = true
	}

	return PaymentVerifyResponse{
		Success:     success,
		State:       state,
		Terminal:    terminal,
		ProviderRef: fmt.Sprintf("%v", res.PaymentID),
		Raw: map[string]any{
			"http_status": status,
			"body":        json.RawMessage(raw),
		},
	}, nil
}
