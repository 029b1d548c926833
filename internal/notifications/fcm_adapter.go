package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const fcmSendURL = "https://fcm.googleapis.com/fcm/send"

// FCMProvider delivers to web push tokens through the FCM HTTP API. It
// handles every token the Expo provider does not claim.
type FCMProvider struct {
	serverKey  string
	endpoint   string
	httpClient *http.Client
}

var _ Provider = (*FCMProvider)(nil)

func NewFCMProvider(serverKey string) *FCMProvider {
	return &FCMProvider{
		serverKey:  serverKey,
		endpoint:   fcmSendURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *FCMProvider) Name() string { return "fcm" }

func (p *FCMProvider) Matches(token string) bool {
	// web tokens have no stable prefix; FCM is the catch-all after Expo
	return token != ""
}

func (p *FCMProvider) Send(ctx context.Context, token, title, body string, data map[string]string) error {
	return p.send(ctx, token, title, body, data, false)
}

// Validate does a dry-run send: FCM checks the token without delivering.
func (p *FCMProvider) Validate(ctx context.Context, token string) error {
	return p.send(ctx, token, "", "", nil, true)
}

func (p *FCMProvider) send(ctx context.Context, token, title, body string, data map[string]string, dryRun bool) error {
	payload := map[string]any{
		"to":      token,
		"dry_run": dryRun,
	}
	if !dryRun {
		payload["notification"] = map[string]string{
			"title": title,
			"body":  body,
		}
		if len(data) > 0 {
			payload["data"] = data
		}
	}

	raw, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("fcm request: %w", err)
	}
	req.Header.Set("Authorization", "key="+p.serverKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fcm send: %w", err)
	}
	defer resp.Body.Close()

	rawResp, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fcm send failed: http=%d body=%s", resp.StatusCode, string(rawResp))
	}

	var res struct {
		Success int `json:"success"`
		Failure int `json:"failure"`
		Results []struct {
			Error string `json:"error"`
		} `json:"results"`
	}
	if err := json.Unmarshal(rawResp, &res); err != nil {
		return fmt.Errorf("fcm send decode: %w body=%s", err, string(rawResp))
	}

	if res.Failure > 0 && len(res.Results) > 0 {
		switch res.Results[0].Error {
		case "NotRegistered", "InvalidRegistration", "MismatchSenderId":
			return ErrTokenInvalid
		default:
			return fmt.Errorf("fcm send rejected: %s", res.Results[0].Error)
		}
	}
	return nil
}
