package pay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cafehub/apperr"
)

// Zarinpal v4 result codes: 100 paid, 101 already verified.
const (
	codeOK       = 100
	codeVerified = 101
)

// Gateway talks to a Zarinpal v4 compatible payment gateway.
type Gateway struct {
	MerchantID string
	RequestURL string
	VerifyURL  string
	StartURL   string
	Client     *http.Client
}

func NewGateway(merchantID, requestURL, verifyURL, startURL string) *Gateway {
	return &Gateway{
		MerchantID: merchantID,
		RequestURL: requestURL,
		VerifyURL:  verifyURL,
		StartURL:   startURL,
		Client:     &http.Client{Timeout: 30 * time.Second},
	}
}

type gatewayReply struct {
	Data struct {
		Code      int    `json:"code"`
		Message   string `json:"message"`
		Authority string `json:"authority"`
		RefID     int64  `json:"ref_id"`
	} `json:"data"`
	Errors json.RawMessage `json:"errors"`
}

type gatewayError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// failure returns the gateway's error message, or "" when the reply has none.
// An empty errors value is encoded as [] by the gateway.
func (r *gatewayReply) failure() string {
	raw := strings.TrimSpace(string(r.Errors))
	if raw == "" || raw == "null" || raw == "[]" || raw == "{}" {
		return ""
	}
	var e gatewayError
	if err := json.Unmarshal(r.Errors, &e); err == nil && e.Message != "" {
		return e.Message
	}
	return "payment gateway rejected the request"
}

func (g *Gateway) post(ctx context.Context, url string, body any) (*gatewayReply, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.Client.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, err, "payment gateway not reachable")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, err, "payment gateway not reachable")
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, apperr.New(apperr.KindUnavailable, "payment gateway sent an empty reply")
	}
	var out gatewayReply
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, err, "payment gateway sent an invalid reply")
	}
	return &out, nil
}

// Request opens a payment and returns its authority.
func (g *Gateway) Request(ctx context.Context, amount int64, callbackURL, description string) (string, error) {
	reply, err := g.post(ctx, g.RequestURL, map[string]any{
		"merchant_id":  g.MerchantID,
		"amount":       amount,
		"callback_url": callbackURL,
		"description":  description,
	})
	if err != nil {
		return "", err
	}
	if msg := reply.failure(); msg != "" {
		return "", apperr.Validation("%s", msg)
	}
	if reply.Data.Code != codeOK || reply.Data.Authority == "" {
		return "", apperr.Validation("payment request was not accepted (code %d)", reply.Data.Code)
	}
	return reply.Data.Authority, nil
}

// Verify confirms a payment and returns the gateway reference id.
func (g *Gateway) Verify(ctx context.Context, amount int64, authority string) (string, error) {
	reply, err := g.post(ctx, g.VerifyURL, map[string]any{
		"merchant_id": g.MerchantID,
		"amount":      amount,
		"authority":   authority,
	})
	if err != nil {
		return "", err
	}
	if msg := reply.failure(); msg != "" {
		return "", apperr.Validation("%s", msg)
	}
	if reply.Data.Code != codeOK && reply.Data.Code != codeVerified {
		return "", apperr.Validation("payment was not confirmed (code %d)", reply.Data.Code)
	}
	return fmt.Sprint(reply.Data.RefID), nil
}

func (g *Gateway) PaymentURL(authority string) string {
	return g.StartURL + authority
}
