package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/google/uuid"
)

// MockGateway stands in for a real gateway in development. Callbacks are a
// JSON body signed with HMAC-SHA256 over the shared secret.
type MockGateway struct {
	secret  []byte
	baseURL string
}

type mockCallback struct {
	BookingID string `json:"booking_id"`
	Success   bool   `json:"success"`
	TxnID     string `json:"txn_id"`
}

func NewMockGateway(secret, baseURL string) *MockGateway {
	return &MockGateway{secret: []byte(secret), baseURL: baseURL}
}

func (g *MockGateway) BuildPaymentRequest(_ context.Context, bookingID uuid.UUID, amount int64, returnURL string) (string, error) {
	u, err := url.Parse(g.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid mock gateway url: %w", err)
	}
	q := u.Query()
	q.Set("booking_id", bookingID.String())
	q.Set("amount", fmt.Sprintf("%d", amount))
	q.Set("return_url", returnURL)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (g *MockGateway) Sign(payload []byte) string {
	mac := hmac.New(sha256.New, g.secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func (g *MockGateway) ParseCallback(payload []byte, signature string) (*Callback, error) {
	if !hmac.Equal([]byte(g.Sign(payload)), []byte(signature)) {
		return nil, ErrInvalidSignature
	}
	var body mockCallback
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("failed to parse callback: %w", err)
	}
	bookingID, err := uuid.Parse(body.BookingID)
	if err != nil {
		return nil, fmt.Errorf("invalid booking id in callback: %w", err)
	}
	return &Callback{BookingID: bookingID, Success: body.Success, GatewayTxnID: body.TxnID}, nil
}
