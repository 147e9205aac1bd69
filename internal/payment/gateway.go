// Package payment adapts external payment gateways to the booking engine.
// The engine only sees Gateway and never builds URLs or signatures itself.
package payment

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrInvalidSignature = errors.New("invalid callback signature")
	// ErrIgnoredEvent marks a well-formed callback that carries no payment
	// outcome, e.g. an unrelated webhook type.
	ErrIgnoredEvent = errors.New("callback carries no payment outcome")
)

type Callback struct {
	BookingID    uuid.UUID
	Success      bool
	GatewayTxnID string
}

type Gateway interface {
	BuildPaymentRequest(ctx context.Context, bookingID uuid.UUID, amount int64, returnURL string) (string, error)
	ParseCallback(payload []byte, signature string) (*Callback, error)
}
