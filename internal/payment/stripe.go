package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/webhook"

	"stationrent-backend/internal/logger"
)

const (
	eventSessionCompleted     = "checkout.session.completed"
	eventSessionExpired       = "checkout.session.expired"
	eventAsyncPaymentFailed   = "checkout.session.async_payment_failed"
	eventAsyncPaymentSucceded = "checkout.session.async_payment_succeeded"
)

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	Currency      string
	ProductName   string
}

// StripeGateway collects deposits through Stripe Checkout and learns the
// outcome from signed webhooks.
type StripeGateway struct {
	cfg        StripeConfig
	newSession func(*stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

func NewStripeGateway(cfg StripeConfig) *StripeGateway {
	stripe.Key = cfg.SecretKey
	if cfg.Currency == "" {
		cfg.Currency = "vnd"
	}
	if cfg.ProductName == "" {
		cfg.ProductName = "Vehicle rental deposit"
	}
	return &StripeGateway{cfg: cfg, newSession: session.New}
}

func (g *StripeGateway) BuildPaymentRequest(ctx context.Context, bookingID uuid.UUID, amount int64, returnURL string) (string, error) {
	success, err := withQuery(returnURL, "session_id", "{CHECKOUT_SESSION_ID}")
	if err != nil {
		return "", err
	}
	cancel, err := withQuery(returnURL, "cancelled", "1")
	if err != nil {
		return "", err
	}

	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(g.cfg.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(g.cfg.ProductName),
					},
					UnitAmount: stripe.Int64(amount),
				},
				Quantity: stripe.Int64(1),
			},
		},
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		ClientReferenceID: stripe.String(bookingID.String()),
		SuccessURL:        stripe.String(success),
		CancelURL:         stripe.String(cancel),
	}
	params.Context = ctx
	params.AddMetadata("booking_id", bookingID.String())

	logger.ExternalServiceCall("stripe", "checkout.session.create", "bookingID", bookingID, "amount", amount)
	sess, err := g.newSession(params)
	logger.ExternalServiceResult("stripe", "checkout.session.create", err, "bookingID", bookingID)
	if err != nil {
		return "", fmt.Errorf("failed to create checkout session: %w", err)
	}
	return sess.URL, nil
}

func (g *StripeGateway) ParseCallback(payload []byte, signature string) (*Callback, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.cfg.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	var success bool
	switch event.Type {
	case eventSessionCompleted, eventAsyncPaymentSucceded:
		success = true
	case eventSessionExpired, eventAsyncPaymentFailed:
		success = false
	default:
		return nil, ErrIgnoredEvent
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, fmt.Errorf("failed to parse checkout session: %w", err)
	}
	if event.Type == eventSessionCompleted {
		// Delayed methods complete the session before the money arrives.
		if sess.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
			return nil, ErrIgnoredEvent
		}
		success = true
	}

	bookingID, err := uuid.Parse(sess.ClientReferenceID)
	if err != nil {
		return nil, fmt.Errorf("checkout session %s has no booking reference: %w", sess.ID, err)
	}

	txnID := sess.ID
	if sess.PaymentIntent != nil && sess.PaymentIntent.ID != "" {
		txnID = sess.PaymentIntent.ID
	}
	return &Callback{BookingID: bookingID, Success: success, GatewayTxnID: txnID}, nil
}

// withQuery appends without re-encoding so Stripe's {CHECKOUT_SESSION_ID}
// placeholder reaches it verbatim.
func withQuery(raw, key, value string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid return url %q", raw)
	}
	sep := "?"
	if u.RawQuery != "" {
		sep = "&"
	}
	return raw + sep + key + "=" + value, nil
}
