// player/payments/events.go
package payments

import (
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v76"
)

// Stripe event types the handler understands.
const (
	typeCheckoutCompleted = "checkout.session.completed"
	typePaymentSucceeded  = "payment_intent.succeeded"
	typeChargeSucceeded   = "charge.succeeded"
	typePaymentFailed     = "payment_intent.payment_failed"
)

// webhookEvent is the closed set of events decodeEvent produces.
type webhookEvent interface {
	kind() string
}

type checkoutCompleted struct {
	session stripe.CheckoutSession
}

type paymentSucceeded struct {
	intent stripe.PaymentIntent
}

type chargeSucceeded struct {
	charge stripe.Charge
}

type paymentFailed struct {
	intent stripe.PaymentIntent
}

type unhandledEvent struct {
	eventType string
}

func (checkoutCompleted) kind() string { return typeCheckoutCompleted }
func (paymentSucceeded) kind() string  { return typePaymentSucceeded }
func (chargeSucceeded) kind() string   { return typeChargeSucceeded }
func (paymentFailed) kind() string     { return typePaymentFailed }
func (e unhandledEvent) kind() string  { return e.eventType }

func decodeEvent(event stripe.Event) (webhookEvent, error) {
	var raw json.RawMessage
	if event.Data != nil {
		raw = event.Data.Raw
	}

	switch string(event.Type) {
	case typeCheckoutCompleted:
		var e checkoutCompleted
		if err := decodeObject(raw, &e.session); err != nil {
			return nil, err
		}
		return e, nil
	case typePaymentSucceeded:
		var e paymentSucceeded
		if err := decodeObject(raw, &e.intent); err != nil {
			return nil, err
		}
		return e, nil
	case typeChargeSucceeded:
		var e chargeSucceeded
		if err := decodeObject(raw, &e.charge); err != nil {
			return nil, err
		}
		return e, nil
	case typePaymentFailed:
		var e paymentFailed
		if err := decodeObject(raw, &e.intent); err != nil {
			return nil, err
		}
		return e, nil
	default:
		return unhandledEvent{eventType: string(event.Type)}, nil
	}
}

func decodeObject(raw json.RawMessage, dst interface{}) error {
	if len(raw) == 0 {
		return fmt.Errorf("event has no data object")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("failed to decode event object: %w", err)
	}
	return nil
}
