// player/payments/gateway.go
package payments

import (
	"context"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
	"go.uber.org/zap"

	"github.com/Ftotnem/RPS64-SERVICES/player/service"
	"github.com/Ftotnem/RPS64-SERVICES/shared/auth"
	"github.com/Ftotnem/RPS64-SERVICES/shared/models"
)

// Purpose says what a checkout payment buys. It travels in the session metadata.
type Purpose string

const (
	PurposePass  Purpose = "pass"  // a pass on the paid tier
	PurposeQueue Purpose = "queue" // a seat in the tournament queue
)

// Metadata keys set on every checkout session.
const (
	MetadataUID     = "uid"
	MetadataTier    = "tier"
	MetadataPurpose = "purpose"
)

// SessionCreator creates Stripe checkout sessions. session.Client satisfies it.
type SessionCreator interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// NewStripeSessionCreator returns a checkout session client bound to secretKey.
func NewStripeSessionCreator(secretKey string) SessionCreator {
	return session.Client{B: stripe.GetBackend(stripe.APIBackend), Key: secretKey}
}

// CheckoutGateway starts Stripe checkout for a tier purchase.
type CheckoutGateway struct {
	sessions    SessionCreator
	priceIDs    map[models.Tier]string
	frontendURL string
	logger      *zap.Logger
}

func NewCheckoutGateway(sessions SessionCreator, priceIDs map[string]string, frontendURL string, logger *zap.Logger) *CheckoutGateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	prices := make(map[models.Tier]string, len(priceIDs))
	for tier, id := range priceIDs {
		if id != "" {
			prices[models.Tier(tier)] = id
		}
	}
	return &CheckoutGateway{
		sessions:    sessions,
		priceIDs:    prices,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		logger:      logger,
	}
}

// CreateCheckoutSession returns the hosted checkout URL for tier.
func (g *CheckoutGateway) CreateCheckoutSession(ctx context.Context, id auth.Identity, tier models.Tier, purpose Purpose) (string, error) {
	if _, ok := models.LookupTier(tier); !ok {
		return "", service.ErrInvalidTier
	}
	priceID, ok := g.priceIDs[tier]
	if !ok {
		return "", fmt.Errorf("%w: no price configured for %s", service.ErrInvalidTier, tier)
	}
	if purpose == "" {
		purpose = PurposePass
	}
	if purpose != PurposePass && purpose != PurposeQueue {
		return "", fmt.Errorf("%w: purpose must be pass or queue", service.ErrInvalidInput)
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(priceID), Quantity: stripe.Int64(1)},
		},
		SuccessURL:        stripe.String(g.frontendURL + "/purchase-success"),
		CancelURL:         stripe.String(g.frontendURL + "/purchase-cancelled"),
		ClientReferenceID: stripe.String(id.UID),
		Metadata: map[string]string{
			MetadataUID:     id.UID,
			MetadataTier:    string(tier),
			MetadataPurpose: string(purpose),
		},
	}
	if id.Email != "" {
		params.CustomerEmail = stripe.String(id.Email)
	}
	params.Context = ctx

	sess, err := g.sessions.New(params)
	if err != nil {
		g.logger.Error("stripe checkout session failed", zap.String("uid", id.UID), zap.String("tier", string(tier)), zap.Error(err))
		return "", fmt.Errorf("create checkout session: %w: %w", service.ErrDependencyUnavailable, err)
	}
	g.logger.Info("checkout session created",
		zap.String("uid", id.UID), zap.String("tier", string(tier)),
		zap.String("purpose", string(purpose)), zap.String("session_id", sess.ID))
	return sess.URL, nil
}
