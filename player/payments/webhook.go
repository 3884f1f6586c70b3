// player/payments/webhook.go
package payments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"

	"github.com/Ftotnem/RPS64-SERVICES/player/store"
	"github.com/Ftotnem/RPS64-SERVICES/shared/auth"
	"github.com/Ftotnem/RPS64-SERVICES/shared/metrics"
	"github.com/Ftotnem/RPS64-SERVICES/shared/models"
)

// Result labels of processed events.
const (
	resultProcessed = "processed"
	resultFailed    = "failed"
	resultIgnored   = "ignored"
	resultLogged    = "logged"
)

// ErrSignatureInvalid is the only error HandleEvent returns.
var ErrSignatureInvalid = errors.New("webhook signature invalid")

// Players is what the webhook needs from the player service.
type Players interface {
	GetOrCreateProfile(ctx context.Context, id auth.Identity) (*models.PlayerProfile, error)
	GrantPass(ctx context.Context, id auth.Identity, tier models.Tier) (*models.PlayerProfile, error)
}

// WebhookHandler verifies Stripe events and applies them once per event id.
type WebhookHandler struct {
	secret  string
	ledger  store.EventLedger
	players Players
	queue   store.MatchQueue
	logger  *zap.Logger
	now     func() time.Time
}

func NewWebhookHandler(secret string, ledger store.EventLedger, players Players, queue store.MatchQueue, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{
		secret:  secret,
		ledger:  ledger,
		players: players,
		queue:   queue,
		logger:  logger,
		now:     time.Now,
	}
}

// HandleEvent verifies payload against the Stripe-Signature header and
// processes it. Once the signature is valid the event is acknowledged no
// matter what happens next; processing problems are only logged.
func (h *WebhookHandler) HandleEvent(ctx context.Context, payload []byte, signature string) error {
	event, err := webhook.ConstructEventWithOptions(payload, signature, h.secret, webhook.ConstructEventOptions{
		Tolerance:                webhook.DefaultTolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		metrics.WebhookEvents.WithLabelValues("unknown", "rejected").Inc()
		h.logger.Warn("webhook signature verification failed", zap.Error(err))
		return ErrSignatureInvalid
	}

	logger := h.logger.With(zap.String("event_id", event.ID), zap.String("event_type", string(event.Type)))

	first, err := h.ledger.Claim(ctx, event.ID)
	if err != nil {
		logger.Error("failed to claim webhook event, processing anyway", zap.Error(err))
	} else if !first {
		metrics.WebhookEvents.WithLabelValues(string(event.Type), "duplicate").Inc()
		logger.Info("duplicate webhook event acknowledged")
		return nil
	}

	decoded, err := decodeEvent(event)
	if err != nil {
		metrics.WebhookEvents.WithLabelValues(string(event.Type), "malformed").Inc()
		logger.Error("failed to decode webhook event", zap.Error(err))
		return nil
	}

	result := h.dispatch(ctx, logger, decoded)
	metrics.WebhookEvents.WithLabelValues(decoded.kind(), result).Inc()
	if result == resultFailed {
		// A resend of the same event is processed again.
		if err := h.ledger.Release(ctx, event.ID); err != nil {
			logger.Error("failed to release webhook event after processing failure", zap.Error(err))
		}
	}
	return nil
}

// dispatch applies one decoded event and returns the metrics result label.
func (h *WebhookHandler) dispatch(ctx context.Context, logger *zap.Logger, event webhookEvent) string {
	switch e := event.(type) {
	case checkoutCompleted:
		return h.checkoutCompleted(ctx, logger, e.session)
	case paymentSucceeded:
		logger.Info("payment succeeded", zap.String("payment_intent", e.intent.ID), zap.Int64("amount", e.intent.Amount))
		return resultLogged
	case chargeSucceeded:
		logger.Info("charge succeeded", zap.String("charge", e.charge.ID), zap.Int64("amount", e.charge.Amount))
		return resultLogged
	case paymentFailed:
		fields := []zap.Field{zap.String("payment_intent", e.intent.ID)}
		if e.intent.LastPaymentError != nil {
			fields = append(fields, zap.String("reason", e.intent.LastPaymentError.Msg))
		}
		logger.Warn("payment failed", fields...)
		return resultLogged
	default:
		logger.Info("unhandled webhook event")
		return resultIgnored
	}
}

func (h *WebhookHandler) checkoutCompleted(ctx context.Context, logger *zap.Logger, sess stripe.CheckoutSession) string {
	uid := sess.Metadata[MetadataUID]
	tier := models.Tier(sess.Metadata[MetadataTier])
	logger = logger.With(zap.String("session_id", sess.ID), zap.String("uid", uid), zap.String("tier", string(tier)))

	if uid == "" || tier == "" {
		logger.Warn("checkout session missing metadata, cannot activate")
		return resultIgnored
	}

	id := auth.Identity{UID: uid}
	if sess.CustomerDetails != nil {
		id.Email = sess.CustomerDetails.Email
		id.Name = sess.CustomerDetails.Name
	}

	// The buyer's profile exists from here on, even if the tier turns out to be unusable.
	profile, err := h.players.GetOrCreateProfile(ctx, id)
	if err != nil {
		logger.Error("failed to load profile for checkout", zap.Error(err))
		return resultFailed
	}
	if _, ok := models.LookupTier(tier); !ok {
		logger.Warn("checkout session has unknown tier")
		return resultIgnored
	}

	purpose := Purpose(sess.Metadata[MetadataPurpose])
	switch purpose {
	case "", PurposePass:
		if _, err := h.players.GrantPass(ctx, id, tier); err != nil {
			logger.Error("failed to activate pass", zap.Error(err))
			return resultFailed
		}
		logger.Info("pass activated")
		return resultProcessed
	case PurposeQueue:
		entry := models.QueueEntry{
			ID:         uuid.NewString(),
			UID:        uid,
			Email:      firstNonEmpty(id.Email, profile.Email),
			Name:       firstNonEmpty(id.Name, profile.Username),
			Tier:       tier,
			StripePaid: true,
			SessionID:  sess.ID,
			QueuedAt:   h.now(),
		}
		if err := h.queue.Enqueue(ctx, entry); err != nil {
			logger.Error("failed to enqueue paid player", zap.Error(err))
			return resultFailed
		}
		logger.Info("player queued", zap.String("queue_entry", entry.ID))
		return resultProcessed
	default:
		logger.Warn("checkout session has unknown purpose", zap.String("purpose", string(purpose)))
		return resultIgnored
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
