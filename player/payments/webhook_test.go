package payments

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"

	"github.com/Ftotnem/RPS64-SERVICES/player/service"
	"github.com/Ftotnem/RPS64-SERVICES/player/store"
	"github.com/Ftotnem/RPS64-SERVICES/shared/auth"
	"github.com/Ftotnem/RPS64-SERVICES/shared/metrics"
	"github.com/Ftotnem/RPS64-SERVICES/shared/models"
	"github.com/Ftotnem/RPS64-SERVICES/shared/weekkey"
)

const testSecret = "whsec_test"

type webhookFixture struct {
	handler *WebhookHandler
	players *service.PlayerService
	ledger  store.EventLedger
	mem     *store.MemoryStore
	queue   *store.RedisMatchQueue
}

func newWebhookFixture(t *testing.T, ledger store.EventLedger) *webhookFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	loc, err := time.LoadLocation(weekkey.DefaultTimeZone)
	require.NoError(t, err)
	clock := weekkey.NewFixedClock(loc, time.Now)

	mem := store.NewMemoryStore()
	players := service.NewPlayerService(mem, mem, store.NewRedisLocker(rdb, 5*time.Second, zap.NewNop()), clock, zap.NewNop())
	if ledger == nil {
		ledger = store.NewRedisEventLedger(rdb, time.Hour)
	}
	queue := store.NewRedisMatchQueue(rdb, zap.NewNop())

	return &webhookFixture{
		handler: NewWebhookHandler(testSecret, ledger, players, queue, zap.NewNop()),
		players: players,
		ledger:  ledger,
		mem:     mem,
		queue:   queue,
	}
}

// signedEvent builds a Stripe event envelope around object and signs it.
func signedEvent(t *testing.T, id, eventType string, object map[string]interface{}) ([]byte, string) {
	t.Helper()
	payload, err := json.Marshal(map[string]interface{}{
		"id":          id,
		"object":      "event",
		"type":        eventType,
		"api_version": "2023-10-16",
		"created":     time.Now().Unix(),
		"data":        map[string]interface{}{"object": object},
	})
	require.NoError(t, err)

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    testSecret,
		Timestamp: time.Now(),
	})
	return payload, signed.Header
}

func checkoutObject(metadata map[string]string) map[string]interface{} {
	return map[string]interface{}{
		"id":       "cs_test_1",
		"object":   "checkout.session",
		"metadata": metadata,
		"customer_details": map[string]interface{}{
			"email": "ada@example.com",
			"name":  "Ada",
		},
	}
}

func TestCheckoutCompletedActivatesPass(t *testing.T) {
	f := newWebhookFixture(t, nil)
	ctx := context.Background()

	seeded := models.NewPlayerProfile("u1", "Ada", "ada@example.com", time.Now())
	seeded.MatchesRemaining = 2
	seeded.Vault = 4200
	seeded.RecentMatches = []models.MatchSummary{{Result: "W", Payout: 200}}
	require.NoError(t, f.mem.CreateProfile(ctx, seeded))

	before := testutil.ToFloat64(metrics.WebhookEvents.WithLabelValues(typeCheckoutCompleted, "processed"))
	payload, sig := signedEvent(t, "evt_pass", typeCheckoutCompleted, checkoutObject(map[string]string{"uid": "u1", "tier": "elite"}))
	require.NoError(t, f.handler.HandleEvent(ctx, payload, sig))

	p, err := f.mem.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.TierElite, p.Tier)
	assert.Equal(t, models.MatchesPerPass, p.MatchesRemaining)
	assert.Equal(t, models.Money(400), p.PayoutPerWin)
	assert.Empty(t, p.RecentMatches)
	assert.Equal(t, models.Money(4200), p.Vault, "vault is untouched by a pass")
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.WebhookEvents.WithLabelValues(typeCheckoutCompleted, "processed")))
}

func TestCheckoutCompletedCreatesMissingProfile(t *testing.T) {
	f := newWebhookFixture(t, nil)
	ctx := context.Background()

	payload, sig := signedEvent(t, "evt_new", typeCheckoutCompleted, checkoutObject(map[string]string{"uid": "u9", "tier": "pro"}))
	require.NoError(t, f.handler.HandleEvent(ctx, payload, sig))

	p, err := f.mem.GetProfile(ctx, "u9")
	require.NoError(t, err)
	assert.Equal(t, models.TierPro, p.Tier)
	assert.Equal(t, "ada@example.com", p.Email)
}

func TestRedeliveredEventIsAppliedOnce(t *testing.T) {
	f := newWebhookFixture(t, nil)
	ctx := context.Background()

	payload, sig := signedEvent(t, "evt_dup", typeCheckoutCompleted, checkoutObject(map[string]string{"uid": "u1", "tier": "pro"}))
	require.NoError(t, f.handler.HandleEvent(ctx, payload, sig))

	// A match is played between the deliveries; the redelivery must not refill the pass.
	p, err := f.mem.GetProfile(ctx, "u1")
	require.NoError(t, err)
	p.MatchesRemaining = 9
	require.NoError(t, f.mem.SaveProfile(ctx, p))

	before := testutil.ToFloat64(metrics.WebhookEvents.WithLabelValues(typeCheckoutCompleted, "duplicate"))
	require.NoError(t, f.handler.HandleEvent(ctx, payload, sig))

	p, err = f.mem.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 9, p.MatchesRemaining)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.WebhookEvents.WithLabelValues(typeCheckoutCompleted, "duplicate")))
}

func TestInvalidSignatureIsRejected(t *testing.T) {
	f := newWebhookFixture(t, nil)
	payload, _ := signedEvent(t, "evt_bad", typeCheckoutCompleted, checkoutObject(map[string]string{"uid": "u1", "tier": "pro"}))

	err := f.handler.HandleEvent(context.Background(), payload, "t=1,v1=deadbeef")
	assert.ErrorIs(t, err, ErrSignatureInvalid)

	err = f.handler.HandleEvent(context.Background(), payload, "")
	assert.ErrorIs(t, err, ErrSignatureInvalid)

	_, err = f.mem.GetProfile(context.Background(), "u1")
	assert.ErrorIs(t, err, store.ErrProfileNotFound)
}

func TestTamperedPayloadIsRejected(t *testing.T) {
	f := newWebhookFixture(t, nil)
	payload, sig := signedEvent(t, "evt_tamper", typeCheckoutCompleted, checkoutObject(map[string]string{"uid": "u1", "tier": "rookie"}))
	tampered := []byte(string(payload[:len(payload)-1]) + " }")

	assert.ErrorIs(t, f.handler.HandleEvent(context.Background(), tampered, sig), ErrSignatureInvalid)
}

func TestCheckoutWithoutUidOrTierIsAcknowledged(t *testing.T) {
	cases := map[string]map[string]string{
		"no uid":  {"tier": "pro"},
		"no tier": {"uid": "u1"},
	}
	for name, md := range cases {
		t.Run(name, func(t *testing.T) {
			f := newWebhookFixture(t, nil)
			payload, sig := signedEvent(t, "evt_"+name, typeCheckoutCompleted, checkoutObject(md))

			require.NoError(t, f.handler.HandleEvent(context.Background(), payload, sig))

			_, err := f.mem.GetProfile(context.Background(), "u1")
			assert.ErrorIs(t, err, store.ErrProfileNotFound)
		})
	}
}

func TestCheckoutWithUnusableTierOrPurposeOnlyCreatesProfile(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown tier": {"uid": "u1", "tier": "platinum"},
		"bad purpose":  {"uid": "u1", "tier": "elite", "purpose": "gift"},
	}
	for name, md := range cases {
		t.Run(name, func(t *testing.T) {
			f := newWebhookFixture(t, nil)
			payload, sig := signedEvent(t, "evt_"+name, typeCheckoutCompleted, checkoutObject(md))

			require.NoError(t, f.handler.HandleEvent(context.Background(), payload, sig))

			p, err := f.mem.GetProfile(context.Background(), "u1")
			require.NoError(t, err)
			assert.Equal(t, models.TierRookie, p.Tier)
			assert.Equal(t, "ada@example.com", p.Email)

			n, err := f.queue.Len(context.Background())
			require.NoError(t, err)
			assert.Zero(t, n)
		})
	}
}

func TestQueuePurposeEnqueuesPaidEntry(t *testing.T) {
	f := newWebhookFixture(t, nil)
	ctx := context.Background()

	payload, sig := signedEvent(t, "evt_queue", typeCheckoutCompleted,
		checkoutObject(map[string]string{"uid": "u1", "tier": "rookie", "purpose": "queue"}))
	require.NoError(t, f.handler.HandleEvent(ctx, payload, sig))

	n, err := f.queue.Len(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	entries, err := f.queue.PopBatch(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, "u1", e.UID)
	assert.Equal(t, "Ada", e.Name)
	assert.Equal(t, "ada@example.com", e.Email)
	assert.Equal(t, models.TierRookie, e.Tier)
	assert.True(t, e.StripePaid)
	assert.Equal(t, "cs_test_1", e.SessionID)

	// The profile exists but the pass was not touched.
	p, err := f.mem.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.MatchesPerPass, p.MatchesRemaining)
}

func TestInformationalEventsAreAcknowledged(t *testing.T) {
	f := newWebhookFixture(t, nil)
	ctx := context.Background()

	events := []struct {
		id, typ string
		object  map[string]interface{}
	}{
		{"evt_pi", typePaymentSucceeded, map[string]interface{}{"id": "pi_1", "object": "payment_intent", "amount": 1799}},
		{"evt_ch", typeChargeSucceeded, map[string]interface{}{"id": "ch_1", "object": "charge", "amount": 1799}},
		{"evt_fail", typePaymentFailed, map[string]interface{}{
			"id": "pi_2", "object": "payment_intent",
			"last_payment_error": map[string]interface{}{"message": "card declined"},
		}},
	}
	for _, ev := range events {
		before := testutil.ToFloat64(metrics.WebhookEvents.WithLabelValues(ev.typ, "logged"))
		payload, sig := signedEvent(t, ev.id, ev.typ, ev.object)
		require.NoError(t, f.handler.HandleEvent(ctx, payload, sig))
		assert.Equal(t, before+1, testutil.ToFloat64(metrics.WebhookEvents.WithLabelValues(ev.typ, "logged")), ev.typ)
	}

	before := testutil.ToFloat64(metrics.WebhookEvents.WithLabelValues("customer.created", "ignored"))
	payload, sig := signedEvent(t, "evt_cust", "customer.created", map[string]interface{}{"id": "cus_1", "object": "customer"})
	require.NoError(t, f.handler.HandleEvent(ctx, payload, sig))
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.WebhookEvents.WithLabelValues("customer.created", "ignored")))
}

type failingLedger struct{}

func (failingLedger) Claim(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

func (failingLedger) Release(context.Context, string) error {
	return errors.New("redis down")
}

func TestLedgerOutageStillProcessesEvent(t *testing.T) {
	f := newWebhookFixture(t, failingLedger{})
	ctx := context.Background()

	payload, sig := signedEvent(t, "evt_outage", typeCheckoutCompleted, checkoutObject(map[string]string{"uid": "u1", "tier": "pro"}))
	require.NoError(t, f.handler.HandleEvent(ctx, payload, sig))

	p, err := f.mem.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.TierPro, p.Tier)
}

// flakyPlayers fails the first GrantPass like a busy player lock would.
type flakyPlayers struct {
	Players
	failed bool
}

func (f *flakyPlayers) GrantPass(ctx context.Context, id auth.Identity, tier models.Tier) (*models.PlayerProfile, error) {
	if !f.failed {
		f.failed = true
		return nil, service.ErrDependencyUnavailable
	}
	return f.Players.GrantPass(ctx, id, tier)
}

func TestFailedGrantIsRetriedOnResend(t *testing.T) {
	f := newWebhookFixture(t, nil)
	ctx := context.Background()
	flaky := &flakyPlayers{Players: f.players}
	handler := NewWebhookHandler(testSecret, f.ledger, flaky, f.queue, zap.NewNop())

	payload, sig := signedEvent(t, "evt_paid", typeCheckoutCompleted, checkoutObject(map[string]string{"uid": "u1", "tier": "elite"}))
	before := testutil.ToFloat64(metrics.WebhookEvents.WithLabelValues(typeCheckoutCompleted, "failed"))
	require.NoError(t, handler.HandleEvent(ctx, payload, sig))
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.WebhookEvents.WithLabelValues(typeCheckoutCompleted, "failed")))

	p, err := f.mem.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.TierRookie, p.Tier, "first delivery failed to grant")

	require.NoError(t, handler.HandleEvent(ctx, payload, sig))

	p, err = f.mem.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.TierElite, p.Tier)

	// Once processed, the event is a duplicate again.
	first, err := f.ledger.Claim(ctx, "evt_paid")
	require.NoError(t, err)
	assert.False(t, first)
}
