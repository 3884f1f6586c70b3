// player/api/handler.go
package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/Ftotnem/RPS64-SERVICES/player/payments"
	"github.com/Ftotnem/RPS64-SERVICES/player/service"
	"github.com/Ftotnem/RPS64-SERVICES/shared/api"
	"github.com/Ftotnem/RPS64-SERVICES/shared/auth"
	"github.com/Ftotnem/RPS64-SERVICES/shared/models"
)

// MaxWebhookBodyBytes caps the size of a payment webhook payload.
const MaxWebhookBodyBytes = 65536

// CheckoutCreator starts a hosted checkout for a tier purchase.
type CheckoutCreator interface {
	CreateCheckoutSession(ctx context.Context, id auth.Identity, tier models.Tier, purpose payments.Purpose) (string, error)
}

// EventHandler processes a signed payment webhook payload.
type EventHandler interface {
	HandleEvent(ctx context.Context, payload []byte, signature string) error
}

// ReadinessCheck reports whether a dependency can serve requests.
type ReadinessCheck func(ctx context.Context) error

// PlayerAPIHandlers holds references to the services that handle business logic.
type PlayerAPIHandlers struct {
	PlayerService      *service.PlayerService
	LeaderboardService *service.LeaderboardService
	Checkout           CheckoutCreator
	Webhooks           EventHandler
	Authenticator      auth.Authenticator
	RequestTimeout     time.Duration

	checks map[string]ReadinessCheck
	logger *zap.Logger
}

func NewPlayerAPIHandlers(
	ps *service.PlayerService,
	ls *service.LeaderboardService,
	checkout CheckoutCreator,
	webhooks EventHandler,
	authenticator auth.Authenticator,
	logger *zap.Logger,
) *PlayerAPIHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PlayerAPIHandlers{
		PlayerService:      ps,
		LeaderboardService: ls,
		Checkout:           checkout,
		Webhooks:           webhooks,
		Authenticator:      authenticator,
		RequestTimeout:     5 * time.Second,
		checks:             make(map[string]ReadinessCheck),
		logger:             logger,
	}
}

// AddReadinessCheck registers a dependency check for GET /readyz.
func (pah *PlayerAPIHandlers) AddReadinessCheck(name string, check ReadinessCheck) {
	pah.checks[name] = check
}

// --- Request/Response DTOs ---

type MatchResultRequest struct {
	Outcome  models.Outcome `json:"outcome"`
	Opponent *string        `json:"opponent"`
}

type RebuyRequest struct {
	Method service.RebuyMethod `json:"method"`
}

type CheckoutRequest struct {
	Tier    models.Tier      `json:"tier"`
	Purpose payments.Purpose `json:"purpose"`
}

type CheckoutResponse struct {
	URL string `json:"url"`
}

// ProfileSummary is the UI view of a profile returned by GET /profile.
type ProfileSummary struct {
	OK               bool                  `json:"ok"`
	Username         string                `json:"username"`
	Tier             models.Tier           `json:"tier"`
	MatchesRemaining int                   `json:"matchesRemaining"`
	PayoutPerWin     models.Money          `json:"payoutPerWin"`
	Vault            models.Money          `json:"vault"`
	LifetimeWins     int                   `json:"lifetimeWins"`
	LifetimeLosses   int                   `json:"lifetimeLosses"`
	WinRate          int                   `json:"winRate"`
	CurrentStreak    int                   `json:"currentStreak"`
	LongestStreak    int                   `json:"longestStreak"`
	LifetimeEarnings models.Money          `json:"lifetimeEarnings"`
	RecentMatches    []models.MatchSummary `json:"recentMatches"`
}

type LeaderboardResponse struct {
	WeekKey string                     `json:"weekKey"`
	Top5    []models.WeeklyStreakEntry `json:"top5"`
}

type StreakRow struct {
	Rank int    `json:"rank"`
	Name string `json:"name"`
	Wins int    `json:"wins"`
}

type LongestStreakResponse struct {
	Streaks []StreakRow `json:"streaks"`
}

// --- Handler Methods ---

// HealthHandler reports that the process is serving.
// GET /
func (pah *PlayerAPIHandlers) HealthHandler(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "status": "player-service running"})
}

// ReadinessHandler runs every registered dependency check.
// GET /readyz
func (pah *PlayerAPIHandlers) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := make(map[string]string, len(pah.checks))
	ready := true
	for name, check := range pah.checks {
		if err := check(ctx); err != nil {
			pah.logger.Warn("readiness check failed", zap.String("check", name), zap.Error(err))
			status[name] = err.Error()
			ready = false
			continue
		}
		status[name] = "ok"
	}

	code := http.StatusOK
	if !ready {
		code = http.StatusServiceUnavailable
	}
	api.WriteJSON(w, code, map[string]interface{}{"ready": ready, "checks": status})
}

// GetProfileSummaryHandler returns the caller's profile in UI form.
// GET /profile
func (pah *PlayerAPIHandlers) GetProfileSummaryHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), pah.RequestTimeout)
	defer cancel()

	p, err := pah.PlayerService.GetOrCreateProfile(ctx, identity(r))
	if err != nil {
		pah.writeServiceError(w, r, "get profile", err)
		return
	}
	api.WriteJSON(w, http.StatusOK, ProfileSummary{
		OK:               true,
		Username:         p.Username,
		Tier:             p.Tier,
		MatchesRemaining: p.MatchesRemaining,
		PayoutPerWin:     p.PayoutPerWin,
		Vault:            p.Vault,
		LifetimeWins:     p.LifetimeWins,
		LifetimeLosses:   p.LifetimeLosses,
		WinRate:          p.WinRate,
		CurrentStreak:    p.CurrentStreak,
		LongestStreak:    p.LongestStreak,
		LifetimeEarnings: p.LifetimeEarnings,
		RecentMatches:    nonNil(p.RecentMatches),
	})
}

// GetProfileHandler returns the caller's full profile document.
// GET /player/profile
func (pah *PlayerAPIHandlers) GetProfileHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), pah.RequestTimeout)
	defer cancel()

	p, err := pah.PlayerService.GetOrCreateProfile(ctx, identity(r))
	if err != nil {
		pah.writeServiceError(w, r, "get profile", err)
		return
	}
	api.WriteJSON(w, http.StatusOK, p)
}

// MatchResultHandler records the outcome of a match for the caller.
// POST /match-result
func (pah *PlayerAPIHandlers) MatchResultHandler(w http.ResponseWriter, r *http.Request) {
	var req MatchResultRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.WriteBadRequest(w, "Invalid request body")
		return
	}
	if req.Opponent != nil && *req.Opponent == "" {
		req.Opponent = nil
	}

	ctx, cancel := context.WithTimeout(r.Context(), pah.RequestTimeout)
	defer cancel()

	p, err := pah.PlayerService.RecordMatch(ctx, identity(r), req.Outcome, req.Opponent)
	if err != nil {
		pah.writeServiceError(w, r, "record match", err)
		return
	}
	api.WriteJSON(w, http.StatusOK, p)
}

// RebuyHandler buys a fresh pass on the caller's current tier.
// POST /player/rebuy
func (pah *PlayerAPIHandlers) RebuyHandler(w http.ResponseWriter, r *http.Request) {
	var req RebuyRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.WriteBadRequest(w, "Invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), pah.RequestTimeout)
	defer cancel()

	p, err := pah.PlayerService.Rebuy(ctx, identity(r), req.Method)
	if err != nil {
		pah.writeServiceError(w, r, "rebuy", err)
		return
	}
	api.WriteJSON(w, http.StatusOK, p)
}

// CashoutHandler empties the caller's vault.
// POST /player/cashout
func (pah *PlayerAPIHandlers) CashoutHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), pah.RequestTimeout)
	defer cancel()

	p, err := pah.PlayerService.Cashout(ctx, identity(r))
	if err != nil {
		pah.writeServiceError(w, r, "cashout", err)
		return
	}
	api.WriteJSON(w, http.StatusOK, p)
}

// LeaderboardHandler returns the current week's top streaks.
// GET /lsw/leaderboard
func (pah *PlayerAPIHandlers) LeaderboardHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), pah.RequestTimeout)
	defer cancel()

	board, err := pah.LeaderboardService.Top(ctx, service.LeaderboardSize)
	if err != nil {
		pah.writeServiceError(w, r, "leaderboard", err)
		return
	}
	entries := board.Entries
	if entries == nil {
		entries = []models.WeeklyStreakEntry{}
	}
	api.WriteJSON(w, http.StatusOK, LeaderboardResponse{WeekKey: board.WeekKey, Top5: entries})
}

// LongestStreakHandler renders the leaderboard as ranked rows.
// GET /dev/longest-streak
func (pah *PlayerAPIHandlers) LongestStreakHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), pah.RequestTimeout)
	defer cancel()

	board, err := pah.LeaderboardService.Top(ctx, service.LeaderboardSize)
	if err != nil {
		pah.writeServiceError(w, r, "longest streak", err)
		return
	}
	rows := make([]StreakRow, 0, len(board.Entries))
	for i, e := range board.Entries {
		name := e.Username
		if name == "" {
			name = "Player"
		}
		rows = append(rows, StreakRow{Rank: i + 1, Name: name, Wins: e.BestStreak})
	}
	api.WriteJSON(w, http.StatusOK, LongestStreakResponse{Streaks: rows})
}

// WeeklyPrizeHandler returns the prize accumulated this week.
// GET /lsw/prize
func (pah *PlayerAPIHandlers) WeeklyPrizeHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), pah.RequestTimeout)
	defer cancel()

	prize, err := pah.LeaderboardService.WeeklyPrize(ctx)
	if err != nil {
		pah.writeServiceError(w, r, "weekly prize", err)
		return
	}
	api.WriteJSON(w, http.StatusOK, prize)
}

// CreateCheckoutSessionHandler starts a Stripe checkout for a tier.
// POST /api/create-checkout-session
func (pah *PlayerAPIHandlers) CreateCheckoutSessionHandler(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.WriteBadRequest(w, "Invalid request body")
		return
	}
	if req.Tier == "" {
		api.WriteBadRequest(w, "tier is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), pah.RequestTimeout)
	defer cancel()

	url, err := pah.Checkout.CreateCheckoutSession(ctx, identity(r), req.Tier, req.Purpose)
	if err != nil {
		pah.writeServiceError(w, r, "create checkout session", err)
		return
	}
	api.WriteJSON(w, http.StatusOK, CheckoutResponse{URL: url})
}

// StripeWebhookHandler verifies and applies a Stripe event.
// POST /api/stripe/webhook
func (pah *PlayerAPIHandlers) StripeWebhookHandler(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxWebhookBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			api.WriteError(w, http.StatusRequestEntityTooLarge, "Webhook payload too large")
			return
		}
		api.WriteBadRequest(w, "Failed to read webhook payload")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), pah.RequestTimeout)
	defer cancel()

	if err := pah.Webhooks.HandleEvent(ctx, payload, r.Header.Get("Stripe-Signature")); err != nil {
		if errors.Is(err, payments.ErrSignatureInvalid) {
			api.WriteBadRequest(w, "Webhook signature verification failed")
			return
		}
		pah.logger.Error("webhook handling failed", zap.Error(err))
		api.WriteInternalServerError(w, "Failed to handle webhook")
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]bool{"received": true})
}

// writeServiceError maps service errors to HTTP status codes.
func (pah *PlayerAPIHandlers) writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		api.WriteUnauthorized(w, "Unauthorized")
	case errors.Is(err, service.ErrInvalidInput):
		api.WriteBadRequest(w, err.Error())
	case errors.Is(err, service.ErrInsufficientFunds):
		api.WriteBadRequest(w, err.Error())
	case errors.Is(err, service.ErrNoMatchesRemaining):
		api.WriteError(w, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, service.ErrDependencyUnavailable):
		pah.logger.Error(op+" failed", zap.String("request_id", api.RequestIDFromContext(r.Context())), zap.Error(err))
		api.WriteServiceUnavailable(w, "Service temporarily unavailable")
	default:
		pah.logger.Error(op+" failed", zap.String("request_id", api.RequestIDFromContext(r.Context())), zap.Error(err))
		api.WriteInternalServerError(w, "Internal server error")
	}
}

func (pah *PlayerAPIHandlers) unauthorized(w http.ResponseWriter, err error) {
	pah.logger.Debug("rejected unauthenticated request", zap.Error(err))
	api.WriteUnauthorized(w, "Unauthorized")
}

// identity returns the caller set by the auth middleware.
func identity(r *http.Request) auth.Identity {
	id, _ := auth.IdentityFromContext(r.Context())
	return id
}

func nonNil(m []models.MatchSummary) []models.MatchSummary {
	if m == nil {
		return []models.MatchSummary{}
	}
	return m
}

// RegisterRoutes registers all API routes for the Player Service.
func (pah *PlayerAPIHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/", pah.HealthHandler).Methods("GET")
	router.HandleFunc("/readyz", pah.ReadinessHandler).Methods("GET")
	router.HandleFunc("/lsw/leaderboard", pah.LeaderboardHandler).Methods("GET")
	router.HandleFunc("/lsw/prize", pah.WeeklyPrizeHandler).Methods("GET")
	router.HandleFunc("/dev/longest-streak", pah.LongestStreakHandler).Methods("GET")
	router.HandleFunc("/api/stripe/webhook", pah.StripeWebhookHandler).Methods("POST")

	authed := router.NewRoute().Subrouter()
	authed.Use(auth.RequireAuth(pah.Authenticator, pah.unauthorized))
	authed.HandleFunc("/profile", pah.GetProfileSummaryHandler).Methods("GET")
	authed.HandleFunc("/player/profile", pah.GetProfileHandler).Methods("GET")
	authed.HandleFunc("/match-result", pah.MatchResultHandler).Methods("POST")
	authed.HandleFunc("/player/rebuy", pah.RebuyHandler).Methods("POST")
	authed.HandleFunc("/player/cashout", pah.CashoutHandler).Methods("POST")
	authed.HandleFunc("/api/create-checkout-session", pah.CreateCheckoutSessionHandler).Methods("POST")
}
