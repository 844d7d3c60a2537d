// Package server exposes the HTTP surface: the provider webhook, the
// submission endpoints that create the records the webhook later settles,
// and the informational pages buyers get redirected to.
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/NzeStan/Material-Wear-sub002/internal/campaign"
	"github.com/NzeStan/Material-Wear-sub002/internal/coupon"
	"github.com/NzeStan/Material-Wear-sub002/internal/order"
	"github.com/NzeStan/Material-Wear-sub002/internal/reconcile"
)

// WebhookProcessor runs the verification and transition pipeline on one
// delivery. *reconcile.Engine satisfies it.
type WebhookProcessor interface {
	HandleWebhook(ctx context.Context, body []byte, signature string) (*reconcile.Result, error)
}

// OrderService is the direct purchase flow the handlers call into.
type OrderService interface {
	CreateBulkOrder(ctx context.Context, title string, unitAmountKobo int64) (*order.BulkOrder, error)
	SeedCoupons(ctx context.Context, bulkOrderID uuid.UUID, codes []string) error
	SubmitEntry(ctx context.Context, bulkOrderID uuid.UUID, in order.SubmitEntryInput) (*order.SubmitEntryResult, error)
}

// CampaignService is the spreadsheet bulk flow the handlers call into.
type CampaignService interface {
	Create(ctx context.Context, in campaign.CreateInput) (*campaign.Campaign, error)
	AttachRoster(ctx context.Context, code, sheetURL string) (*campaign.Campaign, error)
	InitializePayment(ctx context.Context, code string) (*campaign.PaymentLink, error)
}

// Server wires the routes to their handlers.
type Server struct {
	engine    WebhookProcessor
	orders    OrderService
	campaigns CampaignService
	router    *gin.Engine
	log       zerolog.Logger
}

func NewServer(engine WebhookProcessor, orders OrderService, campaigns CampaignService, log zerolog.Logger) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	// Anything but POST on the webhook endpoint (and GET on the page routes)
	// must answer 405, not 404.
	router.HandleMethodNotAllowed = true

	s := &Server{
		engine:    engine,
		orders:    orders,
		campaigns: campaigns,
		router:    router,
		log:       log.With().Str("component", "http").Logger(),
	}

	router.POST("/payments/webhook", s.handleWebhook)
	// Providers redirect buyers to the callback in a browser; humans landing
	// on the webhook path get a page instead of an error.
	router.GET("/payments/webhook", s.handleThankYou)
	router.GET("/payments/thank-you", s.handleThankYou)
	router.GET("/healthz", s.handleHealthz)

	router.POST("/bulk-orders", s.handleCreateBulkOrder)
	router.POST("/bulk-orders/:id/coupons", s.handleSeedCoupons)
	router.POST("/bulk-orders/:id/entries", s.handleSubmitEntry)

	router.POST("/campaigns", s.handleCreateCampaign)
	router.POST("/campaigns/:code/roster", s.handleAttachRoster)
	router.POST("/campaigns/:code/pay", s.handleInitializePayment)

	return s
}

// Handler returns the router for an http.Server or a test.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until the listener fails. Blocking call.
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

// writeError translates domain errors into status codes for the submission
// endpoints. Unrecognized errors log with context and answer 500 without
// leaking internals.
func (s *Server) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, order.ErrInvalidSubmission),
		errors.Is(err, campaign.ErrInvalidCampaign),
		errors.Is(err, coupon.ErrCouponRejected):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, order.ErrBulkOrderNotFound),
		errors.Is(err, order.ErrEntryNotFound),
		errors.Is(err, campaign.ErrCampaignNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, campaign.ErrRosterNotAttachable),
		errors.Is(err, campaign.ErrCampaignNotPayable),
		errors.Is(err, campaign.ErrAlreadyPaid):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		s.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
