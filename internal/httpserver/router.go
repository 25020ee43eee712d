package httpserver

import (
	"context"
	"io"
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"printarcade/internal/domain"
	"printarcade/internal/fulfillment"
	"printarcade/internal/metrics"
	"printarcade/internal/service/checkout"
	"printarcade/internal/service/discount"
	"printarcade/internal/service/fulfillmentsync"
	"printarcade/internal/service/ratelimit"
	"printarcade/internal/service/settlement"
)

type discountService interface {
	RecordCompletion(ctx context.Context, in discount.CompletionInput) (float64, error)
	SessionTotals(ctx context.Context, sessionToken string) (discount.Totals, error)
}

type cartService interface {
	Sync(ctx context.Context, token string, cart domain.SessionCart) (*domain.SessionCart, error)
	Load(ctx context.Context, token string) (*domain.SessionCart, error)
	Clear(ctx context.Context, token string) error
}

type limiter interface {
	Allow(ctx context.Context, identity, endpoint string) (ratelimit.Decision, error)
}

type checkoutService interface {
	CreateSession(ctx context.Context, in checkout.CreateSessionInput) (*checkout.Session, error)
	GetSession(ctx context.Context, sessionID string) (*checkout.SessionStatus, error)
}

type settlementService interface {
	HandlePaymentEvent(ctx context.Context, payload []byte, signatureHeader string) (settlement.Result, error)
}

type fulfillmentService interface {
	Authenticate(token string) error
	HandleEvent(ctx context.Context, ev *fulfillment.Event) (fulfillmentsync.Result, error)
}

type catalogService interface {
	List(ctx context.Context) ([]domain.Product, error)
	Get(ctx context.Context, id string) (*domain.Product, error)
}

// Deps carries the services behind the routes. A nil service leaves its
// routes unregistered.
type Deps struct {
	Discount        discountService
	SessionCart     cartService
	RateLimiter     limiter
	Checkout        checkoutService
	Settlement      settlementService
	FulfillmentSync fulfillmentService
	Catalog         catalogService
	CORSOrigins     []string
	ReadyChecks     map[string]ReadyCheck
}

type handlers struct {
	deps   Deps
	logger *log.Logger
}

// buildRouter wires routes for the API.
func buildRouter(logger *log.Logger, db *pgxpool.Pool, deps Deps) (*gin.Engine, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if err := registerValidators(); err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(gin.LoggerWithWriter(logger.Writer()), gin.Recovery(), metrics.Middleware())
	if len(deps.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     deps.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db, deps.ReadyChecks))
	router.GET("/metrics", metrics.Handler())

	h := &handlers{deps: deps, logger: logger}
	limit := func(endpoint string) gin.HandlerFunc {
		return rateLimit(deps.RateLimiter, endpoint, logger)
	}

	if deps.Settlement != nil {
		router.POST("/payment-webhook", h.paymentWebhook)
	}
	if deps.FulfillmentSync != nil {
		router.POST("/fulfillment-webhook", h.fulfillmentWebhook)
	}
	if deps.Checkout != nil {
		router.POST("/checkout/create-session", limit("checkout"), h.createCheckoutSession)
		router.GET("/checkout/session/:id", h.getCheckoutSession)
	}
	if deps.SessionCart != nil {
		router.POST("/cart/sync", limit("cart"), h.syncCart)
		router.GET("/cart/session/:token", h.getCart)
		router.DELETE("/cart/session/:token", h.clearCart)
	}
	if deps.Discount != nil {
		router.POST("/games/complete", limit("games"), h.completeGame)
		router.GET("/games/stats/:sessionToken", h.gameStats)
	}
	if deps.Catalog != nil {
		router.GET("/products", h.listProducts)
		router.GET("/products/:id", h.getProduct)
	}

	return router, nil
}
