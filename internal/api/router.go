package api

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	"github.com/edupay/remit-orders/internal/api/handler"
	"github.com/edupay/remit-orders/internal/api/middleware"
	"github.com/edupay/remit-orders/internal/api/spec"
	"github.com/edupay/remit-orders/internal/config"
	"github.com/edupay/remit-orders/internal/service"
)

// Router wires handlers, middleware and infrastructure dependencies
// into the HTTP surface.
type Router struct {
	cfg           *config.Config
	logger        *zap.Logger
	db            *pgxpool.Pool
	redis         redis.Cmdable
	orders        *service.OrderService
	workflow      *service.WorkflowService
	beneficiaries *service.BeneficiaryService
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	db *pgxpool.Pool,
	redisClient redis.Cmdable,
	orders *service.OrderService,
	workflow *service.WorkflowService,
	beneficiaries *service.BeneficiaryService,
) *Router {
	return &Router{
		cfg:           cfg,
		logger:        logger,
		db:            db,
		redis:         redisClient,
		orders:        orders,
		workflow:      workflow,
		beneficiaries: beneficiaries,
	}
}

func (api *Router) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.TraceMiddleware)
	r.Use(middleware.RecoverMiddleware(api.logger))
	r.Use(middleware.LoggingMiddleware(api.logger))
	r.Use(middleware.MetricsMiddleware)
	r.Use(chiMiddleware.RealIP)

	healthHandler := handler.NewHealthHandler(api.db, api.redis)
	orderHandler := handler.NewOrderHandler(api.orders)
	workflowHandler := handler.NewWorkflowHandler(api.workflow)
	beneficiaryHandler := handler.NewBeneficiaryHandler(api.beneficiaries)

	// Public routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.PublicRateLimiter(api.cfg.PublicRateLimitRPS))
		r.Get("/healthz", healthHandler.Live)
		r.Get("/readyz", healthHandler.Ready)
		r.Get("/openapi.yaml", spec.OpenAPIHandler())
		r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL("/openapi.yaml")))
	})
	r.Handle("/metrics", promhttp.Handler())

	// Authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware)
		r.Use(middleware.AuthRateLimiter(api.cfg.AuthRateLimitRPS))

		// Orders and pricing
		r.Post("/v1/orders", orderHandler.CreateQuote)
		r.Get("/v1/orders/{id}", orderHandler.GetOrder)
		r.Patch("/v1/orders/{id}/pricing", orderHandler.Reprice)

		// Resumable flow
		r.Get("/v1/orders/{id}/resume", workflowHandler.Resume)
		r.Get("/v1/sender-sections", workflowHandler.RequiredSections)
		r.Put("/v1/orders/{id}/sender", workflowHandler.UpsertSender)
		r.Post("/v1/orders/{id}/beneficiary", workflowHandler.SelectBeneficiary)
		r.Post("/v1/orders/{id}/beneficiary/new", workflowHandler.AttachBeneficiary)
		r.Post("/v1/orders/{id}/uploads", workflowHandler.RegisterUpload)
		r.Post("/v1/orders/{id}/documents/submit", workflowHandler.SubmitDocuments)
		r.Post("/v1/orders/{id}/quote-document", workflowHandler.QuoteDocument)

		// Beneficiary book
		r.Get("/v1/beneficiaries", beneficiaryHandler.List)
		r.Post("/v1/beneficiaries", beneficiaryHandler.Create)
		r.Get("/v1/beneficiaries/{id}", beneficiaryHandler.Get)
		r.Put("/v1/beneficiaries/{id}", beneficiaryHandler.Update)
		r.Patch("/v1/beneficiaries/{id}/active", beneficiaryHandler.SetActive)
		r.Delete("/v1/beneficiaries/{id}", beneficiaryHandler.Delete)

		// Staff operations
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole("staff"))
			r.Patch("/v1/orders/{id}/status", orderHandler.SetStatus)
			r.Post("/v1/orders/{id}/authorize", orderHandler.Authorize)
			r.Post("/v1/orders/{id}/block", orderHandler.Block)
			r.Post("/v1/orders/{id}/rate-override", orderHandler.OverrideRate)
		})
	})

	return r
}
