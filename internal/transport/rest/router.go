package rest

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/voucher-store/internal/admin"
	"github.com/frahmantamala/voucher-store/internal/auth"
	"github.com/frahmantamala/voucher-store/internal/catalog"
	"github.com/frahmantamala/voucher-store/internal/payment"
	"github.com/frahmantamala/voucher-store/internal/receipt"
	"github.com/frahmantamala/voucher-store/internal/transaction"
	"github.com/frahmantamala/voucher-store/internal/transport/middleware"
	"github.com/frahmantamala/voucher-store/internal/transport/swagger"
	"github.com/frahmantamala/voucher-store/internal/user"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

// Handlers groups the HTTP handlers mounted by RegisterAllRoutes. Nil handlers are not mounted.
type Handlers struct {
	Auth        *auth.Handler
	User        *user.Handler
	Catalog     *catalog.Handler
	Transaction *transaction.Handler
	Payment     *payment.Handler
	Webhook     *payment.WebhookHandler
	Receipt     *receipt.Handler
	Admin       *admin.Handler
	Health      *HealthHandler
	OpenAPI     *OpenAPIHandler
}

type RouterConfig struct {
	AllowedOrigins string
}

func RegisterAllRoutes(router *chi.Mux, cfg RouterConfig, h Handlers, logger *slog.Logger) {
	// Apply global middleware
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeNotFound(w)
	})

	// OpenAPI document and Swagger UI live at the root, outside the API prefix
	if h.OpenAPI != nil {
		router.Get(swagger.DocURL, h.OpenAPI.ServeSpec)
		router.Handle("/swagger/*", swagger.Handler(swagger.DocURL))
	}

	router.Route("/api", func(r chi.Router) {
		if h.Health != nil {
			r.Get("/health", h.Health.healthCheckHandler)
			r.Get("/ping", h.Health.pingHandler)
		}

		if h.Auth == nil {
			return
		}
		requireAuth := chi.Chain(h.Auth.AuthMiddleware, middleware.UserLogContext)

		r.Route("/auth", func(ar chi.Router) {
			ar.Post("/register", h.Auth.Register)
			ar.Post("/login", h.Auth.Login)
			ar.Post("/refresh", h.Auth.RefreshToken)
			if h.User != nil {
				ar.With(requireAuth...).Get("/me", h.User.GetCurrentUser)
			}
		})

		// Public catalog; sync is admin only
		if h.Catalog != nil {
			r.Route("/vouchers", func(vr chi.Router) {
				vr.Get("/", h.Catalog.ListVouchers)
				vr.Get("/categories", h.Catalog.GetCategories)
				vr.Get("/providers", h.Catalog.GetProviders)
				vr.With(requireAuth...).With(middleware.RequireAdmin).Post("/sync", h.Catalog.SyncCatalog)
				vr.Get("/{code}", h.Catalog.GetVoucher)
			})
		}

		r.Route("/payment", func(pr chi.Router) {
			// Gateway callback is unauthenticated; the handler checks the signature
			if h.Webhook != nil {
				pr.Post("/callback", h.Webhook.HandlePaymentCallback)
			}
			pr.Group(func(ar chi.Router) {
				ar.Use(requireAuth...)
				if h.Payment != nil {
					ar.Get("/status/{orderId}", h.Payment.GetPaymentStatus)
				}
				if h.Receipt != nil {
					ar.Get("/receipt/{transactionId}", h.Receipt.GetReceipt)
				}
			})
		})

		if h.Transaction != nil {
			r.Route("/transactions", func(tr chi.Router) {
				tr.Use(requireAuth...)
				tr.Post("/", h.Transaction.CreateTransaction)
				tr.Get("/", h.Transaction.ListTransactions)
				tr.Get("/{transactionId}/status", h.Transaction.CheckStatus)
				if h.Payment != nil {
					tr.Post("/{transactionId}/payment", h.Payment.ProcessPayment)
				}
			})
		}

		r.Route("/admin", func(ar chi.Router) {
			ar.Use(requireAuth...)
			ar.Use(middleware.RequireAdmin)

			if h.Admin != nil {
				ar.Get("/dashboard", h.Admin.Dashboard)
				ar.Get("/transactions", h.Admin.ListTransactions)
				ar.Patch("/transactions/{id}/status", h.Admin.UpdateTransactionStatus)
				ar.Get("/margins", h.Admin.ListMargins)
				ar.Post("/margins", h.Admin.UpsertMargin)
				ar.Post("/prices/recalculate", h.Admin.RecalculatePrices)
			}
			if h.User != nil {
				ar.Get("/users", h.User.ListUsers)
				ar.Delete("/users/{id}", h.User.DeactivateUser)
			}
		})
	})
}
