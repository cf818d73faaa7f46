package rest_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/frahmantamala/voucher-store/internal"
	"github.com/frahmantamala/voucher-store/internal/auth"
	"github.com/frahmantamala/voucher-store/internal/transport"
	"github.com/frahmantamala/voucher-store/internal/transport/rest"
	"github.com/frahmantamala/voucher-store/internal/user"
)

const openAPIDoc = `openapi: 3.0.3
info:
  title: Voucher Store API
  version: 1.0.0
paths:
  /api/ping:
    get:
      responses:
        "200":
          description: OK
`

type tokenStub struct{}

func (tokenStub) Register(ctx context.Context, dto auth.RegisterDTO) (*auth.AuthResponse, error) {
	return nil, internal.ErrEmailTaken
}

func (tokenStub) Authenticate(ctx context.Context, dto auth.LoginDTO) (*auth.AuthResponse, error) {
	return nil, internal.ErrInvalidCredentials
}

func (tokenStub) RefreshTokens(ctx context.Context, refreshToken string) (*auth.AuthTokens, error) {
	return nil, internal.ErrInvalidToken
}

func (tokenStub) ValidateAccessToken(tokenString string) (*auth.Claims, error) {
	switch tokenString {
	case "customer":
		return &auth.Claims{UserID: 1}, nil
	case "admin":
		return &auth.Claims{UserID: 2}, nil
	}
	return nil, internal.ErrInvalidToken
}

func (tokenStub) GetActiveUser(ctx context.Context, id int64) (*internal.User, error) {
	return &internal.User{ID: id, Email: "user@example.com", IsAdmin: id == 2}, nil
}

type usersStub struct{}

func (usersStub) GetProfile(ctx context.Context, userID int64) (*user.Profile, error) {
	return &user.Profile{ID: userID, Email: "user@example.com"}, nil
}

func (usersStub) ListCustomers(ctx context.Context, filter user.Filter) (*user.ListResult, error) {
	return &user.ListResult{Users: []user.Profile{}, Page: 1, Limit: 20}, nil
}

func (usersStub) Deactivate(ctx context.Context, id int64, actor *internal.User) error {
	return nil
}

var _ = Describe("Router", func() {
	var (
		router *chi.Mux
		specs  string
	)

	BeforeEach(func() {
		slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		base := transport.NewBaseHandler(slogger)

		db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
		Expect(err).NotTo(HaveOccurred())
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(sqlDB.Close)

		specs = filepath.Join(GinkgoT().TempDir(), "openapi.yml")
		Expect(os.WriteFile(specs, []byte(openAPIDoc), 0o644)).To(Succeed())
		doc, err := rest.LoadOpenAPI(context.Background(), specs)
		Expect(err).NotTo(HaveOccurred())

		router = chi.NewRouter()
		rest.RegisterAllRoutes(router, rest.RouterConfig{AllowedOrigins: "https://shop.example.com"}, rest.Handlers{
			Auth:    auth.NewHandler(base, tokenStub{}),
			User:    user.NewHandler(base, usersStub{}),
			Health:  rest.NewHealthHandler(sqlDB, nil),
			OpenAPI: doc,
		}, slogger)
	})

	serve := func(method, path, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	It("answers ping and health under /api", func() {
		Expect(serve(http.MethodGet, "/api/ping", "").Code).To(Equal(http.StatusOK))

		rec := serve(http.MethodGet, "/api/health", "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		var body rest.HealthResponse
		Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
		Expect(body.Status).To(Equal(rest.HealthHealthy))
		Expect(body.Components).To(HaveKey("postgres"))
		Expect(body.Components).NotTo(HaveKey("redis"))
	})

	It("propagates the trace id", func() {
		req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
		req.Header.Set("X-Trace-ID", "trace-123")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		Expect(rec.Header().Get("X-Trace-ID")).To(Equal("trace-123"))
	})

	It("requires a token for /auth/me", func() {
		Expect(serve(http.MethodGet, "/api/auth/me", "").Code).To(Equal(http.StatusUnauthorized))
		Expect(serve(http.MethodGet, "/api/auth/me", "customer").Code).To(Equal(http.StatusOK))
	})

	It("restricts admin routes to administrators", func() {
		Expect(serve(http.MethodGet, "/api/admin/users", "").Code).To(Equal(http.StatusUnauthorized))
		Expect(serve(http.MethodGet, "/api/admin/users", "customer").Code).To(Equal(http.StatusForbidden))
		Expect(serve(http.MethodGet, "/api/admin/users", "admin").Code).To(Equal(http.StatusOK))
		Expect(serve(http.MethodDelete, "/api/admin/users/7", "admin").Code).To(Equal(http.StatusOK))
	})

	It("serves the openapi document at the root", func() {
		rec := serve(http.MethodGet, "/openapi.yml", "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("Voucher Store API"))
	})

	It("answers CORS preflight for allowed origins", func() {
		req := httptest.NewRequest(http.MethodOptions, "/api/ping", nil)
		req.Header.Set("Origin", "https://shop.example.com")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		Expect(rec.Code).To(Equal(http.StatusNoContent))
		Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(Equal("https://shop.example.com"))
	})

	It("returns the error envelope for unknown routes", func() {
		rec := serve(http.MethodGet, "/api/nowhere", "")
		Expect(rec.Code).To(Equal(http.StatusNotFound))
		Expect(rec.Body.String()).To(ContainSubstring(`"success":false`))
	})
})

var _ = Describe("LoadOpenAPI", func() {
	It("fails for a missing document", func() {
		_, err := rest.LoadOpenAPI(context.Background(), filepath.Join(GinkgoT().TempDir(), "missing.yml"))
		Expect(err).To(HaveOccurred())
	})

	It("exposes document info", func() {
		path := filepath.Join(GinkgoT().TempDir(), "openapi.yml")
		Expect(os.WriteFile(path, []byte(openAPIDoc), 0o644)).To(Succeed())
		doc, err := rest.LoadOpenAPI(context.Background(), path)
		Expect(err).NotTo(HaveOccurred())
		Expect(doc.Title()).To(Equal("Voucher Store API"))
		Expect(doc.Version()).To(Equal("1.0.0"))
		Expect(doc.PathCount()).To(Equal(1))
	})
})
