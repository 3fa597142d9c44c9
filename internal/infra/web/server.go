package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"content-paygate/internal/domain/ports/repository"
	infraredis "content-paygate/internal/infra/redis"
	"content-paygate/internal/usecase"
)

// Per-route request budgets, requests per client IP per minute.
const (
	createLimit = 10
	verifyLimit = 20
	statusLimit = 30
)

type Server struct {
	paymentUC usecase.PaymentUseCase
	purchases repository.PurchaseRepository
	limiter   *infraredis.RateLimiter
	log       *zerolog.Logger
}

func NewServer(
	paymentUC usecase.PaymentUseCase,
	purchases repository.PurchaseRepository,
	limiter *infraredis.RateLimiter,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "Web").Logger()
	return &Server{
		paymentUC: paymentUC,
		purchases: purchases,
		limiter:   limiter,
		log:       &l,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.healthHandler)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.With(s.rateLimit("create-payment-request", createLimit)).
			Post("/payments/create-payment-request", s.createPaymentRequestHandler)
		r.With(s.rateLimit("verify-payment", verifyLimit)).
			Post("/payments/verify-payment", s.verifyPaymentHandler)
		r.With(s.rateLimit("payment-status", statusLimit)).
			Get("/payments/payment-status", s.paymentStatusHandler)
		r.With(s.rateLimit("purchases", statusLimit)).
			Get("/purchases", s.listPurchasesHandler)
	})

	return r
}

// rateLimit applies a fixed one-minute window per client IP and route. The
// limiter fails OPEN: when redis is unreachable the request goes through and
// the error is logged. Availability beats limiting here.
func (s *Server) rateLimit(route string, limit int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if s.limiter == nil {
				next.ServeHTTP(w, r)
				return
			}
			key := infraredis.EndpointKey(clientIP(r), route)
			ok, err := s.limiter.Allow(r.Context(), key, limit, time.Minute)
			if err != nil {
				s.log.Warn().Err(err).Str("route", route).Msg("rate limiter unavailable, allowing request")
				next.ServeHTTP(w, r)
				return
			}
			if !ok {
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
