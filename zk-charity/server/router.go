package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

type RouterConfig struct {
	AllowedOrigins  []string
	RateLimitPerMin int
	// TrustProxy takes the client IP from X-Forwarded-For / X-Real-IP.
	TrustProxy bool
}

func NewRouter(app *App, cfg RouterConfig, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID)
	if cfg.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(middleware.Recoverer, Logger(log), CORS(cfg.AllowedOrigins))

	r.Get("/", app.Index)
	r.Get("/healthz", app.Health)

	// proving is the expensive endpoint, it gets the rate limit
	r.With(RateLimit(cfg.RateLimitPerMin, time.Minute)).Post("/generate-proof", app.GenerateProof)
	r.Post("/verify-proof", app.VerifyProof)

	r.Get("/wallet/balances", app.WalletBalances)
	r.Get("/estimate", app.Estimate)

	r.Route("/dashboard", func(r chi.Router) {
		r.Get("/", app.DashboardSnapshot)
		r.Put("/privacy-level", app.SetPrivacyLevel)
	})

	r.Route("/donations", func(r chi.Router) {
		r.Post("/", app.CreateDonation)
		r.Get("/", app.ListDonations)
		r.Get("/{id}/tax-receipt", app.TaxReceipt)
	})
	r.Post("/tax-receipts/verify", app.VerifyTaxReceipt)

	r.Route("/charities", func(r chi.Router) {
		r.Get("/", app.ListCharities)
		r.Get("/{id}/received", app.CharityReceived)
	})

	r.Get("/ledger/root", app.LedgerRoot)
	return r
}
