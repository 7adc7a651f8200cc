package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/otp-store/internal/transport/http/handler"
)

// readyTimeout bounds the store probe behind the readiness check.
const readyTimeout = 2 * time.Second

// NewRouter builds the operational router. It exposes health and readiness only;
// OTP records are created by callers of the otp application service.
func NewRouter(store StoreProber) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	healthH := handler.NewHealthHandler(store, readyTimeout)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health-check/{action}", healthH.Check)
	})
	return r
}
