// Package api exposes the bot over HTTP: authenticated webhooks that
// feed chat events into the dispatch, vouch, and status-role layers,
// plus read-only inspection endpoints and Prometheus metrics.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vaultgen/vaultgen/internal/app/dispatch"
	"github.com/vaultgen/vaultgen/internal/app/statusrole"
	"github.com/vaultgen/vaultgen/internal/app/vouch"
	"github.com/vaultgen/vaultgen/internal/infra/banlist"
	"github.com/vaultgen/vaultgen/internal/infra/sqlite"
	"github.com/vaultgen/vaultgen/internal/infra/stock"
)

// Server is the bot's HTTP surface.
type Server struct {
	dispatcher *dispatch.Dispatcher
	vouches    *vouch.Tracker
	status     *statusrole.Machine
	stock      *stock.Store
	bans       *banlist.Registry
	db         *sqlite.DB

	secret         string // HMAC key for webhook JWTs, empty disables auth
	metricsEnabled bool
}

// NewServer creates an API server.
func NewServer(d *dispatch.Dispatcher, v *vouch.Tracker, st *statusrole.Machine,
	sk *stock.Store, bans *banlist.Registry, db *sqlite.DB, secret string) *Server {
	return &Server{
		dispatcher: d,
		vouches:    v,
		status:     st,
		stock:      sk,
		bans:       bans,
		db:         db,
		secret:     secret,
	}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(s.requireJWT)

		r.Route("/webhook", func(r chi.Router) {
			r.Post("/command", s.handleCommand)
			r.Post("/message", s.handleMessage)
			r.Post("/presence", s.handlePresence)
		})

		r.Route("/api", func(r chi.Router) {
			r.Get("/stock", s.handleStock)
			r.Get("/vouches", s.handleVouches)
			r.Get("/bans", s.handleBans)
		})
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// ─── Inspection endpoints ───────────────────────────────────────────────────

func (s *Server) handleStock(w http.ResponseWriter, r *http.Request) {
	counts := s.stock.Counts()
	out := make(map[string]map[string]int, len(counts))
	for tier, services := range counts {
		out[string(tier)] = services
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"stock": out,
		"total": s.stock.Total(),
	})
}

func (s *Server) handleVouches(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	total, err := s.db.TotalVouches(userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id": userID,
		"vouches": total,
	})
}

func (s *Server) handleBans(w http.ResponseWriter, r *http.Request) {
	active := s.bans.Active()
	type banView struct {
		UserID    string `json:"user_id"`
		IssuerID  string `json:"issuer_id"`
		Reason    string `json:"reason"`
		Permanent bool   `json:"permanent"`
		ExpiresAt string `json:"expires_at,omitempty"`
	}
	out := make([]banView, 0, len(active))
	for _, b := range active {
		v := banView{
			UserID:    b.UserID,
			IssuerID:  b.IssuerID,
			Reason:    b.Reason,
			Permanent: b.Permanent(),
		}
		if !b.Permanent() {
			v.ExpiresAt = b.ExpiresAt.UTC().Format(time.RFC3339)
		}
		out = append(out, v)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"bans":  out,
		"count": len(out),
	})
}

// ─── Response helpers ───────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}
