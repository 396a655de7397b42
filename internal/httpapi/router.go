package httpapi

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"marksix-lab/internal/dispatch"
	"marksix-lab/internal/observability"
)

// RouterDeps are the dependencies of the HTTP router.
type RouterDeps struct {
	Dispatcher     *dispatch.Dispatcher // session shared by REST endpoints
	WS             http.Handler         // nil disables /ws
	Metrics        *observability.Metrics
	Logger         *log.Logger
	AllowedOrigins []string      // nil allows all
	RequestTimeout time.Duration // 0 disables the timeout
}

// NewRouter builds the HTTP API:
//
//	GET  /health
//	GET  /metrics
//	POST /api/load
//	POST /api/backtest
//	GET  /api/replay/{period}   replay against the latest run
//	POST /api/replay/{period}   run the posted strategy, then replay
//	GET  /api/stats
//	POST /api/command           raw protocol request
//	GET  /ws                    protocol over WebSocket
func NewRouter(deps RouterDeps) chi.Router {
	origins := deps.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           60 * 15,
	}))

	h := NewHandler(HandlerDeps{Dispatcher: deps.Dispatcher, Logger: deps.Logger})

	r.Get("/health", h.Health)
	r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	if deps.WS != nil {
		r.Method(http.MethodGet, "/ws", deps.WS)
	}

	r.Route("/api", func(rr chi.Router) {
		if deps.RequestTimeout > 0 {
			rr.Use(middleware.Timeout(deps.RequestTimeout))
		}
		rr.Post("/load", h.Load)
		rr.Post("/backtest", h.Backtest)
		rr.Get("/replay/{period}", h.Replay)
		rr.Post("/replay/{period}", h.Replay)
		rr.Get("/stats", h.Stats)
		rr.Post("/command", h.Command)
	})

	return r
}
