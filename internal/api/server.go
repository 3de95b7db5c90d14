// Package api exposes the prospecting operations over HTTP. Every /v1
// response is an envelope: {"success": true, ...payload} or
// {"success": false, "error": "...", "code": "..."}.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/board"
	"github.com/sells-group/prospect-cli/internal/interest"
	"github.com/sells-group/prospect-cli/internal/metrics"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/outreach"
	"github.com/sells-group/prospect-cli/internal/pipeline"
	"github.com/sells-group/prospect-cli/internal/prospect"
	"github.com/sells-group/prospect-cli/internal/sitecheck"
	"github.com/sells-group/prospect-cli/internal/store"
)

// Importer imports and sources leads.
type Importer interface {
	Import(ctx context.Context, tenantID string, rows []model.PartialLead, source model.Source) (*prospect.ImportResult, error)
	Search(ctx context.Context, tenantID string, req prospect.SearchRequest) (*prospect.ImportResult, error)
	SearchIntent(ctx context.Context, tenantID string, req prospect.IntentRequest) (*prospect.ImportResult, error)
}

// Classifier analyzes lead websites.
type Classifier interface {
	ClassifyLead(ctx context.Context, tenantID, leadID string) (*sitecheck.Result, error)
	ClassifyBatch(ctx context.Context, tenantID string, limit int) (*sitecheck.BatchResult, error)
}

// ReplyProcessor applies inbound replies to leads.
type ReplyProcessor interface {
	Process(ctx context.Context, tenantID, leadID, message string, channel model.Channel) (*interest.Outcome, error)
}

// Decider picks and sends the next message for a lead.
type Decider interface {
	Decide(ctx context.Context, tenantID string, req outreach.Request) (*outreach.Decision, error)
}

// Runner runs batch outreach.
type Runner interface {
	Run(ctx context.Context, tenantID string, opts pipeline.RunOptions) (*pipeline.RunResult, error)
}

// Mover moves board cards.
type Mover interface {
	Move(ctx context.Context, tenantID, leadID string, toStatus model.Status, index int) (board.State, error)
}

// LeadStore serves the lead listing endpoints.
type LeadStore interface {
	FindLeads(ctx context.Context, tenantID string, filter store.LeadFilter) ([]model.Lead, error)
	DeleteLeads(ctx context.Context, tenantID string, ids []string) (int64, error)
	LeadStats(ctx context.Context, tenantID string) (*model.LeadStats, error)
}

// Services are the operations behind the routes.
type Services struct {
	Importer   Importer
	Classifier Classifier
	Replies    ReplyProcessor
	Decider    Decider
	Runner     Runner
	Mover      Mover
	Leads      LeadStore
}

// Options configures the router.
type Options struct {
	JWTSecret   []byte
	CORSOrigins []string
	// ClassifyBatchLimit caps batch classification when the request has no limit.
	ClassifyBatchLimit int
}

type handler struct {
	svc  Services
	opts Options
}

// NewRouter builds the HTTP handler.
func NewRouter(svc Services, opts Options) http.Handler {
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}
	h := &handler{svc: svc, opts: opts}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(authenticate(opts.JWTSecret))

		r.Post("/import", h.importLeads)
		r.Post("/classify", h.classify)
		r.Post("/interest", h.interest)
		r.Post("/decision", h.decision)
		r.Post("/search", h.search)
		r.Post("/search-intent", h.searchIntent)
		r.Post("/prospect", h.prospect)

		r.Get("/leads", h.listLeads)
		r.Delete("/leads", h.deleteLeads)
		r.Get("/leads/stats", h.stats)
		r.Post("/leads/{id}/move", h.moveLead)
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("api: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
