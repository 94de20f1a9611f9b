package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/gescom-erp/gescom-erp/internal/ledger"
	"github.com/gescom-erp/gescom-erp/internal/ledger/accounts"
	"github.com/gescom-erp/gescom-erp/internal/ledger/journals"
	"github.com/gescom-erp/gescom-erp/internal/ledger/periods"
	"github.com/gescom-erp/gescom-erp/internal/ledger/reports"
	"github.com/gescom-erp/gescom-erp/internal/observability"
	"github.com/gescom-erp/gescom-erp/internal/sequences"
	"github.com/gescom-erp/gescom-erp/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	SequencesHandler *sequences.Handler
	AccountsHandler  *accounts.Handler
	JournalsHandler  *journals.Handler
	PeriodsHandler   *periods.Handler
	LedgerHandler    *ledger.Handler
	ReportsHandler   *reports.Handler
	JobHandler       *jobs.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with Gescom defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)
	if params.Metrics != nil {
		r.Use(params.Metrics.Middleware)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.SequencesHandler != nil {
		r.Route("/sequences", params.SequencesHandler.MountRoutes)
	}
	r.Route("/accounting", func(r chi.Router) {
		if params.AccountsHandler != nil {
			r.Route("/accounts", params.AccountsHandler.MountRoutes)
		}
		if params.JournalsHandler != nil {
			r.Route("/journals", params.JournalsHandler.MountRoutes)
		}
		if params.PeriodsHandler != nil {
			r.Route("/periods", params.PeriodsHandler.MountRoutes)
		}
		if params.LedgerHandler != nil {
			r.Route("/entries", params.LedgerHandler.MountRoutes)
		}
		if params.ReportsHandler != nil {
			r.Route("/reports", params.ReportsHandler.MountRoutes)
		}
	})
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
