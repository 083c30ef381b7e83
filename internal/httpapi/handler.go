// Package httpapi exposes the quality service over HTTP under /api/v1.
package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"factoryqc/internal/errs"
	"factoryqc/internal/usecase/kpi"
)

// Service is the part of kpi.Service served over HTTP.
type Service interface {
	RecordEvent(ctx context.Context, input kpi.RecordEventInput) (kpi.RecordEventResult, error)
	SubmitProduction(ctx context.Context, input kpi.SubmitProductionInput) (kpi.SubmitProductionResult, error)

	GetSummary(ctx context.Context, id uint64) (kpi.SummaryDetailView, error)
	UpdateSummary(ctx context.Context, input kpi.UpdateSummaryInput) (kpi.SummaryView, error)
	DeleteSummary(ctx context.Context, id uint64) error
	ListDefects(ctx context.Context, summaryID uint64) ([]kpi.DefectView, error)
	GetDefect(ctx context.Context, id uint64) (kpi.DefectView, error)
	UpdateDefect(ctx context.Context, input kpi.UpdateDefectInput) (kpi.DefectView, error)
	DeleteDefect(ctx context.Context, id uint64) error

	Dashboard(ctx context.Context, input kpi.RangeInput) (kpi.DashboardResult, error)
	Values(ctx context.Context, input kpi.RangeInput) (kpi.ValuesResult, error)
	Trend(ctx context.Context, monthsBack int) (kpi.TrendResult, error)
	Pareto(ctx context.Context, input kpi.RangeInput) (kpi.ParetoResult, error)

	ListAlerts(ctx context.Context, input kpi.ListAlertsInput) ([]kpi.AlertView, error)
	GetAlert(ctx context.Context, ref string) (kpi.AlertView, error)
	Acknowledge(ctx context.Context, input kpi.AcknowledgeInput) (kpi.AlertView, error)
	Resolve(ctx context.Context, input kpi.ResolveInput) (kpi.AlertView, error)

	CreateClaim(ctx context.Context, input kpi.CreateClaimInput) (kpi.ClaimView, error)
	ListClaims(ctx context.Context, input kpi.ListClaimsInput) ([]kpi.ClaimView, error)
	CreateActionPlan(ctx context.Context, input kpi.CreateActionPlanInput) (kpi.ActionPlanView, error)
	UpdateActionPlan(ctx context.Context, input kpi.UpdateActionPlanInput) (kpi.ActionPlanView, error)
	ListActionPlans(ctx context.Context, input kpi.ListActionPlansInput) ([]kpi.ActionPlanView, error)

	ListMachines(ctx context.Context) ([]kpi.MachineView, error)
	ListDefectCodes(ctx context.Context) ([]kpi.DefectCodeView, error)
	ListProductLines(ctx context.Context) ([]kpi.ProductLineView, error)
}

type Options struct {
	// Diagnostic adds the error chain to error payloads.
	Diagnostic         bool
	CORSOrigins        []string
	WriteRatePerMinute int
}

type Handler struct {
	svc        Service
	diagnostic bool
}

// NewHandler builds the router: /healthz and /metrics at the root, the API under /api/v1.
func NewHandler(svc Service, opts Options) http.Handler {
	h := &Handler{svc: svc, diagnostic: opts.Diagnostic}

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(requestContext)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(observe)
		r.Use(limitWrites(opts.WriteRatePerMinute))
		r.NotFound(h.notFound)
		r.MethodNotAllowed(h.methodNotAllowed)

		r.Post("/entries", h.recordEvent)
		r.Post("/production", h.submitProduction)

		r.Get("/dashboard", h.dashboard)
		r.Get("/values", h.values)
		r.Get("/trends", h.trends)
		r.Get("/pareto", h.pareto)

		r.Route("/andon", func(r chi.Router) {
			r.Get("/", h.listAlerts)
			r.Get("/{ref}", h.getAlert)
			r.Patch("/{ref}/acknowledge", h.acknowledge)
			r.Patch("/{ref}/resolve", h.resolve)
		})

		r.Route("/edit", func(r chi.Router) {
			r.Get("/production/{id}", h.getSummary)
			r.Patch("/production/{id}", h.updateSummary)
			r.Delete("/production/{id}", h.deleteSummary)
			r.Get("/production/{id}/defects", h.listDefects)
			r.Get("/defect/{id}", h.getDefect)
			r.Patch("/defect/{id}", h.updateDefect)
			r.Delete("/defect/{id}", h.deleteDefect)
		})

		r.Get("/claims", h.listClaims)
		r.Post("/claims", h.createClaim)
		r.Get("/action-plans", h.listActionPlans)
		r.Post("/action-plans", h.createActionPlan)
		r.Patch("/action-plans/{id}", h.updateActionPlan)

		r.Route("/master", func(r chi.Router) {
			r.Get("/machines", h.listMachines)
			r.Get("/defect-codes", h.listDefectCodes)
			r.Get("/product-lines", h.listProductLines)
		})
	})
	return r
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	h.writeError(w, r, errs.NotFound("route %s %s", r.Method, r.URL.Path))
}

func (h *Handler) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, Envelope{
		Error: &APIError{Code: "METHOD_NOT_ALLOWED", Message: "method not allowed"},
		Meta:  metaFor(r),
	})
}

// pathID parses a positive numeric path parameter.
func pathID(r *http.Request, name string) (uint64, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, errs.Validation("%s must be a positive integer, got %q", name, raw)
	}
	return id, nil
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errs.Validation("%s must be an integer, got %q", name, raw)
	}
	return v, nil
}

func rangeInput(r *http.Request) kpi.RangeInput {
	q := r.URL.Query()
	return kpi.RangeInput{
		Range:       q.Get("range"),
		From:        q.Get("from"),
		To:          q.Get("to"),
		Shift:       q.Get("shift"),
		LineCode:    q.Get("line"),
		MachineCode: q.Get("machine"),
		Category:    q.Get("category"),
	}
}
