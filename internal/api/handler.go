package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gyaneshwarpardhi/formflow/internal/config"
	"github.com/gyaneshwarpardhi/formflow/internal/engine"
	"github.com/gyaneshwarpardhi/formflow/internal/integrity"
	"github.com/gyaneshwarpardhi/formflow/internal/metrics"
	"github.com/gyaneshwarpardhi/formflow/internal/workflow"
)

// Handler holds all HTTP handler dependencies.
type Handler struct {
	eng      *engine.Engine
	loader   *config.Loader
	validate *validator.Validate
}

// New creates an HTTP handler and registers all routes.
func New(eng *engine.Engine, loader *config.Loader) http.Handler {
	h := &Handler{eng: eng, loader: loader, validate: newValidator()}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observe)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.healthz)
	r.Get("/readyz", h.readyz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/graph/repair", h.repairGraph)
		r.Route("/forms", func(r chi.Router) {
			r.Get("/", h.listForms)
			r.Post("/reload", h.reloadForms)
			r.Route("/{formID}", func(r chi.Router) {
				r.Get("/", h.getForm)
				r.Post("/next", h.next)
				r.Get("/cycles", h.cycles)
				r.Post("/simulate", h.simulate)
				r.Post("/simulate/batch", h.simulateBatch)
			})
		})
	})
	return r
}

type formSummary struct {
	ID          string `json:"id"`
	Title       string `json:"title,omitempty"`
	Blocks      int    `json:"blocks"`
	Connections int    `json:"connections"`
	First       string `json:"first,omitempty"`
}

type formDetail struct {
	formSummary
	BlockList      []workflow.Block            `json:"block_list"`
	ConnectionList []workflow.ConnectionRecord `json:"connection_list"`
	Repair         *integrity.Result           `json:"repair,omitempty"`
}

func summarize(f *config.Form) formSummary {
	return formSummary{
		ID:          f.ID,
		Title:       f.Title,
		Blocks:      f.Graph.BlockCount(),
		Connections: f.Graph.ConnectionCount(),
		First:       f.Graph.First(),
	}
}

func encodeConnections(conns []workflow.Connection) []workflow.ConnectionRecord {
	out := make([]workflow.ConnectionRecord, len(conns))
	for i, c := range conns {
		out[i] = workflow.EncodeConnection(c)
	}
	return out
}

func decodeConnections(recs []workflow.ConnectionRecord) []workflow.Connection {
	out := make([]workflow.Connection, len(recs))
	for i, rec := range recs {
		out[i] = rec.Connection()
	}
	return out
}

// GET /v1/forms
func (h *Handler) listForms(w http.ResponseWriter, r *http.Request) {
	cat := h.eng.Catalog()
	forms := make([]formSummary, 0, cat.Len())
	for _, f := range cat.Forms() {
		forms = append(forms, summarize(f))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"version":   h.loader.Config().Version,
		"loaded_at": cat.LoadedAt().Format(time.RFC3339),
		"forms":     forms,
	})
}

// GET /v1/forms/{formID}
func (h *Handler) getForm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "formID")
	f, ok := h.eng.Catalog().Form(id)
	if !ok {
		writeEngineError(w, engine.ErrFormNotFound)
		return
	}
	writeJSON(w, http.StatusOK, formDetail{
		formSummary:    summarize(f),
		BlockList:      f.Graph.Blocks(),
		ConnectionList: encodeConnections(f.Graph.Connections()),
		Repair:         f.Repair,
	})
}

// POST /v1/forms/{formID}/next resolves the block after block_id.
func (h *Handler) next(w http.ResponseWriter, r *http.Request) {
	var req nextRequest
	if !h.decode(w, r, &req) {
		return
	}
	d, err := h.eng.Next(chi.URLParam(r, "formID"), req.BlockID, req.Answer)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"next":    d.Next,
		"end":     d.End(),
		"reason":  d.Reason,
		"rule_id": d.RuleID,
	})
}

// GET /v1/forms/{formID}/cycles
func (h *Handler) cycles(w http.ResponseWriter, r *http.Request) {
	rep, err := h.eng.Cycles(chi.URLParam(r, "formID"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// POST /v1/forms/{formID}/simulate
func (h *Handler) simulate(w http.ResponseWriter, r *http.Request) {
	var req simulateRequest
	if !h.decode(w, r, &req) {
		return
	}
	sim, err := h.eng.Simulate(r.Context(), chi.URLParam(r, "formID"), req.Answers)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sim)
}

// POST /v1/forms/{formID}/simulate/batch runs up to 100 simulations on the pool.
func (h *Handler) simulateBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if !h.decode(w, r, &req) {
		return
	}
	sims, err := h.eng.SimulateBatch(r.Context(), chi.URLParam(r, "formID"), req.Runs)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total":       len(sims),
		"simulations": sims,
	})
}

// POST /v1/graph/repair prunes, re-attaches and cycle-checks a connection set
// posted by the builder. Rules in previous are carried over to regenerated
// connections with the same endpoints.
func (h *Handler) repairGraph(w http.ResponseWriter, r *http.Request) {
	var req repairRequest
	if !h.decode(w, r, &req) {
		return
	}
	conns := decodeConnections(req.Connections)
	reattached := 0
	if len(req.Previous) > 0 {
		before := conns
		conns = integrity.Reattach(decodeConnections(req.Previous), conns)
		for i := range conns {
			if len(before[i].Rules) == 0 && len(conns[i].Rules) > 0 {
				reattached++
			}
		}
	}
	res := integrity.Repair(req.Blocks, conns)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"connections": encodeConnections(res.Connections),
		"pruned":      res.Pruned,
		"preserved":   res.Preserved + reattached,
		"cyclic":      res.Cyclic,
		"cycles":      res.Cycles,
	})
}

// POST /v1/forms/reload hot-reloads forms from disk.
func (h *Handler) reloadForms(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.loader.Reload()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	cat, err := h.eng.Apply(cfg)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reloaded":    true,
		"forms_count": cat.Len(),
	})
}

// GET /healthz is the liveness probe.
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /readyz reports 503 while the simulation queue is more than 80% full.
func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	util := h.eng.QueueUtilization()
	metrics.QueueUtilization.Set(util)
	if util > 0.8 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":            "overloaded",
			"queue_utilization": util,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":            "ready",
		"queue_utilization": util,
	})
}
