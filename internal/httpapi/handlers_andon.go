package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"factoryqc/internal/usecase/kpi"
)

func (h *Handler) listAlerts(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	out, err := h.svc.ListAlerts(r.Context(), kpi.ListAlertsInput{
		Status:      q.Get("status"),
		MachineCode: q.Get("machine"),
		OpenOnly:    isTruthy(q.Get("open")),
		Limit:       limit,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, r, http.StatusOK, out)
}

func (h *Handler) getAlert(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.GetAlert(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, r, http.StatusOK, out)
}

func (h *Handler) acknowledge(w http.ResponseWriter, r *http.Request) {
	var input kpi.AcknowledgeInput
	if err := decodeBody(r, &input); err != nil {
		h.writeError(w, r, err)
		return
	}
	input.Ref = chi.URLParam(r, "ref")
	out, err := h.svc.Acknowledge(r.Context(), input)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, r, http.StatusOK, out)
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) {
	var input kpi.ResolveInput
	if err := decodeBody(r, &input); err != nil {
		h.writeError(w, r, err)
		return
	}
	input.Ref = chi.URLParam(r, "ref")
	out, err := h.svc.Resolve(r.Context(), input)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, r, http.StatusOK, out)
}
