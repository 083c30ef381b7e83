package httpapi

import (
	"net/http"
)

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Dashboard(r.Context(), rangeInput(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, r, http.StatusOK, out)
}

func (h *Handler) values(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Values(r.Context(), rangeInput(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, r, http.StatusOK, out)
}

func (h *Handler) trends(w http.ResponseWriter, r *http.Request) {
	months, err := queryInt(r, "months")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out, err := h.svc.Trend(r.Context(), months)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, r, http.StatusOK, out)
}

func (h *Handler) pareto(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Pareto(r.Context(), rangeInput(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, r, http.StatusOK, out)
}
