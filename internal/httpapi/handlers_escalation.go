package httpapi

import (
	"net/http"

	"factoryqc/internal/usecase/kpi"
)

func (h *Handler) listClaims(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	out, err := h.svc.ListClaims(r.Context(), kpi.ListClaimsInput{From: q.Get("from"), To: q.Get("to"), Limit: limit})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, r, http.StatusOK, out)
}

func (h *Handler) createClaim(w http.ResponseWriter, r *http.Request) {
	var input kpi.CreateClaimInput
	if err := decodeBody(r, &input); err != nil {
		h.writeError(w, r, err)
		return
	}
	out, err := h.svc.CreateClaim(r.Context(), input)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, r, http.StatusCreated, out)
}

func (h *Handler) listActionPlans(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	out, err := h.svc.ListActionPlans(r.Context(), kpi.ListActionPlansInput{
		Status:     q.Get("status"),
		SourceType: q.Get("source_type"),
		SourceID:   q.Get("source_id"),
		Limit:      limit,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, r, http.StatusOK, out)
}

func (h *Handler) createActionPlan(w http.ResponseWriter, r *http.Request) {
	var input kpi.CreateActionPlanInput
	if err := decodeBody(r, &input); err != nil {
		h.writeError(w, r, err)
		return
	}
	out, err := h.svc.CreateActionPlan(r.Context(), input)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, r, http.StatusCreated, out)
}

func (h *Handler) updateActionPlan(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var input kpi.UpdateActionPlanInput
	if err := decodeBody(r, &input); err != nil {
		h.writeError(w, r, err)
		return
	}
	input.ID = id
	out, err := h.svc.UpdateActionPlan(r.Context(), input)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, r, http.StatusOK, out)
}

func (h *Handler) listMachines(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.ListMachines(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, r, http.StatusOK, out)
}

func (h *Handler) listDefectCodes(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.ListDefectCodes(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, r, http.StatusOK, out)
}

func (h *Handler) listProductLines(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.ListProductLines(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, r, http.StatusOK, out)
}
