package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sells-group/prospect-cli/internal/board"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/outreach"
	"github.com/sells-group/prospect-cli/internal/pipeline"
	"github.com/sells-group/prospect-cli/internal/prospect"
	"github.com/sells-group/prospect-cli/internal/store"
)

const defaultListLimit = 100

type importRequest struct {
	Leads  []model.PartialLead `json:"leads"`
	Source model.Source        `json:"source,omitempty" validate:"omitempty,oneof=manual csv_import google_maps"`
}

type classifyRequest struct {
	LeadID string `json:"leadId,omitempty" validate:"required_without=Batch"`
	Batch  bool   `json:"batch,omitempty"`
	Limit  int    `json:"limit,omitempty" validate:"omitempty,min=1,max=100"`
}

type interestRequest struct {
	LeadID  string        `json:"leadId" validate:"required"`
	Message string        `json:"message" validate:"required"`
	Channel model.Channel `json:"channel,omitempty" validate:"omitempty,oneof=email whatsapp phone"`
}

type moveRequest struct {
	ToStatus model.Status `json:"toStatus" validate:"required"`
	Index    int          `json:"index" validate:"min=0"`
}

type deleteRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,max=500"`
}

func (h *handler) importLeads(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := decode(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	res, err := h.svc.Importer.Import(r.Context(), TenantFromContext(r.Context()), req.Leads, req.Source)
	if err != nil {
		fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, res)
}

func (h *handler) classify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if err := decode(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	tenant := TenantFromContext(r.Context())

	if req.Batch {
		limit := req.Limit
		if limit == 0 {
			limit = h.opts.ClassifyBatchLimit
		}
		res, err := h.svc.Classifier.ClassifyBatch(r.Context(), tenant, limit)
		if err != nil {
			fail(w, r, err)
			return
		}
		ok(w, http.StatusOK, res)
		return
	}

	res, err := h.svc.Classifier.ClassifyLead(r.Context(), tenant, req.LeadID)
	if err != nil {
		fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, res)
}

func (h *handler) interest(w http.ResponseWriter, r *http.Request) {
	var req interestRequest
	if err := decode(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	res, err := h.svc.Replies.Process(r.Context(), TenantFromContext(r.Context()), req.LeadID, req.Message, req.Channel)
	if err != nil {
		fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, res)
}

func (h *handler) decision(w http.ResponseWriter, r *http.Request) {
	var req outreach.Request
	if err := decode(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	d, err := h.svc.Decider.Decide(r.Context(), TenantFromContext(r.Context()), req)
	if err != nil {
		fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, d)
}

func (h *handler) search(w http.ResponseWriter, r *http.Request) {
	var req prospect.SearchRequest
	if err := decode(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	res, err := h.svc.Importer.Search(r.Context(), TenantFromContext(r.Context()), req)
	if err != nil {
		fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, res)
}

func (h *handler) searchIntent(w http.ResponseWriter, r *http.Request) {
	var req prospect.IntentRequest
	if err := decode(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	res, err := h.svc.Importer.SearchIntent(r.Context(), TenantFromContext(r.Context()), req)
	if err != nil {
		fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, res)
}

func (h *handler) prospect(w http.ResponseWriter, r *http.Request) {
	var req pipeline.RunOptions
	if err := decode(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	res, err := h.svc.Runner.Run(r.Context(), TenantFromContext(r.Context()), req)
	if err != nil {
		fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, res)
}

func (h *handler) listLeads(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.LeadFilter{
		Search: q.Get("search"),
		Limit:  defaultListLimit,
	}
	for _, s := range q["status"] {
		st := model.Status(s)
		if !st.Valid() {
			fail(w, r, badRequest("status "+s+" is invalid"))
			return
		}
		filter.Statuses = append(filter.Statuses, st)
	}
	for key, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		if v := q.Get(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				fail(w, r, badRequest(key+" must be a non-negative integer"))
				return
			}
			*dst = n
		}
	}

	leads, err := h.svc.Leads.FindLeads(r.Context(), TenantFromContext(r.Context()), filter)
	if err != nil {
		fail(w, r, err)
		return
	}
	if leads == nil {
		leads = []model.Lead{}
	}
	ok(w, http.StatusOK, map[string]any{"leads": leads, "count": len(leads)})
}

func (h *handler) deleteLeads(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if err := decode(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	n, err := h.svc.Leads.DeleteLeads(r.Context(), TenantFromContext(r.Context()), req.IDs)
	if err != nil {
		fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, map[string]any{"deleted": n})
}

func (h *handler) stats(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.Leads.LeadStats(r.Context(), TenantFromContext(r.Context()))
	if err != nil {
		fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, s)
}

func (h *handler) moveLead(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := decode(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	state, err := h.svc.Mover.Move(r.Context(), TenantFromContext(r.Context()), chi.URLParam(r, "id"), req.ToStatus, req.Index)
	if err != nil {
		status, code := classify(err)
		if status != http.StatusInternalServerError || len(state.Cards) == 0 {
			fail(w, r, err)
			return
		}
		// the store rejected the write; hand back the rolled-back board
		writeJSON(w, status, map[string]any{
			"success": false,
			"error":   "move was not saved",
			"code":    code,
			"board":   state,
		})
		return
	}
	ok(w, http.StatusOK, map[string]board.State{"board": state})
}
