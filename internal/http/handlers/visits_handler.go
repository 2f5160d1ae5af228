package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gatecontrol/visits/internal/domain"
	"github.com/gatecontrol/visits/internal/http/response"
)

type createVisitRequest struct {
	VisitorName    string `json:"visitor_name"`
	VisitorEmail   string `json:"visitor_email"`
	VisitorPhone   string `json:"visitor_phone"`
	VisitorCompany string `json:"visitor_company"`
	ExecutiveID    string `json:"executive_id"`
	ScheduledDate  string `json:"scheduled_date"`
	TimeFrom       string `json:"time_from"`
	TimeTo         string `json:"time_to"`
	Purpose        string `json:"purpose"`
	VisitType      string `json:"visit_type"`
}

// CreateVisit handles visit creation, honoring an Idempotency-Key header.
func (h *Handlers) CreateVisit(w http.ResponseWriter, r *http.Request) {
	var req createVisitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	scheduledDate, err := parseDate(req.ScheduledDate)
	if err != nil {
		response.BadRequest(w, "scheduled_date must be YYYY-MM-DD")
		return
	}

	visitType := domain.TypeScheduled
	if req.VisitType != "" {
		parsed, ok := domain.ParseVisitType(req.VisitType)
		if !ok {
			response.BadRequest(w, "visit_type must be scheduled or walk-in")
			return
		}
		visitType = parsed
	}

	idempotencyKey := r.Header.Get("Idempotency-Key")

	visit, err := h.visitService.CreateVisit(r.Context(), &domain.CreateVisitRequest{
		VisitorName:    req.VisitorName,
		VisitorEmail:   req.VisitorEmail,
		VisitorPhone:   req.VisitorPhone,
		VisitorCompany: req.VisitorCompany,
		ExecutiveID:    req.ExecutiveID,
		ScheduledDate:  scheduledDate,
		TimeFrom:       req.TimeFrom,
		TimeTo:         req.TimeTo,
		Purpose:        req.Purpose,
		VisitType:      visitType,
	}, idempotencyKey)
	if err != nil {
		h.writeDomainError(w, r, "create_visit", err)
		return
	}

	writeJSON(w, http.StatusCreated, visit)
}

// ListVisits returns all visits, newest scheduled date/time first.
func (h *Handlers) ListVisits(w http.ResponseWriter, r *http.Request) {
	visits, err := h.visitService.ListVisits(r.Context())
	if err != nil {
		h.writeDomainError(w, r, "list_visits", err)
		return
	}

	if visits == nil {
		visits = []domain.Visit{}
	}
	writeJSON(w, http.StatusOK, visits)
}

// GetVisit returns one visit by id.
func (h *Handlers) GetVisit(w http.ResponseWriter, r *http.Request) {
	visit, err := h.visitService.GetVisit(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, "get_visit", err)
		return
	}

	writeJSON(w, http.StatusOK, visit)
}

// NextVisitCode returns a preview of the next code. Advisory only: the
// code actually assigned at insert may differ under concurrency.
func (h *Handlers) NextVisitCode(w http.ResponseWriter, r *http.Request) {
	year := 0
	if raw := r.URL.Query().Get("year"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1000 || n > 9999 {
			response.BadRequest(w, "year must be a 4-digit number")
			return
		}
		year = n
	}

	code, err := h.visitService.NextVisitCode(r.Context(), year)
	if err != nil {
		h.writeDomainError(w, r, "next_visit_code", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"visit_code": code})
}

type updateVisitRequest struct {
	ApprovalStatus  *string    `json:"approval_status"`
	ApprovalTime    *time.Time `json:"approval_time"`
	VisitStatus     *string    `json:"visit_status"`
	RejectionReason *string    `json:"rejection_reason"`
}

// UpdateVisit applies a partial update to approval/status fields.
func (h *Handlers) UpdateVisit(w http.ResponseWriter, r *http.Request) {
	var req updateVisitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	patch := domain.VisitPatch{
		ApprovalTime:    req.ApprovalTime,
		RejectionReason: req.RejectionReason,
	}

	if req.ApprovalStatus != nil {
		status, ok := domain.ParseApprovalStatus(*req.ApprovalStatus)
		if !ok {
			response.BadRequest(w, "Invalid approval_status")
			return
		}
		patch.ApprovalStatus = &status
	}

	if req.VisitStatus != nil {
		status, ok := domain.ParseVisitStatus(*req.VisitStatus)
		if !ok {
			response.BadRequest(w, "Invalid visit_status")
			return
		}
		patch.Status = &status
	}

	visit, err := h.visitService.UpdateVisit(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		h.writeDomainError(w, r, "update_visit", err)
		return
	}

	writeJSON(w, http.StatusOK, visit)
}

// CheckIn records gate entry for a visit.
func (h *Handlers) CheckIn(w http.ResponseWriter, r *http.Request) {
	visit, err := h.visitService.CheckIn(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, "check_in", err)
		return
	}

	writeJSON(w, http.StatusOK, visit)
}

// CheckOut records gate exit for a visit.
func (h *Handlers) CheckOut(w http.ResponseWriter, r *http.Request) {
	visit, err := h.visitService.CheckOut(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, "check_out", err)
		return
	}

	writeJSON(w, http.StatusOK, visit)
}

// ListExecutives returns active executives, alphabetical by name.
func (h *Handlers) ListExecutives(w http.ResponseWriter, r *http.Request) {
	executives, err := h.visitService.ListExecutives(r.Context())
	if err != nil {
		h.writeDomainError(w, r, "list_executives", err)
		return
	}

	if executives == nil {
		executives = []domain.Executive{}
	}
	writeJSON(w, http.StatusOK, executives)
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}
