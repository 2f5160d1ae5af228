package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gatecontrol/visits/internal/http/response"
)

type gateValidateRequest struct {
	Code string `json:"code"`
}

// ValidateCode judges a scanned visit code. Invalid scans are a normal
// outcome, not an error: the response is always 200 with a valid flag
// and, when applicable, a reason and the visit payload.
func (h *Handlers) ValidateCode(w http.ResponseWriter, r *http.Request) {
	var req gateValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	if strings.TrimSpace(req.Code) == "" {
		response.BadRequest(w, "code is required")
		return
	}

	result, err := h.gateService.Validate(r.Context(), req.Code)
	if err != nil {
		h.writeDomainError(w, r, "validate_code", err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
