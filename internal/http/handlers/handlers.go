package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gatecontrol/visits/internal/domain"
	"github.com/gatecontrol/visits/internal/http/response"
	"github.com/gatecontrol/visits/internal/service"
	"github.com/gatecontrol/visits/pkg/logger"
)

type Handlers struct {
	visitService service.VisitService
	gateService  service.GateService
}

func New(visitService service.VisitService, gateService service.GateService) *Handlers {
	return &Handlers{
		visitService: visitService,
		gateService:  gateService,
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeDomainError maps service sentinels to structured HTTP errors.
// Anything unrecognized is a store failure: logged with context, surfaced
// as an opaque internal error.
func (h *Handlers) writeDomainError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	switch {
	case errors.Is(err, domain.ErrVisitNotFound):
		response.NotFound(w, "Visit not found")
	case errors.Is(err, domain.ErrNoFieldsProvided):
		response.BadRequest(w, "No fields provided for update")
	case errors.Is(err, domain.ErrVisitorDataInvalid):
		response.BadRequest(w, "Visitor name and phone are required")
	case errors.Is(err, domain.ErrNoExecutivesAvailable):
		response.NoExecutives(w, "No active executives available")
	default:
		logger.ErrorContext(r.Context(), "Operation failed", "operation", operation, "error", err)
		response.InternalError(w, "Internal server error")
	}
}
