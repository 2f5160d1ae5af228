package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gatecontrol/visits/internal/domain"
	"github.com/gatecontrol/visits/internal/repo/postgres"
	"github.com/gatecontrol/visits/pkg/events"
	"github.com/gatecontrol/visits/pkg/logger"
)

// GateService judges whether a scanned visit code currently grants
// access. It is read-only against visit state.
type GateService interface {
	Validate(ctx context.Context, code string) (*domain.GateResult, error)
}

type gateService struct {
	visits   postgres.VisitsRepo
	eventBus events.Publisher
	now      func() time.Time
}

func NewGateService(visits postgres.VisitsRepo, eventBus events.Publisher) GateService {
	return &gateService{
		visits:   visits,
		eventBus: eventBus,
		now:      time.Now,
	}
}

// Validate applies the gate rules in order: unknown code, expired
// schedule (date-only comparison), cancelled visit, otherwise valid.
// Approval status is not part of the decision: a pending or rejected
// visit still validates.
func (s *gateService) Validate(ctx context.Context, code string) (*domain.GateResult, error) {
	code = strings.TrimSpace(code)

	result := &domain.GateResult{}

	visit, err := s.visits.GetByCode(ctx, code)
	switch {
	case errors.Is(err, domain.ErrVisitNotFound):
		result.Valid = false
		result.Reason = domain.GateReasonNotFound
	case err != nil:
		return nil, err
	default:
		result.Visit = visit
		today := dateOnly(s.now())
		scheduled := dateOnly(visit.ScheduledDate)

		switch {
		case scheduled.Before(today):
			result.Valid = false
			result.Reason = domain.GateReasonExpired
		case visit.Status == domain.VisitCancelled:
			result.Valid = false
			result.Reason = domain.GateReasonCancelled
		default:
			result.Valid = true
		}
	}

	event := events.GateScannedEvent{
		VisitCode: code,
		Valid:     result.Valid,
		Reason:    result.Reason,
		ScannedAt: s.now(),
	}
	if err := s.eventBus.Publish(ctx, events.GateScanned, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish gate scan event", "error", err, "visit_code", code)
	}

	return result, nil
}

// dateOnly zeroes the time of day, normalizing to UTC so stored dates
// and wall-clock time compare on calendar date alone.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
