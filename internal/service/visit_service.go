package service

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gatecontrol/visits/internal/domain"
	"github.com/gatecontrol/visits/internal/repo/postgres"
	"github.com/gatecontrol/visits/internal/utils"
	"github.com/gatecontrol/visits/pkg/events"
	"github.com/gatecontrol/visits/pkg/logger"
)

type VisitService interface {
	NextVisitCode(ctx context.Context, year int) (string, error)
	CreateVisit(ctx context.Context, req *domain.CreateVisitRequest, idempotencyKey string) (*domain.Visit, error)
	GetVisit(ctx context.Context, id string) (*domain.Visit, error)
	ListVisits(ctx context.Context) ([]domain.Visit, error)
	ListExecutives(ctx context.Context) ([]domain.Executive, error)
	UpdateVisit(ctx context.Context, id string, patch domain.VisitPatch) (*domain.Visit, error)
	CheckIn(ctx context.Context, id string) (*domain.Visit, error)
	CheckOut(ctx context.Context, id string) (*domain.Visit, error)
}

type visitService struct {
	visits      postgres.VisitsRepo
	executives  postgres.ExecutivesRepo
	idempotency postgres.IdempotencyRepo
	eventBus    events.Publisher
}

func NewVisitService(
	visits postgres.VisitsRepo,
	executives postgres.ExecutivesRepo,
	idempotency postgres.IdempotencyRepo,
	eventBus events.Publisher,
) VisitService {
	return &visitService{
		visits:      visits,
		executives:  executives,
		idempotency: idempotency,
		eventBus:    eventBus,
	}
}

var codeSuffixRe = regexp.MustCompile(`-(\d{6})$`)

// NextVisitCode previews the next code for the year. The preview is
// advisory: concurrent creates can both see the same latest code, so the
// value actually written comes from the insert trigger, never from here.
func (s *visitService) NextVisitCode(ctx context.Context, year int) (string, error) {
	if year <= 0 {
		year = time.Now().Year()
	}

	latest, err := s.visits.LatestCodeForYear(ctx, year)
	if err != nil {
		return "", fmt.Errorf("latest visit code: %w", err)
	}

	seq := 1
	if m := codeSuffixRe.FindStringSubmatch(latest); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			seq = n + 1
		}
	}

	return fmt.Sprintf("GC-%d-%06d", year, seq), nil
}

func (s *visitService) CreateVisit(ctx context.Context, req *domain.CreateVisitRequest, idempotencyKey string) (*domain.Visit, error) {
	req.VisitorName = utils.NormalizeString(req.VisitorName)
	req.VisitorEmail = utils.NormalizeEmail(req.VisitorEmail)
	req.VisitorPhone = utils.NormalizePhone(req.VisitorPhone)
	req.VisitorCompany = utils.NormalizeString(req.VisitorCompany)

	if req.VisitorName == "" || !utils.IsValidPhone(req.VisitorPhone) {
		return nil, domain.ErrVisitorDataInvalid
	}

	if req.VisitType == "" {
		req.VisitType = domain.TypeScheduled
	}

	executiveID, err := s.normalizeExecutiveID(ctx, req.ExecutiveID)
	if err != nil {
		return nil, err
	}

	if idempotencyKey != "" {
		existingID, err := s.idempotency.CheckOrCreate(ctx, idempotencyKey, "")
		if err != nil {
			return nil, fmt.Errorf("idempotency check failed: %w", err)
		}
		if existingID != "" {
			return s.visits.GetByID(ctx, existingID)
		}
	}

	visit, err := s.visits.Create(ctx, req, executiveID)
	if err != nil {
		return nil, fmt.Errorf("failed to create visit: %w", err)
	}

	if idempotencyKey != "" {
		if _, err := s.idempotency.CheckOrCreate(ctx, idempotencyKey, visit.ID); err != nil {
			logger.ErrorContext(ctx, "Failed to store idempotency record", "error", err, "visit_id", visit.ID)
		}
	}

	event := events.VisitCreatedEvent{
		VisitID:       visit.ID,
		VisitCode:     visit.VisitCode,
		VisitorName:   visit.VisitorName,
		VisitorEmail:  visit.VisitorEmail,
		ExecutiveID:   visit.ExecutiveID,
		VisitType:     string(visit.VisitType),
		ScheduledDate: visit.ScheduledDate,
		CreatedAt:     visit.CreatedAt,
	}
	if err := s.eventBus.Publish(ctx, events.VisitCreated, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish visit created event", "error", err, "visit_id", visit.ID)
	}

	return visit, nil
}

// normalizeExecutiveID substitutes an arbitrary active executive when the
// caller supplied a legacy value that is not a structurally valid id. The
// substitution reassigns the host, so it is always logged.
func (s *visitService) normalizeExecutiveID(ctx context.Context, raw string) (string, error) {
	executiveID := strings.TrimSpace(raw)
	if _, err := uuid.Parse(executiveID); err == nil {
		return executiveID, nil
	}

	logger.WarnContext(ctx, "Substituting active executive for legacy id", "executive_id", executiveID)

	substituted, err := s.executives.AnyActiveID(ctx)
	if err != nil {
		return "", err
	}
	return substituted, nil
}

func (s *visitService) GetVisit(ctx context.Context, id string) (*domain.Visit, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrVisitNotFound
	}
	return s.visits.GetByID(ctx, id)
}

func (s *visitService) ListVisits(ctx context.Context) ([]domain.Visit, error) {
	return s.visits.List(ctx)
}

func (s *visitService) ListExecutives(ctx context.Context) ([]domain.Executive, error) {
	return s.executives.ListActive(ctx)
}

func (s *visitService) UpdateVisit(ctx context.Context, id string, patch domain.VisitPatch) (*domain.Visit, error) {
	if patch.Empty() {
		return nil, domain.ErrNoFieldsProvided
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrVisitNotFound
	}

	visit, err := s.visits.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	event := events.VisitUpdatedEvent{
		VisitID:        visit.ID,
		VisitCode:      visit.VisitCode,
		VisitStatus:    string(visit.Status),
		ApprovalStatus: string(visit.ApprovalStatus),
		UpdatedAt:      visit.UpdatedAt,
	}
	if err := s.eventBus.Publish(ctx, events.VisitUpdated, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish visit updated event", "error", err, "visit_id", visit.ID)
	}

	return visit, nil
}

func (s *visitService) CheckIn(ctx context.Context, id string) (*domain.Visit, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrVisitNotFound
	}

	visit, err := s.visits.CheckIn(ctx, id)
	if err != nil {
		return nil, err
	}

	if visit.ActualCheckinTime != nil {
		event := events.VisitCheckedInEvent{
			VisitID:     visit.ID,
			VisitCode:   visit.VisitCode,
			CheckedInAt: *visit.ActualCheckinTime,
		}
		if err := s.eventBus.Publish(ctx, events.VisitCheckedIn, event); err != nil {
			logger.ErrorContext(ctx, "Failed to publish check-in event", "error", err, "visit_id", visit.ID)
		}
	}

	return visit, nil
}

func (s *visitService) CheckOut(ctx context.Context, id string) (*domain.Visit, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrVisitNotFound
	}

	visit, err := s.visits.CheckOut(ctx, id)
	if err != nil {
		return nil, err
	}

	if visit.ActualCheckoutTime != nil {
		event := events.VisitCheckedOutEvent{
			VisitID:      visit.ID,
			VisitCode:    visit.VisitCode,
			CheckedOutAt: *visit.ActualCheckoutTime,
		}
		if err := s.eventBus.Publish(ctx, events.VisitCheckedOut, event); err != nil {
			logger.ErrorContext(ctx, "Failed to publish check-out event", "error", err, "visit_id", visit.ID)
		}
	}

	return visit, nil
}
