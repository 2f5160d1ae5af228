package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/gatecontrol/visits/internal/domain"
)

// ---------- Mocks ----------

type mockPublisher struct {
	subjects []string
	pubErr   error
}

func (m *mockPublisher) Publish(_ context.Context, subject string, _ interface{}) error {
	m.subjects = append(m.subjects, subject)
	return m.pubErr
}

func (m *mockPublisher) Close() error { return nil }

type mockExecutivesRepo struct {
	executives []domain.Executive
}

func (m *mockExecutivesRepo) ListActive(_ context.Context) ([]domain.Executive, error) {
	return m.executives, nil
}

func (m *mockExecutivesRepo) AnyActiveID(_ context.Context) (string, error) {
	if len(m.executives) == 0 {
		return "", domain.ErrNoExecutivesAvailable
	}
	return m.executives[0].ID, nil
}

type mockIdempotencyRepo struct {
	records map[string]string
}

func newMockIdempotencyRepo() *mockIdempotencyRepo {
	return &mockIdempotencyRepo{records: make(map[string]string)}
}

func (m *mockIdempotencyRepo) CheckOrCreate(_ context.Context, key, visitID string) (string, error) {
	if existing, ok := m.records[key]; ok {
		return existing, nil
	}
	if visitID != "" {
		m.records[key] = visitID
	}
	return "", nil
}

func (m *mockIdempotencyRepo) CleanupExpired(context.Context) (int64, error) { return 0, nil }

// mockVisitsRepo is an in-memory store mirroring the repository
// semantics: visitor rows keyed by phone, codes assigned at insert.
type mockVisitsRepo struct {
	visits       map[string]*domain.Visit
	visitorIDs   map[string]string // phone -> visitor id
	visitorNames map[string]string // phone -> current name
	seq          int
	year         int
	updateCalls  int
}

func newMockVisitsRepo() *mockVisitsRepo {
	return &mockVisitsRepo{
		visits:       make(map[string]*domain.Visit),
		visitorIDs:   make(map[string]string),
		visitorNames: make(map[string]string),
		year:         time.Now().Year(),
	}
}

func (m *mockVisitsRepo) Create(_ context.Context, in *domain.CreateVisitRequest, executiveID string) (*domain.Visit, error) {
	visitorID, ok := m.visitorIDs[in.VisitorPhone]
	if !ok {
		visitorID = uuid.NewString()
		m.visitorIDs[in.VisitorPhone] = visitorID
	}
	m.visitorNames[in.VisitorPhone] = in.VisitorName

	m.seq++
	now := time.Now()
	v := &domain.Visit{
		ID:             uuid.NewString(),
		VisitCode:      fmt.Sprintf("GC-%d-%06d", m.year, m.seq),
		VisitType:      in.VisitType,
		Status:         domain.VisitScheduled,
		ApprovalStatus: domain.ApprovalPending,
		ScheduledDate:  in.ScheduledDate,
		TimeFrom:       in.TimeFrom,
		TimeTo:         in.TimeTo,
		Purpose:        in.Purpose,
		CreatedAt:      now,
		UpdatedAt:      now,
		VisitorID:      visitorID,
		VisitorName:    in.VisitorName,
		VisitorEmail:   in.VisitorEmail,
		VisitorPhone:   in.VisitorPhone,
		VisitorCompany: in.VisitorCompany,
		ExecutiveID:    executiveID,
	}
	m.visits[v.ID] = v
	return v, nil
}

func (m *mockVisitsRepo) GetByID(_ context.Context, id string) (*domain.Visit, error) {
	v, ok := m.visits[id]
	if !ok {
		return nil, domain.ErrVisitNotFound
	}
	return v, nil
}

func (m *mockVisitsRepo) GetByCode(_ context.Context, code string) (*domain.Visit, error) {
	for _, v := range m.visits {
		if v.VisitCode == code {
			return v, nil
		}
	}
	return nil, domain.ErrVisitNotFound
}

func (m *mockVisitsRepo) List(_ context.Context) ([]domain.Visit, error) {
	var out []domain.Visit
	for _, v := range m.visits {
		out = append(out, *v)
	}
	return out, nil
}

func (m *mockVisitsRepo) Update(_ context.Context, id string, patch domain.VisitPatch) (*domain.Visit, error) {
	m.updateCalls++
	v, ok := m.visits[id]
	if !ok {
		return nil, domain.ErrVisitNotFound
	}
	if patch.ApprovalStatus != nil {
		v.ApprovalStatus = *patch.ApprovalStatus
	}
	if patch.ApprovalTime != nil {
		v.ApprovalTime = patch.ApprovalTime
	}
	if patch.Status != nil {
		v.Status = *patch.Status
	}
	if patch.RejectionReason != nil {
		v.RejectionReason = patch.RejectionReason
	}
	v.UpdatedAt = time.Now()
	return v, nil
}

func (m *mockVisitsRepo) CheckIn(_ context.Context, id string) (*domain.Visit, error) {
	v, ok := m.visits[id]
	if !ok {
		return nil, domain.ErrVisitNotFound
	}
	now := time.Now()
	v.Status = domain.VisitCheckedIn
	v.ActualCheckinTime = &now
	v.UpdatedAt = now
	return v, nil
}

func (m *mockVisitsRepo) CheckOut(_ context.Context, id string) (*domain.Visit, error) {
	v, ok := m.visits[id]
	if !ok {
		return nil, domain.ErrVisitNotFound
	}
	now := time.Now()
	v.Status = domain.VisitCheckedOut
	v.ActualCheckoutTime = &now
	v.UpdatedAt = now
	return v, nil
}

func (m *mockVisitsRepo) LatestCodeForYear(_ context.Context, year int) (string, error) {
	prefix := fmt.Sprintf("GC-%d-", year)
	latest := ""
	for _, v := range m.visits {
		if strings.HasPrefix(v.VisitCode, prefix) && v.VisitCode > latest {
			latest = v.VisitCode
		}
	}
	return latest, nil
}

// ---------- Helpers ----------

func newTestService(visits *mockVisitsRepo, execs *mockExecutivesRepo) (VisitService, *mockPublisher) {
	bus := &mockPublisher{}
	return NewVisitService(visits, execs, newMockIdempotencyRepo(), bus), bus
}

func activeExecutive() domain.Executive {
	return domain.Executive{
		ID:       uuid.NewString(),
		Position: "CTO",
		Active:   true,
		Name:     "Dana Osei",
		Email:    "dana@example.com",
	}
}

func validRequest(execID string) *domain.CreateVisitRequest {
	return &domain.CreateVisitRequest{
		VisitorName:   "Ada Mensah",
		VisitorEmail:  "ada@example.com",
		VisitorPhone:  "+15550001111",
		ExecutiveID:   execID,
		ScheduledDate: time.Now().AddDate(0, 0, 1),
		TimeFrom:      "09:00",
		TimeTo:        "10:00",
		Purpose:       "Quarterly review",
	}
}

// ---------- Code preview ----------

func TestNextVisitCode_FirstOfYear(t *testing.T) {
	svc, _ := newTestService(newMockVisitsRepo(), &mockExecutivesRepo{})

	code, err := svc.NextVisitCode(context.Background(), 2031)
	if err != nil {
		t.Fatalf("NextVisitCode returned error: %v", err)
	}
	if code != "GC-2031-000001" {
		t.Fatalf("expected GC-2031-000001, got %s", code)
	}
}

func TestNextVisitCode_IncrementsAndIsIdempotent(t *testing.T) {
	repo := newMockVisitsRepo()
	repo.year = 2025
	repo.seq = 6
	svc, _ := newTestService(repo, &mockExecutivesRepo{executives: []domain.Executive{activeExecutive()}})

	if _, err := svc.CreateVisit(context.Background(), validRequest(uuid.NewString()), ""); err != nil {
		t.Fatalf("CreateVisit returned error: %v", err)
	}
	// Store now holds GC-2025-000007.

	for i := 0; i < 3; i++ {
		code, err := svc.NextVisitCode(context.Background(), 2025)
		if err != nil {
			t.Fatalf("NextVisitCode returned error: %v", err)
		}
		if code != "GC-2025-000008" {
			t.Fatalf("expected GC-2025-000008 on call %d, got %s", i+1, code)
		}
	}
}

func TestNextVisitCode_DefaultsToCurrentYear(t *testing.T) {
	svc, _ := newTestService(newMockVisitsRepo(), &mockExecutivesRepo{})

	code, err := svc.NextVisitCode(context.Background(), 0)
	if err != nil {
		t.Fatalf("NextVisitCode returned error: %v", err)
	}
	want := fmt.Sprintf("GC-%d-000001", time.Now().Year())
	if code != want {
		t.Fatalf("expected %s, got %s", want, code)
	}
}

// ---------- Create ----------

func TestCreateVisit_NewAndRepeatVisitor(t *testing.T) {
	repo := newMockVisitsRepo()
	exec := activeExecutive()
	svc, _ := newTestService(repo, &mockExecutivesRepo{executives: []domain.Executive{exec}})

	first, err := svc.CreateVisit(context.Background(), validRequest(exec.ID), "")
	if err != nil {
		t.Fatalf("CreateVisit returned error: %v", err)
	}
	if len(repo.visitorIDs) != 1 {
		t.Fatalf("expected 1 visitor row, got %d", len(repo.visitorIDs))
	}

	req := validRequest(exec.ID)
	req.VisitorName = "Ada A. Mensah"
	second, err := svc.CreateVisit(context.Background(), req, "")
	if err != nil {
		t.Fatalf("second CreateVisit returned error: %v", err)
	}

	if len(repo.visitorIDs) != 1 {
		t.Fatalf("repeat phone created a new visitor row")
	}
	if first.VisitorID != second.VisitorID {
		t.Fatalf("expected same visitor id, got %s and %s", first.VisitorID, second.VisitorID)
	}
	if repo.visitorNames[first.VisitorPhone] != "Ada A. Mensah" {
		t.Fatalf("expected visitor name overwritten, got %s", repo.visitorNames[first.VisitorPhone])
	}
}

func TestCreateVisit_WalkInStillPending(t *testing.T) {
	exec := activeExecutive()
	svc, _ := newTestService(newMockVisitsRepo(), &mockExecutivesRepo{executives: []domain.Executive{exec}})

	req := validRequest(exec.ID)
	req.VisitType = domain.TypeWalkIn

	visit, err := svc.CreateVisit(context.Background(), req, "")
	if err != nil {
		t.Fatalf("CreateVisit returned error: %v", err)
	}
	if visit.Status != domain.VisitScheduled {
		t.Fatalf("expected visit_status scheduled, got %s", visit.Status)
	}
	if visit.ApprovalStatus != domain.ApprovalPending {
		t.Fatalf("expected approval_status pending, got %s", visit.ApprovalStatus)
	}
}

func TestCreateVisit_InvalidVisitorData(t *testing.T) {
	exec := activeExecutive()
	svc, _ := newTestService(newMockVisitsRepo(), &mockExecutivesRepo{executives: []domain.Executive{exec}})

	req := validRequest(exec.ID)
	req.VisitorName = "   "

	if _, err := svc.CreateVisit(context.Background(), req, ""); !errors.Is(err, domain.ErrVisitorDataInvalid) {
		t.Fatalf("expected ErrVisitorDataInvalid for blank name, got %v", err)
	}

	req = validRequest(exec.ID)
	req.VisitorPhone = "123"

	if _, err := svc.CreateVisit(context.Background(), req, ""); !errors.Is(err, domain.ErrVisitorDataInvalid) {
		t.Fatalf("expected ErrVisitorDataInvalid for short phone, got %v", err)
	}
}

func TestCreateVisit_LegacyExecutiveIDSubstituted(t *testing.T) {
	exec := activeExecutive()
	svc, bus := newTestService(newMockVisitsRepo(), &mockExecutivesRepo{executives: []domain.Executive{exec}})

	visit, err := svc.CreateVisit(context.Background(), validRequest("42"), "")
	if err != nil {
		t.Fatalf("CreateVisit returned error: %v", err)
	}
	if visit.ExecutiveID != exec.ID {
		t.Fatalf("expected substituted executive %s, got %s", exec.ID, visit.ExecutiveID)
	}
	if len(bus.subjects) != 1 || bus.subjects[0] != "visit.created" {
		t.Fatalf("expected visit.created event, got %v", bus.subjects)
	}
}

func TestCreateVisit_NoExecutivesAvailable(t *testing.T) {
	svc, _ := newTestService(newMockVisitsRepo(), &mockExecutivesRepo{})

	_, err := svc.CreateVisit(context.Background(), validRequest("42"), "")
	if !errors.Is(err, domain.ErrNoExecutivesAvailable) {
		t.Fatalf("expected ErrNoExecutivesAvailable, got %v", err)
	}
}

func TestCreateVisit_IdempotencyReturnsExisting(t *testing.T) {
	repo := newMockVisitsRepo()
	exec := activeExecutive()
	svc, _ := newTestService(repo, &mockExecutivesRepo{executives: []domain.Executive{exec}})

	first, err := svc.CreateVisit(context.Background(), validRequest(exec.ID), "key-1")
	if err != nil {
		t.Fatalf("CreateVisit returned error: %v", err)
	}

	second, err := svc.CreateVisit(context.Background(), validRequest(exec.ID), "key-1")
	if err != nil {
		t.Fatalf("retried CreateVisit returned error: %v", err)
	}

	if first.ID != second.ID {
		t.Fatalf("expected retry to return visit %s, got %s", first.ID, second.ID)
	}
	if len(repo.visits) != 1 {
		t.Fatalf("expected 1 visit row, got %d", len(repo.visits))
	}
}

// ---------- Update ----------

func TestUpdateVisit_NoFieldsProvided(t *testing.T) {
	repo := newMockVisitsRepo()
	svc, _ := newTestService(repo, &mockExecutivesRepo{})

	_, err := svc.UpdateVisit(context.Background(), uuid.NewString(), domain.VisitPatch{})
	if !errors.Is(err, domain.ErrNoFieldsProvided) {
		t.Fatalf("expected ErrNoFieldsProvided, got %v", err)
	}
	if repo.updateCalls != 0 {
		t.Fatalf("empty patch must not reach the store")
	}
}

func TestUpdateVisit_NotFound(t *testing.T) {
	svc, _ := newTestService(newMockVisitsRepo(), &mockExecutivesRepo{})

	status := domain.ApprovalApproved
	patch := domain.VisitPatch{ApprovalStatus: &status}

	if _, err := svc.UpdateVisit(context.Background(), uuid.NewString(), patch); !errors.Is(err, domain.ErrVisitNotFound) {
		t.Fatalf("expected ErrVisitNotFound for missing id, got %v", err)
	}
	if _, err := svc.UpdateVisit(context.Background(), "not-a-uuid", patch); !errors.Is(err, domain.ErrVisitNotFound) {
		t.Fatalf("expected ErrVisitNotFound for malformed id, got %v", err)
	}
}

func TestUpdateVisit_AppliesPatch(t *testing.T) {
	repo := newMockVisitsRepo()
	exec := activeExecutive()
	svc, bus := newTestService(repo, &mockExecutivesRepo{executives: []domain.Executive{exec}})

	created, err := svc.CreateVisit(context.Background(), validRequest(exec.ID), "")
	if err != nil {
		t.Fatalf("CreateVisit returned error: %v", err)
	}

	approved := domain.ApprovalApproved
	now := time.Now()
	updated, err := svc.UpdateVisit(context.Background(), created.ID, domain.VisitPatch{
		ApprovalStatus: &approved,
		ApprovalTime:   &now,
	})
	if err != nil {
		t.Fatalf("UpdateVisit returned error: %v", err)
	}

	if updated.ApprovalStatus != domain.ApprovalApproved {
		t.Fatalf("expected approval approved, got %s", updated.ApprovalStatus)
	}
	if updated.ApprovalTime == nil {
		t.Fatalf("expected approval time set")
	}
	if bus.subjects[len(bus.subjects)-1] != "visit.updated" {
		t.Fatalf("expected visit.updated event, got %v", bus.subjects)
	}
}

// ---------- Check-in / check-out ----------

func TestCheckIn(t *testing.T) {
	repo := newMockVisitsRepo()
	exec := activeExecutive()
	svc, bus := newTestService(repo, &mockExecutivesRepo{executives: []domain.Executive{exec}})

	if _, err := svc.CheckIn(context.Background(), uuid.NewString()); !errors.Is(err, domain.ErrVisitNotFound) {
		t.Fatalf("expected ErrVisitNotFound, got %v", err)
	}

	created, err := svc.CreateVisit(context.Background(), validRequest(exec.ID), "")
	if err != nil {
		t.Fatalf("CreateVisit returned error: %v", err)
	}

	visit, err := svc.CheckIn(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("CheckIn returned error: %v", err)
	}
	if visit.Status != domain.VisitCheckedIn {
		t.Fatalf("expected checked_in, got %s", visit.Status)
	}
	if visit.ActualCheckinTime == nil {
		t.Fatalf("expected check-in timestamp set")
	}

	fetched, err := svc.GetVisit(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetVisit returned error: %v", err)
	}
	if fetched.Status != domain.VisitCheckedIn || fetched.ActualCheckinTime == nil {
		t.Fatalf("check-in not observable on subsequent fetch: %+v", fetched)
	}
	if bus.subjects[len(bus.subjects)-1] != "visit.checked_in" {
		t.Fatalf("expected visit.checked_in event, got %v", bus.subjects)
	}
}

func TestCheckOut(t *testing.T) {
	repo := newMockVisitsRepo()
	exec := activeExecutive()
	svc, _ := newTestService(repo, &mockExecutivesRepo{executives: []domain.Executive{exec}})

	if _, err := svc.CheckOut(context.Background(), uuid.NewString()); !errors.Is(err, domain.ErrVisitNotFound) {
		t.Fatalf("expected ErrVisitNotFound, got %v", err)
	}

	created, err := svc.CreateVisit(context.Background(), validRequest(exec.ID), "")
	if err != nil {
		t.Fatalf("CreateVisit returned error: %v", err)
	}

	visit, err := svc.CheckOut(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("CheckOut returned error: %v", err)
	}
	if visit.Status != domain.VisitCheckedOut {
		t.Fatalf("expected checked_out, got %s", visit.Status)
	}
	if visit.ActualCheckoutTime == nil {
		t.Fatalf("expected check-out timestamp set")
	}
}
