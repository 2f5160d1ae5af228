package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/gatecontrol/visits/internal/domain"
)

type VisitsRepo interface {
	Create(ctx context.Context, in *domain.CreateVisitRequest, executiveID string) (*domain.Visit, error)
	GetByID(ctx context.Context, id string) (*domain.Visit, error)
	GetByCode(ctx context.Context, code string) (*domain.Visit, error)
	List(ctx context.Context) ([]domain.Visit, error)
	Update(ctx context.Context, id string, patch domain.VisitPatch) (*domain.Visit, error)
	CheckIn(ctx context.Context, id string) (*domain.Visit, error)
	CheckOut(ctx context.Context, id string) (*domain.Visit, error)
	LatestCodeForYear(ctx context.Context, year int) (string, error)
}

type VisitsRepoImpl struct {
	db       DB
	visitors VisitorsRepo
}

func NewVisitsRepo(db DB, visitors VisitorsRepo) *VisitsRepoImpl {
	return &VisitsRepoImpl{db: db, visitors: visitors}
}

const visitCols = `v.id, v.visit_code, v.visit_type, v.visit_status,
v.scheduled_date, v.time_from, v.time_to, v.purpose,
v.approval_status, v.approval_time, v.rejection_reason,
v.actual_checkin_time, v.actual_checkout_time,
v.created_at, v.updated_at,
v.visitor_id, vr.full_name, vr.email, vr.phone, vr.company,
v.executive_id, e.position, u.name, u.email, u.department`

const visitJoin = `FROM visits v
JOIN visitors vr ON vr.id = v.visitor_id
JOIN executives e ON e.id = v.executive_id
JOIN users u ON u.id = e.user_id`

func scanVisit(row pgx.Row) (*domain.Visit, error) {
	var v domain.Visit
	err := row.Scan(
		&v.ID, &v.VisitCode, &v.VisitType, &v.Status,
		&v.ScheduledDate, &v.TimeFrom, &v.TimeTo, &v.Purpose,
		&v.ApprovalStatus, &v.ApprovalTime, &v.RejectionReason,
		&v.ActualCheckinTime, &v.ActualCheckoutTime,
		&v.CreatedAt, &v.UpdatedAt,
		&v.VisitorID, &v.VisitorName, &v.VisitorEmail, &v.VisitorPhone, &v.VisitorCompany,
		&v.ExecutiveID, &v.ExecutivePosition, &v.ExecutiveName, &v.ExecutiveEmail, &v.ExecutiveDepartment,
	)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrVisitNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Create resolves the visitor and inserts the visit in one transaction.
// The visit code is assigned by the insert trigger, which is the
// authoritative code assigner; nothing here supplies one.
func (r *VisitsRepoImpl) Create(ctx context.Context, in *domain.CreateVisitRequest, executiveID string) (*domain.Visit, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	visitorID, err := r.visitors.Resolve(ctx, tx, in.VisitorName, in.VisitorEmail, in.VisitorPhone, in.VisitorCompany)
	if err != nil {
		return nil, err
	}

	const insert = `
INSERT INTO visits (
	visitor_id, executive_id, visit_type,
	scheduled_date, time_from, time_to, purpose,
	visit_status, approval_status
) VALUES ($1,$2,$3,$4,$5,$6,$7,'scheduled','pending')
RETURNING id`

	var id string
	if err := tx.QueryRow(ctx, insert,
		visitorID, executiveID, in.VisitType,
		in.ScheduledDate, in.TimeFrom, in.TimeTo, in.Purpose,
	).Scan(&id); err != nil {
		return nil, err
	}

	visit, err := r.getByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return visit, nil
}

func (r *VisitsRepoImpl) getByID(ctx context.Context, q Querier, id string) (*domain.Visit, error) {
	query := `SELECT ` + visitCols + ` ` + visitJoin + ` WHERE v.id=$1`
	return scanVisit(q.QueryRow(ctx, query, id))
}

func (r *VisitsRepoImpl) GetByID(ctx context.Context, id string) (*domain.Visit, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return r.getByID(ctx, r.db, id)
}

func (r *VisitsRepoImpl) GetByCode(ctx context.Context, code string) (*domain.Visit, error) {
	query := `SELECT ` + visitCols + ` ` + visitJoin + ` WHERE v.visit_code=$1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return scanVisit(r.db.QueryRow(ctx, query, code))
}

func (r *VisitsRepoImpl) List(ctx context.Context) ([]domain.Visit, error) {
	query := `SELECT ` + visitCols + ` ` + visitJoin + `
ORDER BY v.scheduled_date DESC, v.time_from DESC, v.created_at DESC`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var visits []domain.Visit
	for rows.Next() {
		var v domain.Visit
		if err := rows.Scan(
			&v.ID, &v.VisitCode, &v.VisitType, &v.Status,
			&v.ScheduledDate, &v.TimeFrom, &v.TimeTo, &v.Purpose,
			&v.ApprovalStatus, &v.ApprovalTime, &v.RejectionReason,
			&v.ActualCheckinTime, &v.ActualCheckoutTime,
			&v.CreatedAt, &v.UpdatedAt,
			&v.VisitorID, &v.VisitorName, &v.VisitorEmail, &v.VisitorPhone, &v.VisitorCompany,
			&v.ExecutiveID, &v.ExecutivePosition, &v.ExecutiveName, &v.ExecutiveEmail, &v.ExecutiveDepartment,
		); err != nil {
			return nil, err
		}
		visits = append(visits, v)
	}
	return visits, rows.Err()
}

// Update applies the non-nil patch fields and always refreshes
// updated_at. Transition legality is deliberately not checked here.
func (r *VisitsRepoImpl) Update(ctx context.Context, id string, patch domain.VisitPatch) (*domain.Visit, error) {
	const q = `
UPDATE visits SET
	approval_status  = COALESCE($2, approval_status),
	approval_time    = COALESCE($3, approval_time),
	visit_status     = COALESCE($4, visit_status),
	rejection_reason = COALESCE($5, rejection_reason),
	updated_at       = now()
WHERE id=$1
RETURNING id`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var updatedID string
	err := r.db.QueryRow(ctx, q, id,
		patch.ApprovalStatus, patch.ApprovalTime, patch.Status, patch.RejectionReason,
	).Scan(&updatedID)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrVisitNotFound
	}
	if err != nil {
		return nil, err
	}

	return r.getByID(ctx, r.db, updatedID)
}

func (r *VisitsRepoImpl) CheckIn(ctx context.Context, id string) (*domain.Visit, error) {
	const q = `
UPDATE visits SET
	visit_status = 'checked_in',
	actual_checkin_time = now(),
	updated_at = now()
WHERE id=$1
RETURNING id`

	return r.stamp(ctx, q, id)
}

func (r *VisitsRepoImpl) CheckOut(ctx context.Context, id string) (*domain.Visit, error) {
	const q = `
UPDATE visits SET
	visit_status = 'checked_out',
	actual_checkout_time = now(),
	updated_at = now()
WHERE id=$1
RETURNING id`

	return r.stamp(ctx, q, id)
}

func (r *VisitsRepoImpl) stamp(ctx context.Context, q, id string) (*domain.Visit, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var updatedID string
	err := r.db.QueryRow(ctx, q, id).Scan(&updatedID)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrVisitNotFound
	}
	if err != nil {
		return nil, err
	}

	return r.getByID(ctx, r.db, updatedID)
}

// LatestCodeForYear returns the lexicographically greatest code for the
// year, or empty when the year has no visits yet. The zero-padded suffix
// makes lexicographic and numeric ordering agree.
func (r *VisitsRepoImpl) LatestCodeForYear(ctx context.Context, year int) (string, error) {
	const q = `
SELECT visit_code FROM visits
WHERE visit_code LIKE $1
ORDER BY visit_code DESC
LIMIT 1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var code string
	err := r.db.QueryRow(ctx, q, fmt.Sprintf("GC-%d-%%", year)).Scan(&code)
	if err == pgx.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return code, nil
}

var _ VisitsRepo = (*VisitsRepoImpl)(nil)
