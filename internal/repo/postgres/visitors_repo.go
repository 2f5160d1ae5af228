package postgres

import (
	"context"
	"time"

	"github.com/gatecontrol/visits/internal/domain"
)

// VisitorsRepo is the visitor directory: it resolves a person to a
// stable visitor row keyed by phone number.
type VisitorsRepo interface {
	Resolve(ctx context.Context, q Querier, fullName, email, phone, company string) (string, error)
	FindByPhone(ctx context.Context, phone string) (*domain.Visitor, error)
}

type VisitorsRepoImpl struct{ db DB }

func NewVisitorsRepo(db DB) *VisitorsRepoImpl { return &VisitorsRepoImpl{db: db} }

// Resolve upserts the visitor in one statement: an existing phone match
// gets its profile fields overwritten, otherwise a new row is created.
// It runs on the supplied Querier so createVisit can keep it inside the
// visit transaction.
func (r *VisitorsRepoImpl) Resolve(ctx context.Context, q Querier, fullName, email, phone, company string) (string, error) {
	const sql = `
INSERT INTO visitors (full_name, email, phone, company)
VALUES ($1, $2, $3, $4)
ON CONFLICT (phone) DO UPDATE SET
	full_name = EXCLUDED.full_name,
	email     = EXCLUDED.email,
	company   = EXCLUDED.company,
	updated_at = now()
RETURNING id`

	if q == nil {
		q = r.db
	}

	var id string
	if err := q.QueryRow(ctx, sql, fullName, email, phone, company).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

func (r *VisitorsRepoImpl) FindByPhone(ctx context.Context, phone string) (*domain.Visitor, error) {
	const sql = `
SELECT id, full_name, email, phone, company, created_at, updated_at
FROM visitors WHERE phone=$1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var v domain.Visitor
	err := r.db.QueryRow(ctx, sql, phone).Scan(
		&v.ID, &v.FullName, &v.Email, &v.Phone, &v.Company, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

var _ VisitorsRepo = (*VisitorsRepoImpl)(nil)
