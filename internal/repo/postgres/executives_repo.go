package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/gatecontrol/visits/internal/domain"
)

type ExecutivesRepo interface {
	ListActive(ctx context.Context) ([]domain.Executive, error)
	AnyActiveID(ctx context.Context) (string, error)
}

type ExecutivesRepoImpl struct{ db DB }

func NewExecutivesRepo(db DB) *ExecutivesRepoImpl { return &ExecutivesRepoImpl{db: db} }

const executiveCols = `e.id, e.position, e.is_active, u.name, u.email, u.department`

func (r *ExecutivesRepoImpl) ListActive(ctx context.Context) ([]domain.Executive, error) {
	const q = `
SELECT ` + executiveCols + `
FROM executives e
JOIN users u ON u.id = e.user_id
WHERE e.is_active
ORDER BY u.name`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var execs []domain.Executive
	for rows.Next() {
		var e domain.Executive
		if err := rows.Scan(&e.ID, &e.Position, &e.Active, &e.Name, &e.Email, &e.Department); err != nil {
			return nil, err
		}
		execs = append(execs, e)
	}
	return execs, rows.Err()
}

// AnyActiveID returns an arbitrary active executive id, used by the
// legacy-id substitution in createVisit.
func (r *ExecutivesRepoImpl) AnyActiveID(ctx context.Context) (string, error) {
	const q = `SELECT id FROM executives WHERE is_active LIMIT 1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var id string
	err := r.db.QueryRow(ctx, q).Scan(&id)
	if err == pgx.ErrNoRows {
		return "", domain.ErrNoExecutivesAvailable
	}
	if err != nil {
		return "", err
	}
	return id, nil
}

var _ ExecutivesRepo = (*ExecutivesRepoImpl)(nil)
