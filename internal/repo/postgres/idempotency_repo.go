package postgres

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// IdempotencyRepo maps hashed Idempotency-Key values to the visit they
// created, so a retried create returns the original record.
type IdempotencyRepo interface {
	// CheckOrCreate looks up the key. If it is already recorded, the
	// existing visit id is returned; otherwise, when visitID is
	// non-empty, the mapping is stored and "" is returned.
	CheckOrCreate(ctx context.Context, key, visitID string) (existingVisitID string, err error)
	CleanupExpired(ctx context.Context) (int64, error)
}

type IdempotencyRepoImpl struct{ db DB }

func NewIdempotencyRepo(db DB) *IdempotencyRepoImpl { return &IdempotencyRepoImpl{db: db} }

func (r *IdempotencyRepoImpl) CheckOrCreate(ctx context.Context, key, visitID string) (string, error) {
	// Hash the key for privacy and consistent length
	hasher := sha256.New()
	hasher.Write([]byte(key))
	keyHash := fmt.Sprintf("%x", hasher.Sum(nil))

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var existingID string
	const check = `SELECT visit_id FROM visit_idempotency WHERE key_hash = $1`
	err := r.db.QueryRow(ctx, check, keyHash).Scan(&existingID)

	if err == nil {
		return existingID, nil
	}
	if err != pgx.ErrNoRows {
		return "", err
	}

	if visitID != "" {
		const insert = `
INSERT INTO visit_idempotency (key_hash, visit_id, expires_at)
VALUES ($1, $2, $3)
ON CONFLICT (key_hash) DO NOTHING`

		expiresAt := time.Now().Add(24 * time.Hour)
		if _, err := r.db.Exec(ctx, insert, keyHash, visitID, expiresAt); err != nil {
			return "", err
		}
	}

	return "", nil
}

func (r *IdempotencyRepoImpl) CleanupExpired(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	const q = `DELETE FROM visit_idempotency WHERE expires_at < now()`
	result, err := r.db.Exec(ctx, q)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected(), nil
}

var _ IdempotencyRepo = (*IdempotencyRepoImpl)(nil)
