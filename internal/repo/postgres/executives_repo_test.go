package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"

	"github.com/gatecontrol/visits/internal/domain"
)

func TestListActive_AlphabeticalByName(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()
	repo := NewExecutivesRepo(mock)

	mock.ExpectQuery(`WHERE e.is_active`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "position", "is_active", "name", "email", "department"}).
			AddRow("7d1e63ba-0e64-4c50-9f5e-1b5d0a2b3c4d", "CTO", true, "Ama Boateng", "ama@example.com", "Engineering").
			AddRow("8e2f74cb-1f75-4d61-a06f-2c6e1b3c4d5e", "CFO", true, "Dana Osei", "dana@example.com", "Finance"))

	execs, err := repo.ListActive(context.Background())
	if err != nil {
		t.Fatalf("ListActive returned error: %v", err)
	}
	if len(execs) != 2 {
		t.Fatalf("expected 2 executives, got %d", len(execs))
	}
	if execs[0].Name != "Ama Boateng" || execs[1].Name != "Dana Osei" {
		t.Fatalf("unexpected order: %s, %s", execs[0].Name, execs[1].Name)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAnyActiveID_NoneAvailable(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()
	repo := NewExecutivesRepo(mock)

	mock.ExpectQuery(`SELECT id FROM executives WHERE is_active`).
		WillReturnError(pgx.ErrNoRows)

	_, err = repo.AnyActiveID(context.Background())
	if !errors.Is(err, domain.ErrNoExecutivesAvailable) {
		t.Fatalf("expected ErrNoExecutivesAvailable, got %v", err)
	}
}

func TestResolve_ReturnsVisitorID(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()
	repo := NewVisitorsRepo(mock)

	mock.ExpectQuery(`INSERT INTO visitors`).
		WithArgs("Ada Mensah", "ada@example.com", "+15550001111", "Acme").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("5f0c52a9-9d53-4b3f-8e4d-0a4c9f1a2b3c"))

	id, err := repo.Resolve(context.Background(), nil, "Ada Mensah", "ada@example.com", "+15550001111", "Acme")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if id != "5f0c52a9-9d53-4b3f-8e4d-0a4c9f1a2b3c" {
		t.Fatalf("unexpected visitor id %s", id)
	}
}
