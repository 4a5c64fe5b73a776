package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/muniops/internal/model"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock, now: func() time.Time { return fixedNow }}
	return s, mock
}

func recordColumns() []string {
	return []string{"id", "organization_id", "data", "created_at", "updated_at"}
}

func TestPostgresStore_Select(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rows := pgxmock.NewRows(recordColumns()).
		AddRow("c-1", "org-1", []byte(`{"name":"Acme Paving"}`), fixedNow, fixedNow).
		AddRow("c-2", "org-1", []byte(`{"name":"Bridgeworks"}`), fixedNow, fixedNow)

	mock.ExpectQuery(`SELECT id, organization_id, data, created_at, updated_at FROM contractors WHERE organization_id = \$1 AND data->>'status' = \$2 ORDER BY data->>'name' ASC LIMIT \$3`).
		WithArgs("org-1", "active", 10).
		WillReturnRows(rows)

	got, err := s.Select(context.Background(), "contractors", Filter{
		OrganizationID: "org-1",
		Eq:             map[string]any{"status": "active"},
		OrderBy:        "name",
		Ascending:      true,
		Limit:          10,
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Acme Paving", got[0]["name"])
	assert.Equal(t, "org-1", got[0][model.FieldOrganizationID])
	assert.Equal(t, "2026-03-01T12:00:00.000000Z", got[0][model.FieldCreatedAt])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Select_DefaultOrderAndReservedFilter(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM assets WHERE organization_id = \$1 AND id = \$2 ORDER BY created_at DESC OFFSET \$3`).
		WithArgs("org-1", "a-1", 5).
		WillReturnRows(pgxmock.NewRows(recordColumns()))

	got, err := s.Select(context.Background(), "assets", Filter{
		OrganizationID: "org-1",
		Eq:             map[string]any{"id": "a-1"},
		Offset:         5,
	})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Select_PgErrorPreserved(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM inspections`).
		WithArgs("org-1").
		WillReturnError(&pgconn.PgError{
			Message: "permission denied for table inspections",
			Code:    "42501",
			Hint:    "check row level security",
		})

	_, err := s.Select(context.Background(), "inspections", Filter{OrganizationID: "org-1"})
	require.Error(t, err)
	de := AsDataError(err)
	assert.Equal(t, "permission denied for table inspections", de.Message)
	assert.Equal(t, "42501", de.Code)
	assert.Equal(t, "check row level security", de.Hint)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Select_NoTenant(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	_, err := s.Select(context.Background(), "contractors", Filter{})
	require.Error(t, err)
	assert.Equal(t, CodeNoTenant, AsDataError(err).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Insert(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO contractors \(id, organization_id, data, created_at, updated_at\) VALUES`).
		WithArgs("c-9", "org-1", []byte(`{"name":"Acme"}`), fixedNow, fixedNow).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	rec, err := s.Insert(context.Background(), "contractors", "org-1", model.Record{
		"id":              "c-9",
		"organization_id": "someone-else",
		"name":            "Acme",
	})
	require.NoError(t, err)
	assert.Equal(t, "c-9", rec.ID())
	assert.Equal(t, "org-1", rec[model.FieldOrganizationID])
	assert.Equal(t, "Acme", rec["name"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Update_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`UPDATE projects SET data = data \|\| \$1::jsonb, updated_at = \$2 WHERE id = \$3 AND organization_id = \$4 RETURNING`).
		WithArgs([]byte(`{"status":"closed"}`), fixedNow, "p-1", "org-1").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.Update(context.Background(), "projects", "org-1", "p-1", model.Record{"status": "closed"})
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, "projects p-1 not found", err.Error())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Update(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	created := fixedNow.Add(-time.Hour)
	mock.ExpectQuery(`UPDATE projects SET`).
		WithArgs([]byte(`{"status":"closed"}`), fixedNow, "p-1", "org-1").
		WillReturnRows(pgxmock.NewRows(recordColumns()).
			AddRow("p-1", "org-1", []byte(`{"name":"Resurfacing","status":"closed"}`), created, fixedNow))

	rec, err := s.Update(context.Background(), "projects", "org-1", "p-1", model.Record{"status": "closed"})
	require.NoError(t, err)
	assert.Equal(t, "closed", rec["status"])
	assert.Equal(t, "Resurfacing", rec["name"])
	assert.Equal(t, "2026-03-01T11:00:00.000000Z", rec[model.FieldCreatedAt])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Delete(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM expenses WHERE id = \$1 AND organization_id = \$2`).
		WithArgs("e-1", "org-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`DELETE FROM expenses`).
		WithArgs("e-2", "org-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.NoError(t, s.Delete(context.Background(), "expenses", "org-1", "e-1"))

	err := s.Delete(context.Background(), "expenses", "org-1", "e-2")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_OrganizationForUser(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT o.id, o.name, o.plan FROM organization_members m JOIN organizations o`).
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "plan"}).AddRow("org-1", "Springfield", "Enterprise"))
	mock.ExpectQuery(`FROM organization_members`).
		WithArgs("user-2").
		WillReturnError(pgx.ErrNoRows)

	org, err := s.OrganizationForUser(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "org-1", org.ID)
	assert.Equal(t, model.TierEnterprise, org.Plan)

	_, err = s.OrganizationForUser(context.Background(), "user-2")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveOrganization(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO organizations`).
		WithArgs("org-1", "Springfield", "starter").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO organization_members`).
		WithArgs("user-1", "org-1").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := s.SaveOrganization(context.Background(), model.Organization{ID: "org-1", Name: "Springfield", Plan: "starter"}, "user-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Seed(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	cols := recordColumns()
	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_seed_grants"}, cols).WillReturnResult(1)
	mock.ExpectExec(`INSERT INTO "grants"`).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	n, err := s.Seed(context.Background(), "grants", "org-1", []model.Record{{"id": "g-1", "name": "RAISE"}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Seed_ReportsForeignRows(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_seed_grants"}, recordColumns()).WillReturnResult(2)
	mock.ExpectExec(`WHERE "grants".organization_id = EXCLUDED.organization_id`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	n, err := s.Seed(context.Background(), "grants", "org-1", []model.Record{
		{"id": "g-1", "name": "RAISE"},
		{"id": "g-2", "name": "BUILD"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrForeignRows)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS organizations`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMigration_CoversCatalogue(t *testing.T) {
	ddl := postgresMigration()
	for _, e := range model.Entities() {
		assert.Contains(t, ddl, "CREATE TABLE IF NOT EXISTS "+e.Table()+" (")
	}
}
