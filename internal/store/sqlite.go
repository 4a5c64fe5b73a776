package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/muniops/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Payloads are stored
// as JSON text and filtered with json_extract.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// Pragmas are per connection; one connection keeps them in force and
	// serializes writers.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

func sqliteMigration() string {
	var b strings.Builder
	b.WriteString(`
CREATE TABLE IF NOT EXISTS organizations (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL DEFAULT '',
	plan       TEXT NOT NULL DEFAULT 'free',
	created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
);

CREATE TABLE IF NOT EXISTS organization_members (
	user_id         TEXT NOT NULL,
	organization_id TEXT NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
	created_at      TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now')),
	PRIMARY KEY (user_id, organization_id)
);
`)
	for _, e := range model.Entities() {
		fmt.Fprintf(&b, `
CREATE TABLE IF NOT EXISTS %[1]s (
	id              TEXT PRIMARY KEY,
	organization_id TEXT NOT NULL,
	data            TEXT NOT NULL DEFAULT '{}',
	created_at      TEXT NOT NULL,
	updated_at      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_%[1]s_org_created ON %[1]s(organization_id, created_at);
`, e.Table())
	}
	return b.String()
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration())
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

func sqlitePayloadExpr(field string) string {
	return fmt.Sprintf("json_extract(data, '$.%s')", field)
}

// sqliteFilterValue matches the text form of json_extract results, which
// reports JSON booleans as 1 and 0.
func sqliteFilterValue(v any) string {
	if b, ok := v.(bool); ok {
		if b {
			return "1"
		}
		return "0"
	}
	return fmt.Sprint(v)
}

func (s *SQLiteStore) Select(ctx context.Context, table string, filter Filter) ([]model.Record, error) {
	if err := validateScope(table, filter.OrganizationID); err != nil {
		return nil, err
	}
	if err := validateFilter(filter); err != nil {
		return nil, err
	}

	var (
		where = []string{"organization_id = ?"}
		args  = []any{filter.OrganizationID}
	)
	for _, k := range sortedKeys(filter.Eq) {
		args = append(args, sqliteFilterValue(filter.Eq[k]))
		if reservedColumns[k] {
			where = append(where, k+" = ?")
			continue
		}
		where = append(where, fmt.Sprintf("CAST(%s AS TEXT) = ?", sqlitePayloadExpr(k)))
	}

	dir := "DESC"
	if filter.Ascending {
		dir = "ASC"
	}
	query := fmt.Sprintf(
		"SELECT id, organization_id, data, created_at, updated_at FROM %s WHERE %s ORDER BY %s %s, id %s",
		table, strings.Join(where, " AND "), orderColumn(filter.OrderBy, sqlitePayloadExpr), dir, dir,
	)
	if filter.Limit > 0 || filter.Offset > 0 {
		limit := filter.Limit
		if limit == 0 {
			limit = -1
		}
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, AsDataError(err)
	}
	defer rows.Close() //nolint:errcheck

	out := []model.Record{}
	for rows.Next() {
		rec, err := scanSQLiteRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, AsDataError(err)
	}
	return out, nil
}

func (s *SQLiteStore) Insert(ctx context.Context, table, orgID string, rec model.Record) (model.Record, error) {
	if err := validateScope(table, orgID); err != nil {
		return nil, err
	}

	id := rec.ID()
	if id == "" {
		id = uuid.New().String()
	}
	data, err := splitRecord(rec)
	if err != nil {
		return nil, err
	}
	now := formatTime(s.clock())

	_, err = s.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (id, organization_id, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`, table),
		id, orgID, string(data), now, now,
	)
	if err != nil {
		return nil, AsDataError(err)
	}
	return joinRecord(id, orgID, data, now, now)
}

func (s *SQLiteStore) Update(ctx context.Context, table, orgID, id string, patch model.Record) (model.Record, error) {
	if err := validateScope(table, orgID); err != nil {
		return nil, err
	}
	data, err := splitRecord(patch)
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`UPDATE %s SET data = json_patch(data, ?), updated_at = ? WHERE id = ? AND organization_id = ? RETURNING id, organization_id, data, created_at, updated_at`, table),
		string(data), formatTime(s.clock()), id, orgID,
	)
	rec, err := scanSQLiteRecord(row)
	if err != nil {
		if IsNotFound(err) {
			return nil, notFound(table, id)
		}
		return nil, err
	}
	return rec, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, table, orgID, id string) error {
	if err := validateScope(table, orgID); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE id = ? AND organization_id = ?`, table),
		id, orgID,
	)
	if err != nil {
		return AsDataError(err)
	}
	return checkRowsAffected(res, table, id)
}

func (s *SQLiteStore) OrganizationForUser(ctx context.Context, userID string) (*model.Organization, error) {
	var org model.Organization
	var plan string
	err := s.db.QueryRowContext(ctx,
		`SELECT o.id, o.name, o.plan FROM organization_members m JOIN organizations o ON o.id = m.organization_id WHERE m.user_id = ? ORDER BY m.created_at LIMIT 1`,
		userID,
	).Scan(&org.ID, &org.Name, &plan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "sqlite: organization for user %s", userID)
		}
		return nil, eris.Wrapf(err, "sqlite: organization for user %s", userID)
	}
	org.Plan = model.ParseTier(plan)
	return &org, nil
}

func (s *SQLiteStore) SaveOrganization(ctx context.Context, org model.Organization, memberIDs ...string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: save organization: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT INTO organizations (id, name, plan) VALUES (?, ?, ?) ON CONFLICT (id) DO UPDATE SET name = excluded.name, plan = excluded.plan`,
		org.ID, org.Name, string(model.ParseTier(string(org.Plan))),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: upsert organization %s", org.ID)
	}
	for _, uid := range memberIDs {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO organization_members (user_id, organization_id) VALUES (?, ?) ON CONFLICT DO NOTHING`,
			uid, org.ID,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: add member %s", uid)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: save organization: commit")
}

func (s *SQLiteStore) Seed(ctx context.Context, table, orgID string, recs []model.Record) (int64, error) {
	if err := validateScope(table, orgID); err != nil {
		return 0, err
	}
	if len(recs) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: seed %s: begin tx", table)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (id, organization_id, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
		 WHERE %s.organization_id = excluded.organization_id`,
		table, table,
	))
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: seed %s: prepare", table)
	}
	defer stmt.Close() //nolint:errcheck

	now := formatTime(s.clock())
	var n, foreign int64
	for _, rec := range recs {
		data, err := splitRecord(rec)
		if err != nil {
			return 0, err
		}
		id := rec.ID()
		if id == "" {
			id = uuid.New().String()
		}
		res, err := stmt.ExecContext(ctx, id, orgID, string(data), now, now)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: seed %s row %s", table, id)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: seed %s row %s: rows affected", table, id)
		}
		if affected == 0 {
			foreign++
			continue
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrapf(err, "sqlite: seed %s: commit", table)
	}
	if foreign > 0 {
		return n, foreignRows(table, foreign)
	}
	return n, nil
}

func checkRowsAffected(res sql.Result, table, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return notFound(table, id)
	}
	return nil
}

func scanSQLiteRecord(row scannable) (model.Record, error) {
	var id, orgID, data, createdAt, updatedAt string
	if err := row.Scan(&id, &orgID, &data, &createdAt, &updatedAt); err != nil {
		return nil, AsDataError(err)
	}
	return joinRecord(id, orgID, []byte(data), createdAt, updatedAt)
}
