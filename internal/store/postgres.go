package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/muniops/internal/db"
	"github.com/sells-group/muniops/internal/model"
)

// PostgresStore implements Store using pgxpool. Each entity table keeps its
// payload in a JSONB column next to the tenant and timestamp columns.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
	now     func() time.Time
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close, now: time.Now}, nil
}

func postgresMigration() string {
	var b strings.Builder
	b.WriteString(`
CREATE TABLE IF NOT EXISTS organizations (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL DEFAULT '',
	plan       TEXT NOT NULL DEFAULT 'free',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS organization_members (
	user_id         TEXT NOT NULL,
	organization_id TEXT NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (user_id, organization_id)
);
`)
	for _, e := range model.Entities() {
		fmt.Fprintf(&b, `
CREATE TABLE IF NOT EXISTS %[1]s (
	id              TEXT PRIMARY KEY,
	organization_id TEXT NOT NULL,
	data            JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_%[1]s_org_created ON %[1]s(organization_id, created_at DESC);
`, e.Table())
	}
	return b.String()
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration())
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

func pgPayloadExpr(field string) string {
	return fmt.Sprintf("data->>'%s'", field)
}

func (s *PostgresStore) Select(ctx context.Context, table string, filter Filter) ([]model.Record, error) {
	if err := validateScope(table, filter.OrganizationID); err != nil {
		return nil, err
	}
	if err := validateFilter(filter); err != nil {
		return nil, err
	}

	var (
		where = []string{"organization_id = $1"}
		args  = []any{filter.OrganizationID}
	)
	for _, k := range sortedKeys(filter.Eq) {
		args = append(args, fmt.Sprint(filter.Eq[k]))
		if reservedColumns[k] {
			where = append(where, fmt.Sprintf("%s = $%d", k, len(args)))
			continue
		}
		where = append(where, fmt.Sprintf("%s = $%d", pgPayloadExpr(k), len(args)))
	}

	dir := "DESC"
	if filter.Ascending {
		dir = "ASC"
	}
	query := fmt.Sprintf(
		"SELECT id, organization_id, data, created_at, updated_at FROM %s WHERE %s ORDER BY %s %s",
		table, strings.Join(where, " AND "), orderColumn(filter.OrderBy, pgPayloadExpr), dir,
	)
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, AsDataError(err)
	}
	defer rows.Close()

	var out []model.Record
	for rows.Next() {
		rec, err := scanPostgresRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, AsDataError(err)
	}
	if out == nil {
		out = []model.Record{}
	}
	return out, nil
}

func (s *PostgresStore) Insert(ctx context.Context, table, orgID string, rec model.Record) (model.Record, error) {
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
	now := s.clock().UTC()

	_, err = s.pool.Exec(ctx,
		fmt.Sprintf(`INSERT INTO %s (id, organization_id, data, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`, table),
		id, orgID, data, now, now,
	)
	if err != nil {
		return nil, AsDataError(err)
	}
	return joinRecord(id, orgID, data, formatTime(now), formatTime(now))
}

func (s *PostgresStore) Update(ctx context.Context, table, orgID, id string, patch model.Record) (model.Record, error) {
	if err := validateScope(table, orgID); err != nil {
		return nil, err
	}
	data, err := splitRecord(patch)
	if err != nil {
		return nil, err
	}

	row := s.pool.QueryRow(ctx,
		fmt.Sprintf(`UPDATE %s SET data = data || $1::jsonb, updated_at = $2 WHERE id = $3 AND organization_id = $4 RETURNING id, organization_id, data, created_at, updated_at`, table),
		data, s.clock().UTC(), id, orgID,
	)
	rec, err := scanPostgresRecord(row)
	if err != nil {
		if IsNotFound(err) {
			return nil, notFound(table, id)
		}
		return nil, err
	}
	return rec, nil
}

func (s *PostgresStore) Delete(ctx context.Context, table, orgID, id string) error {
	if err := validateScope(table, orgID); err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND organization_id = $2`, table),
		id, orgID,
	)
	if err != nil {
		return AsDataError(err)
	}
	if tag.RowsAffected() == 0 {
		return notFound(table, id)
	}
	return nil
}

func (s *PostgresStore) OrganizationForUser(ctx context.Context, userID string) (*model.Organization, error) {
	var org model.Organization
	var plan string
	err := s.pool.QueryRow(ctx,
		`SELECT o.id, o.name, o.plan FROM organization_members m JOIN organizations o ON o.id = m.organization_id WHERE m.user_id = $1 ORDER BY m.created_at LIMIT 1`,
		userID,
	).Scan(&org.ID, &org.Name, &plan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "postgres: organization for user %s", userID)
		}
		return nil, eris.Wrapf(err, "postgres: organization for user %s", userID)
	}
	org.Plan = model.ParseTier(plan)
	return &org, nil
}

func (s *PostgresStore) SaveOrganization(ctx context.Context, org model.Organization, memberIDs ...string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: save organization: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx,
		`INSERT INTO organizations (id, name, plan) VALUES ($1, $2, $3) ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, plan = EXCLUDED.plan`,
		org.ID, org.Name, string(model.ParseTier(string(org.Plan))),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: upsert organization %s", org.ID)
	}
	for _, uid := range memberIDs {
		_, err = tx.Exec(ctx,
			`INSERT INTO organization_members (user_id, organization_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			uid, org.ID,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: add member %s", uid)
		}
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: save organization: commit")
}

func (s *PostgresStore) Seed(ctx context.Context, table, orgID string, recs []model.Record) (int64, error) {
	if err := validateScope(table, orgID); err != nil {
		return 0, err
	}
	now := s.clock().UTC()
	rows := make([]db.EntityRow, 0, len(recs))
	for _, rec := range recs {
		data, err := splitRecord(rec)
		if err != nil {
			return 0, err
		}
		id := rec.ID()
		if id == "" {
			id = uuid.New().String()
		}
		rows = append(rows, db.EntityRow{ID: id, OrganizationID: orgID, Data: data, CreatedAt: now, UpdatedAt: now})
	}
	res, err := db.SeedEntityRows(ctx, s.pool, table, rows)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: seed %s", table)
	}
	if res.Foreign > 0 {
		return res.Written, foreignRows(table, res.Foreign)
	}
	return res.Written, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanPostgresRecord(row scannable) (model.Record, error) {
	var (
		id, orgID            string
		data                 []byte
		createdAt, updatedAt time.Time
	)
	if err := row.Scan(&id, &orgID, &data, &createdAt, &updatedAt); err != nil {
		return nil, AsDataError(err)
	}
	return joinRecord(id, orgID, data, formatTime(createdAt), formatTime(updatedAt))
}
