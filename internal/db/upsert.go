package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// EntityColumns is the fixed column layout of every entity table.
var EntityColumns = []string{"id", "organization_id", "data", "created_at", "updated_at"}

// EntityRow is one row of an entity table. Data is the JSONB payload.
type EntityRow struct {
	ID             string
	OrganizationID string
	Data           []byte
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (r EntityRow) values() []any {
	return []any{r.ID, r.OrganizationID, r.Data, r.CreatedAt, r.UpdatedAt}
}

// SeedResult counts what an entity seed did. Foreign rows already existed
// under another organization and were left untouched.
type SeedResult struct {
	Written int64
	Foreign int64
}

// SeedEntityRows copies rows into a staging table and merges them into table
// on id. An existing row only takes the new payload when it belongs to the
// same organization, so a seed never moves a row between tenants. Later rows
// win when the batch repeats an id.
func SeedEntityRows(ctx context.Context, pool Pool, table string, rows []EntityRow) (SeedResult, error) {
	rows = lastByID(rows)
	if len(rows) == 0 {
		return SeedResult{}, nil
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return SeedResult{}, eris.Wrap(err, "db: seed: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	target := pgx.Identifier{table}.Sanitize()
	staging := pgx.Identifier{"_seed_" + table}.Sanitize()

	if _, err := tx.Exec(ctx,
		"CREATE TEMP TABLE "+staging+" (LIKE "+target+" INCLUDING DEFAULTS) ON COMMIT DROP",
	); err != nil {
		return SeedResult{}, eris.Wrapf(err, "db: seed %s: create staging table", table)
	}

	src := pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
		return rows[i].values(), nil
	})
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"_seed_" + table}, EntityColumns, src); err != nil {
		return SeedResult{}, eris.Wrapf(err, "db: seed %s: copy rows", table)
	}

	tag, err := tx.Exec(ctx,
		"INSERT INTO "+target+" (id, organization_id, data, created_at, updated_at)"+
			" SELECT id, organization_id, data, created_at, updated_at FROM "+staging+
			" ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at"+
			" WHERE "+target+".organization_id = EXCLUDED.organization_id",
	)
	if err != nil {
		return SeedResult{}, eris.Wrapf(err, "db: seed %s: merge", table)
	}

	if err := tx.Commit(ctx); err != nil {
		return SeedResult{}, eris.Wrapf(err, "db: seed %s: commit", table)
	}

	written := tag.RowsAffected()
	return SeedResult{Written: written, Foreign: int64(len(rows)) - written}, nil
}

// lastByID drops earlier duplicates of an id, keeping first-seen order.
// ON CONFLICT cannot touch the same row twice in one statement.
func lastByID(rows []EntityRow) []EntityRow {
	pos := make(map[string]int, len(rows))
	out := make([]EntityRow, 0, len(rows))
	for _, r := range rows {
		if i, ok := pos[r.ID]; ok {
			out[i] = r
			continue
		}
		pos[r.ID] = len(out)
		out = append(out, r)
	}
	return out
}
