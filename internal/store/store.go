package store

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/muniops/internal/model"
)

// Filter specifies criteria for selecting rows from a tenant-scoped table.
type Filter struct {
	OrganizationID string         `json:"organization_id"`
	Eq             map[string]any `json:"eq,omitempty"`
	OrderBy        string         `json:"order_by,omitempty"`
	Ascending      bool           `json:"ascending,omitempty"`
	Limit          int            `json:"limit,omitempty"`
	Offset         int            `json:"offset,omitempty"`
}

// RecordStore is the generic record capability the gateway forwards to.
// Every call is scoped to one organization; an empty organization id is
// rejected with a DataError carrying CodeNoTenant.
type RecordStore interface {
	Select(ctx context.Context, table string, filter Filter) ([]model.Record, error)
	Insert(ctx context.Context, table, orgID string, rec model.Record) (model.Record, error)
	Update(ctx context.Context, table, orgID, id string, patch model.Record) (model.Record, error)
	Delete(ctx context.Context, table, orgID, id string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// OrganizationStore resolves tenants and their plans for a user.
type OrganizationStore interface {
	OrganizationForUser(ctx context.Context, userID string) (*model.Organization, error)
	SaveOrganization(ctx context.Context, org model.Organization, memberIDs ...string) error
}

// Seeder bulk-loads records into a tenant's table, replacing the tenant's
// rows with the same id. Ids held by another tenant are skipped and reported
// with ErrForeignRows.
type Seeder interface {
	Seed(ctx context.Context, table, orgID string, recs []model.Record) (int64, error)
}

// Store is the full capability set implemented by the Postgres and SQLite backends.
type Store interface {
	RecordStore
	OrganizationStore
	Seeder
}

// timestampLayout is fixed-width so that text timestamps sort chronologically.
const timestampLayout = "2006-01-02T15:04:05.000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

var fieldNameRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// columns stored outside the JSON payload.
var reservedColumns = map[string]bool{
	model.FieldID:             true,
	model.FieldOrganizationID: true,
	model.FieldCreatedAt:      true,
	model.FieldUpdatedAt:      true,
}

// validateTable rejects tables outside the entity catalogue so table names
// can be interpolated into SQL.
func validateTable(table string) error {
	e := model.Entity(table)
	if !e.Valid() {
		return &DataError{
			Message: fmt.Sprintf("unknown table %q", table),
			Code:    CodeInvalidRequest,
		}
	}
	return nil
}

func validateScope(table, orgID string) error {
	if err := validateTable(table); err != nil {
		return err
	}
	if strings.TrimSpace(orgID) == "" {
		return &DataError{
			Message: fmt.Sprintf("no organization in scope for %s", table),
			Code:    CodeNoTenant,
			Hint:    "resolve the session plan before querying live data",
		}
	}
	return nil
}

func validateFilter(f Filter) error {
	for k := range f.Eq {
		if !fieldNameRe.MatchString(k) {
			return &DataError{Message: fmt.Sprintf("invalid filter field %q", k), Code: CodeInvalidRequest}
		}
	}
	if f.OrderBy != "" && !fieldNameRe.MatchString(f.OrderBy) {
		return &DataError{Message: fmt.Sprintf("invalid order field %q", f.OrderBy), Code: CodeInvalidRequest}
	}
	if f.Limit < 0 || f.Offset < 0 {
		return &DataError{Message: "limit and offset must be non-negative", Code: CodeInvalidRequest}
	}
	return nil
}

// splitRecord separates the JSON payload from the reserved columns.
func splitRecord(rec model.Record) ([]byte, error) {
	payload := make(map[string]any, len(rec))
	for k, v := range rec {
		if reservedColumns[k] {
			continue
		}
		payload[k] = v
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal record")
	}
	return data, nil
}

// joinRecord rebuilds a record from its columns and JSON payload.
func joinRecord(id, orgID string, data []byte, createdAt, updatedAt string) (model.Record, error) {
	rec := model.Record{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, eris.Wrapf(err, "store: unmarshal record %s", id)
		}
	}
	rec[model.FieldID] = id
	rec[model.FieldOrganizationID] = orgID
	rec[model.FieldCreatedAt] = createdAt
	rec[model.FieldUpdatedAt] = updatedAt
	return rec, nil
}

// orderColumn maps an order field to a column or payload expression.
func orderColumn(field string, payloadExpr func(string) string) string {
	if field == "" {
		return model.FieldCreatedAt
	}
	if reservedColumns[field] {
		return field
	}
	return payloadExpr(field)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
