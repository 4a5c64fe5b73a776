package model

import (
	"strings"
	"time"
)

// Entity names a tenant-scoped collection.
type Entity string

const (
	EntityContractors      Entity = "contractors"
	EntityInspections      Entity = "inspections"
	EntityAssets           Entity = "assets"
	EntityMaintenanceTasks Entity = "maintenance_tasks"
	EntityProjects         Entity = "projects"
	EntityFundingSources   Entity = "funding_sources"
	EntityGrants           Entity = "grants"
	EntityExpenses         Entity = "expenses"
	EntityCitizenReports   Entity = "citizen_reports"
	EntityScanIssues       Entity = "scan_issues"
	EntityBudgetScenarios  Entity = "budget_scenarios"
	EntityUsers            Entity = "users"
)

var entities = []Entity{
	EntityContractors,
	EntityInspections,
	EntityAssets,
	EntityMaintenanceTasks,
	EntityProjects,
	EntityFundingSources,
	EntityGrants,
	EntityExpenses,
	EntityCitizenReports,
	EntityScanIssues,
	EntityBudgetScenarios,
	EntityUsers,
}

// Entities returns every known entity in catalogue order.
func Entities() []Entity {
	out := make([]Entity, len(entities))
	copy(out, entities)
	return out
}

// ParseEntity accepts table names as well as dashed forms ("maintenance-tasks").
func ParseEntity(s string) (Entity, bool) {
	e := Entity(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	return e, e.Valid()
}

// Valid reports whether e is part of the catalogue.
func (e Entity) Valid() bool {
	for _, known := range entities {
		if e == known {
			return true
		}
	}
	return false
}

// Table is the store table backing e.
func (e Entity) Table() string { return string(e) }

// Noun is the plural human name, e.g. "maintenance tasks".
func (e Entity) Noun() string { return strings.ReplaceAll(string(e), "_", " ") }

// Singular is the singular human name, e.g. "maintenance task".
func (e Entity) Singular() string {
	n := e.Noun()
	if strings.HasSuffix(n, "ies") {
		return strings.TrimSuffix(n, "ies") + "y"
	}
	return strings.TrimSuffix(n, "s")
}

// Operation is the kind of request made against an entity.
type Operation string

const (
	OpRead   Operation = "read"
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// IsWrite reports whether op mutates data.
func (op Operation) IsWrite() bool {
	return op == OpCreate || op == OpUpdate || op == OpDelete
}

// Verb is the action phrase used in upgrade prompts.
func (op Operation) Verb() string {
	switch op {
	case OpCreate:
		return "add"
	case OpUpdate:
		return "edit"
	case OpDelete:
		return "delete"
	default:
		return "view"
	}
}

// Record is a schemaless row as exchanged with the record store.
type Record map[string]any

// Record column names shared by every table.
const (
	FieldID             = "id"
	FieldOrganizationID = "organization_id"
	FieldCreatedAt      = "created_at"
	FieldUpdatedAt      = "updated_at"
)

// ID returns the record id or "" when absent.
func (r Record) ID() string {
	if v, ok := r[FieldID].(string); ok {
		return v
	}
	return ""
}

// Clone returns a deep copy of r. Nested maps and slices are copied so the
// result can be mutated without touching the source.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return map[string]any(Record(t).Clone())
	case Record:
		return t.Clone()
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out
	case time.Time:
		return t
	default:
		return v
	}
}

// CloneRecords deep-copies a slice of records.
func CloneRecords(in []Record) []Record {
	if in == nil {
		return nil
	}
	out := make([]Record, len(in))
	for i, r := range in {
		out[i] = r.Clone()
	}
	return out
}
