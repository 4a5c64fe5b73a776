package gateway

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/muniops/internal/metrics"
	"github.com/sells-group/muniops/internal/model"
	"github.com/sells-group/muniops/internal/store"
)

// Route is where a request was sent.
type Route int

const (
	// RouteRejected means the request never reached routing.
	RouteRejected Route = iota
	RouteSample
	RouteLive
	RouteBlocked
)

func (r Route) String() string {
	switch r {
	case RouteSample:
		return metrics.RouteSample
	case RouteLive:
		return metrics.RouteLive
	case RouteBlocked:
		return metrics.RouteBlocked
	default:
		return "rejected"
	}
}

// ReadOptions narrows a read. Eq keys are record fields.
type ReadOptions struct {
	Eq        map[string]any
	OrderBy   string
	Ascending bool
	Limit     int
	Offset    int
}

// Request is one entity operation. ID is set for single-record reads,
// updates and deletes; Payload for creates and updates.
type Request struct {
	Entity        model.Entity
	Op            model.Operation
	ID            string
	Payload       model.Record
	Read          ReadOptions
	ForceRealData bool
}

// Outcome is the routed result of a Request. Err is nil on success; a
// blocked outcome always carries Err with CodeSampleData.
type Outcome struct {
	Route Route
	Rows  []model.Record
	Err   *store.DataError
}

// First returns the first row, or nil.
func (o Outcome) First() model.Record {
	if len(o.Rows) == 0 {
		return nil
	}
	return o.Rows[0]
}

// Resolve routes req against the session plan. It waits for plan
// resolution, then takes the plan once; a refresh that lands while the
// request runs does not change its route.
func (g *Gateway) Resolve(ctx context.Context, req Request) Outcome {
	if !req.Entity.Valid() {
		return Outcome{Err: store.NewDataError(
			fmt.Sprintf("unknown entity %q", req.Entity), store.CodeInvalidRequest, "")}
	}
	if req.Op != model.OpRead && !req.Op.IsWrite() {
		return Outcome{Err: store.NewDataError(
			fmt.Sprintf("unsupported operation %q", req.Op), store.CodeInvalidRequest, "")}
	}

	plan := g.Initialize(ctx)
	if err := ctx.Err(); err != nil {
		return Outcome{Err: store.NewDataError(err.Error(), CodeCanceled, "")}
	}

	return g.gatedOperation(ctx, plan, req)
}

// gatedOperation is the single routing rule for every entity and operation.
func (g *Gateway) gatedOperation(ctx context.Context, plan model.Plan, req Request) Outcome {
	var out Outcome
	if plan.UsesSampleData() && !req.ForceRealData {
		out = g.sampleCall(req)
	} else {
		out = g.liveCall(ctx, plan.OrganizationID, req)
	}

	g.metrics.ObserveRequest(string(req.Entity), string(req.Op), out.Route.String())
	return out
}

// sampleCall serves reads from fixtures. Writes are blocked, except filing a
// citizen report, which is acknowledged without being stored.
func (g *Gateway) sampleCall(req Request) Outcome {
	if req.Op.IsWrite() {
		if req.Op == model.OpCreate && req.Entity == model.EntityCitizenReports {
			return Outcome{Route: RouteSample, Rows: []model.Record{g.sampleCitizenReport(req.Payload)}}
		}
		return Outcome{Route: RouteBlocked, Err: blockedError(req.Entity, req.Op)}
	}
	if req.ID != "" {
		rec, ok := g.fixtures.Find(req.Entity, req.ID)
		if !ok {
			return Outcome{Route: RouteSample, Err: store.NewDataError(
				fmt.Sprintf("%s %s not found", req.Entity.Singular(), req.ID), store.CodeNotFound, "")}
		}
		return Outcome{Route: RouteSample, Rows: []model.Record{rec}}
	}
	return Outcome{Route: RouteSample, Rows: filterRows(g.fixtures.Rows(req.Entity), req.Read)}
}

// sampleCitizenReport fabricates the acknowledgement a free-plan resident
// sees after filing a report. Nothing is persisted.
func (g *Gateway) sampleCitizenReport(payload model.Record) model.Record {
	rec := payload.Clone()
	if rec == nil {
		rec = model.Record{}
	}
	now := g.now().UTC().Format(time.RFC3339)
	rec[model.FieldID] = g.newID()
	rec[model.FieldCreatedAt] = now
	rec[model.FieldUpdatedAt] = now
	if s, _ := rec["status"].(string); s == "" {
		rec["status"] = "submitted"
	}
	return rec
}

// filterRows applies equality filters, ordering and paging to fixture rows.
// Without OrderBy rows keep fixture order.
func filterRows(rows []model.Record, opts ReadOptions) []model.Record {
	out := make([]model.Record, 0, len(rows))
	for _, r := range rows {
		if matches(r, opts.Eq) {
			out = append(out, r)
		}
	}
	if opts.OrderBy != "" {
		slices.SortStableFunc(out, func(a, b model.Record) int {
			c := compareValues(a[opts.OrderBy], b[opts.OrderBy])
			if c == 0 {
				c = strings.Compare(a.ID(), b.ID())
			}
			if !opts.Ascending {
				c = -c
			}
			return c
		})
	}
	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return []model.Record{}
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(out) {
		out = out[:opts.Limit]
	}
	return out
}

// compareValues orders numbers numerically and everything else by its text.
// Missing values sort first.
func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if x, ok := asFloat(a); ok {
		if y, ok := asFloat(b); ok {
			return cmp.Compare(x, y)
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func matches(r model.Record, eq map[string]any) bool {
	for k, want := range eq {
		got, ok := r[k]
		if !ok || fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

// liveCall forwards req to the store under orgID. Store errors, including
// panics, come back as a DataError carrying the store's message.
func (g *Gateway) liveCall(ctx context.Context, orgID string, req Request) (out Outcome) {
	out.Route = RouteLive
	table := req.Entity.Table()

	defer func() {
		if rec := recover(); rec != nil {
			out = Outcome{Route: RouteLive, Err: store.NewDataError(
				fmt.Sprintf("store panicked: %v", rec), store.CodeStorePanic, "")}
		}
		if out.Err != nil {
			g.metrics.ObserveStoreError(string(req.Entity), string(req.Op))
			zap.L().Debug("live request failed",
				zap.String("entity", string(req.Entity)),
				zap.String("operation", string(req.Op)),
				zap.String("code", out.Err.Code),
				zap.String("message", out.Err.Message),
			)
		}
	}()

	var err error
	switch req.Op {
	case model.OpRead:
		filter := store.Filter{
			OrganizationID: orgID,
			Eq:             req.Read.Eq,
			OrderBy:        req.Read.OrderBy,
			Ascending:      req.Read.Ascending,
			Limit:          req.Read.Limit,
			Offset:         req.Read.Offset,
		}
		if req.ID != "" {
			filter = store.Filter{OrganizationID: orgID, Eq: map[string]any{model.FieldID: req.ID}, Limit: 1}
		}
		out.Rows, err = g.store.Select(ctx, table, filter)
		if err == nil && req.ID != "" && len(out.Rows) == 0 {
			out.Err = store.NewDataError(
				fmt.Sprintf("%s %s not found", table, req.ID), store.CodeNotFound, "")
		}
	case model.OpCreate:
		var rec model.Record
		rec, err = g.store.Insert(ctx, table, orgID, req.Payload)
		out.Rows = []model.Record{rec}
	case model.OpUpdate:
		var rec model.Record
		rec, err = g.store.Update(ctx, table, orgID, req.ID, req.Payload)
		out.Rows = []model.Record{rec}
	case model.OpDelete:
		err = g.store.Delete(ctx, table, orgID, req.ID)
	default:
		out.Err = store.NewDataError(fmt.Sprintf("unsupported operation %q", req.Op), store.CodeInvalidRequest, "")
	}
	if err != nil {
		out.Rows = nil
		out.Err = store.AsDataError(err)
	}
	return out
}
