package gateway

import (
	"context"

	"github.com/go-viper/mapstructure/v2"

	"github.com/sells-group/muniops/internal/model"
	"github.com/sells-group/muniops/internal/store"
)

// Result is what a collection call returns: exactly one of Data and Error
// is meaningful. Sample is true when Data came from the fixtures.
type Result[T any] struct {
	Data   T                `json:"data"`
	Error  *store.DataError `json:"error"`
	Sample bool             `json:"-"`
}

// CallOption adjusts a single collection call.
type CallOption func(*Request)

// ForceRealData sends the call to the live store whatever the plan.
func ForceRealData() CallOption {
	return func(r *Request) { r.ForceRealData = true }
}

// Collection is the typed CRUD surface for one entity.
type Collection[T any] struct {
	gw     *Gateway
	entity model.Entity
}

func newCollection[T any](gw *Gateway, e model.Entity) *Collection[T] {
	return &Collection[T]{gw: gw, entity: e}
}

func (c *Collection[T]) do(ctx context.Context, req Request, opts []CallOption) Outcome {
	req.Entity = c.entity
	for _, opt := range opts {
		opt(&req)
	}
	return c.gw.Resolve(ctx, req)
}

// Get lists records.
func (c *Collection[T]) Get(ctx context.Context, read ReadOptions, opts ...CallOption) Result[[]T] {
	out := c.do(ctx, Request{Op: model.OpRead, Read: read}, opts)
	if out.Err != nil {
		return Result[[]T]{Error: out.Err}
	}
	items := make([]T, 0, len(out.Rows))
	for _, row := range out.Rows {
		v, err := decodeRecord[T](row)
		if err != nil {
			return Result[[]T]{Error: err}
		}
		items = append(items, *v)
	}
	return Result[[]T]{Data: items, Sample: out.Route == RouteSample}
}

// GetByID fetches one record.
func (c *Collection[T]) GetByID(ctx context.Context, id string, opts ...CallOption) Result[*T] {
	return c.single(c.do(ctx, Request{Op: model.OpRead, ID: id}, opts))
}

// Create adds v. On the free plan this is blocked, except for citizen
// reports which are acknowledged with a synthetic record.
func (c *Collection[T]) Create(ctx context.Context, v T, opts ...CallOption) Result[*T] {
	rec, derr := encodeRecord(v)
	if derr != nil {
		return Result[*T]{Error: derr}
	}
	return c.single(c.do(ctx, Request{Op: model.OpCreate, Payload: rec}, opts))
}

// Update merges patch into the record with id.
func (c *Collection[T]) Update(ctx context.Context, id string, patch model.Record, opts ...CallOption) Result[*T] {
	return c.single(c.do(ctx, Request{Op: model.OpUpdate, ID: id, Payload: patch}, opts))
}

// Delete removes the record with id. Data is true on success.
func (c *Collection[T]) Delete(ctx context.Context, id string, opts ...CallOption) Result[bool] {
	out := c.do(ctx, Request{Op: model.OpDelete, ID: id}, opts)
	if out.Err != nil {
		return Result[bool]{Error: out.Err}
	}
	return Result[bool]{Data: true}
}

func (c *Collection[T]) single(out Outcome) Result[*T] {
	if out.Err != nil {
		return Result[*T]{Error: out.Err}
	}
	row := out.First()
	if row == nil {
		return Result[*T]{Sample: out.Route == RouteSample}
	}
	v, err := decodeRecord[T](row)
	if err != nil {
		return Result[*T]{Error: err}
	}
	return Result[*T]{Data: v, Sample: out.Route == RouteSample}
}

func decodeRecord[T any](rec model.Record) (*T, *store.DataError) {
	var v T
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &v,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, store.NewDataError(err.Error(), CodeDecode, "")
	}
	if err := dec.Decode(map[string]any(rec)); err != nil {
		return nil, store.NewDataError(err.Error(), CodeDecode, "")
	}
	return &v, nil
}

func encodeRecord[T any](v T) (model.Record, *store.DataError) {
	rec := map[string]any{}
	if err := mapstructure.Decode(v, &rec); err != nil {
		return nil, store.NewDataError(err.Error(), CodeDecode, "")
	}
	return model.Record(rec), nil
}
