// Package gateway is the plan-gated access layer in front of the record
// store. A Gateway resolves the session's subscription plan once, coalescing
// concurrent callers onto a single tenant lookup, and then routes every
// request either to the sample fixtures, to a policy block, or to the live
// store scoped by the tenant.
package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/muniops/internal/identity"
	"github.com/sells-group/muniops/internal/metrics"
	"github.com/sells-group/muniops/internal/model"
	"github.com/sells-group/muniops/internal/resilience"
	"github.com/sells-group/muniops/internal/sample"
	"github.com/sells-group/muniops/internal/store"
)

// State is the lifecycle position of the session plan.
type State int

const (
	StateUnresolved State = iota
	StateResolving
	StateResolved
	StateResolvedDefault
)

func (s State) String() string {
	switch s {
	case StateUnresolved:
		return "unresolved"
	case StateResolving:
		return "resolving"
	case StateResolved:
		return "resolved"
	case StateResolvedDefault:
		return "resolved-default"
	default:
		return "unknown"
	}
}

// Defaults for Options.
const (
	DefaultLookupAttempts = 2
	DefaultRetryDelay     = 500 * time.Millisecond
	DefaultLookupTimeout  = 10 * time.Second
)

// Options wires a Gateway to its collaborators.
type Options struct {
	Lookup   identity.Lookup
	Store    store.RecordStore
	Fixtures *sample.Fixtures
	Metrics  *metrics.Metrics

	// LookupAttempts is the total number of tenant lookups per resolution.
	// The default of 2 means one retry.
	LookupAttempts int
	// RetryDelay is the fixed pause before retrying a failed lookup.
	RetryDelay time.Duration
	// LookupTimeout bounds each lookup attempt.
	LookupTimeout time.Duration
}

// resolution is a shared in-flight plan lookup. plan is written before done
// is closed and only read after.
type resolution struct {
	done chan struct{}
	gen  uint64
	plan model.Plan
}

// Gateway is the session object. Construct one per composition root.
type Gateway struct {
	lookup   identity.Lookup
	store    store.RecordStore
	fixtures *sample.Fixtures
	metrics  *metrics.Metrics
	retry    resilience.RetryConfig
	timeout  time.Duration
	now      func() time.Time
	newID    func() string

	mu         sync.RWMutex
	state      State
	plan       model.Plan
	inflight   *resolution
	generation uint64
	lookups    int
	resolvedAt time.Time
	lastErr    string

	Contractors      *Collection[model.Contractor]
	Inspections      *Collection[model.Inspection]
	Assets           *Collection[model.Asset]
	MaintenanceTasks *Collection[model.MaintenanceTask]
	Projects         *Collection[model.Project]
	FundingSources   *Collection[model.FundingSource]
	Grants           *Collection[model.Grant]
	Expenses         *Collection[model.Expense]
	CitizenReports   *Collection[model.CitizenReport]
	ScanIssues       *Collection[model.ScanIssue]
	BudgetScenarios  *Collection[model.BudgetScenario]
	Users            *Collection[model.User]
}

// New creates a Gateway in the unresolved state.
func New(opts Options) (*Gateway, error) {
	if opts.Lookup == nil {
		return nil, eris.New("gateway: identity lookup is required")
	}
	if opts.Store == nil {
		return nil, eris.New("gateway: record store is required")
	}
	fixtures := opts.Fixtures
	if fixtures == nil {
		f, err := sample.Load()
		if err != nil {
			return nil, eris.Wrap(err, "gateway: load sample fixtures")
		}
		fixtures = f
	}

	attempts := opts.LookupAttempts
	if attempts <= 0 {
		attempts = DefaultLookupAttempts
	}
	delay := opts.RetryDelay
	if delay <= 0 {
		delay = DefaultRetryDelay
	}
	timeout := opts.LookupTimeout
	if timeout <= 0 {
		timeout = DefaultLookupTimeout
	}
	retry := resilience.FixedRetry(attempts, delay)
	retry.OnRetry = resilience.RetryLogger("gateway", "tenant_lookup")

	g := &Gateway{
		lookup:   opts.Lookup,
		store:    opts.Store,
		fixtures: fixtures,
		metrics:  opts.Metrics,
		retry:    retry,
		timeout:  timeout,
		now:      time.Now,
		newID:    func() string { return "sample-" + uuid.New().String() },
		plan:     model.DefaultPlan(),
	}

	g.Contractors = newCollection[model.Contractor](g, model.EntityContractors)
	g.Inspections = newCollection[model.Inspection](g, model.EntityInspections)
	g.Assets = newCollection[model.Asset](g, model.EntityAssets)
	g.MaintenanceTasks = newCollection[model.MaintenanceTask](g, model.EntityMaintenanceTasks)
	g.Projects = newCollection[model.Project](g, model.EntityProjects)
	g.FundingSources = newCollection[model.FundingSource](g, model.EntityFundingSources)
	g.Grants = newCollection[model.Grant](g, model.EntityGrants)
	g.Expenses = newCollection[model.Expense](g, model.EntityExpenses)
	g.CitizenReports = newCollection[model.CitizenReport](g, model.EntityCitizenReports)
	g.ScanIssues = newCollection[model.ScanIssue](g, model.EntityScanIssues)
	g.BudgetScenarios = newCollection[model.BudgetScenario](g, model.EntityBudgetScenarios)
	g.Users = newCollection[model.User](g, model.EntityUsers)

	return g, nil
}

// Initialize resolves the session plan. The first caller starts a tenant
// lookup; callers arriving while it runs wait on the same resolution; once
// settled the cached plan is returned without a lookup. It never fails: a
// lookup that errors on every attempt settles the session on the free plan.
//
// ctx only bounds the caller's wait. The lookup itself runs detached so a
// cancelled caller does not abort resolution for everyone else; such a
// caller gets the default plan.
func (g *Gateway) Initialize(ctx context.Context) model.Plan {
	g.mu.Lock()
	if g.state == StateResolved || g.state == StateResolvedDefault {
		p := g.plan
		g.mu.Unlock()
		return p
	}
	r := g.inflight
	if r == nil {
		r = g.startLocked()
	}
	g.mu.Unlock()
	return wait(ctx, r)
}

// ForceRefresh discards the cached plan and runs a new resolution. A
// resolution already in flight keeps serving the callers waiting on it but
// can no longer overwrite the session plan.
func (g *Gateway) ForceRefresh(ctx context.Context) model.Plan {
	g.mu.Lock()
	g.plan = model.DefaultPlan()
	r := g.startLocked()
	g.mu.Unlock()

	zap.L().Info("plan refresh requested", zap.Uint64("generation", r.gen))
	return wait(ctx, r)
}

// startLocked moves the session to resolving and launches the lookup.
// g.mu must be held.
func (g *Gateway) startLocked() *resolution {
	g.generation++
	r := &resolution{done: make(chan struct{}), gen: g.generation}
	g.inflight = r
	g.state = StateResolving
	go g.run(r)
	return r
}

func wait(ctx context.Context, r *resolution) model.Plan {
	select {
	case <-r.done:
		return r.plan
	case <-ctx.Done():
		return model.DefaultPlan()
	}
}

// run performs one resolution. Waiters are released only after the result
// is recorded, logged and counted.
func (g *Gateway) run(r *resolution) {
	defer close(r.done)
	start := g.now()

	org, attempts, err := resilience.DoVal(context.Background(), g.retry, g.lookupOnce)

	plan := model.DefaultPlan()
	defaulted := err != nil
	if !defaulted {
		plan = model.Plan{Tier: model.ParseTier(string(org.Plan)), OrganizationID: org.ID}
	}

	g.mu.Lock()
	g.lookups += attempts
	current := r.gen == g.generation
	if current {
		g.plan = plan
		g.inflight = nil
		g.resolvedAt = g.now()
		g.state = StateResolved
		g.lastErr = ""
		if defaulted {
			g.state = StateResolvedDefault
			g.lastErr = err.Error()
		}
	}
	r.plan = plan
	g.mu.Unlock()

	g.metrics.ObserveResolution(string(plan.Tier), defaulted, g.now().Sub(start))

	if !current {
		zap.L().Info("superseded plan resolution settled",
			zap.Uint64("generation", r.gen),
			zap.String("plan", string(plan.Tier)),
		)
		return
	}
	if defaulted {
		zap.L().Warn("tenant lookup failed, defaulting to free plan",
			zap.Int("attempts", attempts),
			zap.Error(err),
		)
		return
	}
	zap.L().Info("plan resolved",
		zap.String("plan", string(plan.Tier)),
		zap.String("organization_id", plan.OrganizationID),
		zap.Int("attempts", attempts),
	)
}

// lookupOnce is a single bounded lookup attempt. The lookup runs on its own
// goroutine so a collaborator that ignores ctx cannot hold the attempt past
// the timeout. Panics in the lookup are reported as errors.
func (g *Gateway) lookupOnce(ctx context.Context) (*model.Organization, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	type lookupResult struct {
		org *model.Organization
		err error
	}
	ch := make(chan lookupResult, 1)
	go func() {
		var res lookupResult
		defer func() {
			if rec := recover(); rec != nil {
				res = lookupResult{err: eris.Errorf("gateway: tenant lookup panicked: %v", rec)}
			}
			ch <- res
		}()
		res.org, res.err = g.lookup.Lookup(ctx)
	}()

	var res lookupResult
	select {
	case res = <-ch:
	case <-ctx.Done():
		res = lookupResult{err: eris.Wrap(ctx.Err(), "gateway: tenant lookup timed out")}
	}
	org, err := validateOrganization(res.org, res.err)
	g.metrics.ObserveLookup(err)
	return org, err
}

func validateOrganization(org *model.Organization, err error) (*model.Organization, error) {
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, eris.New("gateway: tenant lookup returned no organization")
	}
	if org.ID == "" && model.ParseTier(string(org.Plan)).IsPaid() {
		return nil, eris.Errorf("gateway: %s plan returned without an organization id", org.Plan)
	}
	return org, nil
}

// snapshot returns the current plan without triggering resolution.
func (g *Gateway) snapshot() model.Plan {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.plan
}

// PlanName returns the current tier name.
func (g *Gateway) PlanName() string {
	return string(g.snapshot().Tier)
}

// IsPremiumPlan reports whether the current tier is paid.
func (g *Gateway) IsPremiumPlan() bool {
	return g.snapshot().Tier.IsPaid()
}

// OrganizationID returns the current tenant id, or "" when none is resolved.
func (g *Gateway) OrganizationID() string {
	return g.snapshot().OrganizationID
}

// DebugInfo is a read-only view of the session for diagnostics.
type DebugInfo struct {
	Plan            string     `json:"plan" yaml:"plan"`
	OrganizationID  string     `json:"organization_id,omitempty" yaml:"organization_id,omitempty"`
	State           string     `json:"state" yaml:"state"`
	IsPremium       bool       `json:"is_premium" yaml:"is_premium"`
	UsingSampleData bool       `json:"using_sample_data" yaml:"using_sample_data"`
	InFlight        bool       `json:"in_flight" yaml:"in_flight"`
	Generation      uint64     `json:"generation" yaml:"generation"`
	LookupAttempts  int        `json:"lookup_attempts" yaml:"lookup_attempts"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty" yaml:"resolved_at,omitempty"`
	LastError       string     `json:"last_error,omitempty" yaml:"last_error,omitempty"`
}

// DebugInfo reports the session state. It never starts a resolution.
func (g *Gateway) DebugInfo() DebugInfo {
	g.mu.RLock()
	defer g.mu.RUnlock()

	info := DebugInfo{
		Plan:            string(g.plan.Tier),
		OrganizationID:  g.plan.OrganizationID,
		State:           g.state.String(),
		IsPremium:       g.plan.Tier.IsPaid(),
		UsingSampleData: g.plan.UsesSampleData(),
		InFlight:        g.inflight != nil,
		Generation:      g.generation,
		LookupAttempts:  g.lookups,
		LastError:       g.lastErr,
	}
	if !g.resolvedAt.IsZero() {
		t := g.resolvedAt
		info.ResolvedAt = &t
	}
	return info
}
