package gateway

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/muniops/internal/model"
	"github.com/sells-group/muniops/internal/store"
)

func TestCollection_FreeContractors(t *testing.T) {
	t.Parallel()

	gw := freeGateway(t, &fakeStore{})
	ctx := context.Background()

	res := gw.Contractors.Get(ctx, ReadOptions{})
	require.Nil(t, res.Error)
	require.Len(t, res.Data, 3)
	assert.True(t, res.Sample)
	assert.Equal(t, "Summit Paving Co.", res.Data[0].Name)
	assert.Equal(t, []string{"asphalt", "crack sealing"}, res.Data[0].Specialties)
	assert.InDelta(t, 4.6, res.Data[0].Rating, 0.001)

	created := gw.Contractors.Create(ctx, model.Contractor{Name: "Acme"})
	assert.Nil(t, created.Data)
	require.NotNil(t, created.Error)
	assert.Contains(t, created.Error.Message, "sample data")

	updated := gw.Contractors.Update(ctx, "sample-contractor-1", model.Record{"status": "inactive"})
	assert.Nil(t, updated.Data)
	require.NotNil(t, updated.Error)

	deleted := gw.Contractors.Delete(ctx, "sample-contractor-1")
	assert.False(t, deleted.Data)
	require.NotNil(t, deleted.Error)
	assert.Equal(t, CodeSampleData, deleted.Error.Code)
}

func TestCollection_FreeCitizenReportCreate(t *testing.T) {
	t.Parallel()

	gw := freeGateway(t, &fakeStore{})

	res := gw.CitizenReports.Create(context.Background(), model.CitizenReport{
		Description: "Streetlight out",
		Category:    "lighting",
	})

	require.Nil(t, res.Error)
	require.NotNil(t, res.Data)
	assert.True(t, res.Sample)
	assert.True(t, strings.HasPrefix(res.Data.ID, "sample-"))
	assert.Equal(t, "Streetlight out", res.Data.Description)
	assert.Equal(t, "submitted", res.Data.Status)
	assert.NotEmpty(t, res.Data.CreatedAt)
}

func TestCollection_EveryEntityReadsFixtures(t *testing.T) {
	t.Parallel()

	gw := freeGateway(t, &fakeStore{})
	ctx := context.Background()

	checks := map[model.Entity]func() (int, *store.DataError){
		model.EntityContractors:      func() (int, *store.DataError) { r := gw.Contractors.Get(ctx, ReadOptions{}); return len(r.Data), r.Error },
		model.EntityInspections:      func() (int, *store.DataError) { r := gw.Inspections.Get(ctx, ReadOptions{}); return len(r.Data), r.Error },
		model.EntityAssets:           func() (int, *store.DataError) { r := gw.Assets.Get(ctx, ReadOptions{}); return len(r.Data), r.Error },
		model.EntityMaintenanceTasks: func() (int, *store.DataError) { r := gw.MaintenanceTasks.Get(ctx, ReadOptions{}); return len(r.Data), r.Error },
		model.EntityProjects:         func() (int, *store.DataError) { r := gw.Projects.Get(ctx, ReadOptions{}); return len(r.Data), r.Error },
		model.EntityFundingSources:   func() (int, *store.DataError) { r := gw.FundingSources.Get(ctx, ReadOptions{}); return len(r.Data), r.Error },
		model.EntityGrants:           func() (int, *store.DataError) { r := gw.Grants.Get(ctx, ReadOptions{}); return len(r.Data), r.Error },
		model.EntityExpenses:         func() (int, *store.DataError) { r := gw.Expenses.Get(ctx, ReadOptions{}); return len(r.Data), r.Error },
		model.EntityCitizenReports:   func() (int, *store.DataError) { r := gw.CitizenReports.Get(ctx, ReadOptions{}); return len(r.Data), r.Error },
		model.EntityScanIssues:       func() (int, *store.DataError) { r := gw.ScanIssues.Get(ctx, ReadOptions{}); return len(r.Data), r.Error },
		model.EntityBudgetScenarios:  func() (int, *store.DataError) { r := gw.BudgetScenarios.Get(ctx, ReadOptions{}); return len(r.Data), r.Error },
		model.EntityUsers:            func() (int, *store.DataError) { r := gw.Users.Get(ctx, ReadOptions{}); return len(r.Data), r.Error },
	}
	require.Len(t, checks, len(model.Entities()))

	for e, check := range checks {
		n, derr := check()
		assert.Nil(t, derr, e)
		assert.Equal(t, gw.fixtures.Count(e), n, e)
	}
}

func TestCollection_PaidRoundTrip(t *testing.T) {
	t.Parallel()

	st := &fakeStore{rows: []model.Record{
		{"id": "t-1", "organization_id": "org-1", "title": "Patch potholes", "priority": "high", "estimated_cost": float64(600)},
	}}
	gw := paidGateway(t, st)
	ctx := context.Background()

	list := gw.MaintenanceTasks.Get(ctx, ReadOptions{Limit: 10})
	require.Nil(t, list.Error)
	require.Len(t, list.Data, 1)
	assert.False(t, list.Sample)
	assert.Equal(t, "Patch potholes", list.Data[0].Title)

	one := gw.MaintenanceTasks.GetByID(ctx, "t-1")
	require.Nil(t, one.Error)
	require.NotNil(t, one.Data)
	assert.Equal(t, "t-1", one.Data.ID)

	created := gw.Grants.Create(ctx, model.Grant{Name: "Safe Streets", Status: "applied"})
	require.Nil(t, created.Error)
	assert.Equal(t, "live-1", created.Data.ID)
	assert.Equal(t, "org-1", created.Data.OrganizationID)

	calls := st.Calls()
	insert := calls[len(calls)-1]
	assert.Equal(t, "insert", insert.op)
	assert.Equal(t, "Safe Streets", insert.rec["name"])
	assert.NotContains(t, insert.rec, "id")

	deleted := gw.Grants.Delete(ctx, "g-1")
	require.Nil(t, deleted.Error)
	assert.True(t, deleted.Data)
}

func TestCollection_PaidErrorLeavesDataEmpty(t *testing.T) {
	t.Parallel()

	st := &fakeStore{err: store.NewDataError("permission denied for table expenses", "42501", "")}
	gw := paidGateway(t, st)

	res := gw.Expenses.Get(context.Background(), ReadOptions{})
	assert.Nil(t, res.Data)
	require.NotNil(t, res.Error)
	assert.Equal(t, "permission denied for table expenses", res.Error.Message)
}

func TestCollection_DecodeError(t *testing.T) {
	t.Parallel()

	st := &fakeStore{rows: []model.Record{{"id": "c-1", "rating": "excellent"}}}
	gw := paidGateway(t, st)

	res := gw.Contractors.Get(context.Background(), ReadOptions{})
	require.NotNil(t, res.Error)
	assert.Equal(t, CodeDecode, res.Error.Code)
}
