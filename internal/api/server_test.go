package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/muniops/internal/gateway"
	"github.com/sells-group/muniops/internal/identity"
	"github.com/sells-group/muniops/internal/metrics"
	"github.com/sells-group/muniops/internal/model"
	"github.com/sells-group/muniops/internal/store"
)

type testEnv struct {
	srv   *httptest.Server
	store *store.SQLiteStore
	gw    *gateway.Gateway
}

func newTestEnv(t *testing.T, lookup identity.Lookup) *testEnv {
	t.Helper()

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(context.Background()))

	reg := prometheus.NewRegistry()
	gw, err := gateway.New(gateway.Options{
		Lookup:     lookup,
		Store:      st,
		Metrics:    metrics.New(reg),
		RetryDelay: time.Millisecond,
	})
	require.NoError(t, err)

	srv := httptest.NewServer(NewServer(gw, Options{Gatherer: reg}).Handler())
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, store: st, gw: gw}
}

type response struct {
	Data  json.RawMessage  `json:"data"`
	Error *store.DataError `json:"error"`
}

func (e *testEnv) do(t *testing.T, method, path, body string) (int, response) {
	t.Helper()

	req, err := http.NewRequest(method, e.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out response
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp.StatusCode, out
}

func TestHealth(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, identity.NewStatic("", "free"))

	resp, err := http.Get(env.srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, identity.NewStatic("", "free"))

	env.do(t, http.MethodGet, "/v1/contractors", "")

	resp, err := http.Get(env.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "muniops_gateway_requests_total")
}

func TestSession(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, identity.NewStatic("org-1", "starter"))

	status, body := env.do(t, http.MethodGet, "/v1/session", "")
	require.Equal(t, http.StatusOK, status)
	assert.Nil(t, body.Error)

	var info gateway.DebugInfo
	require.NoError(t, json.Unmarshal(body.Data, &info))
	assert.Equal(t, "starter", info.Plan)
	assert.Equal(t, "org-1", info.OrganizationID)
	assert.Equal(t, "resolved", info.State)

	status, body = env.do(t, http.MethodPost, "/v1/session/refresh", "")
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body.Data, &info))
	assert.Equal(t, uint64(2), info.Generation)
}

func TestFreePlan_ListServesSample(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, identity.NewStatic("", "free"))

	status, body := env.do(t, http.MethodGet, "/v1/contractors", "")
	require.Equal(t, http.StatusOK, status)
	assert.Nil(t, body.Error)

	var rows []model.Record
	require.NoError(t, json.Unmarshal(body.Data, &rows))
	assert.Len(t, rows, 3)
}

func TestFreePlan_CreateBlocked(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, identity.NewStatic("", "free"))

	status, body := env.do(t, http.MethodPost, "/v1/contractors", `{"name":"Acme"}`)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "null", string(body.Data))
	require.NotNil(t, body.Error)
	assert.Equal(t, "This is sample data. Upgrade to the Starter plan to add contractors.", body.Error.Message)
	assert.Equal(t, gateway.CodeSampleData, body.Error.Code)
}

func TestFreePlan_CitizenReportAccepted(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, identity.NewStatic("", "free"))

	status, body := env.do(t, http.MethodPost, "/v1/citizen-reports", `{"description":"Pothole on 5th"}`)
	require.Equal(t, http.StatusCreated, status)
	assert.Nil(t, body.Error)

	var rec model.Record
	require.NoError(t, json.Unmarshal(body.Data, &rec))
	assert.True(t, strings.HasPrefix(rec.ID(), "sample-"))
	assert.Equal(t, "submitted", rec["status"])
}

func TestPaidPlan_CRUD(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, identity.NewStatic("org-1", "professional"))

	status, body := env.do(t, http.MethodPost, "/v1/assets", `{"name":"Bridge 12","type":"bridge","condition":"fair"}`)
	require.Equal(t, http.StatusCreated, status, body.Error)
	var created model.Record
	require.NoError(t, json.Unmarshal(body.Data, &created))
	id := created.ID()
	require.NotEmpty(t, id)
	assert.Equal(t, "org-1", created[model.FieldOrganizationID])

	status, body = env.do(t, http.MethodGet, "/v1/assets/"+id, "")
	require.Equal(t, http.StatusOK, status)

	status, body = env.do(t, http.MethodPatch, "/v1/assets/"+id, `{"condition":"poor"}`)
	require.Equal(t, http.StatusOK, status)
	var updated model.Record
	require.NoError(t, json.Unmarshal(body.Data, &updated))
	assert.Equal(t, "poor", updated["condition"])
	assert.Equal(t, "Bridge 12", updated["name"])

	status, body = env.do(t, http.MethodGet, "/v1/assets?type=bridge&limit=5", "")
	require.Equal(t, http.StatusOK, status)
	var rows []model.Record
	require.NoError(t, json.Unmarshal(body.Data, &rows))
	assert.Len(t, rows, 1)

	status, body = env.do(t, http.MethodGet, "/v1/assets?type=culvert", "")
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body.Data, &rows))
	assert.Empty(t, rows)

	status, body = env.do(t, http.MethodDelete, "/v1/assets/"+id, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "true", string(body.Data))

	status, body = env.do(t, http.MethodGet, "/v1/assets/"+id, "")
	assert.Equal(t, http.StatusNotFound, status)
	require.NotNil(t, body.Error)
	assert.Equal(t, store.CodeNotFound, body.Error.Code)
}

func TestForceRealOnFreePlan(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, identity.NewStatic("", "free"))

	status, body := env.do(t, http.MethodGet, "/v1/contractors?force_real=true", "")
	assert.Equal(t, http.StatusBadGateway, status)
	require.NotNil(t, body.Error)
	assert.Equal(t, store.CodeNoTenant, body.Error.Code)
}

func TestUnknownEntity(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, identity.NewStatic("", "free"))

	status, body := env.do(t, http.MethodGet, "/v1/widgets", "")
	assert.Equal(t, http.StatusNotFound, status)
	require.NotNil(t, body.Error)
	assert.Contains(t, body.Error.Message, "widgets")
}

func TestBadRequests(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, identity.NewStatic("org-1", "enterprise"))

	status, _ := env.do(t, http.MethodGet, "/v1/contractors?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = env.do(t, http.MethodPost, "/v1/contractors", `[1,2]`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = env.do(t, http.MethodGet, "/v1/contractors?bad-field=1", "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestParseReadOptions(t *testing.T) {
	t.Parallel()

	opts, derr := parseReadOptions(map[string][]string{
		"limit":      {"10"},
		"offset":     {"20"},
		"order":      {"-due_date"},
		"status":     {"open"},
		"force_real": {"true"},
	})
	require.Nil(t, derr)
	assert.Equal(t, gateway.ReadOptions{
		Eq:      map[string]any{"status": "open"},
		OrderBy: "due_date",
		Limit:   10,
		Offset:  20,
	}, opts)

	opts, derr = parseReadOptions(map[string][]string{"order": {"name"}})
	require.Nil(t, derr)
	assert.True(t, opts.Ascending)

	_, derr = parseReadOptions(map[string][]string{"offset": {"-1"}})
	require.NotNil(t, derr)
	assert.Equal(t, store.CodeInvalidRequest, derr.Code)
}

func TestStatusFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code string
		want int
	}{
		{store.CodeNotFound, http.StatusNotFound},
		{store.CodeInvalidRequest, http.StatusBadRequest},
		{gateway.CodeDecode, http.StatusBadRequest},
		{gateway.CodeSampleData, http.StatusForbidden},
		{gateway.CodeCanceled, http.StatusServiceUnavailable},
		{store.CodeNoTenant, http.StatusBadGateway},
		{"23505", http.StatusBadGateway},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(store.NewDataError("x", tt.code, "")), tt.code)
	}
}
