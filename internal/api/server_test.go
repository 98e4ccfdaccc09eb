package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/lanegrid/pkg/errors"
	"github.com/matzehuels/lanegrid/pkg/graph"
	"github.com/matzehuels/lanegrid/pkg/observability"
	"github.com/matzehuels/lanegrid/pkg/pipeline"
	"github.com/matzehuels/lanegrid/pkg/session"
)

const initProcessCSV = `Name,Documentation,Outputs,Inputs,Actor
Init,,OK,,
Process,Does the work,Done,OK,Worker
`

func newTestServer(t *testing.T, opts Options) http.Handler {
	t.Helper()
	runner := pipeline.NewRunner(session.Observe(session.NewMemoryStore(), session.BackendMemory), nil, nil, nil)
	return New(runner, opts).Handler()
}

func do(t *testing.T, h http.Handler, method, target string, body []byte, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func importOrders(t *testing.T, h http.Handler) importResponse {
	t.Helper()
	rr := do(t, h, http.MethodPost, "/v1/projects/billing/imports?format=csv&activity=Orders", []byte(initProcessCSV), "text/csv")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var resp importResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp), rr.Body.String())
	return resp
}

func TestHealth(t *testing.T) {
	rr := do(t, newTestServer(t, Options{}), http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
	assert.NotNil(t, resp["version"])
}

func TestImport(t *testing.T) {
	h := newTestServer(t, Options{})
	resp := importOrders(t, h)

	assert.Equal(t, "billing", resp.Project)
	assert.Equal(t, int64(1), resp.Version)
	assert.Equal(t, 2, resp.Rows)
	assert.Equal(t, 2, resp.Imported)
	assert.Equal(t, 3, resp.Stats.PortsAdded)
	assert.Equal(t, "imported 2 of 2 rows into billing (0 reused, 3 ports added, 2 lanes)", resp.Summary)
	assert.NotEmpty(t, resp.ActivityID)

	again := importOrders(t, h)
	assert.Equal(t, int64(2), again.Version)
	assert.Equal(t, 2, again.Stats.Reused)
	assert.Equal(t, 0, again.Stats.PortsAdded)
	assert.Equal(t, resp.ActivityID, again.ActivityID)
}

func TestImportMultipart(t *testing.T) {
	h := newTestServer(t, Options{})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "Intake.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(initProcessCSV))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	rr := do(t, h, http.MethodPost, "/v1/projects/billing/imports?container=Billing/Q1", body.Bytes(), mw.FormDataContentType())
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = do(t, h, http.MethodGet, "/v1/projects/billing/activities", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var list struct {
		Activities []pipeline.ActivityInfo `json:"activities"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Len(t, list.Activities, 1)
	assert.Equal(t, "Intake", list.Activities[0].Name)
	assert.Equal(t, "billing/Billing/Q1/Intake", list.Activities[0].Path)
	assert.Equal(t, 4, list.Activities[0].Nodes)
	assert.Equal(t, 2, list.Activities[0].Lanes)
}

func TestGetActivity(t *testing.T) {
	h := newTestServer(t, Options{})
	resp := importOrders(t, h)

	for _, ref := range []string{"Orders", resp.ActivityID} {
		rr := do(t, h, http.MethodGet, "/v1/projects/billing/activities/"+ref, nil, "")
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

		doc, err := graph.UnmarshalDocument(rr.Body.Bytes())
		require.NoError(t, err)
		assert.Equal(t, "Orders", doc.Name)
		assert.Len(t, doc.Nodes, 4)
		assert.Len(t, doc.Edges, 3)
	}
}

func TestRenderActivity(t *testing.T) {
	h := newTestServer(t, Options{})
	importOrders(t, h)

	tests := []struct {
		query       string
		contentType string
		contains    string
	}{
		{"", "image/svg+xml", "<svg"},
		{"?format=svg&title=Orders", "image/svg+xml", "<svg"},
		{"?format=dot", "text/vnd.graphviz", `digraph "Orders"`},
		{"?format=json", "application/json", `"activity_id"`},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rr := do(t, h, http.MethodGet, "/v1/projects/billing/activities/Orders/render"+tt.query, nil, "")
			require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
			assert.Equal(t, tt.contentType, rr.Header().Get("Content-Type"))
			assert.Contains(t, rr.Body.String(), tt.contains)
			assert.Equal(t, "miss", rr.Header().Get("X-Cache"))
		})
	}
}

func TestErrors(t *testing.T) {
	h := newTestServer(t, Options{MaxUploadBytes: 200})
	importOrders(t, h)

	tests := []struct {
		name   string
		method string
		target string
		body   string
		status int
		code   errors.Code
	}{
		{"missing project", http.MethodGet, "/v1/projects/nope/activities/Orders", "", http.StatusNotFound, errors.ErrCodeNotFound},
		{"missing activity", http.MethodGet, "/v1/projects/billing/activities/Nope", "", http.StatusNotFound, errors.ErrCodeNotFound},
		{"unknown render format", http.MethodGet, "/v1/projects/billing/activities/Orders/render?format=gif", "", http.StatusBadRequest, errors.ErrCodeInvalidFmt},
		{"bad scale", http.MethodGet, "/v1/projects/billing/activities/Orders/render?format=png&scale=-1", "", http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"no source format", http.MethodPost, "/v1/projects/billing/imports", "Name,Documentation,Outputs\n", http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"unknown source format", http.MethodPost, "/v1/projects/billing/imports?format=ods", "x", http.StatusBadRequest, errors.ErrCodeInvalidFmt},
		{"short header", http.MethodPost, "/v1/projects/billing/imports?format=csv", "Name,Foo\nA,B\n", http.StatusUnprocessableEntity, errors.ErrCodeSchema},
		{"malformed record", http.MethodPost, "/v1/projects/billing/imports?format=csv", "Name,Documentation,Outputs\n\"bad,,\n", http.StatusUnprocessableEntity, errors.ErrCodeParse},
		{"body too large", http.MethodPost, "/v1/projects/billing/imports?format=csv", initProcessCSV + strings.Repeat("X,,\n", 60), http.StatusRequestEntityTooLarge, errors.ErrCodeIO},
		{"delete missing", http.MethodDelete, "/v1/projects/nope", "", http.StatusNotFound, errors.ErrCodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, h, tt.method, tt.target, []byte(tt.body), "text/csv")
			assert.Equal(t, tt.status, rr.Code, rr.Body.String())
			resp := decodeError(t, rr)
			assert.Equal(t, tt.code, resp.Code)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestProjects(t *testing.T) {
	h := newTestServer(t, Options{})

	rr := do(t, h, http.MethodGet, "/v1/projects", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"projects":[]}`, rr.Body.String())

	importOrders(t, h)
	rr = do(t, h, http.MethodGet, "/v1/projects", nil, "")
	assert.JSONEq(t, `{"projects":["billing"]}`, rr.Body.String())

	rr = do(t, h, http.MethodDelete, "/v1/projects/billing", nil, "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = do(t, h, http.MethodGet, "/v1/projects/billing/activities", nil, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestMetrics(t *testing.T) {
	t.Cleanup(observability.Reset)
	reg := prometheus.NewRegistry()
	observability.NewPrometheus(reg).Register()

	h := newTestServer(t, Options{Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})})
	importOrders(t, h)
	do(t, h, http.MethodGet, "/v1/projects/billing/activities/Orders/render?format=dot", nil, "")

	rr := do(t, h, http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	for _, want := range []string{
		`lanegrid_http_request_duration_seconds_count{method="POST",route="/v1/projects/{project}/imports",status="201"} 1`,
		`lanegrid_rows_parsed_total 2`,
		`lanegrid_store_operation_duration_seconds_count{backend="memory"`,
	} {
		assert.Contains(t, body, want)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errors.New(errors.ErrCodeConflict, "x"), http.StatusConflict},
		{errors.New(errors.ErrCodeCanceled, "x"), http.StatusRequestTimeout},
		{errors.New(errors.ErrCodeUnsupported, "x"), http.StatusNotImplemented},
		{errors.New(errors.ErrCodeStore, "x"), http.StatusInternalServerError},
		{errors.Wrap(errors.ErrCodeIO, &http.MaxBytesError{Limit: 1}, "read"), http.StatusRequestEntityTooLarge},
		{http.ErrBodyNotAllowed, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
