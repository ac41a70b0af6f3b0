package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/orichalcum/pkg/observability"
	"github.com/aretw0/orichalcum/pkg/schema"
	"github.com/aretw0/orichalcum/pkg/telemetry"
)

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestGetHealth(t *testing.T) {
	rr := do(t, NewHandler(), "GET", "/health", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
}

func TestGetInfo(t *testing.T) {
	rr := do(t, NewHandler(), "GET", "/info", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "orichalcum-http", resp["app"])
	assert.NotEmpty(t, resp["version"])
	assert.Equal(t, APIVersion, resp["api_version"])
}

func TestPostSignature(t *testing.T) {
	h := NewHandler()

	rr := do(t, h, "POST", "/v1/signatures", `{"signature": "question: text -> answer, score?: number"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	var desc schema.Description
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &desc))
	assert.Len(t, desc.Inputs, 1)
	assert.Len(t, desc.Outputs, 2)
	assert.True(t, desc.Outputs[1].Optional)
	assert.Equal(t, schema.MustParse("question -> answer, score").StructuralHash(), desc.Hash)

	rr = do(t, h, "POST", "/v1/signatures", `{"signature": "no arrow here"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	var e map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &e))
	assert.Contains(t, e["error"], "->")

	rr = do(t, h, "POST", "/v1/signatures", `not json`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestPostValidate(t *testing.T) {
	h := NewHandler()

	valid := `{"name": "g", "start": "a", "initial": ["q"], "nodes": [
		{"id": "a", "signature": "q -> r", "instruction": "go", "actions": ["ok", "other"], "next": {"ok": "b"}},
		{"id": "b", "signature": "r ->", "instruction": "end"}
	]}`
	rr := do(t, h, "POST", "/v1/validate", valid)
	require.Equal(t, http.StatusOK, rr.Code)
	var resp ValidateResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	require.Len(t, resp.Issues, 1)
	assert.Equal(t, schema.UnroutedAction, resp.Issues[0].Code)

	rr = do(t, h, "POST", "/v1/validate?strict=true", valid)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.False(t, resp.OK)

	missing := "start: a\nnodes:\n  - {id: a, signature: \"needed -> out\", instruction: go}\n"
	rr = do(t, h, "POST", "/v1/validate", missing)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.False(t, resp.OK)

	duplicate := `{"start": "a", "nodes": [
		{"id": "a", "task_id": "t", "signature": "->", "instruction": "x"},
		{"id": "b", "task_id": "t", "signature": "->", "instruction": "x"}
	]}`
	rr = do(t, h, "POST", "/v1/validate", duplicate)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "duplicate task id")

	rr = do(t, h, "POST", "/v1/validate", `{"start": [`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGetTraces(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, do(t, NewHandler(), "GET", "/v1/traces", "").Code)

	sink := telemetry.NewMemorySink()
	ctx := context.Background()
	require.NoError(t, sink.Record(ctx, telemetry.Event{TaskID: "a", RunID: "r1"}))
	require.NoError(t, sink.Record(ctx, telemetry.Event{TaskID: "b", RunID: "r1"}))
	h := NewHandler(WithTraces(sink))

	var resp struct {
		Events []telemetry.Event `json:"events"`
	}
	rr := do(t, h, "GET", "/v1/traces", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Len(t, resp.Events, 2)

	rr = do(t, h, "GET", "/v1/traces?task=b", "")
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Events, 1)
	assert.Equal(t, "b", resp.Events[0].TaskID)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := observability.NewMetrics(reg)
	require.NoError(t, err)
	require.NoError(t, m.Record(context.Background(), telemetry.Event{TaskID: "scraped", Model: "native"}))

	rr := do(t, NewHandler(WithGatherer(reg)), "GET", "/metrics", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `orichalcum_task_executions_total{model="native",task="scraped"} 1`)
}

func TestCORS(t *testing.T) {
	rr := do(t, NewHandler(), "OPTIONS", "/v1/signatures", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}
