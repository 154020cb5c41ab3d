package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apiflow/apiflow/engine/executor"
	"github.com/apiflow/apiflow/engine/infra/store"
	"github.com/apiflow/apiflow/engine/tool"
	"github.com/apiflow/apiflow/engine/workflow"
	"github.com/apiflow/apiflow/pkg/config"
)

// newTestServer wires a server against an in-memory store and a stub
// upstream API.
func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"root"}`))
	}))
	t.Cleanup(upstream.Close)

	registry := tool.NewRegistry()
	require.NoError(t, registry.Register(&tool.Config{
		ID:      "fetch",
		Name:    "Fetch",
		BaseURL: upstream.URL,
		Method:  "GET",
	}))
	st, err := store.New(afero.NewMemMapFs(), "/data")
	require.NoError(t, err)

	s := New(config.Default(), st, registry, executor.New(nil))
	return s, st
}

// closeNotifyRecorder adds the http.CloseNotifier method gin's Stream
// helper requires of the underlying writer, which ResponseRecorder lacks.
type closeNotifyRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func (r *closeNotifyRecorder) CloseNotify() <-chan bool { return r.closed }

func doJSON(t *testing.T, s *Server, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	s.Router().ServeHTTP(&closeNotifyRecorder{ResponseRecorder: recorder, closed: make(chan bool, 1)}, req)
	return recorder
}

func newTestContext(recorder *httptest.ResponseRecorder) (*gin.Context, *gin.Engine) {
	gin.SetMode(gin.TestMode)
	return gin.CreateTestContext(recorder)
}

func validWorkflow() map[string]any {
	return map[string]any{
		"id": "wf-1",
		"steps": []map[string]any{
			{"id": "a", "tool_id": "fetch"},
			{"id": "b", "tool_id": "fetch", "input_mapping": map[string]string{"ref": "a.id"}},
		},
	}
}

func TestServerEndpoints(t *testing.T) {
	t.Run("Should report health", func(t *testing.T) {
		s, _ := newTestServer(t)
		recorder := doJSON(t, s, http.MethodGet, "/api/v0/health", nil)
		assert.Equal(t, http.StatusOK, recorder.Code)
	})

	t.Run("Should list registered tools", func(t *testing.T) {
		s, _ := newTestServer(t)
		recorder := doJSON(t, s, http.MethodGet, "/api/v0/tools", nil)
		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Contains(t, recorder.Body.String(), `"fetch"`)
	})

	t.Run("Should create a workflow and persist inferred edges", func(t *testing.T) {
		s, _ := newTestServer(t)
		recorder := doJSON(t, s, http.MethodPost, "/api/v0/workflows", validWorkflow())
		require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())

		var created workflow.Config
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &created))
		assert.Equal(t, []workflow.Edge{{FromStepID: "a", ToStepID: "b"}}, created.Edges)

		recorder = doJSON(t, s, http.MethodGet, "/api/v0/workflows/wf-1", nil)
		assert.Equal(t, http.StatusOK, recorder.Code)
	})

	t.Run("Should reject an invalid workflow with its code", func(t *testing.T) {
		s, _ := newTestServer(t)
		payload := map[string]any{
			"id": "bad",
			"steps": []map[string]any{
				{"id": "a", "tool_id": "missing"},
			},
		}
		recorder := doJSON(t, s, http.MethodPost, "/api/v0/workflows", payload)
		require.Equal(t, http.StatusUnprocessableEntity, recorder.Code)

		var p problem
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &p))
		assert.Equal(t, workflow.CodeUnknownTool, p.Code)
	})

	t.Run("Should return 404 for an unknown workflow", func(t *testing.T) {
		s, _ := newTestServer(t)
		recorder := doJSON(t, s, http.MethodGet, "/api/v0/workflows/ghost", nil)
		assert.Equal(t, http.StatusNotFound, recorder.Code)
	})

	t.Run("Should execute a run synchronously and persist it", func(t *testing.T) {
		s, _ := newTestServer(t)
		require.Equal(t, http.StatusCreated, doJSON(t, s, http.MethodPost, "/api/v0/workflows", validWorkflow()).Code)

		recorder := doJSON(t, s, http.MethodPost, "/api/v0/workflows/wf-1/runs", map[string]any{"input": map[string]any{}})
		require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

		var result map[string]any
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &result))
		assert.Equal(t, "SUCCESS", result["status"])
		runID := result["id"].(string)

		recorder = doJSON(t, s, http.MethodGet, "/api/v0/runs/"+runID, nil)
		assert.Equal(t, http.StatusOK, recorder.Code)

		recorder = doJSON(t, s, http.MethodGet, "/api/v0/runs?workflow_id=wf-1", nil)
		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Contains(t, recorder.Body.String(), runID)
	})

	t.Run("Should stream step events followed by the run", func(t *testing.T) {
		s, _ := newTestServer(t)
		require.Equal(t, http.StatusCreated, doJSON(t, s, http.MethodPost, "/api/v0/workflows", validWorkflow()).Code)

		recorder := doJSON(t, s, http.MethodPost, "/api/v0/workflows/wf-1/runs/stream", map[string]any{"input": map[string]any{}})
		require.Equal(t, http.StatusOK, recorder.Code)
		body := recorder.Body.String()
		assert.Contains(t, recorder.Header().Get("Content-Type"), "text/event-stream")
		assert.Contains(t, body, "event:step")
		assert.Contains(t, body, "event:run")
		// One step event per step, in topological order.
		first := bytes.Index(recorder.Body.Bytes(), []byte(`"step_id":"a"`))
		second := bytes.Index(recorder.Body.Bytes(), []byte(`"step_id":"b"`))
		assert.Greater(t, second, first)
		assert.Greater(t, first, -1)
	})

	t.Run("Should persist the run even when the stream client disconnects", func(t *testing.T) {
		s, st := newTestServer(t)
		steps := make([]map[string]any, 0, 40)
		for i := 0; i < 40; i++ {
			steps = append(steps, map[string]any{"id": fmt.Sprintf("step_%02d", i), "tool_id": "fetch"})
		}
		payload := map[string]any{"id": "wide", "steps": steps}
		require.Equal(t, http.StatusCreated, doJSON(t, s, http.MethodPost, "/api/v0/workflows", payload).Code)

		srv := httptest.NewServer(s.Router())
		t.Cleanup(srv.Close)

		ctx, cancel := context.WithCancel(context.Background())
		req, err := http.NewRequestWithContext(
			ctx,
			http.MethodPost,
			srv.URL+"/api/v0/workflows/wide/runs/stream",
			bytes.NewBufferString(`{"input":{}}`),
		)
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)

		// Read one chunk, then drop the connection mid-stream.
		chunk := make([]byte, 64)
		_, _ = resp.Body.Read(chunk)
		cancel()
		_ = resp.Body.Close()

		assert.Eventually(t, func() bool {
			runs, listErr := st.ListRuns("wide")
			return listErr == nil && len(runs) == 1
		}, 2*time.Second, 10*time.Millisecond)
	})

	t.Run("Should return 404 for an unknown run", func(t *testing.T) {
		s, _ := newTestServer(t)
		recorder := doJSON(t, s, http.MethodGet, "/api/v0/runs/ghost", nil)
		assert.Equal(t, http.StatusNotFound, recorder.Code)
	})
}

func TestRespondProblem(t *testing.T) {
	t.Run("Should include validation codes in the envelope", func(t *testing.T) {
		err := &workflow.ValidationError{Code: workflow.CodeCycle, Message: "cycle detected"}
		wrapped := fmt.Errorf("create failed: %w", err)
		var decoded problem

		recorder := httptest.NewRecorder()
		c, _ := newTestContext(recorder)
		respondProblem(c, http.StatusUnprocessableEntity, "workflow validation failed", wrapped)
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &decoded))
		assert.Equal(t, workflow.CodeCycle, decoded.Code)
		assert.Equal(t, http.StatusUnprocessableEntity, decoded.Status)
	})
}
