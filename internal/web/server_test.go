package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskd/internal/db"
	"taskd/internal/metrics"
	"taskd/internal/tasks"
)

func newTestServer(t *testing.T) (*Server, db.Store) {
	t.Helper()
	store, err := db.NewSQLiteStore(filepath.Join(t.TempDir(), "tasks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	s := NewServer(store, tasks.NewService(store), metrics.New(), ":0")
	return s, store
}

func doJSON(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	w := doJSON(t, s.Handler(), "GET", "/health", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestDBHealth(t *testing.T) {
	s, store := newTestServer(t)
	w := doJSON(t, s.Handler(), "GET", "/db-health", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"db":"ok"}`, w.Body.String())

	// A closed store must surface as 503 with the fixed detail string.
	store.Close()
	w = doJSON(t, s.Handler(), "GET", "/db-health", "")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"detail":"Database connection failed"}`, w.Body.String())
}

func TestCreateTask(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	w := doJSON(t, h, "POST", "/tasks", `{"id":"task-A","type":"data_processing","duration_ms":50,"dependencies":[]}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "task-A", created.ID)
	assert.Equal(t, "QUEUED", created.Status)
}

func TestCreateTask_Malformed(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	cases := []struct {
		name string
		body string
	}{
		{"invalid json", `{"id":`},
		{"missing id", `{"type":"t","duration_ms":10}`},
		{"missing type", `{"id":"A","duration_ms":10}`},
		{"zero duration", `{"id":"A","type":"t","duration_ms":0}`},
		{"negative duration", `{"id":"A","type":"t","duration_ms":-1}`},
		{"unknown field", `{"id":"A","type":"t","duration_ms":10,"priority":9}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(t, h, "POST", "/tasks", tc.body)
			assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		})
	}
}

func TestCreateTask_Duplicate(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	w := doJSON(t, h, "POST", "/tasks", `{"id":"A","type":"t","duration_ms":10}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, h, "POST", "/tasks", `{"id":"A","type":"t","duration_ms":10}`)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"detail":"Task with this ID already exists"}`, w.Body.String())
}

func TestCreateTask_MissingDependency(t *testing.T) {
	s, store := newTestServer(t)
	h := s.Handler()

	w := doJSON(t, h, "POST", "/tasks", `{"id":"A","type":"t","duration_ms":10,"dependencies":["ghost"]}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "ghost", "detail names the missing dependency")

	// Rejected submission persists nothing.
	_, err := store.GetTask(t.Context(), "A")
	assert.ErrorIs(t, err, db.ErrTaskNotFound)
}

func TestGetTask(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	doJSON(t, h, "POST", "/tasks", `{"id":"A","type":"etl","duration_ms":25}`)

	w := doJSON(t, h, "GET", "/tasks/A", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"A","type":"etl","duration_ms":25,"status":"QUEUED"}`, w.Body.String())

	w = doJSON(t, h, "GET", "/tasks/nope", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"detail":"Task not found"}`, w.Body.String())
}

func TestListTasks(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	w := doJSON(t, h, "GET", "/tasks", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"tasks":[]}`, w.Body.String())

	doJSON(t, h, "POST", "/tasks", `{"id":"A","type":"t","duration_ms":10}`)
	doJSON(t, h, "POST", "/tasks", `{"id":"B","type":"t","duration_ms":10,"dependencies":["A"]}`)

	w = doJSON(t, h, "GET", "/tasks", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Tasks []struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"tasks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Tasks, 2)
	assert.Equal(t, "A", resp.Tasks[0].ID)
	assert.Equal(t, "B", resp.Tasks[1].ID)
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	// Generate some traffic first so counters exist.
	doJSON(t, h, "GET", "/health", "")

	w := doJSON(t, h, "GET", "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}
