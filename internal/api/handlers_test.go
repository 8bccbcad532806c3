package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"antsys/internal/model"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := NewServer()
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return s
}

func createProblem(t *testing.T, s *Server, matrix string) string {
	t.Helper()
	body := []byte(`{"name":"triangle","matrix":` + matrix + `}`)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/problems", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	s.ProblemsHandler(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create problem: got %d: %s", rr.Code, rr.Body.String())
	}
	var prob model.Problem
	if err := json.Unmarshal(rr.Body.Bytes(), &prob); err != nil {
		t.Fatalf("decode problem: %v", err)
	}
	return prob.ID
}

func createColony(t *testing.T, s *Server, problemID string, extra string) model.ColonyOut {
	t.Helper()
	body := `{"problemId":"` + problemID + `"` + extra + `}`
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/colonies", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	s.ColoniesHandler(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create colony: got %d: %s", rr.Code, rr.Body.String())
	}
	var out model.ColonyOut
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode colony: %v", err)
	}
	return out
}

func TestHealthReady(t *testing.T) {
	s := newTestServer(t)
	rr := httptest.NewRecorder()
	s.HealthHandler(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != 200 {
		t.Fatalf("health: got %d", rr.Code)
	}
	rr = httptest.NewRecorder()
	s.ReadyHandler(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != 200 {
		t.Fatalf("ready: got %d", rr.Code)
	}
}

func TestProblemsCreateGetList(t *testing.T) {
	s := newTestServer(t)
	id := createProblem(t, s, `[[0,1,2],[1,0,1],[2,1,0]]`)

	rr := httptest.NewRecorder()
	s.ProblemByIDHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/problems/"+id, nil))
	if rr.Code != 200 {
		t.Fatalf("get problem: %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	s.ProblemsHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/problems?limit=5", nil))
	if rr.Code != 200 {
		t.Fatalf("list problems: %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	s.ProblemByIDHandler(rr, httptest.NewRequest(http.MethodDelete, "/v1/problems/"+id, nil))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete problem: %d", rr.Code)
	}
	rr = httptest.NewRecorder()
	s.ProblemByIDHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/problems/"+id, nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("get deleted problem: %d", rr.Code)
	}
}

func TestProblemValidation(t *testing.T) {
	s := newTestServer(t)
	for _, matrix := range []string{
		`[[0,1],[1,0],[1,1]]`, // not square
		`[[0,0],[1,0]]`,       // zero off-diagonal
		`[[1,1],[1,0]]`,       // nonzero diagonal
		`[]`,                  // empty
	} {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/problems", strings.NewReader(`{"matrix":`+matrix+`}`))
		s.ProblemsHandler(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("matrix %s: got %d, want 400", matrix, rr.Code)
		}
	}
}

func TestColonyCreateUsesDefaults(t *testing.T) {
	s := newTestServer(t)
	pid := createProblem(t, s, `[[0,1,2],[1,0,1],[2,1,0]]`)
	out := createColony(t, s, pid, "")
	if out.Params.Alpha != s.Defaults.Alpha || out.Params.Ants != s.Defaults.Ants {
		t.Fatalf("defaults not applied: %+v", out.Params)
	}
	// Initial pheromone everywhere off-diagonal, zero on it.
	for i, row := range out.Pheromones {
		for j, v := range row {
			if i == j && v != 0 {
				t.Fatalf("diagonal pheromone not zero at %d", i)
			}
			if i != j && v != s.Defaults.InitialPheromone {
				t.Fatalf("pheromone[%d][%d] = %v", i, j, v)
			}
		}
	}
}

func TestColonyCreateRejectsBadParams(t *testing.T) {
	s := newTestServer(t)
	pid := createProblem(t, s, `[[0,1],[1,0]]`)
	for _, extra := range []string{
		`,"rho":1.5`,
		`,"q":-1`,
		`,"ants":-2`,
		`,"start":5`,
	} {
		rr := httptest.NewRecorder()
		body := `{"problemId":"` + pid + `"` + extra + `}`
		req := httptest.NewRequest(http.MethodPost, "/v1/colonies", strings.NewReader(body))
		s.ColoniesHandler(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("extra %s: got %d, want 400", extra, rr.Code)
		}
	}
}

func TestIterateReturnsResultsAndAdvancesState(t *testing.T) {
	s := newTestServer(t)
	pid := createProblem(t, s, `[[0,1,2],[1,0,1],[2,1,0]]`)
	out := createColony(t, s, pid, `,"ants":2,"seed":42`)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/colonies/"+out.ID+"/iterate", strings.NewReader(`{}`))
	s.ColonyByIDHandler(rr, req)
	if rr.Code != 200 {
		t.Fatalf("iterate: %d: %s", rr.Code, rr.Body.String())
	}
	var resp model.IterateResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode iterate: %v", err)
	}
	if resp.Iteration != 1 {
		t.Fatalf("iteration = %d, want 1", resp.Iteration)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("results = %d, want 2", len(resp.Results))
	}
	for i, res := range resp.Results {
		if res.Ant != i {
			t.Fatalf("results out of ant order: %+v", resp.Results)
		}
		if len(res.Path) != 3 || res.Path[0] != 0 {
			t.Fatalf("ant %d path = %v", i, res.Path)
		}
		if res.PathLabel == "" || res.Cost <= 0 {
			t.Fatalf("ant %d missing label or cost: %+v", i, res)
		}
	}

	// Pheromone state must have moved off the initial value somewhere.
	rr = httptest.NewRecorder()
	s.ColonyByIDHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/colonies/"+out.ID, nil))
	var snap model.ColonyOut
	if err := json.Unmarshal(rr.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.Iterations != 1 {
		t.Fatalf("snapshot iterations = %d", snap.Iterations)
	}
	changed := false
	for i, row := range snap.Pheromones {
		for j, v := range row {
			if i != j && v != s.Defaults.InitialPheromone {
				changed = true
			}
		}
	}
	if !changed {
		t.Fatal("pheromones unchanged after iterate")
	}
}

func TestIterateWithTraceText(t *testing.T) {
	s := newTestServer(t)
	pid := createProblem(t, s, `[[0,1,2],[1,0,1],[2,1,0]]`)
	out := createColony(t, s, pid, `,"ants":1,"seed":7`)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/colonies/"+out.ID+"/iterate", strings.NewReader(`{"trace":true}`))
	s.ColonyByIDHandler(rr, req)
	if rr.Code != 200 {
		t.Fatalf("iterate: %d", rr.Code)
	}
	var resp model.IterateResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, want := range []string{"Ant 1", "Start city: A", "Random number:", "pheromone ="} {
		if !strings.Contains(resp.Trace, want) {
			t.Fatalf("trace missing %q:\n%s", want, resp.Trace)
		}
	}
}

func TestIterateUnknownColony(t *testing.T) {
	s := newTestServer(t)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/colonies/nope/iterate", strings.NewReader(`{}`))
	s.ColonyByIDHandler(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("iterate unknown: %d", rr.Code)
	}
}

func TestColonyTenantIsolation(t *testing.T) {
	s := newTestServer(t)
	pid := createProblem(t, s, `[[0,1],[1,0]]`)
	out := createColony(t, s, pid, "")

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/colonies/"+out.ID, nil)
	req.Header.Set("X-Tenant-Id", "t_other")
	s.ColonyByIDHandler(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("cross-tenant colony read: %d, want 404", rr.Code)
	}
}

func TestIterateEnqueuesWebhook(t *testing.T) {
	s := newTestServer(t)
	// Subscribe to completion events first.
	subBody := []byte(`{"url":"https://example.invalid/webhook","events":["colony.iteration.completed"],"secret":"shh"}`)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/subscriptions", bytes.NewReader(subBody))
	req.Header.Set("X-Role", "admin")
	s.SubscriptionsHandler(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create sub: %d", rr.Code)
	}

	pid := createProblem(t, s, `[[0,1,2],[1,0,1],[2,1,0]]`)
	out := createColony(t, s, pid, "")
	rr = httptest.NewRecorder()
	s.ColonyByIDHandler(rr, httptest.NewRequest(http.MethodPost, "/v1/colonies/"+out.ID+"/iterate", strings.NewReader(`{}`)))
	if rr.Code != 200 {
		t.Fatalf("iterate: %d", rr.Code)
	}

	items, err := s.Store.FetchDueWebhookDeliveries(context.Background(), 10)
	if err != nil {
		t.Fatalf("fetch deliveries: %v", err)
	}
	if len(items) == 0 {
		t.Fatal("expected a pending webhook delivery")
	}
	if items[0].EventType != "colony.iteration.completed" {
		t.Fatalf("delivery event type: %s", items[0].EventType)
	}
}

func TestAdminSolverConfigRoundTrip(t *testing.T) {
	s := newTestServer(t)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/v1/admin/solver/config", strings.NewReader(`{"config":{"ants":3,"alpha":2}}`))
	req.Header.Set("X-Role", "admin")
	s.AdminSolverConfigHandler(rr, req)
	if rr.Code != 200 {
		t.Fatalf("put config: %d", rr.Code)
	}

	// Defaults endpoint reflects the overlay.
	rr = httptest.NewRecorder()
	s.SolverConfigHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/solver/config", nil))
	var res struct {
		Defaults map[string]any `json:"defaults"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode defaults: %v", err)
	}
	if res.Defaults["ants"].(float64) != 3 || res.Defaults["alpha"].(float64) != 2 {
		t.Fatalf("overlay not applied: %+v", res.Defaults)
	}

	// New colonies pick the overlay up.
	pid := createProblem(t, s, `[[0,1],[1,0]]`)
	out := createColony(t, s, pid, "")
	if out.Params.Ants != 3 || out.Params.Alpha != 2 {
		t.Fatalf("colony ignored overlay: %+v", out.Params)
	}
}

func TestAdminSolverConfigForbidden(t *testing.T) {
	s := newTestServer(t)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/admin/solver/config", nil)
	req.Header.Set("X-Role", "user")
	s.AdminSolverConfigHandler(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("non-admin config: %d", rr.Code)
	}
}

// sseRecorder is a minimal ResponseWriter that implements http.Flusher
// and captures writes for SSE tests.
type sseRecorder struct {
	hdr  http.Header
	buf  bytes.Buffer
	code int
}

func (r *sseRecorder) Header() http.Header {
	if r.hdr == nil {
		r.hdr = http.Header{}
	}
	return r.hdr
}
func (r *sseRecorder) WriteHeader(c int)           { r.code = c }
func (r *sseRecorder) Write(p []byte) (int, error) { return r.buf.Write(p) }
func (r *sseRecorder) Flush()                      {}

func TestColonyEventsSSE(t *testing.T) {
	s := newTestServer(t)
	pid := createProblem(t, s, `[[0,1,2],[1,0,1],[2,1,0]]`)
	out := createColony(t, s, pid, `,"ants":1,"seed":1`)

	sseReq := httptest.NewRequest(http.MethodGet, "/v1/colonies/"+out.ID+"/events/stream", nil)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	sseReq = sseReq.WithContext(ctx)

	rec := &sseRecorder{}
	done := make(chan struct{})
	go func() {
		s.ColonyByIDHandler(rec, sseReq)
		close(done)
	}()

	// Give the handler time to subscribe, then run an iteration so trace
	// events flow through the broker.
	time.Sleep(50 * time.Millisecond)
	rr := httptest.NewRecorder()
	s.ColonyByIDHandler(rr, httptest.NewRequest(http.MethodPost, "/v1/colonies/"+out.ID+"/iterate", strings.NewReader(`{}`)))
	if rr.Code != 200 {
		t.Fatalf("iterate: %d", rr.Code)
	}

	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		if bytes.Contains(rec.buf.Bytes(), []byte("event: iteration.completed")) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if !bytes.Contains(rec.buf.Bytes(), []byte("event: trace.AntStarted")) {
		t.Fatalf("SSE missing trace events. Body: %s", rec.buf.String())
	}
	if !bytes.Contains(rec.buf.Bytes(), []byte("event: iteration.completed")) {
		t.Fatalf("SSE missing completion event. Body: %s", rec.buf.String())
	}
	cancel()
	select {
	case <-done:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("handler did not exit after cancel")
	}
}
