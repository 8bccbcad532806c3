package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"antsys/internal/aco"
	"antsys/internal/config"
	"antsys/internal/metrics"
	"antsys/internal/model"
	"antsys/internal/store"
)

// ProblemsHandler handles POST/GET /v1/problems
func (s *Server) ProblemsHandler(w http.ResponseWriter, r *http.Request) {
	p := s.getPrincipal(r)
	switch r.Method {
	case http.MethodPost:
		var in model.ProblemIn
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if err := validateProblemIn(&in); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid problem", err.Error(), r.URL.Path)
			return
		}
		prob, err := s.Store.CreateProblem(r.Context(), p.Tenant, in)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Create problem failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusCreated, prob)
	case http.MethodGet:
		cursor := r.URL.Query().Get("cursor")
		limit := 100
		if v := r.URL.Query().Get("limit"); v != "" {
			fmt.Sscanf(v, "%d", &limit)
		}
		items, next, err := s.Store.ListProblems(r.Context(), p.Tenant, cursor, limit)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List problems failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// ProblemByIDHandler handles GET/DELETE /v1/problems/{id}
func (s *Server) ProblemByIDHandler(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/problems/")
	if id == "" || strings.Contains(id, "/") {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	p := s.getPrincipal(r)
	switch r.Method {
	case http.MethodGet:
		prob, err := s.Store.GetProblem(r.Context(), p.Tenant, id)
		if err != nil {
			writeProblem(w, http.StatusNotFound, "Problem not found", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, prob)
	case http.MethodDelete:
		if err := s.Store.DeleteProblem(r.Context(), p.Tenant, id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeProblem(w, http.StatusNotFound, "Problem not found", err.Error(), r.URL.Path)
				return
			}
			writeProblem(w, http.StatusInternalServerError, "Delete problem failed", err.Error(), r.URL.Path)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// solverDefaults returns the effective defaults for a tenant: built-in or
// file defaults overlaid with the tenant's saved config.
func (s *Server) solverDefaults(ctx context.Context, tenant string) config.Solver {
	d := s.Defaults
	cfg, _ := s.Store.GetSolverConfig(ctx, tenant)
	if cfg == nil {
		return d
	}
	if v, ok := cfg["alpha"].(float64); ok {
		d.Alpha = v
	}
	if v, ok := cfg["beta"].(float64); ok {
		d.Beta = v
	}
	if v, ok := cfg["rho"].(float64); ok {
		d.Rho = v
	}
	if v, ok := cfg["q"].(float64); ok {
		d.Q = v
	}
	if v, ok := cfg["ants"].(float64); ok {
		d.Ants = int(v)
	}
	if v, ok := cfg["initialPheromone"].(float64); ok {
		d.InitialPheromone = v
	}
	return d
}

// applyDefaults fills zero-valued request fields from the tenant defaults.
func applyDefaults(req *model.ColonyRequest, d config.Solver) {
	if req.Alpha == 0 {
		req.Alpha = d.Alpha
	}
	if req.Beta == 0 {
		req.Beta = d.Beta
	}
	if req.Rho == 0 {
		req.Rho = d.Rho
	}
	if req.Q == 0 {
		req.Q = d.Q
	}
	if req.Ants == 0 {
		req.Ants = d.Ants
	}
	if req.InitialPheromone == 0 {
		req.InitialPheromone = d.InitialPheromone
	}
}

// ColoniesHandler handles POST/GET /v1/colonies
func (s *Server) ColoniesHandler(w http.ResponseWriter, r *http.Request) {
	p := s.getPrincipal(r)
	switch r.Method {
	case http.MethodPost:
		var req model.ColonyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if req.ProblemID == "" {
			writeProblem(w, http.StatusBadRequest, "Missing problemId", "", r.URL.Path)
			return
		}
		prob, err := s.Store.GetProblem(r.Context(), p.Tenant, req.ProblemID)
		if err != nil {
			writeProblem(w, http.StatusNotFound, "Problem not found", err.Error(), r.URL.Path)
			return
		}
		applyDefaults(&req, s.solverDefaults(r.Context(), p.Tenant))
		if err := validateColonyRequest(&req, len(prob.Matrix)); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid colony request", err.Error(), r.URL.Path)
			return
		}
		params := model.SolverParams{
			Alpha:            req.Alpha,
			Beta:             req.Beta,
			Rho:              req.Rho,
			Q:                req.Q,
			Ants:             req.Ants,
			Start:            req.Start,
			InitialPheromone: req.InitialPheromone,
		}
		h, err := s.Registry.Create(p.Tenant, prob, params, req.Seed)
		if err != nil {
			if errors.Is(err, aco.ErrInvalidDimension) {
				writeProblem(w, http.StatusBadRequest, "Invalid matrix", err.Error(), r.URL.Path)
				return
			}
			writeProblem(w, http.StatusInternalServerError, "Create colony failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusCreated, h.Snapshot())
	case http.MethodGet:
		items := []model.ColonyOut{}
		for _, h := range s.Registry.List(p.Tenant) {
			out := h.Snapshot()
			out.Pheromones = nil // omit matrices in listings
			items = append(items, out)
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// ColonyByIDHandler handles GET/DELETE /v1/colonies/{id},
// POST /v1/colonies/{id}/iterate, and GET /v1/colonies/{id}/events/stream.
func (s *Server) ColonyByIDHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/colonies/")
	if rest == r.URL.Path || rest == "" {
		writeProblem(w, http.StatusNotFound, "Not Found", "missing id", r.URL.Path)
		return
	}
	parts := strings.Split(rest, "/")
	id := parts[0]
	p := s.getPrincipal(r)

	if len(parts) > 2 && parts[1] == "events" && parts[2] == "stream" {
		s.colonyEventsSSE(w, r, p, id)
		return
	}
	if len(parts) > 1 && parts[1] == "iterate" {
		s.colonyIterate(w, r, p, id)
		return
	}

	h, ok := s.Registry.Get(p.Tenant, id)
	if !ok {
		writeProblem(w, http.StatusNotFound, "Colony not found", "", r.URL.Path)
		return
	}
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.Snapshot())
	case http.MethodDelete:
		s.Registry.Delete(p.Tenant, id)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) colonyIterate(w http.ResponseWriter, r *http.Request, p Principal, id string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !s.Limiter.Allow(p.Tenant) {
		writeProblem(w, http.StatusTooManyRequests, "Rate limited", "too many iterate calls", r.URL.Path)
		return
	}
	h, ok := s.Registry.Get(p.Tenant, id)
	if !ok {
		writeProblem(w, http.StatusNotFound, "Colony not found", "", r.URL.Path)
		return
	}
	var req model.IterateRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req) // body is optional
	}

	sinks := aco.MultiSink{brokerSink{broker: s.Broker, colonyID: id}}
	var traceBuf bytes.Buffer
	if req.Trace {
		sinks = append(sinks, aco.NewTextSink(&traceBuf))
	}

	start := time.Now()
	sols, iter, err := h.Iterate(sinks)
	if err != nil {
		if errors.Is(err, aco.ErrSinkWrite) {
			writeProblem(w, http.StatusInternalServerError, "Trace write failed", err.Error(), r.URL.Path)
			return
		}
		writeProblem(w, http.StatusInternalServerError, "Iteration failed", err.Error(), r.URL.Path)
		return
	}
	metrics.Iterations.WithLabelValues(p.Tenant).Inc()
	metrics.IterationDuration.Observe(time.Since(start).Seconds())

	results := make([]model.AntResult, len(sols))
	for i, sol := range sols {
		results[i] = model.AntResult{
			Ant:       i,
			Path:      sol.Path,
			PathLabel: aco.PathLabel(sol.Path),
			Cost:      sol.Cost,
		}
	}
	resp := model.IterateResponse{ColonyID: id, Iteration: iter, Results: results, Trace: traceBuf.String()}

	s.Broker.Publish(id, SSEEvent{Type: "iteration.completed", Data: map[string]any{
		"colonyId":  id,
		"iteration": iter,
		"results":   results,
	}})
	s.Pub.Emit(r.Context(), p.Tenant, "colony.iteration.completed", map[string]any{
		"colonyId":  id,
		"problemId": h.ProblemID,
		"iteration": iter,
		"results":   results,
		"ts":        time.Now().UTC().Format(time.RFC3339),
	})
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) colonyEventsSSE(w http.ResponseWriter, r *http.Request, p Principal, id string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, ok := s.Registry.Get(p.Tenant, id); !ok {
		writeProblem(w, http.StatusNotFound, "Colony not found", "", r.URL.Path)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeProblem(w, http.StatusInternalServerError, "Streaming unsupported", "", r.URL.Path)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	ch := s.Broker.Subscribe(id)
	defer s.Broker.Unsubscribe(id, ch)
	// initial heartbeat
	fmt.Fprintf(w, "event: heartbeat\n")
	fmt.Fprintf(w, "data: {\"colonyId\":\"%s\",\"ts\":\"%s\"}\n\n", id, time.Now().Format(time.RFC3339))
	flusher.Flush()
	notify := r.Context().Done()
	for {
		select {
		case <-notify:
			return
		case evt := <-ch:
			b, _ := json.Marshal(evt.Data)
			fmt.Fprintf(w, "event: %s\n", evt.Type)
			fmt.Fprintf(w, "data: %s\n\n", string(b))
			flusher.Flush()
		case <-time.After(15 * time.Second):
			fmt.Fprintf(w, "event: heartbeat\n")
			fmt.Fprintf(w, "data: {\"colonyId\":\"%s\",\"ts\":\"%s\"}\n\n", id, time.Now().Format(time.RFC3339))
			flusher.Flush()
		}
	}
}

// SolverConfigHandler returns the effective solver defaults for the tenant.
func (s *Server) SolverConfigHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/solver/config" || r.Method != http.MethodGet {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	p := s.getPrincipal(r)
	d := s.solverDefaults(r.Context(), p.Tenant)
	writeJSON(w, http.StatusOK, map[string]any{"defaults": map[string]any{
		"alpha":            d.Alpha,
		"beta":             d.Beta,
		"rho":              d.Rho,
		"q":                d.Q,
		"ants":             d.Ants,
		"initialPheromone": d.InitialPheromone,
	}})
}

// AdminSolverConfigHandler gets/sets the tenant solver config overlay.
func (s *Server) AdminSolverConfigHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/admin/solver/config" {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	p := s.getPrincipal(r)
	if !p.IsAdmin() {
		writeProblem(w, http.StatusForbidden, "Forbidden", "admin required", r.URL.Path)
		return
	}
	switch r.Method {
	case http.MethodGet:
		cfg, _ := s.Store.GetSolverConfig(r.Context(), p.Tenant)
		if cfg == nil {
			cfg = map[string]any{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"config": cfg})
	case http.MethodPut:
		var body struct {
			Config map[string]any `json:"config"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if body.Config == nil {
			writeProblem(w, http.StatusBadRequest, "Missing config", "", r.URL.Path)
			return
		}
		if err := s.Store.SaveSolverConfig(r.Context(), p.Tenant, body.Config); err != nil {
			writeProblem(w, http.StatusInternalServerError, "Save failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// SubscriptionsHandler handles POST/GET /v1/subscriptions
func (s *Server) SubscriptionsHandler(w http.ResponseWriter, r *http.Request) {
	p := s.getPrincipal(r)
	if !p.IsAdmin() {
		writeProblem(w, http.StatusForbidden, "Forbidden", "admin required", r.URL.Path)
		return
	}
	switch r.Method {
	case http.MethodPost:
		var req model.SubscriptionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if req.TenantID == "" {
			req.TenantID = p.Tenant
		}
		if req.URL == "" || len(req.Events) == 0 {
			writeProblem(w, http.StatusBadRequest, "Invalid subscription", "url and events required", r.URL.Path)
			return
		}
		sub, err := s.Store.CreateSubscription(r.Context(), req)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Create subscription failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusCreated, sub)
	case http.MethodGet:
		cursor := r.URL.Query().Get("cursor")
		limit := 100
		if v := r.URL.Query().Get("limit"); v != "" {
			fmt.Sscanf(v, "%d", &limit)
		}
		items, next, err := s.Store.ListSubscriptions(r.Context(), p.Tenant, cursor, limit)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List subscriptions failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// SubscriptionByIDHandler handles DELETE /v1/subscriptions/{id}
func (s *Server) SubscriptionByIDHandler(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.URL.Path, "/v1/subscriptions/") {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	p := s.getPrincipal(r)
	if !p.IsAdmin() {
		writeProblem(w, http.StatusForbidden, "Forbidden", "admin required", r.URL.Path)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/v1/subscriptions/")
	if err := s.Store.DeleteSubscription(r.Context(), p.Tenant, id); err != nil {
		writeProblem(w, http.StatusInternalServerError, "Delete subscription failed", err.Error(), r.URL.Path)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Health
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	// Check DB connectivity when using Postgres store
	type pinger interface{ Ping(ctx context.Context) error }
	if pg, ok := s.Store.(pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := pg.Ping(ctx); err != nil {
			writeProblem(w, http.StatusServiceUnavailable, "Not Ready", err.Error(), r.URL.Path)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
