package model

// Core domain types for the AntSys API surface.

// ProblemIn is the payload for registering a cost-matrix problem instance.
type ProblemIn struct {
	Name   string      `json:"name,omitempty"`
	Labels []string    `json:"labels,omitempty"`
	Matrix [][]float64 `json:"matrix"`
}

// Problem is a stored problem instance.
type Problem struct {
	ID        string      `json:"id"`
	TenantID  string      `json:"tenantId"`
	Name      string      `json:"name,omitempty"`
	Labels    []string    `json:"labels,omitempty"`
	Matrix    [][]float64 `json:"matrix"`
	CreatedAt string      `json:"createdAt,omitempty"`
}

// SolverParams are the Ant System parameters of one colony.
type SolverParams struct {
	Alpha            float64 `json:"alpha"`
	Beta             float64 `json:"beta"`
	Rho              float64 `json:"rho"`
	Q                float64 `json:"q"`
	Ants             int     `json:"ants"`
	Start            int     `json:"start"`
	InitialPheromone float64 `json:"initialPheromone"`
}

// ColonyRequest creates a live colony over a stored problem. Zero-valued
// parameters are filled from the tenant's solver defaults.
type ColonyRequest struct {
	ProblemID        string  `json:"problemId"`
	Alpha            float64 `json:"alpha,omitempty"`
	Beta             float64 `json:"beta,omitempty"`
	Rho              float64 `json:"rho,omitempty"`
	Q                float64 `json:"q,omitempty"`
	Ants             int     `json:"ants,omitempty"`
	Start            int     `json:"start,omitempty"`
	InitialPheromone float64 `json:"initialPheromone,omitempty"`
	Seed             int64   `json:"seed,omitempty"`
}

// ColonyOut describes a live colony and its current pheromone state.
type ColonyOut struct {
	ID         string       `json:"id"`
	ProblemID  string       `json:"problemId"`
	Params     SolverParams `json:"params"`
	Iterations int          `json:"iterations"`
	Pheromones [][]float64  `json:"pheromones,omitempty"`
}

// IterateRequest runs one iteration. When Trace is set the textual trace of
// the run is returned inline alongside the streamed events.
type IterateRequest struct {
	Trace bool `json:"trace,omitempty"`
}

// AntResult is one ant's constructed path and its cost.
type AntResult struct {
	Ant       int     `json:"ant"`
	Path      []int   `json:"path"`
	PathLabel string  `json:"pathLabel"`
	Cost      float64 `json:"cost"`
}

// IterateResponse reports one completed iteration in ant-index order.
type IterateResponse struct {
	ColonyID  string      `json:"colonyId"`
	Iteration int         `json:"iteration"`
	Results   []AntResult `json:"results"`
	Trace     string      `json:"trace,omitempty"`
}

// SubscriptionRequest registers a webhook for solver events.
type SubscriptionRequest struct {
	TenantID string   `json:"tenantId"`
	URL      string   `json:"url"`
	Events   []string `json:"events"`
	Secret   string   `json:"secret"`
}

// Subscription is a stored webhook subscription.
type Subscription struct {
	ID       string   `json:"id"`
	TenantID string   `json:"tenantId"`
	URL      string   `json:"url"`
	Events   []string `json:"events"`
	Secret   string   `json:"secret,omitempty"`
}
