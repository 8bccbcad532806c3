package store

import (
	"context"
	"errors"
	"time"

	"antsys/internal/model"
)

// Store is the persistence interface used by the API server. It holds
// problem instances, per-tenant solver configuration, and the webhook
// pipeline state. Iteration results are deliberately not persisted.
type Store interface {
	// Problems
	CreateProblem(ctx context.Context, tenantID string, in model.ProblemIn) (model.Problem, error)
	GetProblem(ctx context.Context, tenantID, id string) (model.Problem, error)
	ListProblems(ctx context.Context, tenantID, cursor string, limit int) ([]model.Problem, string, error)
	DeleteProblem(ctx context.Context, tenantID, id string) error

	// Solver config per tenant
	GetSolverConfig(ctx context.Context, tenantID string) (map[string]any, error)
	SaveSolverConfig(ctx context.Context, tenantID string, cfg map[string]any) error

	// Subscriptions
	CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error)
	GetSubscriptionsForEvent(ctx context.Context, tenantID, eventType string) ([]model.Subscription, error)
	ListSubscriptions(ctx context.Context, tenantID, cursor string, limit int) ([]model.Subscription, string, error)
	DeleteSubscription(ctx context.Context, tenantID, id string) error

	// Webhook deliveries
	EnqueueWebhook(ctx context.Context, tenantID, subscriptionID, eventType, url, secret string, payload []byte) (string, error)
	FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error)
	MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error
	FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error
}

var ErrNotFound = errors.New("not found")
