package model

import (
	"time"

	"github.com/google/uuid"
)

// APIResponse is the standard response envelope for all HTTP API responses.
type APIResponse struct {
	Data any          `json:"data,omitempty"`
	Meta ResponseMeta `json:"meta"`
}

// ListResponse is the standard envelope for paginated list endpoints.
type ListResponse struct {
	Data    any          `json:"data"`
	Total   *int         `json:"total,omitempty"`
	HasMore bool         `json:"has_more"`
	Limit   int          `json:"limit"`
	Offset  int          `json:"offset"`
	Meta    ResponseMeta `json:"meta"`
}

// APIError is the standard error response envelope.
type APIError struct {
	Error ErrorDetail  `json:"error"`
	Meta  ResponseMeta `json:"meta"`
}

// ResponseMeta contains request metadata included in every response.
type ResponseMeta struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorDetail describes an API error.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorCode constants for standard API error codes.
const (
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeForbidden     = "FORBIDDEN"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeConflict      = "CONFLICT"
	ErrCodeInternalError = "INTERNAL_ERROR"
	ErrCodeRateLimited   = "RATE_LIMITED"
)

// AuthTokenRequest is the request body for POST /auth/token.
type AuthTokenRequest struct {
	Email  string `json:"email"`
	APIKey string `json:"api_key"`
}

// AuthTokenResponse is the response for POST /auth/token.
type AuthTokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CreateInitiativeRequest is the request body for POST /v1/initiatives.
// After/Before anchor the new card on the status board; both empty appends
// at the tail.
type CreateInitiativeRequest struct {
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	Status      Status     `json:"status,omitempty"`
	After       *uuid.UUID `json:"after,omitempty"`
	Before      *uuid.UUID `json:"before,omitempty"`
}

// UpdateInitiativeRequest is the request body for PATCH /v1/initiatives/{id}.
type UpdateInitiativeRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
}

// MoveRequest repositions an entity on its status board. Status, when set,
// moves the entity to another column; After/Before are entity ids in the
// destination column.
type MoveRequest struct {
	Status *Status    `json:"status,omitempty"`
	After  *uuid.UUID `json:"after,omitempty"`
	Before *uuid.UUID `json:"before,omitempty"`
}

// GroupMoveRequest repositions an entity inside a single list that has no
// status columns (a group's members, a task's checklist).
type GroupMoveRequest struct {
	After  *uuid.UUID `json:"after,omitempty"`
	Before *uuid.UUID `json:"before,omitempty"`
}

// CreateTaskRequest is the request body for POST /v1/tasks.
type CreateTaskRequest struct {
	InitiativeID *uuid.UUID `json:"initiative_id,omitempty"`
	Title        string     `json:"title"`
	Description  *string    `json:"description,omitempty"`
	Status       Status     `json:"status,omitempty"`
	After        *uuid.UUID `json:"after,omitempty"`
	Before       *uuid.UUID `json:"before,omitempty"`
}

// UpdateTaskRequest is the request body for PATCH /v1/tasks/{id}.
type UpdateTaskRequest struct {
	Title        *string    `json:"title,omitempty"`
	Description  *string    `json:"description,omitempty"`
	InitiativeID *uuid.UUID `json:"initiative_id,omitempty"`
}

// CreateChecklistItemRequest is the request body for POST /v1/tasks/{id}/checklist.
type CreateChecklistItemRequest struct {
	Title  string     `json:"title"`
	After  *uuid.UUID `json:"after,omitempty"`
	Before *uuid.UUID `json:"before,omitempty"`
}

// UpdateChecklistItemRequest is the request body for PATCH /v1/checklist/{item_id}.
type UpdateChecklistItemRequest struct {
	Title *string `json:"title,omitempty"`
	Done  *bool   `json:"done,omitempty"`
}

// CreateGroupRequest is the request body for POST /v1/groups.
type CreateGroupRequest struct {
	Name string    `json:"name"`
	Kind GroupKind `json:"kind"`
}

// UpdateGroupRequest is the request body for PATCH /v1/groups/{id}.
type UpdateGroupRequest struct {
	Name *string `json:"name,omitempty"`
}

// AddGroupMemberRequest is the request body for PUT /v1/groups/{group_id}/members/{id}.
type AddGroupMemberRequest struct {
	After  *uuid.UUID `json:"after,omitempty"`
	Before *uuid.UUID `json:"before,omitempty"`
}

// CreateHeroRequest is the request body for POST /v1/heroes.
type CreateHeroRequest struct {
	Name      string  `json:"name"`
	Archetype string  `json:"archetype,omitempty"`
	Backstory *string `json:"backstory,omitempty"`
}

// CreateVillainRequest is the request body for POST /v1/villains.
type CreateVillainRequest struct {
	Name   string  `json:"name"`
	Menace *string `json:"menace,omitempty"`
}

// CreateConflictRequest is the request body for POST /v1/conflicts.
type CreateConflictRequest struct {
	VillainID    uuid.UUID `json:"villain_id"`
	InitiativeID uuid.UUID `json:"initiative_id"`
	Stakes       *string   `json:"stakes,omitempty"`
}

// UpdateHeroRequest is the request body for PATCH /v1/heroes/{id}.
type UpdateHeroRequest struct {
	Name      *string `json:"name,omitempty"`
	Archetype *string `json:"archetype,omitempty"`
	Backstory *string `json:"backstory,omitempty"`
}

// UpdateVillainRequest is the request body for PATCH /v1/villains/{id}.
type UpdateVillainRequest struct {
	Name     *string `json:"name,omitempty"`
	Menace   *string `json:"menace,omitempty"`
	Defeated *bool   `json:"defeated,omitempty"`
}

// UpdateConflictRequest is the request body for PATCH /v1/conflicts/{id}.
type UpdateConflictRequest struct {
	Stakes *string         `json:"stakes,omitempty"`
	Status *ConflictStatus `json:"status,omitempty"`
}

// CreateStrategyRequest is the request body for POST /v1/strategies.
type CreateStrategyRequest struct {
	Vision      string   `json:"vision"`
	HorizonDays int      `json:"horizon_days"`
	Pillars     []Pillar `json:"pillars,omitempty"`
}

// UpdateStrategyRequest is the request body for PATCH /v1/strategies/{id}.
type UpdateStrategyRequest struct {
	Vision      *string  `json:"vision,omitempty"`
	HorizonDays *int     `json:"horizon_days,omitempty"`
	Pillars     []Pillar `json:"pillars,omitempty"`
}

// SimilarSearchRequest is the request body for POST /v1/search/similar.
type SimilarSearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// SimilarResult is one hit from embedding similarity search.
type SimilarResult struct {
	EntityType EntityType `json:"entity_type"`
	EntityID   uuid.UUID  `json:"entity_id"`
	Identifier string     `json:"identifier"`
	Title      string     `json:"title"`
	Score      float64    `json:"score"`
}

// HealthResponse is the response for GET /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Postgres string `json:"postgres"`
	Uptime   int64  `json:"uptime_seconds"`
}
