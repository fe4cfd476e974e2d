package model

import (
	"time"

	"github.com/google/uuid"
)

// Workspace is the tenant root. Every row in the system hangs off exactly one
// workspace; row-level security scopes queries to it.
type Workspace struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserRole represents the role a user holds within a workspace.
type UserRole string

const (
	RoleOwner  UserRole = "owner"
	RoleMember UserRole = "member"
	RoleViewer UserRole = "viewer"
)

// RoleRank returns the numeric rank of a role (higher = more privileges).
func RoleRank(r UserRole) int {
	switch r {
	case RoleOwner:
		return 3
	case RoleMember:
		return 2
	case RoleViewer:
		return 1
	default:
		return 0
	}
}

// RoleAtLeast returns true if role r has at least the privileges of minRole.
func RoleAtLeast(r, minRole UserRole) bool {
	return RoleRank(r) >= RoleRank(minRole)
}

// User is a workspace member.
type User struct {
	ID          uuid.UUID `json:"id"`
	WorkspaceID uuid.UUID `json:"workspace_id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	Role        UserRole  `json:"role"`
	APIKeyHash  *string   `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ValidateSlug checks that a workspace slug conforms to the allowed format:
// 1-64 characters, lowercase alphanumeric and hyphens, starting with a letter.
func ValidateSlug(slug string) error {
	if len(slug) == 0 {
		return Invalidf("slug is required")
	}
	if len(slug) > 64 {
		return Invalidf("slug must be at most 64 characters")
	}
	for i := 0; i < len(slug); i++ {
		c := slug[i]
		if i == 0 {
			if c < 'a' || c > 'z' {
				return Invalidf("slug must start with a lowercase letter, got %q", c)
			}
			continue
		}
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') && c != '-' {
			return Invalidf("slug contains invalid character at position %d: %q", i, c)
		}
	}
	return nil
}
