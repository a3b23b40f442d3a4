package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin   UserRole = "ADMIN"
	RoleStudent UserRole = "STUDENT"
)

// UserStatus represents the account lifecycle. Only ACTIVE accounts may log in.
type UserStatus string

const (
	UserStatusActive    UserStatus = "ACTIVE"
	UserStatusPending   UserStatus = "PENDING"
	UserStatusSuspended UserStatus = "SUSPENDED"
)

// User represents an application user stored in the users table.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Role         UserRole   `db:"role" json:"role"`
	Status       UserStatus `db:"status" json:"status"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// IsActive reports whether the account may authenticate.
func (u *User) IsActive() bool {
	return u != nil && u.Status == UserStatusActive
}

// UserSummary is the public projection of a user embedded in other resources.
type UserSummary struct {
	ID     string     `db:"id" json:"id"`
	Email  string     `db:"email" json:"email"`
	Role   UserRole   `db:"role" json:"role"`
	Status UserStatus `db:"status" json:"status"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *UserRole
	Status    *UserStatus
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
