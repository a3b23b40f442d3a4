package dto

import "github.com/noah-isme/tailms-api/internal/models"

// CreateUserRequest represents payload for creating users.
type CreateUserRequest struct {
	Email    string            `json:"email" validate:"required,email"`
	Password string            `json:"password" validate:"required,min=6"`
	Role     models.UserRole   `json:"role" validate:"required,oneof=ADMIN STUDENT"`
	Status   models.UserStatus `json:"status" validate:"omitempty,oneof=ACTIVE PENDING SUSPENDED"`
}

// UpdateUserRequest carries a partial user update. Role and status are admin-only.
type UpdateUserRequest struct {
	Email    *string            `json:"email" validate:"omitempty,email"`
	Password *string            `json:"password" validate:"omitempty,min=6"`
	Role     *models.UserRole   `json:"role" validate:"omitempty,oneof=ADMIN STUDENT"`
	Status   *models.UserStatus `json:"status" validate:"omitempty,oneof=ACTIVE PENDING SUSPENDED"`
}

// UpdateUserStatusRequest changes only the account status.
type UpdateUserStatusRequest struct {
	Status models.UserStatus `json:"status" validate:"required,oneof=ACTIVE PENDING SUSPENDED"`
}
