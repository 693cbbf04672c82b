package dto

import "time"

// LoginRequest payload for login.
type LoginRequest struct {
	EmployeeCode string `json:"employee_code" validate:"required"`
	Password     string `json:"password" validate:"required"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

// UserResponse is the public view of a user.
type UserResponse struct {
	ID           int64  `json:"id"`
	EmployeeCode string `json:"employee_code"`
	Name         string `json:"name"`
	Department   string `json:"department"`
	IsManager    bool   `json:"is_manager"`
}

// DefineUsersRequest lists user ids to grant and to revoke a role.
type DefineUsersRequest struct {
	Promote []int64 `json:"promote" validate:"dive,gt=0"`
	Demote  []int64 `json:"demote" validate:"dive,gt=0"`
}
