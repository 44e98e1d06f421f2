package dto

import (
	"encoding/json"

	"github.com/quantumlab/labtrack/internal/app/models"
)

// CreateUserRequest is the admin user-creation payload
type CreateUserRequest struct {
	Name     string  `json:"name" binding:"required,max=255" example:"Grace Hopper"`
	Email    string  `json:"email" binding:"required,email" example:"grace@lab.local"`
	Password string  `json:"password" binding:"required,labpassword" example:"secret123"`
	Role     string  `json:"role" binding:"required,labrole" example:"user" enums:"admin,user"`
	Phone    *string `json:"phone,omitempty" example:"+1 555 0100"`
}

// UpdateUserStatusRequest toggles login access
type UpdateUserStatusRequest struct {
	Status string `json:"status" binding:"required,labuserstatus" example:"inactive" enums:"active,inactive"`
}

// ResetPasswordRequest is an admin-issued password reset
type ResetPasswordRequest struct {
	Password string `json:"password" binding:"required,labpassword" example:"newSecret123"`
}

// ProfileResponse is the caller's own profile
type ProfileResponse struct {
	ID        int64           `json:"id" example:"1"`
	Name      string          `json:"name" example:"Ada Lovelace"`
	Email     string          `json:"email" example:"ada@lab.local"`
	Role      models.Role     `json:"role" example:"user"`
	Status    string          `json:"status" example:"active"`
	Phone     *string         `json:"phone"`
	Avatar    string          `json:"avatar" example:"/uploads/avatars/default-avatar.png"`
	AvatarURL string          `json:"avatar_url" example:"http://localhost:5000/uploads/avatars/default-avatar.png"`
	Prefs     json.RawMessage `json:"prefs" swaggertype:"object"`
}

// UpdateProfileRequest represents profile update data. Absent fields are left unchanged.
type UpdateProfileRequest struct {
	Name  *string `json:"name" binding:"omitempty,min=1,max=255" example:"Ada King"`
	Phone *string `json:"phone" binding:"omitempty,max=50" example:"+1 555 0101"`
}

// ChangePasswordRequest asks to replace the caller's own password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required" example:"secret123"`
	NewPassword     string `json:"newPassword" binding:"required,labpassword" example:"evenMoreSecret"`
}

// AvatarResponse reports where a freshly uploaded avatar lives
type AvatarResponse struct {
	Avatar    string `json:"avatar" example:"/uploads/avatars/0b8f6c2e.png"`
	AvatarURL string `json:"avatar_url" example:"http://localhost:5000/uploads/avatars/0b8f6c2e.png"`
}

// DashboardCounts are headline numbers for the admin dashboard
type DashboardCounts struct {
	TotalUsers          int64 `json:"totalUsers"`
	ActiveUsers         int64 `json:"activeUsers"`
	TotalExperiments    int64 `json:"totalExperiments"`
	PendingCount        int64 `json:"pendingCount"`
	ApprovedCount       int64 `json:"approvedCount"`
	UnreadNotifications int64 `json:"unreadNotifications"`
}

// RoleCount is one row of the users-by-role breakdown
type RoleCount struct {
	Role  string `json:"role" example:"user"`
	Count int64  `json:"count" example:"12"`
}

// StatusCount is one row of the experiments-by-status breakdown
type StatusCount struct {
	Status string `json:"status" example:"pending"`
	Count  int64  `json:"count" example:"4"`
}

// DashboardStats is the admin dashboard payload
type DashboardStats struct {
	Counts              DashboardCounts `json:"counts"`
	UsersByRole         []RoleCount     `json:"usersByRole"`
	ExperimentsByStatus []StatusCount   `json:"experimentsByStatus"`
}
