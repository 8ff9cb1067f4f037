package dto

import (
	"time"

	"github.com/SscSPs/blog_backend/internal/core/domain"
)

// UserResponse is the public profile of a user. It never carries the password hash.
type UserResponse struct {
	UserID   string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	IsAdmin  bool   `json:"isAdmin"`
}

// ToUserResponse converts an identity to its public response.
func ToUserResponse(identity domain.Identity) UserResponse {
	return UserResponse{
		UserID:   identity.UserID,
		Username: identity.Username,
		Email:    identity.Email,
		IsAdmin:  identity.IsAdmin,
	}
}

// AdminUserResponse is the user view returned by the admin endpoints.
type AdminUserResponse struct {
	UserResponse
	Locked    bool      `json:"locked"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ToAdminUserResponse converts a domain user to the admin view.
func ToAdminUserResponse(user *domain.User) AdminUserResponse {
	return AdminUserResponse{
		UserResponse: ToUserResponse(user.Identity()),
		Locked:       user.IsLocked(time.Now()),
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.LastUpdatedAt,
	}
}
