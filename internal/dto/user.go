package dto

import (
	"github.com/SscSPs/blog_backend/internal/core/domain"
)

// CreateUserRequest is the admin payload for creating a user.
type CreateUserRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,password"`
	IsAdmin  bool   `json:"isAdmin"`
}

// UpdateUserRequest defines the data allowed for updating a user.
// Using pointers to differentiate between omitted fields and zero-value fields.
type UpdateUserRequest struct {
	Username *string `json:"username" binding:"omitempty,min=3,max=50"`
	Email    *string `json:"email" binding:"omitempty,email"`
	Password *string `json:"password" binding:"omitempty,password"`
	IsAdmin  *bool   `json:"isAdmin"`
}

// ListUsersParams defines query parameters for listing users.
type ListUsersParams struct {
	Limit  int `form:"limit,default=20" binding:"min=1,max=100"`
	Offset int `form:"offset,default=0" binding:"min=0"`
}

// ListUsersResponse wraps the list of users.
type ListUsersResponse struct {
	Users  []AdminUserResponse `json:"users"`
	Limit  int                 `json:"limit"`
	Offset int                 `json:"offset"`
}

// ToListUserResponse converts a slice of domain.User to ListUsersResponse DTO
func ToListUserResponse(users []domain.User, limit, offset int) ListUsersResponse {
	userResponses := make([]AdminUserResponse, len(users))
	for i := range users {
		userResponses[i] = ToAdminUserResponse(&users[i])
	}
	return ListUsersResponse{
		Users:  userResponses,
		Limit:  limit,
		Offset: offset,
	}
}
