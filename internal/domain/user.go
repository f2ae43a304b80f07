// Package domain holds the core data types shared by the store, the
// service layer and the HTTP transport.
package domain

import (
	"net/http"
	"time"
)

// User is a single directory entry.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateUserRequest is the payload for creating a user.
type CreateUserRequest struct {
	Name  string `json:"name" validate:"required,min=1,max=100"`
	Email string `json:"email" validate:"required,email"`
}

// Bind implements the render.Binder interface
func (req *CreateUserRequest) Bind(r *http.Request) error {
	return nil
}

// UpdateUserRequest is the payload for updating a user. Zero-valued
// fields are left unchanged.
type UpdateUserRequest struct {
	Name  string `json:"name" validate:"omitempty,min=1,max=100"`
	Email string `json:"email" validate:"omitempty,email"`
}

// Bind implements the render.Binder interface
func (req *UpdateUserRequest) Bind(r *http.Request) error {
	return nil
}

// UserListResponse wraps a user collection.
type UserListResponse struct {
	Users []User `json:"users"`
	Count int    `json:"count"`
}
