package api

import (
	"time"

	"github.com/rpupo63/showcase-backend/identity"
	"github.com/rpupo63/showcase-backend/models"
)

// routeHandlers contains all the handlers for different route types
type routeHandlers struct {
	catalogHandler      catalogHandler
	adminProjectHandler adminProjectHandler
	authHandler         authHandler
	accountHandler      accountHandler
	noticeHandler       noticeHandler
	opsHandler          opsHandler
}

// ErrorResponse represents an error response from the API
// @Description Error response structure
type ErrorResponse struct {
	Error   string `json:"error" example:"Internal Server Error"`
	Status  string `json:"status" example:"error"`
	Field   string `json:"field,omitempty" example:"name"`
	Details string `json:"details,omitempty" example:"Additional error details"`
	Cause   string `json:"cause,omitempty" example:"Underlying error cause"`
}

// ProjectCollection is a list of projects
type ProjectCollection struct {
	Projects []*models.Project `json:"projects"`
	Total    int               `json:"total"`
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email,omitempty"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// SessionResponse is returned by login, register and refresh.
type SessionResponse struct {
	User         *identity.User `json:"user"`
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	ExpiresAt    time.Time      `json:"expires_at"`
}

type visibilityRequest struct {
	IsPublic *bool `json:"is_public"`
}

type skillsRequest struct {
	Skills []string `json:"skills"`
}

type passwordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

// HealthResponse reports liveness and database reachability.
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Uptime   string `json:"uptime"`
}
