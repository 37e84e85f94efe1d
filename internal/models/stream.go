package models

import "time"

/** -------------------- DTOs -------------------- */

type StatusResponse struct {
	Status string `json:"status"`
}

type TicketResponse struct {
	Ticket    string    `json:"ticket"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type RevokeRequest struct {
	User    string `json:"user" binding:"required"`
	Project string `json:"project" binding:"required"`
}

type RevokeResponse struct {
	Status  string `json:"status"`
	Revoked int    `json:"revoked"`
}

// ErrorResponse is a standardized error response for API
type ErrorResponse struct {
	StatusCode int    `json:"statusCode"`
	Error      string `json:"error"`
	Message    string `json:"message,omitempty"`
}
