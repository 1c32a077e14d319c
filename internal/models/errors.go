package models

import "errors"

// Application-wide standard errors
var (
	// Common Resource/DB Errors
	ErrNotFound      = errors.New("resource not found")
	ErrAlreadyExists = errors.New("resource already exists") // e.g. slug collision

	// Authorization Errors
	ErrUnauthorized = errors.New("unauthorized") // Missing/invalid access token or credential
	ErrForbidden    = errors.New("forbidden")    // Authenticated, but lacks permission

	// Token Errors
	ErrTokenInvalid   = errors.New("token is invalid")
	ErrTokenMalformed = errors.New("token is malformed")
	ErrTokenExpired   = errors.New("token has expired")

	// Lifecycle Errors
	ErrInvalidTransition     = errors.New("story state does not allow this transition")
	ErrConflictingTransition = errors.New("request sets contradictory target states")
	ErrNoPasswordSet         = errors.New("story is not password protected")

	// General Request/Server Errors
	ErrValidation     = errors.New("invalid input data")
	ErrInternalServer = errors.New("internal server error")
)
