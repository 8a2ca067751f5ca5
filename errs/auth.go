package errs

import (
	"errors"
	"net/http"
)

// Authentication & Authorization Errors
var (
	ErrUnauthenticated    = errors.New("user not logged in")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrMissingToken       = errors.New("missing access token")
	ErrInvalidToken       = errors.New("invalid access token")
	ErrExpiredToken       = errors.New("expired access token")
	ErrSessionRevoked     = errors.New("session revoked")
)

// Unauthenticated is returned when an operation needs a session and none is present.
var Unauthenticated = &ApiErr{StatusCode: http.StatusUnauthorized, err: ErrUnauthenticated}

func NewInvalidCredentialsError() *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusUnauthorized,
		err:        ErrInvalidCredentials,
	}
}

func NewUsernameTakenError(username string) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusConflict,
		err:        ErrUsernameTaken,
		Details:    username,
		Field:      "username",
	}
}

func NewMissingTokenError() *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusUnauthorized,
		err:        ErrMissingToken,
		Details:    "Missing access token",
		Field:      "authorization",
	}
}

func NewInvalidTokenError(cause error) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusUnauthorized,
		err:        ErrInvalidToken,
		Details:    "Invalid access token",
		Field:      "authorization",
		Cause:      cause,
	}
}

func NewExpiredTokenError() *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusUnauthorized,
		err:        ErrExpiredToken,
		Details:    "Access token has expired",
		Field:      "authorization",
	}
}

func NewSessionRevokedError() *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusUnauthorized,
		err:        ErrSessionRevoked,
		Field:      "authorization",
	}
}

// Authentication & Authorization Error Type Checkers
func IsUnauthenticated(err error) bool {
	return errors.Is(err, ErrUnauthenticated)
}

func IsInvalidCredentialsError(err error) bool {
	return errors.Is(err, ErrInvalidCredentials)
}

func IsUsernameTakenError(err error) bool {
	return errors.Is(err, ErrUsernameTaken)
}

func IsInvalidTokenError(err error) bool {
	return errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrExpiredToken) || errors.Is(err, ErrSessionRevoked)
}
