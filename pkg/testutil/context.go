package testutil

import (
	"context"
	"net/http"

	id "kyra/pkg/domain"
	"kyra/pkg/requestcontext"
)

// WithUserID adds an applicant ID to the request context.
// This simulates what the auth middleware would do for authenticated requests.
// If the userID is not a valid UUID, it will not be added to the context.
func WithUserID(req *http.Request, userID string) *http.Request {
	if parsed, err := id.ParseUserID(userID); err == nil {
		return req.WithContext(requestcontext.WithUserID(req.Context(), parsed))
	}
	return req
}

// WithAdminID adds a reviewer ID to the request context.
// If the adminID is not a valid UUID, it will not be added to the context.
func WithAdminID(req *http.Request, adminID string) *http.Request {
	if parsed, err := id.ParseAdminID(adminID); err == nil {
		return req.WithContext(requestcontext.WithAdminID(req.Context(), parsed))
	}
	return req
}

// WithContextValue adds an arbitrary key-value pair to the request context.
func WithContextValue(req *http.Request, key, value any) *http.Request {
	ctx := context.WithValue(req.Context(), key, value)
	return req.WithContext(ctx)
}
