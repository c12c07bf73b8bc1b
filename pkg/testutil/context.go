package testutil

import (
	"net/http"

	id "roster/pkg/domain"
	"roster/pkg/requestcontext"
)

// WithCaller marks the request as authenticated by caller, which is what the
// auth middleware does after validating a bearer token.
func WithCaller(req *http.Request, caller string) *http.Request {
	if caller == "" {
		return req
	}
	return req.WithContext(requestcontext.WithCallerID(req.Context(), id.CallerID(caller)))
}

// WithRequestID attaches a request ID to the request context.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}
