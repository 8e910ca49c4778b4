package models

import (
	"encoding/json"
	"net/http"
)

// Problem is an RFC 7807 body, served as application/problem+json.
// Error mirrors Detail, or Title when there is no detail, so clients that
// only look for an "error" member still get a message.
type Problem struct {
	Type     string       `json:"type"`
	Title    string       `json:"title"`
	Status   int          `json:"status"`
	Detail   string       `json:"detail,omitempty"`
	Instance string       `json:"instance,omitempty"`
	Error    string       `json:"error"`
	TraceID  string       `json:"traceId"`
	Errors   []FieldError `json:"errors,omitempty"`
}

// FieldError points at one invalid query parameter.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

const (
	ProblemTypeValidation       = "https://carefinder.app/problems/validation-error"
	ProblemTypeNotFound         = "https://carefinder.app/problems/not-found"
	ProblemTypeMethodNotAllowed = "https://carefinder.app/problems/method-not-allowed"
	ProblemTypeTooManyRequests  = "https://carefinder.app/problems/too-many-requests"
	ProblemTypeInternal         = "https://carefinder.app/problems/internal-error"
	ProblemTypeTLSRequired      = "https://carefinder.app/problems/tls-required"
)

// NewProblem creates a Problem whose Error is its title until a detail is set.
func NewProblem(problemType, title string, status int, traceID string) *Problem {
	return &Problem{
		Type:    problemType,
		Title:   title,
		Status:  status,
		Error:   title,
		TraceID: traceID,
	}
}

// WithDetail sets Detail. A non-empty detail also replaces Error.
func (p *Problem) WithDetail(detail string) *Problem {
	p.Detail = detail
	if detail != "" {
		p.Error = detail
	}
	return p
}

// WithInstance sets the request path the problem occurred on.
func (p *Problem) WithInstance(instance string) *Problem {
	p.Instance = instance
	return p
}

// WithErrors attaches per-field validation errors.
func (p *Problem) WithErrors(errors []FieldError) *Problem {
	p.Errors = errors
	return p
}

// Write sends the problem with its status code. The trace ID is echoed in
// X-Request-Id so a client can quote it without parsing the body.
func (p *Problem) Write(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Content-Type", "application/problem+json")
	if p.TraceID != "" {
		h.Set("X-Request-Id", p.TraceID)
	}
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

func newKnown(problemType, title string, status int, traceID, detail string) *Problem {
	return NewProblem(problemType, title, status, traceID).WithDetail(detail)
}

// NewBadRequest is a 400 for unusable query parameters.
func NewBadRequest(traceID, detail string, errors []FieldError) *Problem {
	return newKnown(ProblemTypeValidation, "Validation error", http.StatusBadRequest, traceID, detail).
		WithErrors(errors)
}

// NewNotFound is a 404 for unknown routes.
func NewNotFound(traceID, detail string) *Problem {
	return newKnown(ProblemTypeNotFound, "Not found", http.StatusNotFound, traceID, detail)
}

// NewMethodNotAllowed is a 405.
func NewMethodNotAllowed(traceID, detail string) *Problem {
	return newKnown(ProblemTypeMethodNotAllowed, "Method not allowed", http.StatusMethodNotAllowed, traceID, detail)
}

// NewTooManyRequests is a 429 from the per-IP rate limiter.
func NewTooManyRequests(traceID, detail string) *Problem {
	return newKnown(ProblemTypeTooManyRequests, "Too many requests", http.StatusTooManyRequests, traceID, detail)
}

// NewInternalError is a 500. The detail must not leak store errors.
func NewInternalError(traceID, detail string) *Problem {
	return newKnown(ProblemTypeInternal, "Internal server error", http.StatusInternalServerError, traceID, detail)
}
