package routegen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrorCode classifies a failed request. Every code maps to one HTTP status.
type ErrorCode string

const (
	CodeInvalidArgument  ErrorCode = "invalid_argument" // a request value did not bind or validate
	CodeUnauthenticated  ErrorCode = "unauthenticated"
	CodePermissionDenied ErrorCode = "permission_denied"
	CodeNotFound         ErrorCode = "not_found"
	CodeConflict         ErrorCode = "conflict"
	CodeTooLarge         ErrorCode = "too_large" // body over App.WithMaxRequestBodySize
	CodeCanceled         ErrorCode = "canceled"
	CodeDeadlineExceeded ErrorCode = "deadline_exceeded"
	CodeUnavailable      ErrorCode = "unavailable"
	CodeInternal         ErrorCode = "internal"
)

// statusClientClosed is the de facto status for a client that went away.
const statusClientClosed = 499

var codeStatus = map[ErrorCode]int{
	CodeInvalidArgument:  http.StatusBadRequest,
	CodeUnauthenticated:  http.StatusUnauthorized,
	CodePermissionDenied: http.StatusForbidden,
	CodeNotFound:         http.StatusNotFound,
	CodeConflict:         http.StatusConflict,
	CodeTooLarge:         http.StatusRequestEntityTooLarge,
	CodeCanceled:         statusClientClosed,
	CodeDeadlineExceeded: http.StatusGatewayTimeout,
	CodeUnavailable:      http.StatusServiceUnavailable,
	CodeInternal:         http.StatusInternalServerError,
}

// HTTPStatus returns the status written for c. Unknown codes are 500.
func (c ErrorCode) HTTPStatus() int {
	if s, ok := codeStatus[c]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Error is the body of an error response, {"error": {...}} on the wire.
// Handlers return one to pick the status and message themselves.
type Error struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Errorf(code ErrorCode, format string, args ...any) *Error {
	return NewError(code, fmt.Sprintf(format, args...))
}

// WithDetail returns a copy of e with details[key] set.
func (e *Error) WithDetail(key string, value any) *Error {
	c := *e
	c.Details = maps.Clone(e.Details)
	if c.Details == nil {
		c.Details = make(map[string]any, 1)
	}
	c.Details[key] = value
	return &c
}

// Where a BindError's value came from.
const (
	SourcePath  = "path"
	SourceQuery = "query"
	SourceBody  = "body"
)

// BindError reports a request value that could not be parsed into the
// handler parameter it was bound to. Name is empty for a struct decoded
// from the whole query string or body.
type BindError struct {
	Source string
	Name   string
	Err    error
}

func (e *BindError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("decode %s: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("%s parameter %s: %v", e.Source, e.Name, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

// AwaitError reports a handler result that was still pending when the
// request ended. Err is the request context's error.
type AwaitError struct {
	Err error
}

func (e *AwaitError) Error() string {
	return "request ended before the handler completed: " + e.Err.Error()
}

func (e *AwaitError) Unwrap() error { return e.Err }

// ErrorTransformer maps an error returned by a handler to the response
// error. Returning nil defers to DefaultErrorTransformer.
type ErrorTransformer func(error) *Error

// DefaultErrorTransformer maps the errors routegen itself produces, and
// any *Error in err's chain. Everything else is internal.
//
// For a joined error the first error picks the code and the messages of
// all of them are kept.
func DefaultErrorTransformer(err error) *Error {
	if err == nil {
		return nil
	}
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		if errs := j.Unwrap(); len(errs) > 0 {
			first := DefaultErrorTransformer(errs[0])
			msgs := []string{first.Message}
			for _, e := range errs[1:] {
				msgs = append(msgs, DefaultErrorTransformer(e).Message)
			}
			return &Error{Code: first.Code, Message: strings.Join(msgs, "; "), Details: first.Details}
		}
	}

	var (
		svcErr   *Error
		valErrs  validator.ValidationErrors
		bindErr  *BindError
		maxBytes *http.MaxBytesError
		awaitErr *AwaitError
	)
	switch {
	case errors.As(err, &svcErr):
		return svcErr
	case errors.As(err, &valErrs):
		return validationError(valErrs)
	case errors.As(err, &maxBytes):
		return Errorf(CodeTooLarge, "request body exceeds %d bytes", maxBytes.Limit)
	case errors.As(err, &bindErr):
		e := NewError(CodeInvalidArgument, bindErr.Error()).WithDetail("source", bindErr.Source)
		if bindErr.Name != "" {
			e = e.WithDetail("parameter", bindErr.Name)
		}
		return e
	case errors.As(err, &awaitErr):
		e := contextError(awaitErr.Err)
		e.Message = awaitErr.Error()
		return e
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return contextError(err)
	}
	// App.WithMaskInternalErrors hides the message.
	return NewError(CodeInternal, err.Error())
}

func contextError(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(CodeDeadlineExceeded, "request timed out")
	}
	return NewError(CodeCanceled, "request canceled")
}

// validationError lists every failed field; Details maps field to message.
func validationError(errs validator.ValidationErrors) *Error {
	e := &Error{Code: CodeInvalidArgument, Details: make(map[string]any, len(errs))}
	msgs := make([]string, len(errs))
	for i, fe := range errs {
		msg := fieldMessage(fe)
		e.Details[fe.Field()] = msg
		msgs[i] = fe.Field() + " " + msg
	}
	e.Message = strings.Join(msgs, "; ")
	return e
}

var tagMessages = map[string]string{
	"required": "is required",
	"min":      "must be at least %s",
	"gte":      "must be at least %s",
	"max":      "must be at most %s",
	"lte":      "must be at most %s",
	"gt":       "must be greater than %s",
	"lt":       "must be less than %s",
	"len":      "must have length %s",
	"oneof":    "must be one of [%s]",
	"email":    "must be an email address",
	"url":      "must be a URL",
}

func fieldMessage(fe validator.FieldError) string {
	if f, ok := tagMessages[fe.Tag()]; ok {
		if strings.Contains(f, "%s") {
			return fmt.Sprintf(f, fe.Param())
		}
		return f
	}
	if fe.Param() != "" {
		return fmt.Sprintf("fails %s=%s", fe.Tag(), fe.Param())
	}
	return "fails " + fe.Tag()
}

func writeError(w http.ResponseWriter, svcErr *Error, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(svcErr.Code.HTTPStatus())
	if err := encodeErrorResponse(w, svcErr); err != nil {
		logger.Error("write error response",
			slog.String("code", string(svcErr.Code)),
			slog.Any("error", err))
	}
}
