// Package testutil provides helpers for testing routegen apps and plain
// HTTP handlers.
package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

// RequestBuilder helps construct test HTTP requests with fluent API.
type RequestBuilder struct {
	method  string
	path    string
	body    []byte
	headers map[string]string
	query   url.Values
}

// NewRequest creates a new request builder for GET /.
func NewRequest() *RequestBuilder {
	return &RequestBuilder{
		method:  http.MethodGet,
		path:    "/",
		headers: make(map[string]string),
		query:   make(url.Values),
	}
}

// Method sets the HTTP method and path.
func (b *RequestBuilder) Method(method, path string) *RequestBuilder {
	b.method = method
	b.path = path
	return b
}

// GET sets the HTTP method to GET.
func (b *RequestBuilder) GET(path string) *RequestBuilder { return b.Method(http.MethodGet, path) }

// POST sets the HTTP method to POST.
func (b *RequestBuilder) POST(path string) *RequestBuilder { return b.Method(http.MethodPost, path) }

// PUT sets the HTTP method to PUT.
func (b *RequestBuilder) PUT(path string) *RequestBuilder { return b.Method(http.MethodPut, path) }

// DELETE sets the HTTP method to DELETE.
func (b *RequestBuilder) DELETE(path string) *RequestBuilder {
	return b.Method(http.MethodDelete, path)
}

// WithJSON sets the request body as JSON.
func (b *RequestBuilder) WithJSON(v any) *RequestBuilder {
	data, _ := json.Marshal(v)
	b.body = data
	b.headers["Content-Type"] = "application/json"
	return b
}

// WithBody sets the raw request body.
func (b *RequestBuilder) WithBody(body string) *RequestBuilder {
	b.body = []byte(body)
	return b
}

// WithHeader adds a header to the request.
func (b *RequestBuilder) WithHeader(key, value string) *RequestBuilder {
	b.headers[key] = value
	return b
}

// WithQuery adds a query parameter.
func (b *RequestBuilder) WithQuery(key, value string) *RequestBuilder {
	b.query.Add(key, value)
	return b
}

// Build creates the HTTP request and ResponseRecorder.
func (b *RequestBuilder) Build() (*http.Request, *httptest.ResponseRecorder) {
	path := b.path
	if len(b.query) > 0 {
		path += "?" + b.query.Encode()
	}

	var req *http.Request
	if len(b.body) > 0 {
		req = httptest.NewRequest(b.method, path, bytes.NewReader(b.body))
	} else {
		req = httptest.NewRequest(b.method, path, nil)
	}
	for k, v := range b.headers {
		req.Header.Set(k, v)
	}
	return req, httptest.NewRecorder()
}

// Serve builds the request and serves it with h.
func (b *RequestBuilder) Serve(h http.Handler) *httptest.ResponseRecorder {
	req, w := b.Build()
	h.ServeHTTP(w, req)
	return w
}

// AssertStatus checks that the response has the expected status code.
func AssertStatus(t testing.TB, w *httptest.ResponseRecorder, expectedStatus int) {
	t.Helper()
	if w.Code != expectedStatus {
		t.Errorf("expected status %d, got %d\nBody: %s", expectedStatus, w.Code, w.Body.String())
	}
}

// AssertJSONResponse decodes the response body and compares it with expected value.
func AssertJSONResponse(t testing.TB, w *httptest.ResponseRecorder, expected any) {
	t.Helper()

	contentType := w.Header().Get("Content-Type")
	if !strings.Contains(contentType, "application/json") {
		t.Errorf("expected Content-Type to contain application/json, got %s", contentType)
	}

	// Compare as JSON to ignore formatting differences
	expectedJSON, _ := json.Marshal(expected)
	var expectedData, actualData any
	json.Unmarshal(expectedJSON, &expectedData)
	json.Unmarshal(w.Body.Bytes(), &actualData)

	expectedStr, _ := json.MarshalIndent(expectedData, "", "  ")
	actualStr, _ := json.MarshalIndent(actualData, "", "  ")

	if string(expectedStr) != string(actualStr) {
		t.Errorf("response mismatch:\nExpected:\n%s\nActual:\n%s", expectedStr, actualStr)
	}
}

// AssertText checks a text/plain response body.
func AssertText(t testing.TB, w *httptest.ResponseRecorder, expected string) {
	t.Helper()
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("expected Content-Type text/plain, got %s", ct)
	}
	if got := w.Body.String(); got != expected {
		t.Errorf("expected body %q, got %q", expected, got)
	}
}

// ErrorResponse represents a generic error response with code and message.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// AssertJSONError checks that the response carries an {"error": ...}
// envelope with the expected code.
func AssertJSONError(t testing.TB, w *httptest.ResponseRecorder, expectedCode string) *ErrorResponse {
	t.Helper()

	var env struct {
		Error *ErrorResponse `json:"error"`
	}
	if err := json.NewDecoder(w.Body).Decode(&env); err != nil {
		t.Fatalf("failed to decode error response: %v\nBody: %s", err, w.Body.String())
	}
	if env.Error == nil {
		t.Fatalf("response has no error envelope")
	}
	if env.Error.Code != expectedCode {
		t.Errorf("expected error code %s, got %s (message: %s)", expectedCode, env.Error.Code, env.Error.Message)
	}
	return env.Error
}

// AssertHeader checks that a response header has the expected value.
func AssertHeader(t testing.TB, w *httptest.ResponseRecorder, key, expectedValue string) {
	t.Helper()
	actual := w.Header().Get(key)
	if actual != expectedValue {
		t.Errorf("expected header %s=%s, got %s", key, expectedValue, actual)
	}
}

// DecodeJSON decodes the response body into the provided value.
func DecodeJSON(t testing.TB, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v\nBody: %s", err, w.Body.String())
	}
}
