package routegen

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
)

// errorResponse is the envelope for error responses: {"error": {...}}.
type errorResponse struct {
	Error *Error `json:"error"`
}

func encodeErrorResponse(w io.Writer, err *Error) error {
	return json.NewEncoder(w).Encode(errorResponse{Error: err})
}

// WriteText writes s as a 200 text/plain response.
func (a *App) WriteText(w http.ResponseWriter, r *http.Request, s string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := io.WriteString(w, s); err != nil {
		a.writeFailed(r, err)
	}
}

// WriteJSON writes v as a 200 application/json response.
func (a *App) WriteJSON(w http.ResponseWriter, r *http.Request, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		a.WriteError(w, r, Errorf(CodeInternal, "encode response: %v", err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		a.writeFailed(r, err)
	}
}

// WriteResult lets res write the response. A nil Result writes 204.
func (a *App) WriteResult(w http.ResponseWriter, r *http.Request, res Result) {
	if res == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err := res.ExecuteResult(w, r); err != nil {
		a.WriteError(w, r, err)
	}
}

// WriteNoContent writes 204.
func (a *App) WriteNoContent(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// WriteError maps err through the error transformer and writes the error
// envelope. Internal errors are logged.
func (a *App) WriteError(w http.ResponseWriter, r *http.Request, err error) {
	var svcErr *Error
	if a.errorTransformer != nil {
		svcErr = a.errorTransformer(err)
	}
	if svcErr == nil {
		svcErr = DefaultErrorTransformer(err)
	}
	if svcErr.Code == CodeInternal {
		a.log().ErrorContext(r.Context(), "handler failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
		if a.maskInternalErrors {
			svcErr = NewError(CodeInternal, "internal server error")
		}
	}
	writeError(w, svcErr, a.logger)
}

func (a *App) writeFailed(r *http.Request, err error) {
	a.log().DebugContext(r.Context(), "write response failed",
		slog.String("path", r.URL.Path),
		slog.Any("error", err))
}
