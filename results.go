package routegen

import (
	"encoding/json"
	"io"
	"net/http"
)

// Result is a value that writes its own response. A handler returning a
// Result (or a task of one) hands the response to it unchanged.
type Result interface {
	ExecuteResult(w http.ResponseWriter, r *http.Request) error
}

// Text is a text/plain 200 response.
type Text string

func (t Text) ExecuteResult(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, err := io.WriteString(w, string(t))
	return err
}

type jsonResult struct {
	status int
	value  any
}

// JSON returns a Result writing v as JSON with the given status.
func JSON(status int, v any) Result {
	return jsonResult{status: status, value: v}
}

func (j jsonResult) ExecuteResult(w http.ResponseWriter, r *http.Request) error {
	data, err := json.Marshal(j.value)
	if err != nil {
		return Errorf(CodeInternal, "encode response: %v", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(j.status)
	_, err = w.Write(append(data, '\n'))
	return err
}

// Status is a response with only a status code.
type Status int

func (s Status) ExecuteResult(w http.ResponseWriter, r *http.Request) error {
	w.WriteHeader(int(s))
	return nil
}

// NoContent is a 204 response.
func NoContent() Result { return Status(http.StatusNoContent) }

type redirect struct {
	url  string
	code int
}

// Redirect replies with a redirect to url. code should be a 3xx status.
func Redirect(url string, code int) Result {
	return redirect{url: url, code: code}
}

func (rd redirect) ExecuteResult(w http.ResponseWriter, r *http.Request) error {
	http.Redirect(w, r, rd.url, rd.code)
	return nil
}
