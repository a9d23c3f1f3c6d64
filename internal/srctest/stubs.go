package srctest

// stubs mirror the exported surface the analyzer inspects. Bodies are
// irrelevant; only declarations are type-checked.
var stubs = map[string]string{
	"context": `package context

type Context interface {
	Done() <-chan struct{}
	Err() error
	Value(key any) any
}

func Background() Context { return nil }
`,

	"net/http": `package http

import "context"

type Header map[string][]string

type ResponseWriter interface {
	Header() Header
	Write([]byte) (int, error)
	WriteHeader(statusCode int)
}

type Request struct {
	Method string
}

type Handler interface {
	ServeHTTP(ResponseWriter, *Request)
}

func (r *Request) Context() context.Context { return nil }
func (r *Request) PathValue(name string) string { return "" }

type HandlerFunc func(ResponseWriter, *Request)

const StatusNoContent = 204
`,

	"github.com/broady/routegen": `package routegen

import (
	"context"
	"net/http"
)

type App struct{}

type Route struct{}

func NewApp() *App { return &App{} }

func (a *App) Map(pattern string, handler any) *Route                            { return nil }
func (a *App) MapGet(pattern string, handler any) *Route                         { return nil }
func (a *App) MapPost(pattern string, handler any) *Route                        { return nil }
func (a *App) MapPut(pattern string, handler any) *Route                         { return nil }
func (a *App) MapDelete(pattern string, handler any) *Route                      { return nil }
func (a *App) MapPatch(pattern string, handler any) *Route                       { return nil }
func (a *App) MapMethods(pattern string, handler any, methods ...string) *Route  { return nil }
func (a *App) WriteError(w http.ResponseWriter, r *http.Request, err error)      {}
func (a *App) WriteResult(w http.ResponseWriter, r *http.Request, res Result)    {}
func (a *App) WriteText(w http.ResponseWriter, r *http.Request, s string)        {}
func (a *App) WriteJSON(w http.ResponseWriter, r *http.Request, v any)           {}
func (a *App) WriteNoContent(w http.ResponseWriter, r *http.Request)             {}

type Scalar interface {
	~string | ~bool |
		~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

func ParseRoute[T Scalar](r *http.Request, name string) (T, error) { var v T; return v, nil }
func ParseQuery[T Scalar](r *http.Request, name string) (T, error) { var v T; return v, nil }
func Bind[T any](r *http.Request) (T, error)                        { var v T; return v, nil }
func BindJSON[T any](r *http.Request) (T, error)                    { var v T; return v, nil }
func BindQuery[T any](r *http.Request) (T, error)                   { var v T; return v, nil }

type stubError struct{}

func (stubError) Error() string { return "mismatch" }

var ErrHandlerMismatch error = stubError{}

type AwaitError struct{ Err error }

func (e *AwaitError) Error() string { return "await" }

type promise[T any] struct{}

type Awaiter[T any] struct{ p *promise[T] }

func (a Awaiter[T]) IsCompleted() bool         { return true }
func (a Awaiter[T]) OnCompleted(continuation func()) {}
func (a Awaiter[T]) GetResult() (T, error)     { var zero T; return zero, nil }

type VoidAwaiter struct{}

func (a VoidAwaiter) IsCompleted() bool              { return true }
func (a VoidAwaiter) OnCompleted(continuation func()) {}
func (a VoidAwaiter) GetResult() error               { return nil }

type Task[T any] struct{ p *promise[T] }

func (t Task[T]) GetAwaiter() Awaiter[T] { return Awaiter[T]{} }

type ValueTask[T any] struct{ p *promise[T] }

func (t ValueTask[T]) GetAwaiter() Awaiter[T] { return Awaiter[T]{} }

type VoidTask struct{}

func (t VoidTask) GetAwaiter() VoidAwaiter { return VoidAwaiter{} }

type VoidValueTask struct{}

func (t VoidValueTask) GetAwaiter() VoidAwaiter { return VoidAwaiter{} }

func Run[T any](ctx context.Context, fn func(context.Context) (T, error)) Task[T] { return Task[T]{} }
func FromResult[T any](v T) Task[T] { return Task[T]{} }

type Result interface {
	ExecuteResult(w http.ResponseWriter, r *http.Request) error
}

type Text string

func (t Text) ExecuteResult(w http.ResponseWriter, r *http.Request) error { return nil }

type Site struct {
	File    string
	Line    int
	EndLine int
}

type Dispatcher func(app *App, handler any) (http.HandlerFunc, error)

func RegisterDispatcher(site Site, d Dispatcher) {}
`,
}
