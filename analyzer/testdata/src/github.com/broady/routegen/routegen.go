package routegen

import "net/http"

type App struct{}

type Route struct{}

func NewApp() *App { return &App{} }

func (a *App) Map(pattern string, handler any) *Route                           { return nil }
func (a *App) MapGet(pattern string, handler any) *Route                        { return nil }
func (a *App) MapPost(pattern string, handler any) *Route                       { return nil }
func (a *App) MapPut(pattern string, handler any) *Route                        { return nil }
func (a *App) MapDelete(pattern string, handler any) *Route                     { return nil }
func (a *App) MapPatch(pattern string, handler any) *Route                      { return nil }
func (a *App) MapMethods(pattern string, handler any, methods ...string) *Route { return nil }

type Awaiter[T any] struct{}

func (a Awaiter[T]) IsCompleted() bool                { return true }
func (a Awaiter[T]) OnCompleted(continuation func()) {}
func (a Awaiter[T]) GetResult() (T, error)            { var zero T; return zero, nil }

type VoidAwaiter struct{}

func (a VoidAwaiter) IsCompleted() bool                { return true }
func (a VoidAwaiter) OnCompleted(continuation func()) {}
func (a VoidAwaiter) GetResult() error                 { return nil }

type Task[T any] struct{}

func (t Task[T]) GetAwaiter() Awaiter[T] { return Awaiter[T]{} }

type ValueTask[T any] struct{}

func (t ValueTask[T]) GetAwaiter() Awaiter[T] { return Awaiter[T]{} }

type VoidTask struct{}

func (t VoidTask) GetAwaiter() VoidAwaiter { return VoidAwaiter{} }

type VoidValueTask struct{}

func (t VoidValueTask) GetAwaiter() VoidAwaiter { return VoidAwaiter{} }

type Result interface {
	ExecuteResult(w http.ResponseWriter, r *http.Request) error
}
