package routegen

import (
	"context"
	"fmt"
)

// Tasks are the asynchronous return types handlers may use. Each exposes
// GetAwaiter, and each awaiter exposes IsCompleted, OnCompleted and
// GetResult; generated dispatchers and the reflective path await any type
// with that shape, not only these.

// promise is a value produced once.
type promise[T any] struct {
	done chan struct{}
	val  T
	err  error
}

func newPromise[T any]() *promise[T] {
	return &promise[T]{done: make(chan struct{})}
}

func resolved[T any](v T, err error) *promise[T] {
	p := newPromise[T]()
	p.resolve(v, err)
	return p
}

func (p *promise[T]) resolve(v T, err error) {
	p.val, p.err = v, err
	close(p.done)
}

// Awaiter awaits a Task or ValueTask. The zero Awaiter is complete with the
// zero value.
type Awaiter[T any] struct {
	p *promise[T]
}

// IsCompleted reports whether GetResult would return without blocking.
func (a Awaiter[T]) IsCompleted() bool {
	if a.p == nil {
		return true
	}
	select {
	case <-a.p.done:
		return true
	default:
		return false
	}
}

// OnCompleted calls continuation once the result is available, on another
// goroutine.
func (a Awaiter[T]) OnCompleted(continuation func()) {
	if a.p == nil {
		go continuation()
		return
	}
	go func() {
		<-a.p.done
		continuation()
	}()
}

// GetResult blocks until the result is available.
func (a Awaiter[T]) GetResult() (T, error) {
	if a.p == nil {
		var zero T
		return zero, nil
	}
	<-a.p.done
	return a.p.val, a.p.err
}

// Task is a value computed on another goroutine.
type Task[T any] struct {
	p *promise[T]
}

// Run starts fn on a new goroutine. A panic in fn becomes the task's error.
func Run[T any](ctx context.Context, fn func(context.Context) (T, error)) Task[T] {
	p := newPromise[T]()
	go func() {
		var (
			v   T
			err error
		)
		defer func() {
			if rec := recover(); rec != nil {
				var zero T
				v, err = zero, fmt.Errorf("routegen: task panicked: %v", rec)
			}
			p.resolve(v, err)
		}()
		v, err = fn(ctx)
	}()
	return Task[T]{p: p}
}

// FromResult returns a completed task.
func FromResult[T any](v T) Task[T] {
	return Task[T]{p: resolved(v, nil)}
}

// FromError returns a failed task.
func FromError[T any](err error) Task[T] {
	var zero T
	return Task[T]{p: resolved(zero, err)}
}

func (t Task[T]) GetAwaiter() Awaiter[T] { return Awaiter[T]{p: t.p} }

// Wait blocks until the task completes or ctx is done.
func (t Task[T]) Wait(ctx context.Context) (T, error) {
	if t.p == nil {
		var zero T
		return zero, nil
	}
	select {
	case <-t.p.done:
		return t.p.val, t.p.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// ValueTask is either an immediate value or a Task. Returning an immediate
// ValueTask does not start a goroutine.
type ValueTask[T any] struct {
	val  T
	err  error
	task *Task[T]
}

// ValueOf returns a completed ValueTask.
func ValueOf[T any](v T) ValueTask[T] {
	return ValueTask[T]{val: v}
}

// AsValueTask wraps t.
func AsValueTask[T any](t Task[T]) ValueTask[T] {
	return ValueTask[T]{task: &t}
}

func (t ValueTask[T]) GetAwaiter() Awaiter[T] {
	if t.task != nil {
		return t.task.GetAwaiter()
	}
	return Awaiter[T]{p: resolved(t.val, t.err)}
}

// VoidAwaiter awaits a VoidTask or VoidValueTask.
type VoidAwaiter struct {
	a Awaiter[struct{}]
}

func (a VoidAwaiter) IsCompleted() bool { return a.a.IsCompleted() }

func (a VoidAwaiter) OnCompleted(continuation func()) { a.a.OnCompleted(continuation) }

func (a VoidAwaiter) GetResult() error {
	_, err := a.a.GetResult()
	return err
}

// VoidTask is work without a result, run on another goroutine.
type VoidTask struct {
	t Task[struct{}]
}

// RunVoid starts fn on a new goroutine.
func RunVoid(ctx context.Context, fn func(context.Context) error) VoidTask {
	return VoidTask{t: Run(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})}
}

// CompletedVoid returns a VoidTask that has already finished with err.
func CompletedVoid(err error) VoidTask {
	return VoidTask{t: Task[struct{}]{p: resolved(struct{}{}, err)}}
}

func (t VoidTask) GetAwaiter() VoidAwaiter { return VoidAwaiter{a: t.t.GetAwaiter()} }

// VoidValueTask is either an immediate outcome or a VoidTask.
type VoidValueTask struct {
	v ValueTask[struct{}]
}

// VoidValueOf returns a VoidValueTask that has already finished with err.
func VoidValueOf(err error) VoidValueTask {
	return VoidValueTask{v: ValueTask[struct{}]{err: err}}
}

// AsValueTask wraps t.
func (t VoidTask) AsValueTask() VoidValueTask {
	return VoidValueTask{v: AsValueTask(t.t)}
}

func (t VoidValueTask) GetAwaiter() VoidAwaiter { return VoidAwaiter{a: t.v.GetAwaiter()} }
