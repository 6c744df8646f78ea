package actorutil

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/primetalk/goio/io"
)

// SafeBackgroundTask runs a blocking function outside of the actor loop and
// delivers its result, or the recovered error, as a message.
type SafeBackgroundTask[T any] struct {
	ctx       actor.Context
	fn        func(context.Context) (*T, error)
	timeout   *time.Duration
	onError   func(error)
	recover   func(error) T
	onSuccess func(T)
}

func NewBackgroundTask[T any](ctx actor.Context, fn func() (*T, error)) *SafeBackgroundTask[T] {
	return &SafeBackgroundTask[T]{
		ctx: ctx,
		fn: func(context.Context) (*T, error) {
			return fn()
		},
	}
}

// NewBackgroundTaskWithContext hands fn a context that is cancelled when the
// task times out.
func NewBackgroundTaskWithContext[T any](ctx actor.Context, fn func(context.Context) (*T, error)) *SafeBackgroundTask[T] {
	return &SafeBackgroundTask[T]{
		ctx: ctx,
		fn:  fn,
	}
}

func (t *SafeBackgroundTask[T]) WithTimeout(timeout time.Duration) *SafeBackgroundTask[T] {
	t.timeout = &timeout
	return t
}

func (t *SafeBackgroundTask[T]) OnError(fn func(error)) *SafeBackgroundTask[T] {
	t.onError = fn
	return t
}

func (t *SafeBackgroundTask[T]) Recover(fn func(error) T) *SafeBackgroundTask[T] {
	t.recover = fn
	return t
}

func (t *SafeBackgroundTask[T]) OnSuccess(fn func(T)) *SafeBackgroundTask[T] {
	t.onSuccess = fn
	return t
}

// PipeTo runs the task on its own goroutine and sends the result to pid
// through the root context.
func (t *SafeBackgroundTask[T]) PipeTo(pid *actor.PID) {
	root := t.ctx.ActorSystem().Root
	t.onSuccess = func(value T) {
		root.Send(pid, value)
	}
	go t.Run()
}

// Run executes the task on the calling goroutine.
func (t *SafeBackgroundTask[T]) Run() {
	var runCtx context.Context
	var cancel context.CancelFunc
	if t.timeout != nil {
		runCtx, cancel = context.WithTimeout(context.Background(), *t.timeout)
	} else {
		runCtx, cancel = context.WithCancel(context.Background())
	}
	defer cancel()

	bg := io.Eval(func() (value T, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("background task panic: %v", r)
			}
		}()
		a, err := t.fn(runCtx)
		if err != nil {
			return value, err
		}
		if a == nil {
			return value, errors.New("result is nil")
		}
		return *a, nil
	})
	if t.timeout != nil {
		bg = io.WithTimeout[T](*t.timeout)(bg)
	}
	result := io.RunSync(bg)
	if result.Error != nil {
		if t.recover != nil {
			if t.onSuccess != nil {
				t.onSuccess(t.recover(result.Error))
			}
		} else if t.onError != nil {
			t.onError(result.Error)
		}
		return
	}

	if t.onSuccess != nil {
		t.onSuccess(result.Value)
	}
}

func MapBackgroundTask[T, T2 any](bgt *SafeBackgroundTask[T], mapFn func(*T) *T2) *SafeBackgroundTask[T2] {
	newFn := func(ctx context.Context) (*T2, error) {
		r, err := bgt.fn(ctx)
		if err != nil {
			return nil, err
		}
		return mapFn(r), nil
	}
	return &SafeBackgroundTask[T2]{
		ctx:     bgt.ctx,
		fn:      newFn,
		timeout: bgt.timeout,
	}
}
