package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
)

const defaultResultBufferSize = 10

var ErrResultChannelClosed = errors.New("result channel is already closed")

// Result represents the outcome of one unit of work, either a value of type
// T or an error.
type Result[T any] interface {
	IsError() bool
	Error() error
	Item() T
}

// ResultPipe is a channel-based pipeline for passing work results between
// the goroutines producing them and the one collecting them.
type ResultPipe[T any] interface {
	WriteError(ctx context.Context, val error) error
	WriteResult(ctx context.Context, val T) error
	ReadResult(ctx context.Context) (Result[T], bool)
	Close()
}

type result[T any] struct {
	item T
	err  error
}

func (r *result[T]) IsError() bool {
	return r.err != nil
}

func (r *result[T]) Error() error {
	return r.err
}

func (r *result[T]) Item() T {
	return r.item
}

func Value[T any](item T) Result[T] {
	return &result[T]{item: item}
}

func Error[T any](err error) Result[T] {
	return &result[T]{err: err}
}

// Pipe is the concrete ResultPipe implementation.
type Pipe[T any] struct {
	ch   chan Result[T]
	done atomic.Bool
}

// NewPipe creates a pipe with the default buffer size.
func NewPipe[T any]() *Pipe[T] {
	return NewPipeWithBuffer[T](defaultResultBufferSize)
}

// NewPipeWithBuffer creates a pipe with the given buffer size.
func NewPipeWithBuffer[T any](buffer int) *Pipe[T] {
	if buffer <= 0 {
		buffer = defaultResultBufferSize
	}
	return &Pipe[T]{ch: make(chan Result[T], buffer)}
}

func (p *Pipe[T]) WriteError(ctx context.Context, val error) error {
	if p.done.Load() {
		return ErrResultChannelClosed
	}
	return safeWrite(ctx, p.ch, Error[T](val))
}

func (p *Pipe[T]) WriteResult(ctx context.Context, val T) error {
	if p.done.Load() {
		return ErrResultChannelClosed
	}
	return safeWrite(ctx, p.ch, Value[T](val))
}

func (p *Pipe[T]) ReadResult(ctx context.Context) (Result[T], bool) {
	return safeRead(ctx, p.ch)
}

func (p *Pipe[T]) Close() {
	if p.done.CompareAndSwap(false, true) {
		close(p.ch)
	}
}

func safeWrite[T any](ctx context.Context, ch chan<- Result[T], value Result[T]) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("context canceled while writing to channel: %w", ctx.Err())
	default:
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("context canceled while writing to channel: %w", ctx.Err())
	case ch <- value:
		return nil
	}
}

func safeRead[T any](ctx context.Context, ch <-chan Result[T]) (Result[T], bool) {
	select {
	case <-ctx.Done():
		var zero Result[T]
		return zero, false
	default:
	}

	select {
	case <-ctx.Done():
		var zero Result[T]
		return zero, false
	case res, ok := <-ch:
		return res, ok
	}
}

// Consume drains a pipe, feeding every value to consumer until the pipe
// closes, the context ends, or an error value arrives.
func Consume[T any](ctx context.Context, pipe ResultPipe[T], consumer func(T)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			res, ok := pipe.ReadResult(ctx)
			if !ok {
				return nil
			}

			if res.IsError() {
				return res.Error()
			}

			consumer(res.Item())
		}
	}
}
