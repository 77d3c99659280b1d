// Package irrecoverable distinguishes errors a component can recover from
// (returned normally to its caller) from ones that leave the process in an
// undefined state and must bring the node down. A SignalerContext carries
// the Throw path alongside the usual cancellation signal so any worker
// given one can report a fatal error without a separate parameter.
package irrecoverable

import (
	"context"
	"log"
	"runtime"
)

// Signaler is the write side of an irrecoverable error channel, owned by
// whatever is supervising a set of workers (normally a ComponentManager).
type Signaler struct {
	errors chan<- error
}

func NewSignaler(errors chan<- error) *Signaler {
	return &Signaler{errors}
}

// Throw reports err as irrecoverable and parks the calling goroutine.
// It is a drop-in replacement for panic/log.Fatal at any point connected
// to the error channel.
func (e *Signaler) Throw(err error) {
	e.errors <- err
	runtime.Goexit()
}

// SignalerContext is a context.Context that also knows how to report an
// irrecoverable error. The sealed method keeps construction routed
// through WithSignaler so Throw is never wired up to the wrong Signaler.
type SignalerContext interface {
	context.Context
	Throw(err error)
	sealed()
}

type signalerCtxt struct {
	context.Context
	signaler *Signaler
}

func (sc signalerCtxt) sealed() {}

func (sc signalerCtxt) Throw(err error) {
	sc.signaler.Throw(err)
}

// WithSignaler attaches sig to ctx, producing the SignalerContext workers
// should use in place of a plain context.Context.
func WithSignaler(ctx context.Context, sig *Signaler) SignalerContext {
	return signalerCtxt{ctx, sig}
}

// Throw reports err on ctx's Signaler if it carries one. Library code that
// only has a context.Context (not a SignalerContext) can still call this
// as a drop-in replacement for panic/log.Fatal; it is a bug if such a
// context was never wrapped with WithSignaler; Throw makes that loud
// rather than silently swallowing the error.
func Throw(ctx context.Context, err error) {
	signalerAbleContext, ok := ctx.(SignalerContext)
	if ok {
		signalerAbleContext.Throw(err)
	}
	log.Fatalf("irrecoverable error signaler not found for context, unhandled error: %v", err)
}
