package snsctx

import (
	"context"
	"time"
)

type ctxIndex int

const (
	ctxIndexVerbose ctxIndex = iota
	ctxIndexClock
)

// Clock supplies timestamps for acquired events.
type Clock func() time.Time

func IsVerbose(ctx context.Context) bool {
	val := ctx.Value(ctxIndexVerbose)
	if val == nil {
		return false
	}
	return val.(bool)
}

func SetVerbose(ctx context.Context, value bool) context.Context {
	return context.WithValue(ctx, ctxIndexVerbose, value)
}

// WithClock attaches the clock used by Now.
func WithClock(ctx context.Context, clock Clock) context.Context {
	return context.WithValue(ctx, ctxIndexClock, clock)
}

// Now returns the time from the context clock or the host clock if none is set.
func Now(ctx context.Context) time.Time {
	clock, ok := ctx.Value(ctxIndexClock).(Clock)
	if !ok || clock == nil {
		return time.Now()
	}
	return clock()
}
