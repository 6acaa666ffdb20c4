package dashboard

import (
	"context"
	"log/slog"

	"github.com/elektroapp/elektrodash/pkg/api"
	"github.com/elektroapp/elektrodash/pkg/log"
)

// SliceError is a failed fetch: the normalized error plus the text shown to
// the user.
type SliceError struct {
	api.ErrorMessage
	Text string `json:"text"`
}

// Slice is the state of one remote resource.
type Slice[T any] struct {
	Data          *T          `json:"data"`
	Loading       bool        `json:"loading"`
	Error         *SliceError `json:"error"`
	FromCache     bool        `json:"from_cache"`
	CacheFallback bool        `json:"cache_fallback"`

	// seq identifies the latest request. Completions of older requests are
	// dropped.
	seq uint64
}

type cacheFlagger interface {
	CacheFlags() (fromCache, cacheFallback bool)
}

// loadOpts controls how a request affects its slice.
type loadOpts struct {
	// reset clears data and flags before the request starts.
	reset bool
	// silent does not raise Loading.
	silent bool
	// clearOnError drops data when the request fails.
	clearOnError bool
	// errorText renders the user-visible error, api.InfluxError by default.
	errorText func(error) string
}

func (o loadOpts) text(err error) string {
	if o.errorText != nil {
		return o.errorText(err)
	}
	return api.InfluxError(err)
}

func (s *Slice[T]) begin(o loadOpts) uint64 {
	s.seq++
	if o.reset {
		s.Data = nil
		s.FromCache = false
		s.CacheFallback = false
	}
	s.Error = nil
	if !o.silent {
		s.Loading = true
	}
	return s.seq
}

// finish applies a completed request. It returns false when a newer request
// has superseded this one.
func (s *Slice[T]) finish(seq uint64, o loadOpts, v T, err error) bool {
	if seq != s.seq {
		return false
	}
	s.Loading = false
	if err != nil {
		msg := api.Extract(err)
		s.Error = &SliceError{ErrorMessage: msg, Text: o.text(err)}
		s.FromCache = false
		s.CacheFallback = false
		if o.clearOnError {
			s.Data = nil
		}
		return true
	}
	s.Data = &v
	s.FromCache, s.CacheFallback = false, false
	if cf, ok := any(s.Data).(cacheFlagger); ok {
		s.FromCache, s.CacheFallback = cf.CacheFlags()
	}
	return true
}

// fetch runs one request for the slice selected by sel and waits for it.
func fetch[T any](ctx context.Context, c *Coordinator, name string, sel func(*state) *Slice[T], o loadOpts, fn func(context.Context) (T, error)) (T, error) {
	c.mu.Lock()
	seq := sel(&c.state).begin(o)
	c.mu.Unlock()
	c.notify()
	v, _, err := complete(ctx, c, name, sel, o, seq, fn)
	return v, err
}

// loadLocked starts a background request for the slice selected by sel. The
// caller holds c.mu, so the request is numbered in trigger order.
func loadLocked[T any](c *Coordinator, name string, sel func(*state) *Slice[T], o loadOpts, fn func(context.Context) (T, error)) {
	seq := sel(&c.state).begin(o)
	ctx := c.ctx
	c.spawn(func() {
		complete(ctx, c, name, sel, o, seq, fn)
	})
}

// complete runs fn and applies its result to the slice. applied is false when
// a newer request superseded this one.
func complete[T any](ctx context.Context, c *Coordinator, name string, sel func(*state) *Slice[T], o loadOpts, seq uint64, fn func(context.Context) (T, error)) (T, bool, error) {
	v, err := fn(ctx)
	if err != nil {
		msg := api.Extract(err)
		log.Ctx(ctx).ErrorContext(
			ctx,
			"failed to fetch "+name,
			slog.String("resource", name),
			slog.String("code", msg.Code),
			slog.Int("status", msg.Status),
			slog.String("requestID", msg.RequestID),
			slog.Any("error", err),
		)
	}

	c.mu.Lock()
	applied := sel(&c.state).finish(seq, o, v, err)
	c.mu.Unlock()
	if applied {
		c.notify()
	} else {
		log.Ctx(ctx).DebugContext(ctx, "dropped stale response", slog.String("resource", name), slog.Uint64("seq", seq))
	}
	return v, applied, err
}
