package runtime

import (
	"context"

	"upsync.dev/upsync/internal/actions/sync"
	"upsync.dev/upsync/internal/config"
	"upsync.dev/upsync/internal/git"
	"upsync.dev/upsync/internal/output"
)

// Context provides access to settings and output for commands
type Context struct {
	Context  context.Context
	Splog    *output.Splog
	Settings config.Settings
}

// NewContext creates a new context
func NewContext(ctx context.Context, splog *output.Splog, settings config.Settings) *Context {
	return &Context{
		Context:  ctx,
		Splog:    splog,
		Settings: settings,
	}
}

// RetryPolicy returns the credential retry policy from the settings
func (c *Context) RetryPolicy() git.RetryPolicy {
	return git.RetryPolicy{
		MaxAttempts: c.Settings.AuthRetries,
		Interval:    c.Settings.AuthRetryInterval,
	}
}

// SyncEngine returns an engine logging to this context's Splog.
func (c *Context) SyncEngine(opts ...sync.Option) *sync.Engine {
	opts = append([]sync.Option{sync.WithRetryPolicy(c.RetryPolicy())}, opts...)
	return sync.NewEngine(c.Splog, opts...)
}

type contextKey struct{}

// WithContext returns a copy of parent carrying rc
func WithContext(parent context.Context, rc *Context) context.Context {
	return context.WithValue(parent, contextKey{}, rc)
}

// FromContext returns the Context stored by WithContext, or nil
func FromContext(ctx context.Context) *Context {
	rc, _ := ctx.Value(contextKey{}).(*Context)
	return rc
}
