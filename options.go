package asynccore

import (
	"github.com/joeycumines/logiface"
)

// coreOptions holds configuration options for Core creation.
type coreOptions struct {
	panicHandler func(error)
	logger       *logiface.Logger[logiface.Event]
	autoStart    bool
}

// Option configures a [Core] instance.
type Option interface {
	applyCore(*coreOptions) error
}

// optionImpl implements Option.
type optionImpl struct {
	applyCoreFunc func(*coreOptions) error
}

func (o *optionImpl) applyCore(opts *coreOptions) error {
	return o.applyCoreFunc(opts)
}

// WithPanicHandler installs a handler for panics recovered from task bodies.
// The handler is invoked on the exact worker goroutine that was polling when
// the task failed; it must not block for long, as the worker cannot poll while
// the handler runs. Without a handler, task panics are swallowed (after
// logging, if a logger is configured).
func WithPanicHandler(fn func(error)) Option {
	return &optionImpl{func(opts *coreOptions) error {
		opts.panicHandler = fn
		return nil
	}}
}

// WithLogger configures structured logging for lifecycle transitions and
// recovered task panics. A nil logger (the default) disables logging.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &optionImpl{func(opts *coreOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithAutoStart controls whether [New] starts the core before returning.
// Defaults to true. When disabled, call [Core.Start] explicitly.
func WithAutoStart(enabled bool) Option {
	return &optionImpl{func(opts *coreOptions) error {
		opts.autoStart = enabled
		return nil
	}}
}
