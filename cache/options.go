package cache

import (
	"time"

	"github.com/pitabwire/messageformat/data"
)

const (
	DefaultName   = "messageformat"
	DefaultMaxAge = time.Hour
)

// Option configures a cache backend.
type Option func(*Options)

// Options holds cache backend configuration.
type Options struct {
	DSN    data.DSN
	Name   string
	MaxAge time.Duration
}

// NewOptions returns Options with defaults applied and opts layered on top.
func NewOptions(opts ...Option) *Options {
	o := &Options{
		DSN:    data.DSN(data.MemScheme + "://"),
		Name:   DefaultName,
		MaxAge: DefaultMaxAge,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func WithDSN(dsn data.DSN) Option {
	return func(o *Options) {
		o.DSN = dsn
	}
}

// WithName sets the bucket or key namespace used by backends that have one.
func WithName(name string) Option {
	return func(o *Options) {
		o.Name = name
	}
}

// WithMaxAge returns an Option to configure the max age of cached items.
func WithMaxAge(maxAge time.Duration) Option {
	return func(o *Options) {
		o.MaxAge = maxAge
	}
}
