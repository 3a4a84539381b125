package data

import (
	"net/url"
	"strings"
)

// Schemes understood by the catalog store factory.
const (
	MemScheme    = "mem"
	RedisScheme  = "redis"
	ValkeyScheme = "valkey"
	NatsScheme   = "nats"
)

// A DSN for conveniently handling a URI connection string.
type DSN string

func (d DSN) String() string {
	return string(d)
}

// Scheme returns the lower cased scheme of the connection string, or an
// empty string when it cannot be parsed.
func (d DSN) Scheme() string {
	u, err := d.ToURI()
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Scheme)
}

func (d DSN) IsMem() bool {
	return d == "" || d.Scheme() == MemScheme
}

func (d DSN) IsRedis() bool {
	return d.Scheme() == RedisScheme
}

func (d DSN) IsValkey() bool {
	return d.Scheme() == ValkeyScheme
}

func (d DSN) IsNats() bool {
	return d.Scheme() == NatsScheme
}

// IsCache reports whether the DSN points at a supported remote key/value store.
func (d DSN) IsCache() bool {
	return d.IsRedis() || d.IsValkey() || d.IsNats()
}

func (d DSN) ToURI() (*url.URL, error) {
	return url.Parse(string(d))
}

// Host returns the host:port part of the DSN.
func (d DSN) Host() string {
	u, err := d.ToURI()
	if err != nil {
		return ""
	}
	return u.Host
}

// WithScheme swaps the scheme, keeping every other part intact. Valkey speaks
// the redis protocol so its client expects redis:// URLs.
func (d DSN) WithScheme(scheme string) DSN {
	u, err := d.ToURI()
	if err != nil {
		return d
	}
	u.Scheme = scheme
	return DSN(u.String())
}

func (d DSN) GetQuery(key string) string {
	u, err := d.ToURI()
	if err != nil {
		return ""
	}

	return u.Query().Get(key)
}
