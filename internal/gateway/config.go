package gateway

import (
	"cmp"
	"time"
)

// Listener defaults. The port is the one conventionally left to
// Prometheus exporters.
const (
	DefaultBind            = "127.0.0.1:9464"
	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultShutdownTimeout = 5 * time.Second
)

// Config controls the status listener. Zero fields take the Default* values.
type Config struct {
	Bind            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

func (c *Config) defaults() {
	c.Bind = cmp.Or(c.Bind, DefaultBind)
	c.ReadTimeout = positiveOr(c.ReadTimeout, DefaultReadTimeout)
	c.WriteTimeout = positiveOr(c.WriteTimeout, DefaultWriteTimeout)
	c.ShutdownTimeout = positiveOr(c.ShutdownTimeout, DefaultShutdownTimeout)
}

func positiveOr(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
