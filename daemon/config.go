package daemon

import (
	"time"

	"github.com/deepnoodle-ai/pyreg/cache"
	"github.com/mitchellh/go-homedir"
	"github.com/rs/zerolog"
)

const (
	DefaultSocketPath   = "/tmp/pyreg.sock"
	DefaultPIDFile      = "/tmp/pyreg.pid"
	DefaultIdleTimeout  = 5 * time.Second
	DefaultReadTimeout  = 10 * time.Second
	DefaultWriteTimeout = 30 * time.Second
)

// CacheDisabled as Config.CacheSize gives the daemon a zero capacity cache
// that never stores a program.
const CacheDisabled = -1

// Config is shared by Server and Client. Zero fields take their defaults.
type Config struct {
	// SocketPath is the unix socket the daemon listens on. A leading "~"
	// expands to the home directory.
	SocketPath string
	// PIDFile records the daemon's process id while it runs.
	PIDFile string
	// HTTPAddr enables the HTTP front end when set, for example
	// "127.0.0.1:7979".
	HTTPAddr string
	// CacheSize is the capacity of the daemon's compiled program cache.
	// Zero selects cache.DefaultCapacity and CacheDisabled selects zero.
	CacheSize int
	// IdleTimeout closes connections that send no request for this long.
	IdleTimeout time.Duration
	// ReadTimeout bounds the time spent reading one HTTP request.
	ReadTimeout time.Duration
	// WriteTimeout bounds the time spent writing one response.
	WriteTimeout time.Duration
	Logger       *zerolog.Logger
}

func (c Config) withDefaults() (Config, error) {
	if c.SocketPath == "" {
		c.SocketPath = DefaultSocketPath
	}
	if c.PIDFile == "" {
		c.PIDFile = DefaultPIDFile
	}
	var err error
	if c.SocketPath, err = homedir.Expand(c.SocketPath); err != nil {
		return c, err
	}
	if c.PIDFile, err = homedir.Expand(c.PIDFile); err != nil {
		return c, err
	}
	switch {
	case c.CacheSize == 0:
		c.CacheSize = cache.DefaultCapacity
	case c.CacheSize < 0:
		c.CacheSize = 0
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	if c.Logger == nil {
		nop := zerolog.Nop()
		c.Logger = &nop
	}
	return c, nil
}
