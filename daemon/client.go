package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/deepnoodle-ai/pyreg"
	"github.com/deepnoodle-ai/pyreg/cache"
	"github.com/deepnoodle-ai/pyreg/protocol"
	"github.com/rs/zerolog"
)

const (
	clientDialTimeout  = time.Second
	clientWriteTimeout = time.Second
	clientReadTimeout  = 5 * time.Second
	stopWaitTimeout    = 2 * time.Second
)

// ExecutionError carries the error message reported by the daemon for a
// program that failed to compile or run.
type ExecutionError struct {
	Message string
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	return e.Message
}

// Client talks to a running daemon.
type Client struct {
	cfg   Config
	log   zerolog.Logger
	local *cache.LRU
}

// NewClient returns a client for the daemon described by cfg.
func NewClient(cfg Config) (*Client, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}
	return &Client{cfg: cfg, log: *cfg.Logger, local: cache.Local()}, nil
}

// Execute sends source to the daemon and returns its formatted output.
// Programs that fail are reported as *ExecutionError.
func (c *Client) Execute(ctx context.Context, source string) (string, error) {
	dialer := net.Dialer{Timeout: clientDialTimeout}
	conn, err := dialer.DialContext(ctx, "unix", c.cfg.SocketPath)
	if err != nil {
		return "", fmt.Errorf("connecting to daemon: %w", err)
	}
	defer conn.Close()

	if err := conn.SetWriteDeadline(time.Now().Add(clientWriteTimeout)); err != nil {
		return "", err
	}
	if err := protocol.WriteRequest(conn, protocol.Request{Source: source}); err != nil {
		return "", fmt.Errorf("writing to daemon: %w", err)
	}
	readDeadline := time.Now().Add(clientReadTimeout)
	if deadline, ok := ctx.Deadline(); ok {
		readDeadline = deadline
	}
	if err := conn.SetReadDeadline(readDeadline); err != nil {
		return "", err
	}
	resp, err := protocol.ReadResponse(conn, protocol.MaxMessageSize)
	if err != nil {
		return "", fmt.Errorf("reading from daemon: %w", err)
	}
	if !resp.IsSuccess() {
		return "", &ExecutionError{Message: resp.Output}
	}
	return resp.Output, nil
}

// ExecuteOrFallback runs source on the daemon, or in process with a local
// cache when the daemon cannot be reached. A program that the daemon ran
// and rejected is not run again.
func (c *Client) ExecuteOrFallback(ctx context.Context, source string, opts ...pyreg.Option) (string, error) {
	output, err := c.Execute(ctx, source)
	if err == nil {
		return output, nil
	}
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return "", err
	}
	c.log.Debug().Err(err).Msg("daemon unavailable, executing locally")
	return pyreg.ExecuteCached(ctx, c.local, source, opts...)
}

// Running reports whether a daemon accepts connections on the socket.
func (c *Client) Running() bool {
	conn, err := net.DialTimeout("unix", c.cfg.SocketPath, clientDialTimeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// Status returns a one line description of the daemon state.
func (c *Client) Status() string {
	if c.Running() {
		return "Daemon is running"
	}
	return "Daemon is not running"
}

// PID returns the process id recorded in the PID file.
func (c *Client) PID() (int, error) {
	data, err := os.ReadFile(c.cfg.PIDFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, ErrNotRunning
		}
		return 0, fmt.Errorf("reading PID file: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID: %w", err)
	}
	return pid, nil
}

// Stop signals the daemon to exit and waits for it to remove its socket.
func (c *Client) Stop(ctx context.Context) error {
	pid, err := c.PID()
	if err != nil {
		return err
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("signaling daemon: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, stopWaitTimeout)
	defer cancel()
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		if _, err := os.Stat(c.cfg.SocketPath); errors.Is(err, os.ErrNotExist) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ErrShutdownFailed
		case <-ticker.C:
		}
	}
}

// Stats fetches cache statistics from the daemon's HTTP front end.
func (c *Client) Stats(ctx context.Context) (cache.Stats, error) {
	var stats cache.Stats
	resp, err := c.httpDo(ctx, http.MethodGet, "/stats")
	if err != nil {
		return stats, err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return stats, fmt.Errorf("decoding stats: %w", err)
	}
	return stats, nil
}

// ClearCache empties the daemon's cache through its HTTP front end.
func (c *Client) ClearCache(ctx context.Context) error {
	resp, err := c.httpDo(ctx, http.MethodDelete, "/cache")
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

func (c *Client) httpDo(ctx context.Context, method, path string) (*http.Response, error) {
	if c.cfg.HTTPAddr == "" {
		return nil, errors.New("daemon HTTP address is not configured")
	}
	req, err := http.NewRequestWithContext(ctx, method, "http://"+c.cfg.HTTPAddr+path, bytes.NewReader(nil))
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("daemon returned %s", resp.Status)
	}
	return resp, nil
}
