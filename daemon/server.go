// Package daemon keeps compiled programs warm in a long running process.
//
// The Server accepts framed requests (see package protocol) on a unix
// socket and answers each with the program's formatted output or error
// message. Compiled programs are shared across connections through one
// synchronized cache. An optional HTTP front end exposes the same
// execution path along with cache statistics.
package daemon

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/deepnoodle-ai/pyreg"
	"github.com/deepnoodle-ai/pyreg/cache"
	"github.com/deepnoodle-ai/pyreg/protocol"
	"github.com/gofrs/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var (
	ErrSocketInUse    = errors.New("socket already in use")
	ErrNotRunning     = errors.New("daemon is not running")
	ErrShutdownFailed = errors.New("daemon failed to shutdown cleanly")
)

// Server is the daemon process.
type Server struct {
	cfg   Config
	log   zerolog.Logger
	cache *cache.Synchronized

	ready    chan struct{}
	httpAddr string

	mu    sync.Mutex
	conns map[net.Conn]struct{}
	wg    sync.WaitGroup
}

// NewServer prepares a server. A socket file left behind by a daemon that
// is no longer listening is removed; a live one yields ErrSocketInUse.
func NewServer(cfg Config) (*Server, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(cfg.SocketPath); err == nil {
		if conn, err := net.DialTimeout("unix", cfg.SocketPath, time.Second); err == nil {
			conn.Close()
			return nil, fmt.Errorf("%w: %s", ErrSocketInUse, cfg.SocketPath)
		}
		if err := os.Remove(cfg.SocketPath); err != nil {
			return nil, fmt.Errorf("removing stale socket: %w", err)
		}
		cfg.Logger.Info().Str("socket", cfg.SocketPath).Msg("removed stale socket")
	}
	return &Server{
		cfg:   cfg,
		log:   *cfg.Logger,
		cache: cache.NewSynchronized(cache.NewLRU(cfg.CacheSize)),
		ready: make(chan struct{}),
		conns: map[net.Conn]struct{}{},
	}, nil
}

// Ready is closed once the server is accepting connections.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// HTTPAddr returns the bound HTTP address once Ready is closed, or "" when
// the HTTP front end is disabled.
func (s *Server) HTTPAddr() string {
	return s.httpAddr
}

// Cache returns the cache shared by all requests.
func (s *Server) Cache() cache.Cache {
	return s.cache
}

// Serve runs until ctx is canceled, then closes every connection and
// removes the socket and PID files.
func (s *Server) Serve(ctx context.Context) (err error) {
	listener, err := net.Listen("unix", s.cfg.SocketPath)
	if err != nil {
		return err
	}
	defer func() {
		if cleanupErr := s.cleanup(); cleanupErr != nil {
			err = multierror.Append(err, cleanupErr).ErrorOrNil()
		}
	}()
	if err := os.Chmod(s.cfg.SocketPath, 0o600); err != nil {
		listener.Close()
		return err
	}
	if err := os.WriteFile(s.cfg.PIDFile, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		listener.Close()
		return fmt.Errorf("writing PID file: %w", err)
	}

	var (
		httpServer   *http.Server
		httpListener net.Listener
	)
	if s.cfg.HTTPAddr != "" {
		httpListener, err = net.Listen("tcp", s.cfg.HTTPAddr)
		if err != nil {
			listener.Close()
			return err
		}
		s.httpAddr = httpListener.Addr().String()
		httpServer = &http.Server{
			Handler:      s.Handler(),
			ReadTimeout:  s.cfg.ReadTimeout,
			WriteTimeout: s.cfg.WriteTimeout,
			IdleTimeout:  s.cfg.IdleTimeout,
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.acceptLoop(gctx, listener)
	})
	if httpServer != nil {
		g.Go(func() error {
			if err := httpServer.Serve(httpListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		listener.Close()
		s.closeConns()
		if httpServer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.WriteTimeout)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		}
		return nil
	})

	s.log.Info().
		Str("socket", s.cfg.SocketPath).
		Str("http", s.httpAddr).
		Int("pid", os.Getpid()).
		Msg("daemon started")
	close(s.ready)

	err = g.Wait()
	s.wg.Wait()
	s.log.Info().Msg("daemon stopped")
	return err
}

func (s *Server) acceptLoop(ctx context.Context, listener net.Listener) error {
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.log.Error().Err(err).Msg("accept failed")
			continue
		}
		if !s.track(conn) {
			conn.Close()
			return nil
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.untrack(conn)
			s.handleConn(ctx, conn)
		}()
	}
}

func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conns == nil {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, conn)
	conn.Close()
}

func (s *Server) closeConns() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		conn.Close()
	}
	s.conns = nil
}

// handleConn serves requests on one connection until the client closes it,
// it sits idle past the idle timeout or a framing error occurs.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	log := s.log.With().Str("conn", uuid.Must(uuid.NewV4()).String()).Logger()
	log.Debug().Msg("connection opened")
	defer log.Debug().Msg("connection closed")

	machine := pyreg.NewVM(pyreg.WithCache(s.cache))
	reader := bufio.NewReader(conn)
	for {
		if err := conn.SetReadDeadline(time.Now().Add(s.cfg.IdleTimeout)); err != nil {
			return
		}
		req, err := protocol.ReadRequest(reader, protocol.MaxMessageSize)
		if err != nil {
			var protoErr *protocol.Error
			var netErr net.Error
			switch {
			case errors.Is(err, io.EOF):
			case errors.As(err, &netErr) && netErr.Timeout():
				log.Debug().Msg("idle timeout")
			case errors.As(err, &protoErr):
				log.Warn().Err(err).Msg("bad request")
				s.writeResponse(conn, protocol.Failure(err.Error()))
			default:
				if ctx.Err() == nil {
					log.Warn().Err(err).Msg("read failed")
				}
			}
			return
		}
		resp := execute(ctx, machine, req.Source)
		log.Debug().
			Int("bytes", len(req.Source)).
			Stringer("status", resp.Status).
			Msg("request served")
		if err := s.writeResponse(conn, resp); err != nil {
			log.Warn().Err(err).Msg("write failed")
			return
		}
	}
}

func (s *Server) writeResponse(conn net.Conn, resp protocol.Response) error {
	if err := conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout)); err != nil {
		return err
	}
	return protocol.WriteResponse(conn, resp)
}

func execute(ctx context.Context, machine *pyreg.VM, source string) protocol.Response {
	output, err := machine.Eval(ctx, source)
	if err != nil {
		return protocol.Failure(err.Error())
	}
	return protocol.Success(output)
}

func (s *Server) cleanup() error {
	var result *multierror.Error
	for _, path := range []string{s.cfg.SocketPath, s.cfg.PIDFile} {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
