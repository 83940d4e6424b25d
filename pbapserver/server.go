package pbapserver

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/bmwcarit/gopbap/obex"
	"github.com/bmwcarit/gopbap/vfolder"
	"github.com/charmbracelet/log"
)

// ServerOption configures a Server instance.
type ServerOption func(*Server)

// WithReadTimeout sets the read timeout applied to every accepted
// connection.
func WithReadTimeout(d time.Duration) ServerOption {
	return func(s *Server) { s.ReadTimeout = d }
}

// WithWriteTimeout sets the write timeout applied to every accepted
// connection.
func WithWriteTimeout(d time.Duration) ServerOption {
	return func(s *Server) { s.WriteTimeout = d }
}

// WithSessionOptions forwards opts to every Session the server constructs.
func WithSessionOptions(opts ...Option) ServerOption {
	return func(s *Server) { s.sessionOpts = append(s.sessionOpts, opts...) }
}

// Server exposes a reusable PSE listener that wires a vfolder.Store into a
// fresh Session per accepted connection, grounded on server.Server's
// functional-options accept loop.
type Server struct {
	RootDir      string
	Store        vfolder.Store
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	sessionOpts []Option
}

// New builds a Server rooted at rootDir against store.
func New(store vfolder.Store, rootDir string, opts ...ServerOption) *Server {
	srv := &Server{Store: store, RootDir: rootDir}
	for _, opt := range opts {
		opt(srv)
	}
	return srv
}

// ListenAndServe listens on address and serves until ctx is done or an
// unrecoverable error occurs.
func ListenAndServe(ctx context.Context, address string, store vfolder.Store, rootDir string, opts ...ServerOption) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return err
	}
	defer listener.Close()

	srv := New(store, rootDir, opts...)
	return srv.Serve(ctx, listener)
}

// Serve accepts connections from listener until ctx is cancelled or an
// unrecoverable error occurs, running one Session per connection (§5:
// single-connection PSE, each connection gets its own mch_seen and
// current_dir state).
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	if listener == nil {
		return errors.New("pbapserver: listener is required")
	}
	if s.Store == nil {
		return errors.New("pbapserver: store is required")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	log.Info("pbapserver listening", "address", listener.Addr().String(), "root_dir", s.RootDir)

	var (
		wg       sync.WaitGroup
		serveErr error
	)

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				log.Warn("pbapserver: accept timeout", "error", err)
				continue
			}
			serveErr = err
			break
		}

		wg.Add(1)
		go func(c net.Conn) {
			defer wg.Done()
			s.handleConnection(ctx, c)
		}(conn)
	}

	wg.Wait()

	if serveErr != nil {
		return serveErr
	}
	return ctx.Err()
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	log.Info("pbapserver: accepted connection", "remote_addr", conn.RemoteAddr())

	if s.ReadTimeout > 0 {
		if err := conn.SetReadDeadline(time.Now().Add(s.ReadTimeout)); err != nil {
			log.Warn("pbapserver: failed to set read deadline", "error", err)
		}
	}
	if s.WriteTimeout > 0 {
		if err := conn.SetWriteDeadline(time.Now().Add(s.WriteTimeout)); err != nil {
			log.Warn("pbapserver: failed to set write deadline", "error", err)
		}
	}
	defer conn.Close()

	// Closing the connection when ctx ends unblocks the session's pending
	// read, so Serve can return after cancellation.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	session := NewSession(s.Store, s.RootDir, s.sessionOpts...)
	oc := obex.NewConn(conn)

	if err := session.Serve(oc); err != nil && ctx.Err() == nil {
		log.Warn("pbapserver: connection ended", "error", err, "remote_addr", conn.RemoteAddr())
		return
	}
	log.Info("pbapserver: connection closed", "remote_addr", conn.RemoteAddr())
}
