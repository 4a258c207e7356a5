package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"pixibuild/internal/errors"
	"pixibuild/internal/protocol"
	"pixibuild/internal/slogutil"
)

// Server serves the build backend protocol. Each stream gets its own
// Session, so TCP clients never observe one another's state.
type Server struct {
	factory protocol.Factory
	logger  *slog.Logger
}

// New creates a server dispatching initialize requests to the factory.
func New(factory protocol.Factory, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	return &Server{factory: factory, logger: logger}
}

// ServeStdio runs a single session over stdin/stdout for the lifetime of
// the process. Logs must go to stderr; stdout carries the protocol.
func (s *Server) ServeStdio(ctx context.Context) error {
	s.logger.Info("Server starting on stdio")
	return s.serve(ctx, os.Stdin, os.Stdout)
}

// ServeTCP listens on addr and serves every connection with its own
// session. It returns when the context is canceled and all connections
// have drained.
func (s *Server) ServeTCP(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrap(errors.Internal, fmt.Sprintf("failed to listen on %s", addr), err)
	}
	return s.ServeListener(ctx, listener)
}

// ServeListener serves connections accepted from an existing listener.
// The listener is closed when the context is canceled.
func (s *Server) ServeListener(ctx context.Context, listener net.Listener) error {
	s.logger.Info("Server listening",
		"addr", listener.Addr().String(),
	)

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	var wg sync.WaitGroup
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			s.logger.Error("Failed to accept connection",
				"error", err.Error(),
			)
			continue
		}

		wg.Add(1)
		go func(conn net.Conn) {
			defer wg.Done()
			defer conn.Close()

			remote := conn.RemoteAddr().String()
			s.logger.Info("Client connected", "remote", remote)
			if err := s.serve(ctx, conn, conn); err != nil {
				s.logger.Error("Connection failed",
					"remote", remote,
					"error", err.Error(),
				)
				return
			}
			s.logger.Info("Client disconnected", "remote", remote)
		}(conn)
	}

	wg.Wait()
	return nil
}

// serve runs the message loop for one stream. Requests are handled in
// their own goroutines so a long build does not block further traffic;
// in-flight handlers are drained before returning.
func (s *Server) serve(ctx context.Context, r io.Reader, w io.Writer) error {
	session := NewSession(s.factory, s.logger)
	c := newCodec(r, w, s.logger)

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		msg, err := c.read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.logger.Info("Stream closed (EOF)")
				return nil
			}
			var malformed *malformedMessageError
			if errors.As(err, &malformed) {
				s.logger.Error("Failed to parse message",
					"error", err.Error(),
				)
				_ = c.write(NewErrorMessage(nil, ParseError, malformed.Error(), nil))
				continue
			}
			// The scanner is unusable after a read failure (for
			// example an oversized line), so the stream ends here.
			return err
		}

		if msg.IsNotification() {
			s.logger.Debug("Ignoring notification",
				"method", msg.Method,
			)
			continue
		}
		if !msg.IsRequest() {
			_ = c.write(NewErrorMessage(msg.ID, InvalidRequest,
				"invalid message: not a request or notification", nil))
			continue
		}

		wg.Add(1)
		go func(msg *Message) {
			defer wg.Done()
			s.handleRequest(ctx, session, c, msg)
		}(msg)
	}
}

func (s *Server) handleRequest(ctx context.Context, session *Session, c *codec, msg *Message) {
	s.logger.Debug("Handling request",
		"method", msg.Method,
		"id", msg.ID,
	)
	start := time.Now()

	result, rpcErr := session.Handle(ctx, msg.Method, msg.Params)
	if rpcErr != nil {
		s.logger.Warn("Request failed",
			"method", msg.Method,
			"code", rpcErr.Code,
			"error", rpcErr.Message,
		)
		if err := c.write(NewErrorMessage(msg.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)); err != nil {
			s.logger.Error("Error writing response",
				"error", err.Error(),
			)
		}
		return
	}

	s.logger.Debug("Request completed",
		"method", msg.Method,
		"duration", time.Since(start).String(),
	)
	if err := c.write(NewResultMessage(msg.ID, result)); err != nil {
		s.logger.Error("Error writing response",
			"error", err.Error(),
		)
	}
}
