package service

import (
	"context"
	"encoding/json"
	"net"
	"os"
	"time"

	"go.uber.org/zap"
)

// handlerFunc is one method's dispatch target.
type handlerFunc func(ctx context.Context, params json.RawMessage) (interface{}, *Error)

// connQueueDepth bounds how many in-flight requests one connection may
// have at once, per spec.md §9's "Global state...encapsulated" intent
// extended to per-connection resource limits. Once that many are
// running, the connection stops reading new frames until one completes
// (backpressure); over-limit requests wait and are never rejected.
const connQueueDepth = 32

func (s *Service) routes() map[string]handlerFunc {
	return map[string]handlerFunc{
		"map":      s.handleMap,
		"query":    s.handleQuery,
		"pathfind": s.handlePathfind,
		"similar":  s.handleSimilar,
		"status":   s.handleStatus,
		"clear":    s.handleClear,
	}
}

// Listener owns the Unix domain socket accept loop.
type Listener struct {
	svc        *Service
	socketPath string
	listener   net.Listener
	logger     *zap.Logger
}

// Listen binds socketPath, removing a stale socket file left behind by
// a prior unclean shutdown before binding.
func Listen(svc *Service, socketPath string, logger *zap.Logger) (*Listener, error) {
	if _, err := os.Stat(socketPath); err == nil {
		os.Remove(socketPath)
	}
	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, err
	}
	return &Listener{svc: svc, socketPath: socketPath, listener: ln, logger: logger}, nil
}

// Serve accepts connections until ctx is cancelled or Close is called.
func (l *Listener) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		l.listener.Close()
	}()

	for {
		conn, err := l.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		go l.handleConn(ctx, conn)
	}
}

// Close tears down the listener and removes the socket file.
func (l *Listener) Close() error {
	err := l.listener.Close()
	os.Remove(l.socketPath)
	return err
}

func (l *Listener) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	routes := l.svc.routes()
	sem := make(chan struct{}, connQueueDepth)

	for {
		var env Envelope
		if err := readFrame(conn, &env); err != nil {
			return
		}

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			return
		}

		go func(env Envelope) {
			defer func() { <-sem }()
			resp := l.dispatch(ctx, routes, env)
			if err := writeFrame(conn, resp); err != nil {
				l.logger.Debug("write response failed", zap.Error(err))
			}
		}(env)
	}
}

func (l *Listener) dispatch(ctx context.Context, routes map[string]handlerFunc, env Envelope) Response {
	start := time.Now()
	h, ok := routes[env.Method]
	if !ok {
		l.recordRPC(env.Method, "unknown_method", start)
		return Response{Err: newError(CodeUnknownMethod, "unknown method: "+env.Method)}
	}

	result, cerr := h(ctx, env.Params)
	if cerr != nil {
		l.recordRPC(env.Method, string(cerr.Code), start)
		return Response{Err: cerr}
	}
	body, err := json.Marshal(result)
	if err != nil {
		l.recordRPC(env.Method, "marshal_error", start)
		return Response{Err: newError(CodeInternal, err.Error())}
	}
	l.recordRPC(env.Method, "ok", start)
	return Response{Result: body}
}

func (l *Listener) recordRPC(method, outcome string, start time.Time) {
	if l.svc.metrics != nil {
		l.svc.metrics.RecordRPC(method, outcome, time.Since(start))
	}
}
