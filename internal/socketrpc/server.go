package socketrpc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tinytelemetry/hunters-journal/internal/model"
)

const (
	// scannerInitBufSize is the initial buffer size for the per-connection scanner (1 MB).
	scannerInitBufSize = 1024 * 1024
	// scannerMaxTokenSize is the maximum token size the scanner will accept (10 MB).
	scannerMaxTokenSize = 10 * 1024 * 1024

	requestTimeout = 2 * time.Minute
)

// Server exposes a model.JournalService over a Unix domain socket using JSON-RPC 2.0.
type Server struct {
	socketPath string
	svc        model.JournalService
	logger     *zap.Logger
	listener   net.Listener
	wg         sync.WaitGroup
	quit       chan struct{}
	ctx        context.Context
	cancel     context.CancelFunc
	stopOnce   sync.Once
}

// NewServer creates a new socket RPC server.
func NewServer(socketPath string, svc model.JournalService, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		socketPath: socketPath,
		svc:        svc,
		logger:     logger,
		quit:       make(chan struct{}),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start begins listening on the Unix socket and accepting connections.
func (s *Server) Start() error {
	if err := os.MkdirAll(filepath.Dir(s.socketPath), 0o755); err != nil {
		return fmt.Errorf("socketrpc: mkdir: %w", err)
	}

	// Remove stale socket if it exists.
	if _, err := os.Stat(s.socketPath); err == nil {
		conn, dialErr := net.DialTimeout("unix", s.socketPath, 500*time.Millisecond)
		if dialErr != nil {
			// Socket file exists but nobody is listening, so it is stale.
			os.Remove(s.socketPath)
		} else {
			conn.Close()
			return fmt.Errorf("socketrpc: another daemon is already listening on %s", s.socketPath)
		}
	}

	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("socketrpc: listen: %w", err)
	}
	s.listener = ln

	s.wg.Add(1)
	go s.acceptLoop()

	s.logger.Info("socketrpc listening", zap.String("socket", s.socketPath))
	return nil
}

// Stop closes the listener, cancels in-flight requests, waits for
// connections to drain, and removes the socket file.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.quit)
		s.cancel()
		if s.listener != nil {
			s.listener.Close()
		}
		s.wg.Wait()
		os.Remove(s.socketPath)
	})
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return
			default:
				s.logger.Warn("socketrpc accept error", zap.Error(err))
				// Continue on transient errors (e.g., fd limit) instead of
				// killing the entire accept loop.
				continue
			}
		}
		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	// Unblock the scanner when the server stops.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-s.quit:
			conn.Close()
		case <-done:
		}
	}()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, scannerInitBufSize), scannerMaxTokenSize)
	encoder := json.NewEncoder(conn)

	for scanner.Scan() {
		select {
		case <-s.quit:
			return
		default:
		}

		var req Request
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			resp := Response{JSONRPC: "2.0", ID: 0, Error: &RPCError{Code: -32700, Message: "parse error"}}
			encoder.Encode(resp)
			continue
		}

		resp := s.dispatch(req)
		if err := encoder.Encode(resp); err != nil {
			return
		}
	}
}

// decodeParams unmarshals params into p. Empty or null params leave p at
// its zero value.
func decodeParams(raw json.RawMessage, p any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, p)
}

func (s *Server) dispatch(req Request) Response {
	resp := Response{JSONRPC: "2.0", ID: req.ID}

	marshalResult := func(v any, err error) Response {
		if err != nil {
			resp.Error = &RPCError{Code: -32000, Message: err.Error()}
			return resp
		}
		data, merr := json.Marshal(v)
		if merr != nil {
			resp.Error = &RPCError{Code: -32603, Message: merr.Error()}
			return resp
		}
		resp.Result = data
		return resp
	}

	invalidParams := func(err error) Response {
		resp.Error = &RPCError{Code: -32602, Message: fmt.Sprintf("invalid params: %v", err)}
		return resp
	}

	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	switch req.Method {
	case "SendNotification":
		e, ok := s.svc.SendNotification(ctx)
		res := SendResult{Delivered: ok}
		if ok {
			res.Slug = e.Slug
		}
		return marshalResult(res, nil)

	case "StartPeriodicNotifications":
		return marshalResult(s.svc.StartPeriodicNotifications(), nil)

	case "Activate":
		var p struct{ Permission model.Permission }
		if err := decodeParams(req.Params, &p); err != nil {
			return invalidParams(err)
		}
		if p.Permission == "" {
			return invalidParams(errors.New("Permission is required"))
		}
		return marshalResult(s.svc.Activate(ctx, p.Permission))

	case "PeriodicSync":
		var p struct{ Tag string }
		if err := decodeParams(req.Params, &p); err != nil {
			return invalidParams(err)
		}
		return marshalResult(s.svc.PeriodicSync(ctx, p.Tag), nil)

	case "ListEnemies":
		return marshalResult(s.svc.ListEnemies(ctx))

	case "GetEnemy":
		var p struct{ Slug string }
		if err := decodeParams(req.Params, &p); err != nil {
			return invalidParams(err)
		}
		return marshalResult(s.svc.GetEnemy(ctx, p.Slug))

	case "AttachView":
		var p struct{ Origin string }
		if err := decodeParams(req.Params, &p); err != nil {
			return invalidParams(err)
		}
		return marshalResult(s.svc.AttachView(p.Origin), nil)

	case "PollView":
		var p struct{ ID string }
		if err := decodeParams(req.Params, &p); err != nil {
			return invalidParams(err)
		}
		cmd, known := s.svc.PollView(p.ID)
		return marshalResult(PollResult{Known: known, Focus: cmd.Focus, Navigate: cmd.Navigate}, nil)

	case "DetachView":
		var p struct{ ID string }
		if err := decodeParams(req.Params, &p); err != nil {
			return invalidParams(err)
		}
		s.svc.DetachView(p.ID)
		return marshalResult(true, nil)

	case "OpenLink":
		var p struct{ URL string }
		if err := decodeParams(req.Params, &p); err != nil {
			return invalidParams(err)
		}
		return marshalResult(true, s.svc.OpenLink(p.URL))

	case "Status":
		return marshalResult(s.svc.Status(), nil)

	case "RecentDeliveries":
		var p struct{ Limit int }
		if err := decodeParams(req.Params, &p); err != nil {
			return invalidParams(err)
		}
		return marshalResult(s.svc.RecentDeliveries(p.Limit))

	default:
		resp.Error = &RPCError{Code: -32601, Message: fmt.Sprintf("method not found: %s", req.Method)}
		return resp
	}
}
