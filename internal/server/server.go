// Package server implements a long-lived clone detection service over a
// Unix domain socket.
//
// Clients speak newline-delimited JSON-RPC: one request object per line,
// one response object per line. The server keeps a single analyzer alive
// across requests, so repeated analysis of a slowly changing tree hits the
// tokenized-file cache instead of lexing everything again.
package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bitgrove/mimic/pkg/clones"
	"github.com/bitgrove/mimic/pkg/config"
)

// JSON-RPC error codes.
const (
	codeParse          = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternal       = -32603
)

// maxLineBytes caps a single request line. Requests carry paths and knobs,
// not file content, so a longer line is a protocol violation rather than a
// legitimate workload.
const maxLineBytes = 64 << 10

// request is one decoded line. The id is kept raw so numeric and string ids
// round-trip unchanged.
type request struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

// response answers one request. Exactly one of Result and Error is set.
type response struct {
	ID     json.RawMessage `json:"id"`
	Result any             `json:"result,omitempty"`
	Error  *rpcError       `json:"error,omitempty"`
}

// rpcError is the error payload of a failed request. Handlers return one to
// pick a code; any other error is reported as codeInternal.
type rpcError struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func (e *rpcError) Error() string { return e.Message }

func paramErrorf(format string, args ...any) *rpcError {
	return &rpcError{Message: fmt.Sprintf(format, args...), Code: codeInvalidParams}
}

func errorResponse(id json.RawMessage, code int, message string) response {
	return response{ID: id, Error: &rpcError{Message: message, Code: code}}
}

type handlerFunc func(ctx context.Context, params json.RawMessage) (any, error)

// Server serves clone detection requests on a Unix socket.
type Server struct {
	cfg      *config.Config
	detector *clones.Analyzer
	methods  map[string]handlerFunc
	start    time.Time

	stopOnce sync.Once
	stopping chan struct{}
}

// New creates a server from the given configuration. The detector it builds
// is shared by every request that carries no overrides, which is what keeps
// the cache warm between requests.
func New(cfg *config.Config) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	s := &Server{
		cfg:      cfg,
		detector: newDetector(cfg.Detector, cfg.Cache),
		start:    time.Now(),
		stopping: make(chan struct{}),
	}
	s.methods = map[string]handlerFunc{
		"analyze":     s.handleAnalyze,
		"compare":     s.handleCompare,
		"files":       s.handleFiles,
		"hotspots":    s.handleHotspots,
		"file_clones": s.handleFileClones,
		"ping":        s.handlePing,
	}
	return s
}

// Serve listens on socketPath until ctx is cancelled or a client sends
// shutdown. The socket file is removed on the way out. A clean shutdown
// returns nil.
func (s *Server) Serve(ctx context.Context, socketPath string) error {
	if err := os.MkdirAll(filepath.Dir(socketPath), 0o700); err != nil {
		return fmt.Errorf("failed to create socket directory: %w", err)
	}

	// A socket file left behind by a crashed server would make Listen fail.
	if err := os.Remove(socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on socket: %w", err)
	}
	defer os.Remove(socketPath)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Closing the listener is what breaks the Accept loop below.
	go func() {
		select {
		case <-ctx.Done():
		case <-s.stopping:
		}
		listener.Close()
	}()

	var wg sync.WaitGroup
	for {
		conn, err := listener.Accept()
		if err != nil {
			cancel()
			wg.Wait()
			select {
			case <-s.stopping:
				return nil
			default:
			}
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept failed: %w", err)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handleConn(ctx, conn)
		}()
	}
}

// handleConn serves one client. Requests on a connection are processed in
// order; concurrency comes from concurrent connections.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	// Closing the connection unblocks a Scan stuck in a read when the
	// server is told to stop mid-connection.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
		case <-s.stopping:
		case <-done:
			return
		}
		conn.Close()
	}()

	enc := json.NewEncoder(conn)
	sc := bufio.NewScanner(conn)
	sc.Buffer(make([]byte, 0, 4096), maxLineBytes)

	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}

		resp, stop := s.handleLine(ctx, line)
		if err := enc.Encode(resp); err != nil {
			return
		}
		if stop {
			s.signalStop()
			return
		}
	}

	if err := sc.Err(); err != nil && errors.Is(err, bufio.ErrTooLong) {
		enc.Encode(errorResponse(nil, codeParse, fmt.Sprintf("request exceeds the %d byte line limit", maxLineBytes))) //nolint:errcheck // connection is closing either way
	}
}

// handleLine decodes and dispatches one request line. The returned flag
// asks the caller to stop the server once the response has been written,
// which is how shutdown guarantees its reply goes out first.
func (s *Server) handleLine(ctx context.Context, line []byte) (response, bool) {
	var req request
	if err := json.Unmarshal(line, &req); err != nil {
		if json.Valid(line) {
			return errorResponse(nil, codeInvalidRequest, "request is not a JSON object"), false
		}
		return errorResponse(nil, codeParse, "failed to parse request"), false
	}
	if req.Method == "" {
		return errorResponse(req.ID, codeInvalidRequest, "request has no method"), false
	}

	if req.Method == "shutdown" {
		return response{ID: req.ID, Result: statusResult{Status: "stopping"}}, true
	}

	handler, ok := s.methods[req.Method]
	if !ok {
		return errorResponse(req.ID, codeMethodNotFound, "method not found: "+req.Method), false
	}

	result, err := handler(ctx, req.Params)
	if err != nil {
		var rpcErr *rpcError
		if !errors.As(err, &rpcErr) {
			rpcErr = &rpcError{Message: err.Error(), Code: codeInternal}
		}
		return response{ID: req.ID, Error: rpcErr}, false
	}
	return response{ID: req.ID, Result: result}, false
}

func (s *Server) signalStop() {
	s.stopOnce.Do(func() { close(s.stopping) })
}
