// Package stdio implements the JSON-RPC 2.0 stream transport (spec
// §4.1): newline-delimited JSON objects over stdin/stdout. Every
// request is translated into one dispatcher.Dispatch call and every
// AIDISError is translated back to a JSON-RPC error code through
// internal/aidiserr's shared mapping table (property P2). All
// diagnostic logging goes to stderr exclusively — stdout carries only
// protocol frames.
package stdio

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/aidis/internal/aidiserr"
	"github.com/fyrsmithlabs/aidis/internal/catalog"
	"github.com/fyrsmithlabs/aidis/internal/dispatcher"
	"github.com/fyrsmithlabs/aidis/internal/metrics"
)

// JSON-RPC methods the stream transport understands (spec §4.1). Any
// other method fails with RPCMethodNotFound.
const (
	methodInitialize    = "initialize"
	methodToolsList     = "tools/list"
	methodToolsCall     = "tools/call"
	methodResourcesList = "resources/list"
	methodResourcesRead = "resources/read"
)

const protocolVersion = "2024-11-05"

// request is one incoming JSON-RPC 2.0 frame.
type request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// response is one successful outgoing JSON-RPC 2.0 frame.
type response struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  interface{} `json:"result"`
}

// errorResponse is one failed outgoing JSON-RPC 2.0 frame.
type errorResponse struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Error   *errorDetail  `json:"error"`
}

type errorDetail struct {
	Code    int                    `json:"code"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// isNotification reports whether method is a notification (spec §4.1):
// notifications receive no response, regardless of outcome.
func isNotification(method string) bool {
	return strings.HasPrefix(method, "notifications/")
}

// Server reads newline-delimited JSON-RPC requests from in and writes
// newline-delimited responses to out, dispatching each tool call
// through d. One sessionKey is used for the whole stdio connection —
// a single process on the other end of the pipe is one logical session
// (spec §4.4).
type Server struct {
	dispatcher *dispatcher.Dispatcher
	catalog    *catalog.Catalog
	metrics    *metrics.Dispatch
	logger     *zap.Logger
	sessionKey string

	writeMu sync.Mutex
}

// New constructs a Server. sessionKey identifies this stdio connection
// to the orchestrator (spec §4.4); metrics may be nil. cat backs the
// tools/list method's catalog listing.
func New(d *dispatcher.Dispatcher, cat *catalog.Catalog, m *metrics.Dispatch, logger *zap.Logger, sessionKey string) *Server {
	return &Server{dispatcher: d, catalog: cat, metrics: m, logger: logger, sessionKey: sessionKey}
}

// Run reads requests from in and writes responses to out until ctx is
// cancelled, in hits EOF, or a read error occurs.
func (s *Server) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		s.handleLine(ctx, line, out)
	}
	return scanner.Err()
}

// toolCallParams is tools/call's params shape (spec §4.1, §8 scenario 1):
// {"name": "...", "arguments": {...}}.
type toolCallParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// resourcesReadParams is resources/read's params shape; its uri is
// treated as a tool name (spec §4.1).
type resourcesReadParams struct {
	URI string `json:"uri"`
}

func (s *Server) handleLine(ctx context.Context, line string, out io.Writer) {
	var req request
	if err := json.Unmarshal([]byte(line), &req); err != nil {
		s.writeFrame(out, errorResponse{
			JSONRPC: "2.0",
			Error:   &errorDetail{Code: aidiserr.RPCParseError, Message: "parse error"},
		})
		return
	}

	if isNotification(req.Method) {
		// Notifications (e.g. notifications/initialized) never receive
		// a response and carry no dispatchable tool call.
		return
	}

	switch req.Method {
	case methodInitialize:
		s.writeFrame(out, response{JSONRPC: "2.0", ID: req.ID, Result: initializeResult()})
	case methodToolsList:
		s.writeFrame(out, response{JSONRPC: "2.0", ID: req.ID, Result: map[string]interface{}{"tools": s.catalog.List()}})
	case methodToolsCall:
		var params toolCallParams
		if len(req.Params) > 0 {
			if err := json.Unmarshal(req.Params, &params); err != nil {
				s.writeFrame(out, errorResponse{JSONRPC: "2.0", ID: req.ID, Error: &errorDetail{Code: aidiserr.RPCInvalidParams, Message: "invalid params"}})
				return
			}
		}
		s.dispatchTool(ctx, req.ID, params.Name, params.Arguments, out)
	case methodResourcesList:
		s.writeFrame(out, response{JSONRPC: "2.0", ID: req.ID, Result: map[string]interface{}{"resources": []interface{}{}}})
	case methodResourcesRead:
		var params resourcesReadParams
		if len(req.Params) > 0 {
			_ = json.Unmarshal(req.Params, &params)
		}
		s.dispatchTool(ctx, req.ID, params.URI, nil, out)
	default:
		s.writeFrame(out, errorResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &errorDetail{Code: aidiserr.RPCMethodNotFound, Message: fmt.Sprintf("unknown method %q", req.Method)},
		})
	}
}

// dispatchTool runs one tool invocation through the shared dispatcher
// and writes its JSON-RPC result or error frame.
func (s *Server) dispatchTool(ctx context.Context, id json.RawMessage, toolName string, args map[string]interface{}, out io.Writer) {
	start := time.Now()
	if s.metrics != nil {
		s.metrics.IncrementActive(ctx, toolName)
		defer s.metrics.DecrementActive(ctx, toolName)
	}
	result, err := s.dispatcher.Dispatch(ctx, s.sessionKey, toolName, args)
	if s.metrics != nil {
		s.metrics.RecordInvocation(ctx, toolName, time.Since(start), err)
	}

	if err != nil {
		s.writeFrame(out, toErrorResponse(id, err))
		return
	}
	s.writeFrame(out, response{JSONRPC: "2.0", ID: id, Result: result.Value})
}

// initializeResult is the capability handshake result (spec §4.1):
// server name/version and a static capabilities object advertising
// tool support.
func initializeResult() map[string]interface{} {
	return map[string]interface{}{
		"protocolVersion": protocolVersion,
		"serverInfo":      map[string]interface{}{"name": "aidis", "version": "1.0.0"},
		"capabilities":    map[string]interface{}{"tools": map[string]interface{}{}},
	}
}

// toErrorResponse translates an AIDISError into its JSON-RPC wire shape
// through the shared mapping table (property P2).
func toErrorResponse(id json.RawMessage, err error) errorResponse {
	ae, ok := aidiserr.As(err)
	if !ok {
		return errorResponse{JSONRPC: "2.0", ID: id, Error: &errorDetail{Code: aidiserr.RPCInternalError, Message: "internal error"}}
	}
	var data map[string]interface{}
	if ae.Field != "" {
		data = map[string]interface{}{"field": ae.Field}
	}
	return errorResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &errorDetail{
			Code:    aidiserr.RPCCode(ae.Kind),
			Message: aidiserr.PublicMessage(ae),
			Data:    data,
		},
	}
}

// writeFrame marshals v and writes it as one newline-terminated line to
// out, serialized against concurrent writers.
func (s *Server) writeFrame(out io.Writer, v interface{}) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	b, err := json.Marshal(v)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("failed to marshal stdio response", zap.Error(err))
		}
		return
	}
	b = append(b, '\n')
	if _, err := out.Write(b); err != nil && s.logger != nil {
		s.logger.Error("failed to write stdio response", zap.Error(err))
	}
}
