// Package dispatcher implements the transport-agnostic tool dispatch
// algorithm (spec §4.2): catalog lookup, argument validation, handler
// invocation, and latency/success diagnostics, shared unchanged by the
// stdio and HTTP transports (testable property P2).
package dispatcher

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/aidis/internal/aidiserr"
	"github.com/fyrsmithlabs/aidis/internal/catalog"
	"github.com/fyrsmithlabs/aidis/internal/orchestrator"
	"github.com/fyrsmithlabs/aidis/internal/validation"
)

// PingFunc checks database connectivity, reported by aidis_status.
type PingFunc func(ctx context.Context) error

// HandlerFunc implements one tool's behavior once its arguments have
// passed validation. args is the validated, synonym-normalized,
// default-applied argument map (spec §4.3).
type HandlerFunc func(ctx context.Context, sessionKey string, args map[string]interface{}) (interface{}, error)

// Dispatcher binds catalog entries to handler implementations and runs
// the dispatch algorithm for both transports.
type Dispatcher struct {
	catalog      *catalog.Catalog
	orchestrator *orchestrator.Orchestrator
	logger       *zap.Logger
	handlers     map[string]HandlerFunc
	startTime    time.Time
	dbPing       PingFunc
}

// New constructs a Dispatcher over cat and orch, and registers the
// built-in introspection tools (aidis_help/aidis_explain/aidis_examples/
// aidis_ping/aidis_status).
func New(cat *catalog.Catalog, orch *orchestrator.Orchestrator, logger *zap.Logger) *Dispatcher {
	d := &Dispatcher{
		catalog:      cat,
		orchestrator: orch,
		logger:       logger,
		handlers:     make(map[string]HandlerFunc),
		startTime:    time.Now(),
	}
	d.registerIntrospection()
	return d
}

// SetDBPing wires the database connectivity check aidis_status reports.
// Without one, aidis_status reports databaseConnected as unknown (nil).
func (d *Dispatcher) SetDBPing(ping PingFunc) {
	d.dbPing = ping
}

// Catalog returns the underlying tool catalog, for transports that need
// to list or describe tools directly (e.g. the stream transport's
// tools/list method).
func (d *Dispatcher) Catalog() *catalog.Catalog {
	return d.catalog
}

// RegisterCatalog adds t to the catalog. Panics on a malformed
// definition — called only at process startup, where that's a
// programming error, not a runtime condition.
func (d *Dispatcher) RegisterCatalog(t *catalog.ToolDefinition) {
	d.catalog.MustRegister(t)
}

// Register binds name's catalog entry to fn. name must already be
// registered in the catalog — registering a handler for an unknown tool
// name is a startup-time programming error.
func (d *Dispatcher) Register(name string, fn HandlerFunc) error {
	if _, ok := d.catalog.Get(name); !ok {
		return fmt.Errorf("dispatcher: tool %q has no catalog entry", name)
	}
	d.handlers[name] = fn
	return nil
}

// Result is what Dispatch returns: the handler's payload plus
// diagnostics transports may choose to surface.
type Result struct {
	Value    interface{}
	Latency  time.Duration
	ToolName string
}

// Dispatch runs the full algorithm for one tool call (spec §4.2): look
// up the tool, validate and normalize its arguments (spec §4.3), invoke
// the bound handler, and report latency. Both transports call this one
// method — neither re-implements any part of it (property P2).
func (d *Dispatcher) Dispatch(ctx context.Context, sessionKey, toolName string, rawArgs interface{}) (*Result, error) {
	start := time.Now()

	tool, ok := d.catalog.Get(toolName)
	if !ok {
		return nil, aidiserr.New(aidiserr.KindUnknownTool, fmt.Sprintf("unknown tool %q", toolName))
	}

	handler, ok := d.handlers[toolName]
	if !ok {
		return nil, aidiserr.New(aidiserr.KindInternalError, fmt.Sprintf("tool %q has no registered handler", toolName))
	}

	crossField := d.crossFieldFor(ctx, sessionKey, tool)
	args, err := validation.Validate(tool.Schema, rawArgs, crossField)
	if err != nil {
		d.logCall(toolName, sessionKey, time.Since(start), err)
		return nil, err
	}

	value, err := handler(ctx, sessionKey, args)
	latency := time.Since(start)
	d.logCall(toolName, sessionKey, latency, err)
	if err != nil {
		return nil, err
	}

	return &Result{Value: value, Latency: latency, ToolName: toolName}, nil
}

// crossFieldFor builds the cross-field invariant function for one tool
// call: it resolves the session's current project (spec §4.4) and,
// if the tool's schema has a projectId field and the caller omitted it,
// either fills it from the session or fails with MissingProject.
func (d *Dispatcher) crossFieldFor(ctx context.Context, sessionKey string, tool *catalog.ToolDefinition) validation.CrossFieldFunc {
	return func(args map[string]interface{}) error {
		if tool.Schema.FieldByName("projectId") == nil {
			return nil
		}
		if _, present := args["projectId"]; present {
			return nil
		}

		st, err := d.orchestrator.Resolve(ctx, sessionKey)
		if err != nil {
			return err
		}
		if st.CurrentProjectID == "" {
			return aidiserr.New(aidiserr.KindMissingProject, "no current project resolved for this session")
		}
		args["projectId"] = st.CurrentProjectID
		return nil
	}
}

func (d *Dispatcher) logCall(toolName, sessionKey string, latency time.Duration, err error) {
	if d.logger == nil {
		return
	}
	fields := []zap.Field{
		zap.String("tool", toolName),
		zap.String("session_key", sessionKey),
		zap.Duration("latency", latency),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
		if ae, ok := aidiserr.As(err); ok {
			fields = append(fields, zap.String("error_kind", string(ae.Kind)))
			if len(ae.Data) > 0 {
				fields = append(fields, zap.Any("error_data", ae.Data))
			}
		}
		d.logger.Warn("tool dispatch failed", fields...)
		return
	}
	d.logger.Debug("tool dispatch succeeded", fields...)
}
