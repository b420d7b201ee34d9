// Package tools implements the domain tool handlers: context
// storage/search, project management, technical decisions, tasks, and
// session lifecycle (spec §3, §4.5). Each handler is registered against
// a dispatcher.Dispatcher, which has already validated and
// synonym-normalized its arguments before the handler runs.
package tools

import (
	"github.com/fyrsmithlabs/aidis/internal/cacheinvalidate"
	"github.com/fyrsmithlabs/aidis/internal/contextstore"
	"github.com/fyrsmithlabs/aidis/internal/db"
	"github.com/fyrsmithlabs/aidis/internal/dispatcher"
	"github.com/fyrsmithlabs/aidis/internal/orchestrator"
)

// Deps are the shared dependencies every tool handler in this package
// draws on.
type Deps struct {
	DB           *db.DB
	Store        *contextstore.Store
	Orchestrator *orchestrator.Orchestrator

	// Invalidator broadcasts primary-project promotions to other aidis
	// processes over NATS. May be nil or disabled; its methods check
	// Enabled() themselves and do nothing when it reports false.
	Invalidator *cacheinvalidate.Invalidator
}

// RegisterAll registers every domain tool's catalog entry and handler
// against d.
func RegisterAll(d *dispatcher.Dispatcher, deps Deps) error {
	registerContextTools(d, deps)
	registerProjectTools(d, deps)
	registerDecisionTools(d, deps)
	registerTaskTools(d, deps)
	registerSessionTools(d, deps)
	return nil
}

func mustRegisterHandler(d *dispatcher.Dispatcher, name string, fn dispatcher.HandlerFunc) {
	if err := d.Register(name, fn); err != nil {
		panic(err)
	}
}

func stringArg(args map[string]interface{}, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func intArg(args map[string]interface{}, key string, def int) int {
	switch v := args[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return def
	}
}

func f(v float64) *float64 { return &v }

func stringSliceArg(args map[string]interface{}, key string) []string {
	raw, ok := args[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
