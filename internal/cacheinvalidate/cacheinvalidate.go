// Package cacheinvalidate broadcasts session-cache invalidation across
// aidis processes over NATS (spec §4.4): when one process promotes a
// project to primary, every other process's orchestrator must also drop
// its cached session->project resolutions. A single-process deployment
// never needs this — it's entirely optional, and every method degrades
// gracefully if NATS is unreachable or disabled.
package cacheinvalidate

import (
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Subject is the NATS subject every aidis process publishes to and
// subscribes on for cache invalidation broadcasts.
const Subject = "aidis.cache.invalidate"

// Invalidator publishes and receives cache-invalidation broadcasts. A
// nil *Invalidator (returned by Connect on failure, when tolerant) is
// valid to call methods on: they become no-ops.
type Invalidator struct {
	conn   *nats.Conn
	logger *zap.Logger
}

// Connect dials url and returns an Invalidator. If url is empty,
// connection is skipped entirely and a disabled Invalidator is returned
// — the orchestrator still works locally via InvalidateAll, it just
// never hears about promotions from other processes.
func Connect(url string, logger *zap.Logger) (*Invalidator, error) {
	if url == "" {
		return &Invalidator{logger: logger}, nil
	}
	nc, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, err
	}
	return &Invalidator{conn: nc, logger: logger}, nil
}

// Enabled reports whether this Invalidator holds a live NATS connection.
func (i *Invalidator) Enabled() bool {
	return i != nil && i.conn != nil
}

// PublishInvalidateAll broadcasts "clear every cached session" to every
// other aidis process, called right after a local primary-project
// promotion (property P6). Best-effort: a publish failure is logged,
// never returned as an error, since the local process has already
// cleared its own cache.
func (i *Invalidator) PublishInvalidateAll() {
	if !i.Enabled() {
		return
	}
	if err := i.conn.Publish(Subject, []byte("invalidate_all")); err != nil {
		i.logger.Warn("cache invalidation broadcast failed", zap.Error(err))
	}
}

// Subscribe registers onInvalidate to run whenever another process
// broadcasts a cache invalidation. Returns a no-op unsubscribe func if
// disabled.
func (i *Invalidator) Subscribe(onInvalidate func()) (unsubscribe func(), err error) {
	if !i.Enabled() {
		return func() {}, nil
	}
	sub, err := i.conn.Subscribe(Subject, func(*nats.Msg) {
		onInvalidate()
	})
	if err != nil {
		return nil, err
	}
	return func() { _ = sub.Unsubscribe() }, nil
}

// Close releases the underlying NATS connection, if any.
func (i *Invalidator) Close() {
	if i.Enabled() {
		i.conn.Close()
	}
}
