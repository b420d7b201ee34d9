// Package orchestrator tracks per-session state: the resolved current
// project, activity counters, and session lifecycle (spec §4.4). The
// in-memory map it maintains is the only authoritative source of "the
// current project for this session" — the database row is updated on
// transitions, not consulted on every request.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/fyrsmithlabs/aidis/internal/aidiserr"
	"github.com/fyrsmithlabs/aidis/internal/db"
	"github.com/fyrsmithlabs/aidis/internal/domain"
)

// IdleTimeout is the default duration of inactivity after which a
// session is ended by the sweep.
const IdleTimeout = 2 * time.Hour

// SweepInterval is how often the idle sweep runs.
const SweepInterval = 5 * time.Minute

// FlushInterval is how often activity counters are flushed to the
// database regardless of session end.
const FlushInterval = 60 * time.Second

// BootstrapProjectName is the conventionally-named project the cascade
// falls back to when no project is flagged primary and the session has
// no cached value (spec §4.4 step 3).
const BootstrapProjectName = "default"

// ActivityKind names a countable kind of session activity.
type ActivityKind int

const (
	ActivityInputTokens ActivityKind = iota
	ActivityOutputTokens
	ActivityContextCreated
	ActivityTaskCreated
	ActivityTaskUpdated
	ActivityTaskCompleted
)

// SessionState is the orchestrator's in-memory record for one session
// key.
type SessionState struct {
	SessionID        string
	CurrentProjectID string
	AgentType        string
	LastActivity     time.Time

	inputTokens     int64
	outputTokens    int64
	contextsCreated int64
	tasksCreated    int64
	tasksUpdated    int64
	tasksCompleted  int64
}

// Orchestrator holds the session_key -> SessionState map. The map is
// read_mostly: a read-write lock lets lookups for distinct keys proceed
// concurrently, while per-key lifecycle transitions and counter
// read-modify-write hold the lock for that operation only (spec §4.4's
// concurrency note).
type Orchestrator struct {
	db *db.DB

	mu       sync.RWMutex
	sessions map[string]*SessionState
	keyMu    map[string]*sync.Mutex
}

// New constructs an Orchestrator backed by database.
func New(database *db.DB) *Orchestrator {
	return &Orchestrator{
		db:       database,
		sessions: make(map[string]*SessionState),
		keyMu:    make(map[string]*sync.Mutex),
	}
}

func (o *Orchestrator) lockFor(sessionKey string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	m, ok := o.keyMu[sessionKey]
	if !ok {
		m = &sync.Mutex{}
		o.keyMu[sessionKey] = m
	}
	return m
}

// Resolve returns the SessionState for sessionKey, initializing it (per
// the priority cascade) if this is a NEW session, transitioning NEW ->
// ACTIVE.
func (o *Orchestrator) Resolve(ctx context.Context, sessionKey string) (*SessionState, error) {
	o.mu.RLock()
	st, ok := o.sessions[sessionKey]
	o.mu.RUnlock()
	if ok {
		st.touch()
		return st, nil
	}

	lock := o.lockFor(sessionKey)
	lock.Lock()
	defer lock.Unlock()

	// Re-check: another goroutine may have initialized this key while we
	// waited for the lock.
	o.mu.RLock()
	st, ok = o.sessions[sessionKey]
	o.mu.RUnlock()
	if ok {
		st.touch()
		return st, nil
	}

	projectID, err := o.resolveCurrentProject(ctx)
	if err != nil {
		return nil, err
	}

	sess := &domain.Session{DisplayID: sessionKey, ProjectID: projectID}
	if err := o.db.CreateSession(ctx, sess); err != nil {
		return nil, err
	}

	st = &SessionState{
		SessionID:        sess.ID,
		CurrentProjectID: projectID,
		LastActivity:     time.Now(),
	}

	o.mu.Lock()
	o.sessions[sessionKey] = st
	o.mu.Unlock()

	return st, nil
}

// resolveCurrentProject implements the priority cascade (spec §4.4):
// primary flag > cache (handled by the caller, which only reaches here
// on a cache miss) > bootstrap project > first unordered scan > none.
func (o *Orchestrator) resolveCurrentProject(ctx context.Context) (string, error) {
	if p, err := o.db.GetPrimaryProject(ctx); err == nil {
		return p.ID, nil
	} else if !aidiserr.Of(err, aidiserr.KindNotFound) {
		return "", err
	}

	if p, err := o.db.GetProjectByName(ctx, BootstrapProjectName); err == nil {
		return p.ID, nil
	} else if !aidiserr.Of(err, aidiserr.KindNotFound) {
		return "", err
	}

	projects, err := o.db.ListProjects(ctx)
	if err != nil {
		return "", err
	}
	if len(projects) == 0 {
		return "", nil
	}
	return projects[0].ID, nil
}

// InvalidateCache drops sessionKey's cached entry so the next Resolve
// re-runs the priority cascade from scratch. Primary promotion does not
// use it; it clears every entry through InvalidateAll.
func (o *Orchestrator) InvalidateCache(sessionKey string) {
	o.mu.Lock()
	delete(o.sessions, sessionKey)
	o.mu.Unlock()
}

// InvalidateAll drops every cached session entry. PromoteProjectToPrimary
// calls it after every promotion, since it can't identify which session
// keys observed the old primary (spec §4.4's "primary-first, not
// cache-first" rule, property P6); so does the NATS cross-process
// broadcast path in internal/cacheinvalidate.
func (o *Orchestrator) InvalidateAll() {
	o.mu.Lock()
	o.sessions = make(map[string]*SessionState)
	o.mu.Unlock()
}

// PromoteProjectToPrimary clears the previous primary, sets projectID as
// the new primary, and invalidates every cached session entry, in that
// order, matching spec §4.4's requirement that promotion atomically (a)
// clear the previous primary in the same database transaction and (b)
// clear the orchestrator's in-memory session map (property P6). The two
// clears can't be one atomic operation — the DB transaction and the
// in-memory map are different systems — so the map clear happens
// immediately after the transaction commits, before this call returns.
func (o *Orchestrator) PromoteProjectToPrimary(ctx context.Context, projectID string) error {
	if err := o.db.PromoteToPrimary(ctx, projectID); err != nil {
		return err
	}
	o.InvalidateAll()
	return nil
}

// SetCurrentProject sets sessionKey's current project explicitly (an
// explicit project.switch call, as opposed to cascade resolution).
func (o *Orchestrator) SetCurrentProject(sessionKey, projectID string) error {
	o.mu.RLock()
	st, ok := o.sessions[sessionKey]
	o.mu.RUnlock()
	if !ok {
		return aidiserr.New(aidiserr.KindNotFound, "session not found")
	}

	lock := o.lockFor(sessionKey)
	lock.Lock()
	defer lock.Unlock()
	st.CurrentProjectID = projectID
	st.touch()
	return nil
}

func (s *SessionState) touch() { s.LastActivity = time.Now() }

// StateView is the externally-visible (JSON-marshalable) snapshot of a
// SessionState, for introspection tools like session_status.
type StateView struct {
	SessionID        string    `json:"sessionId"`
	CurrentProjectID string    `json:"currentProjectId"`
	LastActivity     time.Time `json:"lastActivity"`
	InputTokens      int64     `json:"inputTokens"`
	OutputTokens     int64     `json:"outputTokens"`
	ContextsCreated  int64     `json:"contextsCreated"`
	TasksCreated     int64     `json:"tasksCreated"`
	TasksUpdated     int64     `json:"tasksUpdated"`
	TasksCompleted   int64     `json:"tasksCompleted"`
}

// View returns st's externally-visible snapshot.
func (st *SessionState) View() StateView {
	return StateView{
		SessionID:        st.SessionID,
		CurrentProjectID: st.CurrentProjectID,
		LastActivity:     st.LastActivity,
		InputTokens:      st.inputTokens,
		OutputTokens:     st.outputTokens,
		ContextsCreated:  st.contextsCreated,
		TasksCreated:     st.tasksCreated,
		TasksUpdated:     st.tasksUpdated,
		TasksCompleted:   st.tasksCompleted,
	}
}

// RecordActivity increments an in-memory counter for sessionKey. The
// per-session lock is held only for this read-modify-write, not for the
// handler that triggered it (spec §4.4's concurrency note).
func (o *Orchestrator) RecordActivity(sessionKey string, kind ActivityKind, delta int64) error {
	o.mu.RLock()
	st, ok := o.sessions[sessionKey]
	o.mu.RUnlock()
	if !ok {
		return aidiserr.New(aidiserr.KindNotFound, "session not found")
	}

	lock := o.lockFor(sessionKey)
	lock.Lock()
	defer lock.Unlock()

	switch kind {
	case ActivityInputTokens:
		st.inputTokens += delta
	case ActivityOutputTokens:
		st.outputTokens += delta
	case ActivityContextCreated:
		st.contextsCreated += delta
	case ActivityTaskCreated:
		st.tasksCreated += delta
	case ActivityTaskUpdated:
		st.tasksUpdated += delta
	case ActivityTaskCompleted:
		st.tasksCompleted += delta
	}
	st.touch()
	return nil
}

// snapshot converts a SessionState into the domain.Session shape
// FlushSessionCounters/EndSession persist, under the caller's lock.
func (st *SessionState) snapshot() *domain.Session {
	return &domain.Session{
		ID:              st.SessionID,
		InputTokens:     st.inputTokens,
		OutputTokens:    st.outputTokens,
		TotalTokens:     st.inputTokens + st.outputTokens,
		ContextsCreated: st.contextsCreated,
		TasksCreated:    st.tasksCreated,
		TasksUpdated:    st.tasksUpdated,
		TasksCompleted:  st.tasksCompleted,
	}
}

// FlushAll persists every active session's counters to the database
// (the periodic flush timer, default every 60s).
func (o *Orchestrator) FlushAll(ctx context.Context) error {
	o.mu.RLock()
	keys := make([]string, 0, len(o.sessions))
	for k := range o.sessions {
		keys = append(keys, k)
	}
	o.mu.RUnlock()

	for _, key := range keys {
		o.mu.RLock()
		st, ok := o.sessions[key]
		o.mu.RUnlock()
		if !ok {
			continue
		}

		lock := o.lockFor(key)
		lock.Lock()
		snap := st.snapshot()
		lock.Unlock()

		if err := o.db.FlushSessionCounters(ctx, snap); err != nil {
			return err
		}
	}
	return nil
}

// SweepIdle ends every session whose last activity predates the idle
// timeout (property P9): flushes its counters, sets ended_at, and
// removes it from the in-memory map.
func (o *Orchestrator) SweepIdle(ctx context.Context) error {
	cutoff := time.Now().Add(-IdleTimeout)

	o.mu.RLock()
	var expired []string
	for key, st := range o.sessions {
		if st.LastActivity.Before(cutoff) {
			expired = append(expired, key)
		}
	}
	o.mu.RUnlock()

	for _, key := range expired {
		if err := o.End(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// End explicitly ends sessionKey: flush counters, set ended_at, drop
// from the map. Idempotent if the key is already gone.
func (o *Orchestrator) End(ctx context.Context, sessionKey string) error {
	lock := o.lockFor(sessionKey)
	lock.Lock()
	o.mu.RLock()
	st, ok := o.sessions[sessionKey]
	o.mu.RUnlock()
	if !ok {
		lock.Unlock()
		return nil
	}
	snap := st.snapshot()
	lock.Unlock()

	now := time.Now()
	snap.EndedAt = &now
	if err := o.db.EndSession(ctx, snap); err != nil {
		return err
	}

	o.mu.Lock()
	delete(o.sessions, sessionKey)
	delete(o.keyMu, sessionKey)
	o.mu.Unlock()
	return nil
}

// ActiveSessionCount reports how many sessions are currently ACTIVE,
// for introspection tools (aidis_status).
func (o *Orchestrator) ActiveSessionCount() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.sessions)
}
