// Package domain holds the entities AIDIS persists: projects, sessions,
// context entries, technical decisions, and tasks.
package domain

import "time"

// ImpactLevel is the severity/weight of a technical decision.
type ImpactLevel string

const (
	ImpactLow      ImpactLevel = "low"
	ImpactMedium   ImpactLevel = "medium"
	ImpactHigh     ImpactLevel = "high"
	ImpactCritical ImpactLevel = "critical"
)

// DecisionStatus is the lifecycle state of a technical decision.
type DecisionStatus string

const (
	DecisionActive      DecisionStatus = "active"
	DecisionDeprecated  DecisionStatus = "deprecated"
	DecisionSuperseded  DecisionStatus = "superseded"
	DecisionUnderReview DecisionStatus = "under_review"
)

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in_progress"
	TaskBlocked    TaskStatus = "blocked"
	TaskCompleted  TaskStatus = "completed"
	TaskCancelled  TaskStatus = "cancelled"
)

// ContextType is the fixed small set of context categories.
type ContextType string

const (
	ContextCode        ContextType = "code"
	ContextDecision    ContextType = "decision"
	ContextError       ContextType = "error"
	ContextDiscussion  ContextType = "discussion"
	ContextPlanning    ContextType = "planning"
	ContextCompletion  ContextType = "completion"
	ContextMilestone   ContextType = "milestone"
	ContextReflections ContextType = "reflections"
	ContextHandoff     ContextType = "handoff"
)

// ValidContextTypes is the complete allowed set, in declaration order.
var ValidContextTypes = []ContextType{
	ContextCode, ContextDecision, ContextError, ContextDiscussion,
	ContextPlanning, ContextCompletion, ContextMilestone, ContextReflections,
	ContextHandoff,
}

// IsValidContextType reports whether t is one of ValidContextTypes.
func IsValidContextType(t string) bool {
	for _, v := range ValidContextTypes {
		if string(v) == t {
			return true
		}
	}
	return false
}

// Project is a named workspace. At most one Project in a store may have
// IsPrimary set at any time.
type Project struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	IsPrimary   bool              `json:"isPrimary"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// Session is a bounded interval of activity attributed to one agent.
type Session struct {
	ID          string     `json:"id"`
	DisplayID   string     `json:"displayId"`
	ProjectID   string     `json:"projectId,omitempty"`
	AgentType   string     `json:"agentType,omitempty"`
	Title       string     `json:"title,omitempty"`
	Description string     `json:"description,omitempty"`
	StartedAt   time.Time  `json:"startedAt"`
	EndedAt     *time.Time `json:"endedAt,omitempty"`

	InputTokens     int64 `json:"inputTokens"`
	OutputTokens    int64 `json:"outputTokens"`
	TotalTokens     int64 `json:"totalTokens"`
	ContextsCreated int64 `json:"contextsCreated"`
	TasksCreated    int64 `json:"tasksCreated"`
	TasksUpdated    int64 `json:"tasksUpdated"`
	TasksCompleted  int64 `json:"tasksCompleted"`
}

// Active reports whether the session has not yet ended.
func (s *Session) Active() bool { return s.EndedAt == nil }

// ContextEntry is a unit of recorded memory with a dense embedding.
type ContextEntry struct {
	ID        string      `json:"id"`
	ProjectID string      `json:"projectId"`
	SessionID string      `json:"sessionId,omitempty"`
	Type      ContextType `json:"type"`
	Content   string      `json:"content"`
	Tags      []string    `json:"tags,omitempty"`
	Embedding []float32   `json:"-"`
	CreatedAt time.Time   `json:"createdAt"`

	// Similarity is populated only on search results, in [0,1].
	Similarity float64 `json:"similarity,omitempty"`
}

// TechnicalDecision is an architectural choice record.
type TechnicalDecision struct {
	ID                    string         `json:"id"`
	ProjectID             string         `json:"projectId"`
	Title                 string         `json:"title"`
	Problem               string         `json:"problem,omitempty"`
	Decision              string         `json:"decision"`
	Rationale             string         `json:"rationale,omitempty"`
	AlternativesConsidered []string      `json:"alternativesConsidered,omitempty"`
	ImpactLevel           ImpactLevel    `json:"impactLevel"`
	DecisionType          string         `json:"decisionType"`
	Status                DecisionStatus `json:"status"`
	SupersededBy          string         `json:"supersededBy,omitempty"`
	Outcome               string         `json:"outcome,omitempty"`
	CreatedAt             time.Time      `json:"createdAt"`
	UpdatedAt             time.Time      `json:"updatedAt"`
}

// Task is a coordination item with an acyclic dependency graph.
type Task struct {
	ID           string     `json:"id"`
	ProjectID    string     `json:"projectId"`
	SessionID    string     `json:"sessionId,omitempty"`
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	Status       TaskStatus `json:"status"`
	Priority     string     `json:"priority,omitempty"`
	Assignee     string     `json:"assignee,omitempty"`
	Dependencies []string   `json:"dependencies,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// DecisionTypes enumerates the ~15 domain categories for technical
// decisions (spec §3). Kept as a var, not const, since introspection
// tools render it as data.
var DecisionTypes = []string{
	"architecture", "library", "framework", "database", "api_design",
	"authentication", "deployment", "testing", "performance", "security",
	"ux", "process", "tooling", "data_model", "infrastructure",
}
