// Package catalog holds the tool catalog: the immutable, runtime-queryable
// set of operations AIDIS offers (spec §3 "Tool catalog entry", §4.2).
package catalog

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// FieldType is one of the structured argument schema's field kinds
// (spec §4.3).
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeInteger FieldType = "integer"
	TypeNumber  FieldType = "number"
	TypeBoolean FieldType = "boolean"
	TypeEnum    FieldType = "enum"
	TypeArray   FieldType = "array"
	TypeObject  FieldType = "object"
)

// Field describes one argument of a tool's schema.
type Field struct {
	Name        string
	Type        FieldType
	Required    bool
	Description string

	// String bounds.
	MinLength *int
	MaxLength *int

	// Integer/number bounds.
	Min *float64
	Max *float64

	// Enum values (Type == TypeEnum).
	EnumValues []string

	// Array element type and bounds (Type == TypeArray).
	ElementType  FieldType
	MinItems     *int
	MaxItems     *int

	// Object nested fields (Type == TypeObject).
	Fields []Field

	// Default applied during cross-field invariant resolution when the
	// field is absent (e.g. limit defaults to 10).
	Default interface{}

	// Aliases are synonym field names rewritten to Name before validation
	// (spec §4.3 phase 1). Declared per tool, consulted shallowly.
	Aliases []string
}

// Schema is the structured argument schema for one tool.
type Schema struct {
	Fields []Field
}

// FieldByName returns the field named name, or nil.
func (s Schema) FieldByName(name string) *Field {
	for i := range s.Fields {
		if s.Fields[i].Name == name {
			return &s.Fields[i]
		}
	}
	return nil
}

// Category groups related tools for aidis_help's listing.
type Category string

const (
	CategoryContext        Category = "context"
	CategoryProject        Category = "project"
	CategorySession        Category = "session"
	CategoryDecision       Category = "decision"
	CategoryTask           Category = "task"
	CategoryIntrospection  Category = "introspection"
)

// Example is one concrete invocation stored alongside a catalog entry,
// returned by aidis_examples.
type Example struct {
	Description string
	Arguments   map[string]interface{}
}

// ToolDefinition is one catalog entry (spec §3 "Tool catalog entry").
type ToolDefinition struct {
	// Name matches ^[a-z][a-z0-9_]*$.
	Name string

	Description string
	Category    Category
	Schema      Schema
	Examples    []Example

	// DeferLoading marks a tool as loaded on demand via catalog search
	// rather than always advertised — supplemented feature, see
	// SPEC_FULL.md §12.
	DeferLoading bool

	// Keywords are additional search terms for discovery.
	Keywords []string
}

var nameRe = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// SearchResult is one tool matched by a catalog text search.
type SearchResult struct {
	Tool        *ToolDefinition
	Score       int
	MatchReason string
}

// Catalog stores and searches tool definitions. It is built once at
// startup and is immutable thereafter (spec §3's "Ownership": the
// dispatcher owns it as a read-only shared reference), so lookups take
// only a read lock for safety against concurrent registration in tests.
type Catalog struct {
	mu    sync.RWMutex
	tools map[string]*ToolDefinition
	order []string
}

// New creates an empty catalog.
func New() *Catalog {
	return &Catalog{tools: make(map[string]*ToolDefinition)}
}

// Register adds one tool definition. Returns an error on a malformed name,
// a missing description, or a duplicate name.
func (c *Catalog) Register(t *ToolDefinition) error {
	if t == nil {
		return fmt.Errorf("catalog: tool definition is required")
	}
	if !nameRe.MatchString(t.Name) {
		return fmt.Errorf("catalog: tool name %q does not match ^[a-z][a-z0-9_]*$", t.Name)
	}
	if t.Description == "" {
		return fmt.Errorf("catalog: tool %q has empty description", t.Name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.tools[t.Name]; exists {
		return fmt.Errorf("catalog: tool %q already registered", t.Name)
	}
	c.tools[t.Name] = t
	c.order = append(c.order, t.Name)
	return nil
}

// MustRegister panics if Register fails. Used for the static catalog
// built at process start, where a registration failure is a programming
// error, not a runtime condition.
func (c *Catalog) MustRegister(t *ToolDefinition) {
	if err := c.Register(t); err != nil {
		panic(err)
	}
}

// Get retrieves a tool by name.
func (c *Catalog) Get(name string) (*ToolDefinition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tools[name]
	return t, ok
}

// List returns all tools in registration order, for deterministic catalog
// listings across transports (testable property P1).
func (c *Catalog) List() []*ToolDefinition {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]*ToolDefinition, 0, len(c.order))
	for _, name := range c.order {
		result = append(result, c.tools[name])
	}
	return result
}

// ListByCategory returns tools in category, in registration order.
func (c *Catalog) ListByCategory(category Category) []*ToolDefinition {
	result := make([]*ToolDefinition, 0)
	for _, t := range c.List() {
		if t.Category == category {
			result = append(result, t)
		}
	}
	return result
}

// Count returns the number of registered tools.
func (c *Catalog) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tools)
}

// Search finds tools matching query: a literal substring match unless the
// query contains regex metacharacters, in which case it compiles as a
// regex (falling back to literal on a compile error).
func (c *Catalog) Search(query string) []SearchResult {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if query == "" {
		results := make([]SearchResult, 0, len(c.tools))
		for _, name := range c.order {
			results = append(results, SearchResult{Tool: c.tools[name], Score: 1, MatchReason: "empty query matches all"})
		}
		return results
	}

	if containsRegexMetaChars(query) {
		if re, err := regexp.Compile(query); err == nil {
			return c.searchRegex(re)
		}
	}
	return c.searchLiteral(query)
}

func containsRegexMetaChars(s string) bool {
	metaChars := []string{".*", ".+", "\\", "^", "$", "[", "]", "{", "}", "(", ")", "|", "?", "+", "*"}
	for _, meta := range metaChars {
		if strings.Contains(s, meta) {
			return true
		}
	}
	return false
}

func (c *Catalog) searchLiteral(query string) []SearchResult {
	queryLower := strings.ToLower(query)
	results := make([]SearchResult, 0)

	for _, name := range c.order {
		t := c.tools[name]
		nameLower := strings.ToLower(t.Name)
		descLower := strings.ToLower(t.Description)

		switch {
		case nameLower == queryLower:
			results = append(results, SearchResult{Tool: t, Score: 3, MatchReason: "exact name match"})
		case strings.Contains(nameLower, queryLower):
			results = append(results, SearchResult{Tool: t, Score: 2, MatchReason: "name contains query"})
		case keywordContains(t.Keywords, queryLower):
			results = append(results, SearchResult{Tool: t, Score: 1, MatchReason: "keyword match"})
		case strings.Contains(descLower, queryLower):
			results = append(results, SearchResult{Tool: t, Score: 1, MatchReason: "description match"})
		}
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	return results
}

func (c *Catalog) searchRegex(re *regexp.Regexp) []SearchResult {
	results := make([]SearchResult, 0)

	for _, name := range c.order {
		t := c.tools[name]
		switch {
		case re.MatchString(t.Name):
			results = append(results, SearchResult{Tool: t, Score: 2, MatchReason: "name matches pattern"})
		case keywordMatches(t.Keywords, re):
			results = append(results, SearchResult{Tool: t, Score: 1, MatchReason: "keyword matches pattern"})
		case re.MatchString(t.Description):
			results = append(results, SearchResult{Tool: t, Score: 1, MatchReason: "description matches pattern"})
		}
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	return results
}

func keywordContains(keywords []string, queryLower string) bool {
	for _, k := range keywords {
		if strings.Contains(strings.ToLower(k), queryLower) {
			return true
		}
	}
	return false
}

func keywordMatches(keywords []string, re *regexp.Regexp) bool {
	for _, k := range keywords {
		if re.MatchString(k) {
			return true
		}
	}
	return false
}
