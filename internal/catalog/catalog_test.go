package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCatalog(t *testing.T) *Catalog {
	t.Helper()
	c := New()
	require.NoError(t, c.Register(&ToolDefinition{
		Name: "context_store", Description: "Store a context entry", Category: CategoryContext,
		Keywords: []string{"memory", "save"},
	}))
	require.NoError(t, c.Register(&ToolDefinition{
		Name: "context_search", Description: "Search context entries by similarity", Category: CategoryContext,
		Keywords: []string{"search", "vector"},
	}))
	require.NoError(t, c.Register(&ToolDefinition{
		Name: "project_create", Description: "Create a new project", Category: CategoryProject,
	}))
	return c
}

func TestRegister_RejectsBadName(t *testing.T) {
	c := New()
	err := c.Register(&ToolDefinition{Name: "Bad-Name", Description: "x", Category: CategoryProject})
	assert.Error(t, err)
}

func TestRegister_RejectsDuplicate(t *testing.T) {
	c := sampleCatalog(t)
	err := c.Register(&ToolDefinition{Name: "context_store", Description: "dup", Category: CategoryContext})
	assert.Error(t, err)
}

func TestRegister_RejectsEmptyDescription(t *testing.T) {
	c := New()
	err := c.Register(&ToolDefinition{Name: "context_store", Category: CategoryContext})
	assert.Error(t, err)
}

func TestGet(t *testing.T) {
	c := sampleCatalog(t)
	tool, ok := c.Get("context_store")
	require.True(t, ok)
	assert.Equal(t, "Store a context entry", tool.Description)

	_, ok = c.Get("nonexistent")
	assert.False(t, ok)
}

func TestList_PreservesRegistrationOrder(t *testing.T) {
	c := sampleCatalog(t)
	names := make([]string, 0)
	for _, t := range c.List() {
		names = append(names, t.Name)
	}
	assert.Equal(t, []string{"context_store", "context_search", "project_create"}, names)
}

func TestListByCategory(t *testing.T) {
	c := sampleCatalog(t)
	tools := c.ListByCategory(CategoryContext)
	assert.Len(t, tools, 2)
}

func TestCount(t *testing.T) {
	c := sampleCatalog(t)
	assert.Equal(t, 3, c.Count())
}

func TestSearch_ExactNameScoresHighest(t *testing.T) {
	c := sampleCatalog(t)
	results := c.Search("context_store")
	require.NotEmpty(t, results)
	assert.Equal(t, "context_store", results[0].Tool.Name)
	assert.Equal(t, 3, results[0].Score)
}

func TestSearch_NameContains(t *testing.T) {
	c := sampleCatalog(t)
	results := c.Search("context")
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, 2, r.Score)
	}
}

func TestSearch_KeywordMatch(t *testing.T) {
	c := sampleCatalog(t)
	results := c.Search("vector")
	require.NotEmpty(t, results)
	assert.Equal(t, "context_search", results[0].Tool.Name)
}

func TestSearch_EmptyQueryMatchesAll(t *testing.T) {
	c := sampleCatalog(t)
	results := c.Search("")
	assert.Len(t, results, 3)
}

func TestSearch_RegexPattern(t *testing.T) {
	c := sampleCatalog(t)
	results := c.Search("^context_(store|search)$")
	assert.Len(t, results, 2)
}

func TestSchema_FieldByName(t *testing.T) {
	s := Schema{Fields: []Field{{Name: "type", Type: TypeString}, {Name: "limit", Type: TypeInteger}}}
	f := s.FieldByName("limit")
	require.NotNil(t, f)
	assert.Equal(t, TypeInteger, f.Type)
	assert.Nil(t, s.FieldByName("missing"))
}
