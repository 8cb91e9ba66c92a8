package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withCleanRegistry(t *testing.T) {
	t.Helper()
	saved := tables
	tables = NewRegistry()
	t.Cleanup(func() { tables = saved })
}

func TestRegistryAdd(t *testing.T) {
	reg := NewRegistry()

	require.NoError(t, reg.Add(TableDefinition{Info: TableInfo{Key: "posts"}}))
	err := reg.Add(TableDefinition{Info: TableInfo{Key: "posts"}})
	assert.ErrorIs(t, err, ErrTableExists)
	assert.Error(t, reg.Add(TableDefinition{}))
	assert.Equal(t, 1, reg.Len())

	reg.Reset()
	_, ok := reg.Get("posts")
	assert.False(t, ok)
}

func TestRegisterDefaults(t *testing.T) {
	withCleanRegistry(t)

	Register(TableDefinition{Info: TableInfo{Key: "posts", Group: "Content"}})
	def, ok := Get("posts")
	require.True(t, ok)
	assert.Equal(t, DefaultPageSize, def.PageSize)
	assert.Equal(t, DefaultOrderColumn, def.OrderColumn)
	assert.Equal(t, 1, TableCount())
}

func TestRegisterPanics(t *testing.T) {
	withCleanRegistry(t)
	Register(TableDefinition{Info: TableInfo{Key: "posts"}})

	assert.Panics(t, func() { Register(TableDefinition{Info: TableInfo{Key: "posts"}}) }, "duplicate key")
	assert.Panics(t, func() { Register(TableDefinition{}) }, "empty key")
	assert.Panics(t, func() {
		Register(TableDefinition{
			Info:       TableInfo{Key: "dup"},
			FieldSpecs: []FieldSpec{{Name: "a"}, {Name: "a"}},
		})
	}, "duplicate field")
}

func TestRegistryOrdering(t *testing.T) {
	withCleanRegistry(t)
	Register(TableDefinition{Info: TableInfo{Key: "payments", Group: "Payments"}})
	Register(TableDefinition{Info: TableInfo{Key: "podcasts", Group: "Databases"}})
	Register(TableDefinition{Info: TableInfo{Key: "influencers", Group: "Databases"}})

	var keys []string
	for _, d := range All() {
		keys = append(keys, d.Info.Key)
	}
	assert.Equal(t, []string{"influencers", "podcasts", "payments"}, keys)
	assert.Equal(t, []string{"Databases", "Payments"}, Groups())
	assert.Len(t, ByGroup("Databases"), 2)

	Clear()
	assert.Zero(t, TableCount())
}

func TestDefinitionConfig(t *testing.T) {
	def := TableDefinition{
		Info: TableInfo{Key: "people", Label: "People"},
		FieldSpecs: []FieldSpec{
			{Name: "name", Default: "", Editable: true, Search: false},
			{Name: "email", Variant: Email, Label: "E-mail"},
			{Name: "notes", Variant: RichText, Hidden: true},
			{Name: "status", Variant: Status, Default: "pending", Options: []DropdownOption{{Value: "pending", Label: "Pending"}}},
		},
		PreviewLabels: map[string]string{"name": "Full name"},
	}

	cfg := def.Config()
	assert.Equal(t, "People", cfg.Title)
	assert.Equal(t, []string{"name", "email", "notes", "status"}, cfg.Template.Keys())
	assert.Equal(t, "pending", cfg.Template.Value("status"))
	assert.Equal(t, []string{"name"}, cfg.EditableFields)
	assert.Equal(t, []string{"notes"}, cfg.PreviewExclude)
	assert.Equal(t, "E-mail", cfg.PreviewLabels["email"])
	assert.Equal(t, "Full name", cfg.PreviewLabels["name"])
	assert.Equal(t, Email, cfg.Variants.Of("email"))
	assert.Len(t, cfg.Dropdowns.For("status"), 1)
	assert.Equal(t, DefaultPageSize, cfg.PageSize)
	assert.Equal(t, DefaultEmptyState, cfg.EmptyState)

	assert.Equal(t, []string{"name", "email", "status"}, def.SearchColumns(), "text-like fields by default")
}
