package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/fastro/internal/core"
)

const sample = `
defaults:
  group: Marketing
tables:
  - key: newsletters
    label: Newsletters
    page_size: 25
    features:
      delete: false
      csv_import: true
    status_map:
      sent:
        icon: "✉"
        color: green
    fields:
      - name: subject
        variant: text
        editable: true
        search: true
      - name: audience
        variant: tag
        default: all
        options:
          - value: all
            label: Everyone
          - value: vip
            label: VIP
      - name: open_rate
        label: Open rate
        variant: percentage
      - name: body
        variant: rich-editor
        hidden: true
      - name: mood
        variant: sparkles
  - key: partners
    group: Databases
    rpc: active_partners
    rpc_params:
      days: 30
    fields:
      - name: name
`

func writeCatalog(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tables.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	defs, err := Load(writeCatalog(t, sample))
	require.NoError(t, err)
	require.Len(t, defs, 2)

	news := defs[0]
	assert.Equal(t, core.TableInfo{Key: "newsletters", Group: "Marketing", Label: "Newsletters"}, news.Info)
	assert.Equal(t, 25, news.PageSize)

	want := core.DefaultFeatures()
	want.Delete = false
	want.CSVImport = true
	assert.Equal(t, want, news.Features)

	assert.Equal(t, core.StatusMap{"sent": {Icon: "✉", Color: "green"}}, news.StatusMap)

	require.Len(t, news.FieldSpecs, 5)
	assert.Equal(t, []string{"subject", "audience", "open_rate", "body", "mood"}, news.Columns())
	assert.Equal(t, core.Custom, news.FieldSpecs[0].Variant)
	assert.True(t, news.FieldSpecs[0].Editable)
	assert.Equal(t, core.Tag, news.FieldSpecs[1].Variant)
	assert.Equal(t, "all", news.FieldSpecs[1].Default)
	assert.Equal(t, []core.DropdownOption{{Value: "all", Label: "Everyone"}, {Value: "vip", Label: "VIP"}}, news.FieldSpecs[1].Options)
	assert.Equal(t, "Open rate", news.FieldSpecs[2].Label)
	assert.Equal(t, core.Percentage, news.FieldSpecs[2].Variant)
	assert.Equal(t, core.RichText, news.FieldSpecs[3].Variant)
	assert.Equal(t, core.Custom, news.FieldSpecs[4].Variant, "unknown variants fall back to custom")

	partners := defs[1]
	assert.Equal(t, "Databases", partners.Info.Group)
	assert.Equal(t, "Partners", partners.Info.Label)
	assert.Equal(t, core.DefaultPageSize, partners.PageSize)
	assert.Equal(t, "active_partners", partners.RPC)
	assert.EqualValues(t, 30, partners.RPCParams["days"])
}

func TestLoadMissingFile(t *testing.T) {
	defs, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.NoError(t, err)
	assert.Nil(t, defs)

	defs, err = Load("")
	assert.NoError(t, err)
	assert.Nil(t, defs)
}

func TestLoadRejectsInvalidTables(t *testing.T) {
	tests := map[string]string{
		"bad key":        "tables:\n  - key: \"drop table\"\n    fields:\n      - name: a\n",
		"no fields":      "tables:\n  - key: empty\n",
		"bad field":      "tables:\n  - key: t\n    fields:\n      - name: \"a-b\"\n",
		"duplicate":      "tables:\n  - key: t\n    fields: [{name: a}]\n  - key: t\n    fields: [{name: b}]\n",
		"unknown toggle": "tables:\n  - key: t\n    features: {teleport: true}\n    fields: [{name: a}]\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeCatalog(t, body))
			assert.Error(t, err)
		})
	}
}

func TestRegister(t *testing.T) {
	t.Cleanup(core.Clear)
	core.Clear()

	core.Register(core.TableDefinition{
		Info:       core.TableInfo{Key: "partners"},
		FieldSpecs: []core.FieldSpec{{Name: "name"}},
	})

	err := Register([]core.TableDefinition{
		{Info: core.TableInfo{Key: "partners"}, FieldSpecs: []core.FieldSpec{{Name: "x"}}},
		{Info: core.TableInfo{Key: "newsletters"}, FieldSpecs: []core.FieldSpec{{Name: "subject"}}},
	})
	assert.ErrorIs(t, err, core.ErrTableExists)
	assert.ErrorContains(t, err, "partners")

	_, ok := core.Get("newsletters")
	assert.True(t, ok)
}
