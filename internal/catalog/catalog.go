// Package catalog loads table definitions from a YAML file so tables can be
// added without code changes. Catalog tables are registered next to the
// built-in ones.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/JonMunkholm/fastro/internal/core"
)

// DefaultGroup is the navigation group of catalog tables that name none.
const DefaultGroup = "Catalog"

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// File is the catalog document.
type File struct {
	Defaults Defaults    `koanf:"defaults"`
	Tables   []TableSpec `koanf:"tables"`
}

// Defaults apply to every table that leaves the setting unset.
type Defaults struct {
	Group    string `koanf:"group"`
	PageSize int    `koanf:"page_size"`
}

// TableSpec declares one table.
type TableSpec struct {
	Key           string            `koanf:"key"`
	Group         string            `koanf:"group"`
	Label         string            `koanf:"label"`
	Description   string            `koanf:"description"`
	PageSize      int               `koanf:"page_size"`
	OrderColumn   string            `koanf:"order_column"`
	Returning     []string          `koanf:"returning"`
	RPC           string            `koanf:"rpc"`
	RPCParams     map[string]any    `koanf:"rpc_params"`
	PerRowDelete  bool              `koanf:"per_row_delete"`
	EmptyState    string            `koanf:"empty_state"`
	Features      map[string]bool   `koanf:"features"` // Overrides of the default features
	StatusMap     core.StatusMap    `koanf:"status_map"`
	PreviewLabels map[string]string `koanf:"preview_labels"`
	Fields        []FieldSpec       `koanf:"fields"`
}

// FieldSpec declares one field, in display order.
type FieldSpec struct {
	Name     string                `koanf:"name"`
	Label    string                `koanf:"label"`
	Variant  core.Variant          `koanf:"variant"`
	Default  any                   `koanf:"default"`
	Editable bool                  `koanf:"editable"`
	Hidden   bool                  `koanf:"hidden"`
	Search   bool                  `koanf:"search"`
	Options  []core.DropdownOption `koanf:"options"`
}

// Validate implements validation.Validatable.
func (t TableSpec) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.Key, validation.Required, validation.Match(identRe)),
		validation.Field(&t.Fields, validation.Required),
		validation.Field(&t.PageSize, validation.Min(0)),
		validation.Field(&t.OrderColumn, validation.Match(identRe)),
		validation.Field(&t.RPC, validation.Match(identRe)),
	)
}

// Validate implements validation.Validatable.
func (f FieldSpec) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Name, validation.Required, validation.Match(identRe)),
	)
}

// Load reads the catalog at path. A missing file yields no tables.
func Load(path string) ([]core.TableDefinition, error) {
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	k := koanf.New(".")
	if err := k.Load(confmap.Provider(map[string]any{
		"defaults.group":     DefaultGroup,
		"defaults.page_size": core.DefaultPageSize,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("load catalog defaults: %w", err)
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}

	var f File
	if err := k.UnmarshalWithConf("", &f, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.TextUnmarshallerHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
			Result:           &f,
			TagName:          "koanf",
			WeaklyTypedInput: true,
		},
	}); err != nil {
		return nil, fmt.Errorf("decode catalog %s: %w", path, err)
	}

	return f.Definitions()
}

// Definitions validates the catalog and converts it to table definitions.
func (f File) Definitions() ([]core.TableDefinition, error) {
	if err := validation.Validate(f.Tables); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}

	seen := make(map[string]bool, len(f.Tables))
	defs := make([]core.TableDefinition, 0, len(f.Tables))
	for _, t := range f.Tables {
		if seen[t.Key] {
			return nil, fmt.Errorf("invalid catalog: table %s declared twice", t.Key)
		}
		seen[t.Key] = true

		def, err := t.definition(f.Defaults)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func (t TableSpec) definition(d Defaults) (core.TableDefinition, error) {
	features := core.DefaultFeatures()
	if len(t.Features) > 0 {
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			TagName:     "koanf",
			ErrorUnused: true,
			Result:      &features,
		})
		if err != nil {
			return core.TableDefinition{}, err
		}
		if err := dec.Decode(t.Features); err != nil {
			return core.TableDefinition{}, fmt.Errorf("table %s features: %w", t.Key, err)
		}
	}

	group := t.Group
	if group == "" {
		group = d.Group
	}
	pageSize := t.PageSize
	if pageSize == 0 {
		pageSize = d.PageSize
	}
	label := t.Label
	if label == "" {
		label = core.Humanize(t.Key)
	}

	fields := make([]core.FieldSpec, len(t.Fields))
	for i, f := range t.Fields {
		fields[i] = core.FieldSpec{
			Name:     f.Name,
			Label:    f.Label,
			Variant:  f.Variant,
			Default:  f.Default,
			Editable: f.Editable,
			Hidden:   f.Hidden,
			Search:   f.Search,
			Options:  f.Options,
		}
	}

	return core.TableDefinition{
		Info: core.TableInfo{
			Key:         t.Key,
			Group:       group,
			Label:       label,
			Description: t.Description,
		},
		FieldSpecs:    fields,
		Features:      features,
		PageSize:      pageSize,
		OrderColumn:   t.OrderColumn,
		Returning:     t.Returning,
		RPC:           t.RPC,
		RPCParams:     t.RPCParams,
		PerRowDelete:  t.PerRowDelete,
		StatusMap:     t.StatusMap,
		PreviewLabels: t.PreviewLabels,
		EmptyState:    t.EmptyState,
	}, nil
}

// Register adds defs to the table registry. Keys already registered are
// reported instead of replacing the existing table.
func Register(defs []core.TableDefinition) error {
	var errs []error
	for _, def := range defs {
		if err := core.Add(def); err != nil {
			errs = append(errs, fmt.Errorf("catalog: %w", err))
		}
	}
	return errors.Join(errs...)
}
