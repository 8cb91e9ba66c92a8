package tables

import "github.com/JonMunkholm/fastro/internal/core"

const groupDatabases = "Databases"

func init() {
	registerInfluencers()
	registerPodcasts()
	core.Register(Investors())
}

func registerInfluencers() {
	core.Register(core.TableDefinition{
		Info: core.TableInfo{
			Key:         "influencers",
			Group:       groupDatabases,
			Label:       "Influencers",
			Description: "Creators we track for sponsorships",
		},
		FieldSpecs: []core.FieldSpec{
			{Name: "avatar", Variant: core.Avatar, Default: ""},
			{Name: "name", Variant: core.Custom, Default: "", Editable: true, Search: true},
			{Name: "username", Variant: core.Username, Default: "", Search: true},
			{Name: "email", Variant: core.Email, Default: "", Search: true},
			{Name: "phone", Variant: core.Phone, Default: ""},
			{Name: "location", Variant: core.Location, Default: "", Editable: true},
			{Name: "followers", Label: "Followers", Variant: core.Custom, Default: 0},
			{Name: "engagement_rate", Variant: core.Percentage, Default: 0},
			{Name: "rating", Variant: core.Rating, Default: 0},
			{Name: "sentiment", Variant: core.Sentiment, Default: 0.5, Hidden: true},
			{Name: "status", Variant: core.Status, Default: "pending", Editable: true, Options: []core.DropdownOption{
				{Value: "active", Label: "Active"},
				{Value: "pending", Label: "Pending"},
				{Value: "inactive", Label: "Inactive"},
			}},
			{Name: "verified", Variant: core.Verified, Default: false},
		},
		Features: core.DefaultFeatures(),
		StatusMap: core.StatusMap{
			"active":   {Icon: "🟢", Color: "green"},
			"pending":  {Icon: "⏳", Color: "orange"},
			"inactive": {Icon: "⏸", Color: "gray"},
		},
		PreviewLabels: map[string]string{"engagement_rate": "Engagement"},
		EmptyState:    "No influencers yet",
		Prepare: func(r core.Record) core.Record {
			r = r.Clone()
			if s, ok := r.Value("location").(string); ok {
				r.Set("location", NormalizeLocation(s))
			}
			return r
		},
	})
}

func registerPodcasts() {
	core.Register(core.TableDefinition{
		Info: core.TableInfo{
			Key:   "podcasts",
			Group: groupDatabases,
			Label: "Podcasts",
		},
		FieldSpecs: []core.FieldSpec{
			{Name: "cover", Variant: core.Image, Default: ""},
			{Name: "title", Variant: core.Custom, Default: "", Editable: true, Search: true},
			{Name: "host", Variant: core.Username, Default: "", Search: true},
			{Name: "category", Variant: core.Tag, Default: "business", Editable: true, Options: []core.DropdownOption{
				{Value: "business", Label: "Business"},
				{Value: "technology", Label: "Technology"},
				{Value: "culture", Label: "Culture"},
				{Value: "health", Label: "Health"},
			}},
			{Name: "episodes", Variant: core.Custom, Default: 0},
			{Name: "rating", Variant: core.Rating, Default: 0},
			{Name: "progress", Label: "Production", Variant: core.Progress, Default: 0},
			{Name: "status", Variant: core.Status, Default: "pending", Editable: true},
			{Name: "description", Variant: core.RichText, Default: "", Hidden: true},
		},
		Features: core.DefaultFeatures(),
		PageSize: 20,
	})
}

// Investors defines the investors table.
func Investors() core.TableDefinition {
	return core.TableDefinition{
		Info: core.TableInfo{
			Key:   "investors",
			Group: groupDatabases,
			Label: "Investors",
		},
		FieldSpecs: []core.FieldSpec{
			{Name: "name", Variant: core.Custom, Default: "", Editable: true},
			{Name: "firm", Variant: core.Custom, Default: "", Editable: true},
			{Name: "email", Variant: core.Email, Default: ""},
			{Name: "role", Variant: core.Role, Default: "partner", Options: []core.DropdownOption{
				{Value: "partner", Label: "Partner"},
				{Value: "principal", Label: "Principal"},
				{Value: "associate", Label: "Associate"},
				{Value: "angel", Label: "Angel"},
			}},
			{Name: "check_size", Variant: core.Currency, Default: 0, Editable: true},
			{Name: "country", Variant: core.Flag, Default: "US"},
			{Name: "brand_color", Variant: core.Color, Default: "#2563eb", Hidden: true},
			{Name: "contacts", Variant: core.EmailList, Default: []string{}},
			{Name: "lead", Variant: core.Boolean, Default: false},
		},
		Features:     core.DefaultFeatures(),
		PerRowDelete: true,
	}
}
