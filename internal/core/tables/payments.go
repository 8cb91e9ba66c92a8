package tables

import "github.com/JonMunkholm/fastro/internal/core"

func init() {
	core.Register(Payments())
}

// Payments defines the payments table. Rows load through the
// recent_payments procedure and CSV import is enabled.
func Payments() core.TableDefinition {
	features := core.DefaultFeatures()
	features.CSVImport = true

	return core.TableDefinition{
		Info: core.TableInfo{
			Key:         "payments",
			Group:       "Payments",
			Label:       "Payments",
			Description: "Incoming customer payments",
		},
		FieldSpecs: []core.FieldSpec{
			{Name: "invoice", Variant: core.Custom, Default: "", Search: true},
			{Name: "customer", Variant: core.Custom, Default: "", Editable: true, Search: true},
			{Name: "email", Variant: core.Email, Default: ""},
			{Name: "amount", Variant: core.Currency, Default: 0, Editable: true},
			{Name: "status", Variant: core.Status, Default: "pending", Editable: true, Options: []core.DropdownOption{
				{Value: "complete", Label: "Complete"},
				{Value: "pending", Label: "Pending"},
				{Value: "failed", Label: "Failed"},
			}},
			{Name: "method", Variant: core.Badge, Default: "card"},
			{Name: "paid_at", Label: "Paid", Variant: core.Date, Default: nil},
		},
		Features:  features,
		PageSize:  25,
		RPC:       "recent_payments",
		RPCParams: map[string]any{"days": 90},
		Returning: []string{"id", "invoice", "customer", "email", "amount", "status", "method", "paid_at", "created_at"},
	}
}
