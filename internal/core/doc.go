// Package core holds the table domain shared by the web layer and the backend
// bindings. It has no transport or storage dependencies and can be exercised
// directly in tests.
//
// # Architecture
//
// The package is organized around several key concepts:
//
//   - Records: ordered field/value maps with an identity ([Record]).
//   - Variants: the closed set of display/edit kinds of a field ([Variant]).
//   - Table Definitions: registered via the registry, each table declares its
//     fields, features and actions.
//   - Table: the per-view orchestrator owning rows, selection, the open modal
//     and per-row mutation state ([Table]).
//
// # Table Registry
//
// Tables are registered at init time using [Register]. Each [TableDefinition]
// carries everything needed to present and edit one backend table:
//
//	core.Register(TableDefinition{
//	    Info: TableInfo{Key: "influencers", Group: "Databases", Label: "Influencers"},
//	    FieldSpecs: []FieldSpec{
//	        {Name: "name", Variant: Avatar, Editable: true},
//	        {Name: "status", Variant: Status, Options: statusOptions},
//	    },
//	    Features: DefaultFeatures(),
//	})
//
// # Mutations
//
// The orchestrator never talks to storage. Create, update and delete intents
// are validated through the data editor ([BuildForm], [Form.Submit]) and then
// handed to the [Handlers] supplied by the caller. A row with a mutation in
// flight rejects further mutations with [ErrRowBusy]; a failed mutation marks
// the row rolled back and leaves the open modal in place.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - DB001-DB008: Database errors (duplicates, constraints, connections)
//   - VAL001-VAL006: Validation errors (formats, empty bulk filters)
//   - ROW001-ROW006: Rejected row intents (busy, not editable, no selection)
//   - IMP001-IMP007: Import errors
//   - STO001-STO002: Object storage errors
//
// # Audit Logging
//
// Data modifications are recorded through an [AuditLogger] with severity levels:
//
//   - Low: File uploads
//   - Medium: Creates, updates and cell edits
//   - High: Imports, bulk deletes, row deletions
//
// Old audit entries are purged by the backend based on the configured
// retention.
package core
