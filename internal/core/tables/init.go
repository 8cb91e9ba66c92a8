// Package tables registers the built-in table definitions with the core
// registry. Import it for its side effects.
package tables

// Each table file uses init() to register its tables.
