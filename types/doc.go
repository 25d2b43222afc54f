// Package types contains the core data model and interfaces shared by all
// eventproc packages.
//
// Keeping these definitions in a leaf package lets internal packages depend
// on them without importing the root eventproc package, which re-exports
// them via type aliases for a convenient public API.
package types
