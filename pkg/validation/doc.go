// Package validation provides the schema engines that back wizard steps:
// declarative per-field rules (with expr-lang expressions for cross-field
// checks), JSON Schema documents, an always-valid stub for optional steps,
// and composition of several engines. Every engine reports at most one
// message per field, the first rule that field violated.
package validation
