// Package template defines the engine contract shared by template-driven
// renderers. The pongo subpackage provides the pongo2 implementation.
package template
