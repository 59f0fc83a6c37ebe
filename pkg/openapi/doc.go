// Package openapi describes the HTTP API of a form catalog as an OpenAPI 3
// document. Every form contributes an application schema (all fields across
// its steps) and one schema per step, derived from the field metadata and
// effective rules the catalog compiled.
package openapi
