// Package catalog loads partner intake form definitions from YAML or JSON
// files. Each file describes one form: its steps, the fields of every step
// and the declarative rules that become the step schema. The package embeds
// the six bundled partner forms (hospital, doctor, government, insurance,
// travel agency and patient) and exposes them through Default.
package catalog
