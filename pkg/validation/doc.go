// Package validation evaluates rule sets from pkg/rules against raw form
// values. The engine returns the first failing rule per field and renders its
// message through pongo2 templates. Phone normalisation and offer price
// arithmetic live here so workflows and HTTP handlers share one definition.
package validation
