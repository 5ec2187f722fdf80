// Package form drives a single entity form: per-field validation, debounced
// uniqueness checks guarded against stale results, projections between
// dependent fields, and a submit that calls the store mutator exactly once.
//
// A Controller is safe for concurrent use. Listeners receive snapshots after
// every state change and run outside the controller lock.
package form
