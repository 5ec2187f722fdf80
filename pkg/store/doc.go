// Package store declares the data-fetch and data-mutation collaborators used
// by the form, uniqueness and search controllers, along with the structured
// errors adapters return. Concrete adapters live in subpackages: memory for
// tests and seeded demos, sqlite for local persistence, supabase for the
// hosted PostgREST backend and breaker for wrapping any of them in a circuit
// breaker.
package store
