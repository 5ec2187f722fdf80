// Package entity defines the marketplace entity types (categories, services,
// users, providers) and the canonical Record shape shared by every store
// adapter. Row reconciliation of legacy column names happens here and nowhere
// else.
package entity
