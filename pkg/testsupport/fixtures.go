package testsupport

import (
	"context"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formflow/pkg/entity"
)

// MarketplaceRecords returns a small catalogue shared by the controller
// tests: three categories, services in two of them and two users.
func MarketplaceRecords() []entity.Record {
	return []entity.Record{
		{ID: "cat-elder", Type: entity.Category, Name: "Elder Care", Description: "Companionship and assisted living help"},
		{ID: "cat-plumbing", Type: entity.Category, Name: "Plumbing", Description: "Leaks, taps and pipes"},
		{ID: "cat-cleaning", Type: entity.Category, Name: "Cleaning", Description: "Homes and offices"},
		{ID: "svc-transport", Type: entity.Service, Name: "Elder Transport", CategoryID: "cat-elder", DurationMinutes: 90},
		{ID: "svc-tap", Type: entity.Service, Name: "Tap Fitting", CategoryID: "cat-plumbing", DurationMinutes: 45},
		{ID: "svc-deep", Type: entity.Service, Name: "Deep Clean", CategoryName: "Cleaning", DurationMinutes: 180},
		{ID: "usr-asha", Type: entity.User, Name: "Asha Rao", Email: "asha@example.com"},
		{ID: "usr-ben", Type: entity.User, Name: "Ben Elder", Email: "ben@example.com"},
	}
}

// Context returns a background context for tests.
func Context() context.Context {
	return context.Background()
}

// Diff returns a go-cmp diff between want and got, empty when equal.
func Diff(want, got any, opts ...cmp.Option) string {
	return cmp.Diff(want, got, opts...)
}
