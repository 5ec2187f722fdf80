// Package formapi exposes the search, uniqueness and field validation
// behaviour of the admin forms as small net/http handlers returning JSON.
//
// Routes default to GET /api/search, GET /api/unique and POST /api/validate
// and can be mounted on any mux with a Handle method, including chi routers.
package formapi
