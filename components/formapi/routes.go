package formapi

import (
	"fmt"
	"net/http"
	"strings"
)

// Mux is the minimal interface required to register a net/http handler.
// It is satisfied by *http.ServeMux and chi.Router.
type Mux interface {
	Handle(pattern string, handler http.Handler)
}

// RegisterRoutes registers every handler under basePath on mux and returns
// the mounted patterns.
func RegisterRoutes(mux Mux, basePath string, fns ...OptionFn) ([]string, error) {
	return RegisterRoutesWithOptions(mux, basePath, NewOptions(fns...))
}

// RegisterRoutesWithOptions is RegisterRoutes with a pre-built Options value.
func RegisterRoutesWithOptions(mux Mux, basePath string, opts Options) ([]string, error) {
	if mux == nil {
		return nil, fmt.Errorf("formapi: missing mux")
	}
	opts = NewOptions(func(o *Options) { *o = opts })
	routes := []struct {
		path    string
		handler http.Handler
	}{
		{opts.SearchPath, SearchHandler(opts)},
		{opts.UniquePath, UniqueHandler(opts)},
		{opts.ValidatePath, ValidateHandler(opts)},
	}
	patterns := make([]string, 0, len(routes))
	for _, route := range routes {
		pattern := mountPath(basePath, route.path)
		mux.Handle(pattern, route.handler)
		patterns = append(patterns, pattern)
	}
	return patterns, nil
}

func mountPath(basePath, routePath string) string {
	basePath = strings.TrimSpace(basePath)
	routePath = strings.TrimSpace(routePath)

	if routePath == "" {
		routePath = "/"
	}
	if !strings.HasPrefix(routePath, "/") {
		routePath = "/" + routePath
	}

	if basePath == "" || basePath == "/" {
		return routePath
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	basePath = strings.TrimRight(basePath, "/")
	return basePath + routePath
}
