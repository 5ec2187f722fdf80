package formapi

import "net/http"

// Component bundles the handlers with their configuration.
type Component struct {
	opts Options
}

// New constructs a component with default options plus any overrides.
func New(fns ...OptionFn) *Component {
	return &Component{opts: NewOptions(fns...)}
}

// Options returns a copy of the component configuration.
func (c *Component) Options() Options {
	if c == nil {
		return NewOptions()
	}
	return NewOptions(func(o *Options) { *o = c.opts })
}

func (c *Component) SearchHandler() http.Handler   { return SearchHandler(c.Options()) }
func (c *Component) UniqueHandler() http.Handler   { return UniqueHandler(c.Options()) }
func (c *Component) ValidateHandler() http.Handler { return ValidateHandler(c.Options()) }

// RegisterRoutes registers the component handlers under basePath on mux.
func (c *Component) RegisterRoutes(mux Mux, basePath string) ([]string, error) {
	return RegisterRoutesWithOptions(mux, basePath, c.Options())
}
