// Package tools maps names to step functions and routers so graphs can be
// described declaratively and resolved at build time.
//
// A Registry is an ordinary value: create one, register what a deployment
// needs and pass it to definition.Build or the HTTP server.
//
//	reg := tools.NewRegistry()
//	reg.MustRegister("extract_functions", extractFunctions, "Extract function definitions")
//	reg.MustRegisterRouter("route_after_score", routeAfterScore, "Loop until the score is good enough")
package tools

import (
	"errors"
	"fmt"

	"github.com/randalmurphal/stepgraph/pkg/stepgraph"
	"github.com/randalmurphal/stepgraph/pkg/stepgraph/registry"
)

var (
	// ErrToolNotFound indicates a lookup for an unregistered tool.
	ErrToolNotFound = errors.New("tool not found")

	// ErrRouterNotFound indicates a lookup for an unregistered router.
	ErrRouterNotFound = errors.New("router not found")

	// ErrInvalidTool indicates an empty name or nil function at registration.
	ErrInvalidTool = errors.New("invalid tool")
)

// Tool is a registered step function.
type Tool struct {
	Name        string
	Description string
	Func        stepgraph.StepFunc
}

// NamedRouter is a registered routing function.
type NamedRouter struct {
	Name        string
	Description string
	Func        stepgraph.RouterFunc
}

// Registry holds tools and routers. It is safe for concurrent use.
type Registry struct {
	tools   *registry.Registry[string, Tool]
	routers *registry.Registry[string, NamedRouter]
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:   registry.New[string, Tool](),
		routers: registry.New[string, NamedRouter](),
	}
}

// Register adds or replaces a tool.
func (r *Registry) Register(name string, fn stepgraph.StepFunc, description string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidTool)
	}
	if fn == nil {
		return fmt.Errorf("%w: %s has no function", ErrInvalidTool, name)
	}
	r.tools.Register(name, Tool{Name: name, Description: description, Func: fn})
	return nil
}

// MustRegister is Register that panics on error. Intended for package
// init and wiring code where a bad registration is a programming error.
func (r *Registry) MustRegister(name string, fn stepgraph.StepFunc, description string) {
	if err := r.Register(name, fn, description); err != nil {
		panic(err)
	}
}

// Get returns the step function registered under name.
func (r *Registry) Get(name string) (stepgraph.StepFunc, error) {
	t, ok := r.tools.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return t.Func, nil
}

// Tool returns the full registration for name.
func (r *Registry) Tool(name string) (Tool, bool) {
	return r.tools.Get(name)
}

// Has reports whether a tool is registered under name.
func (r *Registry) Has(name string) bool {
	return r.tools.Has(name)
}

// List returns the registered tool names in sorted order.
func (r *Registry) List() []string {
	return r.tools.Keys()
}

// Descriptions returns tool name to description.
func (r *Registry) Descriptions() map[string]string {
	out := make(map[string]string, r.tools.Len())
	r.tools.Range(func(name string, t Tool) bool {
		out[name] = t.Description
		return true
	})
	return out
}

// Call runs the named tool against state.
func (r *Registry) Call(ctx stepgraph.Context, name string, state *stepgraph.State) (*stepgraph.State, error) {
	fn, err := r.Get(name)
	if err != nil {
		return state, err
	}
	return stepgraph.NewNode(name, fn, "").Execute(ctx, state)
}

// Len returns the number of tools.
func (r *Registry) Len() int {
	return r.tools.Len()
}

// RegisterRouter adds or replaces a router.
func (r *Registry) RegisterRouter(name string, fn stepgraph.RouterFunc, description string) error {
	if name == "" {
		return fmt.Errorf("%w: empty router name", ErrInvalidTool)
	}
	if fn == nil {
		return fmt.Errorf("%w: router %s has no function", ErrInvalidTool, name)
	}
	r.routers.Register(name, NamedRouter{Name: name, Description: description, Func: fn})
	return nil
}

// MustRegisterRouter is RegisterRouter that panics on error.
func (r *Registry) MustRegisterRouter(name string, fn stepgraph.RouterFunc, description string) {
	if err := r.RegisterRouter(name, fn, description); err != nil {
		panic(err)
	}
}

// Router returns the routing function registered under name.
func (r *Registry) Router(name string) (stepgraph.RouterFunc, error) {
	nr, ok := r.routers.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRouterNotFound, name)
	}
	return nr.Func, nil
}

// Routers returns router name to description.
func (r *Registry) Routers() map[string]string {
	out := make(map[string]string, r.routers.Len())
	r.routers.Range(func(name string, nr NamedRouter) bool {
		out[name] = nr.Description
		return true
	})
	return out
}
