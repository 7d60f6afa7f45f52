package subrouter

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"subroute/internal/domain/route"
)

// ErrMissingDependency is returned when a required collaborator is nil.
var ErrMissingDependency = errors.New("missing dependency")

// Registrar registers absolute patterns with the host routing framework.
type Registrar interface {
	RegisterRoutes(table *route.Table, controller route.Controller) error
}

// MatcherCompiler turns an absolute pattern into a matcher.
type MatcherCompiler interface {
	Compile(pattern string) (route.Matcher, error)
}

// LocationService reports the current location and dispatches locations.
type LocationService interface {
	CurrentLocation() string
	NavigateTo(location string) error
}

// Observer receives construction events. A nil Observer is ignored.
type Observer interface {
	RoutesCompiled(prefix string, count int)
	InitialDispatch(matched bool)
}

// Definition carries the defaults shared by every sub-router built from it.
type Definition struct {
	Prefix                    string
	Controller                route.Controller
	CreateTrailingSlashRoutes bool
	Routes                    route.Spec

	// Initialize runs after registration and the initial dispatch.
	Initialize func(r *SubRouter, opts Options)
}

// Deps bundles the collaborators a sub-router needs.
type Deps struct {
	Registrar Registrar
	Matchers  MatcherCompiler
	Location  LocationService
	Logger    *slog.Logger
	Observer  Observer
}

func (d Deps) validate() error {
	switch {
	case d.Registrar == nil:
		return fmt.Errorf("%w: registrar", ErrMissingDependency)
	case d.Matchers == nil:
		return fmt.Errorf("%w: matcher compiler", ErrMissingDependency)
	case d.Location == nil:
		return fmt.Errorf("%w: location service", ErrMissingDependency)
	}
	return nil
}

// Options are per-instance overrides of a Definition.
type Options struct {
	Controller                route.Controller
	CreateTrailingSlashRoutes *bool
}

// Option configures Options.
type Option func(*Options)

// WithController overrides the definition's controller.
func WithController(c route.Controller) Option {
	return func(o *Options) {
		o.Controller = c
	}
}

// WithTrailingSlashRoutes overrides whether every route is also bound with a
// trailing slash.
func WithTrailingSlashRoutes(enabled bool) Option {
	return func(o *Options) {
		o.CreateTrailingSlashRoutes = &enabled
	}
}

// SubRouter is a route table mounted under a prefix. It is immutable once
// constructed.
type SubRouter struct {
	id         uuid.UUID
	prefix     string
	separator  string
	controller route.Controller
	trailing   bool
	routes     route.Spec
	table      *route.Table

	initialPattern string
	initialMatched bool
}

// Factory builds sub-routers from one Definition.
type Factory struct {
	def  Definition
	deps Deps
}

// Define returns a Factory for def.
func Define(def Definition, deps Deps) *Factory {
	return &Factory{def: def, deps: deps}
}

// New builds a sub-router under prefix.
func (f *Factory) New(prefix string, opts ...Option) (*SubRouter, error) {
	return New(f.def, f.deps, prefix, opts...)
}

// New compiles def's routes under prefix, registers them, and dispatches the
// current location if one of them matches it. An empty prefix falls back to
// def.Prefix. Errors from the collaborators are returned unchanged.
func New(def Definition, deps Deps, prefix string, opts ...Option) (*SubRouter, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	var o Options
	for _, opt := range opts {
		opt(&o)
	}

	r := &SubRouter{
		id:         uuid.New(),
		prefix:     def.Prefix,
		controller: def.Controller,
		trailing:   def.CreateTrailingSlashRoutes,
		routes:     def.Routes.Clone(),
	}
	if prefix != "" {
		r.prefix = prefix
	}
	if o.Controller != nil {
		r.controller = o.Controller
	}
	if r.controller == nil {
		r.controller = route.Actions{}
	}
	if o.CreateTrailingSlashRoutes != nil {
		r.trailing = *o.CreateTrailingSlashRoutes
	}
	r.separator = route.Separator(r.prefix)

	if r.routes.Len() > 0 {
		r.table = route.Compile(r.routes, r.prefix, r.separator, r.trailing)
	} else {
		r.table = route.NewTable()
	}
	log = log.With("router_id", r.id.String(), "prefix", r.prefix)
	log.Debug("routes compiled", "routes", r.table.Patterns(), "trailing_slash", r.trailing)
	if deps.Observer != nil {
		deps.Observer.RoutesCompiled(r.prefix, r.table.Len())
	}

	if err := deps.Registrar.RegisterRoutes(r.table.Clone(), r.controller); err != nil {
		return nil, err
	}

	if err := r.dispatchCurrent(deps, log); err != nil {
		return nil, err
	}

	if def.Initialize != nil {
		def.Initialize(r, o)
	}

	log.Info("sub-router ready", "routes", r.table.Len(), "initial_dispatch", r.initialPattern)
	return r, nil
}

// dispatchCurrent triggers navigation for the current location when it
// matches a compiled pattern. Only the first match in table order fires.
func (r *SubRouter) dispatchCurrent(deps Deps, log *slog.Logger) error {
	location := deps.Location.CurrentLocation()
	for _, e := range r.table.Entries() {
		m, err := deps.Matchers.Compile(e.Pattern)
		if err != nil {
			return err
		}
		if !m.Match(location) {
			continue
		}
		log.Debug("dispatching current location", "location", location, "pattern", e.Pattern)
		r.initialPattern = e.Pattern
		r.initialMatched = true
		if deps.Observer != nil {
			deps.Observer.InitialDispatch(true)
		}
		return deps.Location.NavigateTo(location)
	}
	if deps.Observer != nil {
		deps.Observer.InitialDispatch(false)
	}
	return nil
}

// ID returns the instance id used in logs.
func (r *SubRouter) ID() uuid.UUID { return r.id }

// Prefix returns the prefix the routes are mounted under.
func (r *SubRouter) Prefix() string { return r.prefix }

// Separator returns the separator inserted between prefix and named routes.
func (r *SubRouter) Separator() string { return r.separator }

// Controller returns the controller handler names resolve against.
func (r *SubRouter) Controller() route.Controller { return r.controller }

// TrailingSlashRoutes reports whether trailing-slash duplicates were compiled.
func (r *SubRouter) TrailingSlashRoutes() bool { return r.trailing }

// Routes returns a copy of the relative route spec.
func (r *SubRouter) Routes() route.Spec { return r.routes.Clone() }

// Table returns a copy of the compiled route table.
func (r *SubRouter) Table() *route.Table { return r.table.Clone() }

// InitialDispatch returns the pattern that matched the location at
// construction time, if any.
func (r *SubRouter) InitialDispatch() (string, bool) {
	return r.initialPattern, r.initialMatched
}
