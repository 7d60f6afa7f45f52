package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"subroute/internal/domain/dispatch"
	"subroute/internal/domain/route"
	"subroute/internal/infra/chirouter"
)

var (
	// ErrNotStarted is returned by Navigate before Start.
	ErrNotStarted = errors.New("history not started")
	// ErrActionNotFound is returned when a handler name is not on the controller.
	ErrActionNotFound = errors.New("action not found on controller")
)

// Mode selects how locations are read from URLs.
type Mode string

const (
	// ModeHash reads the location from the URL fragment.
	ModeHash Mode = "hash"
	// ModePushState reads the location from the URL path below Root.
	ModePushState Mode = "pushstate"
)

// Config holds history configuration.
type Config struct {
	Root string
	Mode Mode
}

// MatcherCompiler turns route patterns into matchers.
type MatcherCompiler interface {
	Compile(pattern string) (route.Matcher, error)
}

// Observer receives navigation outcomes.
type Observer interface {
	Navigation(matched bool)
}

// Recorder stores dispatch records.
type Recorder interface {
	Record(ctx context.Context, rec dispatch.Record) error
}

// Option configures a History.
type Option func(*History)

// WithObserver sets the navigation observer.
func WithObserver(o Observer) Option {
	return func(h *History) {
		h.observer = o
	}
}

// WithRecorder sets the dispatch recorder.
func WithRecorder(r Recorder) Option {
	return func(h *History) {
		h.recorder = r
	}
}

type handler struct {
	pattern string
	name    string
	matcher route.Matcher
	action  func() (route.Action, error)
}

// History tracks the current location and dispatches it to registered
// routes. Routes registered later take precedence over earlier ones.
type History struct {
	mu       sync.Mutex
	cfg      Config
	root     string
	matchers MatcherCompiler
	handlers []handler
	fragment string
	started  bool

	logger   *slog.Logger
	observer Observer
	recorder Recorder
	now      func() time.Time
}

// New creates a History.
func New(cfg Config, matchers MatcherCompiler, logger *slog.Logger, opts ...Option) *History {
	if cfg.Mode == "" {
		cfg.Mode = ModeHash
	}
	if logger == nil {
		logger = slog.Default()
	}
	h := &History{
		cfg:      cfg,
		root:     normalizeRoot(cfg.Root),
		matchers: matchers,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Route registers action for pattern ahead of every existing route.
func (h *History) Route(pattern string, action route.Action) error {
	if action == nil {
		return fmt.Errorf("route %q: nil action", pattern)
	}
	return h.add(pattern, "<bound>", func() (route.Action, error) { return action, nil })
}

// RegisterRoutes registers every entry of table. Within the table,
// declaration order decides precedence. Handler names are resolved against
// controller when a navigation matches.
func (h *History) RegisterRoutes(table *route.Table, controller route.Controller) error {
	entries := table.Entries()
	added := make([]handler, 0, len(entries))
	for _, e := range entries {
		ref := e.Handler
		resolve := func() (route.Action, error) {
			if ref.IsBound() {
				return ref.Action, nil
			}
			if controller != nil {
				if fn, ok := controller.Action(ref.Name); ok {
					return fn, nil
				}
			}
			return nil, fmt.Errorf("%w: %q", ErrActionNotFound, ref.Name)
		}
		hd, err := h.compile(e.Pattern, ref.String(), resolve)
		if err != nil {
			return err
		}
		added = append(added, hd)
	}
	h.prepend(added)
	return nil
}

func (h *History) add(pattern, name string, action func() (route.Action, error)) error {
	hd, err := h.compile(pattern, name, action)
	if err != nil {
		return err
	}
	h.prepend([]handler{hd})
	return nil
}

func (h *History) compile(pattern, name string, action func() (route.Action, error)) (handler, error) {
	m, err := h.matchers.Compile(pattern)
	if err != nil {
		return handler{}, fmt.Errorf("register route: %w", err)
	}
	return handler{pattern: pattern, name: name, matcher: m, action: action}, nil
}

// prepend puts hds, in their given order, ahead of every registered handler.
func (h *History) prepend(hds []handler) {
	if len(hds) == 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers = append(append(make([]handler, 0, len(hds)+len(h.handlers)), hds...), h.handlers...)
}

// Patterns returns registered patterns in precedence order.
func (h *History) Patterns() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.handlers))
	for i, hd := range h.handlers {
		out[i] = hd.pattern
	}
	return out
}

// Start reads the current location from rawURL. Unless silent, the location
// is dispatched.
func (h *History) Start(rawURL string, silent bool) (bool, error) {
	fragment, err := h.FragmentFromURL(rawURL)
	if err != nil {
		return false, err
	}
	h.mu.Lock()
	h.fragment = fragment
	h.started = true
	h.mu.Unlock()

	h.logger.Info("history started", "mode", h.cfg.Mode, "root", h.root, "location", fragment)
	if silent {
		return false, nil
	}
	return h.LoadURL(fragment)
}

// Started reports whether Start has been called.
func (h *History) Started() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.started
}

// CurrentLocation returns the current location.
func (h *History) CurrentLocation() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.fragment
}

// NavigateTo dispatches location to the first matching route.
func (h *History) NavigateTo(location string) error {
	_, err := h.LoadURL(location)
	return err
}

// NavigateOptions controls Navigate.
type NavigateOptions struct {
	// Trigger dispatches the new location.
	Trigger bool
}

// Navigate moves to fragment. Navigating to the current location is a
// no-op.
func (h *History) Navigate(fragment string, opts NavigateOptions) (bool, error) {
	fragment = Fragment(fragment)
	h.mu.Lock()
	if !h.started {
		h.mu.Unlock()
		return false, ErrNotStarted
	}
	if fragment == h.fragment {
		h.mu.Unlock()
		return false, nil
	}
	h.fragment = fragment
	h.mu.Unlock()

	if !opts.Trigger {
		return false, nil
	}
	return h.LoadURL(fragment)
}

// LoadURL makes location current and runs the first route matching it.
// It reports whether a route matched; the route's error is returned as is.
func (h *History) LoadURL(location string) (bool, error) {
	fragment := Fragment(location)

	h.mu.Lock()
	h.fragment = fragment
	var found *handler
	for i := range h.handlers {
		if h.handlers[i].matcher.Match(fragment) {
			hd := h.handlers[i]
			found = &hd
			break
		}
	}
	h.mu.Unlock()

	if found == nil {
		h.logger.Debug("no route matched", "location", fragment)
		h.finish(fragment, nil, nil, nil)
		return false, nil
	}

	names, values, _ := found.matcher.Params(fragment)
	_, query := chirouter.SplitQuery(fragment)
	call := route.Call{
		Pattern:  found.pattern,
		Location: fragment,
		Names:    names,
		Values:   values,
		Query:    query,
	}

	action, err := found.action()
	if err == nil {
		err = action(call)
	}
	h.finish(fragment, found, &call, err)
	return true, err
}

func (h *History) finish(fragment string, hd *handler, call *route.Call, err error) {
	matched := hd != nil
	if h.observer != nil {
		h.observer.Navigation(matched)
	}
	if matched {
		log := h.logger.With("location", fragment, "pattern", hd.pattern, "handler", hd.name)
		if err != nil {
			log.Warn("route handler failed", "error", err)
		} else {
			log.Debug("route dispatched")
		}
	}
	if h.recorder == nil {
		return
	}

	var rec dispatch.Record
	var recErr error
	if matched {
		rec, recErr = dispatch.New(fragment, true, hd.pattern, hd.name, call.Names, call.Values, call.Query, h.now())
	} else {
		rec, recErr = dispatch.New(fragment, false, "", "", nil, nil, "", h.now())
	}
	if recErr != nil {
		h.logger.Warn("failed to build dispatch record", "error", recErr)
		return
	}
	if err != nil {
		rec.Error = err.Error()
	}
	if recErr := h.recorder.Record(context.Background(), rec); recErr != nil {
		h.logger.Warn("failed to record dispatch", "location", fragment, "error", recErr)
	}
}

// FragmentFromURL extracts the location from rawURL according to the mode.
func (h *History) FragmentFromURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if h.cfg.Mode != ModePushState {
		return Fragment(u.EscapedFragment()), nil
	}

	path := u.EscapedPath()
	switch {
	case strings.HasPrefix(path, h.root):
		path = path[len(h.root):]
	case path+"/" == h.root:
		path = ""
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return Fragment(path), nil
}

// Fragment normalizes a location: one leading "#" or "/" and any trailing
// whitespace are removed.
func Fragment(location string) string {
	if location != "" && (location[0] == '#' || location[0] == '/') {
		location = location[1:]
	}
	return strings.TrimRightFunc(location, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
}

// normalizeRoot returns root with exactly one leading and trailing slash.
func normalizeRoot(root string) string {
	trimmed := strings.Trim(strings.TrimSpace(root), "/")
	if trimmed == "" {
		return "/"
	}
	return "/" + trimmed + "/"
}
