package chirouter

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"subroute/internal/domain/route"
)

var noop = http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})

// Matcher matches locations against one route pattern using a chi routing
// tree. It is safe for concurrent use.
type Matcher struct {
	pattern string
	mux     *chi.Mux
	splat   string
}

// Compiler builds and caches matchers.
type Compiler struct {
	mu    sync.RWMutex
	cache map[string]*Matcher
}

// NewCompiler returns an empty Compiler.
func NewCompiler() *Compiler {
	return &Compiler{cache: make(map[string]*Matcher)}
}

// Compile returns the matcher for pattern.
func (c *Compiler) Compile(pattern string) (route.Matcher, error) {
	return c.compile(pattern)
}

// MustCompile is like Compile but panics on error.
func (c *Compiler) MustCompile(pattern string) *Matcher {
	m, err := c.compile(pattern)
	if err != nil {
		panic(err)
	}
	return m
}

func (c *Compiler) compile(pattern string) (*Matcher, error) {
	c.mu.RLock()
	m, ok := c.cache[pattern]
	c.mu.RUnlock()
	if ok {
		return m, nil
	}

	m, err := newMatcher(pattern)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if cached, ok := c.cache[pattern]; ok {
		m = cached
	} else {
		c.cache[pattern] = m
	}
	c.mu.Unlock()
	return m, nil
}

func newMatcher(pattern string) (m *Matcher, err error) {
	translations, err := translate(pattern)
	if err != nil {
		return nil, err
	}

	mux := chi.NewRouter()
	m = &Matcher{pattern: pattern, mux: mux}
	// chi reports invalid patterns by panicking.
	defer func() {
		if rvr := recover(); rvr != nil {
			m = nil
			err = fmt.Errorf("%w: %q: %v", ErrUnsupportedPattern, pattern, rvr)
		}
	}()
	for _, tr := range translations {
		mux.Get(tr.chiPattern, noop)
		if tr.splat != "" {
			m.splat = tr.splat
		}
	}
	return m, nil
}

// Pattern returns the route pattern the matcher was compiled from.
func (m *Matcher) Pattern() string {
	return m.pattern
}

// Match reports whether location matches the pattern. Any query string is
// ignored.
func (m *Matcher) Match(location string) bool {
	path, _ := SplitQuery(location)
	return m.mux.Match(chi.NewRouteContext(), http.MethodGet, toPath(path))
}

// Params returns the parameters extracted from location, unescaped, in
// pattern order.
func (m *Matcher) Params(location string) ([]string, []string, bool) {
	path, _ := SplitQuery(location)
	rctx := chi.NewRouteContext()
	if !m.mux.Match(rctx, http.MethodGet, toPath(path)) {
		return nil, nil, false
	}

	names := make([]string, 0, len(rctx.URLParams.Keys))
	values := make([]string, 0, len(rctx.URLParams.Values))
	for i, key := range rctx.URLParams.Keys {
		if key == "*" && m.splat != "" {
			key = m.splat
		}
		value := rctx.URLParams.Values[i]
		if unescaped, err := url.PathUnescape(value); err == nil {
			value = unescaped
		}
		names = append(names, key)
		values = append(values, value)
	}
	return names, values, true
}

// SplitQuery splits location at the first "?".
func SplitQuery(location string) (path, query string) {
	if i := strings.IndexByte(location, '?'); i >= 0 {
		return location[:i], location[i+1:]
	}
	return location, ""
}

func toPath(location string) string {
	if strings.HasPrefix(location, "/") {
		return location
	}
	return "/" + location
}
