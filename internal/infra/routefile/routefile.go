package routefile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"subroute/internal/domain/route"
)

// ErrInvalidFile signals a malformed routes file.
var ErrInvalidFile = errors.New("invalid routes file")

// File is a parsed routes file.
type File struct {
	Routers []Router `yaml:"routers"`
}

// Router declares one sub-router.
type Router struct {
	Name                string
	Prefix              string
	TrailingSlashRoutes bool
	Routes              route.Spec
}

type rawRouter struct {
	Name                string    `yaml:"name"`
	Prefix              string    `yaml:"prefix"`
	TrailingSlashRoutes bool      `yaml:"trailing_slash_routes"`
	Routes              yaml.Node `yaml:"routes"`
}

// UnmarshalYAML decodes a router, keeping routes in file order.
func (r *Router) UnmarshalYAML(node *yaml.Node) error {
	var raw rawRouter
	if err := node.Decode(&raw); err != nil {
		return err
	}
	spec, err := decodeRoutes(&raw.Routes)
	if err != nil {
		return fmt.Errorf("router %q: %w", raw.Name, err)
	}
	*r = Router{
		Name:                strings.TrimSpace(raw.Name),
		Prefix:              raw.Prefix,
		TrailingSlashRoutes: raw.TrailingSlashRoutes,
		Routes:              spec,
	}
	return nil
}

func decodeRoutes(node *yaml.Node) (route.Spec, error) {
	if node.Kind == 0 {
		return route.Spec{}, nil
	}
	if node.Kind != yaml.MappingNode {
		return route.Spec{}, fmt.Errorf("%w: routes must be a mapping (line %d)", ErrInvalidFile, node.Line)
	}

	entries := make([]route.Entry, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		if key.Kind != yaml.ScalarNode || value.Kind != yaml.ScalarNode {
			return route.Spec{}, fmt.Errorf("%w: route at line %d must map a pattern to a handler name", ErrInvalidFile, key.Line)
		}
		name := strings.TrimSpace(value.Value)
		if name == "" {
			return route.Spec{}, fmt.Errorf("%w: route %q has no handler (line %d)", ErrInvalidFile, key.Value, key.Line)
		}
		entries = append(entries, route.Entry{Pattern: key.Value, Handler: route.Ref(name)})
	}
	return route.NewSpec(entries...), nil
}

// Load reads a routes file from path.
func Load(path string) (*File, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", path, err)
	}
	data, err := os.ReadFile(absPath) //nolint:gosec // path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("failed to read routes file %s: %w", path, err)
	}
	return Parse(data)
}

// LoadFromReader reads a routes file from r.
func LoadFromReader(r io.Reader) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read routes file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a routes file.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		if errors.Is(err, ErrInvalidFile) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks router names are present and unique.
func (f *File) Validate() error {
	seen := make(map[string]struct{}, len(f.Routers))
	for i, r := range f.Routers {
		if r.Name == "" {
			return fmt.Errorf("%w: router #%d has no name", ErrInvalidFile, i+1)
		}
		if _, dup := seen[r.Name]; dup {
			return fmt.Errorf("%w: duplicate router name %q", ErrInvalidFile, r.Name)
		}
		seen[r.Name] = struct{}{}
	}
	return nil
}

// Router returns the router named name.
func (f *File) Router(name string) (Router, bool) {
	for _, r := range f.Routers {
		if r.Name == name {
			return r, true
		}
	}
	return Router{}, false
}
