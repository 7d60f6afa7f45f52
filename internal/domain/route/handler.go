package route

// Call describes a dispatched navigation.
type Call struct {
	// Pattern is the absolute pattern that matched.
	Pattern string
	// Location is the location that was dispatched.
	Location string
	// Names and Values hold extracted parameters in pattern order.
	Names  []string
	Values []string
	// Query is the raw query string, without the leading "?".
	Query string
}

// Param returns the value of the named parameter.
func (c Call) Param(name string) string {
	for i, n := range c.Names {
		if n == name && i < len(c.Values) {
			return c.Values[i]
		}
	}
	return ""
}

// Action handles a dispatched navigation.
type Action func(call Call) error

// Handler is a handler reference: either a name resolved against a
// controller when a navigation matches, or a bound action.
type Handler struct {
	Name   string
	Action Action
}

// Ref returns a handler reference resolved by name.
func Ref(name string) Handler {
	return Handler{Name: name}
}

// Bind returns a handler reference bound to action.
func Bind(action Action) Handler {
	return Handler{Action: action}
}

// IsBound reports whether h carries its own action.
func (h Handler) IsBound() bool {
	return h.Action != nil
}

// String returns the reference name, or "<bound>" for bound actions.
func (h Handler) String() string {
	if h.Name != "" {
		return h.Name
	}
	if h.Action != nil {
		return "<bound>"
	}
	return ""
}

// Controller resolves handler names to actions.
type Controller interface {
	Action(name string) (Action, bool)
}

// Actions is a Controller backed by a map.
type Actions map[string]Action

// Action implements Controller.
func (a Actions) Action(name string) (Action, bool) {
	fn, ok := a[name]
	return fn, ok && fn != nil
}

// ControllerFunc adapts a function to Controller.
type ControllerFunc func(name string) (Action, bool)

// Action implements Controller.
func (f ControllerFunc) Action(name string) (Action, bool) {
	return f(name)
}

// Matcher tests locations against a compiled pattern.
type Matcher interface {
	Match(location string) bool
	// Params returns extracted parameters when location matches.
	Params(location string) (names, values []string, ok bool)
}
