package history

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subroute/internal/domain/dispatch"
	"subroute/internal/domain/route"
	"subroute/internal/infra/chirouter"
)

type recorder struct {
	records []dispatch.Record
	err     error
}

func (r *recorder) Record(ctx context.Context, rec dispatch.Record) error {
	r.records = append(r.records, rec)
	return r.err
}

type countingObserver struct {
	matched, unmatched int
}

func (o *countingObserver) Navigation(matched bool) {
	if matched {
		o.matched++
		return
	}
	o.unmatched++
}

func newHistory(t *testing.T, cfg Config, opts ...Option) *History {
	t.Helper()
	return New(cfg, chirouter.NewCompiler(), nil, opts...)
}

func booksTable() *route.Table {
	table := route.NewTable()
	table.Set("books", route.Ref("index"))
	table.Set("books/new", route.Ref("create"))
	table.Set("books/:id", route.Ref("show"))
	return table
}

type callLog struct {
	calls []string
	last  route.Call
}

func (l *callLog) controller() route.Actions {
	mk := func(name string) route.Action {
		return func(call route.Call) error {
			l.calls = append(l.calls, name)
			l.last = call
			return nil
		}
	}
	return route.Actions{"index": mk("index"), "create": mk("create"), "show": mk("show")}
}

func TestHistory_RegisterRoutesAndLoad(t *testing.T) {
	h := newHistory(t, Config{})
	log := &callLog{}
	require.NoError(t, h.RegisterRoutes(booksTable(), log.controller()))

	assert.Equal(t, []string{"books", "books/new", "books/:id"}, h.Patterns())

	matched, err := h.LoadURL("books/new")
	require.NoError(t, err)
	assert.True(t, matched)

	matched, err = h.LoadURL("/books/5?tab=reviews")
	require.NoError(t, err)
	assert.True(t, matched)

	assert.Equal(t, []string{"create", "show"}, log.calls)
	assert.Equal(t, "books/:id", log.last.Pattern)
	assert.Equal(t, "5", log.last.Param("id"))
	assert.Equal(t, "tab=reviews", log.last.Query)
	assert.Equal(t, "books/5?tab=reviews", h.CurrentLocation())

	matched, err = h.LoadURL("authors")
	require.NoError(t, err)
	assert.False(t, matched)
}

func TestHistory_LaterRoutersTakePrecedence(t *testing.T) {
	h := newHistory(t, Config{})
	var hits []string

	first := route.NewTable()
	first.Set("books/:id", route.Bind(func(route.Call) error { hits = append(hits, "first"); return nil }))
	second := route.NewTable()
	second.Set("books/:slug", route.Bind(func(route.Call) error { hits = append(hits, "second"); return nil }))

	require.NoError(t, h.RegisterRoutes(first, nil))
	require.NoError(t, h.RegisterRoutes(second, nil))

	_, err := h.LoadURL("books/5")
	require.NoError(t, err)
	assert.Equal(t, []string{"second"}, hits)
}

func TestHistory_ActionResolvedAtDispatch(t *testing.T) {
	h := newHistory(t, Config{})
	actions := route.Actions{}
	require.NoError(t, h.RegisterRoutes(booksTable(), actions))

	matched, err := h.LoadURL("books")
	assert.True(t, matched)
	assert.ErrorIs(t, err, ErrActionNotFound)

	called := false
	actions["index"] = func(route.Call) error { called = true; return nil }
	_, err = h.LoadURL("books")
	require.NoError(t, err)
	assert.True(t, called)
}

func TestHistory_ActionErrorIsReturned(t *testing.T) {
	h := newHistory(t, Config{})
	boom := errors.New("boom")
	require.NoError(t, h.Route("books", func(route.Call) error { return boom }))

	matched, err := h.LoadURL("books")
	assert.True(t, matched)
	assert.Same(t, boom, err)
}

func TestHistory_RegisterInvalidPattern(t *testing.T) {
	h := newHistory(t, Config{})
	table := route.NewTable()
	table.Set("files/*path/edit", route.Ref("edit"))

	err := h.RegisterRoutes(table, nil)
	assert.ErrorIs(t, err, chirouter.ErrUnsupportedPattern)
}

func TestHistory_RegisterInvalidPatternLeavesNothing(t *testing.T) {
	h := newHistory(t, Config{})
	require.NoError(t, h.RegisterRoutes(booksTable(), nil))

	table := route.NewTable()
	table.Set("authors", route.Ref("list"))
	table.Set("files/*path/edit", route.Ref("edit"))
	require.Error(t, h.RegisterRoutes(table, nil))

	assert.Equal(t, []string{"books", "books/new", "books/:id"}, h.Patterns())
	matched, err := h.LoadURL("authors")
	require.NoError(t, err)
	assert.False(t, matched)
}

func TestHistory_RecordsRootDefaultRoute(t *testing.T) {
	rec := &recorder{}
	h := newHistory(t, Config{}, WithRecorder(rec))
	log := &callLog{}
	spec := route.NewSpec(route.Entry{Pattern: "", Handler: route.Ref("index")})
	require.NoError(t, h.RegisterRoutes(route.Compile(spec, "", "/", false), log.controller()))

	matched, err := h.LoadURL("")
	require.NoError(t, err)
	assert.True(t, matched)
	assert.Equal(t, []string{"index"}, log.calls)

	require.Len(t, rec.records, 1)
	assert.True(t, rec.records[0].Matched)
	assert.Equal(t, "", rec.records[0].Pattern)
	assert.Equal(t, "index", rec.records[0].Handler)
}

func TestHistory_RouteRejectsNilAction(t *testing.T) {
	h := newHistory(t, Config{})
	assert.Error(t, h.Route("books", nil))
}

func TestHistory_Navigate(t *testing.T) {
	h := newHistory(t, Config{})
	log := &callLog{}
	require.NoError(t, h.RegisterRoutes(booksTable(), log.controller()))

	_, err := h.Navigate("books", NavigateOptions{Trigger: true})
	assert.ErrorIs(t, err, ErrNotStarted)

	_, err = h.Start("http://example.com/#books", true)
	require.NoError(t, err)
	assert.True(t, h.Started())
	assert.Empty(t, log.calls)

	matched, err := h.Navigate("books", NavigateOptions{Trigger: true})
	require.NoError(t, err)
	assert.False(t, matched, "same location is a no-op")

	matched, err = h.Navigate("books/new", NavigateOptions{})
	require.NoError(t, err)
	assert.False(t, matched)
	assert.Equal(t, "books/new", h.CurrentLocation())
	assert.Empty(t, log.calls)

	matched, err = h.Navigate("#books/7", NavigateOptions{Trigger: true})
	require.NoError(t, err)
	assert.True(t, matched)
	assert.Equal(t, []string{"show"}, log.calls)
}

func TestHistory_StartDispatches(t *testing.T) {
	h := newHistory(t, Config{})
	log := &callLog{}
	require.NoError(t, h.RegisterRoutes(booksTable(), log.controller()))

	matched, err := h.Start("http://example.com/app#/books/9", false)
	require.NoError(t, err)
	assert.True(t, matched)
	assert.Equal(t, []string{"show"}, log.calls)
}

func TestHistory_FragmentFromURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		url  string
		want string
	}{
		{"hash", Config{}, "http://example.com/app/#books/5", "books/5"},
		{"hash with slash", Config{Mode: ModeHash}, "http://example.com/#/books", "books"},
		{"hash empty", Config{}, "http://example.com/app", ""},
		{"push state at root", Config{Mode: ModePushState}, "http://example.com/books/5", "books/5"},
		{"push state below root", Config{Mode: ModePushState, Root: "app"}, "http://example.com/app/books/5?x=1", "books/5?x=1"},
		{"push state root itself", Config{Mode: ModePushState, Root: "/app/"}, "http://example.com/app", ""},
		{"push state outside root", Config{Mode: ModePushState, Root: "app"}, "http://example.com/other/1", "other/1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHistory(t, tt.cfg)
			got, err := h.FragmentFromURL(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := newHistory(t, Config{}).FragmentFromURL("http://[::1")
	assert.Error(t, err)
}

func TestFragment(t *testing.T) {
	assert.Equal(t, "books", Fragment("#books"))
	assert.Equal(t, "books", Fragment("/books"))
	assert.Equal(t, "/books", Fragment("//books"))
	assert.Equal(t, "books", Fragment("books \n"))
	assert.Equal(t, "", Fragment(""))
}

func TestHistory_RecordsAndObserves(t *testing.T) {
	rec := &recorder{err: errors.New("store down")}
	obs := &countingObserver{}
	h := newHistory(t, Config{}, WithRecorder(rec), WithObserver(obs))
	log := &callLog{}
	require.NoError(t, h.RegisterRoutes(booksTable(), log.controller()))

	_, err := h.LoadURL("books/5")
	require.NoError(t, err, "recorder failures are not navigation failures")
	_, err = h.LoadURL("nowhere")
	require.NoError(t, err)

	require.Len(t, rec.records, 2)
	assert.True(t, rec.records[0].Matched)
	assert.Equal(t, "show", rec.records[0].Handler)
	assert.Equal(t, map[string]string{"id": "5"}, rec.records[0].Params)
	assert.False(t, rec.records[1].Matched)
	assert.Equal(t, 1, obs.matched)
	assert.Equal(t, 1, obs.unmatched)
}
