package route

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func booksSpec() Spec {
	return NewSpec(
		Entry{Pattern: "", Handler: Ref("index")},
		Entry{Pattern: "new", Handler: Ref("create")},
		Entry{Pattern: "/:id", Handler: Ref("show")},
	)
}

func tableNames(t *Table) map[string]string {
	out := map[string]string{}
	for _, e := range t.Entries() {
		out[e.Pattern] = e.Handler.Name
	}
	return out
}

func TestSeparator(t *testing.T) {
	tests := []struct {
		prefix string
		want   string
	}{
		{"", "/"},
		{"books", "/"},
		{"books/", ""},
		{"/", ""},
		{"a/b", "/"},
	}

	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			assert.Equal(t, tt.want, Separator(tt.prefix))
		})
	}
}

func TestCompile(t *testing.T) {
	tests := []struct {
		name     string
		spec     Spec
		prefix   string
		trailing bool
		want     map[string]string
		order    []string
	}{
		{
			name:   "books without trailing slash routes",
			spec:   booksSpec(),
			prefix: "books",
			want: map[string]string{
				"books":     "index",
				"books/new": "create",
				"books/:id": "show",
			},
			order: []string{"books", "books/new", "books/:id"},
		},
		{
			name:     "books with trailing slash routes",
			spec:     booksSpec(),
			prefix:   "books",
			trailing: true,
			want: map[string]string{
				"books":      "index",
				"books/":     "index",
				"books/new":  "create",
				"books/new/": "create",
				"books/:id":  "show",
				"books/:id/": "show",
			},
			order: []string{"books", "books/", "books/new", "books/new/", "books/:id", "books/:id/"},
		},
		{
			name:   "prefix with trailing slash and leading slash pattern",
			spec:   NewSpec(Entry{Pattern: "/new", Handler: Ref("create")}),
			prefix: "books/",
			want:   map[string]string{"books/new": "create"},
		},
		{
			name:   "default route under prefix with trailing slash",
			spec:   NewSpec(Entry{Pattern: "", Handler: Ref("index")}),
			prefix: "books/",
			want:   map[string]string{"books/": "index"},
		},
		{
			name:   "only one leading slash is stripped",
			spec:   NewSpec(Entry{Pattern: "//x", Handler: Ref("x")}),
			prefix: "a",
			want:   map[string]string{"a//x": "x"},
		},
		{
			name:   "empty prefix",
			spec:   booksSpec(),
			prefix: "",
			want: map[string]string{
				"":     "index",
				"/new": "create",
				"/:id": "show",
			},
		},
		{
			name:   "collision keeps the last handler",
			spec:   NewSpec(Entry{Pattern: "new", Handler: Ref("first")}, Entry{Pattern: "/new", Handler: Ref("second")}),
			prefix: "books",
			want:   map[string]string{"books/new": "second"},
		},
		{
			name:   "empty spec",
			spec:   Spec{},
			prefix: "books",
			want:   map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := Compile(tt.spec, tt.prefix, Separator(tt.prefix), tt.trailing)
			assert.Equal(t, tt.want, tableNames(table))
			if tt.order != nil {
				assert.Equal(t, tt.order, table.Patterns())
			}
		})
	}
}

func TestCompile_JoinProperties(t *testing.T) {
	prefixes := []string{"books", "a/b", "shop/items", "x"}
	patterns := []string{"new", ":id", "edit/:id", "*path", "search(/:q)"}

	for _, p := range prefixes {
		for _, r := range patterns {
			spec := NewSpec(Entry{Pattern: r, Handler: Ref("h")})

			table := Compile(spec, p, Separator(p), false)
			require.Equal(t, []string{p + "/" + r}, table.Patterns())

			slashed := p + "/"
			table = Compile(NewSpec(Entry{Pattern: "/" + r, Handler: Ref("h")}), slashed, Separator(slashed), false)
			require.Equal(t, []string{slashed + r}, table.Patterns())
			assert.False(t, strings.Contains(table.Patterns()[0], "//"))
		}
	}
}

func TestCompile_TrailingSlashEntryCounts(t *testing.T) {
	spec := booksSpec()

	plain := Compile(spec, "books", "/", false)
	assert.Equal(t, spec.Len(), plain.Len())

	doubled := Compile(spec, "books", "/", true)
	assert.Equal(t, 2*spec.Len(), doubled.Len())
	for _, e := range plain.Entries() {
		h, ok := doubled.Get(e.Pattern + "/")
		require.True(t, ok, e.Pattern)
		assert.Equal(t, e.Handler.Name, h.Name)
	}
}

func TestCompile_DoesNotModifySpec(t *testing.T) {
	spec := booksSpec()
	before := spec.Entries()

	Compile(spec, "books", "/", true)

	assert.Equal(t, before, spec.Entries())
}

func TestCompile_BoundHandlersAreShared(t *testing.T) {
	calls := 0
	action := func(Call) error {
		calls++
		return nil
	}
	table := Compile(NewSpec(Entry{Pattern: "new", Handler: Bind(action)}), "books", "/", true)

	for _, p := range []string{"books/new", "books/new/"} {
		h, ok := table.Get(p)
		require.True(t, ok)
		require.True(t, h.IsBound())
		require.NoError(t, h.Action(Call{Pattern: p}))
	}
	assert.Equal(t, 2, calls)
}
