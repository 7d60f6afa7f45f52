package route

import "strings"

// Separator returns the string inserted between prefix and a named route:
// empty when prefix already ends with "/", "/" otherwise.
func Separator(prefix string) string {
	if strings.HasSuffix(prefix, "/") {
		return ""
	}
	return "/"
}

// Compile rewrites the relative patterns of spec into absolute patterns under
// prefix. The default route ("") compiles to prefix itself. When
// createTrailingSlashRoutes is set, every entry is also bound with a trailing
// "/". spec is not modified.
func Compile(spec Spec, prefix, separator string, createTrailingSlashRoutes bool) *Table {
	table := NewTable()
	for _, e := range spec.entries {
		if e.Pattern == "" {
			table.Set(prefix, e.Handler)
			if createTrailingSlashRoutes {
				table.Set(prefix+"/", e.Handler)
			}
			continue
		}

		key := prefix + separator + strings.TrimPrefix(e.Pattern, "/")
		table.Set(key, e.Handler)
		if createTrailingSlashRoutes {
			table.Set(key+"/", e.Handler)
		}
	}
	return table
}
