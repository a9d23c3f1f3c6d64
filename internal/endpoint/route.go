package endpoint

import (
	"slices"
	"strings"
)

// RouteInfo is a constant route pattern.
type RouteInfo struct {
	Pattern string

	// Params are the wildcard names in pattern order. A trailing {name...}
	// wildcard is included; the {$} anchor is not.
	Params []string
}

// ParseRoute extracts the wildcards of a net/http ServeMux pattern.
func ParseRoute(pattern string) RouteInfo {
	r := RouteInfo{Pattern: pattern}
	rest := pattern
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			break
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			break
		}
		name := rest[open+1 : open+end]
		rest = rest[open+end+1:]

		name = strings.TrimSuffix(name, "...")
		if name == "" || name == "$" {
			continue
		}
		r.Params = append(r.Params, name)
	}
	return r
}

// Has reports whether name is a wildcard of the route.
func (r *RouteInfo) Has(name string) bool {
	return r != nil && name != "" && slices.Contains(r.Params, name)
}
