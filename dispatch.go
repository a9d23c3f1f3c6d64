package routegen

import (
	"cmp"
	"errors"
	"net/http"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// Site identifies a registration call in source: the file path relative to
// the module root (slash-separated) and the lines the call spans.
type Site struct {
	File    string
	Line    int
	EndLine int
}

// Matches reports whether a call at file:line belongs to s. file is the
// path runtime.Caller reports, absolute or trimmed.
func (s Site) Matches(file string, line int) bool {
	if line < s.Line || line > max(s.EndLine, s.Line) {
		return false
	}
	file = filepath.ToSlash(file)
	return file == s.File || strings.HasSuffix(file, "/"+s.File)
}

// Dispatcher builds the specialized handler for the registration at its
// site. It returns ErrHandlerMismatch when handler is not the function the
// dispatcher was generated for.
type Dispatcher func(app *App, handler any) (http.HandlerFunc, error)

// ErrHandlerMismatch is returned by a dispatcher whose site matched but
// whose handler type did not, usually because the generated file is stale.
var ErrHandlerMismatch = errors.New("routegen: handler does not match generated dispatcher")

type dispatchEntry struct {
	site Site
	fn   Dispatcher
}

var dispatchers struct {
	sync.RWMutex
	byBase map[string][]dispatchEntry
}

// RegisterDispatcher records d for the registration at site. Generated code
// calls it from init.
func RegisterDispatcher(site Site, d Dispatcher) {
	dispatchers.Lock()
	defer dispatchers.Unlock()
	if dispatchers.byBase == nil {
		dispatchers.byBase = make(map[string][]dispatchEntry)
	}
	base := path.Base(site.File)
	dispatchers.byBase[base] = append(dispatchers.byBase[base], dispatchEntry{site: site, fn: d})
}

// lookupDispatcher returns the dispatchers registered for a call at
// file:line, most specific (narrowest line range) first.
func lookupDispatcher(file string, line int) []Dispatcher {
	dispatchers.RLock()
	var matched []dispatchEntry
	for _, e := range dispatchers.byBase[path.Base(filepath.ToSlash(file))] {
		if e.site.Matches(file, line) {
			matched = append(matched, e)
		}
	}
	dispatchers.RUnlock()

	slices.SortStableFunc(matched, func(a, b dispatchEntry) int {
		return cmp.Compare(a.site.EndLine-a.site.Line, b.site.EndLine-b.site.Line)
	})
	found := make([]Dispatcher, len(matched))
	for i, e := range matched {
		found[i] = e.fn
	}
	return found
}
