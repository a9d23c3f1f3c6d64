package routegen

import (
	"net/http"
	"testing"
)

func TestSiteMatches(t *testing.T) {
	site := Site{File: "api/routes.go", Line: 10, EndLine: 12}

	tests := []struct {
		file string
		line int
		want bool
	}{
		{"/home/me/proj/api/routes.go", 10, true},
		{"/home/me/proj/api/routes.go", 12, true},
		{"api/routes.go", 11, true},
		{"/home/me/proj/api/routes.go", 9, false},
		{"/home/me/proj/api/routes.go", 13, false},
		{"/home/me/proj/xapi/routes.go", 10, false},
		{"/home/me/proj/other/routes.go", 10, false},
	}
	for _, tt := range tests {
		if got := site.Matches(tt.file, tt.line); got != tt.want {
			t.Errorf("Matches(%q, %d) = %v, want %v", tt.file, tt.line, got, tt.want)
		}
	}

	single := Site{File: "main.go", Line: 5}
	if !single.Matches("/src/main.go", 5) || single.Matches("/src/main.go", 6) {
		t.Error("a site without EndLine should match only its line")
	}
}

func TestLookupDispatcherOrder(t *testing.T) {
	mark := func(name string) Dispatcher {
		return func(*App, any) (http.HandlerFunc, error) {
			return func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("X-Dispatcher", name)
			}, nil
		}
	}
	RegisterDispatcher(Site{File: "lookup/order.go", Line: 1, EndLine: 9}, mark("wide"))
	RegisterDispatcher(Site{File: "lookup/order.go", Line: 4, EndLine: 4}, mark("narrow"))
	RegisterDispatcher(Site{File: "lookup/order.go", Line: 20, EndLine: 21}, mark("elsewhere"))

	found := lookupDispatcher("/repo/lookup/order.go", 4)
	if len(found) != 2 {
		t.Fatalf("found %d dispatchers, want 2", len(found))
	}
	var names []string
	for _, d := range found {
		h, _ := d(nil, nil)
		w := headerRecorder{http.Header{}}
		h(w, nil)
		names = append(names, w.h.Get("X-Dispatcher"))
	}
	if names[0] != "narrow" || names[1] != "wide" {
		t.Errorf("order = %v, want [narrow wide]", names)
	}

	if found := lookupDispatcher("/repo/lookup/order.go", 15); len(found) != 0 {
		t.Errorf("found %d dispatchers outside any site", len(found))
	}
}

type headerRecorder struct{ h http.Header }

func (r headerRecorder) Header() http.Header         { return r.h }
func (r headerRecorder) Write(b []byte) (int, error) { return len(b), nil }
func (r headerRecorder) WriteHeader(int)             {}
