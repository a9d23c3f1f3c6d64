package generate

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"golang.org/x/tools/go/packages"

	"github.com/broady/routegen/internal/emit"
	"github.com/broady/routegen/internal/endpoint"
	"github.com/broady/routegen/internal/sink"
	"github.com/broady/routegen/internal/srctest"
	"github.com/broady/routegen/internal/symbols"
)

const appSrc = `package app

import "github.com/broady/routegen"

type Item struct{ Name string }

func getItem(id int) (Item, error) { return Item{}, nil }

func hello(name string) string { return name }

var greet = hello

func setup(app *routegen.App, dynamic string) {
	app.MapGet("/items/{id}", getItem)
	app.MapGet("/hello/{name}", greet)
	app.MapGet(dynamic, hello)
}
`

func unit(t *testing.T, src string) *symbols.Unit {
	t.Helper()
	pkg := srctest.Check(t, src)
	return &symbols.Unit{Fset: pkg.Fset, Files: pkg.Files, Info: pkg.Info, Pkg: pkg.Types}
}

func TestAnalyzeAndEmit(t *testing.T) {
	ctx := context.Background()
	pkg := NewPackage(unit(t, appSrc), "/src/app", "/src")
	if len(pkg.Sites) != 3 {
		t.Fatalf("found %d sites, want 3", len(pkg.Sites))
	}

	results, err := Analyze(ctx, []*Package{pkg}, 2, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || len(results[0].Models) != 3 {
		t.Fatalf("unexpected results: %+v", results)
	}
	for i, m := range results[0].Models {
		if m.Site.Line != pkg.Sites[i].Line {
			t.Errorf("model %d is for line %d, want %d", i, m.Site.Line, pkg.Sites[i].Line)
		}
	}

	diags := Diagnostics(results)
	if len(diags) != 1 || diags[0].Kind != endpoint.UnableToResolveRoutePattern {
		t.Errorf("Diagnostics() = %v, want one %v", diags, endpoint.UnableToResolveRoutePattern)
	}

	mem := sink.NewMemorySink()
	if err := Emit(ctx, results, mem, "/src", "", nil); err != nil {
		t.Fatal(err)
	}
	r := results[0]
	if r.File != "app/"+emit.FileName {
		t.Errorf("File = %q", r.File)
	}
	got := string(mem.Get(r.File))
	if !strings.HasPrefix(got, emit.Header) {
		t.Errorf("generated file lacks header:\n%s", got)
	}
	if r.Output.Dispatchers != 2 || len(r.Output.Skipped) != 1 {
		t.Errorf("Dispatchers = %d, Skipped = %v", r.Output.Dispatchers, r.Output.Skipped)
	}
	if !strings.Contains(got, `routegen.ParseRoute[int](r, "id")`) {
		t.Errorf("generated file does not bind id:\n%s", got)
	}
}

func TestEmitSkipsUnusedPackages(t *testing.T) {
	const src = `package app

func main() {}
`
	ctx := context.Background()
	plain := NewPackage(unit(t, src), "/src/app", "/src")
	if plain.Catalog != nil || plain.Sites != nil {
		t.Fatalf("package without routegen has catalog %v, sites %v", plain.Catalog, plain.Sites)
	}

	stale := NewPackage(unit(t, src), "/src/old", "/src")
	stale.Stale = true

	results, err := Analyze(ctx, []*Package{plain, stale}, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	mem := sink.NewMemorySink()
	if err := Emit(ctx, results, mem, "/src", "", nil); err != nil {
		t.Fatal(err)
	}
	files := mem.Files()
	if len(files) != 1 {
		t.Fatalf("wrote %d files, want 1: %v", len(files), files)
	}
	got, ok := files["old/"+emit.FileName]
	if !ok {
		t.Fatalf("stale file not rewritten: %v", files)
	}
	if strings.Contains(string(got), "func init") {
		t.Errorf("stale file should be empty:\n%s", got)
	}
}

func TestEmitOutsideRoot(t *testing.T) {
	ctx := context.Background()
	pkg := NewPackage(unit(t, appSrc), "/elsewhere/app", "/elsewhere")
	results, err := Analyze(ctx, []*Package{pkg}, 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	mem := sink.NewMemorySink()
	err = Emit(ctx, results, mem, "/src", "", nil)
	if err == nil || !strings.Contains(err.Error(), "is outside") {
		t.Fatalf("Emit() error = %v, want outside root", err)
	}
	if len(mem.Files()) != 0 {
		t.Error("file written outside root")
	}
}

type failingSink struct{ calls int }

func (s *failingSink) WriteFile(ctx context.Context, path string, content []byte) error {
	s.calls++
	return errors.New("disk full")
}

func TestEmitCollectsErrors(t *testing.T) {
	ctx := context.Background()
	a := NewPackage(unit(t, appSrc), "/src/a", "/src")
	b := NewPackage(unit(t, appSrc), "/src/b", "/src")
	results, err := Analyze(ctx, []*Package{a, b}, 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	s := &failingSink{}
	err = Emit(ctx, results, s, "/src", "", nil)
	if s.calls != 2 {
		t.Errorf("sink called %d times, want 2", s.calls)
	}
	if err == nil || strings.Count(err.Error(), "disk full") != 2 {
		t.Errorf("Emit() error = %v, want both failures", err)
	}
}

func TestAnalyzeCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pkg := NewPackage(unit(t, appSrc), "/src/app", "/src")
	if _, err := Analyze(ctx, []*Package{pkg}, 1, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("Analyze() error = %v, want context.Canceled", err)
	}
}

// cancelAfter reports cancellation once Err has been called n times.
type cancelAfter struct {
	context.Context
	n     int32
	calls atomic.Int32
}

func (c *cancelAfter) Err() error {
	if c.calls.Add(1) > c.n {
		return context.Canceled
	}
	return nil
}

func TestAnalyzeCanceledWhileRunning(t *testing.T) {
	ctx := &cancelAfter{Context: context.Background(), n: 1}
	pkg := NewPackage(unit(t, appSrc), "/src/app", "/src")
	results, err := Analyze(ctx, []*Package{pkg}, 1, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Analyze() error = %v, want context.Canceled", err)
	}
	if results != nil {
		t.Errorf("Analyze() returned results after cancellation: %v", results)
	}
}

func TestFromPackages(t *testing.T) {
	src := srctest.Check(t, appSrc)
	p := &packages.Package{
		PkgPath:      src.Types.Path(),
		Name:         src.Types.Name(),
		Fset:         src.Fset,
		Syntax:       src.Files,
		TypesInfo:    src.Info,
		Types:        src.Types,
		GoFiles:      []string{"/src/app/main.go"},
		IgnoredFiles: []string{"/src/app/" + emit.FileName, "/src/app/other_windows.go"},
		Module:       &packages.Module{Path: "example.com", Dir: "/src"},
	}
	pkg := fromPackages(p, emit.FileName)
	if !pkg.Stale {
		t.Error("generated file among ignored files not reported stale")
	}
	if pkg.Dir != "/src/app" || pkg.ModuleDir != "/src" {
		t.Errorf("Dir = %q, ModuleDir = %q", pkg.Dir, pkg.ModuleDir)
	}
	if len(pkg.Sites) != 3 || pkg.Catalog == nil {
		t.Errorf("Sites = %d, Catalog = %v", len(pkg.Sites), pkg.Catalog)
	}
}

func TestOptionsDefaults(t *testing.T) {
	o, err := Options{}.withDefaults()
	if err != nil {
		t.Fatal(err)
	}
	if len(o.Patterns) != 1 || o.Patterns[0] != "./..." {
		t.Errorf("Patterns = %v", o.Patterns)
	}
	if o.Workers <= 0 || o.FileName != emit.FileName || o.Logger == nil || o.Dir == "" || o.Dir == "." {
		t.Errorf("defaults not applied: %+v", o)
	}
}
