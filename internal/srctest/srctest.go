// Package srctest type-checks small Go sources against in-memory stubs of
// context, net/http and the routegen runtime, so analysis packages can be
// tested without loading real packages through the go command.
package srctest

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"sort"
	"strings"
	"testing"
)

// PackagePath is the import path given to checked sources.
const PackagePath = "example.com/app"

// Package is a type-checked package.
type Package struct {
	Fset  *token.FileSet
	Files []*ast.File
	Info  *types.Info
	Types *types.Package
}

// Check type-checks a single file named main.go.
func Check(t testing.TB, src string) *Package {
	t.Helper()
	return CheckFiles(t, map[string]string{"main.go": src})
}

// CheckFiles type-checks files (name -> source) as one package.
func CheckFiles(t testing.TB, files map[string]string) *Package {
	t.Helper()
	pkg, err := Load(files)
	if err != nil {
		t.Fatal(err)
	}
	return pkg
}

// Load is Check without a testing.TB.
func Load(files map[string]string) (*Package, error) {
	fset := token.NewFileSet()
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var parsed []*ast.File
	for _, name := range names {
		f, err := parser.ParseFile(fset, "/src/app/"+name, files[name], parser.ParseComments)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		parsed = append(parsed, f)
	}

	info := NewInfo()
	conf := types.Config{Importer: newImporter(fset)}
	pkg, err := conf.Check(PackagePath, fset, parsed, info)
	if err != nil {
		return nil, fmt.Errorf("type check: %w", err)
	}
	return &Package{Fset: fset, Files: parsed, Info: info, Types: pkg}, nil
}

// NewInfo returns a types.Info with every map the analyzer reads.
func NewInfo() *types.Info {
	return &types.Info{
		Types:      make(map[ast.Expr]types.TypeAndValue),
		Defs:       make(map[*ast.Ident]types.Object),
		Uses:       make(map[*ast.Ident]types.Object),
		Implicits:  make(map[ast.Node]types.Object),
		Selections: make(map[*ast.SelectorExpr]*types.Selection),
		Scopes:     make(map[ast.Node]*types.Scope),
		Instances:  make(map[*ast.Ident]types.Instance),
	}
}

// Lookup returns the package-level object name or fails the test.
func (p *Package) Lookup(t testing.TB, name string) types.Object {
	t.Helper()
	obj := p.Types.Scope().Lookup(name)
	if obj == nil {
		t.Fatalf("%s not declared", name)
	}
	return obj
}

// Calls returns every call whose callee is a selector or identifier named
// name, in source order.
func (p *Package) Calls(name string) []*ast.CallExpr {
	var calls []*ast.CallExpr
	for _, f := range p.Files {
		ast.Inspect(f, func(n ast.Node) bool {
			call, ok := n.(*ast.CallExpr)
			if !ok {
				return true
			}
			switch fun := call.Fun.(type) {
			case *ast.SelectorExpr:
				if fun.Sel.Name == name {
					calls = append(calls, call)
				}
			case *ast.Ident:
				if fun.Name == name {
					calls = append(calls, call)
				}
			}
			return true
		})
	}
	return calls
}

// Call returns the only call named name or fails the test.
func (p *Package) Call(t testing.TB, name string) *ast.CallExpr {
	t.Helper()
	calls := p.Calls(name)
	if len(calls) != 1 {
		t.Fatalf("found %d calls to %s, want 1", len(calls), name)
	}
	return calls[0]
}

// Type evaluates a type expression in the scope of the first file, so the
// file's imports are visible.
func (p *Package) Type(t testing.TB, expr string) types.Type {
	t.Helper()
	_, pos := p.Scope()
	tv, err := types.Eval(p.Fset, p.Types, pos, expr)
	if err != nil {
		t.Fatalf("eval %s: %v", expr, err)
	}
	if !tv.IsType() {
		t.Fatalf("%s is not a type", expr)
	}
	return tv.Type
}

// Scope returns the package scope and a position inside the first file, the
// pair analysis code uses to look up visible functions.
func (p *Package) Scope() (*types.Scope, token.Pos) {
	if len(p.Files) == 0 {
		return p.Types.Scope(), token.NoPos
	}
	pos := p.Files[0].End() - 1
	if s := p.Types.Scope().Innermost(pos); s != nil {
		return s, pos
	}
	return p.Types.Scope(), pos
}

type importer struct {
	fset *token.FileSet
	pkgs map[string]*types.Package
}

func newImporter(fset *token.FileSet) *importer {
	return &importer{fset: fset, pkgs: make(map[string]*types.Package)}
}

func (im *importer) Import(path string) (*types.Package, error) {
	if pkg, ok := im.pkgs[path]; ok {
		return pkg, nil
	}
	src, ok := stubs[path]
	if !ok {
		return nil, fmt.Errorf("srctest: no stub for %q", path)
	}
	name := path[strings.LastIndex(path, "/")+1:]
	f, err := parser.ParseFile(im.fset, "/stub/"+path+"/"+name+".go", src, 0)
	if err != nil {
		return nil, fmt.Errorf("srctest: parse stub %s: %w", path, err)
	}
	conf := types.Config{Importer: im}
	pkg, err := conf.Check(path, im.fset, []*ast.File{f}, nil)
	if err != nil {
		return nil, fmt.Errorf("srctest: check stub %s: %w", path, err)
	}
	im.pkgs[path] = pkg
	return pkg, nil
}
