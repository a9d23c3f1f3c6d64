// Package discover finds handler registration calls.
//
// A registration is any call of a Map* method of *routegen.App:
//
//	app.MapGet("/items/{id}", getItem)
//	(*routegen.App).MapPost(app, "/items", createItem)
//
// Calls are matched by the identity of the callee, so aliased imports,
// embedded *App values and method expressions are all found.
package discover

import (
	"go/ast"
	"go/token"
	"go/types"
	"path/filepath"

	"golang.org/x/tools/go/ast/inspector"
	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/types/typeutil"

	"github.com/broady/routegen/internal/catalog"
	"github.com/broady/routegen/internal/endpoint"
	"github.com/broady/routegen/internal/symbols"
)

// Result contains the registration calls of one package and where the
// package lives.
type Result struct {
	Sites       []endpoint.CallSite
	PackagePath string
	PackageName string
	ModulePath  string
	ModuleDir   string // directory containing go.mod
	Dir         string // directory containing the package
}

// Package scans a loaded package. The package must have been loaded with
// syntax and type information.
func Package(cat *catalog.Catalog, pkg *packages.Package) *Result {
	result := &Result{
		PackagePath: pkg.PkgPath,
		PackageName: pkg.Name,
	}
	if pkg.Module != nil {
		result.ModulePath = pkg.Module.Path
		result.ModuleDir = pkg.Module.Dir
	}
	if len(pkg.GoFiles) > 0 {
		result.Dir = filepath.Dir(pkg.GoFiles[0])
	}
	result.Sites = Sites(cat, &symbols.Unit{
		Fset:  pkg.Fset,
		Files: pkg.Syntax,
		Info:  pkg.TypesInfo,
		Pkg:   pkg.Types,
	})
	return result
}

// Sites returns the registration calls in u in source order.
func Sites(cat *catalog.Catalog, u *symbols.Unit) []endpoint.CallSite {
	return Inspect(inspector.New(u.Files), cat, u.Fset, u.Info, u.Pkg)
}

// Inspect is Sites over an existing inspector, as an analysis pass has one.
func Inspect(in *inspector.Inspector, cat *catalog.Catalog, fset *token.FileSet, info *types.Info, pkg *types.Package) []endpoint.CallSite {
	if cat == nil {
		return nil
	}
	var sites []endpoint.CallSite
	in.Preorder([]ast.Node{(*ast.CallExpr)(nil)}, func(n ast.Node) {
		call := n.(*ast.CallExpr)
		fn, ok := typeutil.Callee(info, call).(*types.Func)
		if !ok || !cat.IsRegistration(fn) {
			return
		}
		start := call.Pos()
		if isMethodExpr(info, call) {
			// (*App).MapGet(app, pattern, handler): shift the receiver
			// into place so ordinals line up with the method call form.
			call = asMethodCall(call)
			if call == nil {
				return
			}
		}
		site := endpoint.NewCallSite(fset, info, pkg, call, fn.Name())
		site.Line = fset.Position(start).Line
		sites = append(sites, site)
	})
	return sites
}

func isMethodExpr(info *types.Info, call *ast.CallExpr) bool {
	sel, ok := ast.Unparen(call.Fun).(*ast.SelectorExpr)
	if !ok {
		return false
	}
	s, ok := info.Selections[sel]
	return ok && s.Kind() == types.MethodExpr
}

// asMethodCall rewrites T.M(recv, args...) as recv.M(args...). The new
// nodes keep the original positions; the selector's Sel is shared, so type
// information recorded for it stays reachable.
func asMethodCall(call *ast.CallExpr) *ast.CallExpr {
	if len(call.Args) == 0 {
		return nil
	}
	sel := ast.Unparen(call.Fun).(*ast.SelectorExpr)
	return &ast.CallExpr{
		Fun:      &ast.SelectorExpr{X: call.Args[0], Sel: sel.Sel},
		Lparen:   call.Lparen,
		Args:     call.Args[1:],
		Ellipsis: call.Ellipsis,
		Rparen:   call.Rparen,
	}
}
