package resolve

import (
	"go/ast"
	"go/constant"
	"go/types"
	"testing"

	"github.com/broady/routegen/internal/operation"
	"github.com/broady/routegen/internal/srctest"
	"github.com/broady/routegen/internal/symbols"
)

const resolveSrc = `package app

import "github.com/broady/routegen"

type Store struct{}

func (s *Store) Get(id string) routegen.Task[string] { return routegen.FromResult(id) }

func (s Store) Peek(id string) string { return id }

type Handler func(id string) routegen.Task[string]

type Routes struct{ get Handler }

func getItem(id string) routegen.Task[string] { return routegen.FromResult(id) }

func identity[T any](v T) T { return v }

func makeHandler() Handler { return getItem }

func twoHandlers() (Handler, Handler) { return getItem, getItem }

var (
	readOnly = getItem
	chained  = readOnly
	viaLit   = func(id string) routegen.Task[string] { return routegen.FromResult(id) }
	mutable  = getItem
	Exported = getItem
	addr     = getItem
	handlers = []Handler{getItem}

	pair1, pair2   = getItem, getItem
	multi1, multi2 = twoHandlers()
)

var _ = &addr

func setup(app *routegen.App, s *Store, r Routes) {
	mutable = nil

	app.MapGet("/lit", func(id string) routegen.Task[string] { return routegen.FromResult(id) })
	app.MapGet("/local", getItem)
	app.MapGet("/paren", ((getItem)))
	app.MapGet("/conv", Handler(getItem))
	app.MapGet("/conv-paren", (Handler)((getItem)))
	app.MapGet("/method-value", s.Get)
	app.MapGet("/method-expr", (*Store).Get)
	app.MapGet("/method-expr-ptr", (*Store).Peek)
	app.MapGet("/method-expr-value", Store.Peek)
	app.MapGet("/generic", identity[string])
	app.MapGet("/other-pkg", routegen.FromResult[string])
	app.MapGet("/readonly", readOnly)
	app.MapGet("/chained", chained)
	app.MapGet("/vialit", viaLit)
	app.MapGet("/pair", pair2)

	local := getItem
	app.MapGet("/local-var", local)
	converted := Handler(local)
	app.MapGet("/local-converted", (converted))

	app.MapGet("/mutable", mutable)
	app.MapGet("/exported", Exported)
	app.MapGet("/addr", addr)
	app.MapGet("/field", r.get)
	app.MapGet("/multi", multi1)
	app.MapGet("/call", makeHandler())
	app.MapGet("/nil", nil)
	app.MapGet("/index", handlers[0])

	reassigned := getItem
	reassigned = getItem
	app.MapGet("/reassigned", reassigned)

	var declaredOnly Handler
	app.MapGet("/declared-only", declaredOnly)
}
`

func setupResolve(t *testing.T) (*srctest.Package, *Resolver, map[string]*ast.CallExpr) {
	t.Helper()
	pkg := srctest.Check(t, resolveSrc)
	ix := symbols.NewIndex(&symbols.Unit{Fset: pkg.Fset, Files: pkg.Files, Info: pkg.Info, Pkg: pkg.Types})
	calls := make(map[string]*ast.CallExpr)
	for _, call := range pkg.Calls("MapGet") {
		tv := pkg.Info.Types[call.Args[0]]
		calls[constant.StringVal(tv.Value)] = call
	}
	return pkg, New(ix), calls
}

func TestResolve(t *testing.T) {
	pkg, r, calls := setupResolve(t)

	tests := []struct {
		route  string
		kind   Kind
		name   string // "" means unresolved
		params int
	}{
		{"/lit", KindAnonymous, "func literal", 1},
		{"/local", KindLocalFunction, "getItem", 1},
		{"/paren", KindLocalFunction, "getItem", 1},
		{"/conv", KindLocalFunction, "getItem", 1},
		{"/conv-paren", KindLocalFunction, "getItem", 1},
		{"/method-value", KindMethod, "Get", 1},
		{"/method-expr", KindMethod, "Get", 2},
		{"/method-expr-ptr", KindMethod, "Peek", 2},
		{"/method-expr-value", KindMethod, "Peek", 2},
		{"/generic", KindLocalFunction, "identity", 1},
		{"/other-pkg", KindMethod, "FromResult", 1},
		{"/readonly", KindLocalFunction, "getItem", 1},
		{"/chained", KindLocalFunction, "getItem", 1},
		{"/vialit", KindAnonymous, "func literal", 1},
		{"/pair", KindLocalFunction, "getItem", 1},
		{"/local-var", KindLocalFunction, "getItem", 1},
		{"/local-converted", KindLocalFunction, "getItem", 1},

		{"/mutable", 0, "", 0},
		{"/exported", 0, "", 0},
		{"/addr", 0, "", 0},
		{"/field", 0, "", 0},
		{"/multi", 0, "", 0},
		{"/call", 0, "", 0},
		{"/nil", 0, "", 0},
		{"/index", 0, "", 0},
		{"/reassigned", 0, "", 0},
		{"/declared-only", 0, "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.route, func(t *testing.T) {
			call, ok := calls[tt.route]
			if !ok {
				t.Fatalf("no call for %s", tt.route)
			}
			arg := operation.LowerArgument(pkg.Info, pkg.Types, call, 2)
			if arg == nil {
				t.Fatal("no handler argument")
			}
			got := r.Resolve(arg)
			if tt.name == "" {
				if got != nil {
					t.Fatalf("Resolve = %s %s, want none", got.Kind, got.Name())
				}
				return
			}
			if got == nil {
				t.Fatal("Resolve = none")
			}
			if got.Kind != tt.kind || got.Name() != tt.name {
				t.Errorf("Resolve = %s %s, want %s %s", got.Kind, got.Name(), tt.kind, tt.name)
			}
			if n := got.Signature.Params().Len(); n != tt.params {
				t.Errorf("params = %d, want %d (%s)", n, tt.params, got.Signature)
			}
		})
	}
}

func TestResolveInstantiatedSignature(t *testing.T) {
	pkg, r, calls := setupResolve(t)
	arg := operation.LowerArgument(pkg.Info, pkg.Types, calls["/generic"], 2)
	got := r.Resolve(arg)
	if got == nil {
		t.Fatal("Resolve = none")
	}
	if s := got.Signature.String(); s != "func(v string) string" {
		t.Errorf("Signature = %s, want func(v string) string", s)
	}
}

// A method expression takes its receiver as written, not as declared.
func TestResolveMethodExprSignature(t *testing.T) {
	pkg, r, calls := setupResolve(t)
	for route, want := range map[string]string{
		"/method-expr":       "func(s *Store, id string) routegen.Task[string]",
		"/method-expr-ptr":   "func(s *Store, id string) string",
		"/method-expr-value": "func(s Store, id string) string",
		"/method-value":      "func(id string) routegen.Task[string]",
	} {
		arg := operation.LowerArgument(pkg.Info, pkg.Types, calls[route], 2)
		got := r.Resolve(arg)
		if got == nil {
			t.Fatalf("%s: Resolve = none", route)
		}
		if s := types.TypeString(got.Signature, types.RelativeTo(pkg.Types)); s != want {
			t.Errorf("%s: Signature = %s, want %s", route, s, want)
		}
	}
}

// A method reached without a method value or expression has no callable
// signature.
func TestResolveUnboundMethod(t *testing.T) {
	pkg, r, _ := setupResolve(t)
	store := pkg.Lookup(t, "Store").Type()
	obj, _, _ := types.LookupFieldOrMethod(store, false, pkg.Types, "Peek")
	if got := r.Resolve(&operation.MethodReference{Func: obj.(*types.Func)}); got != nil {
		t.Errorf("Resolve = %s, want none", got.Signature)
	}
}

func TestResolveWithoutIndex(t *testing.T) {
	pkg, _, calls := setupResolve(t)
	r := New(nil)
	for route, want := range map[string]bool{"/local": true, "/readonly": false, "/local-var": false} {
		arg := operation.LowerArgument(pkg.Info, pkg.Types, calls[route], 2)
		if got := r.Resolve(arg) != nil; got != want {
			t.Errorf("%s: resolved = %v, want %v", route, got, want)
		}
	}
}

// Every chain of wrappers around a terminal resolves to that terminal.
func TestResolveChains(t *testing.T) {
	pkg := srctest.Check(t, resolveSrc)
	fn := pkg.Lookup(t, "getItem").(*types.Func)
	sig := fn.Type().(*types.Signature)
	lit := &ast.FuncLit{Type: &ast.FuncType{}}

	wrappers := []struct {
		name string
		wrap func(operation.Operation) operation.Operation
	}{
		{"argument", func(op operation.Operation) operation.Operation {
			return &operation.Argument{Ordinal: 2, Value: op}
		}},
		{"conversion", func(op operation.Operation) operation.Operation {
			return &operation.Conversion{Operand: op, Type: types.NewInterfaceType(nil, nil), Implicit: true}
		}},
		{"delegate", func(op operation.Operation) operation.Operation {
			return &operation.DelegateCreation{Target: op, Type: sig}
		}},
		{"paren", func(op operation.Operation) operation.Operation {
			return &operation.Parenthesized{Operand: op}
		}},
	}
	terminals := []struct {
		name string
		op   operation.Operation
		kind Kind
	}{
		{"literal", &operation.AnonymousFunction{Lit: lit, Signature: sig}, KindAnonymous},
		{"local", &operation.LocalFunctionReference{Func: fn}, KindLocalFunction},
		{"method", &operation.MethodReference{Func: fn}, KindMethod},
	}

	r := New(nil)
	var chains [][]int
	var gen func(prefix []int, depth int)
	gen = func(prefix []int, depth int) {
		chains = append(chains, prefix)
		if depth == 0 {
			return
		}
		for i := range wrappers {
			gen(append(append([]int(nil), prefix...), i), depth-1)
		}
	}
	gen(nil, 4)

	for _, term := range terminals {
		for _, chain := range chains {
			op := term.op
			for _, w := range chain {
				op = wrappers[w].wrap(op)
			}
			got := r.Resolve(op)
			if got == nil {
				t.Fatalf("%s via %v: unresolved", term.name, chain)
			}
			if got.Kind != term.kind {
				t.Errorf("%s via %v: kind = %s, want %s", term.name, chain, got.Kind, term.kind)
			}
		}

		for _, w := range wrappers {
			if got := r.Resolve(w.wrap(&operation.Unsupported{})); got != nil {
				t.Errorf("%s(unsupported) resolved to %s", w.name, got.Name())
			}
		}
	}
}
