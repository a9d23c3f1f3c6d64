package operation

import (
	"fmt"
	"go/ast"
	"go/constant"
	"strings"
	"testing"

	"github.com/broady/routegen/internal/srctest"
)

const lowerSrc = `package app

import "github.com/broady/routegen"

type Store struct{ h func() }

func (s Store) Get() {}

type H func()

func local() {}

func gen[T any]() {}

var v = local

func setup(app *routegen.App, s Store) {
	app.Map("/lit", func() {})
	app.Map("/local", local)
	app.Map("/paren", (local))
	app.Map("/conv", H(local))
	app.Map("/method-value", s.Get)
	app.Map("/method-expr", Store.Get)
	app.Map("/field", s.h)
	app.Map("/var", v)
	app.Map("/gen", gen[int])
	app.Map("/foreign", routegen.NewApp)
	app.Map("/call", makeH())
	app.Map("/typed", H(nil))
}

func makeH() H { return nil }
`

// describe renders an operation chain as nested variant names.
func describe(op Operation) string {
	switch op := op.(type) {
	case *Argument:
		return fmt.Sprintf("Argument(%s)", describe(op.Value))
	case *Conversion:
		if op.Implicit {
			return fmt.Sprintf("Implicit(%s)", describe(op.Operand))
		}
		return fmt.Sprintf("Conversion(%s)", describe(op.Operand))
	case *DelegateCreation:
		return fmt.Sprintf("Delegate(%s)", describe(op.Target))
	case *Parenthesized:
		return fmt.Sprintf("Paren(%s)", describe(op.Operand))
	case *VariableReference:
		return "Var " + op.Var.Name()
	case *AnonymousFunction:
		return "Func"
	case *LocalFunctionReference:
		return "Local " + op.Func.Name()
	case *MethodReference:
		return "Method " + op.Func.Name()
	case *Unsupported:
		return "Unsupported"
	}
	return "?"
}

func TestLowerArgument(t *testing.T) {
	pkg := srctest.Check(t, lowerSrc)
	byRoute := make(map[string]*ast.CallExpr)
	for _, call := range pkg.Calls("Map") {
		byRoute[constant.StringVal(pkg.Info.Types[call.Args[0]].Value)] = call
	}

	tests := []struct {
		route string
		want  string
	}{
		{"/lit", "Argument(Implicit(Func))"},
		{"/local", "Argument(Implicit(Local local))"},
		{"/paren", "Argument(Implicit(Paren(Local local)))"},
		{"/conv", "Argument(Implicit(Conversion(Local local)))"},
		{"/method-value", "Argument(Implicit(Delegate(Method Get)))"},
		{"/method-expr", "Argument(Implicit(Delegate(Method Get)))"},
		{"/field", "Argument(Implicit(Var h))"},
		{"/var", "Argument(Implicit(Var v))"},
		{"/gen", "Argument(Implicit(Delegate(Local gen)))"},
		{"/foreign", "Argument(Implicit(Method NewApp))"},
		{"/call", "Argument(Implicit(Unsupported))"},
		{"/typed", "Argument(Implicit(Conversion(Unsupported)))"},
	}
	for _, tt := range tests {
		t.Run(tt.route, func(t *testing.T) {
			call := byRoute[tt.route]
			if call == nil {
				t.Fatalf("no call for %s", tt.route)
			}
			arg := LowerArgument(pkg.Info, pkg.Types, call, 2)
			if got := describe(arg); got != tt.want {
				t.Errorf("lowered = %s, want %s", got, tt.want)
			}
			if arg.Param == nil || arg.Param.Name() != "handler" {
				t.Errorf("Param = %v, want handler", arg.Param)
			}
		})
	}
}

func TestLowerArgumentOrdinals(t *testing.T) {
	pkg := srctest.Check(t, lowerSrc)
	call := pkg.Calls("Map")[0]

	recv := LowerArgument(pkg.Info, pkg.Types, call, 0)
	if recv == nil || !strings.HasPrefix(describe(recv), "Argument(Var app") {
		t.Errorf("receiver = %s, want Argument(Var app)", describe(recv))
	}
	route := LowerArgument(pkg.Info, pkg.Types, call, 1)
	if route == nil || route.Param.Name() != "pattern" {
		t.Errorf("route argument param = %v, want pattern", route)
	}
	if LowerArgument(pkg.Info, pkg.Types, call, 3) != nil {
		t.Error("ordinal 3 of a two-argument call must be nil")
	}
}
