// Package endpoint builds the model of one handler registration: its verb,
// route, resolved handler, parameter bindings and response shape.
//
// Building never fails. Each step either fills in its part of the model or
// appends a diagnostic, and later steps run regardless. A model with
// diagnostics is excluded from generated dispatch but still reported.
package endpoint

import (
	"go/ast"
	"go/token"
	"go/types"
	"slices"

	"github.com/broady/routegen/internal/resolve"
	"github.com/broady/routegen/internal/shape"
)

// CallSite is one call of a registration method.
type CallSite struct {
	Fset *token.FileSet

	// File is the path of the file containing the call. Line and EndLine
	// are the 1-based lines the call starts and ends on.
	File    string
	Line    int
	EndLine int

	// Method is the registration method name, e.g. "MapGet".
	Method string

	Call *ast.CallExpr
	Info *types.Info
	Pkg  *types.Package
}

// NewCallSite describes call, a call of the registration method named
// method, in the package pkg with type information info.
func NewCallSite(fset *token.FileSet, info *types.Info, pkg *types.Package, call *ast.CallExpr, method string) CallSite {
	start := fset.Position(call.Pos())
	end := fset.Position(call.End())
	return CallSite{
		Fset:    fset,
		File:    start.Filename,
		Line:    start.Line,
		EndLine: end.Line,
		Method:  method,
		Call:    call,
		Info:    info,
		Pkg:     pkg,
	}
}

// Model is the immutable description of one call site. The With methods
// return updated copies; fields are only ever added.
type Model struct {
	Site CallSite

	// Verb is the HTTP method, or "" when the registration does not fix one.
	Verb string

	Route *RouteInfo

	Target *resolve.Target

	// HandlerType is the type the handler value has at run time, as far as
	// it is statically known.
	HandlerType types.Type

	Parameters []Parameter

	Shape *shape.Shape

	Diagnostics []Diagnostic
}

// OK reports whether the model carries no diagnostics.
func (m Model) OK() bool { return len(m.Diagnostics) == 0 }

func (m Model) WithVerb(verb string) Model {
	m.Verb = verb
	return m
}

func (m Model) WithRoute(r RouteInfo) Model {
	m.Route = &r
	return m
}

func (m Model) WithTarget(t *resolve.Target, handlerType types.Type) Model {
	m.Target = t
	m.HandlerType = handlerType
	return m
}

func (m Model) WithParameters(params []Parameter) Model {
	m.Parameters = slices.Clone(params)
	return m
}

func (m Model) WithShape(s shape.Shape) Model {
	m.Shape = &s
	return m
}

// WithDiagnostic appends d. The copy never shares backing storage with m.
func (m Model) WithDiagnostic(d Diagnostic) Model {
	m.Diagnostics = append(slices.Clip(m.Diagnostics), d)
	return m
}

// Has reports whether the model carries a diagnostic of kind k.
func (m Model) Has(k DiagnosticKind) bool {
	return slices.ContainsFunc(m.Diagnostics, func(d Diagnostic) bool { return d.Kind == k })
}
