// Package awaitable decides whether a type satisfies the await protocol by
// its shape alone.
//
// A type is awaitable when it has a GetAwaiter member whose result (the
// awaiter) exposes IsCompleted, OnCompleted and GetResult with the exact
// shapes described by a Protocol. No named interface is consulted; any type
// with the right members qualifies, including types whose GetAwaiter is a
// package-level function visible at the call site.
package awaitable

import (
	"go/token"
	"go/types"

	"github.com/broady/routegen/internal/symbols"
)

// FacetKind says how a facet is read.
type FacetKind int

const (
	// Property facets are read without arguments: a method of no
	// parameters, or a field.
	Property FacetKind = iota
	// Method facets are called with the parameters listed in the facet.
	Method
)

// ParamKind constrains one parameter of a method facet.
type ParamKind int

const (
	// ParamFunc accepts any type whose underlying type is a func.
	ParamFunc ParamKind = iota
)

// ResultKind constrains the result of a facet.
type ResultKind int

const (
	ResultAny  ResultKind = iota // unconstrained
	ResultNone                   // no results
	ResultBool                   // exactly one result of type bool
)

// Facet describes one member the awaiter must expose.
type Facet struct {
	Name   string
	Kind   FacetKind
	Params []ParamKind
	Result ResultKind
}

// Protocol is the full structural description of an awaitable type.
type Protocol struct {
	GetAwaiter  string
	IsCompleted Facet
	OnCompleted Facet
	GetResult   Facet
}

// Default is the await protocol routegen tasks implement.
var Default = Protocol{
	GetAwaiter:  "GetAwaiter",
	IsCompleted: Facet{Name: "IsCompleted", Kind: Property, Result: ResultBool},
	OnCompleted: Facet{Name: "OnCompleted", Kind: Method, Params: []ParamKind{ParamFunc}, Result: ResultNone},
	GetResult:   Facet{Name: "GetResult", Kind: Method, Result: ResultAny},
}

// MatchFacet returns the member of t that satisfies f. Only members reached
// through t itself count; a package-level function never satisfies an
// awaiter facet.
func MatchFacet(t types.Type, f Facet) (symbols.Member, bool) {
	for _, m := range symbols.Members(t, f.Name, nil, token.NoPos) {
		if matches(m, f) {
			return m, true
		}
	}
	return symbols.Member{}, false
}

func matches(m symbols.Member, f Facet) bool {
	switch m.Kind {
	case symbols.MemberField:
		if f.Kind != Property {
			return false
		}
	case symbols.MemberMethod:
		if m.Signature.Variadic() {
			return false
		}
	default:
		return false
	}

	params := m.Params()
	want := f.Params
	if f.Kind == Property {
		want = nil
	}
	if len(params) != len(want) {
		return false
	}
	for i, p := range params {
		if !matchParam(p.Type(), want[i]) {
			return false
		}
	}
	return matchResult(m.Results(), f.Result)
}

func matchParam(t types.Type, k ParamKind) bool {
	switch k {
	case ParamFunc:
		_, ok := t.Underlying().(*types.Signature)
		return ok
	}
	return false
}

func matchResult(results []types.Type, k ResultKind) bool {
	switch k {
	case ResultAny:
		return true
	case ResultNone:
		return len(results) == 0
	case ResultBool:
		return len(results) == 1 && types.Identical(results[0], types.Typ[types.Bool])
	}
	return false
}
