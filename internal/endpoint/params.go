package endpoint

import (
	"go/types"
	"net/http"
)

// Source says where a handler parameter's value comes from.
type Source int

const (
	SourceUnsupported Source = iota
	SourceContext            // r.Context()
	SourceRequest            // *http.Request
	SourceResponse           // http.ResponseWriter
	SourceRoute              // a path wildcard of the same name
	SourceQuery              // a query parameter of the same name
	SourceForm               // a struct decoded from the query string
	SourceBody               // a struct decoded from the JSON body
)

func (s Source) String() string {
	switch s {
	case SourceContext:
		return "context"
	case SourceRequest:
		return "request"
	case SourceResponse:
		return "response"
	case SourceRoute:
		return "route"
	case SourceQuery:
		return "query"
	case SourceForm:
		return "form"
	case SourceBody:
		return "body"
	default:
		return "unsupported"
	}
}

// Parameter is one handler parameter and its binding.
type Parameter struct {
	Name   string
	Type   types.Type
	Source Source
}

// bindParameters decides the source of every parameter of sig. At most one
// parameter is decoded from the request (form or body); a second one is
// unsupported.
func bindParameters(sig *types.Signature, verb string, route *RouteInfo) []Parameter {
	params := sig.Params()
	if params.Len() == 0 {
		return nil
	}
	out := make([]Parameter, params.Len())
	decoded := false
	for i := range out {
		p := params.At(i)
		src := sourceOf(p, verb, route)
		if src == SourceBody || src == SourceForm {
			if decoded {
				src = SourceUnsupported
			}
			decoded = true
		}
		if sig.Variadic() && i == params.Len()-1 {
			src = SourceUnsupported
		}
		out[i] = Parameter{Name: p.Name(), Type: p.Type(), Source: src}
	}
	return out
}

func sourceOf(p *types.Var, verb string, route *RouteInfo) Source {
	t := p.Type()
	switch {
	case isNamed(t, "context", "Context"):
		return SourceContext
	case isNamed(t, "net/http", "ResponseWriter"):
		return SourceResponse
	case isPointerTo(t, "net/http", "Request"):
		return SourceRequest
	case IsScalar(t):
		switch {
		case route.Has(p.Name()):
			return SourceRoute
		case p.Name() != "" && p.Name() != "_":
			return SourceQuery
		}
		return SourceUnsupported
	case isStruct(t):
		if decodesQuery(verb) {
			return SourceForm
		}
		return SourceBody
	}
	return SourceUnsupported
}

// decodesQuery reports whether requests of verb carry their input in the
// query string rather than the body.
func decodesQuery(verb string) bool {
	switch verb {
	case http.MethodGet, http.MethodHead, http.MethodDelete:
		return true
	}
	return false
}

// IsScalar reports whether t is a string, boolean, integer or float type,
// the kinds a single path or query value can be parsed into.
func IsScalar(t types.Type) bool {
	b, ok := t.Underlying().(*types.Basic)
	if !ok {
		return false
	}
	if b.Kind() == types.Uintptr || b.Info()&types.IsUntyped != 0 {
		return false
	}
	return b.Info()&(types.IsString|types.IsBoolean|types.IsInteger|types.IsFloat) != 0
}

// isStruct reports whether t is a struct or a pointer to one.
func isStruct(t types.Type) bool {
	if ptr, ok := t.Underlying().(*types.Pointer); ok {
		t = ptr.Elem()
	}
	_, ok := t.Underlying().(*types.Struct)
	return ok
}

func isNamed(t types.Type, path, name string) bool {
	n, ok := types.Unalias(t).(*types.Named)
	if !ok {
		return false
	}
	obj := n.Obj()
	return obj.Pkg() != nil && obj.Pkg().Path() == path && obj.Name() == name
}

func isPointerTo(t types.Type, path, name string) bool {
	ptr, ok := types.Unalias(t).(*types.Pointer)
	return ok && isNamed(ptr.Elem(), path, name)
}
