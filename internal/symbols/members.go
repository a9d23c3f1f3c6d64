package symbols

import (
	"go/token"
	"go/types"
)

// MemberKind distinguishes how a member is reached from a type.
type MemberKind int

const (
	MemberMethod    MemberKind = iota // in the method set of the type
	MemberField                       // a (possibly promoted) struct field
	MemberExtension                   // a visible package-level func taking the type as its only argument
)

func (k MemberKind) String() string {
	switch k {
	case MemberMethod:
		return "method"
	case MemberField:
		return "field"
	case MemberExtension:
		return "extension"
	default:
		return "unknown"
	}
}

// Member is one member reachable on a type under some name.
type Member struct {
	Kind MemberKind
	Obj  types.Object

	// Signature is the call signature for methods and extensions; for
	// extensions it still includes the single receiving parameter.
	Signature *types.Signature

	// Type is the field type for fields.
	Type types.Type
}

// Params returns the parameters a caller supplies explicitly: for
// extensions, the receiving parameter is excluded.
func (m Member) Params() []*types.Var {
	if m.Signature == nil {
		return nil
	}
	params := m.Signature.Params()
	start := 0
	if m.Kind == MemberExtension {
		start = 1
	}
	var out []*types.Var
	for i := start; i < params.Len(); i++ {
		out = append(out, params.At(i))
	}
	return out
}

// Results returns the member's result types, or the field type for fields.
func (m Member) Results() []types.Type {
	if m.Kind == MemberField {
		return []types.Type{m.Type}
	}
	if m.Signature == nil {
		return nil
	}
	res := m.Signature.Results()
	out := make([]types.Type, res.Len())
	for i := range out {
		out[i] = res.At(i).Type()
	}
	return out
}

// Members returns the members named name reachable on a value of type t.
// Methods and fields come from t itself; a value is not addressable, so
// pointer-receiver methods of a non-pointer t are not reachable. When scope
// is non-nil, a package-level function named name visible from pos that
// takes a single parameter t is assignable to is also returned, as an
// extension member.
func Members(t types.Type, name string, scope *types.Scope, pos token.Pos) []Member {
	if t == nil {
		return nil
	}
	if _, ok := t.(*types.Tuple); ok {
		return nil
	}

	var members []Member
	obj, _, _ := types.LookupFieldOrMethod(t, false, nil, name)
	switch obj := obj.(type) {
	case *types.Func:
		members = append(members, Member{Kind: MemberMethod, Obj: obj, Signature: obj.Type().(*types.Signature)})
	case *types.Var:
		members = append(members, Member{Kind: MemberField, Obj: obj, Type: obj.Type()})
	}

	if scope != nil {
		if ext, ok := extension(t, name, scope, pos); ok {
			members = append(members, ext)
		}
	}
	return members
}

func extension(t types.Type, name string, scope *types.Scope, pos token.Pos) (Member, bool) {
	_, obj := scope.LookupParent(name, pos)
	fn, ok := obj.(*types.Func)
	if !ok {
		return Member{}, false
	}
	sig, ok := fn.Type().(*types.Signature)
	if !ok || sig.Recv() != nil || sig.TypeParams().Len() > 0 || sig.Variadic() {
		return Member{}, false
	}
	if sig.Params().Len() != 1 || !types.AssignableTo(t, sig.Params().At(0).Type()) {
		return Member{}, false
	}
	return Member{Kind: MemberExtension, Obj: fn, Signature: sig}, true
}
