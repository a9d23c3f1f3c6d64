// Package resolve traces a handler argument to the callable it denotes.
//
// Resolution walks the operation chain produced by package operation,
// unwrapping arguments, conversions, method values, instantiations and
// parentheses, and follows read-only variables to their single initializer.
// It stops with a Target at a function literal, a package-level function or
// a method, and fails (returns nil) everywhere else. Nothing is evaluated:
// a variable that could be rebound at run time is never followed.
package resolve

import (
	"go/ast"
	"go/token"
	"go/types"

	"github.com/broady/routegen/internal/operation"
	"github.com/broady/routegen/internal/symbols"
)

// Kind classifies a resolved target.
type Kind int

const (
	KindAnonymous     Kind = iota // function literal
	KindLocalFunction             // package-level function of the registering package
	KindMethod                    // function of another package, or a method
)

func (k Kind) String() string {
	switch k {
	case KindAnonymous:
		return "func literal"
	case KindLocalFunction:
		return "function"
	case KindMethod:
		return "method"
	default:
		return "unknown"
	}
}

// Target is the callable a handler argument resolves to.
type Target struct {
	Kind Kind

	// Func is the declared function or method; nil for literals.
	Func *types.Func

	// Lit is the function literal for KindAnonymous.
	Lit *ast.FuncLit

	// Signature is the call signature. For method values and
	// instantiations it is the bound signature (no receiver, type
	// arguments substituted); for method expressions the receiver is the
	// first parameter.
	Signature *types.Signature

	Pos token.Pos
}

// Name returns the function name, or "func literal".
func (t *Target) Name() string {
	if t.Func != nil {
		return t.Func.Name()
	}
	return t.Kind.String()
}

// Resolver follows operation chains. It only reads its index and is safe
// for concurrent use.
type Resolver struct {
	index *symbols.Index
}

// New returns a resolver that follows variables recorded in ix. A nil index
// means no variable is ever followed.
func New(ix *symbols.Index) *Resolver {
	return &Resolver{index: ix}
}

// Resolve returns the target op denotes, or nil when it cannot be traced.
func (r *Resolver) Resolve(op operation.Operation) *Target {
	return r.resolve(op, nil)
}

func (r *Resolver) resolve(op operation.Operation, seen map[*types.Var]bool) *Target {
	switch op := op.(type) {
	case *operation.Argument:
		return r.resolve(op.Value, seen)

	case *operation.Conversion:
		return r.resolve(op.Operand, seen)

	case *operation.DelegateCreation:
		var t *Target
		if m, ok := op.Target.(*operation.MethodReference); ok {
			t = funcTarget(KindMethod, m.Func, true)
		} else {
			t = r.resolve(op.Target, seen)
		}
		if t == nil {
			return nil
		}
		sig, ok := typeSignature(op.Type)
		if !ok {
			if t.Signature.Recv() != nil {
				return nil
			}
			return t
		}
		bound := *t
		bound.Signature = sig
		return &bound

	case *operation.Parenthesized:
		return r.resolve(op.Operand, seen)

	case *operation.VariableReference:
		return r.follow(op.Var, seen)

	case *operation.AnonymousFunction:
		return &Target{Kind: KindAnonymous, Lit: op.Lit, Signature: op.Signature, Pos: op.Lit.Pos()}

	case *operation.LocalFunctionReference:
		return funcTarget(KindLocalFunction, op.Func, false)

	case *operation.MethodReference:
		return funcTarget(KindMethod, op.Func, false)
	}
	return nil
}

// follow re-resolves the initializer of a read-only variable. A variable
// seen twice on one chain is a cycle and fails.
func (r *Resolver) follow(v *types.Var, seen map[*types.Var]bool) *Target {
	if r.index == nil || seen[v] || !r.index.ReadOnly(v) {
		return nil
	}
	decls := r.index.Declarations(v)
	if len(decls) != 1 {
		return nil
	}
	d := decls[0]
	if d.Init == nil {
		return nil
	}
	if seen == nil {
		seen = make(map[*types.Var]bool)
	}
	seen[v] = true
	return r.resolve(operation.Lower(d.Unit.Info, d.Unit.Pkg, d.Init), seen)
}

// funcTarget returns the target for fn. A method is only callable through
// a method value or expression, which supply the bound signature.
func funcTarget(kind Kind, fn *types.Func, bound bool) *Target {
	sig, ok := fn.Type().(*types.Signature)
	if !ok || (sig.Recv() != nil && !bound) {
		return nil
	}
	return &Target{Kind: kind, Func: fn, Signature: sig, Pos: fn.Pos()}
}

func typeSignature(t types.Type) (*types.Signature, bool) {
	if t == nil {
		return nil, false
	}
	sig, ok := t.Underlying().(*types.Signature)
	return sig, ok
}
