// Package operation lowers handler argument expressions into a closed set of
// semantic operations.
//
// Each variant corresponds to one way Go source can hand a callable to a
// registration call: through the call argument itself, a conversion, a
// method value or generic instantiation, a variable, a function literal, a
// function or method reference, or parentheses. Everything else is
// Unsupported. The set is sealed; code that consumes it switches on the
// concrete types.
package operation

import (
	"go/ast"
	"go/types"
)

// Operation is a lowered expression.
type Operation interface {
	// Node is the syntax the operation was lowered from.
	Node() ast.Node

	operation()
}

// Argument is the value passed at one ordinal of a call. The receiver of a
// method call is ordinal 0.
type Argument struct {
	Ordinal int
	Param   *types.Var // nil for the receiver
	Value   Operation
	Expr    ast.Expr
}

// Conversion converts Operand to Type. Implicit conversions are the ones the
// compiler inserts, e.g. assigning a func value to an `any` parameter.
type Conversion struct {
	Operand  Operation
	Type     types.Type
	Implicit bool
	Expr     ast.Expr
}

// DelegateCreation binds Target into a new func value: a method value
// (recv.M, Receiver set), a method expression (T.M, receiver as the first
// parameter of Type) or a generic function instantiation (f[T]).
type DelegateCreation struct {
	Target   Operation
	Receiver ast.Expr
	Type     types.Type
	Expr     ast.Expr
}

// VariableReference reads a variable or struct field.
type VariableReference struct {
	Var  *types.Var
	Expr ast.Expr
}

// AnonymousFunction is a function literal.
type AnonymousFunction struct {
	Lit       *ast.FuncLit
	Signature *types.Signature
}

// LocalFunctionReference names a package-level function of the package the
// expression appears in.
type LocalFunctionReference struct {
	Func *types.Func
	Expr ast.Expr
}

// MethodReference names a function of another package, a method expression
// (T.M), or the method bound by a method value.
type MethodReference struct {
	Func *types.Func
	Expr ast.Expr
}

// Parenthesized is (Operand).
type Parenthesized struct {
	Operand Operation
	Expr    *ast.ParenExpr
}

// Unsupported is any expression outside the set above.
type Unsupported struct {
	Expr ast.Expr
}

func (o *Argument) Node() ast.Node               { return o.Expr }
func (o *Conversion) Node() ast.Node             { return o.Expr }
func (o *DelegateCreation) Node() ast.Node       { return o.Expr }
func (o *VariableReference) Node() ast.Node      { return o.Expr }
func (o *AnonymousFunction) Node() ast.Node      { return o.Lit }
func (o *LocalFunctionReference) Node() ast.Node { return o.Expr }
func (o *MethodReference) Node() ast.Node        { return o.Expr }
func (o *Parenthesized) Node() ast.Node          { return o.Expr }
func (o *Unsupported) Node() ast.Node            { return o.Expr }

func (*Argument) operation()               {}
func (*Conversion) operation()             {}
func (*DelegateCreation) operation()       {}
func (*VariableReference) operation()      {}
func (*AnonymousFunction) operation()      {}
func (*LocalFunctionReference) operation() {}
func (*MethodReference) operation()        {}
func (*Parenthesized) operation()          {}
func (*Unsupported) operation()            {}
