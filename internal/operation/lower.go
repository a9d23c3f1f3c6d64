package operation

import (
	"go/ast"
	"go/types"
)

// Lower returns the operation for e. info must be the type information of
// pkg, the package e belongs to.
func Lower(info *types.Info, pkg *types.Package, e ast.Expr) Operation {
	switch e := e.(type) {
	case *ast.ParenExpr:
		return &Parenthesized{Operand: Lower(info, pkg, e.X), Expr: e}

	case *ast.FuncLit:
		sig, ok := info.TypeOf(e).(*types.Signature)
		if !ok {
			return &Unsupported{Expr: e}
		}
		return &AnonymousFunction{Lit: e, Signature: sig}

	case *ast.CallExpr:
		if tv, ok := info.Types[e.Fun]; ok && tv.IsType() && len(e.Args) == 1 {
			return &Conversion{Operand: Lower(info, pkg, e.Args[0]), Type: tv.Type, Expr: e}
		}
		return &Unsupported{Expr: e}

	case *ast.Ident:
		op := lowerObject(pkg, info.Uses[e], e)
		if inst, ok := info.Instances[e]; ok {
			// Instantiation inferred from the assignment context.
			return &DelegateCreation{Target: op, Type: inst.Type, Expr: e}
		}
		return op

	case *ast.SelectorExpr:
		return lowerSelector(info, pkg, e)

	case *ast.IndexExpr:
		return lowerInstance(info, pkg, e, e.X)

	case *ast.IndexListExpr:
		return lowerInstance(info, pkg, e, e.X)
	}
	return &Unsupported{Expr: e}
}

func lowerSelector(info *types.Info, pkg *types.Package, e *ast.SelectorExpr) Operation {
	sel, ok := info.Selections[e]
	if !ok {
		// Qualified identifier: pkg.Name.
		op := lowerObject(pkg, info.Uses[e.Sel], e)
		if inst, ok := info.Instances[e.Sel]; ok {
			return &DelegateCreation{Target: op, Type: inst.Type, Expr: e}
		}
		return op
	}
	switch sel.Kind() {
	case types.MethodVal:
		fn, ok := sel.Obj().(*types.Func)
		if !ok {
			return &Unsupported{Expr: e}
		}
		return &DelegateCreation{
			Target:   &MethodReference{Func: fn, Expr: e},
			Receiver: e.X,
			Type:     sel.Type(),
			Expr:     e,
		}
	case types.MethodExpr:
		fn, ok := sel.Obj().(*types.Func)
		if !ok {
			return &Unsupported{Expr: e}
		}
		// sel.Type takes the receiver as written, so (*T).M of a value
		// method takes *T.
		return &DelegateCreation{
			Target: &MethodReference{Func: fn, Expr: e},
			Type:   sel.Type(),
			Expr:   e,
		}
	case types.FieldVal:
		v, ok := sel.Obj().(*types.Var)
		if !ok {
			return &Unsupported{Expr: e}
		}
		return &VariableReference{Var: v, Expr: e}
	}
	return &Unsupported{Expr: e}
}

// lowerInstance handles f[T]: an explicit instantiation of a generic
// function. Indexing anything else (a slice of handlers, a map) is not
// followed.
func lowerInstance(info *types.Info, pkg *types.Package, e, x ast.Expr) Operation {
	target := Lower(info, pkg, ast.Unparen(x))
	switch target.(type) {
	case *LocalFunctionReference, *MethodReference:
		return &DelegateCreation{Target: target, Type: info.TypeOf(e), Expr: e}
	case *DelegateCreation:
		// The identifier itself already carried the instance.
		return target
	}
	return &Unsupported{Expr: e}
}

func lowerObject(pkg *types.Package, obj types.Object, e ast.Expr) Operation {
	switch obj := obj.(type) {
	case *types.Func:
		sig, _ := obj.Type().(*types.Signature)
		if sig != nil && sig.Recv() == nil && obj.Pkg() == pkg {
			return &LocalFunctionReference{Func: obj, Expr: e}
		}
		return &MethodReference{Func: obj, Expr: e}
	case *types.Var:
		return &VariableReference{Var: obj, Expr: e}
	}
	return &Unsupported{Expr: e}
}

// LowerArgument lowers the argument at ordinal of a call. Ordinal 0 is the
// receiver of a method call; ordinal n >= 1 is call.Args[n-1]. When the
// argument's static type differs from the parameter type, the value is
// wrapped in an implicit Conversion. It returns nil when the call has no
// such argument.
func LowerArgument(info *types.Info, pkg *types.Package, call *ast.CallExpr, ordinal int) *Argument {
	if ordinal == 0 {
		sel, ok := call.Fun.(*ast.SelectorExpr)
		if !ok {
			return nil
		}
		return &Argument{Ordinal: 0, Value: Lower(info, pkg, sel.X), Expr: sel.X}
	}
	if ordinal < 1 || ordinal > len(call.Args) {
		return nil
	}
	expr := call.Args[ordinal-1]
	value := Lower(info, pkg, expr)

	param := paramAt(info, call, ordinal-1)
	if param != nil {
		if argType := info.TypeOf(expr); argType != nil && !types.Identical(argType, param.Type()) {
			value = &Conversion{Operand: value, Type: param.Type(), Implicit: true, Expr: expr}
		}
	}
	return &Argument{Ordinal: ordinal, Param: param, Value: value, Expr: expr}
}

func paramAt(info *types.Info, call *ast.CallExpr, i int) *types.Var {
	sig, ok := info.TypeOf(call.Fun).(*types.Signature)
	if !ok {
		return nil
	}
	params := sig.Params()
	if params.Len() == 0 {
		return nil
	}
	if sig.Variadic() && i >= params.Len()-1 {
		last := params.At(params.Len() - 1)
		if s, ok := last.Type().(*types.Slice); ok && !call.Ellipsis.IsValid() {
			return types.NewParam(last.Pos(), last.Pkg(), last.Name(), s.Elem())
		}
		return last
	}
	if i >= params.Len() {
		return nil
	}
	return params.At(i)
}
