// Package symbols indexes variable declarations and writes across a set of
// type-checked packages and looks up the members a type exposes.
//
// The index answers the questions the handler resolver asks before it
// follows a variable to its initializer: where is it declared, with which
// initializer, and can anything rebind it after declaration.
package symbols

import (
	"go/ast"
	"go/token"
	"go/types"

	"golang.org/x/tools/go/ast/inspector"
)

// Unit is the syntax and type information of one package.
type Unit struct {
	Fset  *token.FileSet
	Files []*ast.File
	Info  *types.Info
	Pkg   *types.Package
}

// Declaration is one declaring occurrence of a variable.
type Declaration struct {
	Var   *types.Var
	Ident *ast.Ident

	// Init is the expression the variable is initialized with, or nil when
	// the declaration has no initializer of its own (var x T, or a
	// multi-value form such as a, b := f()).
	Init ast.Expr

	Unit *Unit
}

// Index records declarations and writes of variables. It is built once and
// is read-only afterwards, so it may be shared between goroutines.
type Index struct {
	decls  map[*types.Var][]Declaration
	writes map[*types.Var]int
	addr   map[*types.Var]bool
	units  map[*types.Package]*Unit
}

// NewIndex indexes every file of every unit.
func NewIndex(units ...*Unit) *Index {
	ix := &Index{
		decls:  make(map[*types.Var][]Declaration),
		writes: make(map[*types.Var]int),
		addr:   make(map[*types.Var]bool),
		units:  make(map[*types.Package]*Unit),
	}
	for _, u := range units {
		ix.units[u.Pkg] = u
		ix.scan(u)
	}
	return ix
}

// Unit returns the indexed unit for pkg, or nil.
func (ix *Index) Unit(pkg *types.Package) *Unit {
	return ix.units[pkg]
}

// Declarations returns the declaring occurrences of v found in the index.
func (ix *Index) Declarations(v *types.Var) []Declaration {
	return ix.decls[v]
}

// Writes returns how many assignments to v follow its declaration.
func (ix *Index) Writes(v *types.Var) int {
	return ix.writes[v]
}

// AddressTaken reports whether &v (or an implicit &v for a pointer method
// call) appears anywhere in the index.
func (ix *Index) AddressTaken(v *types.Var) bool {
	return ix.addr[v]
}

// ReadOnly reports whether v is bound exactly once and can never be
// rebound: it is not a struct field, its package is indexed, nothing
// assigns to it or takes its address, and, for package-level variables, it
// is unexported so no importer can assign to it either.
func (ix *Index) ReadOnly(v *types.Var) bool {
	if v == nil || v.IsField() || v.Pkg() == nil {
		return false
	}
	if ix.units[v.Pkg()] == nil {
		return false
	}
	if v.Parent() == v.Pkg().Scope() && v.Exported() {
		return false
	}
	return ix.writes[v] == 0 && !ix.addr[v]
}

func (ix *Index) scan(u *Unit) {
	in := inspector.New(u.Files)
	filter := []ast.Node{
		(*ast.ValueSpec)(nil),
		(*ast.AssignStmt)(nil),
		(*ast.IncDecStmt)(nil),
		(*ast.RangeStmt)(nil),
		(*ast.UnaryExpr)(nil),
		(*ast.SelectorExpr)(nil),
	}
	in.Preorder(filter, func(n ast.Node) {
		switch n := n.(type) {
		case *ast.ValueSpec:
			ix.valueSpec(u, n)
		case *ast.AssignStmt:
			ix.assign(u, n)
		case *ast.IncDecStmt:
			ix.write(u, n.X)
		case *ast.RangeStmt:
			if n.Tok == token.ASSIGN {
				ix.write(u, n.Key)
				ix.write(u, n.Value)
			}
		case *ast.UnaryExpr:
			if n.Op == token.AND {
				if v := rootVar(u.Info, n.X); v != nil {
					ix.addr[v] = true
				}
			}
		case *ast.SelectorExpr:
			ix.implicitAddr(u, n)
		}
	})
}

func (ix *Index) valueSpec(u *Unit, spec *ast.ValueSpec) {
	for i, name := range spec.Names {
		v, ok := u.Info.Defs[name].(*types.Var)
		if !ok {
			continue
		}
		var init ast.Expr
		if len(spec.Values) == len(spec.Names) {
			init = spec.Values[i]
		}
		ix.decls[v] = append(ix.decls[v], Declaration{Var: v, Ident: name, Init: init, Unit: u})
	}
}

func (ix *Index) assign(u *Unit, as *ast.AssignStmt) {
	for i, lhs := range as.Lhs {
		if as.Tok == token.DEFINE {
			id, ok := lhs.(*ast.Ident)
			if !ok {
				continue
			}
			// := only declares the identifiers that are new in this scope;
			// the others are plain assignments.
			if v, ok := u.Info.Defs[id].(*types.Var); ok {
				var init ast.Expr
				if len(as.Lhs) == len(as.Rhs) {
					init = as.Rhs[i]
				}
				ix.decls[v] = append(ix.decls[v], Declaration{Var: v, Ident: id, Init: init, Unit: u})
				continue
			}
		}
		ix.write(u, lhs)
	}
}

func (ix *Index) write(u *Unit, e ast.Expr) {
	if e == nil {
		return
	}
	if v := assignedVar(u.Info, e); v != nil {
		ix.writes[v]++
	}
}

// implicitAddr records v.M() where M has a pointer receiver and v is an
// addressable non-pointer variable: the call takes &v implicitly.
func (ix *Index) implicitAddr(u *Unit, sel *ast.SelectorExpr) {
	s, ok := u.Info.Selections[sel]
	if !ok || s.Kind() != types.MethodVal {
		return
	}
	fn, ok := s.Obj().(*types.Func)
	if !ok {
		return
	}
	recv := fn.Type().(*types.Signature).Recv()
	if recv == nil {
		return
	}
	if _, ptrRecv := recv.Type().(*types.Pointer); !ptrRecv {
		return
	}
	if _, ptrX := s.Recv().Underlying().(*types.Pointer); ptrX {
		return
	}
	if v := rootVar(u.Info, sel.X); v != nil {
		ix.addr[v] = true
	}
}

// assignedVar returns the variable written by an assignment to e: a plain
// or package-qualified identifier, or the field selected by e.
func assignedVar(info *types.Info, e ast.Expr) *types.Var {
	switch e := ast.Unparen(e).(type) {
	case *ast.Ident:
		v, _ := info.Uses[e].(*types.Var)
		return v
	case *ast.SelectorExpr:
		if s, ok := info.Selections[e]; ok {
			v, _ := s.Obj().(*types.Var)
			return v
		}
		v, _ := info.Uses[e.Sel].(*types.Var)
		return v
	}
	return nil
}

// rootVar returns the variable whose storage e denotes, looking through
// field selections and array indexing.
func rootVar(info *types.Info, e ast.Expr) *types.Var {
	for {
		switch x := ast.Unparen(e).(type) {
		case *ast.Ident:
			v, _ := info.Uses[x].(*types.Var)
			return v
		case *ast.SelectorExpr:
			if s, ok := info.Selections[x]; ok && s.Kind() == types.FieldVal {
				if v, ok := s.Obj().(*types.Var); ok {
					// &x.f pins the field; record it and stop.
					return v
				}
			}
			v, _ := info.Uses[x.Sel].(*types.Var)
			return v
		case *ast.IndexExpr:
			e = x.X
		default:
			return nil
		}
	}
}
