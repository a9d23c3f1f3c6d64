package symbols

import (
	"go/types"
	"testing"

	"github.com/broady/routegen/internal/srctest"
)

const indexSrc = `package app

type counter struct{ n int }

func (c *counter) inc() { c.n++ }

var (
	plain    = 1
	Exported = 2
	assigned = 3
	bumped   = 4
	ranged   = 5
	pointed  = 6
	noInit   int
	methodOn counter

	a, b = 7, 8
	c, d = pair()
)

func pair() (int, int) { return 1, 2 }

func use() {
	assigned = 10
	bumped++
	for ranged = range []int{1} {
	}
	_ = &pointed
	methodOn.inc()

	local := 1
	shadow := 2
	shadow, fresh := 3, 4
	_, _, _ = local, shadow, fresh
}
`

func TestIndexReadOnly(t *testing.T) {
	pkg := srctest.Check(t, indexSrc)
	ix := NewIndex(&Unit{Fset: pkg.Fset, Files: pkg.Files, Info: pkg.Info, Pkg: pkg.Types})

	tests := []struct {
		name     string
		readOnly bool
		decls    int
		hasInit  bool
	}{
		{"plain", true, 1, true},
		{"Exported", false, 1, true},
		{"assigned", false, 1, true},
		{"bumped", false, 1, true},
		{"ranged", false, 1, true},
		{"pointed", false, 1, true},
		{"noInit", true, 1, false},
		{"methodOn", false, 1, false},
		{"a", true, 1, true},
		{"c", true, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := pkg.Lookup(t, tt.name).(*types.Var)
			if got := ix.ReadOnly(v); got != tt.readOnly {
				t.Errorf("ReadOnly = %v, want %v", got, tt.readOnly)
			}
			decls := ix.Declarations(v)
			if len(decls) != tt.decls {
				t.Fatalf("%d declarations, want %d", len(decls), tt.decls)
			}
			if got := decls[0].Init != nil; got != tt.hasInit {
				t.Errorf("has init = %v, want %v", got, tt.hasInit)
			}
		})
	}
}

func TestIndexShortVarDecl(t *testing.T) {
	pkg := srctest.Check(t, indexSrc)
	ix := NewIndex(&Unit{Fset: pkg.Fset, Files: pkg.Files, Info: pkg.Info, Pkg: pkg.Types})

	vars := make(map[string]*types.Var)
	for id, obj := range pkg.Info.Defs {
		if v, ok := obj.(*types.Var); ok && !v.IsField() && v.Parent() != pkg.Types.Scope() {
			vars[id.Name] = v
		}
	}
	if v := vars["local"]; v == nil || !ix.ReadOnly(v) {
		t.Error("local should be read-only")
	}
	// shadow is redeclared by the second := and so written once.
	if v := vars["shadow"]; v == nil || ix.ReadOnly(v) || ix.Writes(v) != 1 {
		t.Errorf("shadow: ReadOnly = %v, Writes = %d", ix.ReadOnly(v), ix.Writes(v))
	}
	if v := vars["fresh"]; v == nil || !ix.ReadOnly(v) || len(ix.Declarations(v)) != 1 {
		t.Error("fresh should be read-only with one declaration")
	}
}

func TestReadOnlyRejectsFieldsAndForeignVars(t *testing.T) {
	pkg := srctest.Check(t, indexSrc)
	ix := NewIndex()

	if ix.ReadOnly(pkg.Lookup(t, "plain").(*types.Var)) {
		t.Error("variables of unindexed packages are never read-only")
	}
	ix = NewIndex(&Unit{Fset: pkg.Fset, Files: pkg.Files, Info: pkg.Info, Pkg: pkg.Types})
	st := pkg.Type(t, "counter").Underlying().(*types.Struct)
	if ix.ReadOnly(st.Field(0)) {
		t.Error("fields are never read-only")
	}
	if ix.ReadOnly(nil) {
		t.Error("nil is not read-only")
	}
}
