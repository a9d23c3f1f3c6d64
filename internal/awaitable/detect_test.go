package awaitable

import (
	"testing"

	"github.com/broady/routegen/internal/srctest"
)

const awaitSrc = `package app

import "github.com/broady/routegen"

type Good struct{}
type goodAwaiter struct{}

func (Good) GetAwaiter() goodAwaiter            { return goodAwaiter{} }
func (goodAwaiter) IsCompleted() bool           { return true }
func (goodAwaiter) OnCompleted(k func())        {}
func (goodAwaiter) GetResult() int              { return 0 }

type FieldAwaiter struct{}
type fieldAwaiter struct{ IsCompleted bool }

func (FieldAwaiter) GetAwaiter() fieldAwaiter   { return fieldAwaiter{} }
func (fieldAwaiter) OnCompleted(k func())       {}
func (fieldAwaiter) GetResult()                 {}

type Continuation func()

type NamedFunc struct{}
type namedFuncAwaiter struct{}

func (NamedFunc) GetAwaiter() namedFuncAwaiter      { return namedFuncAwaiter{} }
func (namedFuncAwaiter) IsCompleted() bool          { return true }
func (namedFuncAwaiter) OnCompleted(k Continuation) {}
func (namedFuncAwaiter) GetResult() (string, error) { return "", nil }

type NoIsCompleted struct{}
type noIsCompletedAwaiter struct{}

func (NoIsCompleted) GetAwaiter() noIsCompletedAwaiter { return noIsCompletedAwaiter{} }
func (noIsCompletedAwaiter) OnCompleted(k func())      {}
func (noIsCompletedAwaiter) GetResult()                {}

type IntIsCompleted struct{}
type intIsCompletedAwaiter struct{}

func (IntIsCompleted) GetAwaiter() intIsCompletedAwaiter { return intIsCompletedAwaiter{} }
func (intIsCompletedAwaiter) IsCompleted() int           { return 0 }
func (intIsCompletedAwaiter) OnCompleted(k func())       {}
func (intIsCompletedAwaiter) GetResult()                 {}

type Flag bool

type NamedBool struct{}
type namedBoolAwaiter struct{}

func (NamedBool) GetAwaiter() namedBoolAwaiter { return namedBoolAwaiter{} }
func (namedBoolAwaiter) IsCompleted() Flag     { return false }
func (namedBoolAwaiter) OnCompleted(k func())  {}
func (namedBoolAwaiter) GetResult()            {}

type NoOnCompleted struct{}
type noOnCompletedAwaiter struct{}

func (NoOnCompleted) GetAwaiter() noOnCompletedAwaiter { return noOnCompletedAwaiter{} }
func (noOnCompletedAwaiter) IsCompleted() bool         { return true }
func (noOnCompletedAwaiter) GetResult()                {}

type OnCompletedNotFunc struct{}
type onCompletedNotFuncAwaiter struct{}

func (OnCompletedNotFunc) GetAwaiter() onCompletedNotFuncAwaiter { return onCompletedNotFuncAwaiter{} }
func (onCompletedNotFuncAwaiter) IsCompleted() bool              { return true }
func (onCompletedNotFuncAwaiter) OnCompleted(k int)              {}
func (onCompletedNotFuncAwaiter) GetResult()                     {}

type OnCompletedTwoArgs struct{}
type onCompletedTwoArgsAwaiter struct{}

func (OnCompletedTwoArgs) GetAwaiter() onCompletedTwoArgsAwaiter     { return onCompletedTwoArgsAwaiter{} }
func (onCompletedTwoArgsAwaiter) IsCompleted() bool                  { return true }
func (onCompletedTwoArgsAwaiter) OnCompleted(k func(), extra func()) {}
func (onCompletedTwoArgsAwaiter) GetResult()                         {}

type OnCompletedReturns struct{}
type onCompletedReturnsAwaiter struct{}

func (OnCompletedReturns) GetAwaiter() onCompletedReturnsAwaiter { return onCompletedReturnsAwaiter{} }
func (onCompletedReturnsAwaiter) IsCompleted() bool              { return true }
func (onCompletedReturnsAwaiter) OnCompleted(k func()) bool      { return true }
func (onCompletedReturnsAwaiter) GetResult()                     {}

type NoGetResult struct{}
type noGetResultAwaiter struct{}

func (NoGetResult) GetAwaiter() noGetResultAwaiter { return noGetResultAwaiter{} }
func (noGetResultAwaiter) IsCompleted() bool       { return true }
func (noGetResultAwaiter) OnCompleted(k func())    {}

type GetResultArgs struct{}
type getResultArgsAwaiter struct{}

func (GetResultArgs) GetAwaiter() getResultArgsAwaiter { return getResultArgsAwaiter{} }
func (getResultArgsAwaiter) IsCompleted() bool         { return true }
func (getResultArgsAwaiter) OnCompleted(k func())      {}
func (getResultArgsAwaiter) GetResult(n int)           {}

type GetAwaiterArgs struct{}

func (GetAwaiterArgs) GetAwaiter(n int) goodAwaiter { return goodAwaiter{} }

type GetAwaiterField struct{ GetAwaiter goodAwaiter }

type PointerOnly struct{}

func (*PointerOnly) GetAwaiter() goodAwaiter { return goodAwaiter{} }

type Embeds struct{ Good }

type Ext struct{}

func GetAwaiter(e Ext) goodAwaiter { return goodAwaiter{} }

var _ routegen.Result
`

func TestIsAwaitable(t *testing.T) {
	pkg := srctest.Check(t, awaitSrc)
	scope, pos := pkg.Scope()
	d := NewDetector()

	tests := []struct {
		typ  string
		want bool
	}{
		{"Good", true},
		{"FieldAwaiter", true},
		{"NamedFunc", true},
		{"Embeds", true},
		{"*PointerOnly", true},
		{"Ext", true},
		{"routegen.Task[int]", true},
		{"routegen.ValueTask[string]", true},
		{"routegen.VoidTask", true},
		{"routegen.VoidValueTask", true},

		{"NoIsCompleted", false},
		{"IntIsCompleted", false},
		{"NamedBool", false},
		{"NoOnCompleted", false},
		{"OnCompletedNotFunc", false},
		{"OnCompletedTwoArgs", false},
		{"OnCompletedReturns", false},
		{"NoGetResult", false},
		{"GetResultArgs", false},
		{"GetAwaiterArgs", false},
		{"GetAwaiterField", false},
		{"PointerOnly", false},
		{"string", false},
		{"int", false},
		{"routegen.Result", false},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			typ := pkg.Type(t, tt.typ)
			if got := d.IsAwaitable(typ, scope, pos); got != tt.want {
				t.Errorf("IsAwaitable(%s) = %v, want %v", tt.typ, got, tt.want)
			}
		})
	}
}

func TestIsAwaitableWithoutScope(t *testing.T) {
	pkg := srctest.Check(t, awaitSrc)
	d := NewDetector()
	if d.IsAwaitable(pkg.Type(t, "Ext"), nil, 0) {
		t.Error("extension GetAwaiter must not be visible without a scope")
	}
	if !d.IsAwaitable(pkg.Type(t, "Good"), nil, 0) {
		t.Error("method GetAwaiter must not need a scope")
	}
}

func TestDetectMembers(t *testing.T) {
	pkg := srctest.Check(t, awaitSrc)
	scope, pos := pkg.Scope()
	d := NewDetector()

	a, ok := d.Detect(pkg.Type(t, "FieldAwaiter"), scope, pos)
	if !ok {
		t.Fatal("FieldAwaiter not awaitable")
	}
	if a.IsCompleted.Kind.String() != "field" {
		t.Errorf("IsCompleted kind = %s, want field", a.IsCompleted.Kind)
	}
	if n := len(a.Results()); n != 0 {
		t.Errorf("GetResult results = %d, want 0", n)
	}

	a, ok = d.Detect(pkg.Type(t, "Ext"), scope, pos)
	if !ok {
		t.Fatal("Ext not awaitable")
	}
	if a.GetAwaiter.Kind.String() != "extension" {
		t.Errorf("GetAwaiter kind = %s, want extension", a.GetAwaiter.Kind)
	}
	if res := a.Results(); len(res) != 1 || res[0].String() != "int" {
		t.Errorf("GetResult results = %v, want [int]", res)
	}
}

func TestMatchFacet(t *testing.T) {
	pkg := srctest.Check(t, awaitSrc)

	tests := []struct {
		typ   string
		facet Facet
		want  bool
	}{
		{"goodAwaiter", Default.IsCompleted, true},
		{"goodAwaiter", Default.OnCompleted, true},
		{"goodAwaiter", Default.GetResult, true},
		{"fieldAwaiter", Default.IsCompleted, true},
		{"intIsCompletedAwaiter", Default.IsCompleted, false},
		{"onCompletedNotFuncAwaiter", Default.OnCompleted, false},
		{"getResultArgsAwaiter", Default.GetResult, false},
		// A field cannot satisfy a method facet.
		{"fieldAwaiter", Facet{Name: "IsCompleted", Kind: Method, Result: ResultBool}, false},
	}
	for _, tt := range tests {
		t.Run(tt.typ+"."+tt.facet.Name, func(t *testing.T) {
			_, got := MatchFacet(pkg.Type(t, tt.typ), tt.facet)
			if got != tt.want {
				t.Errorf("MatchFacet = %v, want %v", got, tt.want)
			}
		})
	}
}
