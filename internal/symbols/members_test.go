package symbols

import (
	"testing"

	"github.com/broady/routegen/internal/srctest"
)

const membersSrc = `package app

type Base struct{ Ready bool }

func (Base) Run() int { return 0 }

type Derived struct{ Base }

func (*Derived) Stop() {}

type Other struct{}

func Run(d Derived) int { return 0 }

func Stop(d Derived, force bool) {}

func Generic[T any](v T) {}
`

func TestMembers(t *testing.T) {
	pkg := srctest.Check(t, membersSrc)
	scope, pos := pkg.Scope()

	tests := []struct {
		typ   string
		name  string
		kinds []MemberKind
	}{
		{"Derived", "Run", []MemberKind{MemberMethod, MemberExtension}},
		{"Derived", "Ready", []MemberKind{MemberField}},
		{"Derived", "Stop", nil}, // pointer method on a value; Stop func takes two args
		{"*Derived", "Stop", []MemberKind{MemberMethod}},
		{"Other", "Run", nil},
		{"Other", "Generic", nil},
		{"Base", "Missing", nil},
	}
	for _, tt := range tests {
		t.Run(tt.typ+"."+tt.name, func(t *testing.T) {
			got := Members(pkg.Type(t, tt.typ), tt.name, scope, pos)
			if len(got) != len(tt.kinds) {
				t.Fatalf("got %d members, want %d", len(got), len(tt.kinds))
			}
			for i, m := range got {
				if m.Kind != tt.kinds[i] {
					t.Errorf("member %d kind = %s, want %s", i, m.Kind, tt.kinds[i])
				}
			}
		})
	}
}

func TestMemberParamsAndResults(t *testing.T) {
	pkg := srctest.Check(t, membersSrc)
	scope, pos := pkg.Scope()

	got := Members(pkg.Type(t, "Derived"), "Run", scope, pos)
	if len(got) != 2 {
		t.Fatalf("got %d members, want 2", len(got))
	}
	for _, m := range got {
		if n := len(m.Params()); n != 0 {
			t.Errorf("%s: %d params, want 0", m.Kind, n)
		}
		if res := m.Results(); len(res) != 1 || res[0].String() != "int" {
			t.Errorf("%s: results = %v, want [int]", m.Kind, res)
		}
	}

	field := Members(pkg.Type(t, "Derived"), "Ready", nil, pos)[0]
	if res := field.Results(); len(res) != 1 || res[0].String() != "bool" {
		t.Errorf("field results = %v, want [bool]", res)
	}
}
