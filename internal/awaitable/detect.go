package awaitable

import (
	"go/token"
	"go/types"

	"github.com/broady/routegen/internal/symbols"
)

// Awaiter is a matched await protocol: how to get the awaiter from a value,
// and the three awaiter members.
type Awaiter struct {
	GetAwaiter symbols.Member
	Type       types.Type // the awaiter type

	IsCompleted symbols.Member
	OnCompleted symbols.Member
	GetResult   symbols.Member
}

// Results returns what GetResult yields.
func (a Awaiter) Results() []types.Type {
	return a.GetResult.Results()
}

// Detector matches types against a Protocol.
type Detector struct {
	Protocol Protocol
}

// NewDetector returns a detector for the default protocol.
func NewDetector() *Detector {
	return &Detector{Protocol: Default}
}

// IsAwaitable reports whether values of t can be awaited. scope and pos
// determine which package-level GetAwaiter functions are visible; a nil
// scope considers methods only. A returned value is not addressable, so
// pointer-receiver members of a non-pointer t do not count.
func (d *Detector) IsAwaitable(t types.Type, scope *types.Scope, pos token.Pos) bool {
	_, ok := d.Detect(t, scope, pos)
	return ok
}

// Detect returns the first GetAwaiter candidate of t whose awaiter matches
// every facet. Methods are tried before extension functions.
func (d *Detector) Detect(t types.Type, scope *types.Scope, pos token.Pos) (Awaiter, bool) {
	if d == nil || t == nil {
		return Awaiter{}, false
	}
	p := d.Protocol
	for _, cand := range symbols.Members(t, p.GetAwaiter, scope, pos) {
		awaiter, ok := getAwaiterResult(cand)
		if !ok {
			continue
		}
		isCompleted, ok := MatchFacet(awaiter, p.IsCompleted)
		if !ok {
			continue
		}
		onCompleted, ok := MatchFacet(awaiter, p.OnCompleted)
		if !ok {
			continue
		}
		getResult, ok := MatchFacet(awaiter, p.GetResult)
		if !ok {
			continue
		}
		return Awaiter{
			GetAwaiter:  cand,
			Type:        awaiter,
			IsCompleted: isCompleted,
			OnCompleted: onCompleted,
			GetResult:   getResult,
		}, true
	}
	return Awaiter{}, false
}

// getAwaiterResult returns the awaiter type of a zero-argument GetAwaiter
// with a single result.
func getAwaiterResult(m symbols.Member) (types.Type, bool) {
	if m.Kind == symbols.MemberField || m.Signature == nil || m.Signature.Variadic() {
		return nil, false
	}
	if len(m.Params()) != 0 {
		return nil, false
	}
	res := m.Results()
	if len(res) != 1 {
		return nil, false
	}
	return res[0], true
}
