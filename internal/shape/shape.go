// Package shape classifies the declared return type of a handler into the
// response it produces: which value is written, with which content type, and
// whether it must be awaited first.
package shape

import (
	"go/token"
	"go/types"

	"github.com/broady/routegen/internal/awaitable"
	"github.com/broady/routegen/internal/catalog"
)

const (
	ContentTypeText = "text/plain"
	ContentTypeJSON = "application/json"
)

// Strategy is how generated code turns a handler's return into a response.
type Strategy int

const (
	StrategyVoid       Strategy = iota // nothing returned; respond with no content
	StrategyAwaitValue                 // await, then write the payload
	StrategyAwaitVoid                  // await, then respond with no content
	StrategyValue                      // write the returned value
)

func (s Strategy) String() string {
	switch s {
	case StrategyVoid:
		return "void"
	case StrategyAwaitValue:
		return "await value"
	case StrategyAwaitVoid:
		return "await void"
	case StrategyValue:
		return "value"
	default:
		return "unknown"
	}
}

// Shape describes a handler's response.
type Shape struct {
	// Unwrapped is the payload type: T for Task[T] and ValueTask[T], nil
	// for VoidTask, VoidValueTask and handlers without results, otherwise
	// the declared type.
	Unwrapped types.Type

	// Wrapper is the declared type itself.
	Wrapper types.Type

	// ContentType is empty when no payload is serialized by routegen:
	// void handlers, Result payloads and wrapped no-value types.
	ContentType string

	IsAwaitable  bool
	IsVoid       bool
	IsResultType bool

	// ReturnsError is set when the handler's last result is an error. It
	// is not part of Wrapper.
	ReturnsError bool
}

// Strategy returns the dispatch strategy implied by the shape.
func (s Shape) Strategy() Strategy {
	switch {
	case s.IsVoid:
		return StrategyVoid
	case s.IsAwaitable && s.Unwrapped == nil:
		return StrategyAwaitVoid
	case s.IsAwaitable:
		return StrategyAwaitValue
	default:
		return StrategyValue
	}
}

// Classifier produces shapes. Catalog may be nil when the analyzed code does
// not import routegen; nothing is then recognized as a wrapper or Result.
type Classifier struct {
	Catalog  *catalog.Catalog
	Detector *awaitable.Detector
}

// NewClassifier returns a classifier using the default await protocol.
func NewClassifier(cat *catalog.Catalog) *Classifier {
	return &Classifier{Catalog: cat, Detector: awaitable.NewDetector()}
}

// Classify classifies declared, the value a handler returns. The empty tuple
// denotes a handler with no results. scope and pos are the call site's, for
// resolving extension GetAwaiter functions.
func (c *Classifier) Classify(declared types.Type, scope *types.Scope, pos token.Pos) Shape {
	s := Shape{Wrapper: declared, IsVoid: isVoid(declared)}

	switch {
	case s.IsVoid:
		s.Unwrapped = nil
	case c.isWrappedValue(declared):
		s.Unwrapped = typeArg(declared)
	case c.Catalog.Is(declared, catalog.Task) || c.Catalog.Is(declared, catalog.ValueTask):
		s.Unwrapped = nil
	default:
		s.Unwrapped = declared
	}

	s.IsAwaitable = c.Detector.IsAwaitable(declared, scope, pos)
	if c.Catalog != nil && s.Unwrapped != nil {
		s.IsResultType = c.Catalog.ImplementsOrEquals(s.Unwrapped, c.Catalog.Type(catalog.Result))
	}

	switch {
	case s.IsResultType || s.Unwrapped == nil:
		s.ContentType = ""
	case types.Identical(s.Unwrapped, types.Typ[types.String]):
		s.ContentType = ContentTypeText
	default:
		s.ContentType = ContentTypeJSON
	}
	return s
}

func (c *Classifier) isWrappedValue(t types.Type) bool {
	return c.Catalog.Is(t, catalog.TaskOfT) || c.Catalog.Is(t, catalog.ValueTaskOfT)
}

func typeArg(t types.Type) types.Type {
	named := types.Unalias(t).(*types.Named)
	if named.TypeArgs().Len() != 1 {
		return nil
	}
	return named.TypeArgs().At(0)
}

func isVoid(t types.Type) bool {
	tup, ok := t.(*types.Tuple)
	return ok && tup.Len() == 0
}

// Void is the declared return of a handler with no results.
var Void = types.NewTuple()

// DeclaredReturn returns what sig returns once a trailing error is split
// off: Void for no results, the single result type, or a tuple when more
// than one value remains.
func DeclaredReturn(sig *types.Signature) (declared types.Type, returnsError bool) {
	res := sig.Results()
	n := res.Len()
	if n > 0 && isError(res.At(n-1).Type()) {
		returnsError = true
		n--
	}
	switch n {
	case 0:
		return Void, returnsError
	case 1:
		return res.At(0).Type(), returnsError
	}
	vars := make([]*types.Var, n)
	for i := range vars {
		vars[i] = res.At(i)
	}
	return types.NewTuple(vars...), returnsError
}

var errorType = types.Universe.Lookup("error").Type()

func isError(t types.Type) bool {
	return types.Identical(t, errorType)
}
