package endpoint

import (
	"go/ast"
	"go/constant"
	"go/types"
	"net/http"
	"strings"

	"github.com/broady/routegen/internal/catalog"
	"github.com/broady/routegen/internal/operation"
	"github.com/broady/routegen/internal/resolve"
	"github.com/broady/routegen/internal/shape"
	"github.com/broady/routegen/internal/symbols"
)

// Argument ordinals of a registration call. The receiver is ordinal 0.
const (
	RouteOrdinal   = 1
	HandlerOrdinal = 2
)

var verbs = map[string]string{
	"MapGet":    http.MethodGet,
	"MapPost":   http.MethodPost,
	"MapPut":    http.MethodPut,
	"MapDelete": http.MethodDelete,
	"MapPatch":  http.MethodPatch,
}

// Builder builds models. It holds no per-site state and may be used from
// several goroutines at once.
type Builder struct {
	resolver   *resolve.Resolver
	classifier *shape.Classifier
}

// NewBuilder returns a builder that resolves variables through ix and
// recognizes routegen types through cat. Either may be nil.
func NewBuilder(cat *catalog.Catalog, ix *symbols.Index) *Builder {
	return &Builder{
		resolver:   resolve.New(ix),
		classifier: shape.NewClassifier(cat),
	}
}

// Build runs route extraction, verb extraction, then target resolution with
// parameter binding and shape classification. A failing step records a
// diagnostic and the next step runs anyway.
func (b *Builder) Build(site CallSite) Model {
	m := Model{Site: site}
	m = b.route(m)
	m = b.verb(m)
	m = b.target(m)
	return m
}

func (b *Builder) route(m Model) Model {
	site := m.Site
	if len(site.Call.Args) < RouteOrdinal {
		return m.WithDiagnostic(newDiagnostic(site, UnableToResolveRoutePattern, site.Call.Lparen,
			"%s call has no route argument", site.Method))
	}
	arg := site.Call.Args[RouteOrdinal-1]
	s, ok := constString(site.Info, arg)
	if !ok {
		return m.WithDiagnostic(newDiagnostic(site, UnableToResolveRoutePattern, arg.Pos(),
			"route pattern of %s is not a constant string", site.Method))
	}
	return m.WithRoute(ParseRoute(s))
}

// verb is best effort. A missing verb is not diagnosed.
func (b *Builder) verb(m Model) Model {
	site := m.Site
	if v, ok := verbs[site.Method]; ok {
		return m.WithVerb(v)
	}
	if site.Method != "MapMethods" || site.Call.Ellipsis.IsValid() {
		return m
	}
	methods := site.Call.Args[min(HandlerOrdinal, len(site.Call.Args)):]
	if len(methods) != 1 {
		return m
	}
	if s, ok := constString(site.Info, methods[0]); ok && s != "" {
		return m.WithVerb(strings.ToUpper(s))
	}
	return m
}

func (b *Builder) target(m Model) Model {
	site := m.Site
	arg := operation.LowerArgument(site.Info, site.Pkg, site.Call, HandlerOrdinal)
	if arg == nil {
		return m.WithDiagnostic(newDiagnostic(site, UnableToResolveMethod, site.Call.Lparen,
			"%s call has no handler argument", site.Method))
	}
	t := b.resolver.Resolve(arg)
	if t == nil || t.Signature == nil {
		return m.WithDiagnostic(newDiagnostic(site, UnableToResolveMethod, arg.Expr.Pos(),
			"cannot resolve handler passed to %s to a function", site.Method))
	}

	m = m.WithTarget(t, handlerType(site.Info.TypeOf(arg.Expr), t))
	m = m.WithParameters(bindParameters(t.Signature, m.Verb, m.Route))

	declared, returnsError := shape.DeclaredReturn(t.Signature)
	pos := site.Call.Pos()
	scope := site.Pkg.Scope().Innermost(pos)
	if scope == nil {
		scope = site.Pkg.Scope()
	}
	s := b.classifier.Classify(declared, scope, pos)
	s.ReturnsError = returnsError
	return m.WithShape(s)
}

// handlerType is the dynamic type the handler has when it reaches the
// registration method. A func-typed argument keeps its static type; an
// interface-typed one is assumed to hold the resolved function's signature.
func handlerType(static types.Type, t *resolve.Target) types.Type {
	if static != nil {
		if _, ok := static.Underlying().(*types.Signature); ok {
			return static
		}
	}
	return t.Signature
}

func constString(info *types.Info, e ast.Expr) (string, bool) {
	tv, ok := info.Types[e]
	if !ok || tv.Value == nil || tv.Value.Kind() != constant.String {
		return "", false
	}
	return constant.StringVal(tv.Value), true
}
