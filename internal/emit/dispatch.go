package emit

import (
	"fmt"
	"go/types"
	"strconv"
	"strings"

	"github.com/broady/routegen/internal/awaitable"
	"github.com/broady/routegen/internal/catalog"
	"github.com/broady/routegen/internal/endpoint"
	"github.com/broady/routegen/internal/shape"
	"github.com/broady/routegen/internal/symbols"
)

// skipError is returned for a model generated code cannot serve. Its
// message is the reason reported to the user.
type skipError struct{ reason string }

func (e *skipError) Error() string { return e.reason }

func skipf(format string, args ...any) error {
	return &skipError{reason: fmt.Sprintf(format, args...)}
}

// body writes the statements of one dispatcher function.
type body struct {
	strings.Builder
	indent     int
	errDefined bool
}

func (b *body) line(format string, args ...any) {
	b.WriteString(strings.Repeat("\t", b.indent))
	fmt.Fprintf(&b.Builder, format, args...)
	b.WriteByte('\n')
}

// assignErr returns ":=" or "=" for a statement whose only new variable
// would be err.
func (b *body) assignErr() string {
	if b.errDefined {
		return "="
	}
	b.errDefined = true
	return ":="
}

func (b *body) checkErr() {
	b.line("if err != nil {")
	b.indent++
	b.line("app.WriteError(w, r, err)")
	b.line("return")
	b.indent--
	b.line("}")
}

// dispatcher generates the body of the dispatcher for m.
type dispatcher struct {
	m        endpoint.Model
	imports  *importSet
	cat      *catalog.Catalog
	detector *awaitable.Detector
	pkg      *types.Package
}

func (d *dispatcher) spell(t types.Type) (string, error) {
	if why := nameable(t, d.pkg); why != "" {
		return "", skipf("type %s cannot be named here: %s", types.TypeString(t, nil), why)
	}
	return d.imports.typeString(t), nil
}

func (d *dispatcher) generate() (string, error) {
	m := d.m
	if !m.OK() {
		return "", skipf("%s", m.Diagnostics[0].Message)
	}
	if m.Target == nil || m.Shape == nil || m.HandlerType == nil {
		return "", skipf("handler was not resolved")
	}
	if tup, ok := m.Shape.Wrapper.(*types.Tuple); ok && tup.Len() > 0 {
		return "", skipf("handler returns %d values; want at most one plus an error", tup.Len())
	}
	handlerType, err := d.spell(m.HandlerType)
	if err != nil {
		return "", err
	}

	var b body
	b.indent = 1
	b.line("fn, ok := handler.(%s)", handlerType)
	b.line("if !ok {")
	b.line("\treturn nil, %s.ErrHandlerMismatch", d.imports.name(catalog.PackagePath, "routegen"))
	b.line("}")
	h := d.imports.name("net/http", "http")
	b.line("return func(w %s.ResponseWriter, r *%s.Request) {", h, h)
	b.indent++

	args, writesResponse, err := d.bindParams(&b)
	if err != nil {
		return "", err
	}
	call := "fn(" + strings.Join(args, ", ") + ")"

	s := *m.Shape
	switch s.Strategy() {
	case shape.StrategyVoid:
		if s.ReturnsError {
			b.line("err %s %s", b.assignErr(), call)
			b.checkErr()
		} else {
			b.line("%s", call)
		}
		if !writesResponse {
			b.line("app.WriteNoContent(w, r)")
		}
	case shape.StrategyValue:
		d.callValue(&b, call, s.ReturnsError)
		d.writePayload(&b, "v", s.Unwrapped)
	case shape.StrategyAwaitValue, shape.StrategyAwaitVoid:
		d.callValue(&b, call, s.ReturnsError)
		if err := d.await(&b, s.Wrapper); err != nil {
			return "", err
		}
	}

	b.indent--
	b.line("}, nil")
	return b.String(), nil
}

func (d *dispatcher) callValue(b *body, call string, returnsError bool) {
	if returnsError {
		b.errDefined = true
		b.line("v, err := %s", call)
		b.checkErr()
		return
	}
	b.line("v := %s", call)
}

// bindParams emits one variable per parameter and returns the call
// arguments.
func (d *dispatcher) bindParams(b *body) (args []string, writesResponse bool, err error) {
	rt := d.imports.name(catalog.PackagePath, "routegen")
	for i, p := range d.m.Parameters {
		v := "p" + strconv.Itoa(i)
		switch p.Source {
		case endpoint.SourceContext:
			b.line("%s := r.Context()", v)
		case endpoint.SourceRequest:
			v = "r"
		case endpoint.SourceResponse:
			v = "w"
			writesResponse = true
		case endpoint.SourceRoute, endpoint.SourceQuery:
			if p.Source == endpoint.SourceRoute && types.Identical(p.Type, types.Typ[types.String]) {
				b.line("%s := r.PathValue(%s)", v, strconv.Quote(p.Name))
				break
			}
			t, err := d.spell(p.Type)
			if err != nil {
				return nil, false, err
			}
			fn := "ParseRoute"
			if p.Source == endpoint.SourceQuery {
				fn = "ParseQuery"
			}
			b.errDefined = true
			b.line("%s, err := %s.%s[%s](r, %s)", v, rt, fn, t, strconv.Quote(p.Name))
			b.checkErr()
		case endpoint.SourceForm, endpoint.SourceBody:
			t, err := d.spell(p.Type)
			if err != nil {
				return nil, false, err
			}
			fn := "BindJSON"
			switch {
			case d.m.Verb == "":
				fn = "Bind"
			case p.Source == endpoint.SourceForm:
				fn = "BindQuery"
			}
			b.errDefined = true
			b.line("%s, err := %s.%s[%s](r)", v, rt, fn, t)
			b.checkErr()
		default:
			name := p.Name
			if name == "" || name == "_" {
				name = "#" + strconv.Itoa(i)
			}
			return nil, false, skipf("parameter %s of type %s cannot be bound", name, types.TypeString(p.Type, nil))
		}
		args = append(args, v)
	}
	return args, writesResponse, nil
}

// writePayload writes the value named v of type t.
func (d *dispatcher) writePayload(b *body, v string, t types.Type) {
	switch {
	case types.Identical(t, types.Typ[types.String]):
		b.line("app.WriteText(w, r, %s)", v)
	case d.cat != nil && d.cat.ImplementsOrEquals(t, d.cat.Type(catalog.Result)):
		b.line("app.WriteResult(w, r, %s)", v)
	default:
		b.line("app.WriteJSON(w, r, %s)", v)
	}
}

// await emits the await protocol on v, then writes the result.
func (d *dispatcher) await(b *body, declared types.Type) error {
	site := d.m.Site
	pos := site.Call.Pos()
	scope := site.Pkg.Scope().Innermost(pos)
	if scope == nil {
		scope = site.Pkg.Scope()
	}
	aw, ok := d.detector.Detect(declared, scope, pos)
	if !ok {
		return skipf("%s is not awaitable", types.TypeString(declared, nil))
	}

	getAwaiter, err := d.member(aw.GetAwaiter, "v")
	if err != nil {
		return err
	}
	b.line("aw := %s", getAwaiter)

	isCompleted := "aw.IsCompleted"
	if aw.IsCompleted.Kind != symbols.MemberField {
		isCompleted += "()"
	}
	cont, err := d.continuation(aw.OnCompleted)
	if err != nil {
		return err
	}
	b.line("if !%s {", isCompleted)
	b.indent++
	b.line("done := make(chan struct{}, 1)")
	b.line("aw.OnCompleted(%s {", cont)
	b.indent++
	b.line("select {")
	b.line("case done <- struct{}{}:")
	b.line("default:")
	b.line("}")
	b.line("return")
	b.indent--
	b.line("})")
	b.line("select {")
	b.line("case <-done:")
	b.line("case <-r.Context().Done():")
	b.line("\tapp.WriteError(w, r, &%s.AwaitError{Err: r.Context().Err()})", d.imports.name(catalog.PackagePath, "routegen"))
	b.line("\treturn")
	b.line("}")
	b.indent--
	b.line("}")

	results := aw.Results()
	returnsError := len(results) > 0 && isError(results[len(results)-1])
	if returnsError {
		results = results[:len(results)-1]
	}
	switch {
	case len(results) > 1:
		return skipf("GetResult of %s returns %d values", types.TypeString(declared, nil), len(results))
	case len(results) == 1 && returnsError:
		b.errDefined = true
		b.line("res, err := aw.GetResult()")
		b.checkErr()
	case len(results) == 1:
		b.line("res := aw.GetResult()")
	case returnsError:
		b.line("err %s aw.GetResult()", b.assignErr())
		b.checkErr()
	default:
		b.line("aw.GetResult()")
	}
	if len(results) == 0 {
		b.line("app.WriteNoContent(w, r)")
		return nil
	}
	if _, err := d.spell(results[0]); err != nil {
		return err
	}
	d.writePayload(b, "res", results[0])
	return nil
}

// member spells a zero-argument call of m on recv.
func (d *dispatcher) member(m symbols.Member, recv string) (string, error) {
	switch m.Kind {
	case symbols.MemberExtension:
		fn := m.Obj.(*types.Func)
		name := fn.Name()
		if fn.Pkg() != d.pkg {
			if !fn.Exported() {
				return "", skipf("%s.%s is unexported", fn.Pkg().Path(), name)
			}
			name = d.imports.qualifier(fn.Pkg()) + "." + name
		}
		return name + "(" + recv + ")", nil
	case symbols.MemberField:
		return recv + "." + m.Obj.Name(), nil
	}
	return recv + "." + m.Obj.Name() + "()", nil
}

// continuation spells the signature of a func literal accepted by the
// OnCompleted method m. Results are named so a bare return works.
func (d *dispatcher) continuation(m symbols.Member) (string, error) {
	params := m.Params()
	if len(params) != 1 {
		return "", skipf("OnCompleted takes %d parameters", len(params))
	}
	sig, ok := params[0].Type().Underlying().(*types.Signature)
	if !ok {
		return "", skipf("OnCompleted parameter is not a function")
	}
	var in, out []string
	for i := range sig.Params().Len() {
		t, err := d.spell(sig.Params().At(i).Type())
		if err != nil {
			return "", err
		}
		if sig.Variadic() && i == sig.Params().Len()-1 {
			t = "..." + strings.TrimPrefix(t, "[]")
		}
		in = append(in, "_ "+t)
	}
	for i := range sig.Results().Len() {
		t, err := d.spell(sig.Results().At(i).Type())
		if err != nil {
			return "", err
		}
		out = append(out, fmt.Sprintf("r%d %s", i, t))
	}
	s := "func(" + strings.Join(in, ", ") + ")"
	if len(out) > 0 {
		s += " (" + strings.Join(out, ", ") + ")"
	}
	return s, nil
}

var errorType = types.Universe.Lookup("error").Type()

func isError(t types.Type) bool { return types.Identical(t, errorType) }
