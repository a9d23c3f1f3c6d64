// Package analyzer reports handler registrations that routegen cannot
// serve with generated code.
//
// Every finding is a warning: the registration still works, through the
// reflective dispatcher.
package analyzer

import (
	"fmt"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"

	"github.com/broady/routegen/internal/catalog"
	"github.com/broady/routegen/internal/discover"
	"github.com/broady/routegen/internal/emit"
	"github.com/broady/routegen/internal/endpoint"
	"github.com/broady/routegen/internal/symbols"
)

const doc = `report routegen registrations served by reflection

The analyzer builds the endpoint model of every call of a Map* method of
*routegen.App and reports RG001 when the route pattern is not a constant
string and RG002 when the handler cannot be traced to a function.
With -reflective it also reports registrations that are modeled but still
cannot be generated, such as handlers with unsupported parameters.`

var Analyzer = &analysis.Analyzer{
	Name:     "routegen",
	Doc:      doc,
	URL:      "https://pkg.go.dev/github.com/broady/routegen/analyzer",
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      run,
}

var reflective bool

func init() {
	Analyzer.Flags.BoolVar(&reflective, "reflective", false, "also report registrations the generator skips")
}

func run(pass *analysis.Pass) (any, error) {
	cat := catalog.FromImports(pass.Pkg)
	if cat == nil {
		return nil, nil
	}
	in := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)
	sites := discover.Inspect(in, cat, pass.Fset, pass.TypesInfo, pass.Pkg)
	if len(sites) == 0 {
		return nil, nil
	}

	ix := symbols.NewIndex(&symbols.Unit{Fset: pass.Fset, Files: pass.Files, Info: pass.TypesInfo, Pkg: pass.Pkg})
	b := endpoint.NewBuilder(cat, ix)
	var clean []endpoint.Model
	for _, site := range sites {
		m := b.Build(site)
		for _, d := range m.Diagnostics {
			pass.Report(analysis.Diagnostic{
				Pos:      d.At,
				Category: d.Kind.Code(),
				Message:  fmt.Sprintf("%s: %s", d.Kind.Code(), d.Message),
			})
		}
		if m.OK() {
			clean = append(clean, m)
		}
	}

	if !reflective || len(clean) == 0 {
		return nil, nil
	}
	out, err := emit.Generate(emit.Package{Types: pass.Pkg, Catalog: cat}, clean)
	if err != nil {
		return nil, err
	}
	for _, s := range out.Skipped {
		pass.Report(analysis.Diagnostic{
			Pos:      s.Site.Call.Pos(),
			Category: "reflective",
			Message:  "served by reflection: " + s.Reason,
		})
	}
	return nil, nil
}
