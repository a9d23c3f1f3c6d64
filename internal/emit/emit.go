// Package emit writes the Go file holding the generated dispatchers of one
// package.
//
// Each dispatcher is registered from init under the Site of its
// registration call. At run time App.register finds it by the caller's file
// and line and uses it in place of reflection. The file is excluded from the
// routegen build tag, so a stale file never hides the code it was generated
// from while generating again.
package emit

import (
	"bytes"
	"cmp"
	"errors"
	"fmt"
	"go/types"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"text/template"

	"golang.org/x/tools/imports"

	"github.com/broady/routegen/internal/awaitable"
	"github.com/broady/routegen/internal/catalog"
	"github.com/broady/routegen/internal/endpoint"
)

const (
	// FileName is the name of the generated file in each package.
	FileName = "routegen_gen.go"

	// Header marks generated files. Files carrying it may be overwritten.
	Header = "// Code generated by routegen. DO NOT EDIT."

	// BuildTag is set while loading packages for generation.
	BuildTag = "routegen"
)

// Package is the package a file is generated for.
type Package struct {
	Types *types.Package

	// ModuleDir is the directory holding go.mod. Site files are recorded
	// relative to it; when it is empty, only the base name is recorded.
	ModuleDir string

	// Catalog recognizes routegen types. It may be nil.
	Catalog *catalog.Catalog
}

// Skip is a registration served by reflection instead of generated code.
type Skip struct {
	Site   endpoint.CallSite
	Reason string

	// Diagnosed is set when the model carries diagnostics; Reason is then
	// the first diagnostic's message.
	Diagnosed bool
}

func (s Skip) String() string {
	return fmt.Sprintf("%s:%d: %s", s.Site.File, s.Site.Line, s.Reason)
}

// Output is a generated file.
type Output struct {
	Source      []byte
	Dispatchers int
	Skipped     []Skip
}

type dispatcherData struct {
	Func    string
	File    string
	Line    int
	EndLine int
	Route   string
	Body    string
}

// Generate produces the file for models, which must all belong to pkg.
// Models generated code cannot serve are reported in Output.Skipped; an
// error means the file itself could not be produced.
func Generate(pkg Package, models []endpoint.Model) (*Output, error) {
	if pkg.Types == nil {
		return nil, errors.New("emit: package has no type information")
	}
	models = slices.Clone(models)
	slices.SortStableFunc(models, func(a, b endpoint.Model) int {
		return cmp.Or(cmp.Compare(a.Site.File, b.Site.File), cmp.Compare(a.Site.Line, b.Site.Line))
	})

	im := newImportSet(pkg.Types)
	detector := awaitable.NewDetector()
	out := &Output{}
	var data []dispatcherData
	for _, m := range models {
		// A skipped dispatcher must not leave its imports behind.
		fork := im.fork()
		d := &dispatcher{m: m, imports: fork, cat: pkg.Catalog, detector: detector, pkg: pkg.Types}
		body, err := d.generate()
		if err != nil {
			var skip *skipError
			if !errors.As(err, &skip) {
				return nil, err
			}
			out.Skipped = append(out.Skipped, Skip{Site: m.Site, Reason: skip.reason, Diagnosed: !m.OK()})
			continue
		}
		im = fork
		data = append(data, dispatcherData{
			Func:    funcName(pkg.Types, len(data)),
			File:    siteFile(pkg.ModuleDir, m.Site.File),
			Line:    m.Site.Line,
			EndLine: m.Site.EndLine,
			Route:   routeLabel(m),
			Body:    body,
		})
	}
	out.Dispatchers = len(data)

	var buf bytes.Buffer
	err := fileTemplate.Execute(&buf, struct {
		Header      string
		Tag         string
		Package     string
		Imports     []string
		Routegen    string
		HTTP        string
		Dispatchers []dispatcherData
	}{
		Header:      Header,
		Tag:         BuildTag,
		Package:     pkg.Types.Name(),
		Imports:     im.specs(),
		Routegen:    im.name(catalog.PackagePath, "routegen"),
		HTTP:        im.name("net/http", "http"),
		Dispatchers: data,
	})
	if err != nil {
		return nil, fmt.Errorf("emit: %w", err)
	}

	src, err := imports.Process(FileName, buf.Bytes(), &imports.Options{
		FormatOnly: true,
		Comments:   true,
		TabIndent:  true,
		TabWidth:   8,
	})
	if err != nil {
		return nil, fmt.Errorf("emit: format %s: %w\n%s", FileName, err, buf.Bytes())
	}
	out.Source = src
	return out, nil
}

func funcName(pkg *types.Package, i int) string {
	name := "routegenDispatch" + strconv.Itoa(i)
	for pkg.Scope().Lookup(name) != nil {
		name = "_" + name
	}
	return name
}

// siteFile returns file relative to moduleDir, slash-separated.
func siteFile(moduleDir, file string) string {
	if moduleDir != "" {
		if rel, err := filepath.Rel(moduleDir, file); err == nil && !strings.HasPrefix(rel, "..") {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.Base(file)
}

func routeLabel(m endpoint.Model) string {
	pattern := "?"
	if m.Route != nil {
		pattern = m.Route.Pattern
	}
	label := pattern
	if m.Verb != "" {
		label = m.Verb + " " + pattern
	}
	return strconv.Quote(label)
}

var fileTemplate = template.Must(template.New("file").Parse(`{{.Header}}

//go:build !{{.Tag}}

package {{.Package}}
{{if .Dispatchers}}
import (
{{- range .Imports}}
	{{.}}
{{- end}}
)

func init() {
{{- range .Dispatchers}}
	{{$.Routegen}}.RegisterDispatcher({{$.Routegen}}.Site{File: {{printf "%q" .File}}, Line: {{.Line}}, EndLine: {{.EndLine}}}, {{.Func}})
{{- end}}
}
{{range .Dispatchers}}
// {{.Func}} serves {{.Route}}.
func {{.Func}}(app *{{$.Routegen}}.App, handler any) ({{$.HTTP}}.HandlerFunc, error) {
{{.Body}}}
{{end}}{{end}}`))
