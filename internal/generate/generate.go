// Package generate runs routegen over a set of packages: it loads them,
// builds an endpoint model for every registration call, and writes one
// generated dispatcher file per package.
package generate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/go/packages"

	"github.com/broady/routegen/internal/catalog"
	"github.com/broady/routegen/internal/discover"
	"github.com/broady/routegen/internal/emit"
	"github.com/broady/routegen/internal/endpoint"
	"github.com/broady/routegen/internal/sink"
	"github.com/broady/routegen/internal/symbols"
)

// LoadMode is what the driver needs from go/packages.
const LoadMode = packages.NeedName | packages.NeedFiles | packages.NeedSyntax |
	packages.NeedTypes | packages.NeedTypesInfo | packages.NeedImports | packages.NeedModule

// Options configures a run.
type Options struct {
	// Patterns are package patterns as accepted by go list. Default "./...".
	Patterns []string

	// Dir is the directory patterns are resolved in, and the root of every
	// path handed to the sink. Default: the current directory.
	Dir string

	// Tags are extra build tags. The routegen tag is always set.
	Tags []string

	// Workers bounds concurrent model builds. Default: GOMAXPROCS.
	Workers int

	// FileName is the generated file in each package. Default emit.FileName.
	FileName string

	Logger *slog.Logger
}

func (o Options) withDefaults() (Options, error) {
	if len(o.Patterns) == 0 {
		o.Patterns = []string{"./..."}
	}
	if o.Dir == "" {
		o.Dir = "."
	}
	dir, err := filepath.Abs(o.Dir)
	if err != nil {
		return o, fmt.Errorf("resolve %s: %w", o.Dir, err)
	}
	o.Dir = dir
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.FileName == "" {
		o.FileName = emit.FileName
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o, nil
}

// Package is one package to generate for.
type Package struct {
	Unit    *symbols.Unit
	Catalog *catalog.Catalog // nil when the package does not use routegen
	Sites   []endpoint.CallSite

	Dir       string // directory holding the package's files
	ModuleDir string // directory holding go.mod, if known

	// Stale is set when the package has a generated file that the load
	// excluded. Such a package is written even without registrations, so
	// the old file does not outlive the code it served.
	Stale bool
}

// Result is the outcome of analyzing one package.
type Result struct {
	Package *Package
	Models  []endpoint.Model

	// Output is the generated file. It is nil until Emit runs, and stays nil
	// for packages with nothing to write.
	Output *emit.Output

	// File is the sink path of Output.
	File string
}

// Diagnostics returns the diagnostics of every model in rs, in order.
func Diagnostics(rs []*Result) []endpoint.Diagnostic {
	var ds []endpoint.Diagnostic
	for _, r := range rs {
		for _, m := range r.Models {
			ds = append(ds, m.Diagnostics...)
		}
	}
	return ds
}

// Load loads the packages matched by opts. Any package error fails the load.
func Load(ctx context.Context, opts Options) ([]*Package, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	tags := append(slices.Clone(opts.Tags), emit.BuildTag)
	cfg := &packages.Config{
		Context:    ctx,
		Mode:       LoadMode,
		Dir:        opts.Dir,
		BuildFlags: []string{"-tags=" + strings.Join(tags, ",")},
	}
	pkgs, err := packages.Load(cfg, opts.Patterns...)
	if err != nil {
		return nil, fmt.Errorf("load packages: %w", err)
	}

	var errs error
	packages.Visit(pkgs, nil, func(p *packages.Package) {
		for _, e := range p.Errors {
			errs = multierr.Append(errs, errors.New(e.Error()))
		}
	})
	if errs != nil {
		return nil, fmt.Errorf("load packages: %w", errs)
	}

	out := make([]*Package, 0, len(pkgs))
	for _, p := range pkgs {
		out = append(out, fromPackages(p, opts.FileName))
	}
	return out, nil
}

// NewPackage finds the registration calls of u.
func NewPackage(u *symbols.Unit, dir, moduleDir string) *Package {
	cat := catalog.FromImports(u.Pkg)
	return &Package{
		Unit:      u,
		Catalog:   cat,
		Sites:     discover.Sites(cat, u),
		Dir:       dir,
		ModuleDir: moduleDir,
	}
}

func fromPackages(p *packages.Package, fileName string) *Package {
	cat := catalog.FromImports(p.Types)
	d := discover.Package(cat, p)
	pkg := &Package{
		Unit: &symbols.Unit{
			Fset:  p.Fset,
			Files: p.Syntax,
			Info:  p.TypesInfo,
			Pkg:   p.Types,
		},
		Catalog:   cat,
		Sites:     d.Sites,
		Dir:       d.Dir,
		ModuleDir: d.ModuleDir,
	}
	for _, f := range p.IgnoredFiles {
		if filepath.Base(f) == fileName {
			pkg.Stale = true
			if pkg.Dir == "" {
				pkg.Dir = filepath.Dir(f)
			}
		}
	}
	return pkg
}

// Analyze builds the model of every registration call in pkgs. Builds run
// on at most workers goroutines and share one symbol index. When ctx is
// canceled, builds not yet started are dropped and ctx.Err() is returned.
func Analyze(ctx context.Context, pkgs []*Package, workers int, logger *slog.Logger) ([]*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	units := make([]*symbols.Unit, len(pkgs))
	for i, p := range pkgs {
		units[i] = p.Unit
	}
	ix := symbols.NewIndex(units...)

	type job struct {
		res  *Result
		i    int
		site endpoint.CallSite
		b    *endpoint.Builder
	}
	results := make([]*Result, len(pkgs))
	var jobs []job
	for i, p := range pkgs {
		res := &Result{Package: p}
		results[i] = res
		sites := p.Sites
		if len(sites) == 0 {
			continue
		}
		res.Models = make([]endpoint.Model, len(sites))
		b := endpoint.NewBuilder(p.Catalog, ix)
		for j, site := range sites {
			jobs = append(jobs, job{res: res, i: j, site: site, b: b})
		}
		logger.Debug("package analyzed", "package", p.Unit.Pkg.Path(), "sites", len(sites))
	}

	g := new(errgroup.Group)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for _, j := range jobs {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			j.res.Models[j.i] = j.b.Build(j.site)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// Emit generates the file of every result that has registrations or a
// stale file and writes it to s. Paths are relative to root. Every package
// is attempted; the errors of all failed packages are returned together.
func Emit(ctx context.Context, results []*Result, s sink.Sink, root, fileName string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if fileName == "" {
		fileName = emit.FileName
	}
	var errs error
	for _, r := range results {
		if err := ctx.Err(); err != nil {
			return err
		}
		p := r.Package
		if len(r.Models) == 0 && !p.Stale {
			continue
		}
		pkgPath := p.Unit.Pkg.Path()
		rel, err := filepath.Rel(root, filepath.Join(p.Dir, fileName))
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			errs = multierr.Append(errs, fmt.Errorf("%s: directory %s is outside %s", pkgPath, p.Dir, root))
			continue
		}

		out, err := emit.Generate(emit.Package{Types: p.Unit.Pkg, ModuleDir: p.ModuleDir, Catalog: p.Catalog}, r.Models)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", pkgPath, err))
			continue
		}
		r.Output = out
		r.File = filepath.ToSlash(rel)
		if err := s.WriteFile(ctx, r.File, out.Source); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", pkgPath, err))
			continue
		}
		for _, skip := range out.Skipped {
			logger.Debug("registration served by reflection", "site", skip.String())
		}
		logger.Debug("generated", "file", r.File, "dispatchers", out.Dispatchers, "skipped", len(out.Skipped))
	}
	return errs
}

// Run loads, analyzes and emits with opts, writing through s. Paths handed
// to s are relative to opts.Dir.
func Run(ctx context.Context, opts Options, s sink.Sink) ([]*Result, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	pkgs, err := Load(ctx, opts)
	if err != nil {
		return nil, err
	}
	results, err := Analyze(ctx, pkgs, opts.Workers, opts.Logger)
	if err != nil {
		return nil, err
	}
	if err := Emit(ctx, results, s, opts.Dir, opts.FileName, opts.Logger); err != nil {
		return results, err
	}
	return results, nil
}
