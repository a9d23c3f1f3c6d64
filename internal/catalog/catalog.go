// Package catalog resolves the handful of routegen runtime types the analyzer
// needs to recognize by identity: the task wrappers, the Result marker
// interface, and the App type whose Map* methods register handlers.
//
// Identity is by *types.TypeName of the loaded routegen package, so a catalog
// is only meaningful for the compilation (packages.Load call or analysis
// pass) it was built from.
package catalog

import (
	"fmt"
	"go/types"
)

// PackagePath is the import path of the routegen runtime package.
const PackagePath = "github.com/broady/routegen"

// Tag identifies a well-known runtime type.
type Tag int

const (
	TaskOfT      Tag = iota // routegen.Task[T]
	ValueTaskOfT            // routegen.ValueTask[T]
	Task                    // routegen.VoidTask
	ValueTask               // routegen.VoidValueTask
	Result                  // routegen.Result
	App                     // routegen.App

	numTags
)

var tagNames = [numTags]string{
	TaskOfT:      "Task",
	ValueTaskOfT: "ValueTask",
	Task:         "VoidTask",
	ValueTask:    "VoidValueTask",
	Result:       "Result",
	App:          "App",
}

func (t Tag) String() string {
	if t < 0 || t >= numTags {
		return "unknown"
	}
	return "routegen." + tagNames[t]
}

// RegistrationMethods lists the *App methods that register a handler.
// In all of them the route pattern is the first argument and the handler the
// second, i.e. ordinals 1 and 2 once the receiver is counted as ordinal 0.
var RegistrationMethods = map[string]bool{
	"Map":        true,
	"MapGet":     true,
	"MapPost":    true,
	"MapPut":     true,
	"MapDelete":  true,
	"MapPatch":   true,
	"MapMethods": true,
}

// Catalog maps tags to type handles for one compilation.
type Catalog struct {
	pkg   *types.Package
	names [numTags]*types.TypeName
}

// New builds a catalog from the routegen package itself.
func New(pkg *types.Package) (*Catalog, error) {
	if pkg == nil {
		return nil, fmt.Errorf("nil package")
	}
	if pkg.Path() != PackagePath {
		return nil, fmt.Errorf("package %s is not %s", pkg.Path(), PackagePath)
	}
	c := &Catalog{pkg: pkg}
	for tag, name := range tagNames {
		tn, ok := pkg.Scope().Lookup(name).(*types.TypeName)
		if !ok {
			return nil, fmt.Errorf("%s: type %s not found", PackagePath, name)
		}
		c.names[tag] = tn
	}
	return c, nil
}

// FromImports searches pkg and its transitive imports for the routegen
// package and builds a catalog from it. It returns nil when pkg does not
// depend on routegen or the routegen package is incomplete.
func FromImports(pkg *types.Package) *Catalog {
	rg := findPackage(pkg, make(map[*types.Package]bool))
	if rg == nil {
		return nil
	}
	c, err := New(rg)
	if err != nil {
		return nil
	}
	return c
}

func findPackage(pkg *types.Package, seen map[*types.Package]bool) *types.Package {
	if pkg == nil || seen[pkg] {
		return nil
	}
	seen[pkg] = true
	if pkg.Path() == PackagePath {
		return pkg
	}
	for _, imp := range pkg.Imports() {
		if found := findPackage(imp, seen); found != nil {
			return found
		}
	}
	return nil
}

// Package returns the routegen package the catalog was built from.
func (c *Catalog) Package() *types.Package { return c.pkg }

// Type returns the type handle for tag. Generic tags return the
// uninstantiated origin type.
func (c *Catalog) Type(tag Tag) types.Type {
	return c.names[tag].Type()
}

// Is reports whether t is the type denoted by tag, or for generic tags, an
// instantiation of it.
func (c *Catalog) Is(t types.Type, tag Tag) bool {
	if c == nil || t == nil {
		return false
	}
	named, ok := types.Unalias(t).(*types.Named)
	if !ok {
		return false
	}
	return named.Origin().Obj() == c.names[tag]
}

// TypeArg returns the single type argument of t when t instantiates the
// generic type denoted by tag.
func (c *Catalog) TypeArg(t types.Type, tag Tag) (types.Type, bool) {
	if !c.Is(t, tag) {
		return nil, false
	}
	args := types.Unalias(t).(*types.Named).TypeArgs()
	if args.Len() != 1 {
		return nil, false
	}
	return args.At(0), true
}

// ImplementsOrEquals reports whether t is identical to u or, when u is an
// interface, whether t implements it.
func (c *Catalog) ImplementsOrEquals(t, u types.Type) bool {
	if t == nil || u == nil {
		return false
	}
	if _, ok := t.(*types.Tuple); ok {
		return false
	}
	if types.Identical(t, u) {
		return true
	}
	iface, ok := u.Underlying().(*types.Interface)
	if !ok {
		return false
	}
	return types.Implements(t, iface)
}

// IsRegistration reports whether fn is one of the *App methods that
// register a handler.
func (c *Catalog) IsRegistration(fn *types.Func) bool {
	if c == nil || fn == nil || !RegistrationMethods[fn.Name()] {
		return false
	}
	sig, ok := fn.Type().(*types.Signature)
	if !ok || sig.Recv() == nil {
		return false
	}
	recv := sig.Recv().Type()
	if ptr, ok := recv.(*types.Pointer); ok {
		recv = ptr.Elem()
	}
	return c.Is(recv, App)
}
