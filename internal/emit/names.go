package emit

import (
	"fmt"
	"go/types"
	"maps"
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/broady/routegen/internal/catalog"
)

// importSet assigns file-local names to the packages a generated file refers
// to. Names never collide with each other or with package-level
// identifiers of the package the file belongs to.
type importSet struct {
	pkg    *types.Package
	byPath map[string]string
	used   map[string]bool
}

func newImportSet(pkg *types.Package) *importSet {
	im := &importSet{
		pkg:    pkg,
		byPath: make(map[string]string),
		used:   make(map[string]bool),
	}
	// Always present, in this order, so the common names stay unaliased.
	im.name(catalog.PackagePath, "routegen")
	im.name("net/http", "http")
	return im
}

// fork returns a copy whose additions do not affect im.
func (im *importSet) fork() *importSet {
	return &importSet{pkg: im.pkg, byPath: maps.Clone(im.byPath), used: maps.Clone(im.used)}
}

// name returns the local name for the package at importPath, whose
// declared name is pkgName.
func (im *importSet) name(importPath, pkgName string) string {
	if n, ok := im.byPath[importPath]; ok {
		return n
	}
	n := pkgName
	for i := 2; im.taken(n); i++ {
		n = pkgName + strconv.Itoa(i)
	}
	im.byPath[importPath] = n
	im.used[n] = true
	return n
}

func (im *importSet) taken(n string) bool {
	return im.used[n] || im.pkg.Scope().Lookup(n) != nil || types.Universe.Lookup(n) != nil
}

// qualifier is a types.Qualifier for the generated file.
func (im *importSet) qualifier(p *types.Package) string {
	if p == nil || p == im.pkg {
		return ""
	}
	return im.name(p.Path(), p.Name())
}

func (im *importSet) typeString(t types.Type) string {
	return types.TypeString(t, im.qualifier)
}

// specs returns the import specs, sorted by path.
func (im *importSet) specs() []string {
	paths := make([]string, 0, len(im.byPath))
	for p := range im.byPath {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	specs := make([]string, len(paths))
	for i, p := range paths {
		n := im.byPath[p]
		if n == path.Base(p) {
			specs[i] = strconv.Quote(p)
		} else {
			specs[i] = n + " " + strconv.Quote(p)
		}
	}
	return specs
}

// nameable reports why t cannot be spelled in a file of pkg, or "" when it
// can: the type, or something it is built from, is local to a function, a
// type parameter, unexported in another package, or in an internal package
// pkg may not import.
func nameable(t types.Type, pkg *types.Package) string {
	return (&namer{pkg: pkg, seen: make(map[types.Type]bool)}).check(t)
}

type namer struct {
	pkg  *types.Package
	seen map[types.Type]bool
}

func (n *namer) check(t types.Type) string {
	if t == nil || n.seen[t] {
		return ""
	}
	n.seen[t] = true

	switch t := t.(type) {
	case *types.Basic:
		return ""
	case *types.Alias:
		return n.check(types.Unalias(t))
	case *types.TypeParam:
		return fmt.Sprintf("type parameter %s", t.Obj().Name())
	case *types.Named:
		obj := t.Obj()
		if obj.Pkg() != nil {
			if obj.Parent() != nil && obj.Parent() != obj.Pkg().Scope() {
				return fmt.Sprintf("%s is declared inside a function", obj.Name())
			}
			if obj.Pkg() != n.pkg {
				if !obj.Exported() {
					return fmt.Sprintf("%s.%s is unexported", obj.Pkg().Path(), obj.Name())
				}
				if !canImport(n.pkg.Path(), obj.Pkg().Path()) {
					return fmt.Sprintf("%s cannot be imported from %s", obj.Pkg().Path(), n.pkg.Path())
				}
			}
		}
		args := t.TypeArgs()
		for i := range args.Len() {
			if why := n.check(args.At(i)); why != "" {
				return why
			}
		}
		return ""
	case *types.Pointer:
		return n.check(t.Elem())
	case *types.Slice:
		return n.check(t.Elem())
	case *types.Array:
		return n.check(t.Elem())
	case *types.Chan:
		return n.check(t.Elem())
	case *types.Map:
		if why := n.check(t.Key()); why != "" {
			return why
		}
		return n.check(t.Elem())
	case *types.Signature:
		if why := n.tuple(t.Params()); why != "" {
			return why
		}
		return n.tuple(t.Results())
	case *types.Tuple:
		return n.tuple(t)
	case *types.Struct:
		for i := range t.NumFields() {
			f := t.Field(i)
			if !f.Exported() && f.Pkg() != n.pkg {
				return fmt.Sprintf("struct field %s is unexported in %s", f.Name(), f.Pkg().Path())
			}
			if why := n.check(f.Type()); why != "" {
				return why
			}
		}
		return ""
	case *types.Interface:
		for i := range t.NumExplicitMethods() {
			m := t.ExplicitMethod(i)
			if !m.Exported() && m.Pkg() != n.pkg {
				return fmt.Sprintf("interface method %s is unexported in %s", m.Name(), m.Pkg().Path())
			}
			if why := n.check(m.Type()); why != "" {
				return why
			}
		}
		for i := range t.NumEmbeddeds() {
			if why := n.check(t.EmbeddedType(i)); why != "" {
				return why
			}
		}
		return ""
	case *types.Union:
		for i := range t.Len() {
			if why := n.check(t.Term(i).Type()); why != "" {
				return why
			}
		}
		return ""
	}
	return fmt.Sprintf("unsupported type %s", t)
}

func (n *namer) tuple(t *types.Tuple) string {
	for i := range t.Len() {
		if why := n.check(t.At(i).Type()); why != "" {
			return why
		}
	}
	return ""
}

// canImport applies the internal package rule: a path containing an
// "internal" element is importable only from within the tree rooted at
// internal's parent.
func canImport(from, to string) bool {
	i := strings.LastIndex(to, "/internal/")
	switch {
	case i >= 0:
	case strings.HasSuffix(to, "/internal"):
		i = len(to) - len("/internal")
	case to == "internal" || strings.HasPrefix(to, "internal/"):
		return false
	default:
		return true
	}
	parent := to[:i]
	return from == parent || strings.HasPrefix(from, parent+"/")
}
