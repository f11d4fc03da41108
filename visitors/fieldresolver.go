package visitors

import (
	"sort"
	"strings"

	"github.com/samber/lo"
	"golang.org/x/sync/singleflight"

	"github.com/Tangerg/lucenequery/ast"
)

// FieldMap is a case-insensitive alias-to-canonical-field mapping that
// can be converted to a hierarchical FieldResolverFunc: given input
// "a.b.c", it tries the longest dotted prefix first, so if "a.b" maps to
// "x.y" the result is "x.y.c".
type FieldMap struct {
	entries map[string]string
}

// NewFieldMap creates an empty field map.
func NewFieldMap() *FieldMap {
	return &FieldMap{entries: make(map[string]string)}
}

// Add registers an alias -> canonical mapping. Lookups are
// case-insensitive.
func (m *FieldMap) Add(alias, canonical string) *FieldMap {
	m.entries[strings.ToLower(alias)] = canonical
	return m
}

// Resolve implements the hierarchical alias lookup described on FieldMap.
func (m *FieldMap) Resolve(field string) (resolved string, ok bool, err error) {
	if canonical, found := m.entries[strings.ToLower(field)]; found {
		return canonical, true, nil
	}
	parts := strings.Split(field, ".")
	for i := len(parts) - 1; i > 0; i-- {
		prefix := strings.Join(parts[:i], ".")
		if canonical, found := m.entries[strings.ToLower(prefix)]; found {
			suffix := strings.Join(parts[i:], ".")
			return canonical + "." + suffix, true, nil
		}
	}
	return "", false, nil
}

// Resolver adapts Resolve to the ast.FieldResolverFunc signature expected
// by FieldResolver.
func (m *FieldMap) Resolver() ast.FieldResolverFunc {
	return m.Resolve
}

// FieldResolver is the built-in visitor that rewrites the Field of
// FieldQueryNode, ExistsNode, MissingNode and RangeNode, consulting first
// the per-call resolver on the Context and falling back to the resolver
// captured at construction time. A GroupNode's Field is left as written.
type FieldResolver struct {
	captured   ast.FieldResolverFunc
	unresolved map[string]struct{}

	// sf collapses concurrent in-flight lookups of the same field name
	// (from traversals of distinct documents sharing this FieldResolver)
	// into a single call to the captured resolver. Results are not
	// cached: lookups made one after another, as within one traversal,
	// each call the resolver.
	sf singleflight.Group
}

// fieldResolution is the value shape threaded through singleflight.Group,
// since Do only returns a single interface{} result.
type fieldResolution struct {
	resolved string
	matched  bool
}

// NewFieldResolver creates a FieldResolver with the given captured
// resolver (may be nil if only a context resolver will ever be used).
func NewFieldResolver(captured ast.FieldResolverFunc) *FieldResolver {
	return &FieldResolver{captured: captured}
}

// UnresolvedFields returns, in sorted order, every field name that
// neither the context resolver nor the captured resolver could resolve.
func (f *FieldResolver) UnresolvedFields() []string {
	names := lo.Keys(f.unresolved)
	sort.Strings(names)
	return names
}

// Visitor returns an ast.Visitor bundle driving field resolution;
// unrelated node variants fall through to the default traversal.
func (f *FieldResolver) Visitor() *ast.Visitor {
	v := &ast.Visitor{}
	v.FieldQuery = func(ctx *ast.Context, n *ast.FieldQueryNode) (ast.Expr, error) {
		f.resolve(ctx, n, n.Field(), n.SetField)
		return ast.DefaultFieldQuery(v, ctx, n)
	}
	v.Range = func(ctx *ast.Context, n *ast.RangeNode) (ast.Expr, error) {
		if n.HasField() {
			f.resolve(ctx, n, n.Field(), n.SetField)
		}
		return n, nil
	}
	v.Exists = func(ctx *ast.Context, n *ast.ExistsNode) (ast.Expr, error) {
		f.resolve(ctx, n, n.Field(), n.SetField)
		return n, nil
	}
	v.Missing = func(ctx *ast.Context, n *ast.MissingNode) (ast.Expr, error) {
		f.resolve(ctx, n, n.Field(), n.SetField)
		return n, nil
	}
	return v
}

func (f *FieldResolver) resolve(ctx *ast.Context, node ast.Expr, current string, setField func(string)) {
	if cr, ok := ctx.ContextFieldResolver(); ok {
		resolved, matched, err := cr(current)
		if err != nil {
			recordResolverError(ctx, current, err)
		} else if matched {
			f.apply(ctx, node, current, resolved, setField)
			return
		}
	}
	if f.captured != nil {
		v, err, _ := f.sf.Do(current, func() (any, error) {
			resolved, matched, err := f.captured(current)
			return fieldResolution{resolved: resolved, matched: matched}, err
		})
		if err != nil {
			recordResolverError(ctx, current, err)
		} else if res := v.(fieldResolution); res.matched {
			f.apply(ctx, node, current, res.resolved, setField)
			return
		}
	}
	f.markUnresolved(current)
}

func (f *FieldResolver) apply(ctx *ast.Context, node ast.Expr, original, resolved string, setField func(string)) {
	if resolved != original {
		ctx.StashOriginalField(node, original)
		setField(resolved)
	}
}

func (f *FieldResolver) markUnresolved(field string) {
	if f.unresolved == nil {
		f.unresolved = make(map[string]struct{})
	}
	f.unresolved[field] = struct{}{}
}

// recordResolverError converts a resolver callback failure into a
// validation error naming the offending field, stashed on the
// ValidationResult installed in ctx (if any). Resolver failures are
// routed through the validation channel rather than aborting the
// traversal.
func recordResolverError(ctx *ast.Context, field string, err error) {
	v, ok := ctx.GetValue(ast.KeyValidationResult)
	if !ok {
		return
	}
	result, ok := v.(*ValidationResult)
	if !ok {
		return
	}
	result.addError("resolver error for field '" + field + "': " + err.Error())
}
