package visitors

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/Tangerg/lucenequery/ast"
	"github.com/Tangerg/lucenequery/parser"
	"github.com/Tangerg/lucenequery/token"
)

// maxIncludeDepth bounds how many nested @include expansions a single
// traversal will follow before it gives up and reports an error, guarding
// against runaway or mutually-referential saved queries even when no
// direct cycle is detectable from the stack alone.
const maxIncludeDepth = 50

// IncludeVisitor expands "@include:name" field queries into the parsed
// subtree of the named saved query, recursively, using the resolver and
// skip-predicate installed on the Context. Every non-empty expansion is
// wrapped in a GroupNode so the inlined subtree's precedence can never
// bleed into its surroundings; an include whose text parses to an empty
// document expands to a MatchAllNode.
// Include cycles, depth-cap overruns, resolver failures, and embedded
// parse failures are all recorded as diagnostics rather than propagated
// as a Go error: the offending subtree is left unexpanded and the rest
// of the traversal proceeds normally.
type IncludeVisitor struct {
	referenced  map[string]struct{}
	unresolved  map[string]struct{}
	diagnostics []token.Diagnostic
	logger      *slog.Logger
}

// NewIncludeVisitor creates an IncludeVisitor.
func NewIncludeVisitor() *IncludeVisitor {
	return &IncludeVisitor{}
}

// SetLogger installs a structured logger; expansions are reported at
// Debug only, since failures are already surfaced through Diagnostics.
func (iv *IncludeVisitor) SetLogger(l *slog.Logger) { iv.logger = l }

// Diagnostics returns every circular-include, depth-cap, resolver, or
// embedded-parse diagnostic recorded during the traversal.
func (iv *IncludeVisitor) Diagnostics() []token.Diagnostic {
	return iv.diagnostics
}

func (iv *IncludeVisitor) addDiagnostic(message string, offset int) {
	iv.diagnostics = append(iv.diagnostics, token.NewDiagnostic(message, offset, 1))
}

// ReferencedIncludes returns, sorted, every include name encountered
// during the traversal, whether or not it was ultimately resolved.
func (iv *IncludeVisitor) ReferencedIncludes() []string {
	names := lo.Keys(iv.referenced)
	sort.Strings(names)
	return names
}

// UnresolvedIncludes returns, sorted, every include name the resolver
// could not find (distinct from one explicitly skipped).
func (iv *IncludeVisitor) UnresolvedIncludes() []string {
	names := lo.Keys(iv.unresolved)
	sort.Strings(names)
	return names
}

// Visitor returns an ast.Visitor bundle that expands @include field
// queries in place; every other node variant falls through to the
// default recursive traversal so nested includes anywhere in the tree
// are found.
func (iv *IncludeVisitor) Visitor() *ast.Visitor {
	v := &ast.Visitor{}
	v.FieldQuery = func(ctx *ast.Context, n *ast.FieldQueryNode) (ast.Expr, error) {
		if !strings.EqualFold(n.Field(), "@include") {
			return ast.DefaultFieldQuery(v, ctx, n)
		}
		return iv.expand(v, ctx, n)
	}
	return v
}

func (iv *IncludeVisitor) expand(v *ast.Visitor, ctx *ast.Context, n *ast.FieldQueryNode) (ast.Expr, error) {
	name := includeName(n.Query)
	iv.markReferenced(name)

	if ctx.ShouldSkipInclude(name) {
		return n, nil
	}
	if ctx.HasInclude(name) {
		iv.addDiagnostic("circular include detected for '"+name+"'", n.SourceOffset)
		return n, nil
	}
	if ctx.IncludeDepth() >= maxIncludeDepth {
		iv.addDiagnostic("max include depth exceeded while expanding '"+name+"'", n.SourceOffset)
		return n, nil
	}

	resolver, ok := ctx.IncludeResolver()
	if !ok {
		iv.markUnresolved(name)
		return n, nil
	}
	text, found, err := resolver(name)
	if err != nil {
		iv.addDiagnostic("resolving include '"+name+"': "+err.Error(), n.SourceOffset)
		return n, nil
	}
	if !found {
		iv.markUnresolved(name)
		return n, nil
	}

	result := parser.Parse(text)
	if !result.Success {
		iv.addDiagnostic("invalid query in include '"+name+"'", n.SourceOffset)
		for _, e := range result.Errors {
			iv.diagnostics = append(iv.diagnostics, e)
		}
		return n, nil
	}
	if result.Document.Query == nil {
		return &ast.MatchAllNode{SourceOffset: n.SourceOffset}, nil
	}

	if iv.logger != nil {
		iv.logger.Debug("expanding include",
			slog.String("name", name),
			slog.Int("depth", ctx.IncludeDepth()))
	}

	ctx.PushInclude(name)
	expanded, err := ast.Apply(v, ctx, result.Document.Query)
	ctx.PopInclude()
	if err != nil {
		return n, err
	}

	return &ast.GroupNode{SourceOffset: n.SourceOffset, Inner: expanded}, nil
}

func (iv *IncludeVisitor) markReferenced(name string) {
	if iv.referenced == nil {
		iv.referenced = make(map[string]struct{})
	}
	iv.referenced[name] = struct{}{}
}

func (iv *IncludeVisitor) markUnresolved(name string) {
	if iv.unresolved == nil {
		iv.unresolved = make(map[string]struct{})
	}
	iv.unresolved[name] = struct{}{}
}

// includeName extracts the referenced name from the term or phrase node
// parsed as the value of "@include:".
func includeName(query ast.Expr) string {
	switch n := query.(type) {
	case *ast.TermNode:
		return n.UnescapedTerm()
	case *ast.PhraseNode:
		return n.UnescapedPhrase()
	default:
		return ""
	}
}
