// Package visitors implements the library's built-in visitors: field
// resolution, include expansion, date-math evaluation, validation, and
// query-string rendering. Each is a small stateful type that accumulates
// its findings or output and hands out an ast.Visitor handler bundle.
package visitors

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Tangerg/lucenequery/ast"
)

// QueryStringBuilder accumulates characters into a buffer and renders
// the AST it walks back to Lucene query text. For any AST A produced by
// parsing input s, parsing Build's output again yields an AST
// structurally equal to A, modulo whitespace normalization.
type QueryStringBuilder struct {
	buffer strings.Builder
	err    error
	plain  bool // drop boost/fuzzy/slop decorations when true
}

// NewQueryStringBuilder creates a builder in the default, fully faithful
// rendering mode.
func NewQueryStringBuilder() *QueryStringBuilder {
	return &QueryStringBuilder{}
}

// NewPlainQueryStringBuilder creates a builder that renders the bare
// query shape, omitting boost/fuzzy/slop decorations, useful for a
// logging sink that wants to group on query shape. The round-trip
// contract is defined against the default mode only.
func NewPlainQueryStringBuilder() *QueryStringBuilder {
	return &QueryStringBuilder{plain: true}
}

// Visitor returns an ast.Visitor bundle that drives this builder. Each
// handler renders its node's whole subtree through the builder's own
// recursion and does not fall through to the default traversal;
// QueryStringBuilder is a pure observer and never replaces a node.
func (b *QueryStringBuilder) Visitor() *ast.Visitor {
	return &ast.Visitor{
		Document:   func(ctx *ast.Context, n *ast.QueryDocument) (ast.Expr, error) { b.visitDocument(n); return n, b.err },
		Group:      func(ctx *ast.Context, n *ast.GroupNode) (ast.Expr, error) { b.visitGroup(n); return n, b.err },
		Boolean:    func(ctx *ast.Context, n *ast.BooleanQueryNode) (ast.Expr, error) { b.visitBoolean(n); return n, b.err },
		Not:        func(ctx *ast.Context, n *ast.NotNode) (ast.Expr, error) { b.visitNot(n); return n, b.err },
		FieldQuery: func(ctx *ast.Context, n *ast.FieldQueryNode) (ast.Expr, error) { b.visitFieldQuery(n); return n, b.err },
		Term:       func(ctx *ast.Context, n *ast.TermNode) (ast.Expr, error) { b.visitTerm(n); return n, b.err },
		Phrase:     func(ctx *ast.Context, n *ast.PhraseNode) (ast.Expr, error) { b.visitPhrase(n); return n, b.err },
		Regex:      func(ctx *ast.Context, n *ast.RegexNode) (ast.Expr, error) { b.visitRegex(n); return n, b.err },
		Range:      func(ctx *ast.Context, n *ast.RangeNode) (ast.Expr, error) { b.visitRange(n); return n, b.err },
		MultiTerm:  func(ctx *ast.Context, n *ast.MultiTermNode) (ast.Expr, error) { b.visitMultiTerm(n); return n, b.err },
		Exists:     func(ctx *ast.Context, n *ast.ExistsNode) (ast.Expr, error) { b.visitExists(n); return n, b.err },
		Missing:    func(ctx *ast.Context, n *ast.MissingNode) (ast.Expr, error) { b.visitMissing(n); return n, b.err },
		MatchAll:   func(ctx *ast.Context, n *ast.MatchAllNode) (ast.Expr, error) { b.visitMatchAll(n); return n, b.err },
	}
}

// Error returns the first error encountered while rendering, if any.
func (b *QueryStringBuilder) Error() error { return b.err }

// String returns the accumulated rendering.
func (b *QueryStringBuilder) String() string { return b.buffer.String() }

// Build renders expr and returns the result, the way the public API is
// used: lucenequery.Apply(b.Visitor(), ctx, result.Document) followed by
// b.String().
func Build(expr ast.Expr) (string, error) {
	b := NewQueryStringBuilder()
	b.visit(expr)
	return b.buffer.String(), b.err
}

func (b *QueryStringBuilder) visit(expr ast.Expr) {
	if b.err != nil {
		return
	}
	switch n := expr.(type) {
	case *ast.QueryDocument:
		b.visitDocument(n)
	case *ast.GroupNode:
		b.visitGroup(n)
	case *ast.BooleanQueryNode:
		b.visitBoolean(n)
	case *ast.NotNode:
		b.visitNot(n)
	case *ast.FieldQueryNode:
		b.visitFieldQuery(n)
	case *ast.TermNode:
		b.visitTerm(n)
	case *ast.PhraseNode:
		b.visitPhrase(n)
	case *ast.RegexNode:
		b.visitRegex(n)
	case *ast.RangeNode:
		b.visitRange(n)
	case *ast.MultiTermNode:
		b.visitMultiTerm(n)
	case *ast.ExistsNode:
		b.visitExists(n)
	case *ast.MissingNode:
		b.visitMissing(n)
	case *ast.MatchAllNode:
		b.visitMatchAll(n)
	case nil:
	default:
		b.err = fmt.Errorf("querystringbuilder: unknown node type %T", expr)
	}
}

func (b *QueryStringBuilder) visitDocument(n *ast.QueryDocument) {
	if n.Query == nil {
		return
	}
	b.visit(n.Query)
}

func (b *QueryStringBuilder) visitGroup(n *ast.GroupNode) {
	b.writePrefix(n.Prefix)
	if n.Field != "" {
		b.buffer.WriteString(n.Field)
		b.buffer.WriteString(":")
	}
	b.buffer.WriteString("(")
	b.visit(n.Inner)
	b.buffer.WriteString(")")
	b.writeBoost(n.Boost)
}

func (b *QueryStringBuilder) visitBoolean(n *ast.BooleanQueryNode) {
	b.visit(n.Left)
	b.buffer.WriteString(" ")
	b.buffer.WriteString(n.Op.String())
	b.buffer.WriteString(" ")
	b.visit(n.Right)
}

func (b *QueryStringBuilder) visitNot(n *ast.NotNode) {
	b.buffer.WriteString("NOT ")
	b.visit(n.Inner)
}

func (b *QueryStringBuilder) visitFieldQuery(n *ast.FieldQueryNode) {
	b.writePrefix(n.Prefix)
	b.buffer.WriteString(n.Field())
	b.buffer.WriteString(":")
	b.visit(n.Query)
	b.writeBoost(n.Boost)
}

func (b *QueryStringBuilder) visitTerm(n *ast.TermNode) {
	b.writePrefix(n.Prefix)
	b.buffer.WriteString(ast.EscapeTerm(n.UnescapedTerm()))
	b.writeBoost(n.Boost)
	b.writeProximity(n.Proximity)
}

func (b *QueryStringBuilder) visitPhrase(n *ast.PhraseNode) {
	b.buffer.WriteString("\"")
	b.buffer.WriteString(ast.EscapePhrase(n.UnescapedPhrase()))
	b.buffer.WriteString("\"")
	b.writeProximity(n.Proximity)
}

func (b *QueryStringBuilder) visitRegex(n *ast.RegexNode) {
	b.buffer.WriteString("/")
	b.buffer.WriteString(n.Pattern())
	b.buffer.WriteString("/")
}

func (b *QueryStringBuilder) visitRange(n *ast.RangeNode) {
	if n.Operator != ast.NoComparator {
		if n.HasField() {
			b.buffer.WriteString(n.Field())
			b.buffer.WriteString(":")
		}
		b.buffer.WriteString(n.Operator.String())
		if n.Min != "" {
			b.buffer.WriteString(n.Min)
		} else {
			b.buffer.WriteString(n.Max)
		}
		return
	}

	if n.HasField() {
		b.buffer.WriteString(n.Field())
		b.buffer.WriteString(":")
	}
	if n.MinInclusive {
		b.buffer.WriteString("[")
	} else {
		b.buffer.WriteString("{")
	}
	b.writeBound(n.Min)
	b.buffer.WriteString(" TO ")
	b.writeBound(n.Max)
	if n.MaxInclusive {
		b.buffer.WriteString("]")
	} else {
		b.buffer.WriteString("}")
	}
}

func (b *QueryStringBuilder) writeBound(v string) {
	if v == "" {
		b.buffer.WriteString("*")
		return
	}
	b.buffer.WriteString(v)
}

func (b *QueryStringBuilder) visitMultiTerm(n *ast.MultiTermNode) {
	b.buffer.WriteString("(")
	for i, t := range n.Terms {
		if i > 0 {
			b.buffer.WriteString(" ")
		}
		b.visitTerm(t)
	}
	b.buffer.WriteString(")")
}

func (b *QueryStringBuilder) visitExists(n *ast.ExistsNode) {
	b.buffer.WriteString("_exists_:")
	b.buffer.WriteString(n.Field())
}

func (b *QueryStringBuilder) visitMissing(n *ast.MissingNode) {
	b.buffer.WriteString("_missing_:")
	b.buffer.WriteString(n.Field())
}

func (b *QueryStringBuilder) visitMatchAll(n *ast.MatchAllNode) {
	b.buffer.WriteString("*:*")
}

func (b *QueryStringBuilder) writePrefix(p ast.Prefix) {
	switch p {
	case ast.PrefixPlus:
		b.buffer.WriteString("+")
	case ast.PrefixMinus:
		b.buffer.WriteString("-")
	}
}

func (b *QueryStringBuilder) writeBoost(boost *float64) {
	if b.plain || boost == nil {
		return
	}
	b.buffer.WriteString("^")
	b.buffer.WriteString(strconv.FormatFloat(*boost, 'g', -1, 64))
}

func (b *QueryStringBuilder) writeProximity(slop *int) {
	if b.plain || slop == nil {
		return
	}
	b.buffer.WriteString("~")
	b.buffer.WriteString(strconv.Itoa(*slop))
}
