// Package lucenequery parses Lucene-style query strings into a typed
// abstract syntax tree, exposes an extensible visitor framework for
// traversal and transformation, and reconstructs query strings from the
// AST. It is intended to be embedded into applications that accept
// human-authored query text and translate it into a native query
// representation for some downstream search or filter engine.
//
// The core is three tightly coupled subsystems: a single-pass lexer
// (package lexer), a precedence-driven recursive parser with error
// recovery (package parser), and a polymorphic visitor framework over
// the closed AST (packages ast and visitors). Executing queries,
// maintaining an inverted index, and scoring documents are all out of
// scope; this module only produces and transforms the AST.
package lucenequery

import (
	"github.com/google/uuid"

	"github.com/Tangerg/lucenequery/ast"
	"github.com/Tangerg/lucenequery/parser"
	"github.com/Tangerg/lucenequery/token"
)

// Re-exported AST variants, so callers of this package need not import
// the ast package directly for the common case.
type (
	Expr             = ast.Expr
	QueryDocument    = ast.QueryDocument
	GroupNode        = ast.GroupNode
	BooleanQueryNode = ast.BooleanQueryNode
	NotNode          = ast.NotNode
	FieldQueryNode   = ast.FieldQueryNode
	TermNode         = ast.TermNode
	PhraseNode       = ast.PhraseNode
	RegexNode        = ast.RegexNode
	RangeNode        = ast.RangeNode
	MultiTermNode    = ast.MultiTermNode
	ExistsNode       = ast.ExistsNode
	MissingNode      = ast.MissingNode
	MatchAllNode     = ast.MatchAllNode
	Visitor          = ast.Visitor
	Context          = ast.Context
	ChainedVisitor   = ast.ChainedVisitor
	Diagnostic       = token.Diagnostic
)

// NewContext creates a fresh VisitorContext for a single traversal.
func NewContext() *Context { return ast.NewContext() }

// NewChainedVisitor creates an empty visitor chain.
func NewChainedVisitor() *ChainedVisitor { return ast.NewChainedVisitor() }

// ParseResult is the outcome of Parse: the always-populated, best-effort
// document, a success flag, and the diagnostics accumulated along the
// way. ID correlates this run with diagnostics recorded later by a
// visitor chain sharing a Context stamped with its own CorrelationID.
type ParseResult struct {
	ID       uuid.UUID
	Document *QueryDocument
	Success  bool
	Errors   []Diagnostic
}

// Parse tokenizes and parses text into a ParseResult. It always returns;
// it never panics or returns an error for malformed input. Even when
// Success is false, Document is a best-effort, fully walkable partial
// AST.
func Parse(text string) *ParseResult {
	r := parser.Parse(text)
	return &ParseResult{ID: r.ID, Document: r.Document, Success: r.Success, Errors: r.Errors}
}

// Apply dispatches expr to v's handler for its runtime variant, falling
// back to the default recursive-descent behavior where v left a handler
// nil. This is the entry point consumers use to run any single visitor,
// including the built-in ones in package visitors, over a parsed
// document.
func Apply(v *Visitor, ctx *Context, expr Expr) (Expr, error) {
	return ast.Apply(v, ctx, expr)
}

// Walk performs a read-only, depth-first traversal of expr, invoking fn
// once per node in parent-before-children order.
func Walk(expr Expr, fn func(Expr)) {
	ast.Walk(expr, fn)
}
