// Package parser implements the recursive-descent parser that turns a
// Lucene-style query string into a typed AST, with error recovery so
// that malformed input still yields a usable partial AST plus a list of
// diagnostics.
package parser

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/Tangerg/lucenequery/ast"
	"github.com/Tangerg/lucenequery/lexer"
	"github.com/Tangerg/lucenequery/token"
)

// Result is the outcome of Parse: a best-effort document (never nil for
// non-empty input, even when Success is false) plus any diagnostics. ID
// stamps the run with a correlation ID so a caller can tie these
// diagnostics back to the same parse when it later flows through a chain
// of visitors whose Context carries its own correlation ID.
type Result struct {
	ID       uuid.UUID
	Document *ast.QueryDocument
	Success  bool
	Errors   []token.Diagnostic
}

// Parse tokenizes and parses text, always returning a Result. It never
// panics or returns an error for malformed input.
func Parse(text string) *Result {
	p := newParser(text)
	doc := p.parseDocument()
	return &Result{ID: uuid.New(), Document: doc, Success: len(p.errors) == 0, Errors: p.errors}
}

type parser struct {
	source string
	tokens []token.Token
	pos    int
	errors []token.Diagnostic
}

func newParser(source string) *parser {
	lx := lexer.New(source)
	toks, diags := lx.Tokens()
	filtered := make([]token.Token, 0, len(toks))
	for _, t := range toks {
		if t.Kind != token.WS {
			filtered = append(filtered, t)
		}
	}
	if len(filtered) == 0 || filtered[len(filtered)-1].Kind != token.EOF {
		filtered = append(filtered, token.New(token.EOF, len(source), ""))
	}
	return &parser{source: source, tokens: filtered, errors: diags}
}

func (p *parser) cur() token.Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos]
}

func (p *parser) peek(offset int) token.Token {
	idx := p.pos + offset
	if idx >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[idx]
}

func (p *parser) advance() token.Token {
	t := p.cur()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return t
}

func (p *parser) addError(message string, offset, length int) {
	if length < 1 {
		length = 1
	}
	p.errors = append(p.errors, token.NewDiagnostic(message, offset, length))
}

func isPrimaryStart(k token.Kind) bool {
	switch k {
	case token.IDENT, token.PHRASE, token.REGEX, token.NUMBER,
		token.STAR, token.QMARK,
		token.LPAREN, token.LBRACK, token.LBRACE,
		token.GT, token.GE, token.LT, token.LE,
		token.PLUS, token.MINUS, token.NOT, token.BANG:
		return true
	default:
		return false
	}
}

// parseDocument implements Document := OrExpr? EOF, plus recovery for
// trailing garbage that OrExpr did not consume.
func (p *parser) parseDocument() *ast.QueryDocument {
	if p.cur().Kind == token.EOF {
		return &ast.QueryDocument{}
	}

	expr := p.parseOrExpr()

	for p.cur().Kind != token.EOF {
		t := p.cur()
		if t.Kind == token.ERROR {
			p.advance()
			continue
		}
		if isPrimaryStart(t.Kind) {
			p.addError("unexpected token '"+t.Text+"' after complete expression; treating as implicit AND", t.Offset, t.Length)
			right := p.parseAndExpr()
			expr = &ast.BooleanQueryNode{Left: expr, Right: right, Op: ast.OpAnd}
			continue
		}
		p.addError("unexpected token '"+t.Text+"' found after complete expression", t.Offset, t.Length)
		p.advance()
	}

	return &ast.QueryDocument{Query: expr}
}

// parseOrExpr implements OrExpr := AndExpr ( (OR | PIPEPIPE) AndExpr )*.
// A dangling operator at EOF keeps the left side as the expression and
// records a diagnostic instead of synthesizing an empty right operand.
func (p *parser) parseOrExpr() ast.Expr {
	left := p.parseAndExpr()
	for p.cur().Kind == token.OR || p.cur().Kind == token.PIPEPIPE {
		opTok := p.advance()
		if p.cur().Kind == token.EOF {
			p.addError("missing operand after '"+opTok.Text+"'", opTok.Offset, opTok.Length)
			return left
		}
		right := p.parseAndExpr()
		left = &ast.BooleanQueryNode{Left: left, Right: right, Op: ast.OpOr}
	}
	return left
}

// parseAndExpr implements AndExpr := UnaryExpr ( (AND | implicit) UnaryExpr )*.
func (p *parser) parseAndExpr() ast.Expr {
	left := p.parseUnaryExpr()
	for {
		switch {
		case p.cur().Kind == token.AND:
			opTok := p.advance()
			if p.cur().Kind == token.EOF {
				p.addError("missing operand after '"+opTok.Text+"'", opTok.Offset, opTok.Length)
				return left
			}
			right := p.parseUnaryExpr()
			left = &ast.BooleanQueryNode{Left: left, Right: right, Op: ast.OpAnd}
		case p.cur().Kind == token.ERROR:
			// Skip the invalid token; the primaries on either side of it
			// join by implicit AND as if it were whitespace.
			p.advance()
		case isPrimaryStart(p.cur().Kind):
			right := p.parseUnaryExpr()
			left = &ast.BooleanQueryNode{Left: left, Right: right, Op: ast.OpAnd}
		default:
			return left
		}
	}
}

// parseUnaryExpr implements UnaryExpr := (NOT | PLUS | MINUS)? PrimaryExpr Boost? Fuzzy?.
func (p *parser) parseUnaryExpr() ast.Expr {
	prefix := ast.NoPrefix
	var notOffset int
	switch p.cur().Kind {
	case token.NOT, token.BANG:
		notOffset = p.cur().Offset
		p.advance()
		prefix = ast.PrefixNot
	case token.PLUS:
		p.advance()
		prefix = ast.PrefixPlus
	case token.MINUS:
		p.advance()
		prefix = ast.PrefixMinus
	}

	if prefix != ast.NoPrefix && !isPrimaryStart(p.cur().Kind) {
		p.addError("expected expression after '"+prefixText(prefix)+"'", p.cur().Offset, p.cur().Length)
	}

	primary := p.parsePrimaryExpr()
	primary = p.parseBoostFuzzy(primary)

	switch prefix {
	case ast.PrefixNot:
		return &ast.NotNode{SourceOffset: notOffset, Inner: primary}
	case ast.PrefixPlus:
		setPrefix(primary, ast.PrefixPlus)
	case ast.PrefixMinus:
		setPrefix(primary, ast.PrefixMinus)
	}
	return primary
}

func prefixText(p ast.Prefix) string {
	switch p {
	case ast.PrefixPlus:
		return "+"
	case ast.PrefixMinus:
		return "-"
	case ast.PrefixNot:
		return "NOT"
	default:
		return ""
	}
}

// setPrefix attaches a +/- prefix marker to whichever node variant
// carries one.
func setPrefix(expr ast.Expr, prefix ast.Prefix) {
	switch n := expr.(type) {
	case *ast.GroupNode:
		n.Prefix = prefix
	case *ast.FieldQueryNode:
		n.Prefix = prefix
	case *ast.TermNode:
		n.Prefix = prefix
	}
}

// parseBoostFuzzy consumes an optional "^n" boost and/or "~n" fuzzy/slop
// suffix following a PrimaryExpr.
func (p *parser) parseBoostFuzzy(expr ast.Expr) ast.Expr {
	if p.cur().Kind == token.CARET {
		caretTok := p.advance()
		if p.cur().Kind == token.NUMBER {
			numTok := p.advance()
			if f, err := strconv.ParseFloat(numTok.Text, 64); err == nil {
				setBoost(expr, f)
			} else {
				p.addError("invalid boost value '"+numTok.Text+"'", numTok.Offset, numTok.Length)
			}
		} else {
			p.addError("expected number after '^'", caretTok.Offset, caretTok.Length)
		}
	}
	if p.cur().Kind == token.TILDE {
		p.advance()
		if p.cur().Kind == token.NUMBER {
			numTok := p.advance()
			if n, err := strconv.Atoi(numTok.Text); err == nil && n >= 0 {
				setProximity(expr, n)
			} else {
				p.addError("invalid fuzzy/proximity value '"+numTok.Text+"'", numTok.Offset, numTok.Length)
			}
		} else {
			// Bare "~" (default fuzziness) is treated as slop 2, the
			// common Lucene default, rather than an error.
			setProximity(expr, 2)
		}
	}
	return expr
}

func setBoost(expr ast.Expr, value float64) {
	switch n := expr.(type) {
	case *ast.GroupNode:
		n.Boost = &value
	case *ast.FieldQueryNode:
		n.Boost = &value
	case *ast.TermNode:
		n.Boost = &value
	}
}

func setProximity(expr ast.Expr, value int) {
	switch n := expr.(type) {
	case *ast.TermNode:
		n.Proximity = &value
	case *ast.PhraseNode:
		n.Proximity = &value
	}
}

// parsePrimaryExpr implements PrimaryExpr := Group | FieldExpr | Atom,
// plus the special recognitions for _exists_/_missing_/*:*/@include.
func (p *parser) parsePrimaryExpr() ast.Expr {
	t := p.cur()

	switch t.Kind {
	case token.LPAREN:
		return p.parseBareGroup()
	case token.IDENT:
		if p.peek(1).Kind == token.COLON {
			return p.parseFieldExpr()
		}
		return p.parseAtom()
	case token.STAR:
		if p.peek(1).Kind == token.COLON && p.peek(2).Kind == token.STAR {
			offset := t.Offset
			p.advance()
			p.advance()
			p.advance()
			return &ast.MatchAllNode{SourceOffset: offset}
		}
		return p.parseAtom()
	case token.LBRACK, token.LBRACE:
		return p.parseRange()
	case token.GT, token.GE, token.LT, token.LE:
		return p.parseShortRange()
	case token.PHRASE, token.REGEX, token.NUMBER, token.QMARK:
		return p.parseAtom()
	case token.EOF:
		return ast.NewSyntheticTermNode(t.Offset, "")
	default:
		p.addError("unexpected token '"+t.Text+"'", t.Offset, t.Length)
		p.advance()
		return ast.NewSyntheticTermNode(t.Offset, "")
	}
}

// parseAtom implements Atom := Phrase | Regex | Term | MatchAll.
func (p *parser) parseAtom() ast.Expr {
	t := p.advance()
	switch t.Kind {
	case token.PHRASE:
		return p.newPhraseFromToken(t)
	case token.REGEX:
		return p.newRegexFromToken(t)
	case token.NUMBER, token.IDENT, token.STAR, token.QMARK:
		return p.newTermFromToken(t)
	default:
		p.addError("expected a term, phrase, or regex, found '"+t.Text+"'", t.Offset, t.Length)
		return ast.NewSyntheticTermNode(t.Offset, "")
	}
}

func (p *parser) newPhraseFromToken(t token.Token) *ast.PhraseNode {
	// Strip the surrounding quotes; an unterminated phrase may be missing
	// the closing quote, in which case only the leading quote is stripped.
	start := t.Offset + 1
	end := t.Offset + t.Length
	if t.Length >= 2 && t.Text[len(t.Text)-1] == '"' {
		end--
	}
	if end < start {
		end = start
	}
	return ast.NewPhraseNode(t.Offset, p.source, start, end-start)
}

func (p *parser) newRegexFromToken(t token.Token) *ast.RegexNode {
	start := t.Offset + 1
	end := t.Offset + t.Length
	if t.Length >= 2 && t.Text[len(t.Text)-1] == '/' {
		end--
	}
	if end < start {
		end = start
	}
	return ast.NewRegexNode(t.Offset, p.source, start, end-start)
}

// newTermFromToken builds a TermNode from t, then greedily folds in a
// trailing date-math "||..." continuation that lexes as separate tokens
// immediately adjacent to it (the lexer's PIPEPIPE-after-date-like-
// identifier rule keeps "||" out of the OR operator in that position).
func (p *parser) newTermFromToken(t token.Token) *ast.TermNode {
	end := p.foldDateMathEnd(t.End())
	return ast.NewTermNode(t.Offset, p.source, t.Offset, end-t.Offset)
}

// foldDateMathEnd consumes any "||"-led run of adjacent date-math
// operation tokens starting exactly at byte offset end, returning the new
// end offset. Adjacency is required so an OR-like "||" separated by
// whitespace is never swallowed into a term.
func (p *parser) foldDateMathEnd(end int) int {
	for p.cur().Kind == token.PIPEPIPE && p.cur().Offset == end {
		end = p.cur().End()
		p.advance()
		for isDateMathContinuation(p.cur().Kind) && p.cur().Offset == end {
			end = p.cur().End()
			p.advance()
		}
	}
	return end
}

func isDateMathContinuation(k token.Kind) bool {
	switch k {
	case token.PLUS, token.MINUS, token.IDENT, token.NUMBER:
		return true
	default:
		return false
	}
}

// parseBareGroup parses '(' OrExpr ')' with no preceding field.
func (p *parser) parseBareGroup() *ast.GroupNode {
	lp := p.advance()
	if p.cur().Kind == token.RPAREN {
		p.addError("empty group", lp.Offset, 1)
		p.advance()
		return &ast.GroupNode{SourceOffset: lp.Offset, Inner: ast.NewSyntheticTermNode(lp.Offset, "")}
	}
	inner := p.parseOrExpr()
	p.expectClose(token.RPAREN, lp)
	return &ast.GroupNode{SourceOffset: lp.Offset, Inner: inner}
}

func (p *parser) expectClose(kind token.Kind, opener token.Token) {
	if p.cur().Kind == kind {
		p.advance()
		return
	}
	p.addError("unbalanced '"+opener.Text+"'", opener.Offset, opener.Length)
	// Recover: consume until the matching closer or a clear top-level
	// boundary (AND/OR/EOF).
	for {
		k := p.cur().Kind
		if k == kind {
			p.advance()
			return
		}
		if k == token.EOF || k == token.AND || k == token.OR {
			return
		}
		p.advance()
	}
}

// parseFieldExpr implements FieldExpr := IDENT ':' ( Group | Range | Atom | MultiTerm ),
// plus the _exists_/_missing_/@include special recognitions.
func (p *parser) parseFieldExpr() ast.Expr {
	fieldTok := p.advance()
	p.advance() // COLON

	fieldName := fieldTok.Text

	switch {
	case strings.EqualFold(fieldName, "_exists_"):
		return p.parseExistsMissing(fieldTok.Offset, true)
	case strings.EqualFold(fieldName, "_missing_"):
		return p.parseExistsMissing(fieldTok.Offset, false)
	case strings.EqualFold(fieldName, "@include"):
		return p.parseInclude(fieldTok.Offset)
	}

	switch p.cur().Kind {
	case token.LPAREN:
		return p.parseFieldParen(fieldTok.Offset, fieldTok, fieldName)
	case token.LBRACK, token.LBRACE:
		rng := p.parseRange()
		return ast.NewFieldQueryNode(fieldTok.Offset, p.source, fieldTok.Offset, fieldTok.Length, rng)
	case token.GT, token.GE, token.LT, token.LE:
		rng := p.parseShortRange()
		return ast.NewFieldQueryNode(fieldTok.Offset, p.source, fieldTok.Offset, fieldTok.Length, rng)
	case token.PHRASE, token.REGEX, token.NUMBER, token.IDENT, token.STAR, token.QMARK:
		atom := p.parseAtom()
		return ast.NewFieldQueryNode(fieldTok.Offset, p.source, fieldTok.Offset, fieldTok.Length, atom)
	default:
		// Missing value after "field:": substitute an empty term so the
		// field query survives in the partial AST.
		p.addError("expected value after ':'", p.cur().Offset, 1)
		synthetic := ast.NewSyntheticTermNode(p.cur().Offset, "")
		return ast.NewFieldQueryNode(fieldTok.Offset, p.source, fieldTok.Offset, fieldTok.Length, synthetic)
	}
}

func (p *parser) parseExistsMissing(offset int, exists bool) ast.Expr {
	if p.cur().Kind != token.IDENT {
		p.addError("expected field name", p.cur().Offset, 1)
		if exists {
			return &ast.ExistsNode{SourceOffset: offset}
		}
		return &ast.MissingNode{SourceOffset: offset}
	}
	t := p.advance()
	if exists {
		return ast.NewExistsNode(offset, p.source, t.Offset, t.Length)
	}
	return ast.NewMissingNode(offset, p.source, t.Offset, t.Length)
}

func (p *parser) parseInclude(offset int) ast.Expr {
	var name ast.Expr
	switch p.cur().Kind {
	case token.IDENT:
		t := p.advance()
		name = ast.NewTermNode(t.Offset, p.source, t.Offset, t.Length)
	case token.PHRASE:
		t := p.advance()
		name = p.newPhraseFromToken(t)
	default:
		p.addError("expected include name after '@include:'", p.cur().Offset, 1)
		name = ast.NewSyntheticTermNode(p.cur().Offset, "")
	}
	return ast.NewFieldQueryNode(offset, p.source, offset, len("@include"), name)
}

// parseFieldParen disambiguates "field:(expr)" (a boolean Group) from
// "field:(a b c)" (a MultiTerm expansion): if every element inside the
// parentheses is a bare term joined only by implicit AND (no explicit
// AND/OR keywords and no non-term atoms), it is represented as a
// MultiTermNode; otherwise as a GroupNode.
func (p *parser) parseFieldParen(offset int, fieldTok token.Token, fieldName string) ast.Expr {
	lp := p.advance()
	if p.cur().Kind == token.RPAREN {
		p.addError("empty group", lp.Offset, 1)
		p.advance()
		empty := &ast.MultiTermNode{SourceOffset: lp.Offset}
		return ast.NewFieldQueryNode(offset, p.source, fieldTok.Offset, fieldTok.Length, empty)
	}

	var terms []*ast.TermNode
	isMultiTerm := true
	var inner ast.Expr

	start := p.pos
	for p.cur().Kind != token.RPAREN && p.cur().Kind != token.EOF {
		if p.cur().Kind == token.IDENT || p.cur().Kind == token.NUMBER ||
			p.cur().Kind == token.STAR || p.cur().Kind == token.QMARK {
			t := p.advance()
			terms = append(terms, p.newTermFromToken(t))
			continue
		}
		isMultiTerm = false
		break
	}

	if isMultiTerm && p.cur().Kind == token.RPAREN {
		p.advance()
		multi := &ast.MultiTermNode{SourceOffset: lp.Offset, Terms: terms}
		return ast.NewFieldQueryNode(offset, p.source, fieldTok.Offset, fieldTok.Length, multi)
	}

	// Not a pure multi-term: rewind and parse as a general boolean group.
	p.pos = start
	inner = p.parseOrExpr()
	p.expectClose(token.RPAREN, lp)
	group := &ast.GroupNode{SourceOffset: lp.Offset, Inner: inner, Field: fieldName}
	return group
}

// parseRange implements Range := '[' RangeBound 'TO' RangeBound ']' with
// mixed brackets allowed. A field name written before the range is kept
// on the enclosing FieldQueryNode, not on the RangeNode itself; the
// RangeNode's own Field slot serves adapters that build range queries
// directly.
func (p *parser) parseRange() ast.Expr {
	opener := p.advance() // '[' or '{'
	minInclusive := opener.Kind == token.LBRACK

	minVal := p.parseRangeBound()
	if p.cur().Kind == token.TO {
		p.advance()
	} else {
		p.addError("expected 'TO' in range", p.cur().Offset, 1)
	}
	maxVal := p.parseRangeBound()

	maxInclusive := false
	if p.cur().Kind == token.RBRACK || p.cur().Kind == token.RBRACE {
		maxInclusive = p.cur().Kind == token.RBRACK
		p.advance()
	} else {
		p.addError("incomplete range", opener.Offset, opener.Length)
	}

	return &ast.RangeNode{
		SourceOffset: opener.Offset,
		Min:          minVal,
		Max:          maxVal,
		MinInclusive: minInclusive,
		MaxInclusive: maxInclusive,
	}
}

func (p *parser) parseRangeBound() string {
	switch p.cur().Kind {
	case token.STAR:
		p.advance()
		return "*"
	case token.PHRASE:
		t := p.advance()
		return ast.UnescapePhrase(stripQuotes(t.Text))
	case token.IDENT, token.NUMBER:
		t := p.advance()
		end := p.foldDateMathEnd(t.End())
		return p.source[t.Offset:end]
	default:
		p.addError("expected range bound", p.cur().Offset, 1)
		return ""
	}
}

func stripQuotes(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// parseShortRange implements the short-form ">n" / ">=n" / "<n" / "<=n".
// Exactly one bound is populated; it is inclusive iff the operator is
// ">=" or "<=".
func (p *parser) parseShortRange() ast.Expr {
	opTok := p.advance()
	var comp ast.Comparator
	switch opTok.Kind {
	case token.GT:
		comp = ast.CompGT
	case token.GE:
		comp = ast.CompGE
	case token.LT:
		comp = ast.CompLT
	case token.LE:
		comp = ast.CompLE
	}

	val := p.parseRangeBound()

	r := &ast.RangeNode{SourceOffset: opTok.Offset, Operator: comp}
	switch comp {
	case ast.CompGT:
		r.Min, r.MinInclusive = val, false
	case ast.CompGE:
		r.Min, r.MinInclusive = val, true
	case ast.CompLT:
		r.Max, r.MaxInclusive = val, false
	case ast.CompLE:
		r.Max, r.MaxInclusive = val, true
	}
	return r
}
