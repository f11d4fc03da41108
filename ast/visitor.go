package ast

// Visitor is a bundle of per-variant handlers over the closed AST. Each
// handler may be left nil (falling back to the default traversal for
// that variant), may mutate its node in place, or may return an entirely
// different node. Apply re-reads the returned Expr and relinks it into
// the parent's child slot, so both mutate-in-place and
// functional-replacement styles compose; the one exception is a
// MultiTermNode, whose slots hold only *TermNode (see DefaultMultiTerm).
type Visitor struct {
	Document   func(ctx *Context, n *QueryDocument) (Expr, error)
	Group      func(ctx *Context, n *GroupNode) (Expr, error)
	Boolean    func(ctx *Context, n *BooleanQueryNode) (Expr, error)
	Not        func(ctx *Context, n *NotNode) (Expr, error)
	FieldQuery func(ctx *Context, n *FieldQueryNode) (Expr, error)
	Term       func(ctx *Context, n *TermNode) (Expr, error)
	Phrase     func(ctx *Context, n *PhraseNode) (Expr, error)
	Regex      func(ctx *Context, n *RegexNode) (Expr, error)
	Range      func(ctx *Context, n *RangeNode) (Expr, error)
	MultiTerm  func(ctx *Context, n *MultiTermNode) (Expr, error)
	Exists     func(ctx *Context, n *ExistsNode) (Expr, error)
	Missing    func(ctx *Context, n *MissingNode) (Expr, error)
	MatchAll   func(ctx *Context, n *MatchAllNode) (Expr, error)
}

// Apply dispatches expr to the visitor's handler for its runtime variant,
// falling back to the default recursive-descent behavior for that
// variant when no handler was registered.
func Apply(v *Visitor, ctx *Context, expr Expr) (Expr, error) {
	if expr == nil {
		return nil, nil
	}
	switch n := expr.(type) {
	case *QueryDocument:
		if v.Document != nil {
			return v.Document(ctx, n)
		}
		return DefaultDocument(v, ctx, n)
	case *GroupNode:
		if v.Group != nil {
			return v.Group(ctx, n)
		}
		return DefaultGroup(v, ctx, n)
	case *BooleanQueryNode:
		if v.Boolean != nil {
			return v.Boolean(ctx, n)
		}
		return DefaultBoolean(v, ctx, n)
	case *NotNode:
		if v.Not != nil {
			return v.Not(ctx, n)
		}
		return DefaultNot(v, ctx, n)
	case *FieldQueryNode:
		if v.FieldQuery != nil {
			return v.FieldQuery(ctx, n)
		}
		return DefaultFieldQuery(v, ctx, n)
	case *TermNode:
		if v.Term != nil {
			return v.Term(ctx, n)
		}
		return n, nil
	case *PhraseNode:
		if v.Phrase != nil {
			return v.Phrase(ctx, n)
		}
		return n, nil
	case *RegexNode:
		if v.Regex != nil {
			return v.Regex(ctx, n)
		}
		return n, nil
	case *RangeNode:
		if v.Range != nil {
			return v.Range(ctx, n)
		}
		return n, nil
	case *MultiTermNode:
		if v.MultiTerm != nil {
			return v.MultiTerm(ctx, n)
		}
		return DefaultMultiTerm(v, ctx, n)
	case *ExistsNode:
		if v.Exists != nil {
			return v.Exists(ctx, n)
		}
		return n, nil
	case *MissingNode:
		if v.Missing != nil {
			return v.Missing(ctx, n)
		}
		return n, nil
	case *MatchAllNode:
		if v.MatchAll != nil {
			return v.MatchAll(ctx, n)
		}
		return n, nil
	default:
		return expr, nil
	}
}

// DefaultDocument walks into the document's single child and relinks any
// replacement the child handler produced.
func DefaultDocument(v *Visitor, ctx *Context, n *QueryDocument) (Expr, error) {
	if n.Query == nil {
		return n, nil
	}
	child, err := Apply(v, ctx, n.Query)
	if err != nil {
		return n, err
	}
	n.Query = child
	return n, nil
}

// DefaultGroup walks the group's inner expression.
func DefaultGroup(v *Visitor, ctx *Context, n *GroupNode) (Expr, error) {
	if n.Inner == nil {
		return n, nil
	}
	inner, err := Apply(v, ctx, n.Inner)
	if err != nil {
		return n, err
	}
	n.Inner = inner
	return n, nil
}

// DefaultBoolean walks both children, left then right.
func DefaultBoolean(v *Visitor, ctx *Context, n *BooleanQueryNode) (Expr, error) {
	left, err := Apply(v, ctx, n.Left)
	if err != nil {
		return n, err
	}
	n.Left = left
	right, err := Apply(v, ctx, n.Right)
	if err != nil {
		return n, err
	}
	n.Right = right
	return n, nil
}

// DefaultNot walks the negated child.
func DefaultNot(v *Visitor, ctx *Context, n *NotNode) (Expr, error) {
	if n.Inner == nil {
		return n, nil
	}
	inner, err := Apply(v, ctx, n.Inner)
	if err != nil {
		return n, err
	}
	n.Inner = inner
	return n, nil
}

// DefaultFieldQuery walks the bound query.
func DefaultFieldQuery(v *Visitor, ctx *Context, n *FieldQueryNode) (Expr, error) {
	if n.Query == nil {
		return n, nil
	}
	child, err := Apply(v, ctx, n.Query)
	if err != nil {
		return n, err
	}
	n.Query = child
	return n, nil
}

// DefaultMultiTerm walks every term in the expansion body. A replacement
// that is a *TermNode is relinked; any other replacement is discarded and
// the original term stays in place.
func DefaultMultiTerm(v *Visitor, ctx *Context, n *MultiTermNode) (Expr, error) {
	for i, t := range n.Terms {
		replaced, err := Apply(v, ctx, t)
		if err != nil {
			return n, err
		}
		if term, ok := replaced.(*TermNode); ok {
			n.Terms[i] = term
		}
	}
	return n, nil
}

// Walk is a read-only convenience traversal for observers that do not
// need to mutate or replace nodes: fn is invoked once per node, in the
// same depth-first, parent-before-children order that Apply's default
// handlers use.
func Walk(expr Expr, fn func(Expr)) {
	if expr == nil {
		return
	}
	fn(expr)
	switch n := expr.(type) {
	case *QueryDocument:
		Walk(n.Query, fn)
	case *GroupNode:
		Walk(n.Inner, fn)
	case *BooleanQueryNode:
		Walk(n.Left, fn)
		Walk(n.Right, fn)
	case *NotNode:
		Walk(n.Inner, fn)
	case *FieldQueryNode:
		Walk(n.Query, fn)
	case *MultiTermNode:
		for _, t := range n.Terms {
			Walk(t, fn)
		}
	}
}
