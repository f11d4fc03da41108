package ast

// QueryDocument is the AST root. Query is nil for empty input.
type QueryDocument struct {
	Query Expr
}

func (n *QueryDocument) Offset() int {
	if n.Query == nil {
		return NoOffset
	}
	return n.Query.Offset()
}

func (*QueryDocument) exprNode() {}
