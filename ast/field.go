package ast

// FieldQueryNode binds a field name to a child query fragment: a
// TermNode, PhraseNode, RegexNode, RangeNode, GroupNode, or
// MultiTermNode. Field is always non-empty; when no field was written
// the parser uses the bare child variant directly instead of wrapping it.
type FieldQueryNode struct {
	SourceOffset int
	field        stringView
	Query        Expr
	Prefix       Prefix
	Boost        *float64
}

// NewFieldQueryNode constructs a field query whose field name is a view
// into the shared input buffer.
func NewFieldQueryNode(offset int, source string, fieldStart, fieldLen int, query Expr) *FieldQueryNode {
	return &FieldQueryNode{
		SourceOffset: offset,
		field:        newStringView(source, fieldStart, fieldLen),
		Query:        query,
	}
}

func (n *FieldQueryNode) Offset() int { return n.SourceOffset }
func (*FieldQueryNode) exprNode()     {}

// Field returns the current field name.
func (n *FieldQueryNode) Field() string { return n.field.Value() }

// SetField overwrites the field name with an owned string, detaching it
// from the input buffer. Used by FieldResolver when a mapping applies.
func (n *FieldQueryNode) SetField(value string) { n.field.Set(value) }
