package ast

// ExistsNode represents "_exists_:field".
type ExistsNode struct {
	SourceOffset int
	field        stringView
}

func NewExistsNode(offset int, source string, start, length int) *ExistsNode {
	return &ExistsNode{SourceOffset: offset, field: newStringView(source, start, length)}
}

func (n *ExistsNode) Offset() int       { return n.SourceOffset }
func (*ExistsNode) exprNode()           {}
func (n *ExistsNode) Field() string     { return n.field.Value() }
func (n *ExistsNode) SetField(v string) { n.field.Set(v) }

// MissingNode represents "_missing_:field".
type MissingNode struct {
	SourceOffset int
	field        stringView
}

func NewMissingNode(offset int, source string, start, length int) *MissingNode {
	return &MissingNode{SourceOffset: offset, field: newStringView(source, start, length)}
}

func (n *MissingNode) Offset() int       { return n.SourceOffset }
func (*MissingNode) exprNode()           {}
func (n *MissingNode) Field() string     { return n.field.Value() }
func (n *MissingNode) SetField(v string) { n.field.Set(v) }
