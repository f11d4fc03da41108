package ast

// RegexNode is a /pattern/ literal. Its pattern text excludes the
// delimiting slashes.
type RegexNode struct {
	SourceOffset int
	pattern      stringView
}

// NewRegexNode constructs a regex node whose pattern text is a view into
// source, not including the delimiting slashes.
func NewRegexNode(offset int, source string, start, length int) *RegexNode {
	return &RegexNode{SourceOffset: offset, pattern: newStringView(source, start, length)}
}

func (n *RegexNode) Offset() int { return n.SourceOffset }
func (*RegexNode) exprNode()     {}

// Pattern returns the regex source text (without delimiters).
func (n *RegexNode) Pattern() string { return n.pattern.Value() }

// SetPattern overwrites the pattern with an owned value.
func (n *RegexNode) SetPattern(value string) { n.pattern.Set(value) }
