package ast

// PhraseNode is a double-quoted phrase, optionally followed by a
// proximity slop ("a b"~3).
type PhraseNode struct {
	SourceOffset int
	phrase       stringView
	unescaped    *string
	Proximity    *int
}

// NewPhraseNode constructs a phrase whose raw text (without the
// surrounding quotes) is a view into source.
func NewPhraseNode(offset int, source string, start, length int) *PhraseNode {
	return &PhraseNode{SourceOffset: offset, phrase: newStringView(source, start, length)}
}

func (n *PhraseNode) Offset() int { return n.SourceOffset }
func (*PhraseNode) exprNode()     {}

// Phrase returns the raw (still-escaped) phrase content.
func (n *PhraseNode) Phrase() string { return n.phrase.Value() }

// SetPhrase overwrites the phrase content with an owned value.
func (n *PhraseNode) SetPhrase(value string) {
	n.phrase.Set(value)
	n.unescaped = nil
}

// UnescapedPhrase lazily resolves \\ and \" escapes and caches the result.
func (n *PhraseNode) UnescapedPhrase() string {
	if n.unescaped == nil {
		u := UnescapePhrase(n.Phrase())
		n.unescaped = &u
	}
	return *n.unescaped
}
