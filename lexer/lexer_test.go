package lexer

import (
	"testing"

	"github.com/Tangerg/lucenequery/token"
)

func kinds(toks []token.Token) []token.Kind {
	ks := make([]token.Kind, 0, len(toks))
	for _, t := range toks {
		if t.Kind == token.WS {
			continue
		}
		ks = append(ks, t.Kind)
	}
	return ks
}

func TestTokens_Basic(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []token.Kind
	}{
		{"ident", "hello", []token.Kind{token.IDENT, token.EOF}},
		{"field query", "title:hello", []token.Kind{token.IDENT, token.COLON, token.IDENT, token.EOF}},
		{"phrase", `"hello world"`, []token.Kind{token.PHRASE, token.EOF}},
		{"regex", "/ab+c/", []token.Kind{token.REGEX, token.EOF}},
		{"and keyword", "a AND b", []token.Kind{token.IDENT, token.AND, token.IDENT, token.EOF}},
		{"lowercase and is ident", "a and b", []token.Kind{token.IDENT, token.IDENT, token.IDENT, token.EOF}},
		{"ampamp synonym", "a && b", []token.Kind{token.IDENT, token.AND, token.IDENT, token.EOF}},
		{"pipepipe as or", "a || b", []token.Kind{token.IDENT, token.OR, token.IDENT, token.EOF}},
		{"range", "[1 TO 5]", []token.Kind{token.LBRACK, token.NUMBER, token.TO, token.NUMBER, token.RBRACK, token.EOF}},
		{"short range ge", ">=5", []token.Kind{token.GE, token.NUMBER, token.EOF}},
		{"short range gt", ">5", []token.Kind{token.GT, token.NUMBER, token.EOF}},
		{"boost", "hello^2.5", []token.Kind{token.IDENT, token.CARET, token.NUMBER, token.EOF}},
		{"fuzzy", "hello~2", []token.Kind{token.IDENT, token.TILDE, token.NUMBER, token.EOF}},
		{"matchall", "*:*", []token.Kind{token.STAR, token.COLON, token.STAR, token.EOF}},
		{"not keyword", "NOT a", []token.Kind{token.NOT, token.IDENT, token.EOF}},
		{"bang as not", "!a", []token.Kind{token.BANG, token.IDENT, token.EOF}},
		{"plus minus", "+a -b", []token.Kind{token.PLUS, token.IDENT, token.MINUS, token.IDENT, token.EOF}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks, _ := New(tt.input).Tokens()
			got := kinds(toks)
			if len(got) != len(tt.want) {
				t.Fatalf("kind count = %d, want %d (%v vs %v)", len(got), len(tt.want), got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("kind[%d] = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestPipePipe_DateMathAfterDateLikeIdent(t *testing.T) {
	toks, _ := New("now||+1d").Tokens()
	got := kinds(toks)
	want := []token.Kind{token.IDENT, token.PIPEPIPE, token.PLUS, token.IDENT, token.EOF}
	if len(got) != len(want) {
		t.Fatalf("kinds = %v, want %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Errorf("kind[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestPipePipe_AfterYearAnchor(t *testing.T) {
	toks, _ := New("2024-01-01||+1M").Tokens()
	var sawPipePipe bool
	for _, tok := range toks {
		if tok.Kind == token.PIPEPIPE {
			sawPipePipe = true
		}
		if tok.Kind == token.OR {
			t.Fatalf("expected PIPEPIPE after a year-like anchor, got OR")
		}
	}
	if !sawPipePipe {
		t.Fatalf("expected a PIPEPIPE token, got none: %+v", toks)
	}
}

func TestUnterminatedPhrase_EmitsDiagnostic(t *testing.T) {
	toks, diags := New(`"unterminated`).Tokens()
	if len(diags) != 1 {
		t.Fatalf("expected 1 diagnostic, got %d: %v", len(diags), diags)
	}
	if toks[0].Kind != token.PHRASE {
		t.Fatalf("expected a PHRASE token covering available content, got %s", toks[0].Kind)
	}
}

func TestUnterminatedRegex_EmitsDiagnostic(t *testing.T) {
	_, diags := New("/abc").Tokens()
	if len(diags) != 1 {
		t.Fatalf("expected 1 diagnostic, got %d: %v", len(diags), diags)
	}
}

func TestRegex_SlashInsideCharClassDoesNotTerminate(t *testing.T) {
	toks, diags := New("/a[/]b/").Tokens()
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if toks[0].Kind != token.REGEX || toks[0].Text != "/a[/]b/" {
		t.Fatalf("got token %+v", toks[0])
	}
}

func TestIllegalByte_EmitsErrorTokenAndContinues(t *testing.T) {
	toks, diags := New("a # b").Tokens()
	if len(diags) != 1 {
		t.Fatalf("expected 1 diagnostic, got %d", len(diags))
	}
	got := kinds(toks)
	want := []token.Kind{token.IDENT, token.ERROR, token.IDENT, token.EOF}
	if len(got) != len(want) {
		t.Fatalf("kinds = %v, want %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Errorf("kind[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestOffsetsAreMonotone(t *testing.T) {
	toks, _ := New(`title:"hello world" AND status:active`).Tokens()
	last := -1
	for _, tok := range toks {
		if tok.Offset < last {
			t.Fatalf("offsets not monotone: %d came after %d", tok.Offset, last)
		}
		last = tok.Offset
	}
}

func TestEscapeInIdentifier_RetainedVerbatim(t *testing.T) {
	toks, _ := New(`foo\:bar`).Tokens()
	if toks[0].Kind != token.IDENT {
		t.Fatalf("expected IDENT, got %s", toks[0].Kind)
	}
	if toks[0].Text != `foo\:bar` {
		t.Fatalf("expected raw escape preserved, got %q", toks[0].Text)
	}
}
