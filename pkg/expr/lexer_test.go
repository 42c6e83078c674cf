package expr

import "testing"

func TestNextToken(t *testing.T) {
	input := `:SIZE * 2 >= LEN(NAME$) and not X <> 'hi' // 3 ** 2 % 1.5e3 || Y && !Z`

	tests := []struct {
		expectedType    TokenType
		expectedLiteral string
	}{
		{IDENT, "SIZE"},
		{ASTERISK, "*"},
		{NUMBER, "2"},
		{GTE, ">="},
		{IDENT, "LEN"},
		{LPAREN, "("},
		{IDENT, "NAME$"},
		{RPAREN, ")"},
		{AND, "and"},
		{NOT, "not"},
		{IDENT, "X"},
		{NOT_EQ, "<>"},
		{STRING, "hi"},
		{FLOORDIV, "//"},
		{NUMBER, "3"},
		{POWER, "**"},
		{NUMBER, "2"},
		{PERCENT, "%"},
		{NUMBER, "1.5e3"},
		{OR, "||"},
		{IDENT, "Y"},
		{AND, "&&"},
		{NOT, "!"},
		{IDENT, "Z"},
		{EOF, ""},
	}

	l := NewLexer(input)

	for i, tt := range tests {
		tok := l.NextToken()

		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q",
				i, tt.expectedType, tok.Type)
		}

		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q",
				i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestLexerNumbers(t *testing.T) {
	tests := []struct {
		input string
		lit   []string
	}{
		{".5", []string{".5"}},
		{"5.", []string{"5."}},
		{"2e", []string{"2", "e"}},
		{"2e-3", []string{"2e-3"}},
		{"1E+2+1", []string{"1E+2", "+", "1"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			toks := NewLexer(tt.input).Tokens()
			if len(toks) != len(tt.lit) {
				t.Fatalf("got %d tokens %v, want %v", len(toks), toks, tt.lit)
			}
			for i, tok := range toks {
				if tok.Literal != tt.lit[i] {
					t.Errorf("token %d = %q, want %q", i, tok.Literal, tt.lit[i])
				}
			}
		})
	}
}

func TestLexerSpacing(t *testing.T) {
	toks := NewLexer("10 -20").Tokens()
	if len(toks) != 3 {
		t.Fatalf("got %d tokens", len(toks))
	}
	if !toks[1].Spaced || toks[2].Spaced {
		t.Errorf("spacing wrong: %+v", toks)
	}
	if toks[2].Pos != 4 {
		t.Errorf("Pos = %d, want 4", toks[2].Pos)
	}
}

func TestLexerUnterminatedString(t *testing.T) {
	tok := NewLexer(`"abc`).NextToken()
	if tok.Type != ILLEGAL {
		t.Errorf("type = %s, want ILLEGAL", tok.Type)
	}
}
