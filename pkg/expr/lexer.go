package expr

// Lexer tokenizes expression source.
type Lexer struct {
	input        string
	position     int  // current position in input
	readPosition int  // current reading position (after current char)
	ch           byte // current char
}

// NewLexer creates a new Lexer.
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	return l
}

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	spaced := l.skipWhitespace()
	tok := Token{Pos: l.position, Spaced: spaced}

	switch l.ch {
	case '+':
		tok = l.newToken(PLUS, tok)
	case '-':
		tok = l.newToken(MINUS, tok)
	case '*':
		if l.peekChar() == '*' {
			l.readChar()
			tok.Type, tok.Literal = POWER, "**"
		} else {
			tok = l.newToken(ASTERISK, tok)
		}
	case '/':
		if l.peekChar() == '/' {
			l.readChar()
			tok.Type, tok.Literal = FLOORDIV, "//"
		} else {
			tok = l.newToken(SLASH, tok)
		}
	case '%':
		tok = l.newToken(PERCENT, tok)
	case '=':
		if l.peekChar() == '=' {
			l.readChar()
			tok.Type, tok.Literal = EQ, "=="
		} else {
			tok = l.newToken(ASSIGN, tok)
		}
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			tok.Type, tok.Literal = NOT_EQ, "!="
		} else {
			tok.Type, tok.Literal = NOT, "!"
		}
	case '<':
		switch l.peekChar() {
		case '=':
			l.readChar()
			tok.Type, tok.Literal = LTE, "<="
		case '>':
			l.readChar()
			tok.Type, tok.Literal = NOT_EQ, "<>"
		default:
			tok = l.newToken(LT, tok)
		}
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			tok.Type, tok.Literal = GTE, ">="
		} else {
			tok = l.newToken(GT, tok)
		}
	case '&':
		if l.peekChar() == '&' {
			l.readChar()
			tok.Type, tok.Literal = AND, "&&"
		} else {
			tok = l.newToken(ILLEGAL, tok)
		}
	case '|':
		if l.peekChar() == '|' {
			l.readChar()
			tok.Type, tok.Literal = OR, "||"
		} else {
			tok = l.newToken(ILLEGAL, tok)
		}
	case ',':
		tok = l.newToken(COMMA, tok)
	case '(':
		tok = l.newToken(LPAREN, tok)
	case ')':
		tok = l.newToken(RPAREN, tok)
	case '"', '\'':
		lit, ok := l.readString(l.ch)
		if !ok {
			tok.Type, tok.Literal = ILLEGAL, lit
			return tok
		}
		tok.Type, tok.Literal = STRING, lit
	case ':':
		if isLetter(l.peekChar()) {
			l.readChar()
			tok.Literal = l.readIdentifier()
			tok.Type = IDENT
			return tok
		}
		tok = l.newToken(ILLEGAL, tok)
	case 0:
		tok.Type, tok.Literal = EOF, ""
		return tok
	default:
		if isLetter(l.ch) {
			tok.Literal = l.readIdentifier()
			tok.Type = LookupIdent(tok.Literal)
			return tok
		}
		if isDigit(l.ch) || (l.ch == '.' && isDigit(l.peekChar())) {
			tok.Type, tok.Literal = NUMBER, l.readNumber()
			return tok
		}
		tok = l.newToken(ILLEGAL, tok)
	}

	l.readChar()
	return tok
}

// Tokens returns every token up to and excluding EOF.
func (l *Lexer) Tokens() []Token {
	var toks []Token
	for {
		t := l.NextToken()
		if t.Type == EOF {
			return toks
		}
		toks = append(toks, t)
	}
}

func (l *Lexer) newToken(t TokenType, base Token) Token {
	base.Type = t
	base.Literal = string(l.ch)
	return base
}

func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
}

func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func (l *Lexer) skipWhitespace() bool {
	skipped := false
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		skipped = true
		l.readChar()
	}
	return skipped
}

// readIdentifier reads letters, digits and underscores with an optional
// trailing '$' (BASIC string names such as NAME$ or LEFT$).
func (l *Lexer) readIdentifier() string {
	position := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '$' {
		l.readChar()
	}
	return l.input[position:l.position]
}

func (l *Lexer) readNumber() string {
	position := l.position
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) || l.ch == '.' && position < l.position {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		// only consume the exponent when digits follow
		save, saveRead := l.position, l.readPosition
		l.readChar()
		if l.ch == '+' || l.ch == '-' {
			l.readChar()
		}
		if !isDigit(l.ch) {
			l.position, l.readPosition = save, saveRead
			l.ch = l.input[save]
			return l.input[position:l.position]
		}
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	return l.input[position:l.position]
}

// readString reads a quoted literal; ok is false when it is unterminated.
func (l *Lexer) readString(quote byte) (string, bool) {
	position := l.position + 1
	for {
		l.readChar()
		if l.ch == quote {
			return l.input[position:l.position], true
		}
		if l.ch == 0 {
			return l.input[position-1:], false
		}
	}
}

func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}
