package expr

import "strings"

// TokenType identifies a lexical token.
type TokenType string

// Token is a single lexical token.
type Token struct {
	Type    TokenType
	Literal string
	Pos     int  // byte offset in the source
	Spaced  bool // whitespace precedes the token
}

const (
	ILLEGAL TokenType = "ILLEGAL"
	EOF     TokenType = "EOF"

	IDENT  TokenType = "IDENT"
	NUMBER TokenType = "NUMBER"
	STRING TokenType = "STRING"

	PLUS     TokenType = "+"
	MINUS    TokenType = "-"
	ASTERISK TokenType = "*"
	POWER    TokenType = "**"
	SLASH    TokenType = "/"
	FLOORDIV TokenType = "//"
	PERCENT  TokenType = "%"

	EQ     TokenType = "=="
	ASSIGN TokenType = "="
	NOT_EQ TokenType = "!="
	LT     TokenType = "<"
	GT     TokenType = ">"
	LTE    TokenType = "<="
	GTE    TokenType = ">="

	COMMA  TokenType = ","
	LPAREN TokenType = "("
	RPAREN TokenType = ")"

	AND TokenType = "AND"
	OR  TokenType = "OR"
	NOT TokenType = "NOT"
)

var keywords = map[string]TokenType{
	"and": AND,
	"or":  OR,
	"not": NOT,
}

// LookupIdent maps the boolean keywords; everything else is an identifier.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[strings.ToLower(ident)]; ok {
		return tok
	}
	return IDENT
}
