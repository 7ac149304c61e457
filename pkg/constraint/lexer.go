package constraint

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/matzehuels/celldl/pkg/errors"
)

// TokenKind classifies a token of a constraint expression.
type TokenKind int

const (
	TokenEOF TokenKind = iota
	TokenNumber
	TokenPercentage
	TokenDimension
	TokenIdent
	TokenHash
	TokenComma
	TokenSemicolon
	TokenLParen
	TokenRParen
)

var tokenNames = map[TokenKind]string{
	TokenEOF:        "end of input",
	TokenNumber:     "number",
	TokenPercentage: "percentage",
	TokenDimension:  "dimension",
	TokenIdent:      "identifier",
	TokenHash:       "#id",
	TokenComma:      "','",
	TokenSemicolon:  "';'",
	TokenLParen:     "'('",
	TokenRParen:     "')'",
}

func (k TokenKind) String() string { return tokenNames[k] }

// Token is a lexical unit of a constraint expression.
type Token struct {
	Kind  TokenKind
	Text  string  // raw source text
	Value float64 // numeric value for numbers, percentages and dimensions
	Unit  string  // lower-cased unit suffix for dimensions and percentages
	Pos   int     // byte offset in the source
}

// IsNumeric reports whether t starts a length.
func (t Token) IsNumeric() bool {
	return t.Kind == TokenNumber || t.Kind == TokenPercentage || t.Kind == TokenDimension
}

func (t Token) String() string {
	if t.Kind == TokenEOF {
		return t.Kind.String()
	}
	return strconv.Quote(t.Text)
}

// Tokenize splits src into tokens. Whitespace separates tokens and is
// otherwise ignored. The returned slice always ends with a TokenEOF.
// Offsets are in bytes.
func Tokenize(src string) ([]Token, error) {
	var tokens []Token
	i := 0
	for i < len(src) {
		c, size := utf8.DecodeRuneInString(src[i:])
		switch {
		case c == utf8.RuneError && size == 1:
			return nil, syntaxError(src, "invalid UTF-8 at offset %d", i)
		case unicode.IsSpace(c):
			i += size
		case c == ',':
			tokens = append(tokens, Token{Kind: TokenComma, Text: ",", Pos: i})
			i++
		case c == ';':
			tokens = append(tokens, Token{Kind: TokenSemicolon, Text: ";", Pos: i})
			i++
		case c == '(':
			tokens = append(tokens, Token{Kind: TokenLParen, Text: "(", Pos: i})
			i++
		case c == ')':
			tokens = append(tokens, Token{Kind: TokenRParen, Text: ")", Pos: i})
			i++
		case c == '#':
			j := scan(src, i+1, isIDChar)
			if j == i+1 {
				return nil, syntaxError(src, "missing identifier after '#' at offset %d", i)
			}
			tokens = append(tokens, Token{Kind: TokenHash, Text: src[i:j], Pos: i})
			i = j
		case isNumberStart(src, i):
			tok, next, err := lexNumber(src, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)
			i = next
		case unicode.IsLetter(c) || c == '_':
			j := scan(src, i, isIdentChar)
			tokens = append(tokens, Token{Kind: TokenIdent, Text: src[i:j], Pos: i})
			i = j
		default:
			return nil, syntaxError(src, "unexpected character %q at offset %d", c, i)
		}
	}
	return append(tokens, Token{Kind: TokenEOF, Pos: len(src)}), nil
}

// scan returns the byte offset of the first rune at or after i that does
// not satisfy ok.
func scan(src string, i int, ok func(rune) bool) int {
	for i < len(src) {
		r, size := utf8.DecodeRuneInString(src[i:])
		if (r == utf8.RuneError && size == 1) || !ok(r) {
			break
		}
		i += size
	}
	return i
}

func lexNumber(src string, start int) (Token, int, error) {
	j := start
	if src[j] == '+' || src[j] == '-' {
		j++
	}
	for j < len(src) && (isDigit(src[j]) || src[j] == '.') {
		j++
	}
	numText := src[start:j]
	value, err := strconv.ParseFloat(numText, 64)
	if err != nil {
		return Token{}, 0, syntaxError(src, "invalid number %q", numText)
	}

	tok := Token{Kind: TokenNumber, Value: value, Pos: start}
	if j < len(src) && src[j] == '%' {
		tok.Kind = TokenPercentage
		j++
	}
	k := scan(src, j, unicode.IsLetter)
	if k > j {
		if tok.Kind == TokenNumber {
			tok.Kind = TokenDimension
		}
		tok.Unit = strings.ToLower(src[j:k])
	}
	tok.Text = src[start:k]
	return tok, k, nil
}

func isNumberStart(src string, i int) bool {
	c := src[i]
	if isDigit(c) {
		return true
	}
	if c == '.' || c == '+' || c == '-' {
		return i+1 < len(src) && (isDigit(src[i+1]) || (c != '.' && src[i+1] == '.'))
	}
	return false
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentChar(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_'
}

// isIDChar accepts the characters of an element id: identifier characters,
// '.' and ':', and any printable non-ASCII rune such as the '⁺' of "Na⁺".
func isIDChar(r rune) bool {
	if r > unicode.MaxASCII {
		return unicode.IsGraphic(r) && !unicode.IsSpace(r)
	}
	return isIdentChar(r) || r == '.' || r == ':'
}

func syntaxError(src, format string, args ...any) *errors.Error {
	return errors.New(errors.ErrCodeSyntax, format, args...).WithText(src)
}

// stream is a cursor over a token slice.
type stream struct {
	src    string
	tokens []Token
	pos    int
}

func newStream(src string) (*stream, error) {
	tokens, err := Tokenize(src)
	if err != nil {
		return nil, err
	}
	return &stream{src: src, tokens: tokens}, nil
}

func (s *stream) peek() Token { return s.tokens[s.pos] }

func (s *stream) next() Token {
	t := s.tokens[s.pos]
	if t.Kind != TokenEOF {
		s.pos++
	}
	return t
}

func (s *stream) accept(kind TokenKind) bool {
	if s.peek().Kind == kind {
		s.next()
		return true
	}
	return false
}

func (s *stream) expect(kind TokenKind) (Token, error) {
	t := s.next()
	if t.Kind != kind {
		return t, s.unexpected(t, kind.String())
	}
	return t, nil
}

func (s *stream) unexpected(t Token, want string) *errors.Error {
	return syntaxError(s.src, "expected %s, got %s", want, t)
}

func (s *stream) errorf(format string, args ...any) *errors.Error {
	return syntaxError(s.src, "%s", fmt.Sprintf(format, args...))
}
