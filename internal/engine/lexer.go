package engine

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// maxInterpolationNesting bounds "%(" nesting inside string literals.
const maxInterpolationNesting = 8

// Lexer tokenizes Wren source.
type Lexer struct {
	src  string
	pos  int
	line int

	// parens holds, for each interpolation currently being lexed, the number
	// of unclosed "(" seen since its "%(".
	parens []int
}

// NewLexer creates a lexer over src.
func NewLexer(src string) *Lexer {
	l := &Lexer{src: src, line: 1}
	// Skip a shebang line.
	if strings.HasPrefix(src, "#!") {
		for l.pos < len(l.src) && l.src[l.pos] != '\n' {
			l.pos++
		}
	}
	return l
}

// Tokenize lexes the whole input. The returned slice always ends with
// TokenEOF, or with the first TokenError.
func Tokenize(src string) []Token {
	l := NewLexer(src)
	var toks []Token
	for {
		t := l.Next()
		toks = append(toks, t)
		if t.Type == TokenEOF || t.Type == TokenError {
			return toks
		}
	}
}

func (l *Lexer) peek() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *Lexer) peekNext() byte {
	if l.pos+1 >= len(l.src) {
		return 0
	}
	return l.src[l.pos+1]
}

func (l *Lexer) match(c byte) bool {
	if l.peek() != c {
		return false
	}
	l.pos++
	return true
}

func (l *Lexer) tok(typ TokenType, start int) Token {
	return Token{Type: typ, Lexeme: l.src[start:l.pos], Line: l.line}
}

func (l *Lexer) errorf(msg string) Token {
	return Token{Type: TokenError, Lexeme: "", Line: l.line, Str: msg}
}

// Next returns the next token.
func (l *Lexer) Next() Token {
	for l.pos < len(l.src) {
		start := l.pos
		c := l.src[l.pos]
		l.pos++

		switch c {
		case ' ', '\t', '\r':
			continue
		case '\n':
			t := l.tok(TokenLine, start)
			l.line++
			return t
		case '(':
			if len(l.parens) > 0 {
				l.parens[len(l.parens)-1]++
			}
			return l.tok(TokenLeftParen, start)
		case ')':
			if len(l.parens) > 0 {
				top := len(l.parens) - 1
				l.parens[top]--
				if l.parens[top] == 0 {
					l.parens = l.parens[:top]
					return l.readString(start)
				}
			}
			return l.tok(TokenRightParen, start)
		case '[':
			return l.tok(TokenLeftBracket, start)
		case ']':
			return l.tok(TokenRightBracket, start)
		case '{':
			return l.tok(TokenLeftBrace, start)
		case '}':
			return l.tok(TokenRightBrace, start)
		case ':':
			return l.tok(TokenColon, start)
		case ',':
			return l.tok(TokenComma, start)
		case '*':
			return l.tok(TokenStar, start)
		case '%':
			return l.tok(TokenPercent, start)
		case '^':
			return l.tok(TokenCaret, start)
		case '+':
			return l.tok(TokenPlus, start)
		case '-':
			return l.tok(TokenMinus, start)
		case '~':
			return l.tok(TokenTilde, start)
		case '?':
			return l.tok(TokenQuestion, start)
		case '|':
			if l.match('|') {
				return l.tok(TokenPipePipe, start)
			}
			return l.tok(TokenPipe, start)
		case '&':
			if l.match('&') {
				return l.tok(TokenAmpAmp, start)
			}
			return l.tok(TokenAmp, start)
		case '=':
			if l.match('=') {
				return l.tok(TokenEqEq, start)
			}
			return l.tok(TokenEq, start)
		case '!':
			if l.match('=') {
				return l.tok(TokenBangEq, start)
			}
			return l.tok(TokenBang, start)
		case '<':
			if l.match('<') {
				return l.tok(TokenLtLt, start)
			}
			if l.match('=') {
				return l.tok(TokenLtEq, start)
			}
			return l.tok(TokenLt, start)
		case '>':
			if l.match('>') {
				return l.tok(TokenGtGt, start)
			}
			if l.match('=') {
				return l.tok(TokenGtEq, start)
			}
			return l.tok(TokenGt, start)
		case '.':
			if l.match('.') {
				if l.match('.') {
					return l.tok(TokenDotDotDot, start)
				}
				return l.tok(TokenDotDot, start)
			}
			return l.tok(TokenDot, start)
		case '/':
			if l.match('/') {
				for l.pos < len(l.src) && l.src[l.pos] != '\n' {
					l.pos++
				}
				continue
			}
			if l.match('*') {
				if t, ok := l.skipBlockComment(); !ok {
					return t
				}
				continue
			}
			return l.tok(TokenSlash, start)
		case '"':
			return l.readString(start)
		default:
			if isDigit(c) {
				return l.readNumber(start)
			}
			if isNameStart(c) {
				return l.readName(start)
			}
			r, _ := utf8.DecodeRuneInString(l.src[start:])
			if r >= 0x20 && r < 0x7f {
				return l.errorf("Invalid character '" + string(r) + "'.")
			}
			return l.errorf("Invalid byte 0x" + strconv.FormatUint(uint64(c), 16) + ".")
		}
	}
	return Token{Type: TokenEOF, Line: l.line}
}

func (l *Lexer) skipBlockComment() (Token, bool) {
	depth := 1
	for depth > 0 {
		if l.pos >= len(l.src) {
			return l.errorf("Unterminated block comment."), false
		}
		c := l.src[l.pos]
		switch {
		case c == '/' && l.peekNext() == '*':
			l.pos += 2
			depth++
		case c == '*' && l.peekNext() == '/':
			l.pos += 2
			depth--
		default:
			if c == '\n' {
				l.line++
			}
			l.pos++
		}
	}
	return Token{}, true
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isNameStart(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

func (l *Lexer) readName(start int) Token {
	for l.pos < len(l.src) && (isNameStart(l.src[l.pos]) || isDigit(l.src[l.pos])) {
		l.pos++
	}
	text := l.src[start:l.pos]
	switch {
	case strings.HasPrefix(text, "__"):
		return l.tok(TokenStaticField, start)
	case strings.HasPrefix(text, "_"):
		return l.tok(TokenField, start)
	}
	if kw, ok := keywords[text]; ok {
		return l.tok(kw, start)
	}
	return l.tok(TokenName, start)
}

func (l *Lexer) readNumber(start int) Token {
	if l.src[start] == '0' && (l.peek() == 'x' || l.peek() == 'X') {
		l.pos++
		for isHexDigit(l.peek()) {
			l.pos++
		}
		v, err := strconv.ParseUint(l.src[start+2:l.pos], 16, 64)
		if err != nil {
			return l.errorf("Number literal was too large.")
		}
		t := l.tok(TokenNumber, start)
		t.Num = float64(v)
		return t
	}

	for isDigit(l.peek()) {
		l.pos++
	}
	if l.peek() == '.' && isDigit(l.peekNext()) {
		l.pos++
		for isDigit(l.peek()) {
			l.pos++
		}
	}
	if l.peek() == 'e' || l.peek() == 'E' {
		l.pos++
		if l.peek() == '+' || l.peek() == '-' {
			l.pos++
		}
		if !isDigit(l.peek()) {
			return l.errorf("Unterminated scientific notation.")
		}
		for isDigit(l.peek()) {
			l.pos++
		}
	}
	v, err := strconv.ParseFloat(l.src[start:l.pos], 64)
	if err != nil {
		return l.errorf("Number literal was too large.")
	}
	t := l.tok(TokenNumber, start)
	t.Num = v
	return t
}

// readString lexes a string literal body. The opening quote (or the ")" that
// closed an interpolated expression) has already been consumed.
func (l *Lexer) readString(start int) Token {
	var b strings.Builder
	typ := TokenString
	for {
		if l.pos >= len(l.src) {
			return l.errorf("Unterminated string.")
		}
		c := l.src[l.pos]
		l.pos++
		if c == '"' {
			break
		}
		if c == '\n' {
			l.line++
		}
		if c == '%' {
			if len(l.parens) >= maxInterpolationNesting {
				return l.errorf("Interpolation may only nest 8 levels deep.")
			}
			if l.peek() != '(' {
				return l.errorf("Expect '(' after '%'.")
			}
			l.pos++
			l.parens = append(l.parens, 1)
			typ = TokenInterpolation
			break
		}
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		if l.pos >= len(l.src) {
			return l.errorf("Incomplete escape sequence.")
		}
		esc := l.src[l.pos]
		l.pos++
		switch esc {
		case '"':
			b.WriteByte('"')
		case '\\':
			b.WriteByte('\\')
		case '%':
			b.WriteByte('%')
		case '0':
			b.WriteByte(0)
		case 'a':
			b.WriteByte('\a')
		case 'b':
			b.WriteByte('\b')
		case 'e':
			b.WriteByte(0x1b)
		case 'f':
			b.WriteByte('\f')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case 'v':
			b.WriteByte('\v')
		case 'x':
			v, ok := l.readHex(2)
			if !ok {
				return l.errorf("Incomplete byte escape sequence.")
			}
			b.WriteByte(byte(v))
		case 'u':
			v, ok := l.readHex(4)
			if !ok {
				return l.errorf("Incomplete Unicode escape sequence.")
			}
			b.WriteRune(rune(v))
		case 'U':
			v, ok := l.readHex(8)
			if !ok {
				return l.errorf("Incomplete Unicode escape sequence.")
			}
			b.WriteRune(rune(v))
		default:
			return l.errorf("Invalid escape character '" + string(esc) + "'.")
		}
	}
	t := l.tok(typ, start)
	t.Str = b.String()
	return t
}

func (l *Lexer) readHex(n int) (uint64, bool) {
	if l.pos+n > len(l.src) {
		return 0, false
	}
	for i := 0; i < n; i++ {
		if !isHexDigit(l.src[l.pos+i]) {
			return 0, false
		}
	}
	v, err := strconv.ParseUint(l.src[l.pos:l.pos+n], 16, 32)
	l.pos += n
	return v, err == nil
}
