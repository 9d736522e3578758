package engine

import "fmt"

// TokenType identifies a lexical token.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenError
	TokenLine

	TokenLeftParen
	TokenRightParen
	TokenLeftBracket
	TokenRightBracket
	TokenLeftBrace
	TokenRightBrace
	TokenColon
	TokenDot
	TokenDotDot
	TokenDotDotDot
	TokenComma
	TokenStar
	TokenSlash
	TokenPercent
	TokenPlus
	TokenMinus
	TokenLtLt
	TokenGtGt
	TokenPipe
	TokenPipePipe
	TokenCaret
	TokenAmp
	TokenAmpAmp
	TokenBang
	TokenTilde
	TokenQuestion
	TokenEq
	TokenLt
	TokenGt
	TokenLtEq
	TokenGtEq
	TokenEqEq
	TokenBangEq

	TokenAs
	TokenBreak
	TokenClass
	TokenConstruct
	TokenContinue
	TokenElse
	TokenFalse
	TokenFor
	TokenForeign
	TokenIf
	TokenImport
	TokenIn
	TokenIs
	TokenNull
	TokenReturn
	TokenStatic
	TokenSuper
	TokenThis
	TokenTrue
	TokenVar
	TokenWhile

	TokenField
	TokenStaticField
	TokenName
	TokenNumber
	TokenString
	// TokenInterpolation is a string part that ends in "%(".
	TokenInterpolation
)

var keywords = map[string]TokenType{
	"as":        TokenAs,
	"break":     TokenBreak,
	"class":     TokenClass,
	"construct": TokenConstruct,
	"continue":  TokenContinue,
	"else":      TokenElse,
	"false":     TokenFalse,
	"for":       TokenFor,
	"foreign":   TokenForeign,
	"if":        TokenIf,
	"import":    TokenImport,
	"in":        TokenIn,
	"is":        TokenIs,
	"null":      TokenNull,
	"return":    TokenReturn,
	"static":    TokenStatic,
	"super":     TokenSuper,
	"this":      TokenThis,
	"true":      TokenTrue,
	"var":       TokenVar,
	"while":     TokenWhile,
}

// Token is a single lexeme with its source line.
type Token struct {
	Type   TokenType
	Lexeme string
	Line   int

	// Num is set for TokenNumber, Str for TokenString and TokenInterpolation.
	Num float64
	Str string
}

func (t Token) String() string {
	return fmt.Sprintf("%d:%q@%d", t.Type, t.Lexeme, t.Line)
}
