package engine_test

import (
	"testing"

	"github.com/aspect-build/aspect-cli/wren/internal/engine"
)

func types(toks []engine.Token) []engine.TokenType {
	out := make([]engine.TokenType, len(toks))
	for i, t := range toks {
		out[i] = t.Type
	}
	return out
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []engine.TokenType
	}{
		{"var", "var x = 1.5", []engine.TokenType{engine.TokenVar, engine.TokenName, engine.TokenEq, engine.TokenNumber, engine.TokenEOF}},
		{"range", "1..2", []engine.TokenType{engine.TokenNumber, engine.TokenDotDot, engine.TokenNumber, engine.TokenEOF}},
		{"exclusive range", "1...2", []engine.TokenType{engine.TokenNumber, engine.TokenDotDotDot, engine.TokenNumber, engine.TokenEOF}},
		{"fields", "_a __b", []engine.TokenType{engine.TokenField, engine.TokenStaticField, engine.TokenEOF}},
		{"nested comment", "/* a /* b */ c */ x", []engine.TokenType{engine.TokenName, engine.TokenEOF}},
		{"line comment", "x // y\nz", []engine.TokenType{engine.TokenName, engine.TokenLine, engine.TokenName, engine.TokenEOF}},
		{"shebang", "#!/usr/bin/env wren\nx", []engine.TokenType{engine.TokenLine, engine.TokenName, engine.TokenEOF}},
		{"operators", "<< >> <= >= == != && || !", []engine.TokenType{
			engine.TokenLtLt, engine.TokenGtGt, engine.TokenLtEq, engine.TokenGtEq,
			engine.TokenEqEq, engine.TokenBangEq, engine.TokenAmpAmp, engine.TokenPipePipe,
			engine.TokenBang, engine.TokenEOF,
		}},
		{"interpolation", `"a%(1 + 2)b"`, []engine.TokenType{
			engine.TokenInterpolation, engine.TokenNumber, engine.TokenPlus, engine.TokenNumber,
			engine.TokenString, engine.TokenEOF,
		}},
		{"nested parens in interpolation", `"%((1))"`, []engine.TokenType{
			engine.TokenInterpolation, engine.TokenLeftParen, engine.TokenNumber, engine.TokenRightParen,
			engine.TokenString, engine.TokenEOF,
		}},
		{"keywords", "class foreign static construct", []engine.TokenType{
			engine.TokenClass, engine.TokenForeign, engine.TokenStatic, engine.TokenConstruct, engine.TokenEOF,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := types(engine.Tokenize(tt.src))
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("token %d: got %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestTokenValues(t *testing.T) {
	toks := engine.Tokenize(`0xff 2.5e2 "A\x42\n" "x%(1)y"`)
	if toks[0].Num != 255 {
		t.Errorf("hex: got %v, want 255", toks[0].Num)
	}
	if toks[1].Num != 250 {
		t.Errorf("exponent: got %v, want 250", toks[1].Num)
	}
	if toks[2].Str != "AB\n" {
		t.Errorf("escapes: got %q, want %q", toks[2].Str, "AB\n")
	}
	if toks[3].Type != engine.TokenInterpolation || toks[3].Str != "x" {
		t.Errorf("interpolation start: got %v %q", toks[3].Type, toks[3].Str)
	}
	if toks[5].Type != engine.TokenString || toks[5].Str != "y" {
		t.Errorf("interpolation end: got %v %q", toks[5].Type, toks[5].Str)
	}
}

func TestTokenizeLines(t *testing.T) {
	toks := engine.Tokenize("a\n/* x\ny */ b\n\"c\nd\" e")
	var lines []int
	for _, tok := range toks {
		if tok.Type == engine.TokenName {
			lines = append(lines, tok.Line)
		}
	}
	want := []int{1, 3, 5}
	if len(lines) != len(want) {
		t.Fatalf("got %v, want %v", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("name %d: got line %d, want %d", i, lines[i], want[i])
		}
	}
}

func TestTokenizeErrors(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{`"abc`, "Unterminated string."},
		{"/* open", "Unterminated block comment."},
		{"$", "Invalid character '$'."},
		{`"\q"`, "Invalid escape character 'q'."},
		{`"\x4"`, "Incomplete byte escape sequence."},
		{"1e", "Unterminated scientific notation."},
	}
	for _, tt := range tests {
		toks := engine.Tokenize(tt.src)
		last := toks[len(toks)-1]
		if last.Type != engine.TokenError {
			t.Errorf("%q: got %v, want error token", tt.src, last.Type)
			continue
		}
		if last.Str != tt.want {
			t.Errorf("%q: got %q, want %q", tt.src, last.Str, tt.want)
		}
	}
}
