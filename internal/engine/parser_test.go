package engine_test

import (
	"testing"

	"github.com/aspect-build/aspect-cli/wren/internal/engine"
)

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line int
		want string
	}{
		{"missing name", "var = 1", 1, "Error at '=': Expect variable name."},
		{"end of file", "System.print(", 1, "Error at end of file: Expected expression."},
		{"lexical", `"abc`, 1, "Error: Unterminated string."},
		{"undefined", "\nFoo.bar()", 2, "Error at 'Foo': Variable is used but not defined."},
		{"undefined lowercase", "x = 1", 1, "Error at 'x': Variable is used but not defined."},
		{"this outside method", "this", 1, "Error at 'this': Cannot use 'this' outside of a method."},
		{"field outside class", "_x", 1, "Error at '_x': Cannot reference a field outside of a class definition."},
		{"redefined", "var a = 1\nvar a = 2", 2, "Error at 'a': Module variable is already defined."},
		{"use before definition", "System.print(a)\nvar a = 1", 2,
			"Error at 'a': Variable 'a' referenced before this definition (first use at line 1)."},
		{"foreign class field", "foreign class F {\n  x { _x }\n}", 2,
			"Error at '_x': Cannot define fields in a foreign class."},
		{"static field access", "class F {\n  static x { _x }\n}", 2,
			"Error at '_x': Cannot use an instance field in a static method."},
		{"break outside loop", "break", 1, "Error at 'break': Cannot use 'break' outside of a loop."},
		{"newline", "var x = 1 2", 1, "Error at '2': Expect newline after statement."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.Compile("main", tt.src, map[string]bool{"System": true})
			if err == nil {
				t.Fatalf("expected compile error")
			}
			if err.Module != "main" {
				t.Errorf("module: got %q, want %q", err.Module, "main")
			}
			if err.Line != tt.line {
				t.Errorf("line: got %d, want %d", err.Line, tt.line)
			}
			if err.Message != tt.want {
				t.Errorf("got %q, want %q", err.Message, tt.want)
			}
		})
	}
}

func TestCompileForwardReference(t *testing.T) {
	// Capitalized names may be used inside methods before they are defined.
	src := "class A {\n  static b { B }\n}\nclass B {}"
	if _, err := engine.Compile("main", src, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMethodSignatures(t *testing.T) {
	src := `class Foo {
  construct new(a, b) {}
  bar { 1 }
  bar=(v) {}
  baz(a) {}
  +(other) {}
  - { 0 }
  [i] { 0 }
  [i]=(v) {}
  static make() {}
  foreign qux(a, b)
}`
	prog, err := engine.Compile("main", src, nil)
	if err != nil {
		t.Fatalf("failed to compile: %v", err)
	}
	cls, ok := prog.Body[0].(*engine.ClassStmt)
	if !ok {
		t.Fatalf("got %T, want *engine.ClassStmt", prog.Body[0])
	}
	want := []string{
		"init new(_,_)", "bar", "bar=(_)", "baz(_)", "+(_)", "-",
		"[_]", "[_]=(_)", "make()", "qux(_,_)",
	}
	if len(cls.Methods) != len(want) {
		t.Fatalf("got %d methods, want %d", len(cls.Methods), len(want))
	}
	for i, m := range cls.Methods {
		if m.Signature != want[i] {
			t.Errorf("method %d: got %q, want %q", i, m.Signature, want[i])
		}
	}
	if !cls.Methods[9].Foreign || cls.Methods[9].Body != nil {
		t.Errorf("qux should be foreign with no body")
	}
	if !cls.Methods[8].Static {
		t.Errorf("make should be static")
	}
	if got := cls.Methods[8].Body.Name; got != "static Foo.make()" {
		t.Errorf("got %q, want %q", got, "static Foo.make()")
	}
	if got := cls.Methods[2].Body.Name; got != "Foo.bar=(_)" {
		t.Errorf("got %q, want %q", got, "Foo.bar=(_)")
	}
}

func TestDuplicateMethod(t *testing.T) {
	_, err := engine.Compile("main", "class Foo {\n  bar {}\n  bar {}\n}", nil)
	if err == nil {
		t.Fatalf("expected compile error")
	}
	want := "Error at 'bar': Class Foo already defines a method 'bar'."
	if err.Message != want {
		t.Errorf("got %q, want %q", err.Message, want)
	}
}

func TestCallSignatures(t *testing.T) {
	prog, err := engine.Compile("main", `var l = [1]
l.add(2)
l.count
l[0] = 3
l.each {|x| x }
l.sort = 1`, nil)
	if err != nil {
		t.Fatalf("failed to compile: %v", err)
	}
	want := []string{"add(_)", "count", "[_]=(_)", "each(_)", "sort=(_)"}
	for i, sig := range want {
		stmt := prog.Body[i+1].(*engine.ExprStmt)
		call, ok := stmt.X.(*engine.CallExpr)
		if !ok {
			t.Fatalf("statement %d: got %T, want *engine.CallExpr", i+1, stmt.X)
		}
		if call.Signature != sig {
			t.Errorf("statement %d: got %q, want %q", i+1, call.Signature, sig)
		}
	}
}

func TestParseSignature(t *testing.T) {
	tests := []struct {
		sig   string
		arity int
		ok    bool
	}{
		{"count", 0, true},
		{"call()", 0, true},
		{"call(_)", 1, true},
		{"call(_,_,_)", 3, true},
		{"name=(_)", 1, true},
		{"[_]", 1, true},
		{"[_,_]", 2, true},
		{"[_]=(_)", 2, true},
		{"+(_)", 1, true},
		{"-", 0, true},
		{"-(_)", 1, true},
		{"!", 0, true},
		{"~", 0, true},
		{"..(_)", 1, true},
		{"is(_)", 1, true},
		{"snake_case(_)", 1, true},
		{"", 0, false},
		{"call(_", 0, false},
		{"call(a)", 0, false},
		{"call( _)", 0, false},
		{"[]", 0, false},
		{"+", 0, false},
		{"name=", 0, false},
		{"name=(_,_)", 0, false},
		{"call(_)(_)", 0, false},
		{"123", 0, false},
	}
	for _, tt := range tests {
		arity, ok := engine.ParseSignature(tt.sig)
		if ok != tt.ok {
			t.Errorf("%q: got ok=%v, want %v", tt.sig, ok, tt.ok)
			continue
		}
		if ok && arity != tt.arity {
			t.Errorf("%q: got arity %d, want %d", tt.sig, arity, tt.arity)
		}
	}
}

func TestSignatureArity(t *testing.T) {
	for sig, want := range map[string]int{
		"count":        0,
		"add(_)":       1,
		"[_,_]=(_)":    3,
		"snake_case()": 0,
		"init new(_)":  1,
	} {
		if got := engine.SignatureArity(sig); got != want {
			t.Errorf("%q: got %d, want %d", sig, got, want)
		}
	}
}
