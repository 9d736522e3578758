package engine

import (
	"fmt"
	"strings"
)

// CompileError is a syntax or resolution error found while compiling a module.
type CompileError struct {
	Module  string
	Line    int
	Message string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("[%s line %d] %s", e.Module, e.Line, e.Message)
}

// maxParameters is the largest arity of a method or function.
const maxParameters = 16

type precedence int

const (
	precNone precedence = iota
	precLowest
	precAssignment
	precConditional
	precLogicalOr
	precLogicalAnd
	precEquality
	precIs
	precComparison
	precBitwiseOr
	precBitwiseXor
	precBitwiseAnd
	precBitwiseShift
	precRange
	precTerm
	precFactor
	precUnary
	precCall
	precPrimary
)

var infixPrecedence = map[TokenType]precedence{
	TokenQuestion:    precAssignment,
	TokenPipePipe:    precLogicalOr,
	TokenAmpAmp:      precLogicalAnd,
	TokenEqEq:        precEquality,
	TokenBangEq:      precEquality,
	TokenIs:          precIs,
	TokenLt:          precComparison,
	TokenGt:          precComparison,
	TokenLtEq:        precComparison,
	TokenGtEq:        precComparison,
	TokenPipe:        precBitwiseOr,
	TokenCaret:       precBitwiseXor,
	TokenAmp:         precBitwiseAnd,
	TokenLtLt:        precBitwiseShift,
	TokenGtGt:        precBitwiseShift,
	TokenDotDot:      precRange,
	TokenDotDotDot:   precRange,
	TokenPlus:        precTerm,
	TokenMinus:       precTerm,
	TokenStar:        precFactor,
	TokenSlash:       precFactor,
	TokenPercent:     precFactor,
	TokenDot:         precCall,
	TokenLeftBracket: precCall,
}

// scope is one lexical block of local variables. A barrier scope starts a
// method body, which cannot see locals declared outside it.
type scope struct {
	names   map[string]bool
	barrier bool
}

type classInfo struct {
	name     string
	foreign  bool
	inStatic bool
	method   string // signature name of the method being compiled
}

// bailout unwinds the parser after the first error.
type bailout struct{}

type parser struct {
	module string
	toks   []Token
	pos    int

	scopes  []*scope
	classes []*classInfo
	// loops counts the loops enclosing the current function body.
	loops int

	moduleVars map[string]bool
	// forward holds implicitly declared module variables and the token of
	// their first use.
	forward map[string]Token

	err *CompileError
}

// Compile parses src as the body of module. known lists the module-level
// variables that already exist in the module.
func Compile(module, src string, known map[string]bool) (prog *Program, err *CompileError) {
	p := &parser{
		module:     module,
		toks:       Tokenize(src),
		moduleVars: make(map[string]bool, len(known)),
		forward:    make(map[string]Token),
	}
	for name := range known {
		p.moduleVars[name] = true
	}

	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(bailout); !ok {
				panic(r)
			}
			prog, err = nil, p.err
		}
	}()

	prog = &Program{Module: module}
	for {
		p.skipLines()
		if p.check(TokenEOF) {
			break
		}
		prog.Body = append(prog.Body, p.definition())
		if !p.check(TokenEOF) {
			p.consumeLine("Expect newline after statement.")
		}
	}

	if len(p.forward) > 0 {
		var first Token
		for _, t := range p.forward {
			if first.Lexeme == "" || t.Line < first.Line || (t.Line == first.Line && t.Lexeme < first.Lexeme) {
				first = t
			}
		}
		p.errorAt(first, "Variable is used but not defined.")
	}
	return prog, nil
}

func (p *parser) peek() Token     { return p.toks[p.pos] }
func (p *parser) previous() Token { return p.toks[p.pos-1] }

func (p *parser) check(t TokenType) bool { return p.peek().Type == t }

func (p *parser) advance() Token {
	t := p.toks[p.pos]
	if t.Type == TokenError {
		p.errorAt(t, t.Str)
	}
	if t.Type != TokenEOF {
		p.pos++
	}
	return t
}

func (p *parser) match(t TokenType) bool {
	if p.peek().Type == TokenError {
		p.advance()
	}
	if !p.check(t) {
		return false
	}
	p.advance()
	return true
}

func (p *parser) consume(t TokenType, msg string) Token {
	if p.peek().Type == TokenError {
		p.advance()
	}
	if !p.check(t) {
		p.errorAt(p.peek(), msg)
	}
	return p.advance()
}

func (p *parser) matchLine() bool {
	if !p.match(TokenLine) {
		return false
	}
	p.skipLines()
	return true
}

func (p *parser) skipLines() {
	for p.match(TokenLine) {
	}
}

func (p *parser) consumeLine(msg string) {
	p.consume(TokenLine, msg)
	p.skipLines()
}

func (p *parser) errorAt(t Token, msg string) {
	var label string
	switch t.Type {
	case TokenError:
		label = "Error"
	case TokenLine:
		label = "Error at newline"
	case TokenEOF:
		label = "Error at end of file"
	default:
		label = fmt.Sprintf("Error at '%s'", t.Lexeme)
	}
	p.err = &CompileError{Module: p.module, Line: t.Line, Message: label + ": " + msg}
	panic(bailout{})
}

func (p *parser) errorf(format string, args ...any) {
	p.errorAt(p.previous(), fmt.Sprintf(format, args...))
}

func (p *parser) pushScope(barrier bool) {
	p.scopes = append(p.scopes, &scope{names: make(map[string]bool), barrier: barrier})
}

func (p *parser) popScope() { p.scopes = p.scopes[:len(p.scopes)-1] }

func (p *parser) atModuleScope() bool { return len(p.scopes) == 0 }

func (p *parser) resolveLocal(name string) bool {
	for i := len(p.scopes) - 1; i >= 0; i-- {
		if p.scopes[i].names[name] {
			return true
		}
		if p.scopes[i].barrier {
			return false
		}
	}
	return false
}

// declare introduces name in the current scope and reports where it lives.
func (p *parser) declare(t Token) VarScope {
	name := t.Lexeme
	if p.atModuleScope() {
		if p.moduleVars[name] {
			p.errorAt(t, "Module variable is already defined.")
		}
		if first, ok := p.forward[name]; ok {
			delete(p.forward, name)
			if isLocalName(name) {
				p.errorAt(t, fmt.Sprintf("Variable '%s' referenced before this definition (first use at line %d).", name, first.Line))
			}
		}
		p.moduleVars[name] = true
		return ScopeModule
	}
	top := p.scopes[len(p.scopes)-1]
	if top.names[name] {
		p.errorAt(t, "Variable is already declared in this scope.")
	}
	top.names[name] = true
	return ScopeLocal
}

func (p *parser) enclosingClass() *classInfo {
	if len(p.classes) == 0 {
		return nil
	}
	return p.classes[len(p.classes)-1]
}

func isLocalName(name string) bool {
	return name != "" && name[0] >= 'a' && name[0] <= 'z'
}

func (p *parser) definition() Stmt {
	switch {
	case p.match(TokenClass):
		return p.classDefinition(false)
	case p.match(TokenForeign):
		p.consume(TokenClass, "Expect 'class' after 'foreign'.")
		return p.classDefinition(true)
	case p.match(TokenImport):
		return p.importStatement()
	case p.match(TokenVar):
		return p.varDefinition()
	}
	return p.statement()
}

func (p *parser) varDefinition() Stmt {
	name := p.consume(TokenName, "Expect variable name.")
	line := name.Line
	var init Expr = &NullLit{}
	if p.match(TokenEq) {
		p.skipLines()
		init = p.expression()
	}
	// Declare after the initializer so it cannot refer to itself.
	scope := p.declare(name)
	return &VarStmt{Name: name.Lexeme, Init: init, Scope: scope, Line: line}
}

func (p *parser) importStatement() Stmt {
	line := p.previous().Line
	p.skipLines()
	mod := p.consume(TokenString, "Expect a string after 'import'.")
	stmt := &ImportStmt{Module: mod.Str, Line: line}
	if p.match(TokenFor) {
		p.skipLines()
		for {
			name := p.consume(TokenName, "Expect variable name.")
			v := ImportVar{Name: name.Lexeme, Alias: name.Lexeme}
			target := name
			if p.match(TokenAs) {
				target = p.consume(TokenName, "Expect variable name.")
				v.Alias = target.Lexeme
			}
			stmt.Scope = p.declare(target)
			stmt.Vars = append(stmt.Vars, v)
			if !p.match(TokenComma) {
				break
			}
			p.skipLines()
		}
	}
	if p.atModuleScope() {
		stmt.Scope = ScopeModule
	}
	return stmt
}

func (p *parser) statement() Stmt {
	line := p.peek().Line
	switch {
	case p.match(TokenBreak):
		if p.loops == 0 {
			p.errorf("Cannot use 'break' outside of a loop.")
		}
		return &BreakStmt{Line: line}
	case p.match(TokenContinue):
		if p.loops == 0 {
			p.errorf("Cannot use 'continue' outside of a loop.")
		}
		return &ContinueStmt{Line: line}
	case p.match(TokenIf):
		p.consume(TokenLeftParen, "Expect '(' after 'if'.")
		p.skipLines()
		cond := p.expression()
		p.consume(TokenRightParen, "Expect ')' after if condition.")
		stmt := &IfStmt{Cond: cond, Then: p.controlBody(), Line: line}
		if p.checkElse() {
			stmt.Else = p.controlBody()
		}
		return stmt
	case p.match(TokenWhile):
		p.consume(TokenLeftParen, "Expect '(' after 'while'.")
		p.skipLines()
		cond := p.expression()
		p.consume(TokenRightParen, "Expect ')' after while condition.")
		p.loops++
		body := p.controlBody()
		p.loops--
		return &WhileStmt{Cond: cond, Body: body, Line: line}
	case p.match(TokenFor):
		p.consume(TokenLeftParen, "Expect '(' after 'for'.")
		name := p.consume(TokenName, "Expect for loop variable name.")
		p.consume(TokenIn, "Expect 'in' after loop variable.")
		p.skipLines()
		seq := p.expression()
		p.consume(TokenRightParen, "Expect ')' after loop expression.")
		p.pushScope(false)
		p.declare(name)
		p.loops++
		body := p.controlBody()
		p.loops--
		p.popScope()
		return &ForStmt{Var: name.Lexeme, Seq: seq, Body: body, Line: line}
	case p.match(TokenReturn):
		stmt := &ReturnStmt{Line: line}
		if !p.check(TokenLine) && !p.check(TokenRightBrace) && !p.check(TokenEOF) {
			stmt.Value = p.expression()
		}
		return stmt
	case p.match(TokenLeftBrace):
		p.pushScope(false)
		body, expr := p.finishBlock()
		p.popScope()
		if expr != nil {
			body = []Stmt{&ExprStmt{X: expr, Line: line}}
		}
		return &BlockStmt{Body: body}
	}
	return &ExprStmt{X: p.expression(), Line: line}
}

// checkElse consumes an "else", possibly on the following line.
func (p *parser) checkElse() bool {
	save := p.pos
	p.skipLines()
	if p.match(TokenElse) {
		return true
	}
	p.pos = save
	return false
}

// controlBody parses the body of if/while/for, which is either a block or a
// single statement in its own scope.
func (p *parser) controlBody() Stmt {
	p.pushScope(false)
	defer p.popScope()
	return p.statement()
}

// finishBlock parses the rest of a block after "{". A block whose first
// token is not a newline is a single expression, returned as expr.
func (p *parser) finishBlock() (body []Stmt, expr Expr) {
	if p.match(TokenRightBrace) {
		return nil, nil
	}
	if !p.matchLine() {
		expr = p.expression()
		p.consume(TokenRightBrace, "Expect '}' at end of block.")
		return nil, expr
	}
	for !p.check(TokenRightBrace) {
		if p.check(TokenEOF) {
			p.errorAt(p.peek(), "Expect '}' at end of block.")
		}
		body = append(body, p.definition())
		if !p.check(TokenRightBrace) {
			p.consumeLine("Expect newline after statement.")
		}
	}
	p.consume(TokenRightBrace, "Expect '}' at end of block.")
	return body, nil
}

func (p *parser) classDefinition(foreign bool) Stmt {
	line := p.previous().Line
	name := p.consume(TokenName, "Expect class name.")
	stmt := &ClassStmt{Name: name.Lexeme, Foreign: foreign, Line: line}
	stmt.Scope = p.declare(name)

	if p.match(TokenIs) {
		stmt.Superclass = p.parsePrecedence(precCall)
	}

	info := &classInfo{name: name.Lexeme, foreign: foreign}
	p.classes = append(p.classes, info)
	defer func() { p.classes = p.classes[:len(p.classes)-1] }()

	p.skipLines()
	p.consume(TokenLeftBrace, "Expect '{' after class declaration.")
	p.matchLine()

	seen := make(map[string]bool)
	for !p.match(TokenRightBrace) {
		m := p.method(info)
		key := m.Signature
		if m.Static {
			key = "static " + key
		}
		if seen[key] {
			p.errorAt(m.name, fmt.Sprintf("Class %s already defines a %smethod '%s'.", name.Lexeme, staticPrefix(m.Static), m.Signature))
		}
		seen[key] = true
		stmt.Methods = append(stmt.Methods, m)

		// Don't require a newline after the last definition.
		if p.match(TokenRightBrace) {
			break
		}
		p.consumeLine("Expect newline after definition in class.")
	}
	return stmt
}

func staticPrefix(static bool) string {
	if static {
		return "static "
	}
	return ""
}

func (p *parser) method(info *classInfo) *MethodDecl {
	m := &MethodDecl{Line: p.peek().Line}
	m.Foreign = p.match(TokenForeign)
	m.Static = p.match(TokenStatic)
	if p.match(TokenConstruct) {
		if m.Static {
			p.errorf("Constructors cannot be static.")
		}
		m.Construct = true
	}

	m.name = p.peek()
	name, params := p.signature(m.Construct)
	m.Params = params
	m.Signature = name
	if m.Construct {
		m.Signature = "init " + name
	}

	info.inStatic = m.Static
	info.method = signatureName(m.Signature)

	if m.Foreign {
		if m.Construct {
			p.errorf("Constructors cannot be foreign.")
		}
		return m
	}

	p.consume(TokenLeftBrace, "Expect '{' to begin method body.")
	m.Body = p.functionBody(params, true, staticPrefix(m.Static)+info.name+"."+m.Signature, m.Line)
	return m
}

// signature parses a method signature in a class body and returns the
// signature string and the parameter names.
func (p *parser) signature(construct bool) (string, []string) {
	t := p.advance()
	switch t.Type {
	case TokenName:
		name := t.Lexeme
		if construct {
			params := p.parameterList(true)
			return buildSignature(name, len(params), true), params
		}
		if p.match(TokenEq) {
			p.consume(TokenLeftParen, "Expect '(' after '='.")
			v := p.consume(TokenName, "Expect variable name.")
			p.consume(TokenRightParen, "Expect ')' after parameter name.")
			return name + "=(_)", []string{v.Lexeme}
		}
		if p.check(TokenLeftParen) {
			params := p.parameterList(true)
			return buildSignature(name, len(params), true), params
		}
		return name, nil

	case TokenLeftBracket:
		var params []string
		for {
			params = append(params, p.consume(TokenName, "Expect variable name.").Lexeme)
			if !p.match(TokenComma) {
				break
			}
		}
		p.consume(TokenRightBracket, "Expect ']' after parameters.")
		sig := "[" + underscores(len(params)) + "]"
		if p.match(TokenEq) {
			p.consume(TokenLeftParen, "Expect '(' after '='.")
			v := p.consume(TokenName, "Expect variable name.")
			p.consume(TokenRightParen, "Expect ')' after parameter name.")
			return sig + "=(_)", append(params, v.Lexeme)
		}
		return sig, params

	case TokenMinus, TokenBang, TokenTilde:
		if t.Type == TokenMinus && p.check(TokenLeftParen) {
			params := p.parameterList(true)
			if len(params) != 1 {
				p.errorf("Expect one parameter for infix operator.")
			}
			return "-(_)", params
		}
		return t.Lexeme, nil

	case TokenPlus, TokenStar, TokenSlash, TokenPercent, TokenLt, TokenGt,
		TokenLtEq, TokenGtEq, TokenEqEq, TokenBangEq, TokenAmp, TokenPipe,
		TokenCaret, TokenLtLt, TokenGtGt, TokenDotDot, TokenDotDotDot, TokenIs:
		params := p.parameterList(true)
		if len(params) != 1 {
			p.errorf("Expect one parameter for infix operator.")
		}
		return t.Lexeme + "(_)", params
	}
	p.errorAt(t, "Expect method definition.")
	return "", nil
}

func (p *parser) parameterList(required bool) []string {
	if !p.match(TokenLeftParen) {
		if required {
			p.errorAt(p.peek(), "Expect '(' after method name.")
		}
		return nil
	}
	var params []string
	if p.match(TokenRightParen) {
		return params
	}
	for {
		p.skipLines()
		params = append(params, p.consume(TokenName, "Expect parameter name.").Lexeme)
		if len(params) > maxParameters {
			p.errorf("Methods cannot have more than %d parameters.", maxParameters)
		}
		if !p.match(TokenComma) {
			break
		}
	}
	p.skipLines()
	p.consume(TokenRightParen, "Expect ')' after parameters.")
	return params
}

// functionBody parses a body after "{" with its own parameter scope.
func (p *parser) functionBody(params []string, barrier bool, name string, line int) *FnExpr {
	p.pushScope(barrier)
	loops := p.loops
	p.loops = 0
	defer func() {
		p.popScope()
		p.loops = loops
	}()
	for _, param := range params {
		p.scopes[len(p.scopes)-1].names[param] = true
	}
	fn := &FnExpr{Params: params, Name: name, Line: line}
	fn.Body, fn.ExprBody = p.finishBlock()
	return fn
}

func underscores(n int) string {
	return strings.TrimSuffix(strings.Repeat("_,", n), ",")
}

// buildSignature returns name(_,...) for a call or method with n arguments.
// A getter (no parentheses) is just the name.
func buildSignature(name string, n int, parens bool) string {
	if !parens && n == 0 {
		return name
	}
	return name + "(" + underscores(n) + ")"
}

// signatureName strips the parameter list from a signature.
func signatureName(sig string) string {
	if i := strings.IndexAny(sig, "(=["); i > 0 {
		return sig[:i]
	}
	return sig
}

// SignatureArity counts the parameters in a signature.
func SignatureArity(sig string) int {
	i := strings.IndexAny(sig, "([")
	if i < 0 {
		return 0
	}
	return strings.Count(sig[i:], "_")
}

func (p *parser) expression() Expr { return p.parsePrecedence(precLowest) }

func (p *parser) parsePrecedence(prec precedence) Expr {
	t := p.advance()
	canAssign := prec <= precConditional
	left := p.prefix(t, canAssign)
	for {
		ip, ok := infixPrecedence[p.peek().Type]
		if !ok || prec > ip {
			break
		}
		op := p.advance()
		left = p.infix(op, left, canAssign)
	}
	return left
}

func (p *parser) prefix(t Token, canAssign bool) Expr {
	switch t.Type {
	case TokenLeftParen:
		p.skipLines()
		e := p.expression()
		p.skipLines()
		p.consume(TokenRightParen, "Expect ')' after expression.")
		return e
	case TokenLeftBracket:
		return p.listLiteral(t.Line)
	case TokenLeftBrace:
		return p.mapLiteral(t.Line)
	case TokenMinus, TokenBang, TokenTilde:
		p.skipLines()
		operand := p.parsePrecedence(precUnary + 1)
		return &CallExpr{Receiver: operand, Signature: t.Lexeme, Line: t.Line}
	case TokenNumber:
		return &NumberLit{Value: t.Num}
	case TokenString:
		return &StringLit{Value: t.Str}
	case TokenInterpolation:
		return p.interpolation(t)
	case TokenTrue:
		return &BoolLit{Value: true}
	case TokenFalse:
		return &BoolLit{Value: false}
	case TokenNull:
		return &NullLit{}
	case TokenThis:
		if p.enclosingClass() == nil {
			p.errorAt(t, "Cannot use 'this' outside of a method.")
		}
		return &ThisExpr{Line: t.Line}
	case TokenField, TokenStaticField:
		return p.field(t, canAssign)
	case TokenSuper:
		return p.superCall(t, canAssign)
	case TokenName:
		return p.name(t, canAssign)
	}
	p.errorAt(t, "Expected expression.")
	return nil
}

func (p *parser) infix(op Token, left Expr, canAssign bool) Expr {
	switch op.Type {
	case TokenDot:
		p.skipLines()
		name := p.consume(TokenName, "Expect method name after '.'.")
		return p.namedCall(left, name, canAssign)
	case TokenLeftBracket:
		p.skipLines()
		var args []Expr
		for {
			p.skipLines()
			args = append(args, p.expression())
			if !p.match(TokenComma) {
				break
			}
		}
		p.skipLines()
		p.consume(TokenRightBracket, "Expect ']' after arguments.")
		sig := "[" + underscores(len(args)) + "]"
		if canAssign && p.match(TokenEq) {
			p.skipLines()
			value := p.expression()
			return &CallExpr{Receiver: left, Signature: sig + "=(_)", Args: append(args, value), Line: op.Line}
		}
		return &CallExpr{Receiver: left, Signature: sig, Args: args, Line: op.Line}
	case TokenQuestion:
		p.skipLines()
		then := p.parsePrecedence(precConditional)
		p.skipLines()
		p.consume(TokenColon, "Expect ':' after then branch of conditional operator.")
		p.skipLines()
		els := p.parsePrecedence(precAssignment)
		return &ConditionalExpr{Cond: left, Then: then, Else: els}
	case TokenPipePipe, TokenAmpAmp:
		p.skipLines()
		right := p.parsePrecedence(infixPrecedence[op.Type] + 1)
		return &LogicalExpr{And: op.Type == TokenAmpAmp, Left: left, Right: right}
	}
	// Binary operator, compiled as a method call on the left operand.
	p.skipLines()
	right := p.parsePrecedence(infixPrecedence[op.Type] + 1)
	return &CallExpr{Receiver: left, Signature: op.Lexeme + "(_)", Args: []Expr{right}, Line: op.Line}
}

func (p *parser) listLiteral(line int) Expr {
	lit := &ListLit{Line: line}
	for {
		p.skipLines()
		if p.check(TokenRightBracket) {
			break
		}
		lit.Elements = append(lit.Elements, p.expression())
		p.skipLines()
		if !p.match(TokenComma) {
			break
		}
	}
	p.skipLines()
	p.consume(TokenRightBracket, "Expect ']' after list elements.")
	return lit
}

func (p *parser) mapLiteral(line int) Expr {
	lit := &MapLit{Line: line}
	for {
		p.skipLines()
		if p.check(TokenRightBrace) {
			break
		}
		lit.Keys = append(lit.Keys, p.parsePrecedence(precUnary))
		p.consume(TokenColon, "Expect ':' after map key.")
		p.skipLines()
		lit.Values = append(lit.Values, p.expression())
		p.skipLines()
		if !p.match(TokenComma) {
			break
		}
	}
	p.skipLines()
	p.consume(TokenRightBrace, "Expect '}' after map entries.")
	return lit
}

func (p *parser) interpolation(first Token) Expr {
	e := &InterpolationExpr{Line: first.Line}
	t := first
	for {
		if t.Str != "" {
			e.Parts = append(e.Parts, &StringLit{Value: t.Str})
		}
		p.skipLines()
		e.Parts = append(e.Parts, p.expression())
		p.skipLines()
		if p.check(TokenInterpolation) {
			t = p.advance()
			continue
		}
		last := p.consume(TokenString, "Expect end of string interpolation.")
		if last.Str != "" {
			e.Parts = append(e.Parts, &StringLit{Value: last.Str})
		}
		return e
	}
}

func (p *parser) field(t Token, canAssign bool) Expr {
	static := t.Type == TokenStaticField
	class := p.enclosingClass()
	switch {
	case class == nil:
		p.errorAt(t, "Cannot reference a field outside of a class definition.")
	case !static && class.foreign:
		p.errorAt(t, "Cannot define fields in a foreign class.")
	case !static && class.inStatic:
		p.errorAt(t, "Cannot use an instance field in a static method.")
	}
	if canAssign && p.match(TokenEq) {
		p.skipLines()
		return &FieldAssignExpr{Name: t.Lexeme, Static: static, Value: p.expression(), Line: t.Line}
	}
	return &FieldExpr{Name: t.Lexeme, Static: static, Line: t.Line}
}

func (p *parser) superCall(t Token, canAssign bool) Expr {
	class := p.enclosingClass()
	if class == nil {
		p.errorAt(t, "Cannot use 'super' outside of a method.")
	}
	if p.match(TokenDot) {
		name := p.consume(TokenName, "Expect method name after 'super.'.")
		call := p.namedCall(nil, name, canAssign).(*CallExpr)
		call.Super = true
		return call
	}
	// A bare super call invokes the superclass method with the same name.
	args, block, parens := p.callArguments()
	if block != nil {
		args = append(args, block)
	}
	return &CallExpr{
		Signature: buildSignature(class.method, len(args), parens || block != nil),
		Args:      args,
		Super:     true,
		Line:      t.Line,
	}
}

func (p *parser) name(t Token, canAssign bool) Expr {
	name := t.Lexeme
	if p.resolveLocal(name) {
		if canAssign && p.match(TokenEq) {
			p.skipLines()
			return &AssignExpr{Name: name, Scope: ScopeLocal, Value: p.expression(), Line: t.Line}
		}
		return &VariableExpr{Name: name, Scope: ScopeLocal, Line: t.Line}
	}

	if isLocalName(name) && p.enclosingClass() != nil {
		return p.namedCall(nil, t, canAssign)
	}

	if !p.moduleVars[name] {
		if _, ok := p.forward[name]; !ok {
			p.forward[name] = t
		}
	}
	if canAssign && p.match(TokenEq) {
		p.skipLines()
		return &AssignExpr{Name: name, Scope: ScopeModule, Value: p.expression(), Line: t.Line}
	}
	return &VariableExpr{Name: name, Scope: ScopeModule, Line: t.Line}
}

// callArguments parses an optional "(...)" argument list and an optional
// block argument.
func (p *parser) callArguments() (args []Expr, block *FnExpr, parens bool) {
	if p.match(TokenLeftParen) {
		parens = true
		p.skipLines()
		if !p.match(TokenRightParen) {
			for {
				p.skipLines()
				args = append(args, p.expression())
				if len(args) > maxParameters {
					p.errorf("Methods cannot have more than %d parameters.", maxParameters)
				}
				if !p.match(TokenComma) {
					break
				}
			}
			p.skipLines()
			p.consume(TokenRightParen, "Expect ')' after arguments.")
		}
	}
	if p.match(TokenLeftBrace) {
		block = p.blockArgument()
	}
	return args, block, parens
}

func (p *parser) blockArgument() *FnExpr {
	line := p.previous().Line
	var params []string
	if p.match(TokenPipe) {
		for {
			params = append(params, p.consume(TokenName, "Expect parameter name.").Lexeme)
			if !p.match(TokenComma) {
				break
			}
		}
		p.consume(TokenPipe, "Expect '|' after function parameters.")
	}
	return p.functionBody(params, false, "", line)
}

// namedCall parses the rest of a call after the method name.
func (p *parser) namedCall(recv Expr, name Token, canAssign bool) Expr {
	if canAssign && p.check(TokenEq) {
		p.advance()
		p.skipLines()
		value := p.expression()
		return &CallExpr{Receiver: recv, Signature: name.Lexeme + "=(_)", Args: []Expr{value}, Line: name.Line}
	}
	args, block, parens := p.callArguments()
	sig := buildSignature(name.Lexeme, len(args), parens)
	if block != nil {
		n := len(args) + 1
		sig = buildSignature(name.Lexeme, n, true)
		block.Name = sig + " block argument"
		args = append(args, block)
	}
	return &CallExpr{Receiver: recv, Signature: sig, Args: args, Line: name.Line}
}
