package engine

// Expr is an expression node.
type Expr interface{ exprNode() }

// Stmt is a statement node.
type Stmt interface{ stmtNode() }

// VarScope says where a named variable lives.
type VarScope int

const (
	ScopeLocal VarScope = iota
	ScopeModule
)

type (
	NumberLit struct{ Value float64 }
	StringLit struct{ Value string }
	BoolLit   struct{ Value bool }
	NullLit   struct{}
	ThisExpr  struct{ Line int }

	// InterpolationExpr concatenates Parts; string parts are StringLit.
	InterpolationExpr struct {
		Parts []Expr
		Line  int
	}

	ListLit struct {
		Elements []Expr
		Line     int
	}

	MapLit struct {
		Keys   []Expr
		Values []Expr
		Line   int
	}

	VariableExpr struct {
		Name  string
		Scope VarScope
		Line  int
	}

	AssignExpr struct {
		Name  string
		Scope VarScope
		Value Expr
		Line  int
	}

	FieldExpr struct {
		Name   string
		Static bool
		Line   int
	}

	FieldAssignExpr struct {
		Name   string
		Static bool
		Value  Expr
		Line   int
	}

	// CallExpr is a method call. A nil Receiver means "this". Signature is
	// the full Wren signature, e.g. "add(_,_)", "count", "x=(_)", "[_]".
	CallExpr struct {
		Receiver  Expr
		Signature string
		Args      []Expr
		Super     bool
		Line      int
	}

	LogicalExpr struct {
		And         bool
		Left, Right Expr
	}

	ConditionalExpr struct {
		Cond, Then, Else Expr
	}

	FnExpr struct {
		Params []string
		Body   []Stmt
		// ExprBody is set for single-expression bodies.
		ExprBody Expr
		Name     string
		Line     int
	}
)

func (*NumberLit) exprNode()         {}
func (*StringLit) exprNode()         {}
func (*BoolLit) exprNode()           {}
func (*NullLit) exprNode()           {}
func (*ThisExpr) exprNode()          {}
func (*InterpolationExpr) exprNode() {}
func (*ListLit) exprNode()           {}
func (*MapLit) exprNode()            {}
func (*VariableExpr) exprNode()      {}
func (*AssignExpr) exprNode()        {}
func (*FieldExpr) exprNode()         {}
func (*FieldAssignExpr) exprNode()   {}
func (*CallExpr) exprNode()          {}
func (*LogicalExpr) exprNode()       {}
func (*ConditionalExpr) exprNode()   {}
func (*FnExpr) exprNode()            {}

type (
	ExprStmt struct {
		X    Expr
		Line int
	}

	VarStmt struct {
		Name  string
		Init  Expr
		Scope VarScope
		Line  int
	}

	BlockStmt struct{ Body []Stmt }

	IfStmt struct {
		Cond Expr
		Then Stmt
		Else Stmt
		Line int
	}

	WhileStmt struct {
		Cond Expr
		Body Stmt
		Line int
	}

	ForStmt struct {
		Var  string
		Seq  Expr
		Body Stmt
		Line int
	}

	BreakStmt    struct{ Line int }
	ContinueStmt struct{ Line int }

	ReturnStmt struct {
		Value Expr
		Line  int
	}

	ClassStmt struct {
		Name       string
		Superclass Expr
		Foreign    bool
		Methods    []*MethodDecl
		Scope      VarScope
		Line       int
	}

	ImportVar struct {
		Name  string
		Alias string
	}

	ImportStmt struct {
		Module string
		Vars   []ImportVar
		Scope  VarScope
		Line   int
	}
)

func (*ExprStmt) stmtNode()     {}
func (*VarStmt) stmtNode()      {}
func (*BlockStmt) stmtNode()    {}
func (*IfStmt) stmtNode()       {}
func (*WhileStmt) stmtNode()    {}
func (*ForStmt) stmtNode()      {}
func (*BreakStmt) stmtNode()    {}
func (*ContinueStmt) stmtNode() {}
func (*ReturnStmt) stmtNode()   {}
func (*ClassStmt) stmtNode()    {}
func (*ImportStmt) stmtNode()   {}

// MethodDecl is one method in a class body.
type MethodDecl struct {
	Signature string
	Static    bool
	Foreign   bool
	Construct bool
	Params    []string
	Body      *FnExpr
	Line      int

	name Token
}

// Program is a compiled module body.
type Program struct {
	Module string
	Body   []Stmt
}
