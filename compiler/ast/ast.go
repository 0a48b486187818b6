package ast

import (
	"fmt"
	"strings"

	"github.com/slowlang/tl/compiler/token"
)

type (
	Node interface {
		Position() token.Pos
		String() string

		node()
	}

	Op int

	Base struct {
		Row int
		Col int
	}

	IntLit struct {
		Base `tlog:",embed"`

		Text string
	}

	FloatLit struct {
		Base `tlog:",embed"`

		Text string
	}

	// CharLit holds the decoded character.
	CharLit struct {
		Base `tlog:",embed"`

		Text string
	}

	// StringLit holds the decoded string.
	StringLit struct {
		Base `tlog:",embed"`

		Text string
	}

	Ident struct {
		Base `tlog:",embed"`

		Name string
	}

	// TypeName is one of the primitive type names: int, float, char, string, void.
	TypeName struct {
		Base `tlog:",embed"`

		Name string
	}

	BinaryOp struct {
		Base `tlog:",embed"`

		Op    Op
		Left  Node
		Right Node
	}

	// UnaryOp is Pos, Neg, Return, Declare, DeclareConst or Import of a single child.
	UnaryOp struct {
		Base `tlog:",embed"`

		Op Op
		X  Node
	}

	TypeAnnotated struct {
		Base `tlog:",embed"`

		Target Node
		Type   *TypeName
	}

	Assignment struct {
		Base `tlog:",embed"`

		Target Node
		Value  Node
	}

	// FuncDef is a function definition. Nil Body is a prototype.
	FuncDef struct {
		Base `tlog:",embed"`

		Name     *Ident
		Params   []*TypeAnnotated
		Variadic bool
		Return   *TypeName
		Body     *StmtSeq
	}

	FuncCall struct {
		Base `tlog:",embed"`

		Callee *Ident
		Args   []Node
	}

	StmtSeq struct {
		Base `tlog:",embed"`

		Stmts []Node
	}

	Empty struct {
		Base `tlog:",embed"`
	}
)

const (
	Add Op = iota
	Sub
	Mul
	Div

	Pos
	Neg

	Return
	Declare
	DeclareConst
	Import
)

var opNames = [...]string{
	Add: "Add",
	Sub: "Sub",
	Mul: "Mul",
	Div: "Div",

	Pos: "Pos",
	Neg: "Neg",

	Return:       "Return",
	Declare:      "Declare",
	DeclareConst: "DeclareConst",
	Import:       "Import",
}

func At(t token.Token) Base {
	return Base{Row: t.Row, Col: t.Col}
}

func (b Base) Position() token.Pos { return token.Pos{Row: b.Row, Col: b.Col} }

func (Base) node() {}

func (op Op) String() string {
	if op >= 0 && int(op) < len(opNames) {
		return opNames[op]
	}

	return fmt.Sprintf("Op(%d)", int(op))
}

// Arith reports whether op is an arithmetic operator.
func (op Op) Arith() bool {
	return op <= Neg
}

func (n *IntLit) String() string    { return "IntLiteral(" + n.Text + ")" }
func (n *FloatLit) String() string  { return "FloatLiteral(" + n.Text + ")" }
func (n *CharLit) String() string   { return "CharLiteral(" + token.Quote(n.Text, '\'') + ")" }
func (n *StringLit) String() string { return "StringLiteral(" + token.Quote(n.Text, '"') + ")" }
func (n *Ident) String() string     { return "Identifier(" + n.Name + ")" }
func (n *TypeName) String() string  { return "TypeName(" + n.Name + ")" }
func (n *Empty) String() string     { return "Empty" }

func (n *BinaryOp) String() string {
	return call(n.Op.String(), n.Left, n.Right)
}

func (n *UnaryOp) String() string {
	return call(n.Op.String(), n.X)
}

func (n *TypeAnnotated) String() string {
	return call("TypeAnnotated", n.Target, n.Type)
}

func (n *Assignment) String() string {
	return call("Assignment", n.Target, n.Value)
}

func (n *FuncDef) String() string {
	params := make([]Node, len(n.Params))
	for i, p := range n.Params {
		params[i] = p
	}

	ps := call("Params", params...)
	if n.Variadic {
		ps = strings.TrimSuffix(ps, ")")

		if len(params) != 0 {
			ps += ", "
		}

		ps += "...)"
	}

	var body Node = &Empty{}
	if n.Body != nil {
		body = n.Body
	}

	return fmt.Sprintf("FunctionDef(%v, %s, %v, %v)", n.Name, ps, n.Return, body)
}

func (n *FuncCall) String() string {
	return call("FunctionCall", append([]Node{n.Callee}, n.Args...)...)
}

func (n *StmtSeq) String() string {
	return call("StatementSeq", n.Stmts...)
}

func call(name string, args ...Node) string {
	var b strings.Builder

	b.WriteString(name)
	b.WriteByte('(')

	for i, a := range args {
		if i != 0 {
			b.WriteString(", ")
		}

		if a == nil {
			b.WriteString("<nil>")
			continue
		}

		b.WriteString(a.String())
	}

	b.WriteByte(')')

	return b.String()
}
