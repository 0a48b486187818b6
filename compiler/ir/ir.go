package ir

import (
	"github.com/slowlang/tl/compiler/tp"
)

type (
	// Value is an operand: a constant, string data, a parameter or an instruction result.
	Value interface {
		Type() tp.Type
	}

	// Storage is an addressable variable.
	Storage interface {
		Type() tp.Type
		Ident() string
	}

	// Func is a declared function.
	Func interface {
		Ident() string
		Sig() tp.Func
	}

	Op string

	Const struct {
		T     tp.Type
		Int   int64
		Float float64
	}

	// StringRef is a pointer to the first byte of module string data.
	StringRef struct {
		Index int
	}

	// VoidValue is the result of a call to a void function.
	VoidValue struct{}

	Reg struct {
		ID int
		T  tp.Type
	}

	Param struct {
		Index int
		Name  string
		T     tp.Type
	}

	Local struct {
		Name string
		ID   int
		T    tp.Type
	}

	Global struct {
		Name string
		Sym  string
		T    tp.Type

		Init   Value // Const, StringRef or nil for zero
		Extern bool
	}

	Function struct {
		Name      string
		Signature tp.Func

		Params []*Param
		Blocks []*Block

		Defined bool

		regs   int
		locals int
	}

	Block struct {
		Label string
		Code  []Instr
	}

	Instr interface {
		instr()
	}

	Alloca struct {
		L *Local
	}

	Load struct {
		Dst *Reg
		Src Storage
	}

	Store struct {
		Val Value
		Dst Storage
	}

	BinOp struct {
		Dst  *Reg
		Code string // add, fadd, sdiv, ...
		L, R Value
	}

	Negate struct {
		Dst *Reg
		X   Value
	}

	Conv struct {
		Dst  *Reg
		Code string // sext, sitofp, fpext
		X    Value
	}

	Call struct {
		Dst  *Reg // nil for void
		F    *Function
		Args []Value
	}

	Ret struct {
		X Value // nil for void
	}

	Unreachable struct{}
)

const (
	Add Op = "add"
	Sub Op = "sub"
	Mul Op = "mul"
	Div Op = "div"

	Pos Op = "pos"
	Neg Op = "neg"
)

func (x Const) Type() tp.Type     { return x.T }
func (x StringRef) Type() tp.Type { return tp.String }
func (x VoidValue) Type() tp.Type { return tp.Void{} }
func (x *Reg) Type() tp.Type      { return x.T }
func (x *Param) Type() tp.Type    { return x.T }

func (x *Local) Type() tp.Type  { return x.T }
func (x *Global) Type() tp.Type { return x.T }

func (x *Local) Ident() string  { return x.Name }
func (x *Global) Ident() string { return x.Sym }

func (f *Function) Ident() string { return f.Name }
func (f *Function) Sig() tp.Func  { return f.Signature }

func (f *Function) Entry() *Block {
	if len(f.Blocks) == 0 {
		return nil
	}

	return f.Blocks[0]
}

func (b *Block) Terminated() bool {
	if len(b.Code) == 0 {
		return false
	}

	switch b.Code[len(b.Code)-1].(type) {
	case Ret, Unreachable:
		return true
	}

	return false
}

func (Alloca) instr()      {}
func (Load) instr()        {}
func (Store) instr()       {}
func (BinOp) instr()       {}
func (Negate) instr()      {}
func (Conv) instr()        {}
func (Call) instr()        {}
func (Ret) instr()         {}
func (Unreachable) instr() {}
