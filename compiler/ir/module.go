package ir

import (
	"fmt"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/tl/compiler/tp"
)

type (
	// Module builds the IR of one compilation unit.
	// Code emitted at top level goes to the implicit Init function.
	Module struct {
		Name string

		Strings []string
		Globals []*Global
		Funcs   []*Function

		Init *Function

		strs  map[string]int
		syms  map[string]int
		funcs map[string]*Function

		cur *Function

		finished bool
	}
)

func NewModule(name string) *Module {
	return &Module{
		Name:  name,
		strs:  map[string]int{},
		syms:  map[string]int{},
		funcs: map[string]*Function{},
	}
}

func (m *Module) IntConst(bits int, v int64) Value {
	return Const{T: tp.Int{Bits: int16(bits), Signed: true}, Int: v}
}

func (m *Module) FloatConst(v float64) Value {
	return Const{T: tp.F32, Float: v}
}

func (m *Module) CharConst(c byte) Value {
	return Const{T: tp.I8, Int: int64(c)}
}

func (m *Module) StringConst(s string) Value {
	if i, ok := m.strs[s]; ok {
		return StringRef{Index: i}
	}

	i := len(m.Strings)
	m.Strings = append(m.Strings, s)
	m.strs[s] = i

	return StringRef{Index: i}
}

func (m *Module) PrimitiveType(name string) (tp.Type, bool) {
	return tp.Primitive(name)
}

// DeclareGlobal defines a module global.
// Constant initializers are stored inline, others are stored by the Init function.
func (m *Module) DeclareGlobal(name string, t tp.Type, init Value) Storage {
	g := &Global{Name: name, Sym: m.symbol(name), T: t}
	m.Globals = append(m.Globals, g)

	switch init.(type) {
	case Const, StringRef:
		g.Init = init
	case nil:
	default:
		m.Store(init, g)
	}

	return g
}

// DeclareExternGlobal declares a global defined in another module.
func (m *Module) DeclareExternGlobal(name string, t tp.Type) Storage {
	for _, g := range m.Globals {
		if g.Extern && g.Name == name && tp.Equal(g.T, t) {
			return g
		}
	}

	g := &Global{Name: name, Sym: name, T: t, Extern: true}
	m.syms[name]++
	m.Globals = append(m.Globals, g)

	return g
}

func (m *Module) DeclareLocal(name string, t tp.Type) Storage {
	f := m.fn()

	l := &Local{Name: name, ID: f.locals, T: t}
	f.locals++

	entry := f.Entry()

	n := 0
	for n < len(entry.Code) {
		if _, ok := entry.Code[n].(Alloca); !ok {
			break
		}

		n++
	}

	entry.Code = append(entry.Code, nil)
	copy(entry.Code[n+1:], entry.Code[n:])
	entry.Code[n] = Alloca{L: l}

	return l
}

func (m *Module) Load(s Storage) Value {
	dst := m.fn().reg(s.Type())

	m.emit(Load{Dst: dst, Src: s})

	return dst
}

func (m *Module) Store(v Value, s Storage) {
	m.emit(Store{Val: v, Dst: s})
}

// Binary emits an arithmetic instruction.
// The integer form sign-extends the narrower operand,
// the floating form converts integer operands.
func (m *Module) Binary(op Op, isInt bool, l, r Value) Value {
	var code string

	if isInt {
		l, r = m.widen(l, r)

		code = map[Op]string{Add: "add", Sub: "sub", Mul: "mul", Div: "sdiv"}[op]
	} else {
		l, r = m.toFloat(l), m.toFloat(r)

		code = map[Op]string{Add: "fadd", Sub: "fsub", Mul: "fmul", Div: "fdiv"}[op]
	}

	dst := m.fn().reg(l.Type())

	m.emit(BinOp{Dst: dst, Code: code, L: l, R: r})

	return dst
}

func (m *Module) Unary(op Op, isInt bool, x Value) Value {
	if !isInt {
		x = m.toFloat(x)
	}

	if op == Pos {
		return x
	}

	dst := m.fn().reg(x.Type())

	m.emit(Negate{Dst: dst, X: x})

	return dst
}

// DeclareFunc returns the function with the given name, declaring its prototype first if needed.
func (m *Module) DeclareFunc(name string, params []tp.Type, ret tp.Type, variadic bool) Func {
	if f, ok := m.funcs[name]; ok {
		return f
	}

	f := &Function{
		Name: name,
		Signature: tp.Func{
			In:       append([]tp.Type{}, params...),
			Out:      ret,
			Variadic: variadic,
		},
	}

	for i, t := range params {
		f.Params = append(f.Params, &Param{Index: i, Name: fmt.Sprintf("p%d", i), T: t})
	}

	m.claim(name)

	m.funcs[name] = f
	m.Funcs = append(m.Funcs, f)

	return f
}

func (m *Module) BeginBody(f Func) {
	fn := f.(*Function)

	fn.Defined = true
	fn.Blocks = []*Block{{Label: "entry"}}

	m.cur = fn
}

// Param returns the incoming argument i of f and names it.
func (m *Module) Param(f Func, i int, name string) Value {
	p := f.(*Function).Params[i]

	if name != "" {
		p.Name = name
	}

	return p
}

// EndBody closes the function body and verifies it.
func (m *Module) EndBody(f Func) error {
	fn := f.(*Function)

	if m.cur == fn {
		m.cur = nil
	}

	return verify(fn)
}

func (m *Module) Call(f Func, args []Value) Value {
	fn := f.(*Function)
	sig := fn.Signature

	args = append([]Value{}, args...)

	for i := len(sig.In); i < len(args); i++ {
		args[i] = m.promote(args[i])
	}

	c := Call{F: fn, Args: args}

	if !tp.IsVoid(sig.Out) {
		c.Dst = m.fn().reg(sig.Out)
	}

	m.emit(c)

	if c.Dst == nil {
		return VoidValue{}
	}

	return c.Dst
}

// Return emits a return of v, nil for void.
func (m *Module) Return(v Value) {
	if _, ok := v.(VoidValue); ok {
		v = nil
	}

	m.emit(Ret{X: v})
}

// Finish closes the Init function. No code may be emitted after it.
func (m *Module) Finish() error {
	if m.finished {
		return nil
	}

	if m.cur != nil {
		return errors.New("body of function %s is not closed", m.cur.Name)
	}

	if m.Init != nil {
		err := verify(m.Init)
		if err != nil {
			return errors.Wrap(err, "init")
		}
	}

	m.finished = true

	return nil
}

func (m *Module) Finished() bool { return m.finished }

// Lookup returns the declared function with the given name.
func (m *Module) Lookup(name string) *Function {
	return m.funcs[name]
}

func (m *Module) fn() *Function {
	if m.cur != nil {
		return m.cur
	}

	if m.Init == nil {
		m.Init = &Function{
			Name:      m.symbol("tl.init." + m.Name),
			Signature: tp.Func{Out: tp.Void{}},
			Blocks:    []*Block{{Label: "entry"}},
			Defined:   true,
		}
	}

	return m.Init
}

func (m *Module) emit(x Instr) {
	if m.finished {
		panic("emit into finished module")
	}

	f := m.fn()
	b := f.Blocks[len(f.Blocks)-1]

	if b.Terminated() {
		b = &Block{Label: fmt.Sprintf("bb%d", len(f.Blocks))}
		f.Blocks = append(f.Blocks, b)
	}

	b.Code = append(b.Code, x)

	if tlog.If("ir") {
		tlog.Printw("emit", "func", f.Name, "block", b.Label, "instr", fmt.Sprintf("%T", x))
	}
}

func (m *Module) widen(l, r Value) (Value, Value) {
	lt, lok := l.Type().(tp.Int)
	rt, rok := r.Type().(tp.Int)

	if !lok || !rok || lt.Bits == rt.Bits {
		return l, r
	}

	if lt.Bits < rt.Bits {
		return m.conv("sext", l, rt), r
	}

	return l, m.conv("sext", r, lt)
}

func (m *Module) toFloat(x Value) Value {
	if !tp.IsInteger(x.Type()) {
		return x
	}

	return m.conv("sitofp", x, tp.F32)
}

// promote applies C default argument promotions to variadic arguments.
func (m *Module) promote(x Value) Value {
	switch t := x.Type().(type) {
	case tp.Float:
		if t.Bits < 64 {
			return m.conv("fpext", x, tp.Float{Bits: 64})
		}
	case tp.Int:
		if t.Bits < 32 {
			return m.conv("sext", x, tp.I32)
		}
	}

	return x
}

func (m *Module) conv(code string, x Value, t tp.Type) Value {
	dst := m.fn().reg(t)

	m.emit(Conv{Dst: dst, Code: code, X: x})

	return dst
}

// symbol returns a module unique symbol based on name.
func (m *Module) symbol(name string) string {
	n := m.syms[name]
	m.syms[name]++

	if n == 0 {
		return name
	}

	return m.symbol(fmt.Sprintf("%s.%d", name, n))
}

// claim reserves name for a function, moving a module global out of the way.
func (m *Module) claim(name string) {
	m.syms[name]++

	for _, g := range m.Globals {
		if !g.Extern && g.Sym == name {
			g.Sym = m.symbol(name)
		}
	}
}

func (f *Function) reg(t tp.Type) *Reg {
	r := &Reg{ID: f.regs, T: t}
	f.regs++

	return r
}
