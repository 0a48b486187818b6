package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/tl/compiler/tp"
)

func TestConstants(t *testing.T) {
	m := NewModule("m")

	assert.Equal(t, Const{T: tp.I32, Int: 5}, m.IntConst(32, 5))
	assert.Equal(t, Const{T: tp.F32, Float: 1.5}, m.FloatConst(1.5))
	assert.Equal(t, Const{T: tp.I8, Int: 'a'}, m.CharConst('a'))

	s1 := m.StringConst("hello")
	s2 := m.StringConst("world")
	s3 := m.StringConst("hello")

	assert.Equal(t, s1, s3)
	assert.NotEqual(t, s1, s2)
	assert.Equal(t, []string{"hello", "world"}, m.Strings)
	assert.True(t, tp.Equal(tp.String, s1.Type()))

	assert.Nil(t, m.Init, "constants emit no code")
}

func TestGlobals(t *testing.T) {
	m := NewModule("m")

	x := m.DeclareGlobal("x", tp.I32, m.IntConst(32, 1))
	y := m.DeclareGlobal("y", tp.I32, m.Load(x))

	gx := x.(*Global)
	gy := y.(*Global)

	assert.Equal(t, Const{T: tp.I32, Int: 1}, gx.Init)
	assert.Nil(t, gy.Init)

	require.NotNil(t, m.Init)
	require.Len(t, m.Init.Blocks, 1)

	code := m.Init.Blocks[0].Code
	require.Len(t, code, 2)
	assert.IsType(t, Load{}, code[0])
	assert.Equal(t, Store{Val: code[0].(Load).Dst, Dst: gy}, code[1])

	x2 := m.DeclareGlobal("x", tp.F32, m.FloatConst(2))
	assert.Equal(t, "x.1", x2.Ident())

	ext := m.DeclareExternGlobal("z", tp.I8)
	assert.Same(t, ext, m.DeclareExternGlobal("z", tp.I8))
	assert.True(t, ext.(*Global).Extern)

	require.NoError(t, m.Finish())
	assert.Equal(t, Ret{}, m.Init.Blocks[0].Code[2])
}

func TestFunctionNameClash(t *testing.T) {
	m := NewModule("m")

	g := m.DeclareGlobal("f", tp.I32, m.IntConst(32, 0))
	f := m.DeclareFunc("f", nil, tp.Void{}, false)

	assert.Equal(t, "f", f.Ident())
	assert.NotEqual(t, "f", g.Ident())
}

func TestArithmetic(t *testing.T) {
	m := NewModule("m")

	f := m.DeclareFunc("f", []tp.Type{tp.I8, tp.I32}, tp.F32, false)
	m.BeginBody(f)

	c := m.Param(f, 0, "c")
	i := m.Param(f, 1, "i")

	sum := m.Binary(Add, true, c, i)
	assert.True(t, tp.Equal(tp.I32, sum.Type()))

	q := m.Binary(Div, false, sum, i)
	assert.True(t, tp.Equal(tp.F32, q.Type()))

	n := m.Unary(Neg, false, q)
	assert.True(t, tp.Equal(tp.F32, n.Type()))
	assert.Equal(t, q, m.Unary(Pos, false, q))

	m.Return(n)
	require.NoError(t, m.EndBody(f))

	code := f.(*Function).Blocks[0].Code

	var codes []string
	for _, x := range code {
		switch x := x.(type) {
		case Conv:
			codes = append(codes, x.Code)
		case BinOp:
			codes = append(codes, x.Code)
		case Negate:
			codes = append(codes, "neg")
		case Ret:
			codes = append(codes, "ret")
		}
	}

	assert.Equal(t, []string{"sext", "add", "sitofp", "sitofp", "fdiv", "neg", "ret"}, codes)
}

func TestLocals(t *testing.T) {
	m := NewModule("m")

	f := m.DeclareFunc("f", []tp.Type{tp.I32}, tp.I32, false)
	m.BeginBody(f)

	a := m.DeclareLocal("a", tp.I32)
	m.Store(m.Param(f, 0, "a"), a)

	b := m.DeclareLocal("b", tp.I32)
	m.Store(m.Load(a), b)

	m.Return(m.Load(b))
	require.NoError(t, m.EndBody(f))

	code := f.(*Function).Entry().Code
	assert.IsType(t, Alloca{}, code[0])
	assert.IsType(t, Alloca{}, code[1])
	assert.IsType(t, Store{}, code[2])

	assert.Equal(t, 0, a.(*Local).ID)
	assert.Equal(t, 1, b.(*Local).ID)
}

func TestVerify(t *testing.T) {
	t.Run("void gets implicit return", func(t *testing.T) {
		m := NewModule("m")
		f := m.DeclareFunc("f", nil, tp.Void{}, false)

		m.BeginBody(f)
		require.NoError(t, m.EndBody(f))

		assert.Equal(t, []Instr{Ret{}}, f.(*Function).Entry().Code)
	})

	t.Run("missing return", func(t *testing.T) {
		m := NewModule("m")
		f := m.DeclareFunc("f", nil, tp.I32, false)

		m.BeginBody(f)
		err := m.EndBody(f)
		assert.EqualError(t, err, "missing return at end of function f")
	})

	t.Run("unreachable tail", func(t *testing.T) {
		m := NewModule("m")
		f := m.DeclareFunc("f", nil, tp.I32, false)

		m.BeginBody(f)
		m.Return(m.IntConst(32, 1))
		l := m.DeclareLocal("x", tp.I32)
		m.Store(m.IntConst(32, 2), l)
		require.NoError(t, m.EndBody(f))

		blocks := f.(*Function).Blocks
		require.Len(t, blocks, 2)
		assert.Equal(t, "bb1", blocks[1].Label)
		assert.Equal(t, Unreachable{}, blocks[1].Code[len(blocks[1].Code)-1])
	})

	t.Run("return type", func(t *testing.T) {
		m := NewModule("m")
		f := m.DeclareFunc("f", nil, tp.I32, false)

		m.BeginBody(f)
		m.Return(m.FloatConst(1))
		assert.Error(t, m.EndBody(f))
	})

	t.Run("void returns value", func(t *testing.T) {
		m := NewModule("m")
		f := m.DeclareFunc("f", nil, tp.Void{}, false)

		m.BeginBody(f)
		m.Return(m.IntConst(32, 1))
		assert.Error(t, m.EndBody(f))
	})
}

func TestCalls(t *testing.T) {
	m := NewModule("m")

	printf := m.DeclareFunc("printf", []tp.Type{tp.String}, tp.I32, true)
	assert.Same(t, printf, m.DeclareFunc("printf", []tp.Type{tp.String}, tp.I32, true))

	r := m.Call(printf, []Value{m.StringConst("%f %c\n"), m.FloatConst(1), m.CharConst('x')})
	assert.True(t, tp.Equal(tp.I32, r.Type()))

	fv := m.DeclareFunc("v", nil, tp.Void{}, false)
	assert.Equal(t, VoidValue{}, m.Call(fv, nil))

	code := m.Init.Entry().Code
	require.Len(t, code, 4)

	assert.Equal(t, "fpext", code[0].(Conv).Code)
	assert.Equal(t, "sext", code[1].(Conv).Code)

	call := code[2].(Call)
	assert.Len(t, call.Args, 3)
	assert.True(t, tp.Equal(tp.Float{Bits: 64}, call.Args[1].Type()))

	assert.Nil(t, code[3].(Call).Dst)
}

func TestFinish(t *testing.T) {
	m := NewModule("m")
	f := m.DeclareFunc("f", nil, tp.Void{}, false)

	m.BeginBody(f)
	assert.Error(t, m.Finish())

	require.NoError(t, m.EndBody(f))
	require.NoError(t, m.Finish())
	assert.True(t, m.Finished())
	assert.Nil(t, m.Init)

	assert.Panics(t, func() { m.Load(m.DeclareExternGlobal("x", tp.I32)) })
}
