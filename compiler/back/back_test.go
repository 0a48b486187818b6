package back

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/tl/compiler/ir"
	"github.com/slowlang/tl/compiler/tp"
)

func TestSmoke(t *testing.T) {
	m := ir.NewModule("main")

	printf := m.DeclareFunc("printf", []tp.Type{tp.String}, tp.I32, true)

	f := m.DeclareFunc("f", []tp.Type{tp.I32, tp.I8}, tp.F32, false)
	m.BeginBody(f)

	a := m.DeclareLocal("a", tp.I32)
	m.Store(m.Param(f, 0, "a"), a)

	c := m.DeclareLocal("c", tp.I8)
	m.Store(m.Param(f, 1, "c"), c)

	sum := m.Binary(ir.Add, true, m.Load(a), m.Load(c))
	q := m.Binary(ir.Div, false, sum, m.FloatConst(1.5))
	m.Return(m.Unary(ir.Neg, false, q))

	require.NoError(t, m.EndBody(f))

	g := m.DeclareGlobal("g", tp.F32, m.Call(f, []ir.Value{m.IntConst(32, 2), m.CharConst('x')}))
	m.Call(printf, []ir.Value{m.StringConst("%f\n"), m.Load(g)})

	m.DeclareGlobal("s", tp.String, m.StringConst("%f\n"))
	m.DeclareExternGlobal("e", tp.I32)

	require.NoError(t, m.Finish())

	text, err := Compile(context.Background(), m)
	require.NoError(t, err)

	exp := `; ModuleID = 'main'
source_filename = "main"

@.str.0 = private unnamed_addr constant [4 x i8] c"%f\0A\00"

@g = global float 0x0000000000000000
@s = global i8* getelementptr inbounds ([4 x i8], [4 x i8]* @.str.0, i32 0, i32 0)
@e = external global i32

@llvm.global_ctors = appending global [1 x { i32, void ()*, i8* }] [{ i32, void ()*, i8* } { i32 65535, void ()* @tl.init.main, i8* null }]

declare i32 @printf(i8*, ...)

define float @f(i32 %a, i8 %c) {
entry:
  %a.addr0 = alloca i32
  %c.addr1 = alloca i8
  store i32 %a, i32* %a.addr0
  store i8 %c, i8* %c.addr1
  %.t0 = load i32, i32* %a.addr0
  %.t1 = load i8, i8* %c.addr1
  %.t2 = sext i8 %.t1 to i32
  %.t3 = add i32 %.t0, %.t2
  %.t4 = sitofp i32 %.t3 to float
  %.t5 = fdiv float %.t4, 0x3FF8000000000000
  %.t6 = fneg float %.t5
  ret float %.t6
}

define internal void @tl.init.main() {
entry:
  %.t0 = call float @f(i32 2, i8 120)
  store float %.t0, float* @g
  %.t1 = load float, float* @g
  %.t2 = fpext float %.t1 to double
  %.t3 = call i32 (i8*, ...) @printf(i8* getelementptr inbounds ([4 x i8], [4 x i8]* @.str.0, i32 0, i32 0), double %.t2)
  ret void
}
`

	assert.Equal(t, exp, string(text))
}

func TestUnreachableAndQuoting(t *testing.T) {
	m := ir.NewModule("dir/mod.tl")

	f := m.DeclareFunc("f", nil, tp.I32, false)
	m.BeginBody(f)
	m.Return(m.Unary(ir.Neg, true, m.IntConst(32, 3)))
	m.Return(m.IntConst(32, 4))
	require.NoError(t, m.EndBody(f))

	m.DeclareFunc("v", nil, tp.Void{}, false)
	m.Call(m.Lookup("v"), nil)

	require.NoError(t, m.Finish())

	text, err := Compile(context.Background(), m)
	require.NoError(t, err)

	assert.Contains(t, string(text), `source_filename = "dir/mod.tl"`)
	assert.Contains(t, string(text), "define i32 @f() {\nentry:\n  %.t0 = sub i32 0, 3\n  ret i32 %.t0\n\nbb1:\n  ret i32 4\n}\n")
	assert.Contains(t, string(text), "declare void @v()\n")
	assert.Contains(t, string(text), "  call void @v()\n")
	assert.Contains(t, string(text), `define internal void @"tl.init.dir/mod.tl"() {`)
}

func TestNotFinished(t *testing.T) {
	m := ir.NewModule("m")

	_, err := Compile(context.Background(), m)
	assert.Error(t, err)
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, "0x3FF0000000000000", float(1))
	assert.Equal(t, "0x3FB99999A0000000", float(0.1))
	assert.Equal(t, "%x", ident('%', "x"))
	assert.Equal(t, `@"a b"`, ident('@', "a b"))
	assert.Equal(t, `@"1a"`, ident('@', "1a"))
	assert.Equal(t, `"a\22\5C\0A"`, quote("a\"\\\n"))
	assert.Equal(t, "null", zero(tp.String))
	assert.Equal(t, "0", zero(tp.I32))
}
