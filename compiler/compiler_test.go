package compiler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/tl/compiler/config"
	"github.com/slowlang/tl/compiler/token"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()

	for name, text := range files {
		path := filepath.Join(dir, name)

		err := os.MkdirAll(filepath.Dir(path), 0o755)
		require.NoError(t, err)

		err = os.WriteFile(path, []byte(text), 0o644)
		require.NoError(t, err)
	}

	return dir
}

func TestCompile(t *testing.T) {
	obj, err := Compile(context.Background(), "main.tl", []byte(`
def printf(f: string, ...): int;

def sq(x: float): float {
	return x * x;
}

def main(): int {
	printf("%f\n", sq(1.5));
	return 0;
}
`))
	require.NoError(t, err)

	text := string(obj)

	assert.Contains(t, text, "; ModuleID = 'main'\n")
	assert.Contains(t, text, "declare i32 @printf(i8*, ...)\n")
	assert.Contains(t, text, "define float @sq(float %x) {\n")
	assert.Contains(t, text, "define i32 @main() {\n")
	assert.Contains(t, text, "fmul float")
	assert.Contains(t, text, "  ret i32 0\n")
}

func TestCompileErrors(t *testing.T) {
	ctx := context.Background()

	for _, tc := range []struct {
		src string
		pos token.Pos
		msg string
	}{
		{"let x = @;", token.Pos{Row: 1, Col: 9}, "unexpected character '@'"},
		{"let x = 1", token.Pos{Row: 1, Col: 10}, "expected ';'"},
		{"let x = y;", token.Pos{Row: 1, Col: 9}, "undefined reference to variable: y"},
		{"def f(): int { }", token.Pos{Row: 1, Col: 1}, "missing return at end of function f"},
		{`import "lib";`, token.Pos{Row: 1, Col: 1}, "module not found: lib"},
	} {
		_, err := Compile(ctx, "m.tl", []byte(tc.src))
		require.Error(t, err, "src: %q", tc.src)

		name, pos, msg := Locate(err)
		assert.Equal(t, "m.tl", name, "src: %q", tc.src)
		assert.Equal(t, tc.pos, pos, "src: %q", tc.src)
		assert.Equal(t, tc.msg, msg, "src: %q", tc.src)
	}

	_, err := Compile(ctx, "m.tl", []byte("let x = @;"))
	assert.EqualError(t, err, "m.tl:1:9: unexpected character '@'")
}

func TestCompileFileMissing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "none.tl")

	_, err := CompileFile(context.Background(), path)
	require.Error(t, err)

	name, pos, _ := Locate(err)
	assert.Equal(t, path, name)
	assert.False(t, pos.Valid())
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestImports(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"lib.tl": `
def add(a: int, b: int): int { return a + b; }
let count = 1;
let count = 2;
`,
		"std/io.tl": `def printf(f: string, ...): int;`,
		"main.tl": `
import "lib";
import "io.tl";
import "lib";

let x = add(count, 2);
printf("%d\n", x);
`,
	})

	c := New(&config.Config{Build: config.Build{ImportPaths: []string{filepath.Join(dir, "std")}}})

	obj, err := c.CompileFile(context.Background(), filepath.Join(dir, "main.tl"))
	require.NoError(t, err)

	text := string(obj)

	assert.Contains(t, text, "declare i32 @add(i32, i32)\n")
	assert.Contains(t, text, "declare i32 @printf(i8*, ...)\n")
	assert.Contains(t, text, "@count.1 = external global i32\n")
	assert.NotContains(t, text, "define i32 @add")
}

func TestImportErrors(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"a.tl":     `import "b";`,
		"b.tl":     `import "a";`,
		"self.tl":  "let x = 1;\nimport \"self\";",
		"bad.tl":   "let y = 1;\nlet z = w;",
		"main.tl":  `import "bad";`,
		"dir.tl":   `import "sub";`,
		"sub.tl/x": "",
	})

	ctx := context.Background()

	for _, tc := range []struct {
		file string
		in   string
		pos  token.Pos
		msg  string
	}{
		{"a.tl", "b.tl", token.Pos{Row: 1, Col: 1}, "import cycle: " + filepath.Join(dir, "a.tl") + " -> " + filepath.Join(dir, "b.tl") + " -> " + filepath.Join(dir, "a.tl")},
		{"self.tl", "self.tl", token.Pos{Row: 2, Col: 1}, "import cycle: " + filepath.Join(dir, "self.tl") + " -> " + filepath.Join(dir, "self.tl")},
		{"main.tl", "bad.tl", token.Pos{Row: 2, Col: 9}, "undefined reference to variable: w"},
		{"dir.tl", "dir.tl", token.Pos{Row: 1, Col: 1}, "module not found: sub"},
	} {
		_, err := CompileFile(ctx, filepath.Join(dir, tc.file))
		require.Error(t, err, "file: %v", tc.file)

		name, pos, msg := Locate(err)
		assert.Equal(t, filepath.Join(dir, tc.in), name, "file: %v", tc.file)
		assert.Equal(t, tc.pos, pos, "file: %v", tc.file)
		assert.Equal(t, tc.msg, msg, "file: %v", tc.file)
	}
}

func TestCompileFiles(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"a.tl": "let a = 1;",
		"b.tl": "let b = ;",
		"c.tl": `import "a"; let c = a;`,
		"d.tl": "def d(): void { return; }",
	})

	names := []string{
		filepath.Join(dir, "a.tl"),
		filepath.Join(dir, "b.tl"),
		filepath.Join(dir, "c.tl"),
		filepath.Join(dir, "d.tl"),
	}

	c := New(&config.Config{Build: config.Build{Jobs: 2}})

	var got []Result

	err := c.CompileFiles(context.Background(), names, func(r Result) error {
		got = append(got, r)
		return nil
	})
	assert.EqualError(t, err, "1 of 4 modules failed")

	require.Len(t, got, len(names))

	for i, r := range got {
		assert.Equal(t, i, r.Index)
		assert.Equal(t, names[i], r.Name)
	}

	assert.NoError(t, got[0].Err)
	assert.Error(t, got[1].Err)
	assert.NoError(t, got[2].Err)
	assert.NoError(t, got[3].Err)

	assert.Contains(t, string(got[0].IR), "@a = global i32 1\n")
	assert.Contains(t, string(got[2].IR), "@a = external global i32\n")
	assert.Equal(t, "a", got[0].Surface.Globals[0].Name)

	_, pos, msg := Locate(got[1].Err)
	assert.Equal(t, token.Pos{Row: 1, Col: 9}, pos)
	assert.Equal(t, "unexpected token ';'", msg)
}

func TestCompileFilesReportError(t *testing.T) {
	files := map[string]string{}
	var names []string

	for _, n := range []string{"a", "b", "c", "d", "e", "f"} {
		files[n+".tl"] = "let " + n + " = 1;"
	}

	dir := writeFiles(t, files)

	for _, n := range []string{"a", "b", "c", "d", "e", "f"} {
		names = append(names, filepath.Join(dir, n+".tl"))
	}

	stop := errors.New("stop")
	calls := 0

	err := New(nil).CompileFiles(context.Background(), names, func(r Result) error {
		calls++
		return stop
	})

	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestModuleName(t *testing.T) {
	assert.Equal(t, "main", ModuleName("dir/main.tl"))
	assert.Equal(t, "main.x", ModuleName("main.x"))
}
