package compiler_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/shad/compiler"
)

func TestCompileVirtualConstantBuffer(t *testing.T) {
	program, cerr := compiler.CompileVirtual(".", map[string][]byte{
		"main.shad": []byte("buf x = 1;\n"),
	})
	require.Nil(t, cerr, "unexpected error: %v", cerr)
	require.NotNil(t, program)
	require.Contains(t, program.Buffers, "x")
	assert.Equal(t, 4, program.Buffers["x"].SizeBytes)
	assert.Equal(t, "i32", program.Buffers["x"].TypeName)

	var names []string
	for _, sh := range program.InitShaders {
		names = append(names, sh.Name)
	}
	assert.Contains(t, names, "init:x")
}

func TestCompileVirtualBufferDependencyOrder(t *testing.T) {
	program, cerr := compiler.CompileVirtual(".", map[string][]byte{
		"main.shad": []byte("buf b = a + 1;\nbuf a = 1;\n"),
	})
	require.Nil(t, cerr, "unexpected error: %v", cerr)
	require.Contains(t, program.Buffers, "a")
	require.Contains(t, program.Buffers, "b")

	idxA, idxB := -1, -1
	for i, sh := range program.InitShaders {
		switch sh.Name {
		case "init:a":
			idxA = i
		case "init:b":
			idxB = i
		}
	}
	require.NotEqual(t, -1, idxA)
	require.NotEqual(t, -1, idxB)
	assert.Less(t, idxA, idxB, "a must be initialized before b since b depends on it")

	for _, sh := range program.InitShaders {
		if sh.Name == "init:b" {
			assert.Contains(t, sh.ReferencedBuffers, "a")
			assert.Contains(t, sh.ReferencedBuffers, "b")
		}
	}
}

func TestCompileVirtualRunBlockMutatesBuffer(t *testing.T) {
	program, cerr := compiler.CompileVirtual(".", map[string][]byte{
		"main.shad": []byte("buf counter = 0;\nrun { counter = counter + 1; }\n"),
	})
	require.Nil(t, cerr, "unexpected error: %v", cerr)

	var run *string
	for _, sh := range program.RunShaders {
		if sh.Name == "run" {
			code := sh.Code
			run = &code
		}
	}
	require.NotNil(t, run, "expected a run shader")
	assert.Contains(t, *run, "fn main()")
}

func TestCompileVirtualRefReturningAssignment(t *testing.T) {
	program, cerr := compiler.CompileVirtual(".", map[string][]byte{
		"main.shad": []byte(
			"buf counter = 0;\n" +
				"fn borrow() -> ref i32 { return counter; }\n" +
				"run { borrow() = 7; }\n",
		),
	})
	require.Nil(t, cerr, "unexpected error: %v", cerr)
	require.NotNil(t, program)
	assert.Contains(t, program.Buffers, "counter")
}

func TestCompileVirtualMissingReturnIsValidationError(t *testing.T) {
	_, cerr := compiler.CompileVirtual(".", map[string][]byte{
		"main.shad": []byte("fn f() -> i32 { }\nbuf x = f();\n"),
	})
	require.NotNil(t, cerr)
	assert.Equal(t, compiler.TaxonomyValidation, cerr.Taxonomy)
	assert.NotEmpty(t, cerr.Validation)
	assert.Contains(t, cerr.Render(), "error:")
}

func TestCompileVirtualParseError(t *testing.T) {
	_, cerr := compiler.CompileVirtual(".", map[string][]byte{
		"main.shad": []byte("buf x = ;\n"),
	})
	require.NotNil(t, cerr)
	assert.Equal(t, compiler.TaxonomyParsing, cerr.Taxonomy)
	assert.NotEmpty(t, cerr.Parsing)
}

func TestCompileVirtualUnresolvedIdentIsValidationError(t *testing.T) {
	_, cerr := compiler.CompileVirtual(".", map[string][]byte{
		"main.shad": []byte("buf x = nonexistent + 1;\n"),
	})
	require.NotNil(t, cerr)
	assert.Equal(t, compiler.TaxonomyValidation, cerr.Taxonomy)
}

func TestCompileDirMissingDirectoryIsIOError(t *testing.T) {
	_, cerr := compiler.CompileDir("/nonexistent/path/that/should/not/exist")
	require.NotNil(t, cerr)
	assert.Equal(t, compiler.TaxonomyIO, cerr.Taxonomy)
	assert.NotEmpty(t, cerr.IO)
}

func TestTaxonomyString(t *testing.T) {
	assert.Equal(t, "io", compiler.TaxonomyIO.String())
	assert.Equal(t, "parsing", compiler.TaxonomyParsing.String())
	assert.Equal(t, "validation", compiler.TaxonomyValidation.String())
}
