package runtime_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/shad/emit"
	"github.com/gogpu/shad/runtime"
)

func sampleProgram() *emit.Program {
	return &emit.Program{
		Buffers: map[string]emit.BufferDescriptor{
			"a": {SizeBytes: 4, TypeName: "i32"},
			"b": {SizeBytes: 4, TypeName: "i32"},
		},
		InitShaders: []emit.Shader{
			{Name: "init:a", Code: "// a", ReferencedBuffers: []string{"a"}},
			{Name: "init:b", Code: "// b", ReferencedBuffers: []string{"a", "b"}},
		},
		RunShaders: []emit.Shader{
			{Name: "run", Code: "// run", ReferencedBuffers: []string{"a", "b"}},
		},
	}
}

func TestNullRunnerRunStepOK(t *testing.T) {
	r := &runtime.NullRunner{}
	require.NoError(t, r.New(sampleProgram()))
	assert.NoError(t, r.RunStep("init:a"))
	assert.NoError(t, r.RunStep("init:b"))
	assert.NoError(t, r.RunStep("run"))
}

func TestNullRunnerUnknownShader(t *testing.T) {
	r := &runtime.NullRunner{}
	require.NoError(t, r.New(sampleProgram()))
	err := r.RunStep("missing")
	require.Error(t, err)
	var target *runtime.UnknownShaderError
	assert.ErrorAs(t, err, &target)
}

func TestNullRunnerUnknownBufferInShaderRefs(t *testing.T) {
	r := &runtime.NullRunner{}
	program := &emit.Program{
		Buffers: map[string]emit.BufferDescriptor{
			"a": {SizeBytes: 4, TypeName: "i32"},
		},
		RunShaders: []emit.Shader{
			{Name: "bad", Code: "", ReferencedBuffers: []string{"a", "ghost"}},
		},
	}
	require.NoError(t, r.New(program))
	err := r.RunStep("bad")
	require.Error(t, err)
	var target *runtime.UnknownBufferError
	require.ErrorAs(t, err, &target)
	assert.Equal(t, "ghost", target.Buffer)
}

func TestNullRunnerWriteReadRoundTrip(t *testing.T) {
	r := &runtime.NullRunner{}
	require.NoError(t, r.New(sampleProgram()))

	data := []byte{1, 2, 3, 4}
	require.NoError(t, r.Write("a", data))

	got, err := r.Read("a")
	require.NoError(t, err)
	assert.Equal(t, data, got)

	dst := make([]byte, 4)
	require.NoError(t, r.ReadTarget("a", dst))
	assert.Equal(t, data, dst)
}

func TestNullRunnerReadUnknownBuffer(t *testing.T) {
	r := &runtime.NullRunner{}
	require.NoError(t, r.New(sampleProgram()))
	_, err := r.Read("ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestNullRunnerWriteUnknownBuffer(t *testing.T) {
	r := &runtime.NullRunner{}
	require.NoError(t, r.New(sampleProgram()))
	err := r.Write("ghost", []byte{1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}
