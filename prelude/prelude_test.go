package prelude_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/shad/index"
	"github.com/gogpu/shad/internal/idalloc"
	"github.com/gogpu/shad/parser"
	"github.com/gogpu/shad/prelude"
)

func TestNativesLoaded(t *testing.T) {
	require.NotEmpty(t, prelude.Natives)
	var names []string
	for _, n := range prelude.Natives {
		names = append(names, n.Name)
	}
	assert.Contains(t, names, "__add__")
	assert.Contains(t, names, "vec2")
}

func TestSourceParses(t *testing.T) {
	src := prelude.Source()
	require.NotEmpty(t, src)

	ids := idalloc.New()
	root, err := parser.Parse(index.PreludePath, src, ids.StartFile())
	require.Nil(t, err, "generated prelude source should parse: %v", err)
	require.NotNil(t, root)
	assert.NotEmpty(t, root.Items)
}

func TestSourceDeclaresNativeFn(t *testing.T) {
	src := prelude.Source()
	assert.True(t, strings.Contains(src, "native fn __add__("))
}

func TestLoadReturnsPreludePath(t *testing.T) {
	path, text := prelude.Load()
	assert.Equal(t, index.PreludePath, path)
	assert.NotEmpty(t, text)
}
