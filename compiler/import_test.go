package compiler_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/txtar"

	"github.com/gogpu/shad/compiler"
)

// Multi-file fixtures are expressed as txtar archives: one comment-free
// section per file, closer to how a real tree reads than Go string
// concatenation.
const importFixture = `
-- main.shad --
import ~.helpers;
buf doubled = double(5);
-- helpers.shad --
fn double(x: i32) -> i32 { return x + x; }
`

func TestCompileVirtualResolvesImport(t *testing.T) {
	archive := txtar.Parse([]byte(importFixture))
	require.NotEmpty(t, archive.Files)

	files := map[string][]byte{}
	for _, f := range archive.Files {
		files[f.Name] = f.Data
	}

	program, cerr := compiler.CompileVirtual(".", files)
	require.Nil(t, cerr, "unexpected error: %v", cerr)
	require.NotNil(t, program)
	assert.Contains(t, program.Buffers, "doubled")
}
