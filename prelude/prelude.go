// Package prelude provides the reserved built-in source spec.md §6 calls
// out: primitive operator functions and vector constructors, available to
// every compilation without an explicit import (index.PreludePath is
// appended to every file's lookup path).
//
// The signature table is data (SPEC_FULL.md §7 "Configuration"), not Go
// literals: it is loaded from an embedded YAML document at package-init
// time and rendered into ordinary Shad source text, which the compiler
// parses exactly like any user file.
package prelude

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gogpu/shad/index"
)

//go:embed natives.yaml
var nativesYAML []byte

// Param is one native function parameter.
type Param struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
	Ref  bool   `yaml:"ref"`
}

// Return describes a native function's declared return type; a nil
// *Return means the function returns nothing.
type Return struct {
	Type string `yaml:"type"`
	Ref  bool   `yaml:"ref"`
}

// Native is one native function signature plus its WGSL body template.
type Native struct {
	Name   string  `yaml:"name"`
	Params []Param `yaml:"params"`
	Return *Return `yaml:"return"`
	Body   string  `yaml:"body"`
}

type table struct {
	Natives []Native `yaml:"natives"`
}

// Natives holds every native signature loaded from natives.yaml.
var Natives []Native

func init() {
	var t table
	if err := yaml.Unmarshal(nativesYAML, &t); err != nil {
		panic("prelude: invalid natives.yaml: " + err.Error())
	}
	Natives = t.Natives
}

// Source renders the loaded native table as Shad source text: one
// `native fn` declaration per entry.
func Source() string {
	var b strings.Builder
	for _, n := range Natives {
		b.WriteString("native fn ")
		b.WriteString(n.Name)
		b.WriteByte('(')
		for i, p := range n.Params {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(p.Name)
			b.WriteString(": ")
			if p.Ref {
				b.WriteString("ref ")
			}
			b.WriteString(p.Type)
		}
		b.WriteString(")")
		if n.Return != nil {
			b.WriteString(" -> ")
			if n.Return.Ref {
				b.WriteString("ref ")
			}
			b.WriteString(n.Return.Type)
		}
		fmt.Fprintf(&b, " = \"%s\";\n", n.Body)
	}
	return b.String()
}

// Load returns the prelude's reserved path and its generated source text,
// ready to be parsed and merged into a compilation's file set alongside
// whatever the caller provided.
func Load() (path string, text string) {
	return index.PreludePath, Source()
}
