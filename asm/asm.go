// Package asm is the post-emit assembler: it takes the ordered emit.Line
// buffer the code generator produced and reassembles it into a complete
// RISC-32 listing, routing each line into its TEXT, DATA, or STRING
// LITERALS section the way the reference compiler's final pass does.
package asm

import (
	"fmt"
	"sort"
	"strings"

	"github.com/skx/pl0c/emit"
)

const padWords = 1024
const bufferWords = 10

// Assemble renders the full assembly listing for a completed compile.
func Assemble(lines []emit.Line) string {
	var b strings.Builder

	var text []string
	var varPragmas []emit.Line
	var stringPragmas []string

	for _, l := range lines {
		switch l.Kind {
		case emit.VarPragma:
			varPragmas = append(varPragmas, l)
		case emit.StringPragma:
			stringPragmas = append(stringPragmas, strings.TrimSpace(l.Text))
		default:
			text = append(text, l.Text)
		}
	}

	b.WriteString("#include \"std/crt0.asm\"\n")
	b.WriteString("; section TEXT --------\n")
	for _, line := range text {
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString("; ENTRY POINT -------\n")
	b.WriteString("Start:\n")
	b.WriteString("\tmv A,zero\n")
	b.WriteString("\tmv B,zero\n")
	b.WriteString("\tmv T,zero\n")
	b.WriteString("\tjal ra,main\n")
	b.WriteString("\tmv a0,zero\n")
	b.WriteString("\tj crt0.exit\n")
	b.WriteString("\n")

	b.WriteString("; section DATA --------\n")
	b.WriteString("; String Litterals-----\n")
	for _, s := range stringPragmas {
		b.WriteString(s)
		b.WriteString("\n")
	}

	b.WriteString("; Variables -----------\n")
	b.WriteString("global:\n")
	b.WriteString(variableTable(varPragmas))
	b.WriteString("; ---------------------\n")
	b.WriteString("\t\t#align 32\n")
	fmt.Fprintf(&b, "\t\t#res %d\n", padWords)
	b.WriteString("\t\t#align 32\n")
	b.WriteString("\t.stack:\n")
	fmt.Fprintf(&b, "\t\t#res %d\n", bufferWords)
	b.WriteString("\t\t#align 32\n")
	b.WriteString("\t.out_buff:\n")
	fmt.Fprintf(&b, "\t\t#res %d\n", bufferWords)
	b.WriteString("\t\t#align 32\n")
	b.WriteString("\t.in_buff:\n")
	fmt.Fprintf(&b, "\t\t#res %d\n", bufferWords)
	b.WriteString("\t\t#align 32\n")

	return b.String()
}

// variableTable groups var/array pragmas by owning scope, shallowest scope
// first, and renders each scope as a nested label followed by its
// declarations.
//
// The declaration text itself already carries its own dot-count nesting
// prefix, baked in by the code generator (see codegen.oneVar/oneConst) — so
// unlike the reference implementation, this does not add a second layer of
// dots on top of the text; it only adds tab indentation for depth. Doing
// both would double the dots for every nested declaration, which is the
// kind of artifact this rewrite fixes rather than reproduces (see
// DESIGN.md).
func variableTable(pragmas []emit.Line) string {
	sorted := make([]emit.Line, len(pragmas))
	copy(sorted, pragmas)
	sort.SliceStable(sorted, func(i, j int) bool {
		return depthOf(sorted[i].Scope) < depthOf(sorted[j].Scope)
	})

	var b strings.Builder
	currentScope := ""
	for _, p := range sorted {
		depth := depthOf(p.Scope)

		if p.Scope != currentScope {
			currentScope = p.Scope
			if depth > 0 {
				segs := strings.Split(p.Scope, ".")
				leaf := segs[len(segs)-1]
				fmt.Fprintf(&b, "%s%s%s:\n", strings.Repeat("\t", depth), strings.Repeat(".", depth), leaf)
			}
		}

		fmt.Fprintf(&b, "%s%s\n", strings.Repeat("\t", depth+1), p.Text)
	}
	return b.String()
}

// depthOf returns the nesting depth of a dotted scope path: "global" is 0,
// "global.outer" is 1, "global.outer.inner" is 2.
func depthOf(scope string) int {
	return len(strings.Split(scope, ".")) - 1
}
