// Package emit holds the ordered line buffer the code generator writes
// into. A Buffer is a flat sequence of lines tagged by Kind rather than a
// textual pragma prefix: the post-emit assembler (package asm) switches on
// Kind directly instead of re-parsing a "#[pragma(...)]" marker back out
// of a string, which is the one place this port departs from a literal
// text-buffer representation in favour of a typed one.
package emit

import "strings"

// Kind tags what a Line represents once the post-emit assembler routes it
// into its section.
type Kind int

const (
	// Code is an ordinary instruction line, destined for the TEXT
	// section in source order.
	Code Kind = iota
	// VarPragma reserves storage for a variable or array; routed to the
	// DATA section and re-sorted by scope depth.
	VarPragma
	// StringPragma carries a string-literal declaration; routed to the
	// STRING LITERALS section.
	StringPragma
)

// Line is one entry in the buffer.
type Line struct {
	Kind Kind
	// Text is the already-indented instruction for Code, or the raw
	// declaration text for VarPragma/StringPragma.
	Text string
	// Scope is the owning scope path; only meaningful for VarPragma.
	Scope string
}

// Buffer accumulates Lines in emission order.
type Buffer struct {
	lines []Line
}

// Code appends an instruction line, indented by indentUnit repeated depth
// times.
func (b *Buffer) Code(indentUnit string, depth int, text string) {
	b.lines = append(b.lines, Line{Kind: Code, Text: strings.Repeat(indentUnit, depth) + text})
}

// VarPragma appends a variable/array reservation owned by scope.
func (b *Buffer) VarPragma(scope, decl string) {
	b.lines = append(b.lines, Line{Kind: VarPragma, Scope: scope, Text: decl})
}

// StringPragma appends a string-literal declaration.
func (b *Buffer) StringPragma(decl string) {
	b.lines = append(b.lines, Line{Kind: StringPragma, Text: decl})
}

// Lines returns the buffer's contents in emission order.
func (b *Buffer) Lines() []Line {
	return b.lines
}
