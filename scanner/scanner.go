// Package scanner owns everything the parser/code-generator mutates while
// walking the token stream: the cursor, the lexically-scoped symbol
// tables, the nesting depth, and the emitted line buffer. It corresponds
// to the "Scanner / Symbol Context" stage of the pipeline: a mutable
// context threaded through every grammar production in package codegen.
package scanner

import (
	"strings"

	"github.com/skx/pl0c/emit"
	"github.com/skx/pl0c/internal/clierr"
	"github.com/skx/pl0c/token"
)

// IndentUnit is repeated once per nesting depth to indent emitted code
// lines.
const IndentUnit = "\t"

// RootScope is the name of the outermost scope, always first in the
// dotted scope path.
const RootScope = "global"

// ResolutionKind discriminates what SearchConst found: a genuine constant,
// or a runtime-resident variable it fell back to.
type ResolutionKind int

const (
	// ResolvedConst means Qualified names a constant; its value may be
	// substituted directly.
	ResolvedConst ResolutionKind = iota
	// ResolvedVar means Qualified names an ordinary variable; it must be
	// loaded at runtime.
	ResolvedVar
)

// Resolution is what SearchConst returns: which kind of symbol it found
// and under what qualified name.
type Resolution struct {
	Kind      ResolutionKind
	Qualified string
}

// Context is the scanner/symbol-context state threaded through the parse.
type Context struct {
	tokens []token.Token
	pos    int

	path []string

	scope    []string
	scopeSet map[string]bool

	constSet map[string]bool
	arrSet   map[string]bool

	nesting int

	procLabels map[string]string

	buf emit.Buffer
}

// New builds a Context over a completed token stream, with the scope path
// positioned at the root scope.
func New(tokens []token.Token) *Context {
	return &Context{
		tokens:     tokens,
		path:       []string{RootScope},
		scopeSet:   map[string]bool{},
		constSet:   map[string]bool{},
		arrSet:     map[string]bool{},
		procLabels: map[string]string{},
	}
}

// --- cursor primitives ---

// IsDone reports whether the cursor has consumed every token.
func (c *Context) IsDone() bool {
	return c.pos >= len(c.tokens)
}

// Peek returns the next token without consuming it. At end of input it
// returns a synthetic EOF token carrying the position just past the last
// real token.
func (c *Context) Peek() token.Token {
	if c.IsDone() {
		return token.Token{Type: token.EOF, Pos: c.eofPos()}
	}
	return c.tokens[c.pos]
}

func (c *Context) eofPos() token.Position {
	if len(c.tokens) == 0 {
		return token.Position{Line: 1, Column: 0}
	}
	last := c.tokens[len(c.tokens)-1]
	return token.Position{Line: last.Pos.Line, Column: last.Pos.Column + len(last.Literal)}
}

// Pos is the position diagnostics should cite for the current cursor
// location.
func (c *Context) Pos() token.Position {
	return c.Peek().Pos
}

// Pop consumes and returns the next token.
func (c *Context) Pop() token.Token {
	tok := c.Peek()
	if !c.IsDone() {
		c.pos++
	}
	return tok
}

// IsMatch reports whether the next token has type tt, without consuming
// it.
func (c *Context) IsMatch(tt token.Type) bool {
	return c.Peek().Type == tt
}

// Expect consumes the next token if it has type tt, else fails with a
// SyntaxError.
func (c *Context) Expect(tt token.Type) (token.Token, error) {
	tok := c.Peek()
	if tok.Type != tt {
		return tok, clierr.SyntaxErr(tok.Pos, "expected %s, got %s", tt, tok.Type)
	}
	return c.Pop(), nil
}

// ExpectIdent consumes the next token if it is an identifier.
func (c *Context) ExpectIdent() (token.Token, error) {
	tok := c.Peek()
	if tok.Type != token.IDENT {
		return tok, clierr.SyntaxErr(tok.Pos, "expected identifier, got %s", tok.Type)
	}
	return c.Pop(), nil
}

// ExpectNum consumes the next token if it is a number.
func (c *Context) ExpectNum() (token.Token, error) {
	tok := c.Peek()
	if tok.Type != token.NUMBER {
		return tok, clierr.SyntaxErr(tok.Pos, "expected number, got %s", tok.Type)
	}
	return c.Pop(), nil
}

// --- emission ---

// Emit pushes a code line, indented for the current nesting depth.
func (c *Context) Emit(line string) {
	c.buf.Code(IndentUnit, c.nesting, line)
}

// EmitVarPragma records a variable/array reservation owned by the current
// scope.
func (c *Context) EmitVarPragma(decl string) {
	c.buf.VarPragma(c.ScopePath(), decl)
}

// EmitStringPragma records a string-literal declaration.
func (c *Context) EmitStringPragma(decl string) {
	c.buf.StringPragma(decl)
}

// Lines returns the accumulated emitted-line buffer.
func (c *Context) Lines() []emit.Line {
	return c.buf.Lines()
}

// --- scope path / nesting ---

// ScopePath renders the current scope path, e.g. "global.outer".
func (c *Context) ScopePath() string {
	return strings.Join(c.path, ".")
}

// Qualify joins name onto the current scope path.
func (c *Context) Qualify(name string) string {
	return c.ScopePath() + "." + name
}

// EnterScope appends name to the scope path and increments nesting. Used
// only for procedures, which open both a new symbol scope and a new label
// nesting level together.
func (c *Context) EnterScope(name string) {
	c.path = append(c.path, name)
	c.EnterNesting()
}

// ExitScope pops the last segment off the scope path and decrements
// nesting. It does not touch the symbol tables; callers retire those
// explicitly via ScopeDrop.
func (c *Context) ExitScope() {
	c.path = c.path[:len(c.path)-1]
	c.ExitNesting()
}

// EnterNesting increments the nesting depth without touching the scope
// path. begin/if/while constructs use this: they need a fresh label
// namespace but do not open a new symbol scope.
func (c *Context) EnterNesting() {
	c.nesting++
}

// ExitNesting decrements the nesting depth.
func (c *Context) ExitNesting() {
	c.nesting--
}

// Nesting returns the current nesting depth.
func (c *Context) Nesting() int {
	return c.nesting
}

// LabelPrefix is the dot-count prefix applied to local labels so
// constructs at different nesting depths never collide.
func (c *Context) LabelPrefix() string {
	return strings.Repeat(".", c.nesting)
}

// --- symbol tables ---

// Declare records qualified as an ordinary (non-const, non-array) symbol
// in the current scope.
func (c *Context) Declare(qualified string) {
	c.scope = append(c.scope, qualified)
	c.scopeSet[qualified] = true
}

// DeclareConst records qualified as a constant. It is added to both the
// scope set and the constant set, so a later Search finds it (and
// CheckAssignable can then reject assignment to it) — see DESIGN.md for
// why this departs from the reference implementation.
func (c *Context) DeclareConst(qualified string) {
	c.Declare(qualified)
	c.constSet[qualified] = true
}

// DeclareArray records qualified as an array.
func (c *Context) DeclareArray(qualified string) {
	c.Declare(qualified)
	c.arrSet[qualified] = true
}

// ScopeDrop pops scope entries from the end until the top is until,
// leaving until itself in place. Any popped name is also removed from the
// constant and array sets, so neither table retains entries for a scope
// that has closed.
func (c *Context) ScopeDrop(until string) {
	for len(c.scope) > 0 && c.scope[len(c.scope)-1] != until {
		dropped := c.scope[len(c.scope)-1]
		c.scope = c.scope[:len(c.scope)-1]
		delete(c.scopeSet, dropped)
		delete(c.constSet, dropped)
		delete(c.arrSet, dropped)
	}
}

// Search resolves name by walking outward from the current scope path:
// longest prefix first, stripping one segment at a time, down to the bare
// name. It returns the first qualified candidate present in the scope
// set.
func (c *Context) Search(name string) (string, error) {
	for i := len(c.path); i >= 0; i-- {
		candidate := name
		if i > 0 {
			candidate = strings.Join(c.path[:i], ".") + "." + name
		}
		if c.scopeSet[candidate] {
			return candidate, nil
		}
	}
	return "", clierr.NameErr(c.Pos(), "%q is not declared in any enclosing scope", name)
}

// SearchConst resolves name the same way Search does, but against the
// constant set. If no enclosing scope declared name as a constant, it
// falls back to an ordinary Search and reports the result as a variable
// resolution, so callers can tell the two cases apart without relying on
// a naming convention.
func (c *Context) SearchConst(name string) (Resolution, error) {
	for i := len(c.path); i >= 0; i-- {
		candidate := name
		if i > 0 {
			candidate = strings.Join(c.path[:i], ".") + "." + name
		}
		if c.constSet[candidate] {
			return Resolution{Kind: ResolvedConst, Qualified: candidate}, nil
		}
	}

	qualified, err := c.Search(name)
	if err != nil {
		return Resolution{}, err
	}
	return Resolution{Kind: ResolvedVar, Qualified: qualified}, nil
}

// IsArray reports whether qualified was declared with a size, failing
// with a TypeError otherwise.
func (c *Context) IsArray(qualified string) error {
	if c.arrSet[qualified] {
		return nil
	}
	return clierr.TypeErr(c.Pos(), "%q is not an array", qualified)
}

// CheckAssignable fails with a TypeError if qualified was declared const.
func (c *Context) CheckAssignable(qualified string) error {
	if c.constSet[qualified] {
		return clierr.TypeErr(c.Pos(), "cannot assign to constant %q", qualified)
	}
	return nil
}

// CheckScalarTarget fails with a TypeError if qualified was declared as an
// array, rejecting an unindexed assignment to it.
func (c *Context) CheckScalarTarget(qualified string) error {
	if c.arrSet[qualified] {
		return clierr.TypeErr(c.Pos(), "%q is an array and must be indexed", qualified)
	}
	return nil
}

// Contains reports whether qualified is currently present in the scope
// set, without raising an error.
func (c *Context) Contains(qualified string) bool {
	return c.scopeSet[qualified]
}

// DeclareProcedureLabel records the assembly label text a procedure's
// qualified name resolves to. Procedure labels use a dot-count nesting
// prefix plus the bare leaf name (see DESIGN.md), distinct from the
// qualified-path convention used for variables and constants, so this
// mapping is kept alongside the scope tables rather than derived from the
// qualified name at call sites.
func (c *Context) DeclareProcedureLabel(qualified, label string) {
	c.procLabels[qualified] = label
}

// ProcedureLabel returns the label text previously recorded for qualified
// via DeclareProcedureLabel.
func (c *Context) ProcedureLabel(qualified string) (string, bool) {
	label, ok := c.procLabels[qualified]
	return label, ok
}
