// Package codegen is the recursive-descent parser and code generator: one
// function per grammar production, each emitting target instructions as it
// walks the token stream. There is no separate AST — code is produced
// directly as a side effect of parsing, via the *scanner.Context threaded
// through every production.
package codegen

import (
	"fmt"

	"github.com/skx/pl0c/emit"
	"github.com/skx/pl0c/internal/clierr"
	"github.com/skx/pl0c/scanner"
	"github.com/skx/pl0c/stack"
	"github.com/skx/pl0c/token"
)

// The three working registers every expression/condition obeys: the
// result of an evaluation always lands in A, with B and T caller-saved
// within a single expression.
const (
	RegA = "A"
	RegB = "B"
	RegT = "T"
)

// Compile walks the full token stream and returns the emitted line
// buffer. Source errors are returned as *clierr.Error values; an internal
// push/pop imbalance in the generated code is returned as a plain error.
func Compile(tokens []token.Token) ([]emit.Line, error) {
	c := scanner.New(tokens)
	bal := stack.New()

	if err := program(c, bal); err != nil {
		return nil, err
	}

	if !c.IsDone() {
		tok := c.Peek()
		return nil, clierr.SyntaxErr(tok.Pos, "unexpected token %s after end of program", tok.Type)
	}
	if !bal.Empty() {
		return nil, fmt.Errorf("internal error: %d unmatched expression push(es) remain after compilation", bal.Len())
	}

	return c.Lines(), nil
}

// program = block "." .
func program(c *scanner.Context, bal *stack.Stack) error {
	if err := block(c, bal); err != nil {
		return err
	}
	_, err := c.Expect(token.PERIOD)
	return err
}

// block = [const] [var] {forward} {procedure} statement .
func block(c *scanner.Context, bal *stack.Stack) error {
	if err := constDecl(c); err != nil {
		return err
	}
	if err := varDecl(c); err != nil {
		return err
	}
	if err := forwardDecl(c); err != nil {
		return err
	}
	if err := procedureDecl(c, bal); err != nil {
		return err
	}
	return statement(c, bal)
}

// stripGlobalPrefix drops a single leading "global." segment, keeping any
// inner scope dots intact. This is the constant-reference convention only:
// a factor reading a constant, or a "size" clause sized by one, strips
// just the leading "global.". Declarations (const/var/array) use the
// dot-count nesting prefix instead, via Context.LabelPrefix — see
// DESIGN.md.
func stripGlobalPrefix(qualified string) string {
	const prefix = scanner.RootScope + "."
	if len(qualified) > len(prefix) && qualified[:len(prefix)] == prefix {
		return qualified[len(prefix):]
	}
	return qualified
}
