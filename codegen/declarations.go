package codegen

import (
	"fmt"

	"github.com/skx/pl0c/internal/clierr"
	"github.com/skx/pl0c/scanner"
	"github.com/skx/pl0c/stack"
	"github.com/skx/pl0c/token"
)

// constDecl = [ "const" ident "=" constval { "," ident "=" constval } ";" ] .
func constDecl(c *scanner.Context) error {
	if !c.IsMatch(token.CONST) {
		return nil
	}
	c.Pop()

	if err := oneConst(c); err != nil {
		return err
	}
	for c.IsMatch(token.COMMA) {
		c.Pop()
		if err := oneConst(c); err != nil {
			return err
		}
	}
	_, err := c.Expect(token.SEMICOLON)
	return err
}

func oneConst(c *scanner.Context) error {
	name, err := c.ExpectIdent()
	if err != nil {
		return err
	}
	if _, err := c.Expect(token.EQ); err != nil {
		return err
	}

	value, err := constantValue(c)
	if err != nil {
		return err
	}

	qualified := c.Qualify(name.Literal)
	c.Emit(fmt.Sprintf("%s = %s", c.LabelPrefix()+name.Literal, value))
	c.DeclareConst(qualified)
	return nil
}

// constval = number | single-char-string .
func constantValue(c *scanner.Context) (string, error) {
	tok := c.Peek()
	switch tok.Type {
	case token.NUMBER:
		c.Pop()
		return fmt.Sprintf("%d", tok.Num), nil
	case token.STRING:
		c.Pop()
		if len(tok.Literal) != 1 {
			return "", clierr.TypeErr(tok.Pos, "constant %q is not a single character", tok.Literal)
		}
		return fmt.Sprintf("%d", tok.Literal[0]), nil
	default:
		return "", clierr.SyntaxErr(tok.Pos, "expected a number or single-character string, got %s", tok.Type)
	}
}

// varDecl = [ "var" vardecl { "," vardecl } ";" ] .
func varDecl(c *scanner.Context) error {
	if !c.IsMatch(token.VAR) {
		return nil
	}
	c.Pop()

	if err := oneVar(c); err != nil {
		return err
	}
	for c.IsMatch(token.COMMA) {
		c.Pop()
		if err := oneVar(c); err != nil {
			return err
		}
	}
	_, err := c.Expect(token.SEMICOLON)
	return err
}

// vardecl = ident [ "size" ( ident | number ) ] .
func oneVar(c *scanner.Context) error {
	name, err := c.ExpectIdent()
	if err != nil {
		return err
	}
	qualified := c.Qualify(name.Literal)
	decl := c.LabelPrefix() + name.Literal

	if c.IsMatch(token.SIZE) {
		c.Pop()
		size, err := arraySize(c)
		if err != nil {
			return err
		}
		c.EmitVarPragma(fmt.Sprintf("%s: #res %s * 4", decl, size))
		c.EmitVarPragma(fmt.Sprintf("%s.len: #d32 %s", decl, size))
		c.DeclareArray(qualified)
		return nil
	}

	c.EmitVarPragma(fmt.Sprintf("%s: #res 4", decl))
	c.Declare(qualified)
	return nil
}

// arraySize resolves the operand of a "size" clause: either a positive
// numeric literal or an identifier bound to a constant. It returns the
// size as text rather than an int — a named constant's value is left for
// the downstream assembler to resolve, exactly as the original source
// does.
func arraySize(c *scanner.Context) (string, error) {
	tok := c.Peek()
	switch tok.Type {
	case token.NUMBER:
		c.Pop()
		if tok.Num <= 0 {
			return "", clierr.TypeErr(tok.Pos, "array size must be positive, got %d", tok.Num)
		}
		return fmt.Sprintf("%d", tok.Num), nil

	case token.IDENT:
		c.Pop()
		res, err := c.SearchConst(tok.Literal)
		if err != nil {
			return "", err
		}
		if res.Kind != scanner.ResolvedConst {
			return "", clierr.TypeErr(tok.Pos, "%q is not a constant", tok.Literal)
		}
		return stripGlobalPrefix(res.Qualified), nil

	default:
		return "", clierr.SyntaxErr(tok.Pos, "expected an array size (number or constant), got %s", tok.Type)
	}
}

// forwardDecl = { "forward" ident ";" } .
func forwardDecl(c *scanner.Context) error {
	for c.IsMatch(token.FORWARD) {
		c.Pop()
		name, err := c.ExpectIdent()
		if err != nil {
			return err
		}
		if _, err := c.Expect(token.SEMICOLON); err != nil {
			return err
		}

		qualified := c.Qualify(name.Literal)
		c.Declare(qualified)
		c.DeclareProcedureLabel(qualified, c.LabelPrefix()+name.Literal)
	}
	return nil
}

// procedureDecl = { "procedure" ident ";" block ";" } .
//
// Labels use a dot-count nesting prefix plus the bare leaf name — the
// same convention begin/if/while use for their labels — not the
// qualified scope path: a procedure nested one level deep gets ".name",
// regardless of which outer procedure encloses it. See DESIGN.md.
func procedureDecl(c *scanner.Context, bal *stack.Stack) error {
	for c.IsMatch(token.PROCEDURE) {
		c.Pop()
		name, err := c.ExpectIdent()
		if err != nil {
			return err
		}
		if _, err := c.Expect(token.SEMICOLON); err != nil {
			return err
		}

		qualified := c.Qualify(name.Literal)
		label := c.LabelPrefix() + name.Literal

		// Declared again even if a forward declaration already holds
		// this name: scope_drop below needs its own fresh anchor at
		// the top of the scope list to know where this procedure's
		// local declarations begin.
		c.Declare(qualified)
		c.DeclareProcedureLabel(qualified, label)

		c.Emit(label + ":")
		c.EnterScope(name.Literal)

		if err := block(c, bal); err != nil {
			return err
		}

		if _, err := c.Expect(token.SEMICOLON); err != nil {
			return err
		}

		c.Emit("jalr zero,0(ra)")
		c.ExitScope()
		c.ScopeDrop(qualified)
	}
	return nil
}
