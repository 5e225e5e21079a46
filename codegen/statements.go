package codegen

import (
	"fmt"

	"github.com/skx/pl0c/internal/clierr"
	"github.com/skx/pl0c/scanner"
	"github.com/skx/pl0c/stack"
	"github.com/skx/pl0c/token"
)

// statement = [ assignment | call | input | output | writechar | readchar
// | writestr | begin | if | while | exit ] .
func statement(c *scanner.Context, bal *stack.Stack) error {
	switch c.Peek().Type {
	case token.IDENT:
		name := c.Pop()
		return assignment(c, bal, name)
	case token.CALL:
		return callStatement(c)
	case token.QUESTION:
		return inputStatement(c, "PL0_INPUT.int")
	case token.READCHAR:
		return inputStatement(c, "PL0_INPUT.char")
	case token.BANG:
		return output(c, bal)
	case token.WRITECHAR:
		return outputChar(c, bal)
	case token.WRITESTR:
		return outputString(c, bal)
	case token.BEGIN:
		return beginStatement(c, bal)
	case token.IF:
		return ifStatement(c, bal)
	case token.WHILE:
		return whileStatement(c, bal)
	case token.EXIT:
		return exitStatement(c, bal)
	default:
		// statement is optional in the grammar; leave the cursor alone.
		return nil
	}
}

// assignment = ident [ "[" expression "]" ] ":=" expression .
func assignment(c *scanner.Context, bal *stack.Stack, name token.Token) error {
	qualified, err := c.Search(name.Literal)
	if err != nil {
		return err
	}

	if c.IsMatch(token.LBRACK) {
		c.Pop()
		if err := c.IsArray(qualified); err != nil {
			return err
		}
		if err := expression(c, bal); err != nil {
			return err
		}
		if _, err := c.Expect(token.RBRACK); err != nil {
			return err
		}
		if _, err := c.Expect(token.ASSIGN); err != nil {
			return err
		}
		c.Emit("la T," + qualified)
		c.Emit("muli A,A,4")
		c.Emit("add T,A,T")
		if err := expression(c, bal); err != nil {
			return err
		}
		c.Emit("sw A,0(T)")
		return nil
	}

	if err := c.CheckAssignable(qualified); err != nil {
		return err
	}
	if err := c.CheckScalarTarget(qualified); err != nil {
		return err
	}
	if _, err := c.Expect(token.ASSIGN); err != nil {
		return err
	}
	if err := expression(c, bal); err != nil {
		return err
	}
	c.Emit("ssw A," + qualified + ",T")
	return nil
}

// call = "call" ident .
func callStatement(c *scanner.Context) error {
	c.Pop() // CALL
	name, err := c.ExpectIdent()
	if err != nil {
		return err
	}
	qualified, err := c.Search(name.Literal)
	if err != nil {
		return err
	}
	label, ok := c.ProcedureLabel(qualified)
	if !ok {
		return clierr.NameErr(name.Pos, "%q is not a procedure", name.Literal)
	}

	c.Emit("push ra,sp")
	c.Emit("jal ra," + label)
	c.Emit("pop ra,sp")
	return nil
}

// input = "?" [ "into" ] ident [ "into" ] .
// readchar = "readchar" [ "into" ] ident [ "into" ] .
// "into" is accepted either before or after the identifier, per the
// canonical form chosen for this dialect.
func inputStatement(c *scanner.Context, runtimeCall string) error {
	c.Pop() // QUESTION or READCHAR
	if c.IsMatch(token.INTO) {
		c.Pop()
	}
	name, err := c.ExpectIdent()
	if err != nil {
		return err
	}
	if c.IsMatch(token.INTO) {
		c.Pop()
	}

	qualified, err := c.Search(name.Literal)
	if err != nil {
		return err
	}
	if err := c.CheckAssignable(qualified); err != nil {
		return err
	}

	c.Emit("push ra,sp")
	c.Emit("jal ra," + runtimeCall)
	c.Emit("pop ra,sp")
	c.Emit("mv A,a0")
	c.Emit("ssw A," + qualified + ",T")
	return nil
}

// output = "!" expression .
func output(c *scanner.Context, bal *stack.Stack) error {
	c.Pop() // BANG
	if err := expression(c, bal); err != nil {
		return err
	}
	c.Emit("mv a0,A")
	c.Emit("push ra,sp")
	c.Emit("jal ra,PL0_OUTPUT")
	c.Emit("pop ra,sp")
	return nil
}

// writechar = "echo" expression | "writechar" expression .
func outputChar(c *scanner.Context, bal *stack.Stack) error {
	c.Pop() // WRITECHAR
	if err := expression(c, bal); err != nil {
		return err
	}
	c.Emit("sbd A,T_TX(zero)")
	return nil
}

// writestr = "writestr" ( ident | string ) .
func outputString(c *scanner.Context, bal *stack.Stack) error {
	tok := c.Pop() // WRITESTR

	switch c.Peek().Type {
	case token.STRING:
		lit := c.Pop()
		id := fmt.Sprintf("str_%d_%d", tok.Pos.Line, tok.Pos.Column)
		c.EmitStringPragma(fmt.Sprintf("%s: #d \"%s\\0\"", id, lit.Literal))
		c.EmitStringPragma("#align 32")
		c.Emit("push ra,sp")
		c.Emit("la a0," + id)
		c.Emit("jal ra,crt0.puts")
		c.Emit("pop ra,sp")
		return nil

	case token.IDENT:
		name := c.Pop()
		qualified, err := c.Search(name.Literal)
		if err != nil {
			return err
		}
		if err := c.IsArray(qualified); err != nil {
			return err
		}

		prefix := c.LabelPrefix()
		loop := prefix + "writeStr_loop"
		exit := prefix + "writeStr_exit"

		c.Emit("la A," + qualified)
		c.Emit(loop + ":")
		c.Emit("lw T,0(A)")
		c.Emit("beq T,zero," + exit)
		c.Emit("sbd T,T_TX(zero)")
		c.Emit("addi A,A,4")
		c.Emit("j " + loop)
		c.Emit(exit + ":")
		return nil

	default:
		p := c.Peek()
		return clierr.SyntaxErr(p.Pos, "expected an identifier or string literal after writestr, got %s", p.Type)
	}
}

// begin = "begin" statement { ";" statement } "end" .
//
// The label prefix is captured at the depth begin/end themselves live at,
// before nesting is incremented for the statements they enclose — the same
// convention a procedure declaration uses for its own label. See
// TestScenarioIfThenElse and TestScenarioNestedProcedureLabels in
// codegen_test.go: top-level control flow emits bare labels, and only
// constructs nested inside another begin/if/while/procedure pick up
// leading dots.
func beginStatement(c *scanner.Context, bal *stack.Stack) error {
	c.Pop() // BEGIN
	prefix := c.LabelPrefix()
	c.Emit(prefix + "begin:")
	c.EnterNesting()

	if err := statement(c, bal); err != nil {
		return err
	}
	for c.IsMatch(token.SEMICOLON) {
		c.Pop()
		if err := statement(c, bal); err != nil {
			return err
		}
	}
	if _, err := c.Expect(token.END); err != nil {
		return err
	}

	c.ExitNesting()
	c.Emit(prefix + "end:")
	return nil
}

// if = "if" condition "then" statement [ "else" statement ] .
func ifStatement(c *scanner.Context, bal *stack.Stack) error {
	c.Pop() // IF
	prefix := c.LabelPrefix()
	c.Emit(prefix + "if:")
	c.EnterNesting()

	if err := condition(c, bal); err != nil {
		return err
	}
	c.Emit("beq A,zero," + prefix + "else")

	if _, err := c.Expect(token.THEN); err != nil {
		return err
	}
	if err := statement(c, bal); err != nil {
		return err
	}
	c.Emit("j " + prefix + "exit")

	c.Emit(prefix + "else:")
	if c.IsMatch(token.ELSE) {
		c.Pop()
		if err := statement(c, bal); err != nil {
			return err
		}
	}
	c.Emit(prefix + "exit:")

	c.ExitNesting()
	return nil
}

// while = "while" condition "do" statement .
func whileStatement(c *scanner.Context, bal *stack.Stack) error {
	c.Pop() // WHILE
	prefix := c.LabelPrefix()
	c.Emit(prefix + "while:")
	c.EnterNesting()

	if err := condition(c, bal); err != nil {
		return err
	}
	c.Emit("beq A,zero," + prefix + "end_while")

	if _, err := c.Expect(token.DO); err != nil {
		return err
	}
	if err := statement(c, bal); err != nil {
		return err
	}
	c.Emit("j " + prefix + "while")
	c.Emit(prefix + "end_while:")

	c.ExitNesting()
	return nil
}

// exit = "exit" expression .
func exitStatement(c *scanner.Context, bal *stack.Stack) error {
	c.Pop() // EXIT
	if err := expression(c, bal); err != nil {
		return err
	}
	c.Emit("mv a0,A")
	c.Emit("j crt0.exit")
	return nil
}
