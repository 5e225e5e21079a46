package codegen

import (
	"fmt"

	"github.com/skx/pl0c/internal/clierr"
	"github.com/skx/pl0c/scanner"
	"github.com/skx/pl0c/stack"
	"github.com/skx/pl0c/token"
)

// operator tags a binary arithmetic/logical operator. This mirrors the
// teacher corpus's habit of giving each emittable operation a small typed
// constant and looking its instructions up in a table rather than
// switching on it inline at every call site.
type operator int

const (
	opAdd operator = iota
	opSub
	opOr
	opMul
	opDiv
	opMod
	opAnd
)

// binaryEmit holds the instruction sequence for each operator, applied
// after the push A,sp / <recurse> / pop B,sp protocol: B holds the left
// operand, A the right.
var binaryEmit = map[operator][]string{
	opAdd: {"add A,A,B"},
	opSub: {"sub A,B,A"},
	opOr:  {"or  A,B,A"},
	opMul: {"mul zero,A,A,B"},
	opDiv: {"idiv A,zero,B,A"},
	opMod: {"idiv zero,A,B,A"},
	opAnd: {"and A,B,A"},
}

// relEmit holds the instruction sequence for each relational operator,
// applied the same way: B holds the left operand, A the right, and the
// result (1 or 0) is left in A.
var relEmit = map[token.Type][]string{
	token.EQ:  {"xor A,B,A", "sltiu A,A,1"},
	token.NEQ: {"xor A,B,A", "sltu A,zero,A"},
	token.LT:  {"slt A,B,A"},
	token.LTE: {"slt A,A,B", "xori A,A,1"},
	token.GT:  {"slt A,A,B"},
	token.GTE: {"slt A,B,A", "xori A,A,1"},
}

func popBalanced(bal *stack.Stack) error {
	if _, err := bal.Pop(); err != nil {
		return fmt.Errorf("internal error: push/pop imbalance: %w", err)
	}
	return nil
}

// condition = "odd" expression | expression relop expression .
func condition(c *scanner.Context, bal *stack.Stack) error {
	if c.IsMatch(token.ODD) {
		c.Pop()
		if err := expression(c, bal); err != nil {
			return err
		}
		c.Emit("andi A,A,1")
		return nil
	}

	if err := expression(c, bal); err != nil {
		return err
	}

	c.Emit("push A,sp")
	bal.Push(RegA)

	opTok := c.Peek()
	instrs, ok := relEmit[opTok.Type]
	if !ok {
		return clierr.SyntaxErr(opTok.Pos, "expected relational operator, got %s", opTok.Type)
	}
	c.Pop()

	if err := expression(c, bal); err != nil {
		return err
	}
	if err := popBalanced(bal); err != nil {
		return err
	}
	c.Emit("pop B,sp")

	for _, instr := range instrs {
		c.Emit(instr)
	}
	return nil
}

// expression = [ "+" | "-" | "not" ] term { ( "+" | "-" | "or" ) term } .
func expression(c *scanner.Context, bal *stack.Stack) error {
	negate, invert := false, false
	switch c.Peek().Type {
	case token.PLUS:
		c.Pop()
	case token.MINUS:
		c.Pop()
		negate = true
	case token.NOT:
		c.Pop()
		invert = true
	}

	if err := term(c, bal); err != nil {
		return err
	}

	if negate {
		c.Emit("not A,A")
		c.Emit("addi A,A,1")
	}
	if invert {
		c.Emit("not A,A")
	}

	for {
		var op operator
		switch c.Peek().Type {
		case token.PLUS:
			op = opAdd
		case token.MINUS:
			op = opSub
		case token.OR:
			op = opOr
		default:
			return nil
		}
		c.Pop()

		c.Emit("push A,sp")
		bal.Push(RegA)
		if err := term(c, bal); err != nil {
			return err
		}
		if err := popBalanced(bal); err != nil {
			return err
		}
		c.Emit("pop B,sp")
		for _, instr := range binaryEmit[op] {
			c.Emit(instr)
		}
	}
}

// term = factor { ( "*" | "/" | "mod" | "and" ) factor } .
func term(c *scanner.Context, bal *stack.Stack) error {
	if err := factor(c, bal); err != nil {
		return err
	}

	for {
		var op operator
		switch c.Peek().Type {
		case token.ASTERISK:
			op = opMul
		case token.SLASH:
			op = opDiv
		case token.MOD:
			op = opMod
		case token.AND:
			op = opAnd
		default:
			return nil
		}
		c.Pop()

		c.Emit("push A,sp")
		bal.Push(RegA)
		if err := factor(c, bal); err != nil {
			return err
		}
		if err := popBalanced(bal); err != nil {
			return err
		}
		c.Emit("pop B,sp")
		for _, instr := range binaryEmit[op] {
			c.Emit(instr)
		}
	}
}

// factor = ident [ "[" expression "]" ] | number | "(" expression ")" .
func factor(c *scanner.Context, bal *stack.Stack) error {
	tok := c.Peek()
	switch tok.Type {
	case token.LPAREN:
		c.Pop()
		if err := expression(c, bal); err != nil {
			return err
		}
		_, err := c.Expect(token.RPAREN)
		return err

	case token.NUMBER:
		c.Pop()
		c.Emit(fmt.Sprintf("li A,%d", tok.Num))
		return nil

	case token.IDENT:
		c.Pop()
		if c.IsMatch(token.LBRACK) {
			c.Pop()
			qualified, err := c.Search(tok.Literal)
			if err != nil {
				return err
			}
			if err := c.IsArray(qualified); err != nil {
				return err
			}
			if err := expression(c, bal); err != nil {
				return err
			}
			if _, err := c.Expect(token.RBRACK); err != nil {
				return err
			}
			c.Emit("muli A,A,4")
			c.Emit("la T," + qualified)
			c.Emit("add T,A,T")
			c.Emit("lw A,0(T)")
			return nil
		}

		res, err := c.SearchConst(tok.Literal)
		if err != nil {
			return err
		}
		switch res.Kind {
		case scanner.ResolvedConst:
			c.Emit("li A," + stripGlobalPrefix(res.Qualified))
		case scanner.ResolvedVar:
			c.Emit("llw A," + res.Qualified)
		}
		return nil

	default:
		return clierr.SyntaxErr(tok.Pos, "expected a factor (identifier, number, or parenthesized expression), got %s", tok.Type)
	}
}
