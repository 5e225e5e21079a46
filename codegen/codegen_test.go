package codegen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/skx/pl0c/emit"
	"github.com/skx/pl0c/internal/clierr"
	"github.com/skx/pl0c/lexer"
)

func compileSource(t *testing.T, source string) []emit.Line {
	t.Helper()
	toks, err := lexer.Lex(source)
	require.NoError(t, err)
	lines, err := Compile(toks)
	require.NoError(t, err)
	return lines
}

func codeText(lines []emit.Line) []string {
	var out []string
	for _, l := range lines {
		if l.Kind == emit.Code {
			out = append(out, strings.TrimSpace(l.Text))
		}
	}
	return out
}

// requireSubsequence asserts that want appears, in order, as a (possibly
// non-contiguous) subsequence of got.
func requireSubsequence(t *testing.T, got, want []string) {
	t.Helper()
	i := 0
	for _, line := range got {
		if i < len(want) && line == want[i] {
			i++
		}
	}
	if i != len(want) {
		t.Fatalf("expected subsequence %v not found in order within %v (matched %d/%d)", want, got, i, len(want))
	}
}

// Scenario 1: VAR x; x := 1 + 2 * 3 .
func TestScenarioArithmeticPrecedence(t *testing.T) {
	lines := compileSource(t, "VAR x; x := 1 + 2 * 3 .")
	requireSubsequence(t, codeText(lines), []string{
		"li A,1", "push A,sp",
		"li A,2", "push A,sp",
		"li A,3",
		"pop B,sp", "mul zero,A,A,B",
		"pop B,sp", "add A,A,B",
		"ssw A,global.x,T",
	})
}

// Scenario 2: CONST pi = 3; VAR x; x := pi .
func TestScenarioConstantReference(t *testing.T) {
	lines := compileSource(t, "CONST pi = 3; VAR x; x := pi .")
	text := codeText(lines)
	requireSubsequence(t, text, []string{"pi = 3", "li A,pi", "ssw A,global.x,T"})
	for _, l := range text {
		require.NotContains(t, l, "llw A,pi", "a constant reference must not load from memory")
	}
}

// Scenario 3: VAR a SIZE 4; a[2] := 7 .
func TestScenarioArrayAssignment(t *testing.T) {
	lines := compileSource(t, "VAR a SIZE 4; a[2] := 7 .")

	var varLines []string
	for _, l := range lines {
		if l.Kind == emit.VarPragma {
			varLines = append(varLines, l.Text)
		}
	}
	require.Contains(t, varLines, "a: #res 4 * 4")
	require.Contains(t, varLines, "a.len: #d32 4")

	requireSubsequence(t, codeText(lines), []string{
		"li A,2",
		"la T,global.a", "muli A,A,4", "add T,A,T",
		"li A,7",
		"sw A,0(T)",
	})
}

// Scenario 4: IF x = 0 THEN ! 1 ELSE ! 2 .
func TestScenarioIfThenElse(t *testing.T) {
	lines := compileSource(t, "VAR x; IF x = 0 THEN ! 1 ELSE ! 2 .")
	requireSubsequence(t, codeText(lines), []string{
		"if:",
		"xor A,B,A", "sltiu A,A,1",
		"beq A,zero,else",
		"j exit",
		"else:",
		"exit:",
	})
}

// Scenario 5: PROCEDURE outer; PROCEDURE inner; ; ; .
func TestScenarioNestedProcedureLabels(t *testing.T) {
	lines := compileSource(t, "PROCEDURE outer; PROCEDURE inner; ; ; .")
	text := codeText(lines)

	require.Contains(t, text, "outer:")
	require.Contains(t, text, ".inner:")

	innerIdx := indexOf(text, ".inner:")
	outerIdx := indexOf(text, "outer:")
	require.Greater(t, innerIdx, outerIdx, "inner must be emitted after outer's own label")

	retCount := 0
	for _, l := range text {
		if l == "jalr zero,0(ra)" {
			retCount++
		}
	}
	require.Equal(t, 2, retCount)

	// inner's epilogue must come before outer's.
	firstReturn := indexOf(text, "jalr zero,0(ra)")
	require.Less(t, firstReturn, indexOfFrom(text, "jalr zero,0(ra)", firstReturn+1))
	// inner's return is emitted one nesting level deeper, so it carries
	// one more tab than outer's.
	var returns []string
	for _, l := range lines {
		if strings.TrimSpace(l.Text) == "jalr zero,0(ra)" {
			returns = append(returns, l.Text)
		}
	}
	require.Equal(t, []string{"\t\tjalr zero,0(ra)", "\tjalr zero,0(ra)"}, returns)
}

func indexOf(haystack []string, want string) int {
	return indexOfFrom(haystack, want, 0)
}

func indexOfFrom(haystack []string, want string, from int) int {
	for i := from; i < len(haystack); i++ {
		if haystack[i] == want {
			return i
		}
	}
	return -1
}

// Scenario 6: VAR s SIZE 6; WRITESTR s .
func TestScenarioWritestrArray(t *testing.T) {
	lines := compileSource(t, "VAR s SIZE 6; WRITESTR s .")
	requireSubsequence(t, codeText(lines), []string{
		"writeStr_loop:",
		"lw T,0(A)",
		"beq T,zero,writeStr_exit",
		"sbd T,T_TX(zero)",
		"addi A,A,4",
		"j writeStr_loop",
		"writeStr_exit:",
	})
}

func TestWritestrLiteralProducesNulTerminatedPragma(t *testing.T) {
	lines := compileSource(t, "WRITESTR 'hi' .")

	count := 0
	for _, l := range lines {
		if l.Kind == emit.StringPragma && strings.Contains(l.Text, `#d "hi\0"`) {
			count++
		}
	}
	require.Equal(t, 1, count, "expected exactly one NUL-terminated string pragma")
}

func TestAssignToConstantFails(t *testing.T) {
	_, err := lexer.Lex("CONST pi = 3; BEGIN pi := 4 END .")
	require.NoError(t, err)
	toks, _ := lexer.Lex("CONST pi = 3; BEGIN pi := 4 END .")
	_, err = Compile(toks)
	require.Error(t, err)
	require.True(t, clierr.Is(err, clierr.Type))
}

func TestAssignToConstantFromNestedScopeFails(t *testing.T) {
	toks, err := lexer.Lex("CONST pi = 3; PROCEDURE p; BEGIN pi := 4 END; .")
	require.NoError(t, err)
	_, err = Compile(toks)
	require.Error(t, err)
	require.True(t, clierr.Is(err, clierr.Type))
}

func TestIndexingNonArrayFails(t *testing.T) {
	toks, err := lexer.Lex("VAR x; x[1] := 2 .")
	require.NoError(t, err)
	_, err = Compile(toks)
	require.Error(t, err)
	require.True(t, clierr.Is(err, clierr.Type))
}

func TestUnknownIdentifierFails(t *testing.T) {
	toks, err := lexer.Lex("x := 1 .")
	require.NoError(t, err)
	_, err = Compile(toks)
	require.Error(t, err)
	require.True(t, clierr.Is(err, clierr.Name))
}

func TestMultiCharacterConstantFails(t *testing.T) {
	toks, err := lexer.Lex("CONST c = 'ab' ; .")
	require.NoError(t, err)
	_, err = Compile(toks)
	require.Error(t, err)
	require.True(t, clierr.Is(err, clierr.Type))
}

func TestNonPositiveArraySizeFails(t *testing.T) {
	toks, err := lexer.Lex("VAR a SIZE 0; .")
	require.NoError(t, err)
	_, err = Compile(toks)
	require.Error(t, err)
	require.True(t, clierr.Is(err, clierr.Type))
}

func TestArraySizeFromConstant(t *testing.T) {
	lines := compileSource(t, "CONST n = 5; VAR a SIZE n; .")
	var varLines []string
	for _, l := range lines {
		if l.Kind == emit.VarPragma {
			varLines = append(varLines, l.Text)
		}
	}
	require.Contains(t, varLines, "a: #res n * 4")
	require.Contains(t, varLines, "a.len: #d32 n")
}

func TestWhitespaceInsensitiveTokenStream(t *testing.T) {
	a := compileSource(t, "VAR x; x := 1 + 2 * 3 .")
	b := compileSource(t, "VAR   x ;\n\n x   :=   1+2*3 .\n")
	require.Equal(t, codeText(a), codeText(b))
}

// Declarations inside a procedure use the same dot-count nesting prefix as
// labels, not the qualified scope path — grounded on the reference
// implementation's variable()/constant() functions. See DESIGN.md.
func TestNestedDeclarationsUseDotCountPrefix(t *testing.T) {
	lines := compileSource(t, "PROCEDURE p; CONST k = 9; VAR x, a SIZE 2; ; .")

	var varLines []string
	for _, l := range lines {
		if l.Kind == emit.VarPragma {
			varLines = append(varLines, l.Text)
		}
	}
	require.Contains(t, varLines, ".x: #res 4")
	require.Contains(t, varLines, ".a: #res 2 * 4")
	require.Contains(t, varLines, ".a.len: #d32 2")

	require.Contains(t, codeText(lines), ".k = 9")
}

func TestBeginEndBalancedAtNesting(t *testing.T) {
	lines := compileSource(t, "BEGIN ; BEGIN ; END ; END .")
	text := codeText(lines)
	// outer begin/end are bare (top-level, depth 0); inner picks up one dot.
	require.Contains(t, text, "begin:")
	require.Contains(t, text, ".begin:")
	require.Contains(t, text, ".end:")
	require.Contains(t, text, "end:")
}
