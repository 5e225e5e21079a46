// Package lexer turns PL/0 source text into an ordered token stream.
//
// Lex is a pure function: source text in, tokens out. It proceeds in four
// passes over the text rather than the usual character-at-a-time scan,
// because string literals have to be pulled out before anything else can
// safely insert whitespace:
//
//  1. Extract every single-quoted literal into a side table, leaving a
//     placeholder identifier in its place.
//  2. Pad every punctuation symbol with surrounding spaces, so that word
//     boundaries fall out of a plain whitespace split.
//  3. Re-join the two-character compounds (":=", "<=", ">=", "<>", "//")
//     that step 2 just split apart.
//  4. Split line by line, word by word, stripping "//" and "{ }" comments
//     and classifying what's left.
//
// Placeholders are rehydrated back into STRING tokens as the very last
// step of classification.
package lexer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/skx/pl0c/internal/clierr"
	"github.com/skx/pl0c/token"
)

// padSymbolsList are the single-character symbols surrounded by spaces so
// that whitespace-splitting produces correct word boundaries. Each symbol
// is padded independently, so two adjacent padded symbols always end up
// two spaces apart whatever the order of this list; compoundJoins relies
// on that spacing.
var padSymbolsList = []string{
	".", ",", ";", "(", ")", "?", "!", "#",
	"+", "-", "*", "/", "=", "<", ">", "[", "]", "{", "}",
}

// compoundJoins lists the padded forms of two-character operators/markers
// that step 2 breaks apart, keyed by how many spaces padding leaves between
// the two characters.
var compoundJoins = []string{">  =", "<  =", ": =", "/  /", "<  >"}

// keywords maps every recognised word or symbol, lower-cased, to its token
// type. Several entries are aliases for the same type (spec.md §4.1).
var keywords = map[string]token.Type{
	".": token.PERIOD, ",": token.COMMA, ";": token.SEMICOLON,
	"(": token.LPAREN, ")": token.RPAREN, "[": token.LBRACK, "]": token.RBRACK,

	":=": token.ASSIGN,
	"=":  token.EQ,
	"#":  token.NEQ, "<>": token.NEQ,
	"<": token.LT, "<=": token.LTE,
	">": token.GT, ">=": token.GTE,

	"+": token.PLUS, "-": token.MINUS, "*": token.ASTERISK, "/": token.SLASH,
	"mod": token.MOD,

	"odd": token.ODD, "not": token.NOT, "and": token.AND, "or": token.OR,

	"?": token.QUESTION, "read": token.QUESTION,
	"!": token.BANG, "write": token.BANG, "writeint": token.BANG,
	"echo": token.WRITECHAR, "writechar": token.WRITECHAR,
	"readchar": token.READCHAR,
	"writestr": token.WRITESTR,
	"into":     token.INTO,

	"const": token.CONST, "var": token.VAR,
	"procedure": token.PROCEDURE, "forward": token.FORWARD, "call": token.CALL,
	"begin": token.BEGIN, "end": token.END,
	"if": token.IF, "then": token.THEN, "else": token.ELSE,
	"while": token.WHILE, "do": token.DO,
	"size": token.SIZE, "exit": token.EXIT,
}

const (
	placeholderPrefix = "__STR_"
	placeholderSuffix = "__"
)

// rawWord is an uninterpreted word carved out of the source, still tagged
// with the position it started at.
type rawWord struct {
	text string
	pos  token.Position
}

// Lex tokenizes source into an ordered token stream. The only error it can
// return is a LexError, raised when a string literal is opened and never
// closed.
func Lex(source string) ([]token.Token, error) {
	stripped, literals, err := extractLiterals(source)
	if err != nil {
		return nil, err
	}

	joined := rejoinCompounds(padSymbols(stripped))

	words := scanWords(joined)

	tokens := make([]token.Token, 0, len(words))
	for _, w := range words {
		tokens = append(tokens, classify(w, literals))
	}
	return tokens, nil
}

// extractLiterals pulls every '...' run out of source in a single pass,
// replacing each with a placeholder identifier so the rest of the pipeline
// never has to think about quoted content. It fails if a literal is opened
// and the input ends before it is closed.
func extractLiterals(source string) (string, []string, error) {
	var out strings.Builder
	var cur strings.Builder
	var literals []string

	recording := false
	line, col := 1, 0
	var openedAt token.Position

	for _, r := range source {
		switch {
		case r == '\'':
			if recording {
				literals = append(literals, cur.String())
				out.WriteString(placeholderFor(len(literals) - 1))
				cur.Reset()
				recording = false
			} else {
				recording = true
				openedAt = token.Position{Line: line, Column: col}
			}
		case recording:
			cur.WriteRune(r)
		default:
			out.WriteRune(r)
		}

		if r == '\n' {
			line++
			col = 0
		} else {
			col++
		}
	}

	if recording {
		return "", nil, clierr.LexErr(openedAt, "string literal is opened but never closed")
	}
	return out.String(), literals, nil
}

func placeholderFor(i int) string {
	return fmt.Sprintf("%s%d%s", placeholderPrefix, i, placeholderSuffix)
}

func literalIndex(word string) (int, bool) {
	if !strings.HasPrefix(word, placeholderPrefix) || !strings.HasSuffix(word, placeholderSuffix) {
		return 0, false
	}
	middle := strings.TrimSuffix(strings.TrimPrefix(word, placeholderPrefix), placeholderSuffix)
	n, err := strconv.Atoi(middle)
	if err != nil {
		return 0, false
	}
	return n, true
}

func padSymbols(s string) string {
	for _, sym := range padSymbolsList {
		s = strings.ReplaceAll(s, sym, " "+sym+" ")
	}
	return s
}

func rejoinCompounds(s string) string {
	for _, pair := range compoundJoins {
		joined := string(pair[0]) + string(pair[len(pair)-1])
		s = strings.ReplaceAll(s, pair, joined)
	}
	return s
}

// scanWords walks the padded, joined source line by line, stripping "//"
// line comments and "{ }" block comments (which may span lines), and
// records the cumulative word-length offset of each surviving word as its
// column.
func scanWords(s string) []rawWord {
	var words []rawWord
	inBraceComment := false

	for lineIdx, line := range strings.Split(s, "\n") {
		col := 0
	wordLoop:
		for _, word := range strings.Fields(line) {
			switch word {
			case "//":
				break wordLoop
			case "{":
				inBraceComment = true
				col += len(word)
			case "}":
				inBraceComment = false
				col += len(word)
			default:
				if !inBraceComment {
					words = append(words, rawWord{text: word, pos: token.Position{Line: lineIdx + 1, Column: col}})
				}
				col += len(word)
			}
		}
	}

	return words
}

// classify turns a raw word into a Token: a rehydrated string literal, a
// case-insensitive keyword/symbol match, a signed 32-bit number, or
// otherwise a plain identifier.
func classify(w rawWord, literals []string) token.Token {
	if idx, ok := literalIndex(w.text); ok && idx < len(literals) {
		return token.Token{Type: token.STRING, Literal: literals[idx], Pos: w.pos}
	}

	if tt, ok := keywords[strings.ToLower(w.text)]; ok {
		return token.Token{Type: tt, Literal: w.text, Pos: w.pos}
	}

	if n, err := strconv.ParseInt(w.text, 10, 32); err == nil {
		return token.Token{Type: token.NUMBER, Literal: w.text, Num: int32(n), Pos: w.pos}
	}

	return token.Token{Type: token.IDENT, Literal: w.text, Pos: w.pos}
}
