// Package clierr defines the four compiler error kinds surfaced to the
// command line: LexError, SyntaxError, NameError, and TypeError. Every
// stage of the pipeline reports failure as one of these, carrying the
// token.Position the problem was found at so the CLI can render a single
// "<kind> <pos>: <message>" diagnostic line and stop.
package clierr

import (
	"errors"
	"fmt"

	"github.com/skx/pl0c/token"
)

// Kind discriminates the four compiler error categories.
type Kind int

const (
	// Lex marks a malformed literal, currently only an unterminated
	// string.
	Lex Kind = iota
	// Syntax marks an expected token that never showed up, or trailing
	// tokens after the program-terminating period.
	Syntax
	// Name marks an identifier that isn't bound in any enclosing scope.
	Name
	// Type marks a well-formed but ill-typed construct: indexing a
	// scalar, assigning to a constant, a writestr target that isn't an
	// array, a multi-character constant, a non-positive array size.
	Type
)

func (k Kind) String() string {
	switch k {
	case Lex:
		return "LexError"
	case Syntax:
		return "SyntaxError"
	case Name:
		return "NameError"
	case Type:
		return "TypeError"
	default:
		return "Error"
	}
}

// Error is a single compiler diagnostic: a Kind, the position it was
// raised at, and a human-readable message.
type Error struct {
	Kind    Kind
	Pos     token.Position
	Message string
}

// Error renders the diagnostic in the compiler's fixed "<kind> <pos>:
// <message>" form.
func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Kind, e.Pos, e.Message)
}

func newf(kind Kind, pos token.Position, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Pos: pos, Message: fmt.Sprintf(format, args...)}
}

// LexErr reports a malformed literal.
func LexErr(pos token.Position, format string, args ...interface{}) *Error {
	return newf(Lex, pos, format, args...)
}

// SyntaxErr reports an expected token that did not appear, or similar
// structural mismatch.
func SyntaxErr(pos token.Position, format string, args ...interface{}) *Error {
	return newf(Syntax, pos, format, args...)
}

// NameErr reports an identifier unresolved in any enclosing scope.
func NameErr(pos token.Position, format string, args ...interface{}) *Error {
	return newf(Name, pos, format, args...)
}

// TypeErr reports a well-formed but ill-typed construct.
func TypeErr(pos token.Position, format string, args ...interface{}) *Error {
	return newf(Type, pos, format, args...)
}

// Is reports whether err is a *Error of the given Kind.
func Is(err error, kind Kind) bool {
	var ce *Error
	if !errors.As(err, &ce) {
		return false
	}
	return ce.Kind == kind
}
