package command

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// ParseError reports a malformed command line.
type ParseError struct {
	Input  string
	Reason string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse command %q: %s", e.Input, e.Reason)
}

// IsParseError returns true if err is a ParseError.
// Uses errors.As to handle wrapped errors.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// Invocation is a parsed command line.
type Invocation struct {
	// Name is the lower-cased command name.
	Name string
	Args []string
}

// Parse splits a raw line into a command name and arguments.
//
// Arguments are separated by whitespace; a double-quoted group is one
// argument and may contain whitespace. The line is NFC-normalized first so
// that visually identical input typed on different keyboards parses the
// same.
func Parse(raw string) (Invocation, error) {
	line := norm.NFC.String(strings.TrimSpace(raw))
	if line == "" {
		return Invocation{}, &ParseError{Input: raw, Reason: "empty command"}
	}

	var (
		args    []string
		cur     strings.Builder
		inQuote bool
		inToken bool
	)
	for _, r := range line {
		switch {
		case r == '"':
			inQuote = !inQuote
			inToken = true
		case unicode.IsSpace(r) && !inQuote:
			if inToken {
				args = append(args, cur.String())
				cur.Reset()
				inToken = false
			}
		default:
			cur.WriteRune(r)
			inToken = true
		}
	}
	if inQuote {
		return Invocation{}, &ParseError{Input: raw, Reason: "unbalanced quote"}
	}
	if inToken {
		args = append(args, cur.String())
	}
	if args[0] == "" {
		return Invocation{}, &ParseError{Input: raw, Reason: "empty command name"}
	}

	inv := Invocation{Name: strings.ToLower(args[0])}
	if len(args) > 1 {
		inv.Args = args[1:]
	}
	return inv, nil
}
