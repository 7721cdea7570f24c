// Package diag formats the compiler's fatal and non-fatal diagnostics.
// Fatal errors (lex, parse, semantic) carry a byte Offset into the source
// and are reported with a caret under the offending position; the one
// non-fatal kind, an uninitialized-variable read, is collected during IR
// construction and flushed once per distinct name per function at
// serialization time.
package diag

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Kind names the stage that raised a fatal diagnostic.
type Kind string

const (
	Lex      Kind = "lex error"
	Parse    Kind = "parse error"
	Semantic Kind = "semantic error"
)

// Error is a fatal diagnostic: compilation aborts immediately, no partial
// output is emitted, and the source's Offset locates it in filename.
type Error struct {
	Kind     Kind
	Filename string
	Source   string
	Offset   int
	Message  string
}

func (e *Error) Error() string {
	line, col, text := locate(e.Source, e.Offset)
	bold := color.New(color.Bold).SprintFunc()
	red := color.New(color.FgRed, color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n", red(string(e.Kind)), bold(e.Message))
	fmt.Fprintf(&b, "  %s %s:%d:%d\n", dim("-->"), e.Filename, line, col)
	fmt.Fprintf(&b, "   %s\n", dim("|"))
	fmt.Fprintf(&b, "%3d%s %s\n", line, dim(" |"), text)
	fmt.Fprintf(&b, "   %s %s%s\n", dim("|"), strings.Repeat(" ", col-1), red("^"))
	return b.String()
}

// locate converts a byte offset into a 1-based line/column and returns the
// full text of the line it falls on.
func locate(source string, offset int) (line, col int, text string) {
	line = 1
	lineStart := 0
	for i := 0; i < offset && i < len(source); i++ {
		if source[i] == '\n' {
			line++
			lineStart = i + 1
		}
	}
	col = offset - lineStart + 1
	end := strings.IndexByte(source[lineStart:], '\n')
	if end < 0 {
		text = source[lineStart:]
	} else {
		text = source[lineStart : lineStart+end]
	}
	return line, col, text
}

// New builds a fatal Error of the given Kind at offset.
func New(kind Kind, filename, source string, offset int, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Filename: filename, Source: source, Offset: offset, Message: fmt.Sprintf(format, args...)}
}

// UninitWarning prints the non-fatal line `[WARNING] [<fn>] Accessing an
// uninitialized variable "<name>"` (name in double quotes), one per distinct name per
// function, the way the graph serializer flushes them once IR
// construction for a function completes.
func UninitWarning(funcName, varName string) {
	yellow := color.New(color.FgYellow, color.Bold).SprintFunc()
	fmt.Printf("[%s] [%s] Accessing an uninitialized variable %q\n", yellow("WARNING"), funcName, varName)
}
