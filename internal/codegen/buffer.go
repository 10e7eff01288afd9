package codegen

import (
	"strings"
)

// Buffer accumulates generated source text while tracking the current
// indentation level. One Buffer is used per generated script.
type Buffer struct {
	sb          strings.Builder
	target      Target
	indentLevel int
	once        map[string]struct{}
}

// NewBuffer creates an empty buffer for the given target.
func NewBuffer(target Target) *Buffer {
	return &Buffer{target: target, once: make(map[string]struct{})}
}

// Target returns the language this buffer is generating.
func (b *Buffer) Target() Target {
	return b.target
}

// IndentLevel returns the current indentation depth.
func (b *Buffer) IndentLevel() int {
	return b.indentLevel
}

// SetIndentLevel changes the indentation depth. With relative set, n is added
// to the current level. The level never drops below zero.
func (b *Buffer) SetIndentLevel(n int, relative bool) int {
	if relative {
		b.indentLevel += n
	} else {
		b.indentLevel = n
	}
	if b.indentLevel < 0 {
		b.indentLevel = 0
	}
	return b.indentLevel
}

// Write appends text verbatim.
func (b *Buffer) Write(text string) {
	b.sb.WriteString(text)
}

// WriteIndented appends text prefixed with the current indentation. Only the
// first line is indented; use WriteIndentedLines for multi-line blocks.
func (b *Buffer) WriteIndented(text string) {
	b.sb.WriteString(b.indent())
	b.sb.WriteString(text)
}

// WriteIndentedLines indents every line of text and guarantees the block ends
// with a newline. Blank lines are written without trailing whitespace.
func (b *Buffer) WriteIndentedLines(text string) {
	text = strings.TrimSuffix(text, "\n")
	prefix := b.indent()
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			b.sb.WriteString(prefix)
			b.sb.WriteString(line)
		}
		b.sb.WriteByte('\n')
	}
}

// WriteOnceIndentedLines writes text like WriteIndentedLines unless the exact
// same block has already been written through this method.
func (b *Buffer) WriteOnceIndentedLines(text string) bool {
	if _, seen := b.once[text]; seen {
		return false
	}
	b.once[text] = struct{}{}
	b.WriteIndentedLines(text)
	return true
}

// String returns everything written so far.
func (b *Buffer) String() string {
	return b.sb.String()
}

// Len returns the number of bytes written so far.
func (b *Buffer) Len() int {
	return b.sb.Len()
}

func (b *Buffer) indent() string {
	return strings.Repeat(b.target.Indent(), b.indentLevel)
}
