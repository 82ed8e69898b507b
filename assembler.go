// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package pixstream

// Assembler joins arriving chunks with the bytes a Parser could not yet use.
// Fields may be split across chunks at any byte; the parser only ever sees a
// contiguous buffer starting at its next unread field.
type Assembler struct {
	parser Parser
	buf    []byte
}

// NewAssembler creates an assembler feeding p.
func NewAssembler(p Parser) *Assembler {
	return &Assembler{parser: p}
}

// Feed appends chunk to the unconsumed remainder, runs the parser over the
// result and returns what is left. The returned slice is owned by the
// assembler and is only valid until the next call to Feed.
func (a *Assembler) Feed(chunk []byte) []byte {
	a.buf = append(a.buf, chunk...)
	if len(a.buf) == 0 {
		return a.buf
	}

	n := a.parser.Process(a.buf)
	if n > 0 {
		rest := copy(a.buf, a.buf[n:])
		a.buf = a.buf[:rest]
	}
	return a.buf
}

// Buffered returns the number of bytes waiting for the parser.
func (a *Assembler) Buffered() int {
	return len(a.buf)
}

// Parser returns the parser this assembler feeds.
func (a *Assembler) Parser() Parser {
	return a.parser
}
