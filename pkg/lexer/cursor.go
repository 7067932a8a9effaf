package lexer

// cursor walks raw source bytes tracking 1-based line/column positions.
type cursor struct {
	src         []byte
	pos         int
	line        uint32
	col         uint16
	atLineStart bool
}

func newCursor(src []byte) *cursor {
	return &cursor{src: src, line: 1, col: 1, atLineStart: true}
}

func (c *cursor) eof() bool { return c.pos >= len(c.src) }

func (c *cursor) peek() byte {
	if c.eof() {
		return 0
	}
	return c.src[c.pos]
}

func (c *cursor) peekNext() byte {
	if c.pos+1 >= len(c.src) {
		return 0
	}
	return c.src[c.pos+1]
}

// peekAt returns the byte n positions ahead of the cursor, 0 past the end.
func (c *cursor) peekAt(n int) byte {
	if c.pos+n >= len(c.src) {
		return 0
	}
	return c.src[c.pos+n]
}

// lookahead returns the next n bytes without advancing, or "" when fewer
// than n remain.
func (c *cursor) lookahead(n int) string {
	if c.pos+n > len(c.src) {
		return ""
	}
	return string(c.src[c.pos : c.pos+n])
}

func (c *cursor) advance() byte {
	ch := c.peek()
	c.pos++
	if ch == '\n' {
		c.line++
		c.col = 1
		c.atLineStart = true
	} else {
		c.col++
		// Leading spaces and tabs do not end the start-of-line region, so
		// indented preprocessor directives are still recognized.
		if ch != ' ' && ch != '\t' {
			c.atLineStart = false
		}
	}
	return ch
}

// totalLines derives the line count from the final cursor position: a file
// ending in a newline does not count the phantom line after it.
func (c *cursor) totalLines() int {
	if len(c.src) == 0 {
		return 0
	}
	if c.col == 1 && c.line > 1 {
		return int(c.line) - 1
	}
	return int(c.line)
}

// lineTally classifies every source line as exactly one of code, comment, or
// blank. Lexers mark what they saw on the current line; crossing into a new
// line flushes the previous one.
type lineTally struct {
	current    uint32
	hasCode    bool
	hasComment bool

	code    int
	comment int
	blank   int
}

// observe flushes the previous line when the cursor has moved to a new one.
func (t *lineTally) observe(line uint32) {
	if line == t.current {
		return
	}
	if t.current > 0 {
		t.flush()
	}
	t.current = line
	t.hasCode = false
	t.hasComment = false
}

// finish flushes the last line. Call once at end of input.
func (t *lineTally) finish() {
	if t.current > 0 {
		t.flush()
	}
}

func (t *lineTally) flush() {
	switch {
	case t.hasCode:
		t.code++
	case t.hasComment:
		t.comment++
	default:
		t.blank++
	}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isIdentStart(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

func isIdentChar(c byte) bool { return isIdentStart(c) || isDigit(c) }

// appendNewline emits a newline token unless the stream is empty or already
// ends with one; consecutive blank lines collapse to a single marker.
func appendNewline(tokens []Token, line uint32, col uint16) []Token {
	if len(tokens) == 0 || tokens[len(tokens)-1].Type == TokenNewline {
		return tokens
	}
	h := HashLexeme("\n")
	return append(tokens, Token{
		Type:           TokenNewline,
		OriginalHash:   h,
		NormalizedHash: h,
		Line:           line,
		Column:         col,
		Length:         1,
	})
}
