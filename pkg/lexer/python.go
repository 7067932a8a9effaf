package lexer

// pythonKeywords is the Python 3 keyword set.
var pythonKeywords = map[string]bool{
	"False": true, "None": true, "True": true, "and": true, "as": true,
	"assert": true, "async": true, "await": true, "break": true, "class": true,
	"continue": true, "def": true, "del": true, "elif": true, "else": true,
	"except": true, "finally": true, "for": true, "from": true, "global": true,
	"if": true, "import": true, "in": true, "is": true, "lambda": true,
	"nonlocal": true, "not": true, "or": true, "pass": true, "raise": true,
	"return": true, "try": true, "while": true, "with": true, "yield": true,
}

// pythonBuiltinTypes are built-ins normalized as type names so that renaming
// a container type still matches under Type-2.
var pythonBuiltinTypes = map[string]bool{
	"int": true, "float": true, "str": true, "bool": true, "list": true,
	"dict": true, "set": true, "tuple": true, "bytes": true, "bytearray": true,
	"complex": true, "frozenset": true, "object": true, "type": true,
	"range": true, "slice": true, "memoryview": true, "property": true,
	"classmethod": true, "staticmethod": true, "super": true,
}

// pythonLexer tokenizes Python source. Indentation is significant: leading
// whitespace is tracked with a stack (tab stops of 8) and emitted as
// indent/dedent tokens, except on blank and comment-only lines.
type pythonLexer struct{}

func (pythonLexer) Language() Language { return LangPython }

func (pythonLexer) Normalize(src []byte) *File {
	cur := newCursor(src)
	f := &File{}
	var tally lineTally
	indents := []int{0}

	for !cur.eof() {
		tally.observe(cur.line)

		ch := cur.peek()

		if cur.atLineStart && ch != '\n' && ch != '#' {
			indent := 0
			for !cur.eof() && (cur.peek() == ' ' || cur.peek() == '\t') {
				if cur.peek() == '\t' {
					indent += 8 - indent%8
				} else {
					indent++
				}
				cur.advance()
			}
			// No indent tokens for blank or comment-only lines.
			if !cur.eof() && cur.peek() != '\n' && cur.peek() != '#' {
				f.Tokens, indents = pyIndentation(f.Tokens, indents, indent, cur.line)
			}
			cur.atLineStart = false
			if cur.eof() {
				break
			}
			ch = cur.peek()
		}

		switch {
		case ch == ' ' || ch == '\t':
			cur.advance()

		case ch == '\n':
			f.Tokens = appendNewline(f.Tokens, cur.line, cur.col)
			cur.advance()

		case ch == '#':
			tally.hasComment = true
			for !cur.eof() && cur.peek() != '\n' {
				cur.advance()
			}

		case ch == '"' || ch == '\'':
			tally.hasCode = true
			f.Tokens = append(f.Tokens, pyString(cur))

		case pyStringPrefix1(ch) && (cur.peekNext() == '"' || cur.peekNext() == '\''):
			tally.hasCode = true
			cur.advance() // prefix
			f.Tokens = append(f.Tokens, pyString(cur))

		case pyStringPrefix2(ch, cur.peekNext()) && (cur.peekAt(2) == '"' || cur.peekAt(2) == '\''):
			tally.hasCode = true
			cur.advance() // fr / rf prefixes
			cur.advance()
			f.Tokens = append(f.Tokens, pyString(cur))

		case isDigit(ch) || (ch == '.' && isDigit(cur.peekNext())):
			tally.hasCode = true
			f.Tokens = append(f.Tokens, pyNumber(cur))

		case isIdentStart(ch):
			tally.hasCode = true
			f.Tokens = append(f.Tokens, pyWord(cur))

		case pyOperatorChar(ch):
			tally.hasCode = true
			f.Tokens = append(f.Tokens, pyOperator(cur))

		default:
			cur.advance()
		}
	}
	tally.finish()

	// Close any blocks still open at end of file.
	for len(indents) > 1 {
		indents = indents[:len(indents)-1]
		h := HashLexeme("DEDENT")
		f.Tokens = append(f.Tokens, Token{
			Type:           TokenDedent,
			OriginalHash:   h,
			NormalizedHash: h,
			Line:           cur.line,
			Column:         1,
		})
	}

	f.TotalLines = cur.totalLines()
	f.CodeLines = tally.code
	f.CommentLines = tally.comment
	f.BlankLines = tally.blank
	return f
}

func pyStringPrefix1(c byte) bool {
	return c == 'f' || c == 'F' || c == 'r' || c == 'R' || c == 'b' || c == 'B'
}

func pyStringPrefix2(a, b byte) bool {
	first := a == 'f' || a == 'F' || a == 'r' || a == 'R'
	second := b == 'f' || b == 'F' || b == 'r' || b == 'R'
	return first && second
}

// pyIndentation compares the line's indent width against the stack and emits
// one indent or as many dedents as levels were closed.
func pyIndentation(tokens []Token, stack []int, indent int, line uint32) ([]Token, []int) {
	prev := stack[len(stack)-1]
	switch {
	case indent > prev:
		stack = append(stack, indent)
		h := HashLexeme("INDENT")
		tokens = append(tokens, Token{
			Type:           TokenIndent,
			OriginalHash:   h,
			NormalizedHash: h,
			Line:           line,
			Column:         1,
			Length:         uint16(indent),
		})
	case indent < prev:
		for len(stack) > 0 && stack[len(stack)-1] > indent {
			stack = stack[:len(stack)-1]
			h := HashLexeme("DEDENT")
			tokens = append(tokens, Token{
				Type:           TokenDedent,
				OriginalHash:   h,
				NormalizedHash: h,
				Line:           line,
				Column:         1,
			})
		}
	}
	return tokens, stack
}

// pyString lexes a quoted literal at the cursor (any prefix already
// consumed). The hashed value is the content between the quotes with escape
// sequences removed; an unterminated string ends at the next newline.
func pyString(cur *cursor) Token {
	tok := Token{Type: TokenString, Line: cur.line, Column: cur.col}

	quote := cur.advance()
	triple := false
	if cur.peek() == quote && cur.peekNext() == quote {
		cur.advance()
		cur.advance()
		triple = true
	}

	var value []byte
	start := cur.pos

	for !cur.eof() {
		ch := cur.peek()

		if triple {
			if ch == quote && cur.peekNext() == quote && cur.peekAt(2) == quote {
				cur.advance()
				cur.advance()
				cur.advance()
				break
			}
		} else {
			if ch == quote {
				cur.advance()
				break
			}
			if ch == '\n' {
				break // unterminated
			}
		}

		if ch == '\\' {
			cur.advance()
			if !cur.eof() {
				cur.advance()
			}
			continue
		}

		value = append(value, ch)
		cur.advance()
	}

	closing := 1
	if triple {
		closing = 3
	}
	tok.Length = uint16(cur.pos - start + closing)
	tok.OriginalHash = HashLexeme(string(value))
	tok.NormalizedHash = placeholderHash(TokenString)
	return tok
}

// pyNumber lexes ints, floats, hex/bin/octal forms, exponents, and the
// complex-number j suffix. Underscore separators are excluded from the
// hashed value but counted in the token length.
func pyNumber(cur *cursor) Token {
	tok := Token{Type: TokenNumber, Line: cur.line, Column: cur.col}

	var value []byte
	start := cur.pos

	if cur.peek() == '0' {
		switch next := cur.peekNext(); {
		case next == 'x' || next == 'X':
			value = append(value, cur.advance(), cur.advance())
			for !cur.eof() && (isHexDigit(cur.peek()) || cur.peek() == '_') {
				if cur.peek() != '_' {
					value = append(value, cur.peek())
				}
				cur.advance()
			}
		case next == 'b' || next == 'B':
			value = append(value, cur.advance(), cur.advance())
			for !cur.eof() && (cur.peek() == '0' || cur.peek() == '1' || cur.peek() == '_') {
				if cur.peek() != '_' {
					value = append(value, cur.peek())
				}
				cur.advance()
			}
		case next == 'o' || next == 'O':
			value = append(value, cur.advance(), cur.advance())
			for !cur.eof() && ((cur.peek() >= '0' && cur.peek() <= '7') || cur.peek() == '_') {
				if cur.peek() != '_' {
					value = append(value, cur.peek())
				}
				cur.advance()
			}
		default:
			value = append(value, cur.advance())
		}
	}

	if len(value) == 0 {
		for !cur.eof() && (isDigit(cur.peek()) || cur.peek() == '_') {
			if cur.peek() != '_' {
				value = append(value, cur.peek())
			}
			cur.advance()
		}
	}

	if cur.peek() == '.' && isDigit(cur.peekNext()) {
		value = append(value, cur.advance())
		for !cur.eof() && (isDigit(cur.peek()) || cur.peek() == '_') {
			if cur.peek() != '_' {
				value = append(value, cur.peek())
			}
			cur.advance()
		}
	}

	if cur.peek() == 'e' || cur.peek() == 'E' {
		value = append(value, cur.advance())
		if cur.peek() == '+' || cur.peek() == '-' {
			value = append(value, cur.advance())
		}
		for !cur.eof() && (isDigit(cur.peek()) || cur.peek() == '_') {
			if cur.peek() != '_' {
				value = append(value, cur.peek())
			}
			cur.advance()
		}
	}

	if cur.peek() == 'j' || cur.peek() == 'J' {
		value = append(value, cur.advance())
	}

	tok.Length = uint16(cur.pos - start)
	tok.OriginalHash = HashLexeme(string(value))
	tok.NormalizedHash = placeholderHash(TokenNumber)
	return tok
}

func pyWord(cur *cursor) Token {
	tok := Token{Line: cur.line, Column: cur.col}

	start := cur.pos
	for !cur.eof() && isIdentChar(cur.peek()) {
		cur.advance()
	}
	word := string(cur.src[start:cur.pos])

	tok.Length = uint16(cur.pos - start)
	tok.OriginalHash = HashLexeme(word)

	switch {
	case pythonKeywords[word]:
		tok.Type = TokenKeyword
		tok.NormalizedHash = tok.OriginalHash
	case pythonBuiltinTypes[word]:
		tok.Type = TokenTypeName
		tok.NormalizedHash = placeholderHash(TokenTypeName)
	default:
		tok.Type = TokenIdentifier
		tok.NormalizedHash = placeholderHash(TokenIdentifier)
	}
	return tok
}

func pyOperator(cur *cursor) Token {
	tok := Token{Line: cur.line, Column: cur.col}

	var value string
	start := cur.pos

	if three := cur.lookahead(3); three != "" {
		switch three {
		case "...", "<<=", ">>=", "**=", "//=":
			value = three
			cur.advance()
			cur.advance()
			cur.advance()
		}
	}

	if value == "" {
		switch two := cur.lookahead(2); two {
		case "==", "!=", "<=", ">=", "+=", "-=", "*=", "/=", "%=",
			"&=", "|=", "^=", "**", "//", "<<", ">>", "->", "@=":
			value = two
			cur.advance()
			cur.advance()
		}
	}

	if value == "" {
		value = string(cur.advance())
	}

	tok.Length = uint16(cur.pos - start)
	tok.OriginalHash = HashLexeme(value)
	tok.NormalizedHash = tok.OriginalHash
	tok.Type = punctOrOperator(value)
	return tok
}

func pyOperatorChar(c byte) bool {
	switch c {
	case '+', '-', '*', '/', '%', '=', '<', '>', '!', '&', '|', '^', '~', '@',
		'(', ')', '[', ']', '{', '}', ',', ':', ';', '.':
		return true
	}
	return false
}

// punctOrOperator classifies delimiters as punctuation, everything else as
// an operator. Both keep their original hash.
func punctOrOperator(value string) TokenType {
	switch value {
	case "(", ")", "[", "]", "{", "}", ",", ":", ";", ".":
		return TokenPunct
	}
	return TokenOperator
}
