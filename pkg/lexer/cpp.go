package lexer

var cppKeywords = map[string]bool{
	"break": true, "case": true, "continue": true, "default": true,
	"do": true, "else": true, "for": true, "goto": true, "if": true,
	"return": true, "switch": true, "while": true,
	"auto": true, "char": true, "const": true, "double": true, "enum": true,
	"extern": true, "float": true, "inline": true, "int": true, "long": true,
	"register": true, "short": true, "signed": true, "sizeof": true,
	"static": true, "struct": true, "typedef": true, "union": true,
	"unsigned": true, "void": true, "volatile": true,
	"alignas": true, "alignof": true, "and": true, "and_eq": true,
	"asm": true, "bitand": true, "bitor": true, "bool": true, "catch": true,
	"class": true, "compl": true, "const_cast": true, "delete": true,
	"dynamic_cast": true, "explicit": true, "export": true, "false": true,
	"friend": true, "mutable": true, "namespace": true, "new": true,
	"not": true, "not_eq": true, "operator": true, "or": true, "or_eq": true,
	"private": true, "protected": true, "public": true,
	"reinterpret_cast": true, "static_cast": true, "template": true,
	"this": true, "throw": true, "true": true, "try": true, "typeid": true,
	"typename": true, "using": true, "virtual": true, "wchar_t": true,
	"xor": true, "xor_eq": true,
}

// cppModernKeywords adds the C++11 through C++20 additions.
var cppModernKeywords = map[string]bool{
	"char8_t": true, "char16_t": true, "char32_t": true, "concept": true,
	"consteval": true, "constexpr": true, "constinit": true,
	"co_await": true, "co_return": true, "co_yield": true, "decltype": true,
	"final": true, "noexcept": true, "nullptr": true, "override": true,
	"requires": true, "static_assert": true, "thread_local": true,
}

// cppBuiltinTypes holds the stdint typedefs and the common std container and
// vocabulary types, normalized so renamed container choices still match.
var cppBuiltinTypes = map[string]bool{
	"int8_t": true, "int16_t": true, "int32_t": true, "int64_t": true,
	"uint8_t": true, "uint16_t": true, "uint32_t": true, "uint64_t": true,
	"size_t": true, "ptrdiff_t": true, "intptr_t": true, "uintptr_t": true,
	"string": true, "wstring": true, "string_view": true,
	"vector": true, "array": true, "list": true, "deque": true,
	"forward_list": true, "set": true, "map": true, "multiset": true,
	"multimap": true, "unordered_set": true, "unordered_map": true,
	"unordered_multiset": true, "unordered_multimap": true,
	"stack": true, "queue": true, "priority_queue": true,
	"pair": true, "tuple": true, "optional": true, "variant": true,
	"any": true, "unique_ptr": true, "shared_ptr": true, "weak_ptr": true,
	"function": true, "bind": true, "reference_wrapper": true,
	"thread": true, "mutex": true, "condition_variable": true,
	"future": true, "promise": true, "atomic": true, "atomic_flag": true,
}

// cLexer tokenizes C and C++. Preprocessor lines are skipped wholesale:
// emitting tokens for #include and #define boilerplate would flood the match
// stage with false positives.
type cLexer struct {
	lang Language
}

func (l cLexer) Language() Language { return l.lang }

func (l cLexer) Normalize(src []byte) *File {
	cur := newCursor(src)
	f := &File{}
	var tally lineTally

	for !cur.eof() {
		tally.observe(cur.line)

		ch := cur.peek()
		switch {
		case ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n':
			cur.advance()

		case ch == '#' && cur.atLineStart:
			tally.hasCode = true
			skipDirective(cur)

		case ch == '/' && cur.peekNext() == '/':
			tally.hasComment = true
			for !cur.eof() && cur.peek() != '\n' {
				cur.advance()
			}

		case ch == '/' && cur.peekNext() == '*':
			tally.hasComment = true
			cur.advance()
			cur.advance()
			for !cur.eof() {
				if cur.peek() == '*' && cur.peekNext() == '/' {
					cur.advance()
					cur.advance()
					break
				}
				cur.advance()
			}

		case ch == 'R' && cur.peekNext() == '"':
			tally.hasCode = true
			f.Tokens = append(f.Tokens, cppRawString(cur))

		case ch == '"' || cppLiteralPrefix(cur, '"'):
			tally.hasCode = true
			f.Tokens = append(f.Tokens, cppString(cur))

		case ch == '\'' || cppLiteralPrefix(cur, '\''):
			tally.hasCode = true
			f.Tokens = append(f.Tokens, cppChar(cur))

		case isDigit(ch) || (ch == '.' && isDigit(cur.peekNext())):
			tally.hasCode = true
			f.Tokens = append(f.Tokens, cppNumber(cur))

		case isIdentStart(ch):
			tally.hasCode = true
			f.Tokens = append(f.Tokens, cppWord(cur))

		case cppOperatorChar(ch):
			tally.hasCode = true
			f.Tokens = append(f.Tokens, cppOperator(cur))

		default:
			cur.advance()
		}
	}
	tally.finish()

	f.TotalLines = cur.totalLines()
	f.CodeLines = tally.code
	f.CommentLines = tally.comment
	f.BlankLines = tally.blank
	return f
}

// cppLiteralPrefix reports whether the cursor sits on an L, u, U, or u8
// prefix immediately followed by the given quote.
func cppLiteralPrefix(cur *cursor, quote byte) bool {
	ch := cur.peek()
	if (ch == 'L' || ch == 'u' || ch == 'U') && cur.peekNext() == quote {
		return true
	}
	return ch == 'u' && cur.peekNext() == '8' && cur.peekAt(2) == quote
}

// skipDirective consumes a preprocessor line up to but not including the
// terminating newline. Backslash continuations extend it across lines.
func skipDirective(cur *cursor) {
	cur.advance() // #
	for !cur.eof() {
		ch := cur.peek()
		if ch == '\n' {
			return
		}
		if ch == '\\' {
			cur.advance()
			if !cur.eof() && cur.peek() == '\n' {
				cur.advance()
			}
			continue
		}
		cur.advance()
	}
}

func skipCppEncodingPrefix(cur *cursor) {
	switch cur.peek() {
	case 'L', 'U':
		cur.advance()
	case 'u':
		cur.advance()
		if cur.peek() == '8' {
			cur.advance()
		}
	}
}

func cppString(cur *cursor) Token {
	tok := Token{Type: TokenString, Line: cur.line, Column: cur.col}

	start := cur.pos
	skipCppEncodingPrefix(cur)
	cur.advance() // "

	var value []byte
	for !cur.eof() {
		ch := cur.peek()
		if ch == '"' {
			cur.advance()
			break
		}
		if ch == '\n' {
			break // unterminated
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

	tok.Length = uint16(cur.pos - start)
	tok.OriginalHash = HashLexeme(string(value))
	tok.NormalizedHash = placeholderHash(TokenString)
	return tok
}

// cppRawString lexes R"delim(...)delim". The hashed value is the raw content
// between the parentheses.
func cppRawString(cur *cursor) Token {
	tok := Token{Type: TokenString, Line: cur.line, Column: cur.col}

	start := cur.pos
	cur.advance() // R
	cur.advance() // "

	var delim []byte
	for !cur.eof() && cur.peek() != '(' {
		delim = append(delim, cur.advance())
	}
	if !cur.eof() {
		cur.advance() // (
	}

	endMarker := ")" + string(delim) + "\""

	var value []byte
	for !cur.eof() {
		found := true
		for i := 0; i < len(endMarker) && found; i++ {
			if cur.peekAt(i) != endMarker[i] {
				found = false
			}
		}
		if found {
			for range endMarker {
				cur.advance()
			}
			break
		}
		value = append(value, cur.advance())
	}

	tok.Length = uint16(cur.pos - start)
	tok.OriginalHash = HashLexeme(string(value))
	tok.NormalizedHash = placeholderHash(TokenString)
	return tok
}

// cppChar lexes a character literal, normalized like a string. Unlike string
// escapes, the escaped character stays in the hashed value so '\n' and 'n'
// hash apart from an empty literal.
func cppChar(cur *cursor) Token {
	tok := Token{Type: TokenString, Line: cur.line, Column: cur.col}

	start := cur.pos
	skipCppEncodingPrefix(cur)
	cur.advance() // '

	var value []byte
	for !cur.eof() && cur.peek() != '\'' {
		ch := cur.peek()
		if ch == '\n' {
			break
		}
		if ch == '\\' {
			cur.advance()
			if !cur.eof() {
				value = append(value, cur.advance())
			}
			continue
		}
		value = append(value, cur.advance())
	}
	if !cur.eof() {
		cur.advance() // '
	}

	tok.Length = uint16(cur.pos - start)
	tok.OriginalHash = HashLexeme(string(value))
	tok.NormalizedHash = placeholderHash(TokenString)
	return tok
}

// cppNumber lexes numeric literals with apostrophe digit separators and
// u/l/f suffixes. Separators and suffixes count toward the length but stay
// out of the hashed value.
func cppNumber(cur *cursor) Token {
	tok := Token{Type: TokenNumber, Line: cur.line, Column: cur.col}

	var value []byte
	start := cur.pos

	if cur.peek() == '0' {
		switch next := cur.peekNext(); {
		case next == 'x' || next == 'X':
			value = append(value, cur.advance(), cur.advance())
			for !cur.eof() && (isHexDigit(cur.peek()) || cur.peek() == '\'') {
				if cur.peek() != '\'' {
					value = append(value, cur.peek())
				}
				cur.advance()
			}
		case next == 'b' || next == 'B':
			value = append(value, cur.advance(), cur.advance())
			for !cur.eof() && (cur.peek() == '0' || cur.peek() == '1' || cur.peek() == '\'') {
				if cur.peek() != '\'' {
					value = append(value, cur.peek())
				}
				cur.advance()
			}
		case next >= '0' && next <= '7':
			value = append(value, cur.advance())
			for !cur.eof() && ((cur.peek() >= '0' && cur.peek() <= '7') || cur.peek() == '\'') {
				if cur.peek() != '\'' {
					value = append(value, cur.peek())
				}
				cur.advance()
			}
		default:
			value = append(value, cur.advance())
		}
	}

	if len(value) == 0 {
		for !cur.eof() && (isDigit(cur.peek()) || cur.peek() == '\'') {
			if cur.peek() != '\'' {
				value = append(value, cur.peek())
			}
			cur.advance()
		}
	}

	if cur.peek() == '.' && (isDigit(cur.peekNext()) || cur.peekNext() == 'e' || cur.peekNext() == 'E') {
		value = append(value, cur.advance())
		for !cur.eof() && (isDigit(cur.peek()) || cur.peek() == '\'') {
			if cur.peek() != '\'' {
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
		for !cur.eof() && (isDigit(cur.peek()) || cur.peek() == '\'') {
			if cur.peek() != '\'' {
				value = append(value, cur.peek())
			}
			cur.advance()
		}
	}

	for !cur.eof() {
		switch cur.peek() {
		case 'u', 'U', 'l', 'L', 'f', 'F':
			cur.advance()
			continue
		}
		break
	}

	tok.Length = uint16(cur.pos - start)
	tok.OriginalHash = HashLexeme(string(value))
	tok.NormalizedHash = placeholderHash(TokenNumber)
	return tok
}

func cppWord(cur *cursor) Token {
	tok := Token{Line: cur.line, Column: cur.col}

	start := cur.pos
	for !cur.eof() && isIdentChar(cur.peek()) {
		cur.advance()
	}
	word := string(cur.src[start:cur.pos])

	tok.Length = uint16(cur.pos - start)
	tok.OriginalHash = HashLexeme(word)

	switch {
	case cppKeywords[word] || cppModernKeywords[word]:
		tok.Type = TokenKeyword
		tok.NormalizedHash = tok.OriginalHash
	case cppBuiltinTypes[word]:
		tok.Type = TokenTypeName
		tok.NormalizedHash = placeholderHash(TokenTypeName)
	default:
		tok.Type = TokenIdentifier
		tok.NormalizedHash = placeholderHash(TokenIdentifier)
	}
	return tok
}

func cppOperator(cur *cursor) Token {
	tok := Token{Line: cur.line, Column: cur.col}

	var value string
	start := cur.pos

	if cur.lookahead(4) == ">>>=" {
		value = ">>>="
		for i := 0; i < 4; i++ {
			cur.advance()
		}
	}

	if value == "" {
		switch three := cur.lookahead(3); three {
		case "<<=", ">>=", "<=>", "->*", "...":
			value = three
			cur.advance()
			cur.advance()
			cur.advance()
		}
	}

	if value == "" {
		switch two := cur.lookahead(2); two {
		case "==", "!=", "<=", ">=", "+=", "-=", "*=", "/=", "%=",
			"&=", "|=", "^=", "++", "--", "&&", "||", "<<", ">>",
			"->", "::", ".*", "##":
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

func cppOperatorChar(c byte) bool {
	switch c {
	case '+', '-', '*', '/', '%', '=', '<', '>', '!', '&', '|', '^', '~',
		'?', ':', '(', ')', '[', ']', '{', '}', ',', ';', '.', '#':
		return true
	}
	return false
}
