package lexer

// jsKeywords covers ES6+ control flow, declarations, expressions, literals,
// async, module, and class keywords plus the reserved words.
var jsKeywords = map[string]bool{
	"break": true, "case": true, "catch": true, "continue": true,
	"debugger": true, "default": true, "do": true, "else": true,
	"finally": true, "for": true, "if": true, "return": true, "switch": true,
	"throw": true, "try": true, "while": true, "with": true,
	"class": true, "const": true, "function": true, "let": true, "var": true,
	"delete": true, "in": true, "instanceof": true, "new": true, "of": true,
	"this": true, "typeof": true, "void": true,
	"false": true, "null": true, "true": true, "undefined": true,
	"async": true, "await": true, "yield": true,
	"export": true, "import": true, "from": true, "as": true,
	"extends": true, "static": true, "super": true, "get": true, "set": true,
	"enum": true, "implements": true, "interface": true, "package": true,
	"private": true, "protected": true, "public": true,
}

// tsKeywords are TypeScript additions. They are recognized for plain
// JavaScript too so that .js and .ts renditions of the same code normalize
// identically.
var tsKeywords = map[string]bool{
	"abstract": true, "any": true, "asserts": true, "bigint": true,
	"boolean": true, "declare": true, "infer": true, "is": true,
	"keyof": true, "module": true, "namespace": true, "never": true,
	"number": true, "object": true, "readonly": true, "require": true,
	"string": true, "symbol": true, "type": true, "unique": true,
	"unknown": true,
}

var jsBuiltinTypes = map[string]bool{
	"Array": true, "Boolean": true, "Date": true, "Error": true,
	"Function": true, "JSON": true, "Map": true, "Math": true,
	"Number": true, "Object": true, "Promise": true, "RegExp": true,
	"Set": true, "String": true, "Symbol": true, "WeakMap": true,
	"WeakSet": true, "BigInt": true, "ArrayBuffer": true, "DataView": true,
	"Float32Array": true, "Float64Array": true, "Int8Array": true,
	"Int16Array": true, "Int32Array": true, "Uint8Array": true,
	"Uint16Array": true, "Uint32Array": true, "Uint8ClampedArray": true,
}

// jsLexer tokenizes JavaScript and TypeScript. The two share one lexer; lang
// only distinguishes them for reporting.
//
// A leading slash is ambiguous between division and a regex literal. The
// lexer tracks whether the previous token permits a regex: after operators,
// punctuation, keywords, and newlines a slash starts a regex; after
// identifiers and literals it is division.
type jsLexer struct {
	lang Language
}

func (l jsLexer) Language() Language { return l.lang }

func (l jsLexer) Normalize(src []byte) *File {
	cur := newCursor(src)
	f := &File{}
	var tally lineTally
	mayBeRegex := true

	for !cur.eof() {
		tally.observe(cur.line)

		ch := cur.peek()
		switch {
		case ch == ' ' || ch == '\t' || ch == '\r':
			cur.advance()

		case ch == '\n':
			cur.advance()
			mayBeRegex = true

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

		case ch == '/' && mayBeRegex:
			tally.hasCode = true
			f.Tokens = append(f.Tokens, jsRegex(cur))
			mayBeRegex = false

		case ch == '"' || ch == '\'':
			tally.hasCode = true
			f.Tokens = append(f.Tokens, jsString(cur))
			mayBeRegex = false

		case ch == '`':
			tally.hasCode = true
			f.Tokens = append(f.Tokens, jsTemplate(cur))
			mayBeRegex = false

		case isDigit(ch) || (ch == '.' && isDigit(cur.peekNext())):
			tally.hasCode = true
			f.Tokens = append(f.Tokens, jsNumber(cur))
			mayBeRegex = false

		case jsIdentStart(ch):
			tally.hasCode = true
			tok := jsWord(cur)
			mayBeRegex = tok.Type == TokenKeyword
			f.Tokens = append(f.Tokens, tok)

		case jsOperatorChar(ch):
			tally.hasCode = true
			tok := jsOperator(cur)
			mayBeRegex = tok.Type == TokenPunct || tok.Type == TokenOperator
			f.Tokens = append(f.Tokens, tok)

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

func jsString(cur *cursor) Token {
	tok := Token{Type: TokenString, Line: cur.line, Column: cur.col}

	quote := cur.advance()
	var value []byte
	start := cur.pos

	for !cur.eof() {
		ch := cur.peek()
		if ch == quote {
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

	tok.Length = uint16(cur.pos - start + 1)
	tok.OriginalHash = HashLexeme(string(value))
	tok.NormalizedHash = placeholderHash(TokenString)
	return tok
}

// jsTemplate lexes a backtick template. Interpolation delimiters are dropped
// from the hashed value but the expression text inside is kept, so templates
// differing only in the expressions they splice in still hash apart.
func jsTemplate(cur *cursor) Token {
	tok := Token{Type: TokenString, Line: cur.line, Column: cur.col}

	cur.advance() // `
	var value []byte
	start := cur.pos
	braceDepth := 0

	for !cur.eof() {
		ch := cur.peek()

		if ch == '`' && braceDepth == 0 {
			cur.advance()
			break
		}
		if ch == '$' && cur.peekNext() == '{' {
			cur.advance()
			cur.advance()
			braceDepth++
			continue
		}
		if ch == '{' && braceDepth > 0 {
			braceDepth++
			cur.advance()
			continue
		}
		if ch == '}' && braceDepth > 0 {
			braceDepth--
			cur.advance()
			continue
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

	tok.Length = uint16(cur.pos - start + 1)
	tok.OriginalHash = HashLexeme(string(value))
	tok.NormalizedHash = placeholderHash(TokenString)
	return tok
}

// jsRegex lexes a regex literal, treating it as a string for normalization.
// Escapes stay in the hashed value and a slash inside a character class does
// not terminate the literal. Hitting a newline first means the slash was
// division, so it degrades to a plain "/" operator.
func jsRegex(cur *cursor) Token {
	tok := Token{Type: TokenString, Line: cur.line, Column: cur.col}

	cur.advance() // /
	var value []byte
	start := cur.pos
	inClass := false

	for !cur.eof() {
		ch := cur.peek()

		if ch == '\n' {
			h := HashLexeme("/")
			tok.Type = TokenOperator
			tok.Length = 1
			tok.OriginalHash = h
			tok.NormalizedHash = h
			return tok
		}
		if ch == '\\' {
			value = append(value, cur.advance())
			if !cur.eof() {
				value = append(value, cur.advance())
			}
			continue
		}
		if ch == '[' {
			inClass = true
		} else if ch == ']' {
			inClass = false
		}
		if ch == '/' && !inClass {
			cur.advance()
			break
		}
		value = append(value, ch)
		cur.advance()
	}

	// Flags count toward the length but not the value.
	for !cur.eof() && jsIdentChar(cur.peek()) {
		cur.advance()
	}

	tok.Length = uint16(cur.pos - start + 1)
	tok.OriginalHash = HashLexeme(string(value))
	tok.NormalizedHash = placeholderHash(TokenString)
	return tok
}

func jsNumber(cur *cursor) Token {
	tok := Token{Type: TokenNumber, Line: cur.line, Column: cur.col}

	var value []byte
	start := cur.pos
	special := false

	if cur.peek() == '0' {
		switch next := cur.peekNext(); {
		case next == 'x' || next == 'X':
			special = true
			value = append(value, cur.advance(), cur.advance())
			for !cur.eof() && (isHexDigit(cur.peek()) || cur.peek() == '_') {
				if cur.peek() != '_' {
					value = append(value, cur.peek())
				}
				cur.advance()
			}
		case next == 'b' || next == 'B':
			special = true
			value = append(value, cur.advance(), cur.advance())
			for !cur.eof() && (cur.peek() == '0' || cur.peek() == '1' || cur.peek() == '_') {
				if cur.peek() != '_' {
					value = append(value, cur.peek())
				}
				cur.advance()
			}
		case next == 'o' || next == 'O':
			special = true
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

	if !special {
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
	}

	if cur.peek() == 'n' { // BigInt
		value = append(value, cur.advance())
	}

	tok.Length = uint16(cur.pos - start)
	tok.OriginalHash = HashLexeme(string(value))
	tok.NormalizedHash = placeholderHash(TokenNumber)
	return tok
}

func jsWord(cur *cursor) Token {
	tok := Token{Line: cur.line, Column: cur.col}

	start := cur.pos
	for !cur.eof() && jsIdentChar(cur.peek()) {
		cur.advance()
	}
	word := string(cur.src[start:cur.pos])

	tok.Length = uint16(cur.pos - start)
	tok.OriginalHash = HashLexeme(word)

	switch {
	case jsKeywords[word] || tsKeywords[word]:
		tok.Type = TokenKeyword
		tok.NormalizedHash = tok.OriginalHash
	case jsBuiltinTypes[word]:
		tok.Type = TokenTypeName
		tok.NormalizedHash = placeholderHash(TokenTypeName)
	default:
		tok.Type = TokenIdentifier
		tok.NormalizedHash = placeholderHash(TokenIdentifier)
	}
	return tok
}

func jsOperator(cur *cursor) Token {
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
		case "===", "!==", ">>>", "...", "<<=", ">>=", "**=", "&&=", "||=", "??=":
			value = three
			cur.advance()
			cur.advance()
			cur.advance()
		}
	}

	if value == "" {
		switch two := cur.lookahead(2); two {
		case "==", "!=", "<=", ">=", "+=", "-=", "*=", "/=", "%=",
			"&=", "|=", "^=", "**", "++", "--", "&&", "||", "??", "?.",
			"=>", "<<", ">>":
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

func jsIdentStart(c byte) bool { return isIdentStart(c) || c == '$' }

func jsIdentChar(c byte) bool { return isIdentChar(c) || c == '$' }

func jsOperatorChar(c byte) bool {
	switch c {
	case '+', '-', '*', '/', '%', '=', '<', '>', '!', '&', '|', '^', '~',
		'?', ':', '(', ')', '[', ']', '{', '}', ',', ';', '.':
		return true
	}
	return false
}
