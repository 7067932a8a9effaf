package lexer

import "fmt"

// TokenType classifies a normalized lexeme.
type TokenType uint8

const (
	TokenIdentifier TokenType = iota
	TokenString
	TokenNumber
	TokenKeyword
	TokenOperator
	TokenPunct
	TokenTypeName
	TokenNewline
	TokenIndent
	TokenDedent
	TokenUnknown
)

// String returns a short name for the token type.
func (t TokenType) String() string {
	switch t {
	case TokenIdentifier:
		return "identifier"
	case TokenString:
		return "string"
	case TokenNumber:
		return "number"
	case TokenKeyword:
		return "keyword"
	case TokenOperator:
		return "operator"
	case TokenPunct:
		return "punctuation"
	case TokenTypeName:
		return "type"
	case TokenNewline:
		return "newline"
	case TokenIndent:
		return "indent"
	case TokenDedent:
		return "dedent"
	default:
		return "unknown"
	}
}

// Structural reports whether the token marks layout (newline, indent, dedent)
// rather than code. Structural tokens are excluded from window hashing.
func (t TokenType) Structural() bool {
	return t == TokenNewline || t == TokenIndent || t == TokenDedent
}

// Token is one lexeme with both its exact and category-normalized hashes.
//
// OriginalHash is the 32-bit FNV-1a hash of the lexeme bytes. NormalizedHash
// is a per-category placeholder hash for identifiers, string literals, number
// literals, and type names, and equals OriginalHash for keywords, operators,
// and punctuation. Matching normalized hashes with differing original hashes
// is what distinguishes a renamed (Type-2) clone from an exact (Type-1) one.
type Token struct {
	Type           TokenType
	OriginalHash   uint32
	NormalizedHash uint32
	Line           uint32 // 1-based source line
	Column         uint16 // 1-based source column
	Length         uint16 // lexeme length in bytes
}

func (t Token) String() string {
	return fmt.Sprintf("%s@%d:%d", t.Type, t.Line, t.Column)
}

// File is a fully tokenized source file with per-line accounting. A line is
// counted as code if a code token starts on it, as comment if it holds only
// comments, and as blank otherwise; a literal or comment spanning several
// lines is counted once, on the line it starts on.
type File struct {
	Path         string
	Tokens       []Token
	TotalLines   int
	CodeLines    int
	CommentLines int
	BlankLines   int
}

// FilteredTokens returns the indices of non-structural tokens in f.Tokens,
// in order. Window hashing and clone extension operate on this view while
// line/column reporting reads the original tokens through it.
func (f *File) FilteredTokens() []int {
	filtered := make([]int, 0, len(f.Tokens))
	for i, tok := range f.Tokens {
		if !tok.Type.Structural() {
			filtered = append(filtered, i)
		}
	}
	return filtered
}

// FilteredView materializes the non-structural tokens of f in order. Clone
// locations' token offsets index this view.
func (f *File) FilteredView() []Token {
	view := make([]Token, 0, len(f.Tokens))
	for _, tok := range f.Tokens {
		if !tok.Type.Structural() {
			view = append(view, tok)
		}
	}
	return view
}
