// Package lexer turns source text into streams of normalized tokens.
//
// Each supported language has its own lexer, but all of them produce the same
// token schema: comments and whitespace are dropped, identifiers and literals
// are normalized to per-category placeholder hashes, and keywords, operators,
// and punctuation keep the hash of their exact lexeme. Indentation-significant
// languages additionally emit indent/dedent tokens so that block structure
// survives normalization.
//
// Lexers are total: malformed input never fails, it only degrades (an
// unterminated string ends at the next newline, an unrecognized byte is
// skipped). Tokenizing the same bytes twice yields identical streams.
package lexer

import "strings"

// Language identifies a supported source language.
type Language int

const (
	LangUnknown Language = iota
	LangPython
	LangJavaScript
	LangTypeScript
	LangC
	LangCPP
)

// String returns the display name of the language.
func (l Language) String() string {
	switch l {
	case LangPython:
		return "Python"
	case LangJavaScript:
		return "JavaScript"
	case LangTypeScript:
		return "TypeScript"
	case LangC:
		return "C"
	case LangCPP:
		return "C++"
	default:
		return "Unknown"
	}
}

// DetectLanguage maps a file extension (with or without the leading dot) to a
// language, returning LangUnknown for anything unrecognized.
func DetectLanguage(ext string) Language {
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	switch ext {
	case ".py", ".pyw", ".pyi":
		return LangPython
	case ".js", ".jsx", ".mjs", ".cjs":
		return LangJavaScript
	case ".ts", ".tsx", ".mts", ".cts":
		return LangTypeScript
	case ".c", ".h":
		return LangC
	case ".cpp", ".cc", ".cxx", ".hpp", ".hh", ".hxx":
		return LangCPP
	default:
		return LangUnknown
	}
}

// Extensions returns the file extensions recognized for l, with dots.
func Extensions(l Language) []string {
	switch l {
	case LangPython:
		return []string{".py", ".pyw", ".pyi"}
	case LangJavaScript:
		return []string{".js", ".jsx", ".mjs", ".cjs"}
	case LangTypeScript:
		return []string{".ts", ".tsx", ".mts", ".cts"}
	case LangC:
		return []string{".c", ".h"}
	case LangCPP:
		return []string{".cpp", ".cc", ".cxx", ".hpp", ".hh", ".hxx"}
	default:
		return nil
	}
}

// Languages returns all supported languages.
func Languages() []Language {
	return []Language{LangPython, LangJavaScript, LangTypeScript, LangC, LangCPP}
}

// SupportedExtensions returns every extension with a lexer, across languages.
func SupportedExtensions() []string {
	var exts []string
	for _, lang := range Languages() {
		exts = append(exts, Extensions(lang)...)
	}
	return exts
}

// Normalizer lexes one language into a normalized token stream.
type Normalizer interface {
	// Normalize tokenizes src. It never fails.
	Normalize(src []byte) *File
	// Language returns the language this normalizer handles.
	Language() Language
}

// New returns the normalizer for lang, or nil when the language has none.
// Normalizers are stateless and cheap; construct them per call as needed.
func New(lang Language) Normalizer {
	switch lang {
	case LangPython:
		return pythonLexer{}
	case LangJavaScript:
		return jsLexer{lang: LangJavaScript}
	case LangTypeScript:
		return jsLexer{lang: LangTypeScript}
	case LangC:
		return cLexer{lang: LangC}
	case LangCPP:
		return cLexer{lang: LangCPP}
	default:
		return nil
	}
}

// FNV-1a parameters for the 32-bit lexeme hash.
const (
	fnvOffset32 = 2166136261
	fnvPrime32  = 16777619
)

// HashLexeme returns the 32-bit FNV-1a hash of s. Distinct original hashes
// are treated as distinct lexemes throughout the pipeline.
func HashLexeme(s string) uint32 {
	h := uint32(fnvOffset32)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime32
	}
	return h
}

// Placeholder hashes shared by every token of a normalized category.
var (
	hashPlaceholderID   = HashLexeme("$ID")
	hashPlaceholderStr  = HashLexeme("$STR")
	hashPlaceholderNum  = HashLexeme("$NUM")
	hashPlaceholderType = HashLexeme("$TYPE")
)

// placeholderHash returns the category placeholder for t, or 0 for
// categories that are never normalized.
func placeholderHash(t TokenType) uint32 {
	switch t {
	case TokenIdentifier:
		return hashPlaceholderID
	case TokenString:
		return hashPlaceholderStr
	case TokenNumber:
		return hashPlaceholderNum
	case TokenTypeName:
		return hashPlaceholderType
	default:
		return 0
	}
}
