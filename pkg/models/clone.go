package models

// CloneType classifies how closely two regions match.
type CloneType string

const (
	CloneType1 CloneType = "Type-1" // exact match (whitespace and comments aside)
	CloneType2 CloneType = "Type-2" // identifiers or literals renamed
	CloneType3 CloneType = "Type-3" // statements added or removed
)

// HashLocation records where a hashed token window sits in a file. TokenStart
// and TokenCount index the filtered token stream; the line and column fields
// come from the original tokens the window spans.
type HashLocation struct {
	FileID     uint32 `json:"file_id"`
	StartLine  uint32 `json:"start_line"`
	EndLine    uint32 `json:"end_line"`
	StartCol   uint16 `json:"start_col"`
	EndCol     uint16 `json:"end_col"`
	TokenStart uint32 `json:"token_start"`
	TokenCount uint32 `json:"token_count"`
}

// Overlaps reports whether two locations share any lines of the same file.
func (l HashLocation) Overlaps(other HashLocation) bool {
	if l.FileID != other.FileID {
		return false
	}
	return !(l.EndLine < other.StartLine || l.StartLine > other.EndLine)
}

// ClonePair is two code regions identified as clones of each other.
type ClonePair struct {
	A          HashLocation `json:"location_a"`
	B          HashLocation `json:"location_b"`
	Type       CloneType    `json:"type"`
	Similarity float64      `json:"similarity"`
	SharedHash uint64       `json:"shared_hash"`
}

// TokenCount returns the token length of the cloned region.
func (p ClonePair) TokenCount() uint32 {
	if p.A.TokenCount < p.B.TokenCount {
		return p.A.TokenCount
	}
	return p.B.TokenCount
}

// LineCount returns the line length of the cloned region.
func (p ClonePair) LineCount() uint32 {
	aLines := p.A.EndLine - p.A.StartLine + 1
	bLines := p.B.EndLine - p.B.StartLine + 1
	if aLines < bLines {
		return aLines
	}
	return bLines
}

// Hotspot is a file with a high share of duplicated lines.
type Hotspot struct {
	File            string  `json:"file"`
	Score           float64 `json:"duplication_score"`
	CloneCount      int     `json:"clone_count"`
	DuplicatedLines int     `json:"duplicated_lines"`
	TotalLines      int     `json:"total_lines"`
	Recommendation  string  `json:"recommendation"`
}
