package mcpserver

// Tool descriptions with interpretation guidance for LLMs.
// Each description explains what the tool does, when to use it,
// how to interpret results, and key thresholds.

func describeScanClones() string {
	return `Detects duplicated code across Python, JavaScript, TypeScript, C, and C++ sources.

USE WHEN:
- Finding copy-paste code that should be refactored
- Identifying candidates for shared utilities or abstractions
- Measuring how much of a codebase is duplicated
- Preparing for DRY (Don't Repeat Yourself) improvements

INTERPRETING RESULTS:
- Type-1: exact duplicates (only whitespace and comments differ)
- Type-2: identifiers or literal values renamed, structure identical
- Type-3: near-misses with small insertions or deletions (enable detect_type3)
- Similarity 1.0 means token-for-token identical after normalization
- Similarity 0.7-0.99 on Type-3 clones means small divergence, likely copy-paste
- Hotspot score is the fraction of a file's lines covered by clones;
  above 0.3 is a strong refactoring signal

METRICS RETURNED:
- Clones: pairs with file, start/end lines, type, similarity, snippet preview
- Hotspots: files ranked by duplicated-line share
- Summary: files analyzed, total lines, clone pairs, estimated duplication
- Metrics: counts by type and language, similarity mean and stddev

Larger min_tokens reduces noise from trivial matches.`
}

func describeCompareFiles() string {
	return `Compares exactly two files for cloned regions.

USE WHEN:
- Checking whether one file was copied from another
- Reviewing a suspicious pair flagged by scan_clones in detail
- Verifying that a refactoring actually removed duplication between two files

INTERPRETING RESULTS:
- An empty clone list means no shared region of at least min_tokens tokens
- Type-1 regions are exact copies; Type-2 regions differ only in names
  or literal values
- With detect_type3 enabled, regions with small edits also match and
  carry a similarity below 1.0
- Line ranges refer to each file's original line numbers

METRICS RETURNED:
- Clones: matching regions with line ranges in both files and similarity
- Summary: clone pair count and estimated duplication across the two files
- Metrics: counts by type, similarity mean`
}
