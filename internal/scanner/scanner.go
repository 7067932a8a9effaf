package scanner

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bitgrove/mimic/pkg/config"
	"github.com/bitgrove/mimic/pkg/lexer"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// Scanner finds source files in a directory.
type Scanner struct {
	config   *config.Config
	exts     map[string]bool
	patterns []string
	matchers []gitignore.Matcher
	gitRoot  string
}

// NewScanner creates a new file scanner.
func NewScanner(cfg *config.Config) *Scanner {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	s := &Scanner{config: cfg, patterns: cfg.Scan.Exclude}

	// An explicit extension list narrows the supported set. Extensions are
	// normalized so "py" and ".PY" both select Python files.
	if len(cfg.Scan.Extensions) > 0 {
		s.exts = make(map[string]bool, len(cfg.Scan.Extensions))
		for _, ext := range cfg.Scan.Extensions {
			s.exts[NormalizeExtension(ext)] = true
		}
	}

	return s
}

// NormalizeExtension lowercases an extension and ensures a leading dot.
func NormalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// wantsFile reports whether a file's extension selects a supported language
// that the configuration has not filtered out.
func (s *Scanner) wantsFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if lexer.DetectLanguage(ext) == lexer.LangUnknown {
		return false
	}
	if s.exts != nil && !s.exts[ext] {
		return false
	}
	return true
}

// findGitRoot finds the root of the git repository by looking for .git directory.
// Returns empty string if not in a git repository.
func findGitRoot(start string) string {
	dir := start
	for {
		gitDir := filepath.Join(dir, ".git")
		if info, err := os.Stat(gitDir); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadGitignore collects .gitignore patterns for the repository containing
// root, if gitignore support is enabled.
func (s *Scanner) loadGitignore(root string) {
	s.matchers = nil
	s.gitRoot = ""
	if !s.config.Scan.Gitignore {
		return
	}

	gitRoot := findGitRoot(root)
	if gitRoot == "" {
		return
	}

	// ReadPatterns walks the tree rooted at the git root so nested
	// .gitignore files apply with their own directory as domain.
	fsys := osfs.New(gitRoot)
	patterns, err := gitignore.ReadPatterns(fsys, nil)
	if err != nil || len(patterns) == 0 {
		return
	}

	s.gitRoot = gitRoot
	s.matchers = append(s.matchers, gitignore.NewMatcher(patterns))
}

// isExcluded checks a path against the configured glob patterns. The path is
// slash-separated and relative to the scan root.
func (s *Scanner) isExcluded(rel string, isDir bool) bool {
	for _, pattern := range s.patterns {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
		if ok, _ := doublestar.Match(pattern, filepath.Base(rel)); ok {
			return true
		}
		// "**/name/**" does not match the directory itself, so strip the
		// trailing globstar when deciding whether to prune.
		if isDir {
			if trimmed, found := strings.CutSuffix(pattern, "/**"); found {
				if ok, _ := doublestar.Match(trimmed, rel); ok {
					return true
				}
			}
		}
	}
	return false
}

// isIgnored checks an absolute path against the repository's .gitignore
// patterns, which are anchored at the git root rather than the scan root.
func (s *Scanner) isIgnored(abs string, isDir bool) bool {
	if len(s.matchers) == 0 {
		return false
	}

	rel, err := filepath.Rel(s.gitRoot, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}

	parts := strings.Split(rel, string(filepath.Separator))
	for _, m := range s.matchers {
		if m.Match(parts, isDir) {
			return true
		}
	}
	return false
}

// ScanDir recursively scans a directory for source files and returns their
// absolute paths. Symlinks that resolve outside the root are skipped so a
// scan cannot escape the directory it was pointed at.
func (s *Scanner) ScanDir(root string) ([]string, error) {
	files := make([]string, 0, 1024)

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	absRoot, err = filepath.EvalSymlinks(absRoot)
	if err != nil {
		return nil, err
	}

	s.loadGitignore(absRoot)

	walkErr := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}

		relPath, _ := filepath.Rel(absRoot, path)
		relPath = filepath.ToSlash(relPath)

		if d.Type()&fs.ModeSymlink != 0 {
			resolved, err := filepath.EvalSymlinks(path)
			if err != nil || !isWithinRoot(resolved, absRoot) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}

		if d.IsDir() {
			if path != absRoot && (s.isExcluded(relPath, true) || s.isIgnored(path, true)) {
				return filepath.SkipDir
			}
			return nil
		}

		if s.isExcluded(relPath, false) || s.isIgnored(path, false) {
			return nil
		}
		if s.wantsFile(path) {
			files = append(files, path)
		}

		return nil
	})

	return files, walkErr
}

// isWithinRoot checks if a path is contained within the root directory.
func isWithinRoot(path, root string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}

	absPath = filepath.Clean(absPath)
	root = filepath.Clean(root)

	if !strings.HasPrefix(absPath, root+string(filepath.Separator)) && absPath != root {
		return false
	}

	return true
}

// ScanFile checks if a single file should be analyzed.
func (s *Scanner) ScanFile(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}

	if info.IsDir() {
		return false, nil
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return false, err
	}

	if len(s.matchers) == 0 {
		s.loadGitignore(filepath.Dir(abs))
	}

	if s.isExcluded(filepath.Base(abs), false) || s.isIgnored(abs, false) {
		return false, nil
	}

	return s.wantsFile(abs), nil
}

// GroupByLanguage groups files by their detected language.
func (s *Scanner) GroupByLanguage(files []string) map[lexer.Language][]string {
	groups := make(map[lexer.Language][]string)
	for _, f := range files {
		lang := lexer.DetectLanguage(strings.ToLower(filepath.Ext(f)))
		if lang != lexer.LangUnknown {
			groups[lang] = append(groups[lang], f)
		}
	}
	return groups
}
