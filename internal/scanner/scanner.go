// Package scanner finds instruction listings under a directory tree.
// It respects .scfgignore files with gitignore-style patterns.
package scanner

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// File is a discovered listing.
type File struct {
	Path     string // Slash-separated path relative to the scan root
	FullPath string // Absolute path
	Size     int64  // File size in bytes
}

// Options configures the scanner behavior.
type Options struct {
	SkipHidden      bool     // Skip hidden files and directories (starting with .)
	Extensions      []string // Listing file extensions, matched case-insensitively
	DefaultExcludes []string // Directory names that are never entered
	IgnoreFileName  string   // Name of the ignore file (default: .scfgignore)
}

// DefaultOptions returns scanner options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		SkipHidden:      true,
		Extensions:      []string{".lst", ".dis"},
		DefaultExcludes: []string{".git", ".hg", ".svn", "__pycache__", "node_modules", "vendor"},
		IgnoreFileName:  ".scfgignore",
	}
}

// Scanner provides file tree scanning capabilities.
type Scanner struct {
	opts Options
}

// New creates a new Scanner with the given options.
func New(opts Options) *Scanner {
	if opts.IgnoreFileName == "" {
		opts.IgnoreFileName = ".scfgignore"
	}
	return &Scanner{opts: opts}
}

// Scan walks root and returns its listings in lexical order. Symlinks
// and unreadable entries below root are skipped.
func (s *Scanner) Scan(root string) ([]File, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("getting absolute path: %w", err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", root)
	}

	var (
		rules []ruleSet
		files []File
	)
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == absRoot {
				return err
			}
			return nil
		}
		rel, err := filepath.Rel(absRoot, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel != "." {
				if s.skipped(d.Name()) || s.isExcluded(d.Name()) || ignored(rel, true, rules) {
					return filepath.SkipDir
				}
			} else {
				rel = ""
			}
			rs, err := loadRules(path, rel, s.opts.IgnoreFileName)
			if err != nil {
				return fmt.Errorf("loading %s: %w", filepath.Join(path, s.opts.IgnoreFileName), err)
			}
			if len(rs.patterns) > 0 {
				rules = append(rules, rs)
			}
			return nil
		}

		if s.skipped(d.Name()) || !d.Type().IsRegular() || !s.isListing(d.Name()) {
			return nil
		}
		if ignored(rel, false, rules) {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return nil
		}
		files = append(files, File{Path: rel, FullPath: path, Size: fi.Size()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}
	return files, nil
}

func (s *Scanner) skipped(name string) bool {
	return s.opts.SkipHidden && strings.HasPrefix(name, ".")
}

func (s *Scanner) isExcluded(name string) bool {
	for _, exclude := range s.opts.DefaultExcludes {
		if strings.EqualFold(name, exclude) {
			return true
		}
	}
	return false
}

func (s *Scanner) isListing(name string) bool {
	if len(s.opts.Extensions) == 0 {
		return true
	}
	ext := filepath.Ext(name)
	for _, e := range s.opts.Extensions {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

// Scan is a convenience function that scans a directory with default options.
func Scan(root string) ([]File, error) {
	return New(DefaultOptions()).Scan(root)
}
