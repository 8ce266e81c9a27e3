package scanner

import (
	"bufio"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Pattern is one line of an ignore file, with gitignore semantics:
// a leading "!" negates, a trailing "/" matches directories only, and a
// pattern containing "/" is anchored to the directory of the ignore file.
type Pattern struct {
	text     string
	negate   bool
	dirOnly  bool
	anchored bool
	segs     []string
}

// ParsePattern parses a single ignore pattern.
func ParsePattern(line string) Pattern {
	p := Pattern{text: line}
	if strings.HasPrefix(line, "!") {
		p.negate = true
		line = line[1:]
	}
	if strings.HasSuffix(line, "/") {
		p.dirOnly = true
		line = strings.TrimSuffix(line, "/")
	}
	if strings.HasPrefix(line, "/") {
		p.anchored = true
		line = line[1:]
	}
	if strings.Contains(line, "/") {
		p.anchored = true
	}
	p.segs = strings.Split(line, "/")
	return p
}

func (p Pattern) String() string { return p.text }

// IsNegation reports whether the pattern re-includes what it matches.
func (p Pattern) IsNegation() bool { return p.negate }

// Match reports whether rel, a slash-separated path relative to the
// directory of the ignore file, matches the pattern.
func (p Pattern) Match(rel string, isDir bool) bool {
	if p.dirOnly && !isDir {
		return false
	}
	parts := strings.Split(rel, "/")
	if !p.anchored {
		ok, _ := path.Match(p.segs[0], parts[len(parts)-1])
		return ok
	}
	return matchSegments(p.segs, parts)
}

func matchSegments(pat, parts []string) bool {
	if len(pat) == 0 {
		return len(parts) == 0
	}
	if pat[0] == "**" {
		for i := 0; i <= len(parts); i++ {
			if matchSegments(pat[1:], parts[i:]) {
				return true
			}
		}
		return false
	}
	if len(parts) == 0 {
		return false
	}
	ok, _ := path.Match(pat[0], parts[0])
	return ok && matchSegments(pat[1:], parts[1:])
}

// ruleSet holds the patterns of one ignore file. base is the directory
// of the file relative to the scan root, "" for the root itself.
type ruleSet struct {
	base     string
	patterns []Pattern
}

// loadRules reads the ignore file in dir. A missing file yields no rules.
func loadRules(dir, base, name string) (ruleSet, error) {
	rs := ruleSet{base: base}
	f, err := os.Open(filepath.Join(dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return rs, nil
		}
		return rs, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rs.patterns = append(rs.patterns, ParsePattern(line))
	}
	return rs, sc.Err()
}

// ignored applies every rule set whose directory contains rel. Later
// patterns win, so a negation can re-include an earlier match.
func ignored(rel string, isDir bool, rules []ruleSet) bool {
	out := false
	for _, rs := range rules {
		sub := rel
		if rs.base != "" {
			if !strings.HasPrefix(rel, rs.base+"/") {
				continue
			}
			sub = strings.TrimPrefix(rel, rs.base+"/")
		}
		for _, p := range rs.patterns {
			if p.Match(sub, isDir) {
				out = !p.negate
			}
		}
	}
	return out
}
