// Package analyzer compares resume text against a job description using
// keyword overlap.
//
// Every function in this package is a pure transformation over its string
// arguments. Nothing is cached between calls, so the functions are safe to
// call concurrently.
package analyzer

import (
	"regexp"
	"strings"
)

// MaxKeywords is the upper bound on the size of an extracted KeywordSet.
const MaxKeywords = 50

// vocabulary lists the technology, methodology and soft-skill terms looked up
// by substring. Order matters: it is the insertion order of the first phase.
var vocabulary = []string{
	"react", "javascript", "typescript", "node", "python", "java", "sql",
	"aws", "azure", "docker", "kubernetes", "git", "agile", "scrum",
	"api", "rest", "graphql", "mongodb", "postgresql", "redis",
	"ci/cd", "testing", "jest", "cypress", "leadership", "communication",
	"problem-solving", "team", "project management", "frontend", "backend",
	"full-stack", "ui/ux", "responsive", "mobile", "web", "cloud",
	"machine learning", "ai", "data", "analytics", "security",
}

var (
	// capitalizedToken matches acronyms and product names such as "AWS",
	// "Node.js" or "Kotlin".
	capitalizedToken = regexp.MustCompile(`\b[A-Z][a-zA-Z0-9+#.]+\b`)

	// titleCasePhrase matches two or three consecutive Title-Case words.
	// The separator class also admits vertical tab, no-break and other
	// Unicode spaces, which pasted text often carries.
	titleCasePhrase = regexp.MustCompile(`\b(?:[A-Z][a-z]+[\s\x{0B}\p{Zs}\x{2028}\x{2029}\x{FEFF}]){1,2}[A-Z][a-z]+\b`)
)

// minTokenLength is the shortest capitalized token kept by the token scan.
const minTokenLength = 3

// KeywordSet is an insertion-ordered list of unique lowercase keywords.
type KeywordSet []string

// Len returns the number of keywords in the set.
func (s KeywordSet) Len() int {
	return len(s)
}

// Contains reports whether keyword is in the set, ignoring case.
func (s KeywordSet) Contains(keyword string) bool {
	keyword = strings.ToLower(keyword)
	for _, k := range s {
		if k == keyword {
			return true
		}
	}
	return false
}

// Vocabulary returns a copy of the fixed reference term list.
func Vocabulary() []string {
	out := make([]string, len(vocabulary))
	copy(out, vocabulary)
	return out
}

// keywordCollector accumulates keywords until MaxKeywords is reached.
type keywordCollector struct {
	seen  map[string]struct{}
	items KeywordSet
}

func newKeywordCollector() *keywordCollector {
	return &keywordCollector{
		seen:  make(map[string]struct{}),
		items: make(KeywordSet, 0),
	}
}

func (c *keywordCollector) full() bool {
	return len(c.items) >= MaxKeywords
}

func (c *keywordCollector) add(keyword string) {
	if c.full() {
		return
	}
	keyword = strings.ToLower(keyword)
	if _, ok := c.seen[keyword]; ok {
		return
	}
	c.seen[keyword] = struct{}{}
	c.items = append(c.items, keyword)
}

// ExtractKeywords returns the candidate keywords found in text.
//
// Three scans run in order: vocabulary containment on the lowercased text,
// capitalized single tokens longer than two characters, and Title-Case
// phrases of two or three words. Results are lowercased, deduplicated and
// capped at MaxKeywords in insertion order. Empty text yields an empty set.
func ExtractKeywords(text string) KeywordSet {
	c := newKeywordCollector()
	if text == "" {
		return c.items
	}

	lower := strings.ToLower(text)
	for _, term := range vocabulary {
		if strings.Contains(lower, term) {
			c.add(term)
		}
	}

	for _, token := range capitalizedToken.FindAllString(text, -1) {
		if c.full() {
			return c.items
		}
		if len(token) >= minTokenLength {
			c.add(token)
		}
	}

	for _, phrase := range titleCasePhrase.FindAllString(text, -1) {
		if c.full() {
			break
		}
		c.add(phrase)
	}

	return c.items
}
