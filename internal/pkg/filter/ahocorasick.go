package filter

import (
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Match is a pattern occurrence. Position counts runes of the normalised text.
type Match struct {
	Pattern  string
	Category string
	Position int
}

// Pattern is a phrase to look for plus the category reported on a match.
type Pattern struct {
	Word     string
	Category string
}

type node struct {
	children map[rune]*node
	fail     *node
	output   []Pattern
}

func newNode() *node {
	return &node{children: make(map[rune]*node)}
}

// AhoCorasick matches many phrases in one pass over the text. Patterns and
// text go through NormalizeText, so matching is case and accent insensitive.
// It is safe for concurrent use.
type AhoCorasick struct {
	mu   sync.RWMutex
	root *node
}

func NewAhoCorasick(patterns ...Pattern) *AhoCorasick {
	ac := &AhoCorasick{root: newNode()}
	if len(patterns) > 0 {
		ac.Build(patterns)
	}
	return ac
}

// Build replaces the automaton with one built from patterns.
func (ac *AhoCorasick) Build(patterns []Pattern) {
	root := newNode()
	for _, p := range patterns {
		word := NormalizeText(p.Word)
		if word == "" {
			continue
		}
		n := root
		for _, r := range word {
			child, ok := n.children[r]
			if !ok {
				child = newNode()
				n.children[r] = child
			}
			n = child
		}
		n.output = append(n.output, Pattern{Word: word, Category: p.Category})
	}
	linkFailures(root)

	ac.mu.Lock()
	ac.root = root
	ac.mu.Unlock()
}

// linkFailures sets fail links breadth first so a node's fail target is
// always finished before the node itself.
func linkFailures(root *node) {
	queue := make([]*node, 0, len(root.children))
	for _, child := range root.children {
		child.fail = root
		queue = append(queue, child)
	}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for r, child := range current.children {
			queue = append(queue, child)
			f := current.fail
			for f != nil && f.children[r] == nil {
				f = f.fail
			}
			if f == nil {
				child.fail = root
				continue
			}
			child.fail = f.children[r]
			child.output = append(child.output, child.fail.output...)
		}
	}
}

func (ac *AhoCorasick) step(n *node, r rune) *node {
	for n != nil && n.children[r] == nil {
		n = n.fail
	}
	if n == nil {
		return ac.root
	}
	return n.children[r]
}

// Search returns every occurrence of every pattern in text.
func (ac *AhoCorasick) Search(text string) []Match {
	ac.mu.RLock()
	defer ac.mu.RUnlock()

	var matches []Match
	n := ac.root
	pos := 0
	for _, r := range NormalizeText(text) {
		n = ac.step(n, r)
		for _, p := range n.output {
			matches = append(matches, Match{
				Pattern:  p.Word,
				Category: p.Category,
				Position: pos - len([]rune(p.Word)) + 1,
			})
		}
		pos++
	}
	return matches
}

// HasMatch reports whether any pattern occurs in text.
func (ac *AhoCorasick) HasMatch(text string) bool {
	ac.mu.RLock()
	defer ac.mu.RUnlock()

	n := ac.root
	for _, r := range NormalizeText(text) {
		n = ac.step(n, r)
		if len(n.output) > 0 {
			return true
		}
	}
	return false
}

var stripMarks = runes.Remove(runes.In(unicode.Mn))

// NormalizeText lowercases text and strips diacritics.
func NormalizeText(text string) string {
	t := transform.Chain(norm.NFD, stripMarks, norm.NFC)
	result, _, err := transform.String(t, text)
	if err != nil {
		result = text
	}
	return strings.ToLower(result)
}
