package keywords

import (
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Extractor pulls ranked key phrases out of free text using RAKE: the text
// is cut into candidate phrases at stopwords and punctuation, each word is
// scored by degree over frequency, and a phrase scores the sum of its words.
type Extractor struct {
	stopwords map[string]struct{}
	maxWords  int
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithStopwords replaces the default English stopword list.
func WithStopwords(words []string) Option {
	return func(e *Extractor) {
		e.stopwords = make(map[string]struct{}, len(words))
		for _, w := range words {
			e.stopwords[strings.ToLower(w)] = struct{}{}
		}
	}
}

// WithMaxWords drops candidate phrases longer than n words. Zero keeps all.
func WithMaxWords(n int) Option {
	return func(e *Extractor) {
		e.maxWords = n
	}
}

func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{}
	WithStopwords(englishStopwords)(e)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type phrase struct {
	words []string
	text  string
	first int
	score float64
}

// Keywords returns distinct phrases, best first. Phrases with equal scores
// keep their order of appearance.
func (e *Extractor) Keywords(text string) []string {
	phrases := e.candidates(cases.Lower(language.Und).String(text))
	if len(phrases) == 0 {
		return []string{}
	}

	freq := make(map[string]int)
	degree := make(map[string]int)
	for _, p := range phrases {
		for _, w := range p.words {
			freq[w]++
			degree[w] += len(p.words)
		}
	}

	seen := make(map[string]struct{}, len(phrases))
	unique := phrases[:0]
	for _, p := range phrases {
		if _, ok := seen[p.text]; ok {
			continue
		}
		seen[p.text] = struct{}{}
		for _, w := range p.words {
			p.score += float64(degree[w]) / float64(freq[w])
		}
		unique = append(unique, p)
	}

	slices.SortStableFunc(unique, func(a, b phrase) int {
		switch {
		case a.score > b.score:
			return -1
		case a.score < b.score:
			return 1
		default:
			return a.first - b.first
		}
	})

	out := make([]string, len(unique))
	for i, p := range unique {
		out[i] = p.text
	}
	return out
}

func (e *Extractor) candidates(text string) []phrase {
	var (
		out     []phrase
		current []string
	)
	flush := func() {
		if len(current) > 0 && (e.maxWords == 0 || len(current) <= e.maxWords) {
			out = append(out, phrase{
				words: current,
				text:  strings.Join(current, " "),
				first: len(out),
			})
		}
		current = nil
	}

	for _, tok := range tokenize(text) {
		if tok.boundary {
			flush()
			continue
		}
		if _, stop := e.stopwords[tok.word]; stop {
			flush()
			continue
		}
		current = append(current, tok.word)
	}
	flush()
	return out
}

type token struct {
	word     string
	boundary bool
}

// tokenize splits on whitespace and reports punctuation as phrase
// boundaries. Apostrophes and hyphens inside a word are kept.
func tokenize(text string) []token {
	var (
		toks []token
		b    strings.Builder
	)
	emit := func() {
		if b.Len() > 0 {
			w := strings.Trim(b.String(), "'-")
			if w != "" && !isNumber(w) {
				toks = append(toks, token{word: w})
			}
			b.Reset()
		}
	}
	for _, r := range text {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' || r == '-':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			emit()
		default:
			emit()
			toks = append(toks, token{boundary: true})
		}
	}
	emit()
	return toks
}

func isNumber(w string) bool {
	for _, r := range w {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
