// Package search provides a small, deterministic, concurrency-safe in-memory
// keyword index over short documents such as item listings.
//
// The index is read-only after construction. Scoring uses Jaccard similarity
// between the query token set and each document's token set:
// score = |Q ∩ D| / |Q ∪ D|. With WithPrefixMatch a query token also matches
// any longer document token it prefixes, so "sepe" finds "sepeda". Ties are
// broken by shorter text, then by ID.
package search

import (
	"cmp"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"
)

// Document is one searchable record.
type Document struct {
	ID   string
	Text string
}

// Result is a ranked document with its similarity score.
type Result struct {
	ID      string
	Snippet string
	Score   float64
}

// Index is the minimal interface implemented by all search indices.
type Index interface {
	TopK(query string, k int) []Result
	Len() int
}

// CommonStopwords are filler words of Indonesian and English listings.
var CommonStopwords = []string{
	"dan", "yang", "di", "ke", "dari", "untuk", "dengan", "ini", "itu", "masih",
	"the", "a", "an", "and", "of", "for", "with",
}

// ----------------------------------------------------------------------------
// Options

type Option func(*config)

type config struct {
	minRunes  int
	stopwords map[string]struct{}
	maxDocs   int
	prefixMin int // 0 disables prefix matching
}

func defaultConfig() config {
	return config{minRunes: 1}
}

// WithMinRunes drops documents shorter than n runes.
func WithMinRunes(n int) Option {
	return func(c *config) {
		if n >= 0 {
			c.minRunes = n
		}
	}
}

// WithStopwords ignores the given words in documents and queries.
func WithStopwords(words []string) Option {
	return func(c *config) {
		m := make(map[string]struct{}, len(words))
		for _, w := range words {
			w = strings.ToLower(strings.TrimSpace(w))
			if w != "" {
				m[w] = struct{}{}
			}
		}
		if len(m) > 0 {
			c.stopwords = m
		}
	}
}

// WithMaxDocs caps the number of indexed documents.
func WithMaxDocs(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxDocs = n
		}
	}
}

// WithPrefixMatch lets query tokens of at least n runes match document
// tokens they prefix. n <= 0 disables it.
func WithPrefixMatch(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.prefixMin = n
		}
	}
}

// ----------------------------------------------------------------------------
// Implementation

type doc struct {
	id     string
	text   string
	tokens map[string]struct{}
	runes  int
}

type index struct {
	cfg  config
	docs []doc
}

// NewIndex builds an Index over docs. Blank documents and documents with no
// word tokens are skipped.
func NewIndex(docs []Document, opts ...Option) Index {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	out := make([]doc, 0, len(docs))
	for _, d := range docs {
		t := strings.TrimSpace(normalizeWhitespace(d.Text))
		if t == "" {
			continue
		}
		n := utf8.RuneCountInString(t)
		if cfg.minRunes > 0 && n < cfg.minRunes {
			continue
		}
		toks := tokenize(t, cfg.stopwords)
		if len(toks) == 0 {
			continue
		}
		out = append(out, doc{id: d.ID, text: t, tokens: toks, runes: n})
		if cfg.maxDocs > 0 && len(out) >= cfg.maxDocs {
			break
		}
	}
	return &index{cfg: cfg, docs: out}
}

// Len returns the number of indexed documents.
func (i *index) Len() int { return len(i.docs) }

// TopK returns up to k best-matching documents. k <= 0 means 10.
func (i *index) TopK(q string, k int) []Result {
	if len(i.docs) == 0 || strings.TrimSpace(q) == "" {
		return nil
	}
	if k <= 0 {
		k = 10
	}
	query := tokenize(q, i.cfg.stopwords)
	if len(query) == 0 {
		return nil
	}

	type hit struct {
		d     *doc
		score float64
	}
	var hits []hit
	for n := range i.docs {
		d := &i.docs[n]
		over := i.matches(query, d.tokens)
		if over == 0 {
			continue
		}
		union := len(query) + len(d.tokens) - over
		hits = append(hits, hit{d: d, score: float64(over) / float64(union)})
	}

	slices.SortStableFunc(hits, func(a, b hit) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		if c := cmp.Compare(a.d.runes, b.d.runes); c != 0 {
			return c
		}
		return strings.Compare(a.d.id, b.d.id)
	})

	out := make([]Result, 0, min(k, len(hits)))
	for _, h := range hits[:min(k, len(hits))] {
		out = append(out, Result{ID: h.d.id, Snippet: h.d.text, Score: h.score})
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// matches counts query tokens found in doc, exactly or by prefix.
func (i *index) matches(query, doc map[string]struct{}) int {
	if i.cfg.prefixMin <= 0 {
		return overlap(query, doc)
	}
	n := 0
	for q := range query {
		if _, ok := doc[q]; ok {
			n++
			continue
		}
		if utf8.RuneCountInString(q) < i.cfg.prefixMin {
			continue
		}
		for t := range doc {
			if strings.HasPrefix(t, q) {
				n++
				break
			}
		}
	}
	return n
}

// ----------------------------------------------------------------------------
// Helpers

var wordRE = regexp.MustCompile(`\p{L}+\p{N}*|\p{N}+`)

func tokenize(s string, stop map[string]struct{}) map[string]struct{} {
	words := wordRE.FindAllString(strings.ToLower(s), -1)
	if len(words) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		if stop != nil {
			if _, skip := stop[w]; skip {
				continue
			}
		}
		out[w] = struct{}{}
	}
	return out
}

func overlap(a, b map[string]struct{}) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if len(a) > len(b) {
		a, b = b, a
	}
	n := 0
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return n
}

func normalizeWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevSpace := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\r' || r == '\n' {
			if !prevSpace {
				b.WriteByte(' ')
				prevSpace = true
			}
			continue
		}
		prevSpace = false
		b.WriteRune(r)
	}
	return b.String()
}
