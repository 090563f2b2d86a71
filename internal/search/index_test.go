package search

import (
	"reflect"
	"testing"
)

func TestOptionsAndDefaults(t *testing.T) {
	def := defaultConfig()
	if def.minRunes != 1 || def.stopwords != nil || def.maxDocs != 0 {
		t.Fatalf("defaultConfig unexpected: %#v", def)
	}

	cfg := def
	WithMinRunes(10)(&cfg)
	if cfg.minRunes != 10 {
		t.Fatalf("WithMinRunes failed: %d", cfg.minRunes)
	}
	WithMinRunes(-5)(&cfg)
	if cfg.minRunes != 10 {
		t.Fatalf("negative minRunes should be ignored")
	}

	WithStopwords([]string{"  The ", "", "Dan"})(&cfg)
	for _, w := range []string{"the", "dan"} {
		if _, ok := cfg.stopwords[w]; !ok {
			t.Fatalf("WithStopwords missing %q: %#v", w, cfg.stopwords)
		}
	}

	cfg2 := def
	WithStopwords(nil)(&cfg2)
	if cfg2.stopwords != nil {
		t.Fatalf("empty stopwords should remain nil")
	}

	WithMaxDocs(2)(&cfg)
	if cfg.maxDocs != 2 {
		t.Fatalf("WithMaxDocs failed: %d", cfg.maxDocs)
	}
	WithMaxDocs(0)(&cfg)
	if cfg.maxDocs != 2 {
		t.Fatalf("zero maxDocs should be ignored")
	}
}

func TestNewIndex_SkipsBlankShortAndCaps(t *testing.T) {
	docs := []Document{
		{ID: "a", Text: "   "},
		{ID: "b", Text: "!!!"},
		{ID: "c", Text: "rice cooker"},
		{ID: "d", Text: "kid's bicycle"},
		{ID: "e", Text: "baby stroller"},
	}
	if n := NewIndex(docs).Len(); n != 3 {
		t.Fatalf("Len = %d, want 3", n)
	}
	if n := NewIndex(docs, WithMaxDocs(2)).Len(); n != 2 {
		t.Fatalf("Len with cap = %d, want 2", n)
	}
	if n := NewIndex(docs, WithMinRunes(12)).Len(); n != 2 {
		t.Fatalf("Len with minRunes = %d, want 2", n)
	}
}

func TestTopK_RanksByJaccardWithStableTies(t *testing.T) {
	idx := NewIndex([]Document{
		{ID: "i3", Text: "rice cooker with steamer basket"},
		{ID: "i1", Text: "rice cooker"},
		{ID: "i2", Text: "electric kettle"},
		{ID: "i4", Text: "cooker rice"},
	})

	got := idx.TopK("Rice  cooker", 0)
	ids := make([]string, len(got))
	for n, r := range got {
		ids[n] = r.ID
	}
	// i1 and i4 both score 1.0 with equal length, so the ID breaks the tie.
	if want := []string{"i1", "i4", "i3"}; !reflect.DeepEqual(ids, want) {
		t.Fatalf("order = %v, want %v", ids, want)
	}
	if got[0].Score != 1 || got[2].Score != 0.4 {
		t.Fatalf("scores = %v, %v", got[0].Score, got[2].Score)
	}
	if got[0].Snippet != "rice cooker" {
		t.Fatalf("snippet = %q", got[0].Snippet)
	}

	if got := idx.TopK("rice", 1); len(got) != 1 {
		t.Fatalf("k=1 returned %d results", len(got))
	}
}

func TestTopK_EmptyCases(t *testing.T) {
	empty := NewIndex(nil)
	if empty.TopK("anything", 3) != nil {
		t.Fatal("empty index should return nil")
	}

	idx := NewIndex([]Document{{ID: "x", Text: "the blue chair"}}, WithStopwords([]string{"the"}))
	cases := []string{"", "   ", "???", "the", "sofa"}
	for _, q := range cases {
		if got := idx.TopK(q, 3); got != nil {
			t.Fatalf("TopK(%q) = %v, want nil", q, got)
		}
	}
	if got := idx.TopK("blue", 3); len(got) != 1 || got[0].ID != "x" {
		t.Fatalf("TopK(blue) = %v", got)
	}
}

func TestHelpers(t *testing.T) {
	toks := tokenize("Meja 2 Kursi4 meja", nil)
	for _, w := range []string{"meja", "2", "kursi4"} {
		if _, ok := toks[w]; !ok {
			t.Fatalf("tokenize missing %q: %v", w, toks)
		}
	}
	if len(toks) != 3 {
		t.Fatalf("tokenize len = %d", len(toks))
	}
	if tokenize("...", nil) != nil {
		t.Fatal("tokenize of punctuation should be nil")
	}
	if got := tokenize("a b", map[string]struct{}{}); len(got) != 2 {
		t.Fatalf("empty stop map should keep tokens: %v", got)
	}

	a := map[string]struct{}{"x": {}, "y": {}, "z": {}}
	b := map[string]struct{}{"y": {}}
	if overlap(a, b) != 1 || overlap(b, a) != 1 {
		t.Fatal("overlap mismatch")
	}
	if overlap(nil, a) != 0 {
		t.Fatal("overlap with nil should be 0")
	}

	if got := normalizeWhitespace("a \t\n b\r\rc"); got != "a b c" {
		t.Fatalf("normalizeWhitespace = %q", got)
	}
}

func TestTopK_PrefixMatch(t *testing.T) {
	docs := []Document{
		{ID: "bike", Text: "sepeda anak roda tiga"},
		{ID: "fan", Text: "kipas angin"},
	}
	if got := NewIndex(docs).TopK("sepe", 5); got != nil {
		t.Fatalf("exact mode matched a prefix: %v", got)
	}

	idx := NewIndex(docs, WithPrefixMatch(3), WithStopwords(CommonStopwords))
	got := idx.TopK("sepe untuk anak", 5)
	if len(got) != 1 || got[0].ID != "bike" {
		t.Fatalf("TopK = %v", got)
	}
	// Query {sepe, anak} against {sepeda, anak, roda, tiga}: 2 / 4.
	if got[0].Score != 0.5 {
		t.Fatalf("score = %v", got[0].Score)
	}
	if got := idx.TopK("ki", 5); got != nil {
		t.Fatalf("short token must not prefix-match: %v", got)
	}

	cfg := defaultConfig()
	WithPrefixMatch(0)(&cfg)
	if cfg.prefixMin != 0 {
		t.Fatalf("prefixMin = %d", cfg.prefixMin)
	}
}
