package embedding

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"
)

// HashEmbedder is an offline, deterministic embedder based on feature
// hashing of lowercase word tokens. Texts that share words score higher
// than texts that do not, which is enough for local use and tests.
type HashEmbedder struct {
	dims int
}

// NewHashEmbedder creates a hashing embedder. dims defaults to 256.
func NewHashEmbedder(dims int) *HashEmbedder {
	if dims <= 0 {
		dims = 256
	}
	return &HashEmbedder{dims: dims}
}

var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "for": true, "from": true, "in": true, "is": true,
	"it": true, "of": true, "on": true, "or": true, "that": true, "the": true,
	"this": true, "to": true, "was": true, "what": true, "with": true,
}

// Embed never fails; text without any indexable token maps to the zero vector.
func (h *HashEmbedder) Embed(_ context.Context, text string) (Vector, error) {
	v := make(Vector, h.dims)
	for _, tok := range Tokenize(text) {
		f := fnv.New64a()
		f.Write([]byte(tok))
		sum := f.Sum64()
		idx := int(sum % uint64(h.dims))
		if sum>>63 == 1 {
			v[idx]--
		} else {
			v[idx]++
		}
	}
	return Normalize(v), nil
}

func (h *HashEmbedder) Dims() int { return h.dims }

// Tokenize lowercases text and splits it into words, dropping stopwords.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if !stopwords[f] {
			out = append(out, f)
		}
	}
	return out
}
