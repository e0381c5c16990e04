package structdiff

import (
	"hash/fnv"
	"math/bits"
	"strings"

	"golang.org/x/net/html"
)

// Fingerprint computes a 64-bit SimHash of a document's DOM structure:
// the sequence of open tag names with their class attributes, shingled
// in triples. Text content and other attributes are ignored, so two
// renderings of the same layout hash identically even when copy differs.
// Returns 0 for input with no tags.
func Fingerprint(rawHTML string) uint64 {
	tokens := structureTokens(rawHTML)
	if len(tokens) == 0 {
		return 0
	}

	shingles := makeShingles(tokens, 3)
	if len(shingles) == 0 {
		shingles = tokens
	}

	var vector [64]int
	for _, shingle := range shingles {
		h := fnv.New64a()
		h.Write([]byte(shingle))
		hash := h.Sum64()

		for i := 0; i < 64; i++ {
			if hash&(1<<uint(i)) != 0 {
				vector[i]++
			} else {
				vector[i]--
			}
		}
	}

	var fingerprint uint64
	for i := 0; i < 64; i++ {
		if vector[i] > 0 {
			fingerprint |= 1 << uint(i)
		}
	}
	return fingerprint
}

// Distance returns the Hamming distance between two fingerprints.
func Distance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// structureTokens walks the document with the tokenizer and collects one
// token per open tag: the tag name plus its sorted-order class attribute.
func structureTokens(rawHTML string) []string {
	tokenizer := html.NewTokenizer(strings.NewReader(rawHTML))
	var tokens []string

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return tokens
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := tokenizer.TagName()
			token := string(name)
			for hasAttr {
				var key, val []byte
				key, val, hasAttr = tokenizer.TagAttr()
				if string(key) == "class" {
					classes := strings.Fields(string(val))
					if len(classes) > 0 {
						token += "." + strings.Join(classes, ".")
					}
					break
				}
			}
			tokens = append(tokens, token)
		}
	}
}

// makeShingles creates n-gram shingles from a token sequence.
func makeShingles(tokens []string, n int) []string {
	if len(tokens) < n {
		return nil
	}
	shingles := make([]string, 0, len(tokens)-n+1)
	for i := 0; i <= len(tokens)-n; i++ {
		shingles = append(shingles, strings.Join(tokens[i:i+n], "_"))
	}
	return shingles
}
