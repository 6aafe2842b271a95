package encoder

const (
	clipSOT = 49406
	clipEOT = 49407
	// clipVocabSize bounds the hash-derived token IDs below the special tokens.
	clipVocabSize = 49152
)

// Tokenize produces a padded CLIP-style token sequence for text: start token,
// hash-derived word tokens, end token, zero padding up to maxTokens. This is a
// word-split tokenizer, not BPE; it keeps identical text mapping to identical
// token sequences, which is what retrieval needs.
func Tokenize(text string, maxTokens int) []int64 {
	if maxTokens <= 0 {
		maxTokens = 77
	}
	ids := make([]int64, maxTokens)
	ids[0] = clipSOT

	pos := 1
	for _, word := range splitWords(text) {
		if pos >= maxTokens-1 {
			break
		}
		ids[pos] = int64(hashString(word) % clipVocabSize)
		pos++
	}
	if pos < maxTokens {
		ids[pos] = clipEOT
	}
	return ids
}

func splitWords(text string) []string {
	var words []string
	word := ""
	for _, r := range text {
		if r == ' ' || r == '\n' || r == '\t' || r == ',' {
			if word != "" {
				words = append(words, word)
				word = ""
			}
		} else {
			word += string(r)
		}
	}
	if word != "" {
		words = append(words, word)
	}
	return words
}
