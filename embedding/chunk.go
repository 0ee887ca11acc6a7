package embedding

import "strings"

// DefaultChunkWords is the window size used when splitting documents for indexing.
const DefaultChunkWords = 200

// Chunk splits text into windows of size words, each overlapping the previous one by half a
// window so that a sentence cut at one boundary is whole in the neighbouring chunk.
func Chunk(text string, size int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if size <= 0 || len(words) <= size {
		return []string{strings.Join(words, " ")}
	}

	step := max(size/2, 1)
	var chunks []string
	for start := 0; ; start += step {
		end := start + size
		if end >= len(words) {
			chunks = append(chunks, strings.Join(words[start:], " "))
			return chunks
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
	}
}
