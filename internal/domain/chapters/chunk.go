package chapters

import (
	"unicode/utf8"

	"github.com/dabinuss/clipcore/internal/types"
)

const (
	DefaultChunkSize    = 6000
	DefaultChunkOverlap = 400
)

// SplitIntoChunks cuts text into overlapping chunks of at most chunkSize bytes.
// Chunk ends back off to the last space at or before the limit unless that
// would shrink the chunk below half of chunkSize; the next chunk starts
// overlap bytes before the previous end, moved forward to a word start.
// StartOffset is always relative to text.
func SplitIntoChunks(text string, chunkSize, overlap int) []types.TranscriptChunk {
	if text == "" {
		return nil
	}
	if chunkSize <= 0 || len(text) <= chunkSize {
		return []types.TranscriptChunk{{Text: text, StartOffset: 0}}
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}

	chunks := make([]types.TranscriptChunk, 0, len(text)/(chunkSize-overlap)+1)
	start := 0
	for {
		end := start + chunkSize
		if end >= len(text) {
			end = len(text)
		} else {
			end = backOffToSpace(text, start, end, chunkSize/2)
		}
		chunks = append(chunks, types.TranscriptChunk{Text: text[start:end], StartOffset: start})
		if end >= len(text) {
			break
		}

		next := end - overlap
		if next <= start {
			next = end
		}
		next = forwardToWordStart(text, next, end)
		for next < len(text) && text[next] == ' ' {
			next++
		}
		if next >= len(text) {
			break
		}
		start = next
	}
	return chunks
}

func backOffToSpace(text string, start, end, minLen int) int {
	limit := end
	if limit >= len(text) {
		limit = len(text) - 1
	}
	for i := limit; i > start; i-- {
		if text[i] == ' ' {
			if i-start >= minLen {
				return i
			}
			break
		}
	}
	cut := end
	for cut > start && !utf8.RuneStart(text[cut]) {
		cut--
	}
	if cut == start {
		cut = end
		for cut < len(text) && !utf8.RuneStart(text[cut]) {
			cut++
		}
	}
	return cut
}

// forwardToWordStart moves i to the start of the next word, never past limit.
func forwardToWordStart(text string, i, limit int) int {
	if i <= 0 || text[i-1] == ' ' {
		return i
	}
	for j := i; j < limit; j++ {
		if text[j] == ' ' {
			return j + 1
		}
	}
	for i < limit && !utf8.RuneStart(text[i]) {
		i++
	}
	return i
}
