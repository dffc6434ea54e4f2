// Package chunk splits parsed document text into overlapping pieces
// sized for embedding.
package chunk

import (
	"strings"

	"github.com/yungbote/llm-gateway/internal/types"
)

// separators are tried in order when recursively splitting; the empty
// string means split at the character level.
var separators = []string{"\n\n", "\n", " ", ""}

// Split breaks text into chunks of at most size characters with
// roughly overlap characters shared between neighbors. Boundaries
// prefer paragraph breaks, then line breaks, then word breaks.
func Split(text string, size, overlap int) []types.Chunk {
	if size <= 0 {
		size = 1000
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 2
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}

	pieces := splitRecursive(text, size, overlap, separators)
	chunks := make([]types.Chunk, 0, len(pieces))
	for _, p := range pieces {
		if strings.TrimSpace(p) == "" {
			continue
		}
		chunks = append(chunks, types.Chunk{Text: p, Index: len(chunks)})
	}
	return chunks
}

func splitRecursive(text string, size, overlap int, seps []string) []string {
	if len(text) <= size {
		return []string{text}
	}

	sep := ""
	var rest []string
	found := false
	for i, s := range seps {
		if s == "" {
			break
		}
		if strings.Contains(text, s) {
			sep = s
			rest = seps[i+1:]
			found = true
			break
		}
	}
	if !found {
		return windowSplit(text, size, overlap)
	}

	var splits []string
	for _, part := range strings.Split(text, sep) {
		if len(part) <= size {
			splits = append(splits, part)
			continue
		}
		splits = append(splits, splitRecursive(part, size, overlap, rest)...)
	}
	return mergeSplits(splits, sep, size, overlap)
}

// mergeSplits packs separator pieces back into chunks of at most size
// characters. Each new chunk is seeded with the trailing pieces of the
// previous one, up to overlap characters, so neighbors share context.
func mergeSplits(splits []string, sep string, size, overlap int) []string {
	var out []string
	var cur []string
	total := 0

	for _, s := range splits {
		add := len(s)
		if len(cur) > 0 {
			add += len(sep)
		}
		if total+add > size && len(cur) > 0 {
			out = append(out, strings.Join(cur, sep))
			for len(cur) > 0 && (total > overlap || total+add > size) {
				total -= len(cur[0])
				if len(cur) > 1 {
					total -= len(sep)
				}
				cur = cur[1:]
				add = len(s)
				if len(cur) > 0 {
					add += len(sep)
				}
			}
		}
		cur = append(cur, s)
		total += add
	}
	if len(cur) > 0 {
		out = append(out, strings.Join(cur, sep))
	}
	return out
}

// windowSplit is the last-resort splitter: fixed windows retreating to
// a paragraph break in the second half of the window, else a sentence
// break in the last two-thirds. The next window starts overlap
// characters before the previous window actually ended, so a retreat
// never opens a gap.
func windowSplit(text string, size, overlap int) []string {
	var out []string

	start := 0
	for start < len(text) {
		end := start + size
		if end > len(text) {
			end = len(text)
		}
		if end < len(text) {
			if p := strings.LastIndex(text[start:end], "\n\n"); p != -1 && p > size/2 {
				end = start + p + 2
			} else if s := strings.LastIndex(text[start:end], ". "); s != -1 && s > size/3 {
				end = start + s + 2
			}
		}
		out = append(out, text[start:end])
		if end == len(text) {
			break
		}
		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return out
}
