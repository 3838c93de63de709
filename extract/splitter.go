package extract

import "strings"

// separators is the hierarchy tried when breaking oversized papers:
// paragraph breaks first, then lines, sentences, words.
var separators = []string{"\n\n", "\n", ". ", " "}

// Splitter breaks long paper text into overlapping character-bounded chunks
// so each chunk fits a single extraction prompt.
type Splitter struct {
	maxChars int
	overlap  int
}

// NewSplitter returns a Splitter with the given limits. Zero values get
// defaults suited to GPT-class context windows.
func NewSplitter(maxChars, overlap int) *Splitter {
	if maxChars <= 0 {
		maxChars = 4000
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= maxChars {
		overlap = maxChars / 4
	}
	return &Splitter{maxChars: maxChars, overlap: overlap}
}

// Split returns the text as a single chunk when it fits, otherwise a list
// of chunks each at most maxChars long (plus overlap carried from the
// previous chunk). Splits happen at the coarsest separator available.
func (s *Splitter) Split(text string) []string {
	if len(text) <= s.maxChars {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		return []string{text}
	}

	pieces := splitRecursive(text, separators, s.maxChars)

	var chunks []string
	var cur strings.Builder
	for _, p := range pieces {
		if cur.Len() > 0 && cur.Len()+len(p) > s.maxChars {
			prev := cur.String()
			chunks = append(chunks, prev)
			cur.Reset()
			cur.WriteString(s.overlapTail(prev))
		}
		cur.WriteString(p)
	}
	if strings.TrimSpace(cur.String()) != "" {
		chunks = append(chunks, cur.String())
	}
	return chunks
}

// overlapTail returns the trailing overlap window of a chunk, trimmed to a
// word boundary so the next chunk does not start mid-word.
func (s *Splitter) overlapTail(chunk string) string {
	if s.overlap == 0 || len(chunk) <= s.overlap {
		return ""
	}
	tail := chunk[len(chunk)-s.overlap:]
	if i := strings.IndexByte(tail, ' '); i >= 0 {
		tail = tail[i+1:]
	}
	return tail
}

// splitRecursive breaks text into pieces no longer than max, trying each
// separator in order and hard-cutting as a last resort.
func splitRecursive(text string, seps []string, max int) []string {
	if len(text) <= max {
		if text == "" {
			return nil
		}
		return []string{text}
	}

	if len(seps) == 0 {
		var out []string
		for len(text) > max {
			out = append(out, text[:max])
			text = text[max:]
		}
		if text != "" {
			out = append(out, text)
		}
		return out
	}

	var out []string
	for _, part := range strings.SplitAfter(text, seps[0]) {
		if len(part) > max {
			out = append(out, splitRecursive(part, seps[1:], max)...)
		} else if part != "" {
			out = append(out, part)
		}
	}
	return out
}
