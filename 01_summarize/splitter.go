package summarize

import "strings"

var defaultSeparators = []string{"\n\n", "\n", " ", ""}

// Splitter cuts text into overlapping windows, preferring paragraph, then line,
// then word boundaries before falling back to single characters.
type Splitter struct {
	ChunkSize  int
	Overlap    int
	Separators []string
}

func NewSplitter(size, overlap int) Splitter {
	return Splitter{ChunkSize: size, Overlap: overlap, Separators: defaultSeparators}
}

// Split returns the chunks of text in order. Whitespace-only chunks are dropped.
func (s Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	seps := s.Separators
	if len(seps) == 0 {
		seps = defaultSeparators
	}
	return s.split(text, seps)
}

func (s Splitter) split(text string, seps []string) []string {
	sep := seps[len(seps)-1]
	var rest []string
	for i, c := range seps {
		if c == "" || strings.Contains(text, c) {
			sep = c
			rest = seps[i+1:]
			break
		}
	}

	var pieces []string
	if sep == "" {
		for _, r := range text {
			pieces = append(pieces, string(r))
		}
	} else {
		pieces = strings.Split(text, sep)
	}

	var out, small []string
	for _, p := range pieces {
		if p == "" {
			continue
		}
		if len(p) < s.ChunkSize {
			small = append(small, p)
			continue
		}
		if len(small) > 0 {
			out = append(out, s.merge(small, sep)...)
			small = nil
		}
		if len(rest) == 0 {
			out = append(out, p)
		} else {
			out = append(out, s.split(p, rest)...)
		}
	}
	if len(small) > 0 {
		out = append(out, s.merge(small, sep)...)
	}
	return out
}

// merge packs pieces into chunks of at most ChunkSize, carrying up to Overlap
// bytes of trailing pieces into the next chunk.
func (s Splitter) merge(pieces []string, sep string) []string {
	var docs, cur []string
	total := 0
	sepLen := len(sep)

	joinLen := func(n int) int {
		if n > 0 {
			return sepLen
		}
		return 0
	}

	for _, p := range pieces {
		if len(cur) > 0 && total+len(p)+joinLen(len(cur)) > s.ChunkSize {
			if doc := strings.TrimSpace(strings.Join(cur, sep)); doc != "" {
				docs = append(docs, doc)
			}
			for len(cur) > 0 && (total > s.Overlap || total+len(p)+joinLen(len(cur)) > s.ChunkSize) {
				total -= len(cur[0]) + joinLen(len(cur)-1)
				cur = cur[1:]
			}
		}
		total += len(p) + joinLen(len(cur))
		cur = append(cur, p)
	}
	if doc := strings.TrimSpace(strings.Join(cur, sep)); doc != "" {
		docs = append(docs, doc)
	}
	return docs
}
