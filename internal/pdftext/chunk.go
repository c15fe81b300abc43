package pdftext

import "strings"

// DefaultChunkChars is the greedy chunk budget used by the verification path.
const DefaultChunkChars = 1400

// Chunk is a page-aware paragraph group, sized for embedding.
type Chunk struct {
	Page      int
	Section   string
	Paragraph int
	Text      string
}

// ExtractChunks splits the PDF into paragraph groups of roughly maxChars
// characters, keeping page attribution. A PDF with no extractable text
// yields a single empty chunk so downstream indexing never sees zero rows.
func ExtractChunks(data []byte, maxChars int) []Chunk {
	if maxChars <= 0 {
		maxChars = DefaultChunkChars
	}
	pages := ExtractPages(data)
	if len(pages) == 0 {
		return []Chunk{{Page: 1}}
	}
	var out []Chunk
	for _, pg := range pages {
		parts := greedyParaSplit(pg.Text, maxChars)
		for j, part := range parts {
			out = append(out, Chunk{Page: pg.Number, Paragraph: j + 1, Text: part})
		}
	}
	if len(out) == 0 {
		return []Chunk{{Page: 1}}
	}
	return out
}

// greedyParaSplit groups consecutive paragraphs until adding the next one
// would exceed maxChars.
func greedyParaSplit(text string, maxChars int) []string {
	var paras []string
	for _, p := range strings.Split(text, "\n") {
		if p = strings.TrimSpace(p); p != "" {
			paras = append(paras, p)
		}
	}
	if len(paras) == 0 {
		return nil
	}

	var chunks []string
	var buf []string
	size := 0
	for _, p := range paras {
		if size+len(p)+1 > maxChars && len(buf) > 0 {
			chunks = append(chunks, strings.Join(buf, "\n"))
			buf = []string{p}
			size = len(p)
		} else {
			buf = append(buf, p)
			size += len(p) + 1
		}
	}
	if len(buf) > 0 {
		chunks = append(chunks, strings.Join(buf, "\n"))
	}
	return chunks
}
