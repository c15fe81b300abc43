// Package pdftext is the boundary around PDF text extraction. Callers get
// pages (or chunks) and never an error: a PDF that cannot be read yields an
// empty result, matching the pipeline's swallow-and-continue policy.
package pdftext

import (
	"bytes"
	"strings"

	"github.com/ledongthuc/pdf"
	pdfcpu "github.com/pdfcpu/pdfcpu/pkg/api"
)

// Page is one 1-based PDF page with its plain text.
type Page struct {
	Number int
	Text   string
}

// ExtractPages returns the plain text of every page in order. Any parse
// failure, including panics inside the PDF library, yields an empty slice.
func ExtractPages(data []byte) (pages []Page) {
	defer func() {
		if recover() != nil {
			pages = nil
		}
	}()

	if len(data) == 0 {
		return nil
	}
	// Cheap structural validation up front; malformed uploads bail here.
	if _, err := pdfcpu.PageCount(bytes.NewReader(data), nil); err != nil {
		return nil
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil
	}

	total := reader.NumPage()
	out := make([]Page, 0, total)
	for i := 1; i <= total; i++ {
		p := reader.Page(i)
		text := ""
		if !p.V.IsNull() {
			if t, err := p.GetPlainText(nil); err == nil {
				text = strings.TrimSpace(t)
			}
		}
		out = append(out, Page{Number: i, Text: text})
	}
	return out
}
