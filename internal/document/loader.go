// Package document extracts per-page text from the source standard.
package document

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"wellrag/internal/domain"
)

// PageBreak separates pages in plain-text exports (pdftotext convention).
const PageBreak = "\f"

// Load returns the text of every page of the document at path, one entry
// per page in order. Pages without extractable text are kept as "".
func Load(path string) ([]string, error) {
	var (
		pages []string
		err   error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		pages, err = loadPDF(path)
	case ".txt":
		pages, err = loadText(path)
	default:
		return nil, fmt.Errorf("%w: unsupported document type %q", domain.ErrInput, path)
	}
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: document %s has no pages", domain.ErrInput, path)
	}
	return pages, nil
}

func loadPDF(path string) ([]string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		if f != nil {
			f.Close()
		}
		return nil, fmt.Errorf("%w: open pdf %s: %v", domain.ErrInput, path, err)
	}
	defer f.Close()

	n := reader.NumPage()
	pages := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		// nil fonts: decode with the page's own font encodings.
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("%w: extract page %d of %s: %v", domain.ErrInput, i, path, err)
		}
		pages = append(pages, text)
	}
	return pages, nil
}

func loadText(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	return SplitPages(string(data)), nil
}

// SplitPages splits a plain-text export on form feeds. A trailing form
// feed does not start an extra page.
func SplitPages(text string) []string {
	pages := strings.Split(text, PageBreak)
	if len(pages) > 1 && pages[len(pages)-1] == "" {
		pages = pages[:len(pages)-1]
	}
	return pages
}
