package extract

import (
	"fmt"
	"os"

	"github.com/PuerkitoBio/goquery"
)

// readHTML returns the document's visible text.
func readHTML(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return "", fmt.Errorf("parse html %s: %w", path, err)
	}
	doc.Find("script, style, noscript, template").Remove()
	return doc.Text(), nil
}
