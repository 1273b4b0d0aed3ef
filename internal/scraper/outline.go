package scraper

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/parser"
)

const (
	outlineTitle       = "div.outline-item-title"
	outlineDescription = "div.outline-item-description"
)

var blockElements = map[string]bool{
	"br": true, "div": true, "p": true, "li": true, "ul": true, "ol": true, "tr": true,
}

// OutlineItems reads the title/description pairs of the outline items
// matched by selector. Items missing either part are skipped. Values keep
// one line per block element so list values stay newline separated.
func OutlineItems(html, selector string) (map[string]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	items := map[string]string{}
	doc.Find(selector).Each(func(_ int, item *goquery.Selection) {
		title := item.Find(outlineTitle).First()
		description := item.Find(outlineDescription).First()
		if title.Length() == 0 || description.Length() == 0 {
			return
		}

		key := parser.CollapseSpace(strings.ReplaceAll(innerText(title), "\n", " "))
		if key == "" {
			return
		}
		items[key] = dropBlankLines(parser.CollapseSpace(innerText(description)))
	})

	return items, nil
}

// innerText approximates the rendered text of sel: block elements start a new line.
func innerText(sel *goquery.Selection) string {
	var b strings.Builder
	var walk func(*goquery.Selection)
	walk = func(s *goquery.Selection) {
		s.Contents().Each(func(_ int, node *goquery.Selection) {
			name := goquery.NodeName(node)
			switch {
			case name == "#text":
				b.WriteString(node.Text())
			case name == "script" || name == "style":
			case blockElements[name]:
				b.WriteByte('\n')
				walk(node)
				b.WriteByte('\n')
			default:
				walk(node)
			}
		})
	}
	walk(sel)
	return b.String()
}

func dropBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
