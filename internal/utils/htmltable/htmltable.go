// Package htmltable extracts tabular data from HTML documents. The upstream
// rate sources publish their figures inside plain <table> markup, so the
// adapters only ever need tables reduced to trimmed cell text.
package htmltable

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// Table is one HTML table reduced to rows of cell text. Header cells (<th>)
// and data cells (<td>) are not distinguished; callers identify header rows
// by content.
type Table [][]string

// Parse returns every table in the document, in document order.
func Parse(r io.Reader) ([]Table, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	var tables []Table
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "table" {
			if t := extractTable(n); len(t) > 0 {
				tables = append(tables, t)
			}
			// nested tables inside cells are rare on the source pages and
			// already captured by extractTable's row scan
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return tables, nil
}

func extractTable(table *html.Node) Table {
	var t Table
	var rows func(n *html.Node)
	rows = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "tr" {
			var row []string
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
					row = append(row, cellText(c))
				}
			}
			if len(row) > 0 {
				t = append(t, row)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			rows(c)
		}
	}
	rows(table)
	return t
}

func cellText(n *html.Node) string {
	var b strings.Builder
	var text func(n *html.Node)
	text = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			text(c)
		}
	}
	text(n)
	return strings.Join(strings.Fields(b.String()), " ")
}
