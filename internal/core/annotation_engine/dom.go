package annotation_engine

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Attribute values used to mark the nodes this package inserts.
const (
	dataRole       = "data-role"
	dataRow        = "data-row"
	roleSelect     = "row-select"
	roleSelectHead = "select-header"
	roleSelectCell = "select-cell"
	roleNote       = "verification-note"
	roleOriginal   = "original-note"
)

func isElement(n *html.Node, a atom.Atom) bool {
	return n != nil && n.Type == html.ElementNode && n.DataAtom == a
}

func getAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(n *html.Node, key string) {
	out := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Key != key {
			out = append(out, a)
		}
	}
	n.Attr = out
}

func hasRole(n *html.Node, role string) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	v, ok := getAttr(n, dataRole)
	return ok && v == role
}

func newElement(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
}

func newText(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// textContent concatenates every text node below n, skipping script and style.
func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			if n.DataAtom == atom.Script || n.DataAtom == atom.Style {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
			if c.Type == html.ElementNode && isBlock(c) {
				b.WriteByte(' ')
			}
		}
	}
	walk(n)
	return b.String()
}

func isBlock(n *html.Node) bool {
	switch n.DataAtom {
	case atom.Td, atom.Th, atom.Tr, atom.P, atom.Div, atom.Br, atom.Li,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		return true
	}
	return false
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// cellText is the rendered text of a cell with the nodes this package
// inserts left out.
func cellText(cell *html.Node) string {
	var b strings.Builder
	for c := cell.FirstChild; c != nil; c = c.NextSibling {
		if hasRole(c, roleOriginal) || hasRole(c, roleNote) || hasRole(c, roleSelect) {
			continue
		}
		b.WriteString(textContent(c))
		b.WriteByte(' ')
	}
	return normalizeSpace(b.String())
}

// findAll returns the descendants of n matching fn in document order.
func findAll(n *html.Node, fn func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if fn(c) {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

func findFirst(n *html.Node, fn func(*html.Node) bool) *html.Node {
	if all := findAll(n, fn); len(all) > 0 {
		return all[0]
	}
	return nil
}

// tableRows returns the rows that belong to table itself, not to nested tables.
func tableRows(table *html.Node) []*html.Node {
	var rows []*html.Node
	for c := table.FirstChild; c != nil; c = c.NextSibling {
		switch {
		case isElement(c, atom.Tr):
			rows = append(rows, c)
		case isElement(c, atom.Thead), isElement(c, atom.Tbody), isElement(c, atom.Tfoot):
			for r := c.FirstChild; r != nil; r = r.NextSibling {
				if isElement(r, atom.Tr) {
					rows = append(rows, r)
				}
			}
		}
	}
	return rows
}

func rowCells(tr *html.Node) []*html.Node {
	var cells []*html.Node
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if isElement(c, atom.Td) || isElement(c, atom.Th) {
			cells = append(cells, c)
		}
	}
	return cells
}

func isHeaderRow(tr *html.Node) bool {
	if isElement(tr.Parent, atom.Thead) {
		return true
	}
	cells := rowCells(tr)
	if len(cells) == 0 {
		return false
	}
	for _, c := range cells {
		if !isElement(c, atom.Th) {
			return false
		}
	}
	return true
}

// precedingText is the text of the nearest non-blank node before n in
// document order. A table found on the way ends the search, so a heading
// belongs only to the table right after it.
func precedingText(n *html.Node) string {
	for cur := n; cur != nil && cur.Parent != nil; cur = cur.Parent {
		for p := cur.PrevSibling; p != nil; p = p.PrevSibling {
			if isElement(p, atom.Table) {
				return ""
			}
			if p.Type == html.CommentNode {
				continue
			}
			if t := normalizeSpace(textContent(p)); t != "" {
				return t
			}
		}
	}
	return ""
}

// unwrap replaces n with its children.
func unwrap(n *html.Node) {
	parent := n.Parent
	if parent == nil {
		return
	}
	for c := n.FirstChild; c != nil; c = n.FirstChild {
		n.RemoveChild(c)
		parent.InsertBefore(c, n)
	}
	parent.RemoveChild(n)
}
