package export

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	blankRuns = regexp.MustCompile(`\n{3,}`)
	tabPad    = regexp.MustCompile(` *\t *`)
	spaceRuns = regexp.MustCompile(` {2,}`)
)

// HTMLToText reduces an HTML fragment to readable text. Block elements end
// a line, table cells are tab separated and script or style content is
// dropped.
func HTMLToText(fragment string) (string, error) {
	nodes, err := html.ParseFragment(strings.NewReader(fragment), &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
	})
	if err != nil {
		return "", err
	}

	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			words := strings.Fields(n.Data)
			if len(words) == 0 {
				b.WriteString(" ")
				return
			}
			if isSpace(n.Data[0]) {
				b.WriteString(" ")
			}
			b.WriteString(strings.Join(words, " "))
			if isSpace(n.Data[len(n.Data)-1]) {
				b.WriteString(" ")
			}
			return
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Head:
				return
			case atom.Br:
				b.WriteString("\n")
				return
			case atom.Li:
				b.WriteString("- ")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}

		if n.Type != html.ElementNode {
			return
		}
		switch n.DataAtom {
		case atom.Td, atom.Th:
			if nextElement(n) != nil {
				b.WriteString("\t")
			}
		case atom.P, atom.Div, atom.Tr, atom.Li, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
			atom.Table, atom.Ul, atom.Ol, atom.Section, atom.Article, atom.Blockquote, atom.Pre:
			b.WriteString("\n")
		}
	}
	for _, n := range nodes {
		walk(n)
	}

	text := spaceRuns.ReplaceAllString(tabPad.ReplaceAllString(b.String(), "\t"), " ")
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(strings.TrimLeft(l, " "), " \t")
	}
	out := blankRuns.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(out), nil
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\n' || c == '\t' || c == '\r'
}

func nextElement(n *html.Node) *html.Node {
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode {
			return s
		}
	}
	return nil
}
